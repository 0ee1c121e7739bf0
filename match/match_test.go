/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package match

import (
	"context"
	"math/rand"
	"testing"

	. "github.com/Comcast/rete/util/testutil"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		fact     string
		bindings string
		want     string
	}{
		{"constant", `"a"`, `"a"`, `{}`, `[{}]`},
		{"constant mismatch", `"a"`, `"b"`, `{}`, `null`},
		{"number", `1`, `1`, `{}`, `[{}]`},
		{"variable", `"?x"`, `1`, `{}`, `[{"?x":1}]`},
		{"bound variable", `"?x"`, `1`, `{"?x":2}`, `null`},
		{"anonymous", `{"a":"?"}`, `{"a":1}`, `{}`, `[{}]`},
		{"subset", `{"a":"?x"}`, `{"a":1,"b":2}`, `{}`, `[{"?x":1}]`},
		{"missing property", `{"a":"?x","c":1}`, `{"a":1,"b":2}`, `{}`, `null`},
		{"optional property", `{"a":"?x","c":"??c"}`, `{"a":1}`, `{}`, `[{"?x":1}]`},
		{"empty map", `{}`, `{"a":1}`, `{}`, `[{}]`},
		{"not a map", `{}`, `[1]`, `{}`, `null`},
		{"set", `["b","a"]`, `["a","b","c"]`, `{}`, `[{}]`},
		{"set too small", `["a","a"]`, `["a","b"]`, `{}`, `null`},
		{"set variable", `["a","?x"]`, `["a","b","c"]`, `{}`, `[{"?x":"b"},{"?x":"c"}]`},
		{"set optional", `["a","??x"]`, `["a"]`, `{}`, `[{}]`},
		{"nested", `{"order":{"items":["?i"]}}`, `{"order":{"items":["x"]}}`, `{}`, `[{"?i":"x"}]`},
		{"join", `{"a":"?x","b":"?x"}`, `{"a":1,"b":1}`, `{}`, `[{"?x":1}]`},
		{"join mismatch", `{"a":"?x","b":"?x"}`, `{"a":1,"b":2}`, `{}`, `null`},
		{"less", `{"n":"?<n"}`, `{"n":3}`, `{"?<n":10}`, `[{"?<n":10,"?n":3}]`},
		{"not less", `{"n":"?<n"}`, `{"n":30}`, `{"?<n":10}`, `null`},
		{"not equal", `{"n":"?!=n"}`, `{"n":3}`, `{"?!=n":3}`, `null`},
		{"at least", `{"n":"?>=n"}`, `{"n":3}`, `{"?>=n":3}`, `[{"?>=n":3,"?n":3}]`},
		{"unbound inequality", `{"n":"?<n"}`, `{"n":3}`, `{}`, `[{"?<n":3}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bs := NewBindings()
			for k, v := range Dwimjs(tc.bindings).(map[string]interface{}) {
				bs[k] = v
			}
			bss, err := Match(Dwimjs(tc.pattern), Dwimjs(tc.fact), bs)
			if err != nil {
				t.Fatal(err)
			}
			if got := JS(bss); got != tc.want {
				t.Fatalf("got %s; wanted %s", got, tc.want)
			}
		})
	}
}

func TestMatchDoesNotModifyBindings(t *testing.T) {
	bs := NewBindings().Extend("?y", 1)
	if _, err := Match(`?x`, 2, bs); err != nil {
		t.Fatal(err)
	}
	if len(bs) != 1 {
		t.Fatal(bs)
	}
}

func TestUnknownPatternType(t *testing.T) {
	_, err := Match(struct{}{}, 1, nil)
	if _, is := err.(*UnknownPatternType); !is {
		t.Fatalf("%T", err)
	}
}

type order struct {
	Owner string   `json:"owner"`
	Items []string `json:"items"`
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	pat, err := ParsePattern(`{"owner":"?o","items":["donut"]}`)
	if err != nil {
		t.Fatal(err)
	}
	f := Filter(pat, nil)

	for _, tc := range []struct {
		x    interface{}
		want bool
	}{
		{&order{Owner: "homer", Items: []string{"beer", "donut"}}, true},
		{order{Owner: "homer", Items: []string{"beer"}}, false},
		{Dwimjs(`{"owner":"marge","items":["donut"]}`), true},
		{"donut", false},
	} {
		ok, err := f(ctx, tc.x)
		if err != nil {
			t.Fatal(err)
		}
		if ok != tc.want {
			t.Fatalf("%s: got %v", JS(tc.x), ok)
		}
	}

	// Bindings constrain the filter.
	g := Filter(pat, Bindings{"?o": "marge"})
	if ok, _ := g(ctx, &order{Owner: "homer", Items: []string{"donut"}}); ok {
		t.Fatal("shouldn't match homer")
	}
}

// gen makes a random variable-free value.
func gen(r *rand.Rand, d int) interface{} {
	n := 4
	if 0 < d {
		n = 6
	}
	switch r.Intn(n) {
	case 0:
		return nil
	case 1:
		return r.Intn(2) == 0
	case 2:
		return float64(r.Intn(10))
	case 3:
		return string(rune('a' + r.Intn(5)))
	case 4:
		xs := make([]interface{}, r.Intn(4))
		for i := range xs {
			xs[i] = gen(r, d-1)
		}
		return xs
	default:
		m := make(map[string]interface{})
		for i := r.Intn(4); 0 < i; i-- {
			m[string(rune('a'+r.Intn(5)))] = gen(r, d-1)
		}
		return m
	}
}

// TestMatchSelf checks that every variable-free value matches itself
// without bindings.
func TestMatchSelf(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		x := gen(r, 3)
		bss, err := Match(x, x, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(bss) == 0 {
			t.Fatalf("%s didn't match itself", JS(x))
		}
		for _, bs := range bss {
			if len(bs) != 0 {
				t.Fatalf("%s: %s", JS(x), JS(bs))
			}
		}
	}
}
