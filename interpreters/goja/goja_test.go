/* Copyright 2019 Comcast Cable Communications Management, LLC
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

package goja

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/rule"
	. "github.com/Comcast/rete/util/testutil"
)

func compile(t *testing.T, i *Interpreter, src interface{}, params ...string) core.Expression {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := i.Compile(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestExpressions(t *testing.T) {
	order := Dwimjs(`{"type":"order","owner":"homer","total":12}`)
	customer := Dwimjs(`{"type":"customer","name":"homer"}`)

	tests := []struct {
		name   string
		code   string
		params []string
		args   []interface{}
		want   string
	}{
		{
			name:   "equality",
			code:   `o.owner == c.name`,
			params: []string{"o", "c"},
			args:   []interface{}{order, customer},
			want:   `true`,
		},
		{
			name:   "trailing semicolon",
			code:   `o.total > 20;`,
			params: []string{"o"},
			args:   []interface{}{order},
			want:   `false`,
		},
		{
			name:   "body",
			code:   `var x = o.total * 2; return x + 1;`,
			params: []string{"o"},
			args:   []interface{}{order},
			want:   `25`,
		},
		{
			name:   "object",
			code:   `({who: c.name, n: o.total})`,
			params: []string{"o", "c"},
			args:   []interface{}{order, customer},
			want:   `{"n":12,"who":"homer"}`,
		},
		{
			name:   "array",
			code:   `[1, 2, o.owner]`,
			params: []string{"o"},
			args:   []interface{}{order},
			want:   `[1,2,"homer"]`,
		},
		{
			name: "no params",
			code: `"chips"`,
			want: `"chips"`,
		},
		{
			name:   "undefined",
			code:   `o.missing`,
			params: []string{"o"},
			args:   []interface{}{order},
			want:   `null`,
		},
	}

	i := NewInterpreter()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := compile(t, i, tc.code, tc.params...)
			x, err := e.Evaluate(context.Background(), tc.args)
			if err != nil {
				t.Fatal(err)
			}
			if js := JS(x); js != tc.want {
				t.Fatalf("got %s; wanted %s", js, tc.want)
			}
		})
	}
}

type Order struct {
	Owner string `json:"owner"`
	Total int
	Notes string `json:"-"`
}

func TestStructFields(t *testing.T) {
	e := compile(t, NewInterpreter(), `[o.owner, o.Total, typeof o.Notes]`, "o")
	x, err := e.Evaluate(context.Background(), []interface{}{&Order{"marge", 3, "hidden"}})
	if err != nil {
		t.Fatal(err)
	}
	if js := JS(x); js != `["marge",3,"undefined"]` {
		t.Fatal(js)
	}
}

func TestTimeout(t *testing.T) {
	i := NewInterpreter()
	i.Testing = true
	e := compile(t, i, `for (;;) { sleep(10); }`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.Evaluate(ctx, nil)
	if err == nil {
		t.Fatal("didn't timeout")
	}
	if err != Interrupted {
		t.Fatalf("surprised by \"%s\"", err)
	}

	// The interrupt shouldn't stick to the pooled runtime.
	e = compile(t, i, `1 + 1`)
	for n := 0; n < 3; n++ {
		if _, err := e.Evaluate(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestErrors(t *testing.T) {
	i := NewInterpreter()

	t.Run("runtime", func(t *testing.T) {
		e := compile(t, i, `likes + tacos`)
		if _, err := e.Evaluate(context.Background(), nil); err == nil {
			t.Fatal("didn't protest")
		}
	})

	t.Run("syntax", func(t *testing.T) {
		if _, err := i.Compile(context.Background(), `((`, nil); err == nil {
			t.Fatal("didn't protest")
		}
	})

	t.Run("parameter", func(t *testing.T) {
		_, err := i.Compile(context.Background(), `true`, []string{"not ok"})
		if _, is := err.(*BadParameter); !is {
			t.Fatalf("%#v", err)
		}
	})

	t.Run("arity", func(t *testing.T) {
		e := compile(t, i, `a`, "a")
		_, err := e.Evaluate(context.Background(), nil)
		if _, is := err.(*ArityError); !is {
			t.Fatalf("%#v", err)
		}
	})

	t.Run("source", func(t *testing.T) {
		if _, err := i.Compile(context.Background(), 42, nil); err == nil {
			t.Fatal("didn't protest")
		}
	})
}

func TestCronNext(t *testing.T) {
	i := NewInterpreter()

	e := compile(t, i, `_.cronNext("* 0 * * *")`)
	x, err := e.Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	s, is := x.(string)
	if !is {
		t.Fatalf("%#v", x)
	}
	if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		t.Fatal(err)
	}

	e = compile(t, i, `_.cronNext("bad")`)
	if _, err := e.Evaluate(context.Background(), nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestEnv(t *testing.T) {
	i := NewInterpreter()
	tests := []struct {
		code string
		want string
	}{
		{`_.esc("a b&c")`, `"a+b%26c"`},
		{`_.gensym().length`, `32`},
		{`_.log({likes:"tacos"}).likes`, `"tacos"`},
		{`_.match({likes:"?x"}, {likes:"tacos"}).length`, `1`},
		{`_.match({likes:"?x"}, {likes:"tacos"})[0]["?x"]`, `"tacos"`},
		{`_.match({likes:"?x"}, {likes:"tacos"}, {"?x":"chips"}).length`, `0`},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			e := compile(t, i, tc.code)
			x, err := e.Evaluate(context.Background(), nil)
			if err != nil {
				t.Fatal(err)
			}
			if js := JS(x); js != tc.want {
				t.Fatalf("got %s; wanted %s", js, tc.want)
			}
		})
	}
}

func TestConcurrentEvaluations(t *testing.T) {
	e := compile(t, NewInterpreter(), `n * 2`, "n")
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			x, err := e.Evaluate(context.Background(), []interface{}{n})
			if err != nil {
				errs <- err
				return
			}
			if x != int64(n*2) {
				errs <- fmt.Errorf("%d: got %#v", n, x)
			}
		}(n)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestRequireSimple(t *testing.T) {
	code := map[string]interface{}{
		"requires": []interface{}{"foo", "bar"},
		"code":     `return foo() + bar(o);`,
	}

	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{
		"foo": `function foo() { return "queso"; }`,
		"bar": `function bar(o) { return o.likes; }`,
	})

	e := compile(t, i, code, "o")
	x, err := e.Evaluate(context.Background(), []interface{}{Dwimjs(`{"likes":"chips"}`)})
	if err != nil {
		t.Fatal(err)
	}
	if x != "quesochips" {
		t.Fatalf("%#v", x)
	}

	if _, err := i.Compile(context.Background(), map[string]interface{}{
		"requires": "baz",
		"code":     "1",
	}, nil); err == nil {
		t.Fatal("should have complained about baz")
	}
}

func TestRequireFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.js"), []byte(`function twice(x) { return 2*x; }`), 0644); err != nil {
		t.Fatal(err)
	}

	i := NewInterpreter()
	i.LibraryProvider = MakeFileLibraryProvider(dir)

	src := map[interface{}]interface{}{
		"requires": []interface{}{"file://lib.js"},
		"code":     `twice(n)`,
	}
	e := compile(t, i, src, "n")
	x, err := e.Evaluate(context.Background(), []interface{}{21})
	if err != nil {
		t.Fatal(err)
	}
	if x != int64(42) {
		t.Fatalf("%#v", x)
	}

	if _, err := i.Compile(context.Background(), map[string]interface{}{
		"requires": "ftp://lib.js",
		"code":     "1",
	}, nil); err == nil {
		t.Fatal("should have complained about the protocol")
	}
}

func TestRequireHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lib.js" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `function greet(c) { return "hello " + c.name; }`)
	}))
	defer ts.Close()

	i := NewInterpreter()
	e := compile(t, i, map[string]interface{}{
		"requires": ts.URL + "/lib.js",
		"code":     `greet(c)`,
	}, "c")
	x, err := e.Evaluate(context.Background(), []interface{}{Dwimjs(`{"name":"bart"}`)})
	if err != nil {
		t.Fatal(err)
	}
	if x != "hello bart" {
		t.Fatalf("%#v", x)
	}

	if _, err := i.Compile(context.Background(), map[string]interface{}{
		"requires": ts.URL + "/missing.js",
		"code":     "1",
	}, nil); err == nil {
		t.Fatal("should have complained about the 404")
	}
}

// TestRule uses compiled expressions as rule conditions.
func TestRule(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	rb := rule.NewRuleBuilder("big orders")
	cb, err := rb.Pattern("c", "customer")
	if err != nil {
		t.Fatal(err)
	}
	if err = cb.Condition(compile(t, i, `c.vip`, "c"), `c.vip`, rule.P("c")...); err != nil {
		t.Fatal(err)
	}
	ob, err := rb.Pattern("o", "order")
	if err != nil {
		t.Fatal(err)
	}
	src := `o.owner == c.name && 10 < o.total`
	if err = ob.Condition(compile(t, i, src, "o", "c"), src, rule.P("o", "c")...); err != nil {
		t.Fatal(err)
	}
	def, err := rb.Build()
	if err != nil {
		t.Fatal(err)
	}
	net, err := rule.Compile(def)
	if err != nil {
		t.Fatal(err)
	}

	s, err := net.NewSession(ctx, core.NewPriorityAgenda())
	if err != nil {
		t.Fatal(err)
	}
	for _, js := range []string{
		`{"type":"customer","name":"homer","vip":true}`,
		`{"type":"customer","name":"ned","vip":false}`,
		`{"type":"order","owner":"homer","total":12}`,
		`{"type":"order","owner":"homer","total":2}`,
		`{"type":"order","owner":"ned","total":50}`,
	} {
		if _, err := s.Insert(ctx, Dwimjs(js)); err != nil {
			t.Fatal(err)
		}
	}

	ts := s.Query("big orders")
	if len(ts) != 1 {
		t.Fatalf("got %d matches", len(ts))
	}
	if js := JS(ts[0].Objects()); js != `[{"name":"homer","type":"customer","vip":true},{"owner":"homer","total":12,"type":"order"}]` {
		t.Fatal(js)
	}
}
