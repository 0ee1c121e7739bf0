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

package rule

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/Comcast/rete/core"
	. "github.com/Comcast/rete/util/testutil"
)

func get(x interface{}, p string) interface{} {
	m, _ := x.(map[string]interface{})
	return m[p]
}

// same is an Expression that holds when args[0][a] == args[1][b].
func same(a, b string) core.Expression {
	return core.ExpressionFunc(func(ctx context.Context, args []interface{}) (interface{}, error) {
		return get(args[0], a) == get(args[1], b), nil
	})
}

func prop(p string) core.Expression {
	return core.ExpressionFunc(func(ctx context.Context, args []interface{}) (interface{}, error) {
		return get(args[0], p), nil
	})
}

func TestBindingErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(rb *RuleBuilder) error
	}{
		{
			name: "undeclared",
			build: func(rb *RuleBuilder) error {
				pb, err := rb.Pattern("o", "order")
				if err != nil {
					return err
				}
				return pb.Condition(same("owner", "name"), "", P("o", "c")...)
			},
		},
		{
			name: "declared later",
			build: func(rb *RuleBuilder) error {
				pb, err := rb.Pattern("o", "order")
				if err != nil {
					return err
				}
				err = pb.Condition(same("owner", "name"), "", P("o", "c")...)
				if _, e := rb.Pattern("c", "customer"); e != nil {
					return e
				}
				return err
			},
		},
		{
			name: "wrong type",
			build: func(rb *RuleBuilder) error {
				pb, err := rb.Pattern("o", "order")
				if err != nil {
					return err
				}
				return pb.Condition(prop("ok"), "", Param{"o", "customer"})
			},
		},
		{
			name: "twice",
			build: func(rb *RuleBuilder) error {
				if _, err := rb.Pattern("o", "order"); err != nil {
					return err
				}
				_, err := rb.Pattern("o", "customer")
				return err
			},
		},
		{
			name: "own result",
			build: func(rb *RuleBuilder) error {
				_, err := rb.Aggregate("n", "count", "count", func(ab *AggregateBuilder) error {
					pb, err := ab.Pattern("o", "order")
					if err != nil {
						return err
					}
					return pb.Condition(prop("ok"), "", P("n")...)
				})
				return err
			},
		},
		{
			name: "aggregate scope is private",
			build: func(rb *RuleBuilder) error {
				if _, err := rb.Aggregate("n", "count", "count", func(ab *AggregateBuilder) error {
					_, err := ab.Pattern("o", "order")
					return err
				}); err != nil {
					return err
				}
				pb, err := rb.Pattern("c", "customer")
				if err != nil {
					return err
				}
				return pb.Condition(same("name", "owner"), "", P("c", "o")...)
			},
		},
		{
			name: "no aggregate patterns",
			build: func(rb *RuleBuilder) error {
				_, err := rb.Aggregate("n", "count", "count", func(ab *AggregateBuilder) error {
					return nil
				})
				return err
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build(NewRuleBuilder(tc.name))
			if err == nil {
				t.Fatal("expected an error")
			}
			if _, is := err.(*BindingError); !is {
				t.Fatalf("%T: %v", err, err)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	rb := NewRuleBuilder("positions")
	c, err := rb.Pattern("c", "customer")
	if err != nil {
		t.Fatal(err)
	}
	var inner []*Declaration
	n, err := rb.Aggregate("n", "count", "count", func(ab *AggregateBuilder) error {
		o, err := ab.Pattern("o", "order")
		if err != nil {
			return err
		}
		l, err := ab.Pattern("l", "line")
		if err != nil {
			return err
		}
		inner = append(inner, o.Declaration(), l.Declaration())
		return l.Condition(same("order", "id"), "", P("l", "o")...)
	})
	if err != nil {
		t.Fatal(err)
	}
	x, err := rb.Pattern("x", "alert")
	if err != nil {
		t.Fatal(err)
	}
	if err = x.Condition(same("n", "name"), "", P("n", "c")...); err != nil {
		t.Fatal(err)
	}

	got := []int{
		c.Declaration().Position,
		inner[0].Position,
		inner[1].Position,
		n.Position,
		x.Declaration().Position,
	}
	if want := `[0,1,2,1,2]`; JS(got) != want {
		t.Fatalf("got %s; wanted %s", JS(got), want)
	}

	def, err := rb.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Elements) != 3 {
		t.Fatal(len(def.Elements))
	}
	if c.Declaration().Target != def.Elements[0] {
		t.Fatal("declaration not linked to its pattern")
	}
	agg := def.Elements[1].(*AggregateElement)
	if len(agg.Sources) != 2 || JS(agg.Sources[1].Conditions[0].Slots()) != `[2,1]` {
		t.Fatal(JS(agg.Sources[1].Conditions[0].Slots()))
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := NewRuleBuilder("").Build(); err != NoName {
		t.Fatal(err)
	}
	if _, err := NewRuleBuilder("empty").Build(); err != NoPatterns {
		t.Fatal(err)
	}
}

func customerItems(t *testing.T) *Definition {
	rb := NewRuleBuilder("items")
	if _, err := rb.Pattern("c", "customer"); err != nil {
		t.Fatal(err)
	}
	if _, err := rb.Aggregate("item", "item", "flatten", func(ab *AggregateBuilder) error {
		o, err := ab.Pattern("o", "order")
		if err != nil {
			return err
		}
		if err = o.Condition(same("owner", "name"), "o.owner == c.name", P("o", "c")...); err != nil {
			return err
		}
		return ab.Selector(prop("items"), "o.items", P("o")...)
	}); err != nil {
		t.Fatal(err)
	}
	def, err := rb.Build()
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func items(s *core.Session, rule string) []string {
	var acc []string
	for _, t := range s.Query(rule) {
		xs := t.Objects()
		acc = append(acc, get(xs[0], "name").(string)+":"+xs[1].(string))
	}
	sort.Strings(acc)
	return acc
}

func typed(typ string, kvs ...interface{}) map[string]interface{} {
	m := map[string]interface{}{
		"type": typ,
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		m[kvs[i].(string)] = kvs[i+1]
	}
	return m
}

func TestCompileFlatten(t *testing.T) {
	ctx := context.Background()
	net, err := Compile(customerItems(t))
	if err != nil {
		t.Fatal(err)
	}
	s, err := net.NewSession(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = s.Insert(ctx, typed("customer", "name", "kent")); err != nil {
		t.Fatal(err)
	}
	o, err := s.Insert(ctx, typed("order", "owner", "kent", "items", []interface{}{"a", "b"}))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := JS(items(s, "items")), `["kent:a","kent:b"]`; got != want {
		t.Fatal(got)
	}

	if err = s.Update(ctx, o, typed("order", "owner", "kent", "items", []interface{}{"b", "c"})); err != nil {
		t.Fatal(err)
	}
	if got, want := JS(items(s, "items")), `["kent:b","kent:c"]`; got != want {
		t.Fatal(got)
	}

	if err = s.Retract(ctx, o); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Query("items")); n != 0 {
		t.Fatal(n)
	}
}

func TestCompileSumNaN(t *testing.T) {
	ctx := context.Background()
	rb := NewRuleBuilder("total")
	if _, err := rb.Aggregate("total", "number", "sum", func(ab *AggregateBuilder) error {
		if _, err := ab.Pattern("x", "x"); err != nil {
			return err
		}
		return ab.Selector(prop("v"), "x.v", P("x")...)
	}); err != nil {
		t.Fatal(err)
	}
	def, err := rb.Build()
	if err != nil {
		t.Fatal(err)
	}
	net, err := Compile(def)
	if err != nil {
		t.Fatal(err)
	}
	s, err := net.NewSession(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	total := func() float64 {
		t.Helper()
		ts := s.Query("total")
		if len(ts) != 1 {
			t.Fatalf("%d totals", len(ts))
		}
		return ts[0].Objects()[0].(float64)
	}

	f, err := s.Insert(ctx, typed("x", "v", math.NaN()))
	if err != nil {
		t.Fatal(err)
	}
	if x := total(); !math.IsNaN(x) {
		t.Fatal(x)
	}
	if err = s.Update(ctx, f, typed("x", "v", 1.0)); err != nil {
		t.Fatal(err)
	}
	if x := total(); x != 1 {
		t.Fatal(x)
	}
	if err = s.Update(ctx, f, typed("x", "v", math.NaN())); err != nil {
		t.Fatal(err)
	}
	if x := total(); !math.IsNaN(x) {
		t.Fatal(x)
	}
	if err = s.Retract(ctx, f); err != nil {
		t.Fatal(err)
	}
	if x := total(); x != 0 {
		t.Fatal(x)
	}
}

func TestCompileFlattenNaN(t *testing.T) {
	ctx := context.Background()
	net, err := Compile(customerItems(t))
	if err != nil {
		t.Fatal(err)
	}
	s, err := net.NewSession(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.Insert(ctx, typed("customer", "name", "kent")); err != nil {
		t.Fatal(err)
	}
	o, err := s.Insert(ctx, typed("order", "owner", "kent", "items", []interface{}{math.NaN(), math.NaN()}))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(s.Query("items")); n != 2 {
		t.Fatal(n)
	}

	if err = s.Update(ctx, o, typed("order", "owner", "kent", "items", []interface{}{1.0})); err != nil {
		t.Fatal(err)
	}
	ts := s.Query("items")
	if len(ts) != 1 || ts[0].Objects()[1] != 1.0 {
		t.Fatal(JS(ts))
	}

	if err = s.Update(ctx, o, typed("order", "owner", "kent", "items", []interface{}{math.NaN()})); err != nil {
		t.Fatal(err)
	}
	if err = s.Retract(ctx, o); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Query("items")); n != 0 {
		t.Fatal(n)
	}
}

func TestCompileGroupedCount(t *testing.T) {
	ctx := context.Background()
	rb := NewRuleBuilder("lines")
	if _, err := rb.Pattern("c", "customer"); err != nil {
		t.Fatal(err)
	}
	if _, err := rb.Aggregate("n", "count", "count", func(ab *AggregateBuilder) error {
		o, err := ab.Pattern("o", "order")
		if err != nil {
			return err
		}
		if err = o.Condition(same("owner", "name"), "", P("o", "c")...); err != nil {
			return err
		}
		l, err := ab.Pattern("l", "line")
		if err != nil {
			return err
		}
		return l.Condition(same("order", "id"), "", P("l", "o")...)
	}); err != nil {
		t.Fatal(err)
	}
	def, err := rb.Build()
	if err != nil {
		t.Fatal(err)
	}

	net, err := Compile(def, customerItems(t))
	if err != nil {
		t.Fatal(err)
	}
	alphas := 0
	for _, n := range net.Nodes() {
		if n.Kind() == "alpha" {
			alphas++
		}
	}
	if alphas != 3 {
		t.Fatalf("%d alpha nodes", alphas)
	}

	s, err := net.NewSession(ctx, core.NewRecordingAgenda())
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []interface{}{
		typed("customer", "name", "jimbo"),
		typed("customer", "name", "dolph"),
		typed("order", "owner", "jimbo", "id", 1),
		typed("order", "owner", "dolph", "id", 2),
		typed("line", "order", 1),
		typed("line", "order", 1),
		typed("line", "order", 2),
		typed("line", "order", 3),
	} {
		if _, err = s.Insert(ctx, x); err != nil {
			t.Fatal(err)
		}
	}

	got := make(map[string]interface{})
	for _, t := range s.Query("lines") {
		xs := t.Objects()
		got[get(xs[0], "name").(string)] = xs[1]
	}
	if JS(got) != `{"dolph":1,"jimbo":2}` {
		t.Fatal(JS(got))
	}
}
