package ruleset

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/rule"
	. "github.com/Comcast/rete/util/testutil"
)

func TestReadFile(t *testing.T) {
	rs, err := ReadFile("testdata/orders.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Name != "orders" {
		t.Fatal(rs.Name)
	}
	if len(rs.Rules) != 4 {
		t.Fatalf("%d rules", len(rs.Rules))
	}
	if len(rs.Facts) != 6 {
		t.Fatalf("%d facts", len(rs.Facts))
	}
	r := rs.Rule("big spender")
	if r == nil {
		t.Fatal("no big spender")
	}
	if r.Priority != 10 {
		t.Fatal(r.Priority)
	}
	agg := r.When[1]
	if agg.Name() != "total" || agg.Aggregator != "sum" || len(agg.Patterns) != 1 {
		t.Fatal(JS(agg))
	}
	if _, is := rs.Facts[0].(map[string]interface{}); !is {
		t.Fatalf("fact is a %T", rs.Facts[0])
	}
	if rs.Rule("nope") != nil {
		t.Fatal("found nope")
	}
}

func TestOrders(t *testing.T) {
	ctx := context.Background()

	rs, err := ReadFile("testdata/orders.yaml")
	if err != nil {
		t.Fatal(err)
	}
	net, err := Compile(ctx, rs)
	if err != nil {
		t.Fatal(err)
	}
	if len(net.Rules()) != 4 {
		t.Fatalf("%d rules", len(net.Rules()))
	}

	s, err := net.NewSession(ctx, core.NewPriorityAgenda())
	if err != nil {
		t.Fatal(err)
	}
	emitted := make(map[string][]string)
	s.Emit = func(rule string, x interface{}) {
		emitted[rule] = append(emitted[rule], JS(x))
	}

	if _, err = s.InsertAll(ctx, rs.Facts); err != nil {
		t.Fatal(err)
	}
	if _, err = s.Fire(ctx); err != nil {
		t.Fatal(err)
	}

	for _, ss := range emitted {
		sort.Strings(ss)
	}

	want := map[string]string{
		"big spender":     `["{\"total\":110,\"who\":\"homer\"}"]`,
		"order count":     `["{\"orders\":1,\"who\":\"ned\"}","{\"orders\":2,\"who\":\"homer\"}"]`,
		"ship discounted": `["{\"percent\":10,\"shipped\":1}"]`,
	}
	if len(emitted) != len(want) {
		t.Fatal(JS(emitted))
	}
	for name, js := range want {
		if got := JS(emitted[name]); got != js {
			t.Fatalf("%s: %s", name, got)
		}
	}

	// The discount was inserted and then retracted.
	if n := len(s.Facts()); n != len(rs.Facts) {
		t.Fatalf("%d facts", n)
	}
	if ts := s.Query("ship discounted"); len(ts) != 0 {
		t.Fatalf("%d matches", len(ts))
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "no kind",
			src: `
rules:
  - name: r
    when:
      - type: order
`,
		},
		{
			name: "both kinds",
			src: `
rules:
  - name: r
    when:
      - pattern: o
        aggregate: n
        type: order
`,
		},
		{
			name: "redeclared",
			src: `
rules:
  - name: r
    when:
      - pattern: o
        type: order
      - pattern: o
        type: order
`,
		},
		{
			name: "syntax",
			src: `
rules:
  - name: r
    when:
      - pattern: o
        type: order
        conditions:
          - "o.amount >>> ("
`,
		},
		{
			name: "unknown aggregator",
			src: `
rules:
  - name: r
    when:
      - aggregate: n
        type: number
        aggregator: median
        patterns:
          - pattern: o
            type: order
`,
		},
		{
			name: "aggregate without patterns",
			src: `
rules:
  - name: r
    when:
      - aggregate: n
        type: number
        aggregator: count
`,
		},
		{
			name: "retract aggregate",
			src: `
rules:
  - name: r
    when:
      - aggregate: n
        type: number
        aggregator: count
        patterns:
          - pattern: o
            type: order
    then:
      retract: [n]
`,
		},
		{
			name: "retract undeclared",
			src: `
rules:
  - name: r
    when:
      - pattern: o
        type: order
    then:
      retract: [x]
`,
		},
		{
			name: "unknown interpreter",
			src: `
interpreter: cobol
rules:
  - name: r
    when:
      - pattern: o
        type: order
        conditions:
          - "true"
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs, err := Parse([]byte(tc.src))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Compile(context.Background(), rs)
			if err == nil {
				t.Fatal("should have failed")
			}
			var ce *rule.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("%T %s", err, err)
			}
			if ce.Rule != "r" {
				t.Fatal(ce.Rule)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	if _, err := Parse([]byte("rules: [")); err == nil {
		t.Fatal("should have failed")
	}
	_, err := ReadFile("testdata/missing.yaml")
	if err == nil || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatal(err)
	}
}

func TestInsertArray(t *testing.T) {
	ctx := context.Background()
	rs, err := Parse([]byte(`
rules:
  - name: split
    when:
      - pattern: b
        type: batch
    then:
      insert: |
        var acc = [];
        for (var i = 0; i < b.n; i++) {
          acc.push({type: "item", i: i});
        }
        return acc;
`))
	if err != nil {
		t.Fatal(err)
	}
	net, err := Compile(ctx, rs)
	if err != nil {
		t.Fatal(err)
	}
	s, err := net.NewSession(ctx, core.NewPriorityAgenda())
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.Insert(ctx, Dwimjs(`{"type":"batch","n":3}`)); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Fire(ctx); err != nil {
		t.Fatal(err)
	} else if n != 1 {
		t.Fatalf("fired %d", n)
	}
	if n := len(s.Facts()); n != 4 {
		t.Fatalf("%d facts", n)
	}
}
