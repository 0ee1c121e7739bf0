package sio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/ruleset"
	"github.com/Comcast/rete/storage"
	"github.com/Comcast/rete/util/testutil"
)

var testRules = `
name: test
rules:
  - name: pair
    when:
      - pattern: a
        type: a
      - pattern: b
        type: b
        conditions:
          - a.n == b.n
    then:
      emit: '({n: a.n})'
  - name: consume
    when:
      - pattern: x
        type: tmp
    then:
      emit: '({gone: x.n})'
      retract: [x]
`

func testNetwork(t *testing.T) *core.Network {
	rs, err := ruleset.Parse([]byte(testRules))
	if err != nil {
		t.Fatal(err)
	}
	net, err := ruleset.Compile(context.Background(), rs)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

func process(t *testing.T, r *Runner, js string) *Result {
	res, err := r.ProcessMsg(context.Background(), testutil.Dwimjs(js))
	if err != nil {
		t.Fatalf("%s: %s", js, err)
	}
	return res
}

func TestRunner(t *testing.T) {
	var (
		ctx = context.Background()
		net = testNetwork(t)
		st  = storage.NewMemStorage()
	)

	r, err := NewRunner(ctx, net, st, "s")
	if err != nil {
		t.Fatal(err)
	}

	res := process(t, r, `{"type":"a","n":1}`)
	if res.Id != "1" {
		t.Fatal(JS(res))
	}
	res = process(t, r, `{"op":"insert","id":"b1","fact":{"type":"b","n":1}}`)
	if res.Id != "b1" {
		t.Fatal(JS(res))
	}
	if 0 < len(res.Emitted) {
		t.Fatal("emitted without firing")
	}

	res = process(t, r, `{"op":"query","rule":"pair"}`)
	if len(res.Matches) != 1 || len(res.Matches[0]) != 2 {
		t.Fatal(JS(res))
	}

	res = process(t, r, `{"op":"fire"}`)
	if res.Fired != 1 || len(res.Emitted) != 1 {
		t.Fatal(JS(res))
	}
	if e := res.Emitted[0]; e.Rule != "pair" || JS(e.Message) != `{"n":1}` {
		t.Fatal(JS(e))
	}

	res = process(t, r, `{"op":"facts"}`)
	if len(res.Facts) != 2 || res.Facts["b1"] == nil {
		t.Fatal(JS(res))
	}

	res = process(t, r, `{"op":"update","id":"1","fact":{"type":"a","n":2}}`)
	if res.Id != "1" {
		t.Fatal(JS(res))
	}
	res = process(t, r, `{"op":"query","rule":"pair"}`)
	if len(res.Matches) != 0 {
		t.Fatal(JS(res))
	}

	res = process(t, r, `{"op":"retract","id":"b1"}`)
	if len(res.Retracted) != 0 {
		t.Fatal(JS(res))
	}
	if r.Fact("b1") != nil {
		t.Fatal("b1 survived")
	}

	fss, err := st.GetSession(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(fss) != 1 || fss[0].Id != "1" || JS(fss[0].Object) != `{"n":2,"type":"a"}` {
		t.Fatal(JS(fss))
	}

	// A new Runner restores the session.
	r, err = NewRunner(ctx, net, st, "s")
	if err != nil {
		t.Fatal(err)
	}
	if r.Fact("1") == nil {
		t.Fatal("1 not restored")
	}
	res = process(t, r, `{"type":"b","n":2}`)
	if res.Id == "" || res.Id == "1" {
		t.Fatal(JS(res))
	}
	res = process(t, r, `{"op":"fire"}`)
	if res.Fired != 1 || JS(res.Emitted[0].Message) != `{"n":2}` {
		t.Fatal(JS(res))
	}
}

func TestRestoreOrder(t *testing.T) {
	var (
		ctx = context.Background()
		st  = storage.NewMemStorage()
		xs  = testutil.Dwimjss(`{"type":"a","n":1}`, `{"type":"b","n":1}`, `{"type":"a","n":2}`)
	)
	if err := st.MakeSession(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	err := st.WriteState(ctx, "s", []*storage.FactState{
		{Id: "z", Seq: 3, Object: xs[2]},
		{Id: "x", Seq: 1, Object: xs[0]},
		{Id: "y", Seq: 2, Object: xs[1]},
	})
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewRunner(ctx, testNetwork(t), st, "s")
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.JS(r.Session.Facts()); got != JS(xs) {
		t.Fatal(got)
	}
	res := process(t, r, `{"type":"b","n":2}`)
	if res.Id != "4" {
		t.Fatal(JS(res))
	}
	res = process(t, r, `{"op":"query","rule":"pair"}`)
	if len(res.Matches) != 2 {
		t.Fatal(JS(res))
	}
}

func TestRunnerErrors(t *testing.T) {
	ctx := context.Background()
	r, err := NewRunner(ctx, testNetwork(t), nil, "s")
	if err != nil {
		t.Fatal(err)
	}
	process(t, r, `{"op":"insert","id":"x","fact":{"type":"a"}}`)

	tests := []struct {
		name  string
		op    string
		check func(error) bool
	}{
		{"update without id", `{"op":"update","fact":{}}`, func(err error) bool {
			return errors.Is(err, MissingId)
		}},
		{"retract without id", `{"op":"retract"}`, func(err error) bool {
			return errors.Is(err, MissingId)
		}},
		{"update unknown", `{"op":"update","id":"y","fact":{}}`, func(err error) bool {
			var e *UnknownId
			return errors.As(err, &e) && e.Id == "y"
		}},
		{"retract unknown", `{"op":"retract","id":"y"}`, func(err error) bool {
			var e *UnknownId
			return errors.As(err, &e)
		}},
		{"duplicate", `{"op":"insert","id":"x","fact":{"type":"a"}}`, func(err error) bool {
			var e *DuplicateId
			return errors.As(err, &e) && e.Id == "x"
		}},
		{"query without rule", `{"op":"query"}`, func(err error) bool {
			return errors.Is(err, MissingRule)
		}},
		{"query unknown", `{"op":"query","rule":"nope"}`, func(err error) bool {
			var e *UnknownRule
			return errors.As(err, &e) && e.Rule == "nope"
		}},
		{"unknown op", `{"op":"dance"}`, func(err error) bool {
			var e *UnknownOp
			return errors.As(err, &e) && e.Op == "dance"
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.ProcessMsg(ctx, testutil.Dwimjs(tc.op))
			if !tc.check(err) {
				t.Fatalf("%T %v", err, err)
			}
			if res == nil || res.Error == "" {
				t.Fatal(JS(res))
			}
		})
	}
}

func TestAutoFire(t *testing.T) {
	var (
		ctx = context.Background()
		st  = storage.NewMemStorage()
	)
	r, err := NewRunner(ctx, testNetwork(t), st, "s")
	if err != nil {
		t.Fatal(err)
	}
	r.AutoFire = true

	res := process(t, r, `{"type":"tmp","n":3}`)
	if res.Fired != 1 {
		t.Fatal(JS(res))
	}
	if JS(res.Retracted) != `["1"]` {
		t.Fatal(JS(res))
	}
	if len(res.Emitted) != 1 || JS(res.Emitted[0].Message) != `{"gone":3}` {
		t.Fatal(JS(res))
	}
	if r.Fact("1") != nil {
		t.Fatal("1 survived")
	}
	fss, err := st.GetSession(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(fss) != 0 {
		t.Fatal(JS(fss))
	}
}

func TestParseOp(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{`{"op":"fire"}`, `{"op":"fire"}`},
		{`{"op":"retract","id":"3"}`, `{"op":"retract","id":"3"}`},
		{`{"type":"a"}`, `{"op":"insert","fact":{"type":"a"}}`},
		{`{"op":7}`, `{"op":"insert","fact":{"op":7}}`},
		{`"hello"`, `{"op":"insert","fact":"hello"}`},
	}
	for _, tc := range tests {
		op, err := ParseOp(testutil.Dwimjs(tc.msg))
		if err != nil {
			t.Fatal(err)
		}
		if got := JS(op); got != tc.want {
			t.Fatalf("%s: %s", tc.msg, got)
		}
	}
}

func TestStdioLoop(t *testing.T) {
	ctx := context.Background()
	r, err := NewRunner(ctx, testNetwork(t), nil, "s")
	if err != nil {
		t.Fatal(err)
	}

	input := strings.Join([]string{
		`# A comment`,
		``,
		`{"type":"a","n":1}`,
		`{"type":"b","n":1}`,
		`{"op":"fire"}`,
		`not json`,
		`{"op":"query"}`,
		`quit`,
		`{"type":"a","n":5}`,
	}, "\n")

	var out bytes.Buffer
	s := &Stdio{
		In:       strings.NewReader(input),
		Out:      &out,
		Tags:     true,
		InputEOF: make(chan bool),
	}
	if err = s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	in, results, done, err := s.IO(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = r.Loop(ctx, in, results, done); err != nil {
		t.Fatal(err)
	}
	if err = s.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.InputEOF:
	default:
		t.Fatal("InputEOF not closed")
	}

	got := out.String()
	for _, want := range []string{
		`emit pair {"n":1}`,
		`error bad input`,
		`error missing rule`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("no %q in %s", want, got)
		}
	}
	if n := len(r.Session.Facts()); n != 2 {
		t.Fatalf("%d facts", n)
	}
}

func TestStdioEOF(t *testing.T) {
	ctx := context.Background()
	r, err := NewRunner(ctx, testNetwork(t), nil, "s")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	s := &Stdio{
		In:           strings.NewReader(`{"type":"a","n":1}`),
		Out:          &out,
		PrintResults: true,
	}
	in, results, done, err := s.IO(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = r.Loop(ctx, in, results, done); err != nil {
		t.Fatal(err)
	}
	s.Stop(ctx)
	if !strings.Contains(out.String(), `"id":"1"`) {
		t.Fatal(out.String())
	}
}
