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

package core

import (
	"testing"
)

func TestTupleLevels(t *testing.T) {
	var (
		root = NewRootTuple(1)
		a    = NewFact(10, "a")
		b    = NewFact(11, "b")
		c    = NewFact(12, "c")
		t1   = NewTuple(2, root, a)
		t2   = NewTuple(3, t1, b)
		t3   = NewTuple(4, t2, c)
	)

	if root.Level != 0 || t1.Level != 1 || t3.Level != 3 {
		t.Fatal(root.Level, t1.Level, t3.Level)
	}
	if !sameIds(t3.Facts(), 10, 11, 12) {
		t.Fatal(ids(t3.Facts()))
	}
	if t3.FactAt(1) != b || t3.FactAt(3) != nil || t3.FactAt(-1) != nil {
		t.Fatal("FactAt")
	}
	if got := t3.String(); got != "tuple 4@3[10,11,12]" {
		t.Fatal(got)
	}

	tests := []struct {
		level int
		want  int64
	}{
		{-1, 1},
		{0, 1},
		{1, 2},
		{2, 3},
		{3, 4},
		{7, 4},
	}
	for _, tc := range tests {
		if got := t3.GroupId(tc.level); got != tc.want {
			t.Fatalf("GroupId(%d) = %d; wanted %d", tc.level, got, tc.want)
		}
	}
	if t3.Ancestor(1) != t1 || t3.Ancestor(4) != nil {
		t.Fatal("Ancestor")
	}
}

func TestTupleWithoutParent(t *testing.T) {
	x := NewTuple(5, nil, NewFact(1, "x"))
	if x.Level != 1 {
		t.Fatal(x.Level)
	}
	if x.GroupId(0) != 5 {
		t.Fatal(x.GroupId(0))
	}
	if len(x.Objects()) != 1 || x.Objects()[0] != "x" {
		t.Fatal(x.Objects())
	}
}

func TestWrapperFactObjects(t *testing.T) {
	var (
		root = NewRootTuple(1)
		w    = NewWrapperFact(9, NewTuple(2, root, NewFact(3, "inner")))
		f    = NewFact(4, "outer")
	)
	if !w.IsWrapperFact() || f.IsWrapperFact() {
		t.Fatal("IsWrapperFact")
	}
	objs := Objects([]*Fact{f, w})
	if objs[0] != "outer" {
		t.Fatal(objs[0])
	}
	inner, is := objs[1].([]interface{})
	if !is || len(inner) != 1 || inner[0] != "inner" {
		t.Fatal(objs[1])
	}
}

type widget struct {
	Name string
}

func (w *widget) FactType() string {
	return "gadget"
}

type plain struct{}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		x    interface{}
		want string
	}{
		{map[string]interface{}{"type": "order"}, "order"},
		{map[string]interface{}{"kind": "order"}, ""},
		{&widget{}, "gadget"},
		{plain{}, "plain"},
		{&plain{}, "plain"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := TypeOf(tc.x); got != tc.want {
			t.Fatalf("TypeOf(%#v) = %q; wanted %q", tc.x, got, tc.want)
		}
	}
}

func TestArguments(t *testing.T) {
	var (
		root = NewRootTuple(1)
		a    = NewFact(10, "a")
		b    = NewFact(11, "b")
		t2   = NewTuple(3, NewTuple(2, root, a), b)
		c    = NewFact(12, "c")
	)

	args, err := Arguments(t2, c, []int{2, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != "c" || args[1] != "a" || args[2] != "b" {
		t.Fatal(args)
	}

	if _, err = Arguments(t2, c, []int{3}); err == nil {
		t.Fatal("expected a SlotError")
	} else if _, is := err.(*SlotError); !is {
		t.Fatalf("%T", err)
	}

	w := NewWrapperFact(20, NewTuple(4, t2, c))
	if args, err = Arguments(t2, w, []int{0, 2}); err != nil {
		t.Fatal(err)
	}
	if args[0] != "a" || args[1] != "c" {
		t.Fatal(args)
	}
}
