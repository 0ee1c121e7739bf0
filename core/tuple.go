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
	"strconv"
	"strings"
)

// Tuple is an ordered chain of facts representing one partial match.
//
// The root tuple has Level 0 and no fact.  A child tuple extends its
// Parent by one RightFact and has Level Parent.Level+1.  So a tuple at
// level L carries L facts.
//
// Tuples are treated as immutable once made.
type Tuple struct {
	Id        int64
	Level     int
	Parent    *Tuple
	RightFact *Fact

	// path[i] is the ancestor at level i, and path[Level] is the
	// tuple itself.
	path []*Tuple
}

// NewRootTuple makes a tuple with level 0 and no facts.
func NewRootTuple(id int64) *Tuple {
	t := &Tuple{
		Id: id,
	}
	t.path = []*Tuple{t}
	return t
}

// NewTuple makes a child of the given parent that adds the given fact.
//
// A nil parent makes a tuple at level 1 with no ancestor, which is
// mostly useful for tests.
func NewTuple(id int64, parent *Tuple, fact *Fact) *Tuple {
	t := &Tuple{
		Id:        id,
		Parent:    parent,
		RightFact: fact,
	}
	if parent == nil {
		t.Level = 1
		t.path = []*Tuple{nil, t}
		return t
	}
	t.Level = parent.Level + 1
	t.path = make([]*Tuple, t.Level+1)
	copy(t.path, parent.path)
	t.path[t.Level] = t
	return t
}

// GroupId returns the Id of this tuple's ancestor at the given level.
//
// A level at or beyond the tuple's own level gives the tuple's own Id.
// A negative level is treated as the root.
func (t *Tuple) GroupId(level int) int64 {
	if t.Level <= level {
		return t.Id
	}
	if level < 0 {
		level = 0
	}
	if a := t.path[level]; a != nil {
		return a.Id
	}
	return t.Id
}

// Ancestor returns the tuple at the given level in this tuple's chain
// (or nil).
func (t *Tuple) Ancestor(level int) *Tuple {
	if level < 0 || t.Level < level {
		return nil
	}
	return t.path[level]
}

// FactAt returns the i-th fact (counting from the root, starting at
// zero) or nil if there isn't one.
func (t *Tuple) FactAt(i int) *Fact {
	if i < 0 || t.Level <= i {
		return nil
	}
	a := t.path[i+1]
	if a == nil {
		return nil
	}
	return a.RightFact
}

// Facts returns the tuple's facts from the root down.
func (t *Tuple) Facts() []*Fact {
	acc := make([]*Fact, 0, t.Level)
	for i := 0; i < t.Level; i++ {
		if f := t.FactAt(i); f != nil {
			acc = append(acc, f)
		}
	}
	return acc
}

// Objects returns the objects of the tuple's facts from the root down.
func (t *Tuple) Objects() []interface{} {
	return Objects(t.Facts())
}

func (t *Tuple) String() string {
	if t == nil {
		return "nil"
	}
	ids := make([]string, 0, t.Level)
	for _, f := range t.Facts() {
		ids = append(ids, strconv.FormatInt(f.Id, 10))
	}
	return "tuple " + strconv.FormatInt(t.Id, 10) + "@" + strconv.Itoa(t.Level) +
		"[" + strings.Join(ids, ",") + "]"
}
