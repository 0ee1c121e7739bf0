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
	"context"
)

// ExecutionContext carries what a node needs while propagating one
// operation: the caller's context.Context (handed to expressions) and
// the session's WorkingMemory.
type ExecutionContext struct {
	ctx context.Context
	wm  *WorkingMemory
}

// NewExecutionContext makes an ExecutionContext.
//
// A nil ctx is replaced with context.Background(), and a nil wm with a
// fresh WorkingMemory.
func NewExecutionContext(ctx context.Context, wm *WorkingMemory) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if wm == nil {
		wm = NewWorkingMemory()
	}
	return &ExecutionContext{
		ctx: ctx,
		wm:  wm,
	}
}

// Context returns the caller's context.
func (c *ExecutionContext) Context() context.Context {
	return c.ctx
}

// WorkingMemory returns the session's working memory.
func (c *ExecutionContext) WorkingMemory() *WorkingMemory {
	return c.wm
}

// WorkingMemory holds all of a session's mutable state.
//
// Node memories are indexed by node id.  A WorkingMemory is not safe
// for concurrent use.
type WorkingMemory struct {
	facts    *factList
	memories []interface{}

	lastFactId  int64
	lastTupleId int64

	// Agenda receives activations from RuleNodes.  Can be nil.
	Agenda Agenda
}

// NewWorkingMemory makes an empty WorkingMemory.
func NewWorkingMemory() *WorkingMemory {
	return &WorkingMemory{
		facts: newFactList(),
	}
}

// NextFactId returns a new fact id.
func (wm *WorkingMemory) NextFactId() int64 {
	wm.lastFactId++
	return wm.lastFactId
}

// NextTupleId returns a new tuple id.
func (wm *WorkingMemory) NextTupleId() int64 {
	wm.lastTupleId++
	return wm.lastTupleId
}

// Facts returns the facts that were inserted into the session, in
// insertion order.
func (wm *WorkingMemory) Facts() []*Fact {
	return wm.facts.all()
}

// Fact finds an inserted fact by id.
func (wm *WorkingMemory) Fact(id int64) *Fact {
	return wm.facts.get(id)
}

// memory returns the memory for the given node, making it with mk if
// necessary.
func (wm *WorkingMemory) memory(id int, mk func() interface{}) interface{} {
	if len(wm.memories) <= id {
		ms := make([]interface{}, id+1, 2*(id+1))
		copy(ms, wm.memories)
		wm.memories = ms
	}
	m := wm.memories[id]
	if m == nil {
		m = mk()
		wm.memories[id] = m
	}
	return m
}

// factList is an insertion-ordered set of facts keyed by fact id.
type factList struct {
	facts []*Fact
	index map[int64]int
}

func newFactList() *factList {
	return &factList{
		index: make(map[int64]int),
	}
}

func (l *factList) add(f *Fact) bool {
	if _, have := l.index[f.Id]; have {
		return false
	}
	l.index[f.Id] = len(l.facts)
	l.facts = append(l.facts, f)
	return true
}

func (l *factList) get(id int64) *Fact {
	i, have := l.index[id]
	if !have {
		return nil
	}
	return l.facts[i]
}

func (l *factList) contains(id int64) bool {
	_, have := l.index[id]
	return have
}

func (l *factList) remove(id int64) *Fact {
	i, have := l.index[id]
	if !have {
		return nil
	}
	f := l.facts[i]
	copy(l.facts[i:], l.facts[i+1:])
	l.facts[len(l.facts)-1] = nil
	l.facts = l.facts[:len(l.facts)-1]
	delete(l.index, id)
	for j := i; j < len(l.facts); j++ {
		l.index[l.facts[j].Id] = j
	}
	return f
}

// all returns a snapshot.
func (l *factList) all() []*Fact {
	acc := make([]*Fact, len(l.facts))
	copy(acc, l.facts)
	return acc
}

func (l *factList) size() int {
	return len(l.facts)
}
