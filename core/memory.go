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

// BetaMemoryNode turns (tuple, fact) pairs into child tuples and
// remembers them.
//
// It's the PairSink of exactly one binary node and a TupleSource for
// the next level.
type BetaMemoryNode struct {
	node
	sinks []TupleSink
}

type tupleKey struct {
	parent int64
	fact   int64
}

// tupleMemory is an insertion-ordered set of child tuples keyed by
// (parent, fact).
type tupleMemory struct {
	tuples   []*Tuple
	index    map[int64]int
	children map[tupleKey]*Tuple
}

func newTupleMemory() *tupleMemory {
	return &tupleMemory{
		index:    make(map[int64]int),
		children: make(map[tupleKey]*Tuple),
	}
}

func keyOf(parent *Tuple, f *Fact) tupleKey {
	k := tupleKey{
		fact: f.Id,
	}
	if parent != nil {
		k.parent = parent.Id
	}
	return k
}

func (m *tupleMemory) find(parent *Tuple, f *Fact) *Tuple {
	return m.children[keyOf(parent, f)]
}

func (m *tupleMemory) add(t *Tuple) {
	m.index[t.Id] = len(m.tuples)
	m.tuples = append(m.tuples, t)
	m.children[keyOf(t.Parent, t.RightFact)] = t
}

func (m *tupleMemory) remove(t *Tuple) {
	i, have := m.index[t.Id]
	if !have {
		return
	}
	copy(m.tuples[i:], m.tuples[i+1:])
	m.tuples[len(m.tuples)-1] = nil
	m.tuples = m.tuples[:len(m.tuples)-1]
	delete(m.index, t.Id)
	delete(m.children, keyOf(t.Parent, t.RightFact))
	for j := i; j < len(m.tuples); j++ {
		m.index[m.tuples[j].Id] = j
	}
}

func (m *tupleMemory) all() []*Tuple {
	acc := make([]*Tuple, len(m.tuples))
	copy(acc, m.tuples)
	return acc
}

func (n *BetaMemoryNode) mem(ctx *ExecutionContext) *tupleMemory {
	return ctx.wm.memory(n.id, func() interface{} {
		return newTupleMemory()
	}).(*tupleMemory)
}

// GetTuples implements TupleSource.
func (n *BetaMemoryNode) GetTuples(ctx *ExecutionContext) []*Tuple {
	return n.mem(ctx).all()
}

// AttachTuples implements TupleSource.
func (n *BetaMemoryNode) AttachTuples(sink TupleSink) {
	n.wire(n, sink, "left")
	n.sinks = append(n.sinks, sink)
}

// AssertPairs makes a child tuple for each pair.
//
// A pair that already has a child (which can happen after an
// operation failed part way) is forwarded as an update.
func (n *BetaMemoryNode) AssertPairs(ctx *ExecutionContext, pairs *TupleFactList) error {
	return n.upsert(ctx, pairs)
}

// UpdatePairs updates the child of each pair, making that child if it
// doesn't exist yet.
func (n *BetaMemoryNode) UpdatePairs(ctx *ExecutionContext, pairs *TupleFactList) error {
	return n.upsert(ctx, pairs)
}

func (n *BetaMemoryNode) upsert(ctx *ExecutionContext, pairs *TupleFactList) error {
	var (
		mem                = n.mem(ctx)
		toAssert, toUpdate []*Tuple
	)
	for i, parent := range pairs.Tuples {
		f := pairs.Facts[i]
		if t := mem.find(parent, f); t != nil {
			toUpdate = append(toUpdate, t)
			continue
		}
		t := NewTuple(ctx.wm.NextTupleId(), parent, f)
		mem.add(t)
		toAssert = append(toAssert, t)
	}
	return n.propagate(ctx, nil, toUpdate, toAssert)
}

// RetractPairs removes the child of each pair.  Pairs without a child
// are ignored.
func (n *BetaMemoryNode) RetractPairs(ctx *ExecutionContext, pairs *TupleFactList) error {
	var (
		mem = n.mem(ctx)
		acc []*Tuple
	)
	for i, parent := range pairs.Tuples {
		if t := mem.find(parent, pairs.Facts[i]); t != nil {
			mem.remove(t)
			acc = append(acc, t)
		}
	}
	return n.propagate(ctx, acc, nil, nil)
}

func (n *BetaMemoryNode) propagate(ctx *ExecutionContext, toRetract, toUpdate, toAssert []*Tuple) error {
	for _, sink := range n.sinks {
		if 0 < len(toRetract) {
			if err := sink.RetractTuples(ctx, toRetract); err != nil {
				return err
			}
		}
		if 0 < len(toUpdate) {
			if err := sink.UpdateTuples(ctx, toUpdate); err != nil {
				return err
			}
		}
		if 0 < len(toAssert) {
			if err := sink.AssertTuples(ctx, toAssert); err != nil {
				return err
			}
		}
	}
	return nil
}
