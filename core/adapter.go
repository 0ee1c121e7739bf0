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

// Adapter wraps the tuples of a nested subnetwork into wrapper facts,
// so the subnetwork can be the right input of a binary node in the
// parent network.
//
// The wrapper fact for a tuple keeps its id for the tuple's whole
// life.
type Adapter struct {
	node
	Source TupleSource
	sinks  []ObjectSink
}

// adapterMemory maps tuple ids to wrapper facts.
type adapterMemory struct {
	byTuple map[int64]*Fact
	facts   *factList
}

func (n *Adapter) mem(ctx *ExecutionContext) *adapterMemory {
	return ctx.wm.memory(n.id, func() interface{} {
		return &adapterMemory{
			byTuple: make(map[int64]*Fact),
			facts:   newFactList(),
		}
	}).(*adapterMemory)
}

// GetFacts returns the current wrapper facts in tuple arrival order.
func (n *Adapter) GetFacts(ctx *ExecutionContext) []*Fact {
	return n.mem(ctx).facts.all()
}

// Attach implements ObjectSource.
func (n *Adapter) Attach(sink ObjectSink) {
	n.wire(n, sink, "right")
	n.sinks = append(n.sinks, sink)
}

// AssertTuples wraps each new tuple.  Tuples that are already
// wrapped are forwarded as updates.
func (n *Adapter) AssertTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	var (
		mem                = n.mem(ctx)
		toAssert, toUpdate []*Fact
	)
	for _, t := range tuples {
		if f, have := mem.byTuple[t.Id]; have {
			toUpdate = append(toUpdate, f)
			continue
		}
		f := NewWrapperFact(ctx.wm.NextFactId(), t)
		mem.byTuple[t.Id] = f
		mem.facts.add(f)
		toAssert = append(toAssert, f)
	}
	return n.propagate(ctx, nil, toUpdate, toAssert)
}

// UpdateTuples forwards updates of wrapped tuples.  A tuple this
// adapter hasn't seen is wrapped and asserted.
func (n *Adapter) UpdateTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	return n.AssertTuples(ctx, tuples)
}

// RetractTuples forgets the wrapper facts of the given tuples.
func (n *Adapter) RetractTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	var (
		mem = n.mem(ctx)
		acc []*Fact
	)
	for _, t := range tuples {
		f, have := mem.byTuple[t.Id]
		if !have {
			continue
		}
		delete(mem.byTuple, t.Id)
		mem.facts.remove(f.Id)
		acc = append(acc, f)
	}
	return n.propagate(ctx, acc, nil, nil)
}

func (n *Adapter) propagate(ctx *ExecutionContext, toRetract, toUpdate, toAssert []*Fact) error {
	for _, sink := range n.sinks {
		if 0 < len(toRetract) {
			if err := sink.RetractFacts(ctx, toRetract); err != nil {
				return err
			}
		}
		if 0 < len(toUpdate) {
			if err := sink.UpdateFacts(ctx, toUpdate); err != nil {
				return err
			}
		}
		if 0 < len(toAssert) {
			if err := sink.AssertFacts(ctx, toAssert); err != nil {
				return err
			}
		}
	}
	return nil
}
