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

// AlphaNode filters single facts with AlphaConditions and remembers
// the facts that pass.
//
// This node is a minimal discrimination layer.  It's an ObjectSource
// for binary nodes.
type AlphaNode struct {
	node
	conds []AlphaCondition
	sinks []ObjectSink
}

func (n *AlphaNode) mem(ctx *ExecutionContext) *factList {
	return ctx.wm.memory(n.id, func() interface{} {
		return newFactList()
	}).(*factList)
}

// GetFacts returns the facts that have passed this node.
func (n *AlphaNode) GetFacts(ctx *ExecutionContext) []*Fact {
	return n.mem(ctx).all()
}

// Attach implements ObjectSource.
func (n *AlphaNode) Attach(sink ObjectSink) {
	n.wire(n, sink, "right")
	n.sinks = append(n.sinks, sink)
}

func (n *AlphaNode) accepts(ctx *ExecutionContext, f *Fact) (bool, error) {
	for _, c := range n.conds {
		ok, err := c(ctx.ctx, f.Object)
		if err != nil {
			return false, &EvaluationError{
				Node: n,
				What: "alpha condition",
				Err:  err,
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (n *AlphaNode) assert(ctx *ExecutionContext, facts []*Fact) error {
	var (
		mem = n.mem(ctx)
		acc = make([]*Fact, 0, len(facts))
	)
	for _, f := range facts {
		ok, err := n.accepts(ctx, f)
		if err != nil {
			return err
		}
		if ok && mem.add(f) {
			acc = append(acc, f)
		}
	}
	if len(acc) == 0 {
		return nil
	}
	for _, sink := range n.sinks {
		if err := sink.AssertFacts(ctx, acc); err != nil {
			return err
		}
	}
	return nil
}

// update sorts the given facts into updates, new arrivals, and
// departures based on whether they passed before and pass now.
func (n *AlphaNode) update(ctx *ExecutionContext, facts []*Fact) error {
	var (
		mem                           = n.mem(ctx)
		toAssert, toUpdate, toRetract []*Fact
	)
	for _, f := range facts {
		ok, err := n.accepts(ctx, f)
		if err != nil {
			return err
		}
		had := mem.contains(f.Id)
		switch {
		case ok && had:
			toUpdate = append(toUpdate, f)
		case ok:
			mem.add(f)
			toAssert = append(toAssert, f)
		case had:
			mem.remove(f.Id)
			toRetract = append(toRetract, f)
		}
	}
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

func (n *AlphaNode) retract(ctx *ExecutionContext, facts []*Fact) error {
	var (
		mem = n.mem(ctx)
		acc = make([]*Fact, 0, len(facts))
	)
	for _, f := range facts {
		if mem.remove(f.Id) != nil {
			acc = append(acc, f)
		}
	}
	if len(acc) == 0 {
		return nil
	}
	for _, sink := range n.sinks {
		if err := sink.RetractFacts(ctx, acc); err != nil {
			return err
		}
	}
	return nil
}
