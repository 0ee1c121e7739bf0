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

// RootNode is the left input of the first binary node of every rule.
//
// It holds one empty tuple per session, which is asserted when the
// session starts.
type RootNode struct {
	node
	sinks []TupleSink
}

type rootMemory struct {
	tuple *Tuple
}

func (n *RootNode) mem(ctx *ExecutionContext) *rootMemory {
	return ctx.wm.memory(n.id, func() interface{} {
		return &rootMemory{}
	}).(*rootMemory)
}

// GetTuples returns the session's root tuple (once activated).
func (n *RootNode) GetTuples(ctx *ExecutionContext) []*Tuple {
	m := n.mem(ctx)
	if m.tuple == nil {
		return nil
	}
	return []*Tuple{m.tuple}
}

// AttachTuples implements TupleSource.
func (n *RootNode) AttachTuples(sink TupleSink) {
	n.wire(n, sink, "left")
	n.sinks = append(n.sinks, sink)
}

func (n *RootNode) activate(ctx *ExecutionContext) error {
	m := n.mem(ctx)
	if m.tuple != nil {
		return nil
	}
	m.tuple = NewRootTuple(ctx.wm.NextTupleId())
	ts := []*Tuple{m.tuple}
	for _, sink := range n.sinks {
		if err := sink.AssertTuples(ctx, ts); err != nil {
			return err
		}
	}
	return nil
}
