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

// Action is what a rule does when it fires.
type Action interface {
	Execute(ctx *ActionContext) error
}

// ActionFunc makes a Go function an Action.
type ActionFunc func(ctx *ActionContext) error

func (f ActionFunc) Execute(ctx *ActionContext) error {
	return f(ctx)
}

// RuleNode is the terminal node of a rule.
//
// It remembers the tuples that currently complete the rule and tells
// the session's Agenda (if any) about each change.
type RuleNode struct {
	node

	Name     string
	Priority int
	Action   Action

	Source TupleSource
}

func (n *RuleNode) mem(ctx *ExecutionContext) *tupleMemory {
	return ctx.wm.memory(n.id, func() interface{} {
		return newTupleMemory()
	}).(*tupleMemory)
}

// Matches returns the tuples that currently complete the rule.
func (n *RuleNode) Matches(ctx *ExecutionContext) []*Tuple {
	return n.mem(ctx).all()
}

func (n *RuleNode) AssertTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	mem := n.mem(ctx)
	for _, t := range tuples {
		if _, have := mem.index[t.Id]; have {
			n.tell(ctx, "reactivate", t)
			continue
		}
		mem.add(t)
		n.tell(ctx, "activate", t)
	}
	return nil
}

func (n *RuleNode) UpdateTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	mem := n.mem(ctx)
	for _, t := range tuples {
		if _, have := mem.index[t.Id]; !have {
			mem.add(t)
			n.tell(ctx, "activate", t)
			continue
		}
		n.tell(ctx, "reactivate", t)
	}
	return nil
}

func (n *RuleNode) RetractTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	mem := n.mem(ctx)
	for _, t := range tuples {
		if _, have := mem.index[t.Id]; !have {
			continue
		}
		mem.remove(t)
		n.tell(ctx, "deactivate", t)
	}
	return nil
}

func (n *RuleNode) tell(ctx *ExecutionContext, op string, t *Tuple) {
	g := ctx.wm.Agenda
	if g == nil {
		return
	}
	a := Activation{
		Rule:  n,
		Tuple: t,
	}
	switch op {
	case "activate":
		g.Activate(a)
	case "reactivate":
		g.Reactivate(a)
	case "deactivate":
		g.Deactivate(a)
	}
}
