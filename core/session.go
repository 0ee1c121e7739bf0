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

	"github.com/Comcast/rete/util"
)

// DefaultLimit is the default Session.Limit.
var DefaultLimit = 1000

// Session is one working memory running against a Network.
//
// A Session is not safe for concurrent use.  Each operation
// propagates through the whole network before it returns.
type Session struct {
	Network *Network

	// Limit is the maximum number of rules a single Fire will
	// execute.  Zero means no limit.
	Limit int

	// Emit, if not nil, receives whatever actions emit.
	Emit func(rule string, x interface{})

	wm *WorkingMemory
}

func (s *Session) exec(ctx context.Context) *ExecutionContext {
	return NewExecutionContext(ctx, s.wm)
}

// WorkingMemory returns the session's working memory.
func (s *Session) WorkingMemory() *WorkingMemory {
	return s.wm
}

// Agenda returns the session's agenda (which can be nil).
func (s *Session) Agenda() Agenda {
	return s.wm.Agenda
}

// Insert adds an object to working memory and returns its new Fact.
//
// When propagation fails, the fact is still in working memory, and the
// returned error is usually an *EvaluationError.
func (s *Session) Insert(ctx context.Context, x interface{}) (*Fact, error) {
	fs, err := s.InsertAll(ctx, []interface{}{x})
	if len(fs) == 0 {
		return nil, err
	}
	return fs[0], err
}

// InsertAll adds objects to working memory as one batch.
func (s *Session) InsertAll(ctx context.Context, xs []interface{}) ([]*Fact, error) {
	fs := make([]*Fact, 0, len(xs))
	for _, x := range xs {
		f := NewFact(s.wm.NextFactId(), x)
		s.wm.facts.add(f)
		fs = append(fs, f)
	}
	util.Logf("rete.Session insert %d facts", len(fs))
	ec := s.exec(ctx)
	for _, a := range s.Network.alphas {
		if err := a.assert(ec, fs); err != nil {
			return fs, err
		}
	}
	return fs, nil
}

// Update replaces a fact's object.  The fact keeps its Id.
func (s *Session) Update(ctx context.Context, f *Fact, x interface{}) error {
	if f == nil {
		return UnknownFact
	}
	known := s.wm.facts.get(f.Id)
	if known == nil {
		return UnknownFact
	}
	known.Object = x
	util.Logf("rete.Session update %s", known)
	ec := s.exec(ctx)
	fs := []*Fact{known}
	for _, a := range s.Network.alphas {
		if err := a.update(ec, fs); err != nil {
			return err
		}
	}
	return nil
}

// Retract removes a fact from working memory.
func (s *Session) Retract(ctx context.Context, f *Fact) error {
	if f == nil {
		return UnknownFact
	}
	known := s.wm.facts.remove(f.Id)
	if known == nil {
		return UnknownFact
	}
	util.Logf("rete.Session retract %s", known)
	ec := s.exec(ctx)
	fs := []*Fact{known}
	for _, a := range s.Network.alphas {
		if err := a.retract(ec, fs); err != nil {
			return err
		}
	}
	return nil
}

// Facts returns the inserted facts in insertion order.
func (s *Session) Facts() []*Fact {
	return s.wm.Facts()
}

// Fact finds an inserted fact by id.
func (s *Session) Fact(id int64) *Fact {
	return s.wm.Fact(id)
}

// Query returns the tuples that currently complete the named rule.
//
// Returns nil for an unknown rule.
func (s *Session) Query(rule string) []*Tuple {
	r := s.Network.Rule(rule)
	if r == nil {
		return nil
	}
	return r.Matches(s.exec(context.Background()))
}

// Fire pops activations from the session's agenda and executes their
// actions until the agenda is empty.  Returns the number of actions
// executed.
//
// Actions can change working memory (see ActionContext), which can
// add activations along the way.
//
// When Limit actions have been executed and activations remain, Fire
// returns TooManyFirings and leaves those activations on the agenda.
func (s *Session) Fire(ctx context.Context) (int, error) {
	g := s.wm.Agenda
	if g == nil {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	fired := 0
	for {
		if err := ctx.Err(); err != nil {
			return fired, err
		}
		if 0 < s.Limit && s.Limit <= fired && 0 < g.Len() {
			return fired, TooManyFirings
		}
		a, ok := g.Pop()
		if !ok {
			return fired, nil
		}
		fired++
		if a.Rule.Action == nil {
			continue
		}
		util.Logf("rete.Session fire %s %s", a.Rule.Name, a.Tuple)
		ac := &ActionContext{
			Activation: a,
			ctx:        ctx,
			s:          s,
		}
		if err := a.Rule.Action.Execute(ac); err != nil {
			return fired, &ActionError{
				Rule: a.Rule.Name,
				Err:  err,
			}
		}
	}
}

// ActionContext is what an Action gets.
type ActionContext struct {
	Activation

	ctx context.Context
	s   *Session
}

// Context returns the context given to Fire.
func (c *ActionContext) Context() context.Context {
	return c.ctx
}

// Session returns the session that's firing.
func (c *ActionContext) Session() *Session {
	return c.s
}

// Insert adds a derived object to working memory.
func (c *ActionContext) Insert(x interface{}) (*Fact, error) {
	return c.s.Insert(c.ctx, x)
}

// Update replaces a fact's object.
func (c *ActionContext) Update(f *Fact, x interface{}) error {
	return c.s.Update(c.ctx, f, x)
}

// Retract removes a fact from working memory.
func (c *ActionContext) Retract(f *Fact) error {
	return c.s.Retract(c.ctx, f)
}

// Emit hands x to the session's Emit function, if any.
func (c *ActionContext) Emit(x interface{}) {
	if c.s.Emit != nil {
		c.s.Emit(c.Rule.Name, x)
	}
}
