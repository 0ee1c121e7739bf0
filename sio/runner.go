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

package sio

import (
	"context"
	"log"
	"sort"
	"strconv"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/storage"
)

// Runner applies Ops to one session and persists the session's
// external facts.
//
// External facts are the ones that Ops insert.  Facts that rules
// insert aren't persisted, since rules derive them again.
//
// A Runner isn't safe for concurrent use.  Loop serializes Ops from
// Couplings.
type Runner struct {
	Network *core.Network
	Session *core.Session

	// Storage persists the external facts.  Never nil.
	Storage storage.Storage

	// SessionId is the key for the session in Storage.
	SessionId string

	// AutoFire fires rules after each insert, update, or
	// retraction.
	AutoFire bool

	// Verbose turns on logging.
	Verbose bool

	facts   map[string]*core.Fact
	seqs    map[string]int64
	seq     int64
	emitted []*Emission
}

// NewRunner makes a session for the network and restores the
// session's external facts from the given storage, which can be nil.
//
// Restored facts are inserted in their original order.  Rules aren't
// fired, and rules that fired before the facts were stored can fire
// again.
func NewRunner(ctx context.Context, net *core.Network, st storage.Storage, sid string) (*Runner, error) {
	if st == nil {
		st = &storage.NoopStorage{}
	}
	s, err := net.NewSession(ctx, core.NewPriorityAgenda())
	if err != nil {
		return nil, err
	}
	r := &Runner{
		Network:   net,
		Session:   s,
		Storage:   st,
		SessionId: sid,
		facts:     make(map[string]*core.Fact),
		seqs:      make(map[string]int64),
	}
	s.Emit = r.emit

	if err = st.MakeSession(ctx, sid); err != nil {
		return nil, err
	}
	fss, err := st.GetSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	for _, fs := range fss {
		f, err := s.Insert(ctx, fs.Object)
		if f != nil {
			r.facts[fs.Id] = f
			r.seqs[fs.Id] = fs.Seq
		}
		if err != nil {
			return nil, err
		}
		if r.seq < fs.Seq {
			r.seq = fs.Seq
		}
	}
	r.Logf("Runner restored %d facts for %s", len(fss), sid)

	return r, nil
}

// Logf logs if r.Verbose.
func (r *Runner) Logf(format string, args ...interface{}) {
	if !r.Verbose {
		return
	}
	log.Printf(format, args...)
}

func (r *Runner) emit(rule string, x interface{}) {
	r.emitted = append(r.emitted, &Emission{
		Rule:    rule,
		Message: x,
	})
}

// Fact returns the external fact with the given id or nil.
func (r *Runner) Fact(id string) *core.Fact {
	return r.facts[id]
}

func (r *Runner) newId() string {
	for {
		id := strconv.FormatInt(r.seq+1, 10)
		if _, have := r.facts[id]; !have {
			return id
		}
		r.seq++
	}
}

// ProcessMsg parses the message as an Op (see ParseOp) and processes
// it.
func (r *Runner) ProcessMsg(ctx context.Context, msg interface{}) (*Result, error) {
	op, err := ParseOp(msg)
	if err != nil {
		return &Result{
			Error: err.Error(),
		}, err
	}
	return r.Process(ctx, op)
}

// Process performs the Op and then writes the changes to external
// facts to Storage.
//
// The Result is never nil.  When there's an error, the Result's Error
// says what it was.
func (r *Runner) Process(ctx context.Context, op *Op) (*Result, error) {
	r.Logf("Runner.Process %s", JS(op))

	res := &Result{
		Op: op,
	}
	r.emitted = nil

	changed := make(map[string]*storage.FactState)
	err := r.process(ctx, op, res, changed)

	if err == nil && r.AutoFire {
		switch op.Op {
		case OpInsert, OpUpdate, OpRetract:
			res.Fired, err = r.Session.Fire(ctx)
		}
	}

	var except string
	if op.Op == OpRetract {
		except = op.Id
	}
	res.Retracted = r.sweep(changed, except)
	res.Emitted = r.emitted
	r.emitted = nil

	if werr := r.write(ctx, changed); werr != nil && err == nil {
		err = werr
	}

	if err != nil {
		res.Error = err.Error()
	}
	return res, err
}

func (r *Runner) process(ctx context.Context, op *Op, res *Result, changed map[string]*storage.FactState) error {
	switch op.Op {
	case OpInsert:
		id := op.Id
		if id == "" {
			id = r.newId()
		} else if _, have := r.facts[id]; have {
			return &DuplicateId{id}
		}
		res.Id = id
		r.seq++
		f, err := r.Session.Insert(ctx, op.Fact)
		if f != nil {
			r.facts[id] = f
			r.seqs[id] = r.seq
			changed[id] = &storage.FactState{
				Id:     id,
				Seq:    r.seq,
				Object: op.Fact,
			}
		}
		return err

	case OpUpdate:
		if op.Id == "" {
			return MissingId
		}
		f, have := r.facts[op.Id]
		if !have {
			return &UnknownId{op.Id}
		}
		res.Id = op.Id
		err := r.Session.Update(ctx, f, op.Fact)
		changed[op.Id] = &storage.FactState{
			Id:     op.Id,
			Seq:    r.seqs[op.Id],
			Object: f.Object,
		}
		return err

	case OpRetract:
		if op.Id == "" {
			return MissingId
		}
		f, have := r.facts[op.Id]
		if !have {
			return &UnknownId{op.Id}
		}
		res.Id = op.Id
		return r.Session.Retract(ctx, f)

	case OpFire:
		n, err := r.Session.Fire(ctx)
		res.Fired = n
		return err

	case OpQuery:
		if op.Rule == "" {
			return MissingRule
		}
		if r.Network.Rule(op.Rule) == nil {
			return &UnknownRule{op.Rule}
		}
		res.Matches = make([][]interface{}, 0, 8)
		for _, t := range r.Session.Query(op.Rule) {
			res.Matches = append(res.Matches, t.Objects())
		}
		return nil

	case OpFacts:
		res.Facts = make(map[string]interface{}, len(r.facts))
		for id, f := range r.facts {
			res.Facts[id] = f.Object
		}
		return nil

	default:
		return &UnknownOp{op.Op}
	}
}

// sweep forgets external facts that are no longer in working memory
// and returns their ids, other than except, in order.
func (r *Runner) sweep(changed map[string]*storage.FactState, except string) []string {
	var gone []string
	for id, f := range r.facts {
		if r.Session.Fact(f.Id) == nil {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool {
		return r.facts[gone[i]].Id < r.facts[gone[j]].Id
	})
	var acc []string
	for _, id := range gone {
		delete(r.facts, id)
		delete(r.seqs, id)
		changed[id] = &storage.FactState{
			Id:      id,
			Deleted: true,
		}
		if id != except {
			acc = append(acc, id)
		}
	}
	return acc
}

func (r *Runner) write(ctx context.Context, changed map[string]*storage.FactState) error {
	if len(changed) == 0 {
		return nil
	}
	fss := make([]*storage.FactState, 0, len(changed))
	for _, fs := range changed {
		fss = append(fss, fs)
	}
	return r.Storage.WriteState(ctx, r.SessionId, fss)
}

// Loop processes messages from in and sends Results to out until done
// is closed or the context is done.  Loop closes out when it returns.
func (r *Runner) Loop(ctx context.Context, in chan interface{}, out chan *Result, done chan bool) error {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case msg := <-in:
			res, err := r.ProcessMsg(ctx, msg)
			if err != nil {
				log.Printf("error processing %s: %s", JShort(msg), err)
			}
			select {
			case <-ctx.Done():
				return nil
			case out <- res:
			}
		}
	}
}
