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

// AggregateNode maintains, for each left tuple, an Aggregator over the
// right facts that join with that tuple.  The aggregator's results
// become derived facts, which are paired with the tuple and sent to the
// sink.
//
// A fact contributes when the node's conditions hold for it.
type AggregateNode struct {
	BinaryBetaNode
	factory AggregatorFactory
}

// Factory returns the node's AggregatorFactory.
func (n *AggregateNode) Factory() AggregatorFactory {
	return n.factory
}

// aggregation is the state for one tuple.
//
// results are the derived facts in the order they were added, and
// keys finds them by the ResultKeys the aggregator gave them.
type aggregation struct {
	agg     Aggregator
	sources *factList
	results []*Fact
	keys    map[ResultKey]*Fact
}

func (a *aggregation) drop(f *Fact) {
	for i, g := range a.results {
		if g == f {
			a.results = append(a.results[:i], a.results[i+1:]...)
			return
		}
	}
}

type aggregateMemory struct {
	states map[int64]*aggregation
}

func (n *AggregateNode) mem(ctx *ExecutionContext) *aggregateMemory {
	return ctx.wm.memory(n.id, func() interface{} {
		return &aggregateMemory{
			states: make(map[int64]*aggregation),
		}
	}).(*aggregateMemory)
}

// change is one pending derived-fact change.
type change struct {
	action AggregationAction
	tuple  *Tuple
	fact   *Fact
}

type changes []change

// flush sends the changes to the sink in order, batching runs of the
// same action.
func (cs changes) flush(ctx *ExecutionContext, sink PairSink) error {
	if sink == nil {
		return nil
	}
	for i := 0; i < len(cs); {
		var (
			action = cs[i].action
			batch  = &TupleFactList{}
		)
		for ; i < len(cs) && cs[i].action == action; i++ {
			batch.Add(cs[i].tuple, cs[i].fact)
		}
		var err error
		switch action {
		case Added:
			err = sink.AssertPairs(ctx, batch)
		case Modified:
			err = sink.UpdatePairs(ctx, batch)
		case Removed:
			err = sink.RetractPairs(ctx, batch)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *AggregateNode) matching(ctx *ExecutionContext, t *Tuple, facts []*Fact) ([]*Fact, []*Fact, error) {
	var yes, no []*Fact
	for _, f := range facts {
		ok, err := n.MatchesConditions(ctx, t, f)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			yes = append(yes, f)
		} else {
			no = append(no, f)
		}
	}
	return yes, no, nil
}

func (n *AggregateNode) selectorError(err error) error {
	if _, is := err.(*EvaluationError); is {
		return err
	}
	return &EvaluationError{
		Node: n.self,
		What: "aggregate " + n.factory.Name(),
		Err:  err,
	}
}

// apply turns aggregation results into pending changes.
func (n *AggregateNode) apply(ctx *ExecutionContext, st *aggregation, t *Tuple, rs []AggregationResult, cs changes) changes {
	for _, r := range rs {
		switch r.Action {
		case Added:
			if _, have := st.keys[r.Key]; have {
				violation(n, "aggregator added a result twice")
			}
			f := NewFact(ctx.wm.NextFactId(), r.Item)
			st.results = append(st.results, f)
			st.keys[r.Key] = f
			cs = append(cs, change{Added, t, f})
		case Modified:
			f, have := st.keys[r.Key]
			if !have {
				violation(n, "aggregator modified an unknown result")
			}
			f.Object = r.Item
			cs = append(cs, change{Modified, t, f})
		case Removed:
			f, have := st.keys[r.Key]
			if !have {
				violation(n, "aggregator removed an unknown result")
			}
			delete(st.keys, r.Key)
			st.drop(f)
			cs = append(cs, change{Removed, t, f})
		default:
			violation(n, "unknown aggregation action "+r.Action.String())
		}
	}
	return cs
}

func (n *AggregateNode) add(ctx *ExecutionContext, st *aggregation, t *Tuple, facts []*Fact, cs changes) (changes, error) {
	rs, err := st.agg.Add(ctx, t, facts)
	if err != nil {
		return cs, n.selectorError(err)
	}
	for _, f := range facts {
		st.sources.add(f)
	}
	return n.apply(ctx, st, t, rs, cs), nil
}

func (n *AggregateNode) modify(ctx *ExecutionContext, st *aggregation, t *Tuple, facts []*Fact, cs changes) (changes, error) {
	if len(facts) == 0 {
		return cs, nil
	}
	rs, err := st.agg.Modify(ctx, t, facts)
	if err != nil {
		return cs, n.selectorError(err)
	}
	return n.apply(ctx, st, t, rs, cs), nil
}

func (n *AggregateNode) remove(ctx *ExecutionContext, st *aggregation, t *Tuple, facts []*Fact, cs changes) (changes, error) {
	if len(facts) == 0 {
		return cs, nil
	}
	rs, err := st.agg.Remove(ctx, t, facts)
	if err != nil {
		return cs, n.selectorError(err)
	}
	for _, f := range facts {
		st.sources.remove(f.Id)
	}
	return n.apply(ctx, st, t, rs, cs), nil
}

// start makes the state for a new tuple and adds the matching facts.
//
// The aggregator always sees an Add, even with no facts, so that
// aggregates like counts can report their initial value.
func (n *AggregateNode) start(ctx *ExecutionContext, set TupleFactSet, cs changes) (changes, error) {
	yes, _, err := n.matching(ctx, set.Tuple, set.Facts)
	if err != nil {
		return cs, err
	}
	st := &aggregation{
		agg:     n.factory.Create(),
		sources: newFactList(),
		keys:    make(map[ResultKey]*Fact),
	}
	n.mem(ctx).states[set.Tuple.Id] = st
	return n.add(ctx, st, set.Tuple, yes, cs)
}

// sort splits candidate facts into those to add, modify, and remove
// for the given state.
func (n *AggregateNode) sort(ctx *ExecutionContext, st *aggregation, t *Tuple, facts []*Fact) (toAdd, toModify, toRemove []*Fact, err error) {
	yes, no, err := n.matching(ctx, t, facts)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, f := range yes {
		if st.sources.contains(f.Id) {
			toModify = append(toModify, f)
		} else {
			toAdd = append(toAdd, f)
		}
	}
	for _, f := range no {
		if st.sources.contains(f.Id) {
			toRemove = append(toRemove, f)
		}
	}
	return
}

func (n *AggregateNode) reevaluate(ctx *ExecutionContext, st *aggregation, t *Tuple, facts []*Fact, cs changes) (changes, error) {
	toAdd, toModify, toRemove, err := n.sort(ctx, st, t, facts)
	if err != nil {
		return cs, err
	}
	if cs, err = n.remove(ctx, st, t, toRemove, cs); err != nil {
		return cs, err
	}
	if cs, err = n.modify(ctx, st, t, toModify, cs); err != nil {
		return cs, err
	}
	if 0 < len(toAdd) {
		return n.add(ctx, st, t, toAdd, cs)
	}
	return cs, nil
}

// AssertTuples starts an aggregation for each new tuple.
func (n *AggregateNode) AssertTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	sets, err := n.JoinedSets(ctx, tuples)
	if err != nil {
		return err
	}
	var (
		mem = n.mem(ctx)
		cs  changes
	)
	for _, set := range sets {
		if st, have := mem.states[set.Tuple.Id]; have {
			cs, err = n.reevaluate(ctx, st, set.Tuple, set.Facts, cs)
		} else {
			cs, err = n.start(ctx, set, cs)
		}
		if err != nil {
			return err
		}
	}
	return cs.flush(ctx, n.sink)
}

// UpdateTuples recomputes each tuple's aggregation, since selectors
// and conditions can depend on the tuple.
func (n *AggregateNode) UpdateTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	return n.AssertTuples(ctx, tuples)
}

// RetractTuples retracts all derived facts of each tuple and forgets
// its aggregation.
func (n *AggregateNode) RetractTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	var (
		mem = n.mem(ctx)
		cs  changes
	)
	for _, t := range tuples {
		st, have := mem.states[t.Id]
		if !have {
			continue
		}
		delete(mem.states, t.Id)
		for _, f := range st.results {
			cs = append(cs, change{Removed, t, f})
		}
	}
	return cs.flush(ctx, n.sink)
}

// AssertFacts adds new matching facts to the aggregations of the
// tuples they join with.
//
// A tuple without an aggregation hasn't been asserted here yet.  Its
// aggregation will see these facts when it is.
func (n *AggregateNode) AssertFacts(ctx *ExecutionContext, facts []*Fact) error {
	return n.UpdateFacts(ctx, facts)
}

// UpdateFacts re-evaluates the given facts for each tuple's
// aggregation.
func (n *AggregateNode) UpdateFacts(ctx *ExecutionContext, facts []*Fact) error {
	sets, err := n.JoinedSetsForFacts(ctx, facts)
	if err != nil {
		return err
	}
	var (
		mem = n.mem(ctx)
		cs  changes
	)
	for _, set := range sets {
		st, have := mem.states[set.Tuple.Id]
		if !have {
			continue
		}
		if cs, err = n.reevaluate(ctx, st, set.Tuple, set.Facts, cs); err != nil {
			return err
		}
	}
	return cs.flush(ctx, n.sink)
}

// RetractFacts removes the given facts from the aggregations they
// contributed to.
func (n *AggregateNode) RetractFacts(ctx *ExecutionContext, facts []*Fact) error {
	sets, err := n.JoinedSetsForFacts(ctx, facts)
	if err != nil {
		return err
	}
	var (
		mem = n.mem(ctx)
		cs  changes
	)
	for _, set := range sets {
		st, have := mem.states[set.Tuple.Id]
		if !have {
			continue
		}
		var gone []*Fact
		for _, f := range set.Facts {
			if st.sources.contains(f.Id) {
				gone = append(gone, f)
			}
		}
		if cs, err = n.remove(ctx, st, set.Tuple, gone, cs); err != nil {
			return err
		}
	}
	return cs.flush(ctx, n.sink)
}
