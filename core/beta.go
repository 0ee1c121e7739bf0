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
)

// BinaryBetaNode has the matching machinery that every binary node
// uses: the left and right inputs, the ordered conditions, and the
// joined-set computation with wrapper-fact grouping.
//
// Join types embed a BinaryBetaNode and decide how joined sets turn
// into propagation.
type BinaryBetaNode struct {
	node

	LeftSource  TupleSource
	RightSource ObjectSource

	conditions []BetaCondition
	sink       PairSink

	// self is the embedding node, which is what gets attached to
	// the sources and reported in errors.
	self Node
}

// binarySink is what a binary node must be to be attached to its
// inputs.
type binarySink interface {
	TupleSink
	ObjectSink
}

// attach wires self to both inputs.  This happens exactly once, when
// the node is made.
func (n *BinaryBetaNode) attach(self binarySink, left TupleSource, right ObjectSource) {
	n.self = self
	n.LeftSource = left
	n.RightSource = right
	left.AttachTuples(self)
	right.Attach(self)
}

// AddCondition appends a condition.  Conditions are evaluated in the
// order they were added.
//
// Can only be called before the network is built.
func (n *BinaryBetaNode) AddCondition(c BetaCondition) {
	n.building(n.self)
	n.conditions = append(n.conditions, c)
}

// Conditions returns the node's conditions in evaluation order.
func (n *BinaryBetaNode) Conditions() []BetaCondition {
	acc := make([]BetaCondition, len(n.conditions))
	copy(acc, n.conditions)
	return acc
}

// AttachPairs sets the node's only PairSink.
func (n *BinaryBetaNode) AttachPairs(sink PairSink) {
	if n.sink != nil {
		violation(n.self, "binary node already has a sink")
	}
	n.wire(n.self, sink, "")
	n.sink = sink
}

// MatchesConditions reports whether all conditions hold for the pair.
//
// Evaluation stops at the first condition that does not hold or that
// fails.
func (n *BinaryBetaNode) MatchesConditions(ctx *ExecutionContext, t *Tuple, f *Fact) (bool, error) {
	for i, c := range n.conditions {
		ok, err := c.IsSatisfiedBy(ctx, t, f)
		if err != nil {
			return false, &EvaluationError{
				Node: n.self,
				What: "condition " + strconv.Itoa(i),
				Err:  err,
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// JoinedSet pairs the given tuple with the right input's current
// facts.
func (n *BinaryBetaNode) JoinedSet(ctx *ExecutionContext, t *Tuple) (TupleFactSet, error) {
	facts := n.RightSource.GetFacts(ctx)
	if 0 < len(facts) {
		groups, err := n.groupFacts(facts, t.Level)
		if err != nil {
			return TupleFactSet{}, err
		}
		if 0 < len(groups) {
			return joinByGroupId(t, groups), nil
		}
	}
	return TupleFactSet{
		Tuple: t,
		Facts: facts,
	}, nil
}

// JoinedSets pairs each of the given tuples with the right input's
// current facts.
func (n *BinaryBetaNode) JoinedSets(ctx *ExecutionContext, tuples []*Tuple) ([]TupleFactSet, error) {
	if len(tuples) == 0 {
		return nil, nil
	}
	return n.join(tuples, n.RightSource.GetFacts(ctx))
}

// JoinedSetsForFacts pairs each of the left input's current tuples
// with the given facts.
func (n *BinaryBetaNode) JoinedSetsForFacts(ctx *ExecutionContext, facts []*Fact) ([]TupleFactSet, error) {
	tuples := n.LeftSource.GetTuples(ctx)
	if len(tuples) == 0 {
		return nil, nil
	}
	return n.join(tuples, facts)
}

// join does the work for JoinedSets and JoinedSetsForFacts.
//
// If the facts are wrapper facts, each tuple gets only the facts whose
// wrapped tuples descend from it.  Otherwise every tuple gets every
// fact.  Grouping is decided by the first fact alone.
func (n *BinaryBetaNode) join(tuples []*Tuple, facts []*Fact) ([]TupleFactSet, error) {
	if 0 < len(facts) {
		groups, err := n.groupFacts(facts, tuples[0].Level)
		if err != nil {
			return nil, err
		}
		if 0 < len(groups) {
			sets := make([]TupleFactSet, 0, len(tuples))
			for _, t := range tuples {
				sets = append(sets, joinByGroupId(t, groups))
			}
			return sets, nil
		}
	}
	return crossJoin(tuples, facts), nil
}

func joinByGroupId(t *Tuple, groups map[int64][]*Fact) TupleFactSet {
	facts, have := groups[t.Id]
	if !have {
		facts = []*Fact{}
	}
	return TupleFactSet{
		Tuple: t,
		Facts: facts,
	}
}

func crossJoin(tuples []*Tuple, facts []*Fact) []TupleFactSet {
	sets := make([]TupleFactSet, 0, len(tuples))
	for _, t := range tuples {
		sets = append(sets, TupleFactSet{
			Tuple: t,
			Facts: facts,
		})
	}
	return sets
}

// groupFacts groups wrapper facts by the id of their wrapped tuple's
// ancestor at the given level.
//
// Returns nil (no grouping) unless the first fact is a wrapper fact.
func (n *BinaryBetaNode) groupFacts(facts []*Fact, level int) (map[int64][]*Fact, error) {
	if len(facts) == 0 || !facts[0].IsWrapperFact() {
		return nil, nil
	}

	// Could group tuples by group id too and only walk to each
	// ancestor once per group.

	groups := make(map[int64][]*Fact)
	for i, f := range facts {
		if !f.IsWrapperFact() {
			return nil, &MixedFactsError{
				Node:  n.self,
				Index: i,
			}
		}
		id := f.WrappedTuple().GroupId(level)
		groups[id] = append(groups[id], f)
	}
	return groups, nil
}
