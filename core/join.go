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

// JoinNode is the AND join: a (tuple, fact) pair reaches the sink
// when all of the node's conditions hold for it.
type JoinNode struct {
	BinaryBetaNode
}

// AssertTuples joins new tuples with the current facts.
func (n *JoinNode) AssertTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	sets, err := n.JoinedSets(ctx, tuples)
	if err != nil {
		return err
	}
	toAssert := &TupleFactList{}
	for _, set := range sets {
		for _, f := range set.Facts {
			ok, err := n.MatchesConditions(ctx, set.Tuple, f)
			if err != nil {
				return err
			}
			if ok {
				toAssert.Add(set.Tuple, f)
			}
		}
	}
	return n.emit(ctx, nil, nil, toAssert)
}

// UpdateTuples re-evaluates updated tuples against the current facts.
//
// Pairs that still match are updated (or asserted by the memory if
// they are new), and pairs that no longer match are retracted.
func (n *JoinNode) UpdateTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	sets, err := n.JoinedSets(ctx, tuples)
	if err != nil {
		return err
	}
	return n.reevaluate(ctx, sets)
}

// RetractTuples retracts every pair the tuples could have made.
func (n *JoinNode) RetractTuples(ctx *ExecutionContext, tuples []*Tuple) error {
	sets, err := n.JoinedSets(ctx, tuples)
	if err != nil {
		return err
	}
	return n.emit(ctx, all(sets), nil, nil)
}

// AssertFacts joins new facts with the current tuples.
func (n *JoinNode) AssertFacts(ctx *ExecutionContext, facts []*Fact) error {
	sets, err := n.JoinedSetsForFacts(ctx, facts)
	if err != nil {
		return err
	}
	toAssert := &TupleFactList{}
	for _, set := range sets {
		for _, f := range set.Facts {
			ok, err := n.MatchesConditions(ctx, set.Tuple, f)
			if err != nil {
				return err
			}
			if ok {
				toAssert.Add(set.Tuple, f)
			}
		}
	}
	return n.emit(ctx, nil, nil, toAssert)
}

// UpdateFacts re-evaluates updated facts against the current tuples.
func (n *JoinNode) UpdateFacts(ctx *ExecutionContext, facts []*Fact) error {
	sets, err := n.JoinedSetsForFacts(ctx, facts)
	if err != nil {
		return err
	}
	return n.reevaluate(ctx, sets)
}

// RetractFacts retracts every pair the facts could have made.
func (n *JoinNode) RetractFacts(ctx *ExecutionContext, facts []*Fact) error {
	sets, err := n.JoinedSetsForFacts(ctx, facts)
	if err != nil {
		return err
	}
	return n.emit(ctx, all(sets), nil, nil)
}

func (n *JoinNode) reevaluate(ctx *ExecutionContext, sets []TupleFactSet) error {
	var (
		toUpdate  = &TupleFactList{}
		toRetract = &TupleFactList{}
	)
	for _, set := range sets {
		for _, f := range set.Facts {
			ok, err := n.MatchesConditions(ctx, set.Tuple, f)
			if err != nil {
				return err
			}
			if ok {
				toUpdate.Add(set.Tuple, f)
			} else {
				toRetract.Add(set.Tuple, f)
			}
		}
	}
	return n.emit(ctx, toRetract, toUpdate, nil)
}

func (n *JoinNode) emit(ctx *ExecutionContext, toRetract, toUpdate, toAssert *TupleFactList) error {
	if n.sink == nil {
		return nil
	}
	if 0 < toRetract.Count() {
		if err := n.sink.RetractPairs(ctx, toRetract); err != nil {
			return err
		}
	}
	if 0 < toUpdate.Count() {
		if err := n.sink.UpdatePairs(ctx, toUpdate); err != nil {
			return err
		}
	}
	if 0 < toAssert.Count() {
		if err := n.sink.AssertPairs(ctx, toAssert); err != nil {
			return err
		}
	}
	return nil
}

// all returns every pair in the given sets.
func all(sets []TupleFactSet) *TupleFactList {
	acc := &TupleFactList{}
	for _, set := range sets {
		for _, f := range set.Facts {
			acc.Add(set.Tuple, f)
		}
	}
	return acc
}
