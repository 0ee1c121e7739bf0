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
	"fmt"
)

// AggregationAction says how an aggregate's derived fact set changed.
type AggregationAction int

const (
	Added AggregationAction = iota
	Modified
	Removed
)

func (a AggregationAction) String() string {
	switch a {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ResultKey identifies one derived item of an Aggregator.
//
// An aggregator gives each item a key when the item is added, and it
// uses the same key when that item is modified or removed.  Items are
// never found by value, so items that aren't equal to themselves
// (like NaN) are fine.
type ResultKey struct {
	// Fact is the id of the contributing fact, or zero for an
	// aggregator with a single result.
	Fact int64

	// Index is the item's position among the fact's items.
	Index int
}

// AggregationResult is one change to an aggregate's derived facts.
//
// Previous is only used by Modified results.
type AggregationResult struct {
	Action   AggregationAction
	Key      ResultKey
	Item     interface{}
	Previous interface{}
}

// AddedResult makes an Added result.
func AddedResult(k ResultKey, x interface{}) AggregationResult {
	return AggregationResult{
		Action: Added,
		Key:    k,
		Item:   x,
	}
}

// ModifiedResult makes a Modified result.
func ModifiedResult(k ResultKey, previous, x interface{}) AggregationResult {
	return AggregationResult{
		Action:   Modified,
		Key:      k,
		Item:     x,
		Previous: previous,
	}
}

// RemovedResult makes a Removed result.
func RemovedResult(k ResultKey, x interface{}) AggregationResult {
	return AggregationResult{
		Action: Removed,
		Key:    k,
		Item:   x,
	}
}

func (r AggregationResult) String() string {
	if r.Action == Modified {
		return fmt.Sprintf("%s(%v,%v)", r.Action, r.Previous, r.Item)
	}
	return fmt.Sprintf("%s(%v)", r.Action, r.Item)
}

// Aggregator incrementally turns the facts contributing under one
// tuple into a set of derived items.
//
// Each contributing fact has at most one live entry.  Add must only
// be given facts without an entry, and Modify and Remove must only be
// given facts with one.  Violations panic with an
// *InvariantViolation.  Errors from selectors are returned.
//
// Every result carries the ResultKey of the item it's about.  A
// Modified or Removed result must use the key of a live item.
type Aggregator interface {
	Add(ctx *ExecutionContext, t *Tuple, facts []*Fact) ([]AggregationResult, error)
	Modify(ctx *ExecutionContext, t *Tuple, facts []*Fact) ([]AggregationResult, error)
	Remove(ctx *ExecutionContext, t *Tuple, facts []*Fact) ([]AggregationResult, error)
}

// AggregatorFactory makes a fresh Aggregator for one tuple.
type AggregatorFactory interface {
	// Name is something like "flatten" or "count".
	Name() string

	Create() Aggregator
}
