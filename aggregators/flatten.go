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

package aggregators

import (
	"fmt"
	"reflect"

	"github.com/Comcast/rete/core"
)

// NotAList occurs when a flattening selector returns something that
// isn't a slice or array.
type NotAList struct {
	Value interface{}
}

func (e *NotAList) Error() string {
	return fmt.Sprintf("selector returned %T, which is not a list", e.Value)
}

// Flattening emits one result for every item of the list its Selector
// returns for each fact.
type Flattening struct {
	Selector core.Selector

	ledger *ledger
}

func NewFlattening(sel core.Selector) *Flattening {
	return &Flattening{
		Selector: sel,
		ledger:   newLedger(),
	}
}

// items turns a selected value into a list.  Nil is the empty list.
func items(x interface{}) ([]interface{}, error) {
	switch vv := x.(type) {
	case nil:
		return []interface{}{}, nil
	case []interface{}:
		acc := make([]interface{}, len(vv))
		copy(acc, vv)
		return acc, nil
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		acc := make([]interface{}, v.Len())
		for i := range acc {
			acc[i] = v.Index(i).Interface()
		}
		return acc, nil
	}
	return nil, &NotAList{x}
}

func (a *Flattening) selectList(ctx *core.ExecutionContext, t *core.Tuple, f *core.Fact) ([]interface{}, error) {
	x, err := a.Selector.Invoke(ctx, t, f)
	if err != nil {
		return nil, err
	}
	return items(x)
}

// added reports each item of a fact's list.  An item's key is the
// fact's id and the item's position in the list.
func added(acc []core.AggregationResult, f *core.Fact, xs []interface{}) []core.AggregationResult {
	for i, x := range xs {
		acc = append(acc, core.AddedResult(core.ResultKey{Fact: f.Id, Index: i}, x))
	}
	return acc
}

func removed(acc []core.AggregationResult, f *core.Fact, xs []interface{}) []core.AggregationResult {
	for i, x := range xs {
		acc = append(acc, core.RemovedResult(core.ResultKey{Fact: f.Id, Index: i}, x))
	}
	return acc
}

// selectAll selects every fact's list before anything is changed, so
// that a failing selector leaves the aggregator as it was.
func (a *Flattening) selectAll(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([][]interface{}, error) {
	acc := make([][]interface{}, len(facts))
	for i, f := range facts {
		xs, err := a.selectList(ctx, t, f)
		if err != nil {
			return nil, err
		}
		acc[i] = xs
	}
	return acc, nil
}

func (a *Flattening) Add(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]core.AggregationResult, error) {
	a.ledger.check(facts, false, "added twice")
	lists, err := a.selectAll(ctx, t, facts)
	if err != nil {
		return nil, err
	}
	var acc []core.AggregationResult
	for i, f := range facts {
		a.ledger.add(f, lists[i])
		acc = added(acc, f, lists[i])
	}
	return acc, nil
}

func (a *Flattening) Modify(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]core.AggregationResult, error) {
	a.ledger.check(facts, true, "modified but never added")
	lists, err := a.selectAll(ctx, t, facts)
	if err != nil {
		return nil, err
	}
	var acc []core.AggregationResult
	for i, f := range facts {
		old := a.ledger.replace(f, lists[i]).([]interface{})
		acc = removed(acc, f, old)
		acc = added(acc, f, lists[i])
	}
	return acc, nil
}

func (a *Flattening) Remove(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]core.AggregationResult, error) {
	a.ledger.check(facts, true, "removed but never added")
	var acc []core.AggregationResult
	for _, f := range facts {
		old := a.ledger.remove(f).([]interface{})
		acc = removed(acc, f, old)
	}
	return acc, nil
}

// Size returns the number of facts with entries.
func (a *Flattening) Size() int {
	return a.ledger.size()
}

// Projection emits one result per fact: whatever its Selector returns.
type Projection struct {
	Flattening
}

func NewProjection(sel core.Selector) *Projection {
	one := core.SelectorFunc(func(ctx *core.ExecutionContext, t *core.Tuple, f *core.Fact) (interface{}, error) {
		x, err := sel.Invoke(ctx, t, f)
		if err != nil {
			return nil, err
		}
		return []interface{}{x}, nil
	})
	return &Projection{
		Flattening: *NewFlattening(one),
	}
}
