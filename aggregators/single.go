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

	"github.com/Comcast/rete/core"
)

// reducer computes a single result from a ledger.
type reducer func(l *ledger) interface{}

// single is an aggregator with exactly one result, which exists from
// the first Add on (even when no facts contribute).
type single struct {
	sel    core.Selector
	reduce reducer
	check  func(x interface{}) error

	ledger  *ledger
	current interface{}
	started bool
}

func (a *single) selectAll(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]interface{}, error) {
	acc := make([]interface{}, len(facts))
	for i, f := range facts {
		var (
			x   interface{}
			err error
		)
		if a.sel == nil {
			x = f.Object
		} else if x, err = a.sel.Invoke(ctx, t, f); err != nil {
			return nil, err
		}
		if a.check != nil {
			if err = a.check(x); err != nil {
				return nil, err
			}
		}
		acc[i] = x
	}
	return acc, nil
}

// result reports how the single result changed.
func (a *single) result() []core.AggregationResult {
	x := a.reduce(a.ledger)
	if !a.started {
		a.started = true
		a.current = x
		return []core.AggregationResult{core.AddedResult(core.ResultKey{}, x)}
	}
	prev := a.current
	a.current = x
	return []core.AggregationResult{core.ModifiedResult(core.ResultKey{}, prev, x)}
}

func (a *single) Add(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]core.AggregationResult, error) {
	a.ledger.check(facts, false, "added twice")
	xs, err := a.selectAll(ctx, t, facts)
	if err != nil {
		return nil, err
	}
	for i, f := range facts {
		a.ledger.add(f, xs[i])
	}
	if a.started && len(facts) == 0 {
		return nil, nil
	}
	return a.result(), nil
}

func (a *single) Modify(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]core.AggregationResult, error) {
	a.ledger.check(facts, true, "modified but never added")
	xs, err := a.selectAll(ctx, t, facts)
	if err != nil {
		return nil, err
	}
	for i, f := range facts {
		a.ledger.replace(f, xs[i])
	}
	if len(facts) == 0 {
		return nil, nil
	}
	return a.result(), nil
}

func (a *single) Remove(ctx *core.ExecutionContext, t *core.Tuple, facts []*core.Fact) ([]core.AggregationResult, error) {
	a.ledger.check(facts, true, "removed but never added")
	for _, f := range facts {
		a.ledger.remove(f)
	}
	if len(facts) == 0 {
		return nil, nil
	}
	return a.result(), nil
}

// NewCollection makes an aggregator whose result is the list of
// selected values in the order their facts were added.  A nil
// selector collects the facts' objects.
//
// An empty collection is still a result.
func NewCollection(sel core.Selector) core.Aggregator {
	return &single{
		sel:    sel,
		reduce: func(l *ledger) interface{} { return l.values() },
		ledger: newLedger(),
	}
}

// NewCount makes an aggregator whose result is the number of
// contributing facts.
func NewCount() core.Aggregator {
	return &single{
		reduce: func(l *ledger) interface{} { return l.size() },
		ledger: newLedger(),
	}
}

// NotANumber occurs when a sum's selector returns something that isn't
// a number.
type NotANumber struct {
	Value interface{}
}

func (e *NotANumber) Error() string {
	return fmt.Sprintf("selector returned %T, which is not a number", e.Value)
}

func number(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	}
	return 0, false
}

// NewSum makes an aggregator whose result is the float64 sum of the
// selected numbers.
func NewSum(sel core.Selector) core.Aggregator {
	return &single{
		sel: sel,
		reduce: func(l *ledger) interface{} {
			sum := 0.0
			for _, x := range l.values() {
				n, _ := number(x)
				sum += n
			}
			return sum
		},
		check: func(x interface{}) error {
			if _, ok := number(x); !ok {
				return &NotANumber{x}
			}
			return nil
		},
		ledger: newLedger(),
	}
}
