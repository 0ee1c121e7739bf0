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
	"strconv"

	"github.com/Comcast/rete/core"
)

func violation(problem string) {
	panic(&core.InvariantViolation{
		Problem: problem,
	})
}

// ledger is the per-fact bookkeeping shared by all aggregators.
//
// Facts are remembered in the order they were first added.
type ledger struct {
	order   []int64
	entries map[int64]interface{}
}

func newLedger() *ledger {
	return &ledger{
		entries: make(map[int64]interface{}),
	}
}

func (l *ledger) add(f *core.Fact, x interface{}) {
	if _, have := l.entries[f.Id]; have {
		violation("fact " + strconv.FormatInt(f.Id, 10) + " added twice")
	}
	l.entries[f.Id] = x
	l.order = append(l.order, f.Id)
}

// replace sets the entry for f and returns the old one.
func (l *ledger) replace(f *core.Fact, x interface{}) interface{} {
	old, have := l.entries[f.Id]
	if !have {
		violation("fact " + strconv.FormatInt(f.Id, 10) + " modified but never added")
	}
	l.entries[f.Id] = x
	return old
}

func (l *ledger) remove(f *core.Fact) interface{} {
	old, have := l.entries[f.Id]
	if !have {
		violation("fact " + strconv.FormatInt(f.Id, 10) + " removed but never added")
	}
	delete(l.entries, f.Id)
	for i, id := range l.order {
		if id == f.Id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return old
}

// values returns the entries in order.
func (l *ledger) values() []interface{} {
	acc := make([]interface{}, 0, len(l.order))
	for _, id := range l.order {
		acc = append(acc, l.entries[id])
	}
	return acc
}

func (l *ledger) size() int {
	return len(l.entries)
}

// check panics unless every fact has the expected membership.  It runs
// before any selector, so that a protocol fault is reported even when
// a selector would have failed.
func (l *ledger) check(facts []*core.Fact, want bool, problem string) {
	for _, f := range facts {
		if _, have := l.entries[f.Id]; have != want {
			violation("fact " + strconv.FormatInt(f.Id, 10) + " " + problem)
		}
	}
}
