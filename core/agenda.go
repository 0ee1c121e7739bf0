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
	"sort"
)

// Activation is a rule together with a tuple that completes it.
type Activation struct {
	Rule  *RuleNode
	Tuple *Tuple
}

// Objects returns the objects of the activation's facts.
func (a Activation) Objects() []interface{} {
	return a.Tuple.Objects()
}

// Agenda receives activations from RuleNodes.
//
// RuleNodes only call Activate, Reactivate, and Deactivate.  Pop and
// Len are for whatever fires rules (see Session.Fire).
type Agenda interface {
	Activate(a Activation)
	Reactivate(a Activation)
	Deactivate(a Activation)

	// Pop removes and returns the next activation to fire.
	Pop() (Activation, bool)

	// Len is the number of pending activations.
	Len() int
}

type agendaKey struct {
	rule  int
	tuple int64
}

func keyOfActivation(a Activation) agendaKey {
	return agendaKey{a.Rule.id, a.Tuple.Id}
}

// PriorityAgenda fires higher priority rules first and, within a
// priority, activations in the order they were (re)activated.
type PriorityAgenda struct {
	pending []Activation
	index   map[agendaKey]bool
}

func NewPriorityAgenda() *PriorityAgenda {
	return &PriorityAgenda{
		index: make(map[agendaKey]bool),
	}
}

func (g *PriorityAgenda) remove(k agendaKey) {
	if !g.index[k] {
		return
	}
	delete(g.index, k)
	for i, a := range g.pending {
		if keyOfActivation(a) == k {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			return
		}
	}
}

func (g *PriorityAgenda) Activate(a Activation) {
	k := keyOfActivation(a)
	g.remove(k)
	g.index[k] = true
	g.pending = append(g.pending, a)
	sort.SliceStable(g.pending, func(i, j int) bool {
		return g.pending[j].Rule.Priority < g.pending[i].Rule.Priority
	})
}

// Reactivate puts the activation back at the end of its priority.
func (g *PriorityAgenda) Reactivate(a Activation) {
	g.Activate(a)
}

func (g *PriorityAgenda) Deactivate(a Activation) {
	g.remove(keyOfActivation(a))
}

func (g *PriorityAgenda) Pop() (Activation, bool) {
	if len(g.pending) == 0 {
		return Activation{}, false
	}
	a := g.pending[0]
	g.pending = g.pending[1:]
	delete(g.index, keyOfActivation(a))
	return a, true
}

// Len returns the number of pending activations.
func (g *PriorityAgenda) Len() int {
	return len(g.pending)
}

// Pending returns the pending activations in firing order.
func (g *PriorityAgenda) Pending() []Activation {
	acc := make([]Activation, len(g.pending))
	copy(acc, g.pending)
	return acc
}

// AgendaEvent is what a RecordingAgenda records.
type AgendaEvent struct {
	// Op is "activate", "reactivate", or "deactivate".
	Op         string
	Activation Activation
}

// RecordingAgenda remembers every call it gets and otherwise behaves
// like its embedded PriorityAgenda.
type RecordingAgenda struct {
	*PriorityAgenda
	Events []AgendaEvent
}

func NewRecordingAgenda() *RecordingAgenda {
	return &RecordingAgenda{
		PriorityAgenda: NewPriorityAgenda(),
	}
}

func (g *RecordingAgenda) Activate(a Activation) {
	g.Events = append(g.Events, AgendaEvent{"activate", a})
	g.PriorityAgenda.Activate(a)
}

func (g *RecordingAgenda) Reactivate(a Activation) {
	g.Events = append(g.Events, AgendaEvent{"reactivate", a})
	g.PriorityAgenda.Reactivate(a)
}

func (g *RecordingAgenda) Deactivate(a Activation) {
	g.Events = append(g.Events, AgendaEvent{"deactivate", a})
	g.PriorityAgenda.Deactivate(a)
}

// Ops returns just the Op of each event, which is handy in tests.
func (g *RecordingAgenda) Ops() []string {
	acc := make([]string, len(g.Events))
	for i, e := range g.Events {
		acc[i] = e.Op
	}
	return acc
}

// Reset forgets the recorded events.
func (g *RecordingAgenda) Reset() {
	g.Events = nil
}
