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
	"errors"
	"strconv"
)

var (
	// UnknownFact occurs when Update or Retract is given a fact
	// that isn't in the session's working memory.
	UnknownFact = errors.New("fact not in working memory")

	// NotBoolean occurs when a condition expression returns
	// something other than a bool.
	NotBoolean = errors.New("condition did not return a boolean")

	// AlreadyBuilt occurs when Build() is called twice.
	AlreadyBuilt = errors.New("network already built")

	// TooManyFirings occurs when Session.Fire reaches the
	// session's Limit.
	TooManyFirings = errors.New("too many rule firings")
)

func nodeString(n Node) string {
	if n == nil {
		return "node ?"
	}
	s := "node " + strconv.Itoa(n.ID()) + " (" + n.Kind()
	if l := n.Label(); l != "" {
		s += ` "` + l + `"`
	}
	return s + ")"
}

// EvaluationError occurs when a condition, alpha predicate, or
// aggregate selector fails while evaluating real fact data.
//
// These errors are user errors, not internal errors.  The operation
// that triggered the evaluation stops at Node, but the session can
// still be used.
type EvaluationError struct {
	Node Node

	// What says what was being evaluated ("condition 2",
	// "selector", "alpha").
	What string

	Err error
}

func (e *EvaluationError) Error() string {
	return e.What + " failed at " + nodeString(e.Node) + ": " + e.Err.Error()
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// MixedFactsError occurs when a right input produces a list that
// starts with a wrapper fact but later contains a plain fact.
type MixedFactsError struct {
	Node  Node
	Index int
}

func (e *MixedFactsError) Error() string {
	return "fact " + strconv.Itoa(e.Index) + " at " + nodeString(e.Node) +
		" is not a wrapper fact but the first fact is"
}

// SlotError occurs when a condition refers to a pattern position that
// isn't available in the tuple being evaluated.
type SlotError struct {
	Slot  int
	Level int
}

func (e *SlotError) Error() string {
	return "no fact at position " + strconv.Itoa(e.Slot) +
		" for a tuple at level " + strconv.Itoa(e.Level)
}

// InvariantViolation is the value of a panic that reports an internal
// (wiring or protocol) bug in a network.
//
// These panics are not data problems and should not be recovered and
// then ignored.
type InvariantViolation struct {
	Node    Node
	Problem string
}

func (e *InvariantViolation) Error() string {
	if e.Node == nil {
		return "invariant violation: " + e.Problem
	}
	return "invariant violation at " + nodeString(e.Node) + ": " + e.Problem
}

func violation(n Node, problem string) {
	panic(&InvariantViolation{
		Node:    n,
		Problem: problem,
	})
}

// ActionError occurs when a rule's action fails during Session.Fire.
type ActionError struct {
	Rule string
	Err  error
}

func (e *ActionError) Error() string {
	return "action of rule " + strconv.Quote(e.Rule) + " failed: " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
