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

// Package core provides the incremental join and aggregation network
// that keeps a working memory of facts consistent with a set of rule
// patterns.
//
// A Network is a fixed graph of nodes.  Alpha nodes filter single
// facts.  Binary (beta) nodes combine partial matches (Tuples) coming
// from their left input with Facts coming from their right input.  A
// JoinNode is the plain AND join; an AggregateNode turns the facts
// that join with a tuple into derived facts using an Aggregator.  An
// Adapter wraps the tuples of a nested subnetwork into wrapper facts
// so that the subnetwork can re-enter its parent network as a single
// right input.  Beta memories turn (tuple, fact) pairs into child
// tuples, and RuleNodes hand completed tuples to an Agenda.
//
// A Network is made by a Builder.  Once Build() returns, the topology
// (nodes, wiring, and condition lists) cannot change.  All mutable
// state lives in a Session's WorkingMemory, which is indexed by node
// id.  Independent sessions can therefore share one Network, but a
// single Session must only be used by one goroutine at a time.
//
// Session.Insert, Session.Update, and Session.Retract each propagate
// to completion before returning.  If a condition or selector fails,
// the operation returns an *EvaluationError.  The session remains
// usable, but the state below the failing node may be partially
// propagated.  Protocol bugs (for example an aggregator asked to
// modify a fact it never saw) panic with an *InvariantViolation.
//
// To use this package, make a Builder, add alpha nodes, joins,
// memories, aggregates, and rule nodes, and then Build().  The rule
// package offers a higher-level way to do that from rule definitions.
package core
