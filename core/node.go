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

// Node is anything in a Network.
type Node interface {
	// ID is the node's stable index in its Network.
	ID() int

	// Kind is a short name for the type of node ("alpha", "join",
	// ...).
	Kind() string

	// Label is an optional human name.
	Label() string
}

// ObjectSink receives facts from an ObjectSource.
type ObjectSink interface {
	Node
	AssertFacts(ctx *ExecutionContext, facts []*Fact) error
	UpdateFacts(ctx *ExecutionContext, facts []*Fact) error
	RetractFacts(ctx *ExecutionContext, facts []*Fact) error
}

// ObjectSource provides facts.
//
// GetFacts returns a snapshot of the facts the source currently
// holds.  Attach registers a sink for push notifications.
type ObjectSource interface {
	Node
	GetFacts(ctx *ExecutionContext) []*Fact
	Attach(sink ObjectSink)
}

// TupleSink receives tuples from a TupleSource.
type TupleSink interface {
	Node
	AssertTuples(ctx *ExecutionContext, tuples []*Tuple) error
	UpdateTuples(ctx *ExecutionContext, tuples []*Tuple) error
	RetractTuples(ctx *ExecutionContext, tuples []*Tuple) error
}

// TupleSource provides tuples.
type TupleSource interface {
	Node
	GetTuples(ctx *ExecutionContext) []*Tuple
	AttachTuples(sink TupleSink)
}

// PairSink receives (tuple, fact) pairs from a binary node.
type PairSink interface {
	Node
	AssertPairs(ctx *ExecutionContext, pairs *TupleFactList) error
	UpdatePairs(ctx *ExecutionContext, pairs *TupleFactList) error
	RetractPairs(ctx *ExecutionContext, pairs *TupleFactList) error
}

// PairSource is a binary node that emits pairs to exactly one
// PairSink.
type PairSource interface {
	Node
	AttachPairs(sink PairSink)
}

// Edge is a wire from one node to another.
//
// Side is "left", "right", or "" for a single-input node.
type Edge struct {
	From Node
	To   Node
	Side string
}

// node is the part that every node has in common.
type node struct {
	id    int
	kind  string
	label string
	net   *Network
}

func (n *node) ID() int {
	return n.id
}

func (n *node) Kind() string {
	return n.kind
}

func (n *node) Label() string {
	return n.label
}

// building panics if the node's network was already built.
func (n *node) building(self Node) {
	if n.net == nil || n.net.built {
		violation(self, "topology change after build")
	}
}

func (n *node) wire(self Node, to Node, side string) {
	n.building(self)
	n.net.edges = append(n.net.edges, Edge{
		From: self,
		To:   to,
		Side: side,
	})
}

// SetLabel sets the node's label.  Can only be called before the
// network is built.
func (n *node) SetLabel(label string) {
	if n.net != nil && n.net.built {
		violation(n, "label change after build")
	}
	n.label = label
}
