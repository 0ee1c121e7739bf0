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
	"context"
)

// Network is a built, immutable graph of nodes.
//
// A Network holds no facts.  Use NewSession to get a working memory.
type Network struct {
	built bool
	nodes []Node
	edges []Edge

	root   *RootNode
	alphas []*AlphaNode
	rules  []*RuleNode
}

// Builder makes a Network.
//
// Nodes are made and wired by the Builder's methods, and then Build()
// freezes the topology.  Using a node's build-phase methods after that
// panics.
type Builder struct {
	net *Network
}

// NewBuilder makes a Builder for a network that so far just has a
// RootNode.
func NewBuilder() *Builder {
	b := &Builder{
		net: &Network{},
	}
	r := &RootNode{}
	b.add(&r.node, r, "root")
	b.net.root = r
	return b
}

func (b *Builder) add(n *node, self Node, kind string) {
	if b.net.built {
		violation(self, "node added after build")
	}
	n.id = len(b.net.nodes)
	n.kind = kind
	n.net = b.net
	b.net.nodes = append(b.net.nodes, self)
}

// Root returns the network's RootNode, which is the left input of the
// first binary node of each rule.
func (b *Builder) Root() *RootNode {
	return b.net.root
}

// Alpha adds an AlphaNode.  Every fact the session sees is offered to
// every AlphaNode.
func (b *Builder) Alpha(label string, conds ...AlphaCondition) *AlphaNode {
	n := &AlphaNode{
		conds: conds,
	}
	b.add(&n.node, n, "alpha")
	n.label = label
	b.net.alphas = append(b.net.alphas, n)
	return n
}

// Join adds a JoinNode with the given inputs and conditions.
func (b *Builder) Join(left TupleSource, right ObjectSource, conds ...BetaCondition) *JoinNode {
	n := &JoinNode{}
	b.add(&n.node, n, "join")
	n.attach(n, left, right)
	for _, c := range conds {
		n.AddCondition(c)
	}
	return n
}

// Aggregate adds an AggregateNode that uses the given factory.
func (b *Builder) Aggregate(left TupleSource, right ObjectSource, factory AggregatorFactory, conds ...BetaCondition) *AggregateNode {
	n := &AggregateNode{
		factory: factory,
	}
	b.add(&n.node, n, "aggregate")
	n.label = factory.Name()
	n.attach(n, left, right)
	for _, c := range conds {
		n.AddCondition(c)
	}
	return n
}

// Memory adds a BetaMemoryNode as the sink of the given binary node.
func (b *Builder) Memory(src PairSource) *BetaMemoryNode {
	n := &BetaMemoryNode{}
	b.add(&n.node, n, "memory")
	src.AttachPairs(n)
	return n
}

// Adapter adds an Adapter that wraps the tuples of the given source.
func (b *Builder) Adapter(src TupleSource) *Adapter {
	n := &Adapter{
		Source: src,
	}
	b.add(&n.node, n, "adapter")
	src.AttachTuples(n)
	return n
}

// Rule adds a RuleNode fed by the given source.
func (b *Builder) Rule(name string, priority int, action Action, src TupleSource) *RuleNode {
	n := &RuleNode{
		Name:     name,
		Priority: priority,
		Action:   action,
		Source:   src,
	}
	b.add(&n.node, n, "rule")
	n.label = name
	src.AttachTuples(n)
	b.net.rules = append(b.net.rules, n)
	return n
}

// Build freezes the topology and returns the Network.
func (b *Builder) Build() (*Network, error) {
	if b.net.built {
		return nil, AlreadyBuilt
	}
	b.net.built = true
	return b.net, nil
}

// Nodes returns all nodes ordered by ID.
func (net *Network) Nodes() []Node {
	acc := make([]Node, len(net.nodes))
	copy(acc, net.nodes)
	return acc
}

// Edges returns all wires in the order they were made.
func (net *Network) Edges() []Edge {
	acc := make([]Edge, len(net.edges))
	copy(acc, net.edges)
	return acc
}

func (net *Network) Root() *RootNode {
	return net.root
}

func (net *Network) Alphas() []*AlphaNode {
	acc := make([]*AlphaNode, len(net.alphas))
	copy(acc, net.alphas)
	return acc
}

func (net *Network) Rules() []*RuleNode {
	acc := make([]*RuleNode, len(net.rules))
	copy(acc, net.rules)
	return acc
}

// Rule finds a RuleNode by name.
func (net *Network) Rule(name string) *RuleNode {
	for _, r := range net.rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// NewSession makes a Session with a fresh WorkingMemory and activates
// the root.
//
// The agenda can be nil.
func (net *Network) NewSession(ctx context.Context, agenda Agenda) (*Session, error) {
	wm := NewWorkingMemory()
	wm.Agenda = agenda
	s := &Session{
		Network: net,
		wm:      wm,
		Limit:   DefaultLimit,
	}
	if err := net.root.activate(s.exec(ctx)); err != nil {
		return nil, err
	}
	return s, nil
}
