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

package rule

import (
	"github.com/Comcast/rete/aggregators"
	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/util"
)

// CompileError occurs when a Definition can't be turned into nodes.
type CompileError struct {
	Rule string
	Err  error
}

func (e *CompileError) Error() string {
	return "rule '" + e.Rule + "': " + e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compiler adds Definitions to a core.Builder.
//
// Patterns without filters share one alpha node per type.
type Compiler struct {
	Builder *core.Builder

	alphas map[string]*core.AlphaNode
}

func NewCompiler(b *core.Builder) *Compiler {
	return &Compiler{
		Builder: b,
		alphas:  make(map[string]*core.AlphaNode),
	}
}

// Compile makes a Network from the given Definitions.
func Compile(defs ...*Definition) (*core.Network, error) {
	c := NewCompiler(core.NewBuilder())
	for _, def := range defs {
		if _, err := c.Add(def); err != nil {
			return nil, err
		}
	}
	return c.Builder.Build()
}

func (c *Compiler) alpha(p *PatternElement) *core.AlphaNode {
	if len(p.Filters) == 0 {
		if a, have := c.alphas[p.Type]; have {
			return a
		}
	}
	conds := append([]core.AlphaCondition{core.TypeCondition(p.Type)}, p.Filters...)
	a := c.Builder.Alpha(p.Type, conds...)
	if len(p.Filters) == 0 {
		c.alphas[p.Type] = a
	}
	return a
}

func conditions(p *PatternElement) []core.BetaCondition {
	acc := make([]core.BetaCondition, len(p.Conditions))
	for i, ce := range p.Conditions {
		acc[i] = &core.ExpressionCondition{
			Expr:   ce.expr,
			Slots:  ce.Slots(),
			Source: ce.source,
		}
	}
	return acc
}

// chain joins the patterns one after another starting from left.
func (c *Compiler) chain(left core.TupleSource, ps []*PatternElement) core.TupleSource {
	for _, p := range ps {
		j := c.Builder.Join(left, c.alpha(p), conditions(p)...)
		j.SetLabel(p.decl.String())
		left = c.Builder.Memory(j)
	}
	return left
}

func (c *Compiler) aggregate(left core.TupleSource, a *AggregateElement) (core.TupleSource, error) {
	var sel core.Selector
	if a.Selector != nil {
		sel = &core.ExpressionSelector{
			Expr:   a.Selector.expr,
			Slots:  a.Selector.Slots(),
			Source: a.Selector.source,
		}
	}
	factory, err := aggregators.Lookup(a.Aggregator, sel)
	if err != nil {
		return nil, err
	}

	var n *core.AggregateNode
	if len(a.Sources) == 1 {
		src := a.Sources[0]
		n = c.Builder.Aggregate(left, c.alpha(src), factory, conditions(src)...)
	} else {
		sub := c.chain(left, a.Sources)
		n = c.Builder.Aggregate(left, c.Builder.Adapter(sub), factory)
	}
	n.SetLabel(a.Aggregator + " " + a.decl.String())
	return c.Builder.Memory(n), nil
}

// Add compiles one Definition and returns its RuleNode.
func (c *Compiler) Add(def *Definition) (*core.RuleNode, error) {
	var left core.TupleSource = c.Builder.Root()
	for _, e := range def.Elements {
		switch vv := e.(type) {
		case *PatternElement:
			left = c.chain(left, []*PatternElement{vv})
		case *AggregateElement:
			var err error
			if left, err = c.aggregate(left, vv); err != nil {
				return nil, &CompileError{def.Name, err}
			}
		}
	}
	util.Logf("rule.Compiler added '%s'", def.Name)
	return c.Builder.Rule(def.Name, def.Priority, def.Action, left), nil
}
