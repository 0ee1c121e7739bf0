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

package ruleset

import (
	"context"
	"fmt"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/interpreters"
	"github.com/Comcast/rete/match"
	"github.com/Comcast/rete/rule"
)

// Compiler turns RuleSets into rule Definitions and networks.
type Compiler struct {
	Interpreters interpreters.InterpretersMap

	// Matcher is used for elements' Match patterns.
	Matcher *match.Matcher

	// interpreter is the current rule set's interpreter name.
	interpreter string
}

// NewCompiler makes a Compiler with the standard interpreters and the
// default matcher.
func NewCompiler() *Compiler {
	return &Compiler{
		Interpreters: interpreters.Standard(),
		Matcher:      match.DefaultMatcher,
	}
}

// Compile is a convenience function that uses a new Compiler.
func Compile(ctx context.Context, rs *RuleSet) (*core.Network, error) {
	return NewCompiler().Compile(ctx, rs)
}

// Compile builds the network for the rule set.
func (c *Compiler) Compile(ctx context.Context, rs *RuleSet) (*core.Network, error) {
	defs, err := c.Definitions(ctx, rs)
	if err != nil {
		return nil, err
	}
	return rule.Compile(defs...)
}

// Definitions compiles each of the rule set's rules.
//
// The first problem is returned as a *rule.CompileError.
func (c *Compiler) Definitions(ctx context.Context, rs *RuleSet) ([]*rule.Definition, error) {
	c.interpreter = rs.Interpreter
	acc := make([]*rule.Definition, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		def, err := c.Definition(ctx, r)
		if err != nil {
			return nil, &rule.CompileError{
				Rule: r.Name,
				Err:  err,
			}
		}
		acc = append(acc, def)
	}
	return acc, nil
}

// visible returns the names of the declarations in the scope and its
// ancestors, outermost first.
func visible(s *rule.SymbolTable) []string {
	var acc []string
	for ; s != nil; s = s.Parent() {
		ds := s.Declarations()
		names := make([]string, 0, len(ds)+len(acc))
		for _, d := range ds {
			names = append(names, d.Name)
		}
		acc = append(names, acc...)
	}
	return acc
}

func (c *Compiler) expression(ctx context.Context, src interface{}, params []string) (core.Expression, error) {
	return c.Interpreters.Compile(ctx, c.interpreter, src, params)
}

func source(src interface{}) string {
	if s, is := src.(string); is {
		return s
	}
	return fmt.Sprintf("%v", src)
}

// Definition compiles one rule.
func (c *Compiler) Definition(ctx context.Context, r *Rule) (*rule.Definition, error) {
	rb := rule.NewRuleBuilder(r.Name)
	rb.Priority(r.Priority)
	rb.Doc(r.Doc)

	for _, e := range r.When {
		if err := c.element(ctx, rb, e); err != nil {
			return nil, err
		}
	}

	if r.Then != nil {
		a, err := c.action(ctx, rb.Scope(), r)
		if err != nil {
			return nil, err
		}
		rb.Action(a)
	}

	return rb.Build()
}

func kind(e *Element) error {
	switch {
	case e.Pattern != "" && e.Aggregate != "":
		return TwoElementKinds
	case e.Pattern == "" && e.Aggregate == "":
		return NoElementKind
	}
	return nil
}

func (c *Compiler) element(ctx context.Context, rb *rule.RuleBuilder, e *Element) error {
	if err := kind(e); err != nil {
		return err
	}
	if e.Pattern != "" {
		pb, err := rb.Pattern(e.Pattern, e.Type)
		if err != nil {
			return err
		}
		return c.pattern(ctx, pb, rb.Scope(), e)
	}

	_, err := rb.Aggregate(e.Aggregate, e.Type, e.Aggregator, func(ab *rule.AggregateBuilder) error {
		for _, p := range e.Patterns {
			if p.Pattern == "" || p.Aggregate != "" {
				return fmt.Errorf("aggregate '%s' can only have patterns", e.Aggregate)
			}
			pb, err := ab.Pattern(p.Pattern, p.Type)
			if err != nil {
				return err
			}
			if err = c.pattern(ctx, pb, ab.Scope(), p); err != nil {
				return err
			}
		}
		if e.Select == nil {
			return nil
		}
		params := visible(ab.Scope())
		expr, err := c.expression(ctx, e.Select, params)
		if err != nil {
			return err
		}
		return ab.Selector(expr, source(e.Select), rule.P(params...)...)
	})
	return err
}

func (c *Compiler) pattern(ctx context.Context, pb *rule.PatternBuilder, scope *rule.SymbolTable, e *Element) error {
	if e.Match != nil {
		pb.Filter(c.Matcher.Filter(e.Match, nil))
	}
	params := visible(scope)
	for _, src := range e.Conditions {
		expr, err := c.expression(ctx, src, params)
		if err != nil {
			return err
		}
		if err = pb.Condition(expr, source(src), rule.P(params...)...); err != nil {
			return err
		}
	}
	return nil
}

// Action is the core.Action for a rule's Then.
type Action struct {
	Emit    core.Expression
	Insert  core.Expression
	Retract []int
}

func (c *Compiler) action(ctx context.Context, scope *rule.SymbolTable, r *Rule) (*Action, error) {
	var (
		then   = r.Then
		params = visible(scope)
	)
	a := &Action{}
	var err error
	if then.Emit != nil {
		if a.Emit, err = c.expression(ctx, then.Emit, params); err != nil {
			return nil, err
		}
	}
	if then.Insert != nil {
		if a.Insert, err = c.expression(ctx, then.Insert, params); err != nil {
			return nil, err
		}
	}
	for _, name := range then.Retract {
		d, err := scope.Lookup(name, "")
		if err != nil {
			return nil, err
		}
		if !isPattern(r, name) {
			return nil, fmt.Errorf("can only retract patterns, not '%s'", name)
		}
		a.Retract = append(a.Retract, d.Position)
	}
	return a, nil
}

func isPattern(r *Rule, name string) bool {
	for _, e := range r.When {
		if e.Pattern == name {
			return true
		}
	}
	return false
}

// Execute implements core.Action.
//
// Emit happens first, then inserts, then retractions.
func (a *Action) Execute(ctx *core.ActionContext) error {
	args := ctx.Objects()

	if a.Emit != nil {
		x, err := a.Emit.Evaluate(ctx.Context(), args)
		if err != nil {
			return err
		}
		ctx.Emit(x)
	}

	if a.Insert != nil {
		x, err := a.Insert.Evaluate(ctx.Context(), args)
		if err != nil {
			return err
		}
		xs, is := x.([]interface{})
		if !is {
			xs = []interface{}{x}
		}
		for _, x := range xs {
			if x == nil {
				continue
			}
			if _, err := ctx.Insert(x); err != nil {
				return err
			}
		}
	}

	// Collect first since each retraction can change the tuple's
	// fate.
	var gone []*core.Fact
	for _, pos := range a.Retract {
		if f := ctx.Tuple.FactAt(pos); f != nil {
			gone = append(gone, f)
		}
	}
	for _, f := range gone {
		if err := ctx.Retract(f); err != nil {
			return err
		}
	}

	return nil
}
