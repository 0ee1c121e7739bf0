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
	"errors"

	"github.com/Comcast/rete/core"
)

var (
	// NoPatterns occurs when a rule or an aggregate has no
	// patterns.
	NoPatterns = errors.New("no patterns")

	// NoName occurs when a rule has no name.
	NoName = errors.New("rule has no name")
)

// Param names a declaration that an expression uses.  An empty Type
// matches any type.
type Param struct {
	Name string
	Type string
}

// P makes an untyped Param for each name.
func P(names ...string) []Param {
	acc := make([]Param, len(names))
	for i, name := range names {
		acc[i] = Param{Name: name}
	}
	return acc
}

// bind resolves params in a scope.
func bind(scope *SymbolTable, expr core.Expression, source string, params []Param) (*ConditionElement, error) {
	decls := make([]*Declaration, 0, len(params))
	for _, p := range params {
		d, err := scope.Lookup(p.Name, p.Type)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return &ConditionElement{
		decls:  decls,
		expr:   expr,
		source: source,
	}, nil
}

// PatternBuilder collects the conditions of one pattern.
type PatternBuilder struct {
	decl       *Declaration
	scope      *SymbolTable
	filters    []core.AlphaCondition
	conditions []*ConditionElement
}

// Declaration returns what the pattern binds.
func (b *PatternBuilder) Declaration() *Declaration {
	return b.decl
}

// Condition adds a condition.  Each param is resolved right away, so a
// parameter that isn't in scope (including one declared later) is an
// error here.
func (b *PatternBuilder) Condition(expr core.Expression, source string, params ...Param) error {
	c, err := bind(b.scope, expr, source, params)
	if err != nil {
		return err
	}
	b.conditions = append(b.conditions, c)
	return nil
}

// Filter adds a single-fact predicate.
func (b *PatternBuilder) Filter(f core.AlphaCondition) {
	b.filters = append(b.filters, f)
}

// Build makes the PatternElement and links the declaration to it.
func (b *PatternBuilder) Build() *PatternElement {
	p := &PatternElement{
		decl:       b.decl,
		Type:       b.decl.Type,
		Filters:    append([]core.AlphaCondition(nil), b.filters...),
		Conditions: append([]*ConditionElement(nil), b.conditions...),
	}
	b.decl.Target = p
	return p
}

// AggregateBuilder collects an aggregate's patterns and selector.
type AggregateBuilder struct {
	scope    *SymbolTable
	patterns []*PatternBuilder
	selector *ConditionElement
}

// Scope returns the aggregate's own scope.
func (b *AggregateBuilder) Scope() *SymbolTable {
	return b.scope
}

// Pattern declares a pattern in the aggregate's scope.
func (b *AggregateBuilder) Pattern(name, typ string) (*PatternBuilder, error) {
	d, err := b.scope.Declare(name, typ)
	if err != nil {
		return nil, err
	}
	pb := &PatternBuilder{
		decl:  d,
		scope: b.scope,
	}
	b.patterns = append(b.patterns, pb)
	return pb, nil
}

// Selector sets the expression that computes what is aggregated from
// each match.
func (b *AggregateBuilder) Selector(expr core.Expression, source string, params ...Param) error {
	c, err := bind(b.scope, expr, source, params)
	if err != nil {
		return err
	}
	b.selector = c
	return nil
}

// RuleBuilder makes a Definition.
type RuleBuilder struct {
	name     string
	priority int
	doc      string
	scope    *SymbolTable
	elements []interface{}
	action   core.Action
}

func NewRuleBuilder(name string) *RuleBuilder {
	return &RuleBuilder{
		name:  name,
		scope: NewSymbolTable(nil),
	}
}

// Scope returns the rule's top-level scope.
func (b *RuleBuilder) Scope() *SymbolTable {
	return b.scope
}

func (b *RuleBuilder) Priority(p int) {
	b.priority = p
}

func (b *RuleBuilder) Doc(doc string) {
	b.doc = doc
}

func (b *RuleBuilder) Action(a core.Action) {
	b.action = a
}

// Pattern declares a pattern in the rule's scope.
func (b *RuleBuilder) Pattern(name, typ string) (*PatternBuilder, error) {
	d, err := b.scope.Declare(name, typ)
	if err != nil {
		return nil, err
	}
	pb := &PatternBuilder{
		decl:  d,
		scope: b.scope,
	}
	b.elements = append(b.elements, pb)
	return pb, nil
}

// Aggregate adds an aggregate whose result is declared as name with
// type typ.
//
// The function f declares the aggregate's patterns and selector in the
// aggregate's own scope.  The result is only declared once f returns,
// so the aggregate can't refer to its own result.
func (b *RuleBuilder) Aggregate(name, typ, aggregator string, f func(ab *AggregateBuilder) error) (*Declaration, error) {
	ab := &AggregateBuilder{
		scope: NewSymbolTable(b.scope),
	}
	if err := f(ab); err != nil {
		return nil, err
	}
	if len(ab.patterns) == 0 {
		return nil, &BindingError{name, typ, NoPatterns.Error()}
	}
	d, err := b.scope.Declare(name, typ)
	if err != nil {
		return nil, err
	}
	sources := make([]*PatternElement, len(ab.patterns))
	for i, pb := range ab.patterns {
		sources[i] = pb.Build()
	}
	b.elements = append(b.elements, &AggregateElement{
		decl:       d,
		Aggregator: aggregator,
		Selector:   ab.selector,
		Sources:    sources,
		Scope:      ab.scope,
	})
	return d, nil
}

// Build makes the Definition.
func (b *RuleBuilder) Build() (*Definition, error) {
	if b.name == "" {
		return nil, NoName
	}
	if len(b.elements) == 0 {
		return nil, NoPatterns
	}
	def := &Definition{
		Name:     b.name,
		Priority: b.priority,
		Action:   b.action,
		Scope:    b.scope,
		Doc:      b.doc,
	}
	for _, e := range b.elements {
		switch vv := e.(type) {
		case *PatternBuilder:
			def.Elements = append(def.Elements, vv.Build())
		case *AggregateElement:
			def.Elements = append(def.Elements, vv)
		}
	}
	return def, nil
}
