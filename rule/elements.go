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
	"github.com/Comcast/rete/core"
)

// Element is a PatternElement or an AggregateElement.
type Element interface {
	// Declaration is what the element binds.
	Declaration() *Declaration
}

// ConditionElement is an Expression bound to declarations.
type ConditionElement struct {
	decls  []*Declaration
	expr   core.Expression
	source string
}

// Declarations returns the bound declarations in the Expression's
// argument order.
func (c *ConditionElement) Declarations() []*Declaration {
	acc := make([]*Declaration, len(c.decls))
	copy(acc, c.decls)
	return acc
}

func (c *ConditionElement) Expression() core.Expression {
	return c.expr
}

func (c *ConditionElement) Source() string {
	return c.source
}

// Slots returns the positions of the bound declarations.
func (c *ConditionElement) Slots() []int {
	acc := make([]int, len(c.decls))
	for i, d := range c.decls {
		acc[i] = d.Position
	}
	return acc
}

// PatternElement matches facts of one type.
type PatternElement struct {
	decl *Declaration

	Type string

	// Filters are single-fact predicates that are applied before
	// any join.
	Filters []core.AlphaCondition

	Conditions []*ConditionElement
}

func (p *PatternElement) Declaration() *Declaration {
	return p.decl
}

// AggregateElement aggregates the facts matched by its source patterns
// into derived facts bound to its declaration.
type AggregateElement struct {
	decl *Declaration

	// Aggregator is a name from the aggregators registry.
	Aggregator string

	// Selector is optional for some aggregators.
	Selector *ConditionElement

	// Sources are one or more patterns.  More than one makes a
	// nested network whose tuples are aggregated.
	Sources []*PatternElement

	Scope *SymbolTable
}

func (a *AggregateElement) Declaration() *Declaration {
	return a.decl
}

// Definition is a complete rule.
type Definition struct {
	Name     string
	Priority int
	Elements []Element
	Action   core.Action
	Scope    *SymbolTable

	// Doc is optional documentation (Markdown).
	Doc string
}

// Declarations returns the rule's top-level declarations by position.
func (d *Definition) Declarations() []*Declaration {
	return d.Scope.Declarations()
}
