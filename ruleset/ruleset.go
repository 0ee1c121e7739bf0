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

// Package ruleset reads rule sets from YAML (or JSON) and compiles
// them into networks.
//
// A rule set looks like
//
//	name: orders
//	doc: Some *Markdown*.
//	rules:
//	  - name: big spender
//	    priority: 10
//	    when:
//	      - pattern: c
//	        type: customer
//	        match: {"vip": true}
//	      - aggregate: total
//	        type: number
//	        aggregator: sum
//	        select: o.amount
//	        patterns:
//	          - pattern: o
//	            type: order
//	            conditions:
//	              - o.owner == c.name
//	    then:
//	      emit: '({who: c.name, total: total})'
//	facts:
//	  - {"type":"customer","name":"homer","vip":true}
//
// Conditions, selectors, and actions are compiled by an interpreter
// (Goja by default).  Their parameters are the declarations visible
// where they appear, so they can use those names directly.
package ruleset

import (
	"errors"
	"fmt"
	"os"

	"github.com/jsccast/yaml"
)

var (
	// NoElementKind occurs when an element is neither a pattern
	// nor an aggregate.
	NoElementKind = errors.New("element needs a 'pattern' or an 'aggregate'")

	// TwoElementKinds occurs when an element is both a pattern
	// and an aggregate.
	TwoElementKinds = errors.New("element can't be both a 'pattern' and an 'aggregate'")
)

// RuleSet is a named set of rules plus optional initial facts.
type RuleSet struct {
	Name string `json:"name" yaml:"name"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Interpreter is the name of the interpreter for the rule
	// set's code.  Empty means the default interpreter.
	Interpreter string `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`

	Rules []*Rule `json:"rules" yaml:"rules"`

	// Facts are inserted into new sessions.
	Facts []interface{} `json:"facts,omitempty" yaml:"facts,omitempty"`
}

// Rule is the source of one rule.
type Rule struct {
	Name     string     `json:"name" yaml:"name"`
	Doc      string     `json:"doc,omitempty" yaml:"doc,omitempty"`
	Priority int        `json:"priority,omitempty" yaml:"priority,omitempty"`
	When     []*Element `json:"when" yaml:"when"`
	Then     *Then      `json:"then,omitempty" yaml:"then,omitempty"`
}

// Element is either a pattern or an aggregate.
//
// A pattern declares Pattern with Type.  The optional Match is a
// pattern (see the match package) that the fact must match, and each
// of the Conditions must hold.
//
// An aggregate declares Aggregate with Type.  Its result comes from
// the named Aggregator over its Patterns, and Select is its optional
// selector.
type Element struct {
	Pattern    string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Aggregate  string        `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Type       string        `json:"type" yaml:"type"`
	Match      interface{}   `json:"match,omitempty" yaml:"match,omitempty"`
	Conditions []interface{} `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	Aggregator string      `json:"aggregator,omitempty" yaml:"aggregator,omitempty"`
	Select     interface{} `json:"select,omitempty" yaml:"select,omitempty"`
	Patterns   []*Element  `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// Name returns the name the element declares.
func (e *Element) Name() string {
	if e.Pattern != "" {
		return e.Pattern
	}
	return e.Aggregate
}

// Then is what a rule does when it fires.
//
// Emit and Insert are code whose parameters are the rule's
// declarations.  Emit's value is emitted.  Insert's value (or each
// element of its value if it's an array) is inserted as a new fact.
// Retract names declarations whose facts are retracted.
type Then struct {
	Emit    interface{} `json:"emit,omitempty" yaml:"emit,omitempty"`
	Insert  interface{} `json:"insert,omitempty" yaml:"insert,omitempty"`
	Retract []string    `json:"retract,omitempty" yaml:"retract,omitempty"`
}

// Parse parses a RuleSet from YAML (which includes JSON).
func Parse(bs []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(bs, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ReadFile parses the RuleSet in the given file.
func ReadFile(filename string) (*RuleSet, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	rs, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if rs.Name == "" {
		rs.Name = filename
	}
	return rs, nil
}

// Rule finds a rule by name.
func (rs *RuleSet) Rule(name string) *Rule {
	for _, r := range rs.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}
