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

// Declaration is a named, typed fact in a rule.
type Declaration struct {
	Name string
	Type string

	// Position is the index of the declared fact in the rule's
	// tuples.
	Position int

	// Target is the pattern that binds the declaration (or nil for
	// an aggregate's result).
	Target *PatternElement
}

func (d *Declaration) String() string {
	return d.Name + ":" + d.Type
}

// BindingError occurs when a declaration can't be made or found.
type BindingError struct {
	Name    string
	Type    string
	Problem string
}

func (e *BindingError) Error() string {
	s := "binding '" + e.Name + "'"
	if e.Type != "" {
		s += " of type '" + e.Type + "'"
	}
	return s + ": " + e.Problem
}

// SymbolTable is one lexical scope of declarations.
type SymbolTable struct {
	parent *SymbolTable
	decls  []*Declaration

	// next is the position of the next declaration.
	next int
}

// NewSymbolTable makes a scope.  The parent can be nil.
//
// A child scope's positions continue from its parent's.
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	s := &SymbolTable{
		parent: parent,
	}
	if parent != nil {
		s.next = parent.next
	}
	return s
}

// Parent returns the enclosing scope (or nil).
func (s *SymbolTable) Parent() *SymbolTable {
	return s.parent
}

// Declarations returns this scope's own declarations in order.
func (s *SymbolTable) Declarations() []*Declaration {
	acc := make([]*Declaration, len(s.decls))
	copy(acc, s.decls)
	return acc
}

func (s *SymbolTable) find(name string) *Declaration {
	for t := s; t != nil; t = t.parent {
		for _, d := range t.decls {
			if d.Name == name {
				return d
			}
		}
	}
	return nil
}

// Declare adds a declaration at the next position.
//
// A name can only be declared once in a scope and its ancestors.
func (s *SymbolTable) Declare(name, typ string) (*Declaration, error) {
	if name == "" {
		return nil, &BindingError{name, typ, "no name"}
	}
	if d := s.find(name); d != nil {
		return nil, &BindingError{name, typ, "already declared as " + d.String()}
	}
	d := &Declaration{
		Name:     name,
		Type:     typ,
		Position: s.next,
	}
	s.next++
	s.decls = append(s.decls, d)
	return d, nil
}

// Lookup finds a declaration by name in this scope or any enclosing
// scope.  An empty typ matches any type.
func (s *SymbolTable) Lookup(name, typ string) (*Declaration, error) {
	d := s.find(name)
	if d == nil {
		return nil, &BindingError{name, typ, "not declared"}
	}
	if typ != "" && d.Type != typ {
		return nil, &BindingError{name, typ, "declared with type '" + d.Type + "'"}
	}
	return d, nil
}
