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

// Package interpreters collects the interpreters that can compile
// condition and selector source into core.Expressions.
package interpreters

import (
	"context"
	"fmt"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/interpreters/goja"
	"github.com/Comcast/rete/interpreters/noop"
)

// Interpreter compiles source into an Expression whose arguments are
// bound to the given parameter names in order.
type Interpreter interface {
	Compile(ctx context.Context, src interface{}, params []string) (core.Expression, error)
}

// UnknownInterpreter is returned by Compile for a name that isn't in
// the map.
type UnknownInterpreter struct {
	Name string
}

func (e *UnknownInterpreter) Error() string {
	return fmt.Sprintf("unknown interpreter '%s'", e.Name)
}

// InterpretersMap maps names to Interpreters.
type InterpretersMap map[string]Interpreter

// Find returns the named Interpreter or nil.
func (m InterpretersMap) Find(name string) Interpreter {
	return m[name]
}

// Compile compiles the source with the named interpreter.
func (m InterpretersMap) Compile(ctx context.Context, name string, src interface{}, params []string) (core.Expression, error) {
	i := m.Find(name)
	if i == nil {
		return nil, &UnknownInterpreter{name}
	}
	return i.Compile(ctx, src, params)
}

// Standard returns a map with the standard interpreters.
//
// The default interpreter (named "") is Goja.
func Standard() InterpretersMap {
	es := goja.NewInterpreter()

	return InterpretersMap{
		"":               es,
		"goja":           es,
		"ecmascript":     es,
		"ecmascript-5.1": es,
		"noop":           noop.NewInterpreter(),
	}
}
