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

// Package noop has an interpreter that ignores its source.
package noop

import (
	"context"
	"log"

	"github.com/Comcast/rete/core"
)

// Interpreter compiles any source into an Expression that just
// returns Value.
//
// As a condition, the default Expression always holds.
type Interpreter struct {
	// Silent, if false, will log a warning at each compilation.
	Silent bool

	// Value is what compiled Expressions return.
	Value interface{}
}

func NewInterpreter() *Interpreter {
	return &Interpreter{
		Value: true,
	}
}

// Expression returns its Value.
type Expression struct {
	Value interface{}
}

func (e *Expression) Evaluate(ctx context.Context, args []interface{}) (interface{}, error) {
	return e.Value, nil
}

func (i *Interpreter) Compile(ctx context.Context, src interface{}, params []string) (core.Expression, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for compilation")
	}
	return &Expression{
		Value: i.Value,
	}, nil
}
