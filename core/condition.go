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

// Expression is an opaque compiled expression.
//
// The core never inspects or compiles expressions.  Something else
// (see the interpreters packages) makes them.  Args are the objects of
// the facts the expression declared, in declaration order.
type Expression interface {
	Evaluate(ctx context.Context, args []interface{}) (interface{}, error)
}

// ExpressionFunc makes a Go function an Expression.
type ExpressionFunc func(ctx context.Context, args []interface{}) (interface{}, error)

func (f ExpressionFunc) Evaluate(ctx context.Context, args []interface{}) (interface{}, error) {
	return f(ctx, args)
}

// BetaCondition is a predicate over a (tuple, fact) pair.
//
// A BetaCondition should have no side effects.  Conditions are
// evaluated in declaration order, and all must hold.
type BetaCondition interface {
	IsSatisfiedBy(ctx *ExecutionContext, t *Tuple, f *Fact) (bool, error)
}

// ConditionFunc makes a Go function a BetaCondition.
type ConditionFunc func(ctx *ExecutionContext, t *Tuple, f *Fact) (bool, error)

func (c ConditionFunc) IsSatisfiedBy(ctx *ExecutionContext, t *Tuple, f *Fact) (bool, error) {
	return c(ctx, t, f)
}

// AlphaCondition is a predicate over a single object.
type AlphaCondition func(ctx context.Context, x interface{}) (bool, error)

// TypeCondition accepts objects with the given TypeOf.
func TypeCondition(typ string) AlphaCondition {
	return func(ctx context.Context, x interface{}) (bool, error) {
		return TypeOf(x) == typ, nil
	}
}

// Arguments gathers the objects at the given pattern positions.
//
// Position t.Level is the right fact f.  Smaller positions are the
// tuple's facts.  When f is a wrapper fact, positions refer to the
// wrapped tuple, whose chain includes the facts of t.
func Arguments(t *Tuple, f *Fact, slots []int) ([]interface{}, error) {
	args := make([]interface{}, len(slots))
	if f.IsWrapperFact() {
		w := f.WrappedTuple()
		for i, slot := range slots {
			g := w.FactAt(slot)
			if g == nil {
				return nil, &SlotError{slot, w.Level}
			}
			args[i] = g.Object
		}
		return args, nil
	}
	level := 0
	if t != nil {
		level = t.Level
	}
	for i, slot := range slots {
		switch {
		case slot == level && f != nil:
			args[i] = f.Object
		case t != nil && slot < level:
			g := t.FactAt(slot)
			if g == nil {
				return nil, &SlotError{slot, level}
			}
			args[i] = g.Object
		default:
			return nil, &SlotError{slot, level}
		}
	}
	return args, nil
}

// ExpressionCondition is a BetaCondition that evaluates an Expression
// over the facts at the given pattern positions.
type ExpressionCondition struct {
	Expr  Expression
	Slots []int

	// Source is an optional description (for rendering).
	Source string
}

func (c *ExpressionCondition) IsSatisfiedBy(ctx *ExecutionContext, t *Tuple, f *Fact) (bool, error) {
	args, err := Arguments(t, f, c.Slots)
	if err != nil {
		return false, err
	}
	x, err := c.Expr.Evaluate(ctx.Context(), args)
	if err != nil {
		return false, err
	}
	b, is := x.(bool)
	if !is {
		return false, NotBoolean
	}
	return b, nil
}

func (c *ExpressionCondition) String() string {
	return c.Source
}

// Selector computes a value from a (tuple, fact) pair for an
// aggregator.
type Selector interface {
	Invoke(ctx *ExecutionContext, t *Tuple, f *Fact) (interface{}, error)
}

// SelectorFunc makes a Go function a Selector.
type SelectorFunc func(ctx *ExecutionContext, t *Tuple, f *Fact) (interface{}, error)

func (s SelectorFunc) Invoke(ctx *ExecutionContext, t *Tuple, f *Fact) (interface{}, error) {
	return s(ctx, t, f)
}

// ExpressionSelector is a Selector backed by an Expression over the
// facts at the given pattern positions.
type ExpressionSelector struct {
	Expr  Expression
	Slots []int

	Source string
}

func (s *ExpressionSelector) Invoke(ctx *ExecutionContext, t *Tuple, f *Fact) (interface{}, error) {
	args, err := Arguments(t, f, s.Slots)
	if err != nil {
		return nil, err
	}
	return s.Expr.Evaluate(ctx.Context(), args)
}

// FactSelector selects the fact's own object.
var FactSelector = SelectorFunc(func(ctx *ExecutionContext, t *Tuple, f *Fact) (interface{}, error) {
	if f.IsWrapperFact() {
		return f.WrappedTuple().Objects(), nil
	}
	return f.Object, nil
})
