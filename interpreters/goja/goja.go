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

// Package goja compiles ECMAScript conditions and selectors into
// core.Expressions using Goja.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/rete/core"
	"github.com/Comcast/rete/match"
	"github.com/Comcast/rete/util"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Evaluate if the evaluation is
	// interrupted because its context was done.
	Interrupted = errors.New(InterruptedMessage)

	// NotAFunction is returned when compiled code doesn't produce
	// a function.
	NotAFunction = errors.New("compiled code isn't a function")
)

// BadParameter is returned by Compile for a parameter name that
// isn't an ECMAScript identifier.
type BadParameter struct {
	Name string
}

func (e *BadParameter) Error() string {
	return fmt.Sprintf("bad parameter name '%s'", e.Name)
}

// ArityError is returned by Evaluate when given the wrong number of
// arguments.
type ArityError struct {
	Want, Got int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("wanted %d arguments, got %d", e.Want, e.Got)
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Interpreter compiles ECMAScript source into Expressions.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// LibraryProvider resolves the names in a source's
	// "requires".  DefaultLibraryProvider is used if this field
	// is nil.
	LibraryProvider LibraryProvider
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	if s, is := x.(string); is {
		code = s
	} else {
		err = errors.New("bad Goja code")
		return
	}

	x = vv["requires"]
	switch vv := x.(type) {
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	}

	return
}

// AsSource accepts either a string of code or a map with "code" and
// optional "requires" properties.
//
// Maps with interface{} keys (as made by some YAML parsers) are
// accepted too.
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{})
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// wrapSrc makes a function of the code with the given parameters.
//
// When asExpression is true, the code is returned as an expression.
// Otherwise the code is a function body that must say 'return'.
func wrapSrc(params []string, code string, asExpression bool) string {
	ps := strings.Join(params, ",")
	if asExpression {
		return fmt.Sprintf("(function(%s) {\nreturn (\n%s\n);\n});\n", ps, code)
	}
	return fmt.Sprintf("(function(%s) {\n%s\n});\n", ps, code)
}

// Compile compiles the source into an Expression with the given
// parameters.  The expression's arguments are bound to the parameters
// in order.
//
// The code can be a single expression, like
//
//	o.owner == c.name
//
// or a function body with an explicit return.
//
// This method can block if the interpreter's library provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}, params []string) (core.Expression, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	for _, p := range params {
		if !identifier.MatchString(p) {
			return nil, &BadParameter{p}
		}
	}

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	expr := strings.TrimRight(strings.TrimSpace(code), "; \t\n")
	p, err := goja.Compile("", libsSrc+wrapSrc(params, expr, true), true)
	if err != nil {
		var err2 error
		if p, err2 = goja.Compile("", libsSrc+wrapSrc(params, code, false), true); err2 != nil {
			return nil, errors.New(err2.Error() + ": " + code)
		}
	}

	e := &Expression{
		Source: code,
		Params: params,
		i:      i,
		p:      p,
	}

	// Check that the program makes a function now rather than
	// during some later evaluation.
	r, err := e.runtime()
	if err != nil {
		return nil, err
	}
	e.runtimes.Put(r)

	return e, nil
}

// Expression is a compiled ECMAScript function.
//
// An Expression can be used from multiple goroutines.  Each
// evaluation borrows a Goja runtime from a pool.
type Expression struct {
	Source string
	Params []string

	i        *Interpreter
	p        *goja.Program
	runtimes sync.Pool
}

type runtime struct {
	o  *goja.Runtime
	fn goja.Callable
}

func (e *Expression) runtime() (*runtime, error) {
	if r, is := e.runtimes.Get().(*runtime); is {
		return r, nil
	}

	o := goja.New()
	o.SetFieldNameMapper(fieldNames{})
	e.i.env(o)

	v, err := o.RunProgram(e.p)
	if err != nil {
		return nil, err
	}
	fn, is := goja.AssertFunction(v)
	if !is {
		return nil, NotAFunction
	}
	return &runtime{
		o:  o,
		fn: fn,
	}, nil
}

// fieldNames exposes struct fields by their JSON names, or by their Go
// names when they have no JSON tag.
type fieldNames struct{}

func (fieldNames) FieldName(_ reflect.Type, f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if i := strings.IndexByte(tag, ','); 0 <= i {
		tag = tag[:i]
	}
	switch tag {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return tag
}

func (fieldNames) MethodName(_ reflect.Type, m reflect.Method) string {
	return m.Name
}

func (e *Expression) String() string {
	return e.Source
}

// Evaluate implements core.Expression.
//
// If the context is done before the evaluation finishes, the
// evaluation is interrupted and Interrupted is returned.
func (e *Expression) Evaluate(ctx context.Context, args []interface{}) (interface{}, error) {
	if len(args) != len(e.Params) {
		return nil, &ArityError{len(e.Params), len(args)}
	}

	r, err := e.runtime()
	if err != nil {
		return nil, err
	}

	vs := make([]goja.Value, len(args))
	for j, x := range args {
		vs[j] = r.o.ToValue(x)
	}

	var (
		stop    chan struct{}
		stopped chan struct{}
	)
	if done := ctx.Done(); done != nil {
		stop = make(chan struct{})
		stopped = make(chan struct{})
		go func() {
			defer close(stopped)
			select {
			case <-done:
				r.o.Interrupt(InterruptedMessage)
			case <-stop:
			}
		}()
	}

	v, err := r.fn(goja.Undefined(), vs...)

	if stop != nil {
		close(stop)
		<-stopped
		r.o.ClearInterrupt()
	}
	e.runtimes.Put(r)

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// env sets up the runtime.
//
// The following properties are available from the runtime at _.
//
//	gensym(): generate a random string.
//	cronNext(expr): the next time (RFC3339) for the cron expression.
//	esc(s): URL query-escape the given string.
//	log(x): log the given value as JSON.
//	match(pat, obj, bindings): Execute the pattern matcher.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
func (i *Interpreter) env(o *goja.Runtime) {
	env := map[string]interface{}{}

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["gensym"] = func() interface{} {
		return util.Gensym(32)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		cronExpr, is := x.(string)
		if !is {
			protest(o, "not a string")
		}

		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["log"] = func(x interface{}) interface{} {
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("goja.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	}

	// match is a utility that invokes the pattern matcher.
	env["match"] = func(pat, mess, bs goja.Value) interface{} {
		bindings := match.NewBindings()

		if bs != nil && !goja.IsUndefined(bs) && !goja.IsNull(bs) {
			x, err := util.Canonicalize(bs.Export())
			if err != nil {
				protest(o, err.Error())
			}
			m, is := x.(map[string]interface{})
			if !is {
				protest(o, "bad bindings")
			}
			bindings = match.Bindings(m)
		}

		p, err := util.Canonicalize(pat.Export())
		if err != nil {
			protest(o, err.Error())
		}
		m, err := util.Canonicalize(mess.Export())
		if err != nil {
			protest(o, err.Error())
		}

		bss, err := match.Match(p, m, bindings)
		if err != nil {
			protest(o, err.Error())
		}
		if bss == nil {
			bss = []match.Bindings{}
		}

		x, err := util.Canonicalize(bss)
		if err != nil {
			protest(o, err.Error())
		}
		return x
	}

	o.Set("_", env)
}
