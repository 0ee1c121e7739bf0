/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package match matches JSON-like patterns against single facts.
//
// A pattern is a value made of maps, arrays, strings, numbers, bools,
// and nil.  A string that starts with '?' is a variable.  A map
// pattern matches a map fact that has at least the pattern's
// properties.  An array pattern is a set: each element must match a
// different element of the fact.
//
// "?" matches anything without binding.  A variable that starts with
// "??" is optional: a map property or array element with that value
// can be missing.  With Inequalities, a variable like "?<n" matches a
// number less than the binding for "?<n", and the number is bound to
// "?n".
//
// Patterns are how rule files filter facts before any join (see
// Filter).
package match

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Comcast/rete/core"
)

type Matcher struct {
	// Inequalities turns on "?<x", "?<=x", "?>x", "?>=x", and
	// "?!=x" variables.
	Inequalities bool
}

var DefaultMatcher = &Matcher{
	Inequalities: true,
}

// Bindings is a map from variables (strings starting with a '?') to
// their values.
type Bindings map[string]interface{}

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend adds the property.  The Bindings are modified.
func (bs Bindings) Extend(p string, v interface{}) Bindings {
	bs[p] = v
	return bs
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// IsVariable reports if the string represents a pattern variable.
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

func isOptional(x interface{}) bool {
	s, is := x.(string)
	return is && strings.HasPrefix(s, "??")
}

// UnknownPatternType is an error that includes the thing that's
// causing the trouble.
type UnknownPatternType struct {
	Pattern interface{}
}

func (e *UnknownPatternType) Error() string {
	return "unknown pattern type"
}

// fudge is a hack to cast numbers to float64s.
func fudge(x interface{}) interface{} {
	switch vv := x.(type) {
	case float32:
		return float64(vv)
	case int64:
		return float64(vv)
	case int32:
		return float64(vv)
	case int:
		return float64(vv)
	default:
		return x
	}
}

// Canonical turns x into the plain JSON-like values that patterns
// match.  Values that are already plain are returned as is.
func Canonical(x interface{}) (interface{}, error) {
	switch x.(type) {
	case nil, bool, float64, float32, int, int32, int64, string, map[string]interface{}, []interface{}:
		return x, nil
	}
	js, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// Match returns every way the fact matches the pattern given initial
// bindings, which are not modified.  No match is an empty result, not
// an error.
func (m *Matcher) Match(pattern interface{}, fact interface{}, bs Bindings) ([]Bindings, error) {
	if bs == nil {
		bs = NewBindings()
	}
	return m.match(pattern, fact, bs.Copy())
}

// match can modify bs.
func (m *Matcher) match(p interface{}, f interface{}, bs Bindings) ([]Bindings, error) {
	p, f = fudge(p), fudge(f)

	switch pv := p.(type) {
	case nil:
		if f == nil {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case bool:
		if fv, is := f.(bool); is && fv == pv {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case float64:
		if fv, is := f.(float64); is && fv == pv {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case string:
		if !IsVariable(pv) {
			if fv, is := f.(string); is && fv == pv {
				return []Bindings{bs}, nil
			}
			return nil, nil
		}
		return m.variable(pv, f, bs)

	case map[string]interface{}:
		fm, is := f.(map[string]interface{})
		if !is {
			return nil, nil
		}
		return m.mapMatch(pv, fm, bs)

	case []interface{}:
		fa, is := f.([]interface{})
		if !is {
			return nil, nil
		}
		return m.setMatch(pv, fa, make([]bool, len(fa)), bs)

	default:
		return nil, &UnknownPatternType{p}
	}
}

func (m *Matcher) variable(v string, f interface{}, bs Bindings) ([]Bindings, error) {
	if v == "?" {
		return []Bindings{bs}, nil
	}
	if m.Inequalities {
		if using, bss := inequal(v, f, bs); using {
			return bss, nil
		}
	}
	if x, have := bs[v]; have {
		return m.match(x, f, bs)
	}
	bs[v] = f
	return []Bindings{bs}, nil
}

func (m *Matcher) mapMatch(pm, fm map[string]interface{}, bs Bindings) ([]Bindings, error) {
	// Sorted for deterministic results.
	ks := make([]string, 0, len(pm))
	for k := range pm {
		ks = append(ks, k)
	}
	sort.Strings(ks)

	bss := []Bindings{bs}
	for _, k := range ks {
		pv := pm[k]
		fv, have := fm[k]
		if !have {
			if isOptional(pv) {
				continue
			}
			return nil, nil
		}
		var next []Bindings
		for _, b := range bss {
			acc, err := m.match(pv, fv, b.Copy())
			if err != nil {
				return nil, err
			}
			next = append(next, acc...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		bss = next
	}
	return bss, nil
}

func atomic(x interface{}) bool {
	switch vv := x.(type) {
	case nil, bool, float64:
		return true
	case string:
		return !IsVariable(vv)
	}
	return false
}

// setMatch matches each pattern element to a distinct unused fact
// element, backtracking as needed.
func (m *Matcher) setMatch(ps, fs []interface{}, used []bool, bs Bindings) ([]Bindings, error) {
	if len(ps) == 0 {
		return []Bindings{bs}, nil
	}
	p := fudge(ps[0])
	var acc []Bindings
	for i, f := range fs {
		if used[i] {
			continue
		}
		bss, err := m.match(p, f, bs.Copy())
		if err != nil {
			return nil, err
		}
		for _, b := range bss {
			used[i] = true
			more, err := m.setMatch(ps[1:], fs, used, b)
			used[i] = false
			if err != nil {
				return nil, err
			}
			acc = append(acc, more...)
		}
		// Equal constants are interchangeable.
		if 0 < len(bss) && atomic(p) {
			break
		}
	}
	if len(acc) == 0 && isOptional(p) {
		return m.setMatch(ps[1:], fs, used, bs)
	}
	return acc, nil
}

var inequalities = []string{"<=", ">=", "!=", ">", "<"}

// inequal handles a variable like "?<n" that has a numeric binding.
func inequal(v string, f interface{}, bs Bindings) (bool, []Bindings) {
	x, have := bs[v]
	if !have {
		return false, nil
	}
	b, is := fudge(x).(float64)
	if !is {
		return false, nil
	}
	var op, bare string
	for _, ie := range inequalities {
		if strings.HasPrefix(v[1:], ie) {
			op, bare = ie, "?"+v[1+len(ie):]
			break
		}
	}
	if op == "" || bare == "?" {
		return false, nil
	}
	a, is := fudge(f).(float64)
	if !is {
		return true, nil
	}

	var ok bool
	switch op {
	case "<":
		ok = a < b
	case "<=":
		ok = a <= b
	case ">":
		ok = a > b
	case ">=":
		ok = a >= b
	case "!=":
		ok = a != b
	}
	if !ok {
		return true, nil
	}
	if y, given := bs[bare]; given {
		if c, is := fudge(y).(float64); !is || c != a {
			return true, nil
		}
		return true, []Bindings{bs}
	}
	bs[bare] = a
	return true, []Bindings{bs}
}

func Match(pattern interface{}, fact interface{}, bindings Bindings) ([]Bindings, error) {
	return DefaultMatcher.Match(pattern, fact, bindings)
}

// Filter makes an alpha condition that accepts the objects that match
// the pattern given the bindings.
func (m *Matcher) Filter(pattern interface{}, bindings Bindings) core.AlphaCondition {
	return func(ctx context.Context, x interface{}) (bool, error) {
		y, err := Canonical(x)
		if err != nil {
			return false, err
		}
		bss, err := m.Match(pattern, y, bindings)
		if err != nil {
			return false, err
		}
		return 0 < len(bss), nil
	}
}

// Filter uses the DefaultMatcher.
func Filter(pattern interface{}, bindings Bindings) core.AlphaCondition {
	return DefaultMatcher.Filter(pattern, bindings)
}

// ParsePattern parses a pattern in JSON.
func ParsePattern(js string) (interface{}, error) {
	var p interface{}
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		return nil, err
	}
	return p, nil
}
