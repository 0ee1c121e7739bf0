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
	"encoding/json"
	"fmt"
	"reflect"
)

// Fact wraps one item of working memory.
//
// The Id is assigned by the WorkingMemory when the fact is created and
// stays the same for the fact's whole life, even when Update replaces
// the Object.  Every per-fact map in this package is keyed by Id, so
// Objects do not need to be comparable.
type Fact struct {
	Id     int64
	Object interface{}

	// wrapped is the tuple of a nested subnetwork when this Fact is
	// a wrapper fact.
	wrapped *Tuple
}

// NewFact makes a Fact for the given object.
func NewFact(id int64, x interface{}) *Fact {
	return &Fact{
		Id:     id,
		Object: x,
	}
}

// NewWrapperFact makes a Fact whose payload is the given Tuple.
//
// Wrapper facts are how a subnetwork's partial matches re-enter the
// parent network as single units.
func NewWrapperFact(id int64, t *Tuple) *Fact {
	return &Fact{
		Id:      id,
		Object:  t,
		wrapped: t,
	}
}

// IsWrapperFact reports whether the fact wraps a Tuple.
func (f *Fact) IsWrapperFact() bool {
	return f != nil && f.wrapped != nil
}

// WrappedTuple returns the wrapped Tuple or nil.
func (f *Fact) WrappedTuple() *Tuple {
	if f == nil {
		return nil
	}
	return f.wrapped
}

func (f *Fact) String() string {
	if f == nil {
		return "nil"
	}
	if f.wrapped != nil {
		return fmt.Sprintf("fact %d/%s", f.Id, f.wrapped)
	}
	js, err := json.Marshal(f.Object)
	if err != nil {
		return fmt.Sprintf("fact %d/%#v", f.Id, f.Object)
	}
	return fmt.Sprintf("fact %d/%s", f.Id, js)
}

// Objects returns the objects of the given facts.
//
// For a wrapper fact, the object is the list of the wrapped tuple's
// objects.
func Objects(fs []*Fact) []interface{} {
	acc := make([]interface{}, 0, len(fs))
	for _, f := range fs {
		if f.IsWrapperFact() {
			acc = append(acc, f.wrapped.Objects())
			continue
		}
		acc = append(acc, f.Object)
	}
	return acc
}

// TypeOf returns the type name used to route an object to alpha
// nodes.
//
// An object that implements Typed reports its own type.  A map with a
// string "type" property uses that property.  Otherwise the name of
// the Go type is used.
func TypeOf(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case Typed:
		return vv.FactType()
	case map[string]interface{}:
		if s, is := vv["type"].(string); is {
			return s
		}
	}
	t := reflect.TypeOf(x)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Typed can be implemented by fact objects that know their own type.
type Typed interface {
	FactType() string
}
