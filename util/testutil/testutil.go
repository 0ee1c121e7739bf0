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

// Package testutil has helpers for tests that compare things as
// JSON.
package testutil

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Comcast/rete/core"
)

// JS renders its argument as JSON or as a string indicating an error.
//
// Facts and tuples render as their objects, so tests can compare
// them as JSON.
func JS(x interface{}) string {
	switch vv := x.(type) {
	case *core.Fact:
		if vv != nil {
			x = vv.Object
		}
	case []*core.Fact:
		x = core.Objects(vv)
	case *core.Tuple:
		if vv != nil {
			x = vv.Objects()
		}
	}
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// When given anything else, just returns what's given.
//
// Panics if the string isn't JSON.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			panic(err)
		}
		return v
	default:
		return x
	}
}

// Dwimjss applies Dwimjs to each of its arguments.
func Dwimjss(xs ...interface{}) []interface{} {
	acc := make([]interface{}, len(xs))
	for i, x := range xs {
		acc[i] = Dwimjs(x)
	}
	return acc
}

// SameJS reports whether x renders as the same JSON as want, which is
// parsed with Dwimjs first.  Map keys are sorted by encoding/json, so
// key order doesn't matter.
func SameJS(x interface{}, want interface{}) bool {
	return JS(x) == JS(Dwimjs(want))
}
