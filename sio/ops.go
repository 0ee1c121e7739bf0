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

package sio

import (
	"encoding/json"
	"errors"
	"fmt"
)

// The operations a Runner understands.
const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpRetract = "retract"
	OpFire    = "fire"
	OpQuery   = "query"
	OpFacts   = "facts"
)

var (
	// MissingId occurs when an update or retraction doesn't say
	// which fact.
	MissingId = errors.New("missing fact id")

	// MissingRule occurs when a query doesn't name a rule.
	MissingRule = errors.New("missing rule")
)

// UnknownOp is returned for an Op the Runner doesn't understand.
type UnknownOp struct {
	Op string
}

func (e *UnknownOp) Error() string {
	return fmt.Sprintf("unknown op '%s'", e.Op)
}

// UnknownId is returned for an Op that refers to a fact that doesn't
// exist.
type UnknownId struct {
	Id string
}

func (e *UnknownId) Error() string {
	return fmt.Sprintf("unknown fact '%s'", e.Id)
}

// UnknownRule is returned for a query of a rule that isn't in the
// network.
type UnknownRule struct {
	Rule string
}

func (e *UnknownRule) Error() string {
	return fmt.Sprintf("unknown rule '%s'", e.Rule)
}

// DuplicateId is returned when inserting with an id that's in use.
type DuplicateId struct {
	Id string
}

func (e *DuplicateId) Error() string {
	return fmt.Sprintf("fact '%s' already exists", e.Id)
}

// Op is a request to a Runner.
//
// Facts are identified by external ids.  An insert without an id gets
// one, which is reported in the Result.
type Op struct {
	Op   string      `json:"op"`
	Id   string      `json:"id,omitempty"`
	Fact interface{} `json:"fact,omitempty"`
	Rule string      `json:"rule,omitempty"`
}

// ParseOp interprets a message as an Op.
//
// A map with a string "op" property is an Op.  Anything else is a
// fact to insert.
func ParseOp(msg interface{}) (*Op, error) {
	m, is := msg.(map[string]interface{})
	if !is {
		return &Op{Op: OpInsert, Fact: msg}, nil
	}
	if _, is := m["op"].(string); !is {
		return &Op{Op: OpInsert, Fact: msg}, nil
	}
	js, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var op Op
	if err = json.Unmarshal(js, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Emission is something that a rule emitted.
type Emission struct {
	Rule    string      `json:"rule"`
	Message interface{} `json:"msg"`
}

// Result is all visible output from processing an Op.
type Result struct {
	Op *Op `json:"op"`

	// Id is the id of the fact the Op inserted, updated, or
	// retracted.
	Id string `json:"id,omitempty"`

	// Fired is the number of rules that fired.
	Fired int `json:"fired,omitempty"`

	// Emitted is what rules emitted, in order.
	Emitted []*Emission `json:"emitted,omitempty"`

	// Matches are the objects of each match of a query's rule.
	Matches [][]interface{} `json:"matches,omitempty"`

	// Facts are the objects of the external facts by id.
	Facts map[string]interface{} `json:"facts,omitempty"`

	// Retracted are the ids of external facts that rules
	// retracted.
	Retracted []string `json:"retracted,omitempty"`

	Error string `json:"error,omitempty"`
}
