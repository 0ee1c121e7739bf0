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

// Package storage defines how a session's facts are persisted.
//
// Facts are stored by the external ids that couplings use for them
// (see package sio).
package storage

import (
	"context"
	"sort"
)

// FactState is a fact as stored in a Storage system.
type FactState struct {
	// Id is the external id for the fact.
	Id string `json:"id,omitempty"`

	// Seq orders facts so that they can be reinserted in the
	// order they were first inserted.
	Seq int64 `json:"seq"`

	Object interface{} `json:"object"`

	// Deleted indicates that this fact has been retracted.
	Deleted bool `json:"-" yaml:"-"`
}

// Storage is a persistence interface for sessions' facts.
type Storage interface {
	MakeSession(ctx context.Context, sid string) error

	RemSession(ctx context.Context, sid string) error

	// GetSession returns the session's facts ordered by Seq.
	GetSession(ctx context.Context, sid string) ([]*FactState, error)

	WriteState(ctx context.Context, sid string, fss []*FactState) error
}

// SortBySeq sorts the given facts by Seq.
func SortBySeq(fss []*FactState) {
	sort.SliceStable(fss, func(i, j int) bool {
		return fss[i].Seq < fss[j].Seq
	})
}
