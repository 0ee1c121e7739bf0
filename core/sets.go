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

// TupleFactSet pairs a Tuple with the facts that joined against it.
//
// Facts can be empty.  Join types that react to absent matches need
// to see such a tuple anyway.
type TupleFactSet struct {
	Tuple *Tuple
	Facts []*Fact
}

// TupleFactList is an ordered list of (tuple, fact) pairs.
//
// Binary nodes hand these pairs to a beta memory, which makes (or
// finds) the corresponding child tuples.
type TupleFactList struct {
	Tuples []*Tuple
	Facts  []*Fact
}

// Add appends a pair.
func (l *TupleFactList) Add(t *Tuple, f *Fact) {
	l.Tuples = append(l.Tuples, t)
	l.Facts = append(l.Facts, f)
}

// Count returns the number of pairs.
func (l *TupleFactList) Count() int {
	if l == nil {
		return 0
	}
	return len(l.Tuples)
}
