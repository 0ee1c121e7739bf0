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

// Package aggregators has the Aggregators that AggregateNodes use.
//
// Every aggregator keeps one entry per contributing fact, keyed by
// fact id.  Add requires that a fact has no entry yet, and Modify and
// Remove require that it has one.  Breaking those rules panics with a
// *core.InvariantViolation.
//
// Flattening (and Projection, which is a one-item Flattening) emits a
// result per selected item.  On Modify it removes every old item and
// adds every new one, without trying to find what stayed the same.
// Collection, Count, and Sum maintain a single result.
package aggregators
