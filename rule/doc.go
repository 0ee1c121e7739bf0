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

// Package rule describes rules as patterns over typed facts and
// compiles them into a core.Network.
//
// A RuleBuilder declares a pattern for each fact the rule matches.
// Each declaration gets a name, a type, and a position, which is the
// fact's index in the tuples of the rule.  Conditions and aggregate
// selectors name the declarations they use, and those names are
// resolved immediately: a name that isn't in scope is a *BindingError
// at build time, never a problem while facts are flowing.
//
// A RuleBuilder's Aggregate gets its own scope.  Declarations made in
// that scope are visible to its patterns and selector, but not to the
// rest of the rule.
package rule
