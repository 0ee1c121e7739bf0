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

package aggregators

import (
	"sort"
	"strings"

	"github.com/Comcast/rete/core"
)

// Factory is a core.AggregatorFactory made from a name and a
// constructor.
type Factory struct {
	name string
	make func() core.Aggregator
}

func (f *Factory) Name() string {
	return f.name
}

func (f *Factory) Create() core.Aggregator {
	return f.make()
}

// Constructor makes a factory for an aggregator given an optional
// selector.
type Constructor func(sel core.Selector) (*Factory, error)

// MissingSelector occurs when an aggregator that needs a selector
// doesn't get one.
type MissingSelector struct {
	Aggregator string
}

func (e *MissingSelector) Error() string {
	return "aggregator " + e.Aggregator + " needs a selector"
}

// UnknownAggregator occurs when a name isn't in the registry.
type UnknownAggregator struct {
	Name string
}

func (e *UnknownAggregator) Error() string {
	return "unknown aggregator '" + e.Name + "' (known: " + strings.Join(Names(), ", ") + ")"
}

func Flatten(sel core.Selector) (*Factory, error) {
	if sel == nil {
		return nil, &MissingSelector{"flatten"}
	}
	return &Factory{"flatten", func() core.Aggregator { return NewFlattening(sel) }}, nil
}

// Project uses core.FactSelector when sel is nil.
func Project(sel core.Selector) (*Factory, error) {
	if sel == nil {
		sel = core.FactSelector
	}
	return &Factory{"project", func() core.Aggregator { return NewProjection(sel) }}, nil
}

func Collect(sel core.Selector) (*Factory, error) {
	return &Factory{"collect", func() core.Aggregator { return NewCollection(sel) }}, nil
}

// Count ignores sel.
func Count(sel core.Selector) (*Factory, error) {
	return &Factory{"count", func() core.Aggregator { return NewCount() }}, nil
}

func Sum(sel core.Selector) (*Factory, error) {
	if sel == nil {
		return nil, &MissingSelector{"sum"}
	}
	return &Factory{"sum", func() core.Aggregator { return NewSum(sel) }}, nil
}

// Registry maps names to Constructors.
var Registry = map[string]Constructor{
	"flatten": Flatten,
	"project": Project,
	"collect": Collect,
	"count":   Count,
	"sum":     Sum,
}

// Names returns the registered names in order.
func Names() []string {
	acc := make([]string, 0, len(Registry))
	for name := range Registry {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Lookup makes a factory for the named aggregator.
func Lookup(name string, sel core.Selector) (*Factory, error) {
	c, have := Registry[name]
	if !have {
		return nil, &UnknownAggregator{name}
	}
	return c(sel)
}
