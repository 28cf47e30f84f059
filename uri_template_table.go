/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xoperation

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

type uriTemplateTableEntry struct {
	template *UriTemplate
	data     interface{}
}

// UriTemplateTable holds a set of non-equivalent UriTemplates sharing a base address. Tables are built at
// configuration time and then made read-only; matching a read-only table needs no locking.
type UriTemplateTable struct {
	baseAddress *url.URL
	entries     []uriTemplateTableEntry
	readOnly    bool
}

// NewUriTemplateTable creates an empty table for baseAddress.
func NewUriTemplateTable(baseAddress *url.URL) *UriTemplateTable {
	return &UriTemplateTable{baseAddress: baseAddress}
}

// Add adds template with its associated data. Adding a template equivalent to one already present fails and the
// returned error is a *BindingError of kind DuplicateRoute.
func (table *UriTemplateTable) Add(template *UriTemplate, data interface{}) error {
	if table.readOnly {
		return errors.New("uri template table is read-only")
	}

	for _, entry := range table.entries {
		if entry.template.IsEquivalentTo(template) {
			return &BindingError{
				Kind:    DuplicateRoute,
				Message: fmt.Sprintf("template [%s] for [%v] is equivalent to template [%s] for [%v]", template, data, entry.template, entry.data),
			}
		}
	}

	table.entries = append(table.entries, uriTemplateTableEntry{template: template, data: data})
	return nil
}

// MakeReadOnly freezes the table.
func (table *UriTemplateTable) MakeReadOnly() {
	table.readOnly = true
}

// IsReadOnly reports whether MakeReadOnly has been called.
func (table *UriTemplateTable) IsReadOnly() bool {
	return table.readOnly
}

// Len returns the number of templates in the table.
func (table *UriTemplateTable) Len() int {
	return len(table.entries)
}

// Match returns a match for every template in the table that matches candidate.
func (table *UriTemplateTable) Match(candidate *url.URL) []*UriTemplateMatch {
	var matches []*UriTemplateMatch
	for _, entry := range table.entries {
		if match := entry.template.Match(table.baseAddress, candidate); match != nil {
			match.Data = entry.data
			matches = append(matches, match)
		}
	}
	return matches
}

// MatchSingle returns the most specific match for candidate or nil when nothing matches. An error is returned
// when two templates match with the same precedence.
func (table *UriTemplateTable) MatchSingle(candidate *url.URL) (*UriTemplateMatch, error) {
	matches := table.Match(candidate)
	if len(matches) == 0 {
		return nil, nil
	}

	best := matches[0]
	ambiguous := false
	for _, match := range matches[1:] {
		switch compared := comparePrecedence(match.Template, best.Template); {
		case compared > 0:
			best = match
			ambiguous = false
		case compared == 0:
			ambiguous = true
		}
	}

	if ambiguous {
		return nil, errors.Errorf("more than one template matches [%s] with the same precedence", candidate)
	}

	return best, nil
}
