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
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/michaelquigley/pfxlog"
)

const (
	// WildcardMethod registers an operation for every HTTP method.
	WildcardMethod = "*"
	// WildcardUriTemplate combined with WildcardMethod registers the catch-all operation.
	WildcardUriTemplate = "*"
)

// TrailingSlashMode decides what happens when a request matches an operation only after adding or removing a
// trailing slash.
type TrailingSlashMode int

const (
	// AutoRedirect answers with a 307 redirect to the URI the operation was matched with.
	AutoRedirect TrailingSlashMode = iota
	// Ignore dispatches to the matched operation.
	Ignore
)

func (mode TrailingSlashMode) String() string {
	switch mode {
	case AutoRedirect:
		return "autoRedirect"
	case Ignore:
		return "ignore"
	}
	return fmt.Sprintf("TrailingSlashMode(%d)", int(mode))
}

// ParseTrailingSlashMode parses "autoRedirect" or "ignore", ignoring case.
func ParseTrailingSlashMode(value string) (TrailingSlashMode, error) {
	switch strings.ToLower(value) {
	case "autoredirect":
		return AutoRedirect, nil
	case "ignore":
		return Ignore, nil
	}
	return AutoRedirect, fmt.Errorf("invalid trailing slash mode [%s], must be one of autoRedirect, ignore", value)
}

// Route is a single method and template registration of a selector.
type Route struct {
	Method      string
	UriTemplate string
	Operation   string
}

// UriAndMethodOperationSelector maps a request's method and URI to an operation name using one UriTemplateTable
// per HTTP method.
type UriAndMethodOperationSelector struct {
	baseAddress           *url.URL
	methodTables          map[string]*UriTemplateTable
	wildcardTable         *UriTemplateTable
	catchAllOperationName string
	trailingSlashMode     TrailingSlashMode
	routes                []Route
}

type operationSelection struct {
	operation              string
	match                  *UriTemplateMatch
	differsByTrailingSlash bool
	normalizedUri          *url.URL
}

// NewUriAndMethodOperationSelector builds the method tables for operations. Operations without a method default
// to POST and operations without a template default to their name. Two operations with equivalent templates
// under the same method are rejected with a *BindingError of kind DuplicateRoute.
func NewUriAndMethodOperationSelector(baseAddress *url.URL, operations []*OperationDescription, mode TrailingSlashMode) (*UriAndMethodOperationSelector, error) {
	if baseAddress == nil {
		baseAddress = &url.URL{Path: "/"}
	}

	selector := &UriAndMethodOperationSelector{
		baseAddress:       baseAddress,
		methodTables:      map[string]*UriTemplateTable{},
		trailingSlashMode: mode,
	}

	for _, operation := range operations {
		method := strings.ToUpper(operation.Method)
		if method == "" {
			method = http.MethodPost
		}

		template := operation.UriTemplate
		if template == "" {
			template = operation.Name
		}

		if method == WildcardMethod && template == WildcardUriTemplate {
			if selector.catchAllOperationName != "" {
				return nil, &BindingError{
					Kind:      DuplicateRoute,
					Operation: operation.Name,
					Message:   fmt.Sprintf("operations [%s] and [%s] are both registered as the catch-all operation", selector.catchAllOperationName, operation.Name),
				}
			}
			selector.catchAllOperationName = operation.Name
			selector.routes = append(selector.routes, Route{Method: method, UriTemplate: template, Operation: operation.Name})
			continue
		}

		parsed, err := ParseUriTemplate(template)
		if err != nil {
			return nil, &BindingError{
				Kind:      InvalidOperation,
				Operation: operation.Name,
				Message:   fmt.Sprintf("operation [%s] has an invalid uri template", operation.Name),
				Cause:     err,
			}
		}

		table := selector.wildcardTable
		if method == WildcardMethod {
			if table == nil {
				table = NewUriTemplateTable(baseAddress)
				selector.wildcardTable = table
			}
		} else {
			table = selector.methodTables[method]
			if table == nil {
				table = NewUriTemplateTable(baseAddress)
				selector.methodTables[method] = table
			}
		}

		if err := table.Add(parsed, operation.Name); err != nil {
			if bindingErr, ok := err.(*BindingError); ok {
				bindingErr.Operation = operation.Name
				bindingErr.Message = fmt.Sprintf("method [%s]: %s", method, bindingErr.Message)
			}
			return nil, err
		}

		selector.routes = append(selector.routes, Route{Method: method, UriTemplate: template, Operation: operation.Name})
	}

	for _, table := range selector.methodTables {
		table.MakeReadOnly()
	}
	if selector.wildcardTable != nil {
		selector.wildcardTable.MakeReadOnly()
	}

	return selector, nil
}

// BaseAddress returns the base address templates are matched relative to.
func (selector *UriAndMethodOperationSelector) BaseAddress() *url.URL {
	return selector.baseAddress
}

// TrailingSlashMode returns the selector's trailing slash policy.
func (selector *UriAndMethodOperationSelector) TrailingSlashMode() TrailingSlashMode {
	return selector.trailingSlashMode
}

// Routes returns the registrations in the order they were added.
func (selector *UriAndMethodOperationSelector) Routes() []Route {
	routes := make([]Route, len(selector.routes))
	copy(routes, selector.routes)
	return routes
}

// SelectOperation returns the name of the operation for request along with the template match. When no operation
// matches it returns a *NotFoundError or, if other methods match the URI, a *MethodNotAllowedError. When the match
// differs from the request only by a trailing slash and the mode is AutoRedirect it returns a *RedirectError.
func (selector *UriAndMethodOperationSelector) SelectOperation(request *http.Request) (string, *UriTemplateMatch, error) {
	selection, err := selector.selectOperation(request)
	if err != nil {
		return "", nil, err
	}

	if selection.differsByTrailingSlash && selector.trailingSlashMode == AutoRedirect {
		pfxlog.Logger().Debugf("redirecting %s %s to %s for operation [%s]", request.Method, request.URL, selection.normalizedUri, selection.operation)
		return "", nil, &RedirectError{
			Operation: selection.operation,
			Location:  selection.normalizedUri,
		}
	}

	return selection.operation, selection.match, nil
}

// TrySelectOperation returns the operation for request without applying the trailing slash policy. ok is false
// when no operation matches.
func (selector *UriAndMethodOperationSelector) TrySelectOperation(request *http.Request) (operation string, match *UriTemplateMatch, differsByTrailingSlash bool, ok bool) {
	selection, err := selector.selectOperation(request)
	if err != nil {
		return "", nil, false, false
	}
	return selection.operation, selection.match, selection.differsByTrailingSlash, true
}

func (selector *UriAndMethodOperationSelector) selectOperation(request *http.Request) (*operationSelection, error) {
	candidate := requestUri(request)
	method := strings.ToUpper(request.Method)

	if table, found := selector.methodTables[method]; found {
		selection, err := selector.matchTable(table, candidate)
		if selection != nil || err != nil {
			return selection, err
		}
	}

	if selector.wildcardTable != nil {
		match, err := selector.wildcardTable.MatchSingle(candidate)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return selector.selection(match, candidate), nil
		}
	}

	if selector.catchAllOperationName != "" {
		return &operationSelection{operation: selector.catchAllOperationName}, nil
	}

	var allow []string
	for otherMethod, table := range selector.methodTables {
		if otherMethod == method {
			continue
		}
		if selection, _ := selector.matchTable(table, candidate); selection != nil {
			allow = append(allow, otherMethod)
		}
	}

	if len(allow) > 0 {
		sort.Strings(allow)
		return nil, &MethodNotAllowedError{Method: request.Method, URL: candidate, Allow: allow}
	}

	return nil, &NotFoundError{Method: request.Method, URL: candidate}
}

// matchTable probes table with candidate and, failing that, with candidate's trailing slash toggled.
func (selector *UriAndMethodOperationSelector) matchTable(table *UriTemplateTable, candidate *url.URL) (*operationSelection, error) {
	match, err := table.MatchSingle(candidate)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return selector.selection(match, candidate), nil
	}

	alternate := toggleTrailingSlash(candidate)
	if alternate == nil {
		return nil, nil
	}

	match, err = table.MatchSingle(alternate)
	if err != nil || match == nil {
		return nil, err
	}

	return &operationSelection{
		operation:              match.Data.(string),
		match:                  match,
		differsByTrailingSlash: !strings.EqualFold(alternate.EscapedPath(), selector.baseAddress.EscapedPath()),
		normalizedUri:          alternate,
	}, nil
}

func (selector *UriAndMethodOperationSelector) selection(match *UriTemplateMatch, candidate *url.URL) *operationSelection {
	selection := &operationSelection{
		operation: match.Data.(string),
		match:     match,
	}

	if match.impliedTrailingSlash {
		selection.differsByTrailingSlash = true
		selection.normalizedUri = withPath(candidate, candidate.EscapedPath()+"/")
	}

	return selection
}

// requestUri returns the absolute URI of request.
func requestUri(request *http.Request) *url.URL {
	uri := *request.URL
	if uri.Host == "" {
		uri.Host = request.Host
	}
	if uri.Scheme == "" {
		uri.Scheme = "http"
		if request.TLS != nil {
			uri.Scheme = "https"
		}
	}
	return &uri
}

func toggleTrailingSlash(uri *url.URL) *url.URL {
	path := uri.EscapedPath()
	if path == "" || path == "/" {
		return nil
	}
	if strings.HasSuffix(path, "/") {
		return withPath(uri, strings.TrimSuffix(path, "/"))
	}
	return withPath(uri, path+"/")
}

func withPath(uri *url.URL, escapedPath string) *url.URL {
	result := *uri
	if path, err := url.PathUnescape(escapedPath); err == nil {
		result.Path = path
		result.RawPath = escapedPath
	} else {
		result.Path = escapedPath
		result.RawPath = ""
	}
	return &result
}
