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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func describe(name, method, template string) *OperationDescription {
	return &OperationDescription{Name: name, Method: method, UriTemplate: template}
}

func newSelector(t *testing.T, mode TrailingSlashMode, operations ...*OperationDescription) *UriAndMethodOperationSelector {
	t.Helper()
	selector, err := NewUriAndMethodOperationSelector(mustParseUrl(t, "http://localhost/"), operations, mode)
	require.NoError(t, err)
	return selector
}

func TestUriAndMethodOperationSelector(t *testing.T) {
	t.Run("an exact match selects the operation without a trailing slash difference", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect,
			describe("Get", http.MethodGet, "items/{id}"),
			describe("Update", http.MethodPut, "items/{id}"),
		)

		operation, match, differs, ok := selector.TrySelectOperation(httptest.NewRequest(http.MethodGet, "/items/123", nil))
		req.True(ok)
		req.False(differs)
		req.Equal("Get", operation)
		req.Equal("123", match.BoundVariables["id"])

		operation, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodPut, "/items/123", nil))
		req.NoError(err)
		req.Equal("Update", operation)
	})

	t.Run("a wildcard matching nothing redirects to the slash terminated uri", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect, describe("Bar", http.MethodGet, "bar/{*foo}"))
		request := httptest.NewRequest(http.MethodGet, "/bar", nil)

		operation, _, differs, ok := selector.TrySelectOperation(request)
		req.True(ok)
		req.True(differs)
		req.Equal("Bar", operation)

		_, _, err := selector.SelectOperation(request)
		var redirectErr *RedirectError
		req.True(errors.As(err, &redirectErr))
		req.Equal("Bar", redirectErr.Operation)
		req.Equal("/bar/", redirectErr.Location.Path)
	})

	t.Run("a trailing slash the template lacks redirects to the uri without it", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect, describe("List", http.MethodGet, "items"))

		_, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/items/?page=2", nil))
		var redirectErr *RedirectError
		req.True(errors.As(err, &redirectErr))
		req.Equal("/items", redirectErr.Location.Path)
		req.Equal("page=2", redirectErr.Location.RawQuery)
	})

	t.Run("ignore mode selects the operation despite a trailing slash difference", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, Ignore,
			describe("List", http.MethodGet, "items"),
			describe("Bar", http.MethodGet, "bar/{*foo}"),
		)

		operation, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/items/", nil))
		req.NoError(err)
		req.Equal("List", operation)

		operation, _, err = selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/bar", nil))
		req.NoError(err)
		req.Equal("Bar", operation)
	})

	t.Run("a uri registered under other methods is method not allowed", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect,
			describe("Create", http.MethodPost, "items"),
			describe("Replace", http.MethodPut, "items"),
		)

		_, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/items", nil))
		var notAllowed *MethodNotAllowedError
		req.True(errors.As(err, &notAllowed))
		req.Equal([]string{http.MethodPost, http.MethodPut}, notAllowed.Allow)

		_, _, _, ok := selector.TrySelectOperation(httptest.NewRequest(http.MethodGet, "/items", nil))
		req.False(ok)
	})

	t.Run("an unknown uri is not found", func(t *testing.T) {
		selector := newSelector(t, AutoRedirect, describe("Create", http.MethodPost, "items"))

		_, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodPost, "/other", nil))
		var notFound *NotFoundError
		require.True(t, errors.As(err, &notFound))
	})

	t.Run("the wildcard method serves every method after the method tables", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect,
			describe("Get", http.MethodGet, "items"),
			describe("Any", WildcardMethod, "items"),
		)

		operation, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/items", nil))
		req.NoError(err)
		req.Equal("Get", operation)

		operation, _, err = selector.SelectOperation(httptest.NewRequest(http.MethodDelete, "/items", nil))
		req.NoError(err)
		req.Equal("Any", operation)
	})

	t.Run("the catch all operation takes everything else", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect,
			describe("Create", http.MethodPost, "items"),
			describe("Fallback", WildcardMethod, WildcardUriTemplate),
		)

		operation, match, err := selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/items", nil))
		req.NoError(err)
		req.Equal("Fallback", operation)
		req.Nil(match)

		operation, _, err = selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/nowhere/at/all", nil))
		req.NoError(err)
		req.Equal("Fallback", operation)
	})

	t.Run("defaults apply for missing methods and templates", func(t *testing.T) {
		req := require.New(t)

		selector := newSelector(t, AutoRedirect, describe("Echo", "", ""))

		operation, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodPost, "/Echo", nil))
		req.NoError(err)
		req.Equal("Echo", operation)
		req.Equal([]Route{{Method: http.MethodPost, UriTemplate: "Echo", Operation: "Echo"}}, selector.Routes())
	})

	t.Run("equivalent templates under one method are duplicate routes", func(t *testing.T) {
		_, err := NewUriAndMethodOperationSelector(nil, []*OperationDescription{
			describe("First", http.MethodGet, "items/{id}"),
			describe("Second", http.MethodGet, "items/{key}"),
		}, AutoRedirect)
		bindingErr := requireBindingError(t, err, DuplicateRoute)
		require.Equal(t, "Second", bindingErr.Operation)

		_, err = NewUriAndMethodOperationSelector(nil, []*OperationDescription{
			describe("First", WildcardMethod, WildcardUriTemplate),
			describe("Second", WildcardMethod, WildcardUriTemplate),
		}, AutoRedirect)
		requireBindingError(t, err, DuplicateRoute)
	})

	t.Run("equivalent templates under different methods are allowed", func(t *testing.T) {
		_, err := NewUriAndMethodOperationSelector(nil, []*OperationDescription{
			describe("Get", http.MethodGet, "items/{id}"),
			describe("Delete", http.MethodDelete, "items/{key}"),
		}, AutoRedirect)
		require.NoError(t, err)
	})

	t.Run("an invalid template is an invalid operation", func(t *testing.T) {
		_, err := NewUriAndMethodOperationSelector(nil, []*OperationDescription{
			describe("Broken", http.MethodGet, "items/{*rest}/more"),
		}, AutoRedirect)
		requireBindingError(t, err, InvalidOperation)
	})

	t.Run("templates match below the base address", func(t *testing.T) {
		req := require.New(t)

		selector, err := NewUriAndMethodOperationSelector(mustParseUrl(t, "http://localhost/api/v1"), []*OperationDescription{
			describe("List", http.MethodGet, "items"),
		}, AutoRedirect)
		req.NoError(err)

		operation, _, err := selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
		req.NoError(err)
		req.Equal("List", operation)

		_, _, err = selector.SelectOperation(httptest.NewRequest(http.MethodGet, "/items", nil))
		var notFound *NotFoundError
		req.True(errors.As(err, &notFound))
	})
}

func TestParseTrailingSlashMode(t *testing.T) {
	req := require.New(t)

	mode, err := ParseTrailingSlashMode("autoRedirect")
	req.NoError(err)
	req.Equal(AutoRedirect, mode)

	mode, err = ParseTrailingSlashMode("IGNORE")
	req.NoError(err)
	req.Equal(Ignore, mode)

	_, err = ParseTrailingSlashMode("sometimes")
	req.Error(err)
}
