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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type item struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

func defaultOptions() ServiceOptions {
	options := ServiceOptions{}
	options.Default()
	return options
}

func newItemService(t *testing.T, options ServiceOptions) *Service {
	t.Helper()

	items := map[int]*item{1: {Id: 1, Name: "first"}}

	get := NewOperation1("Get", http.MethodGet, "items/{id}", "id", func(id int) (*item, error) {
		if found, ok := items[id]; ok {
			return found, nil
		}
		response := NewResponse(http.StatusNotFound)
		return nil, NewResponseError(response)
	})

	create := NewOperation1("Create", http.MethodPost, "items", "item", func(value item) (*item, error) {
		items[value.Id] = &value
		return &value, nil
	})

	remove := NewAction1("Delete", http.MethodDelete, "items/{id}", "id", func(id int) error {
		delete(items, id)
		return nil
	})

	fail := NewOperation0("Fail", http.MethodGet, "fail", func() (string, error) {
		return "", errors.New("boom")
	})

	files := NewOperation1("Files", http.MethodGet, "files/{*path}", "path", func(path string) (string, error) {
		return path, nil
	})

	service, err := NewService("items", options, get, create, remove, fail, files)
	require.NoError(t, err)
	return service
}

func TestService(t *testing.T) {
	t.Run("template variables convert into operation inputs and results are written as json", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(newItemService(t, defaultOptions()), http.MethodGet, "/items/1")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal("application/json", recorder.Header().Get("Content-Type"))

		var result item
		req.NoError(json.Unmarshal(recorder.Body.Bytes(), &result))
		req.Equal(item{Id: 1, Name: "first"}, result)
	})

	t.Run("the request body is read into the remaining input", func(t *testing.T) {
		req := require.New(t)

		service := newItemService(t, defaultOptions())

		request := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"id":2,"name":"second"}`))
		request.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		service.ServeHTTP(recorder, request)
		req.Equal(http.StatusOK, recorder.Code)

		recorder = serve(service, http.MethodGet, "/items/2")
		req.Equal(http.StatusOK, recorder.Code)
		req.Contains(recorder.Body.String(), `"second"`)
	})

	t.Run("a malformed body is a bad request", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"id":`))
		recorder := httptest.NewRecorder()
		newItemService(t, defaultOptions()).ServeHTTP(recorder, request)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("operations without a return value answer no content", func(t *testing.T) {
		req := require.New(t)

		service := newItemService(t, defaultOptions())
		req.Equal(http.StatusNoContent, serve(service, http.MethodDelete, "/items/1").Code)
		req.Equal(http.StatusNotFound, serve(service, http.MethodGet, "/items/1").Code)
	})

	t.Run("a response error is written as its response", func(t *testing.T) {
		recorder := serve(newItemService(t, defaultOptions()), http.MethodGet, "/items/99")
		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("a method without a route is not allowed and lists the allowed methods", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(newItemService(t, defaultOptions()), http.MethodPatch, "/items/1")
		req.Equal(http.StatusMethodNotAllowed, recorder.Code)
		req.Equal("DELETE, GET", recorder.Header().Get("Allow"))
	})

	t.Run("an unknown uri is not found", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, serve(newItemService(t, defaultOptions()), http.MethodGet, "/nothing").Code)
	})

	t.Run("a trailing slash difference redirects", func(t *testing.T) {
		req := require.New(t)

		recorder := serve(newItemService(t, defaultOptions()), http.MethodGet, "/files")
		req.Equal(http.StatusTemporaryRedirect, recorder.Code)
		location, err := url.Parse(recorder.Header().Get("Location"))
		req.NoError(err)
		req.Equal("/files/", location.Path)
	})

	t.Run("a trailing slash difference is served when ignored", func(t *testing.T) {
		req := require.New(t)

		options := defaultOptions()
		options.TrailingSlashMode = Ignore

		recorder := serve(newItemService(t, options), http.MethodGet, "/files")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(`""`, recorder.Body.String())
	})

	t.Run("a trailing slash the template lacks is served when ignored", func(t *testing.T) {
		req := require.New(t)

		options := defaultOptions()
		options.TrailingSlashMode = Ignore

		recorder := serve(newItemService(t, options), http.MethodGet, "/items/1/")
		req.Equal(http.StatusOK, recorder.Code)

		var result item
		req.NoError(json.Unmarshal(recorder.Body.Bytes(), &result))
		req.Equal(item{Id: 1, Name: "first"}, result)
	})

	t.Run("request bodies above the size limit are rejected", func(t *testing.T) {
		req := require.New(t)

		options := defaultOptions()
		options.MaxRequestBodySize = 16
		service := newItemService(t, options)

		request := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"id":3,"name":"much too long a name"}`))
		request.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		service.ServeHTTP(recorder, request)
		req.Equal(http.StatusRequestEntityTooLarge, recorder.Code)

		request = httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"id":3}`))
		request.Header.Set("Content-Type", "application/json")
		recorder = httptest.NewRecorder()
		service.ServeHTTP(recorder, request)
		req.Equal(http.StatusOK, recorder.Code)
	})

	t.Run("other errors are internal server errors", func(t *testing.T) {
		require.Equal(t, http.StatusInternalServerError, serve(newItemService(t, defaultOptions()), http.MethodGet, "/fail").Code)
	})

	t.Run("the error handler receives unhandled errors", func(t *testing.T) {
		req := require.New(t)

		service := newItemService(t, defaultOptions())

		var received []error
		service.ErrorHandler = func(writer http.ResponseWriter, _ *http.Request, err error) {
			received = append(received, err)
			writer.WriteHeader(http.StatusTeapot)
		}

		req.Equal(http.StatusTeapot, serve(service, http.MethodGet, "/fail").Code)
		req.Equal(http.StatusTeapot, serve(service, http.MethodGet, "/items/abc").Code)
		req.Len(received, 2)
		req.EqualError(received[0], "boom")

		var handlerErr *HandlerError
		req.True(errors.As(received[1], &handlerErr))
		req.Equal(ConvertFromStringFailed, handlerErr.Kind)
		req.Equal("Get", handlerErr.Operation)
	})

	t.Run("service handlers wrap every operation", func(t *testing.T) {
		req := require.New(t)

		options := defaultOptions()
		options.ResponseHandlers = []*OperationHandler{
			NewHandler1("response", "response", func(response *Response) (*Response, error) {
				response.Header.Set("X-Served-By", "items")
				return response, nil
			}),
		}

		service := newItemService(t, options)
		req.Equal("items", serve(service, http.MethodGet, "/items/1").Header().Get("X-Served-By"))
		req.Equal("items", serve(service, http.MethodDelete, "/items/1").Header().Get("X-Served-By"))
	})

	t.Run("request handlers can read the selected operation from the request context", func(t *testing.T) {
		req := require.New(t)

		whoami := NewOperation1("Whoami", http.MethodGet, "whoami", "operationName", func(name string) (string, error) {
			return name, nil
		}).WithRequestHandlers(NewHandler1("request", "operationName", func(request *http.Request) (string, error) {
			return OperationFromRequestContext(request.Context()), nil
		}))

		service, err := NewService("whoami", defaultOptions(), whoami)
		req.NoError(err)

		recorder := serve(service, http.MethodGet, "/whoami")
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal(`"Whoami"`, recorder.Body.String())
	})

	t.Run("operations are served below the base address", func(t *testing.T) {
		req := require.New(t)

		options := defaultOptions()
		options.RootPath = "/api"

		service := newItemService(t, options)
		req.Equal("/api", service.RootPath())
		req.True(service.IsHandler(httptest.NewRequest(http.MethodGet, "/api/items/1", nil)))
		req.Equal(http.StatusOK, serve(service, http.MethodGet, "/api/items/1").Code)
		req.Equal(http.StatusNotFound, serve(service, http.MethodGet, "/items/1").Code)
	})
}

func TestNewService(t *testing.T) {
	t.Run("every broken operation is reported", func(t *testing.T) {
		req := require.New(t)

		unbound := NewOperation2("Unbound", http.MethodGet, "unbound", "a", "b", func(a, b string) (string, error) {
			return a + b, nil
		})
		noInvoker := &Operation{OperationDescription: OperationDescription{Name: "NoInvoker"}}
		first := NewOperation0("Same", http.MethodGet, "first", func() (string, error) { return "", nil })
		second := NewOperation0("Same", http.MethodGet, "second", func() (string, error) { return "", nil })

		_, err := NewService("broken", defaultOptions(), unbound, noInvoker, first, second)
		req.Error(err)

		errs := multierr.Errors(err)
		req.Len(errs, 3)
		requireBindingError(t, errs[0], UnboundParameter)
		requireBindingError(t, errs[1], InvalidOperation)
		requireBindingError(t, errs[2], InvalidOperation)
	})

	t.Run("routes are checked once every pipeline binds", func(t *testing.T) {
		first := NewOperation0("First", http.MethodGet, "items", func() (string, error) { return "", nil })
		second := NewOperation0("Second", http.MethodGet, "ITEMS", func() (string, error) { return "", nil })

		_, err := NewService("duplicate", defaultOptions(), first, second)
		requireBindingError(t, err, DuplicateRoute)
	})

	t.Run("invalid options are rejected", func(t *testing.T) {
		options := defaultOptions()
		options.RootPath = "api"

		_, err := NewService("invalid", options)
		req := require.New(t)
		req.Error(err)
		req.Contains(err.Error(), "invalid options for service [invalid]")
		req.Contains(err.Error(), "rootPath [api] must start with /")
		req.NotNil(errors.Unwrap(err))
	})

	t.Run("the pipeline of each operation is available by name", func(t *testing.T) {
		req := require.New(t)

		service := newItemService(t, defaultOptions())
		req.NotNil(service.Pipeline("Get"))
		req.Nil(service.Pipeline("Missing"))
		req.Len(service.Selector().Routes(), 5)
	})
}
