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

func TestPipeline(t *testing.T) {
	t.Run("a round trip attaches the original request to the response", func(t *testing.T) {
		req := require.New(t)

		passRequest := NewHandler1("request", "value", func(request *http.Request) (string, error) {
			return request.URL.Query().Get("value"), nil
		})
		passResponse := NewHandler1("response", "response", func(response *Response) (*Response, error) {
			return response, nil
		})

		pipeline, err := NewPipeline(
			[]*OperationHandler{passRequest},
			stringOperation("Echo", NewParameter[string]("value")),
			[]*OperationHandler{responder(), passResponse},
		)
		req.NoError(err)

		request := httptest.NewRequest(http.MethodGet, "/things?value=hello", nil)
		parameters := make([]interface{}, 1)

		ctx, err := pipeline.ExecuteRequestPipeline(request, parameters)
		req.NoError(err)
		req.Equal("hello", parameters[0])
		req.Equal(pipeline.Info().ServiceOperationIndex(), ctx.HandlerIndex())

		response, err := pipeline.ExecuteResponsePipeline(ctx, parameters[0], nil)
		req.NoError(err)
		req.Same(request, response.Request)
		req.Equal(http.StatusOK, response.StatusCode)
		req.Equal("hello", string(response.Content.Body))
	})

	t.Run("string values are converted for the operation's inputs", func(t *testing.T) {
		req := require.New(t)

		count := NewHandler1("request", "count", func(request *http.Request) (string, error) {
			return request.URL.Query().Get("count"), nil
		})
		pipeline, err := NewPipeline([]*OperationHandler{count}, stringOperation("Count", NewParameter[int]("count")), []*OperationHandler{responder()})
		req.NoError(err)

		parameters := make([]interface{}, 1)
		_, err = pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/things?count=42", nil), parameters)
		req.NoError(err)
		req.Equal(42, parameters[0])

		_, err = pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/things?count=many", nil), parameters)
		var handlerErr *HandlerError
		req.True(errors.As(err, &handlerErr))
		req.Equal(ConvertFromStringFailed, handlerErr.Kind)
		req.Equal("Count", handlerErr.Operation)
	})

	t.Run("handler errors propagate unchanged", func(t *testing.T) {
		req := require.New(t)

		failure := errors.New("no")
		failing := NewHandler1("request", "value", func(*http.Request) (string, error) { return "", failure })

		pipeline, err := NewPipeline([]*OperationHandler{failing}, stringOperation("Echo", NewParameter[string]("value")), []*OperationHandler{responder()})
		req.NoError(err)

		_, err = pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/things", nil), make([]interface{}, 1))
		req.Same(failure, err)
	})

	t.Run("a parameter slice of the wrong size is rejected", func(t *testing.T) {
		req := require.New(t)

		pipeline, err := NewPipeline(nil, stringOperation("Get"), []*OperationHandler{responder()})
		req.NoError(err)

		_, err = pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/things", nil), make([]interface{}, 2))
		var handlerErr *HandlerError
		req.True(errors.As(err, &handlerErr))
		req.Equal(InputCountMismatch, handlerErr.Kind)
	})

	t.Run("operation outputs flow to response handlers after the return value", func(t *testing.T) {
		req := require.New(t)

		result := NewParameter[string](ResultParameterName)
		operation := &OperationDescription{
			Name:             "Tagged",
			InputParameters:  nil,
			OutputParameters: []Parameter{NewParameter[string]("etag")},
			ReturnValue:      &result,
		}

		tagged := NewHandler2("result", "etag", "response", func(result string, etag string) (*Response, error) {
			response := NewResponse(http.StatusOK)
			response.Header.Set("ETag", etag)
			response.Content = &Content{Body: []byte(result)}
			return response, nil
		})

		pipeline, err := NewPipeline(nil, operation, []*OperationHandler{tagged})
		req.NoError(err)

		ctx, err := pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/", nil), nil)
		req.NoError(err)

		response, err := pipeline.ExecuteResponsePipeline(ctx, "body", []interface{}{"v1"})
		req.NoError(err)
		req.Equal("v1", response.Header.Get("ETag"))
		req.Equal("body", string(response.Content.Body))
	})

	t.Run("outputs of the wrong type are rejected", func(t *testing.T) {
		req := require.New(t)

		pipeline, err := NewPipeline(nil, stringOperation("Get"), []*OperationHandler{responder()})
		req.NoError(err)

		ctx, err := pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/", nil), nil)
		req.NoError(err)

		_, err = pipeline.ExecuteResponsePipeline(ctx, 12, nil)
		var handlerErr *HandlerError
		req.True(errors.As(err, &handlerErr))
		req.Equal(WrongOutputType, handlerErr.Kind)
	})

	t.Run("a context from another pipeline is rejected", func(t *testing.T) {
		req := require.New(t)

		first, err := NewPipeline(nil, stringOperation("First"), []*OperationHandler{responder()})
		req.NoError(err)
		second, err := NewPipeline(nil, stringOperation("Second"), []*OperationHandler{responder()})
		req.NoError(err)

		ctx, err := first.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/", nil), nil)
		req.NoError(err)

		_, err = second.ExecuteResponsePipeline(ctx, "x", nil)
		req.Error(err)
	})

	t.Run("a nil response is reported", func(t *testing.T) {
		req := require.New(t)

		nothing := NewHandler1("result", "response", func(string) (*Response, error) { return nil, nil })
		pipeline, err := NewPipeline(nil, stringOperation("Get"), []*OperationHandler{nothing})
		req.NoError(err)

		ctx, err := pipeline.ExecuteRequestPipeline(httptest.NewRequest(http.MethodGet, "/", nil), nil)
		req.NoError(err)

		_, err = pipeline.ExecuteResponsePipeline(ctx, "x", nil)
		req.Error(err)
		req.Contains(err.Error(), "did not produce a response")
	})
}
