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
	"io"
	"net/http"
	"net/url"
	"reflect"

	"github.com/pkg/errors"
)

type uriTemplateHandler struct {
	baseAddress *url.URL
	template    *UriTemplate
	operation   string
	names       []string
}

// NewUriTemplateHandler creates a request handler that outputs every variable of template as a string parameter
// named after the variable. It uses the match stored on the request context by the Service when present and
// matches the request itself otherwise.
func NewUriTemplateHandler(baseAddress *url.URL, template *UriTemplate) *OperationHandler {
	return newOperationUriTemplateHandler(baseAddress, template, "")
}

// newOperationUriTemplateHandler also accepts any context match made for operation, including one the selector
// made after toggling the trailing slash of the request uri.
func newOperationUriTemplateHandler(baseAddress *url.URL, template *UriTemplate, operation string) *OperationHandler {
	return NewOperationHandler(&uriTemplateHandler{
		baseAddress: baseAddress,
		template:    template,
		operation:   operation,
		names:       template.VariableNames(),
	})
}

func (h *uriTemplateHandler) isOwnMatch(match *UriTemplateMatch) bool {
	if match == nil {
		return false
	}
	if match.Template == h.template {
		return true
	}
	name, _ := match.Data.(string)
	return h.operation != "" && name == h.operation
}

func (h *uriTemplateHandler) Name() string {
	return "UriTemplateHandler"
}

func (h *uriTemplateHandler) InputParameters() []Parameter {
	return []Parameter{NewParameter[*http.Request](requestParameterName)}
}

func (h *uriTemplateHandler) OutputParameters() []Parameter {
	var outputs []Parameter
	for _, name := range h.names {
		outputs = append(outputs, NewParameter[string](name))
	}
	return outputs
}

func (h *uriTemplateHandler) Handle(input []interface{}) ([]interface{}, error) {
	request, _ := input[0].(*http.Request)
	if request == nil {
		return nil, errors.New("no request available to match the uri template against")
	}

	match := UriTemplateMatchFromRequestContext(request.Context())
	if !h.isOwnMatch(match) {
		match = h.template.Match(h.baseAddress, requestUri(request))
	}

	if match == nil {
		return nil, errors.Errorf("request uri [%s] does not match template [%s]", request.URL, h.template)
	}

	outputs := make([]interface{}, len(h.names))
	for i, name := range h.names {
		value, _ := match.Variable(name)
		outputs[i] = value
	}

	return outputs, nil
}

type requestContentHandler struct {
	parameter   Parameter
	formatters  []Formatter
	maxBodySize int64
}

// NewRequestContentHandler creates a request handler that reads the request body into parameter using the
// formatter matching the request's Content-Type. Bodies larger than maxBodySize are answered with 413; zero
// means no limit.
func NewRequestContentHandler(parameter Parameter, formatters []Formatter, maxBodySize int64) *OperationHandler {
	return NewOperationHandler(&requestContentHandler{
		parameter:   parameter,
		formatters:  formatters,
		maxBodySize: maxBodySize,
	})
}

func (h *requestContentHandler) Name() string {
	return "RequestContentHandler"
}

func (h *requestContentHandler) InputParameters() []Parameter {
	return []Parameter{NewParameter[*http.Request](requestParameterName)}
}

func (h *requestContentHandler) OutputParameters() []Parameter {
	return []Parameter{h.parameter}
}

func (h *requestContentHandler) Handle(input []interface{}) ([]interface{}, error) {
	request, _ := input[0].(*http.Request)
	if request == nil || request.Body == nil {
		return []interface{}{nil}, nil
	}

	var reader io.Reader = request.Body
	if h.maxBodySize > 0 {
		reader = http.MaxBytesReader(nil, request.Body, h.maxBodySize)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, NewResponseError(NewResponse(http.StatusRequestEntityTooLarge))
		}
		return nil, errors.Wrapf(err, "could not read the request body for parameter [%s]", h.parameter.Name)
	}

	if len(body) == 0 {
		return []interface{}{nil}, nil
	}

	formatter := selectReader(h.formatters, request.Header.Get("Content-Type"), h.parameter.Type())
	if formatter == nil {
		return nil, NewResponseError(NewResponse(http.StatusUnsupportedMediaType))
	}

	value, err := formatter.Read(body, h.parameter.Type())
	if err != nil {
		response := NewResponse(http.StatusBadRequest)
		response.Content = &Content{MediaType: "text/plain; charset=utf-8", Body: []byte(err.Error())}
		return nil, NewResponseError(response)
	}

	return []interface{}{value}, nil
}

type responseContentHandler struct {
	value      Parameter
	formatters []Formatter
}

// NewResponseContentHandler creates a response handler that writes value into a *Response using the formatter
// selected by the request's Accept header. A nil value produces a 204 response.
func NewResponseContentHandler(value Parameter, formatters []Formatter) *OperationHandler {
	return NewOperationHandler(&responseContentHandler{
		value:      value,
		formatters: formatters,
	})
}

func (h *responseContentHandler) Name() string {
	return "ResponseContentHandler"
}

func (h *responseContentHandler) InputParameters() []Parameter {
	return []Parameter{NewParameter[*http.Request](requestParameterName), h.value}
}

func (h *responseContentHandler) OutputParameters() []Parameter {
	return []Parameter{NewParameter[*Response](responseParameterName)}
}

func (h *responseContentHandler) Handle(input []interface{}) ([]interface{}, error) {
	request, _ := input[0].(*http.Request)
	value := input[1]

	if isNilValue(value) {
		return []interface{}{NewResponse(http.StatusNoContent)}, nil
	}

	accept := ""
	if request != nil {
		accept = request.Header.Get("Accept")
	}

	formatter := selectWriter(h.formatters, accept, h.value.Type())
	if formatter == nil {
		return nil, NewResponseError(NewResponse(http.StatusNotAcceptable))
	}

	body, err := formatter.Write(value)
	if err != nil {
		return nil, errors.Wrapf(err, "could not write response value [%s] as %s", h.value.Name, formatter.MediaType())
	}

	response := NewResponse(http.StatusOK)
	response.Content = &Content{MediaType: formatter.MediaType(), Body: body}

	return []interface{}{response}, nil
}

func isNilValue(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	return isNillable(v.Type()) && v.IsNil()
}
