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
	"strings"
)

// BindingErrorKind classifies configuration time failures.
type BindingErrorKind int

const (
	AmbiguousBinding BindingErrorKind = iota
	UnboundParameter
	NoResponseSource
	MalformedHandler
	DuplicateRoute
	InvalidOperation
)

var bindingErrorKindNames = map[BindingErrorKind]string{
	AmbiguousBinding: "ambiguous binding",
	UnboundParameter: "unbound parameter",
	NoResponseSource: "no response source",
	MalformedHandler: "malformed handler",
	DuplicateRoute:   "duplicate route",
	InvalidOperation: "invalid operation",
}

func (k BindingErrorKind) String() string {
	if name, ok := bindingErrorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BindingErrorKind(%d)", int(k))
}

// BindingCandidate identifies an output parameter that competed for an input parameter.
type BindingCandidate struct {
	Handler     string
	HandlerKind HandlerKind
	Parameter   Parameter
}

func (c BindingCandidate) String() string {
	return fmt.Sprintf("%s handler [%s] output parameter [%s] of type [%s]", c.HandlerKind, c.Handler, c.Parameter.Name, c.Parameter.TypeName())
}

// BindingError is returned while building pipelines and selectors. These errors indicate a configuration problem
// and are never produced while serving a request.
type BindingError struct {
	Kind        BindingErrorKind
	Operation   string
	Handler     string
	HandlerKind HandlerKind
	Parameter   Parameter
	Candidates  []BindingCandidate
	Message     string
	Cause       error
}

func (e *BindingError) Error() string {
	msg := e.Message

	if len(e.Candidates) > 0 {
		var candidates []string
		for _, candidate := range e.Candidates {
			candidates = append(candidates, candidate.String())
		}
		msg += " candidates: [" + strings.Join(candidates, "; ") + "]"
	}

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *BindingError) Unwrap() error {
	return e.Cause
}

// HandlerErrorKind classifies failures raised while a handler is invoked.
type HandlerErrorKind int

const (
	InputCountMismatch HandlerErrorKind = iota
	WrongInputType
	ConvertFromStringFailed
	ContentExtractionFailed
	OutputCountMismatch
	WrongOutputType
)

var handlerErrorKindNames = map[HandlerErrorKind]string{
	InputCountMismatch:      "input count mismatch",
	WrongInputType:          "wrong input type",
	ConvertFromStringFailed: "convert from string failed",
	ContentExtractionFailed: "content extraction failed",
	OutputCountMismatch:     "output count mismatch",
	WrongOutputType:         "wrong output type",
}

func (k HandlerErrorKind) String() string {
	if name, ok := handlerErrorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("HandlerErrorKind(%d)", int(k))
}

// HandlerError is returned from OperationHandler.Handle when values flowing into or out of a handler do not match
// its declared parameters.
type HandlerError struct {
	Kind      HandlerErrorKind
	Handler   string
	Operation string
	Parameter Parameter
	Value     interface{}
	Expected  int
	Actual    int
	Cause     error
}

func (e *HandlerError) Error() string {
	var msg string

	switch e.Kind {
	case InputCountMismatch:
		msg = fmt.Sprintf("handler [%s] for operation [%s] expected %d input values but received %d", e.Handler, e.Operation, e.Expected, e.Actual)
	case OutputCountMismatch:
		msg = fmt.Sprintf("handler [%s] for operation [%s] declared %d output values but produced %d", e.Handler, e.Operation, e.Expected, e.Actual)
	case WrongInputType:
		msg = fmt.Sprintf("handler [%s] for operation [%s] received a value of type [%T] for input parameter [%s] of type [%s]", e.Handler, e.Operation, e.Value, e.Parameter.Name, e.Parameter.TypeName())
	case ConvertFromStringFailed:
		msg = fmt.Sprintf("handler [%s] for operation [%s] could not convert the string [%v] to type [%s] for input parameter [%s]", e.Handler, e.Operation, e.Value, e.Parameter.TypeName(), e.Parameter.Name)
	case ContentExtractionFailed:
		msg = fmt.Sprintf("handler [%s] for operation [%s] failed to extract the content for input parameter [%s] of type [%s]", e.Handler, e.Operation, e.Parameter.Name, e.Parameter.TypeName())
	case WrongOutputType:
		msg = fmt.Sprintf("handler [%s] for operation [%s] produced a value of type [%T] for output parameter [%s] of type [%s]", e.Handler, e.Operation, e.Value, e.Parameter.Name, e.Parameter.TypeName())
	default:
		msg = fmt.Sprintf("handler [%s] for operation [%s] failed: %s", e.Handler, e.Operation, e.Kind)
	}

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// NotFoundError is returned by the selector when no operation matches the request URI under any method.
type NotFoundError struct {
	Method string
	URL    *url.URL
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no operation matches %s %s", e.Method, e.URL)
}

func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// MethodNotAllowedError is returned by the selector when the request URI matches operations only under other
// methods. Allow lists those methods.
type MethodNotAllowedError struct {
	Method string
	URL    *url.URL
	Allow  []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s is not allowed for %s, allowed methods: [%s]", e.Method, e.URL, strings.Join(e.Allow, ", "))
}

func (e *MethodNotAllowedError) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// RedirectError is returned by the selector when the request matched an operation only after adding or removing a
// trailing slash and the TrailingSlashMode is AutoRedirect.
type RedirectError struct {
	Operation string
	Location  *url.URL
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("operation [%s] is located at %s", e.Operation, e.Location)
}

func (e *RedirectError) StatusCode() int {
	return http.StatusTemporaryRedirect
}

// ResponseError lets a handler end the pipeline early with a response of its choosing.
type ResponseError struct {
	Response *Response
}

// NewResponseError creates a ResponseError for the given response.
func NewResponseError(response *Response) *ResponseError {
	return &ResponseError{Response: response}
}

func (e *ResponseError) Error() string {
	if e.Response == nil {
		return "pipeline ended with an empty response"
	}
	return fmt.Sprintf("pipeline ended with a %d response", e.Response.StatusCode)
}
