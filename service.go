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
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type serviceOperation struct {
	operation *Operation
	pipeline  *Pipeline
}

// Service is the ApiHandler for a set of operations. It selects an operation for each request with a
// UriAndMethodOperationSelector and runs the operation's Pipeline around its Invoker.
type Service struct {
	binding    string
	options    ServiceOptions
	rawOptions map[interface{}]interface{}
	selector   *UriAndMethodOperationSelector
	operations map[string]*serviceOperation

	// ErrorHandler writes the response for errors that are not routing errors or a *ResponseError. The default
	// writes an empty 500 response.
	ErrorHandler func(writer http.ResponseWriter, request *http.Request, err error)
}

var _ ApiHandler = &Service{}

// NewService builds the selector and one pipeline per operation. Every binding failure of every operation is
// returned, combined into a single error.
func NewService(binding string, options ServiceOptions, operations ...*Operation) (*Service, error) {
	if err := options.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid options for service [%s]", binding)
	}

	service := &Service{
		binding:    binding,
		options:    options,
		operations: map[string]*serviceOperation{},
	}

	var descriptions []*OperationDescription
	var errs error

	for _, operation := range operations {
		if operation == nil {
			errs = multierr.Append(errs, fmt.Errorf("service [%s] was given a nil operation", binding))
			continue
		}

		if _, found := service.operations[operation.Name]; found {
			errs = multierr.Append(errs, &BindingError{
				Kind:      InvalidOperation,
				Operation: operation.Name,
				Message:   fmt.Sprintf("service [%s] has more than one operation named [%s]", binding, operation.Name),
			})
			continue
		}

		if operation.Invoker == nil {
			errs = multierr.Append(errs, &BindingError{
				Kind:      InvalidOperation,
				Operation: operation.Name,
				Message:   fmt.Sprintf("operation [%s] of service [%s] has no invoker", operation.Name, binding),
			})
			continue
		}

		pipeline, err := service.buildPipeline(operation)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		pfxlog.Logger().WithField("binding", binding).WithField("operation", operation.Name).Debugf("built pipeline: %v", pipeline.Info())

		service.operations[operation.Name] = &serviceOperation{
			operation: operation,
			pipeline:  pipeline,
		}
		descriptions = append(descriptions, &operation.OperationDescription)
	}

	if errs != nil {
		return nil, errs
	}

	selector, err := NewUriAndMethodOperationSelector(options.BaseAddress, descriptions, options.TrailingSlashMode)
	if err != nil {
		return nil, err
	}
	service.selector = selector

	return service, nil
}

// buildPipeline composes the operation's handlers: uri template variables and the request body first, then the
// service and operation request handlers. On the way out the return value is formatted first so that response
// handlers see a *Response.
func (service *Service) buildPipeline(operation *Operation) (*Pipeline, error) {
	template := operation.UriTemplate
	if template == "" {
		template = operation.Name
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

	var requestHandlers []*OperationHandler
	requestHandlers = append(requestHandlers, newOperationUriTemplateHandler(service.options.BaseAddress, parsed, operation.Name))

	userRequestHandlers := append(append([]*OperationHandler{}, service.options.RequestHandlers...), operation.RequestHandlers...)

	if body, found := bodyParameter(operation, parsed, userRequestHandlers); found {
		requestHandlers = append(requestHandlers, NewRequestContentHandler(body, service.options.Formatters, service.options.MaxRequestBodySize))
	}
	requestHandlers = append(requestHandlers, userRequestHandlers...)

	var responseHandlers []*OperationHandler
	if operation.ReturnValue == nil {
		responseHandlers = append(responseHandlers, newNoContentHandler())
	} else if operation.ReturnValue.Type() != responseMessageType {
		responseHandlers = append(responseHandlers, NewResponseContentHandler(*operation.ReturnValue, service.options.Formatters))
	}
	responseHandlers = append(responseHandlers, operation.ResponseHandlers...)
	responseHandlers = append(responseHandlers, service.options.ResponseHandlers...)

	return NewPipeline(requestHandlers, &operation.OperationDescription, responseHandlers)
}

// bodyParameter returns the single operation input that is neither a template variable, a message type nor
// produced by a user request handler.
func bodyParameter(operation *Operation, template *UriTemplate, handlers []*OperationHandler) (Parameter, bool) {
	provided := map[string]struct{}{}
	for _, name := range template.VariableNames() {
		provided[strings.ToLower(name)] = struct{}{}
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		outputs, err := handler.OutputParameters()
		if err != nil {
			continue
		}
		for _, output := range outputs {
			provided[strings.ToLower(output.Name)] = struct{}{}
		}
	}

	var candidates []Parameter
	for _, input := range operation.InputParameters {
		if input.Converter == nil || isMarkerType(input.Type()) {
			continue
		}
		if _, found := provided[strings.ToLower(input.Name)]; found {
			continue
		}
		candidates = append(candidates, input)
	}

	if len(candidates) != 1 {
		return Parameter{}, false
	}

	return candidates[0], true
}

func newNoContentHandler() *OperationHandler {
	outputs := []Parameter{NewParameter[*Response](responseParameterName)}
	return NewHandlerFunc("NoContentHandler", nil, outputs, func([]interface{}) ([]interface{}, error) {
		return []interface{}{NewResponse(http.StatusNoContent)}, nil
	})
}

// Binding returns the binding the service was created for.
func (service *Service) Binding() string {
	return service.binding
}

// Options returns the raw configuration options the service was created from, if any.
func (service *Service) Options() map[interface{}]interface{} {
	return service.rawOptions
}

// RootPath returns the path prefix of the service.
func (service *Service) RootPath() string {
	return service.options.RootPath
}

// IsHandler reports whether the request is below the service's root path.
func (service *Service) IsHandler(r *http.Request) bool {
	return IsBelowRootPath(r.URL.Path, service.options.RootPath)
}

// IsDefault reports whether the service should receive requests no other ApiHandler claims.
func (service *Service) IsDefault() bool {
	return service.options.IsDefault
}

// Selector returns the service's operation selector.
func (service *Service) Selector() *UriAndMethodOperationSelector {
	return service.selector
}

// Pipeline returns the pipeline for the named operation or nil.
func (service *Service) Pipeline(operation string) *Pipeline {
	if op, found := service.operations[operation]; found {
		return op.pipeline
	}
	return nil
}

// Invoke selects the operation for request and runs it, returning the response message. Routing failures are
// returned as *NotFoundError, *MethodNotAllowedError or *RedirectError.
func (service *Service) Invoke(request *http.Request) (*Response, error) {
	name, match, err := service.selector.SelectOperation(request)
	if err != nil {
		return nil, err
	}

	op, found := service.operations[name]
	if !found {
		return nil, fmt.Errorf("selected operation [%s] is not part of service [%s]", name, service.binding)
	}

	ctx := context.WithValue(request.Context(), OperationContextKey, name)
	if match != nil {
		ctx = context.WithValue(ctx, UriTemplateMatchContextKey, match)
	}

	return op.invoke(request.WithContext(ctx))
}

func (op *serviceOperation) invoke(request *http.Request) (*Response, error) {
	parameters := make([]interface{}, len(op.operation.InputParameters))

	pipelineContext, err := op.pipeline.ExecuteRequestPipeline(request, parameters)
	if err != nil {
		return nil, err
	}

	result, outputs, err := op.operation.Invoker(parameters)
	if err != nil {
		return nil, err
	}

	return op.pipeline.ExecuteResponsePipeline(pipelineContext, result, outputs)
}

func (service *Service) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	response, err := service.Invoke(request)
	if err != nil {
		service.writeError(writer, request, err)
		return
	}

	if err := response.WriteTo(writer); err != nil {
		pfxlog.Logger().WithField("binding", service.binding).Errorf("error writing response for %s %s: %v", request.Method, request.URL, err)
	}
}

func (service *Service) writeError(writer http.ResponseWriter, request *http.Request, err error) {
	var responseErr *ResponseError
	var redirectErr *RedirectError
	var methodErr *MethodNotAllowedError
	var notFoundErr *NotFoundError

	switch {
	case errors.As(err, &responseErr) && responseErr.Response != nil:
		if writeErr := responseErr.Response.WriteTo(writer); writeErr != nil {
			pfxlog.Logger().WithField("binding", service.binding).Errorf("error writing response for %s %s: %v", request.Method, request.URL, writeErr)
		}
	case errors.As(err, &redirectErr):
		writer.Header().Set("Location", redirectErr.Location.String())
		writer.WriteHeader(redirectErr.StatusCode())
	case errors.As(err, &methodErr):
		writer.Header().Set("Allow", strings.Join(methodErr.Allow, ", "))
		writer.WriteHeader(methodErr.StatusCode())
	case errors.As(err, &notFoundErr):
		writer.WriteHeader(notFoundErr.StatusCode())
	default:
		if service.ErrorHandler != nil {
			service.ErrorHandler(writer, request, err)
			return
		}

		pfxlog.Logger().WithField("binding", service.binding).Errorf("error handling %s %s: %v", request.Method, request.URL, err)
		writer.WriteHeader(http.StatusInternalServerError)
	}
}
