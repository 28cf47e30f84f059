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
	"sync"
)

// UnknownOperationName is reported in handler errors raised outside of a bound pipeline.
const UnknownOperationName = "unknown"

// Handler is a single stage of an operation's pipeline. It declares the values it consumes and produces, and maps
// input values to output values. InputParameters and OutputParameters are called once; the results are cached
// by the OperationHandler wrapping the Handler.
//
// Handle may be called concurrently for different requests. Implementations must be stateless or synchronize
// their own state.
type Handler interface {
	InputParameters() []Parameter
	OutputParameters() []Parameter
	Handle(input []interface{}) ([]interface{}, error)
}

// NamedHandler may be implemented by a Handler to control how it is identified in error messages.
type NamedHandler interface {
	Name() string
}

// OperationHandler wraps a Handler with parameter caching, input conversion and output validation. A single
// OperationHandler may be bound into any number of operation pipelines.
type OperationHandler struct {
	handler Handler
	name    string

	once    sync.Once
	inputs  []Parameter
	outputs []Parameter
	err     error
}

// NewOperationHandler wraps handler.
func NewOperationHandler(handler Handler) *OperationHandler {
	name := fmt.Sprintf("%T", handler)
	if named, ok := handler.(NamedHandler); ok && named.Name() != "" {
		name = named.Name()
	}

	return &OperationHandler{
		handler: handler,
		name:    name,
	}
}

// Name returns the handler's display name.
func (h *OperationHandler) Name() string {
	return h.name
}

// InputParameters returns a copy of the handler's validated input parameters.
func (h *OperationHandler) InputParameters() ([]Parameter, error) {
	inputs, _, err := h.describe()
	return copyParameters(inputs), err
}

// OutputParameters returns a copy of the handler's validated output parameters.
func (h *OperationHandler) OutputParameters() ([]Parameter, error) {
	_, outputs, err := h.describe()
	return copyParameters(outputs), err
}

func (h *OperationHandler) describe() ([]Parameter, []Parameter, error) {
	h.once.Do(func() {
		inputs := copyParameters(h.handler.InputParameters())
		outputs := copyParameters(h.handler.OutputParameters())

		if err := h.validateDeclared("input", inputs); err != nil {
			h.err = err
			return
		}

		if err := h.validateDeclared("output", outputs); err != nil {
			h.err = err
			return
		}

		h.inputs = inputs
		h.outputs = outputs
	})

	return h.inputs, h.outputs, h.err
}

func (h *OperationHandler) validateDeclared(direction string, parameters []Parameter) error {
	for i, parameter := range parameters {
		if err := parameter.Validate(); err != nil {
			return &BindingError{
				Kind:      MalformedHandler,
				Handler:   h.name,
				Parameter: parameter,
				Message:   fmt.Sprintf("handler [%s] declared an invalid %s parameter at index [%d]", h.name, direction, i),
				Cause:     err,
			}
		}
	}
	return nil
}

// Handle invokes the handler outside of any pipeline. Errors report the operation as UnknownOperationName.
func (h *OperationHandler) Handle(values []interface{}) ([]interface{}, error) {
	return h.handle(UnknownOperationName, values)
}

func (h *OperationHandler) handle(operation string, values []interface{}) ([]interface{}, error) {
	inputs, outputs, err := h.describe()
	if err != nil {
		return nil, err
	}

	if len(values) != len(inputs) {
		return nil, &HandlerError{
			Kind:      InputCountMismatch,
			Handler:   h.name,
			Operation: operation,
			Expected:  len(inputs),
			Actual:    len(values),
		}
	}

	converted, err := convertInputs(h.name, operation, inputs, values)
	if err != nil {
		return nil, err
	}

	result, err := h.handler.Handle(converted)
	if err != nil {
		return nil, err
	}

	if err := validateOutputs(h.name, operation, outputs, result); err != nil {
		return nil, err
	}

	return result, nil
}

func convertInputs(handler, operation string, parameters []Parameter, values []interface{}) ([]interface{}, error) {
	converted := make([]interface{}, len(values))
	for i, parameter := range parameters {
		value, err := parameter.Converter.Convert(values[i])
		if err != nil {
			return nil, conversionError(handler, operation, parameter, values[i], err)
		}
		converted[i] = value
	}
	return converted, nil
}

func conversionError(handler, operation string, parameter Parameter, value interface{}, cause error) error {
	handlerErr := &HandlerError{
		Handler:   handler,
		Operation: operation,
		Parameter: parameter,
		Value:     value,
	}

	if _, isString := value.(string); isString && parameter.Converter.CanConvertFromString() {
		handlerErr.Kind = ConvertFromStringFailed
		handlerErr.Cause = cause
	} else if !parameter.Converter.IsInstanceOf(value) {
		handlerErr.Kind = WrongInputType
	} else {
		handlerErr.Kind = ContentExtractionFailed
		handlerErr.Cause = cause
	}

	return handlerErr
}

func validateOutputs(handler, operation string, outputs []Parameter, result []interface{}) error {
	if len(result) != len(outputs) {
		return &HandlerError{
			Kind:      OutputCountMismatch,
			Handler:   handler,
			Operation: operation,
			Expected:  len(outputs),
			Actual:    len(result),
		}
	}

	for i, parameter := range outputs {
		if result[i] != nil && !parameter.Converter.IsInstanceOf(result[i]) {
			return &HandlerError{
				Kind:      WrongOutputType,
				Handler:   handler,
				Operation: operation,
				Parameter: parameter,
				Value:     result[i],
			}
		}
	}

	return nil
}
