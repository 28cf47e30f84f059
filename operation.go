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
	"strings"
)

// ResultParameterName is the name given to the return value of operations built with the NewOperationN helpers.
const ResultParameterName = "result"

// OperationDescription is the metadata of a service operation: its route and the parameters it consumes and
// produces. The return value, when present, precedes the output parameters in the service operation's outputs.
type OperationDescription struct {
	Name             string
	Method           string
	UriTemplate      string
	InputParameters  []Parameter
	OutputParameters []Parameter
	ReturnValue      *Parameter
}

// Validate checks the description for missing names and malformed or duplicate parameters.
func (description *OperationDescription) Validate() error {
	if description.Name == "" {
		return &BindingError{Kind: InvalidOperation, Message: "operation name must not be empty"}
	}

	invalid := func(msg string, args ...interface{}) error {
		return &BindingError{
			Kind:        InvalidOperation,
			Operation:   description.Name,
			Handler:     description.Name,
			HandlerKind: ServiceOperationHandlerKind,
			Message:     fmt.Sprintf("operation [%s]: ", description.Name) + fmt.Sprintf(msg, args...),
		}
	}

	seen := map[string]struct{}{}
	for i, parameter := range description.InputParameters {
		if err := parameter.Validate(); err != nil {
			return invalid("invalid input parameter at index [%d]: %v", i, err)
		}
		key := strings.ToLower(parameter.Name)
		if _, found := seen[key]; found {
			return invalid("duplicate input parameter [%s]", parameter.Name)
		}
		seen[key] = struct{}{}
	}

	for i, parameter := range description.OutputParameters {
		if err := parameter.Validate(); err != nil {
			return invalid("invalid output parameter at index [%d]: %v", i, err)
		}
	}

	if description.ReturnValue != nil {
		if err := description.ReturnValue.Validate(); err != nil {
			return invalid("invalid return value: %v", err)
		}
	}

	return nil
}

func (description *OperationDescription) serviceOperationOutputs() []Parameter {
	var outputs []Parameter
	if description.ReturnValue != nil {
		outputs = append(outputs, *description.ReturnValue)
	}
	return append(outputs, description.OutputParameters...)
}

// Invoker runs a service operation. inputs holds one converted value per input parameter. outputs must hold one
// value per output parameter; result is ignored when the operation has no return value.
type Invoker func(inputs []interface{}) (result interface{}, outputs []interface{}, err error)

// Operation is an OperationDescription together with its implementation and any operation specific handlers.
// Operation specific handlers run after (request) or before (response) the handlers shared by the whole Service.
type Operation struct {
	OperationDescription
	Invoker          Invoker
	RequestHandlers  []*OperationHandler
	ResponseHandlers []*OperationHandler
}

// WithRequestHandlers appends operation specific request handlers and returns the operation.
func (operation *Operation) WithRequestHandlers(handlers ...*OperationHandler) *Operation {
	operation.RequestHandlers = append(operation.RequestHandlers, handlers...)
	return operation
}

// WithResponseHandlers appends operation specific response handlers and returns the operation.
func (operation *Operation) WithResponseHandlers(handlers ...*OperationHandler) *Operation {
	operation.ResponseHandlers = append(operation.ResponseHandlers, handlers...)
	return operation
}

func newTypedOperation[R any](name, method, uriTemplate string, inputs []Parameter, invoke func(inputs []interface{}) (R, error)) *Operation {
	returnValue := NewParameter[R](ResultParameterName)

	return &Operation{
		OperationDescription: OperationDescription{
			Name:            name,
			Method:          method,
			UriTemplate:     uriTemplate,
			InputParameters: inputs,
			ReturnValue:     &returnValue,
		},
		Invoker: func(inputs []interface{}) (interface{}, []interface{}, error) {
			result, err := invoke(inputs)
			if err != nil {
				return nil, nil, err
			}
			return result, nil, nil
		},
	}
}

// NewOperation0 creates an operation without inputs returning an R.
func NewOperation0[R any](name, method, uriTemplate string, fn func() (R, error)) *Operation {
	return newTypedOperation(name, method, uriTemplate, nil, func([]interface{}) (R, error) {
		return fn()
	})
}

// NewOperation1 creates an operation with one named input returning an R.
func NewOperation1[T1, R any](name, method, uriTemplate string, in1 string, fn func(T1) (R, error)) *Operation {
	inputs := []Parameter{NewParameter[T1](in1)}
	return newTypedOperation(name, method, uriTemplate, inputs, func(values []interface{}) (R, error) {
		return fn(as[T1](values[0]))
	})
}

// NewOperation2 creates an operation with two named inputs returning an R.
func NewOperation2[T1, T2, R any](name, method, uriTemplate string, in1, in2 string, fn func(T1, T2) (R, error)) *Operation {
	inputs := []Parameter{NewParameter[T1](in1), NewParameter[T2](in2)}
	return newTypedOperation(name, method, uriTemplate, inputs, func(values []interface{}) (R, error) {
		return fn(as[T1](values[0]), as[T2](values[1]))
	})
}

// NewOperation3 creates an operation with three named inputs returning an R.
func NewOperation3[T1, T2, T3, R any](name, method, uriTemplate string, in1, in2, in3 string, fn func(T1, T2, T3) (R, error)) *Operation {
	inputs := []Parameter{NewParameter[T1](in1), NewParameter[T2](in2), NewParameter[T3](in3)}
	return newTypedOperation(name, method, uriTemplate, inputs, func(values []interface{}) (R, error) {
		return fn(as[T1](values[0]), as[T2](values[1]), as[T3](values[2]))
	})
}

func newActionOperation(name, method, uriTemplate string, inputs []Parameter, invoke func(inputs []interface{}) error) *Operation {
	return &Operation{
		OperationDescription: OperationDescription{
			Name:            name,
			Method:          method,
			UriTemplate:     uriTemplate,
			InputParameters: inputs,
		},
		Invoker: func(inputs []interface{}) (interface{}, []interface{}, error) {
			return nil, nil, invoke(inputs)
		},
	}
}

// NewAction1 creates an operation with one named input and no return value. A Service answers it with 204.
func NewAction1[T1 any](name, method, uriTemplate string, in1 string, fn func(T1) error) *Operation {
	inputs := []Parameter{NewParameter[T1](in1)}
	return newActionOperation(name, method, uriTemplate, inputs, func(values []interface{}) error {
		return fn(as[T1](values[0]))
	})
}

// NewAction2 creates an operation with two named inputs and no return value.
func NewAction2[T1, T2 any](name, method, uriTemplate string, in1, in2 string, fn func(T1, T2) error) *Operation {
	inputs := []Parameter{NewParameter[T1](in1), NewParameter[T2](in2)}
	return newActionOperation(name, method, uriTemplate, inputs, func(values []interface{}) error {
		return fn(as[T1](values[0]), as[T2](values[1]))
	})
}
