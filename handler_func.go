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
	"reflect"
	"runtime"
	"strings"
)

type funcHandler struct {
	name    string
	inputs  []Parameter
	outputs []Parameter
	handle  func(input []interface{}) ([]interface{}, error)
}

func (h *funcHandler) Name() string {
	return h.name
}

func (h *funcHandler) InputParameters() []Parameter {
	return h.inputs
}

func (h *funcHandler) OutputParameters() []Parameter {
	return h.outputs
}

func (h *funcHandler) Handle(input []interface{}) ([]interface{}, error) {
	return h.handle(input)
}

// NewHandlerFunc creates an OperationHandler from explicit parameter lists and a function over untyped values.
func NewHandlerFunc(name string, inputs, outputs []Parameter, handle func(input []interface{}) ([]interface{}, error)) *OperationHandler {
	return NewOperationHandler(&funcHandler{
		name:    name,
		inputs:  inputs,
		outputs: outputs,
		handle:  handle,
	})
}

// funcName returns the unqualified symbol name of fn for diagnostics.
func funcName(fn interface{}) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// as returns value as a T. Values handed to typed handlers have already been converted, so the only value that is
// not a T is nil.
func as[T any](value interface{}) T {
	if typed, ok := value.(T); ok {
		return typed
	}
	var zero T
	return zero
}

func typedResult[R any](result R, err error) ([]interface{}, error) {
	if err != nil {
		return nil, err
	}
	return []interface{}{result}, nil
}

// NewHandler1 creates an OperationHandler with one typed input and one typed output. Input and output parameter
// names are given explicitly and are what the pipeline binder matches against.
func NewHandler1[T1, R any](in1 string, out string, fn func(T1) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]))
			return typedResult(result, err)
		},
	})
}

// NewHandler2 is NewHandler1 with 2 inputs.
func NewHandler2[T1, T2, R any](in1, in2 string, out string, fn func(T1, T2) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]))
			return typedResult(result, err)
		},
	})
}

// NewHandler3 is NewHandler1 with 3 inputs.
func NewHandler3[T1, T2, T3, R any](in1, in2, in3 string, out string, fn func(T1, T2, T3) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]))
			return typedResult(result, err)
		},
	})
}

// NewHandler4 is NewHandler1 with 4 inputs.
func NewHandler4[T1, T2, T3, T4, R any](in1, in2, in3, in4 string, out string, fn func(T1, T2, T3, T4) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]))
			return typedResult(result, err)
		},
	})
}

// NewHandler5 is NewHandler1 with 5 inputs.
func NewHandler5[T1, T2, T3, T4, T5, R any](in1, in2, in3, in4, in5 string, out string, fn func(T1, T2, T3, T4, T5) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]))
			return typedResult(result, err)
		},
	})
}

// NewHandler6 is NewHandler1 with 6 inputs.
func NewHandler6[T1, T2, T3, T4, T5, T6, R any](in1, in2, in3, in4, in5, in6 string, out string, fn func(T1, T2, T3, T4, T5, T6) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]))
			return typedResult(result, err)
		},
	})
}

// NewHandler7 is NewHandler1 with 7 inputs.
func NewHandler7[T1, T2, T3, T4, T5, T6, T7, R any](in1, in2, in3, in4, in5, in6, in7 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]))
			return typedResult(result, err)
		},
	})
}

// NewHandler8 is NewHandler1 with 8 inputs.
func NewHandler8[T1, T2, T3, T4, T5, T6, T7, T8, R any](in1, in2, in3, in4, in5, in6, in7, in8 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]))
			return typedResult(result, err)
		},
	})
}

// NewHandler9 is NewHandler1 with 9 inputs.
func NewHandler9[T1, T2, T3, T4, T5, T6, T7, T8, T9, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]))
			return typedResult(result, err)
		},
	})
}

// NewHandler10 is NewHandler1 with 10 inputs.
func NewHandler10[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]))
			return typedResult(result, err)
		},
	})
}

// NewHandler11 is NewHandler1 with 11 inputs.
func NewHandler11[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10, in11 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
		NewParameter[T11](in11),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]), as[T11](input[10]))
			return typedResult(result, err)
		},
	})
}

// NewHandler12 is NewHandler1 with 12 inputs.
func NewHandler12[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10, in11, in12 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
		NewParameter[T11](in11),
		NewParameter[T12](in12),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]), as[T11](input[10]), as[T12](input[11]))
			return typedResult(result, err)
		},
	})
}

// NewHandler13 is NewHandler1 with 13 inputs.
func NewHandler13[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10, in11, in12, in13 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
		NewParameter[T11](in11),
		NewParameter[T12](in12),
		NewParameter[T13](in13),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]), as[T11](input[10]), as[T12](input[11]), as[T13](input[12]))
			return typedResult(result, err)
		},
	})
}

// NewHandler14 is NewHandler1 with 14 inputs.
func NewHandler14[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, T14, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10, in11, in12, in13, in14 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, T14) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
		NewParameter[T11](in11),
		NewParameter[T12](in12),
		NewParameter[T13](in13),
		NewParameter[T14](in14),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]), as[T11](input[10]), as[T12](input[11]), as[T13](input[12]), as[T14](input[13]))
			return typedResult(result, err)
		},
	})
}

// NewHandler15 is NewHandler1 with 15 inputs.
func NewHandler15[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, T14, T15, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10, in11, in12, in13, in14, in15 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, T14, T15) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
		NewParameter[T11](in11),
		NewParameter[T12](in12),
		NewParameter[T13](in13),
		NewParameter[T14](in14),
		NewParameter[T15](in15),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]), as[T11](input[10]), as[T12](input[11]), as[T13](input[12]), as[T14](input[13]), as[T15](input[14]))
			return typedResult(result, err)
		},
	})
}

// NewHandler16 is NewHandler1 with 16 inputs.
func NewHandler16[T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, T14, T15, T16, R any](in1, in2, in3, in4, in5, in6, in7, in8, in9, in10, in11, in12, in13, in14, in15, in16 string, out string, fn func(T1, T2, T3, T4, T5, T6, T7, T8, T9, T10, T11, T12, T13, T14, T15, T16) (R, error)) *OperationHandler {
	inputs := []Parameter{
		NewParameter[T1](in1),
		NewParameter[T2](in2),
		NewParameter[T3](in3),
		NewParameter[T4](in4),
		NewParameter[T5](in5),
		NewParameter[T6](in6),
		NewParameter[T7](in7),
		NewParameter[T8](in8),
		NewParameter[T9](in9),
		NewParameter[T10](in10),
		NewParameter[T11](in11),
		NewParameter[T12](in12),
		NewParameter[T13](in13),
		NewParameter[T14](in14),
		NewParameter[T15](in15),
		NewParameter[T16](in16),
	}

	return NewOperationHandler(&funcHandler{
		name:    funcName(fn),
		inputs:  inputs,
		outputs: []Parameter{NewParameter[R](out)},
		handle: func(input []interface{}) ([]interface{}, error) {
			result, err := fn(as[T1](input[0]), as[T2](input[1]), as[T3](input[2]), as[T4](input[3]), as[T5](input[4]), as[T6](input[5]), as[T7](input[6]), as[T8](input[7]), as[T9](input[8]), as[T10](input[9]), as[T11](input[10]), as[T12](input[11]), as[T13](input[12]), as[T14](input[13]), as[T15](input[14]), as[T16](input[15]))
			return typedResult(result, err)
		},
	})
}
