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
	"sort"
	"strings"
)

// HandlerKind is the position of a pipeline entry relative to the service operation.
type HandlerKind int

const (
	SourceHandlerKind HandlerKind = iota
	RequestHandlerKind
	ServiceOperationHandlerKind
	ResponseHandlerKind
	SinkHandlerKind
)

func (k HandlerKind) String() string {
	switch k {
	case SourceHandlerKind:
		return "source"
	case RequestHandlerKind:
		return "request"
	case ServiceOperationHandlerKind:
		return "service operation"
	case ResponseHandlerKind:
		return "response"
	case SinkHandlerKind:
		return "sink"
	}
	return fmt.Sprintf("HandlerKind(%d)", int(k))
}

const (
	requestParameterName  = "request"
	responseParameterName = "response"
)

var stringType = typeOf[string]()

type pipelineEntry struct {
	kind    HandlerKind
	name    string
	handler *OperationHandler
	inputs  []Parameter
	outputs []Parameter

	offset          int
	outputPositions [][]int
}

func (entry *pipelineEntry) inputCount() int {
	return len(entry.inputs)
}

type binding struct {
	outputHandler   int
	outputParameter int
	inputHandler    int
	inputParameter  int
}

// PipelineInfo is the compiled layout of an operation's pipeline. Every entry owns a contiguous slice of a single
// flat value array holding its inputs; every output parameter carries the absolute positions it is copied to when
// produced. A PipelineInfo is immutable once built and is shared by all requests for the operation.
type PipelineInfo struct {
	operation             *OperationDescription
	entries               []*pipelineEntry
	serviceOperationIndex int
	valueCount            int
}

// NewPipelineInfo binds every input parameter of the request handlers, the operation and the response handlers to
// the output parameters of earlier entries and compiles the result into a PipelineInfo.
func NewPipelineInfo(requestHandlers []*OperationHandler, operation *OperationDescription, responseHandlers []*OperationHandler) (*PipelineInfo, error) {
	if operation == nil {
		return nil, &BindingError{Kind: InvalidOperation, Message: "an operation description is required to build a pipeline"}
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	info := &PipelineInfo{
		operation: operation,
	}

	info.entries = append(info.entries, &pipelineEntry{
		kind:    SourceHandlerKind,
		name:    "request source",
		outputs: []Parameter{NewParameter[*http.Request](requestParameterName)},
	})

	for _, handler := range requestHandlers {
		entry, err := newHandlerEntry(RequestHandlerKind, handler, operation.Name)
		if err != nil {
			return nil, err
		}
		info.entries = append(info.entries, entry)
	}

	info.serviceOperationIndex = len(info.entries)
	info.entries = append(info.entries, &pipelineEntry{
		kind:    ServiceOperationHandlerKind,
		name:    operation.Name,
		inputs:  copyParameters(operation.InputParameters),
		outputs: operation.serviceOperationOutputs(),
	})

	for _, handler := range responseHandlers {
		entry, err := newHandlerEntry(ResponseHandlerKind, handler, operation.Name)
		if err != nil {
			return nil, err
		}
		info.entries = append(info.entries, entry)
	}

	info.entries = append(info.entries, &pipelineEntry{
		kind: SinkHandlerKind,
		name: "response sink",
		inputs: []Parameter{
			NewParameter[*Response](responseParameterName),
			NewParameter[*http.Request](requestParameterName),
		},
	})

	bindings, err := info.bind()
	if err != nil {
		return nil, err
	}

	info.layout(bindings)

	return info, nil
}

func newHandlerEntry(kind HandlerKind, handler *OperationHandler, operationName string) (*pipelineEntry, error) {
	if handler == nil {
		return nil, &BindingError{
			Kind:        MalformedHandler,
			Operation:   operationName,
			HandlerKind: kind,
			Message:     fmt.Sprintf("a nil %s handler was supplied for operation [%s]", kind, operationName),
		}
	}

	inputs, outputs, err := handler.describe()
	if err != nil {
		if bindingErr, ok := err.(*BindingError); ok {
			scoped := *bindingErr
			scoped.Operation = operationName
			scoped.HandlerKind = kind
			return nil, &scoped
		}
		return nil, err
	}

	return &pipelineEntry{
		kind:    kind,
		name:    handler.Name(),
		handler: handler,
		inputs:  inputs,
		outputs: outputs,
	}, nil
}

// bind walks the entries from last to first, resolving each input parameter against the outputs of every earlier
// entry. Name matches win and are all bound; otherwise a single type-only match is bound.
func (info *PipelineInfo) bind() ([]binding, error) {
	var bindings []binding

	for i := len(info.entries) - 1; i > 0; i-- {
		entry := info.entries[i]

		for j, input := range entry.inputs {
			var matches, tentative []binding

			for k := 0; k < i; k++ {
				for m, output := range info.entries[k].outputs {
					candidate := binding{
						outputHandler:   k,
						outputParameter: m,
						inputHandler:    i,
						inputParameter:  j,
					}

					fromString := output.Type() == stringType && input.Converter.CanConvertFromString()

					if canAccept(input.Converter, output.Converter) {
						if input.IsNamed(output.Name) || isMarkerType(input.Type()) {
							matches = append(matches, candidate)
						} else if !fromString {
							tentative = append(tentative, candidate)
						}
					} else if fromString && input.IsNamed(output.Name) {
						matches = append(matches, candidate)
					}
				}
			}

			switch {
			case len(matches) > 0:
				bindings = append(bindings, matches...)
			case len(tentative) == 1:
				bindings = append(bindings, tentative[0])
			case len(tentative) > 1:
				return nil, info.ambiguousError(entry, input, tentative)
			default:
				return nil, info.unboundError(entry, input)
			}
		}
	}

	return bindings, nil
}

func (info *PipelineInfo) ambiguousError(entry *pipelineEntry, input Parameter, candidates []binding) error {
	err := &BindingError{
		Kind:        AmbiguousBinding,
		Operation:   info.operation.Name,
		Handler:     entry.name,
		HandlerKind: entry.kind,
		Parameter:   input,
		Message: fmt.Sprintf("input parameter [%s] of type [%s] on %s handler [%s] for operation [%s] matches more than one earlier output parameter by type and none by name",
			input.Name, input.TypeName(), entry.kind, entry.name, info.operation.Name),
	}

	for _, candidate := range candidates {
		source := info.entries[candidate.outputHandler]
		err.Candidates = append(err.Candidates, BindingCandidate{
			Handler:     source.name,
			HandlerKind: source.kind,
			Parameter:   source.outputs[candidate.outputParameter],
		})
	}

	return err
}

func (info *PipelineInfo) unboundError(entry *pipelineEntry, input Parameter) error {
	err := &BindingError{
		Kind:        UnboundParameter,
		Operation:   info.operation.Name,
		Handler:     entry.name,
		HandlerKind: entry.kind,
		Parameter:   input,
	}

	switch entry.kind {
	case RequestHandlerKind:
		err.Message = fmt.Sprintf("input parameter [%s] of type [%s] on request handler [%s] for operation [%s] is not provided by the request or any earlier request handler",
			input.Name, input.TypeName(), entry.name, info.operation.Name)
	case ServiceOperationHandlerKind:
		err.Message = fmt.Sprintf("parameter [%s] of type [%s] of operation [%s] is not provided by any request handler",
			input.Name, input.TypeName(), info.operation.Name)
	case ResponseHandlerKind:
		err.Message = fmt.Sprintf("input parameter [%s] of type [%s] on response handler [%s] for operation [%s] is not provided by the operation or any earlier handler",
			input.Name, input.TypeName(), entry.name, info.operation.Name)
	case SinkHandlerKind:
		err.Kind = NoResponseSource
		err.Message = fmt.Sprintf("no handler for operation [%s] produces a response of type [%s], return one from the operation or add a response handler that outputs one",
			info.operation.Name, input.TypeName())
		return err
	}

	if input.Converter.CanConvertFromString() {
		if entry.kind == ResponseHandlerKind {
			err.Message += fmt.Sprintf(", declare an output parameter named [%s] on the operation or an earlier handler", input.Name)
		} else {
			err.Message += fmt.Sprintf(", add a variable named [%s] to the uri template or a request handler with an output parameter of that name", input.Name)
		}
	}

	return err
}

// layout assigns every entry its offset in the flat value array and records, per output parameter, the positions
// it fans out to.
func (info *PipelineInfo) layout(bindings []binding) {
	offset := 0
	for _, entry := range info.entries {
		entry.offset = offset
		entry.outputPositions = make([][]int, len(entry.outputs))
		offset += entry.inputCount()
	}
	info.valueCount = offset

	for _, b := range bindings {
		position := info.entries[b.inputHandler].offset + b.inputParameter
		source := info.entries[b.outputHandler]
		source.outputPositions[b.outputParameter] = append(source.outputPositions[b.outputParameter], position)
	}

	for _, entry := range info.entries {
		for _, positions := range entry.outputPositions {
			sort.Ints(positions)
		}
	}
}

// Operation returns the operation the pipeline was built for.
func (info *PipelineInfo) Operation() *OperationDescription {
	return info.operation
}

// ValueCount returns the size of the flat value array a PipelineContext allocates.
func (info *PipelineInfo) ValueCount() int {
	return info.valueCount
}

// ServiceOperationIndex returns the index of the service operation entry, counting the request source as zero.
func (info *PipelineInfo) ServiceOperationIndex() int {
	return info.serviceOperationIndex
}

// HandlerCount returns the number of entries including the request source and response sink.
func (info *PipelineInfo) HandlerCount() int {
	return len(info.entries)
}

// Offset returns the offset of the handler at index into the flat value array.
func (info *PipelineInfo) Offset(index int) int {
	return info.entries[index].offset
}

// InputCount returns the number of inputs of the handler at index.
func (info *PipelineInfo) InputCount(index int) int {
	return info.entries[index].inputCount()
}

// OutputPositions returns the positions in the flat value array that output parameter of the handler at index is
// copied to.
func (info *PipelineInfo) OutputPositions(index, parameter int) []int {
	positions := info.entries[index].outputPositions[parameter]
	result := make([]int, len(positions))
	copy(result, positions)
	return result
}

func (info *PipelineInfo) String() string {
	builder := &strings.Builder{}
	_, _ = fmt.Fprintf(builder, "operation [%s], %d values\n", info.operation.Name, info.valueCount)

	for i, entry := range info.entries {
		_, _ = fmt.Fprintf(builder, "  [%d] %s %s offset=%d inputs=%d", i, entry.kind, entry.name, entry.offset, entry.inputCount())
		for j, output := range entry.outputs {
			_, _ = fmt.Fprintf(builder, " %s->%v", output.Name, entry.outputPositions[j])
		}
		builder.WriteString("\n")
	}

	return builder.String()
}
