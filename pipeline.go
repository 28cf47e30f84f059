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
)

// Pipeline executes an operation's request and response handlers over a precomputed PipelineInfo. A Pipeline is
// safe for concurrent use; all per-request state lives in the PipelineContext.
type Pipeline struct {
	info *PipelineInfo
}

// NewPipeline binds the handlers and the operation into a Pipeline. Binding failures are returned as *BindingError.
func NewPipeline(requestHandlers []*OperationHandler, operation *OperationDescription, responseHandlers []*OperationHandler) (*Pipeline, error) {
	info, err := NewPipelineInfo(requestHandlers, operation, responseHandlers)
	if err != nil {
		return nil, err
	}

	return &Pipeline{info: info}, nil
}

// Info returns the pipeline's layout.
func (pipeline *Pipeline) Info() *PipelineInfo {
	return pipeline.info
}

// ExecuteRequestPipeline runs the request handlers for request and fills parameters with the converted input
// values of the service operation. The returned context must be passed to ExecuteResponsePipeline.
func (pipeline *Pipeline) ExecuteRequestPipeline(request *http.Request, parameters []interface{}) (*PipelineContext, error) {
	operation := pipeline.info.operation

	if len(parameters) != len(operation.InputParameters) {
		return nil, &HandlerError{
			Kind:      InputCountMismatch,
			Handler:   operation.Name,
			Operation: operation.Name,
			Expected:  len(operation.InputParameters),
			Actual:    len(parameters),
		}
	}

	context := newPipelineContext(pipeline.info)
	context.setOutputs([]interface{}{request})
	context.advance()

	for context.handlerIndex < pipeline.info.serviceOperationIndex {
		entry := context.currentEntry()

		outputs, err := entry.handler.handle(operation.Name, context.currentInputs())
		if err != nil {
			return nil, err
		}

		context.setOutputs(outputs)
		context.advance()
	}

	converted, err := convertInputs(operation.Name, operation.Name, operation.InputParameters, context.currentInputs())
	if err != nil {
		return nil, err
	}
	copy(parameters, converted)

	return context, nil
}

// ExecuteResponsePipeline feeds the service operation's result and output values forward through the response
// handlers and returns the response message. The request message is attached to the response if the response
// handlers did not set one.
func (pipeline *Pipeline) ExecuteResponsePipeline(context *PipelineContext, result interface{}, outputs []interface{}) (*Response, error) {
	operation := pipeline.info.operation

	if context == nil || context.info != pipeline.info {
		return nil, fmt.Errorf("pipeline context for operation [%s] was not created by this pipeline", operation.Name)
	}

	if context.handlerIndex != pipeline.info.serviceOperationIndex {
		return nil, fmt.Errorf("pipeline context for operation [%s] is at handler [%d], expected the service operation at [%d]", operation.Name, context.handlerIndex, pipeline.info.serviceOperationIndex)
	}

	values := make([]interface{}, 0, len(outputs)+1)
	if operation.ReturnValue != nil {
		values = append(values, result)
	}
	values = append(values, outputs...)

	if err := validateOutputs(operation.Name, operation.Name, context.currentEntry().outputs, values); err != nil {
		return nil, err
	}

	context.setOutputs(values)
	context.advance()

	sinkIndex := len(pipeline.info.entries) - 1
	for context.handlerIndex < sinkIndex {
		entry := context.currentEntry()

		handlerOutputs, err := entry.handler.handle(operation.Name, context.currentInputs())
		if err != nil {
			return nil, err
		}

		context.setOutputs(handlerOutputs)
		context.advance()
	}

	response := context.responseMessage()
	if response == nil {
		return nil, fmt.Errorf("the pipeline for operation [%s] did not produce a response", operation.Name)
	}

	if response.Request == nil {
		response.Request = context.requestMessage()
	}

	return response, nil
}
