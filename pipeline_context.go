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
	"net/http"
)

// PipelineContext is the per-request state of a Pipeline: the flat value array laid out by the PipelineInfo and
// the index of the next entry to run. A PipelineContext belongs to a single request and is not safe for
// concurrent use.
type PipelineContext struct {
	info         *PipelineInfo
	values       []interface{}
	handlerIndex int
}

func newPipelineContext(info *PipelineInfo) *PipelineContext {
	return &PipelineContext{
		info:   info,
		values: make([]interface{}, info.valueCount),
	}
}

// HandlerIndex returns the index of the entry the context is positioned at.
func (context *PipelineContext) HandlerIndex() int {
	return context.handlerIndex
}

// Values returns a copy of the flat value array.
func (context *PipelineContext) Values() []interface{} {
	result := make([]interface{}, len(context.values))
	copy(result, context.values)
	return result
}

func (context *PipelineContext) currentEntry() *pipelineEntry {
	return context.info.entries[context.handlerIndex]
}

func (context *PipelineContext) currentInputs() []interface{} {
	entry := context.currentEntry()
	inputs := make([]interface{}, entry.inputCount())
	copy(inputs, context.values[entry.offset:entry.offset+entry.inputCount()])
	return inputs
}

// setOutputs copies each output value of the current entry to every position it is bound to.
func (context *PipelineContext) setOutputs(outputs []interface{}) {
	entry := context.currentEntry()
	for i, positions := range entry.outputPositions {
		var value interface{}
		if i < len(outputs) {
			value = outputs[i]
		}
		for _, position := range positions {
			context.values[position] = value
		}
	}
}

func (context *PipelineContext) advance() {
	context.handlerIndex++
}

func (context *PipelineContext) responseMessage() *Response {
	response, _ := context.values[len(context.values)-2].(*Response)
	return response
}

func (context *PipelineContext) requestMessage() *http.Request {
	request, _ := context.values[len(context.values)-1].(*http.Request)
	return request
}
