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
	"reflect"
	"strconv"
)

// Content is an entity body together with its media type.
type Content struct {
	MediaType string
	Body      []byte
}

// Response is the response message produced at the end of an operation's pipeline.
type Response struct {
	StatusCode int
	Header     http.Header
	Content    *Content
	Request    *http.Request
}

// NewResponse creates an empty Response with the given status code.
func NewResponse(statusCode int) *Response {
	return &Response{
		StatusCode: statusCode,
		Header:     http.Header{},
	}
}

// WriteTo writes the response's status, headers and content to writer.
func (response *Response) WriteTo(writer http.ResponseWriter) error {
	for name, values := range response.Header {
		for _, value := range values {
			writer.Header().Add(name, value)
		}
	}

	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	if response.Content == nil {
		writer.WriteHeader(statusCode)
		return nil
	}

	if response.Content.MediaType != "" {
		writer.Header().Set("Content-Type", response.Content.MediaType)
	}
	writer.Header().Set("Content-Length", strconv.Itoa(len(response.Content.Body)))
	writer.WriteHeader(statusCode)

	_, err := writer.Write(response.Content.Body)
	return err
}

var (
	requestMessageType  = typeOf[*http.Request]()
	responseMessageType = typeOf[*Response]()
	contentMessageType  = typeOf[*Content]()
)

// isMarkerType reports whether t is one of the framework level message types. Inputs of these types bind to every
// assignable upstream output regardless of parameter names.
func isMarkerType(t reflect.Type) bool {
	return t == requestMessageType || t == responseMessageType || t == contentMessageType
}
