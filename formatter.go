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
	"encoding/json"
	"mime"
	"reflect"
	"strings"
)

// Formatter converts operation values to and from entity bodies of a single media type. Services treat their
// formatter list as opaque and hand it to the content handlers untouched.
type Formatter interface {
	MediaType() string
	CanReadType(t reflect.Type) bool
	CanWriteType(t reflect.Type) bool
	Read(body []byte, t reflect.Type) (interface{}, error)
	Write(value interface{}) ([]byte, error)
}

// JsonFormatter reads and writes application/json.
type JsonFormatter struct{}

var _ Formatter = JsonFormatter{}

func (JsonFormatter) MediaType() string {
	return "application/json"
}

func (JsonFormatter) CanReadType(reflect.Type) bool {
	return true
}

func (JsonFormatter) CanWriteType(reflect.Type) bool {
	return true
}

func (JsonFormatter) Read(body []byte, t reflect.Type) (interface{}, error) {
	target := reflect.New(t)
	if len(body) > 0 {
		if err := json.Unmarshal(body, target.Interface()); err != nil {
			return nil, err
		}
	}
	return target.Elem().Interface(), nil
}

func (JsonFormatter) Write(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

// selectWriter picks the first formatter whose media type the accept header names, falling back to the first
// formatter able to write t.
func selectWriter(formatters []Formatter, accept string, t reflect.Type) Formatter {
	for _, mediaType := range mediaTypes(accept) {
		for _, formatter := range formatters {
			if strings.EqualFold(formatter.MediaType(), mediaType) && formatter.CanWriteType(t) {
				return formatter
			}
		}
	}

	for _, formatter := range formatters {
		if formatter.CanWriteType(t) {
			return formatter
		}
	}

	return nil
}

// selectReader picks the formatter matching contentType, falling back to the first formatter able to read t.
func selectReader(formatters []Formatter, contentType string, t reflect.Type) Formatter {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		for _, formatter := range formatters {
			if strings.EqualFold(formatter.MediaType(), mediaType) && formatter.CanReadType(t) {
				return formatter
			}
		}
	}

	for _, formatter := range formatters {
		if formatter.CanReadType(t) {
			return formatter
		}
	}

	return nil
}

func mediaTypes(header string) []string {
	var result []string
	for _, part := range strings.Split(header, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		if mediaType = strings.TrimSpace(mediaType); mediaType != "" {
			result = append(result, mediaType)
		}
	}
	return result
}
