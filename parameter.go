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
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Parameter is a named, typed slot on an OperationHandler or an operation. Names are compared case-insensitively.
type Parameter struct {
	Name      string
	Converter ValueConverter
}

// NewParameter creates a Parameter of type T.
func NewParameter[T any](name string) Parameter {
	return Parameter{
		Name:      name,
		Converter: ConverterFor[T](),
	}
}

// Type returns the declared type of the parameter.
func (p Parameter) Type() reflect.Type {
	return p.Converter.Type()
}

// TypeName returns the declared type of the parameter as a string suitable for error messages.
func (p Parameter) TypeName() string {
	if p.Converter == nil {
		return "<nil>"
	}
	return p.Converter.Type().String()
}

// IsNamed reports whether the parameter's name matches name, ignoring case.
func (p Parameter) IsNamed(name string) bool {
	return strings.EqualFold(p.Name, name)
}

func (p Parameter) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.TypeName())
}

// Validate checks that the parameter has a name and a converter.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return errors.New("parameter name must not be empty")
	}

	if p.Converter == nil {
		return fmt.Errorf("parameter [%s] has no value converter", p.Name)
	}

	return nil
}

func copyParameters(parameters []Parameter) []Parameter {
	result := make([]Parameter, len(parameters))
	copy(result, parameters)
	return result
}
