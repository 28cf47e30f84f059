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
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ValueConverter describes the type behind a Parameter. The binder only asks it about assignability and string
// support at configuration time; the pipeline uses it to coerce values as they flow into handlers.
type ValueConverter interface {
	Type() reflect.Type
	IsInstanceOf(value interface{}) bool
	Convert(value interface{}) (interface{}, error)
	CanConvertFromString() bool
	ConvertFromString(value string) (interface{}, error)
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

var stringConverters = struct {
	sync.RWMutex
	byType map[reflect.Type]func(string) (interface{}, error)
}{
	byType: map[reflect.Type]func(string) (interface{}, error){},
}

func init() {
	RegisterStringConverter(time.ParseDuration)
}

// RegisterStringConverter adds a from-string conversion for T. Registered conversions take precedence over the
// built-in kind and encoding.TextUnmarshaler based conversions. Registration should happen before any Parameter of
// type T is bound into a pipeline.
func RegisterStringConverter[T any](convert func(string) (T, error)) {
	t := typeOf[T]()

	stringConverters.Lock()
	defer stringConverters.Unlock()

	stringConverters.byType[t] = func(s string) (interface{}, error) {
		return convert(s)
	}
}

func lookupStringConverter(t reflect.Type) func(string) (interface{}, error) {
	stringConverters.RLock()
	defer stringConverters.RUnlock()
	return stringConverters.byType[t]
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ConverterFor returns the ValueConverter for T.
func ConverterFor[T any]() ValueConverter {
	return &typedConverter[T]{t: typeOf[T]()}
}

type typedConverter[T any] struct {
	t reflect.Type
}

func (c *typedConverter[T]) Type() reflect.Type {
	return c.t
}

func (c *typedConverter[T]) IsInstanceOf(value interface{}) bool {
	if value == nil {
		return isNillable(c.t)
	}
	_, ok := value.(T)
	return ok
}

func (c *typedConverter[T]) Convert(value interface{}) (interface{}, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	if typed, ok := value.(T); ok {
		return typed, nil
	}

	if str, ok := value.(string); ok && c.CanConvertFromString() {
		return c.ConvertFromString(str)
	}

	return nil, errors.Errorf("value of type %T is not assignable to %v", value, c.t)
}

func (c *typedConverter[T]) CanConvertFromString() bool {
	if lookupStringConverter(c.t) != nil {
		return true
	}

	if reflect.PointerTo(c.t).Implements(textUnmarshalerType) {
		return true
	}

	switch c.t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}

func (c *typedConverter[T]) ConvertFromString(value string) (interface{}, error) {
	if convert := lookupStringConverter(c.t); convert != nil {
		return convert(value)
	}

	ptr := reflect.New(c.t)

	if unmarshaler, ok := ptr.Interface().(encoding.TextUnmarshaler); ok {
		if err := unmarshaler.UnmarshalText([]byte(value)); err != nil {
			return nil, err
		}
		return ptr.Elem().Interface(), nil
	}

	elem := ptr.Elem()

	switch c.t.Kind() {
	case reflect.String:
		elem.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, err
		}
		elem.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, c.t.Bits())
		if err != nil {
			return nil, err
		}
		elem.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, c.t.Bits())
		if err != nil {
			return nil, err
		}
		elem.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, c.t.Bits())
		if err != nil {
			return nil, err
		}
		elem.SetFloat(f)
	default:
		return nil, fmt.Errorf("type %v cannot be converted from a string", c.t)
	}

	return elem.Interface(), nil
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// canAccept reports whether a value declared as output may be bound to input purely by type.
func canAccept(input, output ValueConverter) bool {
	return output.Type().AssignableTo(input.Type())
}
