// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tl

import (
	"reflect"
)

func marshalValue(e *Encoder, v any) error {
	switch typed := v.(type) {
	case nil:
		return errUnsupported(CategoryOption)
	case Marshaler:
		return typed.MarshalTL(e)
	}
	value := reflect.ValueOf(v)
	if value.Kind() != reflect.Pointer {
		// Copy into addressable memory so pointer-receiver Marshalers on
		// fields and elements are found.
		addressable := reflect.New(value.Type()).Elem()
		addressable.Set(value)
		value = addressable
	}
	return encodeValue(e, value)
}

func encodeValue(e *Encoder, v reflect.Value) error {
	if !v.IsValid() {
		return errUnsupported(CategoryOption)
	}
	if marshaler, ok, err := asMarshaler(v); ok || err != nil {
		if err != nil {
			return err
		}
		return marshaler.MarshalTL(e)
	}
	switch v.Kind() {
	case reflect.Bool:
		return e.WriteBool(v.Bool())
	case reflect.Int8:
		return e.WriteInt8(int8(v.Int()))
	case reflect.Int16:
		return e.WriteInt16(int16(v.Int()))
	case reflect.Int32:
		return e.WriteInt32(int32(v.Int()))
	case reflect.Int, reflect.Int64:
		return e.WriteInt64(v.Int())
	case reflect.Uint8:
		return e.WriteUint8(uint8(v.Uint()))
	case reflect.Uint16:
		return e.WriteUint16(uint16(v.Uint()))
	case reflect.Uint32:
		return e.WriteUint32(uint32(v.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return e.WriteUint64(v.Uint())
	case reflect.Float32:
		return e.WriteFloat32(float32(v.Float()))
	case reflect.Float64:
		return e.WriteFloat64(v.Float())
	case reflect.String:
		return e.WriteString(v.String())
	case reflect.Slice:
		if isBlob(v.Type()) {
			return e.WriteBytes(v.Bytes())
		}
		return encodeSequence(e, v)
	case reflect.Array:
		return encodeTuple(e, v)
	case reflect.Struct:
		return encodeStruct(e, v)
	case reflect.Pointer:
		if v.IsNil() {
			return errUnsupported(CategoryOption)
		}
		return encodeValue(e, v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return errUnsupported(CategoryOption)
		}
		if v.NumMethod() == 0 {
			return errUnsupported(CategoryAny)
		}
		// A union: the payload of whichever variant is present.
		return encodeValue(e, v.Elem())
	default:
		return errUnsupported(kindCategory(v.Kind()))
	}
}

// asMarshaler finds a Marshaler implementation on v or, if v is addressable,
// on its address.
func asMarshaler(v reflect.Value) (Marshaler, bool, error) {
	typ := v.Type()
	if typ.Kind() != reflect.Interface && typ.Implements(marshalerType) {
		if typ.Kind() == reflect.Pointer && v.IsNil() {
			return nil, false, errUnsupported(CategoryOption)
		}
		return v.Interface().(Marshaler), true, nil //nolint:forcetypeassert
	}
	if v.CanAddr() && reflect.PointerTo(typ).Implements(marshalerType) {
		return v.Addr().Interface().(Marshaler), true, nil //nolint:forcetypeassert
	}
	return nil, false, nil
}

func encodeSequence(e *Encoder, v reflect.Value) error {
	writer, err := e.Sequence(v.Len())
	if err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := writer.next(); err != nil {
			return err
		}
		if err := encodeValue(e, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func encodeTuple(e *Encoder, v reflect.Value) error {
	writer := e.Fixed(v.Len())
	for i := 0; i < v.Len(); i++ {
		if err := writer.next(); err != nil {
			return err
		}
		if err := encodeValue(e, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func encodeStruct(e *Encoder, v reflect.Value) error {
	info := cachedStructInfo(v.Type())
	e.config.Logger.Debug().
		Stringer("type", v.Type()).
		Int("fields", len(info.fields)).
		Msg("tl: encoding record")
	writer := e.Fixed(len(info.fields))
	for _, field := range info.fields {
		if err := writer.next(); err != nil {
			return err
		}
		fieldValue := v.Field(field.index)
		var err error
		if field.boxed {
			err = encodeBoxedField(e, fieldValue)
		} else {
			err = encodeValue(e, fieldValue)
		}
		if err != nil {
			return prefixError(err, v.Type().Name()+"."+field.name)
		}
	}
	return nil
}

// encodeBoxedField writes the identifier of the field's dynamic type, then
// its bare encoding.
func encodeBoxedField(e *Encoder, v reflect.Value) error {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return errUnsupported(CategoryOption)
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return errUnsupported(CategoryOption)
	}
	id, ok := identifierOf(v)
	if !ok {
		return errorf(KindUnsupported, "%w: boxed field of type %v has no identifier", ErrUnsupported, v.Type())
	}
	if err := e.WriteUint32(id); err != nil {
		return err
	}
	return encodeValue(e, v)
}
