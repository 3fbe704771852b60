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

// VectorID identifies the built-in vector constructor.
const VectorID uint32 = 0x1cb5c415

// Boxed wraps a value so that it's written with its identifier in front. It
// adds no state of its own: a Boxed[T] encodes as T's identifier followed by
// T's bare encoding, and decoding checks (or, for interface types, resolves)
// the identifier before reading the payload.
type Boxed[T Identifiable] struct {
	Value T
}

// Box wraps v for boxed encoding.
func Box[T Identifiable](v T) Boxed[T] {
	return Boxed[T]{Value: v}
}

// TLID implements Identifiable.
func (b Boxed[T]) TLID() uint32 {
	return b.Value.TLID()
}

// MarshalTL implements Marshaler.
func (b Boxed[T]) MarshalTL(e *Encoder) error {
	if isNilIdentifiable(b.Value) {
		return errUnsupported(CategoryOption)
	}
	if err := e.WriteUint32(b.Value.TLID()); err != nil {
		return err
	}
	return e.Encode(b.Value)
}

// UnmarshalTL implements Unmarshaler. Interface-typed values are resolved
// with the Registry passed to WithRegistry.
func (b *Boxed[T]) UnmarshalTL(d *Decoder) error {
	return d.DecodeBoxed(&b.Value, nil)
}

// isNilIdentifiable reports whether v is absent: a nil interface or a nil
// pointer, neither of which has an identifier to write.
func isNilIdentifiable(v Identifiable) bool {
	if v == nil {
		return true
	}
	value := reflect.ValueOf(v)
	return value.Kind() == reflect.Pointer && value.IsNil()
}

// Vector is the TL vector type. Bare, it's an ordinary sequence: a count and
// then the elements. Boxed (as a field tagged `tl:"boxed"`, or wrapped in
// Boxed), it's preceded by VectorID.
type Vector[T any] []T

// TLID implements Identifiable.
func (Vector[T]) TLID() uint32 { return VectorID }
