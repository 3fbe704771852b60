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
	"bytes"
	"io"
)

// Version is the semantic version of the tl module.
const Version = "0.3.0-dev"

// A Marshaler writes its own bare encoding. Implementations call the
// Encoder's primitive and container methods in field order.
type Marshaler interface {
	MarshalTL(*Encoder) error
}

// An Unmarshaler reads its own bare encoding, mirroring MarshalTL.
type Unmarshaler interface {
	UnmarshalTL(*Decoder) error
}

// A VariantUnmarshaler is a discriminated union that decodes itself. The wire
// carries no tag at the point the payload starts, so the caller must supply
// the variant, usually resolved from a boxed identifier through a Registry.
type VariantUnmarshaler interface {
	UnmarshalTLVariant(*Decoder, Variant) error
}

// Identifiable values know their own 32-bit type identifier, which prefixes
// their bare encoding when they're written boxed.
type Identifiable interface {
	TLID() uint32
}

// A Variant names one case of a discriminated union. The empty Variant means
// no variant has been resolved.
type Variant string

// UnknownLength may be passed to Encoder.Sequence when the number of elements
// isn't known ahead of time. The format has no way to express that, so the
// call always fails with KindUnknownLength.
const UnknownLength = -1

// Marshal returns the bare encoding of v.
func Marshal(v any, options ...EncodeOption) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := NewEncoder(buf, options...).Encode(v); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// MarshalBoxed returns the boxed encoding of v: its identifier followed by
// its bare encoding.
func MarshalBoxed(v Identifiable, options ...EncodeOption) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := NewEncoder(buf, options...).EncodeBoxed(v); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Unmarshal decodes the bare encoding in data into v, which must be a non-nil
// pointer. Trailing bytes are ignored; use UnmarshalPrefix to get them back.
func Unmarshal(data []byte, v any, options ...DecodeOption) error {
	_, err := UnmarshalPrefix(data, v, options...)
	return err
}

// UnmarshalPrefix is like Unmarshal, but returns the bytes following the
// decoded value, for protocols that concatenate values back to back.
func UnmarshalPrefix(data []byte, v any, options ...DecodeOption) ([]byte, error) {
	dec := NewBytesDecoder(data, options...)
	if err := dec.Decode(v); err != nil {
		return nil, err
	}
	return dec.Remainder()
}

// UnmarshalVariant decodes the payload of the union variant named by hint
// into v. An empty hint fails with KindMissingVariant.
func UnmarshalVariant(data []byte, hint Variant, v any, options ...DecodeOption) error {
	_, err := UnmarshalVariantPrefix(data, hint, v, options...)
	return err
}

// UnmarshalVariantPrefix is like UnmarshalVariant, but returns the bytes
// following the decoded value.
func UnmarshalVariantPrefix(data []byte, hint Variant, v any, options ...DecodeOption) ([]byte, error) {
	dec := NewBytesDecoder(data, options...)
	if err := dec.DecodeVariant(hint, v); err != nil {
		return nil, err
	}
	return dec.Remainder()
}

// UnmarshalBoxed decodes a boxed value: it reads the identifier, resolves it,
// and decodes the payload into v. See Decoder.DecodeBoxed for the rules.
func UnmarshalBoxed(data []byte, v any, resolver Resolver, options ...DecodeOption) error {
	_, err := UnmarshalBoxedPrefix(data, v, resolver, options...)
	return err
}

// UnmarshalBoxedPrefix is like UnmarshalBoxed, but returns the bytes
// following the decoded value.
func UnmarshalBoxedPrefix(data []byte, v any, resolver Resolver, options ...DecodeOption) ([]byte, error) {
	dec := NewBytesDecoder(data, options...)
	if err := dec.DecodeBoxed(v, resolver); err != nil {
		return nil, err
	}
	return dec.Remainder()
}

// DecodeFrom decodes one bare value from r and returns a reader positioned
// just past it. The returned reader may be r itself.
func DecodeFrom(r io.Reader, v any, options ...DecodeOption) (io.Reader, error) {
	dec := NewDecoder(r, options...)
	if err := dec.Decode(v); err != nil {
		return nil, err
	}
	return dec.Reader(), nil
}
