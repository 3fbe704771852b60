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
	"errors"
	"fmt"
)

// A Kind is one of the categories of failure an encode or decode call can
// report. Every error returned by this package is an *Error carrying a Kind,
// so callers can branch on KindOf(err) without matching error strings.
//
// All errors are terminal for the call that produced them: the package never
// retries, and a Decoder that returned an error is positioned somewhere
// undefined and must not be reused.
type Kind uint32

const (
	// KindIO means the underlying io.Reader or io.Writer failed. The original
	// error is available with errors.Unwrap or errors.Is.
	KindIO Kind = 1
	// KindFraming means the bytes violate the string/blob framing rules: an
	// invalid length marker, a truncated payload, an unrepresentable length,
	// or string content that isn't valid UTF-8.
	KindFraming Kind = 2
	// KindUnexpectedValue means a fixed-width field held a value the format
	// doesn't allow, such as a boolean that is neither boolTrue nor boolFalse,
	// or a boxed identifier that doesn't match the expected type.
	KindUnexpectedValue Kind = 3
	// KindExcessElements means more elements were submitted to a fixed-arity
	// container than it declared.
	KindExcessElements Kind = 4
	// KindUnknownLength means a dynamic sequence was encoded without knowing its
	// length up front. The format has no way to backpatch a count.
	KindUnknownLength Kind = 5
	// KindUnsupported means the value belongs to a category the format can't
	// represent: characters, absent values, open "any" values, bare units, and
	// (for encoding) maps.
	KindUnsupported Kind = 6
	// KindOverflow means a wide value read from the wire doesn't fit the narrow
	// type it's being decoded into.
	KindOverflow Kind = 7
	// KindMissingVariant is a programming error: a discriminated union was
	// decoded without first resolving which variant to read.
	KindMissingVariant Kind = 8
	// KindUnknownIdentifier means a registry has no entry for a type
	// identifier read from the wire.
	KindUnknownIdentifier Kind = 9
	// KindResourceExhausted means a declared length or element count exceeded
	// a configured read limit.
	KindResourceExhausted Kind = 10
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFraming:
		return "framing"
	case KindUnexpectedValue:
		return "unexpected_value"
	case KindExcessElements:
		return "excess_elements"
	case KindUnknownLength:
		return "unknown_length"
	case KindUnsupported:
		return "unsupported"
	case KindOverflow:
		return "overflow"
	case KindMissingVariant:
		return "missing_variant"
	case KindUnknownIdentifier:
		return "unknown_identifier"
	case KindResourceExhausted:
		return "resource_exhausted"
	}
	return fmt.Sprintf("kind_%d", uint32(k))
}

var (
	// ErrInvalidLengthMarker is in the chain of errors caused by a string or
	// blob header starting with the reserved byte 0xff.
	ErrInvalidLengthMarker = errors.New("invalid length marker")
	// ErrInvalidUTF8 is in the chain of errors caused by decoding string content
	// that isn't valid UTF-8.
	ErrInvalidUTF8 = errors.New("string is not valid UTF-8")
	// ErrExcessElements is in the chain of KindExcessElements errors.
	ErrExcessElements = errors.New("excess elements")
	// ErrUnknownLength is in the chain of KindUnknownLength errors.
	ErrUnknownLength = errors.New("sequence length must be known up front")
	// ErrUnsupported is in the chain of KindUnsupported errors.
	ErrUnsupported = errors.New("unsupported for this format")
	// ErrOverflow is in the chain of KindOverflow errors.
	ErrOverflow = errors.New("value out of range")
	// ErrNoVariant is in the chain of KindMissingVariant errors.
	ErrNoVariant = errors.New("no variant resolved")
)

// An Error is the error type returned by every exported function in this
// package. It pairs a Kind with the underlying cause.
type Error struct {
	kind Kind
	err  error
}

// NewError wraps an error with a Kind. If the underlying error is nil, the
// Kind's name is used as the message.
func NewError(k Kind, underlying error) *Error {
	return &Error{kind: k, err: underlying}
}

func (e *Error) Error() string {
	if e.err == nil {
		return "tl: " + e.kind.String()
	}
	text := e.err.Error()
	if text == "" {
		return "tl: " + e.kind.String()
	}
	return "tl: " + e.kind.String() + ": " + text
}

// Unwrap allows errors.Is and errors.As access to the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the error's category.
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf returns the Kind of the first *Error in err's chain. It returns zero
// for nil errors and for errors that didn't come from this package.
func KindOf(err error) Kind {
	if tlErr, ok := asError(err); ok {
		return tlErr.Kind()
	}
	return 0
}

func errorf(k Kind, template string, args ...any) *Error {
	return NewError(k, fmt.Errorf(template, args...))
}

// asError uses errors.As to unwrap any error and look for a tl *Error.
func asError(err error) (*Error, bool) {
	var tlErr *Error
	ok := errors.As(err, &tlErr)
	return tlErr, ok
}

// wrapIO classifies an error from the underlying reader or writer. Errors that
// already carry a Kind pass through untouched, so a Marshaler or Unmarshaler
// can return our errors without having them re-wrapped.
func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := asError(err); ok {
		return err
	}
	return NewError(KindIO, err)
}

// Category names a kind of value that has no wire representation. It's used
// in KindUnsupported errors.
type Category string

const (
	CategoryAny       Category = "any"
	CategoryChar      Category = "char"
	CategoryOption    Category = "option"
	CategoryUnit      Category = "unit"
	CategoryMap       Category = "map"
	CategoryIgnored   Category = "ignored_any"
	CategoryFunc      Category = "func"
	CategoryChan      Category = "chan"
	CategoryComplex   Category = "complex"
	CategoryUnsafePtr Category = "unsafe_pointer"
)

func errUnsupported(c Category) *Error {
	return errorf(KindUnsupported, "%w: %s", ErrUnsupported, c)
}

// prefixError adds context to an error while keeping its Kind and chain.
func prefixError(err error, prefix string) error {
	tlErr, ok := asError(err)
	if !ok {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return &Error{kind: tlErr.kind, err: fmt.Errorf("%s: %w", prefix, tlErr.err)}
}
