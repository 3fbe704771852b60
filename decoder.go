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
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// A Decoder reads TL values from an input stream. It never reads a tag to
// decide what comes next: the caller (or the reflection walker acting on the
// caller's behalf) asks for each primitive and container in order.
//
// After any error, the Decoder's position is undefined and it must not be
// used again. A Decoder isn't safe for concurrent use.
type Decoder struct {
	reader  io.Reader
	buffer  *bytes.Reader // non-nil for decoders built with NewBytesDecoder
	config  *decoderConfig
	scratch [8]byte
}

// NewDecoder returns a Decoder that reads from r. The Decoder reads exactly
// as many bytes as the values it decodes occupy, so r is positioned just past
// the last decoded value when a decode call returns.
func NewDecoder(r io.Reader, options ...DecodeOption) *Decoder {
	return &Decoder{
		reader: r,
		config: newDecoderConfig(options),
	}
}

// NewBytesDecoder returns a Decoder over an in-memory buffer. Unlike a
// stream decoder, it can report how many bytes are left and hand them back.
func NewBytesDecoder(data []byte, options ...DecodeOption) *Decoder {
	buffer := bytes.NewReader(data)
	return &Decoder{
		reader: buffer,
		buffer: buffer,
		config: newDecoderConfig(options),
	}
}

// Decode reads the bare encoding of a value into v, which must be a non-nil
// pointer. Union targets need a variant; use DecodeVariant or DecodeBoxed.
func (d *Decoder) Decode(v any) error {
	return unmarshalValue(d, v, "")
}

// DecodeVariant reads the payload of the union variant named by hint into v.
// v may be a VariantUnmarshaler, or a pointer to an interface type whose
// union was registered with the Registry passed in WithRegistry. An empty
// hint fails with KindMissingVariant.
func (d *Decoder) DecodeVariant(hint Variant, v any) error {
	if hint == "" {
		return NewError(KindMissingVariant, ErrNoVariant)
	}
	return unmarshalValue(d, v, hint)
}

// DecodeBoxed reads a type identifier and then the bare payload it names.
//
// If v points to an interface, the identifier is resolved through resolver
// (falling back to the Registry from WithRegistry) and a new value of the
// resolved type is stored in *v. If v points to a concrete Identifiable
// type, the identifier must match its TLID. Either way, the resolved variant
// name is the hint for VariantUnmarshaler targets. gzip_packed payloads are
// unpacked transparently unless v points to a GzipPacked.
func (d *Decoder) DecodeBoxed(v any, resolver Resolver) error {
	if resolver == nil {
		resolver = d.config.resolver()
	}
	return unmarshalBoxed(d, v, resolver)
}

// Len returns the number of unread bytes in a decoder built with
// NewBytesDecoder. It returns -1 for stream decoders.
func (d *Decoder) Len() int {
	if d.buffer == nil {
		return -1
	}
	return d.buffer.Len()
}

// Remainder returns the unread bytes of a decoder built with
// NewBytesDecoder, consuming them. For stream decoders it returns nil; use
// Reader instead.
func (d *Decoder) Remainder() ([]byte, error) {
	if d.buffer == nil {
		return nil, nil
	}
	rest := make([]byte, d.buffer.Len())
	if _, err := io.ReadFull(d.buffer, rest); err != nil {
		return nil, wrapIO(err)
	}
	return rest, nil
}

// Reader returns the underlying source, positioned after the last value
// read.
func (d *Decoder) Reader() io.Reader {
	return d.reader
}

// ReadBool reads a boolean constructor identifier. Any value other than
// BoolTrue or BoolFalse fails with KindUnexpectedValue.
func (d *Decoder) ReadBool() (bool, error) {
	id, err := d.readUint32()
	if err != nil {
		return false, err
	}
	switch id {
	case BoolTrue:
		d.config.Logger.Debug().Bool("value", true).Msg("tl: decoded bool")
		return true, nil
	case BoolFalse:
		d.config.Logger.Debug().Bool("value", false).Msg("tl: decoded bool")
		return false, nil
	default:
		return false, errorf(
			KindUnexpectedValue,
			"bool: got %#08x, expected boolTrue %#08x or boolFalse %#08x",
			id, BoolTrue, BoolFalse,
		)
	}
}

// ReadInt8 reads a 32-bit integer and narrows it, failing with KindOverflow
// if it doesn't fit.
func (d *Decoder) ReadInt8() (int8, error) {
	wide, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	v, err := narrowInt[int8](wide)
	return logNarrowed(d, v, err)
}

// ReadInt16 reads a 32-bit integer and narrows it, failing with KindOverflow
// if it doesn't fit.
func (d *Decoder) ReadInt16() (int16, error) {
	wide, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	v, err := narrowInt[int16](wide)
	return logNarrowed(d, v, err)
}

// ReadInt32 reads a 32-bit little-endian integer.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	d.config.Logger.Debug().Int32("value", int32(v)).Msg("tl: decoded int32")
	return int32(v), nil
}

// ReadInt64 reads a 64-bit little-endian integer.
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.readUint64()
	if err != nil {
		return 0, err
	}
	d.config.Logger.Debug().Int64("value", int64(v)).Msg("tl: decoded int64")
	return int64(v), nil
}

// ReadUint8 reads a 32-bit unsigned integer and narrows it, failing with
// KindOverflow if it doesn't fit.
func (d *Decoder) ReadUint8() (uint8, error) {
	wide, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	v, err := narrowInt[uint8](wide)
	return logNarrowed(d, v, err)
}

// ReadUint16 reads a 32-bit unsigned integer and narrows it, failing with
// KindOverflow if it doesn't fit.
func (d *Decoder) ReadUint16() (uint16, error) {
	wide, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	v, err := narrowInt[uint16](wide)
	return logNarrowed(d, v, err)
}

// ReadUint32 reads a 32-bit little-endian unsigned integer.
func (d *Decoder) ReadUint32() (uint32, error) {
	v, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	d.config.Logger.Debug().Uint32("value", v).Msg("tl: decoded uint32")
	return v, nil
}

// ReadUint64 reads a 64-bit little-endian unsigned integer.
func (d *Decoder) ReadUint64() (uint64, error) {
	v, err := d.readUint64()
	if err != nil {
		return 0, err
	}
	d.config.Logger.Debug().Uint64("value", v).Msg("tl: decoded uint64")
	return v, nil
}

// ReadFloat32 reads a 64-bit float and narrows it, failing with KindOverflow
// unless the conversion is exact.
func (d *Decoder) ReadFloat32() (float32, error) {
	wide, err := d.ReadFloat64()
	if err != nil {
		return 0, err
	}
	v, err := narrowFloat32(wide)
	return logNarrowed(d, v, err)
}

// ReadFloat64 reads an IEEE 754 double.
func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.readUint64()
	if err != nil {
		return 0, err
	}
	f := math.Float64frombits(v)
	d.config.Logger.Debug().Float64("value", f).Msg("tl: decoded float64")
	return f, nil
}

// ReadString reads a framed string. Content that isn't valid UTF-8 fails
// with KindFraming.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.readFrame()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", NewError(KindFraming, ErrInvalidUTF8)
	}
	s := string(b)
	d.config.Logger.Debug().Str("value", s).Msg("tl: decoded string")
	return s, nil
}

// ReadBytes reads a framed byte blob.
func (d *Decoder) ReadBytes() ([]byte, error) {
	b, err := d.readFrame()
	if err != nil {
		return nil, err
	}
	d.config.Logger.Debug().Int("len", len(b)).Msg("tl: decoded bytes")
	return b, nil
}

// ReadRune always fails: the format has no character type.
func (d *Decoder) ReadRune() (rune, error) {
	return 0, errUnsupported(CategoryChar)
}

// ReadOptional always fails: the format can't express an absent value.
func (d *Decoder) ReadOptional() error {
	return errUnsupported(CategoryOption)
}

// ReadUnit always fails: a bare unit value has no encoding.
func (d *Decoder) ReadUnit() error {
	return errUnsupported(CategoryUnit)
}

// ReadAny always fails: the format isn't self-describing, so there's no way
// to decode a value without knowing its type.
func (d *Decoder) ReadAny() error {
	return errUnsupported(CategoryAny)
}

// ReadIgnored always fails. Skipping a value requires knowing its type, for
// the same reason as ReadAny.
func (d *Decoder) ReadIgnored() error {
	return errUnsupported(CategoryIgnored)
}

// Fixed returns a reader for a container whose arity is known from the
// value's static shape. Nothing is read for the container itself.
func (d *Decoder) Fixed(arity int) *ElementReader {
	d.config.Logger.Debug().Int("len", arity).Msg("tl: decoding fixed container")
	return &ElementReader{decoder: d, length: arity}
}

// Sequence reads an element count and returns a reader for that many
// elements. A count above the WithReadMaxBytes limit fails with
// KindResourceExhausted. For a decoder built with NewBytesDecoder, a count
// larger than the number of unread bytes fails with KindFraming, so
// elements that occupy no bytes at all can't be read this way.
func (d *Decoder) Sequence() (*ElementReader, error) {
	n, err := d.readCount("sequence", true)
	if err != nil {
		return nil, err
	}
	d.config.Logger.Debug().Int("len", n).Msg("tl: decoding sequence")
	return &ElementReader{decoder: d, length: n}, nil
}

// Map reads a pair count and returns a reader for that many key-value pairs.
// The count is checked the same way as in Sequence.
func (d *Decoder) Map() (*MapReader, error) {
	n, err := d.readCount("map", true)
	if err != nil {
		return nil, err
	}
	d.config.Logger.Debug().Int("len", n).Msg("tl: decoding map")
	return &MapReader{decoder: d, length: n}, nil
}

// Variant starts decoding a union variant's payload. The wire doesn't say
// which variant follows, so hint must name it; an empty hint fails with
// KindMissingVariant.
func (d *Decoder) Variant(hint Variant) (*VariantReader, error) {
	if hint == "" {
		return nil, NewError(KindMissingVariant, ErrNoVariant)
	}
	d.config.Logger.Debug().Str("variant", string(hint)).Msg("tl: decoding variant")
	return &VariantReader{decoder: d, name: hint}, nil
}

// readCount reads a container's element count. Counts come off the wire, so
// they're held to the read limit and, when bounded is set, to the input
// that's left: every element of a bounded container occupies at least one
// byte.
func (d *Decoder) readCount(container string, bounded bool) (int, error) {
	wide, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	n, err := narrowInt[int](wide)
	if err != nil {
		return 0, err
	}
	if limit := d.config.ReadMaxBytes; limit > 0 && n > limit {
		return 0, errorf(KindResourceExhausted, "%s count %d is larger than configured max %d", container, n, limit)
	}
	if bounded && d.buffer != nil && n > d.buffer.Len() {
		return 0, errorf(KindFraming, "%s count %d exceeds the %d bytes remaining", container, n, d.buffer.Len())
	}
	return n, nil
}

func (d *Decoder) readUint32() (uint32, error) {
	if err := d.readFull(d.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.scratch[:4]), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	if err := d.readFull(d.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(d.scratch[:8]), nil
}

// readFrame reads a length header, the payload, and its padding.
func (d *Decoder) readFrame() ([]byte, error) {
	if err := d.readFull(d.scratch[:1]); err != nil {
		return nil, err
	}
	n, long, err := parseFrameHeader(d.scratch[0])
	if err != nil {
		return nil, err
	}
	headerSize := 1
	if long {
		var rest [3]byte
		if err := d.readFull(rest[:]); err != nil {
			return nil, err
		}
		n = parseLongLength(rest)
		headerSize = longHeaderSize
	}
	if limit := d.config.ReadMaxBytes; limit > 0 && n > limit {
		return nil, errorf(KindResourceExhausted, "blob size %d is larger than configured max %d", n, limit)
	}
	if d.buffer != nil && n > d.buffer.Len() {
		return nil, errorf(KindFraming, "blob size %d exceeds the %d bytes remaining", n, d.buffer.Len())
	}
	payload := make([]byte, n)
	if err := d.readFull(payload); err != nil {
		return nil, err
	}
	if pad := alignPadding(headerSize + n); pad > 0 {
		if err := d.readFull(d.scratch[:pad]); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// readFull reads exactly len(b) bytes. Running out of input partway through
// a value is a framing error; other read failures are I/O errors.
func (d *Decoder) readFull(b []byte) error {
	_, err := io.ReadFull(d.reader, b)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errorf(KindFraming, "truncated input: %w", io.ErrUnexpectedEOF)
	}
	return wrapIO(err)
}

func logNarrowed[T int8 | int16 | uint8 | uint16 | float32](d *Decoder, v T, err error) (T, error) {
	if err != nil {
		return v, err
	}
	d.config.Logger.Debug().Interface("value", v).Msgf("tl: narrowed to %T", v)
	return v, nil
}
