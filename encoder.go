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
	"encoding/binary"
	"io"
	"math"
)

// Boolean values travel as the identifiers of the boolTrue and boolFalse
// constructors.
const (
	BoolTrue  uint32 = 0x997275b5
	BoolFalse uint32 = 0xbc799737
)

// An Encoder writes TL values to an output stream in a single forward pass.
// It never seeks or buffers: every length is written before the elements it
// counts, so callers must know sequence lengths up front.
//
// An Encoder isn't safe for concurrent use.
type Encoder struct {
	writer  io.Writer
	config  *encoderConfig
	scratch [8]byte
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer, options ...EncodeOption) *Encoder {
	return &Encoder{
		writer: w,
		config: newEncoderConfig(options),
	}
}

// Encode writes the bare encoding of v. Values implementing Marshaler encode
// themselves; everything else is walked with reflection.
func (e *Encoder) Encode(v any) error {
	return marshalValue(e, v)
}

// EncodeBoxed writes v's identifier followed by its bare encoding. With
// WithGzip, large payloads are wrapped in gzip_packed. A nil v, or a nil
// pointer, fails with KindUnsupported.
func (e *Encoder) EncodeBoxed(v Identifiable) error {
	if isNilIdentifiable(v) {
		return errUnsupported(CategoryOption)
	}
	if !e.config.Gzip {
		return e.encodeBoxed(v)
	}
	buf := getBuffer()
	defer putBuffer(buf)
	inner := &Encoder{writer: buf, config: e.config}
	if err := inner.encodeBoxed(v); err != nil {
		return err
	}
	if buf.Len() <= e.config.GzipMinBytes {
		return e.write(buf.Bytes())
	}
	e.config.Logger.Debug().
		Int("size", buf.Len()).
		Msg("tl: packing boxed value with gzip")
	packed, err := packGzip(buf.Bytes())
	if err != nil {
		return err
	}
	return e.encodeBoxed(packed)
}

func (e *Encoder) encodeBoxed(v Identifiable) error {
	if err := e.WriteUint32(v.TLID()); err != nil {
		return err
	}
	return e.Encode(v)
}

// WriteBool writes one of the two boolean constructor identifiers.
func (e *Encoder) WriteBool(v bool) error {
	if v {
		return e.WriteUint32(BoolTrue)
	}
	return e.WriteUint32(BoolFalse)
}

// WriteInt8 widens v to 32 bits.
func (e *Encoder) WriteInt8(v int8) error {
	return e.WriteInt32(int32(v))
}

// WriteInt16 widens v to 32 bits.
func (e *Encoder) WriteInt16(v int16) error {
	return e.WriteInt32(int32(v))
}

// WriteInt32 writes a 32-bit little-endian integer.
func (e *Encoder) WriteInt32(v int32) error {
	return e.WriteUint32(uint32(v))
}

// WriteInt64 writes a 64-bit little-endian integer.
func (e *Encoder) WriteInt64(v int64) error {
	return e.WriteUint64(uint64(v))
}

// WriteUint8 widens v to 32 bits.
func (e *Encoder) WriteUint8(v uint8) error {
	return e.WriteUint32(uint32(v))
}

// WriteUint16 widens v to 32 bits.
func (e *Encoder) WriteUint16(v uint16) error {
	return e.WriteUint32(uint32(v))
}

// WriteUint32 writes a 32-bit little-endian unsigned integer.
func (e *Encoder) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(e.scratch[:4], v)
	return e.write(e.scratch[:4])
}

// WriteUint64 writes a 64-bit little-endian unsigned integer.
func (e *Encoder) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(e.scratch[:8], v)
	return e.write(e.scratch[:8])
}

// WriteFloat32 widens v to 64 bits. The format has no 32-bit float.
func (e *Encoder) WriteFloat32(v float32) error {
	return e.WriteFloat64(float64(v))
}

// WriteFloat64 writes an IEEE 754 double.
func (e *Encoder) WriteFloat64(v float64) error {
	return e.WriteUint64(math.Float64bits(v))
}

// WriteString writes a length-prefixed, zero-padded string.
func (e *Encoder) WriteString(v string) error {
	if err := e.writeFrameHeader(len(v)); err != nil {
		return err
	}
	if _, err := io.WriteString(e.writer, v); err != nil {
		return wrapIO(err)
	}
	return e.write(zeroPadding[:framePadding(len(v))])
}

// WriteBytes writes a length-prefixed, zero-padded byte blob. The framing is
// identical to WriteString.
func (e *Encoder) WriteBytes(v []byte) error {
	if err := e.writeFrameHeader(len(v)); err != nil {
		return err
	}
	if err := e.write(v); err != nil {
		return err
	}
	return e.write(zeroPadding[:framePadding(len(v))])
}

// WriteRune always fails: the format has no character type.
func (e *Encoder) WriteRune(rune) error {
	return errUnsupported(CategoryChar)
}

// WriteNone always fails: the format can't express an absent value.
func (e *Encoder) WriteNone() error {
	return errUnsupported(CategoryOption)
}

// WriteUnit always fails: a bare unit value has no encoding. Marker records
// and unit variants, which do, are written as Fixed(0).
func (e *Encoder) WriteUnit() error {
	return errUnsupported(CategoryUnit)
}

// Map always fails. Maps can be decoded but the format defines no way to
// encode them.
func (e *Encoder) Map(int) error {
	return errUnsupported(CategoryMap)
}

// Fixed starts a container whose arity is known from the value's static
// shape: a record, a tuple, or a union variant's payload. Nothing is written
// for the container itself.
func (e *Encoder) Fixed(arity int) *ElementWriter {
	return &ElementWriter{encoder: e, arity: arity}
}

// Sequence writes the element count n and returns a writer for exactly n
// elements. Passing UnknownLength (or any negative n) fails with
// KindUnknownLength.
func (e *Encoder) Sequence(n int) (*ElementWriter, error) {
	if n < 0 {
		return nil, NewError(KindUnknownLength, ErrUnknownLength)
	}
	count, err := narrowInt[uint32](n)
	if err != nil {
		return nil, err
	}
	e.config.Logger.Debug().Int("len", n).Msg("tl: encoding sequence")
	if err := e.WriteUint32(count); err != nil {
		return nil, err
	}
	return &ElementWriter{encoder: e, arity: n}, nil
}

func (e *Encoder) writeFrameHeader(n int) error {
	header, err := appendFrameHeader(e.scratch[:0], n)
	if err != nil {
		return err
	}
	return e.write(header)
}

func (e *Encoder) write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := e.writer.Write(b)
	return wrapIO(err)
}
