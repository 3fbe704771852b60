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

// MarshalerFunc adapts an ordinary function to the Marshaler interface.
type MarshalerFunc func(*Encoder) error

// MarshalTL calls f(e).
func (f MarshalerFunc) MarshalTL(e *Encoder) error { return f(e) }

// UnmarshalerFunc adapts an ordinary function to the Unmarshaler interface.
type UnmarshalerFunc func(*Decoder) error

// UnmarshalTL calls f(d).
func (f UnmarshalerFunc) UnmarshalTL(d *Decoder) error { return f(d) }

// An ElementWriter accepts the elements of a fixed container or a sequence,
// in order. It rejects elements beyond the declared arity but doesn't check
// that the container was filled.
type ElementWriter struct {
	encoder *Encoder
	arity   int
	written int
}

// Element encodes the next element with m.
func (w *ElementWriter) Element(m Marshaler) error {
	if err := w.next(); err != nil {
		return err
	}
	return m.MarshalTL(w.encoder)
}

// Value encodes the next element with the reflection walker.
func (w *ElementWriter) Value(v any) error {
	if err := w.next(); err != nil {
		return err
	}
	return w.encoder.Encode(v)
}

// Remaining returns the number of elements that may still be written.
func (w *ElementWriter) Remaining() int {
	return w.arity - w.written
}

func (w *ElementWriter) next() error {
	if w.written >= w.arity {
		return errorf(KindExcessElements, "%w: container declared %d", ErrExcessElements, w.arity)
	}
	w.written++
	return nil
}

// An ElementReader yields the elements of a fixed container or a sequence.
// Asking for an element past the end isn't an error: Element reports
// ok == false and leaves the input untouched.
type ElementReader struct {
	decoder *Decoder
	length  int
	read    int
}

// Element decodes the next element with u.
func (r *ElementReader) Element(u Unmarshaler) (ok bool, err error) {
	if !r.next() {
		return false, nil
	}
	return true, u.UnmarshalTL(r.decoder)
}

// Value decodes the next element into v with the reflection walker.
func (r *ElementReader) Value(v any) (ok bool, err error) {
	if !r.next() {
		return false, nil
	}
	return true, r.decoder.Decode(v)
}

// Len returns the declared number of elements.
func (r *ElementReader) Len() int {
	return r.length
}

// Remaining returns the number of elements not yet read. It's a hint for
// pre-allocation.
func (r *ElementReader) Remaining() int {
	return r.length - r.read
}

func (r *ElementReader) next() bool {
	if r.read >= r.length {
		r.decoder.config.Logger.Debug().Int("len", r.length).Msg("tl: no elements left in container")
		return false
	}
	r.read++
	r.decoder.config.Logger.Debug().Int("index", r.read-1).Msg("tl: decoding element")
	return true
}

// A MapReader yields the key-value pairs of a decoded map. Call Key, and if
// it reports ok, Value.
type MapReader struct {
	decoder *Decoder
	length  int
	read    int
}

// Key decodes the next key with u.
func (r *MapReader) Key(u Unmarshaler) (ok bool, err error) {
	if r.read >= r.length {
		r.decoder.config.Logger.Debug().Int("len", r.length).Msg("tl: no entries left in map")
		return false, nil
	}
	r.read++
	r.decoder.config.Logger.Debug().Msg("tl: decoding map key")
	return true, u.UnmarshalTL(r.decoder)
}

// Value decodes the value paired with the last key.
func (r *MapReader) Value(u Unmarshaler) error {
	r.decoder.config.Logger.Debug().Msg("tl: decoding map value")
	return u.UnmarshalTL(r.decoder)
}

// Len returns the declared number of pairs.
func (r *MapReader) Len() int {
	return r.length
}

// Remaining returns the number of pairs not yet read.
func (r *MapReader) Remaining() int {
	return r.length - r.read
}

// A VariantReader decodes the payload of one union variant. Its name comes
// from the caller's hint, never from the wire.
type VariantReader struct {
	decoder *Decoder
	name    Variant
}

// Name returns the variant being decoded.
func (r *VariantReader) Name() Variant {
	return r.name
}

// Unit accepts a variant with no payload. It consumes no input.
func (r *VariantReader) Unit() error {
	return nil
}

// Newtype decodes a variant that wraps a single value.
func (r *VariantReader) Newtype(u Unmarshaler) error {
	return u.UnmarshalTL(r.decoder)
}

// Fields returns a reader for a variant with arity fields, laid out like a
// record or tuple.
func (r *VariantReader) Fields(arity int) *ElementReader {
	return r.decoder.Fixed(arity)
}
