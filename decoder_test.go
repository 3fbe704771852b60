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

package tl_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"connectrpc.com/tl"
	"connectrpc.com/tl/internal/assert"
)

func TestDecoderBool(t *testing.T) {
	t.Parallel()
	for _, want := range []bool{true, false} {
		data, err := tl.Marshal(want)
		assert.Nil(t, err)
		var got bool
		assert.Nil(t, tl.Unmarshal(data, &got))
		assert.Equal(t, got, want)
	}
	var got bool
	err := tl.Unmarshal([]byte{0x0b, 0xac, 0x79, 0x37}, &got)
	assert.Equal(t, tl.KindOf(err), tl.KindUnexpectedValue)
	assert.Match(t, err.Error(), "boolTrue")
}

func TestDecoderNarrowing(t *testing.T) {
	t.Parallel()
	t.Run("fits", func(t *testing.T) {
		t.Parallel()
		var got int8
		assert.Nil(t, tl.Unmarshal([]byte{100, 0, 0, 0}, &got))
		assert.Equal(t, got, int8(100))
	})
	t.Run("negative", func(t *testing.T) {
		t.Parallel()
		var got int16
		assert.Nil(t, tl.Unmarshal([]byte{0xec, 0xff, 0xff, 0xff}, &got))
		assert.Equal(t, got, int16(-20))
	})
	t.Run("int8 overflow", func(t *testing.T) {
		t.Parallel()
		var got int8
		err := tl.Unmarshal([]byte{0x2c, 0x01, 0, 0}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindOverflow)
		assert.ErrorIs(t, err, tl.ErrOverflow)
	})
	t.Run("uint16 overflow", func(t *testing.T) {
		t.Parallel()
		_, err := tl.NewBytesDecoder([]byte{0, 0, 1, 0}).ReadUint16()
		assert.Equal(t, tl.KindOf(err), tl.KindOverflow)
	})
	t.Run("float32 overflow", func(t *testing.T) {
		t.Parallel()
		data, err := tl.Marshal(1e300)
		assert.Nil(t, err)
		var got float32
		err = tl.Unmarshal(data, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindOverflow)
	})
	t.Run("float32 exact", func(t *testing.T) {
		t.Parallel()
		data, err := tl.Marshal(float32(0.25))
		assert.Nil(t, err)
		var got float32
		assert.Nil(t, tl.Unmarshal(data, &got))
		assert.Equal(t, got, float32(0.25))
	})
}

func TestDecoderStrings(t *testing.T) {
	t.Parallel()
	t.Run("framing boundaries", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{0, 1, 3, 4, 252, 253, 254, 255, 1000} {
			want := strings.Repeat("z", n)
			data, err := tl.Marshal(want)
			assert.Nil(t, err)
			assert.Equal(t, len(data), tl.FramedLen(n))
			assert.Equal(t, len(data)%4, 0)
			var got string
			rest, err := tl.UnmarshalPrefix(data, &got)
			assert.Nil(t, err)
			assert.Equal(t, got, want)
			assert.Len(t, rest, 0)
		}
	})
	t.Run("long header for a short payload", func(t *testing.T) {
		t.Parallel()
		// Padding follows the header actually used, not the shortest one.
		data := []byte{0xfe, 2, 0, 0, 'h', 'i', 0, 0, 0xaa}
		var got string
		rest, err := tl.UnmarshalPrefix(data, &got)
		assert.Nil(t, err)
		assert.Equal(t, got, "hi")
		assert.Bytes(t, rest, []byte{0xaa})
	})
	t.Run("reserved marker", func(t *testing.T) {
		t.Parallel()
		var got string
		err := tl.Unmarshal([]byte{0xff, 0, 0, 0}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)
		assert.ErrorIs(t, err, tl.ErrInvalidLengthMarker)
	})
	t.Run("invalid utf-8", func(t *testing.T) {
		t.Parallel()
		var got string
		err := tl.Unmarshal([]byte{2, 0xc3, 0x28, 0}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)
		assert.ErrorIs(t, err, tl.ErrInvalidUTF8)

		var raw []byte
		assert.Nil(t, tl.Unmarshal([]byte{2, 0xc3, 0x28, 0}, &raw))
		assert.Bytes(t, raw, []byte{0xc3, 0x28})
	})
	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		var got string
		err := tl.Unmarshal([]byte{4, 'b', 'e'}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)

		err = tl.NewDecoder(bytes.NewReader([]byte{4, 'b', 'e'})).Decode(&got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("missing padding", func(t *testing.T) {
		t.Parallel()
		var got string
		err := tl.Unmarshal([]byte{4, 'b', 'e', 'e', 'f'}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)
	})
}

func TestDecoderReadMaxBytes(t *testing.T) {
	t.Parallel()
	data, err := tl.Marshal([]byte("0123456789"))
	assert.Nil(t, err)
	var got []byte
	err = tl.Unmarshal(data, &got, tl.WithReadMaxBytes(8))
	assert.Equal(t, tl.KindOf(err), tl.KindResourceExhausted)
	assert.Nil(t, tl.Unmarshal(data, &got, tl.WithReadMaxBytes(10)))
	assert.Bytes(t, got, []byte("0123456789"))
}

func TestDecoderCounts(t *testing.T) {
	t.Parallel()
	type marker struct{}
	type markers struct {
		A marker
		B [0]int32
	}
	huge := []byte{0, 0, 0, 0x02}
	t.Run("empty elements", func(t *testing.T) {
		t.Parallel()
		var got []marker
		err := tl.Unmarshal(huge, &got, tl.WithReadMaxBytes(1024))
		assert.Equal(t, tl.KindOf(err), tl.KindResourceExhausted)

		assert.Nil(t, tl.Unmarshal([]byte{3, 0, 0, 0}, &got, tl.WithReadMaxBytes(1024)))
		assert.Equal(t, got, []marker{{}, {}, {}})

		var nested [][2]markers
		assert.Nil(t, tl.Unmarshal(huge, &nested))
		assert.Equal(t, len(nested), 0x02000000)
	})
	t.Run("empty pairs", func(t *testing.T) {
		t.Parallel()
		var got map[marker]marker
		assert.Nil(t, tl.Unmarshal(huge, &got))
		assert.Equal(t, got, map[marker]marker{{}: {}})
		err := tl.Unmarshal(huge, &got, tl.WithReadMaxBytes(1024))
		assert.Equal(t, tl.KindOf(err), tl.KindResourceExhausted)
	})
	t.Run("more elements than bytes", func(t *testing.T) {
		t.Parallel()
		var got []int32
		err := tl.Unmarshal([]byte{2, 0, 0, 0, 7, 0, 0, 0}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)

		var entries map[int32]int32
		err = tl.Unmarshal([]byte{9, 0, 0, 0, 1, 0, 0, 0}, &entries)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)

		_, err = tl.NewBytesDecoder(huge).Sequence()
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)
	})
	t.Run("read limit", func(t *testing.T) {
		t.Parallel()
		data := []byte{3, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
		var got []int32
		err := tl.Unmarshal(data, &got, tl.WithReadMaxBytes(2))
		assert.Equal(t, tl.KindOf(err), tl.KindResourceExhausted)
		assert.Nil(t, tl.Unmarshal(data, &got, tl.WithReadMaxBytes(3)))
		assert.Equal(t, got, []int32{1, 2, 3})

		_, err = tl.NewDecoder(bytes.NewReader(huge), tl.WithReadMaxBytes(16)).Map()
		assert.Equal(t, tl.KindOf(err), tl.KindResourceExhausted)
	})
}

func TestDecoderRemainder(t *testing.T) {
	t.Parallel()
	t.Run("bytes", func(t *testing.T) {
		t.Parallel()
		dec := tl.NewBytesDecoder([]byte{1, 0, 0, 0, 2, 0, 0, 0, 3})
		n, err := dec.ReadInt32()
		assert.Nil(t, err)
		assert.Equal(t, n, int32(1))
		assert.Equal(t, dec.Len(), 5)
		rest, err := dec.Remainder()
		assert.Nil(t, err)
		assert.Bytes(t, rest, []byte{2, 0, 0, 0, 3})
		assert.Equal(t, dec.Len(), 0)
	})
	t.Run("stream", func(t *testing.T) {
		t.Parallel()
		reader := bytes.NewReader([]byte{1, 0, 0, 0, 2, 0, 0, 0})
		dec := tl.NewDecoder(reader)
		var n int32
		assert.Nil(t, dec.Decode(&n))
		assert.Equal(t, dec.Len(), -1)
		rest, err := dec.Remainder()
		assert.Nil(t, err)
		assert.Nil(t, rest)
		assert.Equal(t, reader.Len(), 4)

		after, err := tl.DecodeFrom(dec.Reader(), &n)
		assert.Nil(t, err)
		assert.Equal(t, n, int32(2))
		assert.True(t, after == io.Reader(reader))
	})
	t.Run("trailing bytes are ignored", func(t *testing.T) {
		t.Parallel()
		var n int32
		assert.Nil(t, tl.Unmarshal([]byte{1, 0, 0, 0, 0xff}, &n))
		assert.Equal(t, n, int32(1))
	})
}

func TestDecoderContainers(t *testing.T) {
	t.Parallel()
	t.Run("sequence", func(t *testing.T) {
		t.Parallel()
		dec := tl.NewBytesDecoder([]byte{2, 0, 0, 0, 7, 0, 0, 0, 8, 0, 0, 0})
		seq, err := dec.Sequence()
		assert.Nil(t, err)
		assert.Equal(t, seq.Len(), 2)
		var got []int32
		for {
			var n int32
			ok, err := seq.Value(&n)
			assert.Nil(t, err)
			if !ok {
				break
			}
			got = append(got, n)
		}
		assert.Equal(t, got, []int32{7, 8})
		assert.Equal(t, seq.Remaining(), 0)
		assert.Equal(t, dec.Len(), 0)
	})
	t.Run("fixed reads no count", func(t *testing.T) {
		t.Parallel()
		dec := tl.NewBytesDecoder([]byte{7, 0, 0, 0})
		fields := dec.Fixed(1)
		var n int32
		ok, err := fields.Element(tl.UnmarshalerFunc(func(d *tl.Decoder) error {
			return d.Decode(&n)
		}))
		assert.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, n, int32(7))
		ok, err = fields.Value(&n)
		assert.Nil(t, err)
		assert.False(t, ok)
	})
	t.Run("map", func(t *testing.T) {
		t.Parallel()
		data := []byte{
			2, 0, 0, 0,
			1, 'a', 0, 0, 1, 0, 0, 0,
			1, 'b', 0, 0, 2, 0, 0, 0,
		}
		var got map[string]int32
		assert.Nil(t, tl.Unmarshal(data, &got))
		assert.Equal(t, got, map[string]int32{"a": 1, "b": 2})
	})
	t.Run("map reader", func(t *testing.T) {
		t.Parallel()
		dec := tl.NewBytesDecoder([]byte{1, 0, 0, 0, 9, 0, 0, 0, 1, 'x', 0, 0})
		entries, err := dec.Map()
		assert.Nil(t, err)
		assert.Equal(t, entries.Len(), 1)
		var (
			key   int32
			value string
		)
		ok, err := entries.Key(tl.UnmarshalerFunc(func(d *tl.Decoder) error { return d.Decode(&key) }))
		assert.Nil(t, err)
		assert.True(t, ok)
		assert.Nil(t, entries.Value(tl.UnmarshalerFunc(func(d *tl.Decoder) error { return d.Decode(&value) })))
		assert.Equal(t, key, int32(9))
		assert.Equal(t, value, "x")
		assert.Equal(t, entries.Remaining(), 0)
		ok, err = entries.Key(tl.UnmarshalerFunc(func(d *tl.Decoder) error { return d.Decode(&key) }))
		assert.Nil(t, err)
		assert.False(t, ok)
	})
	t.Run("variant needs a hint", func(t *testing.T) {
		t.Parallel()
		_, err := tl.NewBytesDecoder(nil).Variant("")
		assert.Equal(t, tl.KindOf(err), tl.KindMissingVariant)
		assert.ErrorIs(t, err, tl.ErrNoVariant)

		variant, err := tl.NewBytesDecoder(nil).Variant("circle")
		assert.Nil(t, err)
		assert.Equal(t, variant.Name(), tl.Variant("circle"))
		assert.Nil(t, variant.Unit())
	})
	t.Run("huge count fails without allocating", func(t *testing.T) {
		t.Parallel()
		var got []int64
		err := tl.Unmarshal([]byte{0xff, 0xff, 0xff, 0x7f}, &got)
		assert.Equal(t, tl.KindOf(err), tl.KindFraming)
	})
}

func TestDecoderUnsupported(t *testing.T) {
	t.Parallel()
	dec := tl.NewBytesDecoder([]byte{1, 0, 0, 0})
	_, runeErr := dec.ReadRune()
	tests := []struct {
		name string
		err  error
	}{
		{"rune", runeErr},
		{"optional", dec.ReadOptional()},
		{"unit", dec.ReadUnit()},
		{"any", dec.ReadAny()},
		{"ignored", dec.ReadIgnored()},
	}
	for _, tt := range tests {
		assert.Equal(t, tl.KindOf(tt.err), tl.KindUnsupported, assert.Sprintf(tt.name))
	}
	// Failed unsupported reads consume nothing.
	assert.Equal(t, dec.Len(), 4)

	var target struct{ V any }
	err := tl.Unmarshal([]byte{1, 0, 0, 0}, &target)
	assert.Equal(t, tl.KindOf(err), tl.KindUnsupported)

	var fn func()
	err = tl.Unmarshal(nil, &fn)
	assert.Equal(t, tl.KindOf(err), tl.KindUnsupported)

	err = tl.Unmarshal(nil, 42)
	assert.Equal(t, tl.KindOf(err), tl.KindUnsupported)
}
