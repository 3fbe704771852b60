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
	"testing"

	"connectrpc.com/tl/internal/assert"
)

func TestFramedLen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		length  int
		header  int
		padding int
	}{
		{0, 1, 3},
		{1, 1, 2},
		{2, 1, 1},
		{3, 1, 0},
		{4, 1, 3},
		{252, 1, 3},
		{253, 1, 2},
		{254, 4, 2},
		{255, 4, 1},
		{256, 4, 0},
		{257, 4, 3},
		{MaxBlobLength, 4, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, frameHeaderSize(tt.length), tt.header, assert.Sprintf("header for length %d", tt.length))
		assert.Equal(t, framePadding(tt.length), tt.padding, assert.Sprintf("padding for length %d", tt.length))
		total := FramedLen(tt.length)
		assert.Equal(t, total, tt.header+tt.length+tt.padding)
		assert.Equal(t, total%4, 0, assert.Sprintf("alignment for length %d", tt.length))
	}
}

func TestAppendFrameHeader(t *testing.T) {
	t.Parallel()
	t.Run("short", func(t *testing.T) {
		t.Parallel()
		header, err := appendFrameHeader(nil, 253)
		assert.Nil(t, err)
		assert.Bytes(t, header, []byte{253})
	})
	t.Run("long", func(t *testing.T) {
		t.Parallel()
		header, err := appendFrameHeader(nil, 254)
		assert.Nil(t, err)
		assert.Bytes(t, header, []byte{0xfe, 254, 0, 0})
		header, err = appendFrameHeader(nil, 0x123456)
		assert.Nil(t, err)
		assert.Bytes(t, header, []byte{0xfe, 0x56, 0x34, 0x12})
	})
	t.Run("too long", func(t *testing.T) {
		t.Parallel()
		_, err := appendFrameHeader(nil, MaxBlobLength+1)
		assert.Equal(t, KindOf(err), KindFraming)
	})
	t.Run("negative", func(t *testing.T) {
		t.Parallel()
		_, err := appendFrameHeader(nil, -1)
		assert.Equal(t, KindOf(err), KindFraming)
	})
}

func TestParseFrameHeader(t *testing.T) {
	t.Parallel()
	n, long, err := parseFrameHeader(17)
	assert.Nil(t, err)
	assert.False(t, long)
	assert.Equal(t, n, 17)

	_, long, err = parseFrameHeader(0xfe)
	assert.Nil(t, err)
	assert.True(t, long)
	assert.Equal(t, parseLongLength([3]byte{0x56, 0x34, 0x12}), 0x123456)

	_, _, err = parseFrameHeader(0xff)
	assert.Equal(t, KindOf(err), KindFraming)
	assert.ErrorIs(t, err, ErrInvalidLengthMarker)
}
