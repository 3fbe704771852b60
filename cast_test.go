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
	"math"
	"testing"

	"connectrpc.com/tl/internal/assert"
)

func TestNarrowInt(t *testing.T) {
	t.Parallel()
	t.Run("fits", func(t *testing.T) {
		t.Parallel()
		n, err := narrowInt[int8](int32(100))
		assert.Nil(t, err)
		assert.Equal(t, n, int8(100))

		n, err = narrowInt[int8](int32(-128))
		assert.Nil(t, err)
		assert.Equal(t, n, int8(-128))

		u, err := narrowInt[uint16](uint32(math.MaxUint16))
		assert.Nil(t, err)
		assert.Equal(t, u, uint16(math.MaxUint16))
	})
	t.Run("overflows", func(t *testing.T) {
		t.Parallel()
		_, err := narrowInt[int8](int32(300))
		assert.Equal(t, KindOf(err), KindOverflow)
		assert.ErrorIs(t, err, ErrOverflow)

		_, err = narrowInt[int16](int32(-40000))
		assert.Equal(t, KindOf(err), KindOverflow)

		_, err = narrowInt[uint8](uint32(256))
		assert.Equal(t, KindOf(err), KindOverflow)
	})
	t.Run("sign change", func(t *testing.T) {
		t.Parallel()
		_, err := narrowInt[int32](uint32(math.MaxUint32))
		assert.Equal(t, KindOf(err), KindOverflow)

		_, err = narrowInt[uint32](int64(-1))
		assert.Equal(t, KindOf(err), KindOverflow)
	})
}

func TestNarrowFloat32(t *testing.T) {
	t.Parallel()
	f, err := narrowFloat32(1.5)
	assert.Nil(t, err)
	assert.Equal(t, f, float32(1.5))

	f, err = narrowFloat32(math.Inf(-1))
	assert.Nil(t, err)
	assert.True(t, math.IsInf(float64(f), -1))

	f, err = narrowFloat32(math.NaN())
	assert.Nil(t, err)
	assert.True(t, math.IsNaN(float64(f)))

	_, err = narrowFloat32(0.1)
	assert.Equal(t, KindOf(err), KindOverflow)

	_, err = narrowFloat32(math.MaxFloat64)
	assert.Equal(t, KindOf(err), KindOverflow)
}
