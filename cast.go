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
)

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// narrowInt converts wide to N, failing rather than truncating or wrapping
// when the value isn't representable. The round trip catches truncation; the
// sign comparison catches values that wrap between signed and unsigned types.
func narrowInt[N, W integer](wide W) (N, error) {
	narrow := N(wide)
	if W(narrow) != wide || (narrow < 0) != (wide < 0) {
		var zero N
		return zero, errorf(KindOverflow, "%w: %d doesn't fit in %T", ErrOverflow, wide, zero)
	}
	return narrow, nil
}

// narrowFloat32 converts a float64 to float32 only when the conversion is
// exact. NaN and the infinities are carried across.
func narrowFloat32(wide float64) (float32, error) {
	if math.IsNaN(wide) {
		return float32(math.NaN()), nil
	}
	narrow := float32(wide)
	if float64(narrow) != wide {
		return 0, errorf(KindOverflow, "%w: %v isn't exactly representable as float32", ErrOverflow, wide)
	}
	return narrow, nil
}
