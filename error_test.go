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
	"io"
	"strings"
	"testing"

	"connectrpc.com/tl/internal/assert"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NewError(KindFraming, nil).Error(), "tl: framing")
	assert.Equal(t, NewError(KindFraming, errors.New("")).Error(), "tl: framing")
	text := errorf(KindOverflow, "%w: 300", ErrOverflow).Error()
	assert.Equal(t, text, "tl: overflow: value out of range: 300")
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("another: %w", errorf(KindExcessElements, "%w", ErrExcessElements))
	tlErr, ok := asError(err)
	assert.True(t, ok, assert.Sprintf("extract tl error"))
	assert.Equal(t, tlErr.Kind(), KindExcessElements)
	assert.ErrorIs(t, err, ErrExcessElements)
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, KindOf(nil), Kind(0))
	assert.Equal(t, KindOf(errors.New("foo")), Kind(0))
	assert.Equal(t, KindOf(errUnsupported(CategoryChar)), KindUnsupported)
}

func TestKindString(t *testing.T) {
	t.Parallel()
	for kind := KindIO; kind <= KindResourceExhausted; kind++ {
		assert.False(t, strings.HasPrefix(kind.String(), "kind_"), assert.Sprintf("kind %d has no name", kind))
	}
	assert.Equal(t, Kind(99).String(), "kind_99")
}

func TestWrapIO(t *testing.T) {
	t.Parallel()
	assert.Nil(t, wrapIO(nil))
	err := wrapIO(io.ErrClosedPipe)
	assert.Equal(t, KindOf(err), KindIO)
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	// Errors that already carry a kind aren't reclassified.
	framing := errorf(KindFraming, "bad")
	assert.True(t, wrapIO(framing) == error(framing))
}

func TestPrefixError(t *testing.T) {
	t.Parallel()
	err := prefixError(errUnsupported(CategoryMap), "Outer.Field")
	assert.Equal(t, KindOf(err), KindUnsupported)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, err.Error(), "tl: unsupported: Outer.Field: unsupported for this format: map")

	plain := prefixError(io.EOF, "ctx")
	assert.Equal(t, KindOf(plain), Kind(0))
	assert.ErrorIs(t, plain, io.EOF)
}
