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
	"sync"
)

// Most TL messages are small, so start buffers at a size that fits a typical
// RPC without growing.
const initialBufferSize = 512

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, initialBufferSize))
	},
}

func getBuffer() *bytes.Buffer {
	buf, ok := bufferPool.Get().(*bytes.Buffer)
	if !ok {
		return bytes.NewBuffer(make([]byte, 0, initialBufferSize))
	}
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	const maxRetained = 1024 * 1024 // if >1 MiB, don't hold onto it
	if buf.Cap() > maxRetained {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
