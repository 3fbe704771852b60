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
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// GzipPackedID identifies gzip_packed, the constructor that carries another
// boxed value compressed with gzip.
const GzipPackedID uint32 = 0x3072cfa1

// GzipPacked is gzip_packed packed_data:bytes = Object. Boxed encoding
// produces it when WithGzip is set, and boxed decoding unwraps it, so most
// code never handles it directly. Decoding into a GzipPacked itself leaves
// the compressed bytes alone.
type GzipPacked struct {
	PackedData []byte
}

// TLID implements Identifiable.
func (GzipPacked) TLID() uint32 { return GzipPackedID }

var (
	emptyGzipBytes = func() []byte {
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		_ = writer.Close()
		return buf.Bytes()
	}()

	gzipReaders = sync.Pool{
		New: func() any {
			// gzip.NewReader requires a source of valid gzipped bytes, so
			// start from the zero value and Reset.
			return &gzip.Reader{}
		},
	}
	gzipWriters = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
)

// packGzip compresses an encoded boxed value into a gzip_packed wrapper.
func packGzip(plain []byte) (*GzipPacked, error) {
	var packed bytes.Buffer
	writer, _ := gzipWriters.Get().(*gzip.Writer)
	if writer == nil {
		writer = gzip.NewWriter(io.Discard)
	}
	writer.Reset(&packed)
	defer func() {
		writer.Reset(io.Discard) // don't keep references
		gzipWriters.Put(writer)
	}()
	if _, err := writer.Write(plain); err != nil {
		return nil, wrapIO(err)
	}
	if err := writer.Close(); err != nil {
		return nil, wrapIO(err)
	}
	return &GzipPacked{PackedData: packed.Bytes()}, nil
}

// unpackGzip inflates packed. If limit is positive, output larger than limit
// fails with KindResourceExhausted.
func unpackGzip(packed []byte, limit int) ([]byte, error) {
	reader, _ := gzipReaders.Get().(*gzip.Reader)
	if reader == nil {
		reader = &gzip.Reader{}
	}
	defer func() {
		_ = reader.Close()
		_ = reader.Reset(bytes.NewReader(emptyGzipBytes)) // don't keep references
		gzipReaders.Put(reader)
	}()
	if err := reader.Reset(bytes.NewReader(packed)); err != nil {
		return nil, errorf(KindFraming, "gzip_packed: %w", err)
	}
	var source io.Reader = reader
	if limit > 0 {
		source = io.LimitReader(reader, int64(limit)+1)
	}
	plain, err := io.ReadAll(source)
	if err != nil {
		return nil, errorf(KindFraming, "gzip_packed: %w", err)
	}
	if limit > 0 && len(plain) > limit {
		return nil, errorf(KindResourceExhausted, "gzip_packed: unpacked size is larger than configured max %d", limit)
	}
	return plain, nil
}
