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

// Package tl encodes and decodes the binary "type language" format used by
// MTProto-style RPC protocols.
//
// The format isn't self-describing. Scalars are little-endian; 8- and 16-bit
// integers travel as 32 bits and float32 travels as float64. Strings and byte
// blobs share a length-prefixed framing padded to four bytes. Records,
// tuples and union payloads are written field by field with no count, while
// sequences and maps carry a 32-bit element count. A "boxed" value is
// preceded by its 32-bit type identifier; a "bare" value isn't.
//
// Because nothing on the wire says which variant of a union follows, decoding
// a union always needs a Variant supplied by the caller. Boxed decoding gets
// it by reading the identifier and resolving it through a Registry; bare
// decoding takes it as an argument to DecodeVariant or UnmarshalVariant.
// That hint applies to every union reached while decoding the value,
// including ones nested in records, sequences and other variants. Boxed
// values nested inside use their own identifier instead.
//
// Types can encode themselves by implementing Marshaler and Unmarshaler, or
// be walked with reflection. The walker treats structs as records (skipping
// fields tagged `tl:"-"`, prefixing identifiers for fields tagged
// `tl:"boxed"`), arrays as tuples, slices as sequences, []byte as a blob, and
// interfaces registered with RegisterUnion as unions. int and uint are 64
// bits wide on the wire. Values with no representation, such as nil
// pointers, maps (when encoding), and empty interfaces, fail with
// KindUnsupported.
package tl
