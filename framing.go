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

// Strings and byte blobs share one framing. Short payloads get a one-byte
// length header; long payloads get the marker byte 0xfe followed by a 3-byte
// little-endian length. Either way, zero padding brings header + payload +
// padding up to a multiple of four bytes.
const (
	maxShortLength   = 253
	longLengthMarker = 0xfe
	reservedMarker   = 0xff
	// MaxBlobLength is the longest string or byte blob the framing can express.
	MaxBlobLength = 1<<24 - 1

	longHeaderSize = 4
	alignment      = 4
)

var zeroPadding [alignment]byte

// frameHeaderSize is the number of bytes the length header of an n-byte
// payload occupies.
func frameHeaderSize(n int) int {
	if n <= maxShortLength {
		return 1
	}
	return longHeaderSize
}

// framePadding is the number of zero bytes that follow an n-byte payload.
func framePadding(n int) int {
	return alignPadding(frameHeaderSize(n) + n)
}

// alignPadding is the number of zero bytes needed to bring size up to a
// multiple of four.
func alignPadding(size int) int {
	return (alignment - size%alignment) % alignment
}

// FramedLen returns the number of bytes a string or byte blob of length n
// occupies on the wire, including header and padding. The result is always a
// multiple of four.
func FramedLen(n int) int {
	return frameHeaderSize(n) + n + framePadding(n)
}

// appendFrameHeader appends the length header for an n-byte payload to dst.
func appendFrameHeader(dst []byte, n int) ([]byte, error) {
	switch {
	case n < 0:
		return dst, errorf(KindFraming, "negative length %d", n)
	case n <= maxShortLength:
		return append(dst, byte(n)), nil
	case n <= MaxBlobLength:
		return append(dst, longLengthMarker, byte(n), byte(n>>8), byte(n>>16)), nil
	default:
		return dst, errorf(KindFraming, "length %d exceeds maximum %d", n, MaxBlobLength)
	}
}

// parseFrameHeader interprets the first header byte. For short payloads it
// returns the length directly and long == false; for long payloads the caller
// must read three more bytes and pass them to parseLongLength.
func parseFrameHeader(first byte) (n int, long bool, err error) {
	switch first {
	case reservedMarker:
		return 0, false, NewError(KindFraming, ErrInvalidLengthMarker)
	case longLengthMarker:
		return 0, true, nil
	default:
		return int(first), false, nil
	}
}

func parseLongLength(b [3]byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}
