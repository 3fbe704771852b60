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
	"connectrpc.com/tl/codec"
)

// CodecName is the name Codec reports.
const CodecName = "tl"

// Codec moves boxed values through the codec.Codec interface. Marshal needs
// an Identifiable value; Unmarshal resolves identifiers through Registry,
// which may be nil when every target is a concrete Identifiable type.
//
// A Codec is safe for concurrent use as long as its fields aren't modified.
type Codec struct {
	Registry      *Registry
	EncodeOptions []EncodeOption
	DecodeOptions []DecodeOption
}

var _ codec.Codec = (*Codec)(nil)

// Name implements codec.Codec.
func (c *Codec) Name() string { return CodecName }

// Marshal implements codec.Codec.
func (c *Codec) Marshal(message any) ([]byte, error) {
	boxed, ok := message.(Identifiable)
	if !ok {
		return nil, errNotIdentifiable(message)
	}
	return MarshalBoxed(boxed, c.EncodeOptions...)
}

// Unmarshal implements codec.Codec.
func (c *Codec) Unmarshal(data []byte, message any) error {
	var resolver Resolver
	if c.Registry != nil {
		resolver = c.Registry
	}
	return UnmarshalBoxed(data, message, resolver, c.DecodeOptions...)
}

func errNotIdentifiable(m any) error {
	return errorf(KindUnsupported, "%w: %T doesn't implement tl.Identifiable", ErrUnsupported, m)
}
