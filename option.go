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
	"github.com/rs/zerolog"
)

// An EncodeOption configures an Encoder and the Marshal family of functions.
type EncodeOption interface {
	applyToEncoder(*encoderConfig)
}

// A DecodeOption configures a Decoder and the Unmarshal family of functions.
type DecodeOption interface {
	applyToDecoder(*decoderConfig)
}

// Option implements both EncodeOption and DecodeOption, so it can be applied
// on either side.
type Option interface {
	EncodeOption
	DecodeOption
}

type encoderConfig struct {
	Logger       zerolog.Logger
	Gzip         bool
	GzipMinBytes int
}

func newEncoderConfig(options []EncodeOption) *encoderConfig {
	cfg := &encoderConfig{Logger: zerolog.Nop()}
	for _, opt := range options {
		opt.applyToEncoder(cfg)
	}
	return cfg
}

type decoderConfig struct {
	Logger       zerolog.Logger
	ReadMaxBytes int
	Registry     *Registry
}

func newDecoderConfig(options []DecodeOption) *decoderConfig {
	cfg := &decoderConfig{Logger: zerolog.Nop()}
	for _, opt := range options {
		opt.applyToDecoder(cfg)
	}
	return cfg
}

// resolver returns the configured Registry as a Resolver, or nil. A nil
// *Registry must not end up inside a non-nil interface.
func (c *decoderConfig) resolver() Resolver {
	if c.Registry == nil {
		return nil
	}
	return c.Registry
}

// WithLogger sets the logger used to trace each step of an encode or decode
// call at debug level. By default, nothing is logged.
func WithLogger(logger zerolog.Logger) Option {
	return &loggerOption{logger}
}

type loggerOption struct {
	Logger zerolog.Logger
}

func (o *loggerOption) applyToEncoder(cfg *encoderConfig) {
	cfg.Logger = o.Logger
}

func (o *loggerOption) applyToDecoder(cfg *decoderConfig) {
	cfg.Logger = o.Logger
}

// WithReadMaxBytes limits the performance impact of pathologically large
// strings and byte blobs sent by the other party. A declared length greater
// than n fails with KindResourceExhausted before any payload is allocated.
// The same limit caps the element count of every sequence and map. It
// applies to each blob or container, not to the message as a whole.
//
// Setting n to zero (the default) allows any length the framing can express.
func WithReadMaxBytes(n int) DecodeOption {
	return &readMaxBytesOption{n}
}

type readMaxBytesOption struct {
	Max int
}

func (o *readMaxBytesOption) applyToDecoder(cfg *decoderConfig) {
	cfg.ReadMaxBytes = o.Max
}

// WithRegistry supplies the table used to resolve boxed fields whose Go type
// is an interface, and to find the variants of unions decoded with a hint.
// Decoding plain records and concrete boxed types doesn't need a registry.
func WithRegistry(registry *Registry) DecodeOption {
	return &registryOption{registry}
}

type registryOption struct {
	Registry *Registry
}

func (o *registryOption) applyToDecoder(cfg *decoderConfig) {
	cfg.Registry = o.Registry
}

// WithGzip makes boxed encoding wrap the payload in gzip_packed whenever the
// uncompressed boxed encoding is larger than minBytes. Compressing small
// payloads usually isn't worth the CPU. Decoding always understands
// gzip_packed, so there is no matching decode option.
func WithGzip(minBytes int) EncodeOption {
	return &gzipOption{minBytes}
}

type gzipOption struct {
	MinBytes int
}

func (o *gzipOption) applyToEncoder(cfg *encoderConfig) {
	cfg.Gzip = true
	cfg.GzipMinBytes = o.MinBytes
}
