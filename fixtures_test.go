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

package tl_test

import (
	"errors"
	"fmt"

	"connectrpc.com/tl"
)

// foo is a plain boxed record.
type foo struct {
	HasReceiver bool
	Size        uint
}

func (foo) TLID() uint32 { return 0xdeadbeef }

var (
	fooValue   = foo{HasReceiver: true, Size: 57}
	fooEncoded = []byte{
		0xef, 0xbe, 0xad, 0xde, // identifier
		0xb5, 0x75, 0x72, 0x99, // boolTrue
		57, 0, 0, 0, 0, 0, 0, 0, // 57 as 64 bits
	}
)

// cafebabe is a union with one Go type per variant.
type cafebabe interface {
	tl.Identifiable
	isCafebabe()
}

type cafebabeBar struct {
	ByteID   int8
	Position [2]uint64
}

func (cafebabeBar) TLID() uint32 { return 0x0badf00d }
func (cafebabeBar) isCafebabe()  {}

type cafebabeBaz struct {
	ID   uint64
	Name string
}

func (cafebabeBaz) TLID() uint32 { return 0xbaaaaaad }
func (cafebabeBaz) isCafebabe()  {}

type cafebabeQux struct{}

func (cafebabeQux) TLID() uint32 { return 0x0c0ffee0 }
func (cafebabeQux) isCafebabe()  {}

var (
	cafebabeUnion = tl.NewUnion(
		"Cafebabe",
		(*cafebabe)(nil),
		tl.Case{Name: "Bar", Value: cafebabeBar{}},
		tl.Case{Name: "Baz", Value: cafebabeBaz{}},
		tl.Case{Name: "Qux", Value: cafebabeQux{}},
	)

	barValue   = cafebabeBar{ByteID: -20, Position: [2]uint64{350, 142857}}
	barEncoded = []byte{
		0x0d, 0xf0, 0xad, 0x0b, // identifier
		0xec, 0xff, 0xff, 0xff, // -20 widened to 32 bits
		0x5e, 0x01, 0, 0, 0, 0, 0, 0, // 350
		0x09, 0x2e, 0x02, 0, 0, 0, 0, 0, // 142857
	}
	bazValue   = cafebabeBaz{ID: ^uint64(0), Name: "beef"}
	bazEncoded = []byte{
		0xad, 0xaa, 0xaa, 0xba, // identifier
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // max uint64
		4, 'b', 'e', 'e', 'f', 0, 0, 0, // length, content, padding
	}
)

// envelope exercises boxed fields, skipped fields and vectors.
type envelope struct {
	Seq     int32
	Body    cafebabe          `tl:"boxed"`
	Tags    tl.Vector[string] `tl:"boxed"`
	Weights []float32
	Scratch string `tl:"-"`
}

func newRegistry() *tl.Registry {
	registry := tl.NewRegistry()
	if err := registry.RegisterUnion(cafebabeUnion); err != nil {
		panic(err)
	}
	if err := registry.Register(foo{}); err != nil {
		panic(err)
	}
	return registry
}

// shape is a union modelled as a single Go type that decodes itself.
type shape struct {
	Kind   tl.Variant
	Radius float64
	Width  int32
	Height int32
}

func (s shape) MarshalTL(e *tl.Encoder) error {
	switch s.Kind {
	case "circle":
		return e.Fixed(1).Element(tl.MarshalerFunc(func(e *tl.Encoder) error {
			return e.WriteFloat64(s.Radius)
		}))
	case "rect":
		fields := e.Fixed(2)
		if err := fields.Value(s.Width); err != nil {
			return err
		}
		return fields.Value(s.Height)
	case "empty":
		return nil
	default:
		return fmt.Errorf("unknown shape %q", s.Kind)
	}
}

func (s *shape) UnmarshalTLVariant(d *tl.Decoder, hint tl.Variant) error {
	variant, err := d.Variant(hint)
	if err != nil {
		return err
	}
	s.Kind = variant.Name()
	switch variant.Name() {
	case "circle":
		return variant.Newtype(tl.UnmarshalerFunc(func(d *tl.Decoder) error {
			s.Radius, err = d.ReadFloat64()
			return err
		}))
	case "rect":
		fields := variant.Fields(2)
		if _, err := fields.Value(&s.Width); err != nil {
			return err
		}
		_, err := fields.Value(&s.Height)
		return err
	case "empty":
		return variant.Unit()
	default:
		return errors.New("unknown shape")
	}
}

// failingWriter fails every write after the first n bytes.
type failingWriter struct {
	n   int
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) <= w.n {
		w.n -= len(p)
		return len(p), nil
	}
	written := w.n
	w.n = 0
	return written, w.err
}
