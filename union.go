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
	"fmt"
	"reflect"
)

// A Case is one variant of a Union: its name and a sample value of the Go
// type that carries its payload. The sample's contents are ignored.
type Case struct {
	Name  Variant
	Value any
}

// A Union describes a discriminated union modelled as a Go interface with
// one concrete type per variant. A Union is immutable after construction and
// safe to share.
//
// On the wire a union variant is just its payload: a record for struct
// variants, the wrapped value for variants whose type is a named non-struct
// type, and nothing at all for empty structs.
type Union struct {
	name   string
	iface  reflect.Type
	names  []Variant
	byName map[Variant]reflect.Type
	byType map[reflect.Type]Variant
}

// NewUnion describes the union named name. iface must be a nil pointer to
// the interface type, for example (*Shape)(nil), and every case's value must
// implement it. NewUnion panics on misuse, since a malformed union is a
// programming error.
func NewUnion(name string, iface any, cases ...Case) *Union {
	ptr := reflect.TypeOf(iface)
	if ptr == nil || ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Interface {
		panic(fmt.Sprintf("tl: union %s: want a pointer to an interface, got %T", name, iface))
	}
	union := &Union{
		name:   name,
		iface:  ptr.Elem(),
		byName: make(map[Variant]reflect.Type, len(cases)),
		byType: make(map[reflect.Type]Variant, len(cases)),
	}
	for _, c := range cases {
		typ := reflect.TypeOf(c.Value)
		switch {
		case c.Name == "":
			panic(fmt.Sprintf("tl: union %s: case for %v has no name", name, typ))
		case typ == nil || !typ.Implements(union.iface):
			panic(fmt.Sprintf("tl: union %s: case %s: %v doesn't implement %v", name, c.Name, typ, union.iface))
		}
		if _, ok := union.byName[c.Name]; ok {
			panic(fmt.Sprintf("tl: union %s: duplicate case %s", name, c.Name))
		}
		if _, ok := union.byType[typ]; ok {
			panic(fmt.Sprintf("tl: union %s: %v used by more than one case", name, typ))
		}
		union.names = append(union.names, c.Name)
		union.byName[c.Name] = typ
		union.byType[typ] = c.Name
	}
	return union
}

// Name returns the union's name.
func (u *Union) Name() string {
	return u.name
}

// Variants returns the variant names in declaration order. The returned
// slice is a copy.
func (u *Union) Variants() []Variant {
	return append([]Variant(nil), u.names...)
}

// VariantOf returns the name of the variant v belongs to.
func (u *Union) VariantOf(v any) (Variant, bool) {
	name, ok := u.byType[reflect.TypeOf(v)]
	return name, ok
}

// newVariant allocates a zero value of the named variant's type.
func (u *Union) newVariant(name Variant) (reflect.Value, error) {
	if name == "" {
		return reflect.Value{}, NewError(KindMissingVariant, ErrNoVariant)
	}
	typ, ok := u.byName[name]
	if !ok {
		return reflect.Value{}, errorf(KindUnexpectedValue, "union %s has no variant %q", u.name, name)
	}
	return newValue(typ), nil
}
