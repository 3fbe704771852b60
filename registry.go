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
	"reflect"
)

// A Descriptor is what a Resolver knows about a type identifier.
type Descriptor struct {
	ID       uint32
	TypeName string
	// Variant is empty unless the identifier names a case of a union.
	Variant Variant
	// Type is the Go type carrying the payload.
	Type reflect.Type
}

// A Resolver maps a type identifier read from the wire to a Descriptor.
// Unknown identifiers fail with KindUnknownIdentifier.
type Resolver interface {
	Resolve(id uint32) (Descriptor, error)
}

// A Registry is a static table of boxed types and unions. Build it once,
// before decoding; after that it's read-only and safe for concurrent use.
//
// The zero value is not usable; use NewRegistry.
type Registry struct {
	byID   map[uint32]Descriptor
	unions map[reflect.Type]*Union
}

var _ Resolver = (*Registry)(nil)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint32]Descriptor),
		unions: make(map[reflect.Type]*Union),
	}
}

// Register adds boxed types, keyed by their TLID. Registering the same type
// twice is harmless; registering two types under one identifier is an error.
func (r *Registry) Register(values ...Identifiable) error {
	for _, v := range values {
		typ := reflect.TypeOf(v)
		if err := r.add(Descriptor{
			ID:       v.TLID(),
			TypeName: typeName(typ),
			Type:     typ,
		}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterUnion adds a union. Every case whose type is Identifiable is also
// registered by identifier, with the case's name as its Variant, so that
// boxed values can be decoded into the union's interface type.
func (r *Registry) RegisterUnion(union *Union) error {
	if existing, ok := r.unions[union.iface]; ok && existing != union {
		return errorf(KindUnsupported, "%v already registered as union %s", union.iface, existing.name)
	}
	for _, name := range union.names {
		typ := union.byName[name]
		zero := reflect.Zero(typ)
		if typ.Kind() == reflect.Pointer {
			// Don't call TLID on a nil pointer.
			zero = reflect.New(typ.Elem())
		}
		sample, ok := zero.Interface().(Identifiable)
		if !ok {
			continue
		}
		if err := r.add(Descriptor{
			ID:       sample.TLID(),
			TypeName: union.name,
			Variant:  name,
			Type:     typ,
		}); err != nil {
			return err
		}
	}
	r.unions[union.iface] = union
	return nil
}

// Resolve implements Resolver.
func (r *Registry) Resolve(id uint32) (Descriptor, error) {
	desc, ok := r.byID[id]
	if !ok {
		return Descriptor{}, errorf(KindUnknownIdentifier, "no type registered for identifier %#08x", id)
	}
	return desc, nil
}

// Union returns the union registered for the given interface type.
func (r *Registry) Union(iface reflect.Type) (*Union, bool) {
	if r == nil {
		return nil, false
	}
	union, ok := r.unions[iface]
	return union, ok
}

func (r *Registry) add(desc Descriptor) error {
	if existing, ok := r.byID[desc.ID]; ok && existing.Type != desc.Type {
		return errorf(
			KindUnsupported,
			"identifier %#08x already registered for %v, can't register %v",
			desc.ID, existing.Type, desc.Type,
		)
	}
	r.byID[desc.ID] = desc
	return nil
}

func typeName(typ reflect.Type) string {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Name()
}
