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
	"reflect"
)

func unmarshalValue(d *Decoder, v any, hint Variant) error {
	target, err := decodeTarget(v)
	if err != nil {
		return err
	}
	return decodeValue(d, target, hint)
}

func unmarshalBoxed(d *Decoder, v any, resolver Resolver) error {
	target, err := decodeTarget(v)
	if err != nil {
		return err
	}
	return decodeBoxed(d, target, resolver)
}

func decodeTarget(v any) (reflect.Value, error) {
	value := reflect.ValueOf(v)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return reflect.Value{}, errorf(KindUnsupported, "%w: decode target must be a non-nil pointer, got %T", ErrUnsupported, v)
	}
	return value.Elem(), nil
}

// decodeValue fills in v, which must be settable. hint selects the variant of
// every union and VariantUnmarshaler reached from v, however deeply nested,
// except behind a boxed value, whose identifier names its own variant.
func decodeValue(d *Decoder, v reflect.Value, hint Variant) error {
	if v.CanAddr() {
		if handled, err := decodeCustom(d, v.Addr(), hint); handled {
			return err
		}
	}
	switch v.Kind() {
	case reflect.Bool:
		b, err := d.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int8:
		n, err := d.ReadInt8()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int16:
		n, err := d.ReadInt16()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int32:
		n, err := d.ReadInt32()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int, reflect.Int64:
		n, err := d.ReadInt64()
		if err != nil {
			return err
		}
		if v.OverflowInt(n) {
			return errorf(KindOverflow, "%w: %d doesn't fit in %v", ErrOverflow, n, v.Type())
		}
		v.SetInt(n)
	case reflect.Uint8:
		n, err := d.ReadUint8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint16:
		n, err := d.ReadUint16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint32:
		n, err := d.ReadUint32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		n, err := d.ReadUint64()
		if err != nil {
			return err
		}
		if v.OverflowUint(n) {
			return errorf(KindOverflow, "%w: %d doesn't fit in %v", ErrOverflow, n, v.Type())
		}
		v.SetUint(n)
	case reflect.Float32:
		f, err := d.ReadFloat32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(f))
	case reflect.Float64:
		f, err := d.ReadFloat64()
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.String:
		s, err := d.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)
	case reflect.Slice:
		if isBlob(v.Type()) {
			b, err := d.ReadBytes()
			if err != nil {
				return err
			}
			v.SetBytes(b)
			return nil
		}
		return decodeSequence(d, v, hint)
	case reflect.Array:
		return decodeTuple(d, v, hint)
	case reflect.Map:
		return decodeMap(d, v, hint)
	case reflect.Struct:
		return decodeStruct(d, v, hint)
	case reflect.Pointer:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return decodeValue(d, v.Elem(), hint)
	case reflect.Interface:
		return decodeUnion(d, v, hint)
	default:
		return errUnsupported(kindCategory(v.Kind()))
	}
	return nil
}

// decodeCustom hands ptr to its own UnmarshalTL or UnmarshalTLVariant
// method, if it has one.
func decodeCustom(d *Decoder, ptr reflect.Value, hint Variant) (bool, error) {
	typ := ptr.Type()
	isVariant := typ.Implements(variantUnmarshalerType)
	switch {
	case isVariant && hint != "":
		return true, ptr.Interface().(VariantUnmarshaler).UnmarshalTLVariant(d, hint) //nolint:forcetypeassert
	case typ.Implements(unmarshalerType):
		return true, ptr.Interface().(Unmarshaler).UnmarshalTL(d) //nolint:forcetypeassert
	case isVariant:
		return true, errorf(KindMissingVariant, "%w: decoding %v", ErrNoVariant, typ.Elem())
	}
	return false, nil
}

func decodeSequence(d *Decoder, v reflect.Value, hint Variant) error {
	if readsNothing(v.Type().Elem()) {
		// Elements occupy no bytes, so the remaining input can't bound the
		// count. Every element is the zero value; build them all at once.
		n, err := d.readCount("sequence", false)
		if err != nil {
			return err
		}
		v.Set(reflect.MakeSlice(v.Type(), n, n))
		return nil
	}
	reader, err := d.Sequence()
	if err != nil {
		return err
	}
	slice := reflect.MakeSlice(v.Type(), 0, min(reader.Remaining(), maxPrealloc))
	for reader.next() {
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := decodeValue(d, elem, hint); err != nil {
			return err
		}
		slice = reflect.Append(slice, elem)
	}
	v.Set(slice)
	return nil
}

func decodeTuple(d *Decoder, v reflect.Value, hint Variant) error {
	reader := d.Fixed(v.Len())
	for i := 0; reader.next(); i++ {
		if err := decodeValue(d, v.Index(i), hint); err != nil {
			return err
		}
	}
	return nil
}

func decodeMap(d *Decoder, v reflect.Value, hint Variant) error {
	typ := v.Type()
	if readsNothing(typ.Key()) && readsNothing(typ.Elem()) {
		// Every pair is the same zero key and value.
		n, err := d.readCount("map", false)
		if err != nil {
			return err
		}
		entries := reflect.MakeMapWithSize(typ, min(n, 1))
		if n > 0 {
			entries.SetMapIndex(reflect.New(typ.Key()).Elem(), reflect.New(typ.Elem()).Elem())
		}
		v.Set(entries)
		return nil
	}
	reader, err := d.Map()
	if err != nil {
		return err
	}
	entries := reflect.MakeMapWithSize(typ, min(reader.Remaining(), maxPrealloc))
	for {
		key := reflect.New(typ.Key()).Elem()
		ok, err := reader.Key(UnmarshalerFunc(func(d *Decoder) error {
			return decodeValue(d, key, hint)
		}))
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		value := reflect.New(typ.Elem()).Elem()
		if err := reader.Value(UnmarshalerFunc(func(d *Decoder) error {
			return decodeValue(d, value, hint)
		})); err != nil {
			return err
		}
		entries.SetMapIndex(key, value)
	}
	v.Set(entries)
	return nil
}

func decodeStruct(d *Decoder, v reflect.Value, hint Variant) error {
	info := cachedStructInfo(v.Type())
	d.config.Logger.Debug().
		Stringer("type", v.Type()).
		Int("fields", len(info.fields)).
		Msg("tl: decoding record")
	reader := d.Fixed(len(info.fields))
	for _, field := range info.fields {
		reader.next()
		fieldValue := v.Field(field.index)
		var err error
		if field.boxed {
			err = decodeBoxed(d, fieldValue, d.config.resolver())
		} else {
			err = decodeValue(d, fieldValue, hint)
		}
		if err != nil {
			return prefixError(err, v.Type().Name()+"."+field.name)
		}
	}
	return nil
}

// decodeUnion decodes the variant named by hint into an interface value,
// using the union registered for the interface type.
func decodeUnion(d *Decoder, v reflect.Value, hint Variant) error {
	if v.NumMethod() == 0 {
		return errUnsupported(CategoryAny)
	}
	if hint == "" {
		return errorf(KindMissingVariant, "%w: decoding %v", ErrNoVariant, v.Type())
	}
	union, ok := d.config.Registry.Union(v.Type())
	if !ok {
		return errorf(KindUnsupported, "%w: no union registered for %v", ErrUnsupported, v.Type())
	}
	variant, err := union.newVariant(hint)
	if err != nil {
		return err
	}
	if err := decodeValue(d, variant, hint); err != nil {
		return prefixError(err, union.name+"."+string(hint))
	}
	v.Set(variant)
	return nil
}

// decodeBoxed reads an identifier and decodes the payload it names into v.
func decodeBoxed(d *Decoder, v reflect.Value, resolver Resolver) error {
	id, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if id == GzipPackedID && v.Type() != gzipPackedType {
		return decodePacked(d, v, resolver)
	}
	if v.Kind() == reflect.Interface {
		return decodeResolved(d, v, id, resolver)
	}
	want, identifiable := identifierOf(v)
	if identifiable && want != id {
		return errorf(KindUnexpectedValue, "boxed %v: got identifier %#08x, expected %#08x", v.Type(), id, want)
	}
	var hint Variant
	switch {
	case resolver != nil:
		desc, err := resolver.Resolve(id)
		if err != nil {
			if identifiable {
				// The identifier was already checked; the resolver is only
				// a source of hints here.
				break
			}
			return err
		}
		if !identifiable && desc.Type != nil && desc.Type != v.Type() {
			return errorf(KindUnexpectedValue, "identifier %#08x names %v, not %v", id, desc.Type, v.Type())
		}
		hint = desc.Variant
	case !identifiable:
		return errorf(KindUnknownIdentifier, "can't check identifier %#08x: %v isn't Identifiable and there's no resolver", id, v.Type())
	}
	return decodeValue(d, v, hint)
}

// decodeResolved looks up id and stores a freshly decoded value of the
// resolved type in the interface v.
func decodeResolved(d *Decoder, v reflect.Value, id uint32, resolver Resolver) error {
	if resolver == nil {
		return errorf(KindUnknownIdentifier, "no resolver for identifier %#08x decoding into %v", id, v.Type())
	}
	desc, err := resolver.Resolve(id)
	if err != nil {
		return err
	}
	if desc.Type == nil || !desc.Type.Implements(v.Type()) {
		return errorf(KindUnexpectedValue, "identifier %#08x names %v, which doesn't implement %v", id, desc.Type, v.Type())
	}
	d.config.Logger.Debug().
		Str("type", desc.TypeName).
		Str("variant", string(desc.Variant)).
		Msgf("tl: resolved identifier %#08x", id)
	resolved := newValue(desc.Type)
	if err := decodeValue(d, resolved, desc.Variant); err != nil {
		return err
	}
	v.Set(resolved)
	return nil
}

// decodePacked inflates a gzip_packed payload and decodes the boxed value
// inside it.
func decodePacked(d *Decoder, v reflect.Value, resolver Resolver) error {
	packed, err := d.ReadBytes()
	if err != nil {
		return err
	}
	plain, err := unpackGzip(packed, d.config.ReadMaxBytes)
	if err != nil {
		return err
	}
	d.config.Logger.Debug().
		Int("packed", len(packed)).
		Int("unpacked", len(plain)).
		Msg("tl: unpacked gzip_packed")
	buffer := bytes.NewReader(plain)
	inner := &Decoder{reader: buffer, buffer: buffer, config: d.config}
	return decodeBoxed(inner, v, resolver)
}
