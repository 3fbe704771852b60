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
	"strings"
	"sync"
)

const (
	tagName  = "tl"
	tagSkip  = "-"
	tagBoxed = "boxed"

	// maxPrealloc caps the capacity reserved for a decoded sequence or map
	// before its elements have actually been read. Counts come off the wire.
	maxPrealloc = 1024
)

var (
	marshalerType          = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType        = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
	variantUnmarshalerType = reflect.TypeOf((*VariantUnmarshaler)(nil)).Elem()
	identifiableType       = reflect.TypeOf((*Identifiable)(nil)).Elem()
	gzipPackedType         = reflect.TypeOf(GzipPacked{})

	structInfos sync.Map // map[reflect.Type]*structInfo
)

// A struct is a fixed-arity record: its exported fields in declaration
// order, without names or a count.
type structInfo struct {
	fields []fieldInfo
}

type fieldInfo struct {
	index int
	name  string
	boxed bool
}

func cachedStructInfo(typ reflect.Type) *structInfo {
	if info, ok := structInfos.Load(typ); ok {
		return info.(*structInfo) //nolint:forcetypeassert
	}
	info, _ := structInfos.LoadOrStore(typ, newStructInfo(typ))
	return info.(*structInfo) //nolint:forcetypeassert
}

func newStructInfo(typ reflect.Type) *structInfo {
	info := &structInfo{}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		skip, boxed := parseTag(field.Tag.Get(tagName))
		if skip {
			continue
		}
		info.fields = append(info.fields, fieldInfo{
			index: i,
			name:  field.Name,
			boxed: boxed,
		})
	}
	return info
}

func parseTag(tag string) (skip, boxed bool) {
	if tag == tagSkip {
		return true, false
	}
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == tagBoxed {
			boxed = true
		}
	}
	return false, boxed
}

// isBlob reports whether a slice type is encoded as a framed byte blob
// rather than as a sequence of widened integers.
func isBlob(typ reflect.Type) bool {
	elem := typ.Elem()
	return elem.Kind() == reflect.Uint8 &&
		!elem.Implements(marshalerType) &&
		!reflect.PointerTo(elem).Implements(unmarshalerType)
}

// readsNothing reports whether decoding typ consumes no input at all: marker
// records, empty arrays, and records made only of such fields. Types with
// their own decoding methods might read anything, so they never qualify.
func readsNothing(typ reflect.Type) bool {
	ptr := reflect.PointerTo(typ)
	if ptr.Implements(unmarshalerType) || ptr.Implements(variantUnmarshalerType) {
		return false
	}
	switch typ.Kind() {
	case reflect.Array:
		return typ.Len() == 0 || readsNothing(typ.Elem())
	case reflect.Struct:
		for _, field := range cachedStructInfo(typ).fields {
			if field.boxed || !readsNothing(typ.Field(field.index).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// identifierOf returns the TLID of v's type, calling it on a zero value
// when v is a nil pointer.
func identifierOf(v reflect.Value) (uint32, bool) {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		v = reflect.New(v.Type().Elem())
	}
	if v.Type().Implements(identifiableType) {
		return v.Interface().(Identifiable).TLID(), true //nolint:forcetypeassert
	}
	if v.CanAddr() && v.Addr().Type().Implements(identifiableType) {
		return v.Addr().Interface().(Identifiable).TLID(), true //nolint:forcetypeassert
	}
	if !v.CanAddr() && reflect.PointerTo(v.Type()).Implements(identifiableType) {
		return reflect.New(v.Type()).Interface().(Identifiable).TLID(), true //nolint:forcetypeassert
	}
	return 0, false
}

// newValue allocates a zero value of typ that the decoder can fill in. For
// pointer types it's a non-nil pointer to a zero element.
func newValue(typ reflect.Type) reflect.Value {
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem())
	}
	return reflect.New(typ).Elem()
}

// kindCategory names the unsupported category a reflect.Kind falls into.
func kindCategory(kind reflect.Kind) Category {
	switch kind {
	case reflect.Map:
		return CategoryMap
	case reflect.Func:
		return CategoryFunc
	case reflect.Chan:
		return CategoryChan
	case reflect.Complex64, reflect.Complex128:
		return CategoryComplex
	case reflect.UnsafePointer:
		return CategoryUnsafePtr
	default:
		return CategoryAny
	}
}
