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

// Package tlproto encodes protocol buffer messages in the TL binary format,
// so that types generated from .proto schemas can travel over TL transports.
//
// A message is a record of its fields in declaration order. Repeated fields
// are sequences, map fields decode but don't encode, float widens to
// double, and enums are 32-bit integers. A oneof is a union: only the
// populated field's value is written, and decoding it requires the field's
// name as the variant. One variant serves every oneof in the message tree,
// nested messages included. Unset message fields, unset fields with explicit
// presence, and empty oneofs have no representation and fail with
// tl.KindUnsupported.
package tlproto

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"connectrpc.com/tl"
	"connectrpc.com/tl/codec"
)

// Name is the name Codec reports.
const Name = "tl+proto"

// Codec marshals protobuf messages to and from their bare TL encoding.
type Codec struct {
	EncodeOptions []tl.EncodeOption
	DecodeOptions []tl.DecodeOption
}

var _ codec.Codec = (*Codec)(nil)

// Name implements codec.Codec.
func (c *Codec) Name() string { return Name }

// Marshal implements codec.Codec.
func (c *Codec) Marshal(message any) ([]byte, error) {
	protoMessage, ok := message.(proto.Message)
	if !ok {
		return nil, errNotProtobuf(message)
	}
	return Marshal(protoMessage, c.EncodeOptions...)
}

// Unmarshal implements codec.Codec.
func (c *Codec) Unmarshal(data []byte, message any) error {
	protoMessage, ok := message.(proto.Message)
	if !ok {
		return errNotProtobuf(message)
	}
	return Unmarshal(data, protoMessage, c.DecodeOptions...)
}

// Marshal returns the bare TL encoding of m.
func Marshal(m proto.Message, options ...tl.EncodeOption) ([]byte, error) {
	return tl.Marshal(&messageMarshaler{message: m.ProtoReflect()}, options...)
}

// Unmarshal decodes the bare TL encoding in data into m. Messages containing
// a oneof need UnmarshalVariant.
func Unmarshal(data []byte, m proto.Message, options ...tl.DecodeOption) error {
	proto.Reset(m)
	return tl.Unmarshal(data, &messageUnmarshaler{message: m.ProtoReflect()}, options...)
}

// UnmarshalVariant decodes data into m, resolving m's oneof with hint: the
// name of the populated field, such as "string_value" for
// google.protobuf.Value. The same hint resolves the oneofs of nested
// messages, so a google.protobuf.ListValue of strings also decodes with
// "string_value".
func UnmarshalVariant(data []byte, m proto.Message, hint tl.Variant, options ...tl.DecodeOption) error {
	proto.Reset(m)
	return tl.Unmarshal(data, &messageUnmarshaler{message: m.ProtoReflect(), hint: hint}, options...)
}

type messageMarshaler struct {
	message protoreflect.Message
}

func (m *messageMarshaler) MarshalTL(e *tl.Encoder) error {
	fields := m.message.Descriptor().Fields()
	writer := e.Fixed(arity(m.message.Descriptor()))
	for i := 0; i < fields.Len(); i++ {
		field := fields.Get(i)
		if oneof := realOneof(field); oneof != nil {
			if oneof.Fields().Get(0) != field {
				continue // written with the first field of its oneof
			}
			populated := m.message.WhichOneof(oneof)
			if populated == nil {
				return unsupported("oneof %s is empty", oneof.FullName())
			}
			field = populated
		}
		if err := writer.Element(tl.MarshalerFunc(func(e *tl.Encoder) error {
			return m.marshalField(e, field)
		})); err != nil {
			return err
		}
	}
	return nil
}

func (m *messageMarshaler) marshalField(e *tl.Encoder, field protoreflect.FieldDescriptor) error {
	switch {
	case field.IsMap():
		return e.Map(m.message.Get(field).Map().Len())
	case field.IsList():
		list := m.message.Get(field).List()
		writer, err := e.Sequence(list.Len())
		if err != nil {
			return err
		}
		for i := 0; i < list.Len(); i++ {
			value := list.Get(i)
			if err := writer.Element(tl.MarshalerFunc(func(e *tl.Encoder) error {
				return marshalSingular(e, field, value)
			})); err != nil {
				return err
			}
		}
		return nil
	case field.HasPresence() && !m.message.Has(field):
		return unsupported("%s is unset", field.FullName())
	default:
		return marshalSingular(e, field, m.message.Get(field))
	}
}

func marshalSingular(e *tl.Encoder, field protoreflect.FieldDescriptor, value protoreflect.Value) error {
	switch field.Kind() {
	case protoreflect.BoolKind:
		return e.WriteBool(value.Bool())
	case protoreflect.EnumKind:
		return e.WriteInt32(int32(value.Enum()))
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return e.WriteInt32(int32(value.Int()))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return e.WriteInt64(value.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return e.WriteUint32(uint32(value.Uint()))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return e.WriteUint64(value.Uint())
	case protoreflect.FloatKind:
		return e.WriteFloat32(float32(value.Float()))
	case protoreflect.DoubleKind:
		return e.WriteFloat64(value.Float())
	case protoreflect.StringKind:
		return e.WriteString(value.String())
	case protoreflect.BytesKind:
		return e.WriteBytes(value.Bytes())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return (&messageMarshaler{message: value.Message()}).MarshalTL(e)
	default:
		return unsupported("%s has unknown kind %v", field.FullName(), field.Kind())
	}
}

type messageUnmarshaler struct {
	message protoreflect.Message
	hint    tl.Variant
}

func (m *messageUnmarshaler) UnmarshalTL(d *tl.Decoder) error {
	fields := m.message.Descriptor().Fields()
	reader := d.Fixed(arity(m.message.Descriptor()))
	for i := 0; i < fields.Len(); i++ {
		field := fields.Get(i)
		if oneof := realOneof(field); oneof != nil {
			if oneof.Fields().Get(0) != field {
				continue
			}
			variant, err := d.Variant(m.hint)
			if err != nil {
				return fmt.Errorf("oneof %s: %w", oneof.FullName(), err)
			}
			field = oneof.Fields().ByName(protoreflect.Name(variant.Name()))
			if field == nil {
				return tl.NewError(tl.KindUnexpectedValue, fmt.Errorf("oneof %s has no field %q", oneof.FullName(), variant.Name()))
			}
		}
		if _, err := reader.Element(tl.UnmarshalerFunc(func(d *tl.Decoder) error {
			return m.unmarshalField(d, field)
		})); err != nil {
			return err
		}
	}
	return nil
}

// nested returns an unmarshaler for a message inside m, carrying m's hint.
func (m *messageUnmarshaler) nested(message protoreflect.Message) *messageUnmarshaler {
	return &messageUnmarshaler{message: message, hint: m.hint}
}

func (m *messageUnmarshaler) unmarshalField(d *tl.Decoder, field protoreflect.FieldDescriptor) error {
	switch {
	case field.IsMap():
		return m.unmarshalMap(d, field)
	case field.IsList():
		reader, err := d.Sequence()
		if err != nil {
			return err
		}
		list := m.message.Mutable(field).List()
		for {
			ok, err := reader.Element(tl.UnmarshalerFunc(func(d *tl.Decoder) error {
				value, err := m.unmarshalSingular(d, field, list.NewElement)
				if err != nil {
					return err
				}
				list.Append(value)
				return nil
			}))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
	case field.Message() != nil:
		return m.nested(m.message.Mutable(field).Message()).UnmarshalTL(d)
	default:
		value, err := m.unmarshalSingular(d, field, nil)
		if err != nil {
			return err
		}
		m.message.Set(field, value)
		return nil
	}
}

func (m *messageUnmarshaler) unmarshalMap(d *tl.Decoder, field protoreflect.FieldDescriptor) error {
	reader, err := d.Map()
	if err != nil {
		return err
	}
	entries := m.message.Mutable(field).Map()
	for {
		var key protoreflect.Value
		ok, err := reader.Key(tl.UnmarshalerFunc(func(d *tl.Decoder) error {
			var keyErr error
			key, keyErr = m.unmarshalSingular(d, field.MapKey(), nil)
			return keyErr
		}))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := reader.Value(tl.UnmarshalerFunc(func(d *tl.Decoder) error {
			value, err := m.unmarshalSingular(d, field.MapValue(), entries.NewValue)
			if err != nil {
				return err
			}
			entries.Set(key.MapKey(), value)
			return nil
		})); err != nil {
			return err
		}
	}
}

// unmarshalSingular reads one scalar or message. newMessage allocates
// message values for list elements and map values; for scalars it's unused.
func (m *messageUnmarshaler) unmarshalSingular(
	d *tl.Decoder,
	field protoreflect.FieldDescriptor,
	newMessage func() protoreflect.Value,
) (protoreflect.Value, error) {
	switch field.Kind() {
	case protoreflect.BoolKind:
		v, err := d.ReadBool()
		return protoreflect.ValueOfBool(v), err
	case protoreflect.EnumKind:
		v, err := d.ReadInt32()
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(v)), err
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		v, err := d.ReadInt32()
		return protoreflect.ValueOfInt32(v), err
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		v, err := d.ReadInt64()
		return protoreflect.ValueOfInt64(v), err
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		v, err := d.ReadUint32()
		return protoreflect.ValueOfUint32(v), err
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		v, err := d.ReadUint64()
		return protoreflect.ValueOfUint64(v), err
	case protoreflect.FloatKind:
		v, err := d.ReadFloat32()
		return protoreflect.ValueOfFloat32(v), err
	case protoreflect.DoubleKind:
		v, err := d.ReadFloat64()
		return protoreflect.ValueOfFloat64(v), err
	case protoreflect.StringKind:
		v, err := d.ReadString()
		return protoreflect.ValueOfString(v), err
	case protoreflect.BytesKind:
		v, err := d.ReadBytes()
		return protoreflect.ValueOfBytes(v), err
	case protoreflect.MessageKind, protoreflect.GroupKind:
		if newMessage == nil {
			return protoreflect.Value{}, unsupported("%s: no message allocator", field.FullName())
		}
		value := newMessage()
		err := m.nested(value.Message()).UnmarshalTL(d)
		return value, err
	default:
		return protoreflect.Value{}, unsupported("%s has unknown kind %v", field.FullName(), field.Kind())
	}
}

// arity is the number of record elements a message occupies: one per field,
// except that each oneof counts once.
func arity(desc protoreflect.MessageDescriptor) int {
	n := 0
	fields := desc.Fields()
	for i := 0; i < fields.Len(); i++ {
		field := fields.Get(i)
		if oneof := realOneof(field); oneof == nil || oneof.Fields().Get(0) == field {
			n++
		}
	}
	return n
}

// realOneof returns the oneof containing field, ignoring the synthetic
// oneofs that proto3 generates for optional fields.
func realOneof(field protoreflect.FieldDescriptor) protoreflect.OneofDescriptor {
	oneof := field.ContainingOneof()
	if oneof == nil || oneof.IsSynthetic() {
		return nil
	}
	return oneof
}

func unsupported(template string, args ...any) error {
	return tl.NewError(tl.KindUnsupported, fmt.Errorf("%w: "+template, append([]any{tl.ErrUnsupported}, args...)...))
}

func errNotProtobuf(m any) error {
	return tl.NewError(tl.KindUnsupported, fmt.Errorf("%w: %T doesn't implement proto.Message", tl.ErrUnsupported, m))
}
