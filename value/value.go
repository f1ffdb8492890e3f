// Package value provides Value, the tagged variant passed to and returned
// from foreign calls.
//
// A Value holds exactly one of the eight primitive kinds, an object
// reference, or void (the result of a method that returns nothing). Reading
// it through the accessor of another kind fails with type_mismatch; there is
// no implicit widening.
package value

import (
	"fmt"
	"strconv"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

// Value is a tagged foreign value. The zero Value is void.
type Value struct {
	obj  *ref.Ref
	bits jvmbridge.JValue
	kind jvmbridge.Kind
	set  bool
}

func prim(k jvmbridge.Kind, bits jvmbridge.JValue) Value {
	return Value{kind: k, bits: bits, set: true}
}

func Bool(v bool) Value { return prim(jvmbridge.KindBoolean, jvmbridge.EncodeBool(v)) }
func Byte(v int8) Value { return prim(jvmbridge.KindByte, jvmbridge.EncodeByte(v)) }
func Char(v uint16) Value { return prim(jvmbridge.KindChar, jvmbridge.EncodeChar(v)) }
func Short(v int16) Value { return prim(jvmbridge.KindShort, jvmbridge.EncodeShort(v)) }
func Int(v int32) Value { return prim(jvmbridge.KindInt, jvmbridge.EncodeInt(v)) }
func Long(v int64) Value { return prim(jvmbridge.KindLong, jvmbridge.EncodeLong(v)) }
func Float(v float32) Value { return prim(jvmbridge.KindFloat, jvmbridge.EncodeFloat(v)) }
func Double(v float64) Value { return prim(jvmbridge.KindDouble, jvmbridge.EncodeDouble(v)) }

// Object wraps an object reference. The Value takes over r's ownership.
func Object(r *ref.Ref) Value {
	return Value{kind: jvmbridge.KindObject, obj: r, set: true}
}

// Null is the null object reference.
func Null() Value {
	return Object(ref.Null)
}

// Void is the result of a method that returns nothing.
func Void() Value {
	return Value{kind: jvmbridge.KindVoid, set: true}
}

// FromJValue decodes a raw primitive result of the given kind. Object
// results become local references owned by the returned Value.
func FromJValue(v *vm.VM, kind jvmbridge.Kind, raw jvmbridge.JValue) Value {
	switch kind {
	case jvmbridge.KindObject:
		return Object(ref.Local(v, raw.Ref()))
	case jvmbridge.KindVoid:
		return Void()
	case jvmbridge.KindBoolean:
		return Bool(raw.Bool())
	case jvmbridge.KindByte:
		return Byte(raw.Byte())
	case jvmbridge.KindChar:
		return Char(raw.Char())
	case jvmbridge.KindShort:
		return Short(raw.Short())
	case jvmbridge.KindInt:
		return Int(raw.Int())
	case jvmbridge.KindLong:
		return Long(raw.Long())
	case jvmbridge.KindFloat:
		return Float(raw.Float())
	case jvmbridge.KindDouble:
		return Double(raw.Double())
	}
	return Void()
}

// Kind returns the tag.
func (v Value) Kind() jvmbridge.Kind {
	if !v.set {
		return jvmbridge.KindVoid
	}
	return v.kind
}

func (v Value) is(k jvmbridge.Kind) bool { return v.Kind() == k }

func (v Value) IsBool() bool { return v.is(jvmbridge.KindBoolean) }
func (v Value) IsByte() bool { return v.is(jvmbridge.KindByte) }
func (v Value) IsChar() bool { return v.is(jvmbridge.KindChar) }
func (v Value) IsShort() bool { return v.is(jvmbridge.KindShort) }
func (v Value) IsInt() bool { return v.is(jvmbridge.KindInt) }
func (v Value) IsLong() bool { return v.is(jvmbridge.KindLong) }
func (v Value) IsFloat() bool { return v.is(jvmbridge.KindFloat) }
func (v Value) IsDouble() bool { return v.is(jvmbridge.KindDouble) }
func (v Value) IsVoid() bool { return v.is(jvmbridge.KindVoid) }

// IsRef reports whether v holds an object reference, null included.
func (v Value) IsRef() bool { return v.is(jvmbridge.KindObject) }

// IsNull reports whether v is a null object reference.
func (v Value) IsNull() bool { return v.IsRef() && v.obj.IsNull() }

// IsPrimitive reports whether v holds one of the eight primitive kinds.
func (v Value) IsPrimitive() bool { return v.Kind().IsPrimitive() }

func (v Value) want(k jvmbridge.Kind) error {
	if v.Kind() == k {
		return nil
	}
	return errors.TypeMismatch(errors.PhaseConvert, k.String(), v.Kind().String())
}

func (v Value) AsBool() (bool, error) {
	if err := v.want(jvmbridge.KindBoolean); err != nil {
		return false, err
	}
	return v.bits.Bool(), nil
}

func (v Value) AsByte() (int8, error) {
	if err := v.want(jvmbridge.KindByte); err != nil {
		return 0, err
	}
	return v.bits.Byte(), nil
}

func (v Value) AsChar() (uint16, error) {
	if err := v.want(jvmbridge.KindChar); err != nil {
		return 0, err
	}
	return v.bits.Char(), nil
}

func (v Value) AsShort() (int16, error) {
	if err := v.want(jvmbridge.KindShort); err != nil {
		return 0, err
	}
	return v.bits.Short(), nil
}

func (v Value) AsInt() (int32, error) {
	if err := v.want(jvmbridge.KindInt); err != nil {
		return 0, err
	}
	return v.bits.Int(), nil
}

func (v Value) AsLong() (int64, error) {
	if err := v.want(jvmbridge.KindLong); err != nil {
		return 0, err
	}
	return v.bits.Long(), nil
}

func (v Value) AsFloat() (float32, error) {
	if err := v.want(jvmbridge.KindFloat); err != nil {
		return 0, err
	}
	return v.bits.Float(), nil
}

func (v Value) AsDouble() (float64, error) {
	if err := v.want(jvmbridge.KindDouble); err != nil {
		return 0, err
	}
	return v.bits.Double(), nil
}

// AsRef returns the object reference. The Value keeps ownership; Clone the
// result to keep it beyond the Value's lifetime.
func (v Value) AsRef() (*ref.Ref, error) {
	if err := v.want(jvmbridge.KindObject); err != nil {
		return nil, err
	}
	return v.obj, nil
}

// Ref returns the object reference, or Null for non-object values.
func (v Value) Ref() *ref.Ref {
	if !v.IsRef() {
		return ref.Null
	}
	return v.obj
}

// JValue encodes v as a primitive call argument. Void encodes as zero.
func (v Value) JValue() jvmbridge.JValue {
	if v.IsRef() {
		return v.obj.JValue()
	}
	return v.bits
}

// Clone returns a Value with its own owner of the same object. Primitive
// values are returned as is.
func (v Value) Clone() Value {
	if v.IsRef() {
		return Object(v.obj.Clone())
	}
	return v
}

// Release drops v's object owner. It is a no-op for primitives.
func (v Value) Release() {
	if v.IsRef() {
		v.obj.Release()
	}
}

// MakeGlobal returns a Value holding a global reference to the same object,
// usable from any thread. v keeps its own reference. Primitive values are
// returned as is.
func (v Value) MakeGlobal() (Value, error) {
	if !v.IsRef() || v.obj.IsNull() || v.obj.IsGlobal() {
		return v.Clone(), nil
	}
	g, err := v.obj.Promote()
	if err != nil {
		return Value{}, err
	}
	return Object(g), nil
}

// String renders v for diagnostics, e.g. "int(42)" or "object@0x10".
func (v Value) String() string {
	switch k := v.Kind(); k {
	case jvmbridge.KindVoid:
		return "void"
	case jvmbridge.KindObject:
		if v.obj.IsNull() {
			return "null"
		}
		return fmt.Sprintf("object@%#x", uintptr(v.obj.Raw()))
	case jvmbridge.KindBoolean:
		return "boolean(" + strconv.FormatBool(v.bits.Bool()) + ")"
	case jvmbridge.KindChar:
		return fmt.Sprintf("char(%q)", rune(v.bits.Char()))
	case jvmbridge.KindFloat:
		return "float(" + strconv.FormatFloat(float64(v.bits.Float()), 'g', -1, 32) + ")"
	case jvmbridge.KindDouble:
		return "double(" + strconv.FormatFloat(v.bits.Double(), 'g', -1, 64) + ")"
	case jvmbridge.KindLong:
		return "long(" + strconv.FormatInt(v.bits.Long(), 10) + ")"
	default:
		return k.String() + "(" + strconv.FormatInt(int64(v.bits.Int()), 10) + ")"
	}
}

// JValues encodes a list of values as primitive call arguments.
func JValues(vals []Value) []jvmbridge.JValue {
	if len(vals) == 0 {
		return nil
	}
	out := make([]jvmbridge.JValue, len(vals))
	for i, v := range vals {
		out[i] = v.JValue()
	}
	return out
}

// ReleaseAll releases every value in vals.
func ReleaseAll(vals []Value) {
	for _, v := range vals {
		v.Release()
	}
}
