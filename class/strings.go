package class

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

const stringClass = "java/lang/String"

// NewString creates a java.lang.String.
func NewString(v *vm.VM, s string) (*ref.Ref, error) {
	return jni.NewString(v, s)
}

// IsString reports whether obj is a java.lang.String. Null is not a string.
func IsString(v *vm.VM, obj *ref.Ref) (bool, error) {
	if obj.IsNull() {
		return false, nil
	}
	cls, err := jni.FindClass(v, stringClass)
	if err != nil {
		return false, err
	}
	defer cls.Release()
	return jni.IsInstanceOf(v, obj, cls)
}

// AsString reads the text of a string value.
func AsString(v *vm.VM, val value.Value) (string, error) {
	obj, err := val.AsRef()
	if err != nil {
		return "", err
	}
	ok, err := IsString(v, obj)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseConvert, "java.lang.String", describe(v, val))
	}
	return jni.GetString(v, obj)
}

// ToString returns the result of obj.toString().
func ToString(v *vm.VM, obj *ref.Ref) (string, error) {
	return callString(v, obj, "toString")
}

// Box converts a primitive value to its box object (Integer.valueOf and so
// on). Object values are returned as a new owner of the same reference.
func Box(v *vm.VM, val value.Value) (*ref.Ref, error) {
	switch {
	case val.IsRef():
		return val.Ref().Clone(), nil
	case val.IsVoid():
		return nil, errors.Unsupported(errors.PhaseConvert, "cannot box void")
	}

	k := val.Kind()
	box := boxClasses[k]
	sig := "(" + string(k.Descriptor()) + ")L" + box + ";"
	raw, err := callStatic(v, box, "valueOf", sig, jvmbridge.KindObject, val.JValue())
	if err != nil {
		return nil, err
	}
	return ref.Local(v, raw.Ref()), nil
}

// Unbox converts a box object to a primitive value of kind k. Asking for
// KindObject returns a new owner of obj.
func Unbox(v *vm.VM, obj *ref.Ref, k jvmbridge.Kind) (value.Value, error) {
	switch {
	case k == jvmbridge.KindObject:
		return value.Object(obj.Clone()), nil
	case k == jvmbridge.KindVoid:
		return value.Void(), nil
	case obj.IsNull():
		return value.Value{}, errors.NullReference(errors.PhaseConvert, "boxed "+k.String())
	}

	box := boxClasses[k]
	cls, err := jni.FindClass(v, box)
	if err != nil {
		return value.Value{}, err
	}
	defer cls.Release()

	ok, err := jni.IsInstanceOf(v, obj, cls)
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.Value{}, errors.TypeMismatch(errors.PhaseConvert, InternalName(box), describe(v, value.Object(obj)))
	}

	id, err := jni.GetMethodID(v, cls, k.String()+"Value", "()"+string(k.Descriptor()))
	if err != nil {
		return value.Value{}, err
	}
	raw, err := jni.Call(v, obj, id, k, nil)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromJValue(v, k, raw), nil
}

// describe names the type of val for error messages.
func describe(v *vm.VM, val value.Value) string {
	if !val.IsRef() || val.IsNull() {
		return val.Kind().String()
	}
	cls, err := Of(v, val)
	if err != nil {
		return val.Kind().String()
	}
	defer cls.Release()
	return cls.String()
}
