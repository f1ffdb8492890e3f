package jni

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

// ArrayLength returns the length of arr.
func ArrayLength(v *vm.VM, arr *ref.Ref) (int, error) {
	if arr.IsNull() {
		return 0, errors.NullReference(errors.PhaseArray, "array")
	}
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	n := env.GetArrayLength(arr.Raw())
	return int(n), fault.Check(v, env)
}

// NewObjectArray creates an array of length elements of class elem, each
// set to initial.
func NewObjectArray(v *vm.VM, length int, elem, initial *ref.Ref) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	raw := env.NewObjectArray(int32(length), elem.Raw(), initial.Raw())
	return local(v, env, raw, errors.PhaseArray, "NewObjectArray", false)
}

// NewPrimitiveArray creates a zeroed array of a primitive kind.
func NewPrimitiveArray(v *vm.VM, kind jvmbridge.Kind, length int) (*ref.Ref, error) {
	if !kind.IsPrimitive() {
		return nil, errors.Unsupported(errors.PhaseArray, "primitive array of "+kind.String())
	}
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	raw := env.NewPrimitiveArray(kind, int32(length))
	return local(v, env, raw, errors.PhaseArray, "NewPrimitiveArray", false)
}

// GetObjectArrayElement reads element i of an object array.
func GetObjectArrayElement(v *vm.VM, arr *ref.Ref, i int) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	raw := env.GetObjectArrayElement(arr.Raw(), int32(i))
	return local(v, env, raw, errors.PhaseArray, "GetObjectArrayElement", true)
}

// SetObjectArrayElement writes element i of an object array.
func SetObjectArrayElement(v *vm.VM, arr *ref.Ref, i int, val *ref.Ref) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	env.SetObjectArrayElement(arr.Raw(), int32(i), val.Raw())
	return fault.Check(v, env)
}

// GetArrayElements pins the elements of a primitive array. The buffer must
// be handed back with ReleaseArrayElements.
func GetArrayElements(v *vm.VM, arr *ref.Ref) (elems []jvmbridge.JValue, isCopy bool, err error) {
	env, err := v.Current()
	if err != nil {
		return nil, false, err
	}
	elems, isCopy = env.GetArrayElements(arr.Raw())
	if err := fault.Check(v, env); err != nil {
		return nil, false, err
	}
	if elems == nil {
		return nil, false, errors.PrimitiveCallFailed(errors.PhaseArray, "GetArrayElements")
	}
	return elems, isCopy, nil
}

// ReleaseArrayElements hands a pinned buffer back.
func ReleaseArrayElements(v *vm.VM, arr *ref.Ref, elems []jvmbridge.JValue, mode jvmbridge.ReleaseMode) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	env.ReleaseArrayElements(arr.Raw(), elems, mode)
	return fault.Check(v, env)
}
