package class

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

// callVirtual calls a method by name and descriptor on obj's runtime class.
// It is the fixed-signature path used for the runtime's own reflection API.
func callVirtual(v *vm.VM, obj *ref.Ref, name, sig string, ret jvmbridge.Kind, args ...jvmbridge.JValue) (jvmbridge.JValue, error) {
	if obj.IsNull() {
		return 0, errors.NullReference(errors.PhaseInvoke, "receiver of "+name)
	}
	cls, err := jni.GetObjectClass(v, obj)
	if err != nil {
		return 0, err
	}
	defer cls.Release()

	id, err := jni.GetMethodID(v, cls, name, sig)
	if err != nil {
		return 0, err
	}
	return jni.Call(v, obj, id, ret, args)
}

func callObject(v *vm.VM, obj *ref.Ref, name, sig string, args ...jvmbridge.JValue) (*ref.Ref, error) {
	raw, err := callVirtual(v, obj, name, sig, jvmbridge.KindObject, args...)
	if err != nil {
		return nil, err
	}
	return ref.Local(v, raw.Ref()), nil
}

func callString(v *vm.VM, obj *ref.Ref, name string) (string, error) {
	s, err := callObject(v, obj, name, "()Ljava/lang/String;")
	if err != nil {
		return "", err
	}
	defer s.Release()
	if s.IsNull() {
		return "", errors.NullReference(errors.PhaseConvert, name+" result")
	}
	return jni.GetString(v, s)
}

func callBool(v *vm.VM, obj *ref.Ref, name string) (bool, error) {
	raw, err := callVirtual(v, obj, name, "()Z", jvmbridge.KindBoolean)
	return raw.Bool(), err
}

func callInt(v *vm.VM, obj *ref.Ref, name string) (int32, error) {
	raw, err := callVirtual(v, obj, name, "()I", jvmbridge.KindInt)
	return raw.Int(), err
}

// callStatic calls a static method by class name, method name and
// descriptor.
func callStatic(v *vm.VM, className, name, sig string, ret jvmbridge.Kind, args ...jvmbridge.JValue) (jvmbridge.JValue, error) {
	cls, err := jni.FindClass(v, className)
	if err != nil {
		return 0, err
	}
	defer cls.Release()

	id, err := jni.GetStaticMethodID(v, cls, name, sig)
	if err != nil {
		return 0, err
	}
	return jni.CallStatic(v, cls, id, ret, args)
}

// objectArray reads every element of an object array. The caller owns the
// returned references.
func objectArray(v *vm.VM, arr *ref.Ref) ([]*ref.Ref, error) {
	n, err := jni.ArrayLength(v, arr)
	if err != nil {
		return nil, err
	}
	out := make([]*ref.Ref, 0, n)
	for i := range n {
		r, err := jni.GetObjectArrayElement(v, arr, i)
		if err != nil {
			releaseRefs(out)
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func releaseRefs(refs []*ref.Ref) {
	for _, r := range refs {
		r.Release()
	}
}
