// Package jni wraps the primitive function table with the bridge's calling
// convention: resolve the calling thread's env, make one primitive call,
// turn a pending fault into an error, and hand object results back as owned
// local references.
//
// A primitive that returns a null handle or id without raising is reported
// as primitive_call_failed, except where null is a legitimate result (method
// calls, field reads, array elements).
package jni

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

func local(v *vm.VM, env jvmbridge.Env, raw jvmbridge.Ref, phase errors.Phase, primitive string, nullable bool) (*ref.Ref, error) {
	if err := fault.Check(v, env); err != nil {
		if raw != 0 {
			env.DeleteLocalRef(raw)
		}
		return nil, err
	}
	if raw == 0 && !nullable {
		return nil, errors.PrimitiveCallFailed(phase, primitive)
	}
	return ref.Local(v, raw), nil
}

// FindClass resolves a class by slashed internal name.
func FindClass(v *vm.VM, name string) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.FindClass(name), errors.PhaseLookup, "FindClass", false)
}

// DefineClass defines a class from bytes in loader.
func DefineClass(v *vm.VM, name string, loader *ref.Ref, data []byte) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.DefineClass(name, loader.Raw(), data), errors.PhaseDefine, "DefineClass", false)
}

// GetObjectClass returns the class of obj.
func GetObjectClass(v *vm.VM, obj *ref.Ref) (*ref.Ref, error) {
	if obj.IsNull() {
		return nil, errors.NullReference(errors.PhaseLookup, "object")
	}
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.GetObjectClass(obj.Raw()), errors.PhaseLookup, "GetObjectClass", false)
}

// IsAssignableFrom reports whether a value of class sub can be stored in a
// variable of class sup.
func IsAssignableFrom(v *vm.VM, sub, sup *ref.Ref) (bool, error) {
	env, err := v.Current()
	if err != nil {
		return false, err
	}
	ok := env.IsAssignableFrom(sub.Raw(), sup.Raw())
	return ok, fault.Check(v, env)
}

// IsInstanceOf reports whether obj is an instance of cls. Null is an
// instance of every class.
func IsInstanceOf(v *vm.VM, obj, cls *ref.Ref) (bool, error) {
	env, err := v.Current()
	if err != nil {
		return false, err
	}
	ok := env.IsInstanceOf(obj.Raw(), cls.Raw())
	return ok, fault.Check(v, env)
}

// GetMethodID resolves an instance method or constructor.
func GetMethodID(v *vm.VM, cls *ref.Ref, name, sig string) (jvmbridge.MethodID, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	id := env.GetMethodID(cls.Raw(), name, sig)
	if err := fault.Check(v, env); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.PrimitiveCallFailed(errors.PhaseLookup, "GetMethodID "+name+sig)
	}
	return id, nil
}

// GetStaticMethodID resolves a static method.
func GetStaticMethodID(v *vm.VM, cls *ref.Ref, name, sig string) (jvmbridge.MethodID, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	id := env.GetStaticMethodID(cls.Raw(), name, sig)
	if err := fault.Check(v, env); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.PrimitiveCallFailed(errors.PhaseLookup, "GetStaticMethodID "+name+sig)
	}
	return id, nil
}

// FromReflectedMethod returns the id of a reflected Method or Constructor.
func FromReflectedMethod(v *vm.VM, method *ref.Ref) (jvmbridge.MethodID, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	id := env.FromReflectedMethod(method.Raw())
	if err := fault.Check(v, env); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.PrimitiveCallFailed(errors.PhaseLookup, "FromReflectedMethod")
	}
	return id, nil
}

// ToReflectedMethod returns the reflected Method or Constructor for id.
func ToReflectedMethod(v *vm.VM, cls *ref.Ref, id jvmbridge.MethodID, isStatic bool) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.ToReflectedMethod(cls.Raw(), id, isStatic), errors.PhaseLookup, "ToReflectedMethod", false)
}

// GetFieldID resolves an instance field.
func GetFieldID(v *vm.VM, cls *ref.Ref, name, sig string) (jvmbridge.FieldID, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	id := env.GetFieldID(cls.Raw(), name, sig)
	if err := fault.Check(v, env); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.PrimitiveCallFailed(errors.PhaseLookup, "GetFieldID "+name)
	}
	return id, nil
}

// GetStaticFieldID resolves a static field.
func GetStaticFieldID(v *vm.VM, cls *ref.Ref, name, sig string) (jvmbridge.FieldID, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	id := env.GetStaticFieldID(cls.Raw(), name, sig)
	if err := fault.Check(v, env); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.PrimitiveCallFailed(errors.PhaseLookup, "GetStaticFieldID "+name)
	}
	return id, nil
}

// GetField reads an instance field. Object results are owned locals.
func GetField(v *vm.VM, obj *ref.Ref, id jvmbridge.FieldID) (jvmbridge.JValue, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	val := env.GetField(obj.Raw(), id)
	return val, fault.Check(v, env)
}

// SetField writes an instance field.
func SetField(v *vm.VM, obj *ref.Ref, id jvmbridge.FieldID, val jvmbridge.JValue) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	env.SetField(obj.Raw(), id, val)
	return fault.Check(v, env)
}

// GetStaticField reads a static field.
func GetStaticField(v *vm.VM, cls *ref.Ref, id jvmbridge.FieldID) (jvmbridge.JValue, error) {
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	val := env.GetStaticField(cls.Raw(), id)
	return val, fault.Check(v, env)
}

// SetStaticField writes a static field.
func SetStaticField(v *vm.VM, cls *ref.Ref, id jvmbridge.FieldID, val jvmbridge.JValue) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	env.SetStaticField(cls.Raw(), id, val)
	return fault.Check(v, env)
}

// AllocObject allocates an instance of cls without running a constructor.
func AllocObject(v *vm.VM, cls *ref.Ref) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.AllocObject(cls.Raw()), errors.PhaseInvoke, "AllocObject", false)
}

// NewObject constructs an instance of cls with the given constructor.
func NewObject(v *vm.VM, cls *ref.Ref, ctor jvmbridge.MethodID, args []jvmbridge.JValue) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.NewObjectA(cls.Raw(), ctor, args), errors.PhaseInvoke, "NewObjectA", false)
}

// NewString creates a string from UTF-8 text.
func NewString(v *vm.VM, s string) (*ref.Ref, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return local(v, env, env.NewStringUTF(s), errors.PhaseConvert, "NewStringUTF", false)
}

// GetString reads a string's UTF-8 text.
func GetString(v *vm.VM, str *ref.Ref) (string, error) {
	if str.IsNull() {
		return "", errors.NullReference(errors.PhaseConvert, "string")
	}
	env, err := v.Current()
	if err != nil {
		return "", err
	}
	s, ok := env.GetStringUTFChars(str.Raw())
	if err := fault.Check(v, env); err != nil {
		return "", err
	}
	if !ok {
		return "", errors.PrimitiveCallFailed(errors.PhaseConvert, "GetStringUTFChars")
	}
	return s, nil
}

// Throw makes throwable pending on the calling thread.
func Throw(v *vm.VM, throwable *ref.Ref) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	if status := env.Throw(throwable.Raw()); status != jvmbridge.StatusOK {
		return errors.PrimitiveCallFailed(errors.PhaseFault, "Throw")
	}
	return nil
}

// RegisterNatives binds Go functions to native methods of cls.
func RegisterNatives(v *vm.VM, cls *ref.Ref, methods []jvmbridge.NativeMethod) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	status := env.RegisterNatives(cls.Raw(), methods)
	if err := fault.Check(v, env); err != nil {
		return err
	}
	if status != jvmbridge.StatusOK {
		return errors.New(errors.PhaseProxy, errors.KindPrimitiveCallFailed).
			Value(int32(status)).
			Detail("RegisterNatives: %s", status).
			Build()
	}
	return nil
}
