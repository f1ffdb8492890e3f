package jni

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

type callFunc func(env jvmbridge.Env, target jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue

// Per return kind, indexed by jvmbridge.Kind.
var instanceCalls = [...]callFunc{
	jvmbridge.KindBoolean: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeBool(env.CallBooleanMethodA(obj, id, args))
	},
	jvmbridge.KindByte: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeByte(env.CallByteMethodA(obj, id, args))
	},
	jvmbridge.KindChar: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeChar(env.CallCharMethodA(obj, id, args))
	},
	jvmbridge.KindShort: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeShort(env.CallShortMethodA(obj, id, args))
	},
	jvmbridge.KindInt: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeInt(env.CallIntMethodA(obj, id, args))
	},
	jvmbridge.KindLong: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeLong(env.CallLongMethodA(obj, id, args))
	},
	jvmbridge.KindFloat: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeFloat(env.CallFloatMethodA(obj, id, args))
	},
	jvmbridge.KindDouble: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeDouble(env.CallDoubleMethodA(obj, id, args))
	},
	jvmbridge.KindObject: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeRef(env.CallObjectMethodA(obj, id, args))
	},
	jvmbridge.KindVoid: func(env jvmbridge.Env, obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		env.CallVoidMethodA(obj, id, args)
		return 0
	},
}

var staticCalls = [...]callFunc{
	jvmbridge.KindBoolean: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeBool(env.CallStaticBooleanMethodA(cls, id, args))
	},
	jvmbridge.KindByte: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeByte(env.CallStaticByteMethodA(cls, id, args))
	},
	jvmbridge.KindChar: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeChar(env.CallStaticCharMethodA(cls, id, args))
	},
	jvmbridge.KindShort: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeShort(env.CallStaticShortMethodA(cls, id, args))
	},
	jvmbridge.KindInt: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeInt(env.CallStaticIntMethodA(cls, id, args))
	},
	jvmbridge.KindLong: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeLong(env.CallStaticLongMethodA(cls, id, args))
	},
	jvmbridge.KindFloat: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeFloat(env.CallStaticFloatMethodA(cls, id, args))
	},
	jvmbridge.KindDouble: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeDouble(env.CallStaticDoubleMethodA(cls, id, args))
	},
	jvmbridge.KindObject: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		return jvmbridge.EncodeRef(env.CallStaticObjectMethodA(cls, id, args))
	},
	jvmbridge.KindVoid: func(env jvmbridge.Env, cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.JValue {
		env.CallStaticVoidMethodA(cls, id, args)
		return 0
	},
}

// Call invokes an instance method whose return kind is ret. For KindObject
// the result is a local reference the caller must take ownership of (see
// ref.Local); on error no reference is returned.
func Call(v *vm.VM, obj *ref.Ref, id jvmbridge.MethodID, ret jvmbridge.Kind, args []jvmbridge.JValue) (jvmbridge.JValue, error) {
	if obj.IsNull() {
		return 0, errors.NullReference(errors.PhaseInvoke, "receiver")
	}
	return call(v, instanceCalls[:], obj.Raw(), id, ret, args)
}

// CallStatic invokes a static method of cls whose return kind is ret.
func CallStatic(v *vm.VM, cls *ref.Ref, id jvmbridge.MethodID, ret jvmbridge.Kind, args []jvmbridge.JValue) (jvmbridge.JValue, error) {
	return call(v, staticCalls[:], cls.Raw(), id, ret, args)
}

func call(v *vm.VM, table []callFunc, target jvmbridge.Ref, id jvmbridge.MethodID, ret jvmbridge.Kind, args []jvmbridge.JValue) (jvmbridge.JValue, error) {
	if int(ret) >= len(table) {
		return 0, errors.Unsupported(errors.PhaseInvoke, "return kind "+ret.String())
	}
	env, err := v.Current()
	if err != nil {
		return 0, err
	}
	result := table[ret](env, target, id, args)
	if err := fault.Check(v, env); err != nil {
		if ret == jvmbridge.KindObject && result.Ref() != 0 {
			env.DeleteLocalRef(result.Ref())
		}
		return 0, err
	}
	return result, nil
}
