package proxy

import (
	"fmt"

	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/class"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
)

const frameCapacity = 16

// dispatch is the native invoke method of NativeInvocationHandler. args are
// the proxy, the reflected Method and the packed argument array.
func dispatch(env jvmbridge.Env, this jvmbridge.Ref, args []jvmbridge.JValue) jvmbridge.JValue {
	id, ok := readBinding(env, this)
	if !ok {
		return 0
	}
	b, ok := lookup(id)
	if !ok {
		throwRaw(env, "java/lang/IllegalStateException", "proxy handler released")
		return 0
	}
	if len(args) != 3 {
		throwRaw(env, "java/lang/IllegalArgumentException", fmt.Sprintf("invoke takes 3 arguments, got %d", len(args)))
		return 0
	}

	v := b.vm
	release := v.Adopt(env)
	defer release()

	frame, err := ref.PushFrame(v, frameCapacity)
	if err != nil {
		throwRaw(env, "java/lang/IllegalStateException", err.Error())
		return 0
	}

	result, failure := call(b, env, frame, args[1].Ref(), args[2].Ref())
	out := frame.Pop(result)
	if failure != nil {
		raise(b, failure)
		out.Release()
		return 0
	}
	// The runtime takes over the returned local.
	return out.JValue()
}

// call runs the handler inside frame and boxes its result. Panics are
// turned into errors.
func call(b *binding, env jvmbridge.Env, frame *ref.Frame, methodRaw, argsRaw jvmbridge.Ref) (result *ref.Ref, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = ref.Null
			err = fmt.Errorf("proxy handler panic: %v", r)
			Logger().Error("proxy handler panicked",
				zap.String("interface", b.iface),
				zap.Any("panic", r))
		}
	}()

	v := b.vm
	m, err := class.FromReflected(v, frame.Local(env.NewLocalRef(methodRaw)))
	if err != nil {
		return ref.Null, err
	}
	defer m.Release()

	var packed value.Value
	if argsRaw == 0 {
		packed = value.Null()
	} else {
		packed = value.Object(frame.Local(env.NewLocalRef(argsRaw)))
	}

	res, err := b.handler(m, packed)
	if err != nil {
		return ref.Null, err
	}
	defer res.Release()

	if res.IsVoid() {
		return ref.Null, nil
	}
	boxed, err := class.Box(v, res)
	if err != nil {
		return ref.Null, err
	}
	return frame.Adopt(boxed), nil
}

// raise makes failure pending in the runtime.
func raise(b *binding, failure error) {
	if f, ok := fault.As(failure); ok {
		defer f.Release()
		if err := f.Resume(); err == nil {
			return
		}
	}
	Logger().Debug("proxy handler failed",
		zap.String("interface", b.iface),
		zap.Error(failure))
	if err := fault.ThrowNew(b.vm, "java/lang/RuntimeException", failure.Error()); err != nil {
		Logger().Error("raise handler failure", zap.Error(err))
	}
}

// readBinding reads the binding field of a handler object with raw
// primitives, before any VM is known.
func readBinding(env jvmbridge.Env, this jvmbridge.Ref) (int64, bool) {
	cls := env.GetObjectClass(this)
	if cls == 0 {
		return 0, false
	}
	defer env.DeleteLocalRef(cls)

	fid := env.GetFieldID(cls, "binding", "J")
	if fid == 0 || env.ExceptionCheck() {
		return 0, false
	}
	return env.GetField(this, fid).Long(), true
}

func throwRaw(env jvmbridge.Env, className, msg string) {
	cls := env.FindClass(className)
	if cls == 0 {
		return
	}
	defer env.DeleteLocalRef(cls)
	env.ThrowNew(cls, msg)
}
