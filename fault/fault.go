// Package fault converts the runtime's pending-fault model into Go errors.
//
// Every primitive that can raise leaves a pending throwable behind. Check
// turns it into a *Fault, clearing the pending state so the next primitive
// runs clean. Resume puts a captured throwable back as pending, which is how
// a Go callback propagates a fault into the runtime.
package fault

import (
	"errors"

	jvmbridge "github.com/wippyai/jvm-bridge"
	bridgeerrors "github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

const (
	NullMessage        = "(null)"
	UnavailableMessage = "(message unavailable)"
)

// Fault is a captured foreign throwable.
type Fault struct {
	throwable *ref.Ref
	message   string
	className string
}

// Check converts the pending throwable on env, if any, into a *Fault and
// clears it. It returns nil when nothing is pending.
func Check(v *vm.VM, env jvmbridge.Env) error {
	if !env.ExceptionCheck() {
		return nil
	}
	raw := env.ExceptionOccurred()
	env.ExceptionClear()
	if raw == 0 {
		return bridgeerrors.PrimitiveCallFailed(bridgeerrors.PhaseFault, "ExceptionOccurred")
	}
	defer env.DeleteLocalRef(raw)
	return capture(v, env, raw)
}

// New wraps a throwable the caller holds, for example one about to be
// thrown from a callback. A fault pending on the calling thread is left in
// place.
func New(v *vm.VM, throwable *ref.Ref) (*Fault, error) {
	if throwable.IsNull() {
		return nil, bridgeerrors.NullReference(bridgeerrors.PhaseFault, "throwable")
	}
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	return capture(v, env, throwable.Raw()), nil
}

// capture builds a Fault for raw, keeping any unrelated pending fault
// suspended while the message is read.
func capture(v *vm.VM, env jvmbridge.Env, raw jvmbridge.Ref) *Fault {
	restore := suspend(env)
	defer restore()

	f := &Fault{
		throwable: ref.Global(v, env.NewGlobalRef(raw)),
		message:   UnavailableMessage,
	}
	if msg, ok := callString(env, raw, "getMessage"); ok {
		f.message = msg
	}
	if cls := env.GetObjectClass(raw); cls != 0 {
		if name, ok := className(env, cls); ok {
			f.className = name
		}
		env.DeleteLocalRef(cls)
	}
	env.ExceptionClear()
	return f
}

// suspend clears the fault pending on env and returns a function that puts
// it back.
func suspend(env jvmbridge.Env) func() {
	if !env.ExceptionCheck() {
		return func() {}
	}
	pending := env.ExceptionOccurred()
	env.ExceptionClear()
	return func() {
		env.ExceptionClear()
		env.Throw(pending)
		env.DeleteLocalRef(pending)
	}
}

// callString invokes a no-argument String method on obj. ok is false if the
// call faulted; the fault is cleared.
func callString(env jvmbridge.Env, obj jvmbridge.Ref, name string) (string, bool) {
	cls := env.GetObjectClass(obj)
	if cls == 0 {
		env.ExceptionClear()
		return "", false
	}
	defer env.DeleteLocalRef(cls)

	id := env.GetMethodID(cls, name, "()Ljava/lang/String;")
	if id == 0 || env.ExceptionCheck() {
		env.ExceptionClear()
		return "", false
	}
	s := env.CallObjectMethodA(obj, id, nil)
	if env.ExceptionCheck() {
		env.ExceptionClear()
		return "", false
	}
	if s == 0 {
		return NullMessage, true
	}
	defer env.DeleteLocalRef(s)
	str, ok := env.GetStringUTFChars(s)
	if !ok {
		env.ExceptionClear()
		return "", false
	}
	return str, true
}

func className(env jvmbridge.Env, cls jvmbridge.Ref) (string, bool) {
	name, ok := callString(env, cls, "getName")
	if !ok || name == NullMessage {
		return "", false
	}
	return name, true
}

// Error returns the throwable's message.
func (f *Fault) Error() string {
	return f.message
}

// Message returns the throwable's message, "(null)" if it has none.
func (f *Fault) Message() string {
	return f.message
}

// ClassName returns the dotted class name of the throwable, or "" if it
// could not be read.
func (f *Fault) ClassName() string {
	return f.className
}

// Throwable returns the global reference to the foreign throwable. The Fault
// keeps ownership.
func (f *Fault) Throwable() *ref.Ref {
	return f.throwable
}

// ErrorKind reports foreign_fault.
func (f *Fault) ErrorKind() bridgeerrors.Kind {
	return bridgeerrors.KindForeignFault
}

// Is matches the ErrForeignFault sentinel.
func (f *Fault) Is(target error) bool {
	return bridgeerrors.MatchKind(bridgeerrors.KindForeignFault, bridgeerrors.PhaseFault, target)
}

// Resume makes the throwable pending again on the calling thread, so the
// runtime observes it when control returns to it.
func (f *Fault) Resume() error {
	v := f.throwable.VM()
	if v == nil || f.throwable.IsNull() {
		return bridgeerrors.NullReference(bridgeerrors.PhaseFault, "throwable")
	}
	env, err := v.Current()
	if err != nil {
		return err
	}
	if status := env.Throw(f.throwable.Raw()); status != jvmbridge.StatusOK {
		return bridgeerrors.PrimitiveCallFailed(bridgeerrors.PhaseFault, "Throw")
	}
	return nil
}

// Suspend clears the pending fault on the calling thread if it is this
// fault's throwable. It reports whether anything was cleared.
func (f *Fault) Suspend() bool {
	v := f.throwable.VM()
	if v == nil {
		return false
	}
	env, err := v.Current()
	if err != nil || !env.ExceptionCheck() {
		return false
	}
	pending := env.ExceptionOccurred()
	defer env.DeleteLocalRef(pending)
	if !env.IsSameObject(pending, f.throwable.Raw()) {
		return false
	}
	env.ExceptionClear()
	return true
}

// Print writes the foreign stack trace through printStackTrace. Any fault
// pending on the calling thread is preserved.
func (f *Fault) Print() error {
	v := f.throwable.VM()
	if v == nil || f.throwable.IsNull() {
		return bridgeerrors.NullReference(bridgeerrors.PhaseFault, "throwable")
	}
	env, err := v.Current()
	if err != nil {
		return err
	}
	restore := suspend(env)
	defer restore()

	raw := f.throwable.Raw()
	cls := env.GetObjectClass(raw)
	if cls == 0 {
		return bridgeerrors.PrimitiveCallFailed(bridgeerrors.PhaseFault, "GetObjectClass")
	}
	defer env.DeleteLocalRef(cls)

	id := env.GetMethodID(cls, "printStackTrace", "()V")
	if id == 0 {
		env.ExceptionClear()
		return bridgeerrors.NotFound(bridgeerrors.PhaseFault, "method", "printStackTrace")
	}
	env.CallVoidMethodA(raw, id, nil)
	return Check(v, env)
}

// Release drops the reference to the throwable.
func (f *Fault) Release() {
	f.throwable.Release()
}

// As returns the *Fault in err's chain, if any.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// ThrowNew raises a new throwable of class className with message on the
// calling thread.
func ThrowNew(v *vm.VM, className, message string) error {
	env, err := v.Current()
	if err != nil {
		return err
	}
	cls := env.FindClass(className)
	if cls == 0 {
		if err := Check(v, env); err != nil {
			return err
		}
		return bridgeerrors.NotFound(bridgeerrors.PhaseFault, "class", className)
	}
	defer env.DeleteLocalRef(cls)
	if status := env.ThrowNew(cls, message); status != jvmbridge.StatusOK {
		return bridgeerrors.PrimitiveCallFailed(bridgeerrors.PhaseFault, "ThrowNew")
	}
	return nil
}
