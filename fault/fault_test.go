package fault

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	jvmbridge "github.com/wippyai/jvm-bridge"
	bridgeerrors "github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/minivm"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

func start(t *testing.T, opts ...minivm.Option) (*vm.VM, *minivm.Runtime, jvmbridge.Env) {
	t.Helper()
	rt := minivm.New(opts...)
	v, err := vm.Start(rt.Create, vm.Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { v.Destroy() })
	env, _ := v.Current()
	return v, rt, env
}

func throwNew(t *testing.T, env jvmbridge.Env, class, msg string) {
	t.Helper()
	cls := env.FindClass(class)
	if cls == 0 {
		t.Fatalf("FindClass(%s) failed", class)
	}
	defer env.DeleteLocalRef(cls)
	if status := env.ThrowNew(cls, msg); status != jvmbridge.StatusOK {
		t.Fatalf("ThrowNew = %v", status)
	}
}

func TestCheck(t *testing.T) {
	v, rt, env := start(t)

	if err := Check(v, env); err != nil {
		t.Fatalf("Check with nothing pending = %v", err)
	}

	before := rt.Locals()
	throwNew(t, env, "java/lang/IllegalStateException", "broken")
	err := Check(v, env)
	if err == nil {
		t.Fatal("Check returned nil with a pending fault")
	}
	if env.ExceptionCheck() {
		t.Error("Check left the fault pending")
	}
	if rt.Locals() != before {
		t.Errorf("Check leaked %d locals", rt.Locals()-before)
	}

	f, ok := As(fmt.Errorf("call: %w", err))
	if !ok {
		t.Fatalf("As did not find the fault in %v", err)
	}
	defer f.Release()
	if f.Message() != "broken" || f.Error() != "broken" {
		t.Errorf("Message = %q", f.Message())
	}
	if f.ClassName() != "java.lang.IllegalStateException" {
		t.Errorf("ClassName = %q", f.ClassName())
	}
	if !f.Throwable().IsGlobal() || rt.Globals() != 1 {
		t.Errorf("throwable global %v, Globals %d", f.Throwable().IsGlobal(), rt.Globals())
	}
	if !errors.Is(err, bridgeerrors.ErrForeignFault) {
		t.Error("fault does not match ErrForeignFault")
	}
	if bridgeerrors.KindOf(err) != bridgeerrors.KindForeignFault {
		t.Errorf("KindOf = %v", bridgeerrors.KindOf(err))
	}
}

func TestNullMessage(t *testing.T) {
	v, _, env := start(t)

	cls := env.FindClass("java/lang/RuntimeException")
	obj := env.AllocObject(cls)
	env.Throw(obj)

	f, ok := As(Check(v, env))
	if !ok {
		t.Fatal("no fault")
	}
	defer f.Release()
	if f.Message() != NullMessage {
		t.Errorf("Message = %q, want %q", f.Message(), NullMessage)
	}
}

func TestMessageUnavailable(t *testing.T) {
	v, rt, env := start(t)
	rt.MustDefine(minivm.ClassDef{
		Name:  "test/Grumpy",
		Super: "java/lang/RuntimeException",
		Methods: []minivm.MethodDef{
			minivm.Constructor("()V", func(*minivm.Thread, *minivm.Object, []minivm.Slot) (minivm.Slot, error) {
				return minivm.Slot{}, nil
			}),
			minivm.Virtual("getMessage", "()Ljava/lang/String;", func(t *minivm.Thread, _ *minivm.Object, _ []minivm.Slot) (minivm.Slot, error) {
				return minivm.Slot{}, t.Raise("java/lang/IllegalStateException", "no message for you")
			}),
		},
	})

	cls := env.FindClass("test/Grumpy")
	env.Throw(env.AllocObject(cls))

	f, ok := As(Check(v, env))
	if !ok {
		t.Fatal("no fault")
	}
	defer f.Release()
	if f.Message() != UnavailableMessage {
		t.Errorf("Message = %q, want %q", f.Message(), UnavailableMessage)
	}
	if f.ClassName() != "test.Grumpy" {
		t.Errorf("ClassName = %q", f.ClassName())
	}
	if env.ExceptionCheck() {
		t.Error("getMessage fault left pending")
	}
}

func TestResumeSuspend(t *testing.T) {
	v, _, env := start(t)
	throwNew(t, env, "java/lang/ArithmeticException", "/ by zero")
	f, _ := As(Check(v, env))
	defer f.Release()

	if f.Suspend() {
		t.Error("Suspend cleared a fault that was not pending")
	}
	if err := f.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !env.ExceptionCheck() {
		t.Fatal("Resume did not make the fault pending")
	}
	pending := env.ExceptionOccurred()
	if !env.IsSameObject(pending, f.Throwable().Raw()) {
		t.Error("pending throwable is not the captured one")
	}
	env.DeleteLocalRef(pending)

	if !f.Suspend() {
		t.Fatal("Suspend did not clear the fault")
	}
	if env.ExceptionCheck() {
		t.Error("fault still pending after Suspend")
	}
}

func TestNew(t *testing.T) {
	v, _, env := start(t)

	if _, err := New(v, ref.Null); bridgeerrors.KindOf(err) != bridgeerrors.KindNullReference {
		t.Errorf("New(Null) = %v", err)
	}

	cls := env.FindClass("java/lang/UnsupportedOperationException")
	obj := env.AllocObject(cls)
	r := ref.Local(v, obj)
	defer r.Release()

	// An unrelated pending fault survives.
	throwNew(t, env, "java/lang/IllegalArgumentException", "other")
	f, err := New(v, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f.Release()
	if f.ClassName() != "java.lang.UnsupportedOperationException" {
		t.Errorf("ClassName = %q", f.ClassName())
	}
	other, ok := As(Check(v, env))
	if !ok {
		t.Fatal("pending fault was lost")
	}
	defer other.Release()
	if other.Message() != "other" {
		t.Errorf("pending message = %q", other.Message())
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	v, _, env := start(t, minivm.WithStderr(&buf))
	throwNew(t, env, "java/lang/IllegalStateException", "printed")
	f, _ := As(Check(v, env))
	defer f.Release()

	if err := f.Print(); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "java.lang.IllegalStateException: printed") {
		t.Errorf("stack trace = %q", buf.String())
	}
}

func TestThrowNew(t *testing.T) {
	v, _, env := start(t)

	if err := ThrowNew(v, "java/lang/IllegalArgumentException", "bad arg"); err != nil {
		t.Fatalf("ThrowNew: %v", err)
	}
	f, ok := As(Check(v, env))
	if !ok {
		t.Fatal("ThrowNew left nothing pending")
	}
	f.Release()
	if f.Message() != "bad arg" {
		t.Errorf("Message = %q", f.Message())
	}

	// A missing class surfaces as the NoClassDefFoundError FindClass raised.
	err := ThrowNew(v, "no/such/Throwable", "x")
	missing, ok := As(err)
	if !ok {
		t.Fatalf("ThrowNew(missing) = %v", err)
	}
	missing.Release()
	if missing.ClassName() != "java.lang.NoClassDefFoundError" {
		t.Errorf("ClassName = %q", missing.ClassName())
	}

	// Not a throwable.
	if err := ThrowNew(v, "java/lang/String", "x"); bridgeerrors.KindOf(err) != bridgeerrors.KindPrimitiveCallFailed {
		t.Errorf("ThrowNew(String) = %v", err)
	}
}
