package minivm

import (
	"fmt"

	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/table"
)

// frame is the set of local references created in one local frame.
type frame map[table.Handle]struct{}

// Thread is the env of one attached thread. It implements jvmbridge.Env
// and is handed to Go method bodies.
type Thread struct {
	rt      *Runtime
	pending *Object
	frames  []frame
	version jvmbridge.Version
}

var _ jvmbridge.Env = (*Thread)(nil)

// Runtime returns the runtime the thread is attached to.
func (t *Thread) Runtime() *Runtime { return t.rt }

// Pending returns the pending throwable, or nil.
func (t *Thread) Pending() *Object { return t.pending }

// Frames returns the depth of the local frame stack.
func (t *Thread) Frames() int { return len(t.frames) }

func (t *Thread) newLocal(o *Object) jvmbridge.Ref {
	if o == nil {
		return 0
	}
	h, err := t.rt.locals.Insert(&local{obj: o, thread: t})
	if err != nil {
		Logger().Error("local reference table", zap.Error(err))
		return 0
	}
	if len(t.frames) == 0 {
		t.frames = append(t.frames, frame{})
	}
	t.frames[len(t.frames)-1][h] = struct{}{}
	return jvmbridge.Ref(h) << 1
}

func isGlobal(r jvmbridge.Ref) bool { return r&1 == 1 }

func handleOf(r jvmbridge.Ref) table.Handle { return table.Handle(r >> 1) }

// resolve maps a reference to its object. Unknown references resolve to
// nil.
func (t *Thread) resolve(r jvmbridge.Ref) *Object {
	if r == 0 {
		return nil
	}
	if isGlobal(r) {
		o, ok := t.rt.globals.Get(handleOf(r))
		if !ok {
			t.invalidRef(r)
			return nil
		}
		return o
	}
	l, ok := t.rt.locals.Get(handleOf(r))
	if !ok {
		t.invalidRef(r)
		return nil
	}
	if l.thread != t && t.rt.checkJNI.Load() {
		Logger().Warn("local reference used on a foreign thread", zap.Uint64("ref", uint64(r)))
	}
	return l.obj
}

func (t *Thread) invalidRef(r jvmbridge.Ref) {
	if t.rt.checkJNI.Load() {
		Logger().Warn("invalid reference", zap.Uint64("ref", uint64(r)))
	}
}

func (t *Thread) deleteLocal(r jvmbridge.Ref) error {
	h := handleOf(r)
	for i := len(t.frames) - 1; i >= 0; i-- {
		if _, ok := t.frames[i][h]; ok {
			delete(t.frames[i], h)
			t.rt.locals.Remove(h)
			return nil
		}
	}
	return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
		Value(uint64(r)).
		Detail("not a live local reference of this thread").
		Build()
}

func (t *Thread) pushFrame() {
	t.frames = append(t.frames, frame{})
}

func (t *Thread) popFrame() {
	n := len(t.frames)
	if n == 0 {
		return
	}
	for h := range t.frames[n-1] {
		t.rt.locals.Remove(h)
	}
	t.frames = t.frames[:n-1]
}

// throw makes o the pending throwable.
func (t *Thread) throw(o *Object) {
	t.pending = o
}

// raise makes err pending: a *Thrown as is, anything else as a
// java.lang.RuntimeException.
func (t *Thread) raise(err error) {
	if th, ok := err.(*Thrown); ok {
		t.pending = th.Obj
		return
	}
	t.pending = t.rt.newThrowable(runtimeException, err.Error())
}

// Raise returns a new throwable of className as an error, for Go method
// bodies.
func (t *Thread) Raise(className, message string) error {
	return &Thrown{Obj: t.rt.newThrowable(className, message)}
}

// Raisef is Raise with a formatted message.
func (t *Thread) Raisef(className, format string, args ...any) error {
	return t.Raise(className, fmt.Sprintf(format, args...))
}

// takePending clears the pending throwable and returns it as an error.
func (t *Thread) takePending() error {
	if t.pending == nil {
		return nil
	}
	p := t.pending
	t.pending = nil
	return &Thrown{Obj: p}
}

func (t *Thread) toJValue(k jvmbridge.Kind, s Slot) jvmbridge.JValue {
	if k == jvmbridge.KindObject {
		return jvmbridge.EncodeRef(t.newLocal(s.Obj))
	}
	return s.Prim
}

func (t *Thread) fromJValue(k jvmbridge.Kind, v jvmbridge.JValue) Slot {
	if k == jvmbridge.KindObject {
		return Obj(t.resolve(v.Ref()))
	}
	return Prim(v)
}

// classOf resolves a reference to a java/lang/Class object.
func (t *Thread) classOf(r jvmbridge.Ref) *Class {
	o := t.resolve(r)
	if o == nil {
		return nil
	}
	c, _ := o.Native.(*Class)
	return c
}

// checkPending warns about primitives called with a throwable pending.
func (t *Thread) checkPending(primitive string) {
	if t.pending != nil && t.rt.checkJNI.Load() {
		Logger().Warn("primitive called with a pending throwable",
			zap.String("primitive", primitive),
			zap.String("pending", t.pending.Class.DottedName()))
	}
}
