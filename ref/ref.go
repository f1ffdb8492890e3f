package ref

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/vm"
)

// holder is the shared state behind every owner of one foreign reference.
type holder struct {
	vm      *vm.VM
	frame   *Frame
	cleanup runtime.Cleanup
	raw     jvmbridge.Ref
	count   atomic.Int32
	// done is set once the foreign reference is gone, either through the
	// last Release or because its frame was popped. It is allocated apart
	// from the holder so the GC cleanup can share it.
	done   *atomic.Bool
	global bool
}

// Ref is one owner of a foreign reference. Every Ref obtained from Local,
// Global, Clone or Promote must be released exactly once; the foreign
// reference is deleted when its last owner is released.
//
// The nil *Ref is the null reference. All methods accept it.
type Ref struct {
	h        *holder
	released atomic.Bool
}

// Null is the null reference.
var Null *Ref

// leak is what the GC cleanup needs to delete a global nobody released.
type leak struct {
	vm   *vm.VM
	done *atomic.Bool
	raw  jvmbridge.Ref
}

// Local takes ownership of a local reference returned by a primitive on the
// calling thread. A zero raw handle yields Null.
func Local(v *vm.VM, raw jvmbridge.Ref) *Ref {
	if raw == 0 {
		return Null
	}
	h := &holder{vm: v, raw: raw, done: new(atomic.Bool)}
	h.count.Store(1)
	return &Ref{h: h}
}

// Global takes ownership of a global reference. Globals that become
// unreachable without being released are deleted by the garbage collector
// and logged as leaks.
func Global(v *vm.VM, raw jvmbridge.Ref) *Ref {
	if raw == 0 {
		return Null
	}
	h := &holder{vm: v, raw: raw, global: true, done: new(atomic.Bool)}
	h.count.Store(1)
	h.cleanup = runtime.AddCleanup(h, releaseLeaked, leak{vm: v, raw: raw, done: h.done})
	return &Ref{h: h}
}

func releaseLeaked(l leak) {
	if !l.done.CompareAndSwap(false, true) || l.vm.Destroyed() {
		return
	}
	Logger().Warn("global reference leaked; releasing", zap.Uint64("ref", uint64(l.raw)))
	err := l.vm.Do(func(env jvmbridge.Env) error {
		return env.DeleteGlobalRef(l.raw)
	})
	if err != nil {
		Logger().Error("release leaked global", zap.Uint64("ref", uint64(l.raw)), zap.Error(err))
	}
}

// Raw returns the foreign handle, or 0 for Null, for an owner that has been
// released and for references whose foreign side is gone.
func (r *Ref) Raw() jvmbridge.Ref {
	if r == nil || r.released.Load() || r.h.done.Load() {
		return 0
	}
	return r.h.raw
}

// JValue returns the handle as a primitive call argument.
func (r *Ref) JValue() jvmbridge.JValue {
	return jvmbridge.EncodeRef(r.Raw())
}

// IsNull reports whether r refers to nothing.
func (r *Ref) IsNull() bool {
	return r.Raw() == 0
}

// IsGlobal reports whether r is a global reference.
func (r *Ref) IsGlobal() bool {
	return r != nil && r.h.global
}

// VM returns the runtime r belongs to, or nil for Null.
func (r *Ref) VM() *vm.VM {
	if r == nil {
		return nil
	}
	return r.h.vm
}

// Owners returns the number of unreleased owners of the foreign reference.
func (r *Ref) Owners() int32 {
	if r == nil {
		return 0
	}
	return r.h.count.Load()
}

// Clone returns a new owner of the same foreign reference.
func (r *Ref) Clone() *Ref {
	if r == nil {
		return Null
	}
	r.h.count.Add(1)
	return &Ref{h: r.h}
}

// Release drops this owner. Releasing the last owner deletes the foreign
// reference. Releasing an owner twice is a no-op. Failures are logged.
func (r *Ref) Release() {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.h.count.Add(-1) > 0 {
		return
	}
	r.h.release()
}

func (h *holder) release() {
	if !h.done.CompareAndSwap(false, true) {
		return
	}
	if h.frame != nil {
		h.frame.forget(h)
	}

	if h.global {
		h.cleanup.Stop()
		err := h.vm.Do(func(env jvmbridge.Env) error {
			return env.DeleteGlobalRef(h.raw)
		})
		if err != nil {
			Logger().Warn("delete global reference", zap.Uint64("ref", uint64(h.raw)), zap.Error(err))
		}
		return
	}

	// A local can only be deleted on the thread that owns it.
	env, err := h.vm.Current()
	if err == nil {
		err = env.DeleteLocalRef(h.raw)
	}
	if err != nil {
		Logger().Warn("delete local reference", zap.Uint64("ref", uint64(h.raw)), zap.Error(err))
	}
}

// Promote returns a new global owner of the object r refers to. r keeps its
// own reference and must still be released.
func (r *Ref) Promote() (*Ref, error) {
	if r.IsNull() {
		return Null, nil
	}
	env, err := r.h.vm.Current()
	if err != nil {
		return nil, err
	}
	raw := env.NewGlobalRef(r.h.raw)
	if raw == 0 {
		return nil, errors.PrimitiveCallFailed(errors.PhaseRelease, "NewGlobalRef")
	}
	return Global(r.h.vm, raw), nil
}

// NewLocal returns a new local owner of the object r refers to, valid on
// the calling thread.
func (r *Ref) NewLocal() (*Ref, error) {
	if r.IsNull() {
		return Null, nil
	}
	env, err := r.h.vm.Current()
	if err != nil {
		return nil, err
	}
	raw := env.NewLocalRef(r.h.raw)
	if raw == 0 {
		return nil, errors.PrimitiveCallFailed(errors.PhaseRelease, "NewLocalRef")
	}
	return Local(r.h.vm, raw), nil
}

// Equal reports whether r and o refer to the same foreign object. Two nulls
// are equal.
func (r *Ref) Equal(o *Ref) bool {
	a, b := r.Raw(), o.Raw()
	if a == 0 || b == 0 {
		return a == b
	}
	if a == b {
		return true
	}
	env, err := r.h.vm.Current()
	if err != nil {
		return false
	}
	return env.IsSameObject(a, b)
}
