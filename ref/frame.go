package ref

import (
	"sync"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/vm"
)

// Frame is a local reference scope. Popping it deletes every local created
// since the push in one step; owners adopted into the frame become Null.
type Frame struct {
	vm      *vm.VM
	env     jvmbridge.Env
	holders map[*holder]struct{}
	mu      sync.Mutex
	popped  bool
}

// PushFrame opens a local frame with room for at least capacity references.
func PushFrame(v *vm.VM, capacity int32) (*Frame, error) {
	env, err := v.Current()
	if err != nil {
		return nil, err
	}
	if status := env.PushLocalFrame(capacity); status != jvmbridge.StatusOK {
		return nil, errors.New(errors.PhaseRelease, errors.KindPrimitiveCallFailed).
			Value(int32(status)).
			Detail("PushLocalFrame: %s", status).
			Build()
	}
	return &Frame{vm: v, env: env, holders: make(map[*holder]struct{})}, nil
}

// Adopt ties r's lifetime to the frame and returns r. Adopting a global or
// Null is a no-op.
func (f *Frame) Adopt(r *Ref) *Ref {
	if r == nil || r.h.global {
		return r
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.popped {
		return r
	}
	r.h.frame = f
	f.holders[r.h] = struct{}{}
	return r
}

// Local wraps raw as a local owned by the frame.
func (f *Frame) Local(raw jvmbridge.Ref) *Ref {
	return f.Adopt(Local(f.vm, raw))
}

func (f *Frame) forget(h *holder) {
	f.mu.Lock()
	delete(f.holders, h)
	f.mu.Unlock()
}

// Pop closes the frame. result, if not Null, survives as a new local owner
// in the enclosing scope; the caller still owns result itself. Popping twice
// is a no-op that returns Null.
func (f *Frame) Pop(result *Ref) *Ref {
	f.mu.Lock()
	if f.popped {
		f.mu.Unlock()
		return Null
	}
	f.popped = true
	holders := f.holders
	f.holders = nil
	f.mu.Unlock()

	raw := f.env.PopLocalFrame(result.Raw())
	for h := range holders {
		h.done.Store(true)
	}
	return Local(f.vm, raw)
}
