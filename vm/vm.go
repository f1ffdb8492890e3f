package vm

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

// attachment is the env registered for one OS thread.
type attachment struct {
	env jvmbridge.Env
	// adopted envs were handed to us by the runtime; detaching only drops
	// the registration.
	adopted bool
}

// VM is the runtime context: one foreign runtime plus the env of every
// attached OS thread. It is safe for concurrent use.
type VM struct {
	jvm     jvmbridge.JavaVM
	envs    map[uint64]*attachment
	hooks   []func()
	version Version
	mu      sync.RWMutex
	hooksMu sync.Mutex
	owner   bool
	closed  atomic.Bool
}

// Start creates a runtime through create and attaches the calling thread.
// The calling goroutine stays locked to its OS thread until it detaches or
// the VM is destroyed.
func Start(create jvmbridge.CreateFunc, opts Options) (*VM, error) {
	if create == nil {
		return nil, errors.InvalidInput(errors.PhaseStartup, "nil create function")
	}

	args := opts.initArgs()
	jvm, env, status := create(args)
	if status != jvmbridge.StatusOK || jvm == nil || env == nil {
		if status == jvmbridge.StatusOK {
			status = jvmbridge.StatusErr
		}
		Logger().Warn("runtime creation failed",
			zap.Stringer("status", status),
			zap.Stringer("version", args.Version))
		return nil, errors.RuntimeInitFailed(int32(status), "create runtime: "+status.String())
	}

	reported := env.GetVersion()
	ok, err := satisfies(reported, args.Version)
	if err != nil || !ok {
		jvm.DestroyJavaVM()
		return nil, errors.New(errors.PhaseStartup, errors.KindRuntimeInitFailed).
			Value(int32(jvmbridge.StatusVersion)).
			Cause(err).
			Detail("runtime reports version %s, need >= %s", reported, args.Version).
			Build()
	}

	v := &VM{
		jvm:     jvm,
		version: args.Version,
		owner:   true,
		envs:    make(map[uint64]*attachment),
	}

	runtime.LockOSThread()
	v.envs[threadID()] = &attachment{env: env}

	Logger().Debug("runtime started",
		zap.Stringer("version", reported),
		zap.Int("options", len(args.Options)))
	return v, nil
}

// FromEnv wraps a runtime the caller did not create, starting from the env
// of the calling thread. Destroy on the result releases bridge state but
// leaves the runtime running.
func FromEnv(env jvmbridge.Env) (*VM, error) {
	if env == nil {
		return nil, errors.InvalidInput(errors.PhaseStartup, "nil env")
	}
	jvm, status := env.GetJavaVM()
	if status != jvmbridge.StatusOK || jvm == nil {
		return nil, errors.PrimitiveCallFailed(errors.PhaseStartup, "GetJavaVM")
	}

	v := &VM{
		jvm:     jvm,
		version: env.GetVersion(),
		envs:    make(map[uint64]*attachment),
	}

	runtime.LockOSThread()
	v.envs[threadID()] = &attachment{env: env, adopted: true}
	return v, nil
}

// JavaVM returns the invocation interface of the runtime.
func (v *VM) JavaVM() jvmbridge.JavaVM {
	return v.jvm
}

// Version returns the interface version negotiated at start-up.
func (v *VM) Version() Version {
	return v.version
}

// Owner reports whether this VM created the runtime.
func (v *VM) Owner() bool {
	return v.owner
}

// Current returns the env of the calling thread.
func (v *VM) Current() (jvmbridge.Env, error) {
	v.mu.RLock()
	a, ok := v.envs[threadID()]
	v.mu.RUnlock()
	if !ok {
		return nil, errors.NotAttached(errors.PhaseAttach)
	}
	return a.env, nil
}

// Attached reports whether the calling thread has an env.
func (v *VM) Attached() bool {
	_, err := v.Current()
	return err == nil
}

// AttachCurrentThread attaches the calling thread and locks the goroutine to
// it. Attaching an attached thread returns the existing env.
func (v *VM) AttachCurrentThread() (jvmbridge.Env, error) {
	if v.closed.Load() {
		return nil, errors.New(errors.PhaseAttach, errors.KindNotAttached).
			Detail("runtime destroyed").
			Build()
	}

	runtime.LockOSThread()
	tid := threadID()

	v.mu.Lock()
	defer v.mu.Unlock()

	if a, ok := v.envs[tid]; ok {
		runtime.UnlockOSThread()
		return a.env, nil
	}

	env, status := v.jvm.AttachCurrentThread(v.version)
	if status != jvmbridge.StatusOK || env == nil {
		runtime.UnlockOSThread()
		return nil, errors.New(errors.PhaseAttach, errors.KindPrimitiveCallFailed).
			Value(int32(status)).
			Detail("AttachCurrentThread: %s", status).
			Build()
	}

	v.envs[tid] = &attachment{env: env}
	Logger().Debug("thread attached", zap.Uint64("thread", tid))
	return env, nil
}

// DetachCurrentThread detaches the calling thread, releasing every local
// reference it owns. Detaching an unattached thread is a no-op.
func (v *VM) DetachCurrentThread() error {
	tid := threadID()

	v.mu.Lock()
	a, ok := v.envs[tid]
	if !ok {
		v.mu.Unlock()
		return nil
	}
	delete(v.envs, tid)
	v.mu.Unlock()

	defer runtime.UnlockOSThread()

	if a.adopted {
		return nil
	}
	if status := v.jvm.DetachCurrentThread(a.env); status != jvmbridge.StatusOK {
		return errors.New(errors.PhaseAttach, errors.KindPrimitiveCallFailed).
			Value(int32(status)).
			Detail("DetachCurrentThread: %s", status).
			Build()
	}
	Logger().Debug("thread detached", zap.Uint64("thread", tid))
	return nil
}

// Do runs fn with the env of the calling thread, attaching for the duration
// of the call if the thread was not attached.
func (v *VM) Do(fn func(env jvmbridge.Env) error) error {
	if env, err := v.Current(); err == nil {
		return fn(env)
	}

	env, err := v.AttachCurrentThread()
	if err != nil {
		return err
	}
	defer func() {
		if err := v.DetachCurrentThread(); err != nil {
			Logger().Warn("detach after scoped attach failed", zap.Error(err))
		}
	}()
	return fn(env)
}

// Adopt registers env, supplied by the runtime on a callback, for the
// calling thread if the thread is not attached. The returned function drops
// the registration again; it is a no-op if the thread was already attached.
func (v *VM) Adopt(env jvmbridge.Env) (release func()) {
	runtime.LockOSThread()
	tid := threadID()

	v.mu.Lock()
	if _, ok := v.envs[tid]; ok {
		v.mu.Unlock()
		runtime.UnlockOSThread()
		return func() {}
	}
	a := &attachment{env: env, adopted: true}
	v.envs[tid] = a
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			if v.envs[tid] == a {
				delete(v.envs, tid)
			}
			v.mu.Unlock()
			runtime.UnlockOSThread()
		})
	}
}

// OnDestroy registers fn to run when the VM is destroyed. Hooks run in
// reverse registration order, before the runtime is shut down.
func (v *VM) OnDestroy(fn func()) {
	v.hooksMu.Lock()
	defer v.hooksMu.Unlock()
	v.hooks = append(v.hooks, fn)
}

// Destroy runs the teardown hooks and, if this VM created the runtime,
// destroys it. Destroying twice is a no-op.
func (v *VM) Destroy() error {
	if !v.closed.CompareAndSwap(false, true) {
		return nil
	}

	v.hooksMu.Lock()
	hooks := v.hooks
	v.hooks = nil
	v.hooksMu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	tid := threadID()
	v.mu.Lock()
	_, attached := v.envs[tid]
	v.envs = make(map[uint64]*attachment)
	v.mu.Unlock()
	if attached {
		runtime.UnlockOSThread()
	}

	if !v.owner {
		return nil
	}
	if status := v.jvm.DestroyJavaVM(); status != jvmbridge.StatusOK {
		return errors.New(errors.PhaseStartup, errors.KindPrimitiveCallFailed).
			Value(int32(status)).
			Detail("DestroyJavaVM: %s", status).
			Build()
	}
	Logger().Debug("runtime destroyed")
	return nil
}

// Destroyed reports whether Destroy has been called.
func (v *VM) Destroyed() bool {
	return v.closed.Load()
}
