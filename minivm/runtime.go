package minivm

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/table"
)

// local is one entry of the local reference table.
type local struct {
	obj    *Object
	thread *Thread
}

// Runtime is an in-process object runtime exposing the invocation
// interface and per-thread envs. A Runtime hosts at most one VM: Create
// succeeds once.
type Runtime struct {
	stderr     io.Writer
	classes    map[string]*Class
	primitives map[byte]*Class
	props      map[string]string
	threads    map[*Thread]struct{}
	locals     *table.Table[*local]
	globals    *table.Table[*Object]
	loader     *Object
	wasm       wazero.Runtime
	methods    []*Method
	fields     []*Field
	mu         sync.RWMutex
	threadsMu  sync.Mutex
	wasmMu     sync.Mutex
	proxySeq   atomic.Int32
	hashSeq    atomic.Int32
	maxVersion jvmbridge.Version
	started    atomic.Bool
	destroyed  atomic.Bool
	copies     bool
	verbose    atomic.Bool
	checkJNI   atomic.Bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithStderr sets where printStackTrace and ExceptionDescribe write.
func WithStderr(w io.Writer) Option {
	return func(rt *Runtime) { rt.stderr = w }
}

// WithArrayCopies makes GetArrayElements hand out copies instead of the
// array storage itself.
func WithArrayCopies(copies bool) Option {
	return func(rt *Runtime) { rt.copies = copies }
}

// WithMaxVersion caps the interface version the runtime supports.
func WithMaxVersion(v jvmbridge.Version) Option {
	return func(rt *Runtime) { rt.maxVersion = v }
}

// New builds a runtime with the bootstrap classes loaded. Classes can be
// added with Define before or after Create.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stderr:     os.Stderr,
		classes:    make(map[string]*Class),
		primitives: make(map[byte]*Class),
		props:      make(map[string]string),
		threads:    make(map[*Thread]struct{}),
		locals:     table.New[*local](),
		globals:    table.New[*Object](),
		maxVersion: jvmbridge.Version1_6,
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.globals.Subscribe(table.ObserverFunc[*Object](rt.onGlobal))
	rt.bootstrap()
	return rt
}

// Create is a CreateFunc for a fresh runtime with default options.
func Create(args *jvmbridge.InitArgs) (jvmbridge.JavaVM, jvmbridge.Env, jvmbridge.Status) {
	return New().Create(args)
}

// Create starts the VM and returns the env of the calling thread. It
// implements jvmbridge.CreateFunc.
func (rt *Runtime) Create(args *jvmbridge.InitArgs) (jvmbridge.JavaVM, jvmbridge.Env, jvmbridge.Status) {
	if args == nil {
		return nil, nil, jvmbridge.StatusInvalid
	}
	if !supportedVersion(args.Version) || args.Version > rt.maxVersion {
		Logger().Warn("unsupported interface version", zap.Stringer("version", args.Version))
		return nil, nil, jvmbridge.StatusVersion
	}
	for _, opt := range args.Options {
		if !rt.applyOption(opt.OptionString) && !args.IgnoreUnrecognized {
			Logger().Warn("unrecognized option", zap.String("option", opt.OptionString))
			return nil, nil, jvmbridge.StatusInvalid
		}
	}
	if !rt.started.CompareAndSwap(false, true) {
		return nil, nil, jvmbridge.StatusExists
	}
	return rt, rt.newThread(args.Version), jvmbridge.StatusOK
}

func supportedVersion(v jvmbridge.Version) bool {
	switch v {
	case jvmbridge.Version1_1, jvmbridge.Version1_2, jvmbridge.Version1_4, jvmbridge.Version1_6:
		return true
	}
	return false
}

// applyOption reports whether opt was recognized.
func (rt *Runtime) applyOption(opt string) bool {
	switch {
	case opt == "-verbose:jni":
		rt.verbose.Store(true)
	case opt == "-Xcheck:jni":
		rt.checkJNI.Store(true)
	case strings.HasPrefix(opt, "-D"):
		key, val, _ := strings.Cut(opt[2:], "=")
		if key == "" {
			return false
		}
		rt.mu.Lock()
		rt.props[key] = val
		rt.mu.Unlock()
	default:
		return false
	}
	return true
}

// Property returns a system property set with a -D option.
func (rt *Runtime) Property(key string) (string, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	v, ok := rt.props[key]
	return v, ok
}

func (rt *Runtime) newThread(version jvmbridge.Version) *Thread {
	t := &Thread{rt: rt, version: version, frames: []frame{{}}}
	rt.threadsMu.Lock()
	rt.threads[t] = struct{}{}
	rt.threadsMu.Unlock()
	return t
}

// AttachCurrentThread returns a new env. The runtime does not track OS
// threads; the caller keeps one env per thread.
func (rt *Runtime) AttachCurrentThread(version jvmbridge.Version) (jvmbridge.Env, jvmbridge.Status) {
	if rt.destroyed.Load() {
		return nil, jvmbridge.StatusErr
	}
	if !supportedVersion(version) || version > rt.maxVersion {
		return nil, jvmbridge.StatusVersion
	}
	t := rt.newThread(version)
	if rt.verbose.Load() {
		Logger().Info("thread attached", zap.Int("threads", rt.Threads()))
	}
	return t, jvmbridge.StatusOK
}

// DetachCurrentThread frees every local reference of env.
func (rt *Runtime) DetachCurrentThread(env jvmbridge.Env) jvmbridge.Status {
	t, ok := env.(*Thread)
	if !ok || t.rt != rt {
		return jvmbridge.StatusDetached
	}
	rt.threadsMu.Lock()
	_, attached := rt.threads[t]
	delete(rt.threads, t)
	rt.threadsMu.Unlock()
	if !attached {
		return jvmbridge.StatusDetached
	}
	for len(t.frames) > 0 {
		t.popFrame()
	}
	t.pending = nil
	return jvmbridge.StatusOK
}

// DestroyJavaVM shuts the runtime down. Envs must not be used afterwards.
func (rt *Runtime) DestroyJavaVM() jvmbridge.Status {
	if !rt.destroyed.CompareAndSwap(false, true) {
		return jvmbridge.StatusErr
	}
	rt.wasmMu.Lock()
	if rt.wasm != nil {
		if err := rt.wasm.Close(context.Background()); err != nil {
			Logger().Warn("close wasm runtime", zap.Error(err))
		}
		rt.wasm = nil
	}
	rt.wasmMu.Unlock()

	rt.threadsMu.Lock()
	rt.threads = make(map[*Thread]struct{})
	rt.threadsMu.Unlock()
	rt.locals.Close()
	rt.globals.Close()
	return jvmbridge.StatusOK
}

// Threads returns the number of attached envs.
func (rt *Runtime) Threads() int {
	rt.threadsMu.Lock()
	defer rt.threadsMu.Unlock()
	return len(rt.threads)
}

// Locals returns the number of live local references across all threads.
func (rt *Runtime) Locals() int { return rt.locals.Len() }

// Globals returns the number of live global references.
func (rt *Runtime) Globals() int { return rt.globals.Len() }

func (rt *Runtime) onGlobal(e table.Event[*Object]) {
	if !rt.verbose.Load() {
		return
	}
	Logger().Info("global reference "+e.Type.String(),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.String("class", e.Value.Class.Name))
}

// Class returns a loaded class by internal name.
func (rt *Runtime) Class(name string) (*Class, bool) {
	c := rt.findClass(name)
	return c, c != nil
}

func (rt *Runtime) class(name string) *Class {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.classes[name]
}

// findClass returns a loaded class, creating array classes on demand.
func (rt *Runtime) findClass(name string) *Class {
	if c := rt.class(name); c != nil {
		return c
	}
	if !strings.HasPrefix(name, "[") || len(name) < 2 {
		return nil
	}
	elem := rt.classForDesc(name[1:])
	if elem == nil || elem.Name == "void" {
		return nil
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c := rt.classes[name]; c != nil {
		return c
	}
	c := &Class{rt: rt, Name: name, Super: rt.classes[objectClass], Elem: elem}
	rt.registerLocked(c)
	return c
}

// classForDesc resolves a field descriptor to its class.
func (rt *Runtime) classForDesc(desc string) *Class {
	if len(desc) == 1 {
		rt.mu.RLock()
		defer rt.mu.RUnlock()
		return rt.primitives[desc[0]]
	}
	return rt.findClass(className(desc))
}

// registerLocked assigns ids and a mirror to c. rt.mu must be held.
func (rt *Runtime) registerLocked(c *Class) {
	c.mirror = &Object{Class: rt.classes[classClass], Native: c}
	for _, m := range c.Methods {
		rt.methods = append(rt.methods, m)
		m.id = jvmbridge.MethodID(len(rt.methods))
	}
	for _, f := range c.Fields {
		rt.fields = append(rt.fields, f)
		f.id = jvmbridge.FieldID(len(rt.fields))
	}
	if !c.primitive {
		rt.classes[c.Name] = c
	}
}

func (rt *Runtime) method(id jvmbridge.MethodID) *Method {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if id == 0 || int(id) > len(rt.methods) {
		return nil
	}
	return rt.methods[id-1]
}

func (rt *Runtime) field(id jvmbridge.FieldID) *Field {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if id == 0 || int(id) > len(rt.fields) {
		return nil
	}
	return rt.fields[id-1]
}

// Define loads a class implemented in Go.
func (rt *Runtime) Define(def ClassDef) (*Class, error) {
	if def.Name == "" || strings.ContainsAny(def.Name, ".[;") {
		return nil, errors.InvalidInput(errors.PhaseDefine, "invalid class name "+def.Name)
	}
	c := &Class{rt: rt, Name: def.Name, iface: def.Interface}

	superName := def.Super
	if superName == "" && !def.Interface && def.Name != objectClass {
		superName = objectClass
	}
	if superName != "" {
		if c.Super = rt.findClass(superName); c.Super == nil {
			return nil, errors.NotFound(errors.PhaseDefine, "superclass", superName)
		}
		if c.Super.iface {
			return nil, errors.InvalidInput(errors.PhaseDefine, superName+" is an interface")
		}
	}
	for _, name := range def.Interfaces {
		i := rt.findClass(name)
		if i == nil {
			return nil, errors.NotFound(errors.PhaseDefine, "interface", name)
		}
		if !i.iface {
			return nil, errors.InvalidInput(errors.PhaseDefine, name+" is not an interface")
		}
		c.Interfaces = append(c.Interfaces, i)
	}

	for _, md := range def.Methods {
		m, err := newMethod(c, md, def.Interface)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, def.Name+"."+md.Name)
		}
		c.Methods = append(c.Methods, m)
	}
	for _, fd := range def.Fields {
		if n, err := fieldDescLen(fd.Sig); err != nil || n != len(fd.Sig) {
			return nil, errors.InvalidInput(errors.PhaseDefine, "bad field descriptor "+fd.Sig)
		}
		c.Fields = append(c.Fields, &Field{Class: c, Name: fd.Name, Sig: fd.Sig, Static: fd.Static, value: fd.Value})
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.classes[def.Name]; exists {
		return nil, errors.New(errors.PhaseDefine, errors.KindInvalidInput).
			ForeignType(def.Name).
			Detail("class already defined").
			Build()
	}
	rt.registerLocked(c)
	return c, nil
}

func newMethod(c *Class, md MethodDef, iface bool) (*Method, error) {
	params, ret, err := parseMethodSig(md.Sig)
	if err != nil {
		return nil, err
	}
	m := &Method{
		Class:    c,
		Name:     md.Name,
		Sig:      md.Sig,
		Impl:     md.Impl,
		Static:   md.Static,
		Native:   md.Native,
		Abstract: md.Abstract || (iface && md.Impl == nil && !md.Static && !md.Native),
		params:   params,
		ret:      ret,
	}
	if md.Name == ctorName && (ret != "V" || md.Static) {
		return nil, errors.InvalidInput(errors.PhaseDefine, "constructor must be an instance method returning void")
	}
	if m.Impl == nil && !m.Abstract && !m.Native {
		return nil, errors.InvalidInput(errors.PhaseDefine, "method has no body")
	}
	return m, nil
}

// MustDefine is Define that panics on error, for bootstrap and tests.
func (rt *Runtime) MustDefine(def ClassDef) *Class {
	c, err := rt.Define(def)
	if err != nil {
		panic(err)
	}
	return c
}
