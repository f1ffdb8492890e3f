// Package proxy lets Go code implement foreign interfaces.
//
// Create asks the runtime for a java.lang.reflect.Proxy instance whose
// invocation handler is a jvmbridge/NativeInvocationHandler object. That
// class carries a long binding field and a native invoke method; the native
// method is bound to this package once per VM. Every call on the proxy
// lands in the Go Handler registered for the binding, synchronously, on the
// calling thread.
//
// The runtime must provide jvmbridge/NativeInvocationHandler with a (J)V
// constructor, a "binding" long field and a native
// invoke(Object, Method, Object[]) method.
package proxy

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/class"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/table"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

const (
	HandlerClass = "jvmbridge/NativeInvocationHandler"
	invokeSig    = "(Ljava/lang/Object;Ljava/lang/reflect/Method;[Ljava/lang/Object;)Ljava/lang/Object;"
	newProxySig  = "(Ljava/lang/ClassLoader;[Ljava/lang/Class;Ljava/lang/reflect/InvocationHandler;)Ljava/lang/Object;"
)

// Handler implements the methods of a proxied interface. args is the packed
// Object[] of the call (null when the method takes no arguments); primitive
// arguments arrive boxed. A primitive result is boxed before it is handed
// to the runtime.
//
// A *fault.Fault error is re-raised in the runtime as is. Any other error,
// and any panic, is raised as a java.lang.RuntimeException carrying the
// error text. The returned error is consumed by the dispatcher.
type Handler func(m *class.Method, args value.Value) (value.Value, error)

type binding struct {
	vm      *vm.VM
	gen     uint32
	handler Handler
	target  *ref.Ref // handler object, global
	proxy   *ref.Ref // proxy instance, global
	iface   string
}

func (b *binding) Drop() {
	b.proxy.Release()
	b.target.Release()
}

// bindings holds the Go side of every handler object, across all VMs.
// Slots are reused, so each binding also carries a generation that is
// never reused; both make up the id stored in the handler object.
var (
	bindings    = table.New[*binding]()
	generations atomic.Uint32
)

// bindingID packs a table handle and a generation into a handler's binding
// field.
func bindingID(h table.Handle, gen uint32) int64 {
	return int64(gen)<<32 | int64(h)
}

// lookup resolves a binding id. A handle whose slot now holds a newer
// binding does not resolve.
func lookup(id int64) (*binding, bool) {
	h, gen := table.Handle(uint32(id)), uint32(uint64(id)>>32)
	b, ok := bindings.Get(h)
	if !ok || b.gen != gen {
		return nil, false
	}
	return b, true
}

type vmState struct {
	cls  *ref.Ref // NativeInvocationHandler, global
	ctor jvmbridge.MethodID
}

var (
	statesMu sync.Mutex
	states   = map[*vm.VM]*vmState{}
)

// stateFor binds the native invoke method for v on first use.
func stateFor(v *vm.VM) (*vmState, error) {
	statesMu.Lock()
	defer statesMu.Unlock()

	if st, ok := states[v]; ok {
		return st, nil
	}

	local, err := jni.FindClass(v, HandlerClass)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProxy, errors.KindNotFound, err, "proxy handler class "+HandlerClass)
	}
	defer local.Release()

	natives := []jvmbridge.NativeMethod{{Name: "invoke", Signature: invokeSig, Fn: dispatch}}
	if err := jni.RegisterNatives(v, local, natives); err != nil {
		return nil, err
	}
	ctor, err := jni.GetMethodID(v, local, "<init>", "(J)V")
	if err != nil {
		return nil, err
	}
	cls, err := local.Promote()
	if err != nil {
		return nil, err
	}

	st := &vmState{cls: cls, ctor: ctor}
	states[v] = st
	v.OnDestroy(func() { teardown(v) })
	return st, nil
}

// teardown drops every binding of v.
func teardown(v *vm.VM) {
	statesMu.Lock()
	st := states[v]
	delete(states, v)
	statesMu.Unlock()

	var dropped int
	bindings.Each(func(h table.Handle, b *binding) bool {
		if _, ok := bindings.RemoveIf(h, func(cur *binding) bool { return cur == b && cur.vm == v }); ok {
			dropped++
		}
		return true
	})
	if st != nil {
		st.cls.Release()
	}
	if dropped > 0 {
		Logger().Debug("proxy bindings released on teardown", zap.Int("count", dropped))
	}
}

// Proxy is a foreign object implementing an interface through a Go Handler.
type Proxy struct {
	vm    *vm.VM
	obj   *ref.Ref
	bind  *binding
	once  sync.Once
	slot  table.Handle
	id    int64
	iface string
}

// Create builds a proxy for the interface iface backed by h.
func Create(v *vm.VM, iface *class.Class, h Handler) (*Proxy, error) {
	if h == nil {
		return nil, errors.InvalidInput(errors.PhaseProxy, "nil handler")
	}
	isIface, err := iface.IsInterface()
	if err != nil {
		return nil, err
	}
	name := iface.String()
	if !isIface {
		return nil, errors.New(errors.PhaseProxy, errors.KindInvalidInput).
			ForeignType(name).
			Detail("not an interface").
			Build()
	}

	st, err := stateFor(v)
	if err != nil {
		return nil, err
	}

	b := &binding{vm: v, gen: generations.Add(1), handler: h, iface: name}
	slot, err := bindings.Insert(b)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProxy, errors.KindUnsupported, err, "register binding")
	}
	id := bindingID(slot, b.gen)

	proxyObj, target, err := newInstance(v, st, iface, id)
	if err != nil {
		bindings.RemoveIf(slot, func(cur *binding) bool { return cur == b })
		return nil, err
	}
	b.target = target
	b.proxy = proxyObj.Clone()

	Logger().Debug("proxy created", zap.String("interface", name), zap.Int64("binding", id))
	return &Proxy{vm: v, obj: proxyObj, bind: b, slot: slot, id: id, iface: name}, nil
}

func newInstance(v *vm.VM, st *vmState, iface *class.Class, id int64) (proxyObj, target *ref.Ref, err error) {
	handlerObj, err := jni.NewObject(v, st.cls, st.ctor, []jvmbridge.JValue{jvmbridge.EncodeLong(id)})
	if err != nil {
		return nil, nil, err
	}
	defer handlerObj.Release()

	loader, err := class.Call(v, iface.Ref(), "getClassLoader")
	if err != nil {
		return nil, nil, err
	}
	defer loader.Release()

	classCls, err := class.ForName(v, "java/lang/Class")
	if err != nil {
		return nil, nil, err
	}
	defer classCls.Release()

	ifaces, err := class.NewArray(v, classCls, 1, iface.Ref())
	if err != nil {
		return nil, nil, err
	}
	defer ifaces.Release()

	proxyCls, err := class.ForName(v, "java/lang/reflect/Proxy")
	if err != nil {
		return nil, nil, err
	}
	defer proxyCls.Release()

	newProxy, err := jni.GetStaticMethodID(v, proxyCls.Ref(), "newProxyInstance", newProxySig)
	if err != nil {
		return nil, nil, err
	}
	raw, err := jni.CallStatic(v, proxyCls.Ref(), newProxy, jvmbridge.KindObject,
		[]jvmbridge.JValue{loader.JValue(), ifaces.JValue(), handlerObj.JValue()})
	if err != nil {
		return nil, nil, err
	}
	local := ref.Local(v, raw.Ref())
	defer local.Release()
	if local.IsNull() {
		return nil, nil, errors.PrimitiveCallFailed(errors.PhaseProxy, "Proxy.newProxyInstance")
	}

	if proxyObj, err = local.Promote(); err != nil {
		return nil, nil, err
	}
	if target, err = handlerObj.Promote(); err != nil {
		proxyObj.Release()
		return nil, nil, err
	}
	return proxyObj, target, nil
}

// Value returns the proxy object. The Value shares ownership with the
// Proxy and must be released separately.
func (p *Proxy) Value() value.Value {
	return value.Object(p.obj.Clone())
}

// Ref returns the global reference to the proxy object. The Proxy keeps
// ownership.
func (p *Proxy) Ref() *ref.Ref {
	return p.obj
}

// Interface returns the name of the implemented interface.
func (p *Proxy) Interface() string {
	return p.iface
}

// Release unbinds the handler and drops the Proxy's reference. Calls that
// still reach the proxy object raise IllegalStateException in the runtime.
func (p *Proxy) Release() {
	p.once.Do(func() {
		bindings.RemoveIf(p.slot, func(cur *binding) bool { return cur == p.bind })
		p.obj.Release()
	})
}

func (p *Proxy) String() string {
	return fmt.Sprintf("proxy(%s#%d)", p.iface, p.slot)
}
