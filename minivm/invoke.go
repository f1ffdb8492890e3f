package minivm

import (
	"fmt"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

// Object methods a proxy forwards to its handler besides the interface
// methods.
var proxied = map[string]bool{
	"equals(Ljava/lang/Object;)Z":  true,
	"hashCode()I":                  true,
	"toString()Ljava/lang/String;": true,
}

// Invoke makes a virtual call by name and descriptor on this, for Go method
// bodies.
func (t *Thread) Invoke(this *Object, name, sig string, args ...Slot) (Slot, error) {
	if this == nil {
		return Slot{}, t.Raise(nullPointerException, "cannot invoke "+name+" on null")
	}
	m := this.Class.resolve(name, sig, false)
	if m == nil {
		return Slot{}, t.Raise(noSuchMethodError, name+sig)
	}
	return t.invokeVirtual(m, this, args)
}

// InvokeStatic calls a static method by class, name and descriptor.
func (t *Thread) InvokeStatic(className, name, sig string, args ...Slot) (Slot, error) {
	c := t.rt.findClass(className)
	if c == nil {
		return Slot{}, t.Raise(noClassDefFoundError, className)
	}
	m := c.resolve(name, sig, true)
	if m == nil {
		return Slot{}, t.Raise(noSuchMethodError, name+sig)
	}
	return t.invoke(m, nil, args)
}

// invokeVirtual dispatches m on the runtime class of this.
func (t *Thread) invokeVirtual(m *Method, this *Object, args []Slot) (Slot, error) {
	if this == nil {
		return Slot{}, t.Raise(nullPointerException, "cannot invoke "+m.Name)
	}
	if m.Static {
		return Slot{}, t.Raise(incompatibleClassChangeError, m.String()+" is static")
	}
	if m.Name == ctorName {
		return t.invoke(m, this, args)
	}
	if this.Class.proxy && (m.Class.iface || proxied[m.Name+m.Sig]) {
		return t.invokeProxy(this, m, args)
	}
	impl := this.Class.implementation(m)
	if impl == nil {
		return Slot{}, t.Raise(abstractMethodError, m.String())
	}
	return t.invoke(impl, this, args)
}

// invoke runs the body of m. Panics in Go bodies become
// RuntimeExceptions.
func (t *Thread) invoke(m *Method, this *Object, args []Slot) (res Slot, err error) {
	if len(args) != len(m.params) {
		return Slot{}, t.Raisef(illegalArgumentException, "%s takes %d arguments, got %d", m, len(m.params), len(args))
	}
	if m.Native {
		return t.invokeNative(m, this, args)
	}
	if m.Impl == nil {
		return Slot{}, t.Raise(abstractMethodError, m.String())
	}
	defer func() {
		if r := recover(); r != nil {
			res = Slot{}
			err = t.Raise(runtimeException, fmt.Sprint(r))
		}
	}()
	return m.Impl(t, this, args)
}

// invokeNative calls a registered NativeFunc inside its own local frame.
func (t *Thread) invokeNative(m *Method, this *Object, args []Slot) (Slot, error) {
	fn := m.nativeFunc()
	if fn == nil {
		return Slot{}, t.Raise(unsatisfiedLinkError, m.String())
	}

	t.pushFrame()
	recv := this
	if m.Static {
		recv = m.Class.mirror
	}
	thisRef := t.newLocal(recv)
	jargs := make([]jvmbridge.JValue, len(args))
	for i, p := range m.params {
		jargs[i] = t.toJValue(descKind(p), args[i])
	}

	out := fn(t, thisRef, jargs)

	var res Slot
	if k := m.ReturnKind(); k == jvmbridge.KindObject {
		res.Obj = t.resolve(out.Ref())
	} else if k != jvmbridge.KindVoid {
		res.Prim = out
	}
	t.popFrame()

	if err := t.takePending(); err != nil {
		return Slot{}, err
	}
	return res, nil
}

// invokeProxy forwards a call on a proxy instance to its handler's invoke
// method and unboxes the result to m's return type.
func (t *Thread) invokeProxy(proxy *Object, m *Method, args []Slot) (Slot, error) {
	handler, _ := proxy.Native.(*Object)
	if handler == nil {
		return Slot{}, t.Raise(illegalStateException, "proxy without handler")
	}

	var packed *Object
	if len(m.params) > 0 {
		elems := make([]*Object, len(args))
		for i, p := range m.params {
			if k := descKind(p); k != jvmbridge.KindObject {
				elems[i] = t.rt.Box(k, args[i].Prim)
			} else {
				elems[i] = args[i].Obj
			}
		}
		packed = t.rt.newObjectArray(t.rt.findClass(objectClass), elems)
	}

	res, err := t.Invoke(handler, "invoke", invokeSig, Obj(proxy), Obj(t.rt.methodMirror(m)), Obj(packed))
	if err != nil {
		return Slot{}, err
	}
	return t.unboxResult(m, res.Obj)
}

func (t *Thread) unboxResult(m *Method, o *Object) (Slot, error) {
	k := m.ReturnKind()
	switch {
	case k == jvmbridge.KindVoid:
		return Slot{}, nil
	case k == jvmbridge.KindObject:
		if o == nil {
			return Slot{}, nil
		}
		if want := t.rt.classForDesc(m.ret); want != nil && !want.AssignableFrom(o.Class) {
			return Slot{}, t.Raisef(classCastException, "%s cannot be cast to %s", o.Class.DottedName(), want.DottedName())
		}
		return Obj(o), nil
	case o == nil:
		return Slot{}, t.Raisef(nullPointerException, "null returned for %s result of %s", k, m.Name)
	}
	v, ok := t.rt.Unbox(o, k)
	if !ok {
		return Slot{}, t.Raisef(classCastException, "%s cannot be cast to %s", o.Class.DottedName(), boxClasses[k])
	}
	return Prim(v), nil
}

// argSlots converts raw call arguments to slots using m's parameter types.
func (t *Thread) argSlots(m *Method, args []jvmbridge.JValue) ([]Slot, error) {
	if len(args) < len(m.params) {
		return nil, t.Raisef(illegalArgumentException, "%s takes %d arguments, got %d", m, len(m.params), len(args))
	}
	slots := make([]Slot, len(m.params))
	for i, p := range m.params {
		slots[i] = t.fromJValue(descKind(p), args[i])
	}
	return slots, nil
}

// call is the common body of the Call<Type>MethodA primitives.
func (t *Thread) call(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue, ret jvmbridge.Kind) jvmbridge.JValue {
	t.checkPending("Call" + ret.String() + "Method")
	m := t.rt.method(id)
	if m == nil {
		t.raise(t.Raise(noSuchMethodError, "invalid method id"))
		return 0
	}
	t.checkReturn(m, ret)
	slots, err := t.argSlots(m, args)
	if err != nil {
		t.raise(err)
		return 0
	}
	res, err := t.invokeVirtual(m, t.resolve(obj), slots)
	if err != nil {
		t.raise(err)
		return 0
	}
	return t.toJValue(m.ReturnKind(), res)
}

// callStatic is the common body of the CallStatic<Type>MethodA primitives.
func (t *Thread) callStatic(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue, ret jvmbridge.Kind) jvmbridge.JValue {
	t.checkPending("CallStatic" + ret.String() + "Method")
	m := t.rt.method(id)
	if m == nil || !m.Static {
		t.raise(t.Raise(noSuchMethodError, "invalid static method id"))
		return 0
	}
	if c := t.classOf(cls); c == nil || !m.Class.AssignableFrom(c) {
		t.raise(t.Raise(incompatibleClassChangeError, m.String()+" called through an unrelated class"))
		return 0
	}
	t.checkReturn(m, ret)
	slots, err := t.argSlots(m, args)
	if err != nil {
		t.raise(err)
		return 0
	}
	res, err := t.invoke(m, nil, slots)
	if err != nil {
		t.raise(err)
		return 0
	}
	return t.toJValue(m.ReturnKind(), res)
}

func (t *Thread) checkReturn(m *Method, ret jvmbridge.Kind) {
	if t.rt.checkJNI.Load() && m.ReturnKind() != ret {
		Logger().Sugar().Warnf("%s returns %s, called as %s", m, m.ReturnKind(), ret)
	}
}
