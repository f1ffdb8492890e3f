package minivm

import (
	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

func (t *Thread) GetVersion() jvmbridge.Version { return t.rt.maxVersion }

func (t *Thread) GetJavaVM() (jvmbridge.JavaVM, jvmbridge.Status) {
	return t.rt, jvmbridge.StatusOK
}

func (t *Thread) DefineClass(name string, loader jvmbridge.Ref, data []byte) jvmbridge.Ref {
	t.checkPending("DefineClass")
	c, err := t.rt.defineBytes(t, name, data)
	if err != nil {
		t.raise(err)
		return 0
	}
	return t.newLocal(c.mirror)
}

func (t *Thread) FindClass(name string) jvmbridge.Ref {
	t.checkPending("FindClass")
	c := t.rt.findClass(name)
	if c == nil {
		t.raise(t.Raise(noClassDefFoundError, name))
		return 0
	}
	return t.newLocal(c.mirror)
}

func (t *Thread) GetObjectClass(obj jvmbridge.Ref) jvmbridge.Ref {
	o := t.resolve(obj)
	if o == nil {
		t.raise(t.Raise(nullPointerException, "GetObjectClass on null"))
		return 0
	}
	return t.newLocal(o.Class.mirror)
}

func (t *Thread) IsAssignableFrom(sub, sup jvmbridge.Ref) bool {
	a, b := t.classOf(sub), t.classOf(sup)
	if a == nil || b == nil {
		return false
	}
	return b.AssignableFrom(a)
}

func (t *Thread) IsSameObject(a, b jvmbridge.Ref) bool {
	return t.resolve(a) == t.resolve(b)
}

// IsInstanceOf reports true for a null obj, which can be cast to any
// class.
func (t *Thread) IsInstanceOf(obj, cls jvmbridge.Ref) bool {
	o := t.resolve(obj)
	if o == nil {
		return true
	}
	c := t.classOf(cls)
	return c != nil && c.AssignableFrom(o.Class)
}

func (t *Thread) NewLocalRef(r jvmbridge.Ref) jvmbridge.Ref {
	return t.newLocal(t.resolve(r))
}

func (t *Thread) DeleteLocalRef(r jvmbridge.Ref) error {
	if r == 0 {
		return nil
	}
	if isGlobal(r) {
		return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
			Value(uint64(r)).
			Detail("DeleteLocalRef on a global reference").
			Build()
	}
	return t.deleteLocal(r)
}

func (t *Thread) NewGlobalRef(r jvmbridge.Ref) jvmbridge.Ref {
	o := t.resolve(r)
	if o == nil {
		return 0
	}
	h, err := t.rt.globals.Insert(o)
	if err != nil {
		Logger().Error("global reference table", zap.Error(err))
		return 0
	}
	return jvmbridge.Ref(h)<<1 | 1
}

func (t *Thread) DeleteGlobalRef(r jvmbridge.Ref) error {
	if r == 0 {
		return nil
	}
	if !isGlobal(r) {
		return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
			Value(uint64(r)).
			Detail("DeleteGlobalRef on a local reference").
			Build()
	}
	if _, ok := t.rt.globals.Get(handleOf(r)); !ok {
		return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
			Value(uint64(r)).
			Detail("not a live global reference").
			Build()
	}
	t.rt.globals.Remove(handleOf(r))
	return nil
}

func (t *Thread) PushLocalFrame(capacity int32) jvmbridge.Status {
	if capacity < 0 {
		return jvmbridge.StatusErr
	}
	t.pushFrame()
	return jvmbridge.StatusOK
}

// PopLocalFrame frees every local of the top frame and returns result as a
// local of the frame below. The base frame is never popped.
func (t *Thread) PopLocalFrame(result jvmbridge.Ref) jvmbridge.Ref {
	o := t.resolve(result)
	if len(t.frames) <= 1 {
		Logger().Warn("PopLocalFrame without a matching PushLocalFrame")
		return t.newLocal(o)
	}
	t.popFrame()
	return t.newLocal(o)
}

func (t *Thread) Throw(r jvmbridge.Ref) jvmbridge.Status {
	o := t.resolve(r)
	if o == nil || !t.rt.isThrowable(o.Class) {
		return jvmbridge.StatusErr
	}
	t.throw(o)
	return jvmbridge.StatusOK
}

func (t *Thread) ThrowNew(cls jvmbridge.Ref, message string) jvmbridge.Status {
	c := t.classOf(cls)
	if c == nil || !t.rt.isThrowable(c) {
		return jvmbridge.StatusErr
	}
	o, err := t.rt.construct(t, c, message)
	if err != nil {
		t.raise(err)
		return jvmbridge.StatusErr
	}
	t.throw(o)
	return jvmbridge.StatusOK
}

func (t *Thread) ExceptionOccurred() jvmbridge.Ref { return t.newLocal(t.pending) }
func (t *Thread) ExceptionCheck() bool { return t.pending != nil }
func (t *Thread) ExceptionClear() { t.pending = nil }

// ExceptionDescribe prints the pending throwable and clears it.
func (t *Thread) ExceptionDescribe() {
	p := t.pending
	if p == nil {
		return
	}
	t.pending = nil
	t.rt.printStackTrace(p)
}

func (t *Thread) GetMethodID(cls jvmbridge.Ref, name, sig string) jvmbridge.MethodID {
	return t.methodID(cls, name, sig, false)
}

func (t *Thread) GetStaticMethodID(cls jvmbridge.Ref, name, sig string) jvmbridge.MethodID {
	return t.methodID(cls, name, sig, true)
}

func (t *Thread) methodID(cls jvmbridge.Ref, name, sig string, static bool) jvmbridge.MethodID {
	t.checkPending("GetMethodID")
	c := t.classOf(cls)
	if c == nil {
		t.raise(t.Raise(nullPointerException, "GetMethodID on a null class"))
		return 0
	}
	if _, _, err := parseMethodSig(sig); err != nil {
		t.raise(t.Raise(noSuchMethodError, err.Error()))
		return 0
	}
	m := c.resolve(name, sig, static)
	if m == nil {
		t.raise(t.Raise(noSuchMethodError, name))
		return 0
	}
	return m.id
}

func (t *Thread) FromReflectedMethod(method jvmbridge.Ref) jvmbridge.MethodID {
	o := t.resolve(method)
	if o == nil {
		return 0
	}
	if m, ok := o.Native.(*Method); ok {
		return m.id
	}
	return 0
}

func (t *Thread) ToReflectedMethod(cls jvmbridge.Ref, id jvmbridge.MethodID, isStatic bool) jvmbridge.Ref {
	m := t.rt.method(id)
	if m == nil || m.Static != isStatic {
		t.raise(t.Raise(noSuchMethodError, "invalid method id"))
		return 0
	}
	return t.newLocal(t.rt.methodMirror(m))
}

func (t *Thread) GetFieldID(cls jvmbridge.Ref, name, sig string) jvmbridge.FieldID {
	return t.fieldID(cls, name, sig, false)
}

func (t *Thread) GetStaticFieldID(cls jvmbridge.Ref, name, sig string) jvmbridge.FieldID {
	return t.fieldID(cls, name, sig, true)
}

func (t *Thread) fieldID(cls jvmbridge.Ref, name, sig string, static bool) jvmbridge.FieldID {
	t.checkPending("GetFieldID")
	c := t.classOf(cls)
	if c == nil {
		t.raise(t.Raise(nullPointerException, "GetFieldID on a null class"))
		return 0
	}
	f := c.fieldNamed(name, static)
	if f == nil || f.Sig != sig {
		t.raise(t.Raise(noSuchFieldError, name))
		return 0
	}
	return f.id
}

func (t *Thread) GetField(obj jvmbridge.Ref, id jvmbridge.FieldID) jvmbridge.JValue {
	o, f := t.resolve(obj), t.rt.field(id)
	if o == nil || f == nil || f.Static {
		t.raise(t.Raise(nullPointerException, "GetField"))
		return 0
	}
	return t.toJValue(f.kind(), o.field(f))
}

func (t *Thread) SetField(obj jvmbridge.Ref, id jvmbridge.FieldID, v jvmbridge.JValue) {
	o, f := t.resolve(obj), t.rt.field(id)
	if o == nil || f == nil || f.Static {
		t.raise(t.Raise(nullPointerException, "SetField"))
		return
	}
	o.setField(f, t.fromJValue(f.kind(), v))
}

func (t *Thread) GetStaticField(cls jvmbridge.Ref, id jvmbridge.FieldID) jvmbridge.JValue {
	f := t.rt.field(id)
	if f == nil || !f.Static {
		t.raise(t.Raise(noSuchFieldError, "invalid static field id"))
		return 0
	}
	return t.toJValue(f.kind(), f.get())
}

func (t *Thread) SetStaticField(cls jvmbridge.Ref, id jvmbridge.FieldID, v jvmbridge.JValue) {
	f := t.rt.field(id)
	if f == nil || !f.Static {
		t.raise(t.Raise(noSuchFieldError, "invalid static field id"))
		return
	}
	f.set(t.fromJValue(f.kind(), v))
}

func (t *Thread) CallBooleanMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) bool {
	return t.call(obj, id, args, jvmbridge.KindBoolean).Bool()
}

func (t *Thread) CallByteMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int8 {
	return t.call(obj, id, args, jvmbridge.KindByte).Byte()
}

func (t *Thread) CallCharMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) uint16 {
	return t.call(obj, id, args, jvmbridge.KindChar).Char()
}

func (t *Thread) CallShortMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int16 {
	return t.call(obj, id, args, jvmbridge.KindShort).Short()
}

func (t *Thread) CallIntMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int32 {
	return t.call(obj, id, args, jvmbridge.KindInt).Int()
}

func (t *Thread) CallLongMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int64 {
	return t.call(obj, id, args, jvmbridge.KindLong).Long()
}

func (t *Thread) CallFloatMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) float32 {
	return t.call(obj, id, args, jvmbridge.KindFloat).Float()
}

func (t *Thread) CallDoubleMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) float64 {
	return t.call(obj, id, args, jvmbridge.KindDouble).Double()
}

func (t *Thread) CallObjectMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.Ref {
	return t.call(obj, id, args, jvmbridge.KindObject).Ref()
}

func (t *Thread) CallVoidMethodA(obj jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) {
	t.call(obj, id, args, jvmbridge.KindVoid)
}

func (t *Thread) CallStaticBooleanMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) bool {
	return t.callStatic(cls, id, args, jvmbridge.KindBoolean).Bool()
}

func (t *Thread) CallStaticByteMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int8 {
	return t.callStatic(cls, id, args, jvmbridge.KindByte).Byte()
}

func (t *Thread) CallStaticCharMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) uint16 {
	return t.callStatic(cls, id, args, jvmbridge.KindChar).Char()
}

func (t *Thread) CallStaticShortMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int16 {
	return t.callStatic(cls, id, args, jvmbridge.KindShort).Short()
}

func (t *Thread) CallStaticIntMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int32 {
	return t.callStatic(cls, id, args, jvmbridge.KindInt).Int()
}

func (t *Thread) CallStaticLongMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) int64 {
	return t.callStatic(cls, id, args, jvmbridge.KindLong).Long()
}

func (t *Thread) CallStaticFloatMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) float32 {
	return t.callStatic(cls, id, args, jvmbridge.KindFloat).Float()
}

func (t *Thread) CallStaticDoubleMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) float64 {
	return t.callStatic(cls, id, args, jvmbridge.KindDouble).Double()
}

func (t *Thread) CallStaticObjectMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.Ref {
	return t.callStatic(cls, id, args, jvmbridge.KindObject).Ref()
}

func (t *Thread) CallStaticVoidMethodA(cls jvmbridge.Ref, id jvmbridge.MethodID, args []jvmbridge.JValue) {
	t.callStatic(cls, id, args, jvmbridge.KindVoid)
}

func (t *Thread) AllocObject(cls jvmbridge.Ref) jvmbridge.Ref {
	c := t.classOf(cls)
	if c == nil {
		t.raise(t.Raise(nullPointerException, "AllocObject on a null class"))
		return 0
	}
	if !instantiable(c) {
		t.raise(t.Raise(instantiationException, c.DottedName()))
		return 0
	}
	return t.newLocal(&Object{Class: c})
}

func (t *Thread) NewObjectA(cls jvmbridge.Ref, ctor jvmbridge.MethodID, args []jvmbridge.JValue) jvmbridge.Ref {
	t.checkPending("NewObject")
	c, m := t.classOf(cls), t.rt.method(ctor)
	if c == nil || m == nil || m.Name != ctorName || m.Class != c {
		t.raise(t.Raise(noSuchMethodError, "invalid constructor id"))
		return 0
	}
	if !instantiable(c) {
		t.raise(t.Raise(instantiationException, c.DottedName()))
		return 0
	}
	slots, err := t.argSlots(m, args)
	if err != nil {
		t.raise(err)
		return 0
	}
	o := &Object{Class: c}
	if _, err := t.invoke(m, o, slots); err != nil {
		t.raise(err)
		return 0
	}
	return t.newLocal(o)
}

func instantiable(c *Class) bool {
	return !c.iface && !c.primitive && !c.IsArray() && !c.proxy
}

func (t *Thread) NewStringUTF(s string) jvmbridge.Ref {
	return t.newLocal(t.rt.NewString(s))
}

func (t *Thread) GetStringUTFChars(str jvmbridge.Ref) (string, bool) {
	o := t.resolve(str)
	if o == nil || o.Class.Name != stringClass {
		return "", false
	}
	s, _ := o.Native.(string)
	return s, true
}

func (t *Thread) GetArrayLength(arr jvmbridge.Ref) int32 {
	o := t.resolve(arr)
	if o == nil {
		t.raise(t.Raise(nullPointerException, "GetArrayLength on null"))
		return 0
	}
	if elems, ok := o.primitives(); ok {
		return int32(len(elems))
	}
	if elems, ok := o.objects(); ok {
		return int32(len(elems))
	}
	t.raise(t.Raise(illegalArgumentException, "not an array: "+o.Class.DottedName()))
	return 0
}

func (t *Thread) NewObjectArray(length int32, elem jvmbridge.Ref, initial jvmbridge.Ref) jvmbridge.Ref {
	c := t.classOf(elem)
	if c == nil || c.primitive {
		t.raise(t.Raise(illegalArgumentException, "invalid element class"))
		return 0
	}
	if length < 0 {
		t.raise(t.Raisef(negativeArraySizeException, "%d", length))
		return 0
	}
	init := t.resolve(initial)
	if init != nil && !c.AssignableFrom(init.Class) {
		t.raise(t.Raise(arrayStoreException, init.Class.DottedName()))
		return 0
	}
	elems := make([]*Object, length)
	for i := range elems {
		elems[i] = init
	}
	return t.newLocal(t.rt.newObjectArray(c, elems))
}

func (t *Thread) GetObjectArrayElement(arr jvmbridge.Ref, index int32) jvmbridge.Ref {
	o := t.resolve(arr)
	elems, ok := t.objectElems(o)
	if !ok {
		return 0
	}
	if index < 0 || int(index) >= len(elems) {
		t.raise(t.Raisef(arrayIndexOutOfBoundsException, "Index %d out of bounds for length %d", index, len(elems)))
		return 0
	}
	o.mu.Lock()
	e := elems[index]
	o.mu.Unlock()
	return t.newLocal(e)
}

func (t *Thread) SetObjectArrayElement(arr jvmbridge.Ref, index int32, v jvmbridge.Ref) {
	o := t.resolve(arr)
	elems, ok := t.objectElems(o)
	if !ok {
		return
	}
	if index < 0 || int(index) >= len(elems) {
		t.raise(t.Raisef(arrayIndexOutOfBoundsException, "Index %d out of bounds for length %d", index, len(elems)))
		return
	}
	val := t.resolve(v)
	if val != nil && !o.Class.Elem.AssignableFrom(val.Class) {
		t.raise(t.Raise(arrayStoreException, val.Class.DottedName()))
		return
	}
	o.mu.Lock()
	elems[index] = val
	o.mu.Unlock()
}

func (t *Thread) objectElems(o *Object) ([]*Object, bool) {
	if o == nil {
		t.raise(t.Raise(nullPointerException, "array is null"))
		return nil, false
	}
	elems, ok := o.objects()
	if !ok {
		t.raise(t.Raise(illegalArgumentException, "not an object array: "+o.Class.DottedName()))
	}
	return elems, ok
}

func (t *Thread) NewPrimitiveArray(kind jvmbridge.Kind, length int32) jvmbridge.Ref {
	if !kind.IsPrimitive() {
		t.raise(t.Raise(illegalArgumentException, "not a primitive kind: "+kind.String()))
		return 0
	}
	if length < 0 {
		t.raise(t.Raisef(negativeArraySizeException, "%d", length))
		return 0
	}
	c := t.rt.findClass("[" + string(kind.Descriptor()))
	return t.newLocal(&Object{Class: c, Native: make([]jvmbridge.JValue, length)})
}

// GetArrayElements returns the array storage itself unless the runtime was
// built WithArrayCopies.
func (t *Thread) GetArrayElements(arr jvmbridge.Ref) ([]jvmbridge.JValue, bool) {
	o := t.resolve(arr)
	if o == nil {
		t.raise(t.Raise(nullPointerException, "array is null"))
		return nil, false
	}
	elems, ok := o.primitives()
	if !ok {
		t.raise(t.Raise(illegalArgumentException, "not a primitive array: "+o.Class.DottedName()))
		return nil, false
	}
	if !t.rt.copies {
		return elems, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	buf := make([]jvmbridge.JValue, len(elems))
	copy(buf, elems)
	return buf, true
}

func (t *Thread) ReleaseArrayElements(arr jvmbridge.Ref, elems []jvmbridge.JValue, mode jvmbridge.ReleaseMode) {
	o := t.resolve(arr)
	if o == nil {
		return
	}
	storage, ok := o.primitives()
	if !ok || !t.rt.copies || mode == jvmbridge.ReleaseAbort {
		return
	}
	o.mu.Lock()
	copy(storage, elems)
	o.mu.Unlock()
}

func (t *Thread) RegisterNatives(cls jvmbridge.Ref, methods []jvmbridge.NativeMethod) jvmbridge.Status {
	c := t.classOf(cls)
	if c == nil {
		return jvmbridge.StatusErr
	}
	for _, nm := range methods {
		m := c.declared(nm.Name, nm.Signature)
		if m == nil || !m.Native || nm.Fn == nil {
			t.raise(t.Raise(noSuchMethodError, nm.Name+nm.Signature))
			return jvmbridge.StatusErr
		}
		m.bind(nm.Fn)
		if t.rt.verbose.Load() {
			Logger().Info("registering native method", zap.String("method", m.String()))
		}
	}
	return jvmbridge.StatusOK
}
