package minivm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

func mustClass(t *testing.T, th *Thread, name string) jvmbridge.Ref {
	t.Helper()
	cls := th.FindClass(name)
	if cls == 0 {
		th.ExceptionClear()
		t.Fatalf("FindClass(%q) failed", name)
	}
	return cls
}

func mustMethod(t *testing.T, th *Thread, cls jvmbridge.Ref, name, sig string, static bool) jvmbridge.MethodID {
	t.Helper()
	var id jvmbridge.MethodID
	if static {
		id = th.GetStaticMethodID(cls, name, sig)
	} else {
		id = th.GetMethodID(cls, name, sig)
	}
	if id == 0 {
		th.ExceptionClear()
		t.Fatalf("method %s%s not found", name, sig)
	}
	return id
}

// pendingClass returns the class name of the pending throwable and clears
// it.
func pendingClass(th *Thread) string {
	p := th.Pending()
	if p == nil {
		return ""
	}
	th.ExceptionClear()
	return p.Class.Name
}

func TestStringBuilder(t *testing.T) {
	_, th := newEnv(t)

	cls := mustClass(t, th, "java/lang/StringBuilder")
	ctor := mustMethod(t, th, cls, ctorName, "()V", false)
	sb := th.NewObjectA(cls, ctor, nil)
	if sb == 0 {
		t.Fatalf("NewObjectA: pending %s", pendingClass(th))
	}

	appendStr := mustMethod(t, th, cls, "append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;", false)
	appendInt := mustMethod(t, th, cls, "append", "(I)Ljava/lang/StringBuilder;", false)
	appendDouble := mustMethod(t, th, cls, "append", "(D)Ljava/lang/StringBuilder;", false)
	appendObj := mustMethod(t, th, cls, "append", "(Ljava/lang/Object;)Ljava/lang/StringBuilder;", false)

	th.CallObjectMethodA(sb, appendStr, []jvmbridge.JValue{jvmbridge.EncodeRef(th.NewStringUTF("x="))})
	th.CallObjectMethodA(sb, appendInt, []jvmbridge.JValue{jvmbridge.EncodeInt(-42)})
	th.CallObjectMethodA(sb, appendStr, []jvmbridge.JValue{jvmbridge.EncodeRef(th.NewStringUTF(" y="))})
	th.CallObjectMethodA(sb, appendDouble, []jvmbridge.JValue{jvmbridge.EncodeDouble(2.5)})
	th.CallObjectMethodA(sb, appendObj, []jvmbridge.JValue{jvmbridge.EncodeRef(0)})
	if th.ExceptionCheck() {
		t.Fatalf("append: pending %s", pendingClass(th))
	}

	toString := mustMethod(t, th, cls, "toString", "()Ljava/lang/String;", false)
	s, ok := th.GetStringUTFChars(th.CallObjectMethodA(sb, toString, nil))
	if !ok {
		t.Fatal("toString did not return a string")
	}
	if s != "x=-42 y=2.5null" {
		t.Errorf("toString = %q", s)
	}
}

func TestStringMethods(t *testing.T) {
	rt, th := newEnv(t)
	hello := rt.NewString("Hello")

	tests := []struct {
		name string
		sig  string
		args []Slot
		want Slot
	}{
		{"length", "()I", nil, Prim(jvmbridge.EncodeInt(5))},
		{"charAt", "(I)C", []Slot{Prim(jvmbridge.EncodeInt(1))}, Prim(jvmbridge.EncodeChar('e'))},
		{"isEmpty", "()Z", nil, Prim(jvmbridge.EncodeBool(false))},
		{"hashCode", "()I", nil, Prim(jvmbridge.EncodeInt(69609650))},
		{"startsWith", "(Ljava/lang/String;)Z", []Slot{Obj(rt.NewString("He"))}, Prim(jvmbridge.EncodeBool(true))},
		{"indexOf", "(Ljava/lang/String;)I", []Slot{Obj(rt.NewString("lo"))}, Prim(jvmbridge.EncodeInt(3))},
		{"compareTo", "(Ljava/lang/String;)I", []Slot{Obj(rt.NewString("Help"))}, Prim(jvmbridge.EncodeInt('l' - 'p'))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := th.Invoke(hello, tt.name, tt.sig, tt.args...)
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("%s = %#x, want %#x", tt.name, got.Prim, tt.want.Prim)
			}
		})
	}

	res, err := th.Invoke(hello, "toUpperCase", "()Ljava/lang/String;")
	if err != nil {
		t.Fatalf("toUpperCase: %v", err)
	}
	if res.Obj.String() != "HELLO" {
		t.Errorf("toUpperCase = %q", res.Obj.String())
	}

	_, err = th.Invoke(hello, "charAt", "(I)C", Prim(jvmbridge.EncodeInt(9)))
	thrown, ok := err.(*Thrown)
	if !ok || thrown.Obj.Class.Name != stringIndexOutOfBoundsException {
		t.Errorf("charAt(9) error = %v", err)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{1e7, "1.0E7"},
		{1.5e-4, "1.5E-4"},
		{123456.0, "123456.0"},
		{0, "0.0"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in, 64); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBoxes(t *testing.T) {
	rt, th := newEnv(t)

	res, err := th.InvokeStatic("java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;", Prim(jvmbridge.EncodeInt(7)))
	if err != nil {
		t.Fatalf("valueOf: %v", err)
	}
	if v, ok := rt.Unbox(res.Obj, jvmbridge.KindInt); !ok || v.Int() != 7 {
		t.Errorf("Unbox = %v, %v", v, ok)
	}
	long, err := th.Invoke(res.Obj, "longValue", "()J")
	if err != nil || long.Prim.Long() != 7 {
		t.Errorf("longValue = %v, %v", long.Prim, err)
	}
	str, err := th.Invoke(rt.Box(jvmbridge.KindDouble, jvmbridge.EncodeDouble(3)), "toString", "()Ljava/lang/String;")
	if err != nil || str.Obj.String() != "3.0" {
		t.Errorf("Double.toString = %v, %v", str.Obj, err)
	}

	_, err = th.InvokeStatic("java/lang/Integer", "parseInt", "(Ljava/lang/String;)I", Obj(rt.NewString("x1")))
	thrown, ok := err.(*Thrown)
	if !ok || thrown.Obj.Class.Name != numberFormatException {
		t.Fatalf("parseInt error = %v", err)
	}
	if thrown.Error() != `java.lang.NumberFormatException: For input string: "x1"` {
		t.Errorf("message = %q", thrown.Error())
	}

	cls := mustClass(t, th, "java/lang/Integer")
	fid := th.GetStaticFieldID(cls, "MAX_VALUE", "I")
	if got := th.GetStaticField(cls, fid).Int(); got != 1<<31-1 {
		t.Errorf("MAX_VALUE = %d", got)
	}
	typeID := th.GetStaticFieldID(cls, "TYPE", "Ljava/lang/Class;")
	if o := th.resolve(th.GetStaticField(cls, typeID).Ref()); o == nil || mirrorClass(o).Name != "int" {
		t.Errorf("Integer.TYPE = %v", o)
	}
}

func TestExceptions(t *testing.T) {
	_, th := newEnv(t)

	cls := mustClass(t, th, "java/lang/Integer")
	parse := mustMethod(t, th, cls, "parseInt", "(Ljava/lang/String;)I", true)
	th.CallStaticIntMethodA(cls, parse, []jvmbridge.JValue{jvmbridge.EncodeRef(th.NewStringUTF("nope"))})
	if !th.ExceptionCheck() {
		t.Fatal("expected a pending exception")
	}
	exc := th.ExceptionOccurred()
	th.ExceptionClear()
	if th.ExceptionCheck() {
		t.Fatal("ExceptionClear did not clear")
	}
	nfe := mustClass(t, th, "java/lang/NumberFormatException")
	iae := mustClass(t, th, "java/lang/IllegalArgumentException")
	if !th.IsInstanceOf(exc, nfe) || !th.IsInstanceOf(exc, iae) {
		t.Error("exception has the wrong class")
	}

	// Calling through an unrelated class is refused.
	str := mustClass(t, th, "java/lang/String")
	th.CallStaticIntMethodA(str, parse, []jvmbridge.JValue{jvmbridge.EncodeRef(th.NewStringUTF("1"))})
	if got := pendingClass(th); got != incompatibleClassChangeError {
		t.Errorf("pending = %q", got)
	}

	if th.GetMethodID(str, "nope", "()V") != 0 {
		t.Error("GetMethodID found a missing method")
	}
	if got := pendingClass(th); got != noSuchMethodError {
		t.Errorf("pending = %q", got)
	}
	if th.FindClass("pkg/Missing") != 0 {
		t.Error("FindClass found a missing class")
	}
	if got := pendingClass(th); got != noClassDefFoundError {
		t.Errorf("pending = %q", got)
	}

	if status := th.Throw(th.NewStringUTF("not a throwable")); status != jvmbridge.StatusErr {
		t.Errorf("Throw(string) = %v", status)
	}
	if status := th.Throw(exc); status != jvmbridge.StatusOK || !th.IsSameObject(th.ExceptionOccurred(), exc) {
		t.Error("Throw did not make the throwable pending")
	}
	th.ExceptionClear()
}

func TestGoPanicBecomesRuntimeException(t *testing.T) {
	rt, th := newEnv(t)
	rt.MustDefine(ClassDef{Name: "pkg/Boom", Methods: []MethodDef{
		Static("boom", "()V", func(*Thread, *Object, []Slot) (Slot, error) { panic("kaboom") }),
	}})
	cls := mustClass(t, th, "pkg/Boom")
	th.CallStaticVoidMethodA(cls, mustMethod(t, th, cls, "boom", "()V", true), nil)
	p := th.Pending()
	if p == nil || p.Class.Name != runtimeException {
		t.Fatalf("pending = %v", p)
	}
	if msg, _ := throwableMessage(p); msg != "kaboom" {
		t.Errorf("message = %q", msg)
	}
	th.ExceptionClear()
}

func TestLocalFrames(t *testing.T) {
	rt, th := newEnv(t)
	base := rt.Locals()

	if status := th.PushLocalFrame(8); status != jvmbridge.StatusOK {
		t.Fatalf("PushLocalFrame = %v", status)
	}
	th.NewStringUTF("a")
	th.NewStringUTF("b")
	keep := th.NewStringUTF("keep")
	if rt.Locals() != base+3 {
		t.Fatalf("Locals = %d, want %d", rt.Locals(), base+3)
	}
	kept := th.PopLocalFrame(keep)
	if rt.Locals() != base+1 {
		t.Errorf("Locals after pop = %d, want %d", rt.Locals(), base+1)
	}
	if s, ok := th.GetStringUTFChars(kept); !ok || s != "keep" {
		t.Errorf("kept ref = %q, %v", s, ok)
	}

	// The base frame is never popped.
	th.PopLocalFrame(0)
	if th.Frames() != 1 {
		t.Errorf("Frames = %d", th.Frames())
	}
}

func TestDeleteRefs(t *testing.T) {
	rt, th := newEnv(t)

	r := th.NewStringUTF("x")
	if err := th.DeleteLocalRef(r); err != nil {
		t.Fatalf("DeleteLocalRef: %v", err)
	}
	if err := th.DeleteLocalRef(r); err == nil {
		t.Error("second DeleteLocalRef succeeded")
	}

	g := th.NewGlobalRef(th.NewStringUTF("global"))
	if g == 0 || rt.Globals() != 1 {
		t.Fatalf("NewGlobalRef = %v, globals %d", g, rt.Globals())
	}
	other, _ := rt.AttachCurrentThread(jvmbridge.Version1_6)
	if s, ok := other.GetStringUTFChars(g); !ok || s != "global" {
		t.Errorf("global on another thread = %q, %v", s, ok)
	}
	if err := th.DeleteGlobalRef(g); err != nil {
		t.Fatalf("DeleteGlobalRef: %v", err)
	}
	if err := th.DeleteGlobalRef(g); err == nil {
		t.Error("second DeleteGlobalRef succeeded")
	}
	if err := th.DeleteGlobalRef(r); err == nil {
		t.Error("DeleteGlobalRef accepted a local ref")
	}
}

func TestArrays(t *testing.T) {
	for _, copies := range []bool{false, true} {
		_, th := newEnv(t, WithArrayCopies(copies))

		arr := th.NewPrimitiveArray(jvmbridge.KindInt, 3)
		if th.GetArrayLength(arr) != 3 {
			t.Fatalf("length = %d", th.GetArrayLength(arr))
		}
		elems, isCopy := th.GetArrayElements(arr)
		if isCopy != copies {
			t.Errorf("copies=%v: isCopy = %v", copies, isCopy)
		}
		elems[0] = jvmbridge.EncodeInt(10)
		th.ReleaseArrayElements(arr, elems, jvmbridge.ReleaseCommit)

		elems, _ = th.GetArrayElements(arr)
		elems[1] = jvmbridge.EncodeInt(20)
		th.ReleaseArrayElements(arr, elems, jvmbridge.ReleaseAbort)

		elems, _ = th.GetArrayElements(arr)
		got := []int32{elems[0].Int(), elems[1].Int(), elems[2].Int()}
		want := []int32{10, 0, 0}
		if !copies {
			// Without copies writes land in the array immediately.
			want[1] = 20
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("copies=%v: elements mismatch (-want +got):\n%s", copies, diff)
		}
	}
}

func TestObjectArrays(t *testing.T) {
	_, th := newEnv(t)
	str := mustClass(t, th, "java/lang/String")
	init := th.NewStringUTF("-")

	arr := th.NewObjectArray(2, str, init)
	if arr == 0 {
		t.Fatalf("NewObjectArray: pending %s", pendingClass(th))
	}
	th.SetObjectArrayElement(arr, 1, th.NewStringUTF("b"))
	if s, _ := th.GetStringUTFChars(th.GetObjectArrayElement(arr, 0)); s != "-" {
		t.Errorf("element 0 = %q", s)
	}
	if s, _ := th.GetStringUTFChars(th.GetObjectArrayElement(arr, 1)); s != "b" {
		t.Errorf("element 1 = %q", s)
	}

	th.GetObjectArrayElement(arr, 2)
	if got := pendingClass(th); got != arrayIndexOutOfBoundsException {
		t.Errorf("pending = %q", got)
	}
	th.SetObjectArrayElement(arr, 0, th.NewObjectA(mustClass(t, th, "java/lang/Object"),
		mustMethod(t, th, mustClass(t, th, "java/lang/Object"), ctorName, "()V", false), nil))
	if got := pendingClass(th); got != arrayStoreException {
		t.Errorf("pending = %q", got)
	}
	th.NewObjectArray(-1, str, 0)
	if got := pendingClass(th); got != negativeArraySizeException {
		t.Errorf("pending = %q", got)
	}

	arrCls := th.GetObjectClass(arr)
	objArr := mustClass(t, th, "[Ljava/lang/Object;")
	if !th.IsAssignableFrom(arrCls, objArr) {
		t.Error("String[] is not assignable to Object[]")
	}
}

func TestFields(t *testing.T) {
	rt, th := newEnv(t)
	rt.MustDefine(ClassDef{
		Name: "pkg/Point",
		Fields: []FieldDef{
			{Name: "x", Sig: "I"},
			{Name: "label", Sig: "Ljava/lang/String;"},
			{Name: "count", Sig: "J", Static: true, Value: Prim(jvmbridge.EncodeLong(3))},
		},
		Methods: []MethodDef{Constructor("()V", noop)},
	})
	cls := mustClass(t, th, "pkg/Point")
	obj := th.AllocObject(cls)

	x := th.GetFieldID(cls, "x", "I")
	th.SetField(obj, x, jvmbridge.EncodeInt(9))
	if got := th.GetField(obj, x).Int(); got != 9 {
		t.Errorf("x = %d", got)
	}
	label := th.GetFieldID(cls, "label", "Ljava/lang/String;")
	if th.GetField(obj, label).Ref() != 0 {
		t.Error("unset object field is not null")
	}

	count := th.GetStaticFieldID(cls, "count", "J")
	th.SetStaticField(cls, count, jvmbridge.EncodeLong(th.GetStaticField(cls, count).Long()+1))
	if got := th.GetStaticField(cls, count).Long(); got != 4 {
		t.Errorf("count = %d", got)
	}

	if th.GetFieldID(cls, "x", "J") != 0 {
		t.Error("GetFieldID matched the wrong descriptor")
	}
	if got := pendingClass(th); got != noSuchFieldError {
		t.Errorf("pending = %q", got)
	}
}

func TestRegisterNatives(t *testing.T) {
	rt, th := newEnv(t)
	rt.MustDefine(ClassDef{Name: "pkg/Native", Methods: []MethodDef{
		NativeMethod("twice", "(I)I", true),
		NativeMethod("greet", "(Ljava/lang/String;)Ljava/lang/String;", true),
	}})
	cls := mustClass(t, th, "pkg/Native")
	twice := mustMethod(t, th, cls, "twice", "(I)I", true)

	th.CallStaticIntMethodA(cls, twice, []jvmbridge.JValue{jvmbridge.EncodeInt(2)})
	if got := pendingClass(th); got != unsatisfiedLinkError {
		t.Fatalf("unbound native: pending = %q", got)
	}

	status := th.RegisterNatives(cls, []jvmbridge.NativeMethod{
		{Name: "twice", Signature: "(I)I", Fn: func(env jvmbridge.Env, this jvmbridge.Ref, args []jvmbridge.JValue) jvmbridge.JValue {
			return jvmbridge.EncodeInt(args[0].Int() * 2)
		}},
		{Name: "greet", Signature: "(Ljava/lang/String;)Ljava/lang/String;", Fn: func(env jvmbridge.Env, this jvmbridge.Ref, args []jvmbridge.JValue) jvmbridge.JValue {
			name, _ := env.GetStringUTFChars(args[0].Ref())
			return jvmbridge.EncodeRef(env.NewStringUTF("hi " + name))
		}},
	})
	if status != jvmbridge.StatusOK {
		t.Fatalf("RegisterNatives = %v", status)
	}
	if got := th.CallStaticIntMethodA(cls, twice, []jvmbridge.JValue{jvmbridge.EncodeInt(21)}); got != 42 {
		t.Errorf("twice = %d", got)
	}

	before := rt.Locals()
	greet := mustMethod(t, th, cls, "greet", "(Ljava/lang/String;)Ljava/lang/String;", true)
	arg := th.NewStringUTF("bob")
	res := th.CallStaticObjectMethodA(cls, greet, []jvmbridge.JValue{jvmbridge.EncodeRef(arg)})
	if s, _ := th.GetStringUTFChars(res); s != "hi bob" {
		t.Errorf("greet = %q", s)
	}
	// The native's own frame is gone; only arg and the result remain.
	if rt.Locals() != before+2 {
		t.Errorf("Locals = %d, want %d", rt.Locals(), before+2)
	}

	if th.RegisterNatives(cls, []jvmbridge.NativeMethod{{Name: "missing", Signature: "()V", Fn: func(jvmbridge.Env, jvmbridge.Ref, []jvmbridge.JValue) jvmbridge.JValue { return 0 }}}) == jvmbridge.StatusOK {
		t.Error("RegisterNatives bound a missing method")
	}
	th.ExceptionClear()
}

func TestAbstractAndInstantiation(t *testing.T) {
	_, th := newEnv(t)
	runnable := mustClass(t, th, "java/lang/Runnable")
	if th.AllocObject(runnable) != 0 {
		t.Error("AllocObject instantiated an interface")
	}
	if got := pendingClass(th); got != instantiationException {
		t.Errorf("pending = %q", got)
	}

	str := mustClass(t, th, "java/lang/String")
	ctor := mustMethod(t, th, str, ctorName, "()V", false)
	obj := mustClass(t, th, "java/lang/Object")
	if th.NewObjectA(obj, ctor, nil) != 0 {
		t.Error("NewObjectA accepted another class's constructor")
	}
	th.ExceptionClear()
}
