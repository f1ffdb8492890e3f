package class

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/minivm"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

func start(t *testing.T, opts ...minivm.Option) (*vm.VM, *minivm.Runtime) {
	t.Helper()
	rt := minivm.New(opts...)
	v, err := vm.Start(rt.Create, vm.Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { v.Destroy() })
	return v, rt
}

func forName(t *testing.T, v *vm.VM, name string) *Class {
	t.Helper()
	c, err := ForName(v, name)
	if err != nil {
		t.Fatalf("ForName(%s): %v", name, err)
	}
	t.Cleanup(c.Release)
	return c
}

func str(t *testing.T, v *vm.VM, s string) *ref.Ref {
	t.Helper()
	r, err := NewString(v, s)
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

// runAttached runs fn as a subtest. Subtests get their own goroutine, so
// the body is run with that goroutine attached to v.
func runAttached(t *testing.T, v *vm.VM, name string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		err := v.Do(func(jvmbridge.Env) error {
			fn(t)
			return nil
		})
		if err != nil {
			t.Fatalf("attach: %v", err)
		}
	})
}

// faultClass returns the class name of the foreign fault in err.
func faultClass(err error) string {
	f, ok := fault.As(err)
	if !ok {
		return ""
	}
	defer f.Release()
	return f.ClassName()
}

func TestForName(t *testing.T) {
	v, _ := start(t)

	tests := []struct {
		in, want string
	}{
		{"java.lang.String", "java.lang.String"},
		{"java/lang/StringBuilder", "java.lang.StringBuilder"},
		{"[I", "[I"},
		{"[Ljava.lang.Object;", "[Ljava.lang.Object;"},
	}
	for _, tt := range tests {
		c := forName(t, v, tt.in)
		if got := c.String(); got != tt.want {
			t.Errorf("ForName(%q).Name = %q, want %q", tt.in, got, tt.want)
		}
	}

	_, err := ForName(v, "no.such.Type")
	if got := faultClass(err); got != "java.lang.NoClassDefFoundError" {
		t.Errorf("ForName(missing) = %v", err)
	}
}

func TestPredicates(t *testing.T) {
	v, _ := start(t)
	obj := forName(t, v, "java.lang.Object")
	s := forName(t, v, "java.lang.String")
	cs := forName(t, v, "java.lang.CharSequence")
	arr := forName(t, v, "[I")

	check := func(name string, got bool, err error, want bool) {
		t.Helper()
		if err != nil || got != want {
			t.Errorf("%s = %v, %v; want %v", name, got, err, want)
		}
	}
	got, err := cs.IsInterface()
	check("CharSequence.IsInterface", got, err, true)
	got, err = arr.IsArray()
	check("[I.IsArray", got, err, true)
	got, err = s.IsPrimitive()
	check("String.IsPrimitive", got, err, false)
	got, err = obj.IsAssignableFrom(s)
	check("Object.IsAssignableFrom(String)", got, err, true)
	got, err = s.IsAssignableFrom(obj)
	check("String.IsAssignableFrom(Object)", got, err, false)
	got, err = cs.IsAssignableFrom(s)
	check("CharSequence.IsAssignableFrom(String)", got, err, true)

	hello := str(t, v, "hello")
	got, err = cs.IsInstance(hello)
	check("CharSequence.IsInstance", got, err, true)
	got, err = IsArray(v, hello)
	check("IsArray(string)", got, err, false)
	got, err = IsArray(v, ref.Null)
	check("IsArray(null)", got, err, false)

	again := forName(t, v, "java/lang/String")
	if !s.Equal(again) || s.Equal(obj) {
		t.Error("Equal is wrong")
	}
}

func TestOf(t *testing.T) {
	v, _ := start(t)

	tests := []struct {
		name string
		val  value.Value
		want string
		kind errors.Kind
	}{
		{"int", value.Int(1), "int", ""},
		{"boolean", value.Bool(true), "boolean", ""},
		{"double", value.Double(1), "double", ""},
		{"string", value.Object(str(t, v, "s").Clone()), "java.lang.String", ""},
		{"null", value.Null(), "", errors.KindNullReference},
		{"void", value.Void(), "", errors.KindUnsupported},
	}
	for _, tt := range tests {
		runAttached(t, v, tt.name, func(t *testing.T) {
			defer tt.val.Release()
			c, err := Of(v, tt.val)
			if tt.kind != "" {
				if errors.KindOf(err) != tt.kind {
					t.Fatalf("error = %v, want kind %v", err, tt.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Of: %v", err)
			}
			defer c.Release()
			if c.String() != tt.want {
				t.Errorf("class = %q, want %q", c.String(), tt.want)
			}
		})
	}
}

func TestLookupFirstMatch(t *testing.T) {
	v, _ := start(t)
	sb := forName(t, v, "java.lang.StringBuilder")
	s := forName(t, v, "java.lang.String")
	integer := forName(t, v, "java.lang.Integer")
	intCls, err := PrimitiveClass(v, jvmbridge.KindInt)
	if err != nil {
		t.Fatalf("PrimitiveClass: %v", err)
	}
	defer intCls.Release()

	tests := []struct {
		name string
		args []*Class
		want string
	}{
		{"string", []*Class{s}, "(Ljava/lang/String;)Ljava/lang/StringBuilder;"},
		{"int", []*Class{intCls}, "(I)Ljava/lang/StringBuilder;"},
		// Integer is not a String, so the Object overload is the first match.
		{"boxed", []*Class{integer}, "(Ljava/lang/Object;)Ljava/lang/StringBuilder;"},
		// null matches the first overload of the right arity.
		{"null", []*Class{nil}, "(Ljava/lang/String;)Ljava/lang/StringBuilder;"},
	}
	for _, tt := range tests {
		runAttached(t, v, tt.name, func(t *testing.T) {
			m, err := sb.LookupMethod("append", tt.args)
			if err != nil {
				t.Fatalf("LookupMethod: %v", err)
			}
			defer m.Release()
			if got := m.Signature(); got != tt.want {
				t.Errorf("Signature = %q, want %q", got, tt.want)
			}
		})
	}

	_, err = sb.LookupMethod("append", []*Class{s, s})
	if errors.KindOf(err) != errors.KindMethodNotFound {
		t.Errorf("two-argument append = %v", err)
	}
	want := "No such method 'append' found in class 'java.lang.StringBuilder' taking arguments of java.lang.String and java.lang.String"
	if err == nil || err.Error() != want {
		t.Errorf("error = %q\nwant    %q", err, want)
	}

	// StringBuilder has zero-argument methods, but none named "".
	_, err = sb.LookupMethod("", nil)
	if errors.KindOf(err) != errors.KindMethodNotFound {
		t.Errorf("LookupMethod(\"\") = %v", err)
	}

	dbl, _ := PrimitiveClass(v, jvmbridge.KindDouble)
	defer dbl.Release()
	_, err = sb.LookupConstructor([]*Class{dbl})
	if errors.KindOf(err) != errors.KindConstructorNotFound {
		t.Errorf("StringBuilder(double) = %v", err)
	}
	ctor, err := sb.LookupConstructor([]*Class{intCls})
	if err != nil {
		t.Fatalf("StringBuilder(int): %v", err)
	}
	defer ctor.Release()
	if !ctor.IsConstructor() || ctor.Signature() != "(I)V" {
		t.Errorf("constructor = %s %s", ctor, ctor.Signature())
	}
}

func TestMethodMetadata(t *testing.T) {
	v, _ := start(t)
	mathCls := forName(t, v, "java.lang.Math")
	intCls, _ := PrimitiveClass(v, jvmbridge.KindInt)
	defer intCls.Release()

	m, err := mathCls.LookupMethod("max", []*Class{intCls, intCls})
	if err != nil {
		t.Fatalf("LookupMethod: %v", err)
	}
	defer m.Release()

	if !m.IsStatic() || m.IsConstructor() || m.NumArgs() != 2 {
		t.Errorf("flags: static %v ctor %v args %d", m.IsStatic(), m.IsConstructor(), m.NumArgs())
	}
	if m.String() != "static int max(int, int)" {
		t.Errorf("String = %q", m.String())
	}
	if m.ReturnKind() != jvmbridge.KindInt || m.ReturnType() != "int" {
		t.Errorf("return = %s %v", m.ReturnType(), m.ReturnKind())
	}
	if diff := cmp.Diff([]string{"int", "int"}, m.ParamTypeNames()); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if m.ID() == 0 {
		t.Error("no method id")
	}
	owner := m.Owner()
	if owner.String() != "java.lang.Math" {
		t.Errorf("Owner = %s", owner)
	}
}

func TestMethodList(t *testing.T) {
	v, _ := start(t)
	s := forName(t, v, "java.lang.String")
	list, err := s.Methods()
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	defer list.Release()

	var names []string
	for m, err := range list.All() {
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, m.Name())
		m.Release()
	}
	if len(names) != list.Len() || names[0] != "length" {
		t.Errorf("methods = %v", names)
	}
	if _, err := list.At(list.Len()); errors.KindOf(err) != errors.KindIndexOutOfRange {
		t.Errorf("At(Len) = %v", err)
	}
}

func TestCall(t *testing.T) {
	v, rt := start(t)
	before := rt.Locals()

	sb, err := New(v, "java.lang.StringBuilder")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hello, _ := NewString(v, "x=")
	for _, arg := range []value.Value{value.Object(hello), value.Int(-42), value.Char('!'), value.Bool(true)} {
		res, err := Call(v, sb, "append", arg)
		if err != nil {
			t.Fatalf("append(%v): %v", arg, err)
		}
		res.Release()
		arg.Release()
	}
	got, err := ToString(v, sb)
	if err != nil || got != "x=-42!true" {
		t.Errorf("toString = %q, %v", got, err)
	}

	n, err := Call(v, sb, "length")
	if err != nil {
		t.Fatal(err)
	}
	if i, err := n.AsInt(); err != nil || i != 10 {
		t.Errorf("length = %v, %v", n, err)
	}

	_, err = Call(v, sb, "nope")
	var mnf *errors.MethodNotFoundError
	if !stderrors.As(err, &mnf) {
		t.Fatalf("Call(nope) = %v", err)
	}
	if mnf.Method != "nope" || len(mnf.ArgTypes) != 0 {
		t.Errorf("MethodNotFound = %+v", mnf)
	}
	if want := "No such method 'nope' found in class 'java.lang.StringBuilder'"; err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
	if _, err := Call(v, ref.Null, "length"); errors.KindOf(err) != errors.KindNullReference {
		t.Errorf("Call on null = %v", err)
	}

	sb.Release()
	if rt.Locals() != before {
		t.Errorf("leaked %d locals", rt.Locals()-before)
	}
}

func TestCallStatic(t *testing.T) {
	v, _ := start(t)

	res, err := CallStaticOn(v, "java.lang.Math", "max", value.Int(3), value.Int(9))
	if err != nil {
		t.Fatal(err)
	}
	if got, err := res.AsInt(); err != nil || got != 9 {
		t.Errorf("max(int) = %v", res)
	}
	res, err = CallStaticOn(v, "java.lang.Math", "max", value.Double(-1), value.Double(-2))
	if err != nil {
		t.Fatal(err)
	}
	if got, err := res.AsDouble(); err != nil || got != -1 {
		t.Errorf("max(double) = %v", res)
	}

	// Overload resolution never widens: max(int, long) has no match.
	if _, err := CallStaticOn(v, "java.lang.Math", "max", value.Int(1), value.Long(2)); errors.KindOf(err) != errors.KindMethodNotFound {
		t.Errorf("max(int, long) = %v", err)
	}

	s := forName(t, v, "java.lang.String")
	if _, err := s.CallStatic("length"); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("CallStatic(instance method) = %v", err)
	}

	_, err = CallStaticOn(v, "java.lang.Integer", "parseInt", value.Object(str(t, v, "x1").Clone()))
	if got := faultClass(err); got != "java.lang.NumberFormatException" {
		t.Errorf("parseInt fault = %v", err)
	}
	if !stderrors.Is(err, errors.ErrForeignFault) {
		t.Error("fault does not match ErrForeignFault")
	}
}

func TestInvokeArity(t *testing.T) {
	v, _ := start(t)
	mathCls := forName(t, v, "java.lang.Math")
	intCls, _ := PrimitiveClass(v, jvmbridge.KindInt)
	defer intCls.Release()
	m, err := mathCls.LookupMethod("abs", []*Class{intCls})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release()

	if _, err := Invoke(v, ref.Null, m, nil); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("Invoke with no args = %v", err)
	}
	res, err := Invoke(v, ref.Null, m, []value.Value{value.Int(-7)})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := res.AsInt(); got != 7 {
		t.Errorf("abs(-7) = %v", res)
	}
}

func TestNewInstance(t *testing.T) {
	v, _ := start(t)
	s := forName(t, v, "java.lang.String")

	obj, err := s.NewInstance(value.Object(str(t, v, "copy").Clone()))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	defer obj.Release()
	if got, err := AsString(v, value.Object(obj.Clone())); err != nil || got != "copy" {
		t.Errorf("copy = %q, %v", got, err)
	}

	if _, err := s.NewInstance(value.Int(1), value.Int(2)); errors.KindOf(err) != errors.KindConstructorNotFound {
		t.Errorf("String(int, int) = %v", err)
	}

	_, err = New(v, "java.lang.StringBuilder", value.Int(-1))
	if got := faultClass(err); got != "java.lang.NegativeArraySizeException" {
		t.Errorf("StringBuilder(-1) = %v", err)
	}
}

func TestStrings(t *testing.T) {
	v, _ := start(t)
	s := str(t, v, "héllo")

	if ok, err := IsString(v, s); err != nil || !ok {
		t.Errorf("IsString = %v, %v", ok, err)
	}
	if ok, _ := IsString(v, ref.Null); ok {
		t.Error("null is a string")
	}
	got, err := AsString(v, value.Object(s.Clone()))
	if err != nil || got != "héllo" {
		t.Errorf("AsString = %q, %v", got, err)
	}

	if _, err := AsString(v, value.Int(1)); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("AsString(int) = %v", err)
	}
	boxed, err := Box(v, value.Int(5))
	if err != nil {
		t.Fatal(err)
	}
	defer boxed.Release()
	_, err = AsString(v, value.Object(boxed.Clone()))
	if errors.KindOf(err) != errors.KindTypeMismatch {
		t.Fatalf("AsString(Integer) = %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.ForeignType != "java.lang.Integer" {
		t.Errorf("mismatch names %+v", e)
	}

	text, err := ToString(v, boxed)
	if err != nil || text != "5" {
		t.Errorf("Integer.toString = %q, %v", text, err)
	}
}

func TestBoxing(t *testing.T) {
	v, _ := start(t)

	tests := []struct {
		val value.Value
		box string
	}{
		{value.Bool(true), "java.lang.Boolean"},
		{value.Byte(-1), "java.lang.Byte"},
		{value.Char('q'), "java.lang.Character"},
		{value.Short(300), "java.lang.Short"},
		{value.Int(math.MinInt32), "java.lang.Integer"},
		{value.Long(1 << 40), "java.lang.Long"},
		{value.Float(0.5), "java.lang.Float"},
		{value.Double(math.Pi), "java.lang.Double"},
	}
	for _, tt := range tests {
		runAttached(t, v, tt.box, func(t *testing.T) {
			b, err := Box(v, tt.val)
			if err != nil {
				t.Fatalf("Box: %v", err)
			}
			defer b.Release()
			c, err := Of(v, value.Object(b.Clone()))
			if err != nil {
				t.Fatal(err)
			}
			defer c.Release()
			if c.String() != tt.box {
				t.Errorf("box class = %s", c)
			}
			back, err := Unbox(v, b, tt.val.Kind())
			if err != nil {
				t.Fatalf("Unbox: %v", err)
			}
			if back.Kind() != tt.val.Kind() || back.JValue() != tt.val.JValue() {
				t.Errorf("round trip = %v, want %v", back, tt.val)
			}
		})
	}

	b, _ := Box(v, value.Int(1))
	defer b.Release()
	if _, err := Unbox(v, b, jvmbridge.KindLong); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("Unbox Integer as long = %v", err)
	}
	if _, err := Unbox(v, ref.Null, jvmbridge.KindInt); errors.KindOf(err) != errors.KindNullReference {
		t.Errorf("Unbox null = %v", err)
	}
	if _, err := Box(v, value.Void()); errors.KindOf(err) != errors.KindUnsupported {
		t.Errorf("Box void = %v", err)
	}
	same, err := Unbox(v, b, jvmbridge.KindObject)
	if err != nil || !same.Ref().Equal(b) {
		t.Errorf("Unbox as object = %v, %v", same, err)
	}
	same.Release()
}

func TestFields(t *testing.T) {
	v, rt := start(t)
	integer := forName(t, v, "java.lang.Integer")

	maxVal, err := integer.StaticField("MAX_VALUE")
	if err != nil {
		t.Fatalf("StaticField: %v", err)
	}
	defer maxVal.Release()
	got, err := Unbox(v, maxVal.Ref(), jvmbridge.KindInt)
	if err != nil {
		t.Fatal(err)
	}
	if i, _ := got.AsInt(); i != math.MaxInt32 {
		t.Errorf("MAX_VALUE = %d", i)
	}

	_, err = integer.StaticField("MISSING")
	if got := faultClass(err); got != "java.lang.NoSuchFieldException" {
		t.Errorf("missing field = %v", err)
	}

	rt.MustDefine(minivm.ClassDef{
		Name:   "test/Point",
		Fields: []minivm.FieldDef{{Name: "x", Sig: "I"}, {Name: "label", Sig: "Ljava/lang/String;"}},
		Methods: []minivm.MethodDef{
			minivm.Constructor("()V", func(*minivm.Thread, *minivm.Object, []minivm.Slot) (minivm.Slot, error) {
				return minivm.Slot{}, nil
			}),
		},
	})
	p, err := New(v, "test.Point")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release()
	env, _ := v.Current()
	pc := env.GetObjectClass(p.Raw())
	env.SetField(p.Raw(), env.GetFieldID(pc, "x", "I"), jvmbridge.EncodeInt(12))
	env.DeleteLocalRef(pc)

	x, err := Field(v, p, "x")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	defer x.Release()
	if got, _ := Unbox(v, x.Ref(), jvmbridge.KindInt); got.JValue().Int() != 12 {
		t.Errorf("x = %v", got)
	}
	label, err := Field(v, p, "label")
	if err != nil || !label.IsNull() {
		t.Errorf("label = %v, %v", label, err)
	}
	if _, err := Field(v, ref.Null, "x"); errors.KindOf(err) != errors.KindNullReference {
		t.Errorf("Field(null) = %v", err)
	}
}

func TestPrimitiveArray(t *testing.T) {
	for _, copies := range []bool{false, true} {
		t.Run(map[bool]string{false: "pinned", true: "copies"}[copies], func(t *testing.T) {
			v, _ := start(t, minivm.WithArrayCopies(copies))
			arr, err := NewPrimitiveArray(v, jvmbridge.KindInt, 3)
			if err != nil {
				t.Fatal(err)
			}
			defer arr.Release()

			if n, err := Len(v, arr); err != nil || n != 3 {
				t.Fatalf("Len = %d, %v", n, err)
			}

			e, err := Index(v, arr, 1)
			if err != nil {
				t.Fatal(err)
			}
			if e.IsCopy() != copies || e.Kind() != jvmbridge.KindInt {
				t.Errorf("IsCopy = %v, Kind = %v", e.IsCopy(), e.Kind())
			}
			if err := e.Set(value.Long(1)); errors.KindOf(err) != errors.KindTypeMismatch {
				t.Errorf("Set(long) = %v", err)
			}
			if err := e.Set(value.Int(77)); err != nil {
				t.Fatalf("Set: %v", err)
			}

			// A write is visible before the accessor is closed.
			peek, err := Index(v, arr, 1)
			if err != nil {
				t.Fatal(err)
			}
			if got, _ := peek.Value(); got.JValue().Int() != 77 {
				t.Errorf("element 1 = %v, want 77", got)
			}
			if err := peek.Close(); err != nil {
				t.Fatal(err)
			}
			if err := e.Close(); err != nil {
				t.Fatal(err)
			}
			if err := e.Close(); err != nil {
				t.Errorf("second Close = %v", err)
			}
			if _, err := e.Value(); errors.KindOf(err) != errors.KindUnsupported {
				t.Errorf("Value after Close = %v", err)
			}

			// Unwritten elements stay zero.
			zero, _ := Index(v, arr, 2)
			defer zero.Close()
			if got, _ := zero.Value(); got.JValue().Int() != 0 {
				t.Errorf("element 2 = %v", got)
			}

			for _, i := range []int{-1, 3} {
				if _, err := Index(v, arr, i); errors.KindOf(err) != errors.KindIndexOutOfRange {
					t.Errorf("Index(%d) = %v", i, err)
				}
			}
		})
	}
}

func TestObjectArray(t *testing.T) {
	v, _ := start(t)
	s := forName(t, v, "java.lang.String")
	init := str(t, v, "init")

	arr, err := NewArray(v, s, 2, init)
	if err != nil {
		t.Fatal(err)
	}
	defer arr.Release()
	if ok, _ := IsArray(v, arr); !ok {
		t.Error("IsArray = false")
	}

	e, err := Index(v, arr, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	got, err := e.Value()
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := AsString(v, got); text != "init" {
		t.Errorf("element 0 = %q", text)
	}
	got.Release()

	if err := e.Set(value.Null()); err != nil {
		t.Fatal(err)
	}
	got, _ = e.Value()
	if !got.IsNull() {
		t.Errorf("element 0 after Set(null) = %v", got)
	}

	// Storing an Integer into a String[] raises ArrayStoreException.
	boxed, _ := Box(v, value.Int(1))
	defer boxed.Release()
	err = e.Set(value.Object(boxed.Clone()))
	if got := faultClass(err); got != "java.lang.ArrayStoreException" {
		t.Errorf("Set(Integer) = %v", err)
	}

	if _, err := Len(v, init); errors.KindOf(err) != errors.KindNotAnArray {
		t.Errorf("Len(string) = %v", err)
	}
	if _, err := Len(v, ref.Null); errors.KindOf(err) != errors.KindNullReference {
		t.Errorf("Len(null) = %v", err)
	}
	if _, err := NewArray(v, s, -1, ref.Null); errors.KindOf(err) != errors.KindIndexOutOfRange {
		t.Errorf("NewArray(-1) = %v", err)
	}
}

func TestGlobalClass(t *testing.T) {
	v, _ := start(t)
	s := forName(t, v, "java.lang.String")
	g, err := s.Global()
	if err != nil {
		t.Fatal(err)
	}
	defer g.Release()

	var eg errgroup.Group
	eg.Go(func() error {
		return v.Do(func(jvmbridge.Env) error {
			m, err := g.LookupMethod("isEmpty", nil)
			if err != nil {
				return err
			}
			m.Release()
			return nil
		})
	})
	if err := eg.Wait(); err != nil {
		t.Errorf("global class from worker: %v", err)
	}
}

// adderWasm exports add(i32, i32) i32.
var adderWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

func TestDefineType(t *testing.T) {
	v, _ := start(t)

	c, err := DefineType(v, "wasm.Adder", adderWasm)
	if err != nil {
		t.Fatalf("DefineType: %v", err)
	}
	defer c.Release()
	if c.String() != "wasm.Adder" {
		t.Errorf("name = %s", c)
	}
	res, err := c.CallStatic("add", value.Int(2), value.Int(40))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := res.AsInt(); got != 42 {
		t.Errorf("add = %v", res)
	}

	_, err = DefineType(v, "pkg.Cls", []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52})
	if got := faultClass(err); got != "java.lang.ClassFormatError" {
		t.Errorf("class file = %v", err)
	}
	_, err = DefineType(v, "wasm.Adder", adderWasm)
	if got := faultClass(err); got != "java.lang.LinkageError" {
		t.Errorf("redefinition = %v", err)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		typeName, desc string
		kind           jvmbridge.Kind
	}{
		{"int", "I", jvmbridge.KindInt},
		{"void", "V", jvmbridge.KindVoid},
		{"java.lang.String", "Ljava/lang/String;", jvmbridge.KindObject},
		{"[I", "[I", jvmbridge.KindObject},
		{"[Ljava.lang.String;", "[Ljava/lang/String;", jvmbridge.KindObject},
	}
	for _, tt := range tests {
		if got := Descriptor(tt.typeName); got != tt.desc {
			t.Errorf("Descriptor(%q) = %q, want %q", tt.typeName, got, tt.desc)
		}
		if got := KindOf(tt.typeName); got != tt.kind {
			t.Errorf("KindOf(%q) = %v, want %v", tt.typeName, got, tt.kind)
		}
	}
	if name, ok := BoxClass(jvmbridge.KindChar); !ok || name != "java/lang/Character" {
		t.Errorf("BoxClass(char) = %q, %v", name, ok)
	}
	if _, ok := BoxClass(jvmbridge.KindObject); ok {
		t.Error("BoxClass(object) ok")
	}
}
