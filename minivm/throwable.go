package minivm

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	throwableClass                  = "java/lang/Throwable"
	runtimeException                = "java/lang/RuntimeException"
	illegalArgumentException        = "java/lang/IllegalArgumentException"
	illegalStateException           = "java/lang/IllegalStateException"
	nullPointerException            = "java/lang/NullPointerException"
	classCastException              = "java/lang/ClassCastException"
	arithmeticException             = "java/lang/ArithmeticException"
	numberFormatException           = "java/lang/NumberFormatException"
	arrayIndexOutOfBoundsException  = "java/lang/ArrayIndexOutOfBoundsException"
	stringIndexOutOfBoundsException = "java/lang/StringIndexOutOfBoundsException"
	negativeArraySizeException      = "java/lang/NegativeArraySizeException"
	arrayStoreException             = "java/lang/ArrayStoreException"
	classNotFoundException          = "java/lang/ClassNotFoundException"
	noSuchFieldException            = "java/lang/NoSuchFieldException"
	instantiationException          = "java/lang/InstantiationException"
	noClassDefFoundError            = "java/lang/NoClassDefFoundError"
	classFormatError                = "java/lang/ClassFormatError"
	linkageError                    = "java/lang/LinkageError"
	unsatisfiedLinkError            = "java/lang/UnsatisfiedLinkError"
	incompatibleClassChangeError    = "java/lang/IncompatibleClassChangeError"
	noSuchMethodError               = "java/lang/NoSuchMethodError"
	noSuchFieldError                = "java/lang/NoSuchFieldError"
	abstractMethodError             = "java/lang/AbstractMethodError"
)

// throwableHierarchy lists every bootstrap throwable after its superclass.
var throwableHierarchy = [][2]string{
	{"java/lang/Exception", throwableClass},
	{"java/lang/Error", throwableClass},
	{runtimeException, "java/lang/Exception"},
	{"java/lang/ReflectiveOperationException", "java/lang/Exception"},
	{classNotFoundException, "java/lang/ReflectiveOperationException"},
	{noSuchFieldException, "java/lang/ReflectiveOperationException"},
	{"java/lang/NoSuchMethodException", "java/lang/ReflectiveOperationException"},
	{instantiationException, "java/lang/ReflectiveOperationException"},
	{illegalArgumentException, runtimeException},
	{numberFormatException, illegalArgumentException},
	{illegalStateException, runtimeException},
	{nullPointerException, runtimeException},
	{classCastException, runtimeException},
	{arithmeticException, runtimeException},
	{"java/lang/IndexOutOfBoundsException", runtimeException},
	{arrayIndexOutOfBoundsException, "java/lang/IndexOutOfBoundsException"},
	{stringIndexOutOfBoundsException, "java/lang/IndexOutOfBoundsException"},
	{negativeArraySizeException, runtimeException},
	{arrayStoreException, runtimeException},
	{"java/lang/UnsupportedOperationException", runtimeException},
	{linkageError, "java/lang/Error"},
	{noClassDefFoundError, linkageError},
	{classFormatError, linkageError},
	{unsatisfiedLinkError, linkageError},
	{incompatibleClassChangeError, linkageError},
	{noSuchMethodError, incompatibleClassChangeError},
	{noSuchFieldError, incompatibleClassChangeError},
	{abstractMethodError, incompatibleClassChangeError},
}

func (rt *Runtime) defineThrowables() {
	rt.MustDefine(ClassDef{
		Name: throwableClass,
		Fields: []FieldDef{
			{Name: "detailMessage", Sig: "Ljava/lang/String;"},
			{Name: "cause", Sig: "Ljava/lang/Throwable;"},
		},
		Methods: append(throwableCtors(), throwableMethods()...),
	})
	for _, pair := range throwableHierarchy {
		rt.MustDefine(ClassDef{Name: pair[0], Super: pair[1], Methods: throwableCtors()})
	}
}

// ThrowableCtors returns the usual constructors of a throwable class:
// (), (String) and (String, Throwable).
func ThrowableCtors() []MethodDef { return throwableCtors() }

func throwableCtors() []MethodDef {
	return []MethodDef{
		Constructor("()V", noop),
		Constructor("(Ljava/lang/String;)V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			setThrowableField(this, "detailMessage", args[0].Obj)
			return Slot{}, nil
		}),
		Constructor("(Ljava/lang/String;Ljava/lang/Throwable;)V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			setThrowableField(this, "detailMessage", args[0].Obj)
			setThrowableField(this, "cause", args[1].Obj)
			return Slot{}, nil
		}),
	}
}

func throwableMethods() []MethodDef {
	return []MethodDef{
		Virtual("getMessage", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(throwableField(this, "detailMessage")), nil
		}),
		Virtual("getCause", "()Ljava/lang/Throwable;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(throwableField(this, "cause")), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(describeThrowable(this))), nil
		}),
		Virtual("printStackTrace", "()V", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			t.rt.printStackTrace(this)
			return Slot{}, nil
		}),
	}
}

func throwableField(o *Object, name string) *Object {
	if f := o.Class.fieldNamed(name, false); f != nil {
		return o.field(f).Obj
	}
	return nil
}

func setThrowableField(o *Object, name string, v *Object) {
	if f := o.Class.fieldNamed(name, false); f != nil {
		o.setField(f, Obj(v))
	}
}

// throwableMessage returns the detail message; ok is false when it is
// null.
func throwableMessage(o *Object) (string, bool) {
	return stringOf(throwableField(o, "detailMessage"))
}

func describeThrowable(o *Object) string {
	if msg, ok := throwableMessage(o); ok {
		return o.Class.DottedName() + ": " + msg
	}
	return o.Class.DottedName()
}

func (rt *Runtime) isThrowable(c *Class) bool {
	return rt.findClass(throwableClass).AssignableFrom(c)
}

// newThrowable allocates a throwable of className without running a
// constructor. Unknown classes fall back to RuntimeException.
func (rt *Runtime) newThrowable(className, message string) *Object {
	c := rt.findClass(className)
	if c == nil || !rt.isThrowable(c) {
		Logger().Warn("unknown throwable class", zap.String("class", className))
		message = strings.ReplaceAll(className, "/", ".") + ": " + message
		c = rt.findClass(runtimeException)
	}
	o := &Object{Class: c}
	setThrowableField(o, "detailMessage", rt.NewString(message))
	return o
}

// construct runs the (String) constructor of a throwable class, or fills
// the message in directly if the class has none.
func (rt *Runtime) construct(t *Thread, c *Class, message string) (*Object, error) {
	o := &Object{Class: c}
	msg := rt.NewString(message)
	if ctor := c.declared(ctorName, "(Ljava/lang/String;)V"); ctor != nil {
		if _, err := t.invoke(ctor, o, []Slot{Obj(msg)}); err != nil {
			return nil, err
		}
		return o, nil
	}
	setThrowableField(o, "detailMessage", msg)
	return o, nil
}

func (rt *Runtime) printStackTrace(o *Object) {
	var b strings.Builder
	b.WriteString(describeThrowable(o))
	b.WriteString("\n\tat <native>\n")
	for cause := throwableField(o, "cause"); cause != nil && cause != o; cause = throwableField(cause, "cause") {
		fmt.Fprintf(&b, "Caused by: %s\n\t... 1 more\n", describeThrowable(cause))
	}
	if _, err := io.WriteString(rt.stderr, b.String()); err != nil {
		Logger().Warn("print stack trace", zap.Error(err))
	}
}
