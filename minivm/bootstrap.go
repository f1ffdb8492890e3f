package minivm

import (
	"fmt"
	"math"
	"strings"
	"time"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

const (
	objectClass            = "java/lang/Object"
	classClass             = "java/lang/Class"
	stringClass            = "java/lang/String"
	classLoaderClass       = "java/lang/ClassLoader"
	methodClass            = "java/lang/reflect/Method"
	constructorClass       = "java/lang/reflect/Constructor"
	fieldClass             = "java/lang/reflect/Field"
	proxyClass             = "java/lang/reflect/Proxy"
	invocationHandlerClass = "java/lang/reflect/InvocationHandler"

	// HandlerClass is the invocation handler whose invoke method is bound
	// with RegisterNatives by the proxy package.
	HandlerClass = "jvmbridge/NativeInvocationHandler"

	invokeSig = "(Ljava/lang/Object;Ljava/lang/reflect/Method;[Ljava/lang/Object;)Ljava/lang/Object;"
)

// bootstrap loads the classes every runtime starts with.
func (rt *Runtime) bootstrap() {
	rt.mu.Lock()
	for desc, name := range primitiveNames {
		k, _ := jvmbridge.KindFromDescriptor(desc)
		c := &Class{rt: rt, Name: name, kind: k, primitive: true}
		rt.registerLocked(c)
		rt.primitives[desc] = c
	}
	rt.mu.Unlock()

	rt.MustDefine(ClassDef{Name: objectClass, Methods: objectMethods()})
	rt.MustDefine(ClassDef{Name: classClass, Methods: classMethods()})

	// Mirrors created before java/lang/Class existed.
	rt.mu.Lock()
	cc := rt.classes[classClass]
	for _, c := range rt.primitives {
		c.mirror.Class = cc
	}
	rt.classes[objectClass].mirror.Class = cc
	cc.mirror.Class = cc
	rt.mu.Unlock()

	rt.MustDefine(ClassDef{Name: "java/lang/Comparable", Interface: true, Methods: []MethodDef{
		Abstract("compareTo", "(Ljava/lang/Object;)I"),
	}})
	rt.MustDefine(ClassDef{Name: "java/lang/CharSequence", Interface: true, Methods: []MethodDef{
		Abstract("length", "()I"),
		Abstract("charAt", "(I)C"),
		Abstract("toString", "()Ljava/lang/String;"),
	}})
	rt.MustDefine(ClassDef{Name: "java/lang/Runnable", Interface: true, Methods: []MethodDef{
		Abstract("run", "()V"),
	}})

	rt.defineStrings()
	rt.defineBoxes()
	rt.defineThrowables()
	rt.defineReflection()

	rt.MustDefine(ClassDef{Name: "java/lang/System", Methods: systemMethods()})
	rt.MustDefine(ClassDef{Name: "java/lang/Math", Methods: mathMethods()})
	rt.MustDefine(ClassDef{Name: classLoaderClass, Methods: classLoaderMethods()})
	rt.loader = &Object{Class: rt.findClass(classLoaderClass)}
}

func objectMethods() []MethodDef {
	return []MethodDef{
		Constructor("()V", noop),
		Virtual("getClass", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(this.Class.mirror), nil
		}),
		Virtual("hashCode", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(t.rt.identityHash(this))), nil
		}),
		Virtual("equals", "(Ljava/lang/Object;)Z", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeBool(this == args[0].Obj)), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			s := fmt.Sprintf("%s@%x", this.Class.DottedName(), uint32(t.rt.identityHash(this)))
			return Obj(t.rt.NewString(s)), nil
		}),
	}
}

// mirrorClass returns the class a java/lang/Class object stands for.
func mirrorClass(o *Object) *Class {
	c, _ := o.Native.(*Class)
	return c
}

func classMethods() []MethodDef {
	flag := func(name string, get func(*Class) bool) MethodDef {
		return Virtual(name, "()Z", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeBool(get(mirrorClass(this)))), nil
		})
	}
	return []MethodDef{
		Virtual("getName", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(mirrorClass(this).DottedName())), nil
		}),
		Virtual("getSimpleName", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			name := mirrorClass(this).DottedName()
			if i := strings.LastIndexAny(name, ".$"); i >= 0 && !strings.HasPrefix(name, "[") {
				name = name[i+1:]
			}
			return Obj(t.rt.NewString(name)), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			c := mirrorClass(this)
			s := c.DottedName()
			switch {
			case c.iface:
				s = "interface " + s
			case !c.primitive:
				s = "class " + s
			}
			return Obj(t.rt.NewString(s)), nil
		}),
		flag("isInterface", (*Class).IsInterface),
		flag("isArray", (*Class).IsArray),
		flag("isPrimitive", (*Class).IsPrimitive),
		Virtual("isInstance", "(Ljava/lang/Object;)Z", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			o := args[0].Obj
			return Prim(jvmbridge.EncodeBool(o != nil && mirrorClass(this).AssignableFrom(o.Class))), nil
		}),
		Virtual("isAssignableFrom", "(Ljava/lang/Class;)Z", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			if args[0].Obj == nil {
				return Slot{}, t.Raise(nullPointerException, "class is null")
			}
			return Prim(jvmbridge.EncodeBool(mirrorClass(this).AssignableFrom(mirrorClass(args[0].Obj)))), nil
		}),
		Virtual("getSuperclass", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			if s := mirrorClass(this).Super; s != nil {
				return Obj(s.mirror), nil
			}
			return Slot{}, nil
		}),
		Virtual("getComponentType", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			if e := mirrorClass(this).Elem; e != nil {
				return Obj(e.mirror), nil
			}
			return Slot{}, nil
		}),
		Virtual("getInterfaces", "()[Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			c := mirrorClass(this)
			elems := make([]*Object, len(c.Interfaces))
			for i, iface := range c.Interfaces {
				elems[i] = iface.mirror
			}
			return Obj(t.rt.newObjectArray(t.rt.findClass(classClass), elems)), nil
		}),
		Virtual("getMethods", "()[Ljava/lang/reflect/Method;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			methods := mirrorClass(this).publicMethods()
			elems := make([]*Object, len(methods))
			for i, m := range methods {
				elems[i] = t.rt.methodMirror(m)
			}
			return Obj(t.rt.newObjectArray(t.rt.findClass(methodClass), elems)), nil
		}),
		Virtual("getConstructors", "()[Ljava/lang/reflect/Constructor;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			ctors := mirrorClass(this).constructors()
			elems := make([]*Object, len(ctors))
			for i, m := range ctors {
				elems[i] = t.rt.methodMirror(m)
			}
			return Obj(t.rt.newObjectArray(t.rt.findClass(constructorClass), elems)), nil
		}),
		Virtual("getField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			name, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "field name is null")
			}
			c := mirrorClass(this)
			f := c.fieldNamed(name, false)
			if f == nil {
				f = c.fieldNamed(name, true)
			}
			if f == nil {
				return Slot{}, t.Raise(noSuchFieldException, name)
			}
			return Obj(t.rt.fieldMirror(f)), nil
		}),
		Virtual("getClassLoader", "()Ljava/lang/ClassLoader;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			if mirrorClass(this).primitive {
				return Slot{}, nil
			}
			return Obj(t.rt.loader), nil
		}),
		Static("forName", "(Ljava/lang/String;)Ljava/lang/Class;", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return loadClass(t, args[0].Obj)
		}),
	}
}

// loadClass resolves a dotted class name, raising ClassNotFoundException.
func loadClass(t *Thread, nameObj *Object) (Slot, error) {
	name, ok := stringOf(nameObj)
	if !ok {
		return Slot{}, t.Raise(nullPointerException, "class name is null")
	}
	c := t.rt.findClass(strings.ReplaceAll(name, ".", "/"))
	if c == nil {
		return Slot{}, t.Raise(classNotFoundException, name)
	}
	return Obj(c.mirror), nil
}

func classLoaderMethods() []MethodDef {
	return []MethodDef{
		Constructor("()V", noop),
		Static("getSystemClassLoader", "()Ljava/lang/ClassLoader;", func(t *Thread, _ *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.loader), nil
		}),
		Virtual("loadClass", "(Ljava/lang/String;)Ljava/lang/Class;", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return loadClass(t, args[0].Obj)
		}),
	}
}

func systemMethods() []MethodDef {
	return []MethodDef{
		Static("getProperty", "(Ljava/lang/String;)Ljava/lang/String;", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			key, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "key can't be null")
			}
			if v, ok := t.rt.Property(key); ok {
				return Obj(t.rt.NewString(v)), nil
			}
			return Slot{}, nil
		}),
		Static("lineSeparator", "()Ljava/lang/String;", func(t *Thread, _ *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString("\n")), nil
		}),
		Static("identityHashCode", "(Ljava/lang/Object;)I", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			if args[0].Obj == nil {
				return Prim(0), nil
			}
			return Prim(jvmbridge.EncodeInt(t.rt.identityHash(args[0].Obj))), nil
		}),
		Static("currentTimeMillis", "()J", func(t *Thread, _ *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeLong(time.Now().UnixMilli())), nil
		}),
	}
}

func mathMethods() []MethodDef {
	ints := func(name string, fn func(a, b int32) int32) MethodDef {
		return Static(name, "(II)I", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(fn(args[0].Prim.Int(), args[1].Prim.Int()))), nil
		})
	}
	longs := func(name string, fn func(a, b int64) int64) MethodDef {
		return Static(name, "(JJ)J", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeLong(fn(args[0].Prim.Long(), args[1].Prim.Long()))), nil
		})
	}
	doubles := func(name string, fn func(a, b float64) float64) MethodDef {
		return Static(name, "(DD)D", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeDouble(fn(args[0].Prim.Double(), args[1].Prim.Double()))), nil
		})
	}
	unary := func(name string, fn func(float64) float64) MethodDef {
		return Static(name, "(D)D", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeDouble(fn(args[0].Prim.Double()))), nil
		})
	}
	return []MethodDef{
		ints("max", func(a, b int32) int32 { return max(a, b) }),
		longs("max", func(a, b int64) int64 { return max(a, b) }),
		doubles("max", math.Max),
		ints("min", func(a, b int32) int32 { return min(a, b) }),
		longs("min", func(a, b int64) int64 { return min(a, b) }),
		doubles("min", math.Min),
		Static("abs", "(I)I", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			v := args[0].Prim.Int()
			if v < 0 {
				v = -v
			}
			return Prim(jvmbridge.EncodeInt(v)), nil
		}),
		unary("abs", math.Abs),
		unary("sqrt", math.Sqrt),
		doubles("pow", math.Pow),
		Static("addExact", "(II)I", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			a, b := args[0].Prim.Int(), args[1].Prim.Int()
			sum := int64(a) + int64(b)
			if sum != int64(int32(sum)) {
				return Slot{}, t.Raise(arithmeticException, "integer overflow")
			}
			return Prim(jvmbridge.EncodeInt(int32(sum))), nil
		}),
		Static("floorDiv", "(II)I", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			a, b := args[0].Prim.Int(), args[1].Prim.Int()
			if b == 0 {
				return Slot{}, t.Raise(arithmeticException, "/ by zero")
			}
			q := a / b
			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}
			return Prim(jvmbridge.EncodeInt(q)), nil
		}),
	}
}
