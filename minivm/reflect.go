package minivm

import (
	"fmt"
	"strings"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

func (rt *Runtime) defineReflection() {
	rt.MustDefine(ClassDef{Name: methodClass, Methods: methodMirrorMethods()})
	rt.MustDefine(ClassDef{Name: constructorClass, Methods: constructorMirrorMethods()})
	rt.MustDefine(ClassDef{Name: fieldClass, Methods: fieldMirrorMethods()})

	rt.MustDefine(ClassDef{Name: invocationHandlerClass, Interface: true, Methods: []MethodDef{
		Abstract("invoke", invokeSig),
	}})
	rt.MustDefine(ClassDef{Name: proxyClass, Methods: proxyMethods()})
	rt.MustDefine(ClassDef{
		Name:       HandlerClass,
		Interfaces: []string{invocationHandlerClass},
		Fields:     []FieldDef{{Name: "binding", Sig: "J"}},
		Methods: []MethodDef{
			Constructor("(J)V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
				this.setField(this.Class.fieldNamed("binding", false), args[0])
				return Slot{}, nil
			}),
			NativeMethod("invoke", invokeSig, false),
		},
	})
}

// reflected returns the method a Method or Constructor object mirrors.
func reflected(o *Object) *Method {
	m, _ := o.Native.(*Method)
	return m
}

func (rt *Runtime) paramTypes(m *Method) *Object {
	elems := make([]*Object, len(m.params))
	for i, p := range m.params {
		if c := rt.classForDesc(p); c != nil {
			elems[i] = c.mirror
		}
	}
	return rt.newObjectArray(rt.findClass(classClass), elems)
}

func methodMirrorMethods() []MethodDef {
	return []MethodDef{
		Virtual("getName", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(reflected(this).Name)), nil
		}),
		Virtual("getParameterTypes", "()[Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.paramTypes(reflected(this))), nil
		}),
		Virtual("getParameterCount", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(int32(len(reflected(this).params)))), nil
		}),
		Virtual("getReturnType", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			m := reflected(this)
			if m.ret == "V" {
				return Obj(t.rt.primitives['V'].mirror), nil
			}
			return Obj(t.rt.classForDesc(m.ret).mirror), nil
		}),
		Virtual("getModifiers", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(reflected(this).modifiers())), nil
		}),
		Virtual("getDeclaringClass", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(reflected(this).Class.mirror), nil
		}),
		Virtual("invoke", "(Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			m := reflected(this)
			slots, err := t.unpackArgs(m, args[1].Obj)
			if err != nil {
				return Slot{}, err
			}
			var res Slot
			if m.Static {
				res, err = t.invoke(m, nil, slots)
			} else {
				if args[0].Obj == nil {
					return Slot{}, t.Raise(nullPointerException, "invoke "+m.Name+" on null")
				}
				if !m.Class.AssignableFrom(args[0].Obj.Class) {
					return Slot{}, t.Raise(illegalArgumentException, "object is not an instance of declaring class")
				}
				res, err = t.invokeVirtual(m, args[0].Obj, slots)
			}
			if err != nil {
				return Slot{}, err
			}
			return Obj(t.boxResult(m.ReturnKind(), res)), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(describeMethod(reflected(this)))), nil
		}),
	}
}

func constructorMirrorMethods() []MethodDef {
	return []MethodDef{
		Virtual("getName", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(reflected(this).Class.DottedName())), nil
		}),
		Virtual("getParameterTypes", "()[Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.paramTypes(reflected(this))), nil
		}),
		Virtual("getParameterCount", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(int32(len(reflected(this).params)))), nil
		}),
		Virtual("getModifiers", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(AccPublic)), nil
		}),
		Virtual("getDeclaringClass", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(reflected(this).Class.mirror), nil
		}),
		Virtual("newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			m := reflected(this)
			if !instantiable(m.Class) {
				return Slot{}, t.Raise(instantiationException, m.Class.DottedName())
			}
			slots, err := t.unpackArgs(m, args[0].Obj)
			if err != nil {
				return Slot{}, err
			}
			o := &Object{Class: m.Class}
			if _, err := t.invoke(m, o, slots); err != nil {
				return Slot{}, err
			}
			return Obj(o), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(describeMethod(reflected(this)))), nil
		}),
	}
}

func fieldMirrorMethods() []MethodDef {
	field := func(o *Object) *Field {
		f, _ := o.Native.(*Field)
		return f
	}
	return []MethodDef{
		Virtual("getName", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(field(this).Name)), nil
		}),
		Virtual("getType", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.classForDesc(field(this).Sig).mirror), nil
		}),
		Virtual("getModifiers", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			mods := int32(AccPublic)
			if field(this).Static {
				mods |= AccStatic
			}
			return Prim(jvmbridge.EncodeInt(mods)), nil
		}),
		Virtual("getDeclaringClass", "()Ljava/lang/Class;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(field(this).Class.mirror), nil
		}),
		Virtual("get", "(Ljava/lang/Object;)Ljava/lang/Object;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			f := field(this)
			if f.Static {
				return Obj(t.boxResult(f.kind(), f.get())), nil
			}
			o := args[0].Obj
			if o == nil {
				return Slot{}, t.Raise(nullPointerException, "get "+f.Name+" of null")
			}
			if !f.Class.AssignableFrom(o.Class) {
				return Slot{}, t.Raisef(illegalArgumentException, "cannot get %s field %s on %s", f.Class.DottedName(), f.Name, o.Class.DottedName())
			}
			return Obj(t.boxResult(f.kind(), o.field(f))), nil
		}),
	}
}

func proxyMethods() []MethodDef {
	return []MethodDef{
		Static("newProxyInstance", "(Ljava/lang/ClassLoader;[Ljava/lang/Class;Ljava/lang/reflect/InvocationHandler;)Ljava/lang/Object;",
			func(t *Thread, _ *Object, args []Slot) (Slot, error) {
				handler := args[2].Obj
				if handler == nil {
					return Slot{}, t.Raise(nullPointerException, "invocation handler is null")
				}
				if args[1].Obj == nil {
					return Slot{}, t.Raise(nullPointerException, "interfaces is null")
				}
				mirrors, ok := args[1].Obj.objects()
				if !ok {
					return Slot{}, t.Raise(illegalArgumentException, "interfaces is not a Class[]")
				}
				names := make([]string, len(mirrors))
				for i, mirror := range mirrors {
					if mirror == nil {
						return Slot{}, t.Raise(nullPointerException, "interface is null")
					}
					c := mirrorClass(mirror)
					if c == nil {
						return Slot{}, t.Raise(illegalArgumentException, mirror.Class.DottedName()+" is not a class")
					}
					if !c.iface {
						return Slot{}, t.Raise(illegalArgumentException, c.DottedName()+" is not an interface")
					}
					names[i] = c.Name
				}
				c, err := t.rt.proxyClassFor(names)
				if err != nil {
					return Slot{}, t.Raise(illegalArgumentException, err.Error())
				}
				return Obj(&Object{Class: c, Native: handler}), nil
			}),
		Static("isProxyClass", "(Ljava/lang/Class;)Z", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			if args[0].Obj == nil {
				return Slot{}, t.Raise(nullPointerException, "class is null")
			}
			c := mirrorClass(args[0].Obj)
			return Prim(jvmbridge.EncodeBool(c != nil && c.proxy)), nil
		}),
		Static("getInvocationHandler", "(Ljava/lang/Object;)Ljava/lang/reflect/InvocationHandler;", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			o := args[0].Obj
			if o == nil || !o.Class.proxy {
				return Slot{}, t.Raise(illegalArgumentException, "not a proxy instance")
			}
			h, _ := o.Native.(*Object)
			return Obj(h), nil
		}),
	}
}

// proxyClassFor defines a fresh proxy class implementing ifaces.
func (rt *Runtime) proxyClassFor(ifaces []string) (*Class, error) {
	name := fmt.Sprintf("jdk/proxy/$Proxy%d", rt.proxySeq.Add(1))
	c, err := rt.Define(ClassDef{Name: name, Interfaces: ifaces})
	if err != nil {
		return nil, err
	}
	c.proxy = true
	return c, nil
}

// unpackArgs converts a reflective Object[] argument array to slots,
// unboxing primitives.
func (t *Thread) unpackArgs(m *Method, arr *Object) ([]Slot, error) {
	var elems []*Object
	if arr != nil {
		var ok bool
		if elems, ok = arr.objects(); !ok {
			return nil, t.Raise(illegalArgumentException, "arguments are not an Object[]")
		}
	}
	if len(elems) != len(m.params) {
		return nil, t.Raisef(illegalArgumentException, "wrong number of arguments: %d expected: %d", len(elems), len(m.params))
	}
	slots := make([]Slot, len(elems))
	for i, p := range m.params {
		k := descKind(p)
		if k == jvmbridge.KindObject {
			if want := t.rt.classForDesc(p); elems[i] != nil && want != nil && !want.AssignableFrom(elems[i].Class) {
				return nil, t.Raise(illegalArgumentException, "argument type mismatch")
			}
			slots[i] = Obj(elems[i])
			continue
		}
		v, ok := t.rt.Unbox(elems[i], k)
		if !ok {
			return nil, t.Raise(illegalArgumentException, "argument type mismatch")
		}
		slots[i] = Prim(v)
	}
	return slots, nil
}

// boxResult boxes a primitive result for reflection; void becomes null.
func (t *Thread) boxResult(k jvmbridge.Kind, s Slot) *Object {
	switch k {
	case jvmbridge.KindVoid:
		return nil
	case jvmbridge.KindObject:
		return s.Obj
	}
	return t.rt.Box(k, s.Prim)
}

func describeMethod(m *Method) string {
	params := make([]string, len(m.params))
	for i, p := range m.params {
		params[i] = typeName(p)
	}
	var b strings.Builder
	b.WriteString("public ")
	if m.Static {
		b.WriteString("static ")
	}
	if m.Abstract {
		b.WriteString("abstract ")
	}
	if m.Name == ctorName {
		b.WriteString(m.Class.DottedName())
	} else {
		fmt.Fprintf(&b, "%s %s.%s", typeName(m.ret), m.Class.DottedName(), m.Name)
	}
	b.WriteString("(" + strings.Join(params, ",") + ")")
	return b.String()
}

// typeName renders a descriptor the way Java source spells the type.
func typeName(desc string) string {
	dims := strings.Count(desc, "[")
	base := desc[dims:]
	name := className(base)
	if len(base) == 1 {
		name = primitiveNames[base[0]]
	}
	return strings.ReplaceAll(name, "/", ".") + strings.Repeat("[]", dims)
}
