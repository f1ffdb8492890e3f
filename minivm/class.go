package minivm

import (
	"strings"
	"sync"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

// Modifier bits reported by reflection.
const (
	AccPublic   = 0x0001
	AccStatic   = 0x0008
	AccFinal    = 0x0010
	AccNative   = 0x0100
	AccAbstract = 0x0400
)

// Impl is the Go body of a method. this is nil for static methods. A
// returned *Thrown becomes the pending throwable of the calling thread;
// any other error is raised as java.lang.RuntimeException.
type Impl func(t *Thread, this *Object, args []Slot) (Slot, error)

// Class is a loaded class, interface, array or primitive type.
type Class struct {
	rt         *Runtime
	Name       string // internal form: "java/lang/String", "[I", "int"
	Super      *Class
	Interfaces []*Class
	Elem       *Class // array component type
	Methods    []*Method
	Fields     []*Field
	mirror     *Object
	kind       jvmbridge.Kind // primitive classes only
	primitive  bool
	iface      bool
	proxy      bool
}

// DottedName returns the name as Class.getName reports it.
func (c *Class) DottedName() string {
	return strings.ReplaceAll(c.Name, "/", ".")
}

// Mirror returns the java/lang/Class object of c.
func (c *Class) Mirror() *Object { return c.mirror }

// IsInterface reports whether c is an interface.
func (c *Class) IsInterface() bool { return c.iface }

// IsArray reports whether c is an array class.
func (c *Class) IsArray() bool { return c.Elem != nil }

// IsPrimitive reports whether c is a primitive type (void included).
func (c *Class) IsPrimitive() bool { return c.primitive }

// Descriptor returns the type descriptor of c.
func (c *Class) Descriptor() string {
	switch {
	case c.primitive:
		return string(c.kind.Descriptor())
	case c.IsArray():
		return c.Name
	}
	return "L" + c.Name + ";"
}

// AssignableFrom reports whether a value of class sub can be stored in a
// variable of class c.
func (c *Class) AssignableFrom(sub *Class) bool {
	if c == sub {
		return true
	}
	if c.primitive || sub.primitive {
		return false
	}
	if sub.IsArray() {
		if c.IsArray() {
			if c.Elem.primitive || sub.Elem.primitive {
				return c.Elem == sub.Elem
			}
			return c.Elem.AssignableFrom(sub.Elem)
		}
		return c.Name == objectClass
	}
	if c.Name == objectClass {
		return true
	}
	for k := sub; k != nil; k = k.Super {
		if k == c {
			return true
		}
		if c.iface && k.implements(c) {
			return true
		}
	}
	return false
}

func (c *Class) implements(iface *Class) bool {
	for _, i := range c.Interfaces {
		if i == iface || i.implements(iface) {
			return true
		}
	}
	return false
}

// declared returns the method of c itself with the given name and
// descriptor.
func (c *Class) declared(name, sig string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Sig == sig {
			return m
		}
	}
	return nil
}

// resolve finds a method along the superclass chain and then through the
// interfaces, the way GetMethodID does.
func (c *Class) resolve(name, sig string, static bool) *Method {
	for k := c; k != nil; k = k.Super {
		if m := k.declared(name, sig); m != nil && m.Static == static {
			return m
		}
		if name == ctorName {
			return nil
		}
	}
	if static {
		return nil
	}
	if m := c.resolveInterface(name, sig); m != nil {
		return m
	}
	if c.iface {
		if obj := c.rt.class(objectClass); obj != nil {
			if m := obj.declared(name, sig); m != nil && !m.Static {
				return m
			}
		}
	}
	return nil
}

func (c *Class) resolveInterface(name, sig string) *Method {
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if m := i.declared(name, sig); m != nil && !m.Static {
				return m
			}
			if m := i.resolveInterface(name, sig); m != nil {
				return m
			}
		}
	}
	return nil
}

// implementation finds the concrete method a virtual call of m on an
// instance of c runs.
func (c *Class) implementation(m *Method) *Method {
	for k := c; k != nil; k = k.Super {
		if d := k.declared(m.Name, m.Sig); d != nil && !d.Static && !d.Abstract {
			return d
		}
	}
	return nil
}

// publicMethods lists the methods getMethods reports: declared ones first,
// then inherited ones not overridden, then interface methods.
func (c *Class) publicMethods() []*Method {
	var out []*Method
	seen := make(map[string]bool)
	add := func(m *Method) {
		key := m.Name + m.Sig
		if m.Name == ctorName || m.Name == clinitName || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, m)
	}
	for k := c; k != nil; k = k.Super {
		for _, m := range k.Methods {
			add(m)
		}
	}
	var walk func(k *Class)
	walk = func(k *Class) {
		for _, i := range k.Interfaces {
			for _, m := range i.Methods {
				if !m.Static {
					add(m)
				}
			}
			walk(i)
		}
	}
	for k := c; k != nil; k = k.Super {
		walk(k)
	}
	return out
}

func (c *Class) constructors() []*Method {
	var out []*Method
	for _, m := range c.Methods {
		if m.Name == ctorName {
			out = append(out, m)
		}
	}
	return out
}

func (c *Class) fieldNamed(name string, static bool) *Field {
	for k := c; k != nil; k = k.Super {
		for _, f := range k.Fields {
			if f.Name == name && f.Static == static {
				return f
			}
		}
	}
	return nil
}

// Method is a method or constructor.
type Method struct {
	Class    *Class
	Name     string
	Sig      string
	Impl     Impl
	native   jvmbridge.NativeFunc
	mirror   *Object
	params   []string
	ret      string
	id       jvmbridge.MethodID
	mu       sync.Mutex
	Static   bool
	Abstract bool
	Native   bool
}

// ID returns the method id handed out by GetMethodID.
func (m *Method) ID() jvmbridge.MethodID { return m.id }

// ReturnKind returns the kind of the method's result.
func (m *Method) ReturnKind() jvmbridge.Kind {
	k, _ := jvmbridge.KindFromDescriptor(m.ret[0])
	return k
}

// Params returns the parameter descriptors.
func (m *Method) Params() []string { return m.params }

func (m *Method) modifiers() int32 {
	mods := int32(AccPublic)
	if m.Static {
		mods |= AccStatic
	}
	if m.Abstract {
		mods |= AccAbstract
	}
	if m.Native {
		mods |= AccNative
	}
	return mods
}

func (m *Method) nativeFunc() jvmbridge.NativeFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.native
}

func (m *Method) bind(fn jvmbridge.NativeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.native = fn
}

func (m *Method) String() string {
	return m.Class.Name + "." + m.Name + m.Sig
}

// Field is an instance or static field.
type Field struct {
	Class  *Class
	Name   string
	Sig    string
	value  Slot // static fields
	mirror *Object
	id     jvmbridge.FieldID
	mu     sync.Mutex
	Static bool
}

// ID returns the field id handed out by GetFieldID.
func (f *Field) ID() jvmbridge.FieldID { return f.id }

func (f *Field) kind() jvmbridge.Kind {
	k, _ := jvmbridge.KindFromDescriptor(f.Sig[0])
	return k
}

func (f *Field) get() Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *Field) set(s Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = s
}

// ClassDef describes a class implemented in Go.
type ClassDef struct {
	Name       string // internal form
	Super      string // defaults to java/lang/Object
	Interfaces []string
	Methods    []MethodDef
	Fields     []FieldDef
	Interface  bool
}

// MethodDef describes one method of a ClassDef. Methods of an interface
// without an Impl are abstract. Native methods get their body through
// RegisterNatives.
type MethodDef struct {
	Impl     Impl
	Name     string
	Sig      string
	Static   bool
	Native   bool
	Abstract bool
}

// FieldDef describes one field of a ClassDef. Value is the initial value
// of a static field.
type FieldDef struct {
	Name   string
	Sig    string
	Value  Slot
	Static bool
}

// Virtual defines an instance method.
func Virtual(name, sig string, impl Impl) MethodDef {
	return MethodDef{Name: name, Sig: sig, Impl: impl}
}

// Static defines a static method.
func Static(name, sig string, impl Impl) MethodDef {
	return MethodDef{Name: name, Sig: sig, Impl: impl, Static: true}
}

// Constructor defines a constructor.
func Constructor(sig string, impl Impl) MethodDef {
	return MethodDef{Name: ctorName, Sig: sig, Impl: impl}
}

// Abstract defines an abstract instance method.
func Abstract(name, sig string) MethodDef {
	return MethodDef{Name: name, Sig: sig, Abstract: true}
}

// NativeMethod declares a method whose body is bound with RegisterNatives.
func NativeMethod(name, sig string, static bool) MethodDef {
	return MethodDef{Name: name, Sig: sig, Native: true, Static: static}
}

// noop is the body of constructors that have nothing to initialize.
func noop(*Thread, *Object, []Slot) (Slot, error) { return Slot{}, nil }
