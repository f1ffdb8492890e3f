package minivm

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
)

// NewString allocates a java/lang/String.
func (rt *Runtime) NewString(s string) *Object {
	return &Object{Class: rt.findClass(stringClass), Native: s}
}

// Box allocates the box object of a primitive value.
func (rt *Runtime) Box(k jvmbridge.Kind, v jvmbridge.JValue) *Object {
	return &Object{Class: rt.findClass(boxClasses[k]), Native: v}
}

// Unbox reads a box object of kind k.
func (rt *Runtime) Unbox(o *Object, k jvmbridge.Kind) (jvmbridge.JValue, bool) {
	if o == nil || o.Class.Name != boxClasses[k] {
		return 0, false
	}
	v, ok := o.Native.(jvmbridge.JValue)
	return v, ok
}

// NewObjectArray allocates an array of elem holding elems.
func (rt *Runtime) NewObjectArray(elem *Class, elems []*Object) *Object {
	return rt.newObjectArray(elem, elems)
}

func (rt *Runtime) newObjectArray(elem *Class, elems []*Object) *Object {
	if elems == nil {
		elems = []*Object{}
	}
	return &Object{Class: rt.findClass("[" + elem.Descriptor()), Native: elems}
}

// NewPrimitiveArray allocates an array of kind k holding elems.
func (rt *Runtime) NewPrimitiveArray(k jvmbridge.Kind, elems []jvmbridge.JValue) *Object {
	if elems == nil {
		elems = []jvmbridge.JValue{}
	}
	return &Object{Class: rt.findClass("[" + string(k.Descriptor())), Native: elems}
}

// methodMirror returns the java/lang/reflect Method or Constructor object
// of m, creating it on first use.
func (rt *Runtime) methodMirror(m *Method) *Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mirror == nil {
		name := methodClass
		if m.Name == ctorName {
			name = constructorClass
		}
		m.mirror = &Object{Class: rt.findClass(name), Native: m}
	}
	return m.mirror
}

func (rt *Runtime) fieldMirror(f *Field) *Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mirror == nil {
		f.mirror = &Object{Class: rt.findClass(fieldClass), Native: f}
	}
	return f.mirror
}

// identityHash returns a stable per-object hash code.
func (rt *Runtime) identityHash(o *Object) int32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hash == 0 {
		o.hash = int32(uint32(rt.hashSeq.Add(1)) * 2654435761 >> 1)
		if o.hash == 0 {
			o.hash = 1
		}
	}
	return o.hash
}

// stringOf returns the text of a String object.
func stringOf(o *Object) (string, bool) {
	if o == nil || o.Class.Name != stringClass {
		return "", false
	}
	s, _ := o.Native.(string)
	return s, true
}
