package class

import (
	"strings"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

// Class is a foreign type descriptor.
type Class struct {
	vm   *vm.VM
	ref  *ref.Ref
	name string
}

// Wrap takes ownership of a reference to a java.lang.Class object.
func Wrap(v *vm.VM, r *ref.Ref) *Class {
	return &Class{vm: v, ref: r}
}

// ForName resolves a class by name. Dotted ("java.lang.String") and slashed
// ("java/lang/String") forms are both accepted.
func ForName(v *vm.VM, name string) (*Class, error) {
	r, err := jni.FindClass(v, InternalName(name))
	if err != nil {
		return nil, err
	}
	return Wrap(v, r), nil
}

// InternalName converts a dotted class name to the slashed form.
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// Of returns the class of a value. Primitive values map to the primitive
// class (int.class and so on). Null and void have no class.
func Of(v *vm.VM, val value.Value) (*Class, error) {
	switch {
	case val.IsVoid():
		return nil, errors.Unsupported(errors.PhaseLookup, "void has no class")
	case val.IsNull():
		return nil, errors.NullReference(errors.PhaseLookup, "value")
	case val.IsRef():
		r, err := jni.GetObjectClass(v, val.Ref())
		if err != nil {
			return nil, err
		}
		return Wrap(v, r), nil
	}
	return PrimitiveClass(v, val.Kind())
}

// PrimitiveClass returns the class object of a primitive kind, read from
// the TYPE field of its box class.
func PrimitiveClass(v *vm.VM, k jvmbridge.Kind) (*Class, error) {
	box, ok := boxClasses[k]
	if !ok {
		return nil, errors.Unsupported(errors.PhaseLookup, "no primitive class for "+k.String())
	}
	boxCls, err := jni.FindClass(v, box)
	if err != nil {
		return nil, err
	}
	defer boxCls.Release()

	id, err := jni.GetStaticFieldID(v, boxCls, "TYPE", "Ljava/lang/Class;")
	if err != nil {
		return nil, err
	}
	raw, err := jni.GetStaticField(v, boxCls, id)
	if err != nil {
		return nil, err
	}
	if raw.Ref() == 0 {
		return nil, errors.PrimitiveCallFailed(errors.PhaseLookup, box+".TYPE")
	}
	return Wrap(v, ref.Local(v, raw.Ref())), nil
}

// Ref returns the reference to the java.lang.Class object. The Class keeps
// ownership.
func (c *Class) Ref() *ref.Ref {
	return c.ref
}

// VM returns the runtime the class belongs to.
func (c *Class) VM() *vm.VM {
	return c.vm
}

// Value returns the class object as a Value sharing ownership with c.
func (c *Class) Value() value.Value {
	return value.Object(c.ref.Clone())
}

// Release drops the class reference.
func (c *Class) Release() {
	if c != nil {
		c.ref.Release()
	}
}

// Global returns a copy of c backed by a global reference, usable from any
// thread.
func (c *Class) Global() (*Class, error) {
	g, err := c.ref.Promote()
	if err != nil {
		return nil, err
	}
	return &Class{vm: c.vm, ref: g, name: c.name}, nil
}

// Name returns the class name as the runtime reports it: dotted for
// ordinary classes ("java.lang.String"), descriptor form for arrays ("[I").
func (c *Class) Name() (string, error) {
	if c.name != "" {
		return c.name, nil
	}
	name, err := callString(c.vm, c.ref, "getName")
	if err != nil {
		return "", err
	}
	c.name = name
	return name, nil
}

// IsArray reports whether c is an array class.
func (c *Class) IsArray() (bool, error) {
	return callBool(c.vm, c.ref, "isArray")
}

// IsPrimitive reports whether c is one of the primitive classes.
func (c *Class) IsPrimitive() (bool, error) {
	return callBool(c.vm, c.ref, "isPrimitive")
}

// IsInterface reports whether c is an interface.
func (c *Class) IsInterface() (bool, error) {
	return callBool(c.vm, c.ref, "isInterface")
}

// IsAssignableFrom reports whether a value of class sub can be assigned to
// a variable of class c.
func (c *Class) IsAssignableFrom(sub *Class) (bool, error) {
	return jni.IsAssignableFrom(c.vm, sub.ref, c.ref)
}

// IsInstance reports whether obj is an instance of c.
func (c *Class) IsInstance(obj *ref.Ref) (bool, error) {
	return jni.IsInstanceOf(c.vm, obj, c.ref)
}

// Equal reports whether c and o are the same class.
func (c *Class) Equal(o *Class) bool {
	return c.ref.Equal(o.ref)
}

// String returns the class name, or a placeholder if it cannot be read.
func (c *Class) String() string {
	name, err := c.Name()
	if err != nil {
		return "<class>"
	}
	return name
}

// IsArray reports whether obj is an array. Null is not an array.
func IsArray(v *vm.VM, obj *ref.Ref) (bool, error) {
	if obj.IsNull() {
		return false, nil
	}
	cls, err := jni.GetObjectClass(v, obj)
	if err != nil {
		return false, err
	}
	defer cls.Release()
	return Wrap(v, cls).IsArray()
}
