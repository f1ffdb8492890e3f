package class

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

// StaticField reads a public static field of c through reflection
// (getField(name).get(null)). Primitive fields come back boxed.
func (c *Class) StaticField(name string) (value.Value, error) {
	return readField(c.vm, c.ref, ref.Null, name)
}

// Field reads a public instance field of obj through reflection. Primitive
// fields come back boxed.
func Field(v *vm.VM, obj *ref.Ref, name string) (value.Value, error) {
	if obj.IsNull() {
		return value.Value{}, errors.NullReference(errors.PhaseLookup, "receiver of field "+name)
	}
	cls, err := jni.GetObjectClass(v, obj)
	if err != nil {
		return value.Value{}, err
	}
	defer cls.Release()
	return readField(v, cls, obj, name)
}

func readField(v *vm.VM, cls, obj *ref.Ref, name string) (value.Value, error) {
	jname, err := jni.NewString(v, name)
	if err != nil {
		return value.Value{}, err
	}
	defer jname.Release()

	f, err := callObject(v, cls, "getField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;", jname.JValue())
	if err != nil {
		return value.Value{}, err
	}
	defer f.Release()
	if f.IsNull() {
		return value.Value{}, errors.NotFound(errors.PhaseLookup, "field", name)
	}

	res, err := callObject(v, f, "get", "(Ljava/lang/Object;)Ljava/lang/Object;", obj.JValue())
	if err != nil {
		return value.Value{}, err
	}
	return value.Object(res), nil
}
