package class

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

// Invoke calls m directly, bypassing overload resolution. target is the
// receiver of instance methods and is ignored for static methods and
// constructors. A constructor call returns the new object.
func Invoke(v *vm.VM, target *ref.Ref, m *Method, args []value.Value) (value.Value, error) {
	if len(args) != m.NumArgs() {
		return value.Value{}, errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Path(m.Name()).
			Detail("want %d arguments, got %d", m.NumArgs(), len(args)).
			Build()
	}
	jargs := value.JValues(args)

	switch {
	case m.IsConstructor():
		obj, err := jni.NewObject(v, m.owner, m.ID(), jargs)
		if err != nil {
			return value.Value{}, err
		}
		return value.Object(obj), nil
	case m.IsStatic():
		kind := m.ReturnKind()
		raw, err := jni.CallStatic(v, m.owner, m.ID(), kind, jargs)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromJValue(v, kind, raw), nil
	}

	kind := m.ReturnKind()
	raw, err := jni.Call(v, target, m.ID(), kind, jargs)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromJValue(v, kind, raw), nil
}

// Call resolves the method name of obj's class against the runtime types of
// args and invokes the first match. The result is owned by the caller.
func Call(v *vm.VM, obj *ref.Ref, name string, args ...value.Value) (value.Value, error) {
	if obj.IsNull() {
		return value.Value{}, errors.NullReference(errors.PhaseInvoke, "receiver of "+name)
	}
	clsRef, err := jni.GetObjectClass(v, obj)
	if err != nil {
		return value.Value{}, err
	}
	cls := Wrap(v, clsRef)
	defer cls.Release()

	m, err := cls.lookup(name, args)
	if err != nil {
		return value.Value{}, err
	}
	defer m.Release()
	return Invoke(v, obj, m, args)
}

// CallStatic resolves and invokes a static method of c.
func (c *Class) CallStatic(name string, args ...value.Value) (value.Value, error) {
	m, err := c.lookup(name, args)
	if err != nil {
		return value.Value{}, err
	}
	defer m.Release()
	if !m.IsStatic() {
		return value.Value{}, errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Path(c.String(), name).
			Detail("method is not static").
			Build()
	}
	return Invoke(c.vm, ref.Null, m, args)
}

// NewInstance resolves a constructor of c and creates an object.
func (c *Class) NewInstance(args ...value.Value) (*ref.Ref, error) {
	types, err := ArgTypes(c.vm, args)
	if err != nil {
		return nil, err
	}
	defer ReleaseTypes(types)

	ctor, err := c.LookupConstructor(types)
	if err != nil {
		return nil, err
	}
	defer ctor.Release()

	res, err := Invoke(c.vm, ref.Null, ctor, args)
	if err != nil {
		return nil, err
	}
	return res.Ref(), nil
}

// New creates an instance of the named class.
func New(v *vm.VM, className string, args ...value.Value) (*ref.Ref, error) {
	cls, err := ForName(v, className)
	if err != nil {
		return nil, err
	}
	defer cls.Release()
	return cls.NewInstance(args...)
}

// CallStaticOn resolves and invokes a static method of the named class.
func CallStaticOn(v *vm.VM, className, name string, args ...value.Value) (value.Value, error) {
	cls, err := ForName(v, className)
	if err != nil {
		return value.Value{}, err
	}
	defer cls.Release()
	return cls.CallStatic(name, args...)
}

func (c *Class) lookup(name string, args []value.Value) (*Method, error) {
	types, err := ArgTypes(c.vm, args)
	if err != nil {
		return nil, err
	}
	defer ReleaseTypes(types)
	return c.LookupMethod(name, types)
}
