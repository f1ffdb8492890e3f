package class

import (
	"iter"
	"strings"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

const modifierStatic = 0x0008

// Method describes a reflected method or constructor. Its metadata is read
// once, when the Method is created.
type Method struct {
	vm         *vm.VM
	owner      *ref.Ref // class the member was enumerated from
	obj        *ref.Ref // java.lang.reflect.Method or Constructor
	name       string
	returnType string
	params     []*Class
	paramNames []string
	id         jvmbridge.MethodID
	static     bool
	ctor       bool
}

// NewMethod builds a Method from a reflected Method or Constructor object.
// owner is the class calls are made through. The Method takes ownership of
// obj and adds its own owner of owner.
func NewMethod(v *vm.VM, owner, obj *ref.Ref, ctor bool) (*Method, error) {
	m := &Method{vm: v, owner: owner.Clone(), obj: obj, ctor: ctor}
	if err := m.load(); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

func (m *Method) load() error {
	id, err := jni.FromReflectedMethod(m.vm, m.obj)
	if err != nil {
		return err
	}
	m.id = id

	if m.name, err = callString(m.vm, m.obj, "getName"); err != nil {
		return err
	}

	types, err := callObject(m.vm, m.obj, "getParameterTypes", "()[Ljava/lang/Class;")
	if err != nil {
		return err
	}
	defer types.Release()
	refs, err := objectArray(m.vm, types)
	if err != nil {
		return err
	}
	for _, r := range refs {
		m.params = append(m.params, Wrap(m.vm, r))
	}
	for _, p := range m.params {
		name, err := p.Name()
		if err != nil {
			return err
		}
		m.paramNames = append(m.paramNames, name)
	}

	if m.ctor {
		m.returnType = "void"
		return nil
	}

	ret, err := callObject(m.vm, m.obj, "getReturnType", "()Ljava/lang/Class;")
	if err != nil {
		return err
	}
	retCls := Wrap(m.vm, ret)
	defer retCls.Release()
	if m.returnType, err = retCls.Name(); err != nil {
		return err
	}

	mods, err := callInt(m.vm, m.obj, "getModifiers")
	if err != nil {
		return err
	}
	m.static = mods&modifierStatic != 0
	return nil
}

// Name returns the member name. Constructors report their class name.
func (m *Method) Name() string { return m.name }

// ID returns the resolved method id.
func (m *Method) ID() jvmbridge.MethodID { return m.id }

// Ref returns the reflected member object. The Method keeps ownership.
func (m *Method) Ref() *ref.Ref { return m.obj }

// Owner returns the class the member was enumerated from. The Method keeps
// ownership.
func (m *Method) Owner() *Class { return &Class{vm: m.vm, ref: m.owner} }

// IsStatic reports whether the member is a static method.
func (m *Method) IsStatic() bool { return m.static }

// IsConstructor reports whether the member is a constructor.
func (m *Method) IsConstructor() bool { return m.ctor }

// NumArgs returns the number of declared parameters.
func (m *Method) NumArgs() int { return len(m.params) }

// ParamTypes returns the parameter classes. The Method keeps ownership.
func (m *Method) ParamTypes() []*Class { return m.params }

// ParamTypeNames returns the parameter class names.
func (m *Method) ParamTypeNames() []string { return m.paramNames }

// ReturnType returns the return class name ("void" for constructors and
// methods without a result).
func (m *Method) ReturnType() string { return m.returnType }

// ReturnKind maps the return type to the call kind used to invoke the
// member.
func (m *Method) ReturnKind() jvmbridge.Kind { return KindOf(m.returnType) }

// Signature returns the member's type descriptor, e.g.
// "(Ljava/lang/String;I)V".
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range m.paramNames {
		b.WriteString(Descriptor(p))
	}
	b.WriteByte(')')
	b.WriteString(Descriptor(m.returnType))
	return b.String()
}

// String renders the member like "static int max(int, int)".
func (m *Method) String() string {
	var b strings.Builder
	if m.static {
		b.WriteString("static ")
	}
	if !m.ctor {
		b.WriteString(m.returnType)
		b.WriteByte(' ')
	}
	b.WriteString(m.name)
	b.WriteByte('(')
	b.WriteString(strings.Join(m.paramNames, ", "))
	b.WriteByte(')')
	return b.String()
}

// IsArgsAssignable reports whether arguments of the given classes can be
// passed to the member. A nil class stands for a null argument and matches
// any parameter.
func (m *Method) IsArgsAssignable(argTypes []*Class) (bool, error) {
	if len(argTypes) != len(m.params) {
		return false, nil
	}
	for i, at := range argTypes {
		if at == nil {
			continue
		}
		ok, err := m.params[i].IsAssignableFrom(at)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Release drops every reference the Method holds.
func (m *Method) Release() {
	if m == nil {
		return
	}
	for _, p := range m.params {
		p.Release()
	}
	m.params = nil
	m.obj.Release()
	m.owner.Release()
}

// MethodList is the result of enumerating a class's methods or
// constructors, in the runtime's order.
type MethodList struct {
	vm    *vm.VM
	owner *ref.Ref
	arr   *ref.Ref
	n     int
	ctor  bool
}

// Len returns the number of members.
func (l *MethodList) Len() int { return l.n }

// At builds the Method at index i. The caller owns the result.
func (l *MethodList) At(i int) (*Method, error) {
	if i < 0 || i >= l.n {
		return nil, indexError(i, l.n)
	}
	obj, err := jni.GetObjectArrayElement(l.vm, l.arr, i)
	if err != nil {
		return nil, err
	}
	return NewMethod(l.vm, l.owner, obj, l.ctor)
}

// All iterates the members in order. Every yielded Method is owned by the
// loop body. Iteration can be restarted.
func (l *MethodList) All() iter.Seq2[*Method, error] {
	return func(yield func(*Method, error) bool) {
		for i := range l.n {
			m, err := l.At(i)
			if !yield(m, err) || err != nil {
				return
			}
		}
	}
}

// Release drops the list's references. Methods already built are not
// affected.
func (l *MethodList) Release() {
	l.arr.Release()
	l.owner.Release()
}

// Methods enumerates the public methods of c, inherited ones included.
func (c *Class) Methods() (*MethodList, error) {
	return c.members("getMethods", "()[Ljava/lang/reflect/Method;", false)
}

// Constructors enumerates the public constructors of c.
func (c *Class) Constructors() (*MethodList, error) {
	return c.members("getConstructors", "()[Ljava/lang/reflect/Constructor;", true)
}

func (c *Class) members(name, sig string, ctor bool) (*MethodList, error) {
	arr, err := callObject(c.vm, c.ref, name, sig)
	if err != nil {
		return nil, err
	}
	n, err := jni.ArrayLength(c.vm, arr)
	if err != nil {
		arr.Release()
		return nil, err
	}
	return &MethodList{vm: c.vm, owner: c.ref.Clone(), arr: arr, n: n, ctor: ctor}, nil
}

// FromReflected builds a Method from a java.lang.reflect.Method, using its
// declaring class as owner. The Method takes ownership of obj.
func FromReflected(v *vm.VM, obj *ref.Ref) (*Method, error) {
	owner, err := callObject(v, obj, "getDeclaringClass", "()Ljava/lang/Class;")
	if err != nil {
		obj.Release()
		return nil, err
	}
	defer owner.Release()
	return NewMethod(v, owner, obj, false)
}
