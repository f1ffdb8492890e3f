package class

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

// LookupMethod returns the first method of c named name whose parameters
// accept arguments of argTypes. A nil entry in argTypes stands for a null
// argument. The caller owns the result.
func (c *Class) LookupMethod(name string, argTypes []*Class) (*Method, error) {
	list, err := c.Methods()
	if err != nil {
		return nil, err
	}
	defer list.Release()

	m, err := firstMatch(list, func(m *Method) bool { return m.Name() == name }, argTypes)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.MethodNotFound(c.String(), name, typeNames(argTypes))
	}
	return m, nil
}

// LookupConstructor returns the first constructor of c accepting arguments
// of argTypes. The caller owns the result.
func (c *Class) LookupConstructor(argTypes []*Class) (*Method, error) {
	list, err := c.Constructors()
	if err != nil {
		return nil, err
	}
	defer list.Release()

	m, err := firstMatch(list, nil, argTypes)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.ConstructorNotFound(c.String(), typeNames(argTypes))
	}
	return m, nil
}

// firstMatch scans list in order. A nil filter accepts every member.
func firstMatch(list *MethodList, filter func(*Method) bool, argTypes []*Class) (*Method, error) {
	for m, err := range list.All() {
		if err != nil {
			return nil, err
		}
		if filter != nil && !filter(m) {
			m.Release()
			continue
		}
		ok, err := m.IsArgsAssignable(argTypes)
		if err != nil {
			m.Release()
			return nil, err
		}
		if ok {
			return m, nil
		}
		m.Release()
	}
	return nil, nil
}

func typeNames(types []*Class) []string {
	if len(types) == 0 {
		return nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			names[i] = "null"
			continue
		}
		names[i] = t.String()
	}
	return names
}

// ArgTypes returns the class of every argument, nil for nulls. The caller
// must release the result with ReleaseTypes.
func ArgTypes(v *vm.VM, args []value.Value) ([]*Class, error) {
	types := make([]*Class, len(args))
	for i, a := range args {
		if a.IsNull() {
			continue
		}
		t, err := Of(v, a)
		if err != nil {
			ReleaseTypes(types)
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// ReleaseTypes releases every non-nil class in types.
func ReleaseTypes(types []*Class) {
	for _, t := range types {
		t.Release()
	}
}
