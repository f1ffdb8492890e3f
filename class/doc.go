// Package class is the reflective type and method model of the bridge.
//
// A Class wraps a reference to the runtime's java.lang.Class object. Its
// methods and constructors are enumerated through the runtime's own
// reflection (getMethods, getConstructors) and each reflected member is
// turned into a Method carrying its name, parameter types, return type and
// resolved method id.
//
// # Overload Resolution
//
// Call, CallStatic and New pick the member to invoke from the runtime types
// of the arguments:
//
//  1. keep members with the requested name (methods only)
//  2. keep members whose parameter count equals the argument count
//  3. keep members where every argument type is assignable to the
//     parameter type; a null argument matches any parameter
//  4. take the first survivor in the runtime's enumeration order
//
// The first match wins even when a later overload is more specific. When
// that matters, look the member up with LookupMethod on explicit parameter
// types, or enumerate Methods, and call Invoke directly.
//
// # Arrays
//
// Index returns an Element accessor for one array slot. Primitive arrays
// are accessed through a pinned element buffer that Element.Close hands
// back, committing writes or discarding the buffer:
//
//	e, err := class.Index(v, arr, 3)
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//	e.Set(value.Int(42))
package class
