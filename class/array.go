package class

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

// NewArray creates an object array of length n with elements of class
// elem, every slot set to initial (which may be Null).
func NewArray(v *vm.VM, elem *Class, n int, initial *ref.Ref) (*ref.Ref, error) {
	if n < 0 {
		return nil, errors.IndexOutOfRange(n, 0)
	}
	return jni.NewObjectArray(v, n, elem.ref, initial)
}

// NewPrimitiveArray creates a zeroed array of primitive kind k.
func NewPrimitiveArray(v *vm.VM, k jvmbridge.Kind, n int) (*ref.Ref, error) {
	if n < 0 {
		return nil, errors.IndexOutOfRange(n, 0)
	}
	return jni.NewPrimitiveArray(v, k, n)
}

// elementKind reads the element kind from the array's class name ("[I",
// "[Ljava.lang.String;").
func elementKind(v *vm.VM, arr *ref.Ref) (jvmbridge.Kind, error) {
	if arr.IsNull() {
		return 0, errors.NullReference(errors.PhaseArray, "array")
	}
	clsRef, err := jni.GetObjectClass(v, arr)
	if err != nil {
		return 0, err
	}
	cls := Wrap(v, clsRef)
	defer cls.Release()

	name, err := cls.Name()
	if err != nil {
		return 0, err
	}
	if len(name) < 2 || name[0] != '[' {
		return 0, errors.NotAnArray(name)
	}
	k, ok := jvmbridge.KindFromDescriptor(name[1])
	if !ok || k == jvmbridge.KindVoid {
		return 0, errors.New(errors.PhaseArray, errors.KindUnsupported).
			ForeignType(name).
			Detail("unknown element type").
			Build()
	}
	return k, nil
}

// Len returns the length of an array.
func Len(v *vm.VM, arr *ref.Ref) (int, error) {
	if _, err := elementKind(v, arr); err != nil {
		return 0, err
	}
	return jni.ArrayLength(v, arr)
}

// Element accesses one slot of an array. Primitive arrays hold a pinned
// element buffer until Close.
type Element struct {
	vm     *vm.VM
	arr    *ref.Ref
	elems  []jvmbridge.JValue
	index  int
	kind   jvmbridge.Kind
	isCopy bool
	dirty  bool
	closed bool
}

// Index returns an accessor for element i of arr. The accessor must be
// closed.
func Index(v *vm.VM, arr *ref.Ref, i int) (*Element, error) {
	k, err := elementKind(v, arr)
	if err != nil {
		return nil, err
	}
	n, err := jni.ArrayLength(v, arr)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= n {
		return nil, errors.IndexOutOfRange(i, n)
	}

	e := &Element{vm: v, arr: arr.Clone(), index: i, kind: k}
	if k == jvmbridge.KindObject {
		return e, nil
	}
	e.elems, e.isCopy, err = jni.GetArrayElements(v, arr)
	if err != nil {
		e.arr.Release()
		return nil, err
	}
	return e, nil
}

// Kind returns the element kind.
func (e *Element) Kind() jvmbridge.Kind { return e.kind }

// IsCopy reports whether the pinned buffer is a copy of the array storage
// rather than an alias of it.
func (e *Element) IsCopy() bool { return e.isCopy }

// Value reads the element. Object elements are returned as owned locals.
func (e *Element) Value() (value.Value, error) {
	if e.closed {
		return value.Value{}, errors.Unsupported(errors.PhaseArray, "element accessor closed")
	}
	if e.kind == jvmbridge.KindObject {
		r, err := jni.GetObjectArrayElement(e.vm, e.arr, e.index)
		if err != nil {
			return value.Value{}, err
		}
		return value.Object(r), nil
	}
	return value.FromJValue(e.vm, e.kind, e.elems[e.index]), nil
}

// Set writes the element. Primitive writes are committed to the array at
// once; the buffer stays pinned until Close.
func (e *Element) Set(val value.Value) error {
	if e.closed {
		return errors.Unsupported(errors.PhaseArray, "element accessor closed")
	}
	if val.Kind() != e.kind {
		return errors.TypeMismatch(errors.PhaseArray, e.kind.String(), val.Kind().String())
	}
	if e.kind == jvmbridge.KindObject {
		return jni.SetObjectArrayElement(e.vm, e.arr, e.index, val.Ref())
	}

	e.elems[e.index] = val.JValue()
	e.dirty = true
	return jni.ReleaseArrayElements(e.vm, e.arr, e.elems, jvmbridge.ReleaseCommit)
}

// Close unpins the buffer: written buffers are copied back and freed,
// untouched ones are discarded. Closing twice is a no-op.
func (e *Element) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	defer e.arr.Release()

	if e.kind == jvmbridge.KindObject {
		return nil
	}
	mode := jvmbridge.ReleaseAbort
	if e.dirty {
		mode = jvmbridge.ReleaseCopyBack
	}
	err := jni.ReleaseArrayElements(e.vm, e.arr, e.elems, mode)
	e.elems = nil
	return err
}
