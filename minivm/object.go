package minivm

import (
	"fmt"
	"sync"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

// Slot holds one value: Prim for primitive kinds, Obj for references.
type Slot struct {
	Obj  *Object
	Prim jvmbridge.JValue
}

// Prim builds a primitive slot.
func Prim(v jvmbridge.JValue) Slot { return Slot{Prim: v} }

// Obj builds a reference slot. A nil o is null.
func Obj(o *Object) Slot { return Slot{Obj: o} }

// Object is a heap object. Native carries the payload of runtime-provided
// classes:
//
//	java/lang/String        string
//	java/lang/Class         *Class
//	primitive arrays        []jvmbridge.JValue
//	object arrays           []*Object
//	reflect Method, Field   *Method, *Field
//	boxes                   jvmbridge.JValue
//	proxy instances         *Object (the invocation handler)
type Object struct {
	Class  *Class
	Native any
	fields map[*Field]Slot
	mu     sync.Mutex
	hash   int32
}

func (o *Object) field(f *Field) Slot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fields[f]
}

func (o *Object) setField(f *Field, s Slot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fields == nil {
		o.fields = make(map[*Field]Slot)
	}
	o.fields[f] = s
}

// String returns the Go text of a java/lang/String object.
func (o *Object) String() string {
	if o == nil {
		return "null"
	}
	if s, ok := o.Native.(string); ok {
		return s
	}
	return fmt.Sprintf("%s@%p", o.Class.DottedName(), o)
}

func (o *Object) primitives() ([]jvmbridge.JValue, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	elems, ok := o.Native.([]jvmbridge.JValue)
	return elems, ok
}

func (o *Object) objects() ([]*Object, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	elems, ok := o.Native.([]*Object)
	return elems, ok
}

// Thrown is the Go error form of a throwable raised inside the runtime.
type Thrown struct {
	Obj *Object
}

func (t *Thrown) Error() string {
	return describeThrowable(t.Obj)
}
