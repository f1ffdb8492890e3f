package jvmbridge

// VMOption is a single runtime start-up option string.
type VMOption struct {
	ExtraInfo    any
	OptionString string
}

// InitArgs are the arguments handed to a CreateFunc.
type InitArgs struct {
	Options            []VMOption
	Version            Version
	IgnoreUnrecognized bool
}

// CreateFunc creates a runtime and returns it together with the env of the
// calling thread. It is the resolved "create runtime" entry point of the
// foreign runtime library; locating and loading that library is the
// caller's business.
type CreateFunc func(args *InitArgs) (JavaVM, Env, Status)

// NativeFunc is a Go function bound to a foreign native method. args holds
// the declared parameters; this is the receiver (or the class for static
// methods).
type NativeFunc func(env Env, this Ref, args []JValue) JValue

// NativeMethod binds a NativeFunc to a method name and descriptor.
type NativeMethod struct {
	Fn        NativeFunc
	Name      string
	Signature string
}

// JavaVM is the invocation interface of a running runtime.
type JavaVM interface {
	// AttachCurrentThread returns the env for the calling OS thread,
	// creating it if needed.
	AttachCurrentThread(version Version) (Env, Status)

	// DetachCurrentThread releases env and every local reference it owns.
	DetachCurrentThread(env Env) Status

	// DestroyJavaVM shuts the runtime down.
	DestroyJavaVM() Status
}

// Env is the per-thread primitive function table. An Env must only be used
// from the OS thread it was attached on.
//
// Primitives that fault leave a pending throwable which the caller must
// inspect with ExceptionCheck before making the next call.
type Env interface {
	GetVersion() Version
	GetJavaVM() (JavaVM, Status)

	DefineClass(name string, loader Ref, data []byte) Ref
	FindClass(name string) Ref
	GetObjectClass(obj Ref) Ref
	IsAssignableFrom(sub, sup Ref) bool
	IsSameObject(a, b Ref) bool
	IsInstanceOf(obj, cls Ref) bool

	NewLocalRef(r Ref) Ref
	DeleteLocalRef(r Ref) error
	NewGlobalRef(r Ref) Ref
	DeleteGlobalRef(r Ref) error
	PushLocalFrame(capacity int32) Status
	PopLocalFrame(result Ref) Ref

	Throw(t Ref) Status
	ThrowNew(cls Ref, message string) Status
	ExceptionOccurred() Ref
	ExceptionCheck() bool
	ExceptionClear()
	ExceptionDescribe()

	GetMethodID(cls Ref, name, sig string) MethodID
	GetStaticMethodID(cls Ref, name, sig string) MethodID
	FromReflectedMethod(method Ref) MethodID
	ToReflectedMethod(cls Ref, id MethodID, isStatic bool) Ref

	GetFieldID(cls Ref, name, sig string) FieldID
	GetStaticFieldID(cls Ref, name, sig string) FieldID
	GetField(obj Ref, id FieldID) JValue
	SetField(obj Ref, id FieldID, v JValue)
	GetStaticField(cls Ref, id FieldID) JValue
	SetStaticField(cls Ref, id FieldID, v JValue)

	CallBooleanMethodA(obj Ref, id MethodID, args []JValue) bool
	CallByteMethodA(obj Ref, id MethodID, args []JValue) int8
	CallCharMethodA(obj Ref, id MethodID, args []JValue) uint16
	CallShortMethodA(obj Ref, id MethodID, args []JValue) int16
	CallIntMethodA(obj Ref, id MethodID, args []JValue) int32
	CallLongMethodA(obj Ref, id MethodID, args []JValue) int64
	CallFloatMethodA(obj Ref, id MethodID, args []JValue) float32
	CallDoubleMethodA(obj Ref, id MethodID, args []JValue) float64
	CallObjectMethodA(obj Ref, id MethodID, args []JValue) Ref
	CallVoidMethodA(obj Ref, id MethodID, args []JValue)

	CallStaticBooleanMethodA(cls Ref, id MethodID, args []JValue) bool
	CallStaticByteMethodA(cls Ref, id MethodID, args []JValue) int8
	CallStaticCharMethodA(cls Ref, id MethodID, args []JValue) uint16
	CallStaticShortMethodA(cls Ref, id MethodID, args []JValue) int16
	CallStaticIntMethodA(cls Ref, id MethodID, args []JValue) int32
	CallStaticLongMethodA(cls Ref, id MethodID, args []JValue) int64
	CallStaticFloatMethodA(cls Ref, id MethodID, args []JValue) float32
	CallStaticDoubleMethodA(cls Ref, id MethodID, args []JValue) float64
	CallStaticObjectMethodA(cls Ref, id MethodID, args []JValue) Ref
	CallStaticVoidMethodA(cls Ref, id MethodID, args []JValue)

	AllocObject(cls Ref) Ref
	NewObjectA(cls Ref, ctor MethodID, args []JValue) Ref

	NewStringUTF(s string) Ref
	GetStringUTFChars(str Ref) (string, bool)

	GetArrayLength(arr Ref) int32
	NewObjectArray(length int32, elem Ref, initial Ref) Ref
	GetObjectArrayElement(arr Ref, index int32) Ref
	SetObjectArrayElement(arr Ref, index int32, v Ref)
	NewPrimitiveArray(kind Kind, length int32) Ref
	// GetArrayElements returns the elements of a primitive array and whether
	// the slice is a copy. Writes to a non-copy slice are visible at once.
	GetArrayElements(arr Ref) (elems []JValue, isCopy bool)
	ReleaseArrayElements(arr Ref, elems []JValue, mode ReleaseMode)

	RegisterNatives(cls Ref, methods []NativeMethod) Status
}
