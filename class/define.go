package class

import (
	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/vm"
)

// SystemClassLoader returns ClassLoader.getSystemClassLoader().
func SystemClassLoader(v *vm.VM) (*ref.Ref, error) {
	raw, err := callStatic(v, "java/lang/ClassLoader", "getSystemClassLoader", "()Ljava/lang/ClassLoader;", jvmbridge.KindObject)
	if err != nil {
		return nil, err
	}
	return ref.Local(v, raw.Ref()), nil
}

// DefineType defines a class from raw class bytes in the system class
// loader. The bytes are passed to the runtime unchanged.
func DefineType(v *vm.VM, name string, data []byte) (*Class, error) {
	loader, err := SystemClassLoader(v)
	if err != nil {
		return nil, err
	}
	defer loader.Release()

	r, err := jni.DefineClass(v, InternalName(name), loader, data)
	if err != nil {
		return nil, err
	}
	return Wrap(v, r), nil
}
