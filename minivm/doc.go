// Package minivm is an in-process object runtime that implements the
// jvmbridge Env and JavaVM contracts. It backs the bridge's tests, the
// jbridge command and embedders that want the bridge without a foreign
// runtime.
//
// The runtime boots with a small class library: java.lang.Object, Class,
// String, StringBuilder, the primitive boxes, the Throwable hierarchy,
// System, Math, ClassLoader and java.lang.reflect (Method, Constructor,
// Field, Proxy, InvocationHandler).
//
// Further classes come from three places:
//
//   - Define, for classes whose methods are Go functions
//   - RegisterHost, which publishes the exported methods of a Go value as
//     static methods
//   - DefineClass with a WebAssembly module, whose exported functions
//     become static methods (see SignatureSection)
//
// # References
//
// Local references are per thread and live in a stack of frames; globals
// live until DeleteGlobalRef. Both are handles into runtime-wide tables, so
// a stale or foreign reference resolves to null instead of aliasing another
// object. Start the VM with -Xcheck:jni to log such misuse.
//
// # Threads
//
// Every AttachCurrentThread call returns a fresh Thread. The runtime does
// not know about OS threads: callers (the vm package) keep one env per
// thread.
package minivm
