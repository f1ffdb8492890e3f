// Package jvmbridge provides a Go bridge to a managed, reflective object
// runtime reachable only through a handle-based foreign interface (the JNI
// model).
//
// The root package defines the primitive contract the bridge is built on:
// the per-thread Env function table, the JavaVM invocation interface, raw
// handles (Ref, MethodID, FieldID) and the untyped JValue slot. Everything
// else lives in subpackages.
//
// # Architecture Overview
//
//	jvmbridge/        Primitive contract (Env, JavaVM, Ref, JValue, Kind)
//	├── errors/       Structured error taxonomy
//	├── vm/           Runtime context: start-up and per-thread env registry
//	├── ref/          Reference-counted local/global handle ownership
//	├── fault/        Exception bridge (pending fault <-> Go error)
//	├── jni/          Checked primitive wrappers
//	├── value/        Tagged variant over every foreign value kind
//	├── class/        Reflective type/method model, invocation, arrays
//	├── proxy/        Go implementations of foreign interfaces
//	└── minivm/       In-process reference runtime implementing Env
//
// # Quick Start
//
//	v, err := vm.Start(minivm.Create, vm.Options{Version: vm.Version16})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Destroy()
//
//	sb, err := class.New(v, "java.lang.StringBuilder")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sb.Release()
//
//	hello, _ := class.NewString(v, "hello")
//	defer hello.Release()
//	if _, err := class.Call(v, sb, "append", value.Object(hello)); err != nil {
//	    log.Fatal(err)
//	}
//	s, _ := class.ToString(v, sb)
//	fmt.Println(s) // "hello"
//
// # Thread Affinity
//
// An Env belongs to exactly one OS thread. Bridge operations resolve the env
// of the calling thread through the vm package on every call; attaching a
// goroutine locks it to its OS thread until it detaches.
//
// # Reference Lifetime
//
// Handles returned by primitives are local references. The ref package wraps
// them in reference-counted holders whose last Release deletes the foreign
// reference exactly once.
package jvmbridge
