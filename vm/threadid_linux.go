//go:build linux

package vm

import "golang.org/x/sys/unix"

// threadID identifies the calling OS thread. It is only stable for a
// goroutine locked to its thread.
func threadID() uint64 {
	return uint64(unix.Gettid())
}
