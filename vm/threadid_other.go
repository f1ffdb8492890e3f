//go:build !linux && !windows

package vm

import (
	"bytes"
	"runtime"
	"strconv"
)

// threadID falls back to the goroutine id where the OS thread id is not
// available through x/sys. Attached goroutines are locked to their thread,
// so the two identities coincide for every attached caller.
func threadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
