package wire

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isEPIPE reports whether err ultimately wraps EPIPE, the syscall-level
// signal for a broken pipe on a stream socket.
func isEPIPE(err error) bool {
	return errors.Is(err, unix.EPIPE)
}
