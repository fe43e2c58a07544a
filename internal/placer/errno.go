package placer

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// connectivityErrnos are the errno values that indicate the destination
// filesystem itself is unreachable rather than the operation being invalid.
// Typical sources are a network mount whose server went away or a mount
// point with nothing mounted on it.
var connectivityErrnos = map[syscall.Errno]struct{}{
	unix.EIO:          {},
	unix.ENXIO:        {},
	unix.ENODEV:       {},
	unix.ENOTCONN:     {},
	unix.ETIMEDOUT:    {},
	unix.ECONNREFUSED: {},
	unix.ECONNRESET:   {},
	unix.ECONNABORTED: {},
	unix.ENETDOWN:     {},
	unix.ENETUNREACH:  {},
	unix.EHOSTDOWN:    {},
	unix.EHOSTUNREACH: {},
	unix.ESTALE:       {},
}

// IsConnectivityError reports whether err stems from an unreachable
// filesystem. Permission and space problems are deliberately excluded; those
// need operator attention, not a silent fallback.
func IsConnectivityError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	_, ok := connectivityErrnos[errno]
	return ok
}
