package proc

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pidfdWaiter polls a pidfd, which becomes readable when the process exits
type pidfdWaiter struct {
	fd int
}

func newExitWaiter(pid int) exitWaiter {
	fd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		// kernels before 5.3
		return newBackoffWaiter()
	}
	return &pidfdWaiter{fd: fd}
}

func (w *pidfdWaiter) wait(d time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
	ms := int((d + time.Millisecond - 1) / time.Millisecond)
	for {
		_, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll pidfd: %w", err)
		}
		return nil
	}
}

func (w *pidfdWaiter) close() error {
	return unix.Close(w.fd)
}
