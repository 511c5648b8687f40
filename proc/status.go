package proc

import (
	"fmt"
	"syscall"
)

// ExitStatus describes how a process terminated. Blocking and polled waits on the same
// kind of termination produce equal values.
type ExitStatus struct {
	// Code is the exit code, -1 when the process was killed by a signal
	Code     int
	Signaled bool
	Signal   syscall.Signal
	CoreDump bool
}

func (s ExitStatus) Success() bool {
	return !s.Signaled && s.Code == 0
}

func (s ExitStatus) String() string {
	if s.Signaled {
		msg := "signal: " + s.Signal.String()
		if s.CoreDump {
			msg += " (core dumped)"
		}
		return msg
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Err returns nil for a successful exit and an *ExitError otherwise
func (s ExitStatus) Err() error {
	if s.Success() {
		return nil
	}
	return &ExitError{Status: s}
}

type ExitError struct {
	Status ExitStatus
}

func (e *ExitError) Error() string {
	return e.Status.String()
}
