package reactor

import (
	"fmt"
	"time"

	"github.com/hedisam/goexec/internal/task"
	"github.com/hedisam/goexec/proc"
)

// EventKind is what a monitor waits for
type EventKind int

const (
	// Wait completes when the process exits
	Wait EventKind = iota
)

func (k EventKind) String() string {
	switch k {
	case Wait:
		return "wait"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Process is the part of a process handle the reactor needs. PollExit must not block
// longer than timeout; exited is false when the process is still running.
type Process interface {
	PollExit(timeout time.Duration) (status proc.ExitStatus, exited bool, err error)
}

// Monitor binds a suspended task to the process it waits on
type Monitor struct {
	Task    *task.Task
	Process Process
	Kind    EventKind
}

func (m *Monitor) String() string {
	return fmt.Sprintf("Monitor(task=%s, kind=%s, process=%v)", m.Task.ID(), m.Kind, m.Process)
}
