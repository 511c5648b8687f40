package eventloop

import (
	"time"

	"github.com/hedisam/goexec/internal/task"
)

// Backend is serviced by the loop on every iteration. A backend implementing
// reactor.Registrar makes the loop evented: its tasks run with a context that lets
// them register process waits.
type Backend interface {
	// Tick processes pending work, timeout bounds each blocking probe
	Tick(timeout time.Duration) error
	Pending() int
	// Interval is the longest the loop may wait for a message while work is pending
	Interval() time.Duration
	Wakeup()
	Shutdown()
}

// BackendFactory builds the backend of a loop around the loop's scheduler
type BackendFactory func(sched *task.Scheduler) Backend

// NopBackend serves loops that only handle messages
type NopBackend struct{}

func (NopBackend) Tick(time.Duration) error { return nil }
func (NopBackend) Pending() int             { return 0 }
func (NopBackend) Interval() time.Duration  { return 0 }
func (NopBackend) Wakeup()                  {}
func (NopBackend) Shutdown()                {}
