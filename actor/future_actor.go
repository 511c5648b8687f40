package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/hedisam/goexec/internal/mailbox"
	"github.com/hedisam/goexec/internal/pid"
	"github.com/hedisam/goexec/sysmsg"
)

var (
	ErrTargetTerminated = errors.New("target actor terminated before sending a response")
	ErrTimeout          = errors.New("timeout")
)

// Future receives a single reply
type Future struct {
	pid    *PID
	target *PID
}

func NewFuture() *Future {
	return &Future{
		pid: &PID{pid: pid.NewFuturePID()},
	}
}

func (f *Future) Self() *PID {
	return f.pid
}

// Send sends message to the target after asking to be notified of its termination,
// so Recv doesn't hang if the target dies without replying
func (f *Future) Send(to *PID, message interface{}) {
	if !to.sendSystemMessage(sysmsg.Monitor{Parent: f.pid}) {
		// already terminated
		f.pid.sendSystemMessage(sysmsg.Exit{
			Who:      to,
			Reason:   sysmsg.Reason{Type: sysmsg.NoProc},
			Relation: sysmsg.Monitored,
		})
		return
	}
	f.target = to
	Send(to, message)
}

func (f *Future) Recv() (response interface{}, err error) {
	f.pid.pid.Mailbox().Receive(func(message interface{}) (loop bool) {
		response, err = f.result(message)
		return false
	})
	f.demonitor()
	return
}

func (f *Future) RecvWithTimeout(d time.Duration) (response interface{}, err error) {
	f.pid.pid.Mailbox().ReceiveWithTimeout(d, func(message interface{}) (loop bool) {
		response, err = f.result(message)
		return false
	})
	f.demonitor()
	return
}

func (f *Future) result(message interface{}) (interface{}, error) {
	switch msg := message.(type) {
	case sysmsg.Exit:
		return nil, ErrTargetTerminated
	case sysmsg.Timeout:
		return nil, ErrTimeout
	default:
		if msg == mailbox.ErrDisposed {
			return nil, fmt.Errorf("future: %w", mailbox.ErrDisposed)
		}
		return msg, nil
	}
}

func (f *Future) demonitor() {
	if f.target == nil {
		return
	}
	f.target.sendSystemMessage(sysmsg.Monitor{Parent: f.pid, Revert: true})
	f.target = nil
}

// Dispose releases the future, pending and later replies are dropped
func (f *Future) Dispose() {
	f.pid.pid.ShutdownFn()()
}
