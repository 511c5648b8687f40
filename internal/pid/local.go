package pid

import (
	"github.com/rs/xid"

	"github.com/hedisam/goexec/internal/mailbox"
)

type localPID struct {
	id       xid.ID
	m        mailbox.Mailbox
	shutdown func()
}

func NewPID(m mailbox.Mailbox) PID {
	return &localPID{
		id:       xid.New(),
		m:        m,
		shutdown: func() {},
	}
}

func (pid *localPID) ID() string {
	return pid.id.String()
}

func (pid *localPID) Mailbox() mailbox.Mailbox {
	return pid.m
}

func (pid *localPID) ShutdownFn() func() {
	return pid.shutdown
}

func (pid *localPID) SetShutdownFn(shutdown func()) {
	pid.shutdown = shutdown
}
