package pid

import (
	"github.com/rs/xid"

	"github.com/hedisam/goexec/internal/mailbox"
)

type futurePID struct {
	id      xid.ID
	mailbox *mailbox.FutureMailbox
}

func NewFuturePID() PID {
	return &futurePID{
		id:      xid.New(),
		mailbox: mailbox.NewFutureMailbox(),
	}
}

func (f *futurePID) ID() string {
	return f.id.String()
}

func (f *futurePID) Mailbox() mailbox.Mailbox {
	return f.mailbox
}

func (f *futurePID) ShutdownFn() func() {
	return f.mailbox.Dispose
}

func (f *futurePID) SetShutdownFn(func()) {}
