package pid

import (
	"github.com/hedisam/goexec/internal/mailbox"
)

type PID interface {
	ID() string
	Mailbox() mailbox.Mailbox

	// ShutdownFn returns a function that cancels the actor's context.
	ShutdownFn() func()
	SetShutdownFn(fn func())
}
