package actor

import (
	"github.com/hedisam/goexec/internal/pid"
)

// PID addresses an actor or a future
type PID struct {
	pid pid.PID
}

func (p *PID) ID() string {
	return p.pid.ID()
}

func (p *PID) String() string {
	return "PID<" + p.pid.ID() + ">"
}

func (p *PID) sendUserMessage(message interface{}) bool {
	return p.pid.Mailbox().SendUserMessage(message)
}

// sendSystemMessage returns false when the actor has already terminated
func (p *PID) sendSystemMessage(message interface{}) bool {
	return p.pid.Mailbox().SendSystemMessage(message)
}
