package actor

import (
	"go.uber.org/zap"

	"github.com/hedisam/goexec/sysmsg"
)

type systemHandler struct {
	actor *Actor
}

// HandleSystemMessage is called by the event loop for system messages
func (h *systemHandler) HandleSystemMessage(message interface{}) (bool, interface{}) {
	switch msg := message.(type) {
	case sysmsg.Exit:
		// a monitored actor terminated
		return true, msg
	case sysmsg.Monitor:
		parent, ok := msg.Parent.(*PID)
		if !ok {
			break
		}
		if msg.Revert {
			h.actor.demonitoredBy(parent)
		} else {
			h.actor.monitoredBy(parent)
		}
	default:
		h.actor.logger.Warn("unknown system message", zap.Any("message", msg))
	}
	return false, nil
}
