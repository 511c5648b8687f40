package sysmsg

import (
	"time"
)

// Exit describes an exit event emitted by a monitored actor
type Exit struct {
	// Who is the actor that terminated
	Who interface{}
	// Reason behind the termination
	Reason Reason
	// Relation describes the relationship between terminated actor and the one who received the message
	Relation Relation
}

func (e Exit) systemMessage() {}

// Shutdown asks an actor to stop its event loop. Parked tasks are resumed with an error.
type Shutdown struct {
	// Parent is the commanding actor, nil when sent from outside the actor system
	Parent interface{}
}

func (s Shutdown) systemMessage() {}

// Monitor describes a request sent to an actor to be monitored/demonitor by the parent
type Monitor struct {
	Parent interface{}
	// Revert is true when we ask to get demonitor-ed from parent
	Revert bool
}

func (m Monitor) systemMessage() {}

// Timeout is delivered to a receive handler when no message arrived in time
type Timeout struct {
	Duration time.Duration
}

func (t Timeout) systemMessage() {}
