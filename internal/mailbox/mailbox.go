package mailbox

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultUserMailboxCap = 100
	defaultSysMailboxCap  = 10
)

const (
	// KindRing is a bounded ring buffer mailbox, senders block when it's full
	KindRing = "ring"
	// KindMPSC is an unbounded multi-producer single-consumer queue
	KindMPSC = "mpsc"
)

// ErrDisposed is passed to the handler once the mailbox has been disposed
var ErrDisposed = errors.New("mailbox's channel is closed")

// MessageHandler handles a single message, returning false stops the receive loop
type MessageHandler func(message interface{}) (loop bool)

// Mailbox is the queue an actor's event loop consumes. Only one goroutine may receive.
type Mailbox interface {
	// SendUserMessage enqueues message, it returns false once the mailbox is disposed
	SendUserMessage(message interface{}) bool
	// SendSystemMessage enqueues a message that is delivered ahead of pending user messages
	SendSystemMessage(message interface{}) bool
	Receive(handler MessageHandler)
	ReceiveWithTimeout(d time.Duration, handler MessageHandler)
	Len() int
	Dispose()
	// Close disposes the mailbox and returns the system messages that were never received
	Close() (pending []interface{})
}

// New returns a mailbox of the given kind. capacity is ignored by unbounded kinds.
func New(kind string, capacity uint64) (Mailbox, error) {
	if capacity == 0 {
		capacity = defaultUserMailboxCap
	}
	switch kind {
	case KindRing, "":
		return NewRingBufferQueueMailbox(capacity, defaultSysMailboxCap), nil
	case KindMPSC:
		return NewMPSCMailbox(), nil
	default:
		return nil, fmt.Errorf("unknown mailbox kind %q", kind)
	}
}

func notify(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
		// a wakeup is already pending
	}
}

func resetTimer(timer *time.Timer, d time.Duration, triggered bool) {
	if !triggered {
		stopTimer(timer)
	}
	timer.Reset(d)
}

func stopTimer(timer *time.Timer) {
	// drain the channel
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
