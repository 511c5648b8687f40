package mailbox

import (
	"sync"
	"time"

	"github.com/hedisam/goexec/sysmsg"
)

// FutureMailbox holds a single reply
type FutureMailbox struct {
	m           chan interface{}
	done        chan struct{}
	disposeOnce sync.Once
}

func NewFutureMailbox() *FutureMailbox {
	return &FutureMailbox{
		m:    make(chan interface{}, 1),
		done: make(chan struct{}),
	}
}

func (f *FutureMailbox) SendUserMessage(message interface{}) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case f.m <- message:
	default:
		// a reply is already waiting, later ones are dropped
	}
	return true
}

func (f *FutureMailbox) SendSystemMessage(message interface{}) bool {
	return f.SendUserMessage(message)
}

func (f *FutureMailbox) Receive(handler MessageHandler) {
	select {
	case msg := <-f.m:
		handler(msg)
	case <-f.done:
		handler(ErrDisposed)
	}
}

func (f *FutureMailbox) ReceiveWithTimeout(d time.Duration, handler MessageHandler) {
	if d <= 0 {
		f.Receive(handler)
		return
	}
	timer := time.NewTimer(d)
	defer stopTimer(timer)
	select {
	case msg := <-f.m:
		handler(msg)
	case <-timer.C:
		handler(sysmsg.Timeout{Duration: d})
	case <-f.done:
		handler(ErrDisposed)
	}
}

func (f *FutureMailbox) Len() int {
	return len(f.m)
}

func (f *FutureMailbox) Dispose() {
	f.disposeOnce.Do(func() {
		close(f.done)
	})
}

// Close disposes the mailbox, a future has no system messages of its own
func (f *FutureMailbox) Close() []interface{} {
	f.Dispose()
	return nil
}
