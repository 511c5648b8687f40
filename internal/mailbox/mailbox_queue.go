package mailbox

import (
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/hedisam/goexec/sysmsg"
)

type queueMailbox struct {
	userMailbox *queue.RingBuffer
	sysMailbox  *queue.RingBuffer
	done        chan struct{}
	signal      chan struct{}
	disposeOnce sync.Once
}

// NewRingBufferQueueMailbox returns a mailbox backed by two lock-free ring buffers
func NewRingBufferQueueMailbox(userCap, sysCap uint64) Mailbox {
	return &queueMailbox{
		userMailbox: queue.NewRingBuffer(userCap),
		sysMailbox:  queue.NewRingBuffer(sysCap),
		done:        make(chan struct{}),
		signal:      make(chan struct{}, 1),
	}
}

func (m *queueMailbox) SendUserMessage(message interface{}) bool {
	return m.put(m.userMailbox, message)
}

func (m *queueMailbox) SendSystemMessage(message interface{}) bool {
	return m.put(m.sysMailbox, message)
}

func (m *queueMailbox) put(rb *queue.RingBuffer, message interface{}) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	// Put blocks while the buffer is full and fails only once disposed
	if err := rb.Put(message); err != nil {
		return false
	}
	notify(m.signal)
	return true
}

// next pops a message without blocking, system messages first
func (m *queueMailbox) next() (interface{}, bool) {
	for _, rb := range []*queue.RingBuffer{m.sysMailbox, m.userMailbox} {
		if rb.Len() == 0 {
			continue
		}
		msg, err := rb.Get()
		if err != nil {
			return nil, false
		}
		return msg, true
	}
	return nil, false
}

func (m *queueMailbox) Receive(handler MessageHandler) {
listen:
	select {
	case <-m.done:
		handler(ErrDisposed)
		return
	default:
	}
	if msg, ok := m.next(); ok {
		if !handler(msg) {
			return
		}
		goto listen
	}
	select {
	case <-m.done:
		handler(ErrDisposed)
		return
	case <-m.signal:
		goto listen
	}
}

func (m *queueMailbox) ReceiveWithTimeout(d time.Duration, handler MessageHandler) {
	if d <= 0 {
		m.Receive(handler)
		return
	}
	timer := time.NewTimer(d)
	defer stopTimer(timer)
listen:
	select {
	case <-m.done:
		handler(ErrDisposed)
		return
	default:
	}
	if msg, ok := m.next(); ok {
		if !handler(msg) {
			return
		}
		resetTimer(timer, d, false)
		goto listen
	}
	select {
	case <-m.done:
		handler(ErrDisposed)
		return
	case <-m.signal:
		goto listen
	case <-timer.C:
		if !handler(sysmsg.Timeout{Duration: d}) {
			return
		}
		resetTimer(timer, d, true)
		goto listen
	}
}

func (m *queueMailbox) Len() int {
	return int(m.userMailbox.Len() + m.sysMailbox.Len())
}

func (m *queueMailbox) Dispose() {
	m.Close()
}

func (m *queueMailbox) Close() (pending []interface{}) {
	m.disposeOnce.Do(func() {
		close(m.done)
		// the receiver is gone, a non-empty buffer can't block Get
		for m.sysMailbox.Len() > 0 {
			msg, err := m.sysMailbox.Get()
			if err != nil {
				break
			}
			pending = append(pending, msg)
		}
		m.userMailbox.Dispose()
		m.sysMailbox.Dispose()
	})
	return pending
}
