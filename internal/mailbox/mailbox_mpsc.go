package mailbox

import (
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/hedisam/goexec/sysmsg"
)

type mpscMailbox struct {
	userMailbox *queue.Queue
	sysMailbox  *queue.Queue
	done        chan struct{}
	signal      chan struct{}
	disposeOnce sync.Once
}

// NewMPSCMailbox returns an unbounded mailbox, senders never block
func NewMPSCMailbox() Mailbox {
	return &mpscMailbox{
		userMailbox: queue.New(defaultUserMailboxCap),
		sysMailbox:  queue.New(defaultSysMailboxCap),
		done:        make(chan struct{}),
		signal:      make(chan struct{}, 1),
	}
}

func (m *mpscMailbox) SendUserMessage(message interface{}) bool {
	return m.push(m.userMailbox, message)
}

func (m *mpscMailbox) SendSystemMessage(message interface{}) bool {
	return m.push(m.sysMailbox, message)
}

func (m *mpscMailbox) push(q *queue.Queue, message interface{}) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	// Put fails only once disposed
	if err := q.Put(message); err != nil {
		return false
	}
	notify(m.signal)
	return true
}

// next pops a message without blocking, system messages first. Only the receiving
// goroutine takes items, so a non-empty queue can't block Get.
func (m *mpscMailbox) next() (interface{}, bool) {
	for _, q := range []*queue.Queue{m.sysMailbox, m.userMailbox} {
		if q.Empty() {
			continue
		}
		items, err := q.Get(1)
		if err != nil || len(items) == 0 {
			return nil, false
		}
		return items[0], true
	}
	return nil, false
}

func (m *mpscMailbox) Receive(handler MessageHandler) {
	for {
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
			continue
		}
		select {
		case <-m.done:
			handler(ErrDisposed)
			return
		case <-m.signal:
		}
	}
}

func (m *mpscMailbox) ReceiveWithTimeout(d time.Duration, handler MessageHandler) {
	if d <= 0 {
		m.Receive(handler)
		return
	}
	timer := time.NewTimer(d)
	defer stopTimer(timer)
	for {
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
			continue
		}
		select {
		case <-m.done:
			handler(ErrDisposed)
			return
		case <-m.signal:
		case <-timer.C:
			if !handler(sysmsg.Timeout{Duration: d}) {
				return
			}
			resetTimer(timer, d, true)
		}
	}
}

func (m *mpscMailbox) Len() int {
	return int(m.userMailbox.Len() + m.sysMailbox.Len())
}

func (m *mpscMailbox) Dispose() {
	m.Close()
}

func (m *mpscMailbox) Close() (pending []interface{}) {
	m.disposeOnce.Do(func() {
		close(m.done)
		m.userMailbox.Dispose()
		pending = m.sysMailbox.Dispose()
	})
	return pending
}
