package mailbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hedisam/goexec/sysmsg"
)

type MailboxSuite struct {
	suite.Suite
	kind string
	m    Mailbox
}

func TestRingMailbox(t *testing.T) {
	suite.Run(t, &MailboxSuite{kind: KindRing})
}

func TestMPSCMailbox(t *testing.T) {
	suite.Run(t, &MailboxSuite{kind: KindMPSC})
}

func (s *MailboxSuite) SetupTest() {
	var err error
	s.m, err = New(s.kind, 16)
	s.Require().NoError(err)
}

func (s *MailboxSuite) TearDownTest() {
	s.m.Dispose()
}

func (s *MailboxSuite) collect(n int) []interface{} {
	var got []interface{}
	s.m.Receive(func(message interface{}) bool {
		got = append(got, message)
		return len(got) < n
	})
	return got
}

func (s *MailboxSuite) TestUserMessagesInOrder() {
	for i := 0; i < 5; i++ {
		s.m.SendUserMessage(i)
	}
	s.Equal(5, s.m.Len())
	s.Equal([]interface{}{0, 1, 2, 3, 4}, s.collect(5))
	s.Zero(s.m.Len())
}

func (s *MailboxSuite) TestSystemMessagesFirst() {
	s.m.SendUserMessage("user")
	s.m.SendSystemMessage(sysmsg.Shutdown{})
	s.Equal([]interface{}{sysmsg.Shutdown{}, "user"}, s.collect(2))
}

func (s *MailboxSuite) TestReceiveBlocksUntilMessage() {
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.m.SendUserMessage("late")
	}()
	s.Equal([]interface{}{"late"}, s.collect(1))
}

func (s *MailboxSuite) TestReceiveWithTimeout() {
	var got interface{}
	begin := time.Now()
	s.m.ReceiveWithTimeout(20*time.Millisecond, func(message interface{}) bool {
		got = message
		return false
	})
	s.Equal(sysmsg.Timeout{Duration: 20 * time.Millisecond}, got)
	s.GreaterOrEqual(time.Since(begin), 20*time.Millisecond)

	s.m.SendUserMessage("now")
	s.m.ReceiveWithTimeout(time.Second, func(message interface{}) bool {
		got = message
		return false
	})
	s.Equal("now", got)
}

func (s *MailboxSuite) TestDispose() {
	s.m.Dispose()
	s.m.Dispose()
	s.m.SendUserMessage("dropped")

	s.Equal([]interface{}{ErrDisposed}, s.collect(10))
}

func (s *MailboxSuite) TestMailboxesAreIsolated() {
	other, err := New(s.kind, 16)
	s.Require().NoError(err)
	defer other.Dispose()

	s.m.SendUserMessage("mine")
	other.SendSystemMessage(sysmsg.Shutdown{})
	other.SendUserMessage("theirs")

	s.Equal(1, s.m.Len())
	s.Equal([]interface{}{"mine"}, s.collect(1))

	var got []interface{}
	other.Receive(func(message interface{}) bool {
		got = append(got, message)
		return len(got) < 2
	})
	s.Equal([]interface{}{sysmsg.Shutdown{}, "theirs"}, got)
}

func (s *MailboxSuite) TestCloseReturnsPendingSystemMessages() {
	s.True(s.m.SendUserMessage("user"))
	s.True(s.m.SendSystemMessage(sysmsg.Monitor{Parent: "a"}))
	s.True(s.m.SendSystemMessage(sysmsg.Monitor{Parent: "b"}))

	pending := s.m.Close()
	s.Equal([]interface{}{sysmsg.Monitor{Parent: "a"}, sysmsg.Monitor{Parent: "b"}}, pending)
	s.Empty(s.m.Close())

	s.False(s.m.SendUserMessage("late"))
	s.False(s.m.SendSystemMessage(sysmsg.Shutdown{}))
}

func (s *MailboxSuite) TestManySenders() {
	const senders, each = 4, 50
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				s.m.SendUserMessage(j)
			}
		}()
	}

	got := s.collect(senders * each)
	wg.Wait()
	s.Len(got, senders*each)
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("carrier-pigeon", 1)
	assert.Error(t, err)

	m, err := New("", 0)
	require.NoError(t, err)
	m.Dispose()
}

func TestFutureMailboxKeepsFirstReply(t *testing.T) {
	f := NewFutureMailbox()
	defer f.Dispose()

	f.SendUserMessage("first")
	f.SendSystemMessage("second")
	assert.Equal(t, 1, f.Len())

	var got interface{}
	f.Receive(func(message interface{}) bool {
		got = message
		return false
	})
	assert.Equal(t, "first", got)
}

func TestFutureMailboxRejectsAfterDispose(t *testing.T) {
	f := NewFutureMailbox()
	assert.True(t, f.SendUserMessage("reply"))
	assert.True(t, f.SendUserMessage("dropped, but the future is alive"))
	assert.Nil(t, f.Close())
	assert.False(t, f.SendSystemMessage("late"))
}

func TestFutureMailboxTimeoutAndDispose(t *testing.T) {
	f := NewFutureMailbox()

	var got interface{}
	f.ReceiveWithTimeout(10*time.Millisecond, func(message interface{}) bool {
		got = message
		return false
	})
	assert.Equal(t, sysmsg.Timeout{Duration: 10 * time.Millisecond}, got)

	f.Dispose()
	f.Receive(func(message interface{}) bool {
		got = message
		return false
	})
	assert.Equal(t, ErrDisposed, got)
}
