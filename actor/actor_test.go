package actor

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hedisam/goexec/config"
	"github.com/hedisam/goexec/internal/mailbox"
	"github.com/hedisam/goexec/proc"
	"github.com/hedisam/goexec/reactor"
	"github.com/hedisam/goexec/supervised"
	"github.com/hedisam/goexec/sysmsg"
)

type request struct {
	body  interface{}
	reply *PID
}

type waited struct {
	status proc.ExitStatus
	err    error
}

func echo(a *Actor) {
	a.Receive(func(_ context.Context, message interface{}) bool {
		if req, ok := message.(request); ok {
			Send(req.reply, req.body)
		}
		return true
	})
}

// runner starts a shell command per request and replies once it exited
func runner(a *Actor) {
	a.Receive(func(ctx context.Context, message interface{}) bool {
		req, ok := message.(request)
		if !ok {
			return true
		}
		script, ok := req.body.(string)
		if !ok {
			Send(req.reply, "pong")
			return true
		}

		p := supervised.Build("/bin/sh", "-c", script).SetLogger(a.Logger())
		if err := p.Start(); err != nil {
			Send(req.reply, waited{err: err})
			return true
		}
		status, err := p.Wait(ctx)
		if err != nil {
			syscall.Kill(p.Pid(), syscall.SIGKILL) //nolint:errcheck
			p.Wait(context.Background())           //nolint:errcheck
		}
		Send(req.reply, waited{status: status, err: err})
		return true
	})
}

func ask(t *testing.T, to *PID, body interface{}) *Future {
	t.Helper()
	f := NewFuture()
	t.Cleanup(f.Dispose)
	f.Send(to, request{body: body, reply: f.Self()})
	return f
}

func TestSendAndReply(t *testing.T) {
	pid := Spawn(echo)
	defer Stop(pid)

	reply, err := ask(t, pid, "hello").RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
}

func TestMPSCMailbox(t *testing.T) {
	cfg := config.Default()
	cfg.Mailbox.Kind = mailbox.KindMPSC
	pid, err := SpawnWithOptions(echo, WithConfig(cfg), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer Stop(pid)

	reply, err := ask(t, pid, 42).RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, reply)
}

func TestInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.PollInterval = 0
	_, err := SpawnWithOptions(echo, WithConfig(cfg))
	assert.Error(t, err)
}

func TestArgs(t *testing.T) {
	f := NewFuture()
	defer f.Dispose()

	Spawn(func(a *Actor) {
		Send(a.Args()[0].(*PID), a.Args()[1])
	}, f.Self(), "arg")

	reply, err := f.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "arg", reply)
}

func TestEventedActorKeepsServing(t *testing.T) {
	pid, err := SpawnWithOptions(runner, WithReactor(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer Stop(pid)

	slow := ask(t, pid, "sleep 0.3; exit 3")
	ping := ask(t, pid, 0)

	begin := time.Now()
	reply, err := ping.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)
	assert.Less(t, time.Since(begin), 250*time.Millisecond, "the wait must not block the actor")

	reply, err = slow.RecvWithTimeout(3 * time.Second)
	require.NoError(t, err)
	res := reply.(waited)
	require.NoError(t, res.err)
	assert.Equal(t, 3, res.status.Code)
}

func TestPlainActorBlocksOnWait(t *testing.T) {
	pid := Spawn(runner)
	defer Stop(pid)

	slow := ask(t, pid, "sleep 0.2; exit 5")
	ping := ask(t, pid, 0)

	reply, err := slow.RecvWithTimeout(3 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5, reply.(waited).status.Code)

	reply, err = ping.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)
}

func TestEventedWaitsResumeInExitOrder(t *testing.T) {
	pid := SpawnEvented(runner)
	defer Stop(pid)

	long := ask(t, pid, "sleep 1")
	short := ask(t, pid, "sleep 0")

	results := make(chan string, 2)
	for name, f := range map[string]*Future{"long": long, "short": short} {
		name, f := name, f
		go func() {
			if _, err := f.RecvWithTimeout(5 * time.Second); err == nil {
				results <- name
			}
		}()
	}
	assert.Equal(t, "short", <-results)
	assert.Equal(t, "long", <-results)
}

func TestStopResumesWaitingTasks(t *testing.T) {
	pid := SpawnEvented(runner)

	f := ask(t, pid, "sleep 5")
	// let the handler register its wait
	time.Sleep(50 * time.Millisecond)
	Stop(pid)

	reply, err := f.RecvWithTimeout(3 * time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, reply.(waited).err, reactor.ErrShutdown)
}

func watcher(a *Actor) {
	report := a.Args()[0].(*PID)
	a.Receive(func(_ context.Context, message interface{}) bool {
		if exit, ok := message.(sysmsg.Exit); ok {
			Send(report, exit)
			return false
		}
		return true
	})
}

func TestMonitorReceivesExit(t *testing.T) {
	f := NewFuture()
	defer f.Dispose()
	watcherPID := Spawn(watcher, f.Self())

	childPID, err := SpawnWithOptions(func(a *Actor) {
		panic("child failed")
	}, WithMonitor(watcherPID))
	require.NoError(t, err)

	reply, err := f.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	exit := reply.(sysmsg.Exit)
	assert.Equal(t, childPID, exit.Who)
	assert.Equal(t, sysmsg.Panic, exit.Reason.Type)
	assert.Equal(t, "child failed", exit.Reason.Details)
	assert.Equal(t, sysmsg.Monitored, exit.Relation)
}

func TestFutureSeesTargetTermination(t *testing.T) {
	pid := Spawn(func(a *Actor) {
		a.Receive(func(context.Context, interface{}) bool {
			return false
		})
	})

	_, err := ask(t, pid, "bye").RecvWithTimeout(time.Second)
	assert.ErrorIs(t, err, ErrTargetTerminated)
}

func TestFutureTimeout(t *testing.T) {
	f := NewFuture()
	defer f.Dispose()

	_, err := f.RecvWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	f.Dispose()
	_, err = f.Recv()
	assert.True(t, errors.Is(err, mailbox.ErrDisposed))
}

func TestRegistry(t *testing.T) {
	pid, err := SpawnWithOptions(echo, WithName("echo-test"))
	require.NoError(t, err)
	defer Stop(pid)

	assert.Equal(t, pid, WhereIs("echo-test"))

	f := NewFuture()
	defer f.Dispose()
	require.True(t, SendNamed("echo-test", request{body: "named", reply: f.Self()}))
	reply, err := f.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "named", reply)

	Unregister("echo-test")
	assert.Nil(t, WhereIs("echo-test"))
	assert.False(t, SendNamed("echo-test", "lost"))
}

func TestIdleTimeout(t *testing.T) {
	f := NewFuture()
	defer f.Dispose()

	Spawn(func(a *Actor) {
		a.ReceiveWithTimeout(10*time.Millisecond, func(_ context.Context, message interface{}) bool {
			Send(f.Self(), message)
			return false
		})
	})

	reply, err := f.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	assert.IsType(t, sysmsg.Timeout{}, reply)
}

func TestBurstOfWaitsIsNotSerialized(t *testing.T) {
	pid := SpawnEvented(runner)
	defer Stop(pid)

	const n = 10
	begin := time.Now()
	futures := make([]*Future, 0, n)
	for i := 0; i < n; i++ {
		futures = append(futures, ask(t, pid, "sleep 0.05"))
	}
	for _, f := range futures {
		reply, err := f.RecvWithTimeout(3 * time.Second)
		require.NoError(t, err)
		require.NoError(t, reply.(waited).err)
	}

	// one after another they would take n * 50ms
	assert.Less(t, time.Since(begin), 350*time.Millisecond)
}

func TestFutureToTerminatedActor(t *testing.T) {
	pid := Spawn(func(a *Actor) {})
	require.Eventually(t, func() bool {
		return !pid.sendSystemMessage(sysmsg.Monitor{Revert: true})
	}, time.Second, 5*time.Millisecond)

	_, err := ask(t, pid, "hello").RecvWithTimeout(time.Second)
	assert.ErrorIs(t, err, ErrTargetTerminated)
}

func TestMonitorTerminatedActor(t *testing.T) {
	dead := Spawn(func(a *Actor) {})
	require.Eventually(t, func() bool {
		return !dead.sendSystemMessage(sysmsg.Monitor{Revert: true})
	}, time.Second, 5*time.Millisecond)

	f := NewFuture()
	defer f.Dispose()
	Spawn(func(a *Actor) {
		a.Monitor(dead)
		watcher(a)
	}, f.Self())

	reply, err := f.RecvWithTimeout(time.Second)
	require.NoError(t, err)
	exit := reply.(sysmsg.Exit)
	assert.Equal(t, dead, exit.Who)
	assert.Equal(t, sysmsg.NoProc, exit.Reason.Type)
}

func TestLateMonitorRequestIsAnswered(t *testing.T) {
	release := make(chan struct{})
	pid := Spawn(func(a *Actor) {
		<-release
	})

	// queued while the actor never receives
	f := NewFuture()
	defer f.Dispose()
	f.Send(pid, "never handled")
	close(release)

	_, err := f.RecvWithTimeout(time.Second)
	assert.ErrorIs(t, err, ErrTargetTerminated)
}

func TestNameReleasedOnTermination(t *testing.T) {
	pid, err := SpawnWithOptions(echo, WithName("short-lived"))
	require.NoError(t, err)
	require.Equal(t, pid, WhereIs("short-lived"))

	Stop(pid)
	assert.Eventually(t, func() bool {
		return WhereIs("short-lived") == nil
	}, time.Second, 10*time.Millisecond)
	assert.False(t, SendNamed("short-lived", "dropped"))

	// a successor keeps the name even if its predecessor unregisters late
	next, err := SpawnWithOptions(echo, WithName("short-lived"))
	require.NoError(t, err)
	defer Stop(next)
	unregister("short-lived", pid)
	assert.Equal(t, next, WhereIs("short-lived"))
}
