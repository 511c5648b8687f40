package actor

import (
	"context"
	"sync"
)

var (
	registryOnce sync.Once
	registryPID  *PID
)

type registryMap map[string]*PID

type cmdRegister struct {
	name string
	pid  *PID
}
type cmdUnregister struct {
	name string
	// pid, when set, must still own the name
	pid *PID
}
type cmdGet struct {
	name   string
	sender *PID
}

func registryActor() *PID {
	registryOnce.Do(func() {
		registryPID = Spawn(registry)
	})
	return registryPID
}

// Register names an actor. Names are global and a later registration replaces an
// earlier one.
func Register(name string, pid *PID) {
	Send(registryActor(), cmdRegister{name: name, pid: pid})
}

func Unregister(name string) {
	Send(registryActor(), cmdUnregister{name: name})
}

// unregister drops name only if it still refers to pid
func unregister(name string, pid *PID) {
	Send(registryActor(), cmdUnregister{name: name, pid: pid})
}

// WhereIs returns the actor registered under name, nil if there's none
func WhereIs(name string) *PID {
	future := NewFuture()
	defer future.Dispose()

	// the registry never terminates, no need to monitor it
	Send(registryActor(), cmdGet{name: name, sender: future.Self()})
	result, _ := future.Recv()
	pid, _ := result.(*PID)
	return pid
}

func registry(a *Actor) {
	repo := registryMap{}

	a.Receive(func(_ context.Context, message interface{}) (loop bool) {
		switch cmd := message.(type) {
		case cmdRegister:
			repo[cmd.name] = cmd.pid
		case cmdUnregister:
			if cmd.pid == nil || repo[cmd.name] == cmd.pid {
				delete(repo, cmd.name)
			}
		case cmdGet:
			Send(cmd.sender, repo[cmd.name])
		}
		return true
	})
}
