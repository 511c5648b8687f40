package reactor

import (
	"github.com/eapache/queue"
)

// table keeps monitors in registration order. A task appears at most once.
type table struct {
	monitors *queue.Queue
	tasks    map[string]struct{}
}

func newTable() *table {
	return &table{
		monitors: queue.New(),
		tasks:    make(map[string]struct{}),
	}
}

func (t *table) add(m *Monitor) bool {
	if t.has(m.Task.ID()) {
		return false
	}
	t.tasks[m.Task.ID()] = struct{}{}
	t.monitors.Add(m)
	return true
}

func (t *table) has(taskID string) bool {
	_, ok := t.tasks[taskID]
	return ok
}

// pop removes the oldest monitor. The caller either pushes it back or drops it.
func (t *table) pop() *Monitor {
	return t.monitors.Remove().(*Monitor)
}

func (t *table) pushBack(m *Monitor) {
	t.monitors.Add(m)
}

func (t *table) drop(m *Monitor) {
	delete(t.tasks, m.Task.ID())
}

func (t *table) len() int {
	return t.monitors.Length()
}

// drain removes every monitor
func (t *table) drain() []*Monitor {
	all := make([]*Monitor, 0, t.len())
	for t.len() > 0 {
		m := t.pop()
		t.drop(m)
		all = append(all, m)
	}
	return all
}

// remove deletes the monitor of taskID wherever it is, keeping the order of the rest
func (t *table) remove(taskID string) bool {
	if !t.has(taskID) {
		return false
	}
	for n := t.len(); n > 0; n-- {
		m := t.pop()
		if m.Task.ID() == taskID {
			t.drop(m)
			continue
		}
		t.pushBack(m)
	}
	return true
}
