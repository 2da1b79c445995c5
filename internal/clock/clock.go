// Package clock abstracts wall time and single-shot deferred callbacks so that
// timer driven behaviour can be exercised deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending deferred callback.  Stop reports whether the call
// prevented the callback from running.
type Timer interface {
	Stop() bool
}

// Clock represents the source of time and timers used by controllers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type clock struct{}

// New returns a Clock backed by the time package.
func New() Clock {
	return clock{}
}

func (clock) Now() time.Time { return time.Now() }

func (clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Managed is a Clock whose time only moves when WarpForward is called.
// Callbacks due within the warped interval run synchronously on the caller's
// goroutine, ordered by due time and then by scheduling order.  Intended for
// tests.
type Managed struct {
	mu      sync.Mutex
	start   time.Time
	offset  time.Duration
	seq     uint64
	pending map[uint64]*managedTimer
}

type managedTimer struct {
	m   *Managed
	id  uint64
	due time.Duration
	f   func()
}

// NewManaged returns a Managed clock starting at startTime.
func NewManaged(startTime time.Time) *Managed {
	return &Managed{start: startTime, pending: make(map[uint64]*managedTimer)}
}

// Now returns the current managed time.
func (m *Managed) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start.Add(m.offset)
}

// AfterFunc schedules f to run once the managed time has advanced by d.
func (m *Managed) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &managedTimer{m: m, id: m.seq, due: m.offset + d, f: f}
	m.pending[t.id] = t
	return t
}

// Pending returns the number of callbacks that have not fired or been stopped.
func (m *Managed) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// WarpForward moves time forward by offset, runs every callback that became
// due, and returns the new time.  Callbacks scheduled while warping run too
// when they fall inside the warped interval.
func (m *Managed) WarpForward(offset time.Duration) time.Time {
	m.mu.Lock()
	target := m.offset + offset
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.offset = target
			now := m.start.Add(m.offset)
			m.mu.Unlock()
			return now
		}
		delete(m.pending, next.id)
		if next.due > m.offset {
			m.offset = next.due
		}
		m.mu.Unlock()
		next.f()
	}
}

func (m *Managed) nextDueLocked(target time.Duration) *managedTimer {
	due := make([]*managedTimer, 0, len(m.pending))
	for _, t := range m.pending {
		if t.due <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	return due[0]
}

func (t *managedTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if _, ok := t.m.pending[t.id]; !ok {
		return false
	}
	delete(t.m.pending, t.id)
	return true
}
