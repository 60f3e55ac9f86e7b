package eventloop

import (
	"sort"
	"time"
)

// Manual is a Scheduler driven by hand. Tasks run only when Advance is
// called, which makes poll-driven state machines deterministic in tests
// and in the simulate command.
type Manual struct {
	now     time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManual creates a manual scheduler at virtual time zero
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc schedules fn at now+d
func (m *Manual) AfterFunc(d time.Duration, fn func()) func() {
	m.seq++
	task := &manualTask{at: m.now + d, seq: m.seq, fn: fn}
	m.pending = append(m.pending, task)
	return func() { task.cancelled = true }
}

// Pending reports how many live tasks are scheduled
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d, running due tasks in order.
// Tasks scheduled while advancing run too if they fall due.
func (m *Manual) Advance(d time.Duration) int {
	target := m.now + d
	ran := 0
	for {
		sort.SliceStable(m.pending, func(i, j int) bool {
			if m.pending[i].at == m.pending[j].at {
				return m.pending[i].seq < m.pending[j].seq
			}
			return m.pending[i].at < m.pending[j].at
		})
		if len(m.pending) == 0 || m.pending[0].at > target {
			break
		}
		task := m.pending[0]
		m.pending = m.pending[1:]
		m.now = task.at
		if task.cancelled {
			continue
		}
		task.fn()
		ran++
	}
	m.now = target
	return ran
}

// Now returns the virtual clock
func (m *Manual) Now() time.Duration {
	return m.now
}
