// Package progress tracks elapsed time between build checkpoints and asks
// the file backend to refresh its session when a checkpoint interval runs
// past the reconnect threshold.
package progress

import (
	"sort"
	"sync"
	"time"
)

// DefaultThreshold is the checkpoint interval after which the backend is
// reopened.
const DefaultThreshold = 10 * time.Second

// Reopener is the optional backend hook invoked when the threshold passes.
type Reopener interface {
	Reopen() error
}

// Monitor records checkpoint intervals. It is safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	now       func() time.Time
	threshold time.Duration
	start     time.Time
	last      time.Time
	totals    map[string]time.Duration
	reopens   int
	onReopen  func(name string, elapsed time.Duration, err error)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithThreshold sets the reconnect threshold. Non-positive values keep the
// default.
func WithThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithReopenHook registers a callback run after every reopen attempt.
func WithReopenHook(fn func(name string, elapsed time.Duration, err error)) Option {
	return func(m *Monitor) {
		m.onReopen = fn
	}
}

// New creates a Monitor started now.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		now:       time.Now,
		threshold: DefaultThreshold,
		totals:    make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.start = m.now()
	m.last = m.start
	return m
}

// Interval returns the time since the last reset. When name is set the
// interval is added to that name's running total. When reset is true the
// checkpoint moves to now.
func (m *Monitor) Interval(reset bool, name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval(reset, name)
}

func (m *Monitor) interval(reset bool, name string) time.Duration {
	now := m.now()
	elapsed := now.Sub(m.last)
	if name != "" {
		m.totals[name] += elapsed
	}
	if reset {
		m.last = now
	}
	return elapsed
}

// Checkpoint is called during long operations. If the interval since the
// last reset has reached the threshold and backend implements Reopener, the
// backend is reopened and the timer reset. It reports whether a reopen was
// attempted.
func (m *Monitor) Checkpoint(name string, backend any) bool {
	m.mu.Lock()
	elapsed := m.interval(false, name)
	if elapsed < m.threshold {
		m.mu.Unlock()
		return false
	}
	r, ok := backend.(Reopener)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.interval(true, "")
	m.reopens++
	hook := m.onReopen
	m.mu.Unlock()

	err := r.Reopen()
	if hook != nil {
		hook(name, elapsed, err)
	}
	return true
}

// SectionDone closes a section: the interval is recorded under name and the
// timer reset. The backend is reopened when the section ran past the
// threshold.
func (m *Monitor) SectionDone(name string, backend any) bool {
	m.mu.Lock()
	elapsed := m.interval(true, name)
	if elapsed < m.threshold {
		m.mu.Unlock()
		return false
	}
	r, ok := backend.(Reopener)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.reopens++
	hook := m.onReopen
	m.mu.Unlock()

	err := r.Reopen()
	if hook != nil {
		hook(name, elapsed, err)
	}
	return true
}

// Total returns the time since the monitor started.
func (m *Monitor) Total() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.start)
}

// Totals returns a copy of the named interval totals.
func (m *Monitor) Totals() map[string]time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Duration, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out
}

// Names returns the recorded interval names sorted.
func (m *Monitor) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.totals))
	for k := range m.totals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Reopens returns how many reopens the monitor triggered.
func (m *Monitor) Reopens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reopens
}
