// Package connectivity maintains the current belief about network
// reachability and notifies interested parties of changes.
//
// The monitor polls a Probe at a fixed interval (or accepts pushed
// observations via Observe) and fans status changes out to a subscriber
// registry. On an offline-to-online transition it schedules exactly one
// invocation of the reconnect hook before notifying subscribers, so sync is
// always initiated no later than user-visible status propagation.
package connectivity

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Monitor observes network reachability and fans out status changes.
type Monitor struct {
	probe  Probe
	logger *log.Logger

	mu          sync.Mutex
	status      Status
	probed      bool
	nextSubID   int
	subscribers map[int]*subscriber
	onReconnect func()
}

// subscriber delivers statuses to one listener in observation order.
// Statuses are queued under the monitor's lock and handed to the callback by
// a single drainer outside any lock, so a slow listener never stalls the
// monitor and a late registration snapshot can never be overtaken by a
// newer change.
type subscriber struct {
	mu       sync.Mutex
	pending  []Status
	draining bool
	fn       func(Status)
}

// push queues one status. Callers sequence pushes by holding the monitor's
// lock.
func (s *subscriber) push(st Status) {
	s.mu.Lock()
	s.pending = append(s.pending, st)
	s.mu.Unlock()
}

// drain invokes the callback for every queued status, in order. Only one
// drainer runs at a time; concurrent callers return immediately and leave
// their queued statuses to the active one.
func (s *subscriber) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.fn(next)
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

// NewMonitor creates a monitor over the given probe.
//
// If logger is nil, a default logger writing to stderr is used.
func NewMonitor(probe Probe, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.New(os.Stderr, "[monitor] ", log.LstdFlags)
	}
	return &Monitor{
		probe:       probe,
		logger:      logger,
		subscribers: make(map[int]*subscriber),
	}
}

// SetOnReconnect registers the hook invoked on every offline-to-online
// transition. The hook runs on its own goroutine; the monitor never blocks
// waiting for it to finish.
//
// This must be called before Run or Observe deliver the first transition.
func (m *Monitor) SetOnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = fn
}

// Current returns the last observed status. On first call it synchronously
// probes the platform and caches the result before returning.
//
// Probe errors are treated as offline and never surfaced: "no connectivity"
// is a normal operating state.
func (m *Monitor) Current(ctx context.Context) Status {
	m.mu.Lock()
	if m.probed {
		st := m.status
		m.mu.Unlock()
		return st
	}
	m.mu.Unlock()

	st, err := m.probe.Current(ctx)
	if err != nil {
		m.logger.Printf("Probe failed, assuming offline: %v", err)
		st = Status{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.probed {
		m.status = st
		m.probed = true
	}
	return m.status
}

// Subscribe registers a listener invoked on every status change, and once
// immediately with the current status at registration time, so a late
// subscriber is never left unaware of present state. Notifications to a
// given listener arrive in observation order; the registration notification
// always precedes any change observed after it.
//
// The returned function deregisters the listener; calling it twice is a
// no-op.
func (m *Monitor) Subscribe(ctx context.Context, fn func(Status)) func() {
	m.Current(ctx)

	sub := &subscriber{fn: fn}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = sub
	// The registration snapshot is queued under the same lock that admits
	// the subscriber to fan-out, so a concurrent Observe cannot slot a
	// newer status ahead of it.
	sub.push(m.status)
	m.mu.Unlock()

	sub.drain()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Observe feeds a status observation into the monitor. This is the entry
// point for pushed platform reachability events; the polling loop uses it
// too.
func (m *Monitor) Observe(st Status) {
	m.mu.Lock()

	wasOnline := m.probed && m.status.Online()
	changed := !m.probed || m.status != st
	m.status = st
	m.probed = true

	if !changed {
		m.mu.Unlock()
		return
	}

	reconnect := m.onReconnect
	listeners := make([]*subscriber, 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		sub.push(st)
		listeners = append(listeners, sub)
	}
	m.mu.Unlock()

	m.logger.Printf("Connectivity changed: %s", st)

	// Schedule the reconnect hook before fanning out, so sync is initiated
	// no later than status propagation. The hook runs asynchronously.
	if !wasOnline && st.Online() && reconnect != nil {
		go reconnect()
	}

	for _, sub := range listeners {
		sub.drain()
	}
}

// Run polls the probe at the given interval until ctx is cancelled.
// Probe errors degrade to an offline observation.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			st, err := m.probe.Current(ctx)
			if err != nil {
				st = Status{}
			}
			m.Observe(st)
		}
	}
}
