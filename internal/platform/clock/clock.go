// Package clock provides an injectable time source so that scheduling and
// session timestamps are deterministic under test. No process-wide time
// singletons: every component that needs the current time receives a Clock
// through its constructor.
package clock

import (
	"sync"
	"time"
)

// Clock is a minimal time source.
type Clock interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// systemClock reads the wall clock.
type systemClock struct{}

// New returns a Clock backed by the system wall clock.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Mock is a manually controlled Clock for tests. The zero value is not
// usable; construct with NewMock.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock returns a Mock frozen at the given time.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now.UTC()}
}

// Now implements Clock.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the mock to the given time.
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now.UTC()
}

// Advance moves the mock forward by d and returns the new time.
func (m *Mock) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}
