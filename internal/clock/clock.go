package clock

import "time"

// Clock provides the current time and can be replaced in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real returns a Clock backed by the system clock.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

// Mock is a manually advanced Clock for tests.
type Mock struct {
	Current time.Time
}

var _ Clock = (*Mock)(nil)

func NewMock(t time.Time) *Mock {
	return &Mock{Current: t}
}

func (m *Mock) Now() time.Time {
	return m.Current
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.Current = m.Current.Add(d)
}
