package notification

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Sink is a named Notifier.
type Sink struct {
	Name     string
	Notifier Notifier
}

// Multi fans an alert out to every sink concurrently. A failing sink does
// not stop the others.
type Multi struct {
	sinks []Sink

	// OnResult, if set, is called once per sink after each Send, possibly
	// from several goroutines at once.
	OnResult func(name string, err error)
}

// NewMulti creates a fan-out over sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Add appends a sink.
func (m *Multi) Add(name string, n Notifier) {
	m.sinks = append(m.sinks, Sink{Name: name, Notifier: n})
}

// Names returns the sink names in registration order.
func (m *Multi) Names() []string {
	out := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		out[i] = s.Name
	}
	return out
}

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Send delivers alert to every sink and returns the combined failures, each
// prefixed with its sink name. multierr.Errors splits them again.
func (m *Multi) Send(ctx context.Context, alert Alert) error {
	errs := make([]error, len(m.sinks))

	var wg sync.WaitGroup
	for i, s := range m.sinks {
		wg.Add(1)
		go func(i int, s Sink) {
			defer wg.Done()
			err := s.Notifier.Send(ctx, alert)
			if err != nil {
				errs[i] = errors.Wrap(err, s.Name)
			}
			if m.OnResult != nil {
				m.OnResult(s.Name, err)
			}
		}(i, s)
	}
	wg.Wait()

	return multierr.Combine(errs...)
}
