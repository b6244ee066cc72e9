package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

func fail(context.Context) error { return errFail }
func ok(context.Context) error { return nil }

// fakeClock is advanced manually so tests never sleep.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(maxFailures int) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return New("test", maxFailures, 10*time.Second, WithClock(clk.Now)), clk
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(3)
	assert.Equal(t, StateClosed, b.CurrentState())
	assert.Equal(t, "test", b.Name())
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Equal(t, errFail, b.Execute(ctx, fail))
	}
	require.Equal(t, StateOpen, b.CurrentState())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.True(t, errors.Is(err, ErrOpen), "got %v", err)
	assert.False(t, called, "open breaker must not run fn")
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clk := newTestBreaker(2)
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)
	require.Equal(t, StateOpen, b.CurrentState())

	clk.Advance(5 * time.Second)
	assert.True(t, errors.Is(b.Execute(ctx, ok), ErrOpen), "still inside reset timeout")

	clk.Advance(6 * time.Second)
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreaker_HalfOpenFailure(t *testing.T) {
	b, clk := newTestBreaker(2)
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)

	clk.Advance(11 * time.Second)
	assert.Equal(t, errFail, b.Execute(ctx, fail))
	assert.Equal(t, StateOpen, b.CurrentState())
}

func TestBreaker_SingleProbe(t *testing.T) {
	b, clk := newTestBreaker(1)
	ctx := context.Background()

	b.Execute(ctx, fail)
	clk.Advance(11 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.Equal(t, StateHalfOpen, b.CurrentState())
	assert.True(t, errors.Is(b.Execute(ctx, ok), ErrOpen), "second caller rejected while probing")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)
	b.Execute(ctx, ok)

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)

	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreaker_ContextCancellationNotCounted(t *testing.T) {
	b, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreaker_OnStateChangeCallback(t *testing.T) {
	b, clk := newTestBreaker(1)
	ctx := context.Background()

	var transitions []State
	b.OnStateChange = func(name string, from, to State) {
		assert.Equal(t, "test", name)
		transitions = append(transitions, to)
	}

	b.Execute(ctx, fail)
	require.Equal(t, []State{StateOpen}, transitions)

	clk.Advance(11 * time.Second)
	b.Execute(ctx, ok)
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
