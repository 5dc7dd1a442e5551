// Package poll runs a fetch on a fixed interval until a terminal predicate
// holds, the failure ceiling is hit, or the owner cancels.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"scholar-console/internal/shared/metrics"
	"scholar-console/internal/shared/telemetry"
)

// Phase is the controller lifecycle: Idle, then Polling, then Terminal.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePolling  Phase = "polling"
	PhaseTerminal Phase = "terminal"
)

const (
	DefaultMaxBackoff  = 30 * time.Second
	DefaultMaxFailures = 10
)

var (
	ErrAlreadyStarted = errors.New("poller already started")
	// ErrStopped is the Result error when the owner stopped the poller.
	ErrStopped = errors.New("poller stopped")
)

// Options configures a Controller.
type Options struct {
	Name        string
	Interval    time.Duration
	MaxBackoff  time.Duration
	MaxFailures int
	// After replaces time.After in tests.
	After func(time.Duration) <-chan time.Time
}

// Spec supplies the work a Controller repeats.
type Spec[T any] struct {
	Fetch    func(ctx context.Context) (T, error)
	Terminal func(T) bool
	// Observe, if set, sees every successful fetch result.
	Observe func(T)
}

// Result is the final observation.
type Result[T any] struct {
	Value T
	// Err is nil on a terminal observation, the last fetch error when the
	// failure ceiling is hit, or ErrStopped after cancellation.
	Err   error
	Ticks int
}

// Controller is a single-use polling state machine.
type Controller[T any] struct {
	opts Options
	spec Spec[T]

	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc
	result Result[T]
	done   chan struct{}
}

// New constructs an idle Controller.
func New[T any](opts Options, spec Spec[T]) *Controller[T] {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.Name == "" {
		opts.Name = "poller"
	}
	return &Controller[T]{
		opts:  opts,
		spec:  spec,
		phase: PhaseIdle,
		done:  make(chan struct{}),
	}
}

// Start arms the timer. The loop ends when ctx is cancelled, Stop is
// called, or a terminal state is reached.
func (c *Controller[T]) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.phase = PhasePolling
	go c.run(runCtx)
	return nil
}

// Stop cancels the loop. It is safe to call at any time and more than once.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	idle := c.phase == PhaseIdle
	if idle {
		c.phase = PhaseTerminal
		c.result.Err = ErrStopped
	}
	c.mu.Unlock()
	if idle {
		close(c.done)
		return
	}
	if cancel != nil {
		cancel()
	}
}

// Phase returns the current lifecycle phase.
func (c *Controller[T]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Done is closed once the controller is Terminal.
func (c *Controller[T]) Done() <-chan struct{} {
	return c.done
}

// Result returns the final observation. It is only meaningful after Done.
func (c *Controller[T]) Result() Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Wait blocks until the controller is Terminal or ctx ends.
func (c *Controller[T]) Wait(ctx context.Context) (Result[T], error) {
	select {
	case <-c.done:
		return c.Result(), nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

func (c *Controller[T]) run(ctx context.Context) {
	var (
		last     T
		ticks    int
		failures int
		delay    = c.opts.Interval
	)
	for {
		select {
		case <-ctx.Done():
			c.finish(Result[T]{Value: last, Err: ErrStopped, Ticks: ticks})
			return
		case <-c.opts.After(delay):
		}

		ticks++
		value, err := c.spec.Fetch(ctx)
		if ctx.Err() != nil {
			c.finish(Result[T]{Value: last, Err: ErrStopped, Ticks: ticks})
			return
		}
		if err != nil {
			failures++
			metrics.PollTick(c.opts.Name, "error")
			telemetry.Warn("poll.fetch_failed", map[string]any{
				"poller":   c.opts.Name,
				"failures": failures,
				"error":    err,
			})
			if failures >= c.opts.MaxFailures {
				c.finish(Result[T]{Value: last, Err: err, Ticks: ticks})
				return
			}
			delay = c.backoff(failures)
			continue
		}

		failures = 0
		delay = c.opts.Interval
		last = value
		if c.spec.Observe != nil {
			c.spec.Observe(value)
		}
		if c.spec.Terminal != nil && c.spec.Terminal(value) {
			metrics.PollTick(c.opts.Name, "terminal")
			c.finish(Result[T]{Value: value, Ticks: ticks})
			return
		}
		metrics.PollTick(c.opts.Name, "pending")
	}
}

// backoff doubles the interval per consecutive failure up to MaxBackoff.
func (c *Controller[T]) backoff(failures int) time.Duration {
	d := c.opts.Interval
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= c.opts.MaxBackoff {
			return c.opts.MaxBackoff
		}
	}
	return d
}

func (c *Controller[T]) finish(res Result[T]) {
	c.mu.Lock()
	c.phase = PhaseTerminal
	c.result = res
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	telemetry.Info("poll.terminal", map[string]any{
		"poller": c.opts.Name,
		"ticks":  res.Ticks,
		"error":  res.Err,
	})
	close(c.done)
}
