package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type manualClock struct {
	ticks  chan time.Time
	mu     sync.Mutex
	delays []time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan time.Time)}
}

func (m *manualClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	m.delays = append(m.delays, d)
	m.mu.Unlock()
	return m.ticks
}

func (m *manualClock) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ticks <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("poller did not wait for a tick")
	}
}

func (m *manualClock) recorded() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

func waitDone[T any](t *testing.T, c *Controller[T]) Result[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := c.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return res
}

func TestControllerStopsExactlyAtTerminal(t *testing.T) {
	clock := newManualClock()
	statuses := []string{"PENDING", "IN_PROGRESS", "COMPLETED"}
	var calls atomic.Int32
	var observed []string
	c := New(Options{Name: "test", Interval: time.Second, After: clock.After}, Spec[string]{
		Fetch: func(ctx context.Context) (string, error) {
			n := calls.Add(1)
			return statuses[n-1], nil
		},
		Terminal: func(s string) bool { return s == "COMPLETED" || s == "FAILED" },
		Observe:  func(s string) { observed = append(observed, s) },
	})
	if c.Phase() != PhaseIdle {
		t.Fatalf("phase = %s, want idle", c.Phase())
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Phase() != PhasePolling {
		t.Fatalf("phase = %s, want polling", c.Phase())
	}

	for range statuses {
		clock.tick(t)
	}
	res := waitDone(t, c)
	if res.Err != nil || res.Value != "COMPLETED" || res.Ticks != 3 {
		t.Fatalf("result = %+v", res)
	}
	if c.Phase() != PhaseTerminal {
		t.Fatalf("phase = %s, want terminal", c.Phase())
	}
	if len(observed) != 3 || observed[1] != "IN_PROGRESS" {
		t.Fatalf("observed = %v", observed)
	}

	select {
	case clock.ticks <- time.Now():
		t.Fatalf("controller consumed a tick after terminal")
	case <-time.After(50 * time.Millisecond):
	}
	if calls.Load() != 3 {
		t.Fatalf("fetch calls = %d, want 3", calls.Load())
	}
}

func TestControllerBacksOffAndGivesUp(t *testing.T) {
	clock := newManualClock()
	boom := errors.New("boom")
	c := New(Options{Interval: time.Second, MaxBackoff: 5 * time.Second, MaxFailures: 4, After: clock.After}, Spec[int]{
		Fetch:    func(ctx context.Context) (int, error) { return 0, boom },
		Terminal: func(int) bool { return false },
	})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 4; i++ {
		clock.tick(t)
	}
	res := waitDone(t, c)
	if !errors.Is(res.Err, boom) || res.Ticks != 4 {
		t.Fatalf("result = %+v", res)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	got := clock.recorded()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delays = %v, want %v", got, want)
		}
	}
}

func TestControllerSuccessResetsBackoff(t *testing.T) {
	clock := newManualClock()
	var calls atomic.Int32
	c := New(Options{Interval: time.Second, After: clock.After}, Spec[int]{
		Fetch: func(ctx context.Context) (int, error) {
			switch calls.Add(1) {
			case 1:
				return 0, errors.New("flaky")
			case 2:
				return 1, nil
			default:
				return 2, nil
			}
		},
		Terminal: func(v int) bool { return v == 2 },
	})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		clock.tick(t)
	}
	res := waitDone(t, c)
	if res.Err != nil || res.Value != 2 {
		t.Fatalf("result = %+v", res)
	}
	got := clock.recorded()
	want := []time.Duration{time.Second, 2 * time.Second, time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delays = %v, want %v", got, want)
		}
	}
}

func TestControllerStopEndsWithoutFetching(t *testing.T) {
	clock := newManualClock()
	var calls atomic.Int32
	c := New(Options{Interval: time.Second, After: clock.After}, Spec[int]{
		Fetch: func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		},
		Terminal: func(int) bool { return false },
	})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Stop()
	res := waitDone(t, c)
	if !errors.Is(res.Err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", res.Err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fetch calls = %d, want 0", calls.Load())
	}
	c.Stop()
}

func TestControllerContextCancel(t *testing.T) {
	clock := newManualClock()
	c := New(Options{After: clock.After}, Spec[int]{
		Fetch:    func(ctx context.Context) (int, error) { return 0, nil },
		Terminal: func(int) bool { return false },
	})
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	res := waitDone(t, c)
	if !errors.Is(res.Err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", res.Err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("restart = %v, want ErrAlreadyStarted", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	c := New(Options{}, Spec[int]{Fetch: func(ctx context.Context) (int, error) { return 0, nil }})
	c.Stop()
	select {
	case <-c.Done():
	default:
		t.Fatalf("Done should be closed after Stop on an idle controller")
	}
	if c.Phase() != PhaseTerminal {
		t.Fatalf("phase = %s", c.Phase())
	}
}
