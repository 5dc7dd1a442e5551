package web

import (
	"context"
	"sort"
	"sync"

	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/store"
)

type poller interface {
	Start(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
}

// Pollers owns the background pollers started by page actions. Starting a
// poller under a key that is already running replaces it. Every poller is
// stopped when the user signs out or the tenant changes.
type Pollers struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	active     map[string]poller
	lastTenant string
}

func NewPollers() *Pollers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pollers{ctx: ctx, cancel: cancel, active: map[string]poller{}}
}

// Start runs p under key until it finishes or is stopped.
func (ps *Pollers) Start(key string, p poller) error {
	ps.mu.Lock()
	prev := ps.active[key]
	ps.active[key] = p
	ps.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	if err := p.Start(ps.ctx); err != nil {
		ps.forget(key, p)
		return err
	}
	go func() {
		<-p.Done()
		ps.forget(key, p)
	}()
	telemetry.Info("poller.started", map[string]any{"key": key})
	return nil
}

func (ps *Pollers) forget(key string, p poller) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.active[key] == p {
		delete(ps.active, key)
	}
}

// Done returns the completion channel of the poller running under key, or
// nil when none is.
func (ps *Pollers) Done(key string) <-chan struct{} {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p, ok := ps.active[key]; ok && running(p) {
		return p.Done()
	}
	return nil
}

func running(p poller) bool {
	select {
	case <-p.Done():
		return false
	default:
		return true
	}
}

// Keys lists running pollers.
func (ps *Pollers) Keys() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	keys := make([]string, 0, len(ps.active))
	for k, p := range ps.active {
		if running(p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Stop stops the poller running under key, if any.
func (ps *Pollers) Stop(key string) {
	ps.mu.Lock()
	p := ps.active[key]
	delete(ps.active, key)
	ps.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// StopAll stops every running poller.
func (ps *Pollers) StopAll() {
	ps.mu.Lock()
	running := make([]poller, 0, len(ps.active))
	for k, p := range ps.active {
		running = append(running, p)
		delete(ps.active, k)
	}
	ps.mu.Unlock()
	for _, p := range running {
		p.Stop()
	}
	if len(running) > 0 {
		telemetry.Info("poller.stopped_all", map[string]any{"count": len(running)})
	}
}

// Close stops every poller for good.
func (ps *Pollers) Close() {
	ps.StopAll()
	ps.cancel()
}

// Attach subscribes ps to s and returns the unsubscribe func.
func (ps *Pollers) Attach(s *store.Store) func() {
	ps.mu.Lock()
	ps.lastTenant = s.CurrentTenantID()
	ps.mu.Unlock()
	return s.Subscribe(ps.Observe)
}

// Observe is a store subscriber that stops all pollers on sign-out and on
// every tenant selection.
func (ps *Pollers) Observe(st store.State, a store.Action) {
	switch a.(type) {
	case store.Logout, store.SelectTenant, store.ClearTenantState:
		ps.StopAll()
	}
	tenantID := st.Tenant.CurrentID()
	ps.mu.Lock()
	changed := tenantID != ps.lastTenant
	ps.lastTenant = tenantID
	ps.mu.Unlock()
	if changed {
		ps.StopAll()
	}
}
