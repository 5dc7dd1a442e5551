// Package store is the console's application state container. All mutation
// goes through Dispatch, which applies one action at a time to an immutable
// State value and then notifies subscribers.
package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/shared/metrics"
)

// ErrNoTenant is returned by tenant-scoped operations when no tenant is
// selected.
var ErrNoTenant = errors.New("No tenant selected")

// Slice names one branch of the state tree.
type Slice string

const (
	SliceAuth     Slice = "auth"
	SliceTenant   Slice = "tenant"
	SliceCV       Slice = "cv"
	SliceMatch    Slice = "match"
	SliceCampaign Slice = "campaign"
	SliceSmtp     Slice = "smtp"
	SliceUI       Slice = "ui"
	sliceRoot     Slice = "root"
)

// Action is a state transition. The set of actions is closed: only types in
// this package implement it.
type Action interface {
	slice() Slice
}

// Scope tags results of tenant-scoped requests. Results for a tenant that
// is no longer selected, or for a list request older than the newest one
// issued, are dropped by the reducer.
type Scope struct {
	TenantID string
	Seq      uint64
}

func (s Scope) scope() Scope { return s }

type scoped interface {
	scope() Scope
}

// State is the full state tree. Values handed out by the store are
// snapshots and must be treated as read-only.
type State struct {
	Rev      uint64        `json:"rev"`
	Auth     AuthState     `json:"auth"`
	Tenant   TenantState   `json:"tenant"`
	CV       CVState       `json:"cv"`
	Match    MatchState    `json:"match"`
	Campaign CampaignState `json:"campaign"`
	Smtp     SmtpState     `json:"smtp"`
	UI       UIState       `json:"ui"`
}

// InitialState returns the defaults for every slice.
func InitialState() State {
	return State{
		Auth:     AuthState{},
		Tenant:   TenantState{},
		CV:       defaultCVState(),
		Match:    defaultMatchState(),
		Campaign: defaultCampaignState(),
		Smtp:     SmtpState{},
		UI:       defaultUIState(),
	}
}

// Subscriber observes every committed action together with the state it
// produced.
type Subscriber func(State, Action)

// Store holds State and serializes every mutation.
type Store struct {
	mu    sync.Mutex
	state State

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int

	seq   atomic.Uint64
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides the notification id generator.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithState seeds the store.
func WithState(st State) Option {
	return func(s *Store) { s.state = st }
}

// New constructs a Store holding InitialState.
func New(opts ...Option) *Store {
	s := &Store{
		state: InitialState(),
		subs:  make(map[int]Subscriber),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies a to the state tree and notifies subscribers.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	next := reduce(s.state, a)
	s.state = next
	s.mu.Unlock()

	metrics.ActionCommitted(string(a.slice()))

	s.subMu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(next, a)
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// NextSeq returns a fresh request sequence number for list fetches.
func (s *Store) NextSeq() uint64 {
	return s.seq.Add(1)
}

// CurrentTenantID returns the selected tenant id, or "".
func (s *Store) CurrentTenantID() string {
	return s.State().Tenant.CurrentID()
}

// RequireTenant returns the selected tenant id or ErrNoTenant.
func (s *Store) RequireTenant() (string, error) {
	id := s.CurrentTenantID()
	if id == "" {
		return "", ErrNoTenant
	}
	return id, nil
}

// ScopeFor tags a request for tenantID with a fresh sequence number.
func (s *Store) ScopeFor(tenantID string) Scope {
	return Scope{TenantID: tenantID, Seq: s.NextSeq()}
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	return s.State().Auth.IsAuthenticated
}

// Token implements oauth2.TokenSource over the session.
func (s *Store) Token() (*oauth2.Token, error) {
	auth := s.State().Auth
	if !auth.IsAuthenticated || auth.Token == "" {
		return nil, httpclient.ErrNoSession
	}
	return &oauth2.Token{AccessToken: auth.Token, TokenType: "Bearer"}, nil
}

// Notify implements notify.Notifier by queueing a toast.
func (s *Store) Notify(level notify.Level, message string) {
	s.Dispatch(PushNotification{Notification: Notification{
		ID:        s.newID(),
		Level:     level,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}})
}

var (
	_ oauth2.TokenSource = (*Store)(nil)
	_ notify.Notifier    = (*Store)(nil)
)
