package store

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
)

func selectTenant(s *Store, id string) {
	s.Dispatch(SelectTenant{Tenant: &api.Tenant{ID: id, Name: id}})
}

func cvIDs(cvs []api.CV) []string {
	out := make([]string, 0, len(cvs))
	for _, cv := range cvs {
		out = append(out, cv.ID)
	}
	return out
}

func TestPaginationCopiedVerbatim(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	page := api.Page[api.CV]{
		Content:       []api.CV{{ID: "a"}, {ID: "b"}},
		Number:        3,
		Size:          2,
		TotalElements: 9,
		TotalPages:    5,
	}
	s.Dispatch(CVsFetched{Scope: Scope{TenantID: "t1"}, Page: page})

	got := s.State().CV.Pagination
	want := Pagination{Page: 3, Size: 2, TotalElements: 9, TotalPages: 5}
	if got != want {
		t.Fatalf("pagination = %+v, want %+v", got, want)
	}
}

func TestCreatePrependsAndDeletePreservesOrder(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	scope := Scope{TenantID: "t1"}
	s.Dispatch(CVsFetched{Scope: scope, Page: api.Page[api.CV]{Content: []api.CV{{ID: "b"}, {ID: "c"}, {ID: "d"}}}})
	s.Dispatch(CVUploaded{Scope: scope, CV: api.CV{ID: "a", ParsingStatus: api.ParsingPending}})

	st := s.State().CV
	if got := cvIDs(st.CVs); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("after upload = %v", got)
	}
	if st.ParsingCVID != "a" || st.Current == nil || st.Current.ID != "a" {
		t.Fatalf("uploaded CV should be current and tracked: %+v", st)
	}

	s.Dispatch(CVDeleted{Scope: scope, ID: "c"})
	if got := cvIDs(s.State().CV.CVs); !reflect.DeepEqual(got, []string{"a", "b", "d"}) {
		t.Fatalf("after delete = %v", got)
	}

	s.Dispatch(CampaignCreated{Scope: scope, Campaign: api.Campaign{ID: "c2"}})
	s.Dispatch(CampaignCreated{Scope: scope, Campaign: api.Campaign{ID: "c3"}})
	camps := s.State().Campaign.Campaigns
	if len(camps) != 2 || camps[0].ID != "c3" {
		t.Fatalf("campaign create should prepend: %+v", camps)
	}
}

func TestDispatchDoesNotMutatePreviousSnapshot(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	scope := Scope{TenantID: "t1"}
	s.Dispatch(CVsFetched{Scope: scope, Page: api.Page[api.CV]{Content: []api.CV{{ID: "a", ParsingStatus: api.ParsingPending}}}})
	before := s.State()

	s.Dispatch(UpdateCVInList{CV: api.CV{ID: "a", ParsingStatus: api.ParsingCompleted}})
	if before.CV.CVs[0].ParsingStatus != api.ParsingPending {
		t.Fatalf("earlier snapshot was mutated")
	}
	if s.State().CV.CVs[0].ParsingStatus != api.ParsingCompleted {
		t.Fatalf("update not applied")
	}
}

func TestSelectTenantResetsScopedSlicesIdempotently(t *testing.T) {
	populate := func(s *Store) {
		scope := Scope{TenantID: "t1"}
		s.Dispatch(CVsFetched{Scope: scope, Page: api.Page[api.CV]{Content: []api.CV{{ID: "a"}}, Size: 5, TotalElements: 1, TotalPages: 1}})
		s.Dispatch(MatchesFetched{Scope: scope, Page: api.Page[api.Match]{Content: []api.Match{{ID: "m"}}}})
		s.Dispatch(CampaignsFetched{Scope: scope, Page: api.Page[api.Campaign]{Content: []api.Campaign{{ID: "c"}}}})
		s.Dispatch(SmtpFetched{Scope: scope, Account: &api.SmtpAccount{ID: "smtp"}})
		s.Dispatch(DashboardFetched{Scope: scope, Dashboard: api.TenantDashboard{TotalCVs: 1}})
	}

	once := New()
	selectTenant(once, "t1")
	populate(once)
	selectTenant(once, "t2")

	twice := New()
	selectTenant(twice, "t1")
	populate(twice)
	selectTenant(twice, "t2")
	selectTenant(twice, "t2")

	a, b := once.State(), twice.State()
	a.Rev, b.Rev = 0, 0
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("switching twice differs from once:\n%+v\n%+v", a, b)
	}
	if len(a.CV.CVs) != 0 || len(a.Match.Matches) != 0 || len(a.Campaign.Campaigns) != 0 {
		t.Fatalf("scoped lists not reset: %+v", a)
	}
	if a.CV.Pagination != (Pagination{Size: DefaultCVPageSize}) {
		t.Fatalf("cv pagination not reset: %+v", a.CV.Pagination)
	}
	if a.Smtp.Account != nil || a.Tenant.Dashboard != nil {
		t.Fatalf("smtp/dashboard not reset")
	}
}

func TestResultsForPreviousTenantAreDropped(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	selectTenant(s, "t2")
	s.Dispatch(CVsFetched{Scope: Scope{TenantID: "t1"}, Page: api.Page[api.CV]{Content: []api.CV{{ID: "stale"}}}})
	if len(s.State().CV.CVs) != 0 {
		t.Fatalf("result for t1 leaked into t2")
	}
}

func TestLastIssuedListFetchWins(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	first := s.ScopeFor("t1")
	second := s.ScopeFor("t1")
	s.Dispatch(CVsPending{Scope: first})
	s.Dispatch(CVsPending{Scope: second})

	s.Dispatch(CVsFetched{Scope: second, Page: api.Page[api.CV]{Content: []api.CV{{ID: "new"}}}})
	s.Dispatch(CVsFetched{Scope: first, Page: api.Page[api.CV]{Content: []api.CV{{ID: "old"}}}})

	st := s.State().CV
	if got := cvIDs(st.CVs); !reflect.DeepEqual(got, []string{"new"}) {
		t.Fatalf("cvs = %v, want [new]", got)
	}
	if st.Loading {
		t.Fatalf("loading should be cleared by the newest result")
	}
}

func TestFetchTenantsAutoSelectsFirst(t *testing.T) {
	s := New()
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}, {ID: "t2"}}})
	if s.CurrentTenantID() != "t1" {
		t.Fatalf("current = %q, want t1", s.CurrentTenantID())
	}
	selectTenant(s, "t2")
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}, {ID: "t2"}}})
	if s.CurrentTenantID() != "t2" {
		t.Fatalf("existing selection must be kept, got %q", s.CurrentTenantID())
	}
}

func TestDeleteCurrentTenantFallsBackToFirst(t *testing.T) {
	s := New()
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}})
	selectTenant(s, "t2")
	s.Dispatch(TenantDeleted{ID: "t2"})
	if s.CurrentTenantID() != "t1" {
		t.Fatalf("current = %q, want t1", s.CurrentTenantID())
	}
	s.Dispatch(TenantDeleted{ID: "t1"})
	s.Dispatch(TenantDeleted{ID: "t3"})
	if _, err := s.RequireTenant(); !errors.Is(err, ErrNoTenant) {
		t.Fatalf("expected ErrNoTenant, got %v", err)
	}
}

func TestCreateTenantPrependsAndSelects(t *testing.T) {
	s := New()
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}}})
	s.Dispatch(TenantCreated{Tenant: api.Tenant{ID: "t2"}})
	st := s.State().Tenant
	if len(st.Tenants) != 2 || st.Tenants[0].ID != "t2" || st.CurrentID() != "t2" {
		t.Fatalf("unexpected tenant state: %+v", st)
	}
}

func TestLogoutClearsSessionAndScopedState(t *testing.T) {
	s := New()
	s.Dispatch(LoginSucceeded{Session: api.Session{Token: "tok", UserID: "u1"}})
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}}})
	s.Dispatch(CVsFetched{Scope: Scope{TenantID: "t1"}, Page: api.Page[api.CV]{Content: []api.CV{{ID: "a"}}}})

	s.Dispatch(Logout{})
	st := s.State()
	if st.Auth.IsAuthenticated || st.Auth.Token != "" || st.Auth.User != nil {
		t.Fatalf("auth not cleared: %+v", st.Auth)
	}
	if st.Tenant.Current != nil || len(st.Tenant.Tenants) != 0 || len(st.CV.CVs) != 0 {
		t.Fatalf("tenant scoped state not cleared")
	}
	if _, err := s.Token(); !errors.Is(err, httpclient.ErrNoSession) {
		t.Fatalf("Token after logout = %v", err)
	}
}

func TestRegisterWithoutTokenStaysUnauthenticated(t *testing.T) {
	s := New()
	s.Dispatch(RegisterSucceeded{Session: api.Session{UserID: "u1", Email: "a@b.co"}})
	if s.IsAuthenticated() {
		t.Fatalf("register without token must not authenticate")
	}
	s.Dispatch(RegisterSucceeded{Session: api.Session{UserID: "u1", Token: "tok"}})
	if !s.IsAuthenticated() {
		t.Fatalf("register with token should authenticate")
	}
	tok, err := s.Token()
	if err != nil || tok.AccessToken != "tok" {
		t.Fatalf("Token = %+v, %v", tok, err)
	}
}

func TestPendingClearsError(t *testing.T) {
	s := New()
	s.Dispatch(AuthFailed{Message: "Bad credentials"})
	if s.State().Auth.Error != "Bad credentials" {
		t.Fatalf("error not stored")
	}
	s.Dispatch(AuthPending{})
	if s.State().Auth.Error != "" {
		t.Fatalf("pending should clear error")
	}
}

func TestThresholdMatchesKeepPageAndSize(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	scope := Scope{TenantID: "t1"}
	s.Dispatch(MatchesFetched{Scope: scope, Page: api.Page[api.Match]{Number: 2, Size: 20, TotalElements: 80, TotalPages: 4}})
	s.Dispatch(ThresholdMatchesFetched{Scope: scope, Matches: []api.Match{{ID: "a"}, {ID: "b"}}})
	got := s.State().Match.Pagination
	want := Pagination{Page: 2, Size: 20, TotalElements: 2, TotalPages: 1}
	if got != want {
		t.Fatalf("pagination = %+v, want %+v", got, want)
	}
}

func TestSmtpDeactivatedMarksInactive(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	scope := Scope{TenantID: "t1"}
	s.Dispatch(SmtpFetched{Scope: scope, Account: &api.SmtpAccount{ID: "s", Status: api.SmtpActive}})
	s.Dispatch(SmtpDeactivated{Scope: scope})
	if got := s.State().Smtp.Account.Status; got != api.SmtpInactive {
		t.Fatalf("status = %q", got)
	}
}

func TestLogSavedReplacesById(t *testing.T) {
	s := New()
	selectTenant(s, "t1")
	scope := Scope{TenantID: "t1"}
	s.Dispatch(LogsPending{Scope: scope, CampaignID: "c1"})
	s.Dispatch(LogsFetched{Scope: scope, Page: api.Page[api.EmailLog]{Content: []api.EmailLog{{ID: "l1", Body: "old"}, {ID: "l2"}}}})
	s.Dispatch(LogSaved{Scope: scope, Log: api.EmailLog{ID: "l1", Body: "new"}})
	logs := s.State().Campaign.Logs
	if logs[0].Body != "new" || logs[1].ID != "l2" {
		t.Fatalf("logs = %+v", logs)
	}
}

func TestSubscribersObserveCommittedState(t *testing.T) {
	s := New()
	var seen []Action
	unsubscribe := s.Subscribe(func(st State, a Action) {
		if st.UI.SidebarOpen {
			t.Errorf("subscriber saw state before toggle was applied")
		}
		seen = append(seen, a)
	})
	s.Dispatch(ToggleSidebar{})
	unsubscribe()
	s.Dispatch(ToggleSidebar{})
	if len(seen) != 1 {
		t.Fatalf("seen = %d actions, want 1", len(seen))
	}
}

func TestNotifyQueuesAndDismisses(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := 0
	s := New(WithClock(func() time.Time { return now }), WithIDs(func() string {
		ids++
		return "n" + string(rune('0'+ids))
	}))
	s.Notify(notify.LevelError, "Server error. Please try again later.")
	s.Notify(notify.LevelSuccess, "Saved")

	list := s.State().UI.Notifications
	if len(list) != 2 || list[0].ID != "n1" || list[0].Level != notify.LevelError || !list[0].CreatedAt.Equal(now) {
		t.Fatalf("notifications = %+v", list)
	}
	s.Dispatch(DismissNotification{ID: "n1"})
	list = s.State().UI.Notifications
	if len(list) != 1 || list[0].ID != "n2" {
		t.Fatalf("after dismiss = %+v", list)
	}
}

func TestToggleTheme(t *testing.T) {
	s := New()
	s.Dispatch(ToggleTheme{})
	if s.State().UI.Theme != ThemeDark {
		t.Fatalf("theme = %q", s.State().UI.Theme)
	}
	s.Dispatch(ToggleTheme{})
	if s.State().UI.Theme != ThemeLight {
		t.Fatalf("theme = %q", s.State().UI.Theme)
	}
}

func TestCampaignFetchFailedKeepsListLoading(t *testing.T) {
	s := New()
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}}})
	sc := s.ScopeFor("t1")
	s.Dispatch(CampaignsPending{Scope: sc})

	s.Dispatch(CampaignFetchFailed{Scope: Scope{TenantID: "t1"}, Message: "Failed to fetch campaign"})
	st := s.State().Campaign
	if !st.Loading || st.Error != "Failed to fetch campaign" {
		t.Fatalf("campaign state = %+v", st)
	}

	s.Dispatch(CampaignsFetched{Scope: sc, Page: api.Page[api.Campaign]{Content: []api.Campaign{{ID: "c1"}}}})
	if st := s.State().Campaign; st.Loading || len(st.Campaigns) != 1 {
		t.Fatalf("campaign state after list = %+v", st)
	}
}
