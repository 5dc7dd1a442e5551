// Package matches loads professor matches for a CV and filters them for
// display.
package matches

import (
	"context"
	"strings"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/store"
)

type Service struct {
	Store *store.Store
	API   *api.Client
}

func New(s *store.Store, c *api.Client) *Service {
	return &Service{Store: s, API: c}
}

// Filter keeps matches scoring at least minScore whose professor or
// keywords contain search, case-insensitively. Order is preserved.
func Filter(matches []api.Match, minScore float64, search string) []api.Match {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]api.Match, 0, len(matches))
	for _, m := range matches {
		if m.MatchScore < minScore {
			continue
		}
		if needle != "" && !contains(m, needle) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func contains(m api.Match, needle string) bool {
	p := m.Professor
	for _, field := range []string{p.FirstName, p.LastName, p.Email, p.UniversityName, p.Department, m.MatchedKeywords} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// FetchMatches loads one page of matches for cvID.
func (s *Service) FetchMatches(ctx context.Context, cvID string, page, size int) (api.Page[api.Match], error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.Page[api.Match]{}, err
	}
	if size <= 0 {
		size = store.DefaultMatchPageSize
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.MatchesPending{Scope: sc, CVID: cvID})
	p, err := s.API.ListMatches(ctx, tenantID, cvID, page, size)
	if err != nil {
		s.Store.Dispatch(store.MatchesFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch matches")})
		return api.Page[api.Match]{}, err
	}
	s.Store.Dispatch(store.MatchesFetched{Scope: sc, Page: p})
	return p, nil
}

// FetchMatchesAboveThreshold loads every match of cvID scoring at least
// minScore as a single page.
func (s *Service) FetchMatchesAboveThreshold(ctx context.Context, cvID string, minScore float64) ([]api.Match, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return nil, err
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.MatchesPending{Scope: sc, CVID: cvID})
	list, err := s.API.MatchesAboveThreshold(ctx, tenantID, cvID, minScore)
	if err != nil {
		s.Store.Dispatch(store.MatchesFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch matches")})
		return nil, err
	}
	s.Store.Dispatch(store.ThresholdMatchesFetched{Scope: sc, Matches: list})
	return list, nil
}

// FetchForView loads what the matches page shows: the threshold list when
// minScore is positive, the first page otherwise.
func (s *Service) FetchForView(ctx context.Context, cvID string, minScore float64) ([]api.Match, error) {
	s.SetMinScoreFilter(minScore)
	if minScore > 0 {
		return s.FetchMatchesAboveThreshold(ctx, cvID, minScore)
	}
	p, err := s.FetchMatches(ctx, cvID, 0, 0)
	if err != nil {
		return nil, err
	}
	return p.Content, nil
}

// RecomputeMatches asks the backend to rescore cvID. Cached match pages for
// the CV are dropped.
func (s *Service) RecomputeMatches(ctx context.Context, cvID string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.RecomputePending{Scope: sc})
	if err := s.API.RecomputeMatches(ctx, tenantID, cvID); err != nil {
		s.Store.Dispatch(store.RecomputeFailed{Scope: sc, Message: httpclient.Message(err, "Failed to compute matches")})
		return "", err
	}
	s.Store.Dispatch(store.Recomputed{Scope: sc})
	s.Store.Notify(notify.LevelSuccess, "Match computation started")
	return cvID, nil
}

func (s *Service) SetMinScoreFilter(minScore float64) {
	s.Store.Dispatch(store.SetMinScoreFilter{MinScore: minScore})
}

func (s *Service) ClearError() {
	s.Store.Dispatch(store.ClearMatchError{})
}
