// Package cvs runs the CV operations: listing, upload, parsing and match
// computation.
package cvs

import (
	"context"
	"time"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/poll"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/store"
)

// DefaultPollInterval is the parse poller's tick.
const DefaultPollInterval = 2 * time.Second

type Service struct {
	Store *store.Store
	API   *api.Client

	PollInterval    time.Duration
	PollMaxFailures int
	// After replaces time.After for the parse poller in tests.
	After func(time.Duration) <-chan time.Time
}

func New(s *store.Store, c *api.Client) *Service {
	return &Service{Store: s, API: c, PollInterval: DefaultPollInterval}
}

// FetchCVs loads one page of the current tenant's CVs, newest first. A size
// of zero uses the default page size.
func (s *Service) FetchCVs(ctx context.Context, page, size int) (api.Page[api.CV], error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.Page[api.CV]{}, err
	}
	if size <= 0 {
		size = store.DefaultCVPageSize
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.CVsPending{Scope: sc})
	p, err := s.API.ListCVs(ctx, tenantID, page, size)
	if err != nil {
		s.Store.Dispatch(store.CVsFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch CVs")})
		return api.Page[api.CV]{}, err
	}
	s.Store.Dispatch(store.CVsFetched{Scope: sc, Page: p})
	return p, nil
}

// FetchCV loads one CV and makes it current.
func (s *Service) FetchCV(ctx context.Context, id string) (api.CV, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.CV{}, err
	}
	sc := store.Scope{TenantID: tenantID}
	cv, err := s.API.GetCV(ctx, tenantID, id)
	if err != nil {
		s.Store.Dispatch(store.CVFetchFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch CV")})
		return api.CV{}, err
	}
	s.Store.Dispatch(store.CVFetched{Scope: sc, CV: cv})
	return cv, nil
}

// UploadCV validates and uploads a file. The new CV is prepended, becomes
// current and is tracked as parsing.
func (s *Service) UploadCV(ctx context.Context, filename string, data []byte) (api.CV, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.CV{}, err
	}
	if _, errs := ValidateUpload(filename, data); !errs.OK() {
		return api.CV{}, errs
	}
	filename, _ = CleanFileName(filename)

	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.UploadPending{Scope: sc})
	cv, err := s.API.UploadCV(ctx, tenantID, filename, data)
	if err != nil {
		s.Store.Dispatch(store.UploadFailed{Scope: sc, Message: httpclient.Message(err, "Failed to upload CV")})
		return api.CV{}, err
	}
	s.Store.Dispatch(store.CVUploaded{Scope: sc, CV: cv})
	s.Store.Notify(notify.LevelSuccess, filename+" uploaded successfully")
	telemetry.Info("cv.uploaded", map[string]any{"tenant_id": tenantID, "cv_id": cv.ID, "bytes": len(data)})
	return cv, nil
}

// ParseCV asks the backend to parse id. Callers poll for the outcome.
func (s *Service) ParseCV(ctx context.Context, id string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.ParsePending{Scope: sc, CVID: id})
	if err := s.API.ParseCV(ctx, tenantID, id); err != nil {
		s.Store.Dispatch(store.ParseFailed{Scope: sc, CVID: id, Message: httpclient.Message(err, "Failed to parse CV")})
		return "", err
	}
	s.Store.Dispatch(store.ParseRequested{Scope: sc, CVID: id})
	s.Store.Notify(notify.LevelSuccess, "CV parsing started")
	return id, nil
}

// ComputeMatches asks the backend to match id against professors.
func (s *Service) ComputeMatches(ctx context.Context, id string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	if err := s.API.ComputeMatches(ctx, tenantID, id); err != nil {
		s.Store.Dispatch(store.ComputeMatchesFailed{Scope: sc, Message: httpclient.Message(err, "Failed to compute matches")})
		return "", err
	}
	s.Store.Dispatch(store.ComputeMatchesRequested{Scope: sc, CVID: id})
	s.Store.Notify(notify.LevelSuccess, "Match computation started")
	return id, nil
}

// DeleteCV removes id from the backend and the list.
func (s *Service) DeleteCV(ctx context.Context, id string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	if err := s.API.DeleteCV(ctx, tenantID, id); err != nil {
		s.Store.Dispatch(store.CVDeleteFailed{Scope: sc, Message: httpclient.Message(err, "Failed to delete CV")})
		return "", err
	}
	s.Store.Dispatch(store.CVDeleted{Scope: sc, ID: id})
	s.Store.Notify(notify.LevelSuccess, "CV deleted successfully")
	return id, nil
}

func (s *Service) UpdateCVInList(cv api.CV) {
	s.Store.Dispatch(store.UpdateCVInList{CV: cv})
}

func (s *Service) SetCurrentCV(cv *api.CV) {
	s.Store.Dispatch(store.SetCurrentCV{CV: cv})
}

func (s *Service) ClearParsingCV() {
	s.Store.Dispatch(store.ClearParsingCV{})
}

func (s *Service) ClearError() {
	s.Store.Dispatch(store.ClearCVError{})
}

// NewParsePoller watches cvID until parsing completes or fails. Every
// observation is written into the list; the parsing marker is cleared at
// the terminal status.
func (s *Service) NewParsePoller(cvID string) (*poll.Controller[api.CV], error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return nil, err
	}
	return poll.New(poll.Options{
		Name:        "cv_parse",
		Interval:    s.PollInterval,
		MaxFailures: s.PollMaxFailures,
		After:       s.After,
	}, poll.Spec[api.CV]{
		Fetch: func(ctx context.Context) (api.CV, error) {
			return s.API.GetCV(ctx, tenantID, cvID)
		},
		Terminal: func(cv api.CV) bool {
			return cv.ParsingStatus.IsTerminal()
		},
		Observe: func(cv api.CV) {
			if s.Store.CurrentTenantID() != tenantID {
				return
			}
			s.Store.Dispatch(store.UpdateCVInList{CV: cv})
			if cv.ParsingStatus.IsTerminal() && s.Store.State().CV.ParsingCVID == cv.ID {
				s.Store.Dispatch(store.ClearParsingCV{})
			}
		},
	}), nil
}
