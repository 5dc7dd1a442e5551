// Package campaigns runs email campaigns and their per-recipient drafts.
package campaigns

import (
	"context"
	"errors"
	"strings"
	"time"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/poll"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/shared/validate"
	"scholar-console/internal/store"
)

const (
	DefaultMinMatchScore = 0.4
	// DefaultPollInterval is the draft-generation poller's tick.
	DefaultPollInterval = 3 * time.Second

	// scheduleLayout matches the backend's zone-less date-time.
	scheduleLayout = "2006-01-02T15:04:05"
)

// DefaultBodyTemplate prefills the new-campaign form.
const DefaultBodyTemplate = `Dear {{professor_name}},

I am writing to express my interest in potential research opportunities at {{university}}.

Based on my background in {{matched_keywords}}, I believe there could be a strong alignment with your research interests.

I would welcome the opportunity to discuss how my skills and experience could contribute to your work.

Best regards`

// ErrLogAlreadySent is returned when editing or sending a sent email.
var ErrLogAlreadySent = errors.New("email already sent")

// NoSmtpWarning is shown on the campaigns page when the tenant has no
// SMTP account.
const NoSmtpWarning = "Please configure your SMTP settings before executing campaigns."

type Service struct {
	Store *store.Store
	API   *api.Client

	PollInterval    time.Duration
	PollMaxFailures int
	After           func(time.Duration) <-chan time.Time
}

func New(s *store.Store, c *api.Client) *Service {
	return &Service{Store: s, API: c, PollInterval: DefaultPollInterval}
}

// NewRequest returns the form defaults.
func NewRequest() api.CreateCampaignRequest {
	return api.CreateCampaignRequest{BodyTemplate: DefaultBodyTemplate, MinMatchScore: DefaultMinMatchScore}
}

// ValidateCreate checks the new-campaign form.
func ValidateCreate(req api.CreateCampaignRequest) validate.Errors {
	errs := validate.Errors{}
	errs.Required("cvId", req.CVID, "Please select a CV")
	errs.Required("name", req.Name, "Campaign name is required")
	errs.Required("subject", req.Subject, "Subject is required")
	errs.Required("bodyTemplate", req.BodyTemplate, "Email body is required")
	if req.MinMatchScore < 0 || req.MinMatchScore > 1 {
		errs.Add("minMatchScore", "Score must be between 0 and 1")
	}
	return errs
}

// FetchCampaigns loads one page of campaigns, newest first.
func (s *Service) FetchCampaigns(ctx context.Context, page, size int) (api.Page[api.Campaign], error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.Page[api.Campaign]{}, err
	}
	if size <= 0 {
		size = store.DefaultCampaignPageSize
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.CampaignsPending{Scope: sc})
	p, err := s.API.ListCampaigns(ctx, tenantID, page, size)
	if err != nil {
		s.Store.Dispatch(store.CampaignsFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch campaigns")})
		return api.Page[api.Campaign]{}, err
	}
	s.Store.Dispatch(store.CampaignsFetched{Scope: sc, Page: p})
	return p, nil
}

// FetchCampaign loads one campaign, replaces it in the list and makes it
// current.
func (s *Service) FetchCampaign(ctx context.Context, id string) (api.Campaign, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.Campaign{}, err
	}
	sc := store.Scope{TenantID: tenantID}
	c, err := s.API.GetCampaign(ctx, tenantID, id)
	if err != nil {
		s.Store.Dispatch(store.CampaignFetchFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch campaign")})
		return api.Campaign{}, err
	}
	s.Store.Dispatch(store.CampaignFetched{Scope: sc, Campaign: c})
	return c, nil
}

// CreateCampaign validates and creates a draft campaign. It is prepended
// and becomes current.
func (s *Service) CreateCampaign(ctx context.Context, req api.CreateCampaignRequest) (api.Campaign, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.Campaign{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := ValidateCreate(req).Err(); err != nil {
		return api.Campaign{}, err
	}

	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.CampaignCreatePending{Scope: sc})
	c, err := s.API.CreateCampaign(ctx, tenantID, req)
	if err != nil {
		s.Store.Dispatch(store.CampaignCreateFailed{Scope: sc, Message: httpclient.Message(err, "Failed to create campaign")})
		return api.Campaign{}, err
	}
	s.Store.Dispatch(store.CampaignCreated{Scope: sc, Campaign: c})
	s.Store.Notify(notify.LevelSuccess, "Campaign created successfully")
	telemetry.Info("campaign.created", map[string]any{"tenant_id": tenantID, "campaign_id": c.ID, "cv_id": req.CVID})
	return c, nil
}

// ScheduleCampaign schedules a draft to start at at.
func (s *Service) ScheduleCampaign(ctx context.Context, id string, at time.Time) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	if err := s.API.ScheduleCampaign(ctx, tenantID, id, at.Format(scheduleLayout)); err != nil {
		s.Store.Dispatch(store.ScheduleFailed{Scope: sc, Message: httpclient.Message(err, "Failed to schedule campaign")})
		return "", err
	}
	s.Store.Dispatch(store.ScheduleRequested{Scope: sc, ID: id})
	s.Store.Notify(notify.LevelSuccess, "Campaign scheduled")
	return id, nil
}

// ExecuteCampaign starts sending a campaign now.
func (s *Service) ExecuteCampaign(ctx context.Context, id string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.ExecutePending{Scope: sc})
	if err := s.API.ExecuteCampaign(ctx, tenantID, id); err != nil {
		s.Store.Dispatch(store.ExecuteFailed{Scope: sc, Message: httpclient.Message(err, "Failed to execute campaign")})
		return "", err
	}
	s.Store.Dispatch(store.ExecuteRequested{Scope: sc, ID: id})
	s.Store.Notify(notify.LevelSuccess, "Campaign execution started")
	return id, nil
}

// CancelCampaign cancels a scheduled campaign.
func (s *Service) CancelCampaign(ctx context.Context, id string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	sc := store.Scope{TenantID: tenantID}
	if err := s.API.CancelCampaign(ctx, tenantID, id); err != nil {
		s.Store.Dispatch(store.CancelFailed{Scope: sc, Message: httpclient.Message(err, "Failed to cancel campaign")})
		return "", err
	}
	s.Store.Dispatch(store.CancelRequested{Scope: sc, ID: id})
	s.Store.Notify(notify.LevelSuccess, "Campaign cancelled")
	return id, nil
}

// FetchCampaignLogs loads one page of a campaign's email logs.
func (s *Service) FetchCampaignLogs(ctx context.Context, campaignID string, page, size int) (api.Page[api.EmailLog], error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.Page[api.EmailLog]{}, err
	}
	if size <= 0 {
		size = store.DefaultLogPageSize
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.LogsPending{Scope: sc, CampaignID: campaignID})
	p, err := s.API.CampaignLogs(ctx, tenantID, campaignID, page, size)
	if err != nil {
		s.Store.Dispatch(store.LogsFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch logs")})
		return api.Page[api.EmailLog]{}, err
	}
	s.Store.Dispatch(store.LogsFetched{Scope: sc, Page: p})
	return p, nil
}

// FetchLog loads one email log and makes it current.
func (s *Service) FetchLog(ctx context.Context, logID string) (api.EmailLog, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.EmailLog{}, err
	}
	sc := store.Scope{TenantID: tenantID}
	l, err := s.API.GetLog(ctx, tenantID, logID)
	if err != nil {
		s.Store.Dispatch(store.LogSaveFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch email log")})
		return api.EmailLog{}, err
	}
	s.Store.Dispatch(store.LogFetched{Scope: sc, Log: l})
	return l, nil
}

// UpdateEmailDraft replaces a draft body. Logs known to be SENT are refused
// without a network call.
func (s *Service) UpdateEmailDraft(ctx context.Context, logID, body string) (api.EmailLog, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.EmailLog{}, err
	}
	if l, ok := s.Store.State().Campaign.FindLog(logID); ok && !api.CanEditBody(l) {
		return api.EmailLog{}, ErrLogAlreadySent
	}

	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.LogSavePending{Scope: sc})
	l, err := s.API.UpdateLogBody(ctx, tenantID, logID, body)
	if err != nil {
		s.Store.Dispatch(store.LogSaveFailed{Scope: sc, Message: httpclient.Message(err, "Failed to update draft")})
		return api.EmailLog{}, err
	}
	s.Store.Dispatch(store.LogSaved{Scope: sc, Log: l})
	s.Store.Notify(notify.LevelSuccess, "Draft updated")
	return l, nil
}

// RegenerateDraft asks the backend for a fresh draft body.
func (s *Service) RegenerateDraft(ctx context.Context, logID string) (api.EmailLog, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.EmailLog{}, err
	}
	if l, ok := s.Store.State().Campaign.FindLog(logID); ok && !api.CanEditBody(l) {
		return api.EmailLog{}, ErrLogAlreadySent
	}

	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.LogSavePending{Scope: sc})
	l, err := s.API.RegenerateLog(ctx, tenantID, logID)
	if err != nil {
		s.Store.Dispatch(store.LogSaveFailed{Scope: sc, Message: httpclient.Message(err, "Failed to regenerate draft")})
		return api.EmailLog{}, err
	}
	s.Store.Dispatch(store.LogSaved{Scope: sc, Log: l})
	s.Store.Notify(notify.LevelSuccess, "Draft regenerated")
	return l, nil
}

// SendIndividualEmail sends one drafted email.
func (s *Service) SendIndividualEmail(ctx context.Context, logID string) (string, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return "", err
	}
	if l, ok := s.Store.State().Campaign.FindLog(logID); ok && !api.CanSend(l) {
		return "", ErrLogAlreadySent
	}

	sc := store.Scope{TenantID: tenantID}
	if err := s.API.SendLog(ctx, tenantID, logID); err != nil {
		s.Store.Dispatch(store.LogSendFailed{Scope: sc, Message: httpclient.Message(err, "Failed to send email")})
		return "", err
	}
	s.Store.Dispatch(store.LogSendRequested{Scope: sc, ID: logID})
	s.Store.Notify(notify.LevelSuccess, "Email sent successfully")
	return logID, nil
}

// SendDraft saves body first when it differs from the stored draft, sends
// the email and reloads the log list it belongs to.
func (s *Service) SendDraft(ctx context.Context, logID, body string) (string, error) {
	st := s.Store.State().Campaign
	if l, ok := st.FindLog(logID); ok && body != "" && l.Body != body {
		if _, err := s.UpdateEmailDraft(ctx, logID, body); err != nil {
			return "", err
		}
	}
	id, err := s.SendIndividualEmail(ctx, logID)
	if err != nil {
		return "", err
	}
	if st.LogsCampaignID != "" {
		if _, err := s.FetchCampaignLogs(ctx, st.LogsCampaignID, st.LogsPagination.Page, st.LogsPagination.Size); err != nil {
			telemetry.Warn("campaign.logs_refresh_failed", map[string]any{"campaign_id": st.LogsCampaignID, "error": err})
		}
	}
	return id, nil
}

func (s *Service) SetCurrentCampaign(c *api.Campaign) {
	s.Store.Dispatch(store.SetCurrentCampaign{Campaign: c})
}

func (s *Service) ClearError() {
	s.Store.Dispatch(store.ClearCampaignError{})
}

// NewGenerationPoller watches a campaign's logs until expected drafts hold
// generated bodies. Observations are committed while the campaign's logs
// are the ones on display.
func (s *Service) NewGenerationPoller(campaignID string, expected int) (*poll.Controller[api.Page[api.EmailLog]], error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return nil, err
	}
	size := store.DefaultLogPageSize
	if expected > size {
		size = expected
	}
	return poll.New(poll.Options{
		Name:        "draft_generation",
		Interval:    s.PollInterval,
		MaxFailures: s.PollMaxFailures,
		After:       s.After,
	}, poll.Spec[api.Page[api.EmailLog]]{
		Fetch: func(ctx context.Context) (api.Page[api.EmailLog], error) {
			return s.API.CampaignLogs(ctx, tenantID, campaignID, 0, size)
		},
		Terminal: func(p api.Page[api.EmailLog]) bool {
			return api.CountGenerated(p.Content) >= expected
		},
		Observe: func(p api.Page[api.EmailLog]) {
			st := s.Store.State()
			if st.Tenant.CurrentID() != tenantID || st.Campaign.LogsCampaignID != campaignID {
				return
			}
			s.Store.Dispatch(store.LogsFetched{
				Scope: store.Scope{TenantID: tenantID},
				Page:  p,
			})
		},
	}), nil
}
