// Package smtp manages the tenant's outgoing mail account.
package smtp

import (
	"context"
	"strings"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/shared/validate"
	"scholar-console/internal/store"
)

// DefaultPort prefills the settings form.
const DefaultPort = 587

type Service struct {
	Store *store.Store
	API   *api.Client
}

func New(s *store.Store, c *api.Client) *Service {
	return &Service{Store: s, API: c}
}

// NewRequest returns the form defaults, or the stored account without its
// password when one exists.
func NewRequest(acct *api.SmtpAccount) api.SmtpAccountRequest {
	if acct == nil {
		return api.SmtpAccountRequest{SmtpPort: DefaultPort, UseTLS: true}
	}
	return api.SmtpAccountRequest{
		Email:    acct.Email,
		SmtpHost: acct.SmtpHost,
		SmtpPort: acct.SmtpPort,
		Username: acct.Username,
		UseTLS:   acct.UseTLS,
		UseSSL:   acct.UseSSL,
		FromName: acct.FromName,
	}
}

// Validate checks the settings form. A password is only required for the
// first save.
func Validate(req api.SmtpAccountRequest, hasAccount bool) validate.Errors {
	errs := validate.Errors{}
	errs.Required("email", req.Email, "Email is required")
	errs.Required("smtpHost", req.SmtpHost, "SMTP host is required")
	if req.SmtpPort <= 0 || req.SmtpPort > 65535 {
		errs.Add("smtpPort", "Port is required")
	}
	errs.Required("username", req.Username, "Username is required")
	if req.Password == "" && !hasAccount {
		errs.Add("password", "Password is required")
	}
	return errs
}

// FetchSmtpAccount loads the tenant's account. A missing account is not an
// error: the slice holds nil.
func (s *Service) FetchSmtpAccount(ctx context.Context) (*api.SmtpAccount, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return nil, err
	}
	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.SmtpPending{Scope: sc})
	acct, err := s.API.GetSmtpAccount(ctx, tenantID)
	if httpclient.IsNotFound(err) {
		s.Store.Dispatch(store.SmtpFetched{Scope: sc})
		return nil, nil
	}
	if err != nil {
		s.Store.Dispatch(store.SmtpFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch SMTP account")})
		return nil, err
	}
	s.Store.Dispatch(store.SmtpFetched{Scope: sc, Account: &acct})
	return &acct, nil
}

// SaveSmtpAccount creates or replaces the account, then reloads it since
// the backend does not echo it back.
func (s *Service) SaveSmtpAccount(ctx context.Context, req api.SmtpAccountRequest) (api.SmtpAccount, error) {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return api.SmtpAccount{}, err
	}
	req.Email = strings.TrimSpace(req.Email)
	req.SmtpHost = strings.TrimSpace(req.SmtpHost)
	req.Username = strings.TrimSpace(req.Username)
	if err := Validate(req, s.Store.State().Smtp.Account != nil).Err(); err != nil {
		return api.SmtpAccount{}, err
	}

	sc := store.Scope{TenantID: tenantID}
	s.Store.Dispatch(store.SmtpSavePending{Scope: sc})
	if err := s.API.SaveSmtpAccount(ctx, tenantID, req); err != nil {
		s.Store.Dispatch(store.SmtpSaveFailed{Scope: sc, Message: httpclient.Message(err, "Failed to save SMTP account")})
		return api.SmtpAccount{}, err
	}
	acct, err := s.API.GetSmtpAccount(ctx, tenantID)
	if err != nil {
		s.Store.Dispatch(store.SmtpSaveFailed{Scope: sc, Message: httpclient.Message(err, "Failed to save SMTP account")})
		return api.SmtpAccount{}, err
	}
	s.Store.Dispatch(store.SmtpSaved{Scope: sc, Account: acct})
	s.Store.Notify(notify.LevelSuccess, "SMTP settings saved successfully")
	telemetry.Info("smtp.saved", map[string]any{"tenant_id": tenantID, "host": acct.SmtpHost})
	return acct, nil
}

// DeactivateSmtpAccount marks the account INACTIVE.
func (s *Service) DeactivateSmtpAccount(ctx context.Context) error {
	tenantID, err := s.Store.RequireTenant()
	if err != nil {
		return err
	}
	sc := store.Scope{TenantID: tenantID}
	if err := s.API.DeactivateSmtpAccount(ctx, tenantID); err != nil {
		s.Store.Dispatch(store.SmtpDeactivateFailed{Scope: sc, Message: httpclient.Message(err, "Failed to deactivate SMTP account")})
		return err
	}
	s.Store.Dispatch(store.SmtpDeactivated{Scope: sc})
	s.Store.Notify(notify.LevelSuccess, "SMTP account deactivated")
	return nil
}

func (s *Service) ClearError() {
	s.Store.Dispatch(store.ClearSmtpError{})
}
