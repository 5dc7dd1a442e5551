// Package tenants manages the tenant list, the current tenant and its
// dashboard.
package tenants

import (
	"context"
	"errors"
	"strings"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/shared/validate"
	"scholar-console/internal/store"
)

// ErrNotFound is returned by Select for an id outside the loaded list.
var ErrNotFound = errors.New("tenant not found")

type Service struct {
	Store *store.Store
	API   *api.Client
}

func New(s *store.Store, c *api.Client) *Service {
	return &Service{Store: s, API: c}
}

// ValidateCreate checks the new-tenant form.
func ValidateCreate(req api.TenantRequest) validate.Errors {
	errs := validate.Errors{}
	errs.Required("name", req.Name, "Organization name is required")
	errs.Email("email", req.Email)
	return errs
}

// FetchTenants loads the user's tenants. The first tenant becomes current
// when none is selected.
func (s *Service) FetchTenants(ctx context.Context) ([]api.Tenant, error) {
	sc := store.Scope{Seq: s.Store.NextSeq()}
	s.Store.Dispatch(store.TenantsPending{Scope: sc})
	list, err := s.API.ListTenants(ctx)
	if err != nil {
		s.Store.Dispatch(store.TenantsFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch tenants")})
		return nil, err
	}
	s.Store.Dispatch(store.TenantsFetched{Scope: sc, Tenants: list})
	return list, nil
}

// CreateTenant appends the tenant and makes it current.
func (s *Service) CreateTenant(ctx context.Context, req api.TenantRequest) (api.Tenant, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := ValidateCreate(req).Err(); err != nil {
		return api.Tenant{}, err
	}

	s.Store.Dispatch(store.TenantCreatePending{})
	t, err := s.API.CreateTenant(ctx, req)
	if err != nil {
		s.Store.Dispatch(store.TenantCreateFailed{Message: httpclient.Message(err, "Failed to create tenant")})
		return api.Tenant{}, err
	}
	s.Store.Dispatch(store.TenantCreated{Tenant: t})
	s.Store.Notify(notify.LevelSuccess, "Organization created successfully")
	telemetry.Info("tenant.created", map[string]any{"tenant_id": t.ID})
	return t, nil
}

// DeleteTenant removes the tenant. Deleting the current tenant falls back to
// the first remaining one.
func (s *Service) DeleteTenant(ctx context.Context, id string) error {
	if err := s.API.DeleteTenant(ctx, id); err != nil {
		s.Store.Dispatch(store.TenantDeleteFailed{Message: httpclient.Message(err, "Failed to delete tenant")})
		return err
	}
	s.Store.Dispatch(store.TenantDeleted{ID: id})
	s.Store.Notify(notify.LevelSuccess, "Organization deleted")
	return nil
}

// FetchDashboard loads the statistics of tenantID, or of the current tenant
// when tenantID is empty.
func (s *Service) FetchDashboard(ctx context.Context, tenantID string) (api.TenantDashboard, error) {
	tenantID, err := s.resolve(tenantID)
	if err != nil {
		return api.TenantDashboard{}, err
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.DashboardPending{Scope: sc})
	d, err := s.API.TenantDashboard(ctx, tenantID)
	if err != nil {
		s.Store.Dispatch(store.DashboardFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch dashboard")})
		return api.TenantDashboard{}, err
	}
	s.Store.Dispatch(store.DashboardFetched{Scope: sc, Dashboard: d})
	return d, nil
}

// FetchIncomingEmails loads the tenant inbox preview.
func (s *Service) FetchIncomingEmails(ctx context.Context, tenantID string) ([]api.IncomingEmail, error) {
	tenantID, err := s.resolve(tenantID)
	if err != nil {
		return nil, err
	}
	sc := s.Store.ScopeFor(tenantID)
	s.Store.Dispatch(store.IncomingEmailsPending{Scope: sc})
	list, err := s.API.IncomingEmails(ctx, tenantID)
	if err != nil {
		s.Store.Dispatch(store.IncomingEmailsFailed{Scope: sc, Message: httpclient.Message(err, "Failed to fetch incoming emails")})
		return nil, err
	}
	s.Store.Dispatch(store.IncomingEmailsFetched{Scope: sc, Emails: list})
	return list, nil
}

// Select makes the listed tenant id current. Every tenant-scoped slice is
// reset, even when id is already current.
func (s *Service) Select(id string) (api.Tenant, error) {
	for _, t := range s.Store.State().Tenant.Tenants {
		if t.ID == id {
			t := t
			s.Store.Dispatch(store.SelectTenant{Tenant: &t})
			telemetry.Info("tenant.selected", map[string]any{"tenant_id": id})
			return t, nil
		}
	}
	return api.Tenant{}, ErrNotFound
}

// ClearError clears the last tenant error.
func (s *Service) ClearError() {
	s.Store.Dispatch(store.ClearTenantError{})
}

func (s *Service) resolve(tenantID string) (string, error) {
	if tenantID != "" {
		return tenantID, nil
	}
	return s.Store.RequireTenant()
}
