// Package api exposes the backend REST endpoints as typed methods over the
// shared HTTP client.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"scholar-console/internal/httpclient"
)

const (
	cvSort       = "uploadedAt,desc"
	campaignSort = "createdAt,desc"
)

// Client is the typed backend API.
type Client struct {
	HTTP *httpclient.Client
}

// New wraps an HTTP client.
func New(c *httpclient.Client) *Client {
	return &Client{HTTP: c}
}

func tenantParams(tenantID string) url.Values {
	return url.Values{"tenantId": {tenantID}}
}

func pageParams(tenantID string, page, size int, sort string) url.Values {
	v := tenantParams(tenantID)
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))
	if sort != "" {
		v.Set("sort", sort)
	}
	return v
}

func get[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	var env Envelope[T]
	if err := c.HTTP.Get(ctx, path, params, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.unwrap()
}

func getCached[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	var env Envelope[T]
	if err := c.HTTP.GetCached(ctx, path, params, 0, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.unwrap()
}

func post[T any](ctx context.Context, c *Client, path string, params url.Values, body any) (T, error) {
	var env Envelope[T]
	if err := c.HTTP.Post(ctx, path, params, body, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.unwrap()
}

// ack sends a side-effect request and checks the acknowledgement.
func (c *Client) ack(ctx context.Context, method, path string, params url.Values, body any) error {
	var a Ack
	var err error
	switch method {
	case http.MethodDelete:
		err = c.HTTP.Delete(ctx, path, params, &a)
	case http.MethodPut:
		err = c.HTTP.Put(ctx, path, params, body, &a)
	default:
		err = c.HTTP.Post(ctx, path, params, body, &a)
	}
	if err != nil {
		return err
	}
	return a.err()
}

// Auth

func (c *Client) Authenticate(ctx context.Context, req AuthenticationRequest) (Session, error) {
	return post[Session](ctx, c, "/v1/auth/authenticate", nil, req)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	return post[Session](ctx, c, "/v1/auth/register", nil, req)
}

// Tenants

func (c *Client) ListTenants(ctx context.Context) ([]Tenant, error) {
	return get[[]Tenant](ctx, c, "/v1/tenants", nil)
}

func (c *Client) CreateTenant(ctx context.Context, req TenantRequest) (Tenant, error) {
	t, err := post[Tenant](ctx, c, "/v1/tenants", nil, req)
	if err != nil {
		return Tenant{}, err
	}
	c.HTTP.Invalidate(ctx, "/v1/tenants")
	return t, nil
}

func (c *Client) DeleteTenant(ctx context.Context, tenantID string) error {
	if err := c.ack(ctx, http.MethodDelete, "/v1/tenants/"+url.PathEscape(tenantID), nil, nil); err != nil {
		return err
	}
	c.HTTP.Invalidate(ctx, "/v1/tenants")
	return nil
}

// TenantDashboard is served through the response cache.
func (c *Client) TenantDashboard(ctx context.Context, tenantID string) (TenantDashboard, error) {
	return getCached[TenantDashboard](ctx, c, "/v1/tenants/"+url.PathEscape(tenantID)+"/stats", nil)
}

func (c *Client) IncomingEmails(ctx context.Context, tenantID string) ([]IncomingEmail, error) {
	return getCached[[]IncomingEmail](ctx, c, "/v1/tenants/"+url.PathEscape(tenantID)+"/incoming-emails", nil)
}

// CVs

func (c *Client) ListCVs(ctx context.Context, tenantID string, page, size int) (Page[CV], error) {
	return get[Page[CV]](ctx, c, "/v1/cvs", pageParams(tenantID, page, size, cvSort))
}

func (c *Client) GetCV(ctx context.Context, tenantID, cvID string) (CV, error) {
	return get[CV](ctx, c, "/v1/cvs/"+url.PathEscape(cvID), tenantParams(tenantID))
}

func (c *Client) UploadCV(ctx context.Context, tenantID, filename string, data []byte) (CV, error) {
	var env Envelope[CV]
	err := c.HTTP.PostMultipart(ctx, "/v1/cvs/upload",
		httpclient.Upload{Field: "file", Filename: filename, Data: data},
		map[string]string{"tenantId": tenantID}, &env)
	if err != nil {
		return CV{}, err
	}
	c.invalidateTenant(ctx, tenantID)
	return env.unwrap()
}

func (c *Client) ParseCV(ctx context.Context, tenantID, cvID string) error {
	return c.ack(ctx, http.MethodPost, "/v1/cvs/"+url.PathEscape(cvID)+"/parse", tenantParams(tenantID), nil)
}

func (c *Client) ComputeMatches(ctx context.Context, tenantID, cvID string) error {
	if err := c.ack(ctx, http.MethodPost, "/v1/cvs/"+url.PathEscape(cvID)+"/compute-matches", tenantParams(tenantID), nil); err != nil {
		return err
	}
	c.HTTP.Invalidate(ctx, matchesPath(cvID))
	return nil
}

func (c *Client) DeleteCV(ctx context.Context, tenantID, cvID string) error {
	if err := c.ack(ctx, http.MethodDelete, "/v1/cvs/"+url.PathEscape(cvID), tenantParams(tenantID), nil); err != nil {
		return err
	}
	c.invalidateTenant(ctx, tenantID)
	c.HTTP.Invalidate(ctx, matchesPath(cvID))
	return nil
}

// Matches

func matchesPath(cvID string) string {
	return "/v1/matches/cv/" + url.PathEscape(cvID)
}

func (c *Client) ListMatches(ctx context.Context, tenantID, cvID string, page, size int) (Page[Match], error) {
	return getCached[Page[Match]](ctx, c, matchesPath(cvID), pageParams(tenantID, page, size, ""))
}

func (c *Client) MatchesAboveThreshold(ctx context.Context, tenantID, cvID string, minScore float64) ([]Match, error) {
	params := tenantParams(tenantID)
	params.Set("minScore", strconv.FormatFloat(minScore, 'f', -1, 64))
	return getCached[[]Match](ctx, c, matchesPath(cvID)+"/above-threshold", params)
}

func (c *Client) RecomputeMatches(ctx context.Context, tenantID, cvID string) error {
	if err := c.ack(ctx, http.MethodPost, matchesPath(cvID)+"/recompute", tenantParams(tenantID), nil); err != nil {
		return err
	}
	c.HTTP.Invalidate(ctx, matchesPath(cvID))
	return nil
}

// Campaigns

func campaignPath(id string) string {
	return "/v1/campaigns/" + url.PathEscape(id)
}

func (c *Client) ListCampaigns(ctx context.Context, tenantID string, page, size int) (Page[Campaign], error) {
	return get[Page[Campaign]](ctx, c, "/v1/campaigns", pageParams(tenantID, page, size, campaignSort))
}

func (c *Client) GetCampaign(ctx context.Context, tenantID, id string) (Campaign, error) {
	return get[Campaign](ctx, c, campaignPath(id), tenantParams(tenantID))
}

func (c *Client) CreateCampaign(ctx context.Context, tenantID string, req CreateCampaignRequest) (Campaign, error) {
	camp, err := post[Campaign](ctx, c, "/v1/campaigns", tenantParams(tenantID), req)
	if err != nil {
		return Campaign{}, err
	}
	c.invalidateTenant(ctx, tenantID)
	return camp, nil
}

func (c *Client) ScheduleCampaign(ctx context.Context, tenantID, id, scheduledAt string) error {
	params := tenantParams(tenantID)
	params.Set("scheduledAt", scheduledAt)
	return c.ack(ctx, http.MethodPost, campaignPath(id)+"/schedule", params, nil)
}

func (c *Client) ExecuteCampaign(ctx context.Context, tenantID, id string) error {
	if err := c.ack(ctx, http.MethodPost, campaignPath(id)+"/execute", tenantParams(tenantID), nil); err != nil {
		return err
	}
	c.invalidateTenant(ctx, tenantID)
	return nil
}

func (c *Client) CancelCampaign(ctx context.Context, tenantID, id string) error {
	return c.ack(ctx, http.MethodPost, campaignPath(id)+"/cancel", tenantParams(tenantID), nil)
}

func (c *Client) CampaignLogs(ctx context.Context, tenantID, id string, page, size int) (Page[EmailLog], error) {
	return get[Page[EmailLog]](ctx, c, campaignPath(id)+"/logs", pageParams(tenantID, page, size, ""))
}

// Email logs

func logPath(id string) string {
	return "/v1/logs/" + url.PathEscape(id)
}

func (c *Client) GetLog(ctx context.Context, tenantID, logID string) (EmailLog, error) {
	return get[EmailLog](ctx, c, logPath(logID), tenantParams(tenantID))
}

func (c *Client) UpdateLogBody(ctx context.Context, tenantID, logID, body string) (EmailLog, error) {
	var env Envelope[EmailLog]
	if err := c.HTTP.Put(ctx, logPath(logID), tenantParams(tenantID), UpdateDraftRequest{Body: body}, &env); err != nil {
		return EmailLog{}, err
	}
	return env.unwrap()
}

func (c *Client) RegenerateLog(ctx context.Context, tenantID, logID string) (EmailLog, error) {
	return post[EmailLog](ctx, c, logPath(logID)+"/regenerate", tenantParams(tenantID), nil)
}

func (c *Client) SendLog(ctx context.Context, tenantID, logID string) error {
	if err := c.ack(ctx, http.MethodPost, logPath(logID)+"/send", tenantParams(tenantID), nil); err != nil {
		return err
	}
	c.invalidateTenant(ctx, tenantID)
	return nil
}

// SMTP

func (c *Client) GetSmtpAccount(ctx context.Context, tenantID string) (SmtpAccount, error) {
	return get[SmtpAccount](ctx, c, "/v1/smtp", tenantParams(tenantID))
}

func (c *Client) SaveSmtpAccount(ctx context.Context, tenantID string, req SmtpAccountRequest) error {
	if err := c.ack(ctx, http.MethodPost, "/v1/smtp", tenantParams(tenantID), req); err != nil {
		return err
	}
	c.invalidateTenant(ctx, tenantID)
	return nil
}

func (c *Client) DeactivateSmtpAccount(ctx context.Context, tenantID string) error {
	if err := c.ack(ctx, http.MethodPost, "/v1/smtp/deactivate", tenantParams(tenantID), nil); err != nil {
		return err
	}
	c.invalidateTenant(ctx, tenantID)
	return nil
}

// invalidateTenant drops the cached dashboard views of tenantID.
func (c *Client) invalidateTenant(ctx context.Context, tenantID string) {
	c.HTTP.Invalidate(ctx, "/v1/tenants/"+url.PathEscape(tenantID))
}
