// Package httpclient is the single egress point to the backend REST API. It
// attaches the session bearer token, maps failures to user notifications and
// normalized errors, and optionally caches GET responses.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"scholar-console/internal/notify"
	"scholar-console/internal/shared/metrics"
	"scholar-console/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 30 * time.Second

	msgSessionExpired = "Session expired. Please login again."
	msgForbidden      = "You do not have permission to perform this action."
	msgServerError    = "Server error. Please try again later."
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// TokenSource yields the current session token. A source that errors or
	// returns an invalid token means the request is sent without
	// Authorization.
	TokenSource oauth2.TokenSource
	Notifier    notify.Notifier
	// OnUnauthorized runs when an authenticated request receives 401.
	OnUnauthorized func()
	Cache          Cache
	CacheTTL       time.Duration
	// Transport is the base round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// Client issues JSON requests against the backend.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         oauth2.TokenSource
	notifier       notify.Notifier
	onUnauthorized func()
	cache          Cache
	cacheTTL       time.Duration
}

// New constructs a Client from opts, filling defaults.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &authTransport{source: opts.TokenSource, base: base},
		},
		tokens:         opts.TokenSource,
		notifier:       notifier,
		onUnauthorized: opts.OnUnauthorized,
		cache:          cache,
		cacheTTL:       ttl,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cache returns the response cache in use.
func (c *Client) Cache() Cache {
	return c.cache
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, params, nil, "")
	if err != nil {
		return err
	}
	return decode(body, out)
}

// GetCached is Get through the response cache. ttl <= 0 uses the client
// default.
func (c *Client) GetCached(ctx context.Context, path string, params url.Values, ttl time.Duration, out any) error {
	if ttl <= 0 {
		ttl = c.cacheTTL
	}
	key := CacheKey(path, params)
	if data, ok := c.cache.Get(ctx, key); ok {
		metrics.CacheHit()
		return decode(data, out)
	}
	metrics.CacheMiss()
	body, err := c.do(ctx, http.MethodGet, path, params, nil, "")
	if err != nil {
		return err
	}
	if err := decode(body, out); err != nil {
		return err
	}
	c.cache.Set(ctx, key, body, ttl)
	return nil
}

// Invalidate drops cached responses whose key contains pattern.
func (c *Client) Invalidate(ctx context.Context, pattern string) {
	c.cache.Invalidate(ctx, pattern)
}

// Post sends in as JSON (when non-nil) and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, params url.Values, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, params, in, out)
}

// Put sends in as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, params url.Values, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, params, in, out)
}

// Delete issues a DELETE and decodes any response body into out.
func (c *Client) Delete(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.do(ctx, http.MethodDelete, path, params, nil, "")
	if err != nil {
		return err
	}
	return decode(body, out)
}

// Upload is a file part for PostMultipart.
type Upload struct {
	Field    string
	Filename string
	Data     []byte
}

// PostMultipart sends file and fields as multipart/form-data.
func (c *Client) PostMultipart(ctx context.Context, path string, file Upload, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	field := file.Field
	if field == "" {
		field = "file"
	}
	part, err := w.CreateFormFile(field, file.Filename)
	if err != nil {
		return transportError(err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return transportError(err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return transportError(err)
		}
	}
	if err := w.Close(); err != nil {
		return transportError(err)
	}
	body, err := c.do(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, params url.Values, in, out any) error {
	var reader io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return transportError(err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	body, err := c.do(ctx, method, path, params, reader, contentType)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	authenticated := c.hasSession()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(method, 0)
		telemetry.Warn("api.request.failed", map[string]any{"method": method, "path": path, "error": err})
		return nil, transportError(err)
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest(method, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode < 400 {
		return data, nil
	}

	var eb errorBody
	_ = json.Unmarshal(data, &eb)
	apiErr := statusError(resp.StatusCode, eb)
	c.report(resp.StatusCode, authenticated)
	telemetry.Warn("api.request.rejected", map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
		"error":  apiErr.Message,
	})
	return nil, apiErr
}

func (c *Client) report(status int, authenticated bool) {
	switch {
	case status == http.StatusUnauthorized:
		if !authenticated {
			return
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		c.notifier.Notify(notify.LevelError, msgSessionExpired)
	case status == http.StatusForbidden:
		c.notifier.Notify(notify.LevelError, msgForbidden)
	case status >= 500:
		c.notifier.Notify(notify.LevelError, msgServerError)
	}
}

func (c *Client) hasSession() bool {
	if c.tokens == nil {
		return false
	}
	tok, err := c.tokens.Token()
	return err == nil && tok.Valid()
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

// authTransport adds the session bearer token when one is available.
type authTransport struct {
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.source == nil {
		return t.base.RoundTrip(req)
	}
	tok, err := t.source.Token()
	if err != nil || tok == nil || !tok.Valid() {
		return t.base.RoundTrip(req)
	}
	bearer := &oauth2.Transport{Source: oauth2.StaticTokenSource(tok), Base: t.base}
	return bearer.RoundTrip(req)
}

// ErrNoSession is returned by token sources when nobody is signed in.
var ErrNoSession = errors.New("no session")
