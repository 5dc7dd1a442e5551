package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scholar-console/internal/campaigns"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/shared/server/respond"
	"scholar-console/internal/shared/validate"
	"scholar-console/internal/store"
	"scholar-console/internal/tenants"
)

// fail maps an operation error onto the console's error body.
func fail(c *gin.Context, err error) {
	var (
		verrs   validate.Errors
		httpErr *httpclient.Error
	)
	switch {
	case errors.As(err, &verrs):
		respond.Invalid(c, verrs)
	case errors.Is(err, store.ErrNoTenant):
		respond.Error(c, http.StatusConflict, "no_tenant", err.Error(), nil)
	case errors.Is(err, tenants.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, campaigns.ErrLogAlreadySent):
		respond.Error(c, http.StatusConflict, "already_sent", err.Error(), nil)
	case errors.As(err, &httpErr):
		failUpstream(c, httpErr)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	}
}

func failUpstream(c *gin.Context, err *httpclient.Error) {
	switch {
	case err.Status == 0:
		respond.Error(c, http.StatusBadGateway, "backend_unreachable", err.Message, nil)
	case err.Status == http.StatusUnauthorized:
		respond.Error(c, http.StatusUnauthorized, "unauthorized", err.Message, nil)
	case err.Status >= http.StatusInternalServerError:
		respond.Error(c, http.StatusBadGateway, "backend_error", err.Message, nil)
	case err.Status < http.StatusBadRequest:
		// 2xx envelope that reported a failure or carried no data
		respond.Error(c, http.StatusBadGateway, "backend_rejected", httpclient.Message(err, "The backend rejected the request"), nil)
	default:
		respond.Error(c, err.Status, "backend_rejected", err.Message, nil)
	}
}

// invalid rejects a request whose body could not be bound at all.
func invalid(c *gin.Context, field, msg string) {
	respond.Invalid(c, map[string]string{field: msg})
}

// signedOut reports whether the operation just run ended the session, in
// which case the visitor is sent to the login page.
func (s *Server) signedOut(c *gin.Context) bool {
	if s.Store.IsAuthenticated() {
		return false
	}
	c.Redirect(http.StatusFound, loginPath)
	c.Abort()
	return true
}

// loadFailed finishes a page whose loader failed. Errors that were already
// recorded in a slice still render the page; the rest are reported.
func (s *Server) loadFailed(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if s.signedOut(c) {
		return true
	}
	var httpErr *httpclient.Error
	if errors.As(err, &httpErr) {
		return false
	}
	fail(c, err)
	return true
}
