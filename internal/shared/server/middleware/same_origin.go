package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"scholar-console/internal/shared/server/respond"
)

// SameOrigin rejects state-changing requests sent by another site. A request
// passes when Sec-Fetch-Site is same-origin or none, or when Origin matches
// the request host or one of allowedOrigins. Requests carrying neither header
// come from non-browser clients and pass.
func SameOrigin(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]struct{})
	for _, o := range allowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(o), "/"); trimmed != "" {
			origins[trimmed] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		origin := strings.TrimRight(c.GetHeader("Origin"), "/")
		site := strings.ToLower(c.GetHeader("Sec-Fetch-Site"))

		if origin != "" {
			if _, ok := origins[origin]; ok || sameHost(origin, c.Request.Host) {
				c.Next()
				return
			}
		} else if site == "" || site == "same-origin" || site == "none" {
			c.Next()
			return
		}

		respond.Error(c, http.StatusForbidden, "cross_origin", "Cross-origin request refused", nil)
	}
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
