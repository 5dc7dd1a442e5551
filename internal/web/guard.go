package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// Session reports whether a user is signed in. The store satisfies it.
type Session interface {
	IsAuthenticated() bool
}

// RequireAuth sends signed-out visitors to the login page. It trusts the
// stored flag; the backend rejects stale tokens with 401, which signs the
// console out.
func RequireAuth(s Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !s.IsAuthenticated() {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireGuest keeps signed-in users away from the login and register pages.
func RequireGuest(s Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.IsAuthenticated() {
			c.Redirect(http.StatusFound, dashboardPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
