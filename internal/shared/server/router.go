package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scholar-console/internal/shared/config"
	"scholar-console/internal/shared/server/middleware"
)

const (
	groupDefault = "DEFAULT"
	groupPolling = "POLLING"
)

// pollingRoutes are hit on a timer by open pages and get a looser limit.
var pollingRoutes = map[string]struct{}{
	"/cvs/:id":            {},
	"/campaigns/:id/logs": {},
	"/notifications":      {},
}

// NewEngine constructs the Gin engine with the console middleware chain.
// Routes are registered by the caller.
func NewEngine(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.SameOrigin(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: groupDefault,
			GroupFor:     rateGroup,
			Rules: map[string]middleware.RateLimitRule{
				groupDefault: {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
				groupPolling: {Rate: cfg.RateLimitRPS * 4, Burst: cfg.RateLimitBurst * 4},
			},
		}),
	)
	return r
}

func rateGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodGet {
		return groupDefault
	}
	if _, ok := pollingRoutes[c.FullPath()]; ok {
		return groupPolling
	}
	return groupDefault
}

// defaultHost keeps the console off external interfaces unless PORT names a
// host explicitly.
const defaultHost = "127.0.0.1"

// Addr normalizes the listen address. A bare port or ":port" binds to the
// loopback interface; "host:port" is used as given.
func Addr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return net.JoinHostPort(defaultHost, "8090")
	}
	if host, p, err := net.SplitHostPort(port); err == nil {
		if host == "" {
			host = defaultHost
		}
		return net.JoinHostPort(host, p)
	}
	return net.JoinHostPort(defaultHost, port)
}
