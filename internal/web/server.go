// Package web is the console's backend-for-frontend: guarded pages that
// return JSON view models and form endpoints that run service operations.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scholar-console/internal/api"
	"scholar-console/internal/auth"
	"scholar-console/internal/campaigns"
	"scholar-console/internal/cvs"
	"scholar-console/internal/matches"
	"scholar-console/internal/services/health"
	"scholar-console/internal/shared/metrics"
	"scholar-console/internal/shared/server/middleware"
	"scholar-console/internal/shared/server/respond"
	"scholar-console/internal/smtp"
	"scholar-console/internal/store"
	"scholar-console/internal/tenants"
)

// Services groups the resource operations the console drives.
type Services struct {
	Auth      *auth.Service
	Tenants   *tenants.Service
	CVs       *cvs.Service
	Matches   *matches.Service
	Campaigns *campaigns.Service
	Smtp      *smtp.Service
}

// NewServices builds every resource service over one store and API client.
func NewServices(s *store.Store, c *api.Client) Services {
	return Services{
		Auth:      auth.New(s, c),
		Tenants:   tenants.New(s, c),
		CVs:       cvs.New(s, c),
		Matches:   matches.New(s, c),
		Campaigns: campaigns.New(s, c),
		Smtp:      smtp.New(s, c),
	}
}

type Server struct {
	Store   *store.Store
	Svc     Services
	Health  *health.Service
	Pollers *Pollers

	detach func()
}

// New wires a Server. Close releases its pollers.
func New(s *store.Store, svc Services, h *health.Service) *Server {
	if h == nil {
		h = health.NewService(nil)
	}
	ps := NewPollers()
	return &Server{Store: s, Svc: svc, Health: h, Pollers: ps, detach: ps.Attach(s)}
}

func (s *Server) Close() {
	s.detach()
	s.Pollers.Close()
}

// Register attaches every console route to r.
func (s *Server) Register(r *gin.Engine) {
	r.Use(s.tagTenant())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", metrics.Handler())
	r.GET("/notifications", s.notifications)
	r.POST("/notifications/:id/dismiss", s.dismissNotification)
	r.POST("/ui/theme", s.toggleTheme)
	r.POST("/ui/sidebar", s.toggleSidebar)

	guest := r.Group("/", RequireGuest(s.Store))
	guest.GET("/login", s.loginPage)
	guest.POST("/login", s.login)
	guest.GET("/register", s.registerPage)
	guest.POST("/register", s.register)

	app := r.Group("/", RequireAuth(s.Store))
	app.POST("/logout", s.logout)

	app.GET("/dashboard", s.dashboardPage)
	app.POST("/tenants", s.createTenant)
	app.POST("/tenants/:id/select", s.selectTenant)
	app.POST("/tenants/:id/delete", s.deleteTenant)

	app.GET("/cvs", s.cvsPage)
	app.GET("/cvs/:id", s.cvPage)
	app.POST("/cvs/upload", s.uploadCV)
	app.POST("/cvs/:id/parse", s.parseCV)
	app.POST("/cvs/:id/compute-matches", s.computeMatches)
	app.POST("/cvs/:id/delete", s.deleteCV)

	app.GET("/matches", s.matchesPage)
	app.POST("/matches/:cvId/recompute", s.recomputeMatches)

	app.GET("/campaigns", s.campaignsPage)
	app.POST("/campaigns", s.createCampaign)
	app.GET("/campaigns/:id", s.campaignPage)
	app.GET("/campaigns/:id/logs", s.campaignLogs)
	app.POST("/campaigns/:id/schedule", s.scheduleCampaign)
	app.POST("/campaigns/:id/execute", s.executeCampaign)
	app.POST("/campaigns/:id/cancel", s.cancelCampaign)

	app.GET("/logs/:id", s.logPage)
	app.POST("/logs/:id", s.updateDraft)
	app.POST("/logs/:id/regenerate", s.regenerateDraft)
	app.POST("/logs/:id/send", s.sendDraft)

	app.GET("/settings", s.settingsPage)
	app.POST("/settings/smtp", s.saveSmtp)
	app.POST("/settings/smtp/deactivate", s.deactivateSmtp)

	r.GET("/", toDashboard)
	r.NoRoute(toDashboard)
}

func toDashboard(c *gin.Context) {
	c.Redirect(http.StatusFound, dashboardPath)
}

// tagTenant records the selected tenant for the request log.
func (s *Server) tagTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := s.Store.CurrentTenantID(); id != "" {
			c.Set(middleware.TenantIDKey, id)
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	rep := s.Health.Status(c.Request.Context())
	status := http.StatusOK
	if !rep.OK {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(c, status, rep)
}
