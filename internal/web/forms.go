package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"scholar-console/internal/api"
	"scholar-console/internal/auth"
	"scholar-console/internal/campaigns"
	"scholar-console/internal/cvs"
	"scholar-console/internal/shared/server/respond"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/store"
)

// scheduleLayouts are the accepted datetime-local inputs.
var scheduleLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

func parseKey(cvID string) string            { return "parse:" + cvID }
func generationKey(campaignID string) string { return "generation:" + campaignID }

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var f loginForm
	if err := c.ShouldBind(&f); err != nil {
		invalid(c, "form", "Malformed form")
		return
	}
	if _, err := s.Svc.Auth.Login(c.Request.Context(), api.AuthenticationRequest{Email: f.Email, Password: f.Password}); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (s *Server) register(c *gin.Context) {
	var in auth.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		invalid(c, "form", "Malformed form")
		return
	}
	if _, err := s.Svc.Auth.Register(c.Request.Context(), in); err != nil {
		fail(c, err)
		return
	}
	if !s.Store.IsAuthenticated() {
		c.Redirect(http.StatusSeeOther, loginPath)
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (s *Server) logout(c *gin.Context) {
	s.Svc.Auth.Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, loginPath)
}

type tenantForm struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

func (s *Server) createTenant(c *gin.Context) {
	var f tenantForm
	if err := c.ShouldBind(&f); err != nil {
		invalid(c, "form", "Malformed form")
		return
	}
	t, err := s.Svc.Tenants.CreateTenant(c.Request.Context(), api.TenantRequest{Name: f.Name, Email: f.Email})
	if err != nil {
		fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"tenant": t})
}

func (s *Server) selectTenant(c *gin.Context) {
	t, err := s.Svc.Tenants.Select(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, gin.H{"currentTenant": t})
}

func (s *Server) deleteTenant(c *gin.Context) {
	id := c.Param("id")
	if err := s.Svc.Tenants.DeleteTenant(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, gin.H{"id": id, "currentTenant": s.Store.State().Tenant.Current})
}

func (s *Server) uploadCV(c *gin.Context) {
	var (
		name string
		data []byte
	)
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			invalid(c, "file", "File could not be read")
			return
		}
		defer f.Close()
		data, err = io.ReadAll(io.LimitReader(f, cvs.MaxUploadBytes+1))
		if err != nil {
			invalid(c, "file", "File could not be read")
			return
		}
		name = fh.Filename
	}
	cv, err := s.Svc.CVs.UploadCV(c.Request.Context(), name, data)
	if err != nil {
		fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"cv": cv})
}

// parseCV starts parsing and watches the CV until parsing finishes.
func (s *Server) parseCV(c *gin.Context) {
	id, err := s.Svc.CVs.ParseCV(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	p, err := s.Svc.CVs.NewParsePoller(id)
	if err == nil {
		err = s.Pollers.Start(parseKey(id), p)
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond.Accepted(c, gin.H{"id": id, "polling": true})
}

func (s *Server) computeMatches(c *gin.Context) {
	id, err := s.Svc.CVs.ComputeMatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.Accepted(c, gin.H{"id": id})
}

func (s *Server) deleteCV(c *gin.Context) {
	id, err := s.Svc.CVs.DeleteCV(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	s.Pollers.Stop(parseKey(id))
	respond.OK(c, gin.H{"id": id})
}

func (s *Server) recomputeMatches(c *gin.Context) {
	id, err := s.Svc.Matches.RecomputeMatches(c.Request.Context(), c.Param("cvId"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.Accepted(c, gin.H{"cvId": id})
}

type campaignForm struct {
	CVID          string   `form:"cvId" json:"cvId"`
	Name          string   `form:"name" json:"name"`
	Subject       string   `form:"subject" json:"subject"`
	BodyTemplate  string   `form:"bodyTemplate" json:"bodyTemplate"`
	MinMatchScore *float64 `form:"minMatchScore" json:"minMatchScore"`
}

func (f campaignForm) request() api.CreateCampaignRequest {
	req := campaigns.NewRequest()
	req.CVID = f.CVID
	req.Name = f.Name
	req.Subject = f.Subject
	req.BodyTemplate = f.BodyTemplate
	if f.MinMatchScore != nil {
		req.MinMatchScore = *f.MinMatchScore
	}
	return req
}

func (s *Server) createCampaign(c *gin.Context) {
	var f campaignForm
	if err := c.ShouldBind(&f); err != nil {
		invalid(c, "minMatchScore", "Score must be between 0 and 1")
		return
	}
	camp, err := s.Svc.Campaigns.CreateCampaign(c.Request.Context(), f.request())
	if err != nil {
		fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"campaign": camp})
}

func (s *Server) scheduleCampaign(c *gin.Context) {
	raw := strings.TrimSpace(c.PostForm("scheduledAt"))
	var (
		at  time.Time
		err error
	)
	for _, layout := range scheduleLayouts {
		if at, err = time.ParseInLocation(layout, raw, time.Local); err == nil {
			break
		}
	}
	if raw == "" || err != nil {
		invalid(c, "scheduledAt", "Please choose a valid date and time")
		return
	}
	if !s.campaignAllows(c, api.CanSchedule, "Only draft campaigns can be scheduled") {
		return
	}
	id, err := s.Svc.Campaigns.ScheduleCampaign(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		fail(c, err)
		return
	}
	respond.Accepted(c, gin.H{"id": id})
}

// executeCampaign starts sending, refreshes the campaign list and watches
// the campaign's drafts until every recipient has one.
func (s *Server) executeCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	if !s.campaignAllows(c, api.CanExecute, "Only draft campaigns can be executed") {
		return
	}
	id, err := s.Svc.Campaigns.ExecuteCampaign(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	st := s.Store.State().Campaign
	if _, err := s.Svc.Campaigns.FetchCampaigns(ctx, st.Pagination.Page, st.Pagination.Size); err != nil && s.signedOut(c) {
		return
	}
	camp, err := s.Svc.Campaigns.FetchCampaign(ctx, id)
	if err != nil {
		if !s.signedOut(c) {
			fail(c, err)
		}
		return
	}
	watching := false
	if camp.TotalRecipients > 0 {
		watching = s.watchGeneration(c, id, camp.TotalRecipients)
	}
	respond.Accepted(c, gin.H{"id": id, "generating": watching})
}

func (s *Server) watchGeneration(c *gin.Context, campaignID string, expected int) bool {
	if _, err := s.Svc.Campaigns.FetchCampaignLogs(c.Request.Context(), campaignID, 0, 0); err != nil {
		return false
	}
	p, err := s.Svc.Campaigns.NewGenerationPoller(campaignID, expected)
	if err == nil {
		err = s.Pollers.Start(generationKey(campaignID), p)
	}
	if err != nil {
		telemetry.Warn("campaign.watch_failed", map[string]any{"campaign_id": campaignID, "error": err})
		return false
	}
	return true
}

func (s *Server) cancelCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	if !s.campaignAllows(c, api.CanCancel, "Only scheduled campaigns can be cancelled") {
		return
	}
	id, err := s.Svc.Campaigns.CancelCampaign(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	s.Pollers.Stop(generationKey(id))
	st := s.Store.State().Campaign
	if _, err := s.Svc.Campaigns.FetchCampaigns(ctx, st.Pagination.Page, st.Pagination.Size); err != nil && s.signedOut(c) {
		return
	}
	respond.Accepted(c, gin.H{"id": id})
}

// campaignAllows answers 409 when the campaign's last known status rules the
// action out. Campaigns not yet loaded are left to the backend.
func (s *Server) campaignAllows(c *gin.Context, allowed func(api.Campaign) bool, message string) bool {
	id := c.Param("id")
	st := s.Store.State().Campaign
	known := st.Current
	if known == nil || known.ID != id {
		known = nil
		for i := range st.Campaigns {
			if st.Campaigns[i].ID == id {
				known = &st.Campaigns[i]
				break
			}
		}
	}
	if known == nil || allowed(*known) {
		return true
	}
	respond.Error(c, http.StatusConflict, "not_allowed", message, gin.H{"status": known.Status})
	return false
}

type draftForm struct {
	Body string `form:"body" json:"body"`
}

func (s *Server) updateDraft(c *gin.Context) {
	var f draftForm
	if err := c.ShouldBind(&f); err != nil {
		invalid(c, "body", "Malformed form")
		return
	}
	if strings.TrimSpace(f.Body) == "" {
		invalid(c, "body", "Email body is required")
		return
	}
	l, err := s.Svc.Campaigns.UpdateEmailDraft(c.Request.Context(), c.Param("id"), f.Body)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, gin.H{"log": l})
}

func (s *Server) regenerateDraft(c *gin.Context) {
	l, err := s.Svc.Campaigns.RegenerateDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, gin.H{"log": l})
}

// sendDraft saves an edited body, when one is posted, before sending.
func (s *Server) sendDraft(c *gin.Context) {
	var f draftForm
	_ = c.ShouldBind(&f)
	id, err := s.Svc.Campaigns.SendDraft(c.Request.Context(), c.Param("id"), f.Body)
	if err != nil {
		fail(c, err)
		return
	}
	respond.Accepted(c, gin.H{"id": id})
}

type smtpForm struct {
	Email    string `form:"email" json:"email"`
	SmtpHost string `form:"smtpHost" json:"smtpHost"`
	SmtpPort int    `form:"smtpPort" json:"smtpPort"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	UseTLS   bool   `form:"useTls" json:"useTls"`
	UseSSL   bool   `form:"useSsl" json:"useSsl"`
	FromName string `form:"fromName" json:"fromName"`
}

func (s *Server) saveSmtp(c *gin.Context) {
	var f smtpForm
	if err := c.ShouldBind(&f); err != nil {
		invalid(c, "smtpPort", "Port is required")
		return
	}
	acct, err := s.Svc.Smtp.SaveSmtpAccount(c.Request.Context(), api.SmtpAccountRequest(f))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, gin.H{"account": acct})
}

func (s *Server) deactivateSmtp(c *gin.Context) {
	if err := s.Svc.Smtp.DeactivateSmtpAccount(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, gin.H{"account": s.Store.State().Smtp.Account})
}

func (s *Server) dismissNotification(c *gin.Context) {
	s.Store.Dispatch(store.DismissNotification{ID: c.Param("id")})
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleTheme(c *gin.Context) {
	s.Store.Dispatch(store.ToggleTheme{})
	respond.OK(c, gin.H{"theme": s.Store.State().UI.Theme})
}

func (s *Server) toggleSidebar(c *gin.Context) {
	s.Store.Dispatch(store.ToggleSidebar{})
	respond.OK(c, gin.H{"sidebarOpen": s.Store.State().UI.SidebarOpen})
}
