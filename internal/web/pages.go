package web

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"scholar-console/internal/api"
	"scholar-console/internal/auth"
	"scholar-console/internal/campaigns"
	"scholar-console/internal/matches"
	"scholar-console/internal/shared/server/respond"
	"scholar-console/internal/smtp"
	"scholar-console/internal/store"
)

// layout is the chrome every page shares.
type layout struct {
	User          *store.User          `json:"user"`
	Tenants       []api.Tenant         `json:"tenants"`
	CurrentTenant *api.Tenant          `json:"currentTenant"`
	Theme         store.Theme          `json:"theme"`
	SidebarOpen   bool                 `json:"sidebarOpen"`
	Notifications []store.Notification `json:"notifications"`
	Pollers       []string             `json:"pollers,omitempty"`
}

type page struct {
	Layout layout `json:"layout"`
	Data   any    `json:"data"`
}

func (s *Server) render(c *gin.Context, data any) {
	st := s.Store.State()
	respond.OK(c, page{
		Layout: layout{
			User:          st.Auth.User,
			Tenants:       st.Tenant.Tenants,
			CurrentTenant: st.Tenant.Current,
			Theme:         st.UI.Theme,
			SidebarOpen:   st.UI.SidebarOpen,
			Notifications: st.UI.Notifications,
			Pollers:       s.Pollers.Keys(),
		},
		Data: data,
	})
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) loginPage(c *gin.Context) {
	st := s.Store.State().Auth
	s.render(c, gin.H{"form": api.AuthenticationRequest{}, "loading": st.Loading, "error": st.Error})
}

func (s *Server) registerPage(c *gin.Context) {
	st := s.Store.State().Auth
	s.render(c, gin.H{"form": auth.RegisterInput{}, "loading": st.Loading, "error": st.Error})
}

type dashboardView struct {
	Dashboard      *api.TenantDashboard `json:"dashboard"`
	IncomingEmails []api.IncomingEmail  `json:"incomingEmails"`
	Loading        bool                 `json:"loading"`
	Error          string               `json:"error,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
}

func (s *Server) dashboardPage(c *gin.Context) {
	ctx := c.Request.Context()
	if len(s.Store.State().Tenant.Tenants) == 0 {
		if _, err := s.Svc.Tenants.FetchTenants(ctx); s.loadFailed(c, err) {
			return
		}
	}
	if s.Store.CurrentTenantID() != "" {
		var g errgroup.Group
		g.Go(func() error {
			_, err := s.Svc.Tenants.FetchDashboard(ctx, "")
			return err
		})
		g.Go(func() error {
			_, err := s.Svc.Tenants.FetchIncomingEmails(ctx, "")
			return err
		})
		if s.loadFailed(c, g.Wait()) {
			return
		}
	}

	st := s.Store.State().Tenant
	view := dashboardView{
		Dashboard:      st.Dashboard,
		IncomingEmails: st.IncomingEmails,
		Loading:        st.DashboardLoading || st.IncomingLoading,
		Error:          st.Error,
	}
	if st.Dashboard != nil && !st.Dashboard.SmtpConfigured {
		view.Warnings = append(view.Warnings, campaigns.NoSmtpWarning)
	}
	s.render(c, view)
}

type cvView struct {
	api.CV
	CanParse       bool `json:"canParse"`
	CanFindMatches bool `json:"canFindMatches"`
	Polling        bool `json:"polling"`
}

func (s *Server) cvViews(list []api.CV) []cvView {
	out := make([]cvView, len(list))
	for i, cv := range list {
		out[i] = cvView{CV: cv, CanParse: api.CanParse(cv), CanFindMatches: api.CanFindMatches(cv), Polling: s.Pollers.Done(parseKey(cv.ID)) != nil}
	}
	return out
}

func (s *Server) cvsPage(c *gin.Context) {
	_, err := s.Svc.CVs.FetchCVs(c.Request.Context(), queryInt(c, "page"), queryInt(c, "size"))
	if s.loadFailed(c, err) {
		return
	}
	st := s.Store.State().CV
	s.render(c, gin.H{
		"cvs":         s.cvViews(st.CVs),
		"pagination":  st.Pagination,
		"parsingCvId": st.ParsingCVID,
		"uploading":   st.Uploading,
		"loading":     st.Loading,
		"error":       st.Error,
	})
}

func (s *Server) cvPage(c *gin.Context) {
	cv, err := s.Svc.CVs.FetchCV(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !s.signedOut(c) {
			fail(c, err)
		}
		return
	}
	s.render(c, s.cvViews([]api.CV{cv})[0])
}

type matchesView struct {
	CVID       string             `json:"cvId"`
	CVs        []cvView           `json:"cvs,omitempty"`
	Matches    []api.Match        `json:"matches"`
	Total      int                `json:"total"`
	Filters    store.MatchFilters `json:"filters"`
	Search     string             `json:"search,omitempty"`
	Pagination store.Pagination   `json:"pagination"`
	Computing  bool               `json:"computing"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
}

func (s *Server) matchesPage(c *gin.Context) {
	ctx := c.Request.Context()
	st := s.Store.State()
	cvID := c.Query("cvId")
	if cvID == "" {
		cvID = st.Match.CVID
	}
	if cvID == "" && st.CV.Current != nil {
		cvID = st.CV.Current.ID
	}
	minScore := st.Match.Filters.MinScore
	if raw := c.Query("minScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			invalid(c, "minScore", "Score must be between 0 and 1")
			return
		}
		minScore = v
	}
	search := strings.TrimSpace(c.Query("search"))

	if cvID == "" {
		_, err := s.Svc.CVs.FetchCVs(ctx, 0, 0)
		if s.loadFailed(c, err) {
			return
		}
		s.render(c, matchesView{CVs: s.cvViews(s.Store.State().CV.CVs), Filters: store.MatchFilters{MinScore: minScore}})
		return
	}

	var err error
	if p := queryInt(c, "page"); p > 0 && minScore == 0 {
		s.Svc.Matches.SetMinScoreFilter(0)
		_, err = s.Svc.Matches.FetchMatches(ctx, cvID, p, 0)
	} else {
		_, err = s.Svc.Matches.FetchForView(ctx, cvID, minScore)
	}
	if s.loadFailed(c, err) {
		return
	}

	ms := s.Store.State().Match
	shown := matches.Filter(ms.Matches, ms.Filters.MinScore, search)
	s.render(c, matchesView{
		CVID:       cvID,
		Matches:    shown,
		Total:      len(shown),
		Filters:    ms.Filters,
		Search:     search,
		Pagination: ms.Pagination,
		Computing:  ms.Computing,
		Loading:    ms.Loading,
		Error:      ms.Error,
	})
}

type campaignView struct {
	api.Campaign
	CanExecute  bool `json:"canExecute"`
	CanCancel   bool `json:"canCancel"`
	CanSchedule bool `json:"canSchedule"`
}

func campaignViews(list []api.Campaign) []campaignView {
	out := make([]campaignView, len(list))
	for i, camp := range list {
		out[i] = campaignView{Campaign: camp, CanExecute: api.CanExecute(camp), CanCancel: api.CanCancel(camp), CanSchedule: api.CanSchedule(camp)}
	}
	return out
}

type campaignsView struct {
	Campaigns  []campaignView            `json:"campaigns"`
	Pagination store.Pagination          `json:"pagination"`
	Form       api.CreateCampaignRequest `json:"form"`
	CVOptions  []api.CV                  `json:"cvOptions"`
	Creating   bool                      `json:"creating"`
	Executing  bool                      `json:"executing"`
	Loading    bool                      `json:"loading"`
	Error      string                    `json:"error,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

func (s *Server) campaignsPage(c *gin.Context) {
	ctx := c.Request.Context()
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.Svc.Campaigns.FetchCampaigns(ctx, queryInt(c, "page"), queryInt(c, "size"))
		return err
	})
	g.Go(func() error {
		_, err := s.Svc.CVs.FetchCVs(ctx, 0, 0)
		return err
	})
	g.Go(func() error {
		_, err := s.Svc.Smtp.FetchSmtpAccount(ctx)
		return err
	})
	if s.loadFailed(c, g.Wait()) {
		return
	}

	st := s.Store.State()
	view := campaignsView{
		Campaigns:  campaignViews(st.Campaign.Campaigns),
		Pagination: st.Campaign.Pagination,
		Form:       campaigns.NewRequest(),
		Creating:   st.Campaign.Creating,
		Executing:  st.Campaign.Executing,
		Loading:    st.Campaign.Loading,
		Error:      st.Campaign.Error,
	}
	for _, cv := range st.CV.CVs {
		if cv.ParsingStatus == api.ParsingCompleted {
			view.CVOptions = append(view.CVOptions, cv)
		}
	}
	if len(view.CVOptions) > 0 {
		view.Form.CVID = view.CVOptions[0].ID
	}
	if acct := st.Smtp.Account; acct == nil || acct.Status != api.SmtpActive {
		view.Warnings = append(view.Warnings, campaigns.NoSmtpWarning)
	}
	s.render(c, view)
}

type logsView struct {
	CampaignID string           `json:"campaignId"`
	Logs       []api.EmailLog   `json:"logs"`
	Pagination store.Pagination `json:"pagination"`
	Generated  int              `json:"generated"`
	Generating bool             `json:"generating"`
	Loading    bool             `json:"loading"`
}

func (s *Server) logsView(campaignID string) logsView {
	st := s.Store.State().Campaign
	return logsView{
		CampaignID: campaignID,
		Logs:       st.Logs,
		Pagination: st.LogsPagination,
		Generated:  api.CountGenerated(st.Logs),
		Generating: s.Pollers.Done(generationKey(campaignID)) != nil,
		Loading:    st.LogsLoading,
	}
}

func (s *Server) campaignPage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.Svc.Campaigns.FetchCampaign(ctx, id)
		return err
	})
	g.Go(func() error {
		_, err := s.Svc.Campaigns.FetchCampaignLogs(ctx, id, queryInt(c, "page"), queryInt(c, "size"))
		return err
	})
	if err := g.Wait(); err != nil {
		if !s.signedOut(c) {
			fail(c, err)
		}
		return
	}
	st := s.Store.State().Campaign
	var camp *campaignView
	if st.Current != nil {
		camp = &campaignViews([]api.Campaign{*st.Current})[0]
	}
	s.render(c, gin.H{"campaign": camp, "logs": s.logsView(id), "error": st.Error})
}

func (s *Server) campaignLogs(c *gin.Context) {
	id := c.Param("id")
	_, err := s.Svc.Campaigns.FetchCampaignLogs(c.Request.Context(), id, queryInt(c, "page"), queryInt(c, "size"))
	if s.loadFailed(c, err) {
		return
	}
	s.render(c, s.logsView(id))
}

func (s *Server) logPage(c *gin.Context) {
	l, err := s.Svc.Campaigns.FetchLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !s.signedOut(c) {
			fail(c, err)
		}
		return
	}
	s.render(c, gin.H{
		"log":       l,
		"editable":  l.Status != api.EmailSent,
		"generated": api.IsGenerated(l.Body),
		"saving":    s.Store.State().Campaign.LogSaving,
	})
}

func (s *Server) settingsPage(c *gin.Context) {
	acct, err := s.Svc.Smtp.FetchSmtpAccount(c.Request.Context())
	if s.loadFailed(c, err) {
		return
	}
	st := s.Store.State().Smtp
	s.render(c, gin.H{
		"account": acct,
		"form":    smtp.NewRequest(acct),
		"loading": st.Loading,
		"saving":  st.Saving,
		"error":   st.Error,
	})
}

func (s *Server) notifications(c *gin.Context) {
	respond.OK(c, gin.H{"notifications": s.Store.State().UI.Notifications})
}
