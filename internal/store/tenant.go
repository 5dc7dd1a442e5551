package store

import "scholar-console/internal/api"

type TenantState struct {
	Tenants          []api.Tenant         `json:"tenants"`
	Current          *api.Tenant          `json:"currentTenant"`
	Dashboard        *api.TenantDashboard `json:"dashboard"`
	IncomingEmails   []api.IncomingEmail  `json:"incomingEmails"`
	Loading          bool                 `json:"loading"`
	DashboardLoading bool                 `json:"dashboardLoading"`
	IncomingLoading  bool                 `json:"incomingLoading"`
	Error            string               `json:"error,omitempty"`

	listSeq uint64
}

// CurrentID returns the selected tenant id, or "".
func (t TenantState) CurrentID() string {
	if t.Current == nil {
		return ""
	}
	return t.Current.ID
}

type (
	TenantsPending struct{ Scope }
	TenantsFetched struct {
		Scope
		Tenants []api.Tenant
	}
	TenantsFailed struct {
		Scope
		Message string
	}
	TenantCreatePending struct{}
	TenantCreated       struct{ Tenant api.Tenant }
	TenantCreateFailed  struct{ Message string }
	TenantDeleted       struct{ ID string }
	TenantDeleteFailed  struct{ Message string }

	DashboardPending struct{ Scope }
	DashboardFetched struct {
		Scope
		Dashboard api.TenantDashboard
	}
	DashboardFailed struct {
		Scope
		Message string
	}

	IncomingEmailsPending struct{ Scope }
	IncomingEmailsFetched struct {
		Scope
		Emails []api.IncomingEmail
	}
	IncomingEmailsFailed struct {
		Scope
		Message string
	}

	// SelectTenant switches the current tenant and always resets every
	// tenant-scoped slice, even when the tenant is unchanged.
	SelectTenant     struct{ Tenant *api.Tenant }
	ClearTenantError struct{}
	ClearTenantState struct{}
)

func (TenantsPending) slice() Slice        { return SliceTenant }
func (TenantsFetched) slice() Slice        { return SliceTenant }
func (TenantsFailed) slice() Slice         { return SliceTenant }
func (TenantCreatePending) slice() Slice   { return SliceTenant }
func (TenantCreated) slice() Slice         { return SliceTenant }
func (TenantCreateFailed) slice() Slice    { return SliceTenant }
func (TenantDeleted) slice() Slice         { return SliceTenant }
func (TenantDeleteFailed) slice() Slice    { return SliceTenant }
func (DashboardPending) slice() Slice      { return SliceTenant }
func (DashboardFetched) slice() Slice      { return SliceTenant }
func (DashboardFailed) slice() Slice       { return SliceTenant }
func (IncomingEmailsPending) slice() Slice { return SliceTenant }
func (IncomingEmailsFetched) slice() Slice { return SliceTenant }
func (IncomingEmailsFailed) slice() Slice  { return SliceTenant }
func (SelectTenant) slice() Slice          { return SliceTenant }
func (ClearTenantError) slice() Slice      { return SliceTenant }
func (ClearTenantState) slice() Slice      { return SliceTenant }

func reduceTenant(st TenantState, a Action) TenantState {
	switch a := a.(type) {
	case TenantsPending:
		if a.Seq > st.listSeq {
			st.listSeq = a.Seq
		}
		st.Loading = true
		st.Error = ""
	case TenantsFetched:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Tenants = append([]api.Tenant(nil), a.Tenants...)
		if st.Current == nil && len(st.Tenants) > 0 {
			st.Current = ptr(st.Tenants[0])
		}
	case TenantsFailed:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Error = a.Message
	case TenantCreatePending:
		st.Loading = true
		st.Error = ""
	case TenantCreated:
		st.Loading = false
		st.Tenants = prepend(st.Tenants, a.Tenant)
		st.Current = ptr(a.Tenant)
	case TenantCreateFailed:
		st.Loading = false
		st.Error = a.Message
	case TenantDeleted:
		st.Tenants = removeWhere(st.Tenants, func(t api.Tenant) bool { return t.ID == a.ID })
		if st.CurrentID() == a.ID {
			st.Current = nil
			if len(st.Tenants) > 0 {
				st.Current = ptr(st.Tenants[0])
			}
		}
	case TenantDeleteFailed:
		st.Error = a.Message
	case DashboardPending:
		st.DashboardLoading = true
	case DashboardFetched:
		st.DashboardLoading = false
		st.Dashboard = ptr(a.Dashboard)
	case DashboardFailed:
		st.DashboardLoading = false
		st.Error = a.Message
	case IncomingEmailsPending:
		st.IncomingLoading = true
	case IncomingEmailsFetched:
		st.IncomingLoading = false
		st.IncomingEmails = append([]api.IncomingEmail(nil), a.Emails...)
	case IncomingEmailsFailed:
		st.IncomingLoading = false
		st.Error = a.Message
	case SelectTenant:
		st.Current = nil
		if a.Tenant != nil {
			st.Current = ptr(*a.Tenant)
		}
	case ClearTenantError:
		st.Error = ""
	case ClearTenantState:
		seq := st.listSeq
		st = TenantState{listSeq: seq}
	}
	return st
}
