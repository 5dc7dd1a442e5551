package store

// Rehydrate restores the persisted auth and tenant selection.
type Rehydrate struct{ Snapshot Snapshot }

func (Rehydrate) slice() Slice { return sliceRoot }

func reduce(st State, a Action) State {
	if sc, ok := a.(scoped); ok {
		tenantID := sc.scope().TenantID
		if tenantID != "" && tenantID != st.Tenant.CurrentID() {
			return st
		}
	}

	prevTenant := st.Tenant.CurrentID()
	switch a.slice() {
	case SliceAuth:
		st.Auth = reduceAuth(st.Auth, a)
	case SliceTenant:
		st.Tenant = reduceTenant(st.Tenant, a)
	case SliceCV:
		st.CV = reduceCV(st.CV, a)
	case SliceMatch:
		st.Match = reduceMatch(st.Match, a)
	case SliceCampaign:
		st.Campaign = reduceCampaign(st.Campaign, a)
	case SliceSmtp:
		st.Smtp = reduceSmtp(st.Smtp, a)
	case SliceUI:
		st.UI = reduceUI(st.UI, a)
	case sliceRoot:
		if r, ok := a.(Rehydrate); ok {
			st = rehydrate(st, r.Snapshot)
		}
	}

	switch a.(type) {
	case SelectTenant, ClearTenantState:
		st = resetTenantScoped(st)
	case Logout:
		st.Tenant = reduceTenant(st.Tenant, ClearTenantState{})
		st = resetTenantScoped(st)
	default:
		if st.Tenant.CurrentID() != prevTenant {
			st = resetTenantScoped(st)
		}
	}

	st.Rev++
	return st
}

// resetTenantScoped returns every slice owned by the current tenant to its
// defaults. Request sequence counters survive so results issued before the
// reset stay stale.
func resetTenantScoped(st State) State {
	st.Tenant.Dashboard = nil
	st.Tenant.DashboardLoading = false
	st.Tenant.IncomingEmails = nil
	st.Tenant.IncomingLoading = false

	cv := defaultCVState()
	cv.listSeq = st.CV.listSeq
	st.CV = cv

	match := defaultMatchState()
	match.listSeq = st.Match.listSeq
	st.Match = match

	campaign := defaultCampaignState()
	campaign.listSeq = st.Campaign.listSeq
	campaign.logsSeq = st.Campaign.logsSeq
	st.Campaign = campaign

	st.Smtp = SmtpState{}
	return st
}

func rehydrate(st State, snap Snapshot) State {
	if snap.Version != SnapshotVersion {
		return st
	}
	st.Auth = AuthState{
		User:            snap.Auth.User,
		Token:           snap.Auth.Token,
		IsAuthenticated: snap.Auth.IsAuthenticated,
	}
	st.Tenant.Tenants = append(st.Tenant.Tenants[:0:0], snap.Tenant.Tenants...)
	st.Tenant.Current = nil
	if snap.Tenant.Current != nil {
		st.Tenant.Current = ptr(*snap.Tenant.Current)
	}
	return resetTenantScoped(st)
}
