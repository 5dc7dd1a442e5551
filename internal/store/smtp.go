package store

import "scholar-console/internal/api"

type SmtpState struct {
	Account *api.SmtpAccount `json:"account"`
	Loading bool             `json:"loading"`
	Saving  bool             `json:"saving"`
	Error   string           `json:"error,omitempty"`
}

type (
	SmtpPending struct{ Scope }
	// SmtpFetched with a nil Account means the tenant has no account yet.
	SmtpFetched struct {
		Scope
		Account *api.SmtpAccount
	}
	SmtpFailed struct {
		Scope
		Message string
	}
	SmtpSavePending struct{ Scope }
	SmtpSaved       struct {
		Scope
		Account api.SmtpAccount
	}
	SmtpSaveFailed struct {
		Scope
		Message string
	}
	SmtpDeactivated      struct{ Scope }
	SmtpDeactivateFailed struct {
		Scope
		Message string
	}
	ClearSmtpError struct{}
)

func (SmtpPending) slice() Slice          { return SliceSmtp }
func (SmtpFetched) slice() Slice          { return SliceSmtp }
func (SmtpFailed) slice() Slice           { return SliceSmtp }
func (SmtpSavePending) slice() Slice      { return SliceSmtp }
func (SmtpSaved) slice() Slice            { return SliceSmtp }
func (SmtpSaveFailed) slice() Slice       { return SliceSmtp }
func (SmtpDeactivated) slice() Slice      { return SliceSmtp }
func (SmtpDeactivateFailed) slice() Slice { return SliceSmtp }
func (ClearSmtpError) slice() Slice       { return SliceSmtp }

func reduceSmtp(st SmtpState, a Action) SmtpState {
	switch a := a.(type) {
	case SmtpPending:
		st.Loading = true
		st.Error = ""
	case SmtpFetched:
		st.Loading = false
		st.Account = nil
		if a.Account != nil {
			st.Account = ptr(*a.Account)
		}
	case SmtpFailed:
		st.Loading = false
		st.Error = a.Message
	case SmtpSavePending:
		st.Saving = true
		st.Error = ""
	case SmtpSaved:
		st.Saving = false
		st.Account = ptr(a.Account)
	case SmtpSaveFailed:
		st.Saving = false
		st.Error = a.Message
	case SmtpDeactivated:
		if st.Account != nil {
			acct := *st.Account
			acct.Status = api.SmtpInactive
			st.Account = &acct
		}
	case SmtpDeactivateFailed:
		st.Error = a.Message
	case ClearSmtpError:
		st.Error = ""
	}
	return st
}
