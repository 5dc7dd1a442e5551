package store

import "scholar-console/internal/api"

type CampaignState struct {
	Campaigns      []api.Campaign `json:"campaigns"`
	Current        *api.Campaign  `json:"currentCampaign"`
	LogsCampaignID string         `json:"logsCampaignId,omitempty"`
	Logs           []api.EmailLog `json:"logs"`
	CurrentLog     *api.EmailLog  `json:"currentLog"`
	Pagination     Pagination     `json:"pagination"`
	LogsPagination Pagination     `json:"logsPagination"`
	Loading        bool           `json:"loading"`
	Creating       bool           `json:"creating"`
	Executing      bool           `json:"executing"`
	LogsLoading    bool           `json:"logsLoading"`
	LogSaving      bool           `json:"logSaving"`
	Error          string         `json:"error,omitempty"`

	listSeq uint64
	logsSeq uint64
}

func defaultCampaignState() CampaignState {
	return CampaignState{
		Pagination:     defaultPagination(DefaultCampaignPageSize),
		LogsPagination: defaultPagination(DefaultLogPageSize),
	}
}

// FindLog returns the listed or current log with id.
func (st CampaignState) FindLog(id string) (api.EmailLog, bool) {
	for _, l := range st.Logs {
		if l.ID == id {
			return l, true
		}
	}
	if st.CurrentLog != nil && st.CurrentLog.ID == id {
		return *st.CurrentLog, true
	}
	return api.EmailLog{}, false
}

type (
	CampaignsPending struct{ Scope }
	CampaignsFetched struct {
		Scope
		Page api.Page[api.Campaign]
	}
	CampaignsFailed struct {
		Scope
		Message string
	}
	CampaignFetched struct {
		Scope
		Campaign api.Campaign
	}
	// CampaignFetchFailed reports a single-campaign load. It leaves the
	// list's loading state alone.
	CampaignFetchFailed struct {
		Scope
		Message string
	}
	CampaignCreatePending struct{ Scope }
	CampaignCreated       struct {
		Scope
		Campaign api.Campaign
	}
	CampaignCreateFailed struct {
		Scope
		Message string
	}
	ScheduleRequested struct {
		Scope
		ID string
	}
	ScheduleFailed struct {
		Scope
		Message string
	}
	ExecutePending   struct{ Scope }
	ExecuteRequested struct {
		Scope
		ID string
	}
	ExecuteFailed struct {
		Scope
		Message string
	}
	CancelRequested struct {
		Scope
		ID string
	}
	CancelFailed struct {
		Scope
		Message string
	}
	LogsPending struct {
		Scope
		CampaignID string
	}
	LogsFetched struct {
		Scope
		Page api.Page[api.EmailLog]
	}
	LogsFailed struct {
		Scope
		Message string
	}
	LogFetched struct {
		Scope
		Log api.EmailLog
	}
	LogSavePending struct{ Scope }
	// LogSaved replaces a log by id after an edit or regeneration.
	LogSaved struct {
		Scope
		Log api.EmailLog
	}
	LogSaveFailed struct {
		Scope
		Message string
	}
	LogSendRequested struct {
		Scope
		ID string
	}
	LogSendFailed struct {
		Scope
		Message string
	}
	SetCurrentCampaign struct{ Campaign *api.Campaign }
	ClearCampaignError struct{}
)

func (CampaignsPending) slice() Slice      { return SliceCampaign }
func (CampaignsFetched) slice() Slice      { return SliceCampaign }
func (CampaignsFailed) slice() Slice       { return SliceCampaign }
func (CampaignFetched) slice() Slice       { return SliceCampaign }
func (CampaignFetchFailed) slice() Slice   { return SliceCampaign }
func (CampaignCreatePending) slice() Slice { return SliceCampaign }
func (CampaignCreated) slice() Slice       { return SliceCampaign }
func (CampaignCreateFailed) slice() Slice  { return SliceCampaign }
func (ScheduleRequested) slice() Slice     { return SliceCampaign }
func (ScheduleFailed) slice() Slice        { return SliceCampaign }
func (ExecutePending) slice() Slice        { return SliceCampaign }
func (ExecuteRequested) slice() Slice      { return SliceCampaign }
func (ExecuteFailed) slice() Slice         { return SliceCampaign }
func (CancelRequested) slice() Slice       { return SliceCampaign }
func (CancelFailed) slice() Slice          { return SliceCampaign }
func (LogsPending) slice() Slice           { return SliceCampaign }
func (LogsFetched) slice() Slice           { return SliceCampaign }
func (LogsFailed) slice() Slice            { return SliceCampaign }
func (LogFetched) slice() Slice            { return SliceCampaign }
func (LogSavePending) slice() Slice        { return SliceCampaign }
func (LogSaved) slice() Slice              { return SliceCampaign }
func (LogSaveFailed) slice() Slice         { return SliceCampaign }
func (LogSendRequested) slice() Slice      { return SliceCampaign }
func (LogSendFailed) slice() Slice         { return SliceCampaign }
func (SetCurrentCampaign) slice() Slice    { return SliceCampaign }
func (ClearCampaignError) slice() Slice    { return SliceCampaign }

func sameCampaign(id string) func(api.Campaign) bool {
	return func(c api.Campaign) bool { return c.ID == id }
}

func sameLog(id string) func(api.EmailLog) bool {
	return func(l api.EmailLog) bool { return l.ID == id }
}

func reduceCampaign(st CampaignState, a Action) CampaignState {
	switch a := a.(type) {
	case CampaignsPending:
		if a.Seq > st.listSeq {
			st.listSeq = a.Seq
		}
		st.Loading = true
		st.Error = ""
	case CampaignsFetched:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Campaigns = append([]api.Campaign(nil), a.Page.Content...)
		st.Pagination = PaginationOf(a.Page)
	case CampaignsFailed:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Error = a.Message
	case CampaignFetched:
		st.Current = ptr(a.Campaign)
		st.Campaigns = replaceWhere(st.Campaigns, sameCampaign(a.Campaign.ID), a.Campaign)
	case CampaignFetchFailed:
		st.Error = a.Message
	case CampaignCreatePending:
		st.Creating = true
		st.Error = ""
	case CampaignCreated:
		st.Creating = false
		st.Campaigns = prepend(st.Campaigns, a.Campaign)
		st.Current = ptr(a.Campaign)
	case CampaignCreateFailed:
		st.Creating = false
		st.Error = a.Message
	case ScheduleFailed:
		st.Error = a.Message
	case ExecutePending:
		st.Executing = true
		st.Error = ""
	case ExecuteRequested:
		st.Executing = false
	case ExecuteFailed:
		st.Executing = false
		st.Error = a.Message
	case CancelFailed:
		st.Error = a.Message
	case LogsPending:
		if a.Seq > st.logsSeq {
			st.logsSeq = a.Seq
		}
		if a.CampaignID != st.LogsCampaignID {
			st.Logs = nil
			st.LogsPagination = defaultPagination(DefaultLogPageSize)
		}
		st.LogsCampaignID = a.CampaignID
		st.LogsLoading = true
	case LogsFetched:
		if stale(a.Seq, st.logsSeq) {
			return st
		}
		st.LogsLoading = false
		st.Logs = append([]api.EmailLog(nil), a.Page.Content...)
		st.LogsPagination = PaginationOf(a.Page)
	case LogsFailed:
		if stale(a.Seq, st.logsSeq) {
			return st
		}
		st.LogsLoading = false
		st.Error = a.Message
	case LogFetched:
		st.CurrentLog = ptr(a.Log)
		st.Logs = replaceWhere(st.Logs, sameLog(a.Log.ID), a.Log)
	case LogSavePending:
		st.LogSaving = true
		st.Error = ""
	case LogSaved:
		st.LogSaving = false
		st.Logs = replaceWhere(st.Logs, sameLog(a.Log.ID), a.Log)
		if st.CurrentLog != nil && st.CurrentLog.ID == a.Log.ID {
			st.CurrentLog = ptr(a.Log)
		}
	case LogSaveFailed:
		st.LogSaving = false
		st.Error = a.Message
	case LogSendFailed:
		st.Error = a.Message
	case SetCurrentCampaign:
		st.Current = nil
		if a.Campaign != nil {
			st.Current = ptr(*a.Campaign)
		}
	case ClearCampaignError:
		st.Error = ""
	}
	return st
}
