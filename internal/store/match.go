package store

import "scholar-console/internal/api"

type MatchFilters struct {
	MinScore float64 `json:"minScore"`
}

type MatchState struct {
	CVID       string       `json:"cvId,omitempty"`
	Matches    []api.Match  `json:"matches"`
	Pagination Pagination   `json:"pagination"`
	Filters    MatchFilters `json:"filters"`
	Loading    bool         `json:"loading"`
	Computing  bool         `json:"computing"`
	Error      string       `json:"error,omitempty"`

	listSeq uint64
}

func defaultMatchState() MatchState {
	return MatchState{Pagination: defaultPagination(DefaultMatchPageSize)}
}

type (
	MatchesPending struct {
		Scope
		CVID string
	}
	MatchesFetched struct {
		Scope
		Page api.Page[api.Match]
	}
	ThresholdMatchesFetched struct {
		Scope
		Matches []api.Match
	}
	MatchesFailed struct {
		Scope
		Message string
	}
	RecomputePending struct{ Scope }
	Recomputed       struct{ Scope }
	RecomputeFailed  struct {
		Scope
		Message string
	}
	SetMinScoreFilter struct{ MinScore float64 }
	ClearMatchError   struct{}
)

func (MatchesPending) slice() Slice          { return SliceMatch }
func (MatchesFetched) slice() Slice          { return SliceMatch }
func (ThresholdMatchesFetched) slice() Slice { return SliceMatch }
func (MatchesFailed) slice() Slice           { return SliceMatch }
func (RecomputePending) slice() Slice        { return SliceMatch }
func (Recomputed) slice() Slice              { return SliceMatch }
func (RecomputeFailed) slice() Slice         { return SliceMatch }
func (SetMinScoreFilter) slice() Slice       { return SliceMatch }
func (ClearMatchError) slice() Slice         { return SliceMatch }

func reduceMatch(st MatchState, a Action) MatchState {
	switch a := a.(type) {
	case MatchesPending:
		if a.Seq > st.listSeq {
			st.listSeq = a.Seq
		}
		st.CVID = a.CVID
		st.Loading = true
		st.Error = ""
	case MatchesFetched:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Matches = append([]api.Match(nil), a.Page.Content...)
		st.Pagination = PaginationOf(a.Page)
	case ThresholdMatchesFetched:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Matches = append([]api.Match(nil), a.Matches...)
		st.Pagination.TotalElements = len(a.Matches)
		st.Pagination.TotalPages = 1
	case MatchesFailed:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Error = a.Message
	case RecomputePending:
		st.Computing = true
		st.Error = ""
	case Recomputed:
		st.Computing = false
	case RecomputeFailed:
		st.Computing = false
		st.Error = a.Message
	case SetMinScoreFilter:
		st.Filters.MinScore = a.MinScore
	case ClearMatchError:
		st.Error = ""
	}
	return st
}
