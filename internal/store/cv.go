package store

import "scholar-console/internal/api"

type CVState struct {
	CVs         []api.CV   `json:"cvs"`
	Current     *api.CV    `json:"currentCV"`
	ParsingCVID string     `json:"parsingCVId,omitempty"`
	Pagination  Pagination `json:"pagination"`
	Loading     bool       `json:"loading"`
	Uploading   bool       `json:"uploading"`
	Error       string     `json:"error,omitempty"`

	listSeq uint64
}

func defaultCVState() CVState {
	return CVState{Pagination: defaultPagination(DefaultCVPageSize)}
}

// Find returns the listed or current CV with id.
func (st CVState) Find(id string) (api.CV, bool) {
	for _, cv := range st.CVs {
		if cv.ID == id {
			return cv, true
		}
	}
	if st.Current != nil && st.Current.ID == id {
		return *st.Current, true
	}
	return api.CV{}, false
}

type (
	CVsPending struct{ Scope }
	CVsFetched struct {
		Scope
		Page api.Page[api.CV]
	}
	CVsFailed struct {
		Scope
		Message string
	}
	CVFetched struct {
		Scope
		CV api.CV
	}
	CVFetchFailed struct {
		Scope
		Message string
	}
	UploadPending struct{ Scope }
	CVUploaded    struct {
		Scope
		CV api.CV
	}
	UploadFailed struct {
		Scope
		Message string
	}
	ParsePending struct {
		Scope
		CVID string
	}
	ParseRequested struct {
		Scope
		CVID string
	}
	ParseFailed struct {
		Scope
		CVID    string
		Message string
	}
	ComputeMatchesRequested struct {
		Scope
		CVID string
	}
	ComputeMatchesFailed struct {
		Scope
		Message string
	}
	CVDeleted struct {
		Scope
		ID string
	}
	CVDeleteFailed struct {
		Scope
		Message string
	}
	UpdateCVInList struct{ CV api.CV }
	SetCurrentCV   struct{ CV *api.CV }
	ClearParsingCV struct{}
	ClearCVError   struct{}
)

func (CVsPending) slice() Slice              { return SliceCV }
func (CVsFetched) slice() Slice              { return SliceCV }
func (CVsFailed) slice() Slice               { return SliceCV }
func (CVFetched) slice() Slice               { return SliceCV }
func (CVFetchFailed) slice() Slice           { return SliceCV }
func (UploadPending) slice() Slice           { return SliceCV }
func (CVUploaded) slice() Slice              { return SliceCV }
func (UploadFailed) slice() Slice            { return SliceCV }
func (ParsePending) slice() Slice            { return SliceCV }
func (ParseRequested) slice() Slice          { return SliceCV }
func (ParseFailed) slice() Slice             { return SliceCV }
func (ComputeMatchesRequested) slice() Slice { return SliceCV }
func (ComputeMatchesFailed) slice() Slice    { return SliceCV }
func (CVDeleted) slice() Slice               { return SliceCV }
func (CVDeleteFailed) slice() Slice          { return SliceCV }
func (UpdateCVInList) slice() Slice          { return SliceCV }
func (SetCurrentCV) slice() Slice            { return SliceCV }
func (ClearParsingCV) slice() Slice          { return SliceCV }
func (ClearCVError) slice() Slice            { return SliceCV }

func sameCV(id string) func(api.CV) bool {
	return func(cv api.CV) bool { return cv.ID == id }
}

func reduceCV(st CVState, a Action) CVState {
	switch a := a.(type) {
	case CVsPending:
		if a.Seq > st.listSeq {
			st.listSeq = a.Seq
		}
		st.Loading = true
		st.Error = ""
	case CVsFetched:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.CVs = append([]api.CV(nil), a.Page.Content...)
		st.Pagination = PaginationOf(a.Page)
	case CVsFailed:
		if stale(a.Seq, st.listSeq) {
			return st
		}
		st.Loading = false
		st.Error = a.Message
	case CVFetched:
		st.Current = ptr(a.CV)
		st.CVs = replaceWhere(st.CVs, sameCV(a.CV.ID), a.CV)
	case CVFetchFailed:
		st.Error = a.Message
	case UploadPending:
		st.Uploading = true
		st.Error = ""
	case CVUploaded:
		st.Uploading = false
		st.CVs = prepend(st.CVs, a.CV)
		st.Current = ptr(a.CV)
		st.ParsingCVID = a.CV.ID
	case UploadFailed:
		st.Uploading = false
		st.Error = a.Message
	case ParsePending:
		st.ParsingCVID = a.CVID
		st.Error = ""
	case ParseFailed:
		st.ParsingCVID = ""
		st.Error = a.Message
	case ComputeMatchesFailed:
		st.Error = a.Message
	case CVDeleted:
		st.CVs = removeWhere(st.CVs, sameCV(a.ID))
		if st.Current != nil && st.Current.ID == a.ID {
			st.Current = nil
		}
		if st.ParsingCVID == a.ID {
			st.ParsingCVID = ""
		}
	case CVDeleteFailed:
		st.Error = a.Message
	case UpdateCVInList:
		st.CVs = replaceWhere(st.CVs, sameCV(a.CV.ID), a.CV)
		if st.Current != nil && st.Current.ID == a.CV.ID {
			st.Current = ptr(a.CV)
		}
	case SetCurrentCV:
		st.Current = nil
		if a.CV != nil {
			st.Current = ptr(*a.CV)
		}
	case ClearParsingCV:
		st.ParsingCVID = ""
	case ClearCVError:
		st.Error = ""
	}
	return st
}
