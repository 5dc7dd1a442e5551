package store

import "scholar-console/internal/api"

// User is the signed-in user.
type User struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type AuthState struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
}

type (
	AuthPending       struct{}
	LoginSucceeded    struct{ Session api.Session }
	RegisterSucceeded struct{ Session api.Session }
	AuthFailed        struct{ Message string }
	SetCredentials    struct{ Session api.Session }
	Logout            struct{}
	ClearAuthError    struct{}
)

func (AuthPending) slice() Slice       { return SliceAuth }
func (LoginSucceeded) slice() Slice    { return SliceAuth }
func (RegisterSucceeded) slice() Slice { return SliceAuth }
func (AuthFailed) slice() Slice        { return SliceAuth }
func (SetCredentials) slice() Slice    { return SliceAuth }
func (Logout) slice() Slice            { return SliceAuth }
func (ClearAuthError) slice() Slice    { return SliceAuth }

func userOf(s api.Session) *User {
	return &User{UserID: s.UserID, Email: s.Email, FirstName: s.FirstName, LastName: s.LastName}
}

func reduceAuth(st AuthState, a Action) AuthState {
	switch a := a.(type) {
	case AuthPending:
		st.Loading = true
		st.Error = ""
	case LoginSucceeded:
		st.Loading = false
		st.User = userOf(a.Session)
		st.Token = a.Session.Token
		st.IsAuthenticated = true
	case RegisterSucceeded:
		st.Loading = false
		st.User = userOf(a.Session)
		st.Token = a.Session.Token
		st.IsAuthenticated = a.Session.Token != ""
	case AuthFailed:
		st.Loading = false
		st.Error = a.Message
	case SetCredentials:
		st.User = userOf(a.Session)
		st.Token = a.Session.Token
		st.IsAuthenticated = true
	case Logout:
		st = AuthState{}
	case ClearAuthError:
		st.Error = ""
	}
	return st
}
