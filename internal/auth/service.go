// Package auth signs users in and out of the console.
package auth

import (
	"context"
	"strings"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/shared/validate"
	"scholar-console/internal/store"
)

const minPasswordLength = 8

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName       string `json:"firstName" form:"firstName"`
	LastName        string `json:"lastName" form:"lastName"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// Service runs the auth operations against the backend and commits the
// outcome into the store.
type Service struct {
	Store *store.Store
	API   *api.Client
}

func New(s *store.Store, c *api.Client) *Service {
	return &Service{Store: s, API: c}
}

// ValidateLogin checks the sign-in form.
func ValidateLogin(req api.AuthenticationRequest) validate.Errors {
	errs := validate.Errors{}
	errs.Email("email", req.Email)
	errs.Required("password", req.Password, "Password is required")
	return errs
}

// ValidateRegister checks the sign-up form.
func ValidateRegister(in RegisterInput) validate.Errors {
	errs := validate.Errors{}
	errs.Required("firstName", in.FirstName, "First name is required")
	errs.Required("lastName", in.LastName, "Last name is required")
	errs.Email("email", in.Email)
	switch {
	case in.Password == "":
		errs.Add("password", "Password is required")
	case len(in.Password) < minPasswordLength:
		errs.Add("password", "Password must be at least 8 characters")
	}
	if in.ConfirmPassword != in.Password {
		errs.Add("confirmPassword", "Passwords do not match")
	}
	return errs
}

// Login authenticates and stores the session.
func (s *Service) Login(ctx context.Context, req api.AuthenticationRequest) (api.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := ValidateLogin(req).Err(); err != nil {
		return api.Session{}, err
	}

	s.Store.Dispatch(store.AuthPending{})
	sess, err := s.API.Authenticate(ctx, req)
	if err != nil {
		s.Store.Dispatch(store.AuthFailed{Message: httpclient.Message(err, "Login failed")})
		return api.Session{}, err
	}
	s.Store.Dispatch(store.LoginSucceeded{Session: sess})
	telemetry.Info("auth.login", map[string]any{"user_id": sess.UserID})
	return sess, nil
}

// Register creates an account. The user is signed in only when the backend
// returns a token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (api.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := ValidateRegister(in).Err(); err != nil {
		return api.Session{}, err
	}

	s.Store.Dispatch(store.AuthPending{})
	sess, err := s.API.Register(ctx, api.RegisterRequest{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		s.Store.Dispatch(store.AuthFailed{Message: httpclient.Message(err, "Registration failed")})
		return api.Session{}, err
	}
	s.Store.Dispatch(store.RegisterSucceeded{Session: sess})
	telemetry.Info("auth.register", map[string]any{"user_id": sess.UserID, "signed_in": sess.Token != ""})
	return sess, nil
}

// Logout drops the session, the tenant selection and all tenant data.
// Cached responses are dropped too so the next user starts cold.
func (s *Service) Logout(ctx context.Context) {
	s.Store.Dispatch(store.Logout{})
	if s.API != nil && s.API.HTTP != nil {
		s.API.HTTP.Invalidate(ctx, "")
	}
}

// ClearError clears the last auth error.
func (s *Service) ClearError() {
	s.Store.Dispatch(store.ClearAuthError{})
}
