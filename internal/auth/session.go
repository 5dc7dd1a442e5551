package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scholar-console/internal/shared/telemetry"
)

// TokenExpired reports whether token is a JWT whose exp claim is not after
// now. The signature is not checked. Opaque tokens never expire here.
func TokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// ExpireStaleSession signs out a restored session whose token has already
// expired, so the guard sends the user to /login instead of letting the
// first request fail with 401.
func (s *Service) ExpireStaleSession(ctx context.Context, now time.Time) bool {
	st := s.Store.State().Auth
	if !st.IsAuthenticated || !TokenExpired(st.Token, now) {
		return false
	}
	userID := ""
	if st.User != nil {
		userID = st.User.UserID
	}
	s.Logout(ctx)
	telemetry.Info("auth.session_expired", map[string]any{"user_id": userID})
	return true
}
