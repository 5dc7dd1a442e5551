package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scholar-console/internal/api"
	"scholar-console/internal/store"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"future exp", signed(t, now.Add(time.Hour)), false},
		{"past exp", signed(t, now.Add(-time.Minute)), true},
		{"exp equals now", signed(t, now), true},
		{"opaque token", "not-a-jwt", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenExpired(tt.token, now); got != tt.want {
				t.Fatalf("TokenExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpireStaleSession(t *testing.T) {
	now := time.Now()
	s := store.New()
	svc := New(s, nil)

	s.Dispatch(store.SetCredentials{Session: api.Session{UserID: "u1", Token: signed(t, now.Add(time.Hour))}})
	if svc.ExpireStaleSession(context.Background(), now) || !s.IsAuthenticated() {
		t.Fatalf("live session was signed out")
	}

	s.Dispatch(store.SetCredentials{Session: api.Session{UserID: "u1", Token: signed(t, now.Add(-time.Hour))}})
	if !svc.ExpireStaleSession(context.Background(), now) || s.IsAuthenticated() {
		t.Fatalf("expired session kept")
	}
}
