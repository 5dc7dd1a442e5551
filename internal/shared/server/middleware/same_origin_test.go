package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSameOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		method string
		origin string
		site   string
		want   int
	}{
		{"get from another site", http.MethodGet, "https://evil.example", "cross-site", http.StatusOK},
		{"post from another site", http.MethodPost, "https://evil.example", "cross-site", http.StatusForbidden},
		{"post with only fetch metadata", http.MethodPost, "", "cross-site", http.StatusForbidden},
		{"post from same site subdomain", http.MethodPost, "", "same-site", http.StatusForbidden},
		{"post from console page", http.MethodPost, "http://console.test", "same-origin", http.StatusOK},
		{"post from allowed origin", http.MethodPost, "http://localhost:5173", "cross-site", http.StatusOK},
		{"post typed into address bar", http.MethodPost, "", "none", http.StatusOK},
		{"post from cli", http.MethodPost, "", "", http.StatusOK},
		{"delete from another site", http.MethodDelete, "https://evil.example", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			called := false
			router := gin.New()
			router.Use(SameOrigin([]string{"http://localhost:5173/"}))
			router.Handle(tt.method, "/logs/:id/send", func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "http://console.test/logs/l1/send", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.site != "" {
				req.Header.Set("Sec-Fetch-Site", tt.site)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.Code)
			}
			if called != (tt.want == http.StatusOK) {
				t.Fatalf("handler called = %v", called)
			}
		})
	}
}
