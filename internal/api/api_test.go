package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"scholar-console/internal/httpclient"
)

func TestListCVsSendsPagingAndDecodesPage(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cvs" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"success":true,"data":{"content":[{"id":"cv1","parsingStatus":"PENDING"}],"number":2,"size":10,"totalElements":21,"totalPages":3}}`)
	}))
	defer srv.Close()

	c := New(httpclient.New(httpclient.Options{BaseURL: srv.URL}))
	page, err := c.ListCVs(context.Background(), "t1", 2, 10)
	if err != nil {
		t.Fatalf("ListCVs: %v", err)
	}
	if gotQuery != "page=2&size=10&sort=uploadedAt%2Cdesc&tenantId=t1" {
		t.Fatalf("query = %q", gotQuery)
	}
	if page.Number != 2 || page.Size != 10 || page.TotalElements != 21 || page.TotalPages != 3 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	if len(page.Content) != 1 || page.Content[0].ParsingStatus != ParsingPending {
		t.Fatalf("unexpected content: %+v", page.Content)
	}
}

func TestRecomputeInvalidatesCachedMatches(t *testing.T) {
	listHits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/matches/cv/cv1":
			listHits++
			_, _ = io.WriteString(w, `{"success":true,"data":{"content":[],"number":0,"size":20}}`)
		case "/v1/matches/cv/cv1/recompute":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(httpclient.New(httpclient.Options{BaseURL: srv.URL, Cache: httpclient.NewMemoryCache(nil)}))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.ListMatches(ctx, "t1", "cv1", 0, 20); err != nil {
			t.Fatalf("ListMatches: %v", err)
		}
	}
	if listHits != 1 {
		t.Fatalf("list hits = %d, want 1", listHits)
	}
	if err := c.RecomputeMatches(ctx, "t1", "cv1"); err != nil {
		t.Fatalf("RecomputeMatches: %v", err)
	}
	if _, err := c.ListMatches(ctx, "t1", "cv1", 0, 20); err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if listHits != 2 {
		t.Fatalf("list hits after recompute = %d, want 2", listHits)
	}
}

func TestGetSmtpAccountNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"error":"SMTP account not found"}`)
	}))
	defer srv.Close()

	c := New(httpclient.New(httpclient.Options{BaseURL: srv.URL}))
	_, err := c.GetSmtpAccount(context.Background(), "t1")
	if !httpclient.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIsGenerated(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: "", want: false},
		{body: "   ", want: false},
		{body: PlaceholderBody, want: false},
		{body: "Dear Prof. Smith", want: true},
	}
	for _, tt := range tests {
		if got := IsGenerated(tt.body); got != tt.want {
			t.Fatalf("IsGenerated(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestActionAvailability(t *testing.T) {
	if CanFindMatches(CV{ParsingStatus: ParsingInProgress}) {
		t.Fatalf("find matches must wait for COMPLETED")
	}
	if !CanFindMatches(CV{ParsingStatus: ParsingCompleted}) {
		t.Fatalf("find matches should be allowed when COMPLETED")
	}
	if CanEditBody(EmailLog{Status: EmailSent}) {
		t.Fatalf("sent emails are immutable")
	}
	if !CanEditBody(EmailLog{Status: EmailFailed}) {
		t.Fatalf("failed emails are editable")
	}
	if !CanExecute(Campaign{Status: CampaignDraft}) || CanExecute(Campaign{Status: CampaignCompleted}) {
		t.Fatalf("only drafts are executable")
	}
}

func TestUnsuccessfulEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantMsg string
	}{
		{"success false", `{"success":false}`, ErrRejected, "fallback"},
		{"success false with error", `{"success":false,"error":"Tenant is full"}`, ErrRejected, "Tenant is full"},
		{"success false with message", `{"success":false,"message":"Try later"}`, ErrRejected, "Try later"},
		{"null data", `{"success":true,"data":null}`, ErrNoData, "fallback"},
		{"missing data", `{"success":true}`, ErrNoData, "fallback"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(httpclient.New(httpclient.Options{BaseURL: srv.URL}))
			cv, err := c.UploadCV(context.Background(), "t1", "cv.pdf", []byte("%PDF-1.4"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if cv.ID != "" {
				t.Fatalf("cv = %+v", cv)
			}
			if got := httpclient.Message(err, "fallback"); got != tt.wantMsg {
				t.Fatalf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSideEffectAcknowledgements(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"empty body", ``, false},
		{"success true", `{"success":true}`, false},
		{"no success field", `{"message":"queued"}`, false},
		{"success false", `{"success":false}`, true},
		{"success false with error", `{"success":false,"error":"Campaign already running"}`, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(httpclient.New(httpclient.Options{BaseURL: srv.URL}))
			err := c.ExecuteCampaign(context.Background(), "t1", "c1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrRejected) {
				t.Fatalf("err = %v, want ErrRejected", err)
			}
		})
	}
}
