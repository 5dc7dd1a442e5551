package httpclient

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		params url.Values
		want   string
	}{
		{name: "no params", url: "/v1/tenants", want: "/v1/tenants:{}"},
		{
			name:   "sorted params",
			url:    "/v1/cvs",
			params: url.Values{"tenantId": {"t1"}, "page": {"0"}},
			want:   `/v1/cvs:{"page":"0","tenantId":"t1"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheKey(tt.url, tt.params); got != tt.want {
				t.Fatalf("CacheKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryCacheExpiresLazily(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(func() time.Time { return now })
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 30*time.Second)
	now = now.Add(29 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before ttl")
	}
	now = now.Add(2 * time.Second)
	if c.Len() != 1 {
		t.Fatalf("expired entry should remain until read")
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()
	c.Set(ctx, "/v1/matches/cv/1:{}", []byte("a"), 0)
	c.Set(ctx, "/v1/matches/cv/2:{}", []byte("b"), 0)
	c.Set(ctx, "/v1/tenants:{}", []byte("c"), 0)

	c.Invalidate(ctx, "/v1/matches/cv/1")
	if _, ok := c.Get(ctx, "/v1/matches/cv/1:{}"); ok {
		t.Fatalf("expected invalidated key to miss")
	}
	if _, ok := c.Get(ctx, "/v1/matches/cv/2:{}"); !ok {
		t.Fatalf("unrelated key should survive")
	}

	c.Invalidate(ctx, "")
	if c.Len() != 0 {
		t.Fatalf("Len = %d after full invalidate", c.Len())
	}
}

func TestMemoryCacheCopiesData(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()
	data := []byte("abc")
	c.Set(ctx, "k", data, 0)
	data[0] = 'x'
	got, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("cached = %q, want abc", got)
	}
}
