package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		ok     bool
		want   map[string]string
	}{
		{"no checks", nil, true, nil},
		{"all healthy", map[string]Check{"cache": func(context.Context) error { return nil }}, true, map[string]string{"cache": "ok"}},
		{"one failing", map[string]Check{
			"cache": func(context.Context) error { return nil },
			"state": func(context.Context) error { return errors.New("connection refused") },
		}, false, map[string]string{"cache": "ok", "state": "connection refused"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rep := NewService(tt.checks).Status(context.Background())
			if rep.OK != tt.ok || len(rep.Checks) != len(tt.want) {
				t.Fatalf("report = %+v", rep)
			}
			for k, v := range tt.want {
				if rep.Checks[k] != v {
					t.Fatalf("%s = %q, want %q", k, rep.Checks[k], v)
				}
			}
		})
	}
}
