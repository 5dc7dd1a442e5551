package server

import "testing"

func TestAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "127.0.0.1:8090"},
		{"9000", "127.0.0.1:9000"},
		{":9000", "127.0.0.1:9000"},
		{"0.0.0.0:9000", "0.0.0.0:9000"},
		{"localhost:9000", "localhost:9000"},
	}
	for _, tt := range tests {
		if got := Addr(tt.in); got != tt.want {
			t.Fatalf("Addr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
