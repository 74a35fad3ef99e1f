package main

import "testing"

func TestNormalizeServerAddr(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{"example.com:5001", "example.com:5001", false},
		{"example.com", "example.com:8080", false},
		{"bken://example.com:5001", "example.com:5001", false},
		{"https://example.com:5001/path", "example.com:5001", false},
		{"[::1]:5001", "[::1]:5001", false},
		{"::1", "[::1]:8080", false},
		{"", "", true},
		{"host:notaport", "", true},
	}
	for _, c := range cases {
		got, err := normalizeServerAddr(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("normalizeServerAddr(%q) = %q, want error", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeServerAddr(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("normalizeServerAddr(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
