package models

import "testing"

func TestActivityForCategory(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"meditation", "meditation"},
		{"yoga", "yoga"},
		{"reading", "listening"},
		{"sleep", "listening"},
		{"music", "listening"},
		{"", "listening"},
	}

	for _, tt := range tests {
		if got := ActivityForCategory(tt.category); got != tt.want {
			t.Errorf("ActivityForCategory(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}
