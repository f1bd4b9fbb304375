package server

import (
	"strings"
	"testing"

	"hygge/internal/config"
	"hygge/internal/metadata"

	"github.com/sirupsen/logrus"
)

func createTestServer() *HyggeServer {
	cfg := config.DefaultConfig()
	cfg.Library.Path = "/tmp/test-library"

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	return &HyggeServer{
		config:    cfg,
		extractor: metadata.NewExtractor(cfg.Library.SupportedFormats, cfg.Library.DefaultCategory),
		logger:    logger,
	}
}

func TestValidateTrackID(t *testing.T) {
	hs := createTestServer()

	tests := []struct {
		name      string
		pathParts []string
		minParts  int
		wantID    int
		wantError bool
	}{
		{
			name:      "valid track ID",
			pathParts: []string{"", "stream", "123"},
			minParts:  3,
			wantID:    123,
			wantError: false,
		},
		{
			name:      "missing track ID",
			pathParts: []string{"", "stream"},
			minParts:  3,
			wantError: true,
		},
		{
			name:      "invalid track ID format",
			pathParts: []string{"", "stream", "abc"},
			minParts:  3,
			wantError: true,
		},
		{
			name:      "negative track ID",
			pathParts: []string{"", "stream", "-1"},
			minParts:  3,
			wantError: true,
		},
		{
			name:      "zero track ID",
			pathParts: []string{"", "stream", "0"},
			minParts:  3,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, verr := hs.validateTrackID(tt.pathParts, tt.minParts)

			if tt.wantError && verr == nil {
				t.Errorf("validateTrackID() expected error but got none")
			}
			if !tt.wantError && verr != nil {
				t.Errorf("validateTrackID() unexpected error: %v", verr)
			}
			if id != tt.wantID {
				t.Errorf("validateTrackID() = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestValidateCollectionID(t *testing.T) {
	hs := createTestServer()

	if id, verr := hs.validateCollectionID([]string{"", "api", "collections", "7"}, 4); verr != nil || id != 7 {
		t.Errorf("expected valid ID 7, got %d (%v)", id, verr)
	}
	if _, verr := hs.validateCollectionID([]string{"", "api", "collections", "x"}, 4); verr == nil {
		t.Error("expected error for non-numeric ID")
	}
	if _, verr := hs.validateCollectionID([]string{"", "api", "collections"}, 4); verr == nil {
		t.Error("expected error for missing ID")
	}
}

func TestValidateSearchQuery(t *testing.T) {
	hs := createTestServer()

	if verr := hs.validateSearchQuery("calm evening"); verr != nil {
		t.Errorf("valid query rejected: %v", verr)
	}
	if verr := hs.validateSearchQuery(strings.Repeat("a", 1001)); verr == nil {
		t.Error("expected error for oversized query")
	}
	if verr := hs.validateSearchQuery("bad\x00query"); verr == nil {
		t.Error("expected error for null byte")
	}
}

func TestValidateFilePath(t *testing.T) {
	hs := createTestServer()

	if verr := hs.validateFilePath("/tmp/test-library/meditation/calm.mp3"); verr != nil {
		t.Errorf("in-library path rejected: %v", verr)
	}
	if verr := hs.validateFilePath("/etc/passwd"); verr == nil {
		t.Error("expected rejection of path outside library")
	}
	if verr := hs.validateFilePath("/tmp/test-library/../secrets.db"); verr == nil {
		t.Error("expected rejection of traversal path")
	}
}

func TestValidateURL(t *testing.T) {
	hs := createTestServer()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://example.com/article", false},
		{"valid http", "http://example.com", false},
		{"empty", "", true},
		{"bad scheme", "ftp://example.com/file", true},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := hs.validateURL(tt.url)
			if tt.wantErr && verr == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && verr != nil {
				t.Errorf("unexpected validation error: %v", verr)
			}
		})
	}
}

func TestValidateCollectionName(t *testing.T) {
	hs := createTestServer()

	if verr := hs.validateCollectionName("Evening Wind-Down"); verr != nil {
		t.Errorf("valid name rejected: %v", verr)
	}
	if verr := hs.validateCollectionName(""); verr == nil {
		t.Error("expected error for empty name")
	}
	if verr := hs.validateCollectionName("line\nbreak"); verr == nil {
		t.Error("expected error for newline in name")
	}
	if verr := hs.validateCollectionName(strings.Repeat("n", 256)); verr == nil {
		t.Error("expected error for oversized name")
	}
}
