package organizer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tagbrain/internal/services"
)

func TestValidateTargetPath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "music", "library")
	cases := []struct {
		name   string
		target string
		root   string
		valid  bool
	}{
		{"nested", filepath.Join(root, "Artist", "Album", "01 - Song.flac"), root, true},
		{"root itself", root, root, false},
		{"sibling prefix", root + "-other/x.flac", root, false},
		{"parent escape", filepath.Join(root, "..", "x.flac"), root, false},
		{"empty target", "", root, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTargetPath(tc.target, tc.root)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateTargetPathNeedsRoot(t *testing.T) {
	if err := ValidateTargetPath("/music/x.flac", " "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidatePublished(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.flac")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	full := filepath.Join(dir, "full.flac")
	if err := os.WriteFile(full, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := validatePublished(full); err != nil {
		t.Fatalf("expected valid file, got %v", err)
	}
	for _, path := range []string{empty, dir, filepath.Join(dir, "missing.flac")} {
		if err := validatePublished(path); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", path, err)
		}
	}
}
