package services_test

import (
	"errors"
	"strings"
	"testing"

	"tagbrain/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "fingerprint", "fpcalc", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fingerprint", "fpcalc", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{services.Wrap(services.ErrCatalogRequest, "musicbrainz", "fetch", "", errors.New("503")), true},
		{services.Wrap(services.ErrNoMatch, "acoustid", "lookup", "", nil), true},
		{services.Wrap(services.ErrIncompleteMetadata, "organizer", "resolve", "album missing", nil), false},
		{services.Wrap(services.ErrAlreadyExists, "organizer", "publish", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestKindPrefersMostSpecificMarker(t *testing.T) {
	err := services.Wrap(services.ErrNoTitleTag, "scanner", "search", "", nil)
	if got := services.Kind(err); got != "no_title_tag" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(errors.New("plain")); got != "transient" {
		t.Fatalf("unexpected kind for unmarked error %q", got)
	}
}
