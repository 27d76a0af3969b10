package scanlog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tagbrain/internal/metadata"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/services"
	"tagbrain/internal/testsupport"
)

func openStore(t *testing.T) *scanlog.Store {
	t.Helper()
	store, err := scanlog.Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	score := 0.91
	retries := 1
	id, err := store.Insert(ctx, scanlog.Entry{
		Type:          scanlog.TypeScan,
		Success:       true,
		Message:       "Scanner: AcoustId",
		OldMetadata:   &metadata.Metadata{Title: "old"},
		NewMetadata:   &metadata.Metadata{Title: "new", Album: "LP"},
		SourcePath:    "/in/a.flac",
		TargetPath:    "/lib/A/LP/01 - new.flac",
		AcoustIDScore: &score,
		RetryCount:    &retries,
		CorrelationID: "corr-1",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Success || got.Message != "Scanner: AcoustId" || got.TargetPath == "" || got.CorrelationID != "corr-1" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.NewMetadata == nil || got.NewMetadata.Album != "LP" || got.OldMetadata.Title != "old" {
		t.Fatalf("metadata not restored: %+v %+v", got.OldMetadata, got.NewMetadata)
	}
	if got.AcoustIDScore == nil || *got.AcoustIDScore != score || got.RetryCount == nil || *got.RetryCount != 1 {
		t.Fatalf("optional numbers not restored: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestFailureEntryHasNoMetadata(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id, err := store.Insert(ctx, scanlog.Entry{Type: scanlog.TypeFix, Message: "boom", SourcePath: "/in/b.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Success || got.Type != scanlog.TypeFix || got.OldMetadata != nil || got.AcoustIDScore != nil || got.RetryCount != nil {
		t.Fatalf("unexpected failure entry: %+v", got)
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.Insert(ctx, scanlog.Entry{Success: i%2 == 0, SourcePath: filepath.Join("/in", string(rune('a'+i)))}); err != nil {
			t.Fatal(err)
		}
	}

	page0, total, err := store.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(page0) != 2 || page0[0].SourcePath != "/in/e" || page0[1].SourcePath != "/in/d" {
		t.Fatalf("unexpected first page: total=%d %+v", total, page0)
	}
	page2, _, err := store.List(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 1 || page2[0].SourcePath != "/in/a" {
		t.Fatalf("unexpected last page: %+v", page2)
	}

	failed, err := store.ListFailed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 2 || failed[0].SourcePath != "/in/d" {
		t.Fatalf("unexpected failed list: %+v", failed)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, ok := range []bool{true, false, true} {
		if _, err := store.Insert(ctx, scanlog.Entry{Success: ok, SourcePath: "/x"}); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := store.Clear(ctx, true)
	if err != nil || removed != 2 {
		t.Fatalf("Clear(keepFailed) = %d, %v", removed, err)
	}
	_, total, _ := store.List(ctx, 10, 0)
	if total != 1 {
		t.Fatalf("expected the failed entry to remain, total=%d", total)
	}
	if removed, err := store.Clear(ctx, false); err != nil || removed != 1 {
		t.Fatalf("Clear(all) = %d, %v", removed, err)
	}
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertRequiresSource(t *testing.T) {
	store := openStore(t)
	if _, err := store.Insert(context.Background(), scanlog.Entry{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := scanlog.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(context.Background(), scanlog.Entry{SourcePath: "/x"}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = scanlog.OpenPath(cfg.LogDBPath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, total, _ := store.List(context.Background(), 10, 0); total != 1 {
		t.Fatalf("total after reopen = %d", total)
	}
}
