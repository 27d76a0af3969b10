package main

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tagbrain/internal/api"
	"tagbrain/internal/config"
	"tagbrain/internal/deps"
	"tagbrain/internal/preflight"
)

func TestScanSendsAbsolutePath(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("POST /api/scan", api.TaskResponse{Task: api.Task{ID: 7, Kind: "scan", Path: "/inbox/a.flac"}})

	t.Chdir(env.cfg.Paths.SourceDir)
	out, _, err := runCLI(t, []string{"scan", "a.flac"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "task 7")

	body := decodeBody[api.ScanRequest](t, env.daemon.last("POST /api/scan"))
	if !filepath.IsAbs(body.Path) || filepath.Base(body.Path) != "a.flac" {
		t.Fatalf("expected absolute path to a.flac, got %q", body.Path)
	}
}

func TestScanAllReportsCount(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("POST /api/scan-all", api.ScanAllResponse{Queued: 12})

	out, _, err := runCLI(t, []string{"scan-all"}, env.configPath)
	if err != nil {
		t.Fatalf("scan-all: %v", err)
	}
	requireContains(t, out, "Queued 12 files")
}

func TestQueueStatusRendersTasksInRunOrder(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("GET /api/queue", api.QueueResponse{
		RunningCount: 1,
		Tasks: []api.Task{
			{ID: 3, Kind: "scan", Path: "/inbox/newest.mp3"},
			{ID: 2, Kind: "fix", Path: "/library/older.flac", RetryCount: 0},
		},
	})

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Running: 1")
	newest := strings.Index(out, "newest.mp3")
	older := strings.Index(out, "older.flac")
	if newest < 0 || older < 0 || newest > older {
		t.Fatalf("expected newest task listed first:\n%s", out)
	}
}

func TestQueueStatusEmptyAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("GET /api/queue", api.QueueResponse{Tasks: []api.Task{}})
	env.daemon.respond("DELETE /api/queue", api.ClearResponse{Removed: 4})

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 4 pending tasks")
}

func TestLogListPassesPaging(t *testing.T) {
	env := setupCLITestEnv(t)
	score := 0.93
	env.daemon.respond("GET /api/logs", api.LogsResponse{
		Total: 11,
		Entries: []api.LogEntry{
			{ID: 9, Type: "scan", Success: true, SourcePath: "/inbox/ok.flac", TargetPath: "/library/A/B/01 - C.flac", AcoustIDScore: &score},
			{ID: 8, Type: "scan", Success: false, SourcePath: "/inbox/bad.mp3", Message: "no match found"},
		},
	})

	out, _, err := runCLI(t, []string{"log", "list", "--limit", "5", "--page", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("log list: %v", err)
	}
	query, _ := url.ParseQuery(env.daemon.last("GET /api/logs").Query)
	if query.Get("limit") != "5" || query.Get("page") != "1" {
		t.Fatalf("unexpected query %v", query)
	}
	requireContains(t, out, "0.93")
	requireContains(t, out, "no match found")
	requireContains(t, out, "2 of 11 entries")
}

func TestLogListRejectsBadLimit(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"log", "list", "--limit", "0"}, env.configPath); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestLogFailedAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("GET /api/logs", api.LogsResponse{Entries: []api.LogEntry{}})
	env.daemon.respond("DELETE /api/logs", api.ClearResponse{Removed: 3})

	out, _, err := runCLI(t, []string{"log", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	requireContains(t, out, "No log entries")
	query, _ := url.ParseQuery(env.daemon.last("GET /api/logs").Query)
	if query.Get("failed") != "1" {
		t.Fatalf("expected failed=1, got %v", query)
	}

	out, _, err = runCLI(t, []string{"log", "clear", "--keep-failed"}, env.configPath)
	if err != nil {
		t.Fatalf("log clear: %v", err)
	}
	requireContains(t, out, "Removed 3 log entries")
	query, _ = url.ParseQuery(env.daemon.last("DELETE /api/logs").Query)
	if query.Get("keep_failed") != "1" {
		t.Fatalf("expected keep_failed=1, got %v", query)
	}
}

func TestFixCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("POST /api/fix", api.TaskResponse{Task: api.Task{ID: 1, Kind: "fix", Path: "/library/x.flac"}})
	env.daemon.respond("POST /api/fix-failed", api.TaskResponse{Task: api.Task{ID: 2, Kind: "fix_failed", Path: "/inbox/y.flac"}})

	if _, _, err := runCLI(t, []string{"fix", "/library/x.flac", "--release", "rel"}, env.configPath); err == nil {
		t.Fatal("expected error without --recording")
	}

	out, _, err := runCLI(t, []string{"fix", "/library/x.flac", "--release", "rel-1", "--recording", "rec-1"}, env.configPath)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	requireContains(t, out, "Queued fix")
	fix := decodeBody[api.FixRequest](t, env.daemon.last("POST /api/fix"))
	if fix.TargetPath != "/library/x.flac" || fix.ReleaseID != "rel-1" || fix.RecordingID != "rec-1" {
		t.Fatalf("unexpected fix request %+v", fix)
	}

	out, _, err = runCLI(t, []string{"fix-failed", "/inbox/y.flac", "--release", "rel-2", "--recording", "rec-2"}, env.configPath)
	if err != nil {
		t.Fatalf("fix-failed: %v", err)
	}
	requireContains(t, out, "Queued fix-failed")
	failed := decodeBody[api.FixFailedRequest](t, env.daemon.last("POST /api/fix-failed"))
	if failed.SourcePath != "/inbox/y.flac" || failed.RecordingID != "rec-2" {
		t.Fatalf("unexpected fix-failed request %+v", failed)
	}
}

func TestDaemonErrorsAreReported(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("POST /api/scan", api.ErrorResponse{Error: "path is required"})

	_, _, err := runCLI(t, []string{"scan", "/inbox/a.flac"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "path is required") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}

func TestUnreachableDaemonSuggestsStarting(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--api", unreachableAPI, "queue", "status"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "tagbrain daemon") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Paths.APIToken = "secret-token"
	if err := env.cfg.Save(env.configPath); err != nil {
		t.Fatalf("save config: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "secret-token") {
		t.Fatalf("token leaked:\n%s", out)
	}
	requireContains(t, out, redacted)
	requireContains(t, out, env.cfg.Paths.SourceDir)
}

func TestConfigSetWritesFileWhenDaemonDown(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, arg := range []string{"scan.watch=true", "musicbrainz.search_limit=7", "scan.allowed_extensions=.mp3, .flac"} {
		out, _, err := runCLI(t, []string{"--api", unreachableAPI, "config", "set", arg}, env.configPath)
		if err != nil {
			t.Fatalf("config set %s: %v", arg, err)
		}
		requireContains(t, out, "daemon not running")
	}

	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if !cfg.Scan.Watch || cfg.MusicBrainz.SearchLimit != 7 {
		t.Fatalf("settings not persisted: watch=%v limit=%d", cfg.Scan.Watch, cfg.MusicBrainz.SearchLimit)
	}
	if len(cfg.Scan.AllowedExtensions) != 2 || !cfg.ExtensionAllowed(".flac") || cfg.ExtensionAllowed(".ogg") {
		t.Fatalf("unexpected extensions %v", cfg.Scan.AllowedExtensions)
	}
}

func TestConfigSetThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("GET /api/config", api.ConfigResponse{Path: env.configPath, Config: *env.cfg})
	env.daemon.respond("PUT /api/config", api.ConfigResponse{Path: env.configPath, Config: *env.cfg})

	out, _, err := runCLI(t, []string{"config", "set", "acoustid.match_threshold=0.8"}, env.configPath)
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	requireContains(t, out, "running daemon")

	sent := decodeBody[config.Config](t, env.daemon.last("PUT /api/config"))
	if sent.AcoustID.MatchThreshold != 0.8 {
		t.Fatalf("expected threshold 0.8, got %v", sent.AcoustID.MatchThreshold)
	}
	if sent.Paths.SourceDir != env.cfg.Paths.SourceDir {
		t.Fatalf("other settings changed: %q", sent.Paths.SourceDir)
	}
}

func TestConfigSetRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, arg := range []string{"scan.watch", "scan.nope=1", "scan=1", "scan.watch=maybe", "musicbrainz.search_limit=ten"} {
		if _, _, err := runCLI(t, []string{"--api", unreachableAPI, "config", "set", arg}, env.configPath); err == nil {
			t.Fatalf("expected error for %q", arg)
		}
	}
}

func TestStatusFromDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.respond("GET /api/status", api.StatusResponse{
		Running:      true,
		PID:          4242,
		Pending:      3,
		RunningCount: 1,
		LastError:    "no match found",
		Dependencies: []deps.Status{{Name: "fpcalc", Command: "fpcalc", Available: true, Path: "/usr/bin/fpcalc"}},
		Checks:       []preflight.Result{{Name: "AcoustID", Passed: false, Detail: "API key missing"}},
	})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "pid 4242")
	requireContains(t, out, "[WARN] no match found")
	requireContains(t, out, "/usr/bin/fpcalc")
	requireContains(t, out, "[WARN] API key missing")
}

func TestStatusFallsBackToLocalChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--api", unreachableAPI, "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "fpcalc")
	requireContains(t, out, "Source directory")
}

func TestSetConfigValueKeepsOtherFields(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.SourceDir = "/music/inbox"

	updated, err := setConfigValue(cfg, "release_selector.country.preferred", `["GB", "US"]`)
	if err != nil {
		t.Fatalf("setConfigValue: %v", err)
	}
	if got := updated.ReleaseSelector.Country.Preferred; len(got) != 2 || got[0] != "GB" {
		t.Fatalf("unexpected preferred countries %v", got)
	}
	if updated.Paths.SourceDir != "/music/inbox" {
		t.Fatalf("source dir changed to %q", updated.Paths.SourceDir)
	}
	if _, err := setConfigValue(cfg, "release_selector.country", "x"); err == nil {
		t.Fatal("expected error setting a section")
	}
}
