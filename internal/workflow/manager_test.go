package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"tagbrain/internal/config"
	"tagbrain/internal/metadata"
	"tagbrain/internal/notifications"
	"tagbrain/internal/queue"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/scanner"
	"tagbrain/internal/services"
	"tagbrain/internal/testsupport"
	"tagbrain/internal/workflow"
)

type fakeProcessor struct {
	mu       sync.Mutex
	calls    []string
	attempts map[string]int
	active   int
	peak     int
	delay    time.Duration
	block    bool
	scanErr  func(path string, attempt int) error
	fixErr   error
	fixReqs  []scanner.FixRequest
}

func (p *fakeProcessor) begin(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempts == nil {
		p.attempts = make(map[string]int)
	}
	p.attempts[path]++
	p.calls = append(p.calls, path)
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	return p.attempts[path]
}

func (p *fakeProcessor) end() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
}

func (p *fakeProcessor) Scan(ctx context.Context, path string) (*scanner.Result, error) {
	attempt := p.begin(path)
	defer p.end()
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.scanErr != nil {
		if err := p.scanErr(path, attempt); err != nil {
			return nil, err
		}
	}
	return &scanner.Result{
		Source:        path,
		Target:        "/library/" + filepath.Base(path),
		Strategy:      scanner.StrategyAcoustID,
		AcoustIDScore: 0.93,
		OldMetadata:   metadata.Metadata{Title: "old"},
		NewMetadata:   metadata.Metadata{Title: "Song", Artist: "Artist"},
	}, nil
}

func (p *fakeProcessor) Fix(_ context.Context, req scanner.FixRequest) (*scanner.Result, error) {
	p.begin(req.Path)
	defer p.end()
	p.mu.Lock()
	p.fixReqs = append(p.fixReqs, req)
	p.mu.Unlock()
	if p.fixErr != nil {
		return nil, p.fixErr
	}
	return &scanner.Result{Source: req.Path, Target: "/library/fixed.flac", Strategy: scanner.StrategyManual}, nil
}

func (p *fakeProcessor) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) Events() []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.Event(nil), n.events...)
}

type harness struct {
	cfg       *config.Config
	store     *scanlog.Store
	processor *fakeProcessor
	notifier  *recordingNotifier
	manager   *workflow.Manager
}

func newHarness(t *testing.T, processor *fakeProcessor) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := scanlog.Open(cfg)
	if err != nil {
		t.Fatalf("open scan log: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, queue.New(), processor, store, nil, notifier)
	t.Cleanup(mgr.Stop)
	return &harness{cfg: cfg, store: store, processor: processor, notifier: notifier, manager: mgr}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (h *harness) entries(t *testing.T) []scanlog.Entry {
	t.Helper()
	entries, _, err := h.store.List(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return entries
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerRunsNewestTaskFirst(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	for _, name := range []string{"a.flac", "b.flac", "c.flac"} {
		if _, err := h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, name)); err != nil {
			t.Fatalf("EnqueueScan: %v", err)
		}
	}
	h.start(t)
	waitFor(t, "three log entries", func() bool { return len(h.entries(t)) == 3 })

	calls := h.processor.Calls()
	var names []string
	for _, c := range calls {
		names = append(names, filepath.Base(c))
	}
	want := []string{"c.flac", "b.flac", "a.flac"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("run order = %v, want %v", names, want)
		}
	}
}

func TestManagerAdmitsOneTaskAtATime(t *testing.T) {
	h := newHarness(t, &fakeProcessor{delay: 20 * time.Millisecond})
	h.start(t)
	for i := 0; i < 5; i++ {
		_, _ = h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, string(rune('a'+i))+".mp3"))
	}
	waitFor(t, "five log entries", func() bool { return len(h.entries(t)) == 5 })

	h.processor.mu.Lock()
	peak := h.processor.peak
	h.processor.mu.Unlock()
	if peak != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak)
	}
}

func TestManagerRecordsSuccess(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	h.start(t)
	source := filepath.Join(h.cfg.Paths.SourceDir, "song.flac")
	_, _ = h.manager.EnqueueScan(source)
	waitFor(t, "success entry", func() bool { return len(h.entries(t)) == 1 })

	entry := h.entries(t)[0]
	if !entry.Success || entry.Type != scanlog.TypeScan || entry.Message != "Scanner: AcoustId" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.SourcePath != source || entry.TargetPath != "/library/song.flac" {
		t.Fatalf("unexpected paths: %+v", entry)
	}
	if entry.AcoustIDScore == nil || *entry.AcoustIDScore != 0.93 {
		t.Fatalf("acoustid score not recorded: %+v", entry.AcoustIDScore)
	}
	if entry.RetryCount == nil || *entry.RetryCount != 0 {
		t.Fatalf("retry count = %v", entry.RetryCount)
	}
	if entry.NewMetadata == nil || entry.NewMetadata.Title != "Song" || entry.OldMetadata == nil || entry.OldMetadata.Title != "old" {
		t.Fatalf("metadata not recorded: %+v %+v", entry.OldMetadata, entry.NewMetadata)
	}
	if entry.CorrelationID == "" {
		t.Fatal("expected correlation id")
	}
	if events := h.notifier.Events(); len(events) != 1 || events[0] != notifications.EventScanCompleted {
		t.Fatalf("events = %v", events)
	}
}

func TestManagerRetriesFailedScanOnce(t *testing.T) {
	failure := services.Wrap(services.ErrNoMatchFound, "scan", "select", "nothing scorable", nil)
	h := newHarness(t, &fakeProcessor{scanErr: func(string, int) error { return failure }})
	h.start(t)
	_, _ = h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, "bad.flac"))
	waitFor(t, "failure entry", func() bool { return len(h.entries(t)) == 1 })

	if calls := h.processor.Calls(); len(calls) != 2 {
		t.Fatalf("expected two attempts, got %d", len(calls))
	}
	entry := h.entries(t)[0]
	if entry.Success || entry.RetryCount == nil || *entry.RetryCount != 1 {
		t.Fatalf("unexpected failure entry: %+v", entry)
	}
	if entry.Message != failure.Error() {
		t.Fatalf("message = %q", entry.Message)
	}
	if h.manager.Queue().Len() != 0 {
		t.Fatal("terminal failure must not be requeued")
	}
	if events := h.notifier.Events(); len(events) != 1 || events[0] != notifications.EventScanFailed {
		t.Fatalf("events = %v", events)
	}
	if h.manager.Status().LastError == "" {
		t.Fatal("expected last error in status")
	}
}

func TestManagerRetrySucceeds(t *testing.T) {
	h := newHarness(t, &fakeProcessor{scanErr: func(_ string, attempt int) error {
		if attempt == 1 {
			return services.Wrap(services.ErrCatalogRequest, "scan", "fetch", "timeout", nil)
		}
		return nil
	}})
	h.start(t)
	_, _ = h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, "flaky.flac"))
	waitFor(t, "success entry", func() bool { return len(h.entries(t)) == 1 })

	entry := h.entries(t)[0]
	if !entry.Success || entry.RetryCount == nil || *entry.RetryCount != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestManagerDoesNotRetryFix(t *testing.T) {
	h := newHarness(t, &fakeProcessor{fixErr: services.Wrap(services.ErrCatalogRequest, "fix", "fetch", "404", services.ErrNotFound)})
	h.start(t)
	if _, err := h.manager.EnqueueFix(queue.KindFix, "/library/a.flac", "rel", "rec"); err != nil {
		t.Fatalf("EnqueueFix: %v", err)
	}
	waitFor(t, "fix entry", func() bool { return len(h.entries(t)) == 1 })

	if calls := h.processor.Calls(); len(calls) != 1 {
		t.Fatalf("fix attempted %d times", len(calls))
	}
	entry := h.entries(t)[0]
	if entry.Success || entry.Type != scanlog.TypeFix {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if events := h.notifier.Events(); len(events) != 1 || events[0] != notifications.EventFixFailed {
		t.Fatalf("events = %v", events)
	}
}

func TestManagerFixKinds(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	h.start(t)
	_, _ = h.manager.EnqueueFix(queue.KindFix, "/library/a.flac", "rel", "rec")
	waitFor(t, "first fix", func() bool { return len(h.entries(t)) == 1 })
	_, _ = h.manager.EnqueueFix(queue.KindFixFailed, "/inbox/b.flac", "rel", "rec")
	waitFor(t, "second fix", func() bool { return len(h.entries(t)) == 2 })

	h.processor.mu.Lock()
	reqs := append([]scanner.FixRequest(nil), h.processor.fixReqs...)
	h.processor.mu.Unlock()
	if len(reqs) != 2 || !reqs[0].Move || reqs[1].Move {
		t.Fatalf("unexpected fix requests: %+v", reqs)
	}
	for _, entry := range h.entries(t) {
		if entry.Type != scanlog.TypeFix || entry.Message != "Scanner: Manual" {
			t.Fatalf("unexpected fix entry: %+v", entry)
		}
		if entry.AcoustIDScore != nil {
			t.Fatal("manual fixes carry no acoustid score")
		}
	}
}

func TestEnqueueFixValidates(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	if _, err := h.manager.EnqueueFix(queue.KindFix, "/a.flac", "", "rec"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := h.manager.EnqueueFix(queue.KindScan, "/a.flac", "rel", "rec"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for scan kind, got %v", err)
	}
	if _, err := h.manager.EnqueueScan("  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty path, got %v", err)
	}
}

func TestManagerSkipsUnsupportedExtensions(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	_, _ = h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, "song.flac"))
	_, _ = h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, "notes.txt"))
	h.start(t)
	waitFor(t, "flac entry", func() bool { return len(h.entries(t)) == 1 })
	waitFor(t, "empty queue", func() bool { return h.manager.Queue().Len() == 0 && h.manager.RunningCount() == 0 })

	calls := h.processor.Calls()
	if len(calls) != 1 || filepath.Base(calls[0]) != "song.flac" {
		t.Fatalf("unexpected calls: %v", calls)
	}
	if entries := h.entries(t); len(entries) != 1 {
		t.Fatalf("skipped file must not be recorded: %+v", entries)
	}
}

func TestStopAbandonsInFlightTask(t *testing.T) {
	h := newHarness(t, &fakeProcessor{block: true})
	h.start(t)
	_, _ = h.manager.EnqueueScan(filepath.Join(h.cfg.Paths.SourceDir, "slow.flac"))
	waitFor(t, "task running", func() bool { return h.manager.RunningCount() == 1 })

	h.manager.Stop()
	if h.manager.RunningCount() != 0 {
		t.Fatal("task still running after Stop")
	}
	if entries := h.entries(t); len(entries) != 0 {
		t.Fatalf("cancelled task must not be recorded: %+v", entries)
	}
	if h.manager.Queue().Len() != 0 {
		t.Fatal("cancelled task must not be requeued")
	}
	if h.manager.Status().Running {
		t.Fatal("manager still reports running")
	}
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	h.start(t)
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}
}

func TestQueueInfoAndClear(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	_, _ = h.manager.EnqueueScan("/inbox/a.flac")
	_, _ = h.manager.EnqueueScan("/inbox/b.flac")

	info := h.manager.QueueInfo()
	if len(info.Tasks) != 2 || info.Tasks[0].Path != "/inbox/b.flac" || info.RunningCount != 0 {
		t.Fatalf("unexpected queue info: %+v", info)
	}
	if n := h.manager.ClearQueue(); n != 2 {
		t.Fatalf("ClearQueue = %d", n)
	}
	if status := h.manager.Status(); status.Pending != 0 {
		t.Fatalf("pending = %d", status.Pending)
	}
}

func TestScanAllQueuesRegularFiles(t *testing.T) {
	h := newHarness(t, &fakeProcessor{})
	src := h.cfg.Paths.SourceDir
	testsupport.WriteFile(t, filepath.Join(src, "a.flac"), "a")
	testsupport.WriteFile(t, filepath.Join(src, "nested", "b.mp3"), "b")
	testsupport.WriteFile(t, filepath.Join(src, "nested", "cover.txt"), "c")
	if err := os.Symlink(filepath.Join(src, "a.flac"), filepath.Join(src, "link.flac")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	n, err := h.manager.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("queued %d files, want 3", n)
	}
	var paths []string
	for _, task := range h.manager.QueueInfo().Tasks {
		if task.Kind != queue.KindScan || task.RetryCount != 0 {
			t.Fatalf("unexpected task: %+v", task)
		}
		rel, _ := filepath.Rel(src, task.Path)
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	want := []string{"a.flac", filepath.Join("nested", "b.mp3"), filepath.Join("nested", "cover.txt")}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("queued %v, want %v", paths, want)
		}
	}
}

func TestScanAllSkipsNestedLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.TargetDir = filepath.Join(cfg.Paths.SourceDir, "library")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TargetDir, "Artist", "Album", "01 - Song.flac"), "x")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "new.flac"), "x")

	mgr := workflow.NewManagerWithNotifier(cfg, queue.New(), &fakeProcessor{}, nil, nil, &recordingNotifier{})
	n, err := mgr.ScanAll(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ScanAll = %d, %v; want 1 file", n, err)
	}
}

func TestScanAllMissingSourceDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.SourceDir = filepath.Join(t.TempDir(), "missing")
	mgr := workflow.NewManagerWithNotifier(cfg, queue.New(), &fakeProcessor{}, nil, nil, &recordingNotifier{})
	if _, err := mgr.ScanAll(context.Background()); err == nil {
		t.Fatal("expected error for missing source dir")
	}
}
