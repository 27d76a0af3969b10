package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"tagbrain/internal/config"
	"tagbrain/internal/logging"
	"tagbrain/internal/notifications"
	"tagbrain/internal/queue"
	"tagbrain/internal/scanlog"
	"tagbrain/internal/scanner"
)

// maxRetries bounds how often a failed scan is requeued.
const maxRetries = 1

// Processor runs the per-file pipeline.
type Processor interface {
	Scan(ctx context.Context, path string) (*scanner.Result, error)
	Fix(ctx context.Context, req scanner.FixRequest) (*scanner.Result, error)
}

// Recorder persists task outcomes.
type Recorder interface {
	Insert(ctx context.Context, entry scanlog.Entry) (int64, error)
}

// Manager dispatches queued tasks one at a time.
type Manager struct {
	cfg       *config.Config
	queue     *queue.Queue
	processor Processor
	recorder  Recorder
	notifier  notifications.Service
	logger    *slog.Logger

	gate     *semaphore.Weighted
	inFlight atomic.Int64

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager that notifies through ntfy when
// configured.
func NewManager(cfg *config.Config, q *queue.Queue, processor Processor, recorder Recorder, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, q, processor, recorder, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, q *queue.Queue, processor Processor, recorder Recorder, logger *slog.Logger, notifier notifications.Service) *Manager {
	if q == nil {
		q = queue.New()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Manager{
		cfg:       cfg,
		queue:     q,
		processor: processor,
		recorder:  recorder,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "workflow-manager"),
		gate:      semaphore.NewWeighted(1),
	}
}

// Queue exposes the task list the manager drains.
func (m *Manager) Queue() *queue.Queue {
	return m.queue
}

// UpdateConfig swaps the configuration used for the extension gate and scan
// directory. Pipeline clients keep the settings they were built with.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

func (m *Manager) config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
