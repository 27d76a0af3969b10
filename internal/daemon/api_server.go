package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tagbrain/internal/api"
	"tagbrain/internal/config"
	"tagbrain/internal/logging"
	"tagbrain/internal/queue"
	"tagbrain/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r := router.PathPrefix("/api").Subrouter()
	r.Use(authMiddleware(token))
	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/scan-all", s.handleScanAll).Methods(http.MethodPost)
	r.HandleFunc("/queue", s.handleQueue).Methods(http.MethodGet)
	r.HandleFunc("/queue", s.handleClearQueue).Methods(http.MethodDelete)
	r.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.handleClearLogs).Methods(http.MethodDelete)
	r.HandleFunc("/fix", s.handleFix).Methods(http.MethodPost)
	r.HandleFunc("/fix-failed", s.handleFixFailed).Methods(http.MethodPost)
	r.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	r.HandleFunc("/config", s.handlePutConfig).Methods(http.MethodPut)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	var req api.ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	path, err := absolutePath(req.Path)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	task, err := s.daemon.workflow.EnqueueScan(path)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleScanAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.daemon.workflow.ScanAll(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ScanAllResponse{Queued: n})
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromQueueInfo(s.daemon.workflow.QueueInfo()))
}

func (s *apiServer) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	n := s.daemon.workflow.ClearQueue()
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: int64(n)})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if flag(query.Get("failed")) {
		entries, err := s.daemon.scanLog.ListFailed(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.LogsResponse{Entries: api.FromEntries(entries), Total: len(entries)})
		return
	}

	limit, err := intParam(query.Get("limit"), 50)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	page, err := intParam(query.Get("page"), 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	entries, total, err := s.daemon.scanLog.List(r.Context(), limit, page)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogsResponse{Entries: api.FromEntries(entries), Total: total})
}

func (s *apiServer) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	n, err := s.daemon.scanLog.Clear(r.Context(), flag(r.URL.Query().Get("keep_failed")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: n})
}

func (s *apiServer) handleFix(w http.ResponseWriter, r *http.Request) {
	var req api.FixRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.enqueueFix(w, queue.KindFix, req.TargetPath, req.ReleaseID, req.RecordingID)
}

func (s *apiServer) handleFixFailed(w http.ResponseWriter, r *http.Request) {
	var req api.FixFailedRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.enqueueFix(w, queue.KindFixFailed, req.SourcePath, req.ReleaseID, req.RecordingID)
}

func (s *apiServer) enqueueFix(w http.ResponseWriter, kind queue.Kind, path, releaseID, recordingID string) {
	path, err := absolutePath(path)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	task, err := s.daemon.workflow.EnqueueFix(kind, path, releaseID, recordingID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.configResponse())
}

func (s *apiServer) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	current := s.daemon.config()
	// Fields absent from the body keep their current values.
	updated := current.Clone()
	if !s.decode(w, r, updated) {
		return
	}
	if strings.TrimSpace(updated.Paths.APIToken) == "" {
		updated.Paths.APIToken = current.Paths.APIToken
	}
	if err := s.daemon.UpdateConfig(updated); err != nil {
		s.writeServiceError(w, services.Wrap(services.ErrValidation, "api", "put config", "rejected configuration", err))
		return
	}
	s.writeJSON(w, http.StatusOK, s.configResponse())
}

func (s *apiServer) configResponse() api.ConfigResponse {
	cfg := s.daemon.config().Clone()
	cfg.Paths.APIToken = ""
	return api.ConfigResponse{Path: s.daemon.cfgPath, Config: *cfg}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		LockPath:     status.LockFilePath,
		LogDBPath:    status.LogDBPath,
		LogPath:      status.LogPath,
		Watching:     status.Watching,
		Pending:      status.Workflow.Pending,
		RunningCount: status.Workflow.RunningCount,
		LastError:    status.Workflow.LastError,
		Dependencies: status.Dependencies,
		Checks:       status.Checks,
	})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func absolutePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "api", "resolve path", "path is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "resolve path", "invalid path", err)
	}
	return abs, nil
}

func intParam(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

func flag(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

// statusFor maps an error's marker to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(s.logger, "api request failed", "api_request_failed",
			logging.Error(err),
			logging.ErrorKind(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
