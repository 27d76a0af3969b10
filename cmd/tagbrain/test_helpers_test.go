package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tagbrain/internal/api"
	"tagbrain/internal/config"
	"tagbrain/internal/testsupport"
)

// unreachableAPI is an address nothing listens on.
const unreachableAPI = "127.0.0.1:1"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// fakeDaemon serves canned API responses and records every request.
type fakeDaemon struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]any
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	f := &fakeDaemon{t: t, responses: map[string]any{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDaemon) addr() string {
	return f.server.Listener.Addr().String()
}

// respond registers the JSON body for "METHOD /path".
func (f *fakeDaemon) respond(route string, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[route] = body
}

func (f *fakeDaemon) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	route := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	resp, ok := f.responses[route]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "no route " + route})
		return
	}
	if apiErr, isErr := resp.(api.ErrorResponse); isErr {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiErr)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeDaemon) last(route string) recordedRequest {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		req := f.requests[i]
		if req.Method+" "+req.Path == route {
			return req
		}
	}
	f.t.Fatalf("no %s request recorded", route)
	return recordedRequest{}
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	daemon     *fakeDaemon
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("TAGBRAIN_API_TOKEN", "")
	fake := newFakeDaemon(t)

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = fake.addr()
	cfg.MusicBrainz.BaseURL = fake.server.URL
	t.Setenv("HOME", testsupport.BaseDir(cfg))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, daemon: fake}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeBody[T any](t *testing.T, req recordedRequest) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(req.Body, &out); err != nil {
		t.Fatalf("decode %s %s body: %v", req.Method, req.Path, err)
	}
	return out
}
