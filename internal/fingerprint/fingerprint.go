// Package fingerprint computes Chromaprint fingerprints by running fpcalc.
//
// Each Compute call is one attempt: failures are reported as
// services.ErrExternalTool and retrying is left to the job queue.
package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"tagbrain/internal/services"
)

// Result is the fingerprint and duration fpcalc reports for one file.
type Result struct {
	Fingerprint string  `json:"fingerprint"`
	Duration    float64 `json:"duration"`
}

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// Option configures the calculator.
type Option func(*Calculator)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Calculator) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Calculator wraps fpcalc invocations.
type Calculator struct {
	binary string
	exec   Executor
}

// New constructs a Calculator for the given fpcalc binary.
func New(binary string, opts ...Option) (*Calculator, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("fpcalc binary required")
	}
	c := &Calculator{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compute runs `fpcalc <path> -json` and parses its output.
func (c *Calculator) Compute(ctx context.Context, path string) (Result, error) {
	out, err := c.exec.Output(ctx, c.binary, path, "-json")
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "fingerprint", "run fpcalc", path, err)
	}
	var result Result
	if err := json.Unmarshal(bytes.TrimSpace(out), &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "fingerprint", "parse fpcalc output", path, err)
	}
	if strings.TrimSpace(result.Fingerprint) == "" {
		return Result{}, services.Wrap(services.ErrExternalTool, "fingerprint", "parse fpcalc output", path, errors.New("empty fingerprint"))
	}
	if result.Duration <= 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "fingerprint", "parse fpcalc output", path, fmt.Errorf("invalid duration %v", result.Duration))
	}
	return result, nil
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
