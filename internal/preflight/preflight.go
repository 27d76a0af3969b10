package preflight

import (
	"context"

	"tagbrain/internal/config"
	"tagbrain/internal/deps"
)

// minFreeBytes is the free-space floor for the library filesystem.
const minFreeBytes = 512 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Source directory", cfg.Paths.SourceDir),
		CheckDirectoryAccess("Target directory", cfg.Paths.TargetDir),
		CheckFreeSpace("Target free space", cfg.Paths.TargetDir, minFreeBytes),
		CheckAcoustIDKey(cfg.AcoustID.APIKey),
		CheckCatalog(ctx, "MusicBrainz", cfg.MusicBrainz.BaseURL, cfg.MusicBrainz.UserAgent),
	}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the daemon and the status endpoint use this so the requirement list
// lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}
