package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tagbrain/internal/acoustid"
	"tagbrain/internal/config"
	"tagbrain/internal/fingerprint"
	"tagbrain/internal/logging"
	"tagbrain/internal/matcher"
	"tagbrain/internal/metadata"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/organizer"
	"tagbrain/internal/tags"
)

// Strategy names the lookup path that produced the candidates.
type Strategy string

const (
	StrategyAcoustID Strategy = "AcoustId"
	StrategySearch   Strategy = "MusicBrainz Search"
	StrategyManual   Strategy = "Manual"
)

// Fingerprinter computes an acoustic fingerprint.
type Fingerprinter interface {
	Compute(ctx context.Context, path string) (fingerprint.Result, error)
}

// Lookup resolves a fingerprint to recording ids.
type Lookup interface {
	Lookup(ctx context.Context, fp string, duration float64) (acoustid.Match, error)
}

// TagStore reads and writes file tags.
type TagStore interface {
	Read(path string) (metadata.Tags, error)
	Write(path string, values metadata.Tags) error
}

// CoverArtSource downloads release artwork.
type CoverArtSource interface {
	FetchFront(ctx context.Context, releaseID string) (*musicbrainz.CoverArt, error)
}

// Result summarizes one successful scan or fix.
type Result struct {
	Source        string
	Target        string
	Strategy      Strategy
	AcoustIDScore float64
	MatchScore    float64
	OldMetadata   metadata.Metadata
	NewMetadata   metadata.Metadata
}

// Message is the scan-log line for a successful result.
func (r *Result) Message() string {
	return "Scanner: " + string(r.Strategy)
}

// Dependencies are the collaborators a Scanner drives.
type Dependencies struct {
	Fingerprinter Fingerprinter
	Lookup        Lookup
	Catalog       musicbrainz.Catalog
	Tags          TagStore
	CoverArt      CoverArtSource
	// HasPicture reports embedded artwork. Nil disables the cover-art step.
	HasPicture func(path string) (bool, error)
}

// Scanner identifies, tags, and files audio tracks.
type Scanner struct {
	deps           Dependencies
	selector       *matcher.Selector
	publisher      *organizer.Publisher
	deleteOriginal bool
	logger         *slog.Logger
}

// New builds a Scanner with production clients from cfg. catalog is shared
// so every component observes the same MusicBrainz gate.
func New(cfg *config.Config, catalog musicbrainz.Catalog, logger *slog.Logger) (*Scanner, error) {
	if cfg == nil {
		return nil, errors.New("scanner requires configuration")
	}
	calc, err := fingerprint.New(cfg.FpcalcBinary())
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	lookup, err := acoustid.New(
		cfg.AcoustID.APIKey,
		cfg.AcoustID.BaseURL,
		cfg.AcoustID.MatchThreshold,
		acoustid.WithRateLimit(cfg.AcoustID.RequestsPerSecond),
	)
	if err != nil {
		return nil, fmt.Errorf("acoustid: %w", err)
	}
	cover, err := musicbrainz.NewCoverArtClient(cfg.MusicBrainz.CoverArtBaseURL, cfg.MusicBrainz.UserAgent, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cover art: %w", err)
	}
	deps := Dependencies{
		Fingerprinter: calc,
		Lookup:        lookup,
		Catalog:       catalog,
		Tags:          tags.NewStore(),
		CoverArt:      cover,
		HasPicture:    tags.HasPicture,
	}
	return NewWithDependencies(cfg, deps, logger), nil
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "scanner")
	selector := matcher.NewSelector(matcher.PolicyFromConfig(cfg.ReleaseSelector), logger)
	publisher := organizer.NewPublisher(deps.Tags, organizer.Options{
		TargetDir: cfg.Paths.TargetDir,
		Overwrite: cfg.Scan.Overwrite,
	}, logger)
	return &Scanner{
		deps:           deps,
		selector:       selector,
		publisher:      publisher,
		deleteOriginal: cfg.Scan.DeleteOriginal,
		logger:         logger,
	}
}
