package scanner

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tagbrain/internal/logging"
	"tagbrain/internal/matcher"
	"tagbrain/internal/metadata"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/organizer"
	"tagbrain/internal/services"
)

type candidates struct {
	recordings []musicbrainz.Recording
	strategy   Strategy
	score      float64
}

// Scan identifies path and publishes a tagged copy into the library.
func (s *Scanner) Scan(ctx context.Context, path string) (*Result, error) {
	ctx = services.WithStage(ctx, "scan")
	logger := logging.WithContext(ctx, s.logger).With(logging.String("path", path))

	current, err := s.deps.Tags.Read(path)
	if err != nil {
		return nil, err
	}
	old := metadata.FromTags(current)

	found, err := s.findCandidates(ctx, path, old)
	if err != nil {
		return nil, err
	}

	best, err := s.selector.Select(matcher.Tags{Album: old.Album, Title: old.Title}, found.recordings)
	if err != nil {
		return nil, err
	}
	release, err := s.deps.Catalog.FetchRelease(ctx, best.Release.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("best match",
		logging.String("release", release.ReleaseGroup.Title),
		logging.String("release_id", best.Release.ID),
		logging.String("recording", best.Recording.Title),
		logging.String("recording_id", best.Recording.ID),
		logging.Float64("score", best.Score),
	)

	updated, err := metadata.Build(&best.Recording, &best.Release, release)
	if err != nil {
		return nil, err
	}
	target, err := s.publisher.Publish(ctx, organizer.Request{
		Source:       path,
		Metadata:     updated,
		Tags:         updated.ApplyTo(current),
		RemoveSource: s.deleteOriginal,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Source:        path,
		Target:        target,
		Strategy:      found.strategy,
		AcoustIDScore: found.score,
		MatchScore:    best.Score,
		OldMetadata:   old,
		NewMetadata:   updated,
	}, nil
}

// findCandidates tries the fingerprint path first and falls back to a title
// search on any failure.
func (s *Scanner) findCandidates(ctx context.Context, path string, old metadata.Metadata) (candidates, error) {
	logger := logging.WithContext(ctx, s.logger)

	found, fpErr := s.fingerprintCandidates(ctx, path)
	if fpErr == nil {
		logger.Info("lookup strategy chosen", logging.Args(append(
			logging.DecisionAttrs("lookup_strategy", string(StrategyAcoustID), "fingerprint matched"),
			logging.Float64("acoustid_score", found.score),
			logging.Int("recordings", len(found.recordings)),
		)...)...)
		return found, nil
	}
	if ctx.Err() != nil {
		return candidates{}, fpErr
	}

	logger.Info("fingerprint lookup failed; falling back to catalog search",
		logging.Error(fpErr),
		logging.ErrorKind(fpErr),
	)
	title := strings.TrimSpace(old.Title)
	if title == "" {
		return candidates{}, services.Wrap(services.ErrNoTitleTag, "lookup", "catalog search", "file has no title tag", fpErr)
	}
	recordings, err := s.deps.Catalog.SearchByTitle(ctx, title)
	if err != nil {
		return candidates{}, err
	}
	logger.Info("lookup strategy chosen", logging.Args(append(
		logging.DecisionAttrs("lookup_strategy", string(StrategySearch), "fingerprint lookup unavailable"),
		logging.String("title", title),
		logging.Int("recordings", len(recordings)),
	)...)...)
	return candidates{recordings: recordings, strategy: StrategySearch}, nil
}

func (s *Scanner) fingerprintCandidates(ctx context.Context, path string) (candidates, error) {
	fp, err := s.deps.Fingerprinter.Compute(ctx, path)
	if err != nil {
		return candidates{}, err
	}
	match, err := s.deps.Lookup.Lookup(ctx, fp.Fingerprint, fp.Duration)
	if err != nil {
		return candidates{}, err
	}
	recordings := s.fetchRecordings(ctx, match.RecordingIDs)
	if len(recordings) == 0 {
		return candidates{}, services.Wrap(services.ErrNoMatch, "lookup", "fetch recordings",
			fmt.Sprintf("none of %d recordings could be fetched", len(match.RecordingIDs)), nil)
	}
	return candidates{recordings: recordings, strategy: StrategyAcoustID, score: match.Score}, nil
}

// fetchRecordings issues every fetch concurrently; the catalog gate serializes
// them on the wire. Failed fetches are logged and dropped. Order follows ids.
func (s *Scanner) fetchRecordings(ctx context.Context, ids []string) []musicbrainz.Recording {
	logger := logging.WithContext(ctx, s.logger)
	results := make([]*musicbrainz.Recording, len(ids))
	var group errgroup.Group
	for i, id := range ids {
		group.Go(func() error {
			rec, err := s.deps.Catalog.FetchRecording(ctx, id)
			if err != nil {
				logging.WarnWithContext(logger, "failed to fetch recording",
					"recording_fetch_failed",
					logging.String("recording_id", id),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the catalog may be unavailable or the id may be stale"),
					logging.String(logging.FieldImpact, "recording excluded from candidates"),
				)
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	_ = group.Wait()

	recordings := make([]musicbrainz.Recording, 0, len(ids))
	for _, rec := range results {
		if rec != nil {
			recordings = append(recordings, *rec)
		}
	}
	return recordings
}
