package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tagbrain/internal/fileutil"
	"tagbrain/internal/logging"
	"tagbrain/internal/metadata"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/organizer"
	"tagbrain/internal/services"
)

// FixRequest names the release and recording a file should be tagged as.
type FixRequest struct {
	Path        string
	ReleaseID   string
	RecordingID string
	// Move deletes Path after publishing. Otherwise the file is copied and
	// the original is removed only when delete_original is configured.
	Move bool
}

// Fix tags req.Path as the given recording on the given release and
// publishes it. Cover art is saved next to the track when the file has no
// embedded picture.
func (s *Scanner) Fix(ctx context.Context, req FixRequest) (*Result, error) {
	ctx = services.WithStage(ctx, "fix")
	req.ReleaseID = strings.TrimSpace(req.ReleaseID)
	req.RecordingID = strings.TrimSpace(req.RecordingID)
	if req.ReleaseID == "" || req.RecordingID == "" {
		return nil, services.Wrap(services.ErrValidation, "fix", "validate", "release id and recording id are required", nil)
	}

	current, err := s.deps.Tags.Read(req.Path)
	if err != nil {
		return nil, err
	}
	old := metadata.FromTags(current)

	release, err := s.deps.Catalog.FetchRelease(ctx, req.ReleaseID)
	if err != nil {
		return nil, err
	}
	recording, err := s.deps.Catalog.FetchRecording(ctx, req.RecordingID)
	if err != nil {
		return nil, err
	}
	updated, err := metadata.Build(recording, releaseRef(recording, req.ReleaseID), release)
	if err != nil {
		return nil, err
	}

	target, err := s.publisher.Publish(ctx, organizer.Request{
		Source:       req.Path,
		Metadata:     updated,
		Tags:         updated.ApplyTo(current),
		RemoveSource: req.Move || s.deleteOriginal,
	})
	if err != nil {
		return nil, err
	}

	s.ensureCoverArt(ctx, target, release.ID)

	return &Result{
		Source:      req.Path,
		Target:      target,
		Strategy:    StrategyManual,
		OldMetadata: old,
		NewMetadata: updated,
	}, nil
}

func releaseRef(recording *musicbrainz.Recording, releaseID string) *musicbrainz.ReleaseRef {
	for i := range recording.Releases {
		if recording.Releases[i].ID == releaseID {
			return &recording.Releases[i]
		}
	}
	return nil
}

// ensureCoverArt writes cover.jpg beside target unless the track already
// embeds artwork or the directory already has a cover. Failures are warnings.
func (s *Scanner) ensureCoverArt(ctx context.Context, target, releaseID string) {
	if s.deps.HasPicture == nil || s.deps.CoverArt == nil {
		return
	}
	logger := logging.WithContext(ctx, s.logger)
	warn := func(msg string, err error) {
		logging.WarnWithContext(logger, msg,
			"cover_art_failed",
			logging.String("release_id", releaseID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "add cover art manually if needed"),
			logging.String(logging.FieldImpact, "track published without cover art"),
		)
	}

	embedded, err := s.deps.HasPicture(target)
	if err != nil {
		warn("failed to probe embedded artwork", err)
		return
	}
	if embedded {
		return
	}
	coverPath := filepath.Join(filepath.Dir(target), "cover.jpg")
	if exists, err := fileutil.Exists(coverPath); err != nil || exists {
		return
	}

	art, err := s.deps.CoverArt.FetchFront(ctx, releaseID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Info("release has no front cover", logging.String("release_id", releaseID))
			return
		}
		warn("failed to fetch cover art", err)
		return
	}
	if err := writeFileAtomic(coverPath, art.Data); err != nil {
		warn("failed to save cover art", err)
		return
	}
	logger.Info("cover art saved",
		logging.String("path", coverPath),
		logging.String("mime_type", art.MIMEType),
		logging.Int("bytes", len(art.Data)),
	)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cover-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
