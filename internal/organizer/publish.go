package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"tagbrain/internal/fileutil"
	"tagbrain/internal/logging"
	"tagbrain/internal/metadata"
	"tagbrain/internal/services"
)

// TagWriter persists tags to a file.
type TagWriter interface {
	Write(path string, values metadata.Tags) error
}

// Options controls collision and cleanup behaviour.
type Options struct {
	TargetDir string
	Overwrite bool
}

// Publisher copies, tags, and places tracks into the library.
type Publisher struct {
	tags   TagWriter
	opts   Options
	logger *slog.Logger
}

// NewPublisher returns a Publisher that writes through tags.
func NewPublisher(tags TagWriter, opts Options, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{tags: tags, opts: opts, logger: logger}
}

// Request describes one publish.
type Request struct {
	Source string
	// Metadata decides the target path.
	Metadata metadata.Metadata
	// Tags is the full tag set written to the published copy.
	Tags metadata.Tags
	// RemoveSource deletes Source after a successful publish. Failure to
	// delete is logged, not returned.
	RemoveSource bool
}

// Publish places a tagged copy of req.Source at the path derived from
// req.Metadata and returns that path.
func (p *Publisher) Publish(ctx context.Context, req Request) (string, error) {
	logger := logging.WithContext(ctx, p.logger)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := Resolve(filepath.Ext(req.Source), p.opts.TargetDir, req.Metadata)
	if err != nil {
		return "", err
	}
	if err := ValidateTargetPath(target, p.opts.TargetDir); err != nil {
		return "", err
	}
	sameFile := samePath(req.Source, target)

	exists, err := fileutil.Exists(target)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "organize", "stat target", target, err)
	}
	if exists && !p.opts.Overwrite && !sameFile {
		return "", services.Wrap(services.ErrAlreadyExists, "organize", "publish", target, nil)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "organize", "create directory", dir, err)
	}

	tmp, err := fileutil.CopyToTemp(req.Source, dir, ".tagbrain-*"+filepath.Ext(req.Source))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "organize", "copy", req.Source, err)
	}
	if err := p.tags.Write(tmp, req.Tags); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := place(tmp, target, p.opts.Overwrite || sameFile); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, fs.ErrExist) {
			return "", services.Wrap(services.ErrAlreadyExists, "organize", "publish", target, nil)
		}
		return "", services.Wrap(services.ErrTransient, "organize", "rename", fmt.Sprintf("%s -> %s", tmp, target), err)
	}
	if err := validatePublished(target); err != nil {
		logger.Error("published file failed validation", logging.String("target", target), logging.Error(err))
		return "", err
	}

	logger.Info("track published",
		logging.String("source", req.Source),
		logging.String("target", target),
		logging.Bool("replaced", exists),
	)

	if req.RemoveSource && !sameFile {
		if err := os.Remove(req.Source); err != nil {
			logging.WarnWithContext(logger, "failed to delete original file",
				"source_cleanup_failed",
				logging.String("source", req.Source),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the original manually"),
				logging.String(logging.FieldImpact, "the source file remains next to the published copy"),
			)
		}
	}
	return target, nil
}

// place moves tmp to target. Unless replace is set, an existing target is
// left alone and fs.ErrExist is returned, even when it appeared after the
// earlier existence check. Filesystems without hard links fall back to rename.
func place(tmp, target string, replace bool) error {
	if replace {
		return os.Rename(tmp, target)
	}
	err := os.Link(tmp, target)
	switch {
	case err == nil:
		_ = os.Remove(tmp)
		return nil
	case errors.Is(err, fs.ErrExist):
		return err
	default:
		return os.Rename(tmp, target)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
