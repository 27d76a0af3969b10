package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tagbrain/internal/services"
)

// ValidateTargetPath verifies that target lies strictly inside root. This
// catches metadata that would escape the library after sanitizing.
func ValidateTargetPath(target, root string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return services.Wrap(services.ErrValidation, "organize", "validate target", "target path is empty", nil)
	}
	if strings.TrimSpace(root) == "" {
		return services.Wrap(services.ErrConfiguration, "organize", "validate target", "target directory is not configured", nil)
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return services.Wrap(
			services.ErrValidation,
			"organize",
			"validate target",
			fmt.Sprintf("%q is outside the library %q", target, root),
			nil,
		)
	}
	return nil
}

// validatePublished checks the file left at path after the rename.
func validatePublished(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "organize", "validate output", "stat published file", err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, "organize", "validate output",
			fmt.Sprintf("published path %q is not a regular file", path), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, "organize", "validate output",
			fmt.Sprintf("published file %q is empty", path), nil)
	}
	return nil
}
