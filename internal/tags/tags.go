// Package tags reads and writes audio tags through TagLib.
package tags

import (
	"errors"
	"fmt"
	"os"

	dtag "github.com/dhowden/tag"
	"go.senan.xyz/taglib"

	"tagbrain/internal/metadata"
	"tagbrain/internal/services"
)

// Store reads and writes the well-known tag keys of audio files.
type Store struct{}

// NewStore returns a TagLib-backed store.
func NewStore() *Store {
	return &Store{}
}

// Read returns the file's tags restricted to known keys. An untagged file
// yields an empty map.
func (s *Store) Read(path string) (metadata.Tags, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "tags", "read", path, err)
	}
	return metadata.FilterTags(raw), nil
}

// Write replaces the file's tags with values. Keys missing from values are
// removed from the file.
func (s *Store) Write(path string, values metadata.Tags) error {
	clean := make(map[string][]string, len(values))
	for key, v := range metadata.FilterTags(values) {
		clean[key] = v
	}
	if err := taglib.WriteTags(path, clean, taglib.Clear); err != nil {
		return services.Wrap(services.ErrExternalTool, "tags", "write", path, err)
	}
	return nil
}

// HasPicture reports whether the file carries embedded artwork. An untagged
// file reports false.
func HasPicture(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := dtag.ReadFrom(f)
	switch {
	case errors.Is(err, dtag.ErrNoTagsFound):
		return false, nil
	case err != nil:
		return false, services.Wrap(services.ErrExternalTool, "tags", "probe picture", path, err)
	}
	return m.Picture() != nil, nil
}
