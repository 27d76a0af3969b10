package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"tagbrain/internal/metadata"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/services"
)

// JSONTags is a tag store that keeps a file's tags as its JSON content. Files
// that are not a JSON object read as untagged.
type JSONTags struct {
	mu     sync.Mutex
	writes int
	// FailWrite makes every Write fail with services.ErrExternalTool.
	FailWrite bool
}

// Read returns the filtered tags stored in path.
func (s *JSONTags) Read(path string) (metadata.Tags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "tags", "read", path, err)
	}
	var raw map[string][]string
	if json.Unmarshal(data, &raw) != nil {
		return metadata.Tags{}, nil
	}
	return metadata.FilterTags(raw), nil
}

// Write replaces the content of path with the JSON encoding of values.
func (s *JSONTags) Write(path string, values metadata.Tags) error {
	s.mu.Lock()
	s.writes++
	fail := s.FailWrite
	s.mu.Unlock()
	if fail {
		return services.Wrap(services.ErrExternalTool, "tags", "write", path, errors.New("injected failure"))
	}
	data, err := json.Marshal(metadata.FilterTags(values))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Writes reports how many writes were attempted.
func (s *JSONTags) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// WriteTaggedFile creates path with the given tags in JSONTags format.
func WriteTaggedFile(t testing.TB, path string, tags map[string][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if tags == nil {
		tags = map[string][]string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		t.Fatalf("marshal tags: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadTaggedFile returns the tags of a file written through JSONTags.
func ReadTaggedFile(t testing.TB, path string) metadata.Tags {
	t.Helper()
	tags, err := (&JSONTags{}).Read(path)
	if err != nil {
		t.Fatalf("read tags %s: %v", path, err)
	}
	return tags
}

// FakeCatalog serves canned MusicBrainz responses.
type FakeCatalog struct {
	mu         sync.Mutex
	Recordings map[string]*musicbrainz.Recording
	Releases   map[string]*musicbrainz.Release
	Search     map[string][]musicbrainz.Recording
	calls      []string
}

var _ musicbrainz.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog returns an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Recordings: map[string]*musicbrainz.Recording{},
		Releases:   map[string]*musicbrainz.Release{},
		Search:     map[string][]musicbrainz.Recording{},
	}
}

func (c *FakeCatalog) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

// Calls returns the calls made so far as "method:arg" strings.
func (c *FakeCatalog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// FetchRecording implements musicbrainz.Catalog.
func (c *FakeCatalog) FetchRecording(_ context.Context, id string) (*musicbrainz.Recording, error) {
	c.record("recording:" + id)
	c.mu.Lock()
	rec, ok := c.Recordings[id]
	c.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrCatalogRequest, "catalog", "fetch recording", id, services.ErrNotFound)
	}
	clone := *rec
	return &clone, nil
}

// FetchRelease implements musicbrainz.Catalog.
func (c *FakeCatalog) FetchRelease(_ context.Context, id string) (*musicbrainz.Release, error) {
	c.record("release:" + id)
	c.mu.Lock()
	rel, ok := c.Releases[id]
	c.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrCatalogRequest, "catalog", "fetch release", id, services.ErrNotFound)
	}
	clone := *rel
	return &clone, nil
}

// SearchByTitle implements musicbrainz.Catalog.
func (c *FakeCatalog) SearchByTitle(_ context.Context, title string) ([]musicbrainz.Recording, error) {
	c.record("search:" + title)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]musicbrainz.Recording(nil), c.Search[title]...), nil
}

// AddTrack registers a single-disc release containing recording and returns
// the release. The recording is linked back to the release.
func (c *FakeCatalog) AddTrack(recordingID, title, releaseID, album, country string) *musicbrainz.Release {
	credit := musicbrainz.ArtistCredits{{Name: "Artist", Artist: musicbrainz.Artist{ID: "artist-1", Name: "Artist", SortName: "Artist"}}}
	group := musicbrainz.ReleaseGroup{ID: "rg-" + releaseID, Title: album, PrimaryType: "Album", FirstReleaseDate: "2000-01-01"}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.Recordings[recordingID]
	if !ok {
		rec = &musicbrainz.Recording{ID: recordingID, Title: title, ArtistCredit: credit}
		c.Recordings[recordingID] = rec
	}
	rec.Releases = append(rec.Releases, musicbrainz.ReleaseRef{
		ID: releaseID, Title: album, Country: country, Date: "2000-01-01", ReleaseGroup: group,
	})
	release := &musicbrainz.Release{
		ID:           releaseID,
		Title:        album,
		Date:         "2000-01-01",
		ArtistCredit: credit,
		ReleaseGroup: group,
		Media: []musicbrainz.Medium{{
			Position:   1,
			Format:     "CD",
			TrackCount: 10,
			Tracks: []musicbrainz.Track{{
				ID: "track-" + recordingID, Number: "1", Title: title, Position: 1,
				Recording: musicbrainz.TrackRecording{ID: recordingID},
			}},
		}},
	}
	c.Releases[releaseID] = release
	return release
}
