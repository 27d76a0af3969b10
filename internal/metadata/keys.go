package metadata

import (
	"strings"
)

// Tag keys use the TagLib property names shared by Vorbis comments, ID3v2,
// and MP4 through TagLib's property map.
const (
	KeyTitle                      = "TITLE"
	KeyArtist                     = "ARTIST"
	KeyArtistSort                 = "ARTISTSORT"
	KeyAlbum                      = "ALBUM"
	KeyAlbumArtist                = "ALBUMARTIST"
	KeyAlbumArtistSort            = "ALBUMARTISTSORT"
	KeyTrackNumber                = "TRACKNUMBER"
	KeyTrackTotal                 = "TRACKTOTAL"
	KeyDiscNumber                 = "DISCNUMBER"
	KeyDiscTotal                  = "DISCTOTAL"
	KeyOriginalDate               = "ORIGINALDATE"
	KeyDate                       = "DATE"
	KeyYear                       = "YEAR"
	KeyLabel                      = "LABEL"
	KeyMedia                      = "MEDIA"
	KeyScript                     = "SCRIPT"
	KeyMusicBrainzTrackID         = "MUSICBRAINZ_RELEASETRACKID"
	KeyMusicBrainzRecordingID     = "MUSICBRAINZ_TRACKID"
	KeyMusicBrainzArtistID        = "MUSICBRAINZ_ARTISTID"
	KeyMusicBrainzReleaseID       = "MUSICBRAINZ_ALBUMID"
	KeyMusicBrainzReleaseArtistID = "MUSICBRAINZ_ALBUMARTISTID"
	KeyMusicBrainzReleaseGroupID  = "MUSICBRAINZ_RELEASEGROUPID"
)

// KeyASIN is the Amazon identifier some taggers write. The tag library
// mishandles it, so it is never carried over.
const KeyASIN = "ASIN"

// extraKeys are well-known keys preserved across a rewrite even though
// Metadata does not model them.
var extraKeys = []string{
	"ACOUSTID_ID",
	"BARCODE",
	"BPM",
	"CATALOGNUMBER",
	"COMMENT",
	"COMPILATION",
	"COMPOSER",
	"CONDUCTOR",
	"COPYRIGHT",
	"DISCSUBTITLE",
	"ENCODEDBY",
	"GENRE",
	"ISRC",
	"LANGUAGE",
	"LYRICIST",
	"LYRICS",
	"MOOD",
	"PERFORMER",
	"RELEASECOUNTRY",
	"RELEASESTATUS",
	"RELEASETYPE",
}

// fields pairs each modelled key with its Metadata field.
func (m *Metadata) fields() []struct {
	key   string
	value *string
} {
	return []struct {
		key   string
		value *string
	}{
		{KeyTitle, &m.Title},
		{KeyArtist, &m.Artist},
		{KeyArtistSort, &m.ArtistSort},
		{KeyAlbum, &m.Album},
		{KeyAlbumArtist, &m.AlbumArtist},
		{KeyAlbumArtistSort, &m.AlbumArtistSort},
		{KeyTrackNumber, &m.Track},
		{KeyTrackTotal, &m.TotalTracks},
		{KeyDiscNumber, &m.Disc},
		{KeyDiscTotal, &m.TotalDiscs},
		{KeyOriginalDate, &m.OriginalDate},
		{KeyDate, &m.Date},
		{KeyYear, &m.Year},
		{KeyLabel, &m.Label},
		{KeyMedia, &m.Media},
		{KeyScript, &m.Script},
		{KeyMusicBrainzTrackID, &m.MusicBrainzTrackID},
		{KeyMusicBrainzRecordingID, &m.MusicBrainzRecordingID},
		{KeyMusicBrainzArtistID, &m.MusicBrainzArtistID},
		{KeyMusicBrainzReleaseID, &m.MusicBrainzReleaseID},
		{KeyMusicBrainzReleaseArtistID, &m.MusicBrainzReleaseArtistID},
		{KeyMusicBrainzReleaseGroupID, &m.MusicBrainzReleaseGroupID},
	}
}

var knownKeys = func() map[string]struct{} {
	known := make(map[string]struct{})
	var m Metadata
	for _, f := range m.fields() {
		known[f.key] = struct{}{}
	}
	for _, key := range extraKeys {
		known[key] = struct{}{}
	}
	return known
}()

// KnownKey reports whether key is carried through a read/write cycle.
// Comparison ignores case.
func KnownKey(key string) bool {
	_, ok := knownKeys[strings.ToUpper(key)]
	return ok
}

// Tags is the key-value form of a file's tags. Keys are upper-case.
type Tags map[string][]string

// FilterTags keeps only known keys, upper-cases them, and drops empty values.
func FilterTags(raw map[string][]string) Tags {
	out := make(Tags, len(raw))
	for key, values := range raw {
		upper := strings.ToUpper(strings.TrimSpace(key))
		if upper == KeyASIN || !KnownKey(upper) {
			continue
		}
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			out[upper] = append(out[upper], kept...)
		}
	}
	return out
}

// First returns the first value stored for key.
func (t Tags) First(key string) string {
	values := t[strings.ToUpper(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// FromTags reads a Metadata record from tags. Combined "n/total" track and
// disc numbers are split when no explicit total is present.
func FromTags(tags Tags) Metadata {
	var m Metadata
	for _, f := range m.fields() {
		*f.value = strings.TrimSpace(tags.First(f.key))
	}
	m.Track, m.TotalTracks = splitPosition(m.Track, m.TotalTracks)
	m.Disc, m.TotalDiscs = splitPosition(m.Disc, m.TotalDiscs)
	return m
}

// ApplyTo returns a copy of base with every non-empty Metadata field written
// over its key. Keys in base that Metadata does not set are kept.
func (m Metadata) ApplyTo(base Tags) Tags {
	out := make(Tags, len(base)+22)
	for key, values := range base {
		out[key] = append([]string(nil), values...)
	}
	for _, f := range m.fields() {
		if *f.value != "" {
			out[f.key] = []string{*f.value}
		}
	}
	return out
}

func splitPosition(position, total string) (string, string) {
	number, rest, found := strings.Cut(position, "/")
	if !found {
		return position, total
	}
	if total == "" {
		total = strings.TrimSpace(rest)
	}
	return strings.TrimSpace(number), total
}
