package metadata

import (
	"strconv"
	"strings"

	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/services"
)

// Metadata is the canonical tag record. Empty fields are absent.
type Metadata struct {
	Title                      string `json:"title,omitempty"`
	Artist                     string `json:"artist,omitempty"`
	ArtistSort                 string `json:"artist_sort,omitempty"`
	Album                      string `json:"album,omitempty"`
	AlbumArtist                string `json:"album_artist,omitempty"`
	AlbumArtistSort            string `json:"album_artist_sort,omitempty"`
	Track                      string `json:"track,omitempty"`
	TotalTracks                string `json:"total_tracks,omitempty"`
	Disc                       string `json:"disc,omitempty"`
	TotalDiscs                 string `json:"total_discs,omitempty"`
	OriginalDate               string `json:"original_date,omitempty"`
	Date                       string `json:"date,omitempty"`
	Year                       string `json:"year,omitempty"`
	Label                      string `json:"label,omitempty"`
	Media                      string `json:"media,omitempty"`
	Script                     string `json:"script,omitempty"`
	MusicBrainzTrackID         string `json:"musicbrainz_track_id,omitempty"`
	MusicBrainzRecordingID     string `json:"musicbrainz_recording_id,omitempty"`
	MusicBrainzArtistID        string `json:"musicbrainz_artist_id,omitempty"`
	MusicBrainzReleaseID       string `json:"musicbrainz_release_id,omitempty"`
	MusicBrainzReleaseArtistID string `json:"musicbrainz_release_artist_id,omitempty"`
	MusicBrainzReleaseGroupID  string `json:"musicbrainz_release_group_id,omitempty"`
}

// IsZero reports whether every field is empty.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Build projects the matched recording and the full release into a Metadata
// record. ref is the release summary the match was scored on and may be nil
// when the release was chosen by id. The release must contain a medium with a
// track for the recording; otherwise the catalog data is inconsistent.
func Build(recording *musicbrainz.Recording, ref *musicbrainz.ReleaseRef, release *musicbrainz.Release) (Metadata, error) {
	if recording == nil || release == nil {
		return Metadata{}, services.Wrap(services.ErrInconsistentCatalogData, "metadata", "build", "missing recording or release", nil)
	}
	medium, track, ok := locateTrack(release, recording.ID)
	if !ok {
		return Metadata{}, services.Wrap(
			services.ErrInconsistentCatalogData,
			"metadata",
			"build",
			"release "+release.ID+" has no track for recording "+recording.ID,
			nil,
		)
	}

	releaseGroup := release.ReleaseGroup
	if ref != nil && ref.ReleaseGroup.ID != "" {
		releaseGroup = ref.ReleaseGroup
	}
	originalDate := releaseGroup.FirstReleaseDate
	if originalDate == "" {
		originalDate = release.ReleaseGroup.FirstReleaseDate
	}

	return Metadata{
		Title:                      recording.Title,
		Artist:                     recording.ArtistCredit.String(),
		ArtistSort:                 recording.ArtistCredit.SortString(),
		Album:                      release.Title,
		AlbumArtist:                release.ArtistCredit.String(),
		AlbumArtistSort:            release.ArtistCredit.SortString(),
		Track:                      strconv.Itoa(track.Position),
		TotalTracks:                strconv.Itoa(medium.TrackCount),
		Disc:                       strconv.Itoa(medium.Position),
		TotalDiscs:                 strconv.Itoa(len(release.Media)),
		OriginalDate:               originalDate,
		Date:                       release.Date,
		Year:                       YearOf(release.Date),
		Label:                      release.FirstLabelName(),
		Media:                      medium.Format,
		Script:                     release.TextRepresentation.Script,
		MusicBrainzTrackID:         track.ID,
		MusicBrainzRecordingID:     recording.ID,
		MusicBrainzArtistID:        recording.ArtistCredit.FirstArtistID(),
		MusicBrainzReleaseID:       release.ID,
		MusicBrainzReleaseArtistID: release.ArtistCredit.FirstArtistID(),
		MusicBrainzReleaseGroupID:  releaseGroup.ID,
	}, nil
}

// YearOf returns the text before the first '-' of a catalog date.
func YearOf(date string) string {
	year, _, _ := strings.Cut(date, "-")
	return year
}

func locateTrack(release *musicbrainz.Release, recordingID string) (*musicbrainz.Medium, *musicbrainz.Track, bool) {
	for i := range release.Media {
		medium := &release.Media[i]
		for j := range medium.Tracks {
			if medium.Tracks[j].Recording.ID == recordingID {
				return medium, &medium.Tracks[j], true
			}
		}
	}
	return nil, nil, false
}
