package musicbrainz

import "strings"

// Artist is the artist entity nested inside a credit.
type Artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// ArtistCredit is one entry of an artist-credit list.
type ArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     Artist `json:"artist"`
}

// ArtistCredits is an ordered artist-credit list.
type ArtistCredits []ArtistCredit

// String folds the credits into a display string such as "A feat. B".
func (a ArtistCredits) String() string {
	var b strings.Builder
	for _, credit := range a {
		b.WriteString(credit.Artist.Name)
		b.WriteString(credit.JoinPhrase)
	}
	return b.String()
}

// SortString folds the credits using sort names.
func (a ArtistCredits) SortString() string {
	var b strings.Builder
	for _, credit := range a {
		b.WriteString(credit.Artist.SortName)
		b.WriteString(credit.JoinPhrase)
	}
	return b.String()
}

// FirstArtistID returns the id of the first credited artist.
func (a ArtistCredits) FirstArtistID() string {
	if len(a) == 0 {
		return ""
	}
	return a[0].Artist.ID
}

// ReleaseGroup groups the releases of one album, single, or EP.
type ReleaseGroup struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PrimaryType      string `json:"primary-type,omitempty"`
	FirstReleaseDate string `json:"first-release-date,omitempty"`
}

// ReleaseRef is the release summary embedded in a recording. It carries
// everything the scorer needs.
type ReleaseRef struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Country      string       `json:"country,omitempty"`
	Date         string       `json:"date,omitempty"`
	ReleaseGroup ReleaseGroup `json:"release-group"`
}

// Recording is a distinct audio recording with the releases it appears on.
type Recording struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	ArtistCredit     ArtistCredits `json:"artist-credit,omitempty"`
	FirstReleaseDate string        `json:"first-release-date,omitempty"`
	Releases         []ReleaseRef  `json:"releases"`
}

// Label is a record label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LabelInfo links a release to a label.
type LabelInfo struct {
	CatalogNumber string `json:"catalog-number,omitempty"`
	Label         *Label `json:"label,omitempty"`
}

// TrackRecording identifies the recording behind a track.
type TrackRecording struct {
	ID string `json:"id"`
}

// Track is one position on a medium.
type Track struct {
	ID        string         `json:"id"`
	Number    string         `json:"number"`
	Title     string         `json:"title"`
	Position  int            `json:"position"`
	Recording TrackRecording `json:"recording"`
}

// Medium is one disc, side, or file set of a release.
type Medium struct {
	Position   int     `json:"position"`
	Format     string  `json:"format,omitempty"`
	TrackCount int     `json:"track-count"`
	Tracks     []Track `json:"tracks"`
}

// TextRepresentation describes the script and language of a release's titles.
type TextRepresentation struct {
	Script   string `json:"script,omitempty"`
	Language string `json:"language,omitempty"`
}

// Release is the full release record fetched for the winning candidate.
type Release struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Date               string             `json:"date,omitempty"`
	Disambiguation     string             `json:"disambiguation,omitempty"`
	LabelInfo          []LabelInfo        `json:"label-info,omitempty"`
	ArtistCredit       ArtistCredits      `json:"artist-credit,omitempty"`
	Media              []Medium           `json:"media"`
	TextRepresentation TextRepresentation `json:"text-representation"`
	ReleaseGroup       ReleaseGroup       `json:"release-group"`
}

// FirstLabelName returns the first label with a name, or "".
func (r *Release) FirstLabelName() string {
	for _, info := range r.LabelInfo {
		if info.Label != nil && info.Label.Name != "" {
			return info.Label.Name
		}
	}
	return ""
}

type searchResponse struct {
	Count      int         `json:"count"`
	Recordings []Recording `json:"recordings"`
}
