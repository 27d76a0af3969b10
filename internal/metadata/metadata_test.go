package metadata_test

import (
	"errors"
	"testing"

	"tagbrain/internal/metadata"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/services"
)

func credits(pairs ...[3]string) musicbrainz.ArtistCredits {
	out := make(musicbrainz.ArtistCredits, 0, len(pairs))
	for i, p := range pairs {
		out = append(out, musicbrainz.ArtistCredit{
			Name:       p[0],
			JoinPhrase: p[2],
			Artist:     musicbrainz.Artist{ID: "artist-" + string(rune('a'+i)), Name: p[0], SortName: p[1]},
		})
	}
	return out
}

func sampleRelease() *musicbrainz.Release {
	return &musicbrainz.Release{
		ID:           "rel-1",
		Title:        "Double Album",
		Date:         "2001-05-02",
		LabelInfo:    []musicbrainz.LabelInfo{{}, {Label: &musicbrainz.Label{ID: "l", Name: "Label One"}}},
		ArtistCredit: credits([3]string{"Band", "Band, The", ""}),
		TextRepresentation: musicbrainz.TextRepresentation{
			Script: "Latn",
		},
		ReleaseGroup: musicbrainz.ReleaseGroup{ID: "rg-detail", FirstReleaseDate: "2000"},
		Media: []musicbrainz.Medium{
			{Position: 1, Format: "CD", TrackCount: 9, Tracks: []musicbrainz.Track{
				{ID: "t-1-1", Position: 1, Recording: musicbrainz.TrackRecording{ID: "other"}},
			}},
			{Position: 2, Format: "CD", TrackCount: 12, Tracks: []musicbrainz.Track{
				{ID: "t-2-7", Number: "7", Position: 7, Recording: musicbrainz.TrackRecording{ID: "rec-1"}},
			}},
		},
	}
}

func TestBuild(t *testing.T) {
	rec := &musicbrainz.Recording{
		ID:           "rec-1",
		Title:        "Song",
		ArtistCredit: credits([3]string{"Alice", "Smith, Alice", " feat. "}, [3]string{"Bob", "Jones, Bob", ""}),
	}
	ref := &musicbrainz.ReleaseRef{
		ID:           "rel-1",
		ReleaseGroup: musicbrainz.ReleaseGroup{ID: "rg-1", FirstReleaseDate: "1999-01-01"},
	}

	md, err := metadata.Build(rec, ref, sampleRelease())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := metadata.Metadata{
		Title:                      "Song",
		Artist:                     "Alice feat. Bob",
		ArtistSort:                 "Smith, Alice feat. Jones, Bob",
		Album:                      "Double Album",
		AlbumArtist:                "Band",
		AlbumArtistSort:            "Band, The",
		Track:                      "7",
		TotalTracks:                "12",
		Disc:                       "2",
		TotalDiscs:                 "2",
		OriginalDate:               "1999-01-01",
		Date:                       "2001-05-02",
		Year:                       "2001",
		Label:                      "Label One",
		Media:                      "CD",
		Script:                     "Latn",
		MusicBrainzTrackID:         "t-2-7",
		MusicBrainzRecordingID:     "rec-1",
		MusicBrainzArtistID:        "artist-a",
		MusicBrainzReleaseID:       "rel-1",
		MusicBrainzReleaseArtistID: "artist-a",
		MusicBrainzReleaseGroupID:  "rg-1",
	}
	if md != want {
		t.Fatalf("unexpected metadata:\n got %+v\nwant %+v", md, want)
	}
}

func TestBuildWithoutRefUsesReleaseGroupFromDetail(t *testing.T) {
	rec := &musicbrainz.Recording{ID: "rec-1", Title: "Song"}
	md, err := metadata.Build(rec, nil, sampleRelease())
	if err != nil {
		t.Fatal(err)
	}
	if md.MusicBrainzReleaseGroupID != "rg-detail" || md.OriginalDate != "2000" {
		t.Fatalf("unexpected release group fields: %q %q", md.MusicBrainzReleaseGroupID, md.OriginalDate)
	}
	if md.Artist != "" || md.MusicBrainzArtistID != "" {
		t.Fatalf("expected empty artist fields for a recording without credits, got %+v", md)
	}
}

func TestBuildInconsistentCatalogData(t *testing.T) {
	rec := &musicbrainz.Recording{ID: "missing", Title: "Song"}
	_, err := metadata.Build(rec, nil, sampleRelease())
	if !errors.Is(err, services.ErrInconsistentCatalogData) {
		t.Fatalf("expected ErrInconsistentCatalogData, got %v", err)
	}
}

func TestYearOf(t *testing.T) {
	for in, want := range map[string]string{"2001-05-02": "2001", "1999": "1999", "": ""} {
		if got := metadata.YearOf(in); got != want {
			t.Fatalf("YearOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterTagsDropsUnknownKeys(t *testing.T) {
	raw := map[string][]string{
		"title":               {"Song"},
		"ASIN":                {"B000002UAL"},
		"X-CUSTOM":            {"whatever"},
		"GENRE":               {"Jazz", ""},
		"MUSICBRAINZ_TRACKID": {"rec-1"},
		"COMMENT":             {""},
	}
	tags := metadata.FilterTags(raw)
	if _, ok := tags["ASIN"]; ok {
		t.Fatal("ASIN must be dropped on read")
	}
	if _, ok := tags["X-CUSTOM"]; ok {
		t.Fatal("unknown key kept")
	}
	if _, ok := tags["COMMENT"]; ok {
		t.Fatal("key with only empty values kept")
	}
	if tags.First("TITLE") != "Song" || len(tags["GENRE"]) != 1 {
		t.Fatalf("unexpected filtered tags: %v", tags)
	}

	written := metadata.Metadata{Album: "New"}.ApplyTo(tags)
	if _, ok := written["ASIN"]; ok {
		t.Fatal("ASIN reappeared in write set")
	}
	if written.First("ALBUM") != "New" || written.First("GENRE") != "Jazz" || written.First("TITLE") != "Song" {
		t.Fatalf("unexpected write set: %v", written)
	}
}

func TestFromTagsSplitsCombinedPositions(t *testing.T) {
	md := metadata.FromTags(metadata.Tags{
		"TRACKNUMBER": {"3/12"},
		"DISCNUMBER":  {"1/2"},
		"DISCTOTAL":   {"3"},
		"TITLE":       {" Song "},
	})
	if md.Track != "3" || md.TotalTracks != "12" {
		t.Fatalf("track split wrong: %q/%q", md.Track, md.TotalTracks)
	}
	if md.Disc != "1" || md.TotalDiscs != "3" {
		t.Fatalf("explicit disc total should win: %q/%q", md.Disc, md.TotalDiscs)
	}
	if md.Title != "Song" {
		t.Fatalf("title not trimmed: %q", md.Title)
	}
}

func TestApplyToRoundTrip(t *testing.T) {
	md := metadata.Metadata{Title: "T", Artist: "A", Album: "B", Track: "1", TotalTracks: "9", MusicBrainzReleaseID: "r"}
	if got := metadata.FromTags(md.ApplyTo(nil)); got != md {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
