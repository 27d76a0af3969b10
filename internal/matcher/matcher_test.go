package matcher_test

import (
	"errors"
	"math"
	"testing"

	"tagbrain/internal/config"
	"tagbrain/internal/logging"
	"tagbrain/internal/matcher"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/services"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPreferenceScoreDecreasesWithIndex(t *testing.T) {
	list := []string{"US", "JP", "GB", "XW"}
	prev := math.Inf(1)
	for i, v := range list {
		got := matcher.PreferenceScore(v, list)
		if !approx(got, 1/float64(i+1)) {
			t.Fatalf("PreferenceScore(%q) = %v, want %v", v, got, 1/float64(i+1))
		}
		if got >= prev {
			t.Fatalf("score for index %d (%v) not below previous (%v)", i, got, prev)
		}
		prev = got
	}
	if got := matcher.PreferenceScore("", list); got != 0 {
		t.Fatalf("absent value scored %v", got)
	}
	if got := matcher.PreferenceScore("DE", list); got != 0 {
		t.Fatalf("unlisted value scored %v", got)
	}
}

func TestDistanceScore(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		candidate string
		threshold float64
		want      float64
	}{
		{name: "absent tag", tag: "", candidate: "anything", threshold: 0, want: 0},
		{name: "identical", tag: "Blue", candidate: "Blue", threshold: 0.5, want: 1},
		{name: "at threshold kept", tag: "abcd", candidate: "abce", threshold: 0.75, want: 0.75},
		{name: "below threshold clamped", tag: "abcd", candidate: "abce", threshold: 0.76, want: 0},
		{name: "unrelated", tag: "abc", candidate: "xyz", threshold: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.DistanceScore(tt.tag, tt.candidate, tt.threshold); !approx(got, tt.want) {
				t.Fatalf("DistanceScore(%q, %q, %v) = %v, want %v", tt.tag, tt.candidate, tt.threshold, got, tt.want)
			}
		})
	}
}

func countryOnly() matcher.Policy {
	return matcher.Policy{
		Country: matcher.Preference{Preferred: []string{"us", "jp"}, Weight: 1},
	}
}

func release(id, country, groupTitle, groupType string) musicbrainz.ReleaseRef {
	return musicbrainz.ReleaseRef{
		ID:      id,
		Title:   groupTitle,
		Country: country,
		ReleaseGroup: musicbrainz.ReleaseGroup{
			ID:          "rg-" + id,
			Title:       groupTitle,
			PrimaryType: groupType,
		},
	}
}

func TestPreferredCountryWins(t *testing.T) {
	sel := matcher.NewSelector(countryOnly(), logging.NewNop())
	rec := musicbrainz.Recording{ID: "r1", Title: "Song", Releases: []musicbrainz.ReleaseRef{
		release("B", "JP", "Album", "Album"),
		release("A", "US", "Album", "Album"),
	}}

	if got := sel.Score(matcher.Tags{}, &rec, &rec.Releases[0]); !approx(got, 0.5) {
		t.Fatalf("JP release scored %v, want 0.5", got)
	}
	if got := sel.Score(matcher.Tags{}, &rec, &rec.Releases[1]); !approx(got, 1.0) {
		t.Fatalf("US release scored %v, want 1.0", got)
	}

	best, err := sel.Select(matcher.Tags{}, []musicbrainz.Recording{rec})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if best.Release.ID != "A" || !approx(best.Score, 1.0) {
		t.Fatalf("expected release A with 1.0, got %s with %v", best.Release.ID, best.Score)
	}
}

func TestTypeComparisonIsCaseInsensitive(t *testing.T) {
	policy := matcher.Policy{ReleaseGroupType: matcher.Preference{Preferred: []string{"Album", "single"}, Weight: 2}}
	sel := matcher.NewSelector(policy, nil)
	rec := musicbrainz.Recording{ID: "r1", Releases: []musicbrainz.ReleaseRef{
		release("S", "", "x", "Single"),
		release("A", "", "x", "ALBUM"),
	}}
	best, err := sel.Select(matcher.Tags{}, []musicbrainz.Recording{rec})
	if err != nil {
		t.Fatal(err)
	}
	if best.Release.ID != "A" || !approx(best.Score, 2) {
		t.Fatalf("expected album release scoring 2, got %s %v", best.Release.ID, best.Score)
	}
}

func TestScoreCombinesWeightedTerms(t *testing.T) {
	policy := matcher.Policy{
		Country:          matcher.Preference{Preferred: []string{"GB"}, Weight: 0.5},
		ReleaseGroupType: matcher.Preference{Preferred: []string{"ep", "album"}, Weight: 2},
		ReleaseTitle:     matcher.Distance{Threshold: 0.5, Weight: 3},
		RecordingTitle:   matcher.Distance{Threshold: 0.5, Weight: 4},
	}
	sel := matcher.NewSelector(policy, nil)
	rec := musicbrainz.Recording{ID: "r", Title: "abcd"}
	rel := release("x", "gb", "Blue", "Album")

	// 0.5*1 + 2*0.5 + 3*1 + 4*0.75
	got := sel.Score(matcher.Tags{Album: "Blue", Title: "abce"}, &rec, &rel)
	if !approx(got, 7.5) {
		t.Fatalf("score = %v, want 7.5", got)
	}
}

func TestTiesGoToFirstEncountered(t *testing.T) {
	sel := matcher.NewSelector(countryOnly(), nil)
	recs := []musicbrainz.Recording{
		{ID: "first", Releases: []musicbrainz.ReleaseRef{release("1a", "US", "x", ""), release("1b", "US", "x", "")}},
		{ID: "second", Releases: []musicbrainz.ReleaseRef{release("2a", "US", "x", "")}},
	}
	best, err := sel.Select(matcher.Tags{}, recs)
	if err != nil {
		t.Fatal(err)
	}
	if best.Recording.ID != "first" || best.Release.ID != "1a" {
		t.Fatalf("expected first/1a, got %s/%s", best.Recording.ID, best.Release.ID)
	}
}

func TestRecordingsWithoutReleasesAreDropped(t *testing.T) {
	sel := matcher.NewSelector(countryOnly(), nil)
	recs := []musicbrainz.Recording{
		{ID: "empty"},
		{ID: "usable", Releases: []musicbrainz.ReleaseRef{release("r", "DE", "x", "")}},
	}
	best, err := sel.Select(matcher.Tags{}, recs)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if best.Recording.ID != "usable" || best.Score != 0 {
		t.Fatalf("unexpected winner %+v", best)
	}
}

func TestNoScorableCandidate(t *testing.T) {
	sel := matcher.NewSelector(countryOnly(), nil)
	for name, recs := range map[string][]musicbrainz.Recording{
		"empty set":   nil,
		"no releases": {{ID: "a"}, {ID: "b"}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := sel.Select(matcher.Tags{}, recs); !errors.Is(err, services.ErrNoMatchFound) {
				t.Fatalf("expected ErrNoMatchFound, got %v", err)
			}
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ReleaseSelector.Country.Preferred = []string{"JP"}
	cfg.ReleaseSelector.RecordingTitleDistance.Weight = 3
	policy := matcher.PolicyFromConfig(cfg.ReleaseSelector)
	if len(policy.Country.Preferred) != 1 || policy.Country.Preferred[0] != "JP" {
		t.Fatalf("country preferences not copied: %+v", policy.Country)
	}
	if policy.RecordingTitle.Weight != 3 {
		t.Fatalf("recording title weight = %v", policy.RecordingTitle.Weight)
	}
	cfg.ReleaseSelector.Country.Preferred[0] = "US"
	if policy.Country.Preferred[0] != "JP" {
		t.Fatal("policy shares the config slice")
	}
}
