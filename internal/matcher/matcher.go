package matcher

import (
	"log/slog"
	"slices"
	"strings"

	"tagbrain/internal/config"
	"tagbrain/internal/logging"
	"tagbrain/internal/musicbrainz"
	"tagbrain/internal/services"
	"tagbrain/internal/textutil"
)

// Preference weights an ordered list of preferred values.
type Preference struct {
	Preferred []string
	Weight    float64
}

// Distance weights a similarity comparison and clamps values below Threshold.
type Distance struct {
	Threshold float64
	Weight    float64
}

// Policy is the full release-selection configuration.
type Policy struct {
	Country          Preference
	ReleaseGroupType Preference
	ReleaseTitle     Distance
	RecordingTitle   Distance
}

// PolicyFromConfig converts the release_selector configuration section.
func PolicyFromConfig(sel config.ReleaseSelector) Policy {
	return Policy{
		Country:          Preference{Preferred: slices.Clone(sel.Country.Preferred), Weight: sel.Country.Weight},
		ReleaseGroupType: Preference{Preferred: slices.Clone(sel.ReleaseGroupType.Preferred), Weight: sel.ReleaseGroupType.Weight},
		ReleaseTitle:     Distance{Threshold: sel.ReleaseTitleDistance.Threshold, Weight: sel.ReleaseTitleDistance.Weight},
		RecordingTitle:   Distance{Threshold: sel.RecordingTitleDistance.Threshold, Weight: sel.RecordingTitleDistance.Weight},
	}
}

// Tags are the values read from the file that take part in scoring. Empty
// means absent.
type Tags struct {
	Album string
	Title string
}

// Candidate is a scored (recording, release) pair.
type Candidate struct {
	Recording musicbrainz.Recording
	Release   musicbrainz.ReleaseRef
	Score     float64
}

// Selector picks the best release among candidate recordings.
type Selector struct {
	policy Policy
	logger *slog.Logger
}

// NewSelector returns a selector for the given policy. Country preferences
// are compared uppercase and type preferences lowercase.
func NewSelector(policy Policy, logger *slog.Logger) *Selector {
	policy.Country.Preferred = mapStrings(policy.Country.Preferred, strings.ToUpper)
	policy.ReleaseGroupType.Preferred = mapStrings(policy.ReleaseGroupType.Preferred, strings.ToLower)
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Selector{policy: policy, logger: logger}
}

// PreferenceScore returns 1/(i+1) where i is the index of value in preferred,
// or 0 when value is empty or not listed. Comparison is exact.
func PreferenceScore(value string, preferred []string) float64 {
	if value == "" {
		return 0
	}
	idx := slices.Index(preferred, value)
	if idx < 0 {
		return 0
	}
	return 1 / float64(idx+1)
}

// DistanceScore returns the normalized edit similarity between tagValue and
// candidate, or 0 when tagValue is empty or the similarity is below threshold.
func DistanceScore(tagValue, candidate string, threshold float64) float64 {
	if tagValue == "" {
		return 0
	}
	similarity := textutil.NormalizedSimilarity(tagValue, candidate)
	if similarity < threshold {
		return 0
	}
	return similarity
}

// Score computes the weighted score of one release of one recording.
func (s *Selector) Score(tags Tags, recording *musicbrainz.Recording, release *musicbrainz.ReleaseRef) float64 {
	p := s.policy
	country := PreferenceScore(strings.ToUpper(strings.TrimSpace(release.Country)), p.Country.Preferred)
	groupType := PreferenceScore(strings.ToLower(strings.TrimSpace(release.ReleaseGroup.PrimaryType)), p.ReleaseGroupType.Preferred)
	releaseTitle := DistanceScore(tags.Album, release.ReleaseGroup.Title, p.ReleaseTitle.Threshold)
	recordingTitle := DistanceScore(tags.Title, recording.Title, p.RecordingTitle.Threshold)

	return p.Country.Weight*country +
		p.ReleaseGroupType.Weight*groupType +
		p.ReleaseTitle.Weight*releaseTitle +
		p.RecordingTitle.Weight*recordingTitle
}

// BestRelease returns the highest scoring release of recording. The first
// release wins ties. ok is false when the recording has no releases.
func (s *Selector) BestRelease(tags Tags, recording *musicbrainz.Recording) (Candidate, bool) {
	var best Candidate
	found := false
	for i := range recording.Releases {
		release := &recording.Releases[i]
		score := s.Score(tags, recording, release)
		if !found || score > best.Score {
			best = Candidate{Recording: *recording, Release: *release, Score: score}
			found = true
		}
	}
	return best, found
}

// Select returns the global best (recording, release) pair. Recordings without
// releases are skipped with a warning. The earliest candidate wins ties.
func (s *Selector) Select(tags Tags, recordings []musicbrainz.Recording) (Candidate, error) {
	if len(recordings) == 0 {
		return Candidate{}, services.Wrap(services.ErrNoMatchFound, "select", "score candidates", "no candidate recordings", nil)
	}

	var best Candidate
	found := false
	for i := range recordings {
		recording := &recordings[i]
		candidate, ok := s.BestRelease(tags, recording)
		if !ok {
			logging.WarnWithContext(s.logger, "recording has no releases; skipping",
				"recording_without_releases",
				logging.String("recording_id", recording.ID),
				logging.String("recording_title", recording.Title),
				logging.String(logging.FieldErrorHint, "the catalog entry may be incomplete"),
				logging.String(logging.FieldImpact, "candidate excluded from selection"),
			)
			continue
		}
		s.logger.Debug("release scored",
			logging.String("recording_id", recording.ID),
			logging.String("release_id", candidate.Release.ID),
			logging.String("country", candidate.Release.Country),
			logging.String("release_group_type", candidate.Release.ReleaseGroup.PrimaryType),
			logging.Float64("score", candidate.Score),
		)
		if !found || candidate.Score > best.Score {
			best = candidate
			found = true
		}
	}
	if !found {
		return Candidate{}, services.Wrap(services.ErrNoMatchFound, "select", "score candidates", "no recording has a release", nil)
	}

	attrs := logging.DecisionAttrs("release_selection", best.Release.ID, "highest weighted score")
	attrs = append(attrs,
		logging.String("recording_id", best.Recording.ID),
		logging.String("release_title", best.Release.Title),
		logging.Float64("score", best.Score),
		logging.Int("candidates", len(recordings)),
	)
	s.logger.Info("release selected", logging.Args(attrs...)...)
	return best, nil
}

func mapStrings(values []string, fn func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, fn(v))
	}
	return out
}
