// Package identifier holds the pure scoring core: given directory evidence
// and candidate releases from one or more providers, it produces a ranked,
// tiered identification result. Nothing in this package performs I/O —
// ProviderClient is an interface the caller supplies, never called by
// anything inside scoreRelease/CalculateTier themselves.
package identifier

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/evidence"
)

// ConfidenceTier classifies how safe it is to auto-pin a candidate.
type ConfidenceTier string

const (
	TierCertain  ConfidenceTier = "CERTAIN"
	TierProbable ConfidenceTier = "PROBABLE"
	TierUnsure   ConfidenceTier = "UNSURE"
)

// ScoringVersion identifies the scoring formula in effect; it is recorded
// alongside every IdentificationResult so a future formula change can be
// detected and re-run on demand rather than silently reinterpreted.
const ScoringVersion = "v1"

// Thresholds are the tunable knobs of the v1 scoring formula.
type Thresholds struct {
	FingerprintWeight     float64
	TrackCountWeight      float64
	DurationWeight        float64
	CertainMinScore       float64
	CertainMinCoverage    float64
	ProbableMinScore      float64
	MultiReleaseMinSupport float64
}

// DefaultThresholds returns the v1 scoring thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FingerprintWeight:      0.6,
		TrackCountWeight:       0.2,
		DurationWeight:         0.2,
		CertainMinScore:        0.85,
		CertainMinCoverage:     0.85,
		ProbableMinScore:       0.65,
		MultiReleaseMinSupport: 0.30,
	}
}

// ProviderTrack is one track on a candidate release, as reported by a
// provider. Fields unknown to a given provider are left zero.
type ProviderTrack struct {
	Position        int
	Title           string
	DurationSeconds int // 0 means unknown
	FingerprintID   string
	Composer        string
	DiscNumber      int // 0 means unknown/unset
	RecordingID     string
}

// ReleaseKind classifies a release's scale, inferred from its track count
// when a provider doesn't supply one directly.
type ReleaseKind string

const (
	KindSingle ReleaseKind = "single"
	KindEP     ReleaseKind = "ep"
	KindAlbum  ReleaseKind = "album"
)

// ProviderRelease is one candidate release returned by a provider.
type ProviderRelease struct {
	Provider    string
	ReleaseID   string
	Title       string
	Artist      string
	Tracks      []ProviderTrack
	Year        int // 0 means unknown
	ReleaseKind ReleaseKind
}

// TrackCount is len(Tracks), named to mirror the scoring formula's
// vocabulary at call sites.
func (r ProviderRelease) TrackCount() int { return len(r.Tracks) }

// ReleaseScore is a scored, ranked candidate.
type ReleaseScore struct {
	Release            ProviderRelease
	FingerprintCoverage float64
	TrackCountMatch     bool
	DurationFit         float64
	YearPenalty         float64
	TotalScore          float64
}

// ProviderCapabilities advertises what search modes a provider supports.
type ProviderCapabilities struct {
	SupportsFingerprints bool
	SupportsMetadata     bool
}

// ProviderClient is satisfied by anything that can search a metadata
// backend. Concrete implementations (internal/providers/musicbrainz,
// internal/providers/discogs, the fused multi-provider client) live
// outside this package — identifier never imports a transport.
type ProviderClient interface {
	Capabilities() ProviderCapabilities
	SearchByFingerprints(ctx context.Context, fingerprintIDs []string) ([]ProviderRelease, error)
	SearchByMetadata(ctx context.Context, artistHint, albumHint string) ([]ProviderRelease, error)
}

// IdentificationResult is identify's output.
type IdentificationResult struct {
	Candidates     []ReleaseScore
	Tier           ConfidenceTier
	Reasons        []string
	Evidence       evidence.DirectoryEvidence
	ScoringVersion string
}

// BestCandidate returns the top-ranked candidate, or the zero value and
// false if there are none.
func (r IdentificationResult) BestCandidate() (ReleaseScore, bool) {
	if len(r.Candidates) == 0 {
		return ReleaseScore{}, false
	}
	return r.Candidates[0], true
}

// scoreRelease implements the v1 scoring formula against one candidate.
func scoreRelease(ev evidence.DirectoryEvidence, rel ProviderRelease, th Thresholds) ReleaseScore {
	fingerprintCoverage := 0.0
	if ev.HasFingerprints() {
		matched := 0
		byFP := make(map[string]bool, len(rel.Tracks))
		for _, t := range rel.Tracks {
			if t.FingerprintID != "" {
				byFP[t.FingerprintID] = true
			}
		}
		for _, t := range ev.Tracks {
			if t.FingerprintID != "" && byFP[t.FingerprintID] {
				matched++
			}
		}
		if ev.TrackCount > 0 {
			fingerprintCoverage = float64(matched) / float64(ev.TrackCount)
		}
	}

	discCountMatch := discCountsAgree(ev, rel)
	trackCountMatch := ev.TrackCount == rel.TrackCount() && discCountMatch

	durationFit := computeDurationFit(ev, rel, trackCountMatch)

	// year_penalty is a scoring hook that is always zero today — no
	// release-year evidence is extracted yet. Kept so a future evidence
	// source can populate it without touching the formula's shape.
	yearPenalty := 0.0

	singleAlbumPenalty := 0.0
	if ev.TrackCount <= 3 && rel.ReleaseKind == KindAlbum && rel.TrackCount() >= ev.TrackCount+3 {
		singleAlbumPenalty = 0.2
	}

	total := fingerprintCoverage*th.FingerprintWeight +
		boolWeight(trackCountMatch)*th.TrackCountWeight +
		durationFit*th.DurationWeight -
		yearPenalty - singleAlbumPenalty

	return ReleaseScore{
		Release:             rel,
		FingerprintCoverage: fingerprintCoverage,
		TrackCountMatch:     trackCountMatch,
		DurationFit:         durationFit,
		YearPenalty:         yearPenalty,
		TotalScore:          total,
	}
}

func boolWeight(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// discCountsAgree compares the disc count implied by evidence tags
// (disc_number/discnumber) against the release's own disc spread. If
// evidence carries no disc tags at all, discs are assumed to agree —
// absence of a signal is not a mismatch.
func discCountsAgree(ev evidence.DirectoryEvidence, rel ProviderRelease) bool {
	evDiscs := map[int]bool{}
	for _, t := range ev.Tracks {
		for _, key := range []string{"disc_number", "discnumber"} {
			if v, ok := t.ExistingTags[key]; ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					evDiscs[n] = true
				}
				break
			}
		}
	}
	if len(evDiscs) == 0 {
		return true
	}

	relDiscs := map[int]bool{}
	for _, t := range rel.Tracks {
		if t.DiscNumber != 0 {
			relDiscs[t.DiscNumber] = true
		}
	}
	if len(relDiscs) == 0 {
		return true
	}
	return len(evDiscs) == len(relDiscs)
}

// computeDurationFit buckets the absolute gap between evidence and release
// total duration into a coarse score. When either side has no duration
// data it falls back to a binary signal driven by trackCountMatch.
func computeDurationFit(ev evidence.DirectoryEvidence, rel ProviderRelease, trackCountMatch bool) float64 {
	relDuration := 0
	known := 0
	for _, t := range rel.Tracks {
		if t.DurationSeconds > 0 {
			relDuration += t.DurationSeconds
			known++
		}
	}
	if ev.TotalDurationSeconds <= 0 || known == 0 {
		if trackCountMatch {
			return 1.0
		}
		return 0.5
	}

	diff := ev.TotalDurationSeconds - relDuration
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 1.0
	case diff <= 5:
		return 0.9
	case diff <= 30:
		return 0.8
	case diff <= 60:
		return 0.7
	default:
		return 0.5
	}
}

// inferReleaseKind classifies a release by track count when a provider did
// not report a kind directly.
func inferReleaseKind(trackCount int) ReleaseKind {
	switch {
	case trackCount <= 2:
		return KindSingle
	case trackCount <= 6:
		return KindEP
	default:
		return KindAlbum
	}
}

// MergeAndRankCandidates sorts scored releases by total score descending,
// breaking ties by provider name then release id so the ordering is
// deterministic across runs.
func MergeAndRankCandidates(scored []ReleaseScore) []ReleaseScore {
	out := make([]ReleaseScore, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool {
		return lessScore(out[i], out[j])
	})
	return out
}

// lessScore orders a before b in rank order (a ranks higher / "less" in
// sort.Slice terms when it should sort first).
func lessScore(a, b ReleaseScore) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if a.Release.Provider != b.Release.Provider {
		return a.Release.Provider < b.Release.Provider
	}
	return a.Release.ReleaseID < b.Release.ReleaseID
}

// CalculateTier applies the tier rules in priority order: empty candidate
// list, then multi-release ambiguity, then CERTAIN, then PROBABLE, else
// UNSURE.
func CalculateTier(candidates []ReleaseScore, ev evidence.DirectoryEvidence, th Thresholds) (ConfidenceTier, []string) {
	if len(candidates) == 0 {
		return TierUnsure, []string{"No candidates found"}
	}

	best := candidates[0]

	if len(candidates) >= 2 {
		second := candidates[1]
		if second.TotalScore >= th.MultiReleaseMinSupport && (best.TotalScore-second.TotalScore) < 0.15 {
			return TierUnsure, []string{fmt.Sprintf(
				"Multiple releases with similar scores: %.3f vs %.3f", best.TotalScore, second.TotalScore)}
		}
	}

	if best.TotalScore >= th.CertainMinScore && best.FingerprintCoverage >= th.CertainMinCoverage && best.TrackCountMatch {
		return TierCertain, nil
	}

	if best.TotalScore >= th.ProbableMinScore {
		return TierProbable, nil
	}

	return TierUnsure, nil
}

// tagHint extracts the first non-empty value among the given tag keys from
// the first track's existing tags, preferring album artist over artist.
func tagHint(ev evidence.DirectoryEvidence, keys ...string) string {
	if len(ev.Tracks) == 0 {
		return ""
	}
	tags := ev.Tracks[0].ExistingTags
	for _, k := range keys {
		if v, ok := tags[k]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func anyTagsPresent(ev evidence.DirectoryEvidence) bool {
	for _, t := range ev.Tracks {
		if len(t.ExistingTags) > 0 {
			return true
		}
	}
	return false
}

// Identify runs the full candidate-gathering, scoring, ranking, and
// tiering pipeline for one directory's evidence against one provider
// client (typically a fused multi-provider client).
func Identify(ctx context.Context, ev evidence.DirectoryEvidence, client ProviderClient, th Thresholds) (IdentificationResult, error) {
	var candidates []ProviderRelease

	if ev.HasFingerprints() {
		caps := client.Capabilities()
		if !caps.SupportsFingerprints {
			return IdentificationResult{}, fmt.Errorf("identifier: evidence has fingerprints but provider does not support fingerprint search")
		}
		var ids []string
		for _, t := range ev.Tracks {
			if t.FingerprintID != "" {
				ids = append(ids, t.FingerprintID)
			}
		}
		rels, err := client.SearchByFingerprints(ctx, ids)
		if err != nil {
			return IdentificationResult{}, fmt.Errorf("identifier: fingerprint search: %w", err)
		}
		candidates = append(candidates, rels...)
	}

	artistHint := tagHint(ev, "albumartist", "artist", "ALBUMARTIST", "ARTIST")
	albumHint := tagHint(ev, "album", "ALBUM")

	if artistHint == "" && albumHint == "" {
		if anyTagsPresent(ev) {
			return IdentificationResult{}, fmt.Errorf("%w: identifier: tags present but no usable artist/album hint", errs.ErrAntiPlaceholder)
		}
	} else {
		caps := client.Capabilities()
		if !caps.SupportsMetadata {
			return IdentificationResult{}, fmt.Errorf("identifier: provider does not support metadata search")
		}
		rels, err := client.SearchByMetadata(ctx, artistHint, albumHint)
		if err != nil {
			return IdentificationResult{}, fmt.Errorf("identifier: metadata search: %w", err)
		}
		candidates = append(candidates, rels...)
	}

	scored := make([]ReleaseScore, 0, len(candidates))
	for _, c := range candidates {
		if c.ReleaseKind == "" {
			c.ReleaseKind = inferReleaseKind(c.TrackCount())
		}
		scored = append(scored, scoreRelease(ev, c, th))
	}

	ranked := MergeAndRankCandidates(scored)
	tier, reasons := CalculateTier(ranked, ev, th)

	if len(ranked) > 0 {
		providers := make(map[string]bool)
		for _, c := range ranked {
			providers[c.Release.Provider] = true
		}
		names := make([]string, 0, len(providers))
		for p := range providers {
			names = append(names, p)
		}
		sort.Strings(names)
		reasons = append([]string{fmt.Sprintf("providers=%s", strings.Join(names, ","))}, reasons...)
	}

	return IdentificationResult{
		Candidates:     ranked,
		Tier:           tier,
		Reasons:        reasons,
		Evidence:       ev,
		ScoringVersion: ScoringVersion,
	}, nil
}
