package identifier

import (
	"context"
	"errors"
	"testing"

	"github.com/resonance-core/resonance/internal/evidence"
)

type fakeClient struct {
	caps          ProviderCapabilities
	byFingerprint []ProviderRelease
	byMetadata    []ProviderRelease
	err           error
}

func (f fakeClient) Capabilities() ProviderCapabilities { return f.caps }

func (f fakeClient) SearchByFingerprints(ctx context.Context, ids []string) ([]ProviderRelease, error) {
	return f.byFingerprint, f.err
}

func (f fakeClient) SearchByMetadata(ctx context.Context, artist, album string) ([]ProviderRelease, error) {
	return f.byMetadata, f.err
}

func mkEvidence(trackCount, totalDuration int, tags map[string]string) evidence.DirectoryEvidence {
	tracks := make([]evidence.TrackEvidence, trackCount)
	for i := range tracks {
		tracks[i] = evidence.TrackEvidence{ExistingTags: map[string]string{}}
	}
	if len(tracks) > 0 {
		tracks[0].ExistingTags = tags
	}
	return evidence.DirectoryEvidence{Tracks: tracks, TrackCount: trackCount, TotalDurationSeconds: totalDuration}
}

func TestCalculateTierCertain(t *testing.T) {
	th := DefaultThresholds()
	ev := mkEvidence(10, 2400, nil)
	rel := ProviderRelease{Provider: "musicbrainz", ReleaseID: "r1", Tracks: make([]ProviderTrack, 10)}
	for i := range rel.Tracks {
		fp := "fp-" + string(rune('a'+i))
		ev.Tracks[i].FingerprintID = fp
		rel.Tracks[i] = ProviderTrack{DurationSeconds: 240, FingerprintID: fp}
	}
	score := scoreRelease(ev, rel, th)
	if score.TotalScore < th.CertainMinScore {
		t.Fatalf("expected a high score for exact fingerprint/track/duration match, got %v", score.TotalScore)
	}

	tier, _ := CalculateTier([]ReleaseScore{score}, ev, th)
	if tier != TierCertain {
		t.Fatalf("expected CERTAIN tier, got %s", tier)
	}
}

func TestCalculateTierEmptyCandidates(t *testing.T) {
	tier, reasons := CalculateTier(nil, evidence.DirectoryEvidence{}, DefaultThresholds())
	if tier != TierUnsure {
		t.Fatalf("expected UNSURE for no candidates, got %s", tier)
	}
	if len(reasons) == 0 || reasons[0] != "No candidates found" {
		t.Fatalf("expected 'No candidates found' reason, got %v", reasons)
	}
}

func TestCalculateTierMultiReleaseConflict(t *testing.T) {
	th := DefaultThresholds()
	best := ReleaseScore{Release: ProviderRelease{Provider: "musicbrainz", ReleaseID: "a"}, TotalScore: 0.9}
	second := ReleaseScore{Release: ProviderRelease{Provider: "musicbrainz", ReleaseID: "b"}, TotalScore: 0.8}
	tier, reasons := CalculateTier([]ReleaseScore{best, second}, evidence.DirectoryEvidence{}, th)
	if tier != TierUnsure {
		t.Fatalf("expected UNSURE due to close scores, got %s", tier)
	}
	if len(reasons) == 0 {
		t.Fatal("expected a conflict reason")
	}
}

func TestMergeAndRankCandidatesDeterministicTiebreak(t *testing.T) {
	a := ReleaseScore{Release: ProviderRelease{Provider: "musicbrainz", ReleaseID: "z"}, TotalScore: 0.5}
	b := ReleaseScore{Release: ProviderRelease{Provider: "discogs", ReleaseID: "a"}, TotalScore: 0.5}
	ranked := MergeAndRankCandidates([]ReleaseScore{a, b})
	if ranked[0].Release.Provider != "discogs" {
		t.Fatalf("expected discogs to sort first on tied score, got %s", ranked[0].Release.Provider)
	}
}

func TestIdentifyRequiresFingerprintSupport(t *testing.T) {
	ev := mkEvidence(1, 100, nil)
	ev.Tracks[0].FingerprintID = "fp-1"
	client := fakeClient{caps: ProviderCapabilities{SupportsMetadata: true}}
	_, err := Identify(context.Background(), ev, client, DefaultThresholds())
	if err == nil {
		t.Fatal("expected an error when evidence has fingerprints but provider lacks support")
	}
}

func TestIdentifyAntiPlaceholderGuard(t *testing.T) {
	ev := mkEvidence(1, 100, map[string]string{"comment": "ripped with foo"})
	client := fakeClient{caps: ProviderCapabilities{SupportsMetadata: true}}
	_, err := Identify(context.Background(), ev, client, DefaultThresholds())
	if err == nil {
		t.Fatal("expected anti-placeholder guard to trip when tags exist but no artist/album hint")
	}
}

func TestIdentifyNoTagsSkipsMetadataSearch(t *testing.T) {
	ev := mkEvidence(1, 100, nil)
	client := fakeClient{caps: ProviderCapabilities{SupportsMetadata: true}}
	result, err := Identify(context.Background(), ev, client, DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Tier != TierUnsure {
		t.Fatalf("expected UNSURE with no candidates, got %s", result.Tier)
	}
}

func TestIdentifyPropagatesProviderError(t *testing.T) {
	ev := mkEvidence(1, 100, map[string]string{"artist": "Foo"})
	client := fakeClient{caps: ProviderCapabilities{SupportsMetadata: true}, err: errors.New("boom")}
	_, err := Identify(context.Background(), ev, client, DefaultThresholds())
	if err == nil {
		t.Fatal("expected provider error to propagate from Identify")
	}
}
