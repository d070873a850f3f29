package tagpatch

import (
	"testing"
	"time"

	"github.com/resonance-core/resonance/internal/identifier"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestBuildPatchesWritesProvenanceKeys(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Abbey Road",
		Artist: "The Beatles",
		Year:   1969,
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Come Together", RecordingID: "rec-1"},
		},
	}
	resolved := ResolvedState{PinnedProvider: "musicbrainz", PinnedReleaseID: "release-1"}

	patches := BuildPatches(rel, resolved, fixedNow)
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(patches))
	}
	p := patches[0]

	if got := p["resonance.prov.pinned_release_id"]; got != "release-1" {
		t.Fatalf("resonance.prov.pinned_release_id = %q, want release-1", got)
	}
	if got := p["resonance.prov.resolved_by"]; got != "musicbrainz" {
		t.Fatalf("resonance.prov.resolved_by = %q, want musicbrainz", got)
	}
	if got := p["resonance.prov.resolved_at"]; got != "2026-01-02T03:04:05Z" {
		t.Fatalf("resonance.prov.resolved_at = %q, want 2026-01-02T03:04:05Z", got)
	}
	if got := p["musicbrainz_recordingid"]; got != "rec-1" {
		t.Fatalf("musicbrainz_recordingid = %q, want rec-1", got)
	}
	if got := p["musicbrainz_albumid"]; got != "release-1" {
		t.Fatalf("musicbrainz_albumid = %q, want release-1", got)
	}
}

func TestBuildPatchesOmitsAlbumIDForNonMusicBrainzProvider(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Some Album",
		Artist: "Some Artist",
		Tracks: []identifier.ProviderTrack{{Position: 1, Title: "Track One", RecordingID: "rec-1"}},
	}
	resolved := ResolvedState{PinnedProvider: "discogs", PinnedReleaseID: "discogs-release-1"}

	patches := BuildPatches(rel, resolved, fixedNow)
	p := patches[0]

	if _, ok := p["musicbrainz_albumid"]; ok {
		t.Fatalf("musicbrainz_albumid must not be written for a discogs-pinned release, got %q", p["musicbrainz_albumid"])
	}
	if got := p["resonance.prov.resolved_by"]; got != "discogs" {
		t.Fatalf("resonance.prov.resolved_by = %q, want discogs", got)
	}
	if got := p["resonance.prov.pinned_release_id"]; got != "discogs-release-1" {
		t.Fatalf("resonance.prov.pinned_release_id = %q, want discogs-release-1", got)
	}
}

func TestBuildPatchesCompilationUsesVariousArtistsAlbumArtist(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Now That's What I Call Music",
		Artist: "Various Artists",
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Track One", Composer: "Some Composer"},
		},
	}
	resolved := ResolvedState{PinnedProvider: "musicbrainz", PinnedReleaseID: "release-1"}

	patches := BuildPatches(rel, resolved, fixedNow)
	p := patches[0]

	if got := p["albumartist"]; got != "Various Artists" {
		t.Fatalf("albumartist = %q, want Various Artists", got)
	}
	if got := p["artist"]; got != "Some Composer" {
		t.Fatalf("artist = %q, want Some Composer (per-track composer on a compilation)", got)
	}
}

func TestBuildPatchesRegularReleaseUsesArtistForBoth(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Abbey Road",
		Artist: "The Beatles",
		Tracks: []identifier.ProviderTrack{{Position: 1, Title: "Come Together"}},
	}
	resolved := ResolvedState{PinnedProvider: "musicbrainz", PinnedReleaseID: "release-1"}

	patches := BuildPatches(rel, resolved, fixedNow)
	p := patches[0]

	if got := p["artist"]; got != "The Beatles" {
		t.Fatalf("artist = %q, want The Beatles", got)
	}
	if got := p["albumartist"]; got != "The Beatles" {
		t.Fatalf("albumartist = %q, want The Beatles", got)
	}
}
