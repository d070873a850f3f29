package resolver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/identifier"
	"github.com/resonance-core/resonance/internal/statestore"
)

type fakeClient struct {
	caps       identifier.ProviderCapabilities
	byMetadata []identifier.ProviderRelease
}

func (f fakeClient) Capabilities() identifier.ProviderCapabilities { return f.caps }
func (f fakeClient) SearchByFingerprints(ctx context.Context, ids []string) ([]identifier.ProviderRelease, error) {
	return nil, nil
}
func (f fakeClient) SearchByMetadata(ctx context.Context, artist, album string) ([]identifier.ProviderRelease, error) {
	return f.byMetadata, nil
}

func openStore(t *testing.T) *statestore.Store {
	t.Helper()
	s, err := statestore.Open(filepath.Join(t.TempDir(), "state.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolveDirectoryMusicBrainzTagShortcut(t *testing.T) {
	store := openStore(t)
	ev := evidence.DirectoryEvidence{
		TrackCount: 1,
		Tracks: []evidence.TrackEvidence{
			{ExistingTags: map[string]string{"musicbrainz_albumid": "mb-release-1"}},
		},
	}
	client := fakeClient{caps: identifier.ProviderCapabilities{SupportsMetadata: true}}

	out, err := ResolveDirectory(context.Background(), "dir-1", "/music/a", "sig-1", 1, ev, store, client, identifier.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if out.State != statestore.StateResolvedAuto {
		t.Fatalf("expected RESOLVED_AUTO, got %s", out.State)
	}
	if out.PinnedReleaseID != "mb-release-1" {
		t.Fatalf("expected pinned release mb-release-1, got %s", out.PinnedReleaseID)
	}
}

func TestResolveDirectoryNeverReMatchesResolved(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetOrCreate("dir-1", "/music/a", "sig-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.SetState("dir-1", statestore.StateResolvedUser, statestore.SetStateOpts{
		PinnedProvider: "discogs", PinnedReleaseID: "manual-pin",
	}); err != nil {
		t.Fatal(err)
	}

	client := fakeClient{caps: identifier.ProviderCapabilities{SupportsMetadata: true},
		byMetadata: []identifier.ProviderRelease{{ReleaseID: "different-release"}}}

	out, err := ResolveDirectory(context.Background(), "dir-1", "/music/a", "sig-1", 1, evidence.DirectoryEvidence{}, store, client, identifier.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if out.PinnedReleaseID != "manual-pin" {
		t.Fatalf("resolved directory must never be re-matched, got pinned release %s", out.PinnedReleaseID)
	}
}

func TestResolveDirectoryJailedSkipsProvider(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetOrCreate("dir-1", "/music/a", "sig-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Jail("dir-1"); err != nil {
		t.Fatal(err)
	}

	client := fakeClient{caps: identifier.ProviderCapabilities{SupportsMetadata: true}}
	out, err := ResolveDirectory(context.Background(), "dir-1", "/music/a", "sig-1", 1, evidence.DirectoryEvidence{}, store, client, identifier.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if out.State != statestore.StateJailed {
		t.Fatalf("expected JAILED to remain JAILED, got %s", out.State)
	}
}

func TestResolveDirectoryQueuesOnUnsureTier(t *testing.T) {
	store := openStore(t)
	ev := evidence.DirectoryEvidence{
		TrackCount: 1,
		Tracks:     []evidence.TrackEvidence{{ExistingTags: map[string]string{"artist": "Some Artist"}}},
	}
	client := fakeClient{caps: identifier.ProviderCapabilities{SupportsMetadata: true}}

	out, err := ResolveDirectory(context.Background(), "dir-1", "/music/a", "sig-1", 1, ev, store, client, identifier.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if out.State != statestore.StateQueuedPrompt || !out.NeedsPrompt {
		t.Fatalf("expected QUEUED_PROMPT with needs_prompt, got %s (needsPrompt=%v)", out.State, out.NeedsPrompt)
	}
}
