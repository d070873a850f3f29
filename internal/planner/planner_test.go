package planner

import (
	"strings"
	"testing"

	"github.com/resonance-core/resonance/internal/identifier"
)

func TestBuildPlanRegularAlbumLayout(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Abbey Road",
		Artist: "The Beatles",
		Year:   1969,
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Come Together"},
			{Position: 2, Title: "Something"},
		},
	}
	plan, err := BuildPlan("dir-1", rel, []string{"a.flac", "b.flac"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plan.Tracks[0].DestPath, "The Beatles/1969 - Abbey Road/") {
		t.Fatalf("unexpected destination: %s", plan.Tracks[0].DestPath)
	}
	if !strings.HasSuffix(plan.Tracks[0].DestPath, "01 - Come Together.flac") {
		t.Fatalf("unexpected filename: %s", plan.Tracks[0].DestPath)
	}
}

func TestBuildPlanCompilationUsesVariousArtists(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Now That's What I Call Music",
		Artist: "Various Artists",
		Year:   2001,
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Track One"},
			{Position: 2, Title: "Track Two"},
			{Position: 3, Title: "Track Three"},
		},
	}
	plan, err := BuildPlan("dir-1", rel, []string{"a.mp3", "b.mp3", "c.mp3"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plan.Tracks[0].DestPath, "Various Artists/") {
		t.Fatalf("expected Various Artists prefix, got %s", plan.Tracks[0].DestPath)
	}
	// The literal tag is the only compilation trigger; composer diversity
	// alone must never produce it (see TestBuildPlanMultiComposerClassicalFallsBackToPerformer).
}

func TestBuildPlanSingleComposerClassicalUsesComposerFolder(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "The Four Seasons",
		Artist: "Berlin Philharmonic",
		Year:   1995,
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Spring", Composer: "Antonio Vivaldi"},
			{Position: 2, Title: "Summer", Composer: "Antonio Vivaldi"},
		},
	}
	plan, err := BuildPlan("dir-1", rel, []string{"a.flac", "b.flac"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plan.Tracks[0].DestPath, "Antonio Vivaldi/1995 - The Four Seasons/Berlin Philharmonic/") {
		t.Fatalf("expected Composer/Album/Performer layout, got %s", plan.Tracks[0].DestPath)
	}
}

func TestBuildPlanMultiComposerClassicalFallsBackToPerformer(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Great Piano Works",
		Artist: "Lang Lang",
		Year:   2010,
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Moonlight Sonata", Composer: "Ludwig van Beethoven"},
			{Position: 2, Title: "Clair de Lune", Composer: "Claude Debussy"},
		},
	}
	plan, err := BuildPlan("dir-1", rel, []string{"a.flac", "b.flac"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plan.Tracks[0].DestPath, "Lang Lang/2010 - Great Piano Works/") {
		t.Fatalf("expected Performer/Album fallback for multi-composer classical, got %s", plan.Tracks[0].DestPath)
	}
}

func TestBuildPlanCompilationWithSingleComposerUsesComposerFolder(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title:  "Glenn Gould Plays Bach",
		Artist: "Various Artists",
		Year:   1981,
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Goldberg Variations", Composer: "Johann Sebastian Bach"},
			{Position: 2, Title: "Partita No. 2", Composer: "Johann Sebastian Bach"},
		},
	}
	plan, err := BuildPlan("dir-1", rel, []string{"a.flac", "b.flac"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plan.Tracks[0].DestPath, "Johann Sebastian Bach/1981 - Glenn Gould Plays Bach/") {
		t.Fatalf("expected a compilation with a single shared composer to still use the composer folder, got %s", plan.Tracks[0].DestPath)
	}
}

func TestBuildPlanRejectsMismatchedTrackCount(t *testing.T) {
	rel := identifier.ProviderRelease{Tracks: []identifier.ProviderTrack{{Position: 1, Title: "X"}}}
	_, err := BuildPlan("dir-1", rel, nil, DefaultConfig())
	if err == nil {
		t.Fatal("expected error on mismatched source path count")
	}
}

func TestBuildPlanDetectsCollision(t *testing.T) {
	rel := identifier.ProviderRelease{
		Title: "Album",
		Tracks: []identifier.ProviderTrack{
			{Position: 1, Title: "Same Title"},
			{Position: 1, Title: "Same Title"},
		},
	}
	_, err := BuildPlan("dir-1", rel, []string{"a.flac", "b.flac"}, DefaultConfig())
	if err == nil {
		t.Fatal("expected a planning conflict when two tracks resolve to the same destination")
	}
}

func TestSanitizePathComponentStripsIllegalChars(t *testing.T) {
	got := SanitizePathComponent(`Weird: Name / With * Chars?`)
	for _, bad := range []string{":", "/", "*", "?"} {
		if strings.Contains(got, bad) {
			t.Fatalf("sanitized component still contains %q: %s", bad, got)
		}
	}
}

func TestSanitizePathComponentGuardsReservedNames(t *testing.T) {
	got := SanitizePathComponent("CON")
	if got == "CON" {
		t.Fatal("expected reserved device name to be escaped")
	}
}
