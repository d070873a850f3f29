package applier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/resonance-core/resonance/internal/planner"
	"github.com/resonance-core/resonance/internal/tagpatch"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyMovesFilesAndWritesSidecars(t *testing.T) {
	srcDir := t.TempDir()
	libRoot := t.TempDir()

	src1 := writeTempFile(t, srcDir, "a.flac", "audio-a")
	src2 := writeTempFile(t, srcDir, "b.flac", "audio-b")

	plan := planner.Plan{
		DirID: "dir-1",
		Tracks: []planner.TrackPlan{
			{SourcePath: src1, DestPath: filepath.Join("Artist", "Album", "01 - A.flac")},
			{SourcePath: src2, DestPath: filepath.Join("Artist", "Album", "02 - B.flac")},
		},
	}
	patches := []tagpatch.Patch{{"title": "A"}, {"title": "B"}}

	a := New(libRoot, metaJSONWriter{}, nil, nil)
	report, err := a.Apply(plan, patches, false)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(report.Moved) != 2 {
		t.Fatalf("expected 2 moved files, got %d", len(report.Moved))
	}

	dest1 := filepath.Join(libRoot, "Artist", "Album", "01 - A.flac")
	if _, err := os.Stat(dest1); err != nil {
		t.Fatalf("expected moved file to exist: %v", err)
	}
	if _, err := os.Stat(src1); !os.IsNotExist(err) {
		t.Fatalf("expected source file to be gone after move")
	}
	if _, err := os.Stat(dest1 + ".meta.json"); err != nil {
		t.Fatalf("expected sidecar next to moved file: %v", err)
	}
}

func TestApplyRejectsExistingDestinationBeforeMoving(t *testing.T) {
	srcDir := t.TempDir()
	libRoot := t.TempDir()

	src1 := writeTempFile(t, srcDir, "a.flac", "audio-a")
	src2 := writeTempFile(t, srcDir, "b.flac", "audio-b")

	// Pre-create the second destination so the stage conflict check fails
	// before any file is moved, proving nothing gets half-applied.
	dest2 := filepath.Join(libRoot, "Artist", "Album", "02 - B.flac")
	if err := os.MkdirAll(filepath.Dir(dest2), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest2, []byte("already there"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan := planner.Plan{
		DirID: "dir-1",
		Tracks: []planner.TrackPlan{
			{SourcePath: src1, DestPath: filepath.Join("Artist", "Album", "01 - A.flac")},
			{SourcePath: src2, DestPath: filepath.Join("Artist", "Album", "02 - B.flac")},
		},
	}
	patches := []tagpatch.Patch{{"title": "A"}, {"title": "B"}}

	a := New(libRoot, metaJSONWriter{}, nil, nil)
	_, err := a.Apply(plan, patches, false)
	if err == nil {
		t.Fatal("expected apply to fail on a pre-existing destination")
	}
	if _, err := os.Stat(src1); err != nil {
		t.Fatalf("expected source file to remain in place since the conflict was caught before any move: %v", err)
	}
}

func TestApplyDryRunMovesNothing(t *testing.T) {
	srcDir := t.TempDir()
	libRoot := t.TempDir()
	src1 := writeTempFile(t, srcDir, "a.flac", "audio-a")

	plan := planner.Plan{
		DirID:  "dir-1",
		Tracks: []planner.TrackPlan{{SourcePath: src1, DestPath: filepath.Join("Artist", "Album", "01 - A.flac")}},
	}
	patches := []tagpatch.Patch{{"title": "A"}}

	a := New(libRoot, metaJSONWriter{}, nil, nil)
	if _, err := a.Apply(plan, patches, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src1); err != nil {
		t.Fatal("dry run must not move the source file")
	}
}
