package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIterDirectoriesGroupsByDirectoryAndSkipsAudiolessDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Album", "01 - Track One.mp3"), "fake-mp3")
	writeFile(t, filepath.Join(root, "Album", "02 - Track Two.mp3"), "fake-mp3")
	writeFile(t, filepath.Join(root, "Album", "cover.jpg"), "fake-image")
	writeFile(t, filepath.Join(root, "Empty", "readme.txt"), "no audio here")

	s := New()
	batches, err := s.IterDirectories([]string{root})
	if err != nil {
		t.Fatalf("IterDirectories: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch (Empty dir has no audio), got %d", len(batches))
	}
	b := batches[0]
	if len(b.AudioFiles) != 2 {
		t.Fatalf("expected 2 audio files, got %d", len(b.AudioFiles))
	}
	if len(b.NonAudioFiles) != 1 {
		t.Fatalf("expected 1 non-audio file, got %d", len(b.NonAudioFiles))
	}
	if b.DirID == "" {
		t.Fatal("expected a non-empty DirID")
	}
}

func TestIterDirectoriesIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Album", "02 - Track Two.mp3"), "b")
	writeFile(t, filepath.Join(root, "Album", "01 - Track One.mp3"), "a")

	s := New()
	first, err := s.IterDirectories([]string{root})
	if err != nil {
		t.Fatalf("IterDirectories: %v", err)
	}
	second, err := s.IterDirectories([]string{root})
	if err != nil {
		t.Fatalf("IterDirectories: %v", err)
	}
	if first[0].DirID != second[0].DirID {
		t.Fatalf("expected stable DirID across scans, got %q then %q", first[0].DirID, second[0].DirID)
	}
	if first[0].AudioFiles[0] != second[0].AudioFiles[0] {
		t.Fatal("expected audio file ordering to be stable")
	}
}

func TestShouldIncludeHonoursExcludePatterns(t *testing.T) {
	s := New(WithExcludePatterns([]string{".DS_Store", "Thumbs.db"}))
	if s.shouldInclude("/a/b/.DS_Store") {
		t.Fatal("expected .DS_Store to be excluded")
	}
	if !s.shouldInclude("/a/b/track.mp3") {
		t.Fatal("expected track.mp3 to be included")
	}
}

func TestCollectDirectoryMatchesWalkResult(t *testing.T) {
	root := t.TempDir()
	audio := filepath.Join(root, "01 - Track.mp3")
	writeFile(t, audio, "fake")

	s := New()
	walked, err := s.IterDirectories([]string{root})
	if err != nil {
		t.Fatalf("IterDirectories: %v", err)
	}
	collected, err := s.CollectDirectory(root, []string{audio}, nil)
	if err != nil {
		t.Fatalf("CollectDirectory: %v", err)
	}
	if walked[0].DirID != collected.DirID {
		t.Fatalf("expected matching DirID, got %q vs %q", walked[0].DirID, collected.DirID)
	}
}
