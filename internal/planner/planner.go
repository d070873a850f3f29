// Package planner computes destination paths for a resolved directory's
// tracks, without touching the filesystem (tag values are built separately
// by internal/tagpatch). Planning
// is pure and re-runnable: the same pinned release and track evidence
// always produce the same plan.
package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/resonance-core/resonance/internal/canonicalize"
	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/identifier"
)

// ConflictPolicy controls what happens when two planned destinations
// collide. Only FAIL is implemented — RENAME is parsed by config but
// rejected at load time (see internal/config).
type ConflictPolicy string

const ConflictPolicyFail ConflictPolicy = "FAIL"

// TrackPlan is the destination for one source audio file.
type TrackPlan struct {
	SourcePath string
	DestPath   string // relative to the library root
	Track      identifier.ProviderTrack
}

// Plan is the full output for one directory: the album folder and every
// track's destination, each with the provider track it was planned from.
type Plan struct {
	DirID       string
	AlbumFolder string
	Tracks      []TrackPlan
}

// Config controls folder naming.
type Config struct {
	IncludeYear bool
	// IncludePerformerSubdir adds a trailing performer-named folder under
	// a single-composer classical release's Composer/Album folder.
	IncludePerformerSubdir bool
	ConflictPolicy         ConflictPolicy
	Canonicalizer          *canonicalize.Canonicalizer
}

func DefaultConfig() Config {
	return Config{
		IncludeYear:            true,
		IncludePerformerSubdir: true,
		ConflictPolicy:         ConflictPolicyFail,
		Canonicalizer:          canonicalize.New(nil),
	}
}

// isCompilation reports whether a release's album-artist is the literal
// "Various Artists" tag — the only compilation trigger; composer diversity
// is a classical-music signal, not a compilation one.
func isCompilation(rel identifier.ProviderRelease) bool {
	return strings.EqualFold(strings.TrimSpace(rel.Artist), "Various Artists")
}

// classicalComposer reports whether a release is classical — a majority of
// tracks carry a non-empty composer tag — and, when it is, whether every
// one of those tracks shares the same composer. A shared single composer
// takes the composer folder even on a release that's also a compilation;
// several distinct composers means the layout falls back to the
// performing artist instead.
func classicalComposer(rel identifier.ProviderRelease) (composer string, classical bool, single bool) {
	if len(rel.Tracks) == 0 {
		return "", false, false
	}
	counts := make(map[string]int)
	present := 0
	for _, t := range rel.Tracks {
		c := strings.TrimSpace(t.Composer)
		if c == "" {
			continue
		}
		present++
		counts[c]++
	}
	if present*2 <= len(rel.Tracks) {
		return "", false, false
	}
	if len(counts) == 1 {
		for c := range counts {
			composer = c
		}
		return composer, true, true
	}
	return "", true, false
}

func albumFolder(title string, year int, cfg Config) string {
	name := SanitizePathComponent(title)
	if !cfg.IncludeYear {
		return name
	}
	yearStr := "0000"
	if year > 0 {
		yearStr = fmt.Sprintf("%04d", year)
	}
	return fmt.Sprintf("%s - %s", yearStr, name)
}

// BuildPlan computes the destination layout for rel's tracks, matched
// against the given source paths in track order (sourcePaths[i]
// corresponds to rel.Tracks[i]).
func BuildPlan(dirID string, rel identifier.ProviderRelease, sourcePaths []string, cfg Config) (Plan, error) {
	if len(sourcePaths) != len(rel.Tracks) {
		return Plan{}, fmt.Errorf("%w: planner: %d source paths but %d tracks", errs.ErrInvalidInput, len(sourcePaths), len(rel.Tracks))
	}

	compilation := isCompilation(rel)
	composer, classical, singleComposer := classicalComposer(rel)

	var artistSegment, performerSeg string
	switch {
	case classical && singleComposer:
		artistSegment = canonicalize.Canonicalize(cfg.Canonicalizer, composer, "composer")
		if cfg.IncludePerformerSubdir && rel.Artist != "" && !compilation {
			performerSeg = canonicalize.Canonicalize(cfg.Canonicalizer, rel.Artist, "performer")
		}
	case classical:
		// Multiple distinct composers: fall back to the performing artist.
		artistSegment = canonicalize.Canonicalize(cfg.Canonicalizer, rel.Artist, "performer")
	case compilation:
		artistSegment = "Various Artists"
	default:
		artistSegment = canonicalize.Canonicalize(cfg.Canonicalizer, rel.Artist, "artist")
	}
	if artistSegment == "" {
		artistSegment = "Unknown Artist"
	}

	folder := albumFolder(rel.Title, rel.Year, cfg)

	tracks := make([]TrackPlan, len(rel.Tracks))
	for i, t := range rel.Tracks {
		ext := filepath.Ext(sourcePaths[i])
		var discSeg string
		if t.DiscNumber > 1 {
			discSeg = fmt.Sprintf("Disc %02d", t.DiscNumber)
		}

		var filename string
		if compilation && !classical {
			filename = trackFilename(t.Position, t.Title, rel.Artist, ext)
		} else {
			filename = trackFilename(t.Position, t.Title, "", ext)
		}

		parts := []string{SanitizePathComponent(artistSegment), SanitizePathComponent(folder)}
		if discSeg != "" {
			parts = append(parts, SanitizePathComponent(discSeg))
		}
		if performerSeg != "" {
			parts = append(parts, SanitizePathComponent(performerSeg))
		}
		parts = append(parts, filename)

		tracks[i] = TrackPlan{
			SourcePath: sourcePaths[i],
			DestPath:   filepath.Join(parts...),
			Track:      t,
		}
	}

	if err := detectCollisions(tracks, cfg.ConflictPolicy); err != nil {
		return Plan{}, err
	}

	return Plan{DirID: dirID, AlbumFolder: folder, Tracks: tracks}, nil
}

func trackFilename(position int, title, performer, ext string) string {
	name := SanitizePathComponent(title)
	if performer != "" {
		name = fmt.Sprintf("%s - %s", SanitizePathComponent(performer), name)
	}
	return fmt.Sprintf("%02d - %s%s", position, name, ext)
}

// detectCollisions checks for two tracks rendering to the same destination
// path (case-insensitively, since many target filesystems are
// case-insensitive). Only the FAIL policy is implemented: a collision is
// always an error, never auto-renamed.
func detectCollisions(tracks []TrackPlan, policy ConflictPolicy) error {
	if policy != ConflictPolicyFail {
		return fmt.Errorf("%w: planner: conflict policy %q is not implemented", errs.ErrUnsupportedSettings, policy)
	}
	seen := make(map[string]string)
	for _, tp := range tracks {
		key := normalizedDestKey(tp.DestPath)
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q both resolve to %q", errs.ErrPlanningConflict, existing, tp.SourcePath, tp.DestPath)
		}
		seen[key] = tp.SourcePath
	}
	return nil
}

func normalizedDestKey(destPath string) string {
	return strings.ToLower(filepath.ToSlash(destPath))
}
