// Package tagpatch builds the authoritative tag values to write for a
// resolved, planned directory. Building a patch never touches a file —
// internal/applier is the only package that writes tags to disk.
package tagpatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/resonance-core/resonance/internal/identifier"
)

// Patch is the set of tag values to write for one track, keyed by the
// canonical lowercase tag name every writer backend
// understands. Writer backends translate these into their own container's
// key spelling.
type Patch map[string]string

// ResolvedState is the slice of a directory's pinned resolution record the
// tag-patch builder needs. It mirrors statestore.DirectoryRecord's
// PinnedProvider/PinnedReleaseID fields without importing internal/statestore,
// keeping this package a pure function of its arguments.
type ResolvedState struct {
	PinnedProvider  string
	PinnedReleaseID string
}

// BuildPatches computes one Patch per track in rel, in the same order as
// rel.Tracks. now is the injected clock used for resonance.prov.resolved_at
// so a patch built twice from the same inputs at different wall-clock
// times is the only thing that can make it differ — callers that need a
// reproducible patch (tests, re-applies) pass a fixed now.
func BuildPatches(rel identifier.ProviderRelease, resolved ResolvedState, now func() time.Time) []Patch {
	compilation := isCompilationLike(rel)
	resolvedAt := now().UTC().Format(time.RFC3339)

	patches := make([]Patch, len(rel.Tracks))
	for i, t := range rel.Tracks {
		p := Patch{
			"title":       t.Title,
			"tracknumber": fmt.Sprintf("%d", t.Position),
			"album":       rel.Title,
		}
		if rel.Year > 0 {
			p["date"] = fmt.Sprintf("%04d", rel.Year)
		}
		if t.DiscNumber > 0 {
			p["discnumber"] = fmt.Sprintf("%d", t.DiscNumber)
		}
		if t.Composer != "" {
			p["composer"] = t.Composer
		}
		if resolved.PinnedProvider == "musicbrainz" && resolved.PinnedReleaseID != "" {
			p["musicbrainz_albumid"] = resolved.PinnedReleaseID
		}
		if t.RecordingID != "" {
			p["musicbrainz_recordingid"] = t.RecordingID
		}

		// Provenance: who pinned this directory's release and when, so a
		// later audit never has to guess why a file landed where it did.
		if resolved.PinnedReleaseID != "" {
			p["resonance.prov.pinned_release_id"] = resolved.PinnedReleaseID
		}
		if resolved.PinnedProvider != "" {
			p["resonance.prov.resolved_by"] = resolved.PinnedProvider
		}
		p["resonance.prov.resolved_at"] = resolvedAt

		switch {
		case compilation:
			p["albumartist"] = "Various Artists"
			if t.Composer != "" {
				p["artist"] = t.Composer
			}
		default:
			p["artist"] = rel.Artist
			p["albumartist"] = rel.Artist
		}

		patches[i] = p
	}
	return patches
}

// isCompilationLike mirrors internal/planner's compilation trigger: the
// literal "Various Artists" album-artist tag, not composer diversity.
func isCompilationLike(rel identifier.ProviderRelease) bool {
	return strings.EqualFold(strings.TrimSpace(rel.Artist), "Various Artists")
}

// JoinMultiValued joins multiple values for a single tag key the way the
// mutagen backend requires: multi-valued tags are not natively supported
// by every container, so values are joined on ";" before writing.
func JoinMultiValued(values []string) string {
	return strings.Join(values, ";")
}
