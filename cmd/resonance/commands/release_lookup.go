package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/identifier"
	"github.com/resonance-core/resonance/internal/scanner"
	"github.com/resonance-core/resonance/internal/statestore"
)

// listAudioFiles returns the sorted audio file paths directly under dir,
// mirroring the ordering the scanner itself would have produced.
func listAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrFilesystemDenied, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if scanner.DefaultExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// resolvePinnedRelease re-derives the full ProviderRelease a directory was
// pinned to, so planning has a track list to build destinations from. The
// state store only persists provider+release_id, not the release's track
// metadata, so this re-queries the provider(s) by the same hints
// identification would have used and picks out the matching release.
//
// When the pin came from the musicbrainz_albumid tag shortcut, no provider
// search is guaranteed to surface that exact release (the shortcut never
// ran one) — a synthetic release is built from the tracks' own tags
// instead, with track order decided by directory listing order.
func resolvePinnedRelease(ctx context.Context, a *app, rec statestore.DirectoryRecord, sourcePaths []string) (identifier.ProviderRelease, error) {
	ev, err := a.extractor.ExtractDirectoryEvidence(sourcePaths)
	if err != nil {
		return identifier.ProviderRelease{}, fmt.Errorf("release lookup: extracting evidence: %w", err)
	}

	artistHint := firstTag(ev, "albumartist", "artist")
	albumHint := firstTag(ev, "album")

	var candidates []identifier.ProviderRelease
	if ev.HasFingerprints() && a.client.Capabilities().SupportsFingerprints {
		ids := make([]string, 0, len(ev.Tracks))
		for _, t := range ev.Tracks {
			if t.FingerprintID != "" {
				ids = append(ids, t.FingerprintID)
			}
		}
		if found, err := a.client.SearchByFingerprints(ctx, ids); err == nil {
			candidates = append(candidates, found...)
		}
	}
	if albumHint != "" || artistHint != "" {
		if found, err := a.client.SearchByMetadata(ctx, artistHint, albumHint); err == nil {
			candidates = append(candidates, found...)
		}
	}

	for _, c := range candidates {
		if c.Provider == rec.PinnedProvider && c.ReleaseID == rec.PinnedReleaseID {
			sorted := append([]identifier.ProviderTrack(nil), c.Tracks...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
			c.Tracks = sorted
			return c, nil
		}
	}

	a.log.Warnf("release lookup: %s/%s not found via provider re-query for %s; falling back to tag-derived release",
		rec.PinnedProvider, rec.PinnedReleaseID, rec.Path)
	return syntheticReleaseFromTags(rec, ev, artistHint, albumHint), nil
}

func firstTag(ev evidence.DirectoryEvidence, keys ...string) string {
	for _, t := range ev.Tracks {
		for _, k := range keys {
			if v := t.ExistingTags[k]; v != "" {
				return v
			}
		}
	}
	return ""
}

// syntheticReleaseFromTags builds a best-effort ProviderRelease directly
// from each track's own tags, used only when the pinned release can't be
// re-fetched from any provider (the musicbrainz_albumid tag shortcut, or a
// provider that's gone offline since resolution).
func syntheticReleaseFromTags(rec statestore.DirectoryRecord, ev evidence.DirectoryEvidence, artistHint, albumHint string) identifier.ProviderRelease {
	tracks := make([]identifier.ProviderTrack, len(ev.Tracks))
	for i, t := range ev.Tracks {
		pos := i + 1
		if n, err := strconv.Atoi(t.ExistingTags["tracknumber"]); err == nil && n > 0 {
			pos = n
		}
		title := t.ExistingTags["title"]
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(t.Path), filepath.Ext(t.Path))
		}
		tracks[i] = identifier.ProviderTrack{
			Position:        pos,
			Title:           title,
			DurationSeconds: t.DurationSeconds,
			FingerprintID:   t.FingerprintID,
			Composer:        t.ExistingTags["composer"],
		}
	}

	return identifier.ProviderRelease{
		Provider:  rec.PinnedProvider,
		ReleaseID: rec.PinnedReleaseID,
		Title:     albumHint,
		Artist:    artistHint,
		Tracks:    tracks,
	}
}
