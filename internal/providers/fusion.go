package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/resonance-core/resonance/internal/identifier"
	"github.com/resonance-core/resonance/pkg/logger"
)

// NamedProvider pairs a provider client with the name fusion should stamp
// onto every release it returns, overriding whatever the client itself
// reports on Release.Provider.
type NamedProvider struct {
	Name   string
	Client identifier.ProviderClient
}

// DefaultPriority is the provider tie-break order used when two providers
// report what normalizes to the same release: musicbrainz wins over
// discogs when both match.
var DefaultPriority = []string{"musicbrainz", "discogs"}

// CombinedProviderClient fans a search out to every configured provider,
// isolates per-provider failures (a failing provider just contributes no
// candidates, it never fails the whole search), and de-duplicates the
// combined results.
type CombinedProviderClient struct {
	providers      []NamedProvider
	priorityIndex  map[string]int
	log            *logger.Logger
}

// NewCombinedProviderClient builds a fused client. priority lists provider
// names from best to worst; any provider not listed sorts after all listed
// ones. Unlisted providers all share one priority, so their results are
// ordered among themselves by release id, not by their order in named.
func NewCombinedProviderClient(named []NamedProvider, priority []string, log *logger.Logger) *CombinedProviderClient {
	if log == nil {
		log = logger.GetLogger()
	}
	idx := make(map[string]int, len(priority))
	for i, name := range priority {
		idx[name] = i
	}
	return &CombinedProviderClient{providers: named, priorityIndex: idx, log: log}
}

func (c *CombinedProviderClient) priorityOf(name string) int {
	if i, ok := c.priorityIndex[name]; ok {
		return i
	}
	return len(c.priorityIndex) + 1
}

// Capabilities ORs every underlying provider's capability flags — fusion
// supports fingerprint search if any member does, likewise for metadata.
func (c *CombinedProviderClient) Capabilities() identifier.ProviderCapabilities {
	var caps identifier.ProviderCapabilities
	for _, p := range c.providers {
		pc := p.Client.Capabilities()
		caps.SupportsFingerprints = caps.SupportsFingerprints || pc.SupportsFingerprints
		caps.SupportsMetadata = caps.SupportsMetadata || pc.SupportsMetadata
	}
	return caps
}

func (c *CombinedProviderClient) SearchByFingerprints(ctx context.Context, ids []string) ([]identifier.ProviderRelease, error) {
	releases := c.collect(func(p NamedProvider) ([]identifier.ProviderRelease, error) {
		if !p.Client.Capabilities().SupportsFingerprints {
			return nil, nil
		}
		return p.Client.SearchByFingerprints(ctx, ids)
	})
	return c.dedupeAndSort(releases), nil
}

func (c *CombinedProviderClient) SearchByMetadata(ctx context.Context, artistHint, albumHint string) ([]identifier.ProviderRelease, error) {
	releases := c.collect(func(p NamedProvider) ([]identifier.ProviderRelease, error) {
		if !p.Client.Capabilities().SupportsMetadata {
			return nil, nil
		}
		return p.Client.SearchByMetadata(ctx, artistHint, albumHint)
	})
	return c.dedupeAndSort(releases), nil
}

// collect runs fn against every provider, catching and logging per-provider
// failures instead of propagating them, and stamping each release with its
// provider's configured name.
func (c *CombinedProviderClient) collect(fn func(NamedProvider) ([]identifier.ProviderRelease, error)) []identifier.ProviderRelease {
	var all []identifier.ProviderRelease
	for _, p := range c.providers {
		rels, err := fn(p)
		if err != nil {
			c.log.Warnf("provider %s: search failed: %v", p.Name, err)
			continue
		}
		for _, r := range rels {
			r.Provider = p.Name
			all = append(all, r)
		}
	}
	return all
}

type dedupeKey struct {
	album  string
	artist string
	tracks string
}

func trackKey(tracks []identifier.ProviderTrack) string {
	parts := make([]string, len(tracks))
	for i, t := range tracks {
		id := t.FingerprintID
		if id == "" {
			id = matchKeyWork(t.Title)
		}
		parts[i] = fmt.Sprintf("%d:%s", t.Position, id)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%v", parts)
}

func releaseDedupeKey(r identifier.ProviderRelease) dedupeKey {
	album := matchKeyAlbum(r.Title)
	if album == "" {
		album = r.Title
	}
	artist := matchKeyArtist(r.Artist)
	if artist == "" {
		artist = r.Artist
	}
	return dedupeKey{album: album, artist: artist, tracks: trackKey(r.Tracks)}
}

// dedupeAndSort collapses releases that normalize to the same
// (album, artist, track set), keeping whichever provider has the better
// (lower) priority index, then sorts the survivors by priority then
// release id for a deterministic final order.
func (c *CombinedProviderClient) dedupeAndSort(releases []identifier.ProviderRelease) []identifier.ProviderRelease {
	best := make(map[dedupeKey]identifier.ProviderRelease)
	order := make([]dedupeKey, 0, len(releases))
	for _, r := range releases {
		key := releaseDedupeKey(r)
		existing, ok := best[key]
		if !ok {
			best[key] = r
			order = append(order, key)
			continue
		}
		if c.priorityOf(r.Provider) < c.priorityOf(existing.Provider) {
			best[key] = r
		}
	}

	out := make([]identifier.ProviderRelease, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := c.priorityOf(out[i].Provider), c.priorityOf(out[j].Provider)
		if pi != pj {
			return pi < pj
		}
		return out[i].ReleaseID < out[j].ReleaseID
	})
	return out
}
