// Package musicbrainz is a thin ProviderClient backed by the MusicBrainz
// web service. The wire format itself is an external, documented contract
// (out of core scope per the organizer's non-goals); this client's job is
// only to satisfy identifier.ProviderClient so the core can be exercised
// against a real metadata source, and to stay fully fake-able in tests.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/resonance-core/resonance/internal/identifier"
)

const baseURL = "https://musicbrainz.org/ws/2"

// Client talks to the MusicBrainz search API. It does not support
// fingerprint search — AcoustID is a separate service — only metadata
// lookups by artist/album.
type Client struct {
	httpClient *http.Client
	userAgent  string
	base       string
}

// New builds a MusicBrainz client. userAgent must identify the calling
// application per MusicBrainz's API etiquette policy; requests without one
// are liable to be rate-limited harder.
func New(userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  userAgent,
		base:       baseURL,
	}
}

func (c *Client) Capabilities() identifier.ProviderCapabilities {
	return identifier.ProviderCapabilities{SupportsFingerprints: false, SupportsMetadata: true}
}

func (c *Client) SearchByFingerprints(ctx context.Context, fingerprintIDs []string) ([]identifier.ProviderRelease, error) {
	return nil, fmt.Errorf("musicbrainz: fingerprint search not supported")
}

type mbReleaseGroupResponse struct {
	Releases []mbRelease `json:"releases"`
}

type mbRelease struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Date   string   `json:"date"`
	Media  []mbMedia `json:"media"`
	Credit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
}

type mbMedia struct {
	Tracks []mbTrack `json:"tracks"`
}

type mbTrack struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Length   int    `json:"length"` // milliseconds
}

func (c *Client) SearchByMetadata(ctx context.Context, artistHint, albumHint string) ([]identifier.ProviderRelease, error) {
	q := url.Values{}
	query := ""
	if albumHint != "" {
		query += fmt.Sprintf(`release:"%s"`, albumHint)
	}
	if artistHint != "" {
		if query != "" {
			query += " AND "
		}
		query += fmt.Sprintf(`artist:"%s"`, artistHint)
	}
	if query == "" {
		return nil, nil
	}
	q.Set("query", query)
	q.Set("fmt", "json")
	q.Set("inc", "recordings+artist-credits")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/release?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz: unexpected status %d", resp.StatusCode)
	}

	var parsed mbReleaseGroupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("musicbrainz: decode response: %w", err)
	}

	out := make([]identifier.ProviderRelease, 0, len(parsed.Releases))
	for _, r := range parsed.Releases {
		out = append(out, convertRelease(r))
	}
	return out, nil
}

func convertRelease(r mbRelease) identifier.ProviderRelease {
	artist := ""
	if len(r.Credit) > 0 {
		artist = r.Credit[0].Name
	}

	var tracks []identifier.ProviderTrack
	for _, medium := range r.Media {
		for _, t := range medium.Tracks {
			dur := 0
			if t.Length > 0 {
				dur = (t.Length + 500) / 1000
			}
			tracks = append(tracks, identifier.ProviderTrack{
				Position:        t.Position,
				Title:           t.Title,
				DurationSeconds: dur,
			})
		}
	}

	year := 0
	if len(r.Date) >= 4 {
		fmt.Sscanf(r.Date[:4], "%d", &year)
	}

	return identifier.ProviderRelease{
		Provider:  "musicbrainz",
		ReleaseID: r.ID,
		Title:     r.Title,
		Artist:    artist,
		Tracks:    tracks,
		Year:      year,
	}
}
