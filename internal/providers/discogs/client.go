// Package discogs is a thin ProviderClient backed by the Discogs database
// API. Like musicbrainz, it's a concrete default the CLI wires in; the
// wire format is an external contract outside core scope.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/resonance-core/resonance/internal/identifier"
)

const baseURL = "https://api.discogs.com"

// Client talks to the Discogs search API using a personal access token.
// Discogs has no fingerprint search of its own.
type Client struct {
	httpClient *http.Client
	token      string
	userAgent  string
	base       string
}

func New(token, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
		userAgent:  userAgent,
		base:       baseURL,
	}
}

func (c *Client) Capabilities() identifier.ProviderCapabilities {
	return identifier.ProviderCapabilities{SupportsFingerprints: false, SupportsMetadata: true}
}

func (c *Client) SearchByFingerprints(ctx context.Context, fingerprintIDs []string) ([]identifier.ProviderRelease, error) {
	return nil, fmt.Errorf("discogs: fingerprint search not supported")
}

type discogsSearchResponse struct {
	Results []discogsResult `json:"results"`
}

type discogsResult struct {
	ID    int    `json:"id"`
	Title string `json:"title"` // "Artist - Album"
	Year  string `json:"year"`
}

type discogsReleaseDetail struct {
	Tracklist []struct {
		Position string `json:"position"`
		Title    string `json:"title"`
		Duration string `json:"duration"` // "mm:ss"
	} `json:"tracklist"`
}

func (c *Client) SearchByMetadata(ctx context.Context, artistHint, albumHint string) ([]identifier.ProviderRelease, error) {
	if artistHint == "" && albumHint == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("type", "release")
	if artistHint != "" {
		q.Set("artist", artistHint)
	}
	if albumHint != "" {
		q.Set("release_title", albumHint)
	}
	q.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/database/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discogs: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discogs: unexpected status %d", resp.StatusCode)
	}

	var parsed discogsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("discogs: decode search response: %w", err)
	}

	out := make([]identifier.ProviderRelease, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, identifier.ProviderRelease{
			Provider:  "discogs",
			ReleaseID: fmt.Sprintf("%d", r.ID),
			Title:     r.Title,
		})
	}
	return out, nil
}

// FetchTracklist fills in a release's track listing via the release detail
// endpoint. Search results alone don't carry per-track data; callers that
// need scoring-quality track evidence should call this before handing the
// release to the identifier.
func (c *Client) FetchTracklist(ctx context.Context, releaseID string) ([]identifier.ProviderTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/releases/%s?token=%s", c.base, releaseID, c.token), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discogs: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discogs: unexpected status %d", resp.StatusCode)
	}

	var detail discogsReleaseDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("discogs: decode release detail: %w", err)
	}

	tracks := make([]identifier.ProviderTrack, 0, len(detail.Tracklist))
	for i, t := range detail.Tracklist {
		tracks = append(tracks, identifier.ProviderTrack{
			Position:        i + 1,
			Title:           t.Title,
			DurationSeconds: parseMMSS(t.Duration),
		})
	}
	return tracks, nil
}

func parseMMSS(s string) int {
	var m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d", &m, &sec); err != nil {
		return 0
	}
	return m*60 + sec
}
