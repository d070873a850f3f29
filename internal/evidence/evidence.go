// Package evidence extracts the per-track and per-directory evidence the
// identifier scores against. Extraction only ever reads what's already on
// disk (existing tags, a sidecar fingerprint cache) — it never calls a
// provider and never mutates anything.
package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TrackEvidence is everything known about one audio file before any
// provider has been consulted.
type TrackEvidence struct {
	Path            string
	FingerprintID   string
	DurationSeconds int
	ExistingTags    map[string]string
}

// DirectoryEvidence aggregates the tracks found in one directory.
type DirectoryEvidence struct {
	Tracks                []TrackEvidence
	TrackCount            int
	TotalDurationSeconds  int
}

// HasFingerprints reports whether any track carries a non-empty
// fingerprint_id. The identifier requires this before calling
// SearchByFingerprints.
func (d DirectoryEvidence) HasFingerprints() bool {
	for _, t := range d.Tracks {
		if t.FingerprintID != "" {
			return true
		}
	}
	return false
}

// sidecarTags is the shape of the .meta.json sidecar's tag payload. Real
// audio containers are read through the tag-writer backends (see
// internal/applier); evidence extraction only consults the sidecar because
// that's the one format guaranteed to exist in the meta-json backend and is
// the cheapest, most deterministic source for tests and CI.
type sidecarTags struct {
	Tags            map[string]any `json:"tags"`
	FingerprintID   string         `json:"fingerprint_id"`
	DurationSeconds int            `json:"duration_seconds"`
}

func sidecarPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(audioPath, ext)
	return base + ".meta.json"
}

// readSidecar reads path's .meta.json sidecar, returning a zero value with
// no error if it does not exist — most files never have one.
func readSidecar(path string) (sidecarTags, error) {
	b, err := os.ReadFile(sidecarPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return sidecarTags{}, nil
		}
		return sidecarTags{}, err
	}
	var s sidecarTags
	if err := json.Unmarshal(b, &s); err != nil {
		return sidecarTags{}, err
	}
	return s, nil
}

// stringifyTags converts the sidecar's loosely-typed tag map into the
// string-valued map the rest of the core expects, dropping nil values and
// matching them against string forms for numbers/bools.
func stringifyTags(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = trimFloat(val)
		case bool:
			if val {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		default:
			if b, err := json.Marshal(val); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FingerprintReader computes fingerprint_id/duration straight from audio
// when the sidecar doesn't already carry them. internal/acousticfp.Reader
// is the real implementation; extraction works without one (sidecar-only)
// so tests and the meta-json backend never need real audio on disk.
type FingerprintReader interface {
	FingerprintID(path string) (string, error)
	Duration(path string) (int, error)
}

// Extractor reads track/directory evidence, optionally falling back to a
// FingerprintReader for files whose sidecar has no fingerprint_id or
// duration_seconds yet.
type Extractor struct {
	Fingerprinter FingerprintReader
}

// NewExtractor builds an Extractor backed by fingerprinter. A nil
// fingerprinter is valid and makes extraction sidecar-only.
func NewExtractor(fingerprinter FingerprintReader) Extractor {
	return Extractor{Fingerprinter: fingerprinter}
}

// ExtractTrackEvidence reads the sidecar for one audio file and returns its
// evidence. Any field the sidecar doesn't supply (fingerprint_id,
// duration_seconds) is filled in from e.Fingerprinter when one is
// configured; a fingerprinter error is non-fatal — the field is just left
// empty/zero and the identifier's fallback rules degrade scoring
// accordingly rather than failing extraction outright.
func (e Extractor) ExtractTrackEvidence(path string) (TrackEvidence, error) {
	s, err := readSidecar(path)
	if err != nil {
		return TrackEvidence{}, err
	}
	te := TrackEvidence{
		Path:            path,
		FingerprintID:   s.FingerprintID,
		DurationSeconds: s.DurationSeconds,
		ExistingTags:    stringifyTags(s.Tags),
	}
	if e.Fingerprinter == nil {
		return te, nil
	}
	if te.FingerprintID == "" {
		if id, ferr := e.Fingerprinter.FingerprintID(path); ferr == nil {
			te.FingerprintID = id
		}
	}
	if te.DurationSeconds == 0 {
		if d, ferr := e.Fingerprinter.Duration(path); ferr == nil {
			te.DurationSeconds = d
		}
	}
	return te, nil
}

// ExtractDirectoryEvidence extracts evidence for every audio path given,
// in the order provided — callers (the scanner) are responsible for a
// deterministic ordering.
func (e Extractor) ExtractDirectoryEvidence(audioPaths []string) (DirectoryEvidence, error) {
	tracks := make([]TrackEvidence, 0, len(audioPaths))
	total := 0
	for _, p := range audioPaths {
		te, err := e.ExtractTrackEvidence(p)
		if err != nil {
			return DirectoryEvidence{}, err
		}
		tracks = append(tracks, te)
		total += te.DurationSeconds
	}
	return DirectoryEvidence{
		Tracks:               tracks,
		TrackCount:           len(tracks),
		TotalDurationSeconds: total,
	}, nil
}

// ExtractTrackEvidence is the sidecar-only convenience form of
// Extractor.ExtractTrackEvidence, for callers with no fingerprinter.
func ExtractTrackEvidence(path string) (TrackEvidence, error) {
	return Extractor{}.ExtractTrackEvidence(path)
}

// ExtractDirectoryEvidence is the sidecar-only convenience form of
// Extractor.ExtractDirectoryEvidence, for callers with no fingerprinter.
func ExtractDirectoryEvidence(audioPaths []string) (DirectoryEvidence, error) {
	return Extractor{}.ExtractDirectoryEvidence(audioPaths)
}
