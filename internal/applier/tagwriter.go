package applier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/resonance-core/resonance/internal/tagpatch"
)

// TagWriter writes a tag patch for one audio file. Backends are chosen by
// name via internal/config's precedence-resolved tag_writer_backend.
type TagWriter interface {
	WriteTags(audioPath string, patch tagpatch.Patch) error
}

// BackendMetaJSON is the default, deterministic, test-friendly backend: it
// writes a ".meta.json" sidecar next to the audio file rather than
// touching the container itself.
const BackendMetaJSON = "meta-json"

// BackendMutagen names the in-place container backend. Its writer invokes
// no external tool and writes nothing: WriteTags always returns an error.
const BackendMutagen = "mutagen"

// NewTagWriter returns the writer backend named by backend, or an error if
// the name isn't recognized. Callers should validate backend names at
// config-load time (internal/config) so this never fails at apply time.
func NewTagWriter(backend string) (TagWriter, error) {
	switch backend {
	case BackendMetaJSON:
		return metaJSONWriter{}, nil
	case BackendMutagen:
		return mutagenWriter{}, nil
	default:
		return nil, fmt.Errorf("applier: unknown tag writer backend %q", backend)
	}
}

type metaJSONWriter struct{}

type sidecarFile struct {
	Tags            map[string]string `json:"tags"`
	FingerprintID   string            `json:"fingerprint_id,omitempty"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
}

func sidecarPathFor(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + ".meta.json"
}

// WriteTags merges patch into the existing sidecar (if any) and rewrites
// it, preserving fingerprint_id/duration_seconds, which are not tag values
// and must survive a tag write untouched — the signature hash depends on
// them staying stable.
func (metaJSONWriter) WriteTags(audioPath string, patch tagpatch.Patch) error {
	path := sidecarPathFor(audioPath)

	existing := sidecarFile{Tags: map[string]string{}}
	if b, err := os.ReadFile(path); err == nil {
		var parsed struct {
			Tags            map[string]any `json:"tags"`
			FingerprintID   string         `json:"fingerprint_id"`
			DurationSeconds int            `json:"duration_seconds"`
		}
		if err := json.Unmarshal(b, &parsed); err == nil {
			existing.FingerprintID = parsed.FingerprintID
			existing.DurationSeconds = parsed.DurationSeconds
			for k, v := range parsed.Tags {
				if s, ok := v.(string); ok {
					existing.Tags[k] = s
				}
			}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("applier: reading existing sidecar: %w", err)
	}

	for k, v := range patch {
		existing.Tags[k] = v
	}

	b, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("applier: marshaling sidecar: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("applier: writing sidecar: %w", err)
	}
	return nil
}

// mutagenWriter is the writer for BackendMutagen. It does not write
// container tags: WriteTags ignores the patch (no multi-valued joining
// happens either) and always returns an error.
type mutagenWriter struct{}

func (mutagenWriter) WriteTags(audioPath string, patch tagpatch.Patch) error {
	// mutagen is not vendored into this module and no CLI is invoked here;
	// tests of internal/applier inject their own TagWriter instead.
	_ = patch
	return fmt.Errorf("applier: mutagen backend requires the external mutagen tool, not available in this environment")
}
