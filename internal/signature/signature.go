// Package signature computes the content-addressed directory identity that
// the rest of the core pins decisions to. It is deliberately tiny and pure:
// given the same audio file signatures, dir_id never changes, even across
// Go versions or map iteration order, because the hash payload is built
// from a sorted slice and serialized with sorted, separator-tight JSON.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Version is the signature algorithm version. Bumping it is a breaking
// change to every persisted dir_id and must not happen silently.
const Version = 1

// AudioFileSignature is the per-file evidence dir_signature hashes over.
// SizeBytes is carried for diagnostics only and deliberately excluded from
// the hash payload — a tag write changes a file's size but must never
// invalidate the directory's identity.
type AudioFileSignature struct {
	Path              string
	FingerprintID     string
	DurationSeconds   int
	SizeBytes         int64
}

// less orders files by (fingerprint_id, duration_seconds, size_bytes) so
// directories with byte-identical audio content hash the same regardless
// of filenames — path is deliberately not part of the order or the hash
// payload, only content fields are.
func (f AudioFileSignature) less(other AudioFileSignature) bool {
	if f.FingerprintID != other.FingerprintID {
		return f.FingerprintID < other.FingerprintID
	}
	if f.DurationSeconds != other.DurationSeconds {
		return f.DurationSeconds < other.DurationSeconds
	}
	return f.SizeBytes < other.SizeBytes
}

// DirectorySignature is the full identity payload for one directory.
type DirectorySignature struct {
	AudioFiles      []AudioFileSignature
	NonAudioFiles   []string
	SignatureHash   string
	SignatureVersion int
}

type hashEntry struct {
	DurationSeconds int    `json:"duration_seconds"`
	FingerprintID   string `json:"fingerprint_id"`
}

// DirSignature builds a DirectorySignature from the per-file evidence
// collected for one directory. audioFiles is sorted by content
// (fingerprint_id, duration_seconds, size_bytes), not by path, before
// hashing — two directories with identical audio content must hash
// identically even if the files inside were renamed or reordered.
func DirSignature(audioFiles []AudioFileSignature, nonAudioFiles []string) DirectorySignature {
	sorted := make([]AudioFileSignature, len(audioFiles))
	copy(sorted, audioFiles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].less(sorted[j]) })

	payload := make([]hashEntry, len(sorted))
	for i, f := range sorted {
		payload[i] = hashEntry{FingerprintID: f.FingerprintID, DurationSeconds: f.DurationSeconds}
	}

	hash := hashPayload(payload)

	return DirectorySignature{
		AudioFiles:       sorted,
		NonAudioFiles:    nonAudioFiles,
		SignatureHash:    hash,
		SignatureVersion: Version,
	}
}

// hashPayload serializes entries with sorted keys and tight separators,
// matching the canonical form every signature consumer must reproduce.
func hashPayload(entries []hashEntry) string {
	// json.Marshal on a struct slice already emits keys in field declaration
	// order with no extra whitespace, which is what the canonical form
	// requires as long as hashEntry declares its fields in sorted key order
	// (duration_seconds, fingerprint_id).
	b, err := json.Marshal(entries)
	if err != nil {
		// entries is a plain value type; Marshal cannot fail on it.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DirID returns the directory identity string to persist and to pin
// decisions against. It is just the signature hash, named separately so
// callers reason about "identity" rather than "hash" at call sites.
func DirID(sig DirectorySignature) string {
	return sig.SignatureHash
}
