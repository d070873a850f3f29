// fingerprint.go reduces the landmark hash set built over one file's
// spectrogram into the single stable fingerprint_id string the rest of
// the core's contract expects (internal/signature and internal/evidence
// only ever need one opaque, reproducible identifier per track, not a
// queryable hash index).
package acousticfp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Reader implements evidence extraction's injectable fingerprint/duration
// seam against real WAV audio.
type Reader struct{}

func NewReader() Reader { return Reader{} }

// FingerprintID computes a deterministic identifier for the audio at path:
// its spectrogram's landmark hash set, sorted and SHA-256'd. Two encodes
// of the same audio produce the same spectrogram and therefore the same
// id; a different recording (even of the same work) produces a different
// one.
func (Reader) FingerprintID(path string) (string, error) {
	spectrogram, sampleRate, err := ComputeSpectrogram(path)
	if err != nil {
		return "", fmt.Errorf("acousticfp: computing spectrogram: %w", err)
	}
	peaks := extractPeaks(spectrogram, sampleRate)
	hashes := hashPeaks(peaks)

	sorted := make([]uint32, 0, len(hashes))
	for h := range hashes {
		sorted = append(sorted, h)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	hasher := sha256.New()
	buf := make([]byte, 4)
	for _, h := range sorted {
		buf[0] = byte(h >> 24)
		buf[1] = byte(h >> 16)
		buf[2] = byte(h >> 8)
		buf[3] = byte(h)
		hasher.Write(buf)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Duration returns path's duration in whole seconds, rounded
// half-up — matching the rounding rule evidence extraction expects from
// any injected fingerprint reader.
func (Reader) Duration(path string) (int, error) {
	samples, sampleRate, err := ReadMonoSamples(path)
	if err != nil {
		return 0, fmt.Errorf("acousticfp: reading samples: %w", err)
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("acousticfp: invalid sample rate for %s", path)
	}
	seconds := float64(len(samples)) / float64(sampleRate)
	return int(seconds + 0.5), nil
}
