// Package acousticfp is the concrete, swappable default audio fingerprint
// reader referenced by evidence extraction as an injectable seam — real
// fingerprint/duration extraction plugs in here, while scoring
// (internal/identifier) never imports this package directly.
//
// It adapts a Shazam-style landmark spectrogram pipeline (STFT, peak
// picking, anchor/target hashing) into a single stable fingerprint_id
// string per track, rather than the multi-hash matching index a song
// database would use: the core's contract only needs one opaque,
// reproducible identifier per file, not a searchable fingerprint index.
package acousticfp

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadMonoSamples decodes a WAV file into mono float64 samples normalized
// to roughly [-1, 1], downmixing stereo by averaging channels. Non-WAV
// containers are out of scope here — the applier's meta-json backend and
// the sidecar-driven evidence extractor are what most tests exercise; a
// production deployment transcodes to WAV upstream of this reader.
func ReadMonoSamples(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("acousticfp: opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)

	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("acousticfp: %s is not a valid WAV file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("acousticfp: decoding %s: %w", path, err)
	}

	samples := downmixToMono(buf)
	return samples, int(decoder.SampleRate), nil
}

func downmixToMono(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	maxVal := float64(int(1) << (buf.SourceBitDepth - 1))
	if buf.SourceBitDepth == 0 {
		maxVal = 32768
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = (sum / float64(channels)) / maxVal
	}
	return out
}
