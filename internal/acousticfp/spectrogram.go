package acousticfp

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	WindowSize = 1024
	HopSize    = 256
)

// hamming returns a Hamming window of length n, used to taper each STFT
// frame before transforming it — reduces spectral leakage from the
// frame's hard edges.
func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func magnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// stft computes a time-major magnitude spectrogram via windowed FFT
// frames hopped across samples.
func stft(samples []float64, windowSize, hopSize int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("acousticfp: window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, errors.New("acousticfp: input shorter than window size")
	}

	var spectrogram [][]float64
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		frame := make([]float64, windowSize)
		copy(frame, samples[start:start+windowSize])
		for i := 0; i < windowSize; i++ {
			frame[i] *= window[i]
		}
		spectrogram = append(spectrogram, magnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

// ComputeSpectrogram reads wavPath and returns its magnitude spectrogram
// plus the sample rate it was computed at.
func ComputeSpectrogram(wavPath string) ([][]float64, int, error) {
	samples, sr, err := ReadMonoSamples(wavPath)
	if err != nil {
		return nil, 0, err
	}
	spectrogram, err := stft(samples, WindowSize, HopSize, hamming(WindowSize))
	if err != nil {
		return nil, 0, err
	}
	return spectrogram, sr, nil
}
