package acousticfp

import (
	"math"
	"sort"
)

// Peak is one constellation point in the spectrogram.
type Peak struct {
	TimeIdx int
	FreqIdx int
	Time    float64
	Freq    float64
	MagDB   float64
}

// extractPeaks picks the strongest bin per adaptive frequency band, per
// frame, keeping only bins that clear both a local-maximum test and an
// adaptive dB-above-average threshold. Band widths double geometrically
// (mirroring the way human hearing resolves lower frequencies more finely
// than higher ones) rather than using uniform bins.
func extractPeaks(spectrogram [][]float64, sampleRate int) []Peak {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 {
		return nil
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])

	freqRes := float64(sampleRate) / float64(WindowSize)
	frameTime := float64(HopSize) / float64(sampleRate)

	const (
		freqNeighbour = 3
		timeNeighbour = 1
		minDbAboveAvg = 3.0
		eps           = 1e-10
	)

	bands := [][2]int{{0, minInt(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := minInt(start*2, nBins)
		bands = append(bands, [2]int{start, end})
		if end == nBins {
			break
		}
	}

	peaks := make([]Peak, 0, nFrames*2)

	for t := 0; t < nFrames; t++ {
		frame := spectrogram[t]

		bandMaxMag := make([]float64, len(bands))
		bandMaxIdx := make([]int, len(bands))
		for bi, b := range bands {
			minBin, maxBin := b[0], b[1]
			if minBin >= nBins {
				bandMaxIdx[bi] = minBin
				continue
			}
			if maxBin > nBins {
				maxBin = nBins
			}
			maxMag, maxIdx := 0.0, minBin
			for i := minBin; i < maxBin; i++ {
				if frame[i] > maxMag {
					maxMag, maxIdx = frame[i], i
				}
			}
			bandMaxMag[bi], bandMaxIdx[bi] = maxMag, maxIdx
		}

		sumDb := 0.0
		for _, mag := range bandMaxMag {
			sumDb += 20.0 * math.Log10(mag+eps)
		}
		avgDb := sumDb / float64(len(bandMaxMag))

		for bi, mag := range bandMaxMag {
			if mag <= 0 {
				continue
			}
			bin := bandMaxIdx[bi]
			magDb := 20.0 * math.Log10(mag+eps)
			if magDb < avgDb+minDbAboveAvg {
				continue
			}
			if !isLocalMax(spectrogram, t, bin, mag, timeNeighbour, freqNeighbour, nFrames, nBins) {
				continue
			}
			peaks = append(peaks, Peak{
				TimeIdx: t, FreqIdx: bin,
				Time: float64(t) * frameTime, Freq: float64(bin) * freqRes,
				MagDB: magDb,
			})
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].TimeIdx == peaks[j].TimeIdx {
			return peaks[i].FreqIdx < peaks[j].FreqIdx
		}
		return peaks[i].TimeIdx < peaks[j].TimeIdx
	})

	return peaks
}

func isLocalMax(spectrogram [][]float64, t, bin int, mag float64, timeNeighbour, freqNeighbour, nFrames, nBins int) bool {
	for dt := -timeNeighbour; dt <= timeNeighbour; dt++ {
		tIdx := t + dt
		if tIdx < 0 || tIdx >= nFrames {
			continue
		}
		for df := -freqNeighbour; df <= freqNeighbour; df++ {
			fIdx := bin + df
			if fIdx < 0 || fIdx >= nBins || (dt == 0 && df == 0) {
				continue
			}
			if spectrogram[tIdx][fIdx] > mag {
				return false
			}
		}
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
