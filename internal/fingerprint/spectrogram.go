package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrogram is a time-major magnitude matrix: spec[chunk][bin] holds the
// rounded, non-negative magnitude of frequency bin `bin` during time chunk
// `chunk`. Only the first WindowSize/2 bins of each transform are kept.
type Spectrogram [][]int

// Chunks returns the number of time chunks.
func (s Spectrogram) Chunks() int { return len(s) }

// Bins returns the number of frequency bins per chunk.
func (s Spectrogram) Bins() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Hann returns a raised-cosine taper of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// NewSpectrogram splits the signal into Hann-tapered windows advancing by
// cfg.HopSize and transforms each one, keeping the non-redundant half of the
// spectrum. The trailing partial window is discarded; a signal shorter than
// one window yields an empty matrix, not an error.
func NewSpectrogram(signal []int, cfg Config) Spectrogram {
	if len(signal) < cfg.WindowSize {
		return Spectrogram{}
	}

	chunks := (len(signal) - cfg.WindowSize) / cfg.HopSize
	bins := cfg.WindowSize / 2
	window := Hann(cfg.WindowSize)

	spec := make(Spectrogram, chunks)
	frame := make([]float64, cfg.WindowSize)
	for c := 0; c < chunks; c++ {
		start := c * cfg.HopSize
		for i := 0; i < cfg.WindowSize; i++ {
			frame[i] = float64(signal[start+i]) * window[i]
		}
		spectrum := fft.FFTReal(frame)
		row := make([]int, bins)
		for b := 0; b < bins; b++ {
			row[b] = int(math.Round(cmplx.Abs(spectrum[b])))
		}
		spec[c] = row
	}
	return spec
}
