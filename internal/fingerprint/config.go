package fingerprint

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid fingerprint config")

// Config holds every tunable of the indexing and matching pipelines.
// A Config must pass Validate before it is handed to the pipeline;
// malformed values are rejected up front, never mid-pipeline.
type Config struct {
	// Spectrogram chunking.
	WindowSize int // samples per FFT window, even, at most 2*(1<<maxFreqBits)
	HopSize    int // samples between successive windows

	// Peak extraction.
	PeakNeighborFreq int // local-maximum suppression radius in frequency bins
	PeakNeighborTime int // local-maximum suppression radius in time chunks
	PeaksPerChunk    int // cap on retained peaks per time chunk

	// Peak pairing.
	PairNeighborFreq int // half-width of the pairing frequency band
	PairMinDeltaTime int // start of the forward pairing window, in chunks
	PairMaxDeltaTime int // end of the forward pairing window, in chunks
	Fanout           int // cap on pairs generated per anchor peak

	// Scoring.
	ScoreCoefficient float64 // confidence sensitivity: score = tanh(mode/coeff)*100
	MaxMatches       int     // result list truncation
}

// DefaultConfig returns the parameters the engine was tuned with:
// 11025 Hz mono input, ~93 ms windows with 4x overlap.
func DefaultConfig() Config {
	return Config{
		WindowSize:       1024,
		HopSize:          256,
		PeakNeighborFreq: 3,
		PeakNeighborTime: 1,
		PeaksPerChunk:    5,
		PairNeighborFreq: 32,
		PairMinDeltaTime: 1,
		PairMaxDeltaTime: 60,
		Fanout:           6,
		ScoreCoefficient: 10,
		MaxMatches:       10,
	}
}

// Validate rejects malformed configuration at construction time.
func (c Config) Validate() error {
	switch {
	case c.WindowSize < 2 || c.WindowSize%2 != 0:
		return fmt.Errorf("%w: window size %d must be a positive even number", ErrInvalidConfig, c.WindowSize)
	case c.WindowSize/2 > 1<<maxFreqBits:
		return fmt.Errorf("%w: window size %d yields %d bins, more than fit in %d freq bits",
			ErrInvalidConfig, c.WindowSize, c.WindowSize/2, maxFreqBits)
	case c.HopSize < 1:
		return fmt.Errorf("%w: hop size %d must be positive", ErrInvalidConfig, c.HopSize)
	case c.PeakNeighborFreq < 0 || c.PeakNeighborTime < 0:
		return fmt.Errorf("%w: peak neighborhood (%d, %d) must be non-negative",
			ErrInvalidConfig, c.PeakNeighborFreq, c.PeakNeighborTime)
	case c.PeaksPerChunk < 1:
		return fmt.Errorf("%w: peaks per chunk %d must be positive", ErrInvalidConfig, c.PeaksPerChunk)
	case c.PairNeighborFreq < 0:
		return fmt.Errorf("%w: pairing freq band %d must be non-negative", ErrInvalidConfig, c.PairNeighborFreq)
	case c.PairMinDeltaTime < 0:
		return fmt.Errorf("%w: pairing window start %d must be non-negative", ErrInvalidConfig, c.PairMinDeltaTime)
	case c.PairMaxDeltaTime < c.PairMinDeltaTime:
		return fmt.Errorf("%w: pairing window [%d, %d] is inverted",
			ErrInvalidConfig, c.PairMinDeltaTime, c.PairMaxDeltaTime)
	case c.PairMaxDeltaTime > 1<<maxDeltaBits-1:
		return fmt.Errorf("%w: pairing window end %d does not fit in %d delta bits",
			ErrInvalidConfig, c.PairMaxDeltaTime, maxDeltaBits)
	case c.Fanout < 1:
		return fmt.Errorf("%w: fanout %d must be positive", ErrInvalidConfig, c.Fanout)
	case c.ScoreCoefficient <= 0:
		return fmt.Errorf("%w: score coefficient %g must be positive", ErrInvalidConfig, c.ScoreCoefficient)
	case c.MaxMatches < 1:
		return fmt.Errorf("%w: max matches %d must be positive", ErrInvalidConfig, c.MaxMatches)
	}
	return nil
}
