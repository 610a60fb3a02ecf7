package fingerprint

import "sort"

// ExtractPeaks finds locally dominant cells of the spectrogram and returns
// them in a constellation map.
//
// A cell is a candidate iff no cell in its clipped
// [f-PeakNeighborFreq, f+PeakNeighborFreq] x [t-PeakNeighborTime, t+PeakNeighborTime]
// neighborhood is strictly greater. Equal-magnitude cells in one neighborhood
// therefore all qualify independently; the per-chunk cap thins them.
// Within each chunk only the top PeaksPerChunk candidates by the Peak
// ordering survive.
func ExtractPeaks(spec Spectrogram, cfg Config) ConstellationMap {
	cm := NewConstellationMap()
	chunks, bins := spec.Chunks(), spec.Bins()

	for t := 0; t < chunks; t++ {
		var candidates []Peak
		for f := 0; f < bins; f++ {
			if isLocalMax(spec, t, f, cfg) {
				candidates = append(candidates, Peak{
					Amplitude: spec[t][f],
					FreqBin:   f,
					TimeChunk: t,
				})
			}
		}
		sortLoudestFirst(candidates)
		if len(candidates) > cfg.PeaksPerChunk {
			candidates = candidates[:cfg.PeaksPerChunk]
		}
		// Insert in ascending bin order so bucket order is deterministic
		// and independent of the thinning sort.
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].FreqBin < candidates[j].FreqBin
		})
		for _, p := range candidates {
			cm.Insert(p)
		}
	}
	return cm
}

func isLocalMax(spec Spectrogram, t, f int, cfg Config) bool {
	mag := spec[t][f]
	chunks, bins := spec.Chunks(), spec.Bins()
	for dt := -cfg.PeakNeighborTime; dt <= cfg.PeakNeighborTime; dt++ {
		tt := t + dt
		if tt < 0 || tt >= chunks {
			continue
		}
		for df := -cfg.PeakNeighborFreq; df <= cfg.PeakNeighborFreq; df++ {
			ff := f + df
			if ff < 0 || ff >= bins || (dt == 0 && df == 0) {
				continue
			}
			if spec[tt][ff] > mag {
				return false
			}
		}
	}
	return true
}
