package fingerprint

import "sort"

// Peak is a locally dominant energy point in the spectrogram.
type Peak struct {
	Amplitude int // rounded magnitude, non-negative
	FreqBin   int
	TimeChunk int
}

// Less is the total ordering used everywhere peaks are thinned or paired:
// loudest first, then earliest chunk, then lowest bin. Keeping the ordering
// in one place keeps the thinning and pairing steps testable in isolation.
func (p Peak) Less(q Peak) bool {
	if p.Amplitude != q.Amplitude {
		return p.Amplitude > q.Amplitude
	}
	if p.TimeChunk != q.TimeChunk {
		return p.TimeChunk < q.TimeChunk
	}
	return p.FreqBin < q.FreqBin
}

// sortLoudestFirst sorts in place by the Peak ordering.
func sortLoudestFirst(peaks []Peak) {
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Less(peaks[j]) })
}
