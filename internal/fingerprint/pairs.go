package fingerprint

// PeakPair is an anchor->target pair with Anchor.TimeChunk <= Target.TimeChunk.
type PeakPair struct {
	Anchor Peak
	Target Peak
}

// DeltaTime is the chunk distance between target and anchor, always >= 0.
func (p PeakPair) DeltaTime() int {
	return p.Target.TimeChunk - p.Anchor.TimeChunk
}

// GeneratePairs emits anchor->target pairs for every peak in the map.
// For each anchor it queries the forward window
// [t+PairMinDeltaTime, t+PairMaxDeltaTime] x [f-PairNeighborFreq, f+PairNeighborFreq]
// and keeps at most Fanout targets, loudest first by the Peak ordering.
// Fanout trades index size against the chance that a peak surviving in a
// noisy excerpt still produces a matching pair.
func GeneratePairs(cm ConstellationMap, cfg Config) []PeakPair {
	anchors := cm.Peaks()
	pairs := make([]PeakPair, 0, len(anchors)*cfg.Fanout)

	for _, anchor := range anchors {
		targets := cm.Range(
			anchor.TimeChunk+cfg.PairMinDeltaTime,
			anchor.TimeChunk+cfg.PairMaxDeltaTime,
			anchor.FreqBin-cfg.PairNeighborFreq,
			anchor.FreqBin+cfg.PairNeighborFreq,
		)
		sortLoudestFirst(targets)
		kept := 0
		for _, target := range targets {
			if kept == cfg.Fanout {
				break
			}
			if target == anchor {
				continue
			}
			pairs = append(pairs, PeakPair{Anchor: anchor, Target: target})
			kept++
		}
	}
	return pairs
}
