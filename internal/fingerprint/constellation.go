package fingerprint

import "math"

// ConstellationMap is a spatial index over peaks keyed by
// (time chunk, frequency bin). It is built once per signal and read-only
// afterwards during pairing. Implementations only need insert and
// rectangular range queries with acceptable amortized cost.
type ConstellationMap interface {
	// Insert adds a peak to the index.
	Insert(p Peak)
	// Range returns all peaks with tMin <= TimeChunk <= tMax and
	// fMin <= FreqBin <= fMax, ordered by ascending time chunk and then
	// insertion order within a chunk.
	Range(tMin, tMax, fMin, fMax int) []Peak
	// Peaks returns every indexed peak, ordered like Range over the full
	// extent.
	Peaks() []Peak
	// Len returns the number of indexed peaks.
	Len() int
}

// chunkGrid buckets peaks by time chunk. Extraction caps peaks per chunk,
// so a range query is a scan over a handful of small buckets and stays
// proportional to the query window, not the signal length.
type chunkGrid struct {
	buckets map[int][]Peak
	minT    int
	maxT    int
	count   int
}

// NewConstellationMap returns an empty time-bucketed grid index.
func NewConstellationMap() ConstellationMap {
	return &chunkGrid{
		buckets: make(map[int][]Peak),
		minT:    math.MaxInt,
		maxT:    math.MinInt,
	}
}

func (g *chunkGrid) Insert(p Peak) {
	g.buckets[p.TimeChunk] = append(g.buckets[p.TimeChunk], p)
	if p.TimeChunk < g.minT {
		g.minT = p.TimeChunk
	}
	if p.TimeChunk > g.maxT {
		g.maxT = p.TimeChunk
	}
	g.count++
}

func (g *chunkGrid) Range(tMin, tMax, fMin, fMax int) []Peak {
	if tMin < g.minT {
		tMin = g.minT
	}
	if tMax > g.maxT {
		tMax = g.maxT
	}
	var out []Peak
	for t := tMin; t <= tMax; t++ {
		for _, p := range g.buckets[t] {
			if p.FreqBin >= fMin && p.FreqBin <= fMax {
				out = append(out, p)
			}
		}
	}
	return out
}

func (g *chunkGrid) Peaks() []Peak {
	if g.count == 0 {
		return nil
	}
	out := make([]Peak, 0, g.count)
	for t := g.minT; t <= g.maxT; t++ {
		out = append(out, g.buckets[t]...)
	}
	return out
}

func (g *chunkGrid) Len() int { return g.count }
