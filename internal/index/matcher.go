package index

import "echotrace/internal/fingerprint"

// SongOffsets accumulates, per candidate song, how often each time offset
// (indexed anchor chunk minus query anchor chunk) was observed. A strong
// match shows up as many pairs agreeing on one offset; hash collisions
// scatter across offsets and wash out in the mode.
type SongOffsets map[uint32]map[int]int

func (o SongOffsets) add(songID uint32, offset int) {
	hist := o[songID]
	if hist == nil {
		hist = make(map[int]int)
		o[songID] = hist
	}
	hist[offset]++
}

// Match looks up every query pair and accumulates offset histograms for the
// candidate songs. A key miss contributes nothing. Negative offsets are
// dropped: the query clip cannot precede the indexed instant it matches.
// Match is read-only against the index and safe to run concurrently with
// other queries.
func (x *SongIndex) Match(pairs []fingerprint.PeakPair) SongOffsets {
	offsets := make(SongOffsets)

	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, pair := range pairs {
		key, ok := fingerprint.NewKey(pair)
		if !ok {
			continue
		}
		for _, posting := range x.postings[key] {
			offset := posting.AnchorChunk - pair.Anchor.TimeChunk
			if offset < 0 {
				continue
			}
			offsets.add(posting.SongID, offset)
		}
	}
	return offsets
}
