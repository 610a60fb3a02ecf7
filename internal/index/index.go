// Package index holds the process-wide inverted fingerprint index and the
// matching, scoring and ranking steps that run against it.
package index

import (
	"sort"
	"sync"

	"echotrace/internal/fingerprint"
)

// Posting records one indexed occurrence of a fingerprint key.
type Posting struct {
	AnchorChunk int
	SongID      uint32
}

// SongIndex maps fingerprint keys to posting lists. It is long-lived,
// append-only state shared by every query.
//
// Consistency: writes hold the write lock for a whole song, reads hold the
// read lock for a whole query, so a query never observes a partially
// written or partially sorted posting list. Posting lists are always
// observable sorted ascending by anchor chunk (ties by song ID); no
// ordering holds across independent keys.
type SongIndex struct {
	mu       sync.RWMutex
	postings map[fingerprint.Key][]Posting
}

// NewSongIndex returns an empty index.
func NewSongIndex() *SongIndex {
	return &SongIndex{postings: make(map[fingerprint.Key][]Posting)}
}

// AddPairs appends one song's peak pairs to the index and returns the number
// of postings added. Pairs whose key is not representable are skipped.
// Posting lists touched by this song are re-sorted once at the end, which is
// cheaper than keeping them sorted pair by pair.
func (x *SongIndex) AddPairs(songID uint32, pairs []fingerprint.PeakPair) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	touched := make(map[fingerprint.Key]struct{})
	added := 0
	for _, pair := range pairs {
		key, ok := fingerprint.NewKey(pair)
		if !ok {
			continue
		}
		x.postings[key] = append(x.postings[key], Posting{
			AnchorChunk: pair.Anchor.TimeChunk,
			SongID:      songID,
		})
		touched[key] = struct{}{}
		added++
	}
	for key := range touched {
		sortPostings(x.postings[key])
	}
	return added
}

// AddPosting inserts a single posting preserving sort order. It is the
// restore path used when rebuilding the index from storage.
func (x *SongIndex) AddPosting(key fingerprint.Key, p Posting) {
	x.mu.Lock()
	defer x.mu.Unlock()

	list := x.postings[key]
	at := sort.Search(len(list), func(i int) bool {
		if list[i].AnchorChunk != p.AnchorChunk {
			return list[i].AnchorChunk > p.AnchorChunk
		}
		return list[i].SongID > p.SongID
	})
	list = append(list, Posting{})
	copy(list[at+1:], list[at:])
	list[at] = p
	x.postings[key] = list
}

// Lookup returns a copy of the posting list for key; nil on a miss.
func (x *SongIndex) Lookup(key fingerprint.Key) []Posting {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list, ok := x.postings[key]
	if !ok {
		return nil
	}
	out := make([]Posting, len(list))
	copy(out, list)
	return out
}

// Keys returns every key in the index in ascending order.
func (x *SongIndex) Keys() []fingerprint.Key {
	x.mu.RLock()
	defer x.mu.RUnlock()

	keys := make([]fingerprint.Key, 0, len(x.postings))
	for key := range x.postings {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Size returns the total posting count.
func (x *SongIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for _, list := range x.postings {
		n += len(list)
	}
	return n
}

func sortPostings(list []Posting) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].AnchorChunk != list[j].AnchorChunk {
			return list[i].AnchorChunk < list[j].AnchorChunk
		}
		return list[i].SongID < list[j].SongID
	})
}
