package index

import (
	"reflect"
	"testing"

	"echotrace/internal/fingerprint"
)

func TestMatchAccumulatesOffsets(t *testing.T) {
	idx := NewSongIndex()
	// Song 1 carries the same key at anchors 10, 74 and 138; song 2 shares
	// the key once at anchor 20.
	idx.AddPairs(1, []fingerprint.PeakPair{
		pairAt(100, 10, 120, 25),
		pairAt(100, 74, 120, 89),
		pairAt(100, 138, 120, 153),
	})
	idx.AddPairs(2, []fingerprint.PeakPair{
		pairAt(100, 20, 120, 35),
	})

	// Query anchored at chunk 10: offsets against song 1 are 0, 64, 128.
	offsets := idx.Match([]fingerprint.PeakPair{pairAt(100, 10, 120, 25)})

	want := SongOffsets{
		1: {0: 1, 64: 1, 128: 1},
		2: {10: 1},
	}
	if !reflect.DeepEqual(offsets, want) {
		t.Errorf("offsets = %v, want %v", offsets, want)
	}
}

func TestMatchDropsNegativeOffsets(t *testing.T) {
	idx := NewSongIndex()
	idx.AddPairs(1, []fingerprint.PeakPair{pairAt(100, 5, 120, 20)})

	// Query anchor sits after the only indexed anchor, so the offset would
	// be negative.
	offsets := idx.Match([]fingerprint.PeakPair{pairAt(100, 50, 120, 65)})
	if len(offsets) != 0 {
		t.Errorf("negative offsets should be dropped, got %v", offsets)
	}
}

func TestMatchMissesContributeNothing(t *testing.T) {
	idx := NewSongIndex()
	idx.AddPairs(1, []fingerprint.PeakPair{pairAt(100, 5, 120, 20)})

	offsets := idx.Match([]fingerprint.PeakPair{
		pairAt(300, 0, 310, 9),  // key not in the index
		pairAt(100, 20, 120, 5), // unrepresentable, negative delta
	})
	if len(offsets) != 0 {
		t.Errorf("expected empty histograms, got %v", offsets)
	}
}

func TestMatchEmptyQuery(t *testing.T) {
	idx := NewSongIndex()
	idx.AddPairs(1, []fingerprint.PeakPair{pairAt(100, 5, 120, 20)})

	if offsets := idx.Match(nil); len(offsets) != 0 {
		t.Errorf("empty query produced %v", offsets)
	}
}
