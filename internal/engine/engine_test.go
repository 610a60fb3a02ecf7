package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echotrace/internal/fingerprint"
	"echotrace/internal/index"
)

// synthSong builds a deterministic test signal out of consecutive pure-tone
// segments. Each segment is segmentLen samples of a sine whose frequency
// lands exactly on an FFT bin for the default 1024-sample window, so the
// spectral peaks are sharp and reproducible.
func synthSong(bins []int, segmentLen int) []int {
	cfg := fingerprint.DefaultConfig()
	signal := make([]int, 0, len(bins)*segmentLen)
	for _, bin := range bins {
		for i := 0; i < segmentLen; i++ {
			v := 12000 * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(cfg.WindowSize))
			signal = append(signal, int(v))
		}
	}
	return signal
}

// Three songs with disjoint spectral trajectories. Segment boundaries are
// hop-aligned so excerpts stay chunk-aligned with the reference.
const segmentLen = 16384

func testSongs() map[uint32][]int {
	return map[uint32][]int{
		1: synthSong([]int{20, 30, 40, 50}, segmentLen),
		2: synthSong([]int{150, 162, 174, 186}, segmentLen),
		3: synthSong([]int{300, 309, 318, 327}, segmentLen),
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New()
	require.NoError(t, err)
	return eng
}

func indexAll(t *testing.T, eng *Engine, songs map[uint32][]int) {
	t.Helper()
	for id, signal := range songs {
		added := eng.IndexSignal(id, signal)
		require.Positive(t, added, "song %d produced no postings", id)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := fingerprint.DefaultConfig()
	cfg.HopSize = 0
	_, err := New(WithConfig(cfg))
	assert.ErrorIs(t, err, fingerprint.ErrInvalidConfig)
}

func TestFingerprintEmptySignal(t *testing.T) {
	eng := newTestEngine(t)
	assert.Empty(t, eng.Fingerprint(nil))
	assert.Empty(t, eng.Fingerprint(make([]int, 100)))
}

func TestMatchSignalIdentifiesExcerpt(t *testing.T) {
	eng := newTestEngine(t)
	songs := testSongs()
	indexAll(t, eng, songs)

	// Hop-aligned excerpt from the middle of song 2.
	query := songs[2][segmentLen : segmentLen+2*segmentLen]
	matches := eng.MatchSignal(query)

	require.NotEmpty(t, matches)
	assert.Equal(t, uint32(2), matches[0].SongID)
	assert.Greater(t, matches[0].Score, 0.0)
	assert.Less(t, matches[0].Score, 100.0)
	if len(matches) > 1 {
		assert.Greater(t, matches[0].Score, matches[1].Score,
			"true song should clearly outscore the runner-up")
	}
}

func TestMatchSignalTranslationInvariant(t *testing.T) {
	eng := newTestEngine(t)
	songs := testSongs()
	indexAll(t, eng, songs)

	excerpt := songs[1][segmentLen : segmentLen+2*segmentLen]
	// Prepend eight hops of silence; the relative pair geometry survives.
	padded := append(make([]int, 8*eng.Config().HopSize), excerpt...)

	matches := eng.MatchSignal(padded)
	require.NotEmpty(t, matches)
	assert.Equal(t, uint32(1), matches[0].SongID)
}

func TestMatchSignalEmptyIndex(t *testing.T) {
	eng := newTestEngine(t)
	matches := eng.MatchSignal(testSongs()[1])
	assert.Empty(t, matches)
}

func TestMatchSignalNoiseScoresBelowClean(t *testing.T) {
	eng := newTestEngine(t)
	songs := testSongs()
	indexAll(t, eng, songs)

	clean := eng.MatchSignal(songs[3][0 : 2*segmentLen])
	require.NotEmpty(t, clean)
	require.Equal(t, uint32(3), clean[0].SongID)

	rng := rand.New(rand.NewSource(42))
	noise := make([]int, 2*segmentLen)
	for i := range noise {
		noise[i] = rng.Intn(24000) - 12000
	}
	noisy := eng.MatchSignal(noise)
	if len(noisy) > 0 {
		assert.Less(t, noisy[0].Score, clean[0].Score,
			"pure noise should not outscore the true excerpt")
	}
}

func TestIndexBatchMatchesSequentialIndexing(t *testing.T) {
	songs := testSongs()

	sequential := newTestEngine(t)
	indexAll(t, sequential, songs)

	concurrent := newTestEngine(t)
	jobs := make([]IndexJob, 0, len(songs))
	for id, signal := range songs {
		jobs = append(jobs, IndexJob{SongID: id, Signal: signal})
	}
	require.NoError(t, concurrent.IndexBatch(context.Background(), jobs, 4))

	assert.Equal(t, sequential.Index().Size(), concurrent.Index().Size())
	assert.Equal(t, sequential.Index().Keys(), concurrent.Index().Keys())
	for _, key := range sequential.Index().Keys() {
		assert.Equal(t, sequential.Index().Lookup(key), concurrent.Index().Lookup(key),
			"posting list for key %#x differs", key)
	}

	// Both indexes answer the same query identically.
	query := songs[1][0 : 2*segmentLen]
	assert.Equal(t, sequential.MatchSignal(query), concurrent.MatchSignal(query))
}

func TestIndexBatchHonorsContext(t *testing.T) {
	eng := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]IndexJob, 64)
	for i := range jobs {
		jobs[i] = IndexJob{SongID: uint32(i + 1), Signal: testSongs()[1]}
	}
	err := eng.IndexBatch(ctx, jobs, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

var benchSink []index.Match

func BenchmarkMatchSignal(b *testing.B) {
	eng, err := New()
	if err != nil {
		b.Fatal(err)
	}
	songs := testSongs()
	for id, signal := range songs {
		eng.IndexSignal(id, signal)
	}
	query := songs[2][0 : 2*segmentLen]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchSink = eng.MatchSignal(query)
	}
}
