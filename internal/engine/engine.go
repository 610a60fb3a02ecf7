// Package engine wires the fingerprinting pipeline to the song index:
// signal -> spectrogram -> constellation map -> peak pairs, then either an
// index append (build) or an offset-histogram match (query).
package engine

import (
	"context"
	"runtime"
	"sync"

	"echotrace/internal/fingerprint"
	"echotrace/internal/index"
	"echotrace/pkg/logger"
)

type Engine struct {
	cfg fingerprint.Config
	idx *index.SongIndex
	log *logger.Logger
}

type Option func(*Engine)

func WithConfig(cfg fingerprint.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithIndex(idx *index.SongIndex) Option {
	return func(e *Engine) { e.idx = idx }
}

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an engine around a validated configuration. A malformed
// configuration is the only construction failure.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg: fingerprint.DefaultConfig(),
		idx: index.NewSongIndex(),
		log: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Config() fingerprint.Config { return e.cfg }
func (e *Engine) Index() *index.SongIndex    { return e.idx }

// Fingerprint runs the signal-to-pairs pipeline shared by indexing and
// matching. An empty signal yields no pairs.
func (e *Engine) Fingerprint(signal []int) []fingerprint.PeakPair {
	spec := fingerprint.NewSpectrogram(signal, e.cfg)
	cm := fingerprint.ExtractPeaks(spec, e.cfg)
	return fingerprint.GeneratePairs(cm, e.cfg)
}

// IndexSignal fingerprints one reference song and appends its postings.
// It returns the number of postings added.
func (e *Engine) IndexSignal(songID uint32, signal []int) int {
	pairs := e.Fingerprint(signal)
	added := e.idx.AddPairs(songID, pairs)
	e.log.Debugf("indexed song %d: %d pairs, %d postings", songID, len(pairs), added)
	return added
}

// MatchSignal fingerprints a query clip and returns the ranked matches.
// An empty list means no recognizable match, never an error.
func (e *Engine) MatchSignal(signal []int) []index.Match {
	pairs := e.Fingerprint(signal)
	offsets := e.idx.Match(pairs)
	scores := index.Score(offsets, e.cfg.ScoreCoefficient)
	matches := index.Rank(scores, e.cfg.MaxMatches)
	e.log.Debugf("query: %d pairs, %d candidates, %d matches",
		len(pairs), len(offsets), len(matches))
	return matches
}

// IndexJob is one song of an IndexBatch.
type IndexJob struct {
	SongID uint32
	Signal []int
}

// IndexBatch indexes songs concurrently. Per-song fingerprinting is
// independent and runs on the worker pool; only the final index append is
// serialized, inside SongIndex. workers <= 0 means one per CPU.
func (e *Engine) IndexBatch(ctx context.Context, jobs []IndexJob, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ch := make(chan IndexJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range ch {
				e.IndexSignal(job.SongID, job.Signal)
			}
		}()
	}

	var err error
feed:
	for _, job := range jobs {
		select {
		case ch <- job:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(ch)
	wg.Wait()
	return err
}
