package index

import (
	"math"
	"sort"
)

// Match is one ranked result.
type Match struct {
	SongID uint32
	Score  float64
}

// Score reduces each song's offset histogram to a bounded confidence:
// tanh(modeCount/coefficient) * 100. The score is monotonic in the mode
// frequency and stays inside (0, 100); the coefficient is an empirical
// sensitivity constant, calibrated rather than derived.
func Score(offsets SongOffsets, coefficient float64) map[uint32]float64 {
	scores := make(map[uint32]float64, len(offsets))
	for songID, hist := range offsets {
		mode := 0
		for _, count := range hist {
			if count > mode {
				mode = count
			}
		}
		s := math.Tanh(float64(mode)/coefficient) * 100
		if s >= 100 {
			// Tanh saturates to exactly 1 for large arguments.
			s = math.Nextafter(100, 0)
		}
		scores[songID] = s
	}
	return scores
}

// Rank sorts candidates descending by score, breaking ties by ascending
// song ID, and truncates to at most maxMatches entries. An empty list is a
// valid result meaning no recognizable match.
func Rank(scores map[uint32]float64, maxMatches int) []Match {
	matches := make([]Match, 0, len(scores))
	for songID, score := range scores {
		matches = append(matches, Match{SongID: songID, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].SongID < matches[j].SongID
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}
