package fingerprint

import (
	"reflect"
	"testing"
)

func extractCfg(neighborFreq, neighborTime, perChunk int) Config {
	cfg := DefaultConfig()
	cfg.PeakNeighborFreq = neighborFreq
	cfg.PeakNeighborTime = neighborTime
	cfg.PeaksPerChunk = perChunk
	return cfg
}

func TestExtractPeaksStrictLocalMax(t *testing.T) {
	spec := Spectrogram{
		{1, 5, 1, 0},
		{2, 3, 1, 0},
		{9, 0, 0, 0},
	}

	cm := ExtractPeaks(spec, extractCfg(1, 1, 10))

	want := []Peak{
		{Amplitude: 5, FreqBin: 1, TimeChunk: 0},
		{Amplitude: 9, FreqBin: 0, TimeChunk: 2},
	}
	if got := cm.Peaks(); !reflect.DeepEqual(got, want) {
		t.Errorf("peaks = %v, want %v", got, want)
	}
}

func TestExtractPeaksEqualMaximaAllQualify(t *testing.T) {
	// Two equal-magnitude cells inside each other's neighborhood both
	// count as peaks; thinning is left to the per-chunk cap.
	spec := Spectrogram{
		{0, 7, 0},
		{0, 7, 0},
	}

	cm := ExtractPeaks(spec, extractCfg(1, 1, 10))

	want := []Peak{
		{Amplitude: 7, FreqBin: 1, TimeChunk: 0},
		{Amplitude: 7, FreqBin: 1, TimeChunk: 1},
	}
	if got := cm.Peaks(); !reflect.DeepEqual(got, want) {
		t.Errorf("peaks = %v, want %v", got, want)
	}
}

func TestExtractPeaksPerChunkCap(t *testing.T) {
	// A flat chunk makes every cell a tied local maximum; the cap keeps
	// only PeaksPerChunk of them, lowest bins first under the ordering.
	spec := Spectrogram{
		{4, 4, 4, 4, 4, 4},
		{4, 4, 4, 4, 4, 4},
	}

	cm := ExtractPeaks(spec, extractCfg(1, 1, 3))

	perChunk := map[int][]int{}
	for _, p := range cm.Peaks() {
		perChunk[p.TimeChunk] = append(perChunk[p.TimeChunk], p.FreqBin)
	}
	for chunk, bins := range perChunk {
		if len(bins) > 3 {
			t.Errorf("chunk %d kept %d peaks, cap is 3", chunk, len(bins))
		}
		if !reflect.DeepEqual(bins, []int{0, 1, 2}) {
			t.Errorf("chunk %d kept bins %v, want [0 1 2]", chunk, bins)
		}
	}
}

func TestExtractPeaksEmptySpectrogram(t *testing.T) {
	cm := ExtractPeaks(Spectrogram{}, DefaultConfig())
	if cm.Len() != 0 {
		t.Errorf("expected no peaks from empty spectrogram, got %d", cm.Len())
	}
	if peaks := cm.Peaks(); len(peaks) != 0 {
		t.Errorf("expected empty peak list, got %v", peaks)
	}
}

func TestPeakOrdering(t *testing.T) {
	tests := []struct {
		name string
		p, q Peak
		want bool
	}{
		{"louder first", Peak{Amplitude: 9}, Peak{Amplitude: 5}, true},
		{"quieter second", Peak{Amplitude: 5}, Peak{Amplitude: 9}, false},
		{"same amplitude earlier chunk first", Peak{Amplitude: 5, TimeChunk: 1}, Peak{Amplitude: 5, TimeChunk: 2}, true},
		{"same amplitude and chunk lower bin first", Peak{Amplitude: 5, FreqBin: 3}, Peak{Amplitude: 5, FreqBin: 8}, true},
		{"identical not less", Peak{Amplitude: 5, FreqBin: 3, TimeChunk: 1}, Peak{Amplitude: 5, FreqBin: 3, TimeChunk: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Less(tt.q); got != tt.want {
				t.Errorf("Less(%v, %v) = %v, want %v", tt.p, tt.q, got, tt.want)
			}
		})
	}
}

func TestConstellationMapRange(t *testing.T) {
	cm := NewConstellationMap()
	peaks := []Peak{
		{Amplitude: 1, FreqBin: 10, TimeChunk: 0},
		{Amplitude: 2, FreqBin: 50, TimeChunk: 0},
		{Amplitude: 3, FreqBin: 12, TimeChunk: 3},
		{Amplitude: 4, FreqBin: 12, TimeChunk: 7},
	}
	for _, p := range peaks {
		cm.Insert(p)
	}

	if cm.Len() != 4 {
		t.Fatalf("Len = %d, want 4", cm.Len())
	}

	got := cm.Range(0, 3, 9, 13)
	want := []Peak{
		{Amplitude: 1, FreqBin: 10, TimeChunk: 0},
		{Amplitude: 3, FreqBin: 12, TimeChunk: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Range = %v, want %v", got, want)
	}

	// bounds well outside the extent are clipped, not an error
	if got := cm.Range(-100, 100, 0, 1000); len(got) != 4 {
		t.Errorf("clipped range returned %d peaks, want 4", len(got))
	}
	if got := cm.Range(4, 6, 0, 1000); len(got) != 0 {
		t.Errorf("empty band returned %v", got)
	}
}
