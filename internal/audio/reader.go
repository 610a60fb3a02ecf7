package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into the canonical signal form the engine
// expects: mono signed integer samples with the constant bias removed.
// Multi-channel input is averaged down to one channel.
func ReadWAV(path string) ([]int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding wav file: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, errors.New("wav file has no decodable PCM data")
	}

	samples := downmix(buf.Data, buf.Format.NumChannels)
	removeBias(samples)
	return samples, buf.Format.SampleRate, nil
}

// downmix averages interleaved channels into one. A trailing incomplete
// frame is dropped.
func downmix(data []int, channels int) []int {
	if channels == 1 {
		out := make([]int, len(data))
		copy(out, data)
		return out
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// removeBias subtracts the mean so a DC offset does not leak into bin 0.
func removeBias(samples []int) {
	if len(samples) == 0 {
		return
	}
	var sum int64
	for _, s := range samples {
		sum += int64(s)
	}
	mean := int(sum / int64(len(samples)))
	if mean == 0 {
		return
	}
	for i := range samples {
		samples[i] -= mean
	}
}
