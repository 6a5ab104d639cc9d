// Package audio reads and writes the WAV files consumed and produced by the
// evaluation. Samples are exchanged as float32 in [-1, 1].
package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth is the PCM depth used for every exported file.
const BitDepth = 16

// Mono is a single-channel waveform.
type Mono struct {
	Samples    []float32
	SampleRate int
}

// ReadMono decodes a single-channel WAV file.
func ReadMono(path string) (*Mono, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: %s: %w", path, err)
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("audio: %s: %d channels, want mono", path, buf.Format.NumChannels)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	// 8-bit PCM is unsigned with its midpoint at 128.
	offset := 0
	if depth == 8 {
		offset = 128
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v-offset) / scale
	}
	return &Mono{Samples: out, SampleRate: buf.Format.SampleRate}, nil
}

// WriteMono encodes samples as a 16-bit PCM WAV file, clipping to [-1, 1].
// An existing file at path is overwritten.
func WriteMono(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, sampleRate, BitDepth, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = toPCM16(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("audio: write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: close encoder %s: %w", path, err)
	}
	return f.Close()
}

func toPCM16(s float32) int {
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int(math.Round(float64(s) * 32767))
}
