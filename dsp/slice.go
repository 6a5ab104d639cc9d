// Package dsp holds the sample-level transforms applied around the generator:
// fixed-window slicing, its inverse, and the first-order emphasis filters.
package dsp

import (
	"errors"
	"fmt"
)

// DefaultWindow is the number of samples the generator consumes per forward pass.
const DefaultWindow = 16384

// ErrShortSlices is returned when a slice batch cannot cover the target length.
var ErrShortSlices = errors.New("dsp: slices shorter than target length")

// NumSlices returns how many windows are needed to cover n samples.
func NumSlices(n, window int) int {
	return (n + window - 1) / window
}

// Slice partitions x into consecutive non-overlapping windows. The final
// window is zero-padded.
func Slice(x []float32, window int) [][]float32 {
	n := NumSlices(len(x), window)
	out := make([][]float32, n)
	for i := range out {
		s := make([]float32, window)
		copy(s, x[i*window:])
		out[i] = s
	}
	return out
}

// Deslice concatenates slices in order and trims the result to length.
// Every slice must be exactly window samples long, and the slices together
// must cover length.
func Deslice(slices [][]float32, window, length int) ([]float32, error) {
	if window <= 0 {
		return nil, fmt.Errorf("dsp: invalid window %d", window)
	}
	if len(slices)*window < length {
		return nil, fmt.Errorf("%w: %d slices of %d < %d", ErrShortSlices, len(slices), window, length)
	}
	buf := make([]float32, len(slices)*window)
	for i, s := range slices {
		if len(s) != window {
			return nil, fmt.Errorf("dsp: slice %d has %d samples, want %d", i, len(s), window)
		}
		copy(buf[i*window:(i+1)*window], s)
	}
	return buf[:length:length], nil
}
