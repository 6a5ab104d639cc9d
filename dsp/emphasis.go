package dsp

// DefaultEmphCoeff is the emphasis coefficient used at training time.
const DefaultEmphCoeff = 0.95

// PreEmphasis applies y[n] = x[n] - coeff*x[n-1] with x[-1] = 0.
func PreEmphasis(x []float32, coeff float64) []float32 {
	out := make([]float32, len(x))
	prev := 0.0
	for i, v := range x {
		cur := float64(v)
		out[i] = float32(cur - coeff*prev)
		prev = cur
	}
	return out
}

// DeEmphasis inverts PreEmphasis with the causal IIR filter
// 1 / (1 - coeff*z^-1), starting from rest. The recursion runs in float64
// and only the output is rounded to float32.
func DeEmphasis(x []float32, coeff float64) []float32 {
	out := make([]float32, len(x))
	acc := 0.0
	for i, v := range x {
		acc = float64(v) + coeff*acc
		out[i] = float32(acc)
	}
	return out
}

// DeEmphasisBatch applies DeEmphasis to every row of batch.
func DeEmphasisBatch(batch [][]float32, coeff float64) [][]float32 {
	out := make([][]float32, len(batch))
	for i, x := range batch {
		out[i] = DeEmphasis(x, coeff)
	}
	return out
}

// PreEmphasisBatch applies PreEmphasis to every row of batch.
func PreEmphasisBatch(batch [][]float32, coeff float64) [][]float32 {
	out := make([][]float32, len(batch))
	for i, x := range batch {
		out[i] = PreEmphasis(x, coeff)
	}
	return out
}
