package ggml

import "math"

// The state tensors (x, xb, hb, att, logits, ...) are always F32, so the
// elementwise/reduction operations spec.md describes as generic View
// operations are implemented directly over []float32 here, exactly as the
// teacher implements RMSNorm, Softmax, and SiLU as free functions rather
// than methods on a tensor type.

// AddInPlace computes dst += src elementwise.
func AddInPlace(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// MulInPlace computes dst *= src elementwise.
func MulInPlace(dst, src []float32) {
	for i := range dst {
		dst[i] *= src[i]
	}
}

// DivInPlace divides every element of dst by the scalar s.
func DivInPlace(dst []float32, s float32) {
	inv := 1 / s
	for i := range dst {
		dst[i] *= inv
	}
}

// FillInPlace sets every element of dst to s.
func FillInPlace(dst []float32, s float32) {
	for i := range dst {
		dst[i] = s
	}
}

// Reduce folds fn over x[off:off+n] starting from seed.
func Reduce(x []float32, off, n int, seed float32, fn func(acc, v float32) float32) float32 {
	acc := seed
	for i := 0; i < n; i++ {
		acc = fn(acc, x[off+i])
	}
	return acc
}

// Sum returns the sum of x[off:off+n].
func Sum(x []float32, off, n int) float32 {
	return Reduce(x, off, n, 0, func(acc, v float32) float32 { return acc + v })
}

// Max returns the maximum of x[off:off+n].
func Max(x []float32, off, n int) float32 {
	return Reduce(x, off, n, x[off], func(acc, v float32) float32 {
		if v > acc {
			return v
		}
		return acc
	})
}

// Argmax returns the index of the largest element in x[:n].
func Argmax(x []float32, n int) int {
	best := 0
	for i := 1; i < n; i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

// SoftmaxInPlace normalizes x[off:off+n] into a probability distribution:
// subtract the max for numerical stability, exponentiate, divide by sum.
func SoftmaxInPlace(x []float32, off, n int) {
	maxV := Max(x, off, n)
	var sum float32
	for i := 0; i < n; i++ {
		e := float32(math.Exp(float64(x[off+i] - maxV)))
		x[off+i] = e
		sum += e
	}
	DivInPlace(x[off:off+n], sum)
}

// SaxpyInPlace computes dst[offA:offA+n] += a * src[offB:offB+n].
func SaxpyInPlace(dst []float32, offA int, src []float32, offB, n int, a float32) {
	for i := 0; i < n; i++ {
		dst[offA+i] += a * src[offB+i]
	}
}

// CopyTo copies n elements from src[offB:] into dst[offA:].
func CopyTo(src []float32, offB int, dst []float32, offA, n int) {
	copy(dst[offA:offA+n], src[offB:offB+n])
}

// RMSNormInto computes out = (x / rms(x)) * w, where rms(x) =
// sqrt(mean(x^2) + eps). Accumulates the sum of squares in float64 to
// limit drift for wide layers, matching the teacher's RMSNorm.
func RMSNormInto(out, x, w []float32, eps float32) {
	n := len(x)
	var ss float64
	for i := 0; i < n; i++ {
		ss += float64(x[i]) * float64(x[i])
	}
	inv := float32(1.0 / math.Sqrt(ss/float64(n)+float64(eps)))
	for i := 0; i < n; i++ {
		out[i] = x[i] * inv * w[i]
	}
}

// RMSNormInPlace normalizes x in place using weight w.
func RMSNormInPlace(x, w []float32, eps float32) {
	RMSNormInto(x, x, w, eps)
}

// SiLU is the sigmoid-weighted linear unit: x * sigmoid(x).
func SiLU(x float32) float32 {
	return x / (1 + float32(math.Exp(float64(-x))))
}
