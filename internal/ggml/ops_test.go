package ggml

import (
	"math"
	"testing"
)

// TestRMSNormInPlace verifies RMS normalization against a direct
// reimplementation of the definition in spec.md §4.6.
func TestRMSNormInPlace(t *testing.T) {
	x := []float32{1.0, 2.0, 3.0, 4.0}
	w := []float32{1.0, 1.0, 1.0, 1.0}
	eps := float32(1e-6)

	var ss float64
	for _, v := range x {
		ss += float64(v * v)
	}
	rms := math.Sqrt(ss/float64(len(x)) + float64(eps))
	expected := make([]float32, len(x))
	for i, v := range x {
		expected[i] = float32(float64(v) / rms)
	}

	RMSNormInPlace(x, w, eps)

	for i := range x {
		if math.Abs(float64(x[i]-expected[i])) > 1e-5 {
			t.Errorf("RMSNormInPlace[%d]: got %f, expected %f", i, x[i], expected[i])
		}
	}
}

// TestRMSNormUnitWeight checks property 5: for weight ≡ 1, the result has
// mean-square within 1+eps of 1.
func TestRMSNormUnitWeight(t *testing.T) {
	x := []float32{3, -7, 2.5, 19, -0.5, 6}
	w := make([]float32, len(x))
	for i := range w {
		w[i] = 1
	}
	eps := float32(1e-5)
	RMSNormInPlace(x, w, eps)

	var ss float64
	for _, v := range x {
		ss += float64(v) * float64(v)
	}
	ms := ss / float64(len(x))
	if math.Abs(ms-1) > float64(eps)+1e-3 {
		t.Errorf("mean square after RMSNorm = %f, want ~1", ms)
	}
}

// TestSoftmaxSumsToOne verifies property 4: softmax output sums to 1.
func TestSoftmaxSumsToOne(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	SoftmaxInPlace(x, 0, len(x))

	var sum float32
	for _, v := range x {
		sum += v
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Errorf("softmax sum = %f, want 1", sum)
	}
}

// TestSoftmaxMatchesReference checks scenario D: softmax([1,2,3,4]).
func TestSoftmaxMatchesReference(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	SoftmaxInPlace(x, 0, len(x))

	want := []float32{0.0321, 0.0871, 0.2369, 0.6439}
	for i := range want {
		if math.Abs(float64(x[i]-want[i])) > 1e-4 {
			t.Errorf("softmax[%d] = %f, want %f", i, x[i], want[i])
		}
	}
}

// TestSoftmaxShiftInvariant checks property 4's shift invariance.
func TestSoftmaxShiftInvariant(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{11, 12, 13, 14}
	SoftmaxInPlace(a, 0, len(a))
	SoftmaxInPlace(b, 0, len(b))

	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			t.Errorf("softmax not shift-invariant at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestArgmaxStrictMax(t *testing.T) {
	x := []float32{0.1, 0.9, 0.2, 0.05}
	if got := Argmax(x, len(x)); got != 1 {
		t.Errorf("Argmax = %d, want 1", got)
	}
}

func TestSaxpyInPlace(t *testing.T) {
	dst := []float32{1, 1, 1}
	src := []float32{2, 3, 4}
	SaxpyInPlace(dst, 0, src, 0, 3, 2)

	want := []float32{5, 7, 9}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("saxpy[%d] = %f, want %f", i, dst[i], want[i])
		}
	}
}

func TestSiLU(t *testing.T) {
	got := SiLU(0)
	if math.Abs(float64(got)) > 1e-6 {
		t.Errorf("SiLU(0) = %f, want 0", got)
	}
}
