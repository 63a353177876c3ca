package model

import "testing"

func rotate(buf []float32, cos, sin []float32) {
	half := len(cos)
	for ic := 0; ic < half; ic++ {
		a, b := buf[ic], buf[ic+half]
		c, s := cos[ic], sin[ic]
		buf[ic] = a*c - b*s
		buf[ic+half] = a*s + b*c
	}
}

func inverseRotate(buf []float32, cos, sin []float32) {
	half := len(cos)
	for ic := 0; ic < half; ic++ {
		a, b := buf[ic], buf[ic+half]
		c, s := cos[ic], sin[ic]
		// inverse of [[c,-s],[s,c]] is [[c,s],[-s,c]]
		buf[ic] = a*c + b*s
		buf[ic+half] = -a*s + b*c
	}
}

// TestRoPELinearity checks property 6: rotate then inverse-rotate at the
// same position is the identity.
func TestRoPELinearity(t *testing.T) {
	cfg, err := NewConfig(8, 16, 1, 2, 2, 4, 8, 1e-6, 10000)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	table := ComputeRoPETable(cfg)
	half := cfg.HeadSize / 2

	for p := 0; p < cfg.ContextLength; p++ {
		original := []float32{0.1, -0.2, 0.3, -0.4}
		buf := append([]float32{}, original...)
		cos := table.Cos[p*half : p*half+half]
		sin := table.Sin[p*half : p*half+half]

		rotate(buf, cos, sin)
		inverseRotate(buf, cos, sin)

		for i := range original {
			if diff := buf[i] - original[i]; diff > 1e-4 || diff < -1e-4 {
				t.Errorf("position %d: rotate+inverse not identity at %d: got %f want %f", p, i, buf[i], original[i])
			}
		}
	}
}

// TestRoPEIdentityAtZero checks scenario E: rotation at position 0 is
// the identity (cos=1, sin=0 for every frequency).
func TestRoPEIdentityAtZero(t *testing.T) {
	cfg, err := NewConfig(8, 16, 1, 2, 2, 4, 8, 1e-6, 10000)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	table := ComputeRoPETable(cfg)
	half := cfg.HeadSize / 2

	original := []float32{0.1, -0.2, 0.3, -0.4}
	buf := append([]float32{}, original...)
	rotate(buf, table.Cos[0:half], table.Sin[0:half])

	for i := range original {
		if diff := buf[i] - original[i]; diff > 1e-5 || diff < -1e-5 {
			t.Errorf("rotate at p=0 not identity at %d: got %f want %f", i, buf[i], original[i])
		}
	}
}
