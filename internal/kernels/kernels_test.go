package kernels

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestPoly6(t *testing.T) {
	k := New(1)

	want := 315.0 / (64.0 * math.Pi)
	if got := k.Poly6(0); math.Abs(got-want) > 1e-12 {
		t.Errorf("poly6(0): expected %f, got %f", want, got)
	}
	if k.Poly6(1) != 0 || k.Poly6(2) != 0 {
		t.Error("poly6 must vanish outside the support")
	}
	if k.Poly6(0.25) < 0 {
		t.Error("poly6 must be non-negative")
	}
}

func TestPoly6Normalised(t *testing.T) {
	// ∫ W dV over the ball of radius h is 1.
	k := New(0.7)
	const n = 4000
	dr := k.H / n
	sum := 0.0
	for i := 0; i < n; i++ {
		r := (float64(i) + 0.5) * dr
		sum += k.Poly6(r*r) * 4 * math.Pi * r * r * dr
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("expected unit integral, got %f", sum)
	}
}

func TestSpikyGrad(t *testing.T) {
	k := New(2)
	tests := []struct {
		r    float64
		want float64
	}{
		{0, 0},
		{1e-12, 0},
		{1, -45.0 / (math.Pi * 64)},
		{2, 0},
		{3, 0},
	}
	for _, tt := range tests {
		if got := k.SpikyGrad(tt.r); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("spikyGrad(%f): expected %f, got %f", tt.r, tt.want, got)
		}
	}
}

func TestSpikyGradVecAntisymmetric(t *testing.T) {
	k := New(1)
	d := r3.Vec{X: 0.2, Y: -0.1, Z: 0.3}

	a := k.SpikyGradVec(d)
	b := k.SpikyGradVec(r3.Scale(-1, d))
	if r3.Norm(r3.Add(a, b)) > 1e-12 {
		t.Errorf("gradient not antisymmetric: %v %v", a, b)
	}
	// Points from i back toward j.
	if r3.Dot(a, d) >= 0 {
		t.Error("spiky gradient must point against the offset")
	}
	if k.SpikyGradVec(r3.Vec{}) != (r3.Vec{}) {
		t.Error("zero offset must give zero gradient")
	}
}

func TestViscLaplacian(t *testing.T) {
	k := New(1)
	if got, want := k.ViscLaplacian(0.5), 45.0/math.Pi*0.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, got)
	}
	if k.ViscLaplacian(1.5) != 0 {
		t.Error("laplacian must vanish outside the support")
	}
}

func BenchmarkPoly6(b *testing.B) {
	k := New(1)
	for i := 0; i < b.N; i++ {
		_ = k.Poly6(0.3)
	}
}
