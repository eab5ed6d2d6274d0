// Package kernels implements the SPH smoothing kernels in 3D.
//
// Normalisation constants depend only on the smoothing radius and are
// computed once by New.
package kernels

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MinDistance is the separation below which a pair has no defined direction.
// Gradient terms for such pairs are skipped.
const MinDistance = 1e-9

// Set holds precomputed kernel coefficients for one smoothing radius.
type Set struct {
	H  float64
	H2 float64

	poly6     float64
	spikyGrad float64
	viscLap   float64
}

func New(h float64) Set {
	h3 := h * h * h
	h6 := h3 * h3
	h9 := h6 * h3
	return Set{
		H:         h,
		H2:        h * h,
		poly6:     315.0 / (64.0 * math.Pi * h9),
		spikyGrad: -45.0 / (math.Pi * h6),
		viscLap:   45.0 / (math.Pi * h6),
	}
}

// Poly6 evaluates W_poly6 at squared distance r2.
func (k Set) Poly6(r2 float64) float64 {
	if r2 >= k.H2 {
		return 0
	}
	d := k.H2 - r2
	return k.poly6 * d * d * d
}

// SpikyGrad is the radial derivative of the spiky kernel, negative inside
// the support.
func (k Set) SpikyGrad(r float64) float64 {
	if r >= k.H || r < MinDistance {
		return 0
	}
	d := k.H - r
	return k.spikyGrad * d * d
}

// SpikyGradVec returns ∇W_spiky(d) for the offset d = p_i - p_j.
func (k Set) SpikyGradVec(d r3.Vec) r3.Vec {
	r := r3.Norm(d)
	g := k.SpikyGrad(r)
	if g == 0 {
		return r3.Vec{}
	}
	return r3.Scale(g/r, d)
}

// ViscLaplacian evaluates the viscosity kernel Laplacian.
func (k Set) ViscLaplacian(r float64) float64 {
	if r >= k.H {
		return 0
	}
	return k.viscLap * (k.H - r)
}
