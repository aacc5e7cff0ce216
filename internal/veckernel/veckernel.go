// Package veckernel wraps the Level 1 BLAS vector kernels (dot product,
// scaled accumulation, scaling) for small local slices. interp.PCG uses Dot
// and Scal; the interpolation builder's A-orthogonalization does not use
// this package.
package veckernel

import "gonum.org/v1/gonum/blas/blas64"

func vec(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Data: x, Inc: 1}
}

// Dot returns the dot product of x and y.
func Dot(x, y []float64) float64 {
	return blas64.Dot(vec(x), vec(y))
}

// Axpy computes y := alpha*x + y in place.
func Axpy(alpha float64, x, y []float64) {
	blas64.Axpy(alpha, vec(x), vec(y))
}

// Scal computes x := alpha*x in place.
func Scal(alpha float64, x []float64) {
	blas64.Scal(alpha, vec(x))
}
