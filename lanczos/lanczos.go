// Package lanczos estimates the extreme eigenvalues of a level's scaled
// operator via symmetric Lanczos iteration, using a secular-equation
// tridiagonal eigensolver (tdeig.go) to track Ritz values as the
// tridiagonal grows by one row each step.
package lanczos

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
)

const (
	kmax            = 300
	changeTol       = 1e-5
	yTailTol        = 1e-3
	flatSpectrumTol = 1e-11
	yFilterTol      = 0.01
)

// Lanczos implements spec.md §4.4: symmetric Lanczos iteration on m (here
// always called with the scaled, symmetric positive operator DhAfDh),
// tracking Ritz values via tdeig and filtering them by the last component
// of their eigenvector. h is the per-dof gather-scatter handle for m's
// column set; single is the whole-world scalar reduction handle over the
// same rank set.
func Lanczos(m *csr.Matrix, ids []int64, h *gs.Handle, single *gs.SingleHandle) ([]float64, error) {
	rn, cn := m.RN, m.CN

	r := make([]float64, rn)
	for i := range r {
		r[i] = rand.Float64()
	}
	beta, err := globalNorm2(single, r)
	if err != nil {
		return nil, err
	}

	acpy := m.Clone()
	ones := make([]float64, rn)
	for i := range ones {
		ones[i] = 1
	}
	acpy.SubDiag(ones)
	fronorm, err := globalNorm2(single, acpy.A)
	if err != nil {
		return nil, err
	}

	rnGlob, err := single.ReduceInt(gs.OpAdd, rn)
	if err != nil {
		return nil, err
	}

	var l, y []float64
	k := 0
	change := 1.0

	switch {
	case fronorm < flatSpectrumTol:
		l, y, k, change = []float64{1, 1}, []float64{0, 0}, 2, 0
	case rnGlob == 1:
		a00 := 0.0
		if rn == 1 {
			a00 = m.A[0]
		}
		a00, err = single.ReduceFloat64(gs.OpAdd, a00)
		if err != nil {
			return nil, err
		}
		l, y, k, change = []float64{a00, a00}, []float64{0, 0}, 2, 0
	default:
		qk := make([]float64, cn)
		var qkm1 []float64

		for shouldContinue(k, kmax, change, y) {
			k++

			qkm1 = append([]float64(nil), qk[:rn]...)

			copy(qk[:rn], r)
			floats.Scale(1/beta, qk[:rn])
			for i := rn; i < cn; i++ {
				qk[i] = 0
			}
			if _, err := h.Exchange(gs.OpAdd, false, qk); err != nil {
				return nil, err
			}

			aqk := m.MatVec(qk, 1)

			alpha := floats.Dot(qk[:rn], aqk)
			alpha, err = single.ReduceFloat64(gs.OpAdd, alpha)
			if err != nil {
				return nil, err
			}

			copy(r, aqk)
			floats.AddScaled(r, -alpha, qk[:rn])
			floats.AddScaled(r, -beta, qkm1)

			if k == 1 {
				l = []float64{alpha}
				y = []float64{1}
			} else {
				l0, lPrevLast := l[0], l[len(l)-1]
				d := make([]float64, k+1)
				for i := 1; i < k; i++ {
					d[i] = l[i-1]
				}
				v := make([]float64, k)
				v[0] = alpha
				for i := 1; i < k; i++ {
					v[i] = beta * y[i-1]
				}
				l, y = tdeig(d, v, k-1)
				change = math.Abs(l0-l[0]) + math.Abs(lPrevLast-l[len(l)-1])
			}

			beta, err = globalNorm2(single, r)
			if err != nil {
				return nil, err
			}
			if beta == 0 {
				break
			}
		}
	}

	out := make([]float64, 0, len(l))
	for i := range l {
		if math.Abs(y[i]) < yFilterTol {
			out = append(out, l[i])
		}
	}
	return out, nil
}

func shouldContinue(k, maxK int, change float64, y []float64) bool {
	if k >= maxK {
		return false
	}
	if change > changeTol {
		return true
	}
	if len(y) == 0 {
		return false
	}
	return y[0] > yTailTol || y[len(y)-1] > yTailTol
}

func globalNorm2(single *gs.SingleHandle, v []float64) (float64, error) {
	s, err := single.ReduceFloat64(gs.OpAdd, floats.Dot(v, v))
	if err != nil {
		return 0, err
	}
	return math.Sqrt(s), nil
}
