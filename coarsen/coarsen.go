// Package coarsen implements the C/F splitting stage of AMG setup: the
// strength-of-connection matrix and the fixed-point coarsening loop that
// derives, from it, the subset of degrees of freedom retained on the next
// coarser level.
package coarsen

import (
	"math"

	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
)

// defaultMatMaxTol is mat_max's tolerance absent an explicit override
// (spec.md §4.2 "tol is fixed at 0.1").
const defaultMatMaxTol = 0.1

// Coarsen implements spec.md §4.2's strength-matrix-and-fixed-point-loop
// algorithm. a is the assembled matrix for this level, ids its gs_id
// array, ctol the coarsening tolerance (spec.md §6), h the per-dof gather-
// scatter handle and single the whole-world scalar reduction handle built
// over the same rank set as a. matMaxTol is mat_max's own filter tolerance
// (amg.Config's MatMaxTolerance); spec.md's fixed value is 0.1, recorded in
// this package as defaultMatMaxTol. The returned vc has length a.RN (owned rows only): vc[i]==true
// means local owned row i is promoted to the coarse level.
func Coarsen(a *csr.Matrix, ids []int64, ctol, matMaxTol float64, h *gs.Handle, single *gs.SingleHandle) ([]bool, error) {
	rn, cn := a.RN, a.CN

	d := make([]float64, cn)
	copy(d[:rn], a.Diag())
	if _, err := h.Exchange(gs.OpAdd, false, d); err != nil {
		return nil, err
	}
	for i := range d {
		d[i] = 1 / math.Sqrt(d[i])
	}

	s := a.Clone()
	s.ScaleRows(d[:rn])
	s.ScaleCols(d)
	for i, v := range s.A {
		s.A[i] = math.Abs(v)
	}
	sDiag := s.Diag()
	s.SubDiag(sDiag)

	vf := make([]float64, cn)
	for i := range vf {
		vf[i] = 1
	}
	vc := make([]bool, rn)
	anyvc := false

	for {
		g := make([]float64, cn)
		copy(g[:rn], s.MatVec(vf, 1))
		for i := 0; i < rn; i++ {
			g[i] *= vf[i]
		}
		if _, err := h.Exchange(gs.OpAdd, false, g); err != nil {
			return nil, err
		}

		w1 := make([]float64, cn)
		copy(w1[:rn], s.MatVec(g, 1))
		for i := 0; i < rn; i++ {
			w1[i] *= vf[i]
		}
		if _, err := h.Exchange(gs.OpAdd, false, w1); err != nil {
			return nil, err
		}

		w2a := make([]float64, cn)
		copy(w2a[:rn], s.MatVec(w1, 1))
		for i := 0; i < rn; i++ {
			w2a[i] *= vf[i]
		}
		if _, err := h.Exchange(gs.OpAdd, false, w2a); err != nil {
			return nil, err
		}
		w2 := s.MatVec(w2a, 1)
		for i := 0; i < rn; i++ {
			w2[i] *= vf[i]
		}

		w := make([]float64, rn)
		for i := 0; i < rn; i++ {
			if w1[i] == 0 {
				w[i] = 0
			} else {
				w[i] = w2[i] / w1[i]
			}
		}

		w1m := maxOf(w1[:rn])
		wm := maxOf(w)
		var err error
		w1m, err = single.ReduceFloat64(gs.OpMax, w1m)
		if err != nil {
			return nil, err
		}
		wm, err = single.ReduceFloat64(gs.OpMax, wm)
		if err != nil {
			return nil, err
		}
		b := math.Sqrt(math.Min(w1m, wm))

		if b <= ctol {
			if !anyvc {
				localMax, mil := argMax(w1[:rn])
				mi := 1 << 62
				if localMax == w1m {
					mi = int(ids[mil])
				}
				mi, err = single.ReduceInt(gs.OpMin, mi)
				if err != nil {
					return nil, err
				}
				for i := 0; i < rn; i++ {
					if int64(mi) == ids[i] {
						vc[i] = true
						break
					}
				}
			}
			return vc, nil
		}

		mask := make([]bool, rn)
		for i := 0; i < rn; i++ {
			mask[i] = w[i] > ctol*ctol
		}

		tmp := make([]float64, rn)
		for i := 0; i < rn; i++ {
			if mask[i] {
				tmp[i] = g[i]
			}
		}
		m, err := matMax(s, vf, tmp, matMaxTol, h)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rn; i++ {
			mask[i] = mask[i] && (g[i]-m[i] >= 0)
		}

		idf := make([]float64, rn)
		for i := 0; i < rn; i++ {
			idf[i] = float64(ids[i])
		}
		tmp2 := make([]float64, rn)
		for i := 0; i < rn; i++ {
			if mask[i] {
				tmp2[i] = idf[i]
			}
		}
		m2, err := matMax(s, vf, tmp2, matMaxTol, h)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rn; i++ {
			mask[i] = mask[i] && (idf[i]-m2[i] > 0)
		}

		for i := 0; i < rn; i++ {
			if mask[i] {
				vc[i] = true
			}
		}
		if !anyvc {
			for i := 0; i < rn; i++ {
				if vc[i] {
					anyvc = true
					break
				}
			}
			flag := 0
			if anyvc {
				flag = 1
			}
			flag, err = single.ReduceInt(gs.OpMax, flag)
			if err != nil {
				return nil, err
			}
			anyvc = flag != 0
		}

		for i := 0; i < rn; i++ {
			if mask[i] {
				vf[i] = 1 - vf[i]
			}
		}
		for i := rn; i < cn; i++ {
			vf[i] = 0
		}
		if _, err := h.Exchange(gs.OpAdd, false, vf); err != nil {
			return nil, err
		}
	}
}

// matMax implements spec.md §4.2's mat_max: for each row i, restrict to
// entries whose column is "fine" (vf != 0) and whose magnitude is at least
// matMaxTol times the row's own such maximum, then push x[i] as a candidate
// into each surviving column's running maximum; gather that maximum to its
// owner and scatter it back out so every rank sharing the column agrees.
func matMax(s *csr.Matrix, vf, x []float64, matMaxTol float64, h *gs.Handle) ([]float64, error) {
	cn := s.CN
	yg := make([]float64, cn)
	for i := range yg {
		yg[i] = math.Inf(-1)
	}
	for i := 0; i < s.RN; i++ {
		start, end := s.RowRange(i)
		amax := 0.0
		for k := start; k < end; k++ {
			j := s.Col[k]
			if vf[j] != 0 {
				if v := math.Abs(s.A[k]); v > amax {
					amax = v
				}
			}
		}
		amax *= matMaxTol
		for k := start; k < end; k++ {
			j := s.Col[k]
			if vf[j] == 0 || math.Abs(s.A[k]) < amax {
				continue
			}
			if x[i] > yg[j] {
				yg[j] = x[i]
			}
		}
	}
	if _, err := h.Exchange(gs.OpMax, true, yg); err != nil {
		return nil, err
	}
	if _, err := h.Exchange(gs.OpMax, false, yg); err != nil {
		return nil, err
	}
	return yg[:s.RN], nil
}

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

func argMax(v []float64) (float64, int) {
	m := math.Inf(-1)
	mi := 0
	for i, x := range v {
		if x > m {
			m, mi = x, i
		}
	}
	return m, mi
}
