// Package interp builds a level's interpolation matrix: a minimal skeleton
// holding each fine row's single strongest coarse neighbor (min_skel)
// followed by an A-orthogonal
// least-energy solve for the numeric weights (solve_weights/interp), and
// the Jacobi-preconditioned CG (PCG) used as interp's internal forward
// solve on Af.
package interp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
	"github.com/openamg/goamg/internal/veckernel"
)

// ErrSingularDiagonal is returned by PCG when the Jacobi preconditioner
// meets a zero diagonal entry (spec.md §7, §9's flagged unguarded case).
var ErrSingularDiagonal = errors.New("interp: zero diagonal entry in Jacobi preconditioner")

// pcgMaxIters caps PCG at min(N_global, 100) per spec.md §4.7.
const pcgMaxIters = 100

// Build implements spec.md §4.6: af is the fine-fine block, ac the
// coarse-coarse block, afc the fine-coarse coupling, all already
// partitioned off the level's strength-based C/F split. fh/ch are the
// per-level gs handles for the fine and coarse column sets; single is the
// whole-world scalar handle. gamma2 mirrors the original interpolation()
// call's own gamma2 parameter, which its body never consumes either — both
// are presumably meant for the lambda-refinement loop that spec.md's
// Open Questions note is stubbed in the source (see DESIGN.md).
func Build(af, ac, afc *csr.Matrix, gamma2, itol float64, fh, ch *gs.Handle, single *gs.SingleHandle) (*csr.Matrix, error) {
	_ = gamma2
	rnf := af.RN
	if ac.RN == 0 {
		return &csr.Matrix{RN: rnf, CN: 0, RowOff: make([]int, rnf+1)}, nil
	}

	df := af.Diag()
	dfinv := make([]float64, rnf)
	for i, d := range df {
		if d != 0 {
			dfinv[i] = 1 / d
		}
	}

	cnc := ac.CN
	uc := make([]float64, cnc)
	for i := range uc {
		uc[i] = 1
	}

	r := afc.MatVec(uc, -1)
	v, _, err := PCG(af, r, dfinv, 1e-16, fh, single)
	if err != nil {
		return nil, err
	}

	dc := ac.Diag()
	dcinv := make([]float64, ac.CN)
	for i := 0; i < ac.RN; i++ {
		if dc[i] != 0 {
			dcinv[i] = 1 / dc[i]
		}
	}
	if _, err := ch.Exchange(gs.OpAdd, false, dcinv); err != nil {
		return nil, err
	}

	ard := afc.Clone()
	for k, a := range ard.A {
		ard.A[k] = a * a
	}
	ard.ScaleRows(dfinv)
	ard.ScaleCols(dcinv)

	wSkel := minSkel(ard)

	afT := af.Transpose()
	afcT := afc.Transpose()
	wSkelT := wSkel.Transpose()

	// lam indexed per fine point (interp's inner loop reads lambda[Qj[k]]
	// with Qj[k] a fine id); it stays at zero since this is the one-pass
	// reading of spec.md §4.6 with no outer lambda-refinement loop (see
	// DESIGN.md). u is indexed per coarse point (the outer loop variable),
	// so uc — already coarse-length ones — is exactly it.
	lam := make([]float64, rnf)

	wt := buildWeights(wSkelT, afT, afcT, uc, v, lam)
	return wt.Transpose(), nil
}

// minSkel implements spec.md §4.6 step 4 / the source's min_skel: for each
// fine row, keep the single coarse column with the largest value, as a 1
// entry if that max is positive, else a 0 entry. Every row gets exactly
// one entry regardless of sign, matching the source's CSR layout (one
// nonzero slot per row, value 0 or 1); a row with no candidates at all
// gets a placeholder at column 0, same as the source's uninitialized-j
// default.
func minSkel(r *csr.Matrix) *csr.Matrix {
	rn := r.RN
	rowOff := make([]int, rn+1)
	col := make([]int, rn)
	a := make([]float64, rn)
	for i := 0; i < rn; i++ {
		yMax := math.Inf(-1)
		j := 0
		for k := r.RowOff[i]; k < r.RowOff[i+1]; k++ {
			if r.A[k] > yMax {
				yMax = r.A[k]
				j = r.Col[k]
			}
		}
		col[i] = j
		if yMax > 0 {
			a[i] = 1
		}
		rowOff[i] = i
	}
	rowOff[rn] = rn
	return &csr.Matrix{RN: rn, CN: r.CN, RowOff: rowOff, Col: col, A: a}
}

// buildWeights implements spec.md §4.6 step 5's interp. It operates on
// wSkelT, the TRANSPOSE of minSkel's output (coarse rows, fine columns): row
// i here is a coarse point, and qj lists every fine point whose sole
// skeleton neighbor is i (minSkel gives each fine row exactly one coarse
// column, so transposing groups the fine points by shared coarse parent —
// the grouping is why the source's outer loop variable "i" only makes
// dimensional sense as a coarse index, not a fine one: it indexes rows of
// Bt=Afc^T and of Wt itself, neither of which have enough rows to be
// indexed by a raw fine id).
//
// For each group, it builds a shared A-orthonormal basis (packed
// upper-triangular, one column per group member) spanning afT's columns at
// the group's fine indices, then projects afcT's row i (the original Afc's
// column i, read via afcT since afc's own columns are compacted to
// 0..cnc-1) plus u[i]*lam onto that basis to solve every member's weight at
// once. afT, afcT must already be Af^T, Afc^T — reading row s of afT gives
// column s of Af. The result is W^T (coarse rows, fine columns); the caller
// transposes it back to get W.
func buildWeights(wSkelT, afT, afcT *csr.Matrix, u, v, lam []float64) *csr.Matrix {
	_ = v // unused: only feeds the lambda-refinement outer loop, stubbed per spec.md §4.6 note
	nc := wSkelT.RN
	wt := wSkelT.Clone()

	for i := 0; i < nc; i++ {
		wir := wSkelT.RowOff[i]
		qj := append([]int(nil), wSkelT.Col[wir:wSkelT.RowOff[i+1]]...)
		nz := len(qj)
		q := make([]float64, nz*(nz+1)/2)

		for k := 0; k < nz; k++ {
			s := qj[k]
			sqv1 := restrict(qj[:k+1], afT.Col[afT.RowOff[s]:afT.RowOff[s+1]], afT.A[afT.RowOff[s]:afT.RowOff[s+1]])

			sqv2 := mvUTT(k, q, sqv1[:k])
			qk := mvUT(k, q, sqv2)

			alpha := sqv1[k]
			for m := 0; m < k; m++ {
				alpha -= sqv1[m] * qk[m]
			}
			alpha = -1 / math.Sqrt(alpha)
			for m := 0; m < k; m++ {
				qk[m] *= alpha
			}
			off := k * (k + 1) / 2
			copy(q[off:off+k], qk)
			q[off+k] = -alpha
		}

		sqv1 := restrict(qj, afcT.Col[afcT.RowOff[i]:afcT.RowOff[i+1]], afcT.A[afcT.RowOff[i]:afcT.RowOff[i+1]])
		for k, j := range qj {
			sqv1[k] += u[i] * lam[j]
		}
		sqv2 := mvUTT(nz, q, sqv1)
		wi := mvUT(nz, q, sqv2)
		copy(wt.A[wir:wSkelT.RowOff[i+1]], wi)
	}
	return wt
}

// mvUTT computes y = Qᵀx for the n x n upper-triangular Q packed by column
// in q (column k, 0-indexed, occupies q[k(k+1)/2 : k(k+1)/2+k+1]) — exactly
// BLAS's standard column-packed upper-triangular layout, so the multiply is
// delegated to blas64.Tpmv rather than hand-rolled.
func mvUTT(n int, q, x []float64) []float64 {
	y := append([]float64(nil), x...)
	if n > 0 {
		blas64.Tpmv(blas.Trans, blas64.TriangularPacked{
			N: n, Uplo: blas.Upper, Diag: blas.NonUnit, Data: q[:n*(n+1)/2],
		}, blas64.Vector{Inc: 1, Data: y})
	}
	return y
}

// mvUT computes y = Qx for the same packed upper-triangular Q.
func mvUT(n int, q, x []float64) []float64 {
	y := append([]float64(nil), x...)
	if n > 0 {
		blas64.Tpmv(blas.NoTrans, blas64.TriangularPacked{
			N: n, Uplo: blas.Upper, Diag: blas.NonUnit, Data: q[:n*(n+1)/2],
		}, blas64.Vector{Inc: 1, Data: y})
	}
	return y
}

// restrict implements the source's sp_restrict_unsorted: returns y of
// length len(ri) with y[k] set to the x-value at index ri[k] if xi
// contains it, else 0. Go CSR rows aren't guaranteed column-sorted (unlike
// the source's), so this builds a lookup rather than assuming either side
// is ordered (the source's sorted variant, sp_restrict_sorted, isn't safe
// here for that reason).
func restrict(ri, xi []int, x []float64) []float64 {
	lookup := make(map[int]float64, len(xi))
	for k, j := range xi {
		lookup[j] = x[k]
	}
	y := make([]float64, len(ri))
	for k, target := range ri {
		y[k] = lookup[target]
	}
	return y
}

// PCG implements spec.md §4.7: preconditioned conjugate gradients with a
// Jacobi preconditioner (m, already inverted: z := m.*r), capped at
// min(N_global,100) iterations, converging when rho <= tol²*rho0. p is
// gs-add-exchanged before every matvec so its ghost entries agree with
// whichever rank owns them; p's ghost range is zeroed before each exchange
// so only the owning rank's fresh contribution is summed (the same
// zero-before-add convention used in lanczos's qk and coarsen's vf/g/w1).
func PCG(a *csr.Matrix, r, m []float64, tol float64, h *gs.Handle, single *gs.SingleHandle) ([]float64, int, error) {
	rn, cn := a.RN, a.CN
	x := make([]float64, rn)
	p := make([]float64, cn)

	z := make([]float64, rn)
	for i := range z {
		if m[i] == 0 {
			return nil, 0, ErrSingularDiagonal
		}
		z[i] = m[i] * r[i]
	}

	rho, err := single.ReduceFloat64(gs.OpAdd, veckernel.Dot(r, z))
	if err != nil {
		return nil, 0, err
	}
	rhoStop := tol * tol * rho

	nGlobal, err := single.ReduceInt(gs.OpAdd, rn)
	if err != nil {
		return nil, 0, err
	}
	n := nGlobal
	if n > pcgMaxIters {
		n = pcgMaxIters
	}
	if n == 0 {
		return x, 0, nil
	}

	rhoOld := 1.0
	k := 0
	w := make([]float64, rn)
	tmp := make([]float64, rn)

	for rho > rhoStop && k < n {
		k++
		beta := rho / rhoOld
		veckernel.Scal(beta, p[:rn])
		for i := 0; i < rn; i++ {
			p[i] += z[i]
		}
		for i := rn; i < cn; i++ {
			p[i] = 0
		}
		if _, err := h.Exchange(gs.OpAdd, false, p); err != nil {
			return nil, k, err
		}

		copy(w, a.MatVec(p, 1))

		alpha := veckernel.Dot(p[:rn], w)
		alpha, err = single.ReduceFloat64(gs.OpAdd, alpha)
		if err != nil {
			return nil, k, err
		}
		alpha = rho / alpha

		copy(tmp, p[:rn])
		veckernel.Scal(alpha, tmp)
		for i := 0; i < rn; i++ {
			x[i] += tmp[i]
		}

		veckernel.Scal(alpha, w)
		for i := 0; i < rn; i++ {
			r[i] -= w[i]
		}

		for i := 0; i < rn; i++ {
			z[i] = m[i] * r[i]
		}

		rhoOld = rho
		rho, err = single.ReduceFloat64(gs.OpAdd, veckernel.Dot(r, z))
		if err != nil {
			return nil, k, err
		}
	}

	return x, k, nil
}
