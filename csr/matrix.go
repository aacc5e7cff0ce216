// Package csr implements the row-distributed sparse primitives the AMG
// setup pipeline is built on: compressed-sparse-row matrices, coordinate
// (COO) triples, diagonal operations, and sub-matrix extraction by
// row/column selector masks.
//
// A Matrix is row-partitioned: RN counts the rows a process owns locally,
// CN (>= RN) counts every distinct column referenced by those rows,
// including "ghost" columns owned by other processes. The first RN column
// indices correspond 1-to-1, in order, with the RN local rows.
package csr

// Matrix is a compressed-sparse-row matrix. Within a row, columns may be
// unsorted; duplicate (row, col) pairs within a row are forbidden.
type Matrix struct {
	RN, CN int
	RowOff []int // len RN+1, non-decreasing, RowOff[0]==0, RowOff[RN]==len(Col)
	Col    []int // len RowOff[RN], entries in [0, CN)
	A      []float64
}

// NewFromCOO builds an RN x CN Matrix from entries, summing the values of
// any duplicate (I,J) pairs (conservation-of-mass assembly, spec.md §4.1e).
// Every entry's I must lie in [0,RN); entries are otherwise unordered on
// input. The input slice is not modified.
func NewFromCOO(rn, cn int, entries []COO) *Matrix {
	cp := make([]COO, len(entries))
	copy(cp, entries)
	for _, e := range cp {
		if e.I < 0 || e.I >= rn {
			panic(ErrRowOutOfRange)
		}
	}
	SortCOO(cp, ByRowCol)

	rowOff := make([]int, rn+1)
	col := make([]int, 0, len(cp))
	a := make([]float64, 0, len(cp))

	idx := 0
	for row := 0; row < rn; row++ {
		rowOff[row] = len(col)
		for idx < len(cp) && cp[idx].I == row {
			j := cp[idx].J
			if j < 0 || j >= cn {
				panic(ErrColOutOfRange)
			}
			v := cp[idx].V
			idx++
			for idx < len(cp) && cp[idx].I == row && cp[idx].J == j {
				v += cp[idx].V
				idx++
			}
			col = append(col, j)
			a = append(a, v)
		}
	}
	rowOff[rn] = len(col)
	return &Matrix{RN: rn, CN: cn, RowOff: rowOff, Col: col, A: a}
}

// NNZ returns the number of locally stored non-zero entries.
func (m *Matrix) NNZ() int { return len(m.A) }

// RowRange returns the [start,end) slice bounds of row i into Col/A.
func (m *Matrix) RowRange(i int) (start, end int) {
	return m.RowOff[i], m.RowOff[i+1]
}

// Diag extracts the diagonal of a square-on-its-owned-rows matrix: for each
// local row i, the value at column i, or 0 if row i has no entry there.
func (m *Matrix) Diag() []float64 {
	d := make([]float64, m.RN)
	for i := 0; i < m.RN; i++ {
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			if m.Col[k] == i {
				d[i] = m.A[k]
				break
			}
		}
	}
	return d
}

// AddDiag adds d[i] to the (i,i) entry of row i, if that entry exists. Rows
// with no diagonal entry are left untouched.
func (m *Matrix) AddDiag(d []float64) { m.applyDiag(d, func(a, b float64) float64 { return a + b }) }

// SubDiag subtracts d[i] from the (i,i) entry of row i, if it exists.
func (m *Matrix) SubDiag(d []float64) { m.applyDiag(d, func(a, b float64) float64 { return a - b }) }

func (m *Matrix) applyDiag(d []float64, op func(a, b float64) float64) {
	for i := 0; i < m.RN; i++ {
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			if m.Col[k] == i {
				m.A[k] = op(m.A[k], d[i])
				break
			}
		}
	}
}

// ScaleRows multiplies every entry of row i by d[i] (left-multiplication by
// a diagonal matrix: diag(d) * m).
func (m *Matrix) ScaleRows(d []float64) {
	for i := 0; i < m.RN; i++ {
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			m.A[k] *= d[i]
		}
	}
}

// ScaleCols multiplies every entry in column Col[k] by d[Col[k]]
// (right-multiplication by a diagonal matrix: m * diag(d)). len(d) must be
// m.CN.
func (m *Matrix) ScaleCols(d []float64) {
	for i := 0; i < m.RN; i++ {
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			m.A[k] *= d[m.Col[k]]
		}
	}
}

// MatVec returns alpha * (m * x). len(x) must be m.CN; the result has
// length m.RN.
func (m *Matrix) MatVec(x []float64, alpha float64) []float64 {
	y := make([]float64, m.RN)
	for i := 0; i < m.RN; i++ {
		var sum float64
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			sum += m.A[k] * x[m.Col[k]]
		}
		y[i] = alpha * sum
	}
	return y
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{
		RN:     m.RN,
		CN:     m.CN,
		RowOff: append([]int(nil), m.RowOff...),
		Col:    append([]int(nil), m.Col...),
		A:      append([]float64(nil), m.A...),
	}
}

// Transpose returns mᵀ as a new Matrix with RN=m.CN rows (every column of m
// becomes a row) and CN=m.RN columns.
func (m *Matrix) Transpose() *Matrix {
	nnz := len(m.A)
	colCount := make([]int, m.CN)
	for _, j := range m.Col {
		colCount[j]++
	}
	rowOff := make([]int, m.CN+1)
	for j := 0; j < m.CN; j++ {
		rowOff[j+1] = rowOff[j] + colCount[j]
	}
	col := make([]int, nnz)
	a := make([]float64, nnz)
	next := append([]int(nil), rowOff[:m.CN]...)
	for i := 0; i < m.RN; i++ {
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			j := m.Col[k]
			pos := next[j]
			col[pos] = i
			a[pos] = m.A[k]
			next[j]++
		}
	}
	return &Matrix{RN: m.CN, CN: m.RN, RowOff: rowOff, Col: col, A: a}
}

// SubMatrix extracts A(vr, vc): the rows where vr is true, restricted to
// the columns where vc is true. Columns are renumbered in the order they
// appear in vc (spec.md §4.3). len(vr) must be m.RN, len(vc) must be m.CN.
func (m *Matrix) SubMatrix(vr, vc []bool) *Matrix {
	if len(vr) != m.RN || len(vc) != m.CN {
		panic(ErrDimMismatch)
	}
	g2l := make([]int, m.CN)
	subCN := 0
	for j, keep := range vc {
		if keep {
			g2l[j] = subCN
			subCN++
		} else {
			g2l[j] = -1
		}
	}

	rowOff := make([]int, 0, m.RN+1)
	rowOff = append(rowOff, 0)
	var col []int
	var a []float64
	subRN := 0
	for i, keep := range vr {
		if !keep {
			continue
		}
		subRN++
		for k := m.RowOff[i]; k < m.RowOff[i+1]; k++ {
			j := m.Col[k]
			if l := g2l[j]; l >= 0 {
				col = append(col, l)
				a = append(a, m.A[k])
			}
		}
		rowOff = append(rowOff, len(col))
	}
	return &Matrix{RN: subRN, CN: subCN, RowOff: rowOff, Col: col, A: a}
}

// ColumnMap returns, for each column j of m, its local index in the
// sub-matrix that SubMatrix(vr, vc) would produce for this vc (or -1 if
// column j is dropped). It is exposed separately from SubMatrix so that a
// caller can apply the same renumbering to a parallel per-column vector.
func ColumnMap(vc []bool) []int {
	g2l := make([]int, len(vc))
	next := 0
	for j, keep := range vc {
		if keep {
			g2l[j] = next
			next++
		} else {
			g2l[j] = -1
		}
	}
	return g2l
}

// FilterInt64 returns the subsequence of v at indices where keep is true.
// It and FilterFloat64 replace the source's sub_vec/sub_slong with one
// non-generic function per element type this codebase uses.
func FilterInt64(v []int64, keep []bool) []int64 {
	out := make([]int64, 0, len(v))
	for i, k := range keep {
		if k {
			out = append(out, v[i])
		}
	}
	return out
}

// FilterFloat64 returns the subsequence of v at indices where keep is true.
func FilterFloat64(v []float64, keep []bool) []float64 {
	out := make([]float64, 0, len(v))
	for i, k := range keep {
		if k {
			out = append(out, v[i])
		}
	}
	return out
}

// Mul returns the matrix product a*b. a.CN must equal b.RN; the product has
// a.RN rows and b.CN columns. Used by amg.Setup to form the Galerkin coarse
// operator (Wᵀ Af W, Wᵀ Afc, Afcᵀ W) from the per-level blocks the rest of
// the pipeline already builds as CSR.
func Mul(a, b *Matrix) *Matrix {
	if a.CN != b.RN {
		panic(ErrDimMismatch)
	}
	var entries []COO
	row := make(map[int]float64)
	for i := 0; i < a.RN; i++ {
		for k := a.RowOff[i]; k < a.RowOff[i+1]; k++ {
			j := a.Col[k]
			av := a.A[k]
			for k2 := b.RowOff[j]; k2 < b.RowOff[j+1]; k2++ {
				row[b.Col[k2]] += av * b.A[k2]
			}
		}
		for col, v := range row {
			entries = append(entries, COO{I: i, J: col, V: v})
			delete(row, col)
		}
	}
	return NewFromCOO(a.RN, b.CN, entries)
}

// Add returns a+b, entrywise. a and b must have identical shape.
func Add(a, b *Matrix) *Matrix {
	if a.RN != b.RN || a.CN != b.CN {
		panic(ErrDimMismatch)
	}
	entries := make([]COO, 0, len(a.A)+len(b.A))
	for i := 0; i < a.RN; i++ {
		for k := a.RowOff[i]; k < a.RowOff[i+1]; k++ {
			entries = append(entries, COO{I: i, J: a.Col[k], V: a.A[k]})
		}
		for k := b.RowOff[i]; k < b.RowOff[i+1]; k++ {
			entries = append(entries, COO{I: i, J: b.Col[k], V: b.A[k]})
		}
	}
	return NewFromCOO(a.RN, a.CN, entries)
}
