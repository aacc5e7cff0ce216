package csr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openamg/goamg/csr"
)

func tridiag4() *csr.Matrix {
	// [[2,-1,0,0],[-1,2,-1,0],[0,-1,2,-1],[0,0,-1,2]]
	entries := []csr.COO{
		{I: 0, J: 0, V: 2}, {I: 0, J: 1, V: -1},
		{I: 1, J: 0, V: -1}, {I: 1, J: 1, V: 2}, {I: 1, J: 2, V: -1},
		{I: 2, J: 1, V: -1}, {I: 2, J: 2, V: 2}, {I: 2, J: 3, V: -1},
		{I: 3, J: 2, V: -1}, {I: 3, J: 3, V: 2},
	}
	return csr.NewFromCOO(4, 4, entries)
}

func TestNewFromCOOSumsDuplicates(t *testing.T) {
	entries := []csr.COO{
		{I: 0, J: 0, V: 1},
		{I: 0, J: 0, V: 1.5},
		{I: 1, J: 0, V: 2},
	}
	m := csr.NewFromCOO(2, 1, entries)
	require.Equal(t, []int{0, 1, 2}, m.RowOff)
	require.Equal(t, 2.5, m.A[0])
	require.Equal(t, 2.0, m.A[1])
}

func TestDiag(t *testing.T) {
	m := tridiag4()
	require.Equal(t, []float64{2, 2, 2, 2}, m.Diag())
}

func TestMatVec(t *testing.T) {
	m := tridiag4()
	x := []float64{1, 1, 1, 1}
	y := m.MatVec(x, 1)
	require.Equal(t, []float64{1, 0, 0, 1}, y)
}

func TestScaleRowsAndCols(t *testing.T) {
	m := tridiag4()
	d := []float64{1, 2, 1, 1}
	m.ScaleRows(d)
	// row 0 (cols [0,1]) is scaled as a whole by d[0]=1
	require.Equal(t, []float64{2, -1}, m.A[:2])

	m2 := tridiag4()
	m2.ScaleCols(d)
	// row 0 has cols [0,1] scaled by d[0]=1, d[1]=2
	require.Equal(t, []float64{2, -2}, m2.A[:2])
}

func TestTransposeRoundTrip(t *testing.T) {
	m := tridiag4() // symmetric, so transpose should equal itself elementwise
	mt := m.Transpose()
	require.Equal(t, m.RN, mt.CN)
	require.Equal(t, m.CN, mt.RN)
	x := []float64{1, 2, 3, 4}
	require.InDeltaSlice(t, m.MatVec(x, 1), mt.MatVec(x, 1), 1e-12)
}

func TestSubMatrix(t *testing.T) {
	m := tridiag4()
	vr := []bool{true, false, true, false}
	vc := []bool{true, false, true, false}
	sub := m.SubMatrix(vr, vc)
	require.Equal(t, 2, sub.RN)
	require.Equal(t, 2, sub.CN)
	// rows {0,2} restricted to cols {0,2}: row0 keeps col0 only (val 2),
	// row2 keeps col2 only (val 2); the -1 couplings to dropped cols vanish.
	require.Equal(t, []float64{2, 2}, sub.A)
}

func TestColumnMap(t *testing.T) {
	vc := []bool{true, false, true}
	g2l := csr.ColumnMap(vc)
	require.Equal(t, []int{0, -1, 1}, g2l)
}

func TestFilterInt64(t *testing.T) {
	v := []int64{10, 20, 30}
	keep := []bool{true, false, true}
	require.Equal(t, []int64{10, 30}, csr.FilterInt64(v, keep))
}
