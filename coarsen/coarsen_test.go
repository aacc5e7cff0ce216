package coarsen_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/openamg/goamg/coarsen"
	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
)

func tridiag4() (*csr.Matrix, []int64) {
	entries := []csr.COO{
		{I: 0, J: 0, V: 2}, {I: 0, J: 1, V: -1},
		{I: 1, J: 0, V: -1}, {I: 1, J: 1, V: 2}, {I: 1, J: 2, V: -1},
		{I: 2, J: 1, V: -1}, {I: 2, J: 2, V: 2}, {I: 2, J: 3, V: -1},
		{I: 3, J: 2, V: -1}, {I: 3, J: 3, V: 2},
	}
	return csr.NewFromCOO(4, 4, entries), []int64{1, 2, 3, 4}
}

// TestCoarsenSingleSeed exercises the loose-tolerance path where the
// fixed-point loop converges (b <= ctol) on its very first pass, before
// anyvc is ever set, forcing the single-coarse-seed fallback: the dof
// achieving the global max(w1) (here rows 1 and 2, tied at 0.75, broken by
// smallest global id) is promoted alone.
func TestCoarsenSingleSeed(t *testing.T) {
	a, ids := tridiag4()
	world := gs.NewWorld(1)
	grp := gs.NewGroup(world)
	h, err := grp.Setup(0, ids, 1)
	require.NoError(t, err)
	sg := gs.NewScalarGroup(world)
	single := sg.Setup(0)

	vc, err := coarsen.Coarsen(a, ids, 0.9, 0.1, h, single)
	require.NoError(t, err)
	if diff := cmp.Diff([]bool{false, true, false, false}, vc); diff != "" {
		t.Errorf("Coarsen() C/F split mismatch (-want +got):\n%s", diff)
	}
}
