package assembly_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openamg/goamg/assembly"
	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
)

func TestAssignOwner(t *testing.T) {
	require.Equal(t, 1, assembly.AssignOwner(1, 2))
	require.Equal(t, 0, assembly.AssignOwner(2, 2))
	require.Equal(t, 1, assembly.AssignOwner(3, 2))
}

// TestAssembleSingleRank builds the spec.md §8 scenario-1 tridiagonal
// matrix from one rank's worth of unassembled triples and checks the
// assembled CSR and gs_id it produces.
func TestAssembleSingleRank(t *testing.T) {
	world := gs.NewWorld(1)
	router := assembly.NewInProcessRouter(world)

	ids := []int64{1, 2, 3, 4}
	triples := []assembly.Triple{
		{Row: 0, Col: 0, Val: 2}, {Row: 0, Col: 1, Val: -1},
		{Row: 1, Col: 0, Val: -1}, {Row: 1, Col: 1, Val: 2}, {Row: 1, Col: 2, Val: -1},
		{Row: 2, Col: 1, Val: -1}, {Row: 2, Col: 2, Val: 2}, {Row: 2, Col: 3, Val: -1},
		{Row: 3, Col: 2, Val: -1}, {Row: 3, Col: 3, Val: 2},
	}

	m, gsID, err := assembly.Assemble(world, router, 0, ids, triples)
	require.NoError(t, err)
	require.Equal(t, 4, m.RN)
	require.Equal(t, 4, m.CN)
	require.Equal(t, []int64{1, 2, 3, 4}, gsID)
	require.Equal(t, []float64{2, 2, 2, 2}, m.Diag())
}

// TestAssembleTwoRankSplit splits spec.md §8 scenario-4's 4x4 tridiagonal
// across two ranks, each assembling its own rows' global-dof-local triples
// (global dofs 2,4 on rank0; 1,3 on rank1), and checks that each rank's
// gs_id records the other's referenced dof as a negative ghost entry.
func TestAssembleTwoRankSplit(t *testing.T) {
	world := gs.NewWorld(2)
	router := assembly.NewInProcessRouter(world)

	ids0 := []int64{2, 4, 1, 3} // local 0,1,2,3 -> global 2,4,1,3
	triples0 := []assembly.Triple{
		{Row: 0, Col: 2, Val: -1}, // (2,1)
		{Row: 0, Col: 0, Val: 2},  // (2,2)
		{Row: 0, Col: 3, Val: -1}, // (2,3)
		{Row: 1, Col: 3, Val: -1}, // (4,3)
		{Row: 1, Col: 1, Val: 2},  // (4,4)
	}

	ids1 := []int64{1, 3, 2, 4} // local 0,1,2,3 -> global 1,3,2,4
	triples1 := []assembly.Triple{
		{Row: 0, Col: 0, Val: 2},  // (1,1)
		{Row: 0, Col: 2, Val: -1}, // (1,2)
		{Row: 1, Col: 2, Val: -1}, // (3,2)
		{Row: 1, Col: 1, Val: 2},  // (3,3)
		{Row: 1, Col: 3, Val: -1}, // (3,4)
	}

	var m0, m1 *csr.Matrix
	var gs0, gs1 []int64
	var err0, err1 error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m0, gs0, err0 = assembly.Assemble(world, router, 0, ids0, triples0)
	}()
	go func() {
		defer wg.Done()
		m1, gs1, err1 = assembly.Assemble(world, router, 1, ids1, triples1)
	}()
	wg.Wait()

	require.NoError(t, err0)
	require.NoError(t, err1)

	require.Equal(t, 2, m0.RN)
	require.Equal(t, 4, m0.CN)
	require.Equal(t, []int64{2, 4, -1, -3}, gs0)
	require.Equal(t, []float64{2, 2}, m0.Diag())

	require.Equal(t, 2, m1.RN)
	require.Equal(t, 4, m1.CN)
	require.Equal(t, []int64{1, 3, -2, -4}, gs1)
	require.Equal(t, []float64{2, 2}, m1.Diag())
}
