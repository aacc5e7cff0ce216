package amg_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/openamg/goamg/amg"
	"github.com/openamg/goamg/assembly"
	"github.com/openamg/goamg/gs"
)

// TestSetupTridiag4SingleRank exercises spec.md §8 scenario 1: a single
// rank assembling and setting up the full 4x4 tridiagonal. The coarsener's
// strength-based split should land on one of the two alternating patterns,
// giving two fine and two coarse dofs and a Chebyshev smoother of degree at
// least 2 (the nf>=2 branch actually runs).
func TestSetupTridiag4SingleRank(t *testing.T) {
	world := gs.NewWorld(1)
	ids := []int64{1, 2, 3, 4}
	triples := []assembly.Triple{
		{Row: 0, Col: 0, Val: 2}, {Row: 0, Col: 1, Val: -1},
		{Row: 1, Col: 0, Val: -1}, {Row: 1, Col: 1, Val: 2}, {Row: 1, Col: 2, Val: -1},
		{Row: 2, Col: 1, Val: -1}, {Row: 2, Col: 2, Val: 2}, {Row: 2, Col: 3, Val: -1},
		{Row: 3, Col: 2, Val: -1}, {Row: 3, Col: 3, Val: 2},
	}

	h, err := amg.Setup(amg.DefaultConfig(), world, 0, ids, triples)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(h.Levels), 1)

	s := h.Stats[0]
	require.Equal(t, 4, s.NFine+s.NCoarse)
	require.Equal(t, 2, s.NFine)
	require.Equal(t, 2, s.NCoarse)
	require.GreaterOrEqual(t, s.ChebM, 2)
	require.Greater(t, s.ChebRho, 0.0)
	require.Less(t, s.ChebRho, 1.0)
}

// TestSetupIdentity2x2SingleRank exercises spec.md §8 scenario 2: a 2x2
// identity matrix has a flat (zero) strength matrix, so the coarsener's
// single-seed fallback promotes exactly one dof (the smallest global id)
// to coarse, leaving one fine dof — too few for Lanczos/Chebyshev to run,
// so the degenerate defaults (cheb_m=1, cheb_rho=0) apply.
func TestSetupIdentity2x2SingleRank(t *testing.T) {
	world := gs.NewWorld(1)
	ids := []int64{1, 2}
	triples := []assembly.Triple{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 1},
	}

	h, err := amg.Setup(amg.DefaultConfig(), world, 0, ids, triples)
	require.NoError(t, err)
	require.Len(t, h.Levels, 1)

	s := h.Stats[0]
	require.Equal(t, 1, s.NFine)
	require.Equal(t, 1, s.NCoarse)
	require.Equal(t, 1, s.ChebM)
	require.Equal(t, 0.0, s.ChebRho)
}

// TestSetupSingleDofSystem exercises spec.md §8 scenario 3's boundary: a
// single dof has a flat strength matrix too, so the single-seed fallback
// promotes it straight to coarse (there is nothing to be fine relative to).
// nf_global ends up 0, Coarsen's global coarse count (1) is already at
// cfg.CoarsestMaxRows, so the hierarchy stops after exactly one level — see
// DESIGN.md for why this differs from the Dff[0]=1/5 arithmetic spec.md §8
// item 3 sketches (that number assumes the dof stays fine, which the
// coarsener's single-seed rule as specified in §4.2 does not produce).
func TestSetupSingleDofSystem(t *testing.T) {
	world := gs.NewWorld(1)
	ids := []int64{1}
	triples := []assembly.Triple{{Row: 0, Col: 0, Val: 5}}

	h, err := amg.Setup(amg.DefaultConfig(), world, 0, ids, triples)
	require.NoError(t, err)
	require.Len(t, h.Levels, 1)

	s := h.Stats[0]
	require.Equal(t, 0, s.NFine)
	require.Equal(t, 1, s.NCoarse)
	require.Equal(t, 1, s.ChebM)
	require.Equal(t, 0.0, s.ChebRho)
	require.Equal(t, 1.0, h.TNI)
}

// TestSetupTwoRankSplitAgreesAcrossRanks exercises spec.md §8 scenario 4:
// the same 4x4 tridiagonal, split across two ranks exactly as
// assembly_test.go's TestAssembleTwoRankSplit does (dofs 2,4 on rank0;
// 1,3 on rank1), run concurrently. Every global quantity Setup derives via
// a gs reduction must agree between the two ranks' returned Hierarchy.
func TestSetupTwoRankSplitAgreesAcrossRanks(t *testing.T) {
	world := gs.NewWorld(2)

	ids0 := []int64{2, 4, 1, 3}
	triples0 := []assembly.Triple{
		{Row: 0, Col: 2, Val: -1},
		{Row: 0, Col: 0, Val: 2},
		{Row: 0, Col: 3, Val: -1},
		{Row: 1, Col: 3, Val: -1},
		{Row: 1, Col: 1, Val: 2},
	}

	ids1 := []int64{1, 3, 2, 4}
	triples1 := []assembly.Triple{
		{Row: 0, Col: 0, Val: 2},
		{Row: 0, Col: 2, Val: -1},
		{Row: 1, Col: 2, Val: -1},
		{Row: 1, Col: 1, Val: 2},
		{Row: 1, Col: 3, Val: -1},
	}

	var h0, h1 *amg.Hierarchy
	var err0, err1 error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h0, err0 = amg.Setup(amg.DefaultConfig(), world, 0, ids0, triples0)
	}()
	go func() {
		defer wg.Done()
		h1, err1 = amg.Setup(amg.DefaultConfig(), world, 1, ids1, triples1)
	}()
	wg.Wait()

	require.NoError(t, err0)
	require.NoError(t, err1)
	require.GreaterOrEqual(t, len(h0.Stats), 1)
	if diff := cmp.Diff(h0.Stats[0], h1.Stats[0]); diff != "" {
		t.Errorf("LevelStats disagree across ranks (-rank0 +rank1):\n%s", diff)
	}
	require.Equal(t, 4, h0.Stats[0].NFine+h0.Stats[0].NCoarse)
}

// TestSetupDropsAnEntirelyZeroRow exercises the first half of spec.md §8
// scenario 5: a dof with no nonzero triples at all is never assembled into
// a row (assembly.Assemble never emits an entry touching it), so it is
// silently absent from the hierarchy's first level rather than surviving
// as a singular row. (The second half of scenario 5 — a zero *diagonal* on
// an otherwise nonzero row tripping interp.PCG's guard — is exercised
// directly by interp.TestPCGRejectsZeroDiagonal; reaching that state
// through the full Setup pipeline would first require coercing Coarsen's
// 1/sqrt(diag) strength-scaling step past a zero diagonal, which is not a
// state this driver is specified to handle.)
func TestSetupDropsAnEntirelyZeroRow(t *testing.T) {
	world := gs.NewWorld(1)
	ids := []int64{1, 2}
	triples := []assembly.Triple{
		{Row: 1, Col: 1, Val: 5}, // dof 1 (local row 0) never appears
	}

	h, err := amg.Setup(amg.DefaultConfig(), world, 0, ids, triples)
	require.NoError(t, err)
	require.Len(t, h.Levels, 1)
	require.Equal(t, 1, h.Stats[0].NFine+h.Stats[0].NCoarse)
}
