package amg

import (
	"errors"

	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
)

// ErrTooManyLevels is returned only past a generous safety cap on hierarchy
// growth. Go's append-based slice growth makes the source's "capacity
// overflow" reallocation a non-issue operationally; this exists purely as
// a backstop against a runaway coarsening loop (e.g. a misconfigured ctol
// that never converges the global row count).
var ErrTooManyLevels = errors.New("amg: level count exceeds safety cap")

// maxLevels is the hard safety cap ErrTooManyLevels guards.
const maxLevels = 1000

// Level is one entry of a Hierarchy: the interpolation operator from this
// level's coarse space back to its fine space, the fine-block operator and
// its forward-action counterpart, per-level gather-scatter handles, and the
// Chebyshev smoother parameters spec.md §3's "Hierarchy entry" describes.
type Level struct {
	W, AfP, Aff      *csr.Matrix
	GSFine, GSCoarse *gs.Handle
	ChebM            int
	ChebRho          float64
	Dff              []float64
}

// LevelStats summarizes one level's build for diagnostics and testing,
// separate from Level so callers uninterested in the numeric smoother
// parameters don't need to reach into a Level's internals.
type LevelStats struct {
	NFine, NCoarse int
	ChebM          int
	ChebRho, Gap   float64
}

// Hierarchy is the full output of Setup: the level records plus the
// root-level scratch buffers spec.md §3 assigns to the hierarchy object.
// Using them to drive an actual solve is out of this package's scope per
// SPEC_FULL.md's Non-goals, but Setup sizes and zero-initializes them per
// spec.md §3's rule so a solve phase built on top of Hierarchy has them
// ready to use without knowing any level's dimensions itself: B and X at
// level 0's local row count, C/COld/R at the largest local fine-row count
// seen across all levels, and Buf at the largest local column count seen
// across all levels.
type Hierarchy struct {
	Levels []Level
	Stats  []LevelStats
	TNI    float64

	B, X, C, COld, R, Buf []float64
}
