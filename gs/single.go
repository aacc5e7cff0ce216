package gs

import (
	"math"
	"sync"
)

// ScalarGroup coordinates whole-world scalar reductions (the single-value
// all-reduce spec.md §5 describes for convergence checks and global
// extrema), independent of any per-dof Group. Every rank must call Setup
// exactly once before issuing reductions on the Handle it returns.
type ScalarGroup struct {
	world *World

	mu   sync.Mutex
	cond *sync.Cond

	gen     int
	arrived int
	op      Op
	kind    string // "float64" or "int", to catch a mismatched reduce call
	fvals   []float64
	ivals   []int
	ferr    error

	fvalsResult float64
	ivalsResult int
}

// NewScalarGroup returns a ScalarGroup coordinating all ranks of world.
func NewScalarGroup(world *World) *ScalarGroup {
	g := &ScalarGroup{world: world}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// SingleHandle is one rank's view of a ScalarGroup.
type SingleHandle struct {
	group *ScalarGroup
	rank  int
}

// Setup returns rank's Handle onto g. Unlike Group.Setup this call is not
// itself collective: a ScalarGroup carries no shared mapping to build, so
// handles can be minted independently.
func (g *ScalarGroup) Setup(rank int) *SingleHandle {
	return &SingleHandle{group: g, rank: rank}
}

// ReduceFloat64 performs a whole-world reduction of v under op and returns
// the combined value to every rank (an all-reduce, not a reduce-to-root).
func (h *SingleHandle) ReduceFloat64(op Op, v float64) (float64, error) {
	g := h.group
	g.mu.Lock()
	if g.arrived == 0 {
		g.op = op
		g.kind = "float64"
		g.fvals = make([]float64, g.world.size)
		g.ivals = nil
		g.ferr = nil
	} else if g.op != op || g.kind != "float64" {
		g.ferr = &ProtocolError{Op: "reduce", Rank: h.rank, Reason: "mismatched op/type across ranks"}
	}
	g.fvals[h.rank] = v
	g.arrived++
	myGen := g.gen
	var result float64
	if g.arrived == g.world.size {
		if g.ferr == nil {
			result = reduceFloat64(g.op, g.fvals)
		}
		g.fvalsResult = result
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for g.gen == myGen {
			g.cond.Wait()
		}
		result = g.fvalsResult
	}
	err := g.ferr
	g.mu.Unlock()
	return result, err
}

// ReduceInt performs a whole-world reduction of v under op and returns the
// combined value to every rank. Kept as a separate monomorphized method
// from ReduceFloat64 rather than a generic reducer, matching the source's
// gs_int/gs_double type-tagged but logically duplicated call sites.
func (h *SingleHandle) ReduceInt(op Op, v int) (int, error) {
	g := h.group
	g.mu.Lock()
	if g.arrived == 0 {
		g.op = op
		g.kind = "int"
		g.ivals = make([]int, g.world.size)
		g.fvals = nil
		g.ferr = nil
	} else if g.op != op || g.kind != "int" {
		g.ferr = &ProtocolError{Op: "reduce", Rank: h.rank, Reason: "mismatched op/type across ranks"}
	}
	g.ivals[h.rank] = v
	g.arrived++
	myGen := g.gen
	var result int
	if g.arrived == g.world.size {
		if g.ferr == nil {
			result = reduceInt(g.op, g.ivals)
		}
		g.ivalsResult = result
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for g.gen == myGen {
			g.cond.Wait()
		}
		result = g.ivalsResult
	}
	err := g.ferr
	g.mu.Unlock()
	return result, err
}

func reduceFloat64(op Op, vals []float64) float64 {
	switch op {
	case OpAdd:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	case OpMax:
		m := math.Inf(-1)
		for _, v := range vals {
			if v > m {
				m = v
			}
		}
		return m
	case OpMin:
		m := math.Inf(1)
		for _, v := range vals {
			if v < m {
				m = v
			}
		}
		return m
	}
	return 0
}

func reduceInt(op Op, vals []int) int {
	switch op {
	case OpAdd:
		s := 0
		for _, v := range vals {
			s += v
		}
		return s
	case OpMax:
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case OpMin:
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	}
	return 0
}
