package gs

import (
	"math"
	"sync"
)

// Op selects the reduction applied to replicated values of a shared degree
// of freedom. Each is handled by its own branch in Group.combine rather
// than a single generic reducer, so every op's identity element and
// comparison are spelled out explicitly (REDESIGN: monomorphized branches
// over tag dispatch).
type Op int

const (
	OpAdd Op = iota
	OpMax
	OpMin
)

type loc struct {
	rank  int
	idx   int
	owner bool
}

// Group builds, once per distinct set of shared dof ids, the cross-rank
// ownership map that every Exchange call on the Handles it issues will
// reduce over. It corresponds to a single gs_setup call and the gs_data
// handle it returns in the source.
type Group struct {
	world *World

	mu   sync.Mutex
	cond *sync.Cond

	// setup phase
	setupArrived int
	setupDone    bool
	ids          [][]int64
	sharers      map[int64][]loc

	// exchange phase
	gen       int
	arrived   int
	pending   [][]float64
	op        Op
	transpose bool
	err       error
}

// NewGroup returns a Group coordinating all ranks of world. Every rank must
// call Setup on the returned Group exactly once, with matching vn, before
// any rank calls Exchange.
func NewGroup(world *World) *Group {
	g := &Group{world: world, ids: make([][]int64, world.size)}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Handle is one rank's view of a Group, returned by Setup. It corresponds
// to the (gs_data*, comm) pair threaded through the source's gs() calls.
type Handle struct {
	group *Group
	rank  int
	vn    int
}

// Setup registers rank's local signed dof ids (positive where this rank
// owns the dof, negative where it holds a ghost copy) and blocks until
// every rank in the Group has registered. Only vn==1 is supported: every
// call site in the source passes a scalar (vn=1) vector width.
func (g *Group) Setup(rank int, ids []int64, vn int) (*Handle, error) {
	if vn != 1 {
		return nil, &ProtocolError{Op: "setup", Rank: rank, Reason: "vn != 1 is not supported"}
	}
	g.mu.Lock()
	g.ids[rank] = ids
	g.setupArrived++
	if g.setupArrived == g.world.size {
		g.build()
		g.setupDone = true
		g.cond.Broadcast()
	} else {
		for !g.setupDone {
			g.cond.Wait()
		}
	}
	g.mu.Unlock()
	return &Handle{group: g, rank: rank, vn: vn}, nil
}

func (g *Group) build() {
	g.sharers = make(map[int64][]loc)
	for r := 0; r < g.world.size; r++ {
		for i, sid := range g.ids[r] {
			if sid == 0 {
				continue
			}
			owner := sid > 0
			id := sid
			if !owner {
				id = -id
			}
			g.sharers[id] = append(g.sharers[id], loc{rank: r, idx: i, owner: owner})
		}
	}
}

// Exchange performs one gather-scatter collective across every rank that
// holds a Handle on this Group. op selects the reduction; transpose==true
// performs the gather-to-owner half only (a shared dof's replicas are
// reduced, and the result is written back only at the owning rank);
// transpose==false performs the full gather-then-scatter (the reduced
// value is written back to every replica, owner and ghost alike), which is
// what every add-combine call site in the source relies on. v has length
// equal to the column count of the local matrix this Handle was built for;
// Exchange mutates it in place and also returns it for chaining.
//
// Exchange blocks until every rank sharing this Group has called Exchange
// for this round; all ranks must call it with the same op and transpose,
// and the same number of times, in the same order — exactly the ordering
// guarantee spec.md §5 requires of the real collective.
func (h *Handle) Exchange(op Op, transpose bool, v []float64) ([]float64, error) {
	g := h.group
	g.mu.Lock()
	if g.arrived == 0 {
		g.op = op
		g.transpose = transpose
		g.pending = make([][]float64, g.world.size)
		g.err = nil
	} else if g.op != op || g.transpose != transpose {
		g.err = &ProtocolError{Op: "exchange", Rank: h.rank, Reason: "mismatched op/transpose across ranks"}
	}
	g.pending[h.rank] = v
	g.arrived++
	myGen := g.gen
	if g.arrived == g.world.size {
		if g.err == nil {
			g.combine()
		}
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for g.gen == myGen {
			g.cond.Wait()
		}
	}
	err := g.err
	g.mu.Unlock()
	return v, err
}

func (g *Group) combine() {
	for _, locs := range g.sharers {
		var reduced float64
		switch g.op {
		case OpAdd:
			for _, l := range locs {
				reduced += g.pending[l.rank][l.idx]
			}
		case OpMax:
			reduced = math.Inf(-1)
			for _, l := range locs {
				if v := g.pending[l.rank][l.idx]; v > reduced {
					reduced = v
				}
			}
		case OpMin:
			reduced = math.Inf(1)
			for _, l := range locs {
				if v := g.pending[l.rank][l.idx]; v < reduced {
					reduced = v
				}
			}
		}
		if g.transpose {
			for _, l := range locs {
				if l.owner {
					g.pending[l.rank][l.idx] = reduced
				}
			}
		} else {
			for _, l := range locs {
				g.pending[l.rank][l.idx] = reduced
			}
		}
	}
}
