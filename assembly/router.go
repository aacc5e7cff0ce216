package assembly

import (
	"sync"

	"github.com/openamg/goamg/gs"
)

// Router performs the collective routing step of assembly (spec.md §4.1c):
// every rank submits the entries it computed for other ranks, keyed by an
// owner function, and receives back every entry addressed to itself. It
// stands in for the crystal-router (spec.md §6 crystal_init/sarray_transfer)
// the source delegates this step to.
type Router interface {
	Route(rank int, outbound []Entry, owner func(Entry) int) ([]Entry, error)
}

// InProcessRouter is the in-process reference Router, coordinating ranks of
// a gs.World through the same kind of mutex+condvar barrier gs.Group uses.
// A production backend would satisfy Router over a real crystal router or
// MPI all-to-all without changing Assemble.
type InProcessRouter struct {
	world *gs.World

	mu      sync.Mutex
	cond    *sync.Cond
	gen     int
	arrived int
	out     [][]Entry
	in      [][]Entry
}

// NewInProcessRouter returns a Router shared by every rank of world. Every
// rank must call Route exactly once per assembly round, in the same order
// as every other rank.
func NewInProcessRouter(world *gs.World) *InProcessRouter {
	r := &InProcessRouter{world: world, out: make([][]Entry, world.Size())}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *InProcessRouter) Route(rank int, outbound []Entry, owner func(Entry) int) ([]Entry, error) {
	r.mu.Lock()
	r.out[rank] = outbound
	r.arrived++
	myGen := r.gen
	if r.arrived == r.world.Size() {
		r.in = make([][]Entry, r.world.Size())
		for _, list := range r.out {
			for _, e := range list {
				dst := owner(e)
				r.in[dst] = append(r.in[dst], e)
			}
		}
		r.arrived = 0
		r.gen++
		r.cond.Broadcast()
	} else {
		for r.gen == myGen {
			r.cond.Wait()
		}
	}
	result := r.in[rank]
	r.mu.Unlock()
	return result, nil
}
