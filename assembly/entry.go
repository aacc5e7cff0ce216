// Package assembly turns a process's unassembled local (row, col, value)
// triples into the assembled CSR matrix and gs_id array the rest of the
// setup pipeline operates on (spec.md §4.1).
package assembly

// Triple is one unassembled local contribution: Row and Col are local
// indices into the calling rank's id array, Val is the coefficient.
type Triple struct {
	Row, Col int
	Val      float64
}

// Entry is a routed contribution addressed by global dof id rather than
// local index, the form triples take once they've been resolved against
// the caller's id array and are ready to travel to their row's owner.
type Entry struct {
	GlobalRow int64
	GlobalCol int64
	Val       float64
}
