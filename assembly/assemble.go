package assembly

import (
	"sort"

	"github.com/openamg/goamg/csr"
	"github.com/openamg/goamg/gs"
)

// AssignOwner implements the deterministic dof-owner rule recovered from
// original_source's assign_dofs (a gs_top/comm hash in the source, reduced
// here to its documented essence: global id modulo rank count). id must be
// a positive global dof id; 0 ("masked") is the caller's responsibility to
// filter out before calling.
func AssignOwner(id int64, size int) int {
	if id <= 0 {
		panic("assembly: AssignOwner requires a positive global id")
	}
	return int(id % int64(size))
}

// Assemble implements spec.md §4.1's algorithm (a)-(i): it resolves rank's
// local triples against its id array, drops masked/zero entries, routes
// each surviving entry to its row's owner through router, combines
// duplicate (row,col) contributions by addition, and builds the owning
// rank's local CSR block together with its gs_id array (owned global ids
// first, in row order, followed by each referenced foreign column's global
// id negated).
//
// Every rank sharing router must call Assemble exactly once per assembly
// round. ids[i] is the global dof id of local row/col index i; 0 means the
// index is masked and any triple touching it is dropped.
func Assemble(world *gs.World, router Router, rank int, ids []int64, triples []Triple) (*csr.Matrix, []int64, error) {
	size := world.Size()
	owner := func(e Entry) int { return AssignOwner(e.GlobalRow, size) }

	var outbound []Entry
	for _, t := range triples {
		if t.Row < 0 || t.Row >= len(ids) || t.Col < 0 || t.Col >= len(ids) {
			return nil, nil, &gs.ProtocolError{Op: "assemble", Rank: rank, Reason: "triple index out of range"}
		}
		gi, gj := ids[t.Row], ids[t.Col]
		if gi == 0 || gj == 0 || t.Val == 0 {
			continue
		}
		outbound = append(outbound, Entry{GlobalRow: gi, GlobalCol: gj, Val: t.Val})
	}

	inbound, err := router.Route(rank, outbound, owner)
	if err != nil {
		return nil, nil, err
	}

	type key struct{ r, c int64 }
	sums := make(map[key]float64)
	var order []key
	for _, e := range inbound {
		k := key{e.GlobalRow, e.GlobalCol}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += e.Val
	}

	ownedSet := make(map[int64]bool)
	for _, k := range order {
		ownedSet[k.r] = true
	}
	ownedRows := make([]int64, 0, len(ownedSet))
	for id := range ownedSet {
		ownedRows = append(ownedRows, id)
	}
	sort.Slice(ownedRows, func(i, j int) bool { return ownedRows[i] < ownedRows[j] })
	rowLocal := make(map[int64]int, len(ownedRows))
	for i, id := range ownedRows {
		rowLocal[id] = i
	}

	foreignSet := make(map[int64]bool)
	for _, k := range order {
		if !ownedSet[k.c] {
			foreignSet[k.c] = true
		}
	}
	foreignCols := make([]int64, 0, len(foreignSet))
	for id := range foreignSet {
		foreignCols = append(foreignCols, id)
	}
	sort.Slice(foreignCols, func(i, j int) bool { return foreignCols[i] < foreignCols[j] })
	rn := len(ownedRows)
	colLocal := make(map[int64]int, len(foreignCols))
	for i, id := range foreignCols {
		colLocal[id] = rn + i
	}

	cn := rn + len(foreignCols)
	gsID := make([]int64, cn)
	copy(gsID, ownedRows)
	for i, id := range foreignCols {
		gsID[rn+i] = -id
	}

	entries := make([]csr.COO, 0, len(order))
	for _, k := range order {
		li := rowLocal[k.r]
		lj, ok := rowLocal[k.c]
		if !ok {
			lj = colLocal[k.c]
		}
		entries = append(entries, csr.COO{I: li, J: lj, V: sums[k]})
	}

	m := csr.NewFromCOO(rn, cn, entries)
	return m, gsID, nil
}
