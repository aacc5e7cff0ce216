package gs

import "strconv"

// ProtocolError reports a violation of the collective ordering contract: a
// rank issued a collective whose shape (op or direction) disagrees with
// what the other ranks in the same Group issued for this round. Real
// distributed deployments would detect the same failure as a hang or a
// mismatched-tag assertion; the in-process simulator can catch it directly.
type ProtocolError struct {
	Op     string
	Rank   int
	Wanted string
	Reason string
}

func (e *ProtocolError) Error() string {
	return "gs: protocol error on rank " + strconv.Itoa(e.Rank) + " during " + e.Op + ": " + e.Reason
}
