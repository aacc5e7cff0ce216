package csr

// Error is a sentinel error type for invariant violations in the CSR/COO
// primitives, following the same pattern gonum's matrix packages use for
// shape-mismatch panics.
type Error string

func (e Error) Error() string { return string(e) }

// Sentinel errors panicked by Matrix and COO operations.
const (
	ErrDimMismatch    Error = "csr: dimension mismatch"
	ErrColOutOfRange  Error = "csr: column index out of range"
	ErrRowOutOfRange  Error = "csr: row index out of range"
	ErrUnknownCOOOrder Error = "csr: unknown COO order"
)
