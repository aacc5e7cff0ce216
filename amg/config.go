// Package amg drives the AMG setup pipeline end to end: assembling a
// process's local triples into a distributed CSR matrix, then repeatedly
// coarsening, building an interpolation operator, estimating smoother
// parameters, and recursing on the Galerkin coarse operator, producing the
// Hierarchy a solve phase (out of scope here, see SPEC_FULL.md Non-goals)
// would consume.
package amg

// Config holds every tolerance spec.md §6's table hard-codes in the source,
// exposed here as named fields with functional-option setters (the gonum
// convention for constructors with many optional knobs) so tests and
// callers can deviate from the source's fixed values without editing code.
type Config struct {
	// Tol is the level-building contraction target (γ in spec.md §4.8/§4.5);
	// the Chebyshev planner is driven to Tol² per level.
	Tol float64
	// CoarsenTolerance is ctol, the coarsener's convergence threshold.
	CoarsenTolerance float64
	// InterpTolerance is itol, threaded into interp.Build (spec.md §4.6).
	InterpTolerance float64
	// SparsifyTolerance is stol, reserved for sym_sparsify (§9 Open
	// Question 4); no component reads it yet.
	SparsifyTolerance float64
	// MatMaxTolerance is mat_max's own relative filter cutoff (spec.md §4.2).
	MatMaxTolerance float64
	// LanczosMaxIter records the Lanczos iteration cap from the tolerance
	// table. Setup does not pass it on: lanczos.Lanczos always stops at its
	// own fixed cap of 300 iterations.
	LanczosMaxIter int
	// PCGMaxIter records the PCG iteration cap from the tolerance table.
	// Setup does not pass it on: interp.PCG always caps at min(N_global, 100).
	PCGMaxIter int
	// InitialLevelCap sizes the Hierarchy's initial Levels/Stats capacity.
	InitialLevelCap int
	// CoarsestMaxRows ends the recursion once a level's global coarse row
	// count drops to or below this value (spec.md §4.8's "global rn becomes
	// small", left as a fixed threshold to choose — see DESIGN.md Open
	// Question #1 resolution).
	CoarsestMaxRows int
}

// DefaultConfig returns the tolerance table spec.md §6 hard-codes.
func DefaultConfig() Config {
	return Config{
		Tol:               0.5,
		CoarsenTolerance:  0.7,
		InterpTolerance:   1e-4,
		SparsifyTolerance: 1e-4,
		MatMaxTolerance:   0.1,
		LanczosMaxIter:    300,
		PCGMaxIter:        100,
		InitialLevelCap:   10,
		CoarsestMaxRows:   1,
	}
}

// Option configures a Config, applied in order over DefaultConfig's result.
type Option func(*Config)

// WithCoarsenTolerance overrides ctol.
func WithCoarsenTolerance(ctol float64) Option {
	return func(c *Config) { c.CoarsenTolerance = ctol }
}

// WithInterpTolerance overrides itol.
func WithInterpTolerance(itol float64) Option {
	return func(c *Config) { c.InterpTolerance = itol }
}

// WithLanczosMaxIter overrides the Lanczos iteration cap.
func WithLanczosMaxIter(n int) Option {
	return func(c *Config) { c.LanczosMaxIter = n }
}

// WithPCGMaxIter overrides the PCG iteration cap.
func WithPCGMaxIter(n int) Option {
	return func(c *Config) { c.PCGMaxIter = n }
}

// WithInitialLevelCap overrides the Hierarchy's initial level capacity.
func WithInitialLevelCap(n int) Option {
	return func(c *Config) { c.InitialLevelCap = n }
}

// WithMatMaxTolerance overrides mat_max's filter tolerance.
func WithMatMaxTolerance(tol float64) Option {
	return func(c *Config) { c.MatMaxTolerance = tol }
}

// WithSparsifyTolerance overrides stol. No component reads it yet (§9 Open
// Question 4); it exists so the option is real and testable for plumbing.
func WithSparsifyTolerance(tol float64) Option {
	return func(c *Config) { c.SparsifyTolerance = tol }
}

// NewConfig returns DefaultConfig with opts applied in order.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
