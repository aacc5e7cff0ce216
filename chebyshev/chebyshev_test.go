package chebyshev_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openamg/goamg/chebyshev"
)

func TestPlanZeroSpectralRadius(t *testing.T) {
	m, c := chebyshev.Plan(0, 1e-2)
	require.Equal(t, 1, m)
	require.Equal(t, 0.0, c)
}

func TestPlanLooseTargetReturnsImmediately(t *testing.T) {
	// c starts at rho; if that already satisfies the target the loop body
	// never runs and m stays at its initial value of 1.
	m, c := chebyshev.Plan(0.5, 0.9)
	require.Equal(t, 1, m)
	require.Equal(t, 0.5, c)
}

func TestPlanConverges(t *testing.T) {
	m, c := chebyshev.Plan(0.5, 0.01)
	require.Greater(t, m, 1)
	require.LessOrEqual(t, c, 0.01)
}
