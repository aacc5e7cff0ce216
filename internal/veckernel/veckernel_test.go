package veckernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openamg/goamg/internal/veckernel"
)

func TestDot(t *testing.T) {
	require.Equal(t, 32.0, veckernel.Dot([]float64{1, 2, 3}, []float64{4, 5, 6}))
}

func TestAxpy(t *testing.T) {
	y := []float64{1, 1, 1}
	veckernel.Axpy(2, []float64{1, 2, 3}, y)
	require.Equal(t, []float64{3, 5, 7}, y)
}

func TestScal(t *testing.T) {
	x := []float64{1, 2, 3}
	veckernel.Scal(2, x)
	require.Equal(t, []float64{2, 4, 6}, x)
}
