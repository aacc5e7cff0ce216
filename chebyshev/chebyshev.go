// Package chebyshev plans the degree and contraction factor of the
// Chebyshev smoother used on each level of the AMG hierarchy.
package chebyshev

// Plan implements spec.md §4.5's chebsim recurrence: starting from the
// spectral radius rho and the target contraction tol (gamma² from the
// driver), it simulates the damped Chebyshev residual recurrence one
// degree at a time until the contraction factor c drops to tol or below,
// returning the smoother degree m and the achieved contraction c.
func Plan(rho, tol float64) (m int, c float64) {
	alpha := 0.25 * rho * rho
	m = 1
	cp := 1.0
	c = rho
	gamma := 1.0

	for c > tol {
		m++
		d := alpha * (1 + gamma)
		gamma = d / (1 - d)
		cNext := (1+gamma)*rho*c - gamma*cp
		cp = c
		c = cNext
	}
	return m, c
}
