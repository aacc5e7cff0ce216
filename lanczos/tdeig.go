package lanczos

import "math"

// eps matches the source's EPS (128*DBL_EPSILON), the convergence
// tolerance scale for the secular-equation bisection below.
const eps = 128 * 2.220446049250313e-16

// sum3 adds three values in the order that minimizes cancellation: if two
// of them share a sign, those two are added first.
func sum3(a, b, c float64) float64 {
	switch {
	case (a >= 0 && b >= 0) || (a <= 0 && b <= 0):
		return (a + b) + c
	case (a >= 0 && c >= 0) || (a <= 0 && c <= 0):
		return (a + c) + b
	default:
		return a + (b + c)
	}
}

// ratRoot solves -c/x + b + a*x == 0 for the root whose sign matches sign.
func ratRoot(a, b, c, sign float64) float64 {
	bh := (math.Abs(b) + math.Sqrt(b*b+4*a*c)) / 2
	if b*sign <= 0 {
		return sign * (bh / a)
	}
	return sign * (c / bh)
}

// secRoot finds the root lambda in [d[ri], d[ri+1]] of the secular
// equation 0 = lambda - v[0] + sum_{i=1}^n v[i]^2/(d[i]-lambda), via
// rational-approximation bisection anchored at both ends of the bracket.
// y receives the (n+1)th component of the corresponding orthonormal
// eigenvector.
func secRoot(d, v []float64, ri, n int) (lambda, y float64) {
	dl, dr := d[ri], d[ri+1]
	L := dr - dl
	x0l, x0r := L/2, -L/2

	tol := L
	if math.Abs(dl) > tol {
		tol = math.Abs(dl)
	}
	if math.Abs(dr) > tol {
		tol = math.Abs(dr)
	}
	tol *= eps

	for {
		if x0l == 0 || x0l < 0 {
			return dl, 0
		}
		if x0r == 0 || x0r > 0 {
			return dr, 0
		}

		var lambda0 float64
		if math.Abs(x0l) < math.Abs(x0r) {
			lambda0 = dl + x0l
		} else {
			lambda0 = dr + x0r
		}

		var al, ar, cl, cr, bln, blp, brn, brp float64
		var fn, fp float64
		for i := 1; i <= ri; i++ {
			den := (d[i] - dl) - x0l
			fac := v[i] / den
			num := sum3(d[i], -dr, -2*x0r)
			fn += v[i] * fac
			fac *= fac
			ar += fac
			if num > 0 {
				brp += fac * num
			} else {
				brn += fac * num
			}
			bln += fac * (d[i] - dl)
			cl += fac * x0l * x0l
		}
		for i := ri + 1; i <= n; i++ {
			den := (d[i] - dr) - x0r
			fac := v[i] / den
			num := sum3(d[i], -dl, -2*x0l)
			fp += v[i] * fac
			fac *= fac
			al += fac
			if num > 0 {
				blp += fac * num
			} else {
				bln += fac * num
			}
			brp += fac * (d[i] - dr)
			cr += fac * x0r * x0r
		}
		if lambda0 > 0 {
			fp += lambda0
		} else {
			fn += lambda0
		}
		if v[0] < 0 {
			fp -= v[0]
			blp -= v[0]
			brp -= v[0]
		} else {
			fn -= v[0]
			bln -= v[0]
			brn -= v[0]
		}

		var newLambda float64
		if fp+fn > 0 {
			x0l = ratRoot(1+al, sum3(dl, blp, bln), cl, 1)
			newLambda = dl + x0l
			x0r = x0l - L
		} else {
			x0r = ratRoot(1+ar, sum3(dr, brp, brn), cr, -1)
			newLambda = dr + x0r
			x0l = x0r + L
		}

		if math.Abs(newLambda-lambda0) < tol {
			var ty float64
			for i := 1; i <= ri; i++ {
				fac := v[i] / ((d[i] - dl) - x0l)
				ty += fac * fac
			}
			for i := ri + 1; i <= n; i++ {
				fac := v[i] / ((d[i] - dr) - x0r)
				ty += fac * fac
			}
			return newLambda, 1 / math.Sqrt(1+ty)
		}
	}
}

// tdeig finds the eigenvalues of the (n+1)x(n+1) bordered-diagonal (arrow)
// matrix with diagonal d[1..n] and border row/column v[1..n], corner v[0]:
//
//	d[1]           v[1]
//	     d[2]      v[2]
//	          d[n] v[n]
//	v[1] v[2] v[n] v[0]
//
// d[0] and d[n+1] are set to Gershgorin bounds on input/output. Returns the
// n+1 eigenvalues and, in y, the (n+1)th component of each corresponding
// orthonormal eigenvector.
func tdeig(d, v []float64, n int) (lambda, y []float64) {
	v1norm, min, max := 0.0, v[0], v[0]
	for i := 1; i <= n; i++ {
		vi := math.Abs(v[i])
		a, b := d[i]-vi, d[i]+vi
		v1norm += vi
		if a < min {
			min = a
		}
		if b > max {
			max = b
		}
	}
	if v[0]-v1norm < min {
		d[0] = v[0] - v1norm
	} else {
		d[0] = min
	}
	if v[0]+v1norm > max {
		d[n+1] = v[0] + v1norm
	} else {
		d[n+1] = max
	}

	lambda = make([]float64, n+1)
	y = make([]float64, n+1)
	for i := 0; i <= n; i++ {
		lambda[i], y[i] = secRoot(d, v, i, n)
	}
	return lambda, y
}
