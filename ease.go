package campath

import "math"

const (
	solverIterations = 8
	solverTolerance  = 1e-6
	// bisection bottoms out well below the tolerance we solve to
	bisectionEpsilon = 1e-7
)

// Easing describes a cubic Bézier easing curve from (0, 0) to (1, 1) with
// interior control points (P1X, P1Y) and (P2X, P2Y), the same
// parameterization used by CSS timing functions. The control ordinates are
// normalized within the segment's time/value box and are not required to lie
// in [0, 1] on the y axis.
type Easing struct {
	P1X float64
	P1Y float64
	P2X float64
	P2Y float64
}

// LinearEasing is the easing whose output equals its input. Its control
// points lie exactly on the diagonal, which is also what detached keyframe
// handles default to.
var LinearEasing = Easing{1.0 / 3.0, 1.0 / 3.0, 2.0 / 3.0, 2.0 / 3.0}

// IsLinear reports whether the easing is the identity mapping.
func (e Easing) IsLinear() bool {
	return e.P1X == e.P1Y && e.P2X == e.P2Y
}

// polynomial coefficients for one ordinate, Horner form
func easeCoefficients(p1, p2 float64) (a, b, c float64) {
	c = 3.0 * p1
	b = 3.0*(p2-p1) - c
	a = 1.0 - c - b
	return a, b, c
}

func easeSample(a, b, c, t float64) float64 {
	// ((a*t + b)*t + c)*t
	return ((a*t+b)*t + c) * t
}

func easeDerivative(a, b, c, t float64) float64 {
	return (3.0*a*t+2.0*b)*t + c
}

// SolveY computes the eased progression y for a time fraction x in [0, 1].
//
// It solves x(t) = x with Newton-Raphson iteration and falls back to
// bisection when the derivative vanishes or the iteration escapes [0, 1].
// For finite in-range inputs the result is always finite; degenerate and
// non-monotonic control points do not diverge.
func (e Easing) SolveY(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	ax, bx, cx := easeCoefficients(e.P1X, e.P2X)
	ay, by, cy := easeCoefficients(e.P1Y, e.P2Y)
	return easeSample(ay, by, cy, solveEaseT(ax, bx, cx, x))
}

func solveEaseT(a, b, c, x float64) float64 {
	t := x
	for i := 0; i < solverIterations; i++ {
		err := easeSample(a, b, c, t) - x
		if math.Abs(err) < solverTolerance {
			return t
		}
		d := easeDerivative(a, b, c, t)
		if math.Abs(d) < 1e-12 {
			break
		}
		t -= err / d
		if t < 0 || t > 1 {
			break
		}
	}

	// Bisection. The sampled x is 0 at t=0 and 1 at t=1, so a root is
	// bracketed even when x(t) is not monotonic in between.
	lo, hi := 0.0, 1.0
	t = min(max(x, 0), 1)
	for hi-lo > bisectionEpsilon {
		if easeSample(a, b, c, t) < x {
			lo = t
		} else {
			hi = t
		}
		t = 0.5 * (lo + hi)
	}
	return t
}
