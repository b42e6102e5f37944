package campath

import (
	"math"
	"testing"
)

func TestEasingLinearIdentity(t *testing.T) {
	const n = 20
	for i := 0; i < n+1; i++ {
		x := float64(i) / float64(n)
		y := LinearEasing.SolveY(x)
		if math.Abs(y-x) > 1e-4 {
			t.Errorf("SolveY(%g) = %g, want %g", x, y, x)
		}
	}
}

func TestEasingEndpoints(t *testing.T) {
	curves := []Easing{
		LinearEasing,
		{0.25, 0.1, 0.25, 1.0}, // CSS "ease"
		{0.42, 0.0, 0.58, 1.0}, // "ease-in-out"
		{0.0, 2.0, 1.0, -1.0},  // y overshoots both ways
	}
	for _, e := range curves {
		if y := e.SolveY(0); y != 0 {
			t.Errorf("%+v: SolveY(0) = %g, want 0", e, y)
		}
		if y := e.SolveY(1); y != 1 {
			t.Errorf("%+v: SolveY(1) = %g, want 1", e, y)
		}
	}
}

func TestEasingSolverInvertsX(t *testing.T) {
	// forward-evaluate x at the solved t; the residual bounds the solver
	// error regardless of how the root was found
	curves := []Easing{
		LinearEasing,
		{0.25, 0.1, 0.25, 1.0},
		{0.42, 0.0, 0.58, 1.0},
		{0.0, 0.0, 0.0, 1.0},  // derivative vanishes at t=0
		{1.0, 0.0, 0.0, 1.0},  // x(t) non-monotonic in the interior
		{0.9, -0.5, 0.1, 1.5}, // steep, overshooting
	}
	for _, e := range curves {
		ax, bx, cx := easeCoefficients(e.P1X, e.P2X)
		const n = 50
		for i := 1; i < n; i++ {
			x := float64(i) / float64(n)
			ts := solveEaseT(ax, bx, cx, x)
			if ts < 0 || ts > 1 {
				t.Fatalf("%+v: solved t %g out of range for x=%g", e, ts, x)
			}
			if got := easeSample(ax, bx, cx, ts); math.Abs(got-x) > 1e-3 {
				t.Errorf("%+v: x(t)=%g, want %g", e, got, x)
			}
		}
	}
}

func TestEasingAlwaysFinite(t *testing.T) {
	curves := []Easing{
		{0, 0, 0, 0},
		{1, 1, 0, 0},
		{0.5, -3, 0.5, 4},
		{-0.2, 0.3, 1.2, 0.7}, // x controls outside the unit box
	}
	for _, e := range curves {
		const n = 40
		for i := 0; i < n+1; i++ {
			x := float64(i) / float64(n)
			if y := e.SolveY(x); !isFinite(y) {
				t.Fatalf("%+v: SolveY(%g) = %g", e, x, y)
			}
		}
	}
}

func TestEasingIsLinear(t *testing.T) {
	if !LinearEasing.IsLinear() {
		t.Error("LinearEasing reported non-linear")
	}
	if (Easing{0.25, 0.1, 0.25, 1.0}).IsLinear() {
		t.Error("ease curve reported linear")
	}
}
