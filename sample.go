package campath

import (
	"math"
	"sort"
)

// Evaluate samples a single scalar track at the given time.
//
// An empty track evaluates to fallback. Outside the keyframe range the track
// extrapolates flat: times at or before the first keyframe return its value,
// times at or after the last return the last value. Between a bracketing
// pair, if either bracketing value is not finite, fallback is returned
// instead of a partial interpolation. Otherwise the left keyframe's outgoing
// handles and the right keyframe's incoming handles form the easing; a hold
// or detached left keyframe steps.
func Evaluate(kfs []Keyframe, time, fallback float64) float64 {
	if len(kfs) == 0 {
		return fallback
	}
	if time <= kfs[0].Position {
		return kfs[0].Value
	}
	last := kfs[len(kfs)-1]
	if time >= last.Position {
		return last.Value
	}

	// index of the first keyframe strictly after time; the bracketing pair
	// is (ri-1, ri)
	ri := sort.Search(len(kfs), func(i int) bool {
		return kfs[i].Position > time
	})
	left := kfs[ri-1]
	right := kfs[ri]

	if !isFinite(left.Value) || !isFinite(right.Value) {
		return fallback
	}
	if !left.Eased() {
		return left.Value
	}

	span := right.Position - left.Position
	if span <= 0 {
		return left.Value
	}
	u := min(max((time-left.Position)/span, 0), 1)
	e := Easing{
		P1X: left.Handles[HandleOutX],
		P1Y: left.Handles[HandleOutY],
		P2X: right.Handles[HandleInX],
		P2Y: right.Handles[HandleInY],
	}
	return left.Value + (right.Value-left.Value)*e.SolveY(u)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
