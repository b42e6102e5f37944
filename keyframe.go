package campath

import "sort"

// Interpolation describes how a keyframe connects to its successor.
type Interpolation uint8

const (
	// InterpBezier eases toward the next keyframe along a cubic Bézier.
	InterpBezier Interpolation = iota
	// InterpHold holds the keyframe's value until the next keyframe (a step
	// function).
	InterpHold
)

func (i Interpolation) String() string {
	switch i {
	case InterpBezier:
		return "bezier"
	case InterpHold:
		return "hold"
	default:
		return "unknown"
	}
}

// KeyframeID identifies a keyframe within its track. IDs are assigned by the
// host store and survive numeric edits; anchor identity is built on them.
type KeyframeID string

// Indices into [Keyframe.Handles].
const (
	HandleOutX = iota
	HandleOutY
	HandleInX
	HandleInY
)

// Keyframe is one control point of a single scalar track. Handle ratios are
// normalized to [0, 1] within the segment's time/value box: OutX/OutY shape
// the segment leaving this keyframe, InX/InY the segment arriving at it.
type Keyframe struct {
	ID              KeyframeID
	Position        float64 // time
	Value           float64
	Interpolation   Interpolation
	ConnectedToNext bool
	Handles         [4]float64
}

// Eased reports whether the segment leaving this keyframe is a Bézier ease
// rather than a hold.
func (k Keyframe) Eased() bool {
	return k.Interpolation == InterpBezier && k.ConnectedToNext
}

// DefaultHandles are the handle ratios of a keyframe whose easing is
// equivalent to linear interpolation.
var DefaultHandles = [4]float64{1.0 / 3.0, 1.0 / 3.0, 2.0 / 3.0, 2.0 / 3.0}

// SortKeyframes sorts keyframes by position, preserving the relative order of
// equal positions. Tracks read from a host store are expected to already be
// ordered; this is for assembling tracks by hand.
func SortKeyframes(kfs []Keyframe) {
	sort.SliceStable(kfs, func(i, j int) bool {
		return kfs[i].Position < kfs[j].Position
	})
}
