package campath

import "math"

// Polyline is an ordered run of 3D points, typically consumed as a vertex
// buffer.
type Polyline []Vec3

// Floats flattens the polyline into x/y/z triples.
func (p Polyline) Floats() []float64 {
	out := make([]float64, 0, len(p)*3)
	for _, pt := range p {
		out = append(out, pt.X, pt.Y, pt.Z)
	}
	return out
}

// Length returns the total chord length of the polyline.
func (p Polyline) Length() float64 {
	var sum float64
	for i := 1; i < len(p); i++ {
		sum += p[i].Distance(p[i-1])
	}
	return sum
}

// TangentHandle is one interactive cubic-Bézier control point of a segment,
// expressed in absolute 3D space.
type TangentHandle struct {
	Key  HandleKey
	Kind TangentKind
	// Position is derived from the per-axis handle ratios; dragging it is
	// mapped back to ratios by the edit pipeline.
	Position Vec3
	Start    Anchor
	End      Anchor
	// Connected reports per axis whether the segment actually eases. On a
	// hold axis the tangent ratio is cosmetic only.
	Connected [3]bool
}

// Anchor returns the anchor the handle is attached to: the segment start for
// an out handle, the segment end for an in handle.
func (h TangentHandle) Anchor() Anchor {
	if h.Kind == TangentOut {
		return h.Start
	}
	return h.End
}

// Segment is the open interval between two time-adjacent anchors. It bears
// one outgoing and one incoming tangent handle.
type Segment struct {
	Start Anchor
	End   Anchor
	Out   TangentHandle
	In    TangentHandle
}

func tangentKey(start, end HandleKey, kind TangentKind) HandleKey {
	return hashKey("pt_", string(start), string(end), kind.String())
}

// Curve is the full derived state of one reconciliation pass.
type Curve struct {
	Anchors  []Anchor
	Segments []Segment
	// Polyline samples the path at fixed resolution. Non-finite samples are
	// dropped, not rendered.
	Polyline Polyline
	// PathLength is the time span the polyline covers.
	PathLength float64
}

// ConnectorFloats returns the vertex buffer of the tangent connector lines
// as anchor/control pairs, flattened to triples. The vertex count is always
// even; consumers read start/control/end/control quads.
func (c Curve) ConnectorFloats() []float64 {
	var out []float64
	for _, s := range c.Segments {
		if s.Start.Position.IsFinite() && s.Out.Position.IsFinite() {
			out = appendTriple(out, s.Start.Position)
			out = appendTriple(out, s.Out.Position)
		}
		if s.End.Position.IsFinite() && s.In.Position.IsFinite() {
			out = appendTriple(out, s.End.Position)
			out = appendTriple(out, s.In.Position)
		}
	}
	// a dangling odd vertex cannot form a connector line
	if len(out)/3%2 != 0 {
		out = out[:len(out)-3]
	}
	return out
}

func appendTriple(dst []float64, v Vec3) []float64 {
	return append(dst, v.X, v.Y, v.Z)
}

// Build derives the renderable curve from the three axis tracks.
//
// The polyline spans [0, pathLength] where pathLength is the larger of the
// declared sequence length and the latest keyframe time on any axis (never
// negative). Each sample is evaluated independently per axis; samples with a
// non-finite coordinate are dropped. Segments between anchors closer than
// the time quantum are skipped entirely.
func Build(tracks [3][]Keyframe, declaredLength float64, tun Tunables) Curve {
	pathLength := math.Max(declaredLength, 0)
	for _, kfs := range tracks {
		if len(kfs) > 0 {
			pathLength = math.Max(pathLength, kfs[len(kfs)-1].Position)
		}
	}

	c := Curve{PathLength: pathLength}

	n := tun.SampleCount
	if n < 2 {
		n = 2
	}
	c.Polyline = make(Polyline, 0, n)
	for i := 0; i < n; i++ {
		t := pathLength * float64(i) / float64(n-1)
		// NaN fallback marks axes with no usable value; the point is then
		// filtered rather than rendered somewhere arbitrary.
		pt := V3(
			Evaluate(tracks[AxisX], t, math.NaN()),
			Evaluate(tracks[AxisY], t, math.NaN()),
			Evaluate(tracks[AxisZ], t, math.NaN()),
		)
		if pt.IsFinite() {
			c.Polyline = append(c.Polyline, pt)
		}
	}

	for _, a := range Reconcile(tracks, tun) {
		if a.Position.IsFinite() {
			c.Anchors = append(c.Anchors, a)
		}
	}
	for i := 1; i < len(c.Anchors); i++ {
		start, end := c.Anchors[i-1], c.Anchors[i]
		if end.Time-start.Time < tun.TimeQuantum {
			continue
		}
		seg, ok := buildSegment(start, end, tun)
		if !ok {
			continue
		}
		c.Segments = append(c.Segments, seg)
	}
	return c
}

func buildSegment(start, end Anchor, tun Tunables) (Segment, bool) {
	if !start.Position.IsFinite() || !end.Position.IsFinite() {
		return Segment{}, false
	}
	seg := Segment{Start: start, End: end}

	var outPos, inPos, outDefault, inDefault Vec3
	var connected [3]bool
	for axis := AxisX; axis <= AxisZ; axis++ {
		sk := start.Keyframes[axis]
		ek := end.Keyframes[axis]
		sv := sk.Value
		ev := ek.Value
		connected[axis] = sk.Eased()

		outRatio := DefaultHandles[HandleOutY]
		inRatio := DefaultHandles[HandleInY]
		if connected[axis] {
			outRatio = sk.Handles[HandleOutY]
			inRatio = ek.Handles[HandleInY]
		}
		outPos = outPos.WithComponent(axis, sv+(ev-sv)*outRatio)
		inPos = inPos.WithComponent(axis, sv+(ev-sv)*inRatio)
		outDefault = outDefault.WithComponent(axis, sv+(ev-sv)*DefaultHandles[HandleOutY])
		inDefault = inDefault.WithComponent(axis, sv+(ev-sv)*DefaultHandles[HandleInY])
	}

	// A tangent point that collapses onto its anchor cannot be selected or
	// dragged; push it back to the default-ratio point.
	minDist := tun.MinTangentFrac * start.Position.Distance(end.Position)
	if outPos.Distance(start.Position) < minDist {
		outPos = outDefault
	}
	if inPos.Distance(end.Position) < minDist {
		inPos = inDefault
	}
	if !outPos.IsFinite() || !inPos.IsFinite() {
		return Segment{}, false
	}

	seg.Out = TangentHandle{
		Key:       tangentKey(start.Key, end.Key, TangentOut),
		Kind:      TangentOut,
		Position:  outPos,
		Start:     start,
		End:       end,
		Connected: connected,
	}
	seg.In = TangentHandle{
		Key:       tangentKey(start.Key, end.Key, TangentIn),
		Kind:      TangentIn,
		Position:  inPos,
		Start:     start,
		End:       end,
		Connected: connected,
	}
	return seg, true
}
