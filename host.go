package campath

// TrackRef is an opaque handle to one scalar track in the host's keyframe
// store. The engine never inspects it; it only passes it back to the store.
type TrackRef any

// TangentUpdate carries new handle ratios for a keyframe. Nil fields leave
// the corresponding handle pair untouched.
type TangentUpdate struct {
	// Out replaces the outgoing (x, y) handle ratios.
	Out *[2]float64
	// In replaces the incoming (x, y) handle ratios.
	In *[2]float64
}

// KeyframeStore is the host's animation store, the single source of truth
// for keyframe data. It may be mutated by external actors at any time; every
// read is a fresh snapshot.
type KeyframeStore interface {
	// Keyframes returns the track's keyframes ordered by position. A nil
	// result means the track (or its owning object) is not currently
	// resolvable, which is an empty state rather than an error.
	Keyframes(track TrackRef) []Keyframe

	// TrackID resolves the track's persistent identifier, which the
	// transactional write API addresses tracks by. Hosts unable to resolve
	// an id report false, degrading writes to no-ops.
	TrackID(track TrackRef) (string, bool)

	// OnChange registers a callback invoked whenever the track changes by
	// any means, including this engine's own writes. The returned function
	// unregisters it.
	OnChange(track TrackRef, fn func()) (unsubscribe func())

	// UnsetOverride clears an ephemeral, non-authoritative value on the
	// track, reverting scrub-preview artifacts.
	UnsetOverride(track TrackRef)

	// Playhead returns the current playhead time.
	Playhead() float64
	// SetPlayhead repositions the playhead. The transactional write API is
	// playhead-relative, so writes temporarily move it.
	SetPlayhead(t float64)

	// Begin opens a transaction recorded as a single undoable history
	// entry. It reports false when the host exposes no transactional API,
	// in which case writes silently no-op.
	Begin(name, entryID string) (Transaction, bool)
}

// Transaction is an open mutation boundary into the keyframe store. All
// writes inside one transaction form one undo step.
type Transaction interface {
	SetValueAtTime(track TrackRef, time, value float64)
	SetTangentHandles(track TrackRef, id KeyframeID, upd TangentUpdate)
	SetKeyframeType(track TrackRef, id KeyframeID, interp Interpolation)

	// Commit records the accumulated writes as one history entry.
	Commit()
	// Discard abandons the transaction without creating a history entry.
	Discard()
}

// Visibility is the resolved display mode of a helper object.
type Visibility uint8

const (
	// VisibilityAlways shows the helper in every view.
	VisibilityAlways Visibility = iota
	// VisibilityEditorOnly shows the helper in editor views but not in
	// final renders.
	VisibilityEditorOnly
	// VisibilityHidden hides the helper entirely.
	VisibilityHidden
)

// HandleObject is a live interactive point in the host scene.
type HandleObject interface {
	Position() Vec3
	SetPosition(Vec3)
	SetVisibility(Visibility)

	// OnMove registers a callback for position changes, whether caused by
	// the user or by this engine's own SetPosition. Distinguishing the two
	// is the registry's job.
	OnMove(fn func(Vec3)) (unsubscribe func())
}

// Scene is the host surface the engine renders into.
type Scene interface {
	// Handle returns the interactive object for a key, creating it on
	// first use. Stable keys keep objects alive across reconciliation
	// passes.
	Handle(key HandleKey) HandleObject
	// RemoveHandle tears down the object for a key that no longer exists.
	RemoveHandle(key HandleKey)

	// SetPolyline replaces the path vertex buffer with flat x/y/z triples.
	SetPolyline(points []float64)
	// SetConnectors replaces the tangent connector buffer. The triple
	// count is always even.
	SetConnectors(points []float64)
}
