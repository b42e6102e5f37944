package campath

import "time"

// HandleState is the per-handle echo-suppression state.
type HandleState uint8

const (
	// StateIdle means the handle has no write in flight.
	StateIdle HandleState = iota
	// StatePendingWrite means a drag-delivered position is queued but not
	// yet flushed to the host store.
	StatePendingWrite
	// StateSelfSyncing means the engine itself just positioned the handle
	// and observed moves are echoes.
	StateSelfSyncing
)

// Classification is the registry's verdict on an observed handle move.
type Classification uint8

const (
	// ClassUnknown: the key is not registered; ignore.
	ClassUnknown Classification = iota
	// ClassSelfSync: the engine is inside a self-sync window; apply to the
	// proxy but do not treat as a user edit.
	ClassSelfSync
	// ClassPending: the handle has an unflushed queued update; ignore.
	ClassPending
	// ClassNoise: within the drag-noise radius of the expected position;
	// absorbed silently.
	ClassNoise
	// ClassEcho: numerically identical to the expected position.
	ClassEcho
	// ClassEdit: a genuine user-initiated move.
	ClassEdit
)

func (c Classification) String() string {
	switch c {
	case ClassSelfSync:
		return "self-sync"
	case ClassPending:
		return "pending"
	case ClassNoise:
		return "noise"
	case ClassEcho:
		return "echo"
	case ClassEdit:
		return "edit"
	default:
		return "unknown"
	}
}

type registration struct {
	tangent     bool
	expected    Vec3
	state       HandleState
	stateAt     time.Time
	unsubscribe func()
	seen        bool
}

// Registry maps stable handle keys to live registrations and classifies
// observed position changes as echoes of the engine's own writes versus
// genuine user edits. It is not safe for concurrent use; the engine loop
// owns it.
type Registry struct {
	clock   Clock
	tun     Tunables
	entries map[HandleKey]*registration

	selfSyncUntil  time.Time
	lastAnchorEdit time.Time
}

func NewRegistry(clock Clock, tun Tunables) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	return &Registry{
		clock:   clock,
		tun:     tun,
		entries: make(map[HandleKey]*registration),
	}
}

// SetTunables swaps the tuned thresholds, e.g. after a config reload.
func (r *Registry) SetTunables(tun Tunables) {
	r.tun = tun
}

// BeginPass starts a reconciliation pass. Keys not touched before EndPass
// are collected as gone.
func (r *Registry) BeginPass() {
	for _, reg := range r.entries {
		reg.seen = false
	}
}

// Register records a handle emitted by the current pass, updating its
// expected position. The unsubscribe function is retained for garbage
// collection and is only used for keys registered for the first time.
// It reports whether the key was newly registered.
func (r *Registry) Register(key HandleKey, tangent bool, expected Vec3, unsubscribe func()) bool {
	if reg, ok := r.entries[key]; ok {
		reg.seen = true
		reg.expected = expected
		return false
	}
	r.entries[key] = &registration{
		tangent:     tangent,
		expected:    expected,
		state:       StateIdle,
		stateAt:     r.clock.Now(),
		unsubscribe: unsubscribe,
		seen:        true,
	}
	return true
}

// Registered reports whether the key has a live registration.
func (r *Registry) Registered(key HandleKey) bool {
	_, ok := r.entries[key]
	return ok
}

// State returns the handle's echo-suppression state.
func (r *Registry) State(key HandleKey) (HandleState, bool) {
	reg, ok := r.entries[key]
	if !ok {
		return StateIdle, false
	}
	return reg.state, true
}

// EndPass garbage-collects registrations for handles absent from the pass,
// unsubscribing their listeners, and returns the removed keys.
func (r *Registry) EndPass() []HandleKey {
	var gone []HandleKey
	for key, reg := range r.entries {
		if reg.seen {
			continue
		}
		if reg.unsubscribe != nil {
			reg.unsubscribe()
		}
		delete(r.entries, key)
		gone = append(gone, key)
	}
	return gone
}

// Clear removes every registration, unsubscribing all listeners. Used on
// disposal and when the host object becomes unresolvable.
func (r *Registry) Clear() []HandleKey {
	r.BeginPass()
	return r.EndPass()
}

// MarkSelfSync opens the self-sync window: until it elapses, observed moves
// are echoes of the engine's own positioning.
func (r *Registry) MarkSelfSync() {
	r.selfSyncUntil = r.clock.Now().Add(r.tun.SelfSyncWindow.Std())
}

// NoteAnchorEdit records a genuine anchor-handle edit. Moving an anchor
// visually displaces its tangent handles, so tangent echoes are suppressed
// for a window afterwards.
func (r *Registry) NoteAnchorEdit() {
	r.lastAnchorEdit = r.clock.Now()
}

// MarkPending moves a handle into the pending-write state.
func (r *Registry) MarkPending(key HandleKey) {
	if reg, ok := r.entries[key]; ok {
		reg.state = StatePendingWrite
		reg.stateAt = r.clock.Now()
	}
}

// ClearPending returns a handle to idle, recording the position the engine
// just wrote as the new expected position.
func (r *Registry) ClearPending(key HandleKey, written Vec3) {
	if reg, ok := r.entries[key]; ok {
		reg.state = StateIdle
		reg.stateAt = r.clock.Now()
		reg.expected = written
	}
}

// AbortPending returns a handle to idle without touching its expected
// position, for queued edits that never reached the store.
func (r *Registry) AbortPending(key HandleKey) {
	if reg, ok := r.entries[key]; ok && reg.state == StatePendingWrite {
		reg.state = StateIdle
		reg.stateAt = r.clock.Now()
	}
}

// SetExpected updates the authoritative expected position without touching
// the handle's state.
func (r *Registry) SetExpected(key HandleKey, expected Vec3) {
	if reg, ok := r.entries[key]; ok {
		reg.expected = expected
	}
}

// Expected returns the handle's expected position.
func (r *Registry) Expected(key HandleKey) (Vec3, bool) {
	reg, ok := r.entries[key]
	if !ok {
		return Vec3{}, false
	}
	return reg.expected, true
}

// Classify decides what an observed position change on a handle means. A
// ClassNoise result also absorbs the observation into the expected position
// so jitter does not accumulate into a later false edit.
func (r *Registry) Classify(key HandleKey, observed Vec3) Classification {
	reg, ok := r.entries[key]
	if !ok {
		return ClassUnknown
	}
	now := r.clock.Now()

	if now.Before(r.selfSyncUntil) {
		return ClassSelfSync
	}
	if reg.tangent && now.Sub(r.lastAnchorEdit) < r.tun.TangentSuppressWindow.Std() {
		return ClassSelfSync
	}
	if reg.state == StatePendingWrite {
		return ClassPending
	}

	dist := observed.Distance(reg.expected)
	if dist <= r.tun.PositionEpsilon {
		return ClassEcho
	}
	noise := r.tun.AnchorNoiseRadius
	if reg.tangent {
		noise = r.tun.TangentNoiseRadius
	}
	if dist <= noise {
		reg.expected = observed
		return ClassNoise
	}
	return ClassEdit
}
