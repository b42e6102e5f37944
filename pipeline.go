package campath

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// scrubName labels the undo-history entry holding one batch of micro-edits.
const scrubName = "Edit camera path"

type queuedEdit struct {
	anchor   *Anchor
	tangent  *TangentHandle
	position Vec3
}

// FlushedWrite records one handle whose queued edit reached the host store.
type FlushedWrite struct {
	Key      HandleKey
	Position Vec3
}

type scrub struct {
	tx      Transaction
	entryID string
}

// Pipeline converts queued handle positions back into per-axis keyframe
// writes and owns the scrub transaction. It is not safe for concurrent use;
// the engine loop owns it.
type Pipeline struct {
	store  KeyframeStore
	tracks [3]TrackRef
	tun    Tunables
	log    *zap.Logger

	pending map[HandleKey]queuedEdit
	scrub   *scrub
}

func NewPipeline(store KeyframeStore, tracks [3]TrackRef, tun Tunables, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		store:   store,
		tracks:  tracks,
		tun:     tun,
		log:     log,
		pending: make(map[HandleKey]queuedEdit),
	}
}

// SetTunables swaps the tuned thresholds, e.g. after a config reload.
func (p *Pipeline) SetTunables(tun Tunables) {
	p.tun = tun
}

// EnqueueAnchor queues a drag-delivered anchor position, collapsing any
// earlier unflushed position for the same handle.
func (p *Pipeline) EnqueueAnchor(a Anchor, pos Vec3) {
	p.pending[a.Key] = queuedEdit{anchor: &a, position: pos}
}

// EnqueueTangent queues a drag-delivered tangent position.
func (p *Pipeline) EnqueueTangent(h TangentHandle, pos Vec3) {
	p.pending[h.Key] = queuedEdit{tangent: &h, position: pos}
}

// HasPending reports whether the handle has an unflushed queued edit.
func (p *Pipeline) HasPending(key HandleKey) bool {
	_, ok := p.pending[key]
	return ok
}

// PendingCount returns the number of queued edits.
func (p *Pipeline) PendingCount() int {
	return len(p.pending)
}

// Flush writes every queued edit into the scrub transaction, opening one if
// needed, and returns the handles that were written. When the host exposes
// no transactional write capability the queue is dropped and returned as
// the second result: the visual state keeps reflecting the drag locally
// until the next reconciliation pass overwrites it.
func (p *Pipeline) Flush() (flushed []FlushedWrite, dropped []HandleKey) {
	if len(p.pending) == 0 {
		return nil, nil
	}
	if p.scrub != nil && !p.resolvable() {
		// the host object went away mid-scrub; the orphaned transaction
		// must never commit
		p.DiscardScrub()
	}
	tx := p.ensureScrub()
	if tx == nil {
		for key := range p.pending {
			dropped = append(dropped, key)
		}
		clear(p.pending)
		return nil, dropped
	}

	flushed = make([]FlushedWrite, 0, len(p.pending))
	for key, q := range p.pending {
		if q.anchor != nil {
			p.applyAnchor(tx, q.anchor, q.position)
		} else {
			p.applyTangent(tx, q.tangent, q.position)
		}
		flushed = append(flushed, FlushedWrite{Key: key, Position: q.position})
	}
	clear(p.pending)
	return flushed, nil
}

// HasOpenScrub reports whether a scrub transaction is open.
func (p *Pipeline) HasOpenScrub() bool {
	return p.scrub != nil
}

// CommitScrub commits the open scrub transaction, if any, merging all
// accumulated writes into one undoable history entry.
func (p *Pipeline) CommitScrub() {
	if p.scrub == nil {
		return
	}
	p.scrub.tx.Commit()
	p.log.Debug("scrub committed", zap.String("entry", p.scrub.entryID))
	p.scrub = nil
}

// DiscardScrub abandons the open scrub transaction, if any. Called on
// disposal so an orphaned history entry is never left behind.
func (p *Pipeline) DiscardScrub() {
	if p.scrub == nil {
		return
	}
	p.scrub.tx.Discard()
	p.log.Debug("scrub discarded", zap.String("entry", p.scrub.entryID))
	p.scrub = nil
}

// ensureScrub returns the open scrub transaction, opening one if none is.
// At most one is open at a time; a new edit arriving while one is open
// reuses it. Returns nil when the host cannot resolve track ids or has no
// transactional API.
func (p *Pipeline) ensureScrub() Transaction {
	if p.scrub != nil {
		return p.scrub.tx
	}
	if !p.resolvable() {
		return nil
	}
	entryID := uuid.NewString()
	tx, ok := p.store.Begin(scrubName, entryID)
	if !ok {
		return nil
	}
	p.scrub = &scrub{tx: tx, entryID: entryID}
	p.log.Debug("scrub opened", zap.String("entry", entryID))
	return tx
}

// resolvable reports whether the host can currently resolve persistent ids
// for all three tracks. Checked before opening a scrub and again on every
// flush while one is open.
func (p *Pipeline) resolvable() bool {
	for _, tr := range p.tracks {
		if _, ok := p.store.TrackID(tr); !ok {
			return false
		}
	}
	return true
}

// withPlayhead temporarily repositions the playhead around a write. The
// host's write API is playhead-relative.
func (p *Pipeline) withPlayhead(t float64, fn func()) {
	saved := p.store.Playhead()
	p.store.SetPlayhead(t)
	fn()
	p.store.SetPlayhead(saved)
}

// applyAnchor maps an anchor drag to per-axis value writes. Each axis
// resolves its keyframe by identity first, then by nearest time; an axis
// whose keyframe cannot be resolved is skipped while the others still
// apply.
func (p *Pipeline) applyAnchor(tx Transaction, a *Anchor, pos Vec3) {
	for axis := AxisX; axis <= AxisZ; axis++ {
		ref := a.Keyframes[axis]
		kfs := p.store.Keyframes(p.tracks[axis])
		k, ok := nearestKeyframeByID(kfs, ref.ID, ref.Position, p.tun.MatchEpsilon)
		if !ok {
			continue
		}
		newVal := pos.Component(axis)
		if !isFinite(newVal) || math.Abs(newVal-k.Value) <= p.tun.WriteEpsilon {
			continue
		}
		track := p.tracks[axis]
		p.withPlayhead(k.Position, func() {
			tx.SetValueAtTime(track, k.Position, newVal)
			p.compensateNeighbors(tx, track, kfs, k, newVal)
		})
	}
}

// compensateNeighbors rescales the tangent ratios denominated in the moved
// keyframe's value so that the absolute control-point positions survive the
// value shift. Without this, editing a value warps the eased curve's
// tangent directions.
func (p *Pipeline) compensateNeighbors(tx Transaction, track TrackRef, kfs []Keyframe, k Keyframe, newVal float64) {
	idx := -1
	for i := range kfs {
		if kfs[i].ID == k.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	const tiny = 1e-9

	// segment arriving at k: value box spans prev.Value..k.Value
	if idx > 0 {
		prev := kfs[idx-1]
		oldSpan := k.Value - prev.Value
		newSpan := newVal - prev.Value
		if prev.Eased() && math.Abs(newSpan) > tiny {
			outAbs := prev.Value + prev.Handles[HandleOutY]*oldSpan
			inAbs := prev.Value + k.Handles[HandleInY]*oldSpan
			tx.SetTangentHandles(track, prev.ID, TangentUpdate{
				Out: &[2]float64{prev.Handles[HandleOutX], clamp01((outAbs - prev.Value) / newSpan)},
			})
			tx.SetTangentHandles(track, k.ID, TangentUpdate{
				In: &[2]float64{k.Handles[HandleInX], clamp01((inAbs - prev.Value) / newSpan)},
			})
		}
	}

	// segment leaving k: value box spans k.Value..next.Value, and its start
	// moves with the edit
	if idx < len(kfs)-1 {
		next := kfs[idx+1]
		oldSpan := next.Value - k.Value
		newSpan := next.Value - newVal
		if k.Eased() && math.Abs(newSpan) > tiny {
			outAbs := k.Value + k.Handles[HandleOutY]*oldSpan
			inAbs := k.Value + next.Handles[HandleInY]*oldSpan
			tx.SetTangentHandles(track, k.ID, TangentUpdate{
				Out: &[2]float64{k.Handles[HandleOutX], clamp01((outAbs - newVal) / newSpan)},
			})
			tx.SetTangentHandles(track, next.ID, TangentUpdate{
				In: &[2]float64{next.Handles[HandleInX], clamp01((inAbs - newVal) / newSpan)},
			})
		}
	}
}

// applyTangent maps a tangent drag back to per-axis handle-ratio writes. A
// hold keyframe under the dragged tangent is promoted to Bézier: dragging
// the tangent expresses intent to ease that segment.
func (p *Pipeline) applyTangent(tx Transaction, h *TangentHandle, pos Vec3) {
	for axis := AxisX; axis <= AxisZ; axis++ {
		kfs := p.store.Keyframes(p.tracks[axis])
		startRef := h.Start.Keyframes[axis]
		endRef := h.End.Keyframes[axis]
		start, ok := nearestKeyframeByID(kfs, startRef.ID, startRef.Position, p.tun.MatchEpsilon)
		if !ok {
			continue
		}
		end, ok := nearestKeyframeByID(kfs, endRef.ID, endRef.Position, p.tun.MatchEpsilon)
		if !ok {
			continue
		}
		span := end.Value - start.Value
		if math.Abs(span) < 1e-9 {
			continue
		}
		newVal := pos.Component(axis)
		if !isFinite(newVal) {
			continue
		}
		ratio := clamp01((newVal - start.Value) / span)

		governing := start
		handleIdx := HandleOutY
		if h.Kind == TangentIn {
			governing = end
			handleIdx = HandleInY
		}
		if math.Abs(ratio-governing.Handles[handleIdx]) <= p.tun.RatioEpsilon {
			continue
		}

		track := p.tracks[axis]
		p.withPlayhead(governing.Position, func() {
			if governing.Interpolation == InterpHold {
				tx.SetKeyframeType(track, governing.ID, InterpBezier)
			}
			upd := TangentUpdate{}
			if h.Kind == TangentOut {
				upd.Out = &[2]float64{governing.Handles[HandleOutX], ratio}
			} else {
				upd.In = &[2]float64{governing.Handles[HandleInX], ratio}
			}
			tx.SetTangentHandles(track, governing.ID, upd)
		})
	}
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
