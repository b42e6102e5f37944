package campath

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// engineEvent is an event routed into the engine loop. All event sources
// (track notifications, handle moves, visibility, config reloads) funnel
// through one channel so the loop serializes them.
type engineEvent interface{ engineEvent() }

type trackChanged struct{}

type handleMoved struct {
	key HandleKey
	pos Vec3
}

type visibilityChanged struct{}

type tunablesChanged struct{ tun Tunables }

func (trackChanged) engineEvent()      {}
func (handleMoved) engineEvent()       {}
func (visibilityChanged) engineEvent() {}
func (tunablesChanged) engineEvent()   {}

// handleRef points one handle key at the curve entity it edits. Rebuilt
// every reconciliation pass.
type handleRef struct {
	anchor  *Anchor
	tangent *TangentHandle
}

// EngineConfig configures an Engine. Store, Scene and Tracks are required.
type EngineConfig struct {
	Store  KeyframeStore
	Scene  Scene
	Tracks [3]TrackRef

	// Length is the declared sequence length. The sampled path also covers
	// keyframes beyond it.
	Length float64

	// Tunables overrides the defaults when non-nil.
	Tunables *Tunables
	// Logger defaults to a nop logger.
	Logger *zap.Logger
	// Clock defaults to the system clock.
	Clock Clock
	// ForceVisible keeps handles visible regardless of the global
	// helpers-visible flag.
	ForceVisible bool
}

// Engine keeps the keyframe store, the derived curve and the interactive
// handles consistent. One goroutine owns all mutable state; external event
// sources only post messages to it, so "concurrency" reduces to
// interleaving, never data races.
//
// The data flow is one-directional with a single guarded feedback edge:
// store → reconcile → scene, and scene edits → pipeline → store, which
// triggers reconcile again. The registry's echo suppression keeps the cycle
// from feeding on itself.
type Engine struct {
	store        KeyframeStore
	scene        Scene
	tracks       [3]TrackRef
	length       float64
	forceVisible bool
	log          *zap.Logger
	clock        Clock

	events    chan engineEvent
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once

	// Everything below is owned by the loop goroutine.
	tun      Tunables
	registry *Registry
	pipeline *Pipeline
	curve    Curve
	byKey    map[HandleKey]handleRef

	trackSubs []func()
	visSub    func()

	poll          *time.Ticker
	flushTimer    *loopTimer
	commitTimer   *loopTimer
	overrideTimer *loopTimer
}

// NewEngine creates an engine. Call [Engine.Start] to begin reconciling and
// [Engine.Stop] to tear it down.
func NewEngine(cfg EngineConfig) *Engine {
	tun := DefaultTunables()
	if cfg.Tunables != nil {
		tun = *cfg.Tunables
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{
		store:        cfg.Store,
		scene:        cfg.Scene,
		tracks:       cfg.Tracks,
		length:       cfg.Length,
		forceVisible: cfg.ForceVisible,
		log:          log,
		clock:        clock,
		events:       make(chan engineEvent, 256),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		tun:          tun,
		registry:     NewRegistry(clock, tun),
		pipeline:     NewPipeline(cfg.Store, cfg.Tracks, tun, log),
		byKey:        make(map[HandleKey]handleRef),
	}
}

// Start subscribes to the host's change notifications and launches the
// reconciliation loop. It is idempotent.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		for _, tr := range e.tracks {
			unsub := e.store.OnChange(tr, func() {
				e.post(trackChanged{})
			})
			e.trackSubs = append(e.trackSubs, unsub)
		}
		e.visSub = SubscribeHelpers(func(VisibilityState) {
			e.post(visibilityChanged{})
		})
		e.started.Store(true)
		go e.run()
	})
}

// Stop tears the engine down: pending frame callbacks and timers are
// canceled, an open scrub transaction is discarded (never committed), all
// registrations are cleared and every listener unsubscribed. It blocks
// until the loop has exited and is idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		// with no loop running there is nothing to wait for
		if e.started.Load() {
			<-e.doneCh
		}
	})
}

// SetTunables swaps the tuned thresholds at runtime, e.g. from a config
// watcher.
func (e *Engine) SetTunables(tun Tunables) {
	e.post(tunablesChanged{tun: tun})
}

// post delivers an event to the loop without blocking. A full channel drops
// the event; the periodic poll makes the state converge regardless.
func (e *Engine) post(ev engineEvent) {
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) run() {
	defer close(e.doneCh)

	e.poll = time.NewTicker(e.tun.PollInterval.Std())
	defer e.poll.Stop()
	e.flushTimer = newLoopTimer()
	defer e.flushTimer.stop()
	e.commitTimer = newLoopTimer()
	defer e.commitTimer.stop()
	e.overrideTimer = newLoopTimer()
	defer e.overrideTimer.stop()

	e.reconcile()

	for {
		select {
		case <-e.stopCh:
			e.teardown()
			return
		case <-e.poll.C:
			e.reconcile()
		case ev := <-e.events:
			// drain whatever else arrived in the same tick, then act once
			needReconcile := e.handleEvent(ev)
		drain:
			for {
				select {
				case ev := <-e.events:
					needReconcile = e.handleEvent(ev) || needReconcile
				default:
					break drain
				}
			}
			if needReconcile {
				e.reconcile()
			}
		case <-e.flushTimer.C:
			e.flush()
		case <-e.commitTimer.C:
			e.pipeline.CommitScrub()
		case <-e.overrideTimer.C:
			for _, tr := range e.tracks {
				e.store.UnsetOverride(tr)
			}
		}
	}
}

// handleEvent processes one event and reports whether a reconciliation pass
// is needed afterwards.
func (e *Engine) handleEvent(ev engineEvent) bool {
	switch ev := ev.(type) {
	case trackChanged:
		return true
	case visibilityChanged:
		e.applyVisibility()
	case tunablesChanged:
		e.tun = ev.tun
		e.registry.SetTunables(ev.tun)
		e.pipeline.SetTunables(ev.tun)
		e.poll.Reset(ev.tun.PollInterval.Std())
		return true
	case handleMoved:
		e.handleMove(ev.key, ev.pos)
	}
	return false
}

func (e *Engine) handleMove(key HandleKey, pos Vec3) {
	switch e.registry.Classify(key, pos) {
	case ClassEdit:
		ref, ok := e.byKey[key]
		if !ok {
			return
		}
		if ref.anchor != nil {
			e.registry.NoteAnchorEdit()
			e.pipeline.EnqueueAnchor(*ref.anchor, pos)
		} else if ref.tangent != nil {
			e.pipeline.EnqueueTangent(*ref.tangent, pos)
		} else {
			return
		}
		e.registry.MarkPending(key)
		e.flushTimer.reset(e.tun.FlushInterval.Std())
		// once the host converges to the edit, revert any lingering
		// scrub-preview override
		e.overrideTimer.reset(e.tun.OverrideClearDelay.Std())
	default:
		// self-sync: the proxy already shows the observed position.
		// pending/noise/echo/unknown: nothing to do; noise already updated
		// the expected position.
	}
}

// flush drains the pending-edit queue into the scrub transaction and then
// re-reconciles, so the rendered state converges to the just-written values
// rather than a stale pre-write sample.
func (e *Engine) flush() {
	flushed, dropped := e.pipeline.Flush()
	for _, w := range flushed {
		e.registry.ClearPending(w.Key, w.Position)
	}
	for _, key := range dropped {
		e.registry.AbortPending(key)
	}
	if len(flushed) > 0 {
		e.commitTimer.reset(e.tun.CommitDebounce.Std())
	}
	e.reconcile()
}

func (e *Engine) reconcile() {
	var tracks [3][]Keyframe
	resolvable := false
	for axis, tr := range e.tracks {
		kfs := e.store.Keyframes(tr)
		if kfs != nil {
			resolvable = true
		}
		tracks[axis] = kfs
	}
	if !resolvable {
		// host object not created yet, or torn down: reset every derived
		// output to empty and let the poll retry. An open scrub is orphaned
		// and must be discarded, never committed.
		e.pipeline.DiscardScrub()
		e.curve = Curve{}
		e.byKey = make(map[HandleKey]handleRef)
		e.scene.SetPolyline(nil)
		e.scene.SetConnectors(nil)
		for _, key := range e.registry.Clear() {
			e.scene.RemoveHandle(key)
		}
		return
	}

	e.curve = Build(tracks, e.length, e.tun)
	e.scene.SetPolyline(e.curve.Polyline.Floats())
	e.scene.SetConnectors(e.curve.ConnectorFloats())

	vis := ResolveVisibility(e.forceVisible)
	e.byKey = make(map[HandleKey]handleRef, len(e.curve.Anchors)+2*len(e.curve.Segments))
	e.registry.BeginPass()
	for i := range e.curve.Anchors {
		a := &e.curve.Anchors[i]
		e.byKey[a.Key] = handleRef{anchor: a}
		e.syncHandle(a.Key, false, a.Position, vis)
	}
	for i := range e.curve.Segments {
		s := &e.curve.Segments[i]
		e.byKey[s.Out.Key] = handleRef{tangent: &s.Out}
		e.byKey[s.In.Key] = handleRef{tangent: &s.In}
		e.syncHandle(s.Out.Key, true, s.Out.Position, vis)
		e.syncHandle(s.In.Key, true, s.In.Position, vis)
	}
	for _, key := range e.registry.EndPass() {
		e.scene.RemoveHandle(key)
	}
	e.registry.MarkSelfSync()

	e.log.Debug("reconciled",
		zap.Int("anchors", len(e.curve.Anchors)),
		zap.Int("segments", len(e.curve.Segments)),
		zap.Int("samples", len(e.curve.Polyline)))
}

func (e *Engine) syncHandle(key HandleKey, tangent bool, pos Vec3, vis Visibility) {
	obj := e.scene.Handle(key)
	if !e.registry.Registered(key) {
		unsub := obj.OnMove(func(p Vec3) {
			e.post(handleMoved{key: key, pos: p})
		})
		e.registry.Register(key, tangent, pos, unsub)
	} else {
		e.registry.Register(key, tangent, pos, nil)
	}
	obj.SetVisibility(vis)

	// While a drag is mid-flight the store still holds the pre-edit value;
	// snapping the proxy back would make it fight the user's hand.
	if state, ok := e.registry.State(key); ok && state == StatePendingWrite {
		return
	}
	if obj.Position().Distance(pos) > e.tun.PositionEpsilon {
		obj.SetPosition(pos)
	}
}

func (e *Engine) applyVisibility() {
	vis := ResolveVisibility(e.forceVisible)
	for key := range e.byKey {
		e.scene.Handle(key).SetVisibility(vis)
	}
}

func (e *Engine) teardown() {
	for _, unsub := range e.trackSubs {
		unsub()
	}
	e.trackSubs = nil
	if e.visSub != nil {
		e.visSub()
		e.visSub = nil
	}
	e.pipeline.DiscardScrub()
	e.registry.Clear()
	e.byKey = make(map[HandleKey]handleRef)
	e.log.Debug("engine stopped")
}

// loopTimer is a select-friendly timer that starts idle.
type loopTimer struct {
	t *time.Timer
	C <-chan time.Time
}

func newLoopTimer() *loopTimer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &loopTimer{t: t, C: t.C}
}

func (lt *loopTimer) reset(d time.Duration) {
	if !lt.t.Stop() {
		select {
		case <-lt.t.C:
		default:
		}
	}
	lt.t.Reset(d)
}

func (lt *loopTimer) stop() {
	lt.t.Stop()
}
