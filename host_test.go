package campath

import (
	"math"
	"sync"
)

// fakeStore is an in-memory KeyframeStore. Writes apply immediately and
// fire per-track change notifications, like a live host store does.
type fakeStore struct {
	mu        sync.Mutex
	tracks    map[string][]Keyframe
	playhead  float64
	playtrace []float64 // every playhead position ever set
	subs      map[string][]*storeSub
	unsets    map[string]int

	noTx     bool // simulate a host without a transactional API
	noIDs    bool // simulate unresolvable persistent track ids
	begins   int
	commits  int
	discards int
}

type storeSub struct {
	fn      func()
	removed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tracks: make(map[string][]Keyframe),
		subs:   make(map[string][]*storeSub),
		unsets: make(map[string]int),
	}
}

func (s *fakeStore) setTrack(name string, kfs []Keyframe) {
	s.mu.Lock()
	s.tracks[name] = kfs
	s.mu.Unlock()
	s.notify(name)
}

func (s *fakeStore) keyframe(track string, id KeyframeID) (Keyframe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.tracks[track] {
		if k.ID == id {
			return k, true
		}
	}
	return Keyframe{}, false
}

func (s *fakeStore) notify(track string) {
	s.mu.Lock()
	subs := append([]*storeSub(nil), s.subs[track]...)
	s.mu.Unlock()
	for _, sub := range subs {
		if !sub.removed {
			sub.fn()
		}
	}
}

func (s *fakeStore) Keyframes(track TrackRef) []Keyframe {
	s.mu.Lock()
	defer s.mu.Unlock()
	kfs, ok := s.tracks[track.(string)]
	if !ok {
		return nil
	}
	return append([]Keyframe(nil), kfs...)
}

func (s *fakeStore) TrackID(track TrackRef) (string, bool) {
	if s.noIDs {
		return "", false
	}
	return "track-" + track.(string), true
}

func (s *fakeStore) OnChange(track TrackRef, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &storeSub{fn: fn}
	name := track.(string)
	s.subs[name] = append(s.subs[name], sub)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sub.removed = true
	}
}

func (s *fakeStore) UnsetOverride(track TrackRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsets[track.(string)]++
}

func (s *fakeStore) Playhead() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playhead
}

func (s *fakeStore) SetPlayhead(t float64) {
	s.mu.Lock()
	s.playhead = t
	s.playtrace = append(s.playtrace, t)
	s.mu.Unlock()
}

func (s *fakeStore) Begin(name, entryID string) (Transaction, bool) {
	if s.noTx {
		return nil, false
	}
	s.mu.Lock()
	s.begins++
	s.mu.Unlock()
	return &fakeTx{store: s}, true
}

func (s *fakeStore) liveSubs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, subs := range s.subs {
		for _, sub := range subs {
			if !sub.removed {
				n++
			}
		}
	}
	return n
}

type fakeTx struct {
	store *fakeStore
}

func (tx *fakeTx) SetValueAtTime(track TrackRef, time, value float64) {
	s := tx.store
	name := track.(string)
	s.mu.Lock()
	for i, k := range s.tracks[name] {
		if math.Abs(k.Position-time) < 1e-9 {
			s.tracks[name][i].Value = value
			break
		}
	}
	s.mu.Unlock()
	s.notify(name)
}

func (tx *fakeTx) SetTangentHandles(track TrackRef, id KeyframeID, upd TangentUpdate) {
	s := tx.store
	name := track.(string)
	s.mu.Lock()
	for i, k := range s.tracks[name] {
		if k.ID != id {
			continue
		}
		if upd.Out != nil {
			s.tracks[name][i].Handles[HandleOutX] = upd.Out[0]
			s.tracks[name][i].Handles[HandleOutY] = upd.Out[1]
		}
		if upd.In != nil {
			s.tracks[name][i].Handles[HandleInX] = upd.In[0]
			s.tracks[name][i].Handles[HandleInY] = upd.In[1]
		}
		break
	}
	s.mu.Unlock()
	s.notify(name)
}

func (tx *fakeTx) SetKeyframeType(track TrackRef, id KeyframeID, interp Interpolation) {
	s := tx.store
	name := track.(string)
	s.mu.Lock()
	for i, k := range s.tracks[name] {
		if k.ID == id {
			s.tracks[name][i].Interpolation = interp
			break
		}
	}
	s.mu.Unlock()
	s.notify(name)
}

func (tx *fakeTx) Commit() {
	tx.store.mu.Lock()
	tx.store.commits++
	tx.store.mu.Unlock()
}

func (tx *fakeTx) Discard() {
	tx.store.mu.Lock()
	tx.store.discards++
	tx.store.mu.Unlock()
}

// fakeScene is an in-memory Scene whose handle objects echo SetPosition
// back through OnMove, like live scene objects do.
type fakeScene struct {
	mu         sync.Mutex
	handles    map[HandleKey]*fakeHandle
	polyline   []float64
	connectors []float64
	removed    []HandleKey
}

func newFakeScene() *fakeScene {
	return &fakeScene{handles: make(map[HandleKey]*fakeHandle)}
}

func (s *fakeScene) Handle(key HandleKey) HandleObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[key]
	if !ok {
		h = &fakeHandle{}
		s.handles[key] = h
	}
	return h
}

func (s *fakeScene) RemoveHandle(key HandleKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, key)
	s.removed = append(s.removed, key)
}

func (s *fakeScene) SetPolyline(points []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polyline = points
}

func (s *fakeScene) SetConnectors(points []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectors = points
}

func (s *fakeScene) polylineLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polyline)
}

func (s *fakeScene) handleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *fakeScene) handleAt(pos Vec3, eps float64) (*fakeHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handles {
		if h.Position().Distance(pos) <= eps {
			return h, true
		}
	}
	return nil, false
}

type fakeHandle struct {
	mu   sync.Mutex
	pos  Vec3
	vis  Visibility
	subs []func(Vec3)
}

func (h *fakeHandle) Position() Vec3 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *fakeHandle) SetPosition(p Vec3) {
	h.mu.Lock()
	h.pos = p
	subs := append([]func(Vec3){}, h.subs...)
	h.mu.Unlock()
	for _, fn := range subs {
		fn(p)
	}
}

func (h *fakeHandle) SetVisibility(v Visibility) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vis = v
}

func (h *fakeHandle) visibility() Visibility {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vis
}

func (h *fakeHandle) OnMove(fn func(Vec3)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
	i := len(h.subs) - 1
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.subs[i] = func(Vec3) {}
	}
}

// drag simulates the user moving the handle.
func (h *fakeHandle) drag(p Vec3) {
	h.SetPosition(p)
}
