package campath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry() (*Registry, *fakeClock) {
	clock := newFakeClock()
	return NewRegistry(clock, DefaultTunables()), clock
}

// Writing an expected position and then observing exactly that position
// must not look like a user edit.
func TestRegistryEchoSuppressed(t *testing.T) {
	r, _ := newTestRegistry()
	pos := V3(1, 2, 3)
	r.Register("h1", false, pos, nil)

	assert.Equal(t, ClassEcho, r.Classify("h1", pos))
}

func TestRegistryGenuineEdit(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register("h1", false, V3(0, 0, 0), nil)

	assert.Equal(t, ClassEdit, r.Classify("h1", V3(1, 0, 0)))
}

func TestRegistryNoiseAbsorbed(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register("h1", false, V3(0, 0, 0), nil)

	jitter := V3(5e-5, 0, 0) // inside the anchor noise radius
	assert.Equal(t, ClassNoise, r.Classify("h1", jitter))

	// the jitter became the new expected position
	exp, ok := r.Expected("h1")
	require.True(t, ok)
	assert.Equal(t, jitter, exp)
	assert.Equal(t, ClassEcho, r.Classify("h1", jitter))
}

func TestRegistrySelfSyncWindow(t *testing.T) {
	r, clock := newTestRegistry()
	r.Register("h1", false, V3(0, 0, 0), nil)
	r.MarkSelfSync()

	assert.Equal(t, ClassSelfSync, r.Classify("h1", V3(9, 9, 9)))

	clock.advance(DefaultTunables().SelfSyncWindow.Std() + time.Millisecond)
	assert.Equal(t, ClassEdit, r.Classify("h1", V3(9, 9, 9)))
}

func TestRegistryPendingIgnored(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register("h1", false, V3(0, 0, 0), nil)
	r.MarkPending("h1")

	assert.Equal(t, ClassPending, r.Classify("h1", V3(5, 0, 0)))

	r.ClearPending("h1", V3(5, 0, 0))
	assert.Equal(t, ClassEcho, r.Classify("h1", V3(5, 0, 0)))
}

func TestRegistryAbortPendingKeepsExpected(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register("h1", false, V3(1, 1, 1), nil)
	r.MarkPending("h1")
	r.AbortPending("h1")

	state, ok := r.State("h1")
	require.True(t, ok)
	assert.Equal(t, StateIdle, state)
	exp, _ := r.Expected("h1")
	assert.Equal(t, V3(1, 1, 1), exp)
}

// Moving an anchor displaces its tangent handles as a visual side effect;
// those tangent moves must not read as separate drags.
func TestRegistryTangentSuppressionAfterAnchorEdit(t *testing.T) {
	r, clock := newTestRegistry()
	r.Register("anchor", false, V3(0, 0, 0), nil)
	r.Register("tangent", true, V3(1, 0, 0), nil)

	r.NoteAnchorEdit()
	assert.Equal(t, ClassSelfSync, r.Classify("tangent", V3(2, 0, 0)))
	// the anchor itself still classifies normally
	assert.Equal(t, ClassEdit, r.Classify("anchor", V3(2, 0, 0)))

	clock.advance(DefaultTunables().TangentSuppressWindow.Std() + time.Millisecond)
	assert.Equal(t, ClassEdit, r.Classify("tangent", V3(2, 0, 0)))
}

func TestRegistryTangentNoiseRadiusLarger(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register("anchor", false, V3(0, 0, 0), nil)
	r.Register("tangent", true, V3(0, 0, 0), nil)

	d := V3(5e-4, 0, 0) // beyond anchor radius, inside tangent radius
	assert.Equal(t, ClassEdit, r.Classify("anchor", d))
	assert.Equal(t, ClassNoise, r.Classify("tangent", d))
}

func TestRegistryGarbageCollection(t *testing.T) {
	r, _ := newTestRegistry()
	unsubscribed := 0
	r.Register("stays", false, V3(0, 0, 0), func() { unsubscribed++ })
	r.Register("goes", false, V3(1, 0, 0), func() { unsubscribed++ })

	r.BeginPass()
	r.Register("stays", false, V3(0, 0, 0), nil)
	gone := r.EndPass()

	require.Equal(t, []HandleKey{"goes"}, gone)
	assert.Equal(t, 1, unsubscribed)
	assert.True(t, r.Registered("stays"))
	assert.False(t, r.Registered("goes"))

	r.Clear()
	assert.Equal(t, 2, unsubscribed)
	assert.False(t, r.Registered("stays"))
}

func TestRegistryUnknownKey(t *testing.T) {
	r, _ := newTestRegistry()
	assert.Equal(t, ClassUnknown, r.Classify("nope", V3(0, 0, 0)))
}
