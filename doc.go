// Package campath keeps a rendered 3D camera motion path, its underlying
// keyframe data and a set of draggable editing handles synchronized in real
// time.
//
// A camera path in the host editor is three scalar tracks, one per spatial
// axis, each independently keyed with cubic-Bézier easing between keyframes.
// This package reconstructs those tracks into a single coherent 3D curve:
// moments where all three axes have a matching keyframe become shared
// anchors, the intervals between anchors become segments bearing tangent
// handles, and the continuous curve is sampled into a polyline for
// rendering.
//
// The hard part is that the relationship is bidirectional. The curve is
// derived from the keyframe store, but dragging an anchor or tangent handle
// must write back into the store, and the store may simultaneously be
// mutated by external actors such as the timeline scrubber. [Engine] models
// this as one-directional data flow with a single guarded feedback edge: a
// [Registry] classifies every observed handle move as either an echo of the
// engine's own writes or a genuine user edit, and only genuine edits enter
// the [Pipeline], which batches them and commits through a single scrub
// transaction so an entire drag becomes one undo step.
//
// # Building blocks
//
// [Easing] solves cubic-Bézier easing curves. [Evaluate] samples one scalar
// track at an arbitrary time. [Reconcile] merges the three tracks into
// anchors, and [Build] derives the full renderable [Curve]. These are pure
// and usable without the engine, for example by the bundled CLI.
//
// The host's animation store, scene graph and undo history are consumed
// through the interfaces in this package ([KeyframeStore], [Scene],
// [Transaction]) and are never reimplemented here.
package campath
