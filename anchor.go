package campath

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
)

// HandleKey is the stable identity of an interactive handle. It is a pure
// function of the contributing keyframe IDs, never of their numeric values,
// so a handle's interactive object survives value edits.
//
// Keys are a short kind prefix plus a fixed-length truncated hex digest,
// 19 bytes total. The bound matters: host scene graphs may cap identifier
// length. Within realistic handle counts (hundreds, not millions) the
// 64-bit truncation does not collide.
type HandleKey string

const handleDigestLen = 16 // hex characters

func hashKey(prefix string, parts ...string) HandleKey {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return HandleKey(prefix + hex.EncodeToString(h.Sum(nil))[:handleDigestLen])
}

// Anchor is a reconciled point in time where all three axis tracks have a
// matching keyframe. Anchors are rebuilt on every reconciliation pass; only
// Key is stable across rebuilds.
type Anchor struct {
	Key  HandleKey
	Time float64 // mean of the three keyframe positions
	// Position is the 3D point formed by the three keyframe values.
	Position Vec3
	// Keyframes are copies of the contributing keyframes, indexed by Axis.
	// Their IDs carry identity; their values are a snapshot of this pass.
	Keyframes [3]Keyframe
}

func anchorKey(kx, ky, kz KeyframeID) HandleKey {
	return hashKey("pa_", string(kx), string(ky), string(kz))
}

// TangentKind distinguishes the two tangent handles of a segment.
type TangentKind uint8

const (
	// TangentOut is the handle leaving the segment's start anchor.
	TangentOut TangentKind = iota
	// TangentIn is the handle arriving at the segment's end anchor.
	TangentIn
)

func (k TangentKind) String() string {
	if k == TangentOut {
		return "out"
	}
	return "in"
}

// Reconcile merges three independently keyed axis tracks into the shared
// anchor list.
//
// Axis tracks are edited independently in the host, so identical timestamps
// across axes cannot be assumed. Every keyframe time on any axis is a
// candidate moment; a candidate becomes an anchor when each axis has a
// keyframe within MatchEpsilon of it. Candidates that snap to the same
// keyframe triple collapse into one anchor. The result is ordered by mean
// time.
func Reconcile(tracks [3][]Keyframe, tun Tunables) []Anchor {
	var times []float64
	for _, kfs := range tracks {
		for _, k := range kfs {
			times = append(times, k.Position)
		}
	}
	if len(times) == 0 {
		return nil
	}
	sort.Float64s(times)

	var anchors []Anchor
	seen := make(map[HandleKey]struct{})
	prev := 0.0
	for i, t := range times {
		if i > 0 && t == prev {
			continue
		}
		prev = t

		var triple [3]Keyframe
		matched := true
		for axis, kfs := range tracks {
			k, ok := nearestKeyframe(kfs, t, tun.MatchEpsilon)
			if !ok {
				matched = false
				break
			}
			triple[axis] = k
		}
		if !matched {
			continue
		}

		key := anchorKey(triple[0].ID, triple[1].ID, triple[2].ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		anchors = append(anchors, Anchor{
			Key:       key,
			Time:      (triple[0].Position + triple[1].Position + triple[2].Position) / 3.0,
			Position:  V3(triple[0].Value, triple[1].Value, triple[2].Value),
			Keyframes: triple,
		})
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Time < anchors[j].Time
	})
	return anchors
}

// nearestKeyframe finds the keyframe closest to time, if it is within eps.
func nearestKeyframe(kfs []Keyframe, time, eps float64) (Keyframe, bool) {
	if len(kfs) == 0 {
		return Keyframe{}, false
	}
	i := sort.Search(len(kfs), func(i int) bool {
		return kfs[i].Position >= time
	})
	best := -1
	bestDist := 0.0
	for _, j := range [...]int{i - 1, i} {
		if j < 0 || j >= len(kfs) {
			continue
		}
		d := math.Abs(kfs[j].Position - time)
		if best == -1 || d < bestDist {
			best = j
			bestDist = d
		}
	}
	if best == -1 || bestDist > eps {
		return Keyframe{}, false
	}
	return kfs[best], true
}

// nearestKeyframeByID resolves a keyframe first by identity, falling back to
// nearest-in-time within eps. Identity can go stale after host-side
// structural edits; the time fallback keeps an in-flight drag applying.
func nearestKeyframeByID(kfs []Keyframe, id KeyframeID, time, eps float64) (Keyframe, bool) {
	for _, k := range kfs {
		if k.ID == id {
			return k, true
		}
	}
	return nearestKeyframe(kfs, time, eps)
}
