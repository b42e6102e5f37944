package campath

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for strings like "150ms".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("campath: invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Tunables collects every tuned constant of the engine. The thresholds are
// empirically chosen, not derived; hosts with unusual scene scales or input
// devices may need to adjust them, which is why they are configuration
// rather than invariants.
type Tunables struct {
	// MatchEpsilon is the maximum time distance between keyframes on
	// different axes that still counts as the same moment.
	MatchEpsilon float64 `yaml:"match_epsilon"`
	// TimeQuantum is the minimum time span of a usable segment. Anchor
	// pairs closer than this produce no tangent handles.
	TimeQuantum float64 `yaml:"time_quantum"`
	// WriteEpsilon is the minimum value change worth writing back.
	WriteEpsilon float64 `yaml:"write_epsilon"`
	// RatioEpsilon is the minimum tangent-ratio change worth writing back.
	RatioEpsilon float64 `yaml:"ratio_epsilon"`
	// PositionEpsilon is the distance below which two handle positions are
	// considered identical when classifying observed moves.
	PositionEpsilon float64 `yaml:"position_epsilon"`

	// AnchorNoiseRadius and TangentNoiseRadius absorb sub-threshold drag
	// jitter without writing back. Tangents get a larger radius because an
	// anchor edit visually displaces them as a side effect.
	AnchorNoiseRadius  float64 `yaml:"anchor_noise_radius"`
	TangentNoiseRadius float64 `yaml:"tangent_noise_radius"`

	// MinTangentFrac repositions a tangent handle back onto its
	// default-ratio point when it resolves within this fraction of the
	// segment's length from its anchor.
	MinTangentFrac float64 `yaml:"min_tangent_frac"`

	// SampleCount is the number of polyline samples across the path.
	SampleCount int `yaml:"sample_count"`

	// SelfSyncWindow is the interval after a reconciliation pass during
	// which observed handle moves are applied without being treated as
	// user edits.
	SelfSyncWindow Duration `yaml:"self_sync_window"`
	// TangentSuppressWindow ignores tangent-handle echoes for this long
	// after any anchor-handle edit.
	TangentSuppressWindow Duration `yaml:"tangent_suppress_window"`
	// FlushInterval coalesces drag notifications before flushing queued
	// edits, roughly one animation frame.
	FlushInterval Duration `yaml:"flush_interval"`
	// CommitDebounce is the trailing quiet period after the last edit
	// before the open scrub transaction commits.
	CommitDebounce Duration `yaml:"commit_debounce"`
	// OverrideClearDelay is how long after a genuine edit the ephemeral
	// local overrides on the axis tracks are unset.
	OverrideClearDelay Duration `yaml:"override_clear_delay"`
	// PollInterval is the period of the full reconciliation poll.
	PollInterval Duration `yaml:"poll_interval"`
}

// DefaultTunables returns the engine defaults.
func DefaultTunables() Tunables {
	return Tunables{
		MatchEpsilon:          1e-3,
		TimeQuantum:           1e-3,
		WriteEpsilon:          1e-5,
		RatioEpsilon:          1e-4,
		PositionEpsilon:       1e-6,
		AnchorNoiseRadius:     1e-4,
		TangentNoiseRadius:    1e-3,
		MinTangentFrac:        0.05,
		SampleCount:           128,
		SelfSyncWindow:        Duration(120 * time.Millisecond),
		TangentSuppressWindow: Duration(250 * time.Millisecond),
		FlushInterval:         Duration(16 * time.Millisecond),
		CommitDebounce:        Duration(400 * time.Millisecond),
		OverrideClearDelay:    Duration(300 * time.Millisecond),
		PollInterval:          Duration(500 * time.Millisecond),
	}
}

// LoadTunables reads a YAML tunables file, overlaying it onto the defaults.
// Fields absent from the file retain their default values.
func LoadTunables(path string) (Tunables, error) {
	tun := DefaultTunables()
	data, err := os.ReadFile(path)
	if err != nil {
		return tun, err
	}
	if err := yaml.Unmarshal(data, &tun); err != nil {
		return DefaultTunables(), fmt.Errorf("campath: parse %s: %w", path, err)
	}
	return tun, nil
}

// WatchTunables watches a tunables file and invokes fn with the freshly
// loaded values whenever it changes. Events are debounced so editor
// write-then-rename saves trigger a single reload. Parse failures keep the
// previous values and are not reported; the file may be mid-save.
//
// The returned stop function releases the watcher. It is safe to call more
// than once.
func WatchTunables(path string, fn func(Tunables)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		const debounce = 100 * time.Millisecond
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
					fire = timer.C
				} else {
					timer.Reset(debounce)
				}
			case <-fire:
				timer = nil
				fire = nil
				if tun, err := LoadTunables(path); err == nil {
					fn(tun)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-stopCh:
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			watcher.Close()
			<-doneCh
		})
	}, nil
}
