package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voxeline/campath"
)

// trackFile is the on-disk YAML form of three axis tracks.
type trackFile struct {
	Length float64         `yaml:"length"`
	Tracks map[string][]kf `yaml:"tracks"`
}

type kf struct {
	ID            string     `yaml:"id"`
	Position      float64    `yaml:"position"`
	Value         float64    `yaml:"value"`
	Interpolation string     `yaml:"interpolation"` // "bezier" (default) or "hold"
	Connected     *bool      `yaml:"connected"`     // default true
	Handles       *[4]float64 `yaml:"handles"`      // default linear-equivalent ratios
}

func loadTracks(path string) (*trackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf trackFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for name := range tf.Tracks {
		switch name {
		case "x", "y", "z":
		default:
			return nil, fmt.Errorf("%s: unknown track %q (want x, y, z)", path, name)
		}
	}
	return &tf, nil
}

func (tf *trackFile) tracks() [3][]campath.Keyframe {
	var out [3][]campath.Keyframe
	for axis, name := range [...]string{"x", "y", "z"} {
		for i, k := range tf.Tracks[name] {
			id := k.ID
			if id == "" {
				id = fmt.Sprintf("%s%d", name, i)
			}
			interp := campath.InterpBezier
			if k.Interpolation == "hold" {
				interp = campath.InterpHold
			}
			connected := true
			if k.Connected != nil {
				connected = *k.Connected
			}
			handles := campath.DefaultHandles
			if k.Handles != nil {
				handles = *k.Handles
			}
			out[axis] = append(out[axis], campath.Keyframe{
				ID:              campath.KeyframeID(id),
				Position:        k.Position,
				Value:           k.Value,
				Interpolation:   interp,
				ConnectedToNext: connected,
				Handles:         handles,
			})
		}
		campath.SortKeyframes(out[axis])
	}
	return out
}
