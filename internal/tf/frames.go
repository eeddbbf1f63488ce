package tf

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
)

// Relationship summarizes one observed parent -> child edge. Inverse edges
// recorded alongside it are not listed.
type Relationship struct {
	Parent  string
	Child   string
	Static  bool
	Samples int
	Oldest  msg.Time
	Newest  msg.Time
}

// Relationships returns every observed edge sorted by parent, then child.
func (b *Buffer) Relationships() []Relationship {
	out := make([]Relationship, 0, len(b.observed))
	for k := range b.observed {
		s := b.series[k]
		oldest, _ := s.Oldest()
		newest, _ := s.Newest()
		out = append(out, Relationship{
			Parent:  b.graph.names[k.parent],
			Child:   b.graph.names[k.child],
			Static:  s.Static(),
			Samples: s.Len(),
			Oldest:  oldest,
			Newest:  newest,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Parent != out[j].Parent {
			return out[i].Parent < out[j].Parent
		}
		return out[i].Child < out[j].Child
	})
	return out
}

type frameYAML struct {
	Parent              string  `yaml:"parent"`
	Static              bool    `yaml:"static"`
	BufferLength        float64 `yaml:"buffer_length"`
	Samples             int     `yaml:"samples"`
	OldestTransform     float64 `yaml:"oldest_transform"`
	MostRecentTransform float64 `yaml:"most_recent_transform"`
}

// FramesAsYAML describes the frame tree as a YAML mapping from child frame
// to its parent and sample window. When a frame was observed under more
// than one parent, the parent with the most recent sample is reported.
func (b *Buffer) FramesAsYAML() (string, error) {
	frames := make(map[string]frameYAML)
	for _, r := range b.Relationships() {
		if prev, ok := frames[r.Child]; ok && prev.MostRecentTransform >= r.Newest.Seconds() {
			continue
		}
		frames[r.Child] = frameYAML{
			Parent:              r.Parent,
			Static:              r.Static,
			BufferLength:        r.Newest.Sub(r.Oldest).Seconds(),
			Samples:             r.Samples,
			OldestTransform:     r.Oldest.Seconds(),
			MostRecentTransform: r.Newest.Seconds(),
		}
	}
	if len(frames) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(frames)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frames: %w", err)
	}
	return string(out), nil
}
