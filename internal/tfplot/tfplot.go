// Package tfplot samples a frame's trajectory out of a transform buffer and
// renders it with gonum/plot.
package tfplot

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tfbuffer/internal/tf"
	"github.com/banshee-data/tfbuffer/internal/tf/msg"
)

// Looker is the lookup half of a transform buffer.
type Looker interface {
	Lookup(source, target string, t msg.Time) (msg.TransformStamped, error)
}

// Point is one sampled pose.
type Point struct {
	Stamp     msg.Time
	Transform msg.Transform
}

// Series is the trajectory of Target expressed in Source.
type Series struct {
	Source  string
	Target  string
	Points  []Point
	Skipped int // samples outside the buffered window
}

// Trajectory looks up target in source every step from from to to
// inclusive. Times the buffer cannot cover yet (or any longer) are counted
// in Skipped; any other lookup failure aborts.
func Trajectory(b Looker, source, target string, from, to msg.Time, step time.Duration) (Series, error) {
	if step <= 0 {
		return Series{}, fmt.Errorf("step must be positive, got %s", step)
	}
	if to.Before(from) {
		return Series{}, fmt.Errorf("empty range %s..%s", from, to)
	}

	s := Series{Source: source, Target: target}
	for t := from; !t.After(to); t = t.Add(step) {
		got, err := b.Lookup(source, target, t)
		switch {
		case err == nil:
			s.Points = append(s.Points, Point{Stamp: t, Transform: got.Transform})
		case errors.Is(err, tf.ErrLookupInPast), errors.Is(err, tf.ErrLookupInFuture):
			s.Skipped++
		default:
			return s, err
		}
		if next := t.Add(step); !next.After(t) {
			break // clamped at the end of representable time
		}
	}
	return s, nil
}

// XYs returns one plotter series per translation axis, x against seconds
// since the first point.
func (s Series) XYs() (x, y, z plotter.XYs) {
	x = make(plotter.XYs, 0, len(s.Points))
	y = make(plotter.XYs, 0, len(s.Points))
	z = make(plotter.XYs, 0, len(s.Points))
	if len(s.Points) == 0 {
		return x, y, z
	}
	start := s.Points[0].Stamp
	for _, p := range s.Points {
		sec := p.Stamp.Sub(start).Seconds()
		tr := p.Transform.Translation
		x = append(x, plotter.XY{X: sec, Y: tr.X})
		y = append(y, plotter.XY{X: sec, Y: tr.Y})
		z = append(z, plotter.XY{X: sec, Y: tr.Z})
	}
	return x, y, z
}

var axisColors = []color.Color{
	color.RGBA{R: 220, G: 50, B: 47, A: 255},
	color.RGBA{R: 133, G: 153, B: 0, A: 255},
	color.RGBA{R: 38, G: 139, B: 210, A: 255},
}

// SavePNG writes the series' translation components to path.
func SavePNG(s Series, path string) error {
	if len(s.Points) == 0 {
		return fmt.Errorf("no samples for %s -> %s", s.Source, s.Target)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s in %s", s.Target, s.Source)
	p.X.Label.Text = fmt.Sprintf("Time since %s (s)", s.Points[0].Stamp)
	p.Y.Label.Text = "Translation (m)"

	x, y, z := s.XYs()
	for i, axis := range []struct {
		label string
		pts   plotter.XYs
	}{{"x", x}, {"y", y}, {"z", z}} {
		line, err := plotter.NewLine(axis.pts)
		if err != nil {
			return err
		}
		line.Color = axisColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(axis.label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
