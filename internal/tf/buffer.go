package tf

import (
	"fmt"

	"github.com/banshee-data/tfbuffer/internal/monitoring"
	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/tf/tfmath"
)

var logf = monitoring.Component("tf")

// Transformable is a value stamped in some frame that could be re-expressed
// in another frame.
type Transformable interface {
	FrameID() string
	Stamp() msg.Time
}

// Transformer answers pose queries between two frames at one time.
type Transformer interface {
	Lookup(source, target string, t msg.Time) (msg.TransformStamped, error)
	CanTransform(source, target string, t msg.Time) bool
	TransformTo(v Transformable, target string, t msg.Time) (Transformable, error)
}

// TimeTravelTransformer additionally compares two frames at two different
// times through a fixed frame.
type TimeTravelTransformer interface {
	Transformer
	LookupWithTimeTravel(target string, targetTime msg.Time, source string, sourceTime msg.Time, fixed string) (msg.TransformStamped, error)
	CanTransformWithTimeTravel(target string, targetTime msg.Time, source string, sourceTime msg.Time, fixed string) bool
}

var _ TimeTravelTransformer = (*Buffer)(nil)

// Option configures a Buffer.
type Option func(*Buffer)

// WithCacheCapacity sets the number of samples kept per relationship.
// Values of zero or less keep DefaultCacheCapacity.
func WithCacheCapacity(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// Buffer stores the frame graph and the history of every relationship, and
// answers lookups across them.
//
// Buffer does no locking. Callers sharing one between goroutines must
// serialize access themselves, for example through LockedBuffer.
type Buffer struct {
	graph    *FrameGraph
	series   map[edgeKey]*EdgeTimeSeries
	observed map[edgeKey]struct{}
	capacity int
}

// NewBuffer returns an empty Buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		graph:    NewFrameGraph(),
		series:   make(map[edgeKey]*EdgeTimeSeries),
		observed: make(map[edgeKey]struct{}),
		capacity: DefaultCacheCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ingest records every transform in batch together with its inverse.
// static applies to relationships seen here for the first time; an
// existing relationship keeps the kind it was created with.
func (b *Buffer) Ingest(batch msg.TFMessage, static bool) {
	for _, t := range batch.Transforms {
		b.IngestTransform(t, static)
	}
}

// IngestTransform records one transform and its inverse.
func (b *Buffer) IngestTransform(t msg.TransformStamped, static bool) {
	k, created := b.record(t, static)
	b.observed[k] = struct{}{}
	b.record(inverse(t), static)

	if created {
		kind := "dynamic"
		if b.series[k].Static() {
			kind = "static"
		}
		logf("new %s relationship %s -> %s", kind, t.Header.FrameID, t.ChildFrameID)
	}
}

// record updates the graph and the edge's series together so the two never
// disagree about which edges exist.
func (b *Buffer) record(t msg.TransformStamped, static bool) (edgeKey, bool) {
	k := edgeKey{
		parent: b.graph.intern(t.Header.FrameID),
		child:  b.graph.intern(t.ChildFrameID),
	}
	s, ok := b.series[k]
	if !ok {
		s = NewEdgeTimeSeries(static, b.capacity)
		b.series[k] = s
	}
	b.graph.recordEdge(k)
	s.Insert(t)

	if s.Evicted() == 1 {
		logf("relationship %s -> %s reached %d samples, dropping oldest",
			t.Header.FrameID, t.ChildFrameID, s.Capacity())
	}
	return k, !ok
}

func inverse(t msg.TransformStamped) msg.TransformStamped {
	return msg.TransformStamped{
		Header: msg.Header{
			Seq:     t.Header.Seq,
			Stamp:   t.Header.Stamp,
			FrameID: t.ChildFrameID,
		},
		ChildFrameID: t.Header.FrameID,
		Transform:    tfmath.Invert(t.Transform),
	}
}

// Lookup returns the pose of target expressed in source at time t, composed
// along the shortest chain of relationships between them. Failures are
// returned as *LookupError wrapping one of the package sentinels.
func (b *Buffer) Lookup(source, target string, t msg.Time) (msg.TransformStamped, error) {
	tr, err := b.compose(source, target, t)
	if err != nil {
		return msg.TransformStamped{}, &LookupError{Source: source, Target: target, Time: t, Err: err}
	}
	return msg.NewTransformStamped(source, target, t, tr), nil
}

func (b *Buffer) compose(source, target string, t msg.Time) (msg.Transform, error) {
	if source == target {
		return tfmath.Identity(), nil
	}
	src, ok := b.graph.id(source)
	if !ok {
		return msg.Transform{}, ErrCouldNotFindTransform
	}
	dst, ok := b.graph.id(target)
	if !ok {
		return msg.Transform{}, ErrCouldNotFindTransform
	}
	path, ok := b.graph.findPath(src, dst)
	if !ok {
		return msg.Transform{}, ErrCouldNotFindTransform
	}

	chain := make([]msg.Transform, 0, len(path))
	prev := src
	for _, next := range path {
		s, ok := b.series[edgeKey{parent: prev, child: next}]
		if !ok {
			return msg.Transform{}, fmt.Errorf("no samples for %s -> %s: %w",
				b.graph.names[prev], b.graph.names[next], ErrInternalInconsistency)
		}
		sample, err := s.Closest(t)
		if err != nil {
			return msg.Transform{}, fmt.Errorf("%s -> %s: %w", b.graph.names[prev], b.graph.names[next], err)
		}
		chain = append(chain, sample.Transform)
		prev = next
	}
	return tfmath.Chain(chain...), nil
}

// LookupWithTimeTravel returns where target was at targetTime, expressed in
// the coordinates source occupied at sourceTime. Both poses are taken
// relative to fixed, which is assumed not to move between the two times.
func (b *Buffer) LookupWithTimeTravel(target string, targetTime msg.Time, source string, sourceTime msg.Time, fixed string) (msg.TransformStamped, error) {
	sourceTF, err := b.Lookup(source, fixed, sourceTime)
	if err != nil {
		return msg.TransformStamped{}, err
	}
	targetTF, err := b.Lookup(target, fixed, targetTime)
	if err != nil {
		return msg.TransformStamped{}, err
	}

	result := tfmath.Chain(targetTF.Transform, tfmath.Invert(sourceTF.Transform))
	return msg.NewTransformStamped(source, target, sourceTime, result), nil
}

// CanTransform reports whether Lookup(source, target, t) would succeed.
func (b *Buffer) CanTransform(source, target string, t msg.Time) bool {
	_, err := b.compose(source, target, t)
	return err == nil
}

// CanTransformWithTimeTravel reports whether the matching
// LookupWithTimeTravel would succeed.
func (b *Buffer) CanTransformWithTimeTravel(target string, targetTime msg.Time, source string, sourceTime msg.Time, fixed string) bool {
	return b.CanTransform(source, fixed, sourceTime) && b.CanTransform(target, fixed, targetTime)
}

// TransformTo re-expresses v in the target frame.
//
// TODO: implement once stamped point and pose payload types exist; until
// then it always returns ErrNotImplemented.
func (b *Buffer) TransformTo(v Transformable, target string, t msg.Time) (Transformable, error) {
	return nil, ErrNotImplemented
}

// FindPath returns the chain of frames a lookup from -> to would walk.
func (b *Buffer) FindPath(from, to string) ([]string, error) {
	return b.graph.FindPath(from, to)
}

// Frames returns every known frame in first-seen order.
func (b *Buffer) Frames() []string {
	return b.graph.Frames()
}

// Neighbors returns the frames directly related to frame.
func (b *Buffer) Neighbors(frame string) []string {
	return b.graph.Neighbors(frame)
}

// HasCycle reports whether the ingested relationships form a loop.
func (b *Buffer) HasCycle() bool {
	return b.graph.HasCycle()
}

// Series returns the stored history of parent -> child.
func (b *Buffer) Series(parent, child string) (*EdgeTimeSeries, bool) {
	p, ok := b.graph.id(parent)
	if !ok {
		return nil, false
	}
	c, ok := b.graph.id(child)
	if !ok {
		return nil, false
	}
	s, ok := b.series[edgeKey{parent: p, child: c}]
	return s, ok
}
