package tf

import (
	"slices"
	"sort"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/tf/tfmath"
)

// DefaultCacheCapacity is the number of samples kept per relationship.
const DefaultCacheCapacity = 100

// EdgeTimeSeries is the bounded history of one directed relationship,
// sorted by stamp.
//
// When full, Insert drops the sample in slot 0. Samples arriving in stamp
// order make that the oldest one; an out-of-order arrival that lands in
// slot 0 of a full series is therefore dropped straight away. Eviction is
// by slot, not by age.
type EdgeTimeSeries struct {
	static   bool
	capacity int
	samples  []msg.TransformStamped
	evicted  uint64
}

// NewEdgeTimeSeries returns an empty series. A capacity of zero or less
// selects DefaultCacheCapacity.
func NewEdgeTimeSeries(static bool, capacity int) *EdgeTimeSeries {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &EdgeTimeSeries{
		static:   static,
		capacity: capacity,
		samples:  make([]msg.TransformStamped, 0, capacity+1),
	}
}

// Static reports whether the newest sample answers every query.
func (s *EdgeTimeSeries) Static() bool { return s.static }

// Len returns the number of stored samples.
func (s *EdgeTimeSeries) Len() int { return len(s.samples) }

// Capacity returns the maximum number of stored samples.
func (s *EdgeTimeSeries) Capacity() int { return s.capacity }

// Evicted returns how many samples have been dropped for capacity.
func (s *EdgeTimeSeries) Evicted() uint64 { return s.evicted }

// Oldest returns the earliest stored stamp.
func (s *EdgeTimeSeries) Oldest() (msg.Time, bool) {
	if len(s.samples) == 0 {
		return msg.Time{}, false
	}
	return s.samples[0].Header.Stamp, true
}

// Newest returns the latest stored stamp.
func (s *EdgeTimeSeries) Newest() (msg.Time, bool) {
	if len(s.samples) == 0 {
		return msg.Time{}, false
	}
	return s.samples[len(s.samples)-1].Header.Stamp, true
}

// Samples returns a copy of the stored samples in stamp order.
func (s *EdgeTimeSeries) Samples() []msg.TransformStamped {
	return slices.Clone(s.samples)
}

// Insert adds t after any samples with an earlier or equal stamp, then
// drops slot 0 if the series is over capacity.
func (s *EdgeTimeSeries) Insert(t msg.TransformStamped) {
	stamp := t.Header.Stamp
	i := sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].Header.Stamp.After(stamp)
	})
	s.samples = slices.Insert(s.samples, i, t)

	if len(s.samples) > s.capacity {
		s.samples = append(s.samples[:0], s.samples[1:]...)
		s.evicted++
	}
}

// Closest returns the transform at time t.
//
// A static series returns its newest sample, the one with the highest
// stamp rather than the one inserted last, whatever t is. A dynamic series
// returns the sample stamped exactly t, or blends the two samples either
// side of t by elapsed time. Queries outside the stored range fail with
// ErrLookupInPast or ErrLookupInFuture.
func (s *EdgeTimeSeries) Closest(t msg.Time) (msg.TransformStamped, error) {
	n := len(s.samples)
	if n == 0 {
		return msg.TransformStamped{}, ErrInternalInconsistency
	}
	if s.static {
		return s.samples[n-1], nil
	}

	i := sort.Search(n, func(i int) bool {
		return !s.samples[i].Header.Stamp.Before(t)
	})
	switch {
	case i < n && s.samples[i].Header.Stamp.Compare(t) == 0:
		return s.samples[i], nil
	case i == 0:
		return msg.TransformStamped{}, ErrLookupInPast
	case i >= n:
		return msg.TransformStamped{}, ErrLookupInFuture
	}

	tf1, tf2 := s.samples[i-1], s.samples[i]
	alpha := float64(t.Sub(tf1.Header.Stamp)) / float64(tf2.Header.Stamp.Sub(tf1.Header.Stamp))

	out := msg.TransformStamped{
		Header:       tf2.Header,
		ChildFrameID: tf2.ChildFrameID,
		Transform:    tfmath.Interpolate(tf1.Transform, tf2.Transform, 1-alpha),
	}
	out.Header.Stamp = t
	return out, nil
}
