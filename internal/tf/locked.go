package tf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/timeutil"
)

// DefaultPollInterval is how often WaitForTransform retries a lookup.
const DefaultPollInterval = 10 * time.Millisecond

// LockedBuffer guards a Buffer with a read/write lock so ingestion and
// lookups may run from different goroutines. Lookups share the read lock.
type LockedBuffer struct {
	mu    sync.RWMutex
	buf   *Buffer
	clock timeutil.Clock
	poll  time.Duration
}

var _ TimeTravelTransformer = (*LockedBuffer)(nil)

// NewLockedBuffer wraps buf. A nil clock uses the real clock; a
// non-positive poll uses DefaultPollInterval.
func NewLockedBuffer(buf *Buffer, clock timeutil.Clock, poll time.Duration) *LockedBuffer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &LockedBuffer{buf: buf, clock: clock, poll: poll}
}

// Ingest records batch under the write lock.
func (l *LockedBuffer) Ingest(batch msg.TFMessage, static bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Ingest(batch, static)
}

// Lookup is Buffer.Lookup under the read lock.
func (l *LockedBuffer) Lookup(source, target string, t msg.Time) (msg.TransformStamped, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.Lookup(source, target, t)
}

// LookupWithTimeTravel is Buffer.LookupWithTimeTravel under the read lock.
func (l *LockedBuffer) LookupWithTimeTravel(target string, targetTime msg.Time, source string, sourceTime msg.Time, fixed string) (msg.TransformStamped, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.LookupWithTimeTravel(target, targetTime, source, sourceTime, fixed)
}

// CanTransform is Buffer.CanTransform under the read lock.
func (l *LockedBuffer) CanTransform(source, target string, t msg.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.CanTransform(source, target, t)
}

// CanTransformWithTimeTravel is Buffer.CanTransformWithTimeTravel under the
// read lock.
func (l *LockedBuffer) CanTransformWithTimeTravel(target string, targetTime msg.Time, source string, sourceTime msg.Time, fixed string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.CanTransformWithTimeTravel(target, targetTime, source, sourceTime, fixed)
}

// TransformTo is Buffer.TransformTo under the read lock.
func (l *LockedBuffer) TransformTo(v Transformable, target string, t msg.Time) (Transformable, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.TransformTo(v, target, t)
}

// View runs fn with shared access to the underlying Buffer. fn must not
// mutate it or retain it after returning.
func (l *LockedBuffer) View(fn func(b *Buffer)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(l.buf)
}

// WaitForTransform retries Lookup every poll interval until it succeeds,
// fails with an error more data cannot fix, or ctx is done.
func (l *LockedBuffer) WaitForTransform(ctx context.Context, source, target string, t msg.Time) (msg.TransformStamped, error) {
	tr, err := l.Lookup(source, target, t)
	if err == nil || !IsRetryable(err) {
		return tr, err
	}

	ticker := l.clock.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return msg.TransformStamped{}, fmt.Errorf("waiting for transform: %w (last: %w)", ctx.Err(), err)
		case <-ticker.C():
			tr, err = l.Lookup(source, target, t)
			if err == nil || !IsRetryable(err) {
				return tr, err
			}
		}
	}
}
