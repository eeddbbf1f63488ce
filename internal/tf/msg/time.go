package msg

import (
	"fmt"
	"math"
	"time"
)

const nanosPerSecond = int64(time.Second)

// MaxTime is the latest representable stamp.
var MaxTime = Time{Sec: math.MaxUint32, Nsec: uint32(nanosPerSecond - 1)}

// Time is a wall-clock stamp split into whole seconds and nanoseconds, the
// resolution transforms are stamped with on the wire. Nsec is kept below
// one second by the constructors in this package.
type Time struct {
	Sec  uint32 `json:"secs"`
	Nsec uint32 `json:"nsecs"`
}

// NewTime returns a normalized stamp; nsec values of one second or more are
// carried into sec.
func NewTime(sec, nsec uint32) Time {
	sec += nsec / uint32(nanosPerSecond)
	nsec %= uint32(nanosPerSecond)
	return Time{Sec: sec, Nsec: nsec}
}

// FromNanos converts nanoseconds since the epoch. Values outside the
// representable range clamp to the zero stamp or MaxTime.
func FromNanos(ns int64) Time {
	if ns <= 0 {
		return Time{}
	}
	if ns >= MaxTime.UnixNano() {
		return MaxTime
	}
	return Time{
		Sec:  uint32(ns / nanosPerSecond),
		Nsec: uint32(ns % nanosPerSecond),
	}
}

// FromSeconds converts fractional seconds, rounding to the nearest
// nanosecond so values like 0.7 do not land one tick short. Out of range
// values clamp like FromNanos.
func FromSeconds(s float64) Time {
	ns := math.Round(s * float64(nanosPerSecond))
	switch {
	case ns <= 0 || math.IsNaN(ns):
		return Time{}
	case ns >= float64(MaxTime.UnixNano()):
		return MaxTime
	}
	return FromNanos(int64(ns))
}

// FromStdTime converts a time.Time.
func FromStdTime(t time.Time) Time {
	return FromNanos(t.UnixNano())
}

// UnixNano returns the stamp as nanoseconds since the epoch.
func (t Time) UnixNano() int64 {
	return int64(t.Sec)*nanosPerSecond + int64(t.Nsec)
}

// Seconds returns the stamp as fractional seconds.
func (t Time) Seconds() float64 {
	return float64(t.Sec) + float64(t.Nsec)/float64(nanosPerSecond)
}

// Std returns the stamp as a UTC time.Time.
func (t Time) Std() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nsec)).UTC()
}

// Sub returns the signed duration t-u.
func (t Time) Sub(u Time) time.Duration {
	return time.Duration(t.UnixNano() - u.UnixNano())
}

// Add returns t+d, clamped to [zero, MaxTime].
func (t Time) Add(d time.Duration) Time {
	ns := t.UnixNano()
	if d > 0 && int64(d) > math.MaxInt64-ns {
		return MaxTime
	}
	return FromNanos(ns + int64(d))
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to
// or after u.
func (t Time) Compare(u Time) int {
	switch a, b := t.UnixNano(), u.UnixNano(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool { return t.Compare(u) < 0 }

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool { return t.Compare(u) > 0 }

func (t Time) String() string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.Nsec)
}
