// Package tfmath implements the rigid-transform arithmetic the transform
// buffer composes lookups with: chaining, inversion and interpolation of
// rotation+translation pairs.
//
// Rotations are unit quaternions backed by gonum's num/quat; translations
// use spatial/r3. Inputs with a non-unit rotation are normalized before use.
package tfmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
)

// Identity returns the transform that maps a frame onto itself.
func Identity() msg.Transform {
	return msg.Transform{Rotation: msg.IdentityQuaternion}
}

// Invert returns the transform from child back to parent: the rotation is
// conjugated and the translation is rotated into the child frame and
// negated.
func Invert(t msg.Transform) msg.Transform {
	inv := quat.Conj(rotation(t.Rotation))
	p := r3.Rotation(inv).Rotate(r3.Scale(-1, vec(t.Translation)))
	return msg.Transform{
		Translation: fromVec(p),
		Rotation:    fromQuat(inv),
	}
}

// Chain composes transforms left to right: for a path a->b->c the
// arguments are (a->b, b->c) and the result is a->c. An empty chain is the
// identity.
func Chain(ts ...msg.Transform) msg.Transform {
	rot := quat.Number{Real: 1}
	var pos r3.Vec
	for _, t := range ts {
		pos = r3.Add(pos, r3.Rotation(rot).Rotate(vec(t.Translation)))
		rot = normalize(quat.Mul(rot, rotation(t.Rotation)))
	}
	return msg.Transform{
		Translation: fromVec(pos),
		Rotation:    fromQuat(rot),
	}
}

// Interpolate blends two transforms. weight is the share given to a, so
// weight 1 returns a and weight 0 returns b.
//
// Translation is blended linearly. Rotation follows the shortest great
// arc from a to b (slerp) and is renormalized, so the result is always a
// unit quaternion.
func Interpolate(a, b msg.Transform, weight float64) msg.Transform {
	pos := r3.Add(
		r3.Scale(weight, vec(a.Translation)),
		r3.Scale(1-weight, vec(b.Translation)),
	)
	return msg.Transform{
		Translation: fromVec(pos),
		Rotation:    fromQuat(slerp(rotation(a.Rotation), rotation(b.Rotation), 1-weight)),
	}
}

// slerp moves fraction f of the way from qa to qb.
func slerp(qa, qb quat.Number, f float64) quat.Number {
	if dot(qa, qb) < 0 {
		qb = quat.Scale(-1, qb)
	}
	delta := quat.Mul(quat.Conj(qa), qb)
	return normalize(quat.Mul(qa, quat.PowReal(delta, f)))
}

// Apply maps a point expressed in the child frame into the parent frame.
func Apply(t msg.Transform, p msg.Vector3) msg.Vector3 {
	out := r3.Add(r3.Rotation(rotation(t.Rotation)).Rotate(vec(p)), vec(t.Translation))
	return fromVec(out)
}

// Matrix returns the transform as a 4x4 row-major homogeneous matrix:
// m00,m01,m02,tx, m10,...,0,0,0,1.
func Matrix(t msg.Transform) [16]float64 {
	q := rotation(t.Rotation)
	x, y, z, w := q.Imag, q.Jmag, q.Kmag, q.Real
	return [16]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), t.Translation.X,
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), t.Translation.Y,
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), t.Translation.Z,
		0, 0, 0, 1,
	}
}

// RotationAbout returns the unit quaternion for a right-handed rotation of
// angle radians around axis.
func RotationAbout(angle float64, axis msg.Vector3) msg.Quaternion {
	return fromQuat(quat.Number(r3.NewRotation(angle, vec(axis))))
}

// Near reports whether a and b agree within tol on every translation
// component and on the rotation, treating q and -q as the same rotation.
func Near(a, b msg.Transform, tol float64) bool {
	if math.Abs(a.Translation.X-b.Translation.X) > tol ||
		math.Abs(a.Translation.Y-b.Translation.Y) > tol ||
		math.Abs(a.Translation.Z-b.Translation.Z) > tol {
		return false
	}
	qa, qb := rotation(a.Rotation), rotation(b.Rotation)
	if dot(qa, qb) < 0 {
		qb = quat.Scale(-1, qb)
	}
	return quat.Abs(quat.Sub(qa, qb)) <= tol
}

func rotation(q msg.Quaternion) quat.Number {
	return normalize(quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z})
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	switch {
	case n == 0 || math.IsNaN(n):
		return quat.Number{Real: 1}
	case n == 1:
		return q
	default:
		return quat.Scale(1/n, q)
	}
}

func dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

func vec(v msg.Vector3) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func fromVec(v r3.Vec) msg.Vector3 {
	return msg.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

func fromQuat(q quat.Number) msg.Quaternion {
	return msg.Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}
