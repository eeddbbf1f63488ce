package tfmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
)

const tol = 1e-9

var zAxis = msg.Vector3{Z: 1}

func translation(x, y, z float64) msg.Transform {
	return msg.Transform{
		Translation: msg.Vector3{X: x, Y: y, Z: z},
		Rotation:    msg.IdentityQuaternion,
	}
}

func assertVecNear(t *testing.T, want, got msg.Vector3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestChain_Empty(t *testing.T) {
	assert.True(t, Near(Identity(), Chain(), tol))
}

func TestChain_TranslationsAdd(t *testing.T) {
	got := Chain(translation(-0.5, 0, 0), translation(0, -0.7, 0), translation(1, 0, 0))
	assertVecNear(t, msg.Vector3{X: 0.5, Y: -0.7}, got.Translation)
	assert.True(t, Near(Identity(), msg.Transform{Rotation: got.Rotation}, tol))
}

func TestChain_RotatesChildTranslation(t *testing.T) {
	// a->b is a quarter turn about z; b->c is one meter along b's x axis,
	// which points along a's y axis.
	ab := msg.Transform{Rotation: RotationAbout(math.Pi/2, zAxis)}
	bc := translation(1, 0, 0)

	got := Chain(ab, bc)
	assertVecNear(t, msg.Vector3{Y: 1}, got.Translation)
}

func TestInvert_RoundTrip(t *testing.T) {
	tr := msg.Transform{
		Translation: msg.Vector3{X: 1, Y: -2, Z: 0.5},
		Rotation:    RotationAbout(0.3, msg.Vector3{X: 1, Y: 1, Z: 0}),
	}

	assert.True(t, Near(Identity(), Chain(tr, Invert(tr)), tol))
	assert.True(t, Near(Identity(), Chain(Invert(tr), tr), tol))
	assert.True(t, Near(tr, Invert(Invert(tr)), tol))
}

func TestInvert_PureTranslation(t *testing.T) {
	got := Invert(translation(0.5, 0, 0))
	assertVecNear(t, msg.Vector3{X: -0.5}, got.Translation)
}

func TestInterpolate_Weights(t *testing.T) {
	a := translation(0, 0, 0)
	b := translation(0, -1, 0)

	tests := []struct {
		name   string
		weight float64
		wantY  float64
	}{
		{"all a", 1, 0},
		{"all b", 0, -1},
		{"mostly b", 0.3, -0.7},
		{"halfway", 0.5, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpolate(a, b, tt.weight)
			assert.InDelta(t, tt.wantY, got.Translation.Y, tol)
		})
	}
}

func TestInterpolate_Slerp(t *testing.T) {
	a := msg.Transform{Rotation: msg.IdentityQuaternion}
	b := msg.Transform{Rotation: RotationAbout(math.Pi/2, zAxis)}

	got := Interpolate(a, b, 0.5)
	want := msg.Transform{Rotation: RotationAbout(math.Pi/4, zAxis)}
	assert.True(t, Near(want, got, 1e-9), "got %+v", got.Rotation)

	q := got.Rotation
	assert.InDelta(t, 1, q.X*q.X+q.Y*q.Y+q.Z*q.Z+q.W*q.W, tol)
}

func TestInterpolate_ShortestArc(t *testing.T) {
	a := msg.Transform{Rotation: RotationAbout(0.2, zAxis)}
	b := msg.Transform{Rotation: RotationAbout(0.4, zAxis)}
	neg := b
	neg.Rotation = msg.Quaternion{X: -b.Rotation.X, Y: -b.Rotation.Y, Z: -b.Rotation.Z, W: -b.Rotation.W}

	assert.True(t, Near(Interpolate(a, b, 0.5), Interpolate(a, neg, 0.5), tol))
}

func TestApplyAndMatrixAgree(t *testing.T) {
	tr := msg.Transform{
		Translation: msg.Vector3{X: 2, Y: 0, Z: 1},
		Rotation:    RotationAbout(math.Pi/2, zAxis),
	}
	p := msg.Vector3{X: 1, Y: 0, Z: 0}

	got := Apply(tr, p)
	assertVecNear(t, msg.Vector3{X: 2, Y: 1, Z: 1}, got)

	m := Matrix(tr)
	fromMatrix := msg.Vector3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
	assertVecNear(t, got, fromMatrix)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, [4]float64{m[12], m[13], m[14], m[15]})
}

func TestNear_QuaternionSign(t *testing.T) {
	a := msg.Transform{Rotation: msg.Quaternion{W: 1}}
	b := msg.Transform{Rotation: msg.Quaternion{W: -1}}
	assert.True(t, Near(a, b, tol))
	assert.False(t, Near(a, translation(0, 0, 1e-3), tol))
}

func TestNonUnitRotationIsNormalized(t *testing.T) {
	tr := msg.Transform{Rotation: msg.Quaternion{W: 2}}
	assert.True(t, Near(Identity(), Chain(tr), tol))

	zero := msg.Transform{}
	assert.True(t, Near(Identity(), Chain(zero), tol))
}
