// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the frame trees and transform assertions used
// across the buffer, recorder and plotting tests.
package testutil

import (
	"testing"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/tf/tfmath"
)

// AssertTransformNear fails the test if got differs from want by more than
// tol in any translation component or in rotation.
func AssertTransformNear(t testing.TB, want, got msg.Transform, tol float64) {
	t.Helper()
	if !tfmath.Near(want, got, tol) {
		t.Errorf("transform mismatch (tol %g)\n want: %+v\n  got: %+v", tol, want, got)
	}
}

// Translation returns an unrotated transform.
func Translation(x, y, z float64) msg.Transform {
	return msg.Transform{
		Translation: msg.Vector3{X: x, Y: y, Z: z},
		Rotation:    msg.IdentityQuaternion,
	}
}

// Stamped returns parent -> child translated by (x, y, z) at sec seconds.
func Stamped(parent, child string, sec, x, y, z float64) msg.TransformStamped {
	return msg.NewTransformStamped(parent, child, msg.FromSeconds(sec), Translation(x, y, z))
}

// Ingester is anything that accepts transform batches.
type Ingester interface {
	Ingest(batch msg.TFMessage, static bool)
}

// BuildRobotTree records, at time sec:
//   - world -> item, static, at (1, 0, 0)
//   - world -> base_link, dynamic, at (0, sec, 0)
//   - base_link -> camera, static, at (0.5, 0, 0)
//
// The robot base drives along y at one meter per second.
func BuildRobotTree(ing Ingester, sec float64) {
	ing.Ingest(msg.TFMessage{Transforms: []msg.TransformStamped{
		Stamped("world", "item", sec, 1, 0, 0),
		Stamped("base_link", "camera", sec, 0.5, 0, 0),
	}}, true)
	ing.Ingest(msg.TFMessage{Transforms: []msg.TransformStamped{
		Stamped("world", "base_link", sec, 0, sec, 0),
	}}, false)
}
