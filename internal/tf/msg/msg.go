// Package msg holds the transform message shapes exchanged with the
// transport layer: stamped rigid transforms between named frames and the
// batches that carry them.
//
// Field names and JSON tags follow the geometry_msgs/TransformStamped and
// tf2_msgs/TFMessage layouts so recorded streams can be decoded as-is.
package msg

// Vector3 is a translation in meters.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Quaternion is a rotation stored as (x, y, z, w). Rotations handed to the
// buffer are expected to be unit length.
type Quaternion struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// IdentityQuaternion is the zero rotation.
var IdentityQuaternion = Quaternion{W: 1}

// Transform is the pose of a child frame expressed in its parent frame.
type Transform struct {
	Translation Vector3    `json:"translation" yaml:"translation"`
	Rotation    Quaternion `json:"rotation" yaml:"rotation"`
}

// Header carries the parent frame and the acquisition time of a sample.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// TransformStamped is one observation of the relationship
// Header.FrameID -> ChildFrameID at Header.Stamp.
type TransformStamped struct {
	Header       Header    `json:"header"`
	ChildFrameID string    `json:"child_frame_id"`
	Transform    Transform `json:"transform"`
}

// TFMessage is a batch of transforms delivered together.
type TFMessage struct {
	Transforms []TransformStamped `json:"transforms"`
}

// NewTransformStamped builds a stamped transform from parent to child.
func NewTransformStamped(parent, child string, stamp Time, t Transform) TransformStamped {
	return TransformStamped{
		Header: Header{
			Stamp:   stamp,
			FrameID: parent,
		},
		ChildFrameID: child,
		Transform:    t,
	}
}
