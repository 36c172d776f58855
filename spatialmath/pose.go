package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
	// Transform maps a point expressed in the pose's local frame into the parent frame.
	Transform(pt r3.Vector) r3.Vector
}

type pose struct {
	point    r3.Vector
	rotation quat.Number
}

// NewZeroPose returns a pose at (0,0,0) with the same orientation as the parent frame.
func NewZeroPose() Pose {
	return &pose{rotation: quat.Number{Real: 1}}
}

// NewPose takes in a position and orientation and returns a Pose. A nil orientation is no rotation.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &pose{point: p, rotation: Normalize(o.Quaternion())}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a pose with no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &pose{point: point, rotation: quat.Number{Real: 1}}
}

// NewPoseFromOrientation takes in an orientation and stores it as a pose at the origin.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() Orientation {
	q := quaternion(p.rotation)
	return &q
}

func (p *pose) Transform(pt r3.Vector) r3.Vector {
	return RotateVector(p.rotation, pt).Add(p.point)
}

func (p *pose) String() string {
	aa := QuatToR4AA(p.rotation)
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f OX:%.4f OY:%.4f OZ:%.4f Theta:%.4f}",
		p.point.X, p.point.Y, p.point.Z, aa.RX, aa.RY, aa.RZ, aa.Theta)
}

// Compose takes two poses, applies b to a, and returns the result. Compose(a, b).Transform(x) is
// a.Transform(b.Transform(x)).
func Compose(a, b Pose) Pose {
	aq := Normalize(a.Orientation().Quaternion())
	bq := Normalize(b.Orientation().Quaternion())
	return &pose{
		point:    RotateVector(aq, b.Point()).Add(a.Point()),
		rotation: Normalize(quat.Mul(aq, bq)),
	}
}

// PoseInverse returns the inverse of a pose.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(Normalize(p.Orientation().Quaternion()))
	return &pose{
		point:    RotateVector(inv, p.Point()).Mul(-1),
		rotation: inv,
	}
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-8) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses approximately occupy the same point
// within the given epsilon.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return a.Sub(b).Norm() < epsilon
}
