package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/spatialmath"
)

// FrustumGeometry is the truncated view pyramid of a pinhole camera in world space.
// Corners 0-3 lie on the near plane and 4-7 on the far plane, each in image order
// top-left, top-right, bottom-right, bottom-left.
type FrustumGeometry struct {
	Origin  r3.Vector
	Corners [8]r3.Vector
}

// Segment is a straight line between two points.
type Segment struct {
	Start r3.Vector
	End   r3.Vector
}

// frustumEdges lists corner index pairs: near rectangle, far rectangle, then the four rays.
var frustumEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Frustum unprojects the image corners at the near and far distances (camera-space Z, same unit
// as the pose translation) and places them in world space.
func Frustum(params *PinholeCameraIntrinsics, pose spatialmath.Pose, near, far float64) (*FrustumGeometry, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if pose == nil {
		return nil, errors.New("frustum needs a camera pose")
	}
	if near <= 0 || far <= near {
		return nil, errors.Errorf("frustum needs 0 < near < far, got near=%v far=%v", near, far)
	}

	w, h := float64(params.Width), float64(params.Height)
	imageCorners := [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}

	fg := &FrustumGeometry{Origin: pose.Point()}
	for i, c := range imageCorners {
		fg.Corners[i] = pose.Transform(params.PixelToVector(c[0], c[1], near))
		fg.Corners[i+4] = pose.Transform(params.PixelToVector(c[0], c[1], far))
	}
	return fg, nil
}

// Edges returns the 12 segments outlining the frustum.
func (fg *FrustumGeometry) Edges() []Segment {
	out := make([]Segment, 0, len(frustumEdges))
	for _, e := range frustumEdges {
		out = append(out, Segment{Start: fg.Corners[e[0]], End: fg.Corners[e[1]]})
	}
	return out
}

// Mesh returns the four side faces and the far cap as triangles, suitable for a translucent
// view-volume overlay.
func (fg *FrustumGeometry) Mesh(label string) *spatialmath.Mesh {
	c := fg.Corners
	tris := make([]*spatialmath.Triangle, 0, 10)
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		tris = append(tris,
			spatialmath.NewTriangle(c[i], c[j], c[j+4]),
			spatialmath.NewTriangle(c[i], c[j+4], c[i+4]),
		)
	}
	tris = append(tris,
		spatialmath.NewTriangle(c[4], c[6], c[5]),
		spatialmath.NewTriangle(c[4], c[7], c[6]),
	)
	return spatialmath.NewMesh(spatialmath.NewZeroPose(), tris, label)
}
