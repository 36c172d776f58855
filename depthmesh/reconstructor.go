// Package depthmesh turns depth frames into renderable triangle meshes and point clouds.
//
// A Reconstructor unprojects every pixel of a depth frame through pinhole intrinsics, places the
// result in world space with the camera pose, and stitches neighboring pixels into triangles
// unless their depths differ by at least a tolerance. Depths are raw sensor units (millimeters);
// positions are meters.
package depthmesh

import (
	"context"

	"github.com/golang/geo/r3"

	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
	"go.viam.com/depthmesh/spatialmath"
	"go.viam.com/depthmesh/utils"
)

const (
	// DefaultDepthDifferenceTolerance is the stitching tolerance, in raw depth units, used when
	// the caller has no preference.
	DefaultDepthDifferenceTolerance = 200

	// DepthScale converts raw depth units (millimeters) to meters.
	DepthScale = 0.001

	// invalidDepth marks a pixel with no return. It is below every real sample, so a triangle
	// touching a hole always has it as its minimum.
	invalidDepth = -1
)

// Reconstructor converts depth frames to meshes. It keeps its scratch buffers between calls, so
// a single Reconstructor must not be used from more than one goroutine at a time.
type Reconstructor struct {
	logger logging.Logger

	rawDepth []int
	points   []r3.Vector
	indices  []int
}

// NewReconstructor returns a Reconstructor that reports degenerate inputs to logger.
func NewReconstructor(logger logging.Logger) *Reconstructor {
	if logger == nil {
		logger = logging.NewBlankLogger("depthmesh")
	}
	return &Reconstructor{logger: logger}
}

// Reconstruct builds the mesh for one depth frame. Missing or unusable inputs produce an empty
// MeshBuffer rather than an error.
//
// The returned buffer shares memory with the Reconstructor and is only valid until the next call
// to Reconstruct; use MeshBuffer.Clone to keep it longer.
func (r *Reconstructor) Reconstruct(
	dm *rimage.DepthMap,
	intrinsics *transform.PinholeCameraIntrinsics,
	pose spatialmath.Pose,
	tolerance int,
) MeshBuffer {
	if !dm.HasData() {
		r.logger.Debug("depth frame has no data, producing empty mesh")
		return MeshBuffer{}
	}
	if !intrinsics.CanUnproject() {
		r.logger.Debugw("cannot unproject depth frame, producing empty mesh", "intrinsics", intrinsics)
		return MeshBuffer{}
	}
	if pose == nil {
		r.logger.Debug("depth frame has no camera pose, producing empty mesh")
		return MeshBuffer{}
	}

	width, height := dm.Width(), dm.Height()
	r.resize(width * height)

	if err := r.unproject(dm, intrinsics, pose); err != nil {
		r.logger.Errorw("failed to unproject depth frame", "error", err)
		return MeshBuffer{}
	}
	if err := r.triangulate(width, height, tolerance); err != nil {
		r.logger.Errorw("failed to triangulate depth frame", "error", err)
		return MeshBuffer{}
	}

	return MeshBuffer{
		Width:     width,
		Height:    height,
		Positions: r.points,
		Indices:   r.indices,
	}
}

// Reconstruct is the allocate-per-call form of Reconstructor.Reconstruct; the result is owned by
// the caller.
func Reconstruct(
	dm *rimage.DepthMap,
	intrinsics *transform.PinholeCameraIntrinsics,
	pose spatialmath.Pose,
	tolerance int,
) MeshBuffer {
	return NewReconstructor(nil).Reconstruct(dm, intrinsics, pose, tolerance)
}

func (r *Reconstructor) resize(n int) {
	if len(r.rawDepth) != n {
		r.rawDepth = make([]int, n)
		r.points = make([]r3.Vector, n)
	}
}

// unproject fills rawDepth and points. Rows are independent and each writes only its own slots.
func (r *Reconstructor) unproject(
	dm *rimage.DepthMap,
	intrinsics *transform.PinholeCameraIntrinsics,
	pose spatialmath.Pose,
) error {
	width := dm.Width()
	data := dm.Data()
	return utils.ParallelForEachRow(dm.Height(), func(iy int) {
		row := iy * width
		for ix := 0; ix < width; ix++ {
			i := row + ix
			d := data[i]
			if d == 0 {
				r.rawDepth[i] = invalidDepth
				r.points[i] = r3.Vector{}
				continue
			}
			r.rawDepth[i] = int(d)
			cam := intrinsics.PixelToVector(float64(ix), float64(iy), float64(d)*DepthScale)
			r.points[i] = pose.Transform(cam)
		}
	})
}

// triangulate splits every 2x2 pixel quad into {i0,i1,i2} and {i0,i2,i3} and keeps a triangle
// only if its corner depths span less than tolerance and none of them is a hole. Bands of quad
// rows are handled in parallel and concatenated in band order, so the output is row-major.
func (r *Reconstructor) triangulate(width, height, tolerance int) error {
	r.indices = r.indices[:0]
	quadRows := height - 1
	if width < 2 || quadRows < 1 {
		return nil
	}

	var bands [][]int
	err := utils.GroupWorkParallel(
		context.Background(),
		quadRows,
		func(numGroups int) {
			bands = make([][]int, numGroups)
		},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			local := make([]int, 0, groupSize*(width-1)*6)
			return func(memberNum, iy int) {
					for ix := 0; ix < width-1; ix++ {
						i0 := iy*width + ix
						i1 := i0 + 1
						i2 := i1 + width
						i3 := i0 + width
						local = r.appendStitchable(local, tolerance, i0, i1, i2)
						local = r.appendStitchable(local, tolerance, i0, i2, i3)
					}
				}, func() {
					bands[groupNum] = local
				}
		},
	)
	if err != nil {
		return err
	}
	for _, band := range bands {
		r.indices = append(r.indices, band...)
	}
	return nil
}

func (r *Reconstructor) appendStitchable(dst []int, tolerance, a, b, c int) []int {
	dmin, dmax := utils.MinMax3Int(r.rawDepth[a], r.rawDepth[b], r.rawDepth[c])
	if dmax-dmin < tolerance && dmin != invalidDepth {
		return append(dst, a, b, c)
	}
	return dst
}
