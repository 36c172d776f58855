package depthmesh

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
	"go.viam.com/depthmesh/spatialmath"
)

// ErrNoPose is returned when a world-space conversion is asked for without a camera pose.
var ErrNoPose = errors.New("camera pose is not available")

// PointCloudOptions controls ToPointCloud.
type PointCloudOptions struct {
	// Sparsity keeps every Sparsity-th pixel in each direction. Values below 1 keep every pixel.
	Sparsity int
	// Colorize colors each point by depth with the same palette as DepthMap.ToPrettyPicture.
	Colorize bool
}

// ToPointCloud unprojects the valid pixels of dm into a world-space point cloud in meters.
// A nil or empty map gives an empty cloud.
func ToPointCloud(
	dm *rimage.DepthMap,
	intrinsics *transform.PinholeCameraIntrinsics,
	pose spatialmath.Pose,
	opts PointCloudOptions,
) (pointcloud.PointCloud, error) {
	if !dm.HasData() {
		return pointcloud.New(), nil
	}
	if !intrinsics.CanUnproject() {
		return nil, transform.NewNoIntrinsicsError("cannot build point cloud")
	}
	if pose == nil {
		return nil, ErrNoPose
	}
	step := opts.Sparsity
	if step < 1 {
		step = 1
	}

	cloud := pointcloud.NewWithPrealloc(dm.ValidCount() / (step * step))
	var pretty image.Image
	if opts.Colorize {
		pretty = dm.ToPrettyPicture(0, 0)
	}
	for iy := 0; iy < dm.Height(); iy += step {
		for ix := 0; ix < dm.Width(); ix += step {
			d := dm.GetDepth(ix, iy)
			if d == 0 {
				continue
			}
			cam := intrinsics.PixelToVector(float64(ix), float64(iy), float64(d)*DepthScale)
			var data pointcloud.Data
			if pretty != nil {
				data = pointcloud.NewColoredData(pretty.At(ix, iy))
			}
			if err := cloud.Set(pose.Transform(cam), data); err != nil {
				return nil, err
			}
		}
	}
	return cloud, nil
}
