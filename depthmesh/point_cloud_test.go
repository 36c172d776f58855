package depthmesh

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
	"go.viam.com/depthmesh/spatialmath"
)

func TestToPointCloud(t *testing.T) {
	dm := constantDepthMap(4, 4, 1000)
	dm.Set(2, 2, 0)
	intrinsics := unitIntrinsics(4, 4)
	pose := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})

	t.Run("every pixel", func(t *testing.T) {
		cloud, err := ToPointCloud(dm, intrinsics, pose, PointCloudOptions{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cloud.Size(), test.ShouldEqual, 15)
		_, ok := cloud.At(3, 3, 2)
		test.That(t, ok, test.ShouldBeTrue)
		_, ok = cloud.At(2, 2, 2)
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, cloud.MetaData().HasColor, test.ShouldBeFalse)
		test.That(t, cloud.MetaData().MinZ, test.ShouldAlmostEqual, 2.)
	})

	t.Run("sparse", func(t *testing.T) {
		cloud, err := ToPointCloud(dm, intrinsics, pose, PointCloudOptions{Sparsity: 2})
		test.That(t, err, test.ShouldBeNil)
		// (0,0) (2,0) (0,2) and the hole at (2,2) skipped
		test.That(t, cloud.Size(), test.ShouldEqual, 3)
	})

	t.Run("colorized", func(t *testing.T) {
		cloud, err := ToPointCloud(dm, intrinsics, pose, PointCloudOptions{Colorize: true})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cloud.MetaData().HasColor, test.ShouldBeTrue)
		d, ok := cloud.At(0, 0, 2)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, d.HasColor(), test.ShouldBeTrue)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		cloud, err := ToPointCloud(nil, intrinsics, pose, PointCloudOptions{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cloud.Size(), test.ShouldEqual, 0)

		_, err = ToPointCloud(dm, nil, pose, PointCloudOptions{})
		test.That(t, errors.Is(err, transform.ErrNoIntrinsics), test.ShouldBeTrue)

		_, err = ToPointCloud(dm, intrinsics, nil, PointCloudOptions{})
		test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)

		cloud, err = ToPointCloud(rimage.NewEmptyDepthMap(3, 3), intrinsics, pose, PointCloudOptions{Sparsity: -4})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cloud.Size(), test.ShouldEqual, 0)
	})
}
