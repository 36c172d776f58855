package cli

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
)

const testIntrinsics = `{"width_px": 4, "height_px": 3, "fx": 1, "fy": 1, "ppx": 0, "ppy": 0}`

type fixture struct {
	dir        string
	depth      string
	intrinsics string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	dm := rimage.NewEmptyDepthMap(4, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			dm.Set(x, y, 1000)
		}
	}
	f := fixture{
		dir:        dir,
		depth:      filepath.Join(dir, "depth.png"),
		intrinsics: filepath.Join(dir, "intrinsics.json"),
	}
	test.That(t, rimage.WriteDepthMap(f.depth, dm), test.ShouldBeNil)
	test.That(t, os.WriteFile(f.intrinsics, []byte(testIntrinsics), 0o600), test.ShouldBeNil)
	return f
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"depthmesh"}, args...))
	return out.String(), err
}

func TestMeshAction(t *testing.T) {
	f := newFixture(t)

	out, err := run("--intrinsics", f.intrinsics, "mesh",
		"--depth", f.depth, "-o", f.path("mesh.ply"), "-o", f.path("mesh.stl"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 12 triangles")

	ply, err := os.ReadFile(f.path("mesh.ply"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(ply), test.ShouldContainSubstring, "element face 12\n")

	stl, err := os.ReadFile(f.path("mesh.stl"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(stl), test.ShouldEqual, 80+4+12*50)

	t.Run("tolerance flag", func(t *testing.T) {
		out, err := run("--intrinsics", f.intrinsics, "mesh",
			"--depth", f.depth, "--output", f.path("none.ply"), "--tolerance", "0")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "wrote 0 triangles")
	})

	t.Run("repeated long output flag", func(t *testing.T) {
		_, err := run("--intrinsics", f.intrinsics, "mesh", "--depth", f.depth,
			"--output", f.path("long.ply"), "--output", f.path("long.stl"))
		test.That(t, err, test.ShouldBeNil)
		for _, name := range []string{"long.ply", "long.stl"} {
			info, err := os.Stat(f.path(name))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
		}
	})

	t.Run("config", func(t *testing.T) {
		conf := `{"intrinsic_parameters": ` + testIntrinsics + `,
			"pose": {"translation": {"x": 0, "y": 0, "z": 1}},
			"depth_difference_tolerance": 10}`
		confPath := f.path("job.json")
		test.That(t, os.WriteFile(confPath, []byte(conf), 0o600), test.ShouldBeNil)

		out, err := run("--config", confPath, "mesh", "--depth", f.depth, "--output", f.path("conf.ply"))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "wrote 12 triangles")

		ply, err := os.ReadFile(f.path("conf.ply"))
		test.That(t, err, test.ShouldBeNil)
		// first vertex is pixel (0, 0) at 1m, moved 1m along z
		test.That(t, string(ply), test.ShouldContainSubstring, "end_header\n0 0 2\n")
	})

	t.Run("config zero tolerance", func(t *testing.T) {
		conf := `{"intrinsic_parameters": ` + testIntrinsics + `, "depth_difference_tolerance": 0}`
		confPath := f.path("zero.json")
		test.That(t, os.WriteFile(confPath, []byte(conf), 0o600), test.ShouldBeNil)

		out, err := run("--config", confPath, "mesh", "--depth", f.depth, "--output", f.path("zero.ply"))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "wrote 0 triangles")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := run("mesh", "--depth", f.depth, "--output", f.path("x.ply"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "camera intrinsics are required")

		_, err = run("--intrinsics", f.intrinsics, "mesh", "--depth", f.depth, "--output", f.path("x.obj"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "supported extensions")

		_, err = run("--intrinsics", f.intrinsics, "mesh", "--depth", f.path("missing.png"), "--output", f.path("x.ply"))
		test.That(t, err, test.ShouldNotBeNil)

		_, err = run("--intrinsics", f.intrinsics, "mesh", "--output", f.path("x.ply"))
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestPointCloudAction(t *testing.T) {
	f := newFixture(t)

	out, err := run("--intrinsics", f.intrinsics, "pointcloud",
		"--depth", f.depth, "--output", f.path("all.pcd"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 12 points")

	_, err = run("--intrinsics", f.intrinsics, "pointcloud",
		"--depth", f.depth, "--output", f.path("sparse.pcd"), "--sparsity", "2", "--binary", "--color")
	test.That(t, err, test.ShouldBeNil)

	file, err := os.Open(f.path("sparse.pcd"))
	test.That(t, err, test.ShouldBeNil)
	defer file.Close()
	pc, err := pointcloud.ReadPCD(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 4)
	test.That(t, pc.MetaData().HasColor, test.ShouldBeTrue)
}

func TestPreviewAction(t *testing.T) {
	f := newFixture(t)

	out, err := run("preview", "--depth", f.depth, "-o", f.path("p.png"), "-o", f.path("p.qoi"), "-o", f.path("p.ppm"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote preview")

	file, err := os.Open(f.path("p.png"))
	test.That(t, err, test.ShouldBeNil)
	defer file.Close()
	img, err := png.Decode(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 3)

	for _, name := range []string{"p.qoi", "p.ppm"} {
		info, err := os.Stat(f.path(name))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
	}

	_, err = run("preview", "--depth", f.depth, "-o", f.path("r.png"), "-o", f.path("r.webp"),
		"--rotate", "90", "--scale", "2")
	test.That(t, err, test.ShouldBeNil)
	rfile, err := os.Open(f.path("r.png"))
	test.That(t, err, test.ShouldBeNil)
	defer rfile.Close()
	rimg, err := png.Decode(rfile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rimg.Bounds().Dx(), test.ShouldEqual, 6)
	test.That(t, rimg.Bounds().Dy(), test.ShouldEqual, 8)

	_, err = run("preview", "--depth", f.depth, "--output", f.path("p.png"), "--max-depth", "70000")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run("preview", "--depth", f.depth, "--output", f.path("p.png"), "--rotate", "45")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLogFile(t *testing.T) {
	f := newFixture(t)
	logPath := f.path("depthmesh.log")

	_, err := run("--log-file", logPath, "--intrinsics", f.intrinsics, "mesh",
		"--depth", f.depth, "--output", f.path("mesh.ply"))
	test.That(t, err, test.ShouldBeNil)

	contents, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "reconstructed mesh")
}

func TestFrustumAction(t *testing.T) {
	f := newFixture(t)

	out, err := run("--intrinsics", f.intrinsics, "frustum", "--output", f.path("frustum.stl"), "--far", "2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote frustum")

	stl, err := os.ReadFile(f.path("frustum.stl"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(stl), test.ShouldEqual, 80+4+10*50)

	_, err = run("--intrinsics", f.intrinsics, "frustum", "--output", f.path("bad.stl"), "--near", "3", "--far", "2")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInfoAction(t *testing.T) {
	f := newFixture(t)

	out, err := run("info", "--depth", f.depth, "--histogram", f.path("hist.png"), "--bins", "5")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "4x3")
	test.That(t, out, test.ShouldContainSubstring, "12 (100.0%)")
	test.That(t, out, test.ShouldContainSubstring, "1000 mm")

	info, err := os.Stat(f.path("hist.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}
