package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"

	"go.viam.com/depthmesh/config"
	"go.viam.com/depthmesh/depthmesh"
	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
	"go.viam.com/depthmesh/spatialmath"
	"go.viam.com/depthmesh/utils"
)

// job is everything an action needs besides the depth frame itself.
type job struct {
	logger     logging.Logger
	closeLog   func()
	intrinsics *transform.PinholeCameraIntrinsics
	pose       spatialmath.Pose
	tolerance  int
	sparsity   int
}

// newLogger builds the command logger. The returned func flushes it and closes any log file.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	level := zapcore.InfoLevel
	if c.Bool(flagDebug) {
		level = zapcore.DebugLevel
	}
	var logger logging.Logger
	var file io.Closer
	if path := c.Path(flagLogFile); path != "" {
		logger, file = logging.NewLoggerWithFile("depthmesh", level, logging.DefaultFileConfig(path))
	} else {
		logger, _ = logging.NewLoggerAtLevel("depthmesh", level.String())
	}
	return logger, func() {
		goutils.UncheckedError(ignoreConsoleSyncError(logger.Sync()))
		if file != nil {
			goutils.UncheckedError(file.Close())
		}
	}
}

// ignoreConsoleSyncError drops the error fsync reports for terminals and pipes, which stdout
// usually is.
func ignoreConsoleSyncError(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// loadJob merges the config file, the intrinsics file and the command flags, in that order.
// Callers must close the returned job.
func loadJob(c *cli.Context) (*job, error) {
	j, err := mergeJob(c)
	if err != nil {
		if j != nil {
			j.close()
		}
		return nil, err
	}
	return j, nil
}

func (j *job) close() {
	j.closeLog()
}

func mergeJob(c *cli.Context) (*job, error) {
	logger, closeLog := newLogger(c)
	j := &job{
		logger:    logger,
		closeLog:  closeLog,
		pose:      spatialmath.NewZeroPose(),
		tolerance: depthmesh.DefaultDepthDifferenceTolerance,
		sparsity:  config.DefaultPointCloudSparsity,
	}

	if path := c.Path(flagConfig); path != "" {
		conf, err := config.Read(path)
		if err != nil {
			return j, err
		}
		pose, err := conf.CameraPose()
		if err != nil {
			return j, err
		}
		j.intrinsics = conf.Intrinsics
		j.pose = pose
		j.tolerance = conf.Tolerance()
		j.sparsity = conf.PointCloudSparsity
		j.logger.Debugw("loaded config", "path", path)
	}

	if path := c.Path(flagIntrinsics); path != "" {
		intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(path)
		if err != nil {
			return j, err
		}
		j.intrinsics = intrinsics
	}
	if j.intrinsics == nil {
		return j, errors.Errorf("camera intrinsics are required, pass --%s or --%s", flagConfig, flagIntrinsics)
	}
	if err := j.intrinsics.CheckValid(); err != nil {
		return j, err
	}

	if c.IsSet(flagTolerance) {
		j.tolerance = c.Int(flagTolerance)
	}
	if c.IsSet(flagSparsity) {
		j.sparsity = c.Int(flagSparsity)
	}
	return j, nil
}

// readDepth loads the depth frame and warns when it does not match the intrinsics it will be
// unprojected with.
func (j *job) readDepth(path string) (*rimage.DepthMap, error) {
	dm, err := rimage.ReadDepthMap(path)
	if err != nil {
		return nil, err
	}
	if j.intrinsics != nil && (dm.Width() != j.intrinsics.Width || dm.Height() != j.intrinsics.Height) {
		j.logger.Warnw("depth frame size does not match intrinsics",
			"frame", fmt.Sprintf("%dx%d", dm.Width(), dm.Height()),
			"intrinsics", fmt.Sprintf("%dx%d", j.intrinsics.Width, j.intrinsics.Height))
	}
	return dm, nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// checkExtensions fails unless every output has one of the allowed extensions.
func checkExtensions(outputs []string, allowed ...string) error {
	for _, out := range outputs {
		if !lo.Contains(allowed, extension(out)) {
			return errors.Errorf("cannot write %q, supported extensions are %s", out, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// describeOutputs lists each output with its size on disk.
func describeOutputs(outputs []string) string {
	return strings.Join(lo.Map(outputs, func(out string, _ int) string {
		info, err := os.Stat(out)
		if err != nil {
			return out
		}
		return fmt.Sprintf("%s (%s)", out, units.HumanSize(float64(info.Size())))
	}), ", ")
}

// writeFile creates path and hands a writer for it to write.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return errors.Wrapf(write(f), "writing %q", path)
}

// writeOutputs writes every output concurrently.
func writeOutputs(ctx context.Context, outputs []string, write func(path string) error) error {
	fs := make([]utils.SimpleFunc, 0, len(outputs))
	for _, out := range outputs {
		out := out
		fs = append(fs, func(ctx context.Context) error {
			return write(out)
		})
	}
	_, err := utils.RunInParallel(ctx, fs)
	return err
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// MeshAction reconstructs a triangle mesh from a depth frame.
func MeshAction(c *cli.Context) error {
	outputs := c.StringSlice(flagOutput)
	if err := checkExtensions(outputs, ".ply", ".stl"); err != nil {
		return err
	}
	j, err := loadJob(c)
	if err != nil {
		return err
	}
	defer j.close()
	dm, err := j.readDepth(c.Path(flagDepth))
	if err != nil {
		return err
	}

	start := time.Now()
	mb := depthmesh.NewReconstructor(j.logger.Sublogger("reconstructor")).Reconstruct(dm, j.intrinsics, j.pose, j.tolerance)
	j.logger.Infow("reconstructed mesh",
		"width", mb.Width,
		"height", mb.Height,
		"triangles", mb.TriangleCount(),
		"tolerance", j.tolerance,
		"elapsed", time.Since(start))
	if mb.TriangleCount() == 0 {
		j.logger.Warn("mesh has no triangles")
	}

	err = writeOutputs(c.Context, outputs, func(path string) error {
		return writeFile(path, func(w io.Writer) error {
			if extension(path) == ".stl" {
				return depthmesh.WriteSTL(w, mb)
			}
			return depthmesh.WritePLY(w, mb)
		})
	})
	if err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d triangles to %s", mb.TriangleCount(), describeOutputs(outputs))
	return nil
}

// PointCloudAction writes the valid pixels of a depth frame as a point cloud.
func PointCloudAction(c *cli.Context) error {
	outputs := c.StringSlice(flagOutput)
	if err := checkExtensions(outputs, ".pcd"); err != nil {
		return err
	}
	j, err := loadJob(c)
	if err != nil {
		return err
	}
	defer j.close()
	dm, err := j.readDepth(c.Path(flagDepth))
	if err != nil {
		return err
	}

	pc, err := depthmesh.ToPointCloud(dm, j.intrinsics, j.pose, depthmesh.PointCloudOptions{
		Sparsity: j.sparsity,
		Colorize: c.Bool(flagColor),
	})
	if err != nil {
		return err
	}
	j.logger.Infow("built point cloud", "points", pc.Size(), "sparsity", j.sparsity)

	pcdType := pointcloud.PCDAscii
	if c.Bool(flagBinary) {
		pcdType = pointcloud.PCDBinary
	}
	err = writeOutputs(c.Context, outputs, func(path string) error {
		return writeFile(path, func(w io.Writer) error {
			return pointcloud.ToPCD(pc, w, pcdType)
		})
	})
	if err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d points to %s", pc.Size(), describeOutputs(outputs))
	return nil
}

// PreviewAction renders a colorized picture of a depth frame.
func PreviewAction(c *cli.Context) error {
	outputs := c.StringSlice(flagOutput)
	if err := checkExtensions(outputs, ".png", ".ppm", ".qoi", ".webp"); err != nil {
		return err
	}
	logger, closeLog := newLogger(c)
	defer closeLog()
	dm, err := rimage.ReadDepthMap(c.Path(flagDepth))
	if err != nil {
		return err
	}
	if !dm.HasData() {
		return errors.New("depth frame is empty")
	}

	minDepth, maxDepth := c.Uint(flagMinDepth), c.Uint(flagMaxDepth)
	if minDepth > uint(rimage.MaxDepth) || maxDepth > uint(rimage.MaxDepth) {
		return errors.Errorf("depth clamps must be at most %d", rimage.MaxDepth)
	}
	img, err := rimage.RotateImage(dm.ToPrettyPicture(rimage.Depth(minDepth), rimage.Depth(maxDepth)), c.Int(flagRotate))
	if err != nil {
		return err
	}
	if img, err = rimage.ScaleImage(img, c.Float64(flagScale)); err != nil {
		return err
	}
	lo, hi := dm.MinMax()
	logger.Infow("rendered preview", "valid", dm.ValidCount(), "min", lo, "max", hi)

	err = writeOutputs(c.Context, outputs, func(path string) error {
		return rimage.WriteImageToFile(path, img)
	})
	if err != nil {
		return err
	}
	printf(c.App.Writer, "wrote preview to %s", describeOutputs(outputs))
	return nil
}

// FrustumAction writes the camera view volume between the near and far planes.
func FrustumAction(c *cli.Context) error {
	outputs := c.StringSlice(flagOutput)
	if err := checkExtensions(outputs, ".stl"); err != nil {
		return err
	}
	j, err := loadJob(c)
	if err != nil {
		return err
	}
	defer j.close()
	fg, err := transform.Frustum(j.intrinsics, j.pose, c.Float64(flagNear), c.Float64(flagFar))
	if err != nil {
		return err
	}
	mesh := fg.Mesh("depthmesh frustum")
	j.logger.Debugw("frustum", "origin", fg.Origin, "edges", len(fg.Edges()))

	err = writeOutputs(c.Context, outputs, func(path string) error {
		return writeFile(path, func(w io.Writer) error {
			return depthmesh.WriteMeshSTL(w, mesh)
		})
	})
	if err != nil {
		return err
	}
	printf(c.App.Writer, "wrote frustum to %s", describeOutputs(outputs))
	return nil
}

// InfoAction prints a summary table of a depth frame.
func InfoAction(c *cli.Context) error {
	logger, closeLog := newLogger(c)
	defer closeLog()
	path := c.Path(flagDepth)
	dm, err := rimage.ReadDepthMap(path)
	if err != nil {
		return err
	}
	s, err := dm.Stats()
	if err != nil {
		return err
	}

	mm := func(v float64) string {
		return fmt.Sprintf("%.0f mm", v)
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRows([]table.Row{
		{"File", filepath.Base(path)},
		{"Size", fmt.Sprintf("%dx%d", dm.Width(), dm.Height())},
		{"Valid", fmt.Sprintf("%d (%.1f%%)", s.Valid, 100*s.ValidFraction())},
	})
	if s.Valid > 0 {
		t.AppendRows([]table.Row{
			{"Min", mm(float64(s.Min))},
			{"Max", mm(float64(s.Max))},
			{"Mean", mm(s.Mean)},
			{"Std dev", mm(s.StdDev)},
			{"Median", mm(s.Median)},
			{"5th percentile", mm(s.P5)},
			{"95th percentile", mm(s.P95)},
		})
	}
	printf(c.App.Writer, "%s", t.Render())

	if hist := c.String(flagHistogram); hist != "" {
		if err := rimage.SaveDepthHistogram(hist, dm, c.Int(flagBins), depthmesh.DepthScale); err != nil {
			return err
		}
		logger.Infow("saved depth histogram", "path", hist)
	}
	return nil
}
