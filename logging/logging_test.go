package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("skipping frame", "reason", "no intrinsics")
	logger.Infof("frame %d", 3)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entries := logs.All()
	test.That(t, entries[0].Level, test.ShouldEqual, zapcore.DebugLevel)
	test.That(t, entries[0].Message, test.ShouldEqual, "skipping frame")
	test.That(t, entries[0].ContextMap()["reason"], test.ShouldEqual, "no intrinsics")
	test.That(t, entries[1].Message, test.ShouldEqual, "frame 3")
}

func TestCallerIsLogSite(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Info("direct")
	logger.Sublogger("mesh").Warnw("nested", "rows", 2)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	for _, entry := range logs.All() {
		test.That(t, entry.Caller.Defined, test.ShouldBeTrue)
		test.That(t, strings.HasSuffix(entry.Caller.File, "logging_test.go"), test.ShouldBeTrue)
	}
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("mesh").Sublogger("rows")
	sub.Warn("hello")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "mesh.rows")

	named := NewBlankLogger("depth").Sublogger("mesh").(*impl)
	test.That(t, named.name, test.ShouldEqual, "depth.mesh")
}

func TestNewLoggerAtLevel(t *testing.T) {
	logger, err := NewLoggerAtLevel("cli", "warn")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger.Desugar().Core().Enabled(zapcore.InfoLevel), test.ShouldBeFalse)
	test.That(t, logger.Desugar().Core().Enabled(zapcore.WarnLevel), test.ShouldBeTrue)

	_, err = NewLoggerAtLevel("cli", "loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGlobal(t *testing.T) {
	orig := Global()
	defer ReplaceGlobal(orig)

	blank := NewBlankLogger("blank")
	ReplaceGlobal(blank)
	test.That(t, Global(), test.ShouldEqual, blank)
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depthmesh.log")
	logger, closer := NewLoggerWithFile("cli", zapcore.InfoLevel, DefaultFileConfig(path))
	logger.Debug("hidden")
	logger.Infow("wrote mesh", "triangles", 12)
	//nolint:errcheck
	logger.Sync()
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "INFO")
	test.That(t, string(contents), test.ShouldContainSubstring, "cli")
	test.That(t, string(contents), test.ShouldContainSubstring, `"triangles": 12`)
	test.That(t, string(contents), test.ShouldNotContainSubstring, "hidden")
	test.That(t, string(contents), test.ShouldNotContainSubstring, "\x1b[")
	test.That(t, string(contents), test.ShouldContainSubstring, "logging_test.go")
	test.That(t, string(contents), test.ShouldNotContainSubstring, "impl.go")
}
