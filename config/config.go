// Package config reads the JSON description of a reconstruction job: the camera intrinsics, the
// camera pose, and the tuning values for the mesh and point-cloud views.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/depthmesh/depthmesh"
	"go.viam.com/depthmesh/rimage/transform"
	"go.viam.com/depthmesh/spatialmath"
)

// DefaultPointCloudSparsity keeps every pixel.
const DefaultPointCloudSparsity = 1

// PoseConfig is the JSON form of a camera pose. Translation is in meters.
type PoseConfig struct {
	Translation r3.Vector                      `json:"translation"`
	Orientation *spatialmath.OrientationConfig `json:"orientation,omitempty"`
}

// Config describes a single reconstruction job.
type Config struct {
	Intrinsics               *transform.PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Pose                     *PoseConfig                        `json:"pose,omitempty"`
	DepthDifferenceTolerance *int                               `json:"depth_difference_tolerance,omitempty"`
	PointCloudSparsity       int                                `json:"point_cloud_sparsity,omitempty"`
}

// NewConfigValidationError returns an error specific to a failed validation of a config.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error specific to a missing required field.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}

// Read loads and validates the config at path, filling in defaults for unset values.
// Files ending in .yaml or .yml are read as YAML with the same keys as the JSON form.
func Read(path string) (*Config, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open config")
	}
	var conf *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		conf, err = FromYAMLReader(filepath.Base(path), f)
	default:
		conf, err = FromReader(filepath.Base(path), f)
	}
	return conf, multierr.Combine(err, f.Close())
}

// FromYAMLReader is FromReader for YAML documents.
func FromYAMLReader(originalPath string, r io.Reader) (*Config, error) {
	var doc map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot convert config %q", originalPath)
	}
	return FromReader(originalPath, bytes.NewReader(asJSON))
}

// FromReader decodes, defaults and validates a config. originalPath is used in error messages.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	var conf Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&conf); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	conf.applyDefaults()
	if err := conf.Validate(originalPath); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (conf *Config) applyDefaults() {
	if conf.PointCloudSparsity == 0 {
		conf.PointCloudSparsity = DefaultPointCloudSparsity
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Intrinsics == nil {
		return NewConfigValidationFieldRequiredError(path, "intrinsic_parameters")
	}
	if err := conf.Intrinsics.CheckValid(); err != nil {
		return NewConfigValidationError(fmt.Sprintf("%s.%s", path, "intrinsic_parameters"), err)
	}
	if conf.PointCloudSparsity < 0 {
		return NewConfigValidationError(path,
			errors.Errorf("point_cloud_sparsity must be positive, got %d", conf.PointCloudSparsity))
	}
	if conf.Pose != nil && conf.Pose.Orientation != nil {
		if _, err := conf.Pose.Orientation.ParseConfig(); err != nil {
			return NewConfigValidationError(fmt.Sprintf("%s.%s", path, "pose.orientation"), err)
		}
	}
	return nil
}

// Tolerance returns the configured stitching tolerance, or the default when the config leaves it
// unset. Zero and negative values are kept; they make the mesh empty.
func (conf *Config) Tolerance() int {
	if conf.DepthDifferenceTolerance == nil {
		return depthmesh.DefaultDepthDifferenceTolerance
	}
	return *conf.DepthDifferenceTolerance
}

// CameraPose returns the configured camera pose. A missing pose places the camera at the origin
// looking down +Z.
func (conf *Config) CameraPose() (spatialmath.Pose, error) {
	if conf.Pose == nil {
		return spatialmath.NewZeroPose(), nil
	}
	var o spatialmath.Orientation
	if conf.Pose.Orientation != nil {
		var err error
		o, err = conf.Pose.Orientation.ParseConfig()
		if err != nil {
			return nil, err
		}
	}
	return spatialmath.NewPose(conf.Pose.Translation, o), nil
}
