package spatialmath

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/depthmesh/utils"
)

// OrientationType defines what orientation representations are known.
type OrientationType string

// The set of allowed representations for orientation.
const (
	NoOrientationType     = OrientationType("")
	AxisAnglesType        = OrientationType("axis_angles")
	EulerAnglesType       = OrientationType("euler_angles")
	QuaternionType        = OrientationType("quaternion")
	AxisAnglesDegreesType = OrientationType("axis_angles_degrees")
)

// OrientationConfig specifies the type of orientation representation that is used and the value.
type OrientationConfig struct {
	Type  OrientationType `json:"type"`
	Value json.RawMessage `json:"value"`
}

type quaternionJSON struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ParseConfig will use the Type in OrientationConfig and convert into the correct struct that implements Orientation.
func (config *OrientationConfig) ParseConfig() (Orientation, error) {
	switch config.Type {
	case NoOrientationType:
		return NewZeroOrientation(), nil
	case AxisAnglesType, AxisAnglesDegreesType:
		var aa R4AA
		if err := json.Unmarshal(config.Value, &aa); err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s orientation", config.Type)
		}
		if aa.RX == 0 && aa.RY == 0 && aa.RZ == 0 {
			return nil, errors.New("axis angle orientation needs a non-zero axis")
		}
		if config.Type == AxisAnglesDegreesType {
			aa.Theta = utils.DegToRad(aa.Theta)
		}
		return &aa, nil
	case EulerAnglesType:
		var ea EulerAngles
		if err := json.Unmarshal(config.Value, &ea); err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s orientation", config.Type)
		}
		return &ea, nil
	case QuaternionType:
		var q quaternionJSON
		if err := json.Unmarshal(config.Value, &q); err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s orientation", config.Type)
		}
		if q.W == 0 && q.X == 0 && q.Y == 0 && q.Z == 0 {
			return nil, errors.New("quaternion orientation cannot be all zeros")
		}
		return NewQuaternion(quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}), nil
	default:
		return nil, errors.Errorf("orientation type %q not recognized", config.Type)
	}
}
