package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NewMeshFromPLYFile reads a triangle mesh from a PLY file.
func NewMeshFromPLYFile(path string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return NewMeshFromPLY(f, path)
}

// NewMeshFromPLY reads the vertex and face elements of a PLY stream. Faces must be triangles.
func NewMeshFromPLY(r io.Reader, label string) (mesh *Mesh, err error) {
	// goply panics on malformed input
	defer func() {
		if thePanic := recover(); thePanic != nil {
			err = errors.Errorf("cannot parse PLY: %v", thePanic)
		}
	}()
	ply := goply.New(bufio.NewReader(r))
	vertices := ply.Elements("vertex")
	faces := ply.Elements("face")

	points := make([]r3.Vector, 0, len(vertices))
	for i, vertex := range vertices {
		var pt [3]float64
		for j, key := range []string{"x", "y", "z"} {
			v, err := plyFloat(vertex[key])
			if err != nil {
				return nil, errors.Wrapf(err, "vertex %d %s", i, key)
			}
			pt[j] = v
		}
		points = append(points, r3.Vector{X: pt[0], Y: pt[1], Z: pt[2]})
	}

	triangles := make([]*Triangle, 0, len(faces))
	for i, face := range faces {
		idxs, ok := face["vertex_indices"].([]interface{})
		if !ok || len(idxs) != 3 {
			return nil, errors.Errorf("face %d is not a triangle", i)
		}
		var pts [3]r3.Vector
		for j, raw := range idxs {
			idx, err := plyIndex(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "face %d", i)
			}
			if idx < 0 || idx >= len(points) {
				return nil, errors.Errorf("face %d references missing vertex %d", i, idx)
			}
			pts[j] = points[idx]
		}
		triangles = append(triangles, NewTriangle(pts[0], pts[1], pts[2]))
	}
	return NewMesh(NewZeroPose(), triangles, label), nil
}

func plyFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		i, err := plyIndex(v)
		return float64(i), err
	}
}

func plyIndex(v interface{}) (int, error) {
	switch n := v.(type) {
	case int8:
		return int(n), nil
	case uint8:
		return int(n), nil
	case int16:
		return int(n), nil
	case uint16:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint32:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected PLY value %v (%T)", v, v)
	}
}
