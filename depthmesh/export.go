package depthmesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/spatialmath"
)

// compact returns the positions used by some triangle and the triangle indices remapped onto them.
func (mb MeshBuffer) compact() ([]r3.Vector, []int) {
	remap := make([]int, len(mb.Positions))
	for i := range remap {
		remap[i] = -1
	}
	var verts []r3.Vector
	indices := make([]int, len(mb.Indices))
	for i, idx := range mb.Indices {
		if remap[idx] < 0 {
			remap[idx] = len(verts)
			verts = append(verts, mb.Positions[idx])
		}
		indices[i] = remap[idx]
	}
	return verts, indices
}

// WritePLY writes the referenced vertices and all triangles of mb as an ASCII PLY file.
func WritePLY(w io.Writer, mb MeshBuffer) error {
	verts, indices := mb.compact()
	bw := bufio.NewWriter(w)

	_, err := fmt.Fprintf(bw, "ply\n"+
		"format ascii 1.0\n"+
		"comment depthmesh reconstruction %dx%d\n"+
		"element vertex %d\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"element face %d\n"+
		"property list uchar int vertex_indices\n"+
		"end_header\n",
		mb.Width, mb.Height, len(verts), len(indices)/3)
	if err != nil {
		return err
	}
	for _, v := range verts {
		if _, err := fmt.Fprintf(bw, "%g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		if _, err := fmt.Fprintf(bw, "3 %d %d %d\n", indices[i], indices[i+1], indices[i+2]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// stlHeaderSize is the size of the free-form header at the start of a binary STL file.
const stlHeaderSize = 80

// WriteSTL writes the triangles of mb as a binary STL file with per-facet normals.
func WriteSTL(w io.Writer, mb MeshBuffer) error {
	header := fmt.Sprintf("depthmesh reconstruction %dx%d", mb.Width, mb.Height)
	return writeSTL(w, header, mb.TriangleCount(), func(i int) (r3.Vector, r3.Vector, r3.Vector) {
		t := mb.Triangle(i)
		return mb.Positions[t[0]], mb.Positions[t[1]], mb.Positions[t[2]]
	})
}

// WriteMeshSTL writes the world-space triangles of m as a binary STL file.
func WriteMeshSTL(w io.Writer, m *spatialmath.Mesh) error {
	tris := m.WorldTriangles()
	return writeSTL(w, m.Label(), len(tris), func(i int) (r3.Vector, r3.Vector, r3.Vector) {
		pts := tris[i].Points()
		return pts[0], pts[1], pts[2]
	})
}

func writeSTL(w io.Writer, header string, count int, facet func(i int) (r3.Vector, r3.Vector, r3.Vector)) error {
	if uint64(count) > math.MaxUint32 {
		return errors.Errorf("too many triangles for STL: %d", count)
	}
	bw := bufio.NewWriter(w)

	var head [stlHeaderSize]byte
	copy(head[:], header)
	if _, err := bw.Write(head[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(count)); err != nil {
		return err
	}

	// normal, three vertices, attribute byte count
	var buf [4*3*4 + 2]byte
	putVec := func(off int, v r3.Vector) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	}
	for i := 0; i < count; i++ {
		p0, p1, p2 := facet(i)
		putVec(0, spatialmath.PlaneNormal(p0, p1, p2))
		putVec(12, p0)
		putVec(24, p1)
		putVec(36, p2)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
