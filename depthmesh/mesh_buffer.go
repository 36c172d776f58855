package depthmesh

import (
	"github.com/golang/geo/r3"

	"go.viam.com/depthmesh/spatialmath"
)

// MeshBuffer is a triangle-list mesh with one vertex slot per depth pixel.
// Positions[iy*Width+ix] is pixel (ix, iy); pixels without depth hold the zero vector and are
// never referenced. Indices holds three vertex indices per triangle.
type MeshBuffer struct {
	Width     int
	Height    int
	Positions []r3.Vector
	Indices   []int
}

// IsEmpty reports whether the buffer has no vertices.
func (mb MeshBuffer) IsEmpty() bool {
	return len(mb.Positions) == 0
}

// TriangleCount returns the number of triangles.
func (mb MeshBuffer) TriangleCount() int {
	return len(mb.Indices) / 3
}

// Triangle returns the vertex indices of triangle i.
func (mb MeshBuffer) Triangle(i int) [3]int {
	return [3]int{mb.Indices[3*i], mb.Indices[3*i+1], mb.Indices[3*i+2]}
}

// Clone returns a copy that does not share memory with mb.
func (mb MeshBuffer) Clone() MeshBuffer {
	out := MeshBuffer{Width: mb.Width, Height: mb.Height}
	if mb.Positions != nil {
		out.Positions = append(make([]r3.Vector, 0, len(mb.Positions)), mb.Positions...)
	}
	if mb.Indices != nil {
		out.Indices = append(make([]int, 0, len(mb.Indices)), mb.Indices...)
	}
	return out
}

// Referenced returns, for every vertex, whether some triangle uses it.
func (mb MeshBuffer) Referenced() []bool {
	used := make([]bool, len(mb.Positions))
	for _, idx := range mb.Indices {
		used[idx] = true
	}
	return used
}

// ToMesh converts the buffer to world-space triangles.
func (mb MeshBuffer) ToMesh(label string) *spatialmath.Mesh {
	tris := make([]*spatialmath.Triangle, 0, mb.TriangleCount())
	for i := 0; i < mb.TriangleCount(); i++ {
		t := mb.Triangle(i)
		tris = append(tris, spatialmath.NewTriangle(mb.Positions[t[0]], mb.Positions[t[1]], mb.Positions[t[2]]))
	}
	return spatialmath.NewMesh(spatialmath.NewZeroPose(), tris, label)
}
