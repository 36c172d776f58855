package spatialmath

// Mesh is a set of triangles expressed in the frame of pose.
type Mesh struct {
	pose      Pose
	triangles []*Triangle
	label     string
}

// NewMesh creates a mesh whose triangles are relative to pose.
func NewMesh(pose Pose, triangles []*Triangle, label string) *Mesh {
	if pose == nil {
		pose = NewZeroPose()
	}
	return &Mesh{
		pose:      pose,
		triangles: triangles,
		label:     label,
	}
}

// Pose returns the pose of the mesh.
func (m *Mesh) Pose() Pose {
	return m.pose
}

// Triangles returns the triangles of the mesh in its own frame.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Label returns the label of the mesh.
func (m *Mesh) Label() string {
	return m.label
}

// Transform premultiplies the mesh pose with the given pose.
func (m *Mesh) Transform(pose Pose) *Mesh {
	// Triangle points are in frame of mesh, like the corners of a box, so no need to transform them
	return &Mesh{
		pose:      Compose(pose, m.pose),
		triangles: m.triangles,
		label:     m.label,
	}
}

// WorldTriangles returns the triangles mapped through the mesh pose.
func (m *Mesh) WorldTriangles() []*Triangle {
	out := make([]*Triangle, 0, len(m.triangles))
	for _, t := range m.triangles {
		out = append(out, t.Transform(m.pose))
	}
	return out
}

// Area returns the total surface area of the mesh.
func (m *Mesh) Area() float64 {
	total := 0.
	for _, t := range m.triangles {
		total += t.Area()
	}
	return total
}
