package scene

import "github.com/halfpel/prism/pkg/math3d"

// NewQuad creates a unit quad in the XY plane facing +Z, split into
// two triangles sharing a diagonal edge. UVs span [0,1] across the
// quad.
func NewQuad(size float64) *Mesh {
	h := size / 2
	m := NewMesh("quad")
	m.Vertices = []Vertex{
		{Position: math3d.V3(-h, -h, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(0, 0)},
		{Position: math3d.V3(h, -h, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(1, 0)},
		{Position: math3d.V3(h, h, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(1, 1)},
		{Position: math3d.V3(-h, h, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(0, 1)},
	}
	m.Faces = []Face{
		{V: [3]int{0, 2, 1}, Material: 0},
		{V: [3]int{0, 3, 2}, Material: 0},
	}
	m.Materials = []Material{{Name: "default", BaseColor: [4]float64{1, 1, 1, 1}}}
	m.CalculateBounds()
	return m
}

// NewCube creates an axis-aligned cube with per-face normals and UVs.
// Each face owns its four vertices so the hard edges shade correctly.
func NewCube(size float64) *Mesh {
	h := size / 2
	m := NewMesh("cube")

	// normal, then the four corners wound so the face reads clockwise
	// from outside after the screen-space Y flip.
	faces := []struct {
		n       math3d.Vec3
		corners [4]math3d.Vec3
	}{
		{math3d.V3(0, 0, 1), [4]math3d.Vec3{{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h}}},
		{math3d.V3(0, 0, -1), [4]math3d.Vec3{{X: h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: -h}, {X: -h, Y: h, Z: -h}, {X: h, Y: h, Z: -h}}},
		{math3d.V3(1, 0, 0), [4]math3d.Vec3{{X: h, Y: -h, Z: h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: h, Y: h, Z: h}}},
		{math3d.V3(-1, 0, 0), [4]math3d.Vec3{{X: -h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: h}, {X: -h, Y: h, Z: h}, {X: -h, Y: h, Z: -h}}},
		{math3d.V3(0, 1, 0), [4]math3d.Vec3{{X: -h, Y: h, Z: h}, {X: h, Y: h, Z: h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h}}},
		{math3d.V3(0, -1, 0), [4]math3d.Vec3{{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: -h, Z: h}, {X: -h, Y: -h, Z: h}}},
	}
	uvs := [4]math3d.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	for _, f := range faces {
		base := len(m.Vertices)
		for i, c := range f.corners {
			m.Vertices = append(m.Vertices, Vertex{Position: c, Normal: f.n, UV: uvs[i]})
		}
		m.Faces = append(m.Faces,
			Face{V: [3]int{base, base + 2, base + 1}, Material: 0},
			Face{V: [3]int{base, base + 3, base + 2}, Material: 0},
		)
	}
	m.Materials = []Material{{Name: "default", BaseColor: [4]float64{1, 1, 1, 1}}}
	m.CalculateBounds()
	return m
}
