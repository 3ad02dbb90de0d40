package render

import (
	"github.com/halfpel/prism/pkg/math3d"
)

// Wireframe renders 3D wireframe objects.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera: camera,
		fb:     fb,
	}
}

// DrawLine3D draws a line in 3D space.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	// Project both endpoints
	x1, y1, _, vis1 := w.camera.WorldToScreen(p1, w.fb.Width, w.fb.Height)
	x2, y2, _, vis2 := w.camera.WorldToScreen(p2, w.fb.Width, w.fb.Height)

	// Simple clipping: only draw if at least one point is visible
	// (proper line clipping would be more complex)
	if !vis1 && !vis2 {
		return
	}

	// Draw the line
	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// DrawMesh draws every triangle edge of a mesh under the given model
// transform. Shared edges are drawn twice; fine for a debug view.
func (w *Wireframe) DrawMesh(mesh MeshSource, model math3d.Mat4, color Color) {
	for f := 0; f < mesh.TriangleCount(); f++ {
		face := mesh.GetFace(f)
		var p [3]math3d.Vec3
		for i, vi := range face {
			pos, _, _ := mesh.GetVertex(vi)
			p[i] = model.MulVec3(pos)
		}
		w.DrawLine3D(p[0], p[1], color)
		w.DrawLine3D(p[1], p[2], color)
		w.DrawLine3D(p[2], p[0], color)
	}
}

// DrawBounds draws the world-space box of a transformed AABB.
func (w *Wireframe) DrawBounds(box AABB, model math3d.Mat4, color Color) {
	b := box.Transform(model)
	verts := [8]math3d.Vec3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
	}
	edges := [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	for _, e := range edges {
		w.DrawLine3D(verts[e[0]], verts[e[1]], color)
	}
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(length float64) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)   // X axis
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen) // Y axis
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)  // Z axis
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (w *Wireframe) DrawGrid(size, step float64, color Color) {
	half := size / 2
	for x := -half; x <= half; x += step {
		w.DrawLine3D(math3d.V3(x, 0, -half), math3d.V3(x, 0, half), color)
	}
	for z := -half; z <= half; z += step {
		w.DrawLine3D(math3d.V3(-half, 0, z), math3d.V3(half, 0, z), color)
	}
}

// DrawPoint draws a point as a small cross.
func (w *Wireframe) DrawPoint(pos math3d.Vec3, size float64, color Color) {
	halfSize := size / 2
	w.DrawLine3D(
		math3d.V3(pos.X-halfSize, pos.Y, pos.Z),
		math3d.V3(pos.X+halfSize, pos.Y, pos.Z),
		color,
	)
	w.DrawLine3D(
		math3d.V3(pos.X, pos.Y-halfSize, pos.Z),
		math3d.V3(pos.X, pos.Y+halfSize, pos.Z),
		color,
	)
	w.DrawLine3D(
		math3d.V3(pos.X, pos.Y, pos.Z-halfSize),
		math3d.V3(pos.X, pos.Y, pos.Z+halfSize),
		color,
	)
}
