package render

import (
	"math"
	"testing"

	"github.com/halfpel/prism/pkg/math3d"
)

// simpleMesh is a test implementation of BoundedMeshSource.
type simpleMesh struct {
	vertices []meshVertex
	faces    [][3]int
	mats     []int // per-face material index; empty means all -1
	bounds   AABB
}

type meshVertex struct {
	pos    math3d.Vec3
	normal math3d.Vec3
	uv     math3d.Vec2
}

func (m *simpleMesh) VertexCount() int   { return len(m.vertices) }
func (m *simpleMesh) TriangleCount() int { return len(m.faces) }

func (m *simpleMesh) GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	v := m.vertices[i]
	return v.pos, v.normal, v.uv
}

func (m *simpleMesh) GetFace(i int) [3]int { return m.faces[i] }

func (m *simpleMesh) GetFaceMaterial(i int) int {
	if len(m.mats) == 0 {
		return -1
	}
	return m.mats[i]
}

func (m *simpleMesh) GetBounds() (min, max math3d.Vec3) {
	return m.bounds.Min, m.bounds.Max
}

// testQuad builds a quad in the XY plane facing +Z, from two triangles
// sharing the diagonal. Faces are wound so they read clockwise from +Z
// after the screen-space Y flip, the engine's front-facing convention.
func testQuad(size float64) *simpleMesh {
	h := size / 2
	n := math3d.V3(0, 0, 1)
	return &simpleMesh{
		vertices: []meshVertex{
			{pos: math3d.V3(-h, -h, 0), normal: n, uv: math3d.V2(0, 0)},
			{pos: math3d.V3(h, -h, 0), normal: n, uv: math3d.V2(1, 0)},
			{pos: math3d.V3(h, h, 0), normal: n, uv: math3d.V2(1, 1)},
			{pos: math3d.V3(-h, h, 0), normal: n, uv: math3d.V2(0, 1)},
		},
		faces:  [][3]int{{0, 2, 1}, {0, 3, 2}},
		bounds: AABB{Min: math3d.V3(-h, -h, 0), Max: math3d.V3(h, h, 0)},
	}
}

// testCube builds a unit-radius cube with per-face normals. Corners
// are listed counterclockwise from outside and the face indices
// reverse them, matching the front-facing convention.
func testCube() *simpleMesh {
	type faceDef struct {
		corners [4]math3d.Vec3
		normal  math3d.Vec3
	}
	defs := []faceDef{
		{[4]math3d.Vec3{{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1}}, math3d.V3(0, 0, 1)},
		{[4]math3d.Vec3{{X: 1, Y: -1, Z: -1}, {X: -1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: -1}}, math3d.V3(0, 0, -1)},
		{[4]math3d.Vec3{{X: -1, Y: -1, Z: -1}, {X: -1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: -1}}, math3d.V3(-1, 0, 0)},
		{[4]math3d.Vec3{{X: 1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: 1}}, math3d.V3(1, 0, 0)},
		{[4]math3d.Vec3{{X: -1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1}}, math3d.V3(0, 1, 0)},
		{[4]math3d.Vec3{{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: 1}, {X: -1, Y: -1, Z: 1}}, math3d.V3(0, -1, 0)},
	}

	m := &simpleMesh{
		bounds: AABB{Min: math3d.V3(-1, -1, -1), Max: math3d.V3(1, 1, 1)},
	}
	uvs := [4]math3d.Vec2{math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 1), math3d.V2(0, 1)}
	for _, d := range defs {
		base := len(m.vertices)
		for i, c := range d.corners {
			m.vertices = append(m.vertices, meshVertex{pos: c, normal: d.normal, uv: uvs[i]})
		}
		m.faces = append(m.faces, [3]int{base, base + 2, base + 1}, [3]int{base, base + 3, base + 2})
	}
	return m
}

// frontQuadPipeline positions the camera on +Z looking at a quad so
// the quad fills a predictable screen region.
func frontQuadPipeline(t testing.TB, workers int, mats []Material) (*Pipeline, *Framebuffer) {
	t.Helper()
	fb := NewFramebuffer(200, 200)
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.SetRotation(0, 0, 0)

	p := NewPipeline(cam, fb, workers)
	if mats == nil {
		mats = []Material{NewMaterial(nil, nil, ColorWhite)}
	}
	if err := p.Bind(testQuad(2), mats); err != nil {
		t.Fatalf("bind: %v", err)
	}
	fb.Clear(ColorBlack)
	return p, fb
}

func coveredPixels(fb *Framebuffer) int {
	n := 0
	for _, d := range fb.Depth {
		if !math.IsInf(d, 1) {
			n++
		}
	}
	return n
}

func TestBindValidation(t *testing.T) {
	fb := NewFramebuffer(64, 64)
	cam := NewCamera()
	p := NewPipeline(cam, fb, 1)
	okMat := []Material{NewMaterial(nil, nil, ColorWhite)}

	tests := []struct {
		name string
		mesh MeshSource
		mats []Material
	}{
		{"nil mesh", nil, okMat},
		{"no materials", testQuad(1), nil},
		{"nil base texture", testQuad(1), []Material{{Normal: NewFlatNormalTexture()}}},
		{"nil normal map", testQuad(1), []Material{{Base: NewCheckerTexture(8, 8, 4, ColorWhite, ColorBlack)}}},
		{
			"vertex index out of range",
			&simpleMesh{
				vertices: []meshVertex{{}, {}, {}},
				faces:    [][3]int{{0, 1, 5}},
			},
			okMat,
		},
		{
			"material index out of range",
			&simpleMesh{
				vertices: []meshVertex{{}, {}, {}},
				faces:    [][3]int{{0, 1, 2}},
				mats:     []int{3},
			},
			okMat,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := p.Bind(tc.mesh, tc.mats); err == nil {
				t.Error("expected bind error, got nil")
			}
		})
	}

	if err := p.Bind(testQuad(1), okMat); err != nil {
		t.Errorf("valid bind failed: %v", err)
	}
}

func TestRenderFrameRequiresBind(t *testing.T) {
	p := NewPipeline(NewCamera(), NewFramebuffer(32, 32), 1)
	if err := p.RenderFrame(math3d.Identity()); err == nil {
		t.Error("expected error rendering without a bound mesh")
	}
}

func TestRenderFrameQuadCoverage(t *testing.T) {
	p, fb := frontQuadPipeline(t, 1, nil)
	if err := p.RenderFrame(math3d.Identity()); err != nil {
		t.Fatal(err)
	}

	if p.Stats.Rasterized != 2 {
		t.Errorf("rasterized = %d, want 2", p.Stats.Rasterized)
	}
	if covered := coveredPixels(fb); covered == 0 {
		t.Fatal("no pixels covered")
	}

	// The quad center must be covered and lit.
	center := fb.GetPixel(fb.Width/2, fb.Height/2)
	if center == ColorBlack {
		t.Error("center pixel not shaded")
	}
}

func TestBackfaceCulling(t *testing.T) {
	p, fb := frontQuadPipeline(t, 1, nil)

	// Flip the quad away from the camera: every face culls, nothing
	// is drawn.
	if err := p.RenderFrame(math3d.RotateY(math.Pi)); err != nil {
		t.Fatal(err)
	}

	if p.Stats.CulledBackface != 2 {
		t.Errorf("backface culled = %d, want 2", p.Stats.CulledBackface)
	}
	if covered := coveredPixels(fb); covered != 0 {
		t.Errorf("covered pixels = %d, want 0", covered)
	}
}

func TestCubeBackfaceStats(t *testing.T) {
	fb := NewFramebuffer(160, 120)
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 0, 6))
	cam.SetRotation(0, 0, 0)

	p := NewPipeline(cam, fb, 1)
	if err := p.Bind(testCube(), []Material{NewMaterial(nil, nil, ColorGray)}); err != nil {
		t.Fatal(err)
	}
	fb.Clear(ColorBlack)
	if err := p.RenderFrame(math3d.Identity()); err != nil {
		t.Fatal(err)
	}

	// Axis-aligned cube seen head on: front face visible, back, left,
	// right, top and bottom reject by winding or degenerate area.
	if p.Stats.Rasterized != 2 {
		t.Errorf("rasterized = %d, want 2", p.Stats.Rasterized)
	}
	if p.Stats.Rasterized+p.Stats.CulledBackface != p.Stats.Triangles {
		t.Errorf("stats do not partition: %+v", p.Stats)
	}
}

func TestMeshLevelFrustumCull(t *testing.T) {
	p, fb := frontQuadPipeline(t, 1, nil)

	// Move the quad far behind the camera.
	if err := p.RenderFrame(math3d.Translate(math3d.V3(0, 0, 100))); err != nil {
		t.Fatal(err)
	}

	if !p.Stats.MeshCulled {
		t.Error("expected mesh-level cull")
	}
	if covered := coveredPixels(fb); covered != 0 {
		t.Errorf("covered pixels = %d, want 0", covered)
	}
}

// TestSharedEdgeExactCoverage renders the two quad triangles separately
// and together: their pixel sets must tile the quad with no gap and no
// overlap along the shared diagonal.
func TestSharedEdgeExactCoverage(t *testing.T) {
	render := func(faces [][3]int) (*Framebuffer, int) {
		fb := NewFramebuffer(200, 200)
		cam := NewCamera()
		cam.SetPosition(math3d.V3(0, 0, 5))
		cam.SetRotation(0, 0, 0)

		mesh := testQuad(2)
		mesh.faces = faces
		p := NewPipeline(cam, fb, 1)
		if err := p.Bind(mesh, []Material{NewMaterial(nil, nil, ColorWhite)}); err != nil {
			t.Fatal(err)
		}
		fb.Clear(ColorBlack)
		if err := p.RenderFrame(math3d.Identity()); err != nil {
			t.Fatal(err)
		}
		return fb, coveredPixels(fb)
	}

	_, countA := render([][3]int{{0, 2, 1}})
	_, countB := render([][3]int{{0, 3, 2}})
	both, countBoth := render([][3]int{{0, 2, 1}, {0, 3, 2}})

	if countA == 0 || countB == 0 {
		t.Fatalf("triangles did not rasterize: a=%d b=%d", countA, countB)
	}
	if countA+countB != countBoth {
		t.Errorf("shared edge coverage overlaps or gaps: %d + %d != %d", countA, countB, countBoth)
	}

	// No interior holes: the four pixels around the center sit on or
	// next to the diagonal and must all be covered.
	cx, cy := both.Width/2, both.Height/2
	for _, d := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if math.IsInf(both.DepthAt(cx+d[0], cy+d[1]), 1) {
			t.Errorf("gap at pixel (%d, %d)", cx+d[0], cy+d[1])
		}
	}
}

// TestDepthTieSubmissionOrder draws two coplanar quads at the same
// depth. The strict less-than depth test with in-order traversal means
// the first submitted wins every pixel, for any worker count.
func TestDepthTieSubmissionOrder(t *testing.T) {
	build := func() *simpleMesh {
		first := testQuad(2)
		second := testQuad(2)
		mesh := &simpleMesh{bounds: first.bounds}
		for _, v := range first.vertices {
			mesh.vertices = append(mesh.vertices, v)
		}
		for _, v := range second.vertices {
			mesh.vertices = append(mesh.vertices, v)
		}
		for _, f := range first.faces {
			mesh.faces = append(mesh.faces, f)
			mesh.mats = append(mesh.mats, 0)
		}
		for _, f := range second.faces {
			mesh.faces = append(mesh.faces, [3]int{f[0] + 4, f[1] + 4, f[2] + 4})
			mesh.mats = append(mesh.mats, 1)
		}
		return mesh
	}

	mats := []Material{
		NewMaterial(nil, nil, ColorRed),
		NewMaterial(nil, nil, ColorGreen),
	}

	var reference []Color
	for _, workers := range []int{1, 2, 4, 8} {
		fb := NewFramebuffer(200, 200)
		cam := NewCamera()
		cam.SetPosition(math3d.V3(0, 0, 5))
		cam.SetRotation(0, 0, 0)

		p := NewPipeline(cam, fb, workers)
		if err := p.Bind(build(), mats); err != nil {
			t.Fatal(err)
		}
		fb.Clear(ColorBlack)
		if err := p.RenderFrame(math3d.Identity()); err != nil {
			t.Fatal(err)
		}

		// Every covered pixel keeps the first quad's red tint.
		for i, d := range fb.Depth {
			if math.IsInf(d, 1) {
				continue
			}
			if c := fb.Pixels[i]; c.G > 0 && c.R == 0 {
				t.Fatalf("workers=%d: pixel %d lost the depth tie to the later quad", workers, i)
			}
		}

		if reference == nil {
			reference = append(reference, fb.Pixels...)
			continue
		}
		for i := range fb.Pixels {
			if fb.Pixels[i] != reference[i] {
				t.Fatalf("workers=%d: pixel %d differs from single-worker render", workers, i)
			}
		}
	}
}

// TestNearPlaneClipping puts one quad vertex behind the camera; the
// crossing triangles must be clipped, not dropped, and still produce
// pixels.
func TestNearPlaneClipping(t *testing.T) {
	fb := NewFramebuffer(200, 200)
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 0, 1))
	cam.SetRotation(0, 0, 0)

	// Quad spanning z=-4 (visible) to z=+4 (behind the camera).
	n := math3d.V3(0, 1, 0)
	mesh := &simpleMesh{
		vertices: []meshVertex{
			{pos: math3d.V3(-2, -1, -4), normal: n, uv: math3d.V2(0, 0)},
			{pos: math3d.V3(2, -1, -4), normal: n, uv: math3d.V2(1, 0)},
			{pos: math3d.V3(2, -1, 4), normal: n, uv: math3d.V2(1, 1)},
			{pos: math3d.V3(-2, -1, 4), normal: n, uv: math3d.V2(0, 1)},
		},
		faces:  [][3]int{{0, 1, 2}, {0, 2, 3}},
		bounds: AABB{Min: math3d.V3(-2, -1, -4), Max: math3d.V3(2, -1, 4)},
	}

	p := NewPipeline(cam, fb, 1)
	if err := p.Bind(mesh, []Material{NewMaterial(nil, nil, ColorWhite)}); err != nil {
		t.Fatal(err)
	}
	fb.Clear(ColorBlack)
	if err := p.RenderFrame(math3d.Identity()); err != nil {
		t.Fatal(err)
	}

	if p.Stats.Clipped == 0 {
		t.Error("expected near-plane clipping")
	}
	if covered := coveredPixels(fb); covered == 0 {
		t.Error("clipped geometry produced no pixels")
	}

	// All written depths are finite and in front of the camera.
	for _, d := range fb.Depth {
		if math.IsInf(d, 1) {
			continue
		}
		if d <= 0 || math.IsNaN(d) {
			t.Fatalf("invalid depth %v after clipping", d)
		}
	}
}

// TestUniformQuadShading renders a head-on quad lit straight along its
// normal with a flat normal map: every covered pixel has the same
// full-intensity color.
func TestUniformQuadShading(t *testing.T) {
	p, fb := frontQuadPipeline(t, 2, nil)
	p.Shader.SetLightDir(math3d.V3(0, 0, 1))

	if err := p.RenderFrame(math3d.Identity()); err != nil {
		t.Fatal(err)
	}

	want := MultiplyColor(ColorWhite, p.Shader.Ambient+p.Shader.Diffuse)
	seen := 0
	for i, d := range fb.Depth {
		if math.IsInf(d, 1) {
			continue
		}
		seen++
		if fb.Pixels[i] != want {
			t.Fatalf("pixel %d = %v, want %v", i, fb.Pixels[i], want)
		}
	}
	if seen == 0 {
		t.Fatal("no pixels covered")
	}
}

// TestDepthOrdering renders a near quad after a far quad; the near one
// must win everywhere they overlap.
func TestDepthOrdering(t *testing.T) {
	far := testQuad(2)
	near := testQuad(1)
	mesh := &simpleMesh{bounds: AABB{Min: math3d.V3(-1, -1, -1), Max: math3d.V3(1, 1, 1)}}
	for _, v := range far.vertices {
		v.pos.Z = -1 // Farther from the camera on +Z
		mesh.vertices = append(mesh.vertices, v)
	}
	for _, v := range near.vertices {
		mesh.vertices = append(mesh.vertices, v)
	}
	for _, f := range far.faces {
		mesh.faces = append(mesh.faces, f)
		mesh.mats = append(mesh.mats, 0)
	}
	for _, f := range near.faces {
		mesh.faces = append(mesh.faces, [3]int{f[0] + 4, f[1] + 4, f[2] + 4})
		mesh.mats = append(mesh.mats, 1)
	}

	fb := NewFramebuffer(200, 200)
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.SetRotation(0, 0, 0)
	p := NewPipeline(cam, fb, 4)
	p.Shader.SetLightDir(math3d.V3(0, 0, 1))
	mats := []Material{
		NewMaterial(nil, nil, ColorRed),
		NewMaterial(nil, nil, ColorGreen),
	}
	if err := p.Bind(mesh, mats); err != nil {
		t.Fatal(err)
	}
	fb.Clear(ColorBlack)
	if err := p.RenderFrame(math3d.Identity()); err != nil {
		t.Fatal(err)
	}

	center := fb.GetPixel(fb.Width/2, fb.Height/2)
	if center.G == 0 || center.R > 0 {
		t.Errorf("center pixel = %v, want the near green quad", center)
	}
}
