package render

import (
	"github.com/halfpel/prism/pkg/math3d"
)

// clipVertex is a transformed vertex in clip space, before the
// perspective divide.
type clipVertex struct {
	pos    math3d.Vec4 // clip-space position
	normal math3d.Vec3 // world-space normal
	uv     math3d.Vec2
}

// screenVertex is a projected vertex ready for rasterization. InvW is
// 1/clip.W; attributes are interpolated perspective-correctly by
// weighting each vertex contribution with its InvW.
type screenVertex struct {
	X, Y   float64
	InvW   float64
	Normal math3d.Vec3
	UV     math3d.Vec2
}

// screenTriangle is a rasterizer work item. The tangent frame comes
// from the unclipped source face, so triangles produced by near-plane
// clipping share it.
type screenTriangle struct {
	sv  [3]screenVertex
	mat int

	tangent   math3d.Vec3
	bitangent math3d.Vec3

	// Pixel-space bounding box, clamped, half-open on the right and
	// bottom.
	minX, minY, maxX, maxY int
}

// Clip-space outcodes for trivial rejection. A triangle whose vertices
// all carry a common bit lies entirely outside that frustum plane.
const (
	outLeft = 1 << iota
	outRight
	outBottom
	outTop
	outNear
	outFar
)

func outcode(v math3d.Vec4) int {
	code := 0
	if v.X < -v.W {
		code |= outLeft
	}
	if v.X > v.W {
		code |= outRight
	}
	if v.Y < -v.W {
		code |= outBottom
	}
	if v.Y > v.W {
		code |= outTop
	}
	if v.Z < -v.W {
		code |= outNear
	}
	if v.Z > v.W {
		code |= outFar
	}
	return code
}

// clipLerp interpolates all vertex attributes at parameter t along the
// edge a to b.
func clipLerp(a, b clipVertex, t float64) clipVertex {
	return clipVertex{
		pos:    a.pos.Lerp(b.pos, t),
		normal: a.normal.Lerp(b.normal, t).Normalize(),
		uv:     a.uv.Lerp(b.uv, t),
	}
}

// clipNear clips a triangle against the near plane z + w > 0,
// returning 0, 1, or 2 output triangles in dst. Winding order is
// preserved. Geometry surviving the clip has strictly positive W, so
// the perspective divide downstream is always safe.
func clipNear(v [3]clipVertex, dst [][3]clipVertex) [][3]clipVertex {
	d := [3]float64{
		v[0].pos.Z + v[0].pos.W,
		v[1].pos.Z + v[1].pos.W,
		v[2].pos.Z + v[2].pos.W,
	}
	inside := [3]bool{d[0] > 0, d[1] > 0, d[2] > 0}

	n := 0
	for _, in := range inside {
		if in {
			n++
		}
	}

	// Intersection point on edge i to j.
	cross := func(i, j int) clipVertex {
		t := d[i] / (d[i] - d[j])
		return clipLerp(v[i], v[j], t)
	}

	switch n {
	case 0:
		return dst
	case 3:
		return append(dst, v)
	case 1:
		// Rotate so the inside vertex is first, keeping winding.
		var a, b, c int
		switch {
		case inside[0]:
			a, b, c = 0, 1, 2
		case inside[1]:
			a, b, c = 1, 2, 0
		default:
			a, b, c = 2, 0, 1
		}
		ab := cross(a, b)
		ac := cross(a, c)
		return append(dst, [3]clipVertex{v[a], ab, ac})
	default: // 2 inside
		// Rotate so the outside vertex is last, keeping winding.
		var a, b, c int
		switch {
		case !inside[2]:
			a, b, c = 0, 1, 2
		case !inside[0]:
			a, b, c = 1, 2, 0
		default:
			a, b, c = 2, 0, 1
		}
		bc := cross(b, c)
		ac := cross(a, c)
		dst = append(dst, [3]clipVertex{v[a], v[b], bc})
		return append(dst, [3]clipVertex{v[a], bc, ac})
	}
}

// project maps a clip-space vertex to pixel coordinates with a Y flip,
// so clip-space up is screen up.
func project(v clipVertex, width, height float64) screenVertex {
	invW := 1.0 / v.pos.W
	ndcX := v.pos.X * invW
	ndcY := v.pos.Y * invW
	return screenVertex{
		X:      (ndcX + 1) * 0.5 * width,
		Y:      (1 - ndcY) * 0.5 * height,
		InvW:   invW,
		Normal: v.normal,
		UV:     v.uv,
	}
}

// assembleTriangles walks the faces in submission order and emits
// screen triangles for the rasterizer: trivial frustum rejection,
// near-plane clipping, projection, then the screen-space winding test.
// Emission order follows face order, which fixes the depth-tie winner
// independent of worker count.
func (p *Pipeline) assembleTriangles(model math3d.Mat4) {
	p.tris = p.tris[:0]

	width := float64(p.fb.Width)
	height := float64(p.fb.Height)
	var clipped [2][3]clipVertex

	for f := 0; f < p.mesh.TriangleCount(); f++ {
		face := p.mesh.GetFace(f)
		v := [3]clipVertex{
			p.clipVerts[face[0]],
			p.clipVerts[face[1]],
			p.clipVerts[face[2]],
		}

		if outcode(v[0].pos)&outcode(v[1].pos)&outcode(v[2].pos) != 0 {
			p.Stats.CulledFrustum++
			continue
		}

		tris := clipNear(v, clipped[:0])
		if len(tris) == 0 {
			p.Stats.CulledFrustum++
			continue
		}
		if len(tris) == 2 || tris[0] != v {
			p.Stats.Clipped++
		}

		// Tangent frame from the source face in world space. Clipped
		// fragments are coplanar with it.
		p0, _, uv0 := p.mesh.GetVertex(face[0])
		p1, _, uv1 := p.mesh.GetVertex(face[1])
		p2, _, uv2 := p.mesh.GetVertex(face[2])
		basis := math3d.ComputeTangentBasis(
			model.MulVec3(p0), model.MulVec3(p1), model.MulVec3(p2),
			uv0, uv1, uv2)

		mat := p.materialFor(f)
		emitted := false
		for _, tri := range tris {
			sv := [3]screenVertex{
				project(tri[0], width, height),
				project(tri[1], width, height),
				project(tri[2], width, height),
			}

			// Signed area in screen space. Front faces wind clockwise
			// on screen; everything else is culled.
			e1x, e1y := sv[1].X-sv[0].X, sv[1].Y-sv[0].Y
			e2x, e2y := sv[2].X-sv[0].X, sv[2].Y-sv[0].Y
			if e1x*e2y-e1y*e2x <= 0 {
				continue
			}

			st := screenTriangle{
				sv:        sv,
				mat:       mat,
				tangent:   basis.Tangent,
				bitangent: basis.Bitangent,
			}
			if !st.clampBounds(p.fb.Width, p.fb.Height) {
				continue
			}
			p.tris = append(p.tris, st)
			p.Stats.Rasterized++
			emitted = true
		}
		if !emitted {
			p.Stats.CulledBackface++
		}
	}
}

// clampBounds computes the triangle's pixel bounding box clamped to
// the framebuffer. Returns false when the box is empty.
func (st *screenTriangle) clampBounds(width, height int) bool {
	minX := int(min3(st.sv[0].X, st.sv[1].X, st.sv[2].X))
	minY := int(min3(st.sv[0].Y, st.sv[1].Y, st.sv[2].Y))
	maxX := int(max3(st.sv[0].X, st.sv[1].X, st.sv[2].X)) + 1
	maxY := int(max3(st.sv[0].Y, st.sv[1].Y, st.sv[2].Y)) + 1

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > width {
		maxX = width
	}
	if maxY > height {
		maxY = height
	}
	if minX >= maxX || minY >= maxY {
		return false
	}
	st.minX, st.minY, st.maxX, st.maxY = minX, minY, maxX, maxY
	return true
}

func min3(a, b, c float64) float64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c float64) float64 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
