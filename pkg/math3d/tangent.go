package math3d

import "math"

// TangentBasis holds the tangent-space frame of a triangle: the tangent
// points along increasing U, the bitangent along increasing V, and the
// normal completes the frame. Sampled normal-map vectors are expressed
// in this basis.
type TangentBasis struct {
	Tangent   Vec3
	Bitangent Vec3
}

// ComputeTangentBasis derives the tangent and bitangent of a triangle
// from its positions and texture coordinates. The returned vectors are
// unit length and lie in the triangle's plane.
//
// Solves the 2x2 system mapping UV deltas onto edge vectors:
//
//	e1 = du1*T + dv1*B
//	e2 = du2*T + dv2*B
//
// Triangles with degenerate UVs (zero determinant) fall back to an
// arbitrary frame perpendicular to the face normal so shading stays
// finite.
func ComputeTangentBasis(p0, p1, p2 Vec3, uv0, uv1, uv2 Vec2) TangentBasis {
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	du1 := uv1.X - uv0.X
	dv1 := uv1.Y - uv0.Y
	du2 := uv2.X - uv0.X
	dv2 := uv2.Y - uv0.Y

	det := du1*dv2 - du2*dv1
	if math.Abs(det) < 1e-12 {
		n := e1.Cross(e2).Normalize()
		t := perpendicular(n)
		return TangentBasis{Tangent: t, Bitangent: n.Cross(t)}
	}

	inv := 1.0 / det
	t := e1.Scale(dv2 * inv).Sub(e2.Scale(dv1 * inv))
	b := e2.Scale(du1 * inv).Sub(e1.Scale(du2 * inv))
	return TangentBasis{
		Tangent:   t.Normalize(),
		Bitangent: b.Normalize(),
	}
}

// perpendicular returns a unit vector orthogonal to n, chosen against
// the smallest component of n for stability.
func perpendicular(n Vec3) Vec3 {
	ref := V3(1, 0, 0)
	if math.Abs(n.X) > math.Abs(n.Y) && math.Abs(n.X) > math.Abs(n.Z) {
		ref = V3(0, 1, 0)
	}
	return n.Cross(ref).Normalize()
}
