package render

// edgeCoeffs holds the line coefficients for a directed triangle edge.
// eval(px, py) = A*px + B*py + C is positive on the interior side for
// clockwise screen triangles.
type edgeCoeffs struct {
	A, B, C float64
	topLeft bool
}

// makeEdge builds the edge function for the directed edge a to b. The
// two triangles sharing an edge see exactly negated values at every
// pixel, so each boundary pixel is owned by exactly one of them.
func makeEdge(a, b screenVertex) edgeCoeffs {
	return edgeCoeffs{
		A:       a.Y - b.Y,
		B:       b.X - a.X,
		C:       a.X*b.Y - a.Y*b.X,
		topLeft: isTopLeft(a, b),
	}
}

func (e edgeCoeffs) eval(px, py float64) float64 {
	return e.A*px + e.B*py + e.C
}

// accept implements the top-left fill rule: boundary pixels belong to
// the triangle whose shared edge is a top or left edge.
func (e edgeCoeffs) accept(w float64) bool {
	if w > 0 {
		return true
	}
	return w == 0 && e.topLeft
}

// isTopLeft reports whether the directed edge a to b is a top edge
// (horizontal, pointing right) or a left edge (pointing up) in
// Y-down pixel coordinates. For any edge shared by two triangles,
// exactly one direction satisfies this.
func isTopLeft(a, b screenVertex) bool {
	if a.Y == b.Y {
		return b.X > a.X
	}
	return b.Y < a.Y
}

// rasterizeTile draws every frame triangle's overlap with one tile.
// Triangles are visited in submission order, and the depth test is a
// strict less-than, so when two fragments land at the same pixel with
// the same depth the earlier triangle keeps the pixel. Tiles are
// disjoint, so concurrent calls never touch the same pixel.
func (p *Pipeline) rasterizeTile(t tile) {
	for i := range p.tris {
		tri := &p.tris[i]

		minX := tri.minX
		if t.x0 > minX {
			minX = t.x0
		}
		minY := tri.minY
		if t.y0 > minY {
			minY = t.y0
		}
		maxX := tri.maxX
		if t.x1 < maxX {
			maxX = t.x1
		}
		maxY := tri.maxY
		if t.y1 < maxY {
			maxY = t.y1
		}
		if minX >= maxX || minY >= maxY {
			continue
		}

		p.rasterizeSpan(tri, minX, minY, maxX, maxY)
	}
}

// rasterizeSpan fills one triangle over a pixel rectangle. Edge
// functions are evaluated directly per pixel rather than accumulated,
// so a pixel gets the same coverage verdict no matter which tile or
// bounding box it is visited from.
func (p *Pipeline) rasterizeSpan(tri *screenTriangle, minX, minY, maxX, maxY int) {
	sv := &tri.sv
	e0 := makeEdge(sv[1], sv[2])
	e1 := makeEdge(sv[2], sv[0])
	e2 := makeEdge(sv[0], sv[1])

	area := e0.eval(sv[0].X, sv[0].Y)
	if area <= 0 {
		return
	}
	invArea := 1.0 / area

	mat := &p.materials[tri.mat]
	shader := &p.Shader

	for py := minY; py < maxY; py++ {
		fy := float64(py) + 0.5
		rowBase := py * p.fb.Width

		for px := minX; px < maxX; px++ {
			fx := float64(px) + 0.5

			w0 := e0.eval(fx, fy)
			w1 := e1.eval(fx, fy)
			w2 := e2.eval(fx, fy)
			if !e0.accept(w0) || !e1.accept(w1) || !e2.accept(w2) {
				continue
			}

			// Perspective-correct weights: each barycentric factor is
			// scaled by its vertex's 1/w, then renormalized.
			b0 := w0 * invArea * sv[0].InvW
			b1 := w1 * invArea * sv[1].InvW
			b2 := w2 * invArea * sv[2].InvW
			oneOverW := b0 + b1 + b2
			depth := 1.0 / oneOverW

			idx := rowBase + px
			if depth >= p.fb.Depth[idx] {
				continue
			}

			u := (b0*sv[0].UV.X + b1*sv[1].UV.X + b2*sv[2].UV.X) * depth
			v := (b0*sv[0].UV.Y + b1*sv[1].UV.Y + b2*sv[2].UV.Y) * depth
			nx := (b0*sv[0].Normal.X + b1*sv[1].Normal.X + b2*sv[2].Normal.X) * depth
			ny := (b0*sv[0].Normal.Y + b1*sv[1].Normal.Y + b2*sv[2].Normal.Y) * depth
			nz := (b0*sv[0].Normal.Z + b1*sv[1].Normal.Z + b2*sv[2].Normal.Z) * depth

			base := mat.Base.Sample(u, v)
			if mat.Tint != ColorWhite {
				base = ModulateColor(base, mat.Tint)
			}

			sample := mat.Normal.SampleVector(u, v)
			normal := shader.perturb(tri.tangent, tri.bitangent, nx, ny, nz, sample)

			p.fb.Depth[idx] = depth
			p.fb.Pixels[idx] = shader.Shade(base, normal)
		}
	}
}
