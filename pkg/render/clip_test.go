package render

import (
	"math"
	"testing"

	"github.com/halfpel/prism/pkg/math3d"
)

func clipVert(x, y, z, w float64) clipVertex {
	return clipVertex{pos: math3d.V4(x, y, z, w)}
}

// signedArea2 of a triangle after perspective divide, in NDC. Used to
// check winding preservation through the clipper.
func signedArea2(tri [3]clipVertex) float64 {
	var p [3]math3d.Vec2
	for i, v := range tri {
		p[i] = math3d.V2(v.pos.X/v.pos.W, v.pos.Y/v.pos.W)
	}
	return p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
}

func TestOutcode(t *testing.T) {
	tests := []struct {
		name string
		v    math3d.Vec4
		want int
	}{
		{"inside", math3d.V4(0, 0, 0, 1), 0},
		{"on near plane", math3d.V4(0, 0, -1, 1), 0},
		{"past near", math3d.V4(0, 0, -2, 1), outNear},
		{"past far", math3d.V4(0, 0, 2, 1), outFar},
		{"left", math3d.V4(-2, 0, 0, 1), outLeft},
		{"right", math3d.V4(2, 0, 0, 1), outRight},
		{"bottom", math3d.V4(0, -2, 0, 1), outBottom},
		{"top", math3d.V4(0, 2, 0, 1), outTop},
		{"corner", math3d.V4(2, 2, 0, 1), outRight | outTop},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := outcode(tc.v); got != tc.want {
				t.Errorf("outcode(%v) = %b, want %b", tc.v, got, tc.want)
			}
		})
	}
}

func TestClipNearAllInside(t *testing.T) {
	tri := [3]clipVertex{
		clipVert(0, 0, 0, 1),
		clipVert(1, 0, 0, 1),
		clipVert(0, 1, 0, 1),
	}
	out := clipNear(tri, nil)
	if len(out) != 1 {
		t.Fatalf("got %d triangles, want 1", len(out))
	}
	if out[0] != tri {
		t.Error("fully inside triangle must pass through unchanged")
	}
}

func TestClipNearAllOutside(t *testing.T) {
	tri := [3]clipVertex{
		clipVert(0, 0, -2, 1),
		clipVert(1, 0, -3, 1),
		clipVert(0, 1, -4, 1),
	}
	if out := clipNear(tri, nil); len(out) != 0 {
		t.Fatalf("got %d triangles, want 0", len(out))
	}
}

func TestClipNearOneInside(t *testing.T) {
	// v0 inside (z+w = 2), v1 and v2 outside (z+w = -2).
	tri := [3]clipVertex{
		{pos: math3d.V4(0, 0, 1, 1), uv: math3d.V2(0, 0)},
		{pos: math3d.V4(4, 0, -3, 1), uv: math3d.V2(1, 0)},
		{pos: math3d.V4(0, 4, -3, 1), uv: math3d.V2(0, 1)},
	}
	out := clipNear(tri, nil)
	if len(out) != 1 {
		t.Fatalf("got %d triangles, want 1", len(out))
	}

	// Both new vertices sit exactly on the near plane at t = 0.5.
	got := out[0]
	if got[0].pos != tri[0].pos {
		t.Error("inside vertex must be preserved")
	}
	for i := 1; i <= 2; i++ {
		if d := got[i].pos.Z + got[i].pos.W; math.Abs(d) > 1e-12 {
			t.Errorf("vertex %d: z+w = %v, want 0", i, d)
		}
	}
	if got[1].uv.X != 0.5 || got[2].uv.Y != 0.5 {
		t.Errorf("attributes not interpolated at t=0.5: %v, %v", got[1].uv, got[2].uv)
	}
}

func TestClipNearTwoInside(t *testing.T) {
	// v0 and v1 inside, v2 outside.
	tri := [3]clipVertex{
		clipVert(0, 0, 1, 1),
		clipVert(4, 0, 1, 1),
		clipVert(0, 4, -3, 1),
	}
	out := clipNear(tri, nil)
	if len(out) != 2 {
		t.Fatalf("got %d triangles, want 2", len(out))
	}

	for ti, tr := range out {
		for vi, v := range tr {
			if d := v.pos.Z + v.pos.W; d < -1e-12 {
				t.Errorf("triangle %d vertex %d behind near plane: z+w = %v", ti, vi, d)
			}
		}
	}
}

// Winding survives every clip case, so the screen-space cull after
// projection still sees front faces as front.
func TestClipNearPreservesWinding(t *testing.T) {
	tests := []struct {
		name string
		tri  [3]clipVertex
	}{
		{"one inside first", [3]clipVertex{clipVert(0, 0, 1, 2), clipVert(1, 0, -3, 2), clipVert(0, 1, -3, 2)}},
		{"one inside second", [3]clipVertex{clipVert(1, 0, -3, 2), clipVert(0, 0, 1, 2), clipVert(0, 1, -3, 2)}},
		{"one inside third", [3]clipVertex{clipVert(1, 0, -3, 2), clipVert(0, 1, -3, 2), clipVert(0, 0, 1, 2)}},
		{"two inside first pair", [3]clipVertex{clipVert(0, 0, 1, 2), clipVert(1, 0, 1, 2), clipVert(0, 1, -3, 2)}},
		{"two inside second pair", [3]clipVertex{clipVert(0, 1, -3, 2), clipVert(0, 0, 1, 2), clipVert(1, 0, 1, 2)}},
		{"two inside third pair", [3]clipVertex{clipVert(1, 0, 1, 2), clipVert(0, 1, -3, 2), clipVert(0, 0, 1, 2)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := math.Signbit(signedArea2(tc.tri))
			for i, tr := range clipNear(tc.tri, nil) {
				if got := math.Signbit(signedArea2(tr)); got != want {
					t.Errorf("triangle %d flipped winding", i)
				}
			}
		})
	}
}

func TestProjectMapsNDCToPixelsWithYFlip(t *testing.T) {
	tests := []struct {
		name          string
		v             clipVertex
		wantX, wantY  float64
		wantInvW      float64
		width, height float64
	}{
		{"center", clipVert(0, 0, 0, 1), 320, 240, 1, 640, 480},
		{"top left ndc", clipVert(-1, 1, 0, 1), 0, 0, 1, 640, 480},
		{"bottom right ndc", clipVert(1, -1, 0, 1), 640, 480, 1, 640, 480},
		{"w scaling", clipVert(0, 0, 0, 2), 320, 240, 0.5, 640, 480},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sv := project(tc.v, tc.width, tc.height)
			if math.Abs(sv.X-tc.wantX) > 1e-9 || math.Abs(sv.Y-tc.wantY) > 1e-9 {
				t.Errorf("projected to (%v, %v), want (%v, %v)", sv.X, sv.Y, tc.wantX, tc.wantY)
			}
			if math.Abs(sv.InvW-tc.wantInvW) > 1e-9 {
				t.Errorf("InvW = %v, want %v", sv.InvW, tc.wantInvW)
			}
		})
	}
}

func TestClampBoundsClipsToFramebuffer(t *testing.T) {
	st := screenTriangle{sv: [3]screenVertex{
		{X: -10, Y: -10},
		{X: 50, Y: -10},
		{X: 50, Y: 50},
	}}
	if !st.clampBounds(40, 40) {
		t.Fatal("overlapping triangle reported empty bounds")
	}
	if st.minX != 0 || st.minY != 0 || st.maxX != 40 || st.maxY != 40 {
		t.Errorf("bounds = (%d,%d)-(%d,%d), want (0,0)-(40,40)", st.minX, st.minY, st.maxX, st.maxY)
	}

	off := screenTriangle{sv: [3]screenVertex{
		{X: 100, Y: 100},
		{X: 120, Y: 100},
		{X: 120, Y: 120},
	}}
	if off.clampBounds(40, 40) {
		t.Error("offscreen triangle should report empty bounds")
	}
}
