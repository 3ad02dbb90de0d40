package scene

import (
	"math"
	"strings"
	"testing"
)

const cubeOBJ = `# simple cube
v -1 -1 -1
v  1 -1 -1
v  1  1 -1
v -1  1 -1
v -1 -1  1
v  1 -1  1
v  1  1  1
v -1  1  1
f 1 2 3 4
f 5 8 7 6
f 1 5 6 2
f 2 6 7 3
f 3 7 8 4
f 5 1 4 8
`

func TestParseOBJCube(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(cubeOBJ), "cube.obj")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}

	// Six quads fan into twelve triangles.
	if got := mesh.TriangleCount(); got != 12 {
		t.Errorf("TriangleCount = %d, want 12", got)
	}
	if got := mesh.VertexCount(); got != 8 {
		t.Errorf("VertexCount = %d, want 8 (corners shared)", got)
	}

	bmin, bmax := mesh.GetBounds()
	if bmin.X != -1 || bmin.Y != -1 || bmin.Z != -1 || bmax.X != 1 || bmax.Y != 1 || bmax.Z != 1 {
		t.Errorf("bounds = %v..%v, want -1..1 per axis", bmin, bmax)
	}

	// Normals were absent, so smooth normals must have been computed.
	for i, v := range mesh.Vertices {
		if math.Abs(v.Normal.Len()-1) > 1e-9 {
			t.Errorf("vertex %d normal length = %g, want 1", i, v.Normal.Len())
		}
	}
}

func TestParseOBJFanTriangulation(t *testing.T) {
	// A pentagon fans into three triangles all anchored at the first
	// corner.
	obj := `
v 0 0 0
v 1 0 0
v 1.5 1 0
v 0.5 2 0
v -0.5 1 0
f 1 2 3 4 5
`
	mesh, err := ParseOBJ(strings.NewReader(obj), "pentagon.obj")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}

	if got := mesh.TriangleCount(); got != 3 {
		t.Fatalf("TriangleCount = %d, want 3", got)
	}
	for i, f := range mesh.Faces {
		if f.V[0] != 0 {
			t.Errorf("face %d not anchored at first corner: %v", i, f.V)
		}
	}
}

func TestParseOBJWithUVsAndNormals(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
`
	mesh, err := ParseOBJ(strings.NewReader(obj), "tri.obj")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}

	if mesh.Vertices[1].UV.X != 1 {
		t.Errorf("vertex 1 UV = %v, want U=1", mesh.Vertices[1].UV)
	}
	for i, v := range mesh.Vertices {
		if v.Normal.Z != 1 {
			t.Errorf("vertex %d normal = %v, want +Z", i, v.Normal)
		}
	}
}

func TestParseOBJNegativeIndices(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	mesh, err := ParseOBJ(strings.NewReader(obj), "neg.obj")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}
	// Winding is reversed relative to the source file.
	if mesh.Faces[0].V != [3]int{0, 2, 1} {
		t.Errorf("face = %v, want [0 2 1]", mesh.Faces[0].V)
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		obj  string
	}{
		{"vertex index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"bad vertex component", "v 0 zero 0\n"},
		{"face with two corners", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"no faces", "v 0 0 0\nv 1 0 0\nv 0 1 0\n"},
		{"uv index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/9 2/9 3/9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOBJ(strings.NewReader(tt.obj), "bad.obj"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadOBJMissingFile(t *testing.T) {
	if _, err := LoadOBJ("/nonexistent/model.obj"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}
