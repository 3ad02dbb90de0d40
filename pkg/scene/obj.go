package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/halfpel/prism/pkg/math3d"
)

// LoadOBJ loads a Wavefront OBJ file. Faces with more than three
// vertices are fan-triangulated. Texture coordinates and normals are
// optional; missing normals are reconstructed by smooth averaging.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return mesh, nil
}

// objIndex is a v/vt/vn triple from a face element. Zero means the
// component was absent (OBJ indices are 1-based).
type objIndex struct {
	v, vt, vn int
}

// ParseOBJ parses OBJ data from r into a Mesh named name.
func ParseOBJ(r io.Reader, name string) (*Mesh, error) {
	mesh := NewMesh(name)

	var (
		positions []math3d.Vec3
		uvs       []math3d.Vec2
		normals   []math3d.Vec3
		// Deduplicate v/vt/vn triples so shared corners become shared
		// vertices and rasterize without seams.
		corners = make(map[objIndex]int)
	)

	addCorner := func(ix objIndex) (int, error) {
		if i, ok := corners[ix]; ok {
			return i, nil
		}
		if ix.v < 1 || ix.v > len(positions) {
			return 0, fmt.Errorf("vertex index %d out of range [1,%d]", ix.v, len(positions))
		}
		v := Vertex{Position: positions[ix.v-1]}
		if ix.vt != 0 {
			if ix.vt < 1 || ix.vt > len(uvs) {
				return 0, fmt.Errorf("uv index %d out of range [1,%d]", ix.vt, len(uvs))
			}
			v.UV = uvs[ix.vt-1]
		}
		if ix.vn != 0 {
			if ix.vn < 1 || ix.vn > len(normals) {
				return 0, fmt.Errorf("normal index %d out of range [1,%d]", ix.vn, len(normals))
			}
			v.Normal = normals[ix.vn-1]
		}
		i := len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, v)
		corners[ix] = i
		return i, nil
	}

	hasNormals := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			positions = append(positions, p)

		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: uv needs 2 components", lineNo)
			}
			u, err1 := strconv.ParseFloat(fields[1], 64)
			v, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad uv %q", lineNo, line)
			}
			uvs = append(uvs, math3d.V2(u, v))

		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			normals = append(normals, n)
			hasNormals = true

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, fe := range fields[1:] {
				ix, err := parseFaceElement(fe, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				vi, err := addCorner(ix)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				idx = append(idx, vi)
			}
			// Fan triangulation, reversing OBJ's CCW front winding to
			// the engine's CW convention (screen space is Y-flipped).
			for i := 1; i+1 < len(idx); i++ {
				mesh.Faces = append(mesh.Faces, Face{
					V:        [3]int{idx[0], idx[i+1], idx[i]},
					Material: -1,
				})
			}

		case "o", "g":
			if len(fields) > 1 && mesh.Name == name {
				mesh.Name = fields[1]
			}

		default:
			// mtllib, usemtl, s, and anything else is ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("no faces found")
	}

	if !hasNormals {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("validate mesh: %w", err)
	}
	return mesh, nil
}

// parseFaceElement parses one face corner: "v", "v/vt", "v//vn", or
// "v/vt/vn". Negative indices count back from the end of the current
// list.
func parseFaceElement(s string, nv, nvt, nvn int) (objIndex, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return objIndex{}, fmt.Errorf("bad face element %q", s)
	}

	resolve := func(raw string, n int) (int, error) {
		if raw == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("bad index %q", raw)
		}
		if i < 0 {
			i = n + i + 1
		}
		return i, nil
	}

	var ix objIndex
	var err error
	if ix.v, err = resolve(parts[0], nv); err != nil {
		return objIndex{}, err
	}
	if ix.v == 0 {
		return objIndex{}, fmt.Errorf("face element %q has no vertex index", s)
	}
	if len(parts) > 1 {
		if ix.vt, err = resolve(parts[1], nvt); err != nil {
			return objIndex{}, err
		}
	}
	if len(parts) > 2 {
		if ix.vn, err = resolve(parts[2], nvn); err != nil {
			return objIndex{}, err
		}
	}
	return ix, nil
}

func parseVec3(fields []string) (math3d.Vec3, error) {
	if len(fields) < 3 {
		return math3d.Vec3{}, fmt.Errorf("need 3 components, got %d", len(fields))
	}
	var out [3]float64
	for i := range 3 {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return math3d.Vec3{}, fmt.Errorf("bad component %q", fields[i])
		}
		out[i] = v
	}
	return math3d.V3(out[0], out[1], out[2]), nil
}
