// Package app holds the model loading and material plumbing shared by
// the prism command line tools.
package app

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/halfpel/prism/pkg/math3d"
	"github.com/halfpel/prism/pkg/render"
	"github.com/halfpel/prism/pkg/scene"
)

// DefaultTint is the surface color used when a mesh carries no
// materials of its own.
var DefaultTint = render.RGB(200, 200, 200)

// LoadModel loads an OBJ, glTF or GLB file by extension.
func LoadModel(path string) (*scene.Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return scene.LoadOBJ(path)
	case ".glb", ".gltf":
		return scene.LoadGLB(path)
	default:
		return nil, fmt.Errorf("unsupported model format %q (use .obj, .gltf or .glb)", ext)
	}
}

// BuildMaterials converts a mesh's material table into bound render
// materials. baseOverride, when non-nil, replaces every base texture.
// Meshes without materials get a single default entry, which also
// serves faces with no material index.
func BuildMaterials(mesh *scene.Mesh, baseOverride *render.Texture) []render.Material {
	mats := make([]render.Material, 0, mesh.MaterialCount()+1)
	for i := 0; i < mesh.MaterialCount(); i++ {
		sm := mesh.GetMaterial(i)
		tint := render.RGBA(
			floatChannel(sm.BaseColor[0]),
			floatChannel(sm.BaseColor[1]),
			floatChannel(sm.BaseColor[2]),
			floatChannel(sm.BaseColor[3]),
		)
		m := render.NewMaterial(sm.BaseMap, sm.NormalMap, tint)
		if baseOverride != nil {
			m.Base = baseOverride
			m.Tint = render.ColorWhite
		}
		mats = append(mats, m)
	}
	if len(mats) == 0 {
		m := render.NewMaterial(nil, nil, DefaultTint)
		if baseOverride != nil {
			m.Base = baseOverride
			m.Tint = render.ColorWhite
		}
		mats = append(mats, m)
	}
	return mats
}

func floatChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// NormalizeMesh recenters a mesh on the origin and scales its longest
// dimension to 2 units, so any model fits the default camera framing.
func NormalizeMesh(mesh *scene.Mesh) {
	mesh.CalculateBounds()
	center := mesh.Center()
	size := mesh.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim <= 0 {
		return
	}
	scale := 2.0 / maxDim
	transform := math3d.ScaleUniform(scale).Mul(math3d.Translate(center.Negate()))
	mesh.Transform(transform)
	mesh.CalculateBounds()
}
