package render

import (
	"github.com/halfpel/prism/pkg/math3d"
)

// ShaderParams configures the per-pixel lighting model: a single
// directional light with Lambertian diffuse over a constant ambient
// floor.
type ShaderParams struct {
	// LightDir points from the surface toward the light, in world
	// space. Must be unit length; SetLightDir normalizes.
	LightDir math3d.Vec3
	Ambient  float64
	Diffuse  float64
}

// DefaultShaderParams matches the standard key light: above, behind
// and slightly right of the default camera.
func DefaultShaderParams() ShaderParams {
	return ShaderParams{
		LightDir: math3d.V3(0.5, 1, 0.8).Normalize(),
		Ambient:  0.3,
		Diffuse:  0.7,
	}
}

// SetLightDir sets the light direction, normalizing the input. A zero
// vector is ignored.
func (s *ShaderParams) SetLightDir(d math3d.Vec3) {
	if d.LenSq() < 1e-12 {
		return
	}
	s.LightDir = d.Normalize()
}

// perturb rebuilds the shading normal from a tangent-space sample: the
// sampled vector's components weight the interpolated tangent frame.
// A flat sample (0,0,1) reproduces the interpolated surface normal.
func (s *ShaderParams) perturb(tangent, bitangent math3d.Vec3, nx, ny, nz float64, sample math3d.Vec3) math3d.Vec3 {
	n := math3d.V3(nx, ny, nz)
	if n.LenSq() < 1e-12 {
		n = math3d.V3(0, 0, 1)
	}
	n = n.Normalize()
	world := math3d.V3(
		tangent.X*sample.X+bitangent.X*sample.Y+n.X*sample.Z,
		tangent.Y*sample.X+bitangent.Y*sample.Y+n.Y*sample.Z,
		tangent.Z*sample.X+bitangent.Z*sample.Y+n.Z*sample.Z,
	)
	if world.LenSq() < 1e-12 {
		return n.Normalize()
	}
	return world.Normalize()
}

// Shade lights a base color with the ambient plus diffuse model. The
// normal must be unit length.
func (s *ShaderParams) Shade(base Color, normal math3d.Vec3) Color {
	ndotl := normal.Dot(s.LightDir)
	if ndotl < 0 {
		ndotl = 0
	}
	intensity := s.Ambient + s.Diffuse*ndotl
	if intensity > 1 {
		intensity = 1
	}
	return MultiplyColor(base, intensity)
}
