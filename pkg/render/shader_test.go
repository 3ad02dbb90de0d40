package render

import (
	"math"
	"testing"

	"github.com/halfpel/prism/pkg/math3d"
)

func TestShadeIntensity(t *testing.T) {
	s := ShaderParams{
		LightDir: math3d.V3(0, 0, 1),
		Ambient:  0.3,
		Diffuse:  0.7,
	}
	base := RGB(200, 100, 50)

	tests := []struct {
		name      string
		normal    math3d.Vec3
		intensity float64
	}{
		{"facing light", math3d.V3(0, 0, 1), 1.0},
		{"perpendicular", math3d.V3(1, 0, 0), 0.3},
		{"facing away", math3d.V3(0, 0, -1), 0.3},
		{"grazing", math3d.V3(0, 1, 1).Normalize(), 0.3 + 0.7*math.Sqrt2/2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Shade(base, tc.normal)
			want := MultiplyColor(base, tc.intensity)
			if got != want {
				t.Errorf("Shade = %v, want %v", got, want)
			}
		})
	}
}

func TestShadeClampsIntensity(t *testing.T) {
	s := ShaderParams{LightDir: math3d.V3(0, 0, 1), Ambient: 0.8, Diffuse: 0.7}
	got := s.Shade(ColorWhite, math3d.V3(0, 0, 1))
	if got != ColorWhite {
		t.Errorf("overdriven shade = %v, want white", got)
	}
}

func TestSetLightDirNormalizes(t *testing.T) {
	var s ShaderParams
	s.SetLightDir(math3d.V3(0, 10, 0))
	if math.Abs(s.LightDir.Len()-1) > 1e-9 {
		t.Errorf("light dir length = %v, want 1", s.LightDir.Len())
	}

	// A zero direction is rejected, keeping the previous value.
	s.SetLightDir(math3d.Zero3())
	if s.LightDir != math3d.V3(0, 1, 0) {
		t.Errorf("light dir = %v, want unchanged (0, 1, 0)", s.LightDir)
	}
}

func TestPerturbFlatSampleKeepsNormal(t *testing.T) {
	s := DefaultShaderParams()
	tangent := math3d.V3(1, 0, 0)
	bitangent := math3d.V3(0, 1, 0)

	got := s.perturb(tangent, bitangent, 0, 0, 1, math3d.V3(0, 0, 1))
	if got.Sub(math3d.V3(0, 0, 1)).Len() > 1e-9 {
		t.Errorf("flat sample perturbed the normal: %v", got)
	}
}

func TestPerturbTiltsTowardTangent(t *testing.T) {
	s := DefaultShaderParams()
	tangent := math3d.V3(1, 0, 0)
	bitangent := math3d.V3(0, 1, 0)

	// Sample leaning fully into +X tangent space.
	sample := math3d.V3(1, 0, 1).Normalize()
	got := s.perturb(tangent, bitangent, 0, 0, 1, sample)

	want := math3d.V3(1, 0, 1).Normalize()
	if got.Sub(want).Len() > 1e-9 {
		t.Errorf("perturbed normal = %v, want %v", got, want)
	}
	if math.Abs(got.Len()-1) > 1e-9 {
		t.Errorf("perturbed normal not unit length: %v", got.Len())
	}
}

func TestPerturbRotatedFrame(t *testing.T) {
	s := DefaultShaderParams()

	// Surface facing +X: the tangent frame spans the YZ plane.
	tangent := math3d.V3(0, 0, -1)
	bitangent := math3d.V3(0, 1, 0)

	got := s.perturb(tangent, bitangent, 1, 0, 0, math3d.V3(0, 0, 1))
	if got.Sub(math3d.V3(1, 0, 0)).Len() > 1e-9 {
		t.Errorf("flat sample in rotated frame = %v, want +X", got)
	}

	// Leaning into the bitangent tilts the normal toward +Y.
	sample := math3d.V3(0, 1, 1).Normalize()
	got = s.perturb(tangent, bitangent, 1, 0, 0, sample)
	want := math3d.V3(1, 1, 0).Normalize()
	if got.Sub(want).Len() > 1e-9 {
		t.Errorf("perturbed normal = %v, want %v", got, want)
	}
}
