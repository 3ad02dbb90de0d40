package render

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/halfpel/prism/pkg/math3d"
)

func benchPipeline(b *testing.B, workers int) (*Pipeline, *Framebuffer) {
	b.Helper()
	fb := NewFramebuffer(320, 240)
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 2, 6))
	cam.LookAt(math3d.V3(0, 0, 0))

	p := NewPipeline(cam, fb, workers)
	if err := p.Bind(testCube(), []Material{NewMaterial(nil, nil, RGB(100, 150, 200))}); err != nil {
		b.Fatalf("bind: %v", err)
	}
	return p, fb
}

func BenchmarkRenderFrame(b *testing.B) {
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			p, fb := benchPipeline(b, workers)
			model := math3d.Identity()
			for b.Loop() {
				fb.Clear(ColorBlack)
				if err := p.RenderFrame(model); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkRenderFrameScene renders many instances, half of them behind
// the camera, to measure the mesh-level frustum cull path.
func BenchmarkRenderFrameScene(b *testing.B) {
	p, fb := benchPipeline(b, 4)

	rng := rand.New(rand.NewSource(42))
	const objectCount = 64
	transforms := make([]math3d.Mat4, objectCount)
	for i := range transforms {
		var z float64
		if i%2 == 0 {
			z = -(rng.Float64()*30 + 10) // In front
		} else {
			z = rng.Float64()*20 + 25 // Behind the camera
		}
		x := rng.Float64()*40 - 20
		y := rng.Float64() * 10
		transforms[i] = math3d.Translate(math3d.V3(x, y, z))
	}

	for b.Loop() {
		fb.Clear(ColorBlack)
		for _, m := range transforms {
			if err := p.RenderFrame(m); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkTransformVertices(b *testing.B) {
	p, _ := benchPipeline(b, 1)
	model := math3d.RotateY(0.5)
	for b.Loop() {
		p.transformVertices(model)
	}
}
