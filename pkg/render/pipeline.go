package render

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/halfpel/prism/pkg/math3d"
)

// MeshSource is the geometry interface consumed by the pipeline. It is
// satisfied by scene.Mesh without importing that package.
type MeshSource interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
	GetFaceMaterial(i int) int
}

// BoundedMeshSource extends MeshSource with bounding box support for
// mesh-level frustum culling.
type BoundedMeshSource interface {
	MeshSource
	GetBounds() (min, max math3d.Vec3)
}

// Material is a fully bound shading input set: both textures must be
// non-nil by the time the mesh is bound. Use NewMaterial to fill the
// gaps with the 1x1 tint and flat normal fallbacks.
type Material struct {
	Base   *Texture // base color texture
	Normal *Texture // tangent-space normal map
	Tint   Color    // modulates the base sample
}

// NewMaterial builds a bound material from optionally-nil decoded
// images. A nil base becomes a 1x1 texture of the tint color; a nil
// normal map becomes the flat +Z map.
func NewMaterial(base, normal image.Image, tint Color) Material {
	m := Material{Tint: ColorWhite}
	if base != nil {
		m.Base = TextureFromImage(base)
		m.Base.FilterMode = FilterBilinear
		m.Tint = tint
	} else {
		solid := NewTexture(1, 1)
		solid.SetPixel(0, 0, tint)
		m.Base = solid
	}
	if normal != nil {
		m.Normal = TextureFromImage(normal)
		m.Normal.FilterMode = FilterBilinear
	} else {
		m.Normal = NewFlatNormalTexture()
	}
	return m
}

// FrameStats reports what one RenderFrame call did.
type FrameStats struct {
	Triangles      int  // faces submitted
	MeshCulled     bool // whole mesh rejected by the frustum test
	CulledFrustum  int  // faces trivially rejected in clip space
	CulledBackface int  // faces rejected by the winding test
	Clipped        int  // faces that crossed the near plane
	Rasterized     int  // screen triangles handed to the tile workers

	TransformTime time.Duration
	AssembleTime  time.Duration
	RasterTime    time.Duration
	FrameTime     time.Duration
}

// Pipeline renders a bound mesh into a framebuffer in fixed stages:
// vertex transform, triangle assembly (cull and near clip), then tiled
// parallel rasterization. Each worker owns disjoint tiles of the
// framebuffer, so pixel writes never race.
type Pipeline struct {
	camera  *Camera
	fb      *Framebuffer
	workers int
	tiles   []tile

	Shader ShaderParams
	Stats  FrameStats

	mesh      MeshSource
	materials []Material
	bounds    AABB
	hasBounds bool

	// Per-frame scratch, reused across frames.
	clipVerts []clipVertex
	tris      []screenTriangle
}

// Vertex transform goes parallel once a mesh is big enough to pay for
// the goroutine handoff.
const parallelVertexThreshold = 4096

// NewPipeline creates a pipeline rendering through camera into fb.
// workers <= 0 uses one worker per CPU.
func NewPipeline(camera *Camera, fb *Framebuffer, workers int) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pipeline{
		camera:  camera,
		fb:      fb,
		workers: workers,
		Shader:  DefaultShaderParams(),
	}
	p.tiles = splitTiles(fb.Width, fb.Height, workers)
	return p
}

// Workers returns the rasterization worker count.
func (p *Pipeline) Workers() int { return p.workers }

// Tiles returns the screen partition used for dispatch.
func (p *Pipeline) Tiles() []tile { return p.tiles }

// SetFramebuffer retargets the pipeline and recomputes the tile
// partition.
func (p *Pipeline) SetFramebuffer(fb *Framebuffer) {
	p.fb = fb
	p.tiles = splitTiles(fb.Width, fb.Height, p.workers)
}

// Bind attaches a mesh and its material table to the pipeline,
// validating everything the render loop will assume: in-range vertex
// and material indices and fully bound textures. Faces with material
// -1 use materials[0].
func (p *Pipeline) Bind(mesh MeshSource, materials []Material) error {
	if mesh == nil {
		return fmt.Errorf("bind: nil mesh")
	}
	if len(materials) == 0 {
		return fmt.Errorf("bind: no materials")
	}
	for i, m := range materials {
		if m.Base == nil {
			return fmt.Errorf("bind: material %d has no base texture", i)
		}
		if m.Normal == nil {
			return fmt.Errorf("bind: material %d has no normal map", i)
		}
	}

	nv := mesh.VertexCount()
	for i := 0; i < mesh.TriangleCount(); i++ {
		face := mesh.GetFace(i)
		for _, vi := range face {
			if vi < 0 || vi >= nv {
				return fmt.Errorf("bind: face %d: vertex index %d out of range [0,%d)", i, vi, nv)
			}
		}
		if mi := mesh.GetFaceMaterial(i); mi < -1 || mi >= len(materials) {
			return fmt.Errorf("bind: face %d: material index %d out of range [-1,%d)", i, mi, len(materials))
		}
	}

	p.mesh = mesh
	p.materials = materials
	if bounded, ok := mesh.(BoundedMeshSource); ok {
		bmin, bmax := bounded.GetBounds()
		p.bounds = AABB{Min: bmin, Max: bmax}
		p.hasBounds = true
	} else {
		p.hasBounds = false
	}
	return nil
}

// RenderFrame draws the bound mesh, transformed by model, into the
// framebuffer. The caller clears the framebuffer first; RenderFrame
// only adds depth-tested pixels. Safe to call repeatedly; scratch
// buffers are reused.
func (p *Pipeline) RenderFrame(model math3d.Mat4) error {
	if p.mesh == nil {
		return fmt.Errorf("render: no mesh bound")
	}

	start := time.Now()
	p.Stats = FrameStats{Triangles: p.mesh.TriangleCount()}

	frustum := p.camera.GetFrustum()
	if p.hasBounds && !frustum.IntersectAABB(p.bounds.Transform(model)) {
		p.Stats.MeshCulled = true
		p.Stats.FrameTime = time.Since(start)
		return nil
	}

	t0 := time.Now()
	p.transformVertices(model)
	p.Stats.TransformTime = time.Since(t0)

	t1 := time.Now()
	p.assembleTriangles(model)
	p.Stats.AssembleTime = time.Since(t1)

	t2 := time.Now()
	p.rasterize()
	p.Stats.RasterTime = time.Since(t2)
	p.Stats.FrameTime = time.Since(start)
	return nil
}

// transformVertices runs every mesh vertex through the model and
// view-projection matrices into clip space. Vertex order is preserved,
// so shared vertices produce bitwise-identical screen positions in
// every triangle that references them.
func (p *Pipeline) transformVertices(model math3d.Mat4) {
	n := p.mesh.VertexCount()
	if cap(p.clipVerts) < n {
		p.clipVerts = make([]clipVertex, n)
	}
	p.clipVerts = p.clipVerts[:n]

	mvp := p.camera.ViewProjectionMatrix().Mul(model)

	if n < parallelVertexThreshold || p.workers < 2 {
		p.transformRange(mvp, model, 0, n)
		return
	}

	var wg sync.WaitGroup
	chunk := (n + p.workers - 1) / p.workers
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			p.transformRange(mvp, model, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

func (p *Pipeline) transformRange(mvp, model math3d.Mat4, lo, hi int) {
	for i := lo; i < hi; i++ {
		pos, normal, uv := p.mesh.GetVertex(i)
		p.clipVerts[i] = clipVertex{
			pos:    mvp.MulVec4(math3d.V4FromV3(pos, 1)),
			normal: model.MulVec3Dir(normal).Normalize(),
			uv:     uv,
		}
	}
}

// materialFor resolves a face's material slot.
func (p *Pipeline) materialFor(face int) int {
	mi := p.mesh.GetFaceMaterial(face)
	if mi < 0 {
		return 0
	}
	return mi
}

// rasterize fans the tile list out to the worker pool and waits for
// the frame barrier. Tiles outnumber workers, so a worker that lands
// only cheap tiles keeps pulling more.
func (p *Pipeline) rasterize() {
	if len(p.tris) == 0 {
		return
	}

	if p.workers < 2 {
		for _, t := range p.tiles {
			p.rasterizeTile(t)
		}
		return
	}

	ch := make(chan tile, len(p.tiles))
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range ch {
				p.rasterizeTile(t)
			}
		}()
	}
	for _, t := range p.tiles {
		ch <- t
	}
	close(ch)
	wg.Wait()
}
