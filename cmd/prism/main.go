// prism - Windowed 3D model viewer
// Fly a camera around OBJ and glTF models rendered on the CPU.
//
// Controls:
//
//	Mouse drag  - Look around (yaw/pitch)
//	Scroll      - Zoom (narrow/widen FOV)
//	W/S         - Move forward/back
//	A/D         - Strafe left/right
//	Space/C     - Rise/descend
//	X           - Toggle wireframe
//	G           - Toggle ground grid
//	B           - Toggle tile overlay
//	R           - Reset camera
//	Esc         - Quit
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/halfpel/prism/internal/app"
	"github.com/halfpel/prism/pkg/math3d"
	"github.com/halfpel/prism/pkg/render"
)

var (
	width       = flag.Int("width", 960, "Window width in pixels")
	height      = flag.Int("height", 720, "Window height in pixels")
	workers     = flag.Int("workers", 0, "Rasterization workers (0 = all CPUs)")
	texturePath = flag.String("texture", "", "Path to texture image overriding the model's base maps")
	spinRate    = flag.Float64("spin", 0.3, "Model spin rate in radians per second (0 to disable)")
	showStats   = flag.Bool("stats", false, "Print frame stats to stdout once per second")
)

var errQuit = errors.New("quit")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "prism - Windowed 3D Model Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: prism [options] <model.obj|model.glb>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil && !errors.Is(err, errQuit) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type viewer struct {
	fb       *render.Framebuffer
	camera   *render.Camera
	pipeline *render.Pipeline
	wire     *render.Wireframe
	mesh     *scene
	model    float64 // spin angle

	img       *ebiten.Image
	scratch   []byte
	lastFrame time.Time

	wireframe bool
	showGrid  bool
	showTiles bool
	dragging  bool
	lastX     int
	lastY     int

	resetPos   math3d.Vec3
	resetPitch float64
	resetYaw   float64
	resetFOV   float64
	statsDue   time.Time
}

// scene bundles the loaded mesh with its materials.
type scene struct {
	mesh      render.BoundedMeshSource
	materials []render.Material
	name      string
	triangles int
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return errQuit
	}

	now := time.Now()
	dt := now.Sub(v.lastFrame).Seconds()
	v.lastFrame = now
	if dt > 0.1 {
		dt = 0.1
	}

	var d render.CameraDeltas
	const moveSpeed = 3.0
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		d.Forward += moveSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		d.Forward -= moveSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		d.Strafe += moveSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		d.Strafe -= moveSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeySpace) {
		d.Lift += moveSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyC) {
		d.Lift -= moveSpeed * dt
	}

	x, y := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if v.dragging {
			d.Yaw += float64(x-v.lastX) * 0.005
			d.Pitch -= float64(y-v.lastY) * 0.005
		}
		v.dragging = true
		v.lastX, v.lastY = x, y
	} else {
		v.dragging = false
	}

	_, wheelY := ebiten.Wheel()
	d.Zoom = wheelY * 0.05

	v.camera.ApplyDeltas(d)

	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		v.wireframe = !v.wireframe
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		v.showGrid = !v.showGrid
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		v.showTiles = !v.showTiles
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.camera.SetPosition(v.resetPos)
		v.camera.SetRotation(v.resetPitch, v.resetYaw, 0)
		v.camera.SetFOV(v.resetFOV)
	}

	v.model += *spinRate * dt
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	model := math3d.RotateY(v.model)

	v.fb.Clear(render.RGB(30, 30, 40))
	if v.showGrid {
		v.wire.DrawGrid(10, 1, render.RGB(60, 60, 70))
	}

	if v.wireframe {
		v.wire.DrawMesh(v.mesh.mesh, model, render.RGB(0, 255, 128))
	} else if err := v.pipeline.RenderFrame(model); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
	}
	if v.showTiles {
		v.pipeline.DrawTileGrid(render.RGBA(255, 255, 0, 255))
	}

	v.fb.WriteRGBA(v.scratch)
	v.img.WritePixels(v.scratch)
	screen.DrawImage(v.img, nil)

	if *showStats && time.Now().After(v.statsDue) {
		s := v.pipeline.Stats
		fmt.Printf("%s: %d tris, %d drawn, %d backface, %d frustum, %d clipped, frame %v\n",
			v.mesh.name, s.Triangles, s.Rasterized, s.CulledBackface, s.CulledFrustum, s.Clipped, s.FrameTime)
		v.statsDue = time.Now().Add(time.Second)
	}
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.fb.Width, v.fb.Height
}

func run(modelPath string) error {
	mesh, err := app.LoadModel(modelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	app.NormalizeMesh(mesh)

	var override *render.Texture
	if *texturePath != "" {
		override, err = render.LoadTexture(*texturePath)
		if err != nil {
			return fmt.Errorf("load texture: %w", err)
		}
	}
	materials := app.BuildMaterials(mesh, override)

	fb := render.NewFramebuffer(*width, *height)
	camera := render.NewCamera()
	camera.SetAspectRatio(float64(*width) / float64(*height))
	camera.SetClipPlanes(0.1, 100)
	camera.SetPosition(math3d.V3(0, 1, 4))
	camera.LookAt(math3d.V3(0, 0, 0))

	pipeline := render.NewPipeline(camera, fb, *workers)
	if err := pipeline.Bind(mesh, materials); err != nil {
		return fmt.Errorf("bind mesh: %w", err)
	}

	v := &viewer{
		fb:       fb,
		camera:   camera,
		pipeline: pipeline,
		wire:     render.NewWireframe(camera, fb),
		mesh: &scene{
			mesh:      mesh,
			materials: materials,
			name:      filepath.Base(modelPath),
			triangles: mesh.TriangleCount(),
		},
		img:        ebiten.NewImage(*width, *height),
		scratch:    make([]byte, *width**height*4),
		lastFrame:  time.Now(),
		showGrid:   true,
		resetPos:   camera.Position,
		resetPitch: camera.Pitch,
		resetYaw:   camera.Yaw,
		resetFOV:   camera.FOV,
	}

	fmt.Printf("Loaded %s: %d vertices, %d triangles, %d workers\n",
		v.mesh.name, mesh.VertexCount(), mesh.TriangleCount(), pipeline.Workers())

	ebiten.SetWindowTitle("prism - " + v.mesh.name)
	ebiten.SetWindowSize(*width, *height)
	ebiten.SetTPS(60)
	return ebiten.RunGame(v)
}
