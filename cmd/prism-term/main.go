// prism-term - Terminal 3D model viewer
// Fly a camera around OBJ and glTF models rendered as half-block cells.
//
// Controls:
//
//	Mouse drag  - Look around (yaw/pitch)
//	Scroll      - Zoom (narrow/widen FOV)
//	W/S         - Move forward/back
//	A/D         - Strafe left/right
//	Space/C     - Rise/descend
//	X           - Toggle wireframe
//	T           - Toggle texture
//	G           - Toggle ground grid
//	R           - Reset camera
//	Esc/Ctrl+C  - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/halfpel/prism/internal/app"
	"github.com/halfpel/prism/pkg/math3d"
	"github.com/halfpel/prism/pkg/render"
)

var (
	texturePath = flag.String("texture", "", "Path to texture image overriding the model's base maps")
	targetFPS   = flag.Int("fps", 60, "Target FPS")
	workers     = flag.Int("workers", 0, "Rasterization workers (0 = all CPUs)")
	bgColor     = flag.String("bg", "30,30,40", "Background color (R,G,B)")
	spinRate    = flag.Float64("spin", 0.3, "Model spin rate in radians per second (0 to disable)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "prism-term - Terminal 3D Model Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: prism-term [options] <model.obj|model.glb>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Look around\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom\n")
		fmt.Fprintf(os.Stderr, "  W/A/S/D     - Move\n")
		fmt.Fprintf(os.Stderr, "  Space/C     - Rise/descend\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  T           - Toggle texture\n")
		fmt.Fprintf(os.Stderr, "  G           - Toggle grid\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset camera\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// smoothedAxis eases a control value toward its target with a spring,
// so camera motion ramps instead of snapping.
type smoothedAxis struct {
	value    float64
	velocity float64
	target   float64
	spring   harmonica.Spring
}

func newSmoothedAxis(fps int) smoothedAxis {
	// Damping 1.0 is critically damped: fast settle, no overshoot.
	return smoothedAxis{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0)}
}

func (a *smoothedAxis) update() float64 {
	a.value, a.velocity = a.spring.Update(a.value, a.velocity, a.target)
	return a.value
}

// flightControls maps held keys and mouse motion to camera deltas.
type flightControls struct {
	forward smoothedAxis
	strafe  smoothedAxis
	lift    smoothedAxis

	yaw   float64 // accumulated look input, consumed per frame
	pitch float64
	zoom  float64
}

func newFlightControls(fps int) *flightControls {
	return &flightControls{
		forward: newSmoothedAxis(fps),
		strafe:  newSmoothedAxis(fps),
		lift:    newSmoothedAxis(fps),
	}
}

// deltas produces the camera deltas for one frame and consumes the
// one-shot look and zoom inputs.
func (f *flightControls) deltas(dt float64) render.CameraDeltas {
	d := render.CameraDeltas{
		Yaw:     f.yaw,
		Pitch:   f.pitch,
		Zoom:    f.zoom,
		Forward: f.forward.update() * dt,
		Strafe:  f.strafe.update() * dt,
		Lift:    f.lift.update() * dt,
	}
	f.yaw, f.pitch, f.zoom = 0, 0, 0
	return d
}

func run(modelPath string) error {
	var bgR, bgG, bgB uint8 = 30, 30, 40
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)
	bg := render.RGB(bgR, bgG, bgB)

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

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Any-event mouse tracking with SGR extended coordinates.
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	fb := render.NewFramebuffer(fbWidth, fbHeight)

	camera := render.NewCamera()
	camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
	camera.SetClipPlanes(0.1, 100)
	camera.SetPosition(math3d.V3(0, 1, 4))
	camera.LookAt(math3d.V3(0, 0, 0))
	resetPos := camera.Position
	resetPitch, resetYaw := camera.Pitch, camera.Yaw
	resetFOV := camera.FOV

	pipeline := render.NewPipeline(camera, fb, *workers)
	if err := pipeline.Bind(mesh, materials); err != nil {
		return fmt.Errorf("bind mesh: %w", err)
	}
	wire := render.NewWireframe(camera, fb)

	controls := newFlightControls(*targetFPS)
	wireframe := false
	textured := true
	boundTextured := true
	showGrid := true
	flatMaterials := app.BuildMaterials(mesh, render.NewCheckerTexture(2, 2, 1, app.DefaultTint, app.DefaultTint))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	const moveSpeed = 3.0
	var mouseDown bool
	var lastMouseX, lastMouseY int

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				termRenderer = render.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				fb = render.NewFramebuffer(fbWidth, fbHeight)
				pipeline.SetFramebuffer(fb)
				wire = render.NewWireframe(camera, fb)
				camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("w", "up"):
					controls.forward.target = moveSpeed
				case ev.MatchString("s", "down"):
					controls.forward.target = -moveSpeed
				case ev.MatchString("a", "left"):
					controls.strafe.target = -moveSpeed
				case ev.MatchString("d", "right"):
					controls.strafe.target = moveSpeed
				case ev.MatchString("space"):
					controls.lift.target = moveSpeed
				case ev.MatchString("c"):
					controls.lift.target = -moveSpeed
				case ev.MatchString("x"):
					wireframe = !wireframe
				case ev.MatchString("t"):
					textured = !textured
				case ev.MatchString("g"):
					showGrid = !showGrid
				case ev.MatchString("r"):
					camera.SetPosition(resetPos)
					camera.SetRotation(resetPitch, resetYaw, 0)
					camera.SetFOV(resetFOV)
				}

			case uv.KeyReleaseEvent:
				switch {
				case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
					controls.forward.target = 0
				case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
					controls.strafe.target = 0
				case ev.MatchString("space"), ev.MatchString("c"):
					controls.lift.target = 0
				}

			case uv.MouseClickEvent:
				mouseDown = true
				lastMouseX, lastMouseY = ev.X, ev.Y

			case uv.MouseReleaseEvent:
				mouseDown = false

			case uv.MouseMotionEvent:
				if mouseDown {
					dx := ev.X - lastMouseX
					dy := ev.Y - lastMouseY
					controls.yaw += float64(dx) * 0.02
					controls.pitch -= float64(dy) * 0.04
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					controls.zoom += 0.05
				case uv.MouseWheelDown:
					controls.zoom -= 0.05
				}
			}
		}
	}()

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()
	spin := 0.0

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now
		if dt > 0.1 {
			dt = 0.1
		}

		camera.ApplyDeltas(controls.deltas(dt))
		spin += *spinRate * dt
		model := math3d.RotateY(spin)

		fb.Clear(bg)
		if showGrid {
			wire.DrawGrid(10, 1, render.RGB(60, 60, 70))
		}

		if wireframe {
			wire.DrawMesh(mesh, model, render.RGB(0, 255, 128))
		} else {
			if textured != boundTextured {
				mats := materials
				if !textured {
					mats = flatMaterials
				}
				if err := pipeline.Bind(mesh, mats); err != nil {
					cleanup()
					return fmt.Errorf("bind mesh: %w", err)
				}
				boundTextured = textured
			}
			if err := pipeline.RenderFrame(model); err != nil {
				cleanup()
				return fmt.Errorf("render: %w", err)
			}
		}

		termRenderer.Render(fb)
		if err := termRenderer.Flush(); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		if elapsed := time.Since(now); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
