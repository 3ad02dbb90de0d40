// Command prism-shot renders one or more camera poses of a model to
// image files without opening a window. Poses come from a JSON config
// file (or a built-in orbit when none is given) and are rendered
// concurrently by a worker pool, each worker owning its own
// framebuffer and pipeline.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/halfpel/prism/internal/app"
	"github.com/halfpel/prism/internal/config"
	"github.com/halfpel/prism/pkg/math3d"
	"github.com/halfpel/prism/pkg/render"
)

type poseResult struct {
	Name string
	Path string
	Err  error
}

func main() {
	configPath := flag.String("config", "", "JSON config file with poses and render settings")
	outputDir := flag.String("o", "", "output directory (overrides config)")
	format := flag.String("format", "", "output format: png, bmp or webp (overrides config)")
	width := flag.Int("width", 0, "image width (overrides config)")
	height := flag.Int("height", 0, "image height (overrides config)")
	workers := flag.Int("workers", 0, "poses rendered concurrently (overrides config)")
	tiles := flag.Bool("tiles", false, "overlay the tile partition grid on each image")
	flag.Parse()

	if err := run(*configPath, config.Flags{
		Model:     flag.Arg(0),
		OutputDir: *outputDir,
		Format:    *format,
		Width:     *width,
		Height:    *height,
		Workers:   *workers,
		Tiles:     *tiles,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "prism-shot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, flags config.Flags) error {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Resolve(flags); err != nil {
		return err
	}

	mesh, err := app.LoadModel(cfg.Model)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.Model, err)
	}
	app.NormalizeMesh(mesh)

	var override *render.Texture
	if cfg.Texture != "" {
		override, err = render.LoadTexture(cfg.Texture)
		if err != nil {
			return fmt.Errorf("load texture %s: %w", cfg.Texture, err)
		}
	}
	materials := app.BuildMaterials(mesh, override)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fmt.Printf("Rendering %d poses of %s at %dx%d (%d workers)\n",
		len(cfg.Poses), filepath.Base(cfg.Model), cfg.Width, cfg.Height, cfg.Workers)

	start := time.Now()
	results := renderPoses(cfg, mesh, materials)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Printf("  %s -> %s\n", r.Name, r.Path)
	}
	fmt.Printf("Done in %.2fs\n", time.Since(start).Seconds())

	if failed > 0 {
		return fmt.Errorf("%d of %d poses failed", failed, len(results))
	}
	return nil
}

// renderPoses runs a worker pool over the configured poses. The mesh
// and material table are shared read-only; each worker owns its own
// framebuffer, camera and pipeline.
func renderPoses(cfg config.Config, mesh render.BoundedMeshSource, materials []render.Material) []poseResult {
	results := make([]poseResult, len(cfg.Poses))

	poseChan := make(chan int, len(cfg.Poses))
	var wg sync.WaitGroup

	workers := cfg.Workers
	if workers > len(cfg.Poses) {
		workers = len(cfg.Poses)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			fb := render.NewFramebuffer(cfg.Width, cfg.Height)
			camera := render.NewCamera()
			camera.SetAspectRatio(float64(cfg.Width) / float64(cfg.Height))
			camera.SetClipPlanes(0.1, 100)

			pipeline := render.NewPipeline(camera, fb, cfg.TileWorkers)
			pipeline.Shader.SetLightDir(math3d.V3(cfg.LightDir[0], cfg.LightDir[1], cfg.LightDir[2]))
			if err := pipeline.Bind(mesh, materials); err != nil {
				for idx := range poseChan {
					results[idx] = poseResult{Name: cfg.Poses[idx].Name, Err: err}
				}
				return
			}

			for idx := range poseChan {
				results[idx] = renderPose(cfg, cfg.Poses[idx], pipeline, camera, fb)
			}
		}()
	}

	for i := range cfg.Poses {
		poseChan <- i
	}
	close(poseChan)
	wg.Wait()

	return results
}

func renderPose(cfg config.Config, pose config.Pose, pipeline *render.Pipeline, camera *render.Camera, fb *render.Framebuffer) poseResult {
	camera.SetPosition(math3d.V3(pose.Position[0], pose.Position[1], pose.Position[2]))
	camera.LookAt(math3d.V3(pose.LookAt[0], pose.LookAt[1], pose.LookAt[2]))
	if pose.FOVDegrees > 0 {
		camera.SetFOV(pose.FOVDegrees * math.Pi / 180)
	}

	model := math3d.RotateY(pose.SpinDegrees * math.Pi / 180)

	fb.Clear(render.RGB(cfg.Background[0], cfg.Background[1], cfg.Background[2]))
	if err := pipeline.RenderFrame(model); err != nil {
		return poseResult{Name: pose.Name, Err: err}
	}
	if cfg.TileOverlay {
		pipeline.DrawTileGrid(render.RGB(255, 220, 0))
	}

	outPath := filepath.Join(cfg.OutputDir, pose.Name+"."+cfg.Format)
	var err error
	switch cfg.Format {
	case "png":
		err = fb.SavePNG(outPath)
	case "bmp":
		err = fb.SaveBMP(outPath)
	case "webp":
		err = fb.SaveWebP(outPath)
	}
	if err != nil {
		return poseResult{Name: pose.Name, Err: err}
	}
	return poseResult{Name: pose.Name, Path: outPath}
}
