// Package render implements the prism software rasterization pipeline:
// camera, vertex transform, clipping, tiled parallel rasterization,
// and tangent-space normal-mapped shading.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"
)

// Framebuffer is a 2D array of pixels with a matching depth buffer.
// Every color write goes through a depth test against the paired depth
// value, so the two arrays always describe the same surface.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []color.RGBA // Row-major pixel data
	Depth  []float64    // Row-major view-space depth, +Inf when empty
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
		Depth:  make([]float64, width*height),
	}
	fb.ClearDepth()
	return fb
}

// Clear fills the framebuffer with a solid color and resets the depth
// buffer.
func (fb *Framebuffer) Clear(c color.RGBA) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
	fb.ClearDepth()
}

// ClearDepth resets every depth value to +Inf.
func (fb *Framebuffer) ClearDepth() {
	inf := math.Inf(1)
	for i := range fb.Depth {
		fb.Depth[i] = inf
	}
}

// SetPixel sets a pixel at (x, y) to the given color, bypassing the
// depth test. Bounds checking is performed. Used by overlay drawing;
// the rasterizer writes depth-tested pixels directly.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// DepthAt returns the depth value at (x, y), or +Inf if out of bounds.
func (fb *Framebuffer) DepthAt(x, y int) float64 {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return math.Inf(1)
	}
	return fb.Depth[y*fb.Width+x]
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawRect draws a filled rectangle.
func (fb *Framebuffer) DrawRect(x, y, w, h int, c color.RGBA) {
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			fb.SetPixel(px, py, c)
		}
	}
}

// DrawRectOutline draws a rectangle outline.
func (fb *Framebuffer) DrawRectOutline(x, y, w, h int, c color.RGBA) {
	// Top and bottom
	for px := x; px < x+w; px++ {
		fb.SetPixel(px, y, c)
		fb.SetPixel(px, y+h-1, c)
	}
	// Left and right
	for py := y; py < y+h; py++ {
		fb.SetPixel(x, py, c)
		fb.SetPixel(x+w-1, py, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// WriteRGBA copies the framebuffer into dst as premultiplied RGBA
// bytes, row-major. dst must hold Width*Height*4 bytes. Used to blit
// into window surfaces without allocating an intermediate image.
func (fb *Framebuffer) WriteRGBA(dst []byte) {
	for i, p := range fb.Pixels {
		dst[i*4+0] = p.R
		dst[i*4+1] = p.G
		dst[i*4+2] = p.B
		dst[i*4+3] = p.A
	}
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, fb.ToImage()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SaveBMP saves the framebuffer as an uncompressed BMP file.
func (fb *Framebuffer) SaveBMP(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := bmp.Encode(f, fb.ToImage()); err != nil {
		return fmt.Errorf("encode bmp: %w", err)
	}
	return nil
}

// SaveWebP saves the framebuffer as a lossless WebP file.
func (fb *Framebuffer) SaveWebP(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.Set(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}
	return nil
}
