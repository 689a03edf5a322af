// Package render draws captured series as oscilloscope traces onto any
// drivers.Displayer. ImageDisplay backs the displayer with an image so
// plots can be saved as PNG.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"tinygo.org/x/drivers"
)

// ErrRotation is returned for any rotation other than drivers.Rotation0
var ErrRotation = errors.New("render: image display does not rotate")

// ImageDisplay is a drivers.Displayer over an RGBA image
type ImageDisplay struct {
	img *image.RGBA
}

// NewImageDisplay allocates a width x height canvas
func NewImageDisplay(width, height int) *ImageDisplay {
	return &ImageDisplay{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (d *ImageDisplay) Size() (x, y int16) {
	b := d.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (d *ImageDisplay) SetPixel(x, y int16, c color.RGBA) {
	if !(image.Point{X: int(x), Y: int(y)}).In(d.img.Bounds()) {
		return
	}
	d.img.SetRGBA(int(x), int(y), c)
}

// Display is a no-op; the image is always current
func (d *ImageDisplay) Display() error {
	return nil
}

func (d *ImageDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	r := image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height)).Intersect(d.img.Bounds())
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			d.img.SetRGBA(px, py, c)
		}
	}
	return nil
}

// SetRotation accepts only the unrotated orientation
func (d *ImageDisplay) SetRotation(rotation drivers.Rotation) error {
	if rotation != drivers.Rotation0 {
		return fmt.Errorf("%w: %d", ErrRotation, rotation)
	}
	return nil
}

// Image returns the backing image
func (d *ImageDisplay) Image() *image.RGBA {
	return d.img
}

// WritePNG encodes the canvas
func (d *ImageDisplay) WritePNG(w io.Writer) error {
	if err := png.Encode(w, d.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes the canvas to path
func (d *ImageDisplay) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := d.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
