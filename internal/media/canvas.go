package media

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// maxCanvasPixels bounds the surface NewCanvas will allocate.
const maxCanvasPixels = 50_000_000

// drawState is the part of the canvas state covered by Save and Restore.
type drawState struct {
	blurSigma float64
}

// Canvas is a fixed-size RGBA drawing surface with a save/restore stack for
// its drawing state. A Canvas is not safe for concurrent use.
type Canvas struct {
	img   *image.NRGBA
	state drawState
	saved []drawState
}

// NewCanvas allocates a transparent w x h surface. It returns
// ErrContextUnavailable when the surface cannot be allocated.
func NewCanvas(w, h int) (*Canvas, error) {
	if w <= 0 || h <= 0 || int64(w)*int64(h) > maxCanvasPixels {
		return nil, fmt.Errorf("%w: cannot allocate %dx%d surface", ErrContextUnavailable, w, h)
	}
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, w, h))}, nil
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Image returns the backing image.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// Save pushes the current drawing state.
func (c *Canvas) Save() {
	c.saved = append(c.saved, c.state)
}

// Restore pops the most recently saved drawing state. It is a no-op when
// nothing was saved.
func (c *Canvas) Restore() {
	if len(c.saved) == 0 {
		return
	}
	c.state = c.saved[len(c.saved)-1]
	c.saved = c.saved[:len(c.saved)-1]
}

// SetBlur sets the Gaussian blur applied to subsequent draws.
// Zero disables blurring.
func (c *Canvas) SetBlur(sigma float64) {
	if sigma < 0 {
		sigma = 0
	}
	c.state.blurSigma = sigma
}

// Blur returns the current blur sigma.
func (c *Canvas) Blur() float64 { return c.state.blurSigma }

// DrawImage scales src into dst and composites it over the canvas, applying
// the current blur. Parts of dst outside the canvas are clipped before
// scaling, so only the visible region plus a blur margin is resampled.
func (c *Canvas) DrawImage(src image.Image, dst Rect) {
	if dst.Empty() {
		return
	}
	r := dst.Bounds()
	if r.Empty() || !r.Overlaps(c.img.Rect) {
		return
	}

	margin := int(math.Ceil(c.state.blurSigma * 3))
	area := r.Intersect(c.img.Rect).Inset(-margin).Intersect(r)

	scaled := imaging.Resize(cropToArea(src, r, area), area.Dx(), area.Dy(), imaging.Linear)
	if c.state.blurSigma > 0 {
		scaled = imaging.Blur(scaled, c.state.blurSigma)
	}

	draw.Draw(c.img, area, scaled, image.Point{}, draw.Over)
}

// cropToArea returns the part of src that lands in area when the whole of
// src is scaled into r.
func cropToArea(src image.Image, r, area image.Rectangle) image.Image {
	if area == r {
		return src
	}

	sb := src.Bounds()
	sx := float64(sb.Dx()) / float64(r.Dx())
	sy := float64(sb.Dy()) / float64(r.Dy())

	crop := image.Rect(
		sb.Min.X+int(math.Floor(float64(area.Min.X-r.Min.X)*sx)),
		sb.Min.Y+int(math.Floor(float64(area.Min.Y-r.Min.Y)*sy)),
		sb.Min.X+int(math.Ceil(float64(area.Max.X-r.Min.X)*sx)),
		sb.Min.Y+int(math.Ceil(float64(area.Max.Y-r.Min.Y)*sy)),
	).Intersect(sb)
	if crop.Empty() {
		return src
	}

	return imaging.Crop(src, crop)
}
