package media

import (
	"image"
	"math"
)

// Rect is a placement on the canvas in fractional pixels. X and Y may be
// negative when the placement overflows the canvas.
type Rect struct {
	X, Y, W, H float64
}

// Bounds rounds the placement to integer pixel edges.
func (r Rect) Bounds() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.W))
	y1 := int(math.Round(r.Y + r.H))
	return image.Rect(x0, y0, x1, y1)
}

// Empty reports whether the placement draws nothing.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// CoverRect places a srcW x srcH source so that it fills the canvas,
// cropping overflow. A source relatively wider than the canvas is fitted to
// the canvas height and centred horizontally; otherwise it is fitted to the
// canvas width and centred vertically.
func CoverRect(srcW, srcH, canvasW, canvasH int) Rect {
	if srcW <= 0 || srcH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return Rect{}
	}

	cw, ch := float64(canvasW), float64(canvasH)
	sw, sh := float64(srcW), float64(srcH)

	if sw/sh > cw/ch {
		w := sw * (ch / sh)
		return Rect{X: (cw - w) / 2, Y: 0, W: w, H: ch}
	}
	h := sh * (cw / sw)
	return Rect{X: 0, Y: (ch - h) / 2, W: cw, H: h}
}

// ContainRect places a srcW x srcH source so that all of it is visible,
// centred on both axes. A source relatively wider than the canvas is fitted
// to the canvas width; otherwise it is fitted to the canvas height.
func ContainRect(srcW, srcH, canvasW, canvasH int) Rect {
	if srcW <= 0 || srcH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return Rect{}
	}

	cw, ch := float64(canvasW), float64(canvasH)
	sw, sh := float64(srcW), float64(srcH)

	var w, h float64
	if sw/sh > cw/ch {
		w = cw
		h = sh * (cw / sw)
	} else {
		h = ch
		w = sw * (ch / sh)
	}
	return Rect{X: (cw - w) / 2, Y: (ch - h) / 2, W: w, H: h}
}
