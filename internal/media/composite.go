package media

import "image"

// DefaultBlurSigma approximates a 20px CSS blur.
const DefaultBlurSigma = 20.0

// Source is a decoded visual with its intrinsic size. For video the size
// comes from the stream metadata rather than the decoded frame.
type Source struct {
	Image  image.Image
	Width  int
	Height int
}

// NewImageSource uses the image bounds as the intrinsic size.
func NewImageSource(img image.Image) Source {
	b := img.Bounds()
	return Source{Image: img, Width: b.Dx(), Height: b.Dy()}
}

// drawBlurredCover fills the canvas with a blurred, cropped copy of src.
// The blur is scoped to this draw.
func drawBlurredCover(c *Canvas, src Source, sigma float64) {
	c.Save()
	defer c.Restore()

	c.SetBlur(sigma)
	c.DrawImage(src.Image, CoverRect(src.Width, src.Height, c.Width(), c.Height()))
}

// drawContain draws all of src, letterboxed and centred.
func drawContain(c *Canvas, src Source) {
	c.DrawImage(src.Image, ContainRect(src.Width, src.Height, c.Width(), c.Height()))
}

// Compose renders the two-pass thumbnail of src onto a new canvas of the
// given size: blurred cover background first, contain overlay second.
func Compose(src Source, size Dimensions, blurSigma float64) (*Canvas, error) {
	c, err := NewCanvas(size.Width, size.Height)
	if err != nil {
		return nil, err
	}

	drawBlurredCover(c, src, blurSigma)
	drawContain(c, src)

	return c, nil
}
