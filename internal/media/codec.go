package media

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for formats browsers accept but the standard library lacks.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// ThumbnailMediaType is the media type of every encoded thumbnail.
const ThumbnailMediaType = "image/jpeg"

// DefaultJPEGQuality matches a 0.8 lossy quality factor.
const DefaultJPEGQuality = 80

// maxDecodePixels bounds the pixel count of a source image. It matches the
// canvas limit so a decoded source can always be drawn.
const maxDecodePixels = maxCanvasPixels

// decodeImage decodes still-image bytes, honouring EXIF orientation. The
// header is checked first so oversized images are refused before their
// pixels are allocated.
func decodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxDecodePixels {
		return nil, fmt.Errorf("%w: image is %dx%d, over %d pixels", ErrDecode, cfg.Width, cfg.Height, maxDecodePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// encodeJPEG encodes img as a JPEG data URL.
func encodeJPEG(img image.Image, quality int) (DataURL, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return DataURL{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	return DataURL{MediaType: ThumbnailMediaType, Data: buf.Bytes()}, nil
}
