// Package media normalizes user-supplied images and videos into fixed-size
// JPEG thumbnails: a blurred cover background with the full visual
// letterboxed on top.
package media

import (
	"context"
	"time"
)

// VideoInfo is the metadata read from a video stream.
type VideoInfo struct {
	// Width is the display width of the first video stream.
	Width int
	// Height is the display height of the first video stream.
	Height int
	// Duration is the container duration.
	Duration time.Duration
}

// FrameExtractor defines the video operations the normalizer depends on.
// Implementations should use ffmpeg or similar tools.
type FrameExtractor interface {
	// ProbeVideo reads stream metadata without decoding frames.
	ProbeVideo(ctx context.Context, path string) (VideoInfo, error)

	// ExtractFrame seeks to the given offset and returns that frame as PNG bytes.
	ExtractFrame(ctx context.Context, path string, at time.Duration) ([]byte, error)
}
