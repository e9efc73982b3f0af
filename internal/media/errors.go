package media

import (
	"errors"
	"fmt"
)

// Static errors for media normalization.
var (
	// ErrUnsupportedType is returned when the declared media type is neither image/* nor video/*.
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrOversizeVideo is returned when a video exceeds the configured maximum byte size.
	ErrOversizeVideo = errors.New("video exceeds maximum size")
	// ErrDecode is returned when an image or video cannot be loaded or decoded.
	ErrDecode = errors.New("media decode failed")
	// ErrContextUnavailable is returned when a drawing surface cannot be allocated.
	ErrContextUnavailable = errors.New("2D drawing context unavailable")
	// ErrRead is returned when the underlying file stream cannot be read.
	ErrRead = errors.New("media read failed")
	// ErrInvalidDataURL is returned when a string is not a base64 data URL.
	ErrInvalidDataURL = errors.New("invalid data URL")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrNoVideoStream is returned when ffprobe reports no usable video stream.
	ErrNoVideoStream = errors.New("no video stream found")
)

// DefaultErrorMessage is shown when a failure carries no more specific message.
const DefaultErrorMessage = "Failed to process media."

// OversizeError reports the limit a rejected video was checked against.
type OversizeError struct {
	Size    int64
	MaxSize int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("%s: %d bytes (max %d)", ErrOversizeVideo, e.Size, e.MaxSize)
}

func (e *OversizeError) Unwrap() error {
	return ErrOversizeVideo
}

// UserMessage converts a normalization failure into the single message shown
// to the user. It returns an empty string for a nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var oversize *OversizeError
	switch {
	case errors.As(err, &oversize):
		return fmt.Sprintf("Video too large. Please select a file under %d bytes.", oversize.MaxSize)
	case errors.Is(err, ErrOversizeVideo):
		return "Video too large."
	case errors.Is(err, ErrUnsupportedType):
		return "Unsupported file type. Please upload image or video."
	case errors.Is(err, ErrContextUnavailable):
		return "Could not get 2D context from canvas."
	default:
		return DefaultErrorMessage
	}
}
