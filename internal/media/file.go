package media

import (
	"bytes"
	"io"
	"strings"
)

// Kind is the media category a declared type routes to.
type Kind string

const (
	// KindNone means no media is staged.
	KindNone Kind = ""
	// KindImage routes to the image path.
	KindImage Kind = "image"
	// KindVideo routes to the video path.
	KindVideo Kind = "video"
)

// File is a caller-supplied upload: a declared media type, a byte length and
// a readable stream. Open may be called more than once.
type File interface {
	// Type returns the declared MIME type, e.g. "image/png".
	Type() string
	// Size returns the byte length of the file.
	Size() int64
	// Open returns a fresh reader over the file contents.
	// The caller is responsible for closing it.
	Open() (io.ReadCloser, error)
}

// Classify returns the Kind for a declared media type, or KindNone when the
// type is neither image/* nor video/*.
func Classify(mediaType string) Kind {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo
	default:
		return KindNone
	}
}

// BytesFile is an in-memory File.
type BytesFile struct {
	mediaType string
	data      []byte
}

// NewBytesFile wraps data with a declared media type.
func NewBytesFile(mediaType string, data []byte) *BytesFile {
	return &BytesFile{mediaType: mediaType, data: data}
}

// Type implements File.
func (f *BytesFile) Type() string { return f.mediaType }

// Size implements File.
func (f *BytesFile) Size() int64 { return int64(len(f.data)) }

// Open implements File.
func (f *BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
