package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// DataURL is a self-describing media payload, rendered as
// "data:<type>;base64,<payload>".
type DataURL struct {
	MediaType string
	Data      []byte
}

// String renders the data URL.
func (d DataURL) String() string {
	mediaType := d.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// FileToDataURL reads the whole file into a DataURL. No type filtering is done.
func FileToDataURL(f File) (DataURL, error) {
	rc, err := f.Open()
	if err != nil {
		return DataURL{}, fmt.Errorf("%w: open: %w", ErrRead, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return DataURL{}, fmt.Errorf("%w: %w", ErrRead, err)
	}

	return DataURL{MediaType: f.Type(), Data: data}, nil
}

// ParseDataURL parses a base64 data URL. Parameters other than the media
// type (e.g. charset) are dropped.
func ParseDataURL(s string) (DataURL, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return DataURL{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURL{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}

	params := strings.Split(header, ";")
	if params[len(params)-1] != "base64" {
		return DataURL{}, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURL{}, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}

	return DataURL{MediaType: strings.ToLower(params[0]), Data: data}, nil
}

// File returns the data URL as a File carrying its media type.
func (d DataURL) File() File {
	return NewBytesFile(d.MediaType, d.Data)
}
