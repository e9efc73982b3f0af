package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/maauso/eventmedia-api/internal/media"
	"github.com/maauso/eventmedia-api/internal/storage"
)

// DefaultMaxUploadBytes bounds a request body unless WithMaxUploadBytes is
// given. A raised video limit needs a body limit above it so that oversize
// videos get a VIDEO_TOO_LARGE response.
const DefaultMaxUploadBytes int64 = 32 << 20

// multipartMemory is how much of a multipart form is held in memory.
const multipartMemory = 8 << 20

// apiError is a request failure with its HTTP status and error code.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.code + ": " + e.message }

// spooledFile is an upload copied to temp storage so it outlives the request.
type spooledFile struct {
	store     storage.Storage
	path      string
	mediaType string
	size      int64
}

var _ media.File = (*spooledFile)(nil)

func (f *spooledFile) Type() string { return f.mediaType }
func (f *spooledFile) Size() int64  { return f.size }

func (f *spooledFile) Open() (io.ReadCloser, error) {
	return f.store.LoadTemp(context.Background(), f.path)
}

// release removes the spooled copy, even after ctx is done.
func (f *spooledFile) release(ctx context.Context, logger *slog.Logger) {
	if err := f.store.CleanupTemp(context.WithoutCancel(ctx), []string{f.path}); err != nil {
		logger.Warn("failed to remove spooled upload",
			slog.String("path", f.path),
			slog.String("error", err.Error()),
		)
	}
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// readUpload extracts the file from a multipart form field "file" or a
// JSON {data_url} body and spools it to temp storage. The returned file
// must be released by the caller.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*spooledFile, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", &apiError{http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT_TYPE", "Content-Type must be multipart/form-data or application/json"}
	}

	var (
		body      io.Reader
		filename  string
		mediaType string
	)
	switch contentType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, "", requestBodyError(err, "invalid multipart form", "INVALID_FORM")
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", &apiError{http.StatusBadRequest, "MISSING_FILE", "form field \"file\" is required"}
		}
		defer func() { _ = file.Close() }()

		body = file
		filename = header.Filename
		mediaType = header.Header.Get("Content-Type")

	case "application/json":
		var req DataURLUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, "", requestBodyError(err, "invalid JSON body", "INVALID_JSON")
		}
		if err := h.validator.Struct(req); err != nil {
			return nil, "", &apiError{http.StatusBadRequest, "VALIDATION_ERROR", err.Error()}
		}
		d, err := media.ParseDataURL(req.DataURL)
		if err != nil {
			return nil, "", &apiError{http.StatusBadRequest, "INVALID_DATA_URL", err.Error()}
		}

		body = bytes.NewReader(d.Data)
		filename = req.Filename
		mediaType = d.MediaType

	default:
		return nil, "", &apiError{http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT_TYPE", "Content-Type must be multipart/form-data or application/json"}
	}

	counter := &countingReader{r: body}
	path, err := h.storage.SaveTemp(r.Context(), "upload", counter)
	if err != nil {
		return nil, "", requestBodyError(err, "failed to store upload", "UPLOAD_FAILED")
	}

	f := &spooledFile{store: h.storage, path: path, mediaType: normalizeMediaType(mediaType), size: counter.n}
	if f.mediaType == "" {
		f.mediaType, err = sniffMediaType(f)
		if err != nil {
			f.release(r.Context(), h.logger)
			return nil, "", &apiError{http.StatusInternalServerError, "UPLOAD_FAILED", "failed to read upload"}
		}
	}

	return f, filename, nil
}

// normalizeMediaType strips parameters and treats the generic binary type
// as undeclared.
func normalizeMediaType(declared string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return ""
	}
	mt = strings.ToLower(mt)
	if mt == "application/octet-stream" {
		return ""
	}
	return mt
}

// sniffMediaType detects the type of an upload sent without one.
func sniffMediaType(f *spooledFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	mt, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", err
	}
	declared, _, _ := strings.Cut(mt.String(), ";")
	return declared, nil
}

// requestBodyError maps body read failures, reporting an oversized body as 413.
func requestBodyError(err error, message, code string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &apiError{http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "request body too large"}
	}
	return &apiError{http.StatusBadRequest, code, message}
}
