package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/eventmedia-api/internal/media"
	"github.com/maauso/eventmedia-api/internal/preview"
	"github.com/maauso/eventmedia-api/internal/storage"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *preview.Service
	storage            storage.Storage
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
	s3Enabled          bool
	maxUploadBytes     int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, thumbnails are generated before the response is written.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithS3Enabled allows clients to request push_to_s3.
func WithS3Enabled(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.s3Enabled = enabled
	}
}

// WithMaxUploadBytes bounds the size of a request body.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance. store holds uploads while
// their thumbnails are generated.
func NewHandlers(service *preview.Service, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		storage:            store,
		validator:          validator.New(validator.WithRequiredStructEnabled()),
		logger:             logger,
		enableAsyncProcess: true,
		maxUploadBytes:     DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreatePreview handles POST /previews requests. A request without a body
// creates an EMPTY preview; a request with a file also stages it.
func (h *Handlers) CreatePreview(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	if r.ContentLength == 0 {
		p, err := h.service.Create(r.Context())
		if err != nil {
			logger.Error("failed to create preview", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to create preview", "PREVIEW_CREATION_FAILED")
			return
		}
		writeJSON(w, http.StatusCreated, CreatePreviewResponse{ID: p.ID, Status: string(p.GetStatus())})
		return
	}

	pushToS3, err := h.pushToS3(r)
	if err != nil {
		h.writeAPIError(w, logger, err)
		return
	}

	f, filename, err := h.readUpload(w, r)
	if err != nil {
		h.writeAPIError(w, logger, err)
		return
	}

	p, err := h.service.Create(r.Context())
	if err != nil {
		f.release(r.Context(), logger)
		logger.Error("failed to create preview", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create preview", "PREVIEW_CREATION_FAILED")
		return
	}

	in := preview.StageInput{File: f, Filename: filename, PushToS3: pushToS3}
	staged, err := h.service.Stage(r.Context(), p.ID, in)
	if err != nil {
		f.release(r.Context(), logger)
		// A preview that never accepted a file is not kept.
		if delErr := h.service.Delete(context.WithoutCancel(r.Context()), p.ID); delErr != nil {
			logger.Warn("failed to delete rejected preview",
				slog.String("preview_id", p.ID),
				slog.String("error", delErr.Error()),
			)
		}
		h.writeAPIError(w, logger, err)
		return
	}

	h.process(r.Context(), p.ID, staged.Attempt, in, f)
	h.writeStaged(w, r, p.ID)
}

// StageMedia handles PUT /previews/{id}/media requests. It replaces the
// staged file of an existing preview.
func (h *Handlers) StageMedia(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	previewID := r.PathValue("id")
	if previewID == "" {
		writeError(w, http.StatusBadRequest, "preview ID is required", "MISSING_PREVIEW_ID")
		return
	}

	pushToS3, err := h.pushToS3(r)
	if err != nil {
		h.writeAPIError(w, logger, err)
		return
	}

	if _, err := h.service.Get(r.Context(), previewID); err != nil {
		h.writeAPIError(w, logger, err)
		return
	}

	f, filename, err := h.readUpload(w, r)
	if err != nil {
		h.writeAPIError(w, logger, err)
		return
	}

	in := preview.StageInput{File: f, Filename: filename, PushToS3: pushToS3}
	staged, err := h.service.Stage(r.Context(), previewID, in)
	if err != nil {
		f.release(r.Context(), logger)
		h.writeAPIError(w, logger, err)
		return
	}

	h.process(r.Context(), previewID, staged.Attempt, in, f)
	h.writeStaged(w, r, previewID)
}

// GetPreview handles GET /previews/{id} requests.
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	previewID := r.PathValue("id")
	if previewID == "" {
		writeError(w, http.StatusBadRequest, "preview ID is required", "MISSING_PREVIEW_ID")
		return
	}

	p, err := h.service.Get(r.Context(), previewID)
	if err != nil {
		h.writeAPIError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusOK, toPreviewResponse(p))
}

// DeletePreview handles DELETE /previews/{id} requests.
func (h *Handlers) DeletePreview(w http.ResponseWriter, r *http.Request) {
	previewID := r.PathValue("id")
	if previewID == "" {
		writeError(w, http.StatusBadRequest, "preview ID is required", "MISSING_PREVIEW_ID")
		return
	}

	if err := h.service.Delete(r.Context(), previewID); err != nil {
		h.writeAPIError(w, h.requestLogger(r), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateThumbnail handles POST /thumbnails requests. It normalizes the
// uploaded file and returns the thumbnail without creating a preview.
func (h *Handlers) CreateThumbnail(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	f, _, err := h.readUpload(w, r)
	if err != nil {
		h.writeAPIError(w, logger, err)
		return
	}
	defer f.release(r.Context(), logger)

	res, err := h.service.Thumbnail(r.Context(), f)
	if err != nil {
		h.writeAPIError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ThumbnailResponse{
		MediaType:    string(res.Kind),
		MediaPreview: res.Thumbnail.String(),
	})
}

// process generates the thumbnail for a staged preview, in the background
// unless async processing is disabled. The spooled file is released after.
func (h *Handlers) process(ctx context.Context, previewID string, attempt uint64, in preview.StageInput, f *spooledFile) {
	run := func(ctx context.Context) {
		defer f.release(ctx, h.logger)
		err := h.service.Process(ctx, previewID, attempt, in)
		if errors.Is(err, preview.ErrPreviewNotFound) || errors.Is(err, preview.ErrStaleAttempt) {
			return
		}
		if err != nil {
			h.logger.Error("background processing failed",
				slog.String("preview_id", previewID),
				slog.String("error", err.Error()),
			)
		}
	}

	// Use context.WithoutCancel so processing survives the end of the request
	if h.enableAsyncProcess {
		go run(context.WithoutCancel(ctx))
		return
	}
	run(ctx)
}

func (h *Handlers) writeStaged(w http.ResponseWriter, r *http.Request, previewID string) {
	status := string(preview.StatusProcessing)
	if !h.enableAsyncProcess {
		if p, err := h.service.Get(r.Context(), previewID); err == nil {
			status = string(p.Status)
		}
	}
	writeJSON(w, http.StatusAccepted, CreatePreviewResponse{ID: previewID, Status: status})
}

// pushToS3 reads the push_to_s3 query parameter.
func (h *Handlers) pushToS3(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("push_to_s3")
	if raw == "" {
		return false, nil
	}
	push, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &apiError{http.StatusBadRequest, "INVALID_QUERY", "push_to_s3 must be a boolean"}
	}
	if push && !h.s3Enabled {
		return false, &apiError{http.StatusBadRequest, "S3_NOT_CONFIGURED", "S3 storage is not configured"}
	}
	return push, nil
}

func (h *Handlers) requestLogger(r *http.Request) *slog.Logger {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return h.logger.With(slog.String("request_id", id))
	}
	return h.logger
}

func toPreviewResponse(p *preview.Preview) PreviewResponse {
	resp := PreviewResponse{
		ID:           p.ID,
		Status:       string(p.Status),
		MediaType:    string(p.MediaType),
		MediaPreview: p.MediaPreview,
		ThumbnailURL: p.ThumbnailURL,
		Error:        p.Error,
		Filename:     p.Filename,
		SourceType:   p.SourceType,
		SourceSize:   p.SourceSize,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if !p.CompletedAt.IsZero() {
		completed := p.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// errorStatus maps a domain error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusBadRequest, "UNSUPPORTED_TYPE"
	case errors.Is(err, media.ErrOversizeVideo):
		return http.StatusRequestEntityTooLarge, "VIDEO_TOO_LARGE"
	case errors.Is(err, media.ErrDecode):
		return http.StatusUnprocessableEntity, "DECODE_FAILED"
	case errors.Is(err, media.ErrContextUnavailable):
		return http.StatusInternalServerError, "CANVAS_UNAVAILABLE"
	case errors.Is(err, media.ErrRead):
		return http.StatusInternalServerError, "READ_FAILED"
	case errors.Is(err, preview.ErrPreviewNotFound):
		return http.StatusNotFound, "PREVIEW_NOT_FOUND"
	case errors.Is(err, preview.ErrInvalidTransition):
		return http.StatusConflict, "PREVIEW_BUSY"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "REQUEST_CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeAPIError writes the response for a request or domain error.
func (h *Handlers) writeAPIError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		logger.Warn("request rejected",
			slog.String("code", apiErr.code),
			slog.String("error", apiErr.message),
		)
		writeError(w, apiErr.status, apiErr.message, apiErr.code)
		return
	}

	status, code := errorStatus(err)
	message := media.UserMessage(err)
	switch code {
	case "PREVIEW_NOT_FOUND":
		message = "preview not found"
	case "PREVIEW_BUSY":
		message = "preview is still processing"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("code", code), slog.String("error", err.Error()))
	} else {
		logger.Warn("request rejected", slog.String("code", code), slog.String("error", err.Error()))
	}
	writeError(w, status, message, code)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
