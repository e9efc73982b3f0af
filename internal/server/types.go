// Package server provides the HTTP server for the event media API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// DataURLUploadRequest is the JSON request body for uploading a file as a data URL.
type DataURLUploadRequest struct {
	// DataURL is the file encoded as a base64 data URL.
	DataURL string `json:"data_url" validate:"required,datauri"`
	// Filename is the optional display name of the file.
	Filename string `json:"filename" validate:"omitempty,max=255"`
}

// CreatePreviewResponse is the HTTP response after creating or staging a preview.
type CreatePreviewResponse struct {
	// ID is the unique identifier for the preview.
	ID string `json:"id"`
	// Status is the preview status after the request.
	Status string `json:"status"`
}

// PreviewResponse is the HTTP response for getting preview details.
type PreviewResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// MediaType is "image" or "video" once the preview is READY.
	MediaType string `json:"media_type,omitempty"`
	// MediaPreview is the thumbnail as a JPEG data URL.
	MediaPreview string `json:"media_preview,omitempty"`
	// ThumbnailURL is the S3 URL of the thumbnail when it was pushed.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	// Error is the message to show for a FAILED preview.
	Error      string `json:"error,omitempty"`
	Filename   string `json:"filename,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	SourceSize int64  `json:"source_size,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ThumbnailResponse is the HTTP response of a one-shot thumbnail request.
type ThumbnailResponse struct {
	MediaType    string `json:"media_type"`
	MediaPreview string `json:"media_preview"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
