// Package preview provides the Preview aggregate: the staged thumbnail and
// media type shown while an event is being created, and the service that
// stages media into it.
package preview

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/eventmedia-api/internal/media"
	"github.com/maauso/eventmedia-api/internal/preview/id"
)

// Status represents the current state of a Preview.
type Status string

const (
	// StatusEmpty indicates no media has been staged yet.
	StatusEmpty Status = "EMPTY"
	// StatusProcessing indicates a thumbnail is being generated.
	StatusProcessing Status = "PROCESSING"
	// StatusReady indicates a thumbnail is available.
	StatusReady Status = "READY"
	// StatusFailed indicates the last staging attempt was rejected or failed.
	StatusFailed Status = "FAILED"
)

var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStaleAttempt is returned when a result belongs to a staging attempt
	// that has since been replaced.
	ErrStaleAttempt = errors.New("staging attempt superseded")
)

// validTransitions defines which state transitions are allowed.
// A preview can be re-staged once it is no longer processing.
var validTransitions = map[Status][]Status{
	StatusEmpty:      {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusReady, StatusFailed},
	StatusReady:      {StatusProcessing, StatusFailed},
	StatusFailed:     {StatusProcessing, StatusFailed},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Preview is the staged media state for one event form.
type Preview struct {
	mu sync.RWMutex

	// ID is the unique identifier for this preview.
	ID string
	// Status is the current preview state.
	Status Status
	// MediaType is the kind of the staged media. Empty unless READY.
	MediaType media.Kind
	// MediaPreview is the thumbnail data URL. Empty unless READY.
	MediaPreview string
	// ThumbnailURL is the S3 URL of the thumbnail when it was pushed.
	ThumbnailURL string
	// Error is the user-facing message of the last failure.
	Error string
	// Filename is the client-supplied name of the staged file.
	Filename string
	// SourceType is the declared MIME type of the staged file.
	SourceType string
	// SourceSize is the byte length of the staged file.
	SourceSize int64
	// Attempt counts accepted staging attempts. Only the result of the
	// current attempt may complete the preview.
	Attempt uint64
	// CreatedAt is when the preview was created.
	CreatedAt time.Time
	// UpdatedAt is when the preview was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the last staging attempt finished.
	CompletedAt time.Time
}

// New creates an EMPTY preview with a generated ID.
func New() *Preview {
	return NewWithID(id.Generate())
}

// NewWithID creates an EMPTY preview with the specified ID.
func NewWithID(previewID string) *Preview {
	now := time.Now()
	return &Preview{
		ID:        previewID,
		Status:    StatusEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// transitionTo changes the status. The caller must hold p.mu.
func (p *Preview) transitionTo(status Status) error {
	if !canTransition(p.Status, status) {
		return ErrInvalidTransition
	}

	p.Status = status
	p.UpdatedAt = time.Now()
	if status == StatusReady || status == StatusFailed {
		p.CompletedAt = p.UpdatedAt
	}
	return nil
}

// Begin moves the preview to PROCESSING for a newly selected file and
// starts a new attempt.
func (p *Preview) Begin(filename, sourceType string, size int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.transitionTo(StatusProcessing); err != nil {
		return err
	}
	p.Filename = filename
	p.SourceType = sourceType
	p.SourceSize = size
	p.Error = ""
	p.Attempt++
	return nil
}

// Complete stores the generated thumbnail and moves the preview to READY.
func (p *Preview) Complete(kind media.Kind, thumbnail, thumbnailURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.transitionTo(StatusReady); err != nil {
		return err
	}
	p.MediaType = kind
	p.MediaPreview = thumbnail
	p.ThumbnailURL = thumbnailURL
	return nil
}

// Fail records msg and clears any staged thumbnail and media type, so a
// stale result is never shown next to the error.
func (p *Preview) Fail(msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.transitionTo(StatusFailed); err != nil {
		return err
	}
	p.Error = msg
	p.MediaType = media.KindNone
	p.MediaPreview = ""
	p.ThumbnailURL = ""
	return nil
}

// GetStatus returns the current status (thread-safe).
func (p *Preview) GetStatus() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// Clone creates a copy of the preview for safe reads.
func (p *Preview) Clone() *Preview {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return &Preview{
		ID:           p.ID,
		Status:       p.Status,
		MediaType:    p.MediaType,
		MediaPreview: p.MediaPreview,
		ThumbnailURL: p.ThumbnailURL,
		Error:        p.Error,
		Filename:     p.Filename,
		SourceType:   p.SourceType,
		SourceSize:   p.SourceSize,
		Attempt:      p.Attempt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		CompletedAt:  p.CompletedAt,
	}
}
