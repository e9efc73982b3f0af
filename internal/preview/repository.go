package preview

import (
	"context"
	"errors"
)

// ErrPreviewNotFound is returned when a preview cannot be found by ID.
var ErrPreviewNotFound = errors.New("preview not found")

// Repository defines the interface for preview persistence.
type Repository interface {
	// Save persists a preview, replacing any existing one with the same ID.
	Save(ctx context.Context, p *Preview) error

	// FindByID retrieves a preview by its unique identifier.
	// Returns ErrPreviewNotFound if the preview does not exist.
	FindByID(ctx context.Context, id string) (*Preview, error)

	// Update applies fn to the stored preview and saves the result atomically.
	// Returns ErrPreviewNotFound if the preview does not exist; errors from fn
	// abort the update.
	Update(ctx context.Context, id string, fn func(*Preview) error) (*Preview, error)

	// Delete removes a preview from storage.
	// Returns ErrPreviewNotFound if the preview does not exist.
	Delete(ctx context.Context, id string) error
}
