package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/eventmedia-api/internal/media"
	"github.com/maauso/eventmedia-api/internal/storage"
)

// EventVideoMaxSize is the video limit the event-creation form uses (5 MiB).
const EventVideoMaxSize int64 = 5 * 1024 * 1024

// Thumbnailer is the media normalization the service depends on.
// *media.Normalizer satisfies it.
type Thumbnailer interface {
	Check(f media.File, opts ...media.CallOption) (media.Kind, error)
	Normalize(ctx context.Context, f media.File, opts ...media.CallOption) (media.Result, error)
}

// StageInput describes a file selected for a preview.
type StageInput struct {
	// File is the selected upload.
	File media.File
	// Filename is the client-supplied name, kept for display.
	Filename string
	// PushToS3 uploads the thumbnail to S3 once it is generated.
	PushToS3 bool
}

// Service stages uploads into previews and generates their thumbnails.
type Service struct {
	repo         Repository
	thumbnailer  Thumbnailer
	storage      storage.Storage
	logger       *slog.Logger
	maxVideoSize int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMaxVideoSize sets the video limit applied to every staging request.
func WithMaxVideoSize(size int64) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.maxVideoSize = size
		}
	}
}

// NewService creates a new Service. store may be nil when thumbnails are
// never pushed to S3.
func NewService(repo Repository, thumbnailer Thumbnailer, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:         repo,
		thumbnailer:  thumbnailer,
		storage:      store,
		logger:       logger,
		maxVideoSize: EventVideoMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) callOptions() []media.CallOption {
	return []media.CallOption{media.WithMaxVideoSize(s.maxVideoSize)}
}

// Create persists a new EMPTY preview.
func (s *Service) Create(ctx context.Context) (*Preview, error) {
	p := New()
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save preview: %w", err)
	}

	s.logger.Info("preview created", slog.String("preview_id", p.ID))
	return p, nil
}

// Get retrieves a preview by ID.
func (s *Service) Get(ctx context.Context, id string) (*Preview, error) {
	return s.repo.FindByID(ctx, id)
}

// Delete removes a preview and, when it was pushed, its S3 thumbnail.
// Failing to remove the object does not fail the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if p.ThumbnailURL != "" && s.storage != nil {
		if err := s.storage.Remove(ctx, ThumbnailKey(id)); err != nil {
			s.logger.Warn("failed to remove thumbnail object",
				slog.String("preview_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("preview deleted", slog.String("preview_id", id))
	return nil
}

// Stage runs the type and size gate for a new file. A rejected file fails
// the preview, clearing whatever was staged before, and the gate error is
// returned alongside the updated preview. An accepted file moves the
// preview to PROCESSING and starts a new attempt; call Process with the
// returned preview's Attempt to generate the thumbnail. A preview that is
// still PROCESSING refuses any new file with ErrInvalidTransition.
func (s *Service) Stage(ctx context.Context, id string, in StageInput) (*Preview, error) {
	_, gateErr := s.thumbnailer.Check(in.File, s.callOptions()...)

	p, err := s.repo.Update(ctx, id, func(p *Preview) error {
		if p.GetStatus() == StatusProcessing {
			return fmt.Errorf("%w: preview %s is processing", ErrInvalidTransition, p.ID)
		}
		if gateErr != nil {
			return p.Fail(media.UserMessage(gateErr))
		}
		return p.Begin(in.Filename, in.File.Type(), in.File.Size())
	})
	if err != nil {
		return nil, err
	}

	if gateErr != nil {
		s.logger.Warn("media rejected",
			slog.String("preview_id", id),
			slog.String("type", in.File.Type()),
			slog.Int64("size", in.File.Size()),
			slog.String("error", gateErr.Error()),
		)
		return p, gateErr
	}

	s.logger.Info("media staged",
		slog.String("preview_id", id),
		slog.Uint64("attempt", p.Attempt),
		slog.String("type", in.File.Type()),
		slog.Int64("size", in.File.Size()),
	)
	return p, nil
}

// Process generates the thumbnail for the attempt started by Stage and
// stores the result. Normalization failures are recorded on the preview
// and also returned. The result is discarded with ErrStaleAttempt when the
// preview has moved on to another attempt, and with ErrPreviewNotFound
// when it was deleted meanwhile.
func (s *Service) Process(ctx context.Context, id string, attempt uint64, in StageInput) error {
	logger := s.logger.With(slog.String("preview_id", id), slog.Uint64("attempt", attempt))

	res, err := s.thumbnailer.Normalize(ctx, in.File, s.callOptions()...)
	if err != nil {
		logger.Error("thumbnail generation failed", slog.String("error", err.Error()))
		_ = s.finish(ctx, id, attempt, func(p *Preview) error { return p.Fail(media.UserMessage(err)) })
		return err
	}

	var url string
	if in.PushToS3 {
		url, err = s.upload(ctx, id, res.Thumbnail)
		if err != nil {
			logger.Error("thumbnail upload failed", slog.String("error", err.Error()))
			_ = s.finish(ctx, id, attempt, func(p *Preview) error { return p.Fail(media.DefaultErrorMessage) })
			return err
		}
	}

	if err := s.finish(ctx, id, attempt, func(p *Preview) error {
		return p.Complete(res.Kind, res.Thumbnail.String(), url)
	}); err != nil {
		return err
	}
	logger.Info("thumbnail ready",
		slog.String("kind", string(res.Kind)),
		slog.Bool("pushed_to_s3", url != ""),
	)
	return nil
}

// finish stores the outcome of one attempt. A preview deleted while it was
// processing stays deleted, and a superseded attempt leaves the preview
// untouched.
func (s *Service) finish(ctx context.Context, id string, attempt uint64, fn func(*Preview) error) error {
	_, err := s.repo.Update(context.WithoutCancel(ctx), id, func(p *Preview) error {
		if p.Attempt != attempt {
			return ErrStaleAttempt
		}
		return fn(p)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrPreviewNotFound):
		s.logger.Info("preview deleted during processing", slog.String("preview_id", id))
	case errors.Is(err, ErrStaleAttempt):
		s.logger.Info("discarding superseded result",
			slog.String("preview_id", id),
			slog.Uint64("attempt", attempt),
		)
	default:
		s.logger.Error("failed to store preview result",
			slog.String("preview_id", id),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// Thumbnail normalizes f without staging it.
func (s *Service) Thumbnail(ctx context.Context, f media.File) (media.Result, error) {
	return s.thumbnailer.Normalize(ctx, f, s.callOptions()...)
}

// ThumbnailKey is the S3 object key for a preview's thumbnail.
func ThumbnailKey(id string) string {
	return "thumbnails/" + id + ".jpg"
}

func (s *Service) upload(ctx context.Context, id string, thumb media.DataURL) (string, error) {
	if s.storage == nil {
		return "", storage.ErrS3NotConfigured
	}
	return s.storage.Upload(ctx, ThumbnailKey(id), thumb.MediaType, bytes.NewReader(thumb.Data))
}
