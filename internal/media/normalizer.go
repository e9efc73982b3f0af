package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxVideoSize is the video byte limit applied when a call does not
// override it (2 MiB).
const DefaultMaxVideoSize int64 = 2 * 1024 * 1024

// TempStore holds a video's bytes on disk for the duration of a
// normalization. storage.Storage satisfies it.
type TempStore interface {
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)
	CleanupTemp(ctx context.Context, paths []string) error
}

// Result is a produced thumbnail and the kind of media it was made from.
type Result struct {
	Kind      Kind
	Thumbnail DataURL
}

// Normalizer turns images and videos into fixed-size JPEG thumbnails.
// It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	frames       FrameExtractor
	temp         TempStore
	logger       *slog.Logger
	policy       DimensionPolicy
	blurSigma    float64
	quality      int
	maxVideoSize int64
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDimensionPolicy replaces the constant 400x500 policy.
func WithDimensionPolicy(p DimensionPolicy) Option {
	return func(n *Normalizer) {
		if p != nil {
			n.policy = p
		}
	}
}

// WithBlurSigma sets the background blur strength.
func WithBlurSigma(sigma float64) Option {
	return func(n *Normalizer) {
		if sigma >= 0 {
			n.blurSigma = sigma
		}
	}
}

// WithJPEGQuality sets the JPEG quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(n *Normalizer) {
		if q >= 1 && q <= 100 {
			n.quality = q
		}
	}
}

// WithDefaultMaxVideoSize sets the video limit used when a call passes no override.
func WithDefaultMaxVideoSize(size int64) Option {
	return func(n *Normalizer) {
		if size > 0 {
			n.maxVideoSize = size
		}
	}
}

// NewNormalizer creates a Normalizer. frames and temp are only used for
// video input.
func NewNormalizer(frames FrameExtractor, temp TempStore, logger *slog.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{
		frames:       frames,
		temp:         temp,
		logger:       logger,
		policy:       DefaultDimensionPolicy(),
		blurSigma:    DefaultBlurSigma,
		quality:      DefaultJPEGQuality,
		maxVideoSize: DefaultMaxVideoSize,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// callOptions are per-call overrides.
type callOptions struct {
	maxVideoSize int64
}

// CallOption overrides a setting for a single call.
type CallOption func(*callOptions)

// WithMaxVideoSize overrides the video byte limit for one call.
func WithMaxVideoSize(size int64) CallOption {
	return func(o *callOptions) {
		if size > 0 {
			o.maxVideoSize = size
		}
	}
}

// Check classifies f and applies the size gate without decoding anything.
// It returns ErrUnsupportedType for types other than image/* and video/*,
// and an *OversizeError for videos over the limit.
func (n *Normalizer) Check(f File, opts ...CallOption) (Kind, error) {
	o := callOptions{maxVideoSize: n.maxVideoSize}
	for _, opt := range opts {
		opt(&o)
	}

	kind := Classify(f.Type())
	switch kind {
	case KindImage:
		return kind, nil
	case KindVideo:
		if f.Size() > o.maxVideoSize {
			return KindNone, &OversizeError{Size: f.Size(), MaxSize: o.maxVideoSize}
		}
		return kind, nil
	default:
		return KindNone, fmt.Errorf("%w: %q", ErrUnsupportedType, f.Type())
	}
}

// Normalize gates f and routes it to the image or video path.
func (n *Normalizer) Normalize(ctx context.Context, f File, opts ...CallOption) (Result, error) {
	kind, err := n.Check(f, opts...)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	var thumb DataURL
	if kind == KindVideo {
		thumb, err = n.NormalizeVideo(ctx, f)
	} else {
		thumb, err = n.NormalizeImage(ctx, f)
	}
	if err != nil {
		return Result{}, err
	}

	n.logger.Debug("thumbnail generated",
		slog.String("kind", string(kind)),
		slog.Int64("input_bytes", f.Size()),
		slog.Int("output_bytes", len(thumb.Data)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return Result{Kind: kind, Thumbnail: thumb}, nil
}

// NormalizeImage renders a thumbnail from a still image.
func (n *Normalizer) NormalizeImage(ctx context.Context, f File) (DataURL, error) {
	if err := ctx.Err(); err != nil {
		return DataURL{}, fmt.Errorf("normalize image: %w", err)
	}

	raw, err := FileToDataURL(f)
	if err != nil {
		return DataURL{}, err
	}

	img, err := decodeImage(raw.Data)
	if err != nil {
		return DataURL{}, err
	}

	return n.render(NewImageSource(img))
}

// NormalizeVideo renders a thumbnail from the frame at time zero. The
// video is staged in the temp store and released on every return path.
func (n *Normalizer) NormalizeVideo(ctx context.Context, f File) (DataURL, error) {
	if n.frames == nil || n.temp == nil {
		return DataURL{}, fmt.Errorf("%w: video support is not configured", ErrDecode)
	}

	ref, err := n.acquire(ctx, f)
	if err != nil {
		return DataURL{}, err
	}
	defer ref.Release(ctx)

	info, err := n.frames.ProbeVideo(ctx, ref.Path())
	if err != nil {
		return DataURL{}, n.videoError(ctx, "probe video", err)
	}

	frame, err := n.frames.ExtractFrame(ctx, ref.Path(), 0)
	if err != nil {
		return DataURL{}, n.videoError(ctx, "extract frame", err)
	}

	img, err := decodeImage(frame)
	if err != nil {
		return DataURL{}, err
	}

	// The extracted frame is already display-rotated, so its bounds are
	// the intrinsic size. Stream metadata reports the coded size.
	src := NewImageSource(img)
	if src.Width != info.Width || src.Height != info.Height {
		n.logger.Debug("frame size differs from stream size",
			slog.Int("stream_width", info.Width),
			slog.Int("stream_height", info.Height),
			slog.Int("frame_width", src.Width),
			slog.Int("frame_height", src.Height),
		)
	}
	return n.render(src)
}

// videoError keeps cancellation distinguishable from decode failure.
func (n *Normalizer) videoError(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", step, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrDecode, step, err)
}

func (n *Normalizer) render(src Source) (DataURL, error) {
	size := n.policy.Dimensions(src.Width, src.Height)
	n.logger.Debug("computed target dimensions",
		slog.Int("source_width", src.Width),
		slog.Int("source_height", src.Height),
		slog.Int("width", size.Width),
		slog.Int("height", size.Height),
	)

	canvas, err := Compose(src, size, n.blurSigma)
	if err != nil {
		return DataURL{}, err
	}

	return encodeJPEG(canvas.Image(), n.quality)
}

// tempRef is a video staged on disk. Release is idempotent.
type tempRef struct {
	store  TempStore
	path   string
	logger *slog.Logger
	once   sync.Once
}

func (n *Normalizer) acquire(ctx context.Context, f File) (*tempRef, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrRead, err)
	}
	defer func() { _ = rc.Close() }()

	path, err := n.temp.SaveTemp(ctx, "video", rc)
	if err != nil {
		return nil, fmt.Errorf("%w: stage video: %w", ErrRead, err)
	}

	return &tempRef{store: n.temp, path: path, logger: n.logger}, nil
}

// Path returns the on-disk location of the staged video.
func (r *tempRef) Path() string { return r.path }

// Release removes the staged video. It runs even when ctx is already done.
func (r *tempRef) Release(ctx context.Context) {
	r.once.Do(func() {
		if err := r.store.CleanupTemp(context.WithoutCancel(ctx), []string{r.path}); err != nil {
			r.logger.Warn("failed to release temp video",
				slog.String("path", r.path),
				slog.String("error", err.Error()),
			)
		}
	})
}
