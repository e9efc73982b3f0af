// Package bootstrap provides dependency initialization for the event media API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/eventmedia-api/internal/config"
	"github.com/maauso/eventmedia-api/internal/media"
	"github.com/maauso/eventmedia-api/internal/preview"
	"github.com/maauso/eventmedia-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	PreviewService *preview.Service
	Storage        storage.Storage
	S3Enabled      bool
	// MaxUploadBytes is the request body limit, always above the video limit.
	MaxUploadBytes int64
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)
	normalizer := media.NewNormalizer(processor, store, logger,
		media.WithBlurSigma(cfg.BlurSigma),
		media.WithJPEGQuality(cfg.JPEGQuality),
	)

	svc := preview.NewService(
		preview.NewMemoryRepository(),
		normalizer,
		store,
		logger,
		preview.WithMaxVideoSize(cfg.MaxVideoBytes),
	)

	return &Dependencies{
		PreviewService: svc,
		Storage:        store,
		S3Enabled:      cfg.S3Enabled(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
