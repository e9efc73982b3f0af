// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins" validate:"min=1,dive,required"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/eventmedia" json:"temp_dir" validate:"required"`

	// Thumbnail settings
	MaxVideoBytes int64   `env:"MAX_VIDEO_BYTES, default=5242880" json:"max_video_bytes" validate:"gt=0,lte=1073741824"`
	BlurSigma     float64 `env:"THUMBNAIL_BLUR_SIGMA, default=20" json:"thumbnail_blur_sigma" validate:"gte=0,lte=100"`
	JPEGQuality   int     `env:"THUMBNAIL_JPEG_QUALITY, default=80" json:"thumbnail_jpeg_quality" validate:"min=1,max=100"`
	FFmpegPath    string  `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath   string  `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// UploadMaxBytes overrides the derived request body limit. It must
	// exceed MAX_VIDEO_BYTES so oversize videos still reach the size check.
	UploadMaxBytes int64 `env:"UPLOAD_MAX_BYTES" json:"upload_max_bytes,omitempty" validate:"omitempty,gtfield=MaxVideoBytes"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" validate:"required_with=S3Bucket"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`                                                  // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-" validate:"required_with=AWSAccessKeyID"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=json text"`                 // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error"` // "debug", "info", "warn", "error"
}

// Request body limits derived from the video limit.
const (
	minUploadBytes int64 = 32 << 20
	uploadOverhead int64 = 1 << 20
)

// MaxUploadBytes returns the request body limit. Unless UPLOAD_MAX_BYTES is
// set it is large enough for a video at the limit sent as a base64 data URL,
// and never below 32 MiB.
func (c *Config) MaxUploadBytes() int64 {
	if c.UploadMaxBytes > 0 {
		return c.UploadMaxBytes
	}
	encoded := (c.MaxVideoBytes + 2) / 3 * 4
	return max(encoded+uploadOverhead, minUploadBytes)
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its validate tag. Failures are
// reported by environment variable name.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(envName)

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
}

// envName returns the variable name from a field's env tag.
func envName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
	if name == "" {
		return f.Name
	}
	return strings.TrimSpace(name)
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, AllowedOrigins: %v, TempDir: %s, MaxVideoBytes: %d, MaxUploadBytes: %d, BlurSigma: %g, JPEGQuality: %d, FFmpegPath: %s, FFprobePath: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.AllowedOrigins,
		c.TempDir,
		c.MaxVideoBytes,
		c.MaxUploadBytes(),
		c.BlurSigma,
		c.JPEGQuality,
		c.FFmpegPath,
		c.FFprobePath,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
