package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/infracollect/tmpcollect/internal/collector"
	"github.com/infracollect/tmpcollect/internal/engine"
	"go.uber.org/zap"
)

// Config is the validated command line configuration of a collection run.
type Config struct {
	BaseDir string `validate:"required"`

	// MirrorDir receives a copy of each batch when set.
	MirrorDir string

	// S3 mirrors each batch to a bucket when set.
	S3 *S3Config

	// Out receives the completion message; defaults to stdout.
	Out io.Writer
}

type S3Config struct {
	Bucket         string `validate:"required"`
	Prefix         string
	Region         string
	Endpoint       string `validate:"omitempty,url"`
	ForcePathStyle bool

	// Static credentials are used only as a pair; otherwise the default AWS
	// credential chain applies.
	AccessKeyID     string `validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
}

type Runner struct {
	logger    *zap.Logger
	collector *collector.Collector
	sinks     []engine.Sink
}

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Validate checks cfg against its struct tags.
func (c Config) Validate() error {
	if err := defaultValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func New(ctx context.Context, logger *zap.Logger, cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("creating runner", zap.String("base_dir", cfg.BaseDir))

	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build mirrors: %w", err)
	}

	for _, sink := range sinks {
		logger.Info("mirroring archives", zap.String("sink", sink.Name()), zap.String("kind", sink.Kind()))
	}

	c, err := collector.New(collector.Config{
		BaseDir: cfg.BaseDir,
		Logger:  logger.Named("collector"),
		Out:     cfg.Out,
		Mirrors: sinks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collector: %w", err)
	}

	return &Runner{
		logger:    logger,
		collector: c,
		sinks:     sinks,
	}, nil
}

// Collector exposes the underlying collector, mostly for inspection after Run.
func (r *Runner) Collector() *collector.Collector {
	return r.collector
}

// Run prepares the directories and blocks until one batch has been collected.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		// Use a background context so mirrors are released even after cancellation.
		cleanupCtx := context.Background()
		for _, sink := range r.sinks {
			if err := sink.Close(cleanupCtx); err != nil {
				r.logger.Error("failed to close mirror", zap.String("sink", sink.Name()), zap.Error(err))
			}
		}
	}()

	if err := r.collector.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize collector: %w", err)
	}

	if err := r.collector.Run(ctx); err != nil {
		return fmt.Errorf("failed to collect files: %w", err)
	}

	return nil
}
