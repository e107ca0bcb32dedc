package runner

import (
	"context"
	"fmt"

	"github.com/infracollect/tmpcollect/internal/engine"
	"github.com/infracollect/tmpcollect/internal/engine/sinks"
)

// buildSinks creates the archive mirrors requested by cfg.
//
// Default behavior:
//   - No mirror configured: no sinks, archives stay in the base directory only
//   - MirrorDir: filesystem sink rooted at that directory
//   - S3: S3 sink for the bucket and prefix
//
// Both may be configured at once; mirrors run in that order.
func buildSinks(ctx context.Context, cfg Config) ([]engine.Sink, error) {
	var result []engine.Sink

	if cfg.MirrorDir != "" {
		sink, err := sinks.NewFilesystemSinkFromPath(cfg.MirrorDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem mirror: %w", err)
		}
		result = append(result, sink)
	}

	if cfg.S3 != nil {
		sink, err := sinks.NewS3Sink(ctx, sinks.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 mirror: %w", err)
		}
		result = append(result, sink)
	}

	return result, nil
}
