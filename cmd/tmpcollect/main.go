package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/infracollect/tmpcollect/internal/runner"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// s3Flags enable the S3 mirror when any of them is set.
var s3Flags = []string{
	"s3-bucket",
	"s3-prefix",
	"s3-region",
	"s3-endpoint",
	"s3-force-path-style",
	"s3-access-key-id",
	"s3-secret-access-key",
}

// app carries the process-scoped state shared by the command hooks.
type app struct {
	out    io.Writer
	logger *zap.Logger
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "tmpcollect",
		Usage:   "Wait for files in <base-dir>/tmp and bundle them into files.tar.gz",
		Version: versionString(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-dir",
				Value: ".",
				Usage: "Base directory where the tmp folder and archives live",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "ERROR",
				Usage: "Log level (DEBUG, INFO, WARNING, ERROR)",
				Action: func(ctx context.Context, command *cli.Command, s string) error {
					_, err := parseLogLevel(s)
					return err
				},
			},
			&cli.StringFlag{
				Name:     "mirror-dir",
				Usage:    "Also copy each batch into this directory",
				Category: "mirrors",
			},
			&cli.StringFlag{
				Name:     "s3-bucket",
				Usage:    "Also upload each batch to this S3 bucket",
				Category: "mirrors",
			},
			&cli.StringFlag{
				Name:     "s3-prefix",
				Usage:    "Key prefix for uploaded batches",
				Category: "mirrors",
			},
			&cli.StringFlag{
				Name:     "s3-region",
				Usage:    "S3 region (defaults to the AWS configuration)",
				Category: "mirrors",
			},
			&cli.StringFlag{
				Name:     "s3-endpoint",
				Usage:    "Endpoint URL for S3-compatible storage",
				Category: "mirrors",
			},
			&cli.BoolFlag{
				Name:     "s3-force-path-style",
				Usage:    "Use path-style S3 addressing",
				Category: "mirrors",
			},
			&cli.StringFlag{
				Name:     "s3-access-key-id",
				Usage:    "Static S3 access key ID (defaults to the AWS credential chain)",
				Category: "mirrors",
				Sources:  cli.EnvVars("TMPCOLLECT_S3_ACCESS_KEY_ID"),
			},
			&cli.StringFlag{
				Name:     "s3-secret-access-key",
				Usage:    "Static S3 secret access key, required with --s3-access-key-id",
				Category: "mirrors",
				Sources:  cli.EnvVars("TMPCOLLECT_S3_SECRET_ACCESS_KEY"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			logger, err := createLogger(command.String("log-level"), isColorTerminal())
			if err != nil {
				return nil, err
			}
			a.logger = logger

			logger.Debug("logger created", zap.String("log_level", command.String("log-level")))

			return ctx, nil
		},
		Action: a.collect,
	}
}

func (a *app) collect(ctx context.Context, command *cli.Command) error {
	r, err := runner.New(ctx, a.logger.Named("runner"), a.runnerConfig(command))
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	return r.Run(ctx)
}

func (a *app) runnerConfig(command *cli.Command) runner.Config {
	cfg := runner.Config{
		BaseDir:   command.String("base-dir"),
		MirrorDir: command.String("mirror-dir"),
		Out:       a.out,
	}

	if lo.SomeBy(s3Flags, command.IsSet) {
		cfg.S3 = &runner.S3Config{
			Bucket:          command.String("s3-bucket"),
			Prefix:          command.String("s3-prefix"),
			Region:          command.String("s3-region"),
			Endpoint:        command.String("s3-endpoint"),
			ForcePathStyle:  command.Bool("s3-force-path-style"),
			AccessKeyID:     command.String("s3-access-key-id"),
			SecretAccessKey: command.String("s3-secret-access-key"),
		}
	}

	return cfg
}

func (a *app) handleExitErr(ctx context.Context, command *cli.Command, err error) {
	if err == nil {
		return
	}

	logger := a.logger
	if logger == nil {
		// The configured logger was never built, e.g. --log-level was rejected.
		fallback, lerr := createLogger("ERROR", false)
		if lerr != nil {
			log.Fatal(fmt.Errorf("an unexpected error occurred: %w", errors.Join(err, lerr)))
		}
		logger = fallback
	}

	logger.Fatal("an unexpected error occurred", zap.Error(err))
}

func main() {
	a := &app{out: os.Stdout}
	cmd := a.command()
	cmd.ExitErrHandler = a.handleExitErr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := cmd.Run(ctx, os.Args); err != nil {
		os.Exit(1)
	}

	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
