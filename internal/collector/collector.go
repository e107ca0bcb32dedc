// Package collector waits for files dropped into <base>/tmp and, once enough
// of them are present, bundles them into <base>/files.tar.gz and removes them.
package collector

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/infracollect/tmpcollect/internal/engine"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// Threshold is the number of valid files that triggers a collection.
	Threshold = 10
	// PollInterval is the wait between two snapshots of the tmp directory.
	PollInterval = time.Second

	TmpDirName        = "tmp"
	LiveArchiveName   = "files.tar.gz"
	CompletionMessage = "files collected"
)

type Config struct {
	// BaseDir holds the tmp directory and the archives. Relative paths are
	// resolved against the working directory.
	BaseDir string
	Logger  *zap.Logger
	Fs      afero.Fs
	Clock   Clock
	// Out receives the completion message.
	Out io.Writer
	// Mirrors receive a copy of every new archive before originals are removed.
	Mirrors []engine.Sink
}

type Collector struct {
	logger  *zap.Logger
	fs      afero.Fs
	clock   Clock
	out     io.Writer
	mirrors []engine.Sink

	baseDir     string
	tmpDir      string
	liveArchive string

	state State
}

func New(cfg Config) (*Collector, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", cfg.BaseDir, err)
	}

	c := &Collector{
		logger:      cfg.Logger,
		fs:          cfg.Fs,
		clock:       cfg.Clock,
		out:         cfg.Out,
		mirrors:     cfg.Mirrors,
		baseDir:     baseDir,
		tmpDir:      filepath.Join(baseDir, TmpDirName),
		liveArchive: filepath.Join(baseDir, LiveArchiveName),
		state:       StateInit,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.clock == nil {
		c.clock = RealClock()
	}
	if c.out == nil {
		c.out = os.Stdout
	}

	return c, nil
}

func (c *Collector) BaseDir() string { return c.baseDir }
func (c *Collector) TmpDir() string  { return c.tmpDir }
func (c *Collector) State() State    { return c.state }

// Initialize creates the base and tmp directories. Existing directories are left untouched.
func (c *Collector) Initialize() error {
	c.logger.Debug("initializing collector", zap.String("base_dir", c.baseDir))

	for _, dir := range []string{c.baseDir, c.tmpDir} {
		if err := c.fs.MkdirAll(dir, 0755); err != nil {
			return fsError("mkdir", dir, err)
		}
	}

	return nil
}

// Poll takes one snapshot of the tmp directory and returns the names of the
// valid regular files in it, in listing order.
func (c *Collector) Poll() ([]string, error) {
	entries, err := afero.ReadDir(c.fs, c.tmpDir)
	if err != nil {
		return nil, fsError("readdir", c.tmpDir, err)
	}

	valid := lo.FilterMap(entries, func(info os.FileInfo, _ int) (string, bool) {
		name := info.Name()
		return name, Classify(name) == Valid && c.isRegularFile(info)
	})

	c.logger.Debug("polled tmp directory",
		zap.String("tmp_dir", c.tmpDir),
		zap.Int("valid_files", len(valid)),
		zap.Int("total_items", len(entries)),
	)

	return valid, nil
}

// isRegularFile follows symlinks; dangling links are not files.
func (c *Collector) isRegularFile(info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular()
	}

	target, err := c.fs.Stat(filepath.Join(c.tmpDir, info.Name()))
	if err != nil {
		return false
	}
	return target.Mode().IsRegular()
}

// Run polls until Threshold valid files are present, then archives them.
// It returns nil once the batch is collected, or the context error if ctx is
// cancelled while waiting.
func (c *Collector) Run(ctx context.Context) error {
	if c.state != StateInit {
		return fmt.Errorf("collector cannot run from state %s", c.state)
	}
	c.state = StatePolling

	c.logger.Debug("waiting for files", zap.Int("threshold", Threshold), zap.String("tmp_dir", c.tmpDir))

	files, err := c.waitForThreshold(ctx)
	if err != nil {
		return err
	}

	return c.ArchiveAndClean(ctx, files)
}

func (c *Collector) waitForThreshold(ctx context.Context) ([]string, error) {
	for {
		files, err := c.Poll()
		if err != nil {
			c.state = StateFailed
			return nil, err
		}

		if len(files) >= Threshold {
			c.logger.Debug("threshold reached", zap.Int("valid_files", len(files)))
			return files, nil
		}

		if err := c.clock.Sleep(ctx, PollInterval); err != nil {
			c.state = StateStopped
			return nil, fmt.Errorf("stopped waiting for files: %w", err)
		}
	}
}
