package collector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/infracollect/tmpcollect/internal/engine"
	"github.com/infracollect/tmpcollect/internal/engine/archivers"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RotatedArchiveName is the name a live archive takes when rotated at t.
func RotatedArchiveName(t time.Time) string {
	return fmt.Sprintf("files_%s.tar.gz", t.Format(engine.ArchiveTimestamp))
}

// RotateExistingArchive renames files.tar.gz to its timestamped name and
// returns the new path. It returns an empty path when there is nothing to
// rotate, and ErrArchiveExists rather than replacing an older archive.
func (c *Collector) RotateExistingArchive() (string, error) {
	return c.rotate(c.clock.Now())
}

func (c *Collector) rotate(now time.Time) (string, error) {
	exists, err := afero.Exists(c.fs, c.liveArchive)
	if err != nil {
		return "", fsError("stat", c.liveArchive, err)
	}
	if !exists {
		c.logger.Debug("no live archive to rotate", zap.String("archive", c.liveArchive))
		return "", nil
	}

	target := filepath.Join(c.baseDir, RotatedArchiveName(now))

	taken, err := afero.Exists(c.fs, target)
	if err != nil {
		return "", fsError("stat", target, err)
	}
	if taken {
		return "", fsError("rename", target, ErrArchiveExists)
	}

	if err := c.fs.Rename(c.liveArchive, target); err != nil {
		return "", fsError("rename", c.liveArchive, err)
	}

	c.logger.Debug("rotated live archive", zap.String("from", c.liveArchive), zap.String("to", target))

	return target, nil
}

// ArchiveAndClean rotates the live archive, writes files (names relative to
// the tmp directory) into a new files.tar.gz, mirrors it, deletes the
// originals and prints the completion message. Any error aborts the whole
// operation; a partially written archive is left in place.
func (c *Collector) ArchiveAndClean(ctx context.Context, files []string) (err error) {
	if c.state.Terminal() || c.state == StateArchiving {
		return fmt.Errorf("collector cannot archive from state %s", c.state)
	}
	c.state = StateArchiving

	defer func() {
		if err != nil {
			c.state = StateFailed
			return
		}
		c.state = StateDone
	}()

	now := c.clock.Now()

	if _, err := c.rotate(now); err != nil {
		return fmt.Errorf("failed to rotate archive: %w", err)
	}

	c.logger.Debug("creating archive", zap.String("archive", c.liveArchive), zap.Strings("files", files))

	if err := c.writeArchive(ctx, files); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	if err := c.mirror(ctx, RotatedArchiveName(now)); err != nil {
		return err
	}

	c.logger.Debug("removing archived files", zap.String("tmp_dir", c.tmpDir))
	for _, name := range files {
		path := filepath.Join(c.tmpDir, name)
		if err := c.fs.Remove(path); err != nil {
			return fsError("remove", path, err)
		}
	}

	c.logger.Info("files archived", zap.String("archive", c.liveArchive), zap.Int("count", len(files)))

	if _, err := fmt.Fprintln(c.out, CompletionMessage); err != nil {
		return fmt.Errorf("failed to write completion message: %w", err)
	}

	return nil
}

func (c *Collector) writeArchive(ctx context.Context, files []string) (err error) {
	f, err := c.fs.Create(c.liveArchive)
	if err != nil {
		return fsError("create", c.liveArchive, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fsError("close", c.liveArchive, cerr))
		}
	}()

	archiver := archivers.NewTarArchiver(f)
	for _, name := range files {
		if err := c.addFile(ctx, archiver, name); err != nil {
			return err
		}
	}

	if err := archiver.Close(); err != nil {
		return fsError("write", c.liveArchive, err)
	}

	return nil
}

func (c *Collector) addFile(ctx context.Context, archiver engine.Archiver, name string) (err error) {
	path := filepath.Join(c.tmpDir, name)

	src, err := c.fs.Open(path)
	if err != nil {
		return fsError("open", path, err)
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	info, err := src.Stat()
	if err != nil {
		return fsError("stat", path, err)
	}

	if err := archiver.AddFile(ctx, engine.EntryFromFileInfo(name, info), src); err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}

	return nil
}

// mirror copies the live archive to every configured sink under name.
func (c *Collector) mirror(ctx context.Context, name string) error {
	for _, sink := range c.mirrors {
		if err := c.mirrorTo(ctx, sink, name); err != nil {
			return fmt.Errorf("failed to mirror archive to %s: %w", sink.Name(), err)
		}
	}
	return nil
}

func (c *Collector) mirrorTo(ctx context.Context, sink engine.Sink, name string) (err error) {
	f, err := c.fs.Open(c.liveArchive)
	if err != nil {
		return fsError("open", c.liveArchive, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	c.logger.Debug("mirroring archive", zap.String("sink", sink.Name()), zap.String("kind", sink.Kind()), zap.String("name", name))

	return sink.Write(ctx, name, f)
}
