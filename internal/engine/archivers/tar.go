package archivers

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/infracollect/tmpcollect/internal/engine"
	"github.com/klauspost/compress/gzip"
)

// TarArchiver streams a gzip compressed tar archive into a writer.
type TarArchiver struct {
	compressor *gzip.Writer
	tarWriter  *tar.Writer
	closed     bool
}

// NewTarArchiver creates a new tar.gz archiver writing to w.
// The caller owns w and must close it after Close returns.
func NewTarArchiver(w io.Writer) engine.Archiver {
	compressor := gzip.NewWriter(w)

	return &TarArchiver{
		compressor: compressor,
		tarWriter:  tar.NewWriter(compressor),
	}
}

// AddFile adds a file to the tar archive.
func (a *TarArchiver) AddFile(ctx context.Context, entry engine.Entry, data io.Reader) error {
	if a.closed {
		return fmt.Errorf("archiver is closed")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     entry.Name,
		Mode:     int64(entry.Mode.Perm()),
		Size:     entry.Size,
		ModTime:  entry.ModTime,
	}

	if err := a.tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", entry.Name, err)
	}

	n, err := io.Copy(a.tarWriter, data)
	if err != nil {
		return fmt.Errorf("failed to write tar content for %s: %w", entry.Name, err)
	}
	if n != entry.Size {
		return fmt.Errorf("file %s changed size while archiving: expected %d bytes, got %d", entry.Name, entry.Size, n)
	}

	return nil
}

// Close finalizes the tar archive and flushes the gzip stream.
func (a *TarArchiver) Close() error {
	if a.closed {
		return fmt.Errorf("archiver already closed")
	}
	a.closed = true

	var errs error
	if err := a.tarWriter.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close tar writer: %w", err))
	}

	if err := a.compressor.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close compressor: %w", err))
	}

	return errs
}
