package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/infracollect/tmpcollect/internal/engine"
	"github.com/spf13/afero"
)

// FilesystemSink copies archives into a directory, typically a mirror on another volume.
type FilesystemSink struct {
	fs   afero.Fs
	root string
}

func NewFilesystemSink(fs afero.Fs, root string) engine.Sink {
	return &FilesystemSink{fs: fs, root: root}
}

// NewFilesystemSinkFromPath roots a sink at path on the OS filesystem, creating the directory if needed.
func NewFilesystemSinkFromPath(path string) (engine.Sink, error) {
	cleanPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mirror directory %s: %w", path, err)
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cleanPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory %s: %w", cleanPath, err)
	}

	return NewFilesystemSink(afero.NewBasePathFs(osFs, cleanPath), cleanPath), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.root)
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

// Write stores data under path, refusing to replace an existing file.
func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) (err error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	if exists {
		return fmt.Errorf("file %s already exists in %s", path, s.Name())
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if _, err = io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
