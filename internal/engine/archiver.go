package engine

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// Entry describes a single file added to an archive.
type Entry struct {
	Name string
	Size int64
	// Mode carries the permission bits stored for the entry. Archivers write
	// them unchanged, so a zero Mode is archived as 0000.
	Mode    fs.FileMode
	ModTime time.Time
}

// EntryFromFileInfo builds an Entry named name from a file's metadata.
func EntryFromFileInfo(name string, info fs.FileInfo) Entry {
	return Entry{
		Name:    name,
		Size:    info.Size(),
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
	}
}

// Archiver collects files into an archive format.
type Archiver interface {
	// AddFile adds a file to the archive. data must yield exactly entry.Size bytes.
	AddFile(ctx context.Context, entry Entry, data io.Reader) error

	// Close finalizes the archive and flushes it to the underlying writer.
	Close() error
}
