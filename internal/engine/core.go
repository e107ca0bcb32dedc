package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

const (
	// ArchiveTimestamp is the layout used to suffix rotated archives,
	// e.g. files_20260102_150405.tar.gz.
	ArchiveTimestamp = "20060102_150405"
)
