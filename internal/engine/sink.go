package engine

import (
	"context"
	"io"
)

// Sink receives finished archives, e.g. a mirror directory or an object store.
type Sink interface {
	Named
	Closer
	Write(ctx context.Context, path string, data io.Reader) error
}
