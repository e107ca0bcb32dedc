package collector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrArchiveExists is returned when a rotation target is already taken.
var ErrArchiveExists = errors.New("archive already exists")

// FilesystemError reports a failed filesystem operation on Path.
// A file removed between snapshot and archiving surfaces as a FilesystemError wrapping fs.ErrNotExist.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// fsError strips the op and path the filesystem already attached to err, so
// they appear once in the message. Wrapped errors are kept whole.
func fsError(op, path string, err error) error {
	switch e := err.(type) {
	case *fs.PathError:
		err = e.Err
	case *os.LinkError:
		err = e.Err
	}
	return &FilesystemError{Op: op, Path: path, Err: err}
}
