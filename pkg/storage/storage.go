package storage

import (
	"context"
	"errors"
	"os"
)

var (
	// ErrNotFound is returned when the requested object is not present.
	ErrNotFound = errors.New("Not Found")
)

// Storage is implemented by simple "bucket" style object stores. Keys are
// slash separated paths within the bucket.
type Storage interface {
	ReadWriter
	Remove(ctx context.Context, key string) error
	Search(ctx context.Context, query map[string]string) ([][]byte, error)
	Clear(ctx context.Context, query map[string]string) error
	List(ctx context.Context, path string) ([]string, error)
}

// ReadWriter can both read and write objects.
type ReadWriter interface {
	Reader
	Writer
}

// Reader reads an object from storage.
type Reader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Writer writes an object to storage.
type Writer interface {
	Write(ctx context.Context, key string, body []byte, options *Options) error
}

// Options alter the behavior of a write.
type Options struct {
	// TTL is the number of seconds before the object expires, for backends
	// that support expiry. Zero means no expiry.
	TTL int64

	// Mode is the file mode to apply, for backends that support it.
	Mode os.FileMode

	// DirMode is the mode applied to directories created for the object.
	DirMode os.FileMode
}

// NewOptions returns Options with sane defaults.
func NewOptions() Options {
	return Options{
		Mode:    0644,
		DirMode: 0755,
	}
}
