package filestorage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object is stored under the requested name
var ErrNotFound = errors.New("stored file not found")

// ErrInvalidName is returned for names that are not a single generated file name
var ErrInvalidName = errors.New("invalid storage name")

// Object is an opened stored file. Callers must close Body.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
	Body    io.ReadCloser
}

// FileStorage defines the interface for file storage operations. Objects are
// addressed by flat generated names; there are no directories.
type FileStorage interface {
	// Save streams r into a new object and returns the number of bytes written
	Save(ctx context.Context, name string, r io.Reader) (int64, error)

	// Open returns the stored object or ErrNotFound
	Open(ctx context.Context, name string) (*Object, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
}

// GenerateName returns a collision-resistant storage name that keeps only the
// lowercased extension of the user supplied file name.
func GenerateName(originalFilename string) string {
	ext := strings.ToLower(path.Ext(originalFilename))
	if !isSafeExtension(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

func isSafeExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 16 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ValidName reports whether name is a bare file name that cannot escape the store
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return !strings.HasPrefix(name, ".")
}
