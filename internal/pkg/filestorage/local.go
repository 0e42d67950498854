package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yigit/notespace/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage rooted at basePath, creating it if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) fullPath(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(ls.basePath, name), nil
}

// Save writes r to a new file. An existing file with the same name is never overwritten.
func (ls *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	dstPath, err := ls.fullPath(name)
	if err != nil {
		return 0, err
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(dst, contextReader{ctx: ctx, r: r})
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write file content")
		_ = os.Remove(dstPath)
		return 0, fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Debug().Str("name", name).Int64("bytes", written).Msg("File saved")
	return written, nil
}

// Open opens a stored file for reading
func (ls *LocalStorage) Open(_ context.Context, name string) (*Object, error) {
	p, err := ls.fullPath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat stored file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	return &Object{Name: name, Size: info.Size(), ModTime: info.ModTime(), Body: f}, nil
}

// Delete removes a file. Missing files are ignored.
func (ls *LocalStorage) Delete(_ context.Context, name string) error {
	p, err := ls.fullPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("path", p).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", p).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", p).Msg("File deleted")
	return nil
}

// contextReader stops a copy once ctx is cancelled
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
