// Package filesystem provides a local directory object storage backend.
// Objects are written atomically through a temp file and rename, and every
// access goes through an os.Root so keys cannot escape the directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/evteevakb/filestorage"
)

// Store provides file system storage operations.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Open creates dir if needed and returns a Store rooted at it.
// The caller should Close the store when done.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open storage dir: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open storage dir: %w", err)
	}

	return NewFileStorage(root), nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

// Get opens a file for reading. Returns filestorage.ErrNotFound if the file does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, filestorage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		_ = f.Close()
		return nil, filestorage.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content to key using a temp file and rename,
// creating intermediate directories as needed. size is ignored; the whole
// reader is consumed. The operation respects context cancellation.
//
// A key whose parent is an existing file, or that names an existing
// directory, returns filestorage.ErrKeyConflict.
func (s *Store) Put(ctx context.Context, key string, content io.Reader, _ int64) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(t, &ctxReader{ctx: ctx, r: content}); err != nil {
		return fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			if isLayoutConflict(err) {
				return fmt.Errorf("put %s: %w: %w", key, filestorage.ErrKeyConflict, err)
			}
			return fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		if isLayoutConflict(renameErr) {
			return fmt.Errorf("put %s: %w: %w", key, filestorage.ErrKeyConflict, renameErr)
		}
		return fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true

	return nil
}

// Delete removes a file. Returns filestorage.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filestorage.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// Ping checks that the root directory still exists at its original path.
// The open handle alone would keep working after the directory is removed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(s.root.Name())
	if err != nil {
		return fmt.Errorf("stat storage root: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root.Name())
	}

	return nil
}

// isLayoutConflict matches the errors returned when a path component is a
// regular file or the target is a directory.
func isLayoutConflict(err error) bool {
	return errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.EISDIR) ||
		errors.Is(err, syscall.EEXIST)
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
