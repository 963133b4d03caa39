package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

type FileService struct {
	files          FileRepo
	storage        ObjectStorage
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for FileService.
type ServiceConfig struct {
	CleanupTimeout time.Duration // Timeout for compensating deletes (default: 30s)
}

func NewFileService(files FileRepo, storage ObjectStorage, cfg ServiceConfig) *FileService {
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &FileService{
		files:          files,
		storage:        storage,
		cleanupTimeout: cleanupTimeout,
	}
}

// Upload indexes a new file for the user and stores its content.
//
// The method performs the following steps:
//  1. Validates the client path and reduces filename to its base name
//  2. Derives the storage path (see DerivePath)
//  3. Inserts the file record; a duplicate path fails here and storage is untouched
//  4. Writes the content to object storage under the derived path
//  5. On storage failure, deletes the record inserted in step 3
//
// Parameters:
//   - ctx: Context for cancellation and timeout. The compensating delete uses a
//     separate background context bounded by the configured cleanup timeout.
//   - username: Owner of the file, already authenticated
//   - filepath: Optional client path; a trailing "/" marks a directory
//   - filename: Original name of the uploaded file
//   - content: io.Reader providing the file data
//
// Error types returned:
//   - ErrInvalidInput: Client path, filename or derived path fails validation
//   - ErrPathConflict: The derived path is already indexed, or the storage
//     backend rejects it as ErrKeyConflict (a file where a directory is needed)
//   - context.Canceled or context.DeadlineExceeded: Context was cancelled
//   - Wrapped storage errors: Issues writing to object storage
//
// A crash between steps 3 and 4 leaves an orphaned record. Nothing reconciles it.
func (s *FileService) Upload(ctx context.Context, username, filepath, filename string, content io.Reader) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("upload: %w", err)
	}

	if username == "" {
		return FileRecord{}, fmt.Errorf("upload: %w: username cannot be empty", ErrInvalidInput)
	}

	if filepath != "" && !IsValidClientPath(filepath) {
		return FileRecord{}, fmt.Errorf("upload %q: %w: invalid path", filepath, ErrInvalidInput)
	}

	// The filename only matters when the client path does not name the file.
	if filepath == "" || IsDirPath(filepath) {
		base, err := CleanFilename(filename)
		if err != nil {
			return FileRecord{}, fmt.Errorf("upload: %w", err)
		}
		filename = base
	}

	key := DerivePath(username, filepath, filename)
	if utf8.RuneCountInString(key) > MaxFilepathLength {
		return FileRecord{}, fmt.Errorf("upload %s: %w: path longer than %d characters", key, ErrInvalidInput, MaxFilepathLength)
	}

	record, err := s.files.Create(ctx, username, key)
	if err != nil {
		if errors.Is(err, ErrDuplicatePath) {
			return FileRecord{}, fmt.Errorf("upload %s: %w", key, ErrPathConflict)
		}
		return FileRecord{}, fmt.Errorf("upload %s: %w", key, err)
	}

	if putErr := s.storage.Put(ctx, key, content, -1); putErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.files.Delete(cleanupCtx, username, record.ID); delErr != nil {
			return FileRecord{}, fmt.Errorf("upload %s: put failed (%w) and rollback failed: %w", key, putErr, delErr)
		}
		if errors.Is(putErr, ErrKeyConflict) {
			return FileRecord{}, fmt.Errorf("upload %s: %w: %w", key, ErrPathConflict, putErr)
		}
		return FileRecord{}, fmt.Errorf("upload %s: put failed: %w", key, putErr)
	}

	return record, nil
}

// List returns every file owned by the user, ordered by ID.
// The result is never nil.
func (s *FileService) List(ctx context.Context, username string) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	records, err := s.files.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list files %s: %w", username, err)
	}

	if records == nil {
		records = []FileRecord{}
	}

	return records, nil
}

// Download resolves a selector within the user's files and opens the stored
// object. sel.Filepath wins when both fields are set. The caller must close
// the returned reader.
//
// Error types returned:
//   - ErrMissingSelector: Neither filepath nor id was given
//   - ErrNotFound: The user owns no such file, or its object is missing
func (s *FileService) Download(ctx context.Context, username string, sel Selector) (FileRecord, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, nil, fmt.Errorf("download: %w", err)
	}

	record, err := s.find(ctx, username, sel)
	if err != nil {
		return FileRecord{}, nil, fmt.Errorf("download: %w", err)
	}

	rc, err := s.storage.Get(ctx, record.Filepath)
	if err != nil {
		return FileRecord{}, nil, fmt.Errorf("download %s: %w", record.Filepath, err)
	}

	return record, rc, nil
}

// Remove deletes one of the user's files from object storage and then drops
// its record. An object that is already gone from storage does not stop the
// record from being removed.
//
// Error types returned:
//   - ErrMissingSelector: Neither filepath nor id was given
//   - ErrNotFound: The user owns no such file
func (s *FileService) Remove(ctx context.Context, username string, sel Selector) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("remove: %w", err)
	}

	record, err := s.find(ctx, username, sel)
	if err != nil {
		return FileRecord{}, fmt.Errorf("remove: %w", err)
	}

	if err = s.storage.Delete(ctx, record.Filepath); err != nil && !errors.Is(err, ErrNotFound) {
		return FileRecord{}, fmt.Errorf("remove %s: %w", record.Filepath, err)
	}

	if err = s.files.Delete(ctx, username, record.ID); err != nil {
		return FileRecord{}, fmt.Errorf("remove %s: %w", record.Filepath, err)
	}

	return record, nil
}

// find resolves sel among the user's files, preferring the filepath.
func (s *FileService) find(ctx context.Context, username string, sel Selector) (FileRecord, error) {
	if sel.IsEmpty() {
		return FileRecord{}, ErrMissingSelector
	}

	var (
		record FileRecord
		found  bool
		err    error
	)

	if sel.Filepath != "" {
		record, found, err = s.files.FindByFilepath(ctx, username, sel.Filepath)
	} else {
		record, found, err = s.files.FindByID(ctx, username, sel.ID)
	}

	if err != nil {
		return FileRecord{}, err
	}
	if !found {
		return FileRecord{}, ErrNotFound
	}

	return record, nil
}
