package filestorage

import (
	"context"
	"io"
)

// UserRepo defines the interface for persisting user credentials.
// Implementations must enforce username uniqueness at the storage level.
//
// All methods accept a context for cancellation and timeout control.
type UserRepo interface {
	// Create inserts a new user with an already hashed password.
	//
	// Returns:
	//   - User: The created user including its creation timestamp
	//   - error: ErrDuplicateUser if the username exists, or other database errors
	Create(ctx context.Context, username, passwordHash string) (User, error)

	// FindByUsername looks up a user.
	//
	// Returns:
	//   - User: The user if found
	//   - bool: false if no such username exists; this is not an error
	//   - error: Database errors only
	FindByUsername(ctx context.Context, username string) (User, bool, error)
}

// TokenRepo defines the interface for persisting bearer tokens.
// There is at most one token per username and token values are globally unique.
type TokenRepo interface {
	// FindByToken looks up the token row holding the given value.
	FindByToken(ctx context.Context, token string) (Token, bool, error)

	// FindByUsername looks up the token issued to a user.
	FindByUsername(ctx context.Context, username string) (Token, bool, error)

	// Create generates a fresh random token for the user and stores it.
	//
	// Returns:
	//   - Token: The stored token
	//   - error: ErrDuplicateUser if the user already has a token. Callers are
	//     expected to check with FindByUsername first; there is no upsert.
	Create(ctx context.Context, username string) (Token, error)
}

// FileRepo defines the interface for the file index.
// File paths are unique across all users. Every lookup is scoped to the
// owning username so one user can never resolve another user's record.
type FileRepo interface {
	// Create inserts a file record.
	//
	// Returns:
	//   - FileRecord: The created record with its generated ID
	//   - error: ErrDuplicatePath if the path is already indexed, or other database errors
	Create(ctx context.Context, username, filepath string) (FileRecord, error)

	// ListByUsername returns every record owned by the user ordered by ID.
	// Returns an empty slice (not nil) when the user owns no files.
	ListByUsername(ctx context.Context, username string) ([]FileRecord, error)

	// FindByFilepath looks up a record by path within the owner's files.
	FindByFilepath(ctx context.Context, username, filepath string) (FileRecord, bool, error)

	// FindByID looks up a record by ID within the owner's files.
	FindByID(ctx context.Context, username string, id int64) (FileRecord, bool, error)

	// Delete removes a record owned by the user.
	// Returns ErrNotFound if no such record exists.
	Delete(ctx context.Context, username string, id int64) error
}

// ObjectStorage defines the interface for blob storage keyed by derived path.
// Implementations can use S3-compatible services or the local filesystem.
type ObjectStorage interface {
	// Put stores content under key, overwriting any existing object.
	// size is the content length when known, or -1.
	Put(ctx context.Context, key string, content io.Reader, size int64) error

	// Get opens the object stored under key.
	// Returns ErrNotFound if no such object exists. The caller must close
	// the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under key.
	// Returns ErrNotFound if no such object exists.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable and its bucket or
	// root directory exists.
	Ping(ctx context.Context) error
}

// Pinger is implemented by anything that can report its own liveness,
// such as a database connection pool.
type Pinger interface {
	Ping(ctx context.Context) error
}
