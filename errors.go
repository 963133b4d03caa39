package filestorage

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a bearer token is missing or unknown
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDuplicateUser is returned by user and token repositories when a row
	// already exists for the username.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrDuplicatePath is returned by the file repository when a record
	// already exists for the file path.
	ErrDuplicatePath = errors.New("duplicate path")
	// ErrKeyConflict is returned by object storage when a key cannot be
	// written because it collides with the layout of other keys, such as a
	// file standing where a directory is needed.
	ErrKeyConflict = errors.New("key conflict")

	// ErrUsernameTaken is returned when registering an existing username
	ErrUsernameTaken = errors.New("username taken")
	// ErrUserNotFound is returned when authenticating an unknown username
	ErrUserNotFound = errors.New("user not found")
	// ErrIncorrectPassword is returned when the password does not match
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrPathConflict is returned when uploading to an already used path
	ErrPathConflict = errors.New("path conflict")
	// ErrMissingSelector is returned when a download names neither a path nor an id
	ErrMissingSelector = errors.New("missing selector")
	// ErrServiceUnavailable is returned when a dependency health probe fails
	ErrServiceUnavailable = errors.New("service unavailable")
)
