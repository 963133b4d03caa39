package filestorage

import (
	"time"
)

// Column limits shared by the repositories and input validation.
const (
	MaxUsernameLength = 16
	MaxFilepathLength = 256
	// MaxPasswordLength is the longest input bcrypt accepts.
	MaxPasswordLength = 72
	// TokenLength is the length of a canonical UUID string.
	TokenLength = 36
)

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Token struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type FileRecord struct {
	ID        int64     `json:"id"`
	Username  string    `json:"-"`
	Filepath  string    `json:"filepath"`
	CreatedAt time.Time `json:"-"`
}

// Selector picks a single file for download. Filepath takes precedence
// over ID when both are set.
type Selector struct {
	Filepath string
	ID       int64
}

// IsEmpty reports whether neither a path nor an id was given.
func (s Selector) IsEmpty() bool {
	return s.Filepath == "" && s.ID == 0
}

// PingResult holds dependency round-trip latencies in seconds.
type PingResult struct {
	DB      float64 `json:"db"`
	Storage float64 `json:"storage"`
}
