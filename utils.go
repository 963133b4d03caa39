package filestorage

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidPath validates that a path string meets the requirements for a storage path.
// It checks that the path:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8
//   - does not contain "." segments (/., /./, or ending with /.)
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or whitespace
//
// Returns true if the path is valid, false otherwise.
func IsValidPath(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' {
		return false
	}

	if strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "..") {
		return false
	}

	if strings.Contains(p, "//") {
		return false
	}

	if strings.ContainsAny(p, `\?#~`) {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	if strings.HasPrefix(p, "./") || strings.Contains(p, "/./") || strings.HasSuffix(p, "/.") {
		return false
	}

	for _, r := range p {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// IsValidClientPath validates the optional path a client supplies on upload.
// It must start with an ASCII letter and otherwise satisfy IsValidPath, except
// that a single trailing "/" is allowed to mark a directory.
func IsValidClientPath(p string) bool {
	if p == "" {
		return false
	}

	first := p[0]
	if (first < 'A' || first > 'Z') && (first < 'a' || first > 'z') {
		return false
	}

	return IsValidPath(strings.TrimSuffix(p, "/"))
}

// IsDirPath reports whether a client path names a directory, i.e. it has no
// basename component.
func IsDirPath(p string) bool {
	return strings.HasSuffix(p, "/")
}

// CleanFilename reduces an uploaded file's original name to its base name.
// Both "/" and "\" are treated as separators since browsers on different
// platforms disagree.
func CleanFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(name)

	if base == "." || base == "/" || !IsValidPath(base) {
		return "", fmt.Errorf("clean filename %q: %w", name, ErrInvalidInput)
	}

	return base, nil
}

// DerivePath computes the storage key for an upload.
//
//   - no client path: username/filename
//   - client path with a basename: username/filepath
//   - client path ending in "/": username/filepath/filename
//
// Inputs are expected to be validated already.
func DerivePath(username, filepath, filename string) string {
	switch {
	case filepath == "":
		return path.Join(username, filename)
	case IsDirPath(filepath):
		return path.Join(username, filepath, filename)
	default:
		return path.Join(username, filepath)
	}
}

// IsValidUsername checks length and character constraints for usernames.
// Usernames become the first segment of every storage path, so they must be
// a single valid path segment.
func IsValidUsername(username string) bool {
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return false
	}
	return IsValidPath(username) && !strings.Contains(username, "/") && !strings.HasPrefix(username, ".")
}
