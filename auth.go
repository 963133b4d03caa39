package filestorage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds configuration options for AuthService.
type AuthConfig struct {
	BcryptCost int // bcrypt work factor (default: bcrypt.DefaultCost)
}

// AuthService registers users, issues bearer tokens and checks them on
// incoming requests.
type AuthService struct {
	users      UserRepo
	tokens     TokenRepo
	bcryptCost int
}

func NewAuthService(users UserRepo, tokens TokenRepo, cfg AuthConfig) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: cost,
	}
}

// Register creates a user with a bcrypt hash of the password. The salt is
// embedded in the hash output. No token is issued.
//
// Error types returned:
//   - ErrInvalidInput: Username or password violates length/character limits
//   - ErrUsernameTaken: The username is already registered
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if !IsValidUsername(username) {
		return fmt.Errorf("register: %w: invalid username", ErrInvalidInput)
	}

	if password == "" || len(password) > MaxPasswordLength {
		return fmt.Errorf("register: %w: password must be 1-%d bytes", ErrInvalidInput, MaxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("register: hash password: %w", err)
	}

	if _, err = s.users.Create(ctx, username, string(hash)); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return fmt.Errorf("register %s: %w", username, ErrUsernameTaken)
		}
		return fmt.Errorf("register %s: %w", username, err)
	}

	return nil
}

// Authenticate verifies credentials and returns the user's token, creating it
// on first use. Tokens are never rotated, so every successful call for the
// same user returns the same value.
//
// Error types returned:
//   - ErrUserNotFound: No such username
//   - ErrIncorrectPassword: Hash comparison failed
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, fmt.Errorf("authenticate: %w", err)
	}

	user, found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return Token{}, fmt.Errorf("authenticate %s: %w", username, err)
	}
	if !found {
		return Token{}, fmt.Errorf("authenticate %s: %w", username, ErrUserNotFound)
	}

	// CompareHashAndPassword runs in constant time with respect to the hash.
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Token{}, fmt.Errorf("authenticate %s: %w", username, ErrIncorrectPassword)
		}
		return Token{}, fmt.Errorf("authenticate %s: compare hash: %w", username, err)
	}

	token, found, err := s.tokens.FindByUsername(ctx, username)
	if err != nil {
		return Token{}, fmt.Errorf("authenticate %s: %w", username, err)
	}
	if found {
		return token, nil
	}

	token, err = s.tokens.Create(ctx, username)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, ErrDuplicateUser) {
		return Token{}, fmt.Errorf("authenticate %s: create token: %w", username, err)
	}

	// A concurrent authentication created the token first; return theirs.
	token, found, err = s.tokens.FindByUsername(ctx, username)
	if err != nil {
		return Token{}, fmt.Errorf("authenticate %s: %w", username, err)
	}
	if !found {
		return Token{}, fmt.Errorf("authenticate %s: token vanished after conflict: %w", username, ErrInternal)
	}

	return token, nil
}

// CheckToken resolves a bearer token to the username it was issued to.
// Returns ErrUnauthorized for empty or unknown tokens.
func (s *AuthService) CheckToken(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("check token: %w", err)
	}

	if token == "" || len(token) > TokenLength {
		return "", fmt.Errorf("check token: %w", ErrUnauthorized)
	}

	t, found, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("check token: %w", err)
	}
	if !found {
		return "", fmt.Errorf("check token: %w", ErrUnauthorized)
	}

	return t.Username, nil
}
