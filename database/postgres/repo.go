package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evteevakb/filestorage"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type userRepo struct {
	pool *pgxpool.Pool
}

func (r *userRepo) Create(ctx context.Context, username, passwordHash string) (filestorage.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING username, password_hash, created_at
	`

	var u filestorage.User
	err := r.pool.QueryRow(ctx, query, username, passwordHash).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return filestorage.User{}, fmt.Errorf("create user: %w", filestorage.ErrDuplicateUser)
		}
		return filestorage.User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (filestorage.User, bool, error) {
	query := `
		SELECT username, password_hash, created_at
		FROM users
		WHERE username = $1
	`

	var u filestorage.User
	err := r.pool.QueryRow(ctx, query, username).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filestorage.User{}, false, nil
		}
		return filestorage.User{}, false, fmt.Errorf("find user: %w", err)
	}

	return u, true, nil
}

type tokenRepo struct {
	pool *pgxpool.Pool
}

func (r *tokenRepo) findOne(ctx context.Context, column, value string) (filestorage.Token, bool, error) {
	query := fmt.Sprintf(`SELECT username, token FROM tokens WHERE %s = $1`, column) //nolint:gosec // column is a fixed identifier

	var t filestorage.Token
	err := r.pool.QueryRow(ctx, query, value).Scan(&t.Username, &t.Token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filestorage.Token{}, false, nil
		}
		return filestorage.Token{}, false, fmt.Errorf("find token by %s: %w", column, err)
	}

	return t, true, nil
}

func (r *tokenRepo) FindByToken(ctx context.Context, token string) (filestorage.Token, bool, error) {
	return r.findOne(ctx, "token", token)
}

func (r *tokenRepo) FindByUsername(ctx context.Context, username string) (filestorage.Token, bool, error) {
	return r.findOne(ctx, "username", username)
}

func (r *tokenRepo) Create(ctx context.Context, username string) (filestorage.Token, error) {
	t := filestorage.Token{Username: username, Token: uuid.NewString()}

	_, err := r.pool.Exec(ctx, `INSERT INTO tokens (username, token) VALUES ($1, $2)`, t.Username, t.Token)
	if err != nil {
		if isUniqueViolation(err) {
			return filestorage.Token{}, fmt.Errorf("create token: %w", filestorage.ErrDuplicateUser)
		}
		return filestorage.Token{}, fmt.Errorf("create token: %w", err)
	}

	return t, nil
}

type fileRepo struct {
	pool *pgxpool.Pool
}

func (r *fileRepo) Create(ctx context.Context, username, filepath string) (filestorage.FileRecord, error) {
	query := `
		INSERT INTO files (username, filepath)
		VALUES ($1, $2)
		RETURNING id, username, filepath, created_at
	`

	var f filestorage.FileRecord
	err := r.pool.QueryRow(ctx, query, username, filepath).Scan(&f.ID, &f.Username, &f.Filepath, &f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return filestorage.FileRecord{}, fmt.Errorf("create file: %w", filestorage.ErrDuplicatePath)
		}
		return filestorage.FileRecord{}, fmt.Errorf("create file: %w", err)
	}

	return f, nil
}

func (r *fileRepo) ListByUsername(ctx context.Context, username string) ([]filestorage.FileRecord, error) {
	query := `
		SELECT id, username, filepath, created_at
		FROM files
		WHERE username = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	items := make([]filestorage.FileRecord, 0)
	for rows.Next() {
		var f filestorage.FileRecord
		if err := rows.Scan(&f.ID, &f.Username, &f.Filepath, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("list files: scan: %w", err)
		}
		items = append(items, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: rows: %w", err)
	}

	return items, nil
}

func (r *fileRepo) FindByFilepath(ctx context.Context, username, filepath string) (filestorage.FileRecord, bool, error) {
	query := `
		SELECT id, username, filepath, created_at
		FROM files
		WHERE username = $1 AND filepath = $2
	`
	return r.findOne(ctx, query, username, filepath)
}

func (r *fileRepo) FindByID(ctx context.Context, username string, id int64) (filestorage.FileRecord, bool, error) {
	query := `
		SELECT id, username, filepath, created_at
		FROM files
		WHERE username = $1 AND id = $2
	`
	return r.findOne(ctx, query, username, id)
}

func (r *fileRepo) findOne(ctx context.Context, query string, args ...any) (filestorage.FileRecord, bool, error) {
	var f filestorage.FileRecord
	err := r.pool.QueryRow(ctx, query, args...).Scan(&f.ID, &f.Username, &f.Filepath, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filestorage.FileRecord{}, false, nil
		}
		return filestorage.FileRecord{}, false, fmt.Errorf("find file: %w", err)
	}

	return f, true, nil
}

func (r *fileRepo) Delete(ctx context.Context, username string, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM files WHERE username = $1 AND id = $2`, username, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete file: %w", filestorage.ErrNotFound)
	}

	return nil
}
