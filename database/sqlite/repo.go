package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/evteevakb/filestorage"
)

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type userRepo struct {
	db *sql.DB
}

func (r *userRepo) Create(ctx context.Context, username, passwordHash string) (filestorage.User, error) {
	createdAt := now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return filestorage.User{}, fmt.Errorf("create user: %w", filestorage.ErrDuplicateUser)
		}
		return filestorage.User{}, fmt.Errorf("create user: %w", err)
	}

	u := filestorage.User{Username: username, PasswordHash: passwordHash}
	u.CreatedAt, _ = parseTime(createdAt)

	return u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (filestorage.User, bool, error) {
	var u filestorage.User
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filestorage.User{}, false, nil
		}
		return filestorage.User{}, false, fmt.Errorf("find user: %w", err)
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return filestorage.User{}, false, fmt.Errorf("find user: parse created_at: %w", err)
	}

	return u, true, nil
}

type tokenRepo struct {
	db *sql.DB
}

func (r *tokenRepo) findOne(ctx context.Context, column, value string) (filestorage.Token, bool, error) {
	query := fmt.Sprintf(`SELECT username, token FROM tokens WHERE %s = ?`, column) //nolint:gosec // column is a fixed identifier

	var t filestorage.Token
	err := r.db.QueryRowContext(ctx, query, value).Scan(&t.Username, &t.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	_, err := r.db.ExecContext(ctx, `INSERT INTO tokens (username, token) VALUES (?, ?)`, t.Username, t.Token)
	if err != nil {
		if isUniqueViolation(err) {
			return filestorage.Token{}, fmt.Errorf("create token: %w", filestorage.ErrDuplicateUser)
		}
		return filestorage.Token{}, fmt.Errorf("create token: %w", err)
	}

	return t, nil
}

type fileRepo struct {
	db *sql.DB
}

func (r *fileRepo) Create(ctx context.Context, username, filepath string) (filestorage.FileRecord, error) {
	createdAt := now()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO files (username, filepath, created_at) VALUES (?, ?, ?)`,
		username, filepath, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return filestorage.FileRecord{}, fmt.Errorf("create file: %w", filestorage.ErrDuplicatePath)
		}
		return filestorage.FileRecord{}, fmt.Errorf("create file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return filestorage.FileRecord{}, fmt.Errorf("create file: last insert id: %w", err)
	}

	f := filestorage.FileRecord{ID: id, Username: username, Filepath: filepath}
	f.CreatedAt, _ = parseTime(createdAt)

	return f, nil
}

func (r *fileRepo) ListByUsername(ctx context.Context, username string) ([]filestorage.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, filepath, created_at FROM files WHERE username = ? ORDER BY id`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]filestorage.FileRecord, 0)
	for rows.Next() {
		f, scanErr := scanFile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list files: %w", scanErr)
		}
		items = append(items, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: rows: %w", err)
	}

	return items, nil
}

func (r *fileRepo) FindByFilepath(ctx context.Context, username, filepath string) (filestorage.FileRecord, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, filepath, created_at FROM files WHERE username = ? AND filepath = ?`,
		username, filepath,
	)
	return findOne(row)
}

func (r *fileRepo) FindByID(ctx context.Context, username string, id int64) (filestorage.FileRecord, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, filepath, created_at FROM files WHERE username = ? AND id = ?`,
		username, id,
	)
	return findOne(row)
}

func (r *fileRepo) Delete(ctx context.Context, username string, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete file: %w", filestorage.ErrNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (filestorage.FileRecord, error) {
	var f filestorage.FileRecord
	var createdAt string

	if err := s.Scan(&f.ID, &f.Username, &f.Filepath, &createdAt); err != nil {
		return filestorage.FileRecord{}, fmt.Errorf("scan: %w", err)
	}

	var err error
	f.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return filestorage.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	return f, nil
}

func findOne(row *sql.Row) (filestorage.FileRecord, bool, error) {
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filestorage.FileRecord{}, false, nil
		}
		return filestorage.FileRecord{}, false, fmt.Errorf("find file: %w", err)
	}

	return f, true, nil
}
