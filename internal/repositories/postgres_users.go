package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.AvatarURL, user.CoverImageURL, user.RefreshToken, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1
    `, id)

	return scanUser(row)
}

// FindByIdentifier resolves a user by username or email. The identifier is
// lowercased before matching; both columns are stored case-normalized.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	identifier = strings.ToLower(strings.TrimSpace(identifier))

	row := conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE username = $1 OR email = $1
    `, identifier)

	return scanUser(row)
}

// Update modifies profile fields of an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, full_name = $3, password_hash = $4, avatar_url = $5, cover_image_url = $6, updated_at = $7
        WHERE id = $1
    `, user.ID, user.Email, user.FullName, user.Password, user.AvatarURL, user.CoverImageURL, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetRefreshToken stores the live refresh token value unconditionally. An
// empty token clears the session (logout).
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2, updated_at = $3
        WHERE id = $1
    `, userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapRefreshToken rotates the stored refresh token with a conditional
// update. The store is the point of contention across server processes, so
// the compare happens in the WHERE clause rather than in Go: the losing
// writer of two concurrent rotations affects zero rows.
func (r *PostgresUserRepository) SwapRefreshToken(ctx context.Context, userID, expected, replacement string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3, updated_at = $4
        WHERE id = $1 AND refresh_token = $2
    `, userID, expected, replacement, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrRefreshReused
	}

	return nil
}

// scanUser reads a user row. An absent row reports auth.ErrUserNotFound so
// the session manager can tell a missing account apart from a store failure.
func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&user.AvatarURL, &user.CoverImageURL, &user.RefreshToken,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, auth.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ auth.CredentialStore = (*PostgresUserRepository)(nil)
