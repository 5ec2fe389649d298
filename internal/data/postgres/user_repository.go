package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novabank/core-banking/internal/domain/user"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, transfer_pin_hash, transfer_pin_failed_attempts, transfer_pin_locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		u.ID,
		u.Email,
		nullableString(u.TransferPinHash),
		u.PinFailedAttempts,
		u.PinLockedUntil,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, email, transfer_pin_hash, transfer_pin_failed_attempts, transfer_pin_locked_until, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.querier.QueryRow(ctx, query, id), id)
}

// LockForUpdate obtains a pessimistic lock on the user row, serializing
// concurrent PIN attempts. Must be called within a transaction.
func (r *UserRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, email, transfer_pin_hash, transfer_pin_failed_attempts, transfer_pin_locked_until, created_at, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`

	u, err := r.scanUser(r.querier.QueryRow(ctx, query, id), id)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound{}) {
			r.logger.Error("Failed to lock user for update", "id", id.String(), "error", err)
		}
		return nil, err
	}
	return u, nil
}

// UpdatePinState persists the PIN hash, failure counter and lockout timestamp
func (r *UserRepository) UpdatePinState(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET transfer_pin_hash = $1, transfer_pin_failed_attempts = $2, transfer_pin_locked_until = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		nullableString(u.TransferPinHash),
		u.PinFailedAttempts,
		u.PinLockedUntil,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update user pin state", "id", u.ID.String(), "error", err)
		return fmt.Errorf("failed to update user pin state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound{UserID: u.ID}
	}

	return nil
}

func (r *UserRepository) scanUser(row pgx.Row, id uuid.UUID) (*user.User, error) {
	var u user.User
	var pinHash *string
	err := row.Scan(
		&u.ID,
		&u.Email,
		&pinHash,
		&u.PinFailedAttempts,
		&u.PinLockedUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{UserID: id}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if pinHash != nil {
		u.TransferPinHash = *pinHash
	}
	return &u, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
