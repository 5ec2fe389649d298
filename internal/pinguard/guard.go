// Package pinguard implements rate-limited transfer-PIN verification. The
// guard gates every money-movement initiation and is lockable independently
// of transfer outcome: five consecutive failures lock the user for one hour.
package pinguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/novabank/core-banking/internal/domain/user"
	"github.com/novabank/core-banking/internal/platform/persistence"
)

// Common errors
var (
	ErrPinNotSet  = errors.New("transfer PIN has not been set")
	ErrInvalidPin = errors.New("transfer PIN is incorrect")
	ErrWeakPin    = errors.New("transfer PIN must be 4 to 6 digits")
)

// ErrPinLocked indicates the user is locked out of PIN verification
type ErrPinLocked struct {
	RetryAfter time.Duration
}

func (e ErrPinLocked) Error() string {
	return fmt.Sprintf("transfer PIN locked, retry after %s", e.RetryAfter.Round(time.Second))
}

// Is matches any ErrPinLocked regardless of the remaining duration
func (e ErrPinLocked) Is(target error) bool {
	_, ok := target.(ErrPinLocked)
	return ok
}

// Guard verifies and manages transfer PINs under the user's row lock, so
// concurrent attempts for one user are serialized and the failure counter
// never loses updates.
type Guard struct {
	txm      persistence.TxManager
	userRepo user.Repository
	logger   *slog.Logger
	now      func() time.Time
}

// NewGuard creates a PIN guard
func NewGuard(txm persistence.TxManager, userRepo user.Repository, logger *slog.Logger) *Guard {
	return &Guard{
		txm:      txm,
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify checks the PIN for the user. The attempt-counter update commits even
// when the verdict is a failure; only infrastructure errors roll back.
// The plaintext PIN is never logged or returned.
func (g *Guard) Verify(ctx context.Context, userID uuid.UUID, pin string) error {
	var verdict error

	err := g.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repoTx := g.userRepo.WithTx(tx)

		u, err := repoTx.LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		now := g.now()

		if !u.HasPin() {
			verdict = ErrPinNotSet
			return nil
		}

		if remaining := u.LockedRemaining(now); remaining > 0 {
			// No attempt is counted while locked
			verdict = ErrPinLocked{RetryAfter: remaining}
			return nil
		}

		if bcrypt.CompareHashAndPassword([]byte(u.TransferPinHash), []byte(pin)) != nil {
			locked := u.RecordPinFailure(now)
			if err := repoTx.UpdatePinState(ctx, u); err != nil {
				return err
			}
			if locked {
				g.logger.Warn("Transfer PIN locked after repeated failures", "user_id", userID.String())
				verdict = ErrPinLocked{RetryAfter: user.PinLockoutDuration}
			} else {
				verdict = ErrInvalidPin
			}
			return nil
		}

		if u.PinFailedAttempts > 0 || u.PinLockedUntil != nil {
			u.ClearPinFailures(now)
			if err := repoTx.UpdatePinState(ctx, u); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("pin verification failed: %w", err)
	}

	return verdict
}

// Set hashes and stores a new transfer PIN, clearing any lockout state
func (g *Guard) Set(ctx context.Context, userID uuid.UUID, pin string) error {
	if !validPin(pin) {
		return ErrWeakPin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash transfer PIN: %w", err)
	}

	err = g.txm.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repoTx := g.userRepo.WithTx(tx)

		u, err := repoTx.LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		u.TransferPinHash = string(hash)
		u.ClearPinFailures(g.now())
		return repoTx.UpdatePinState(ctx, u)
	})
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			return err
		}
		return fmt.Errorf("failed to set transfer PIN: %w", err)
	}

	g.logger.Info("Transfer PIN updated", "user_id", userID.String())
	return nil
}

func validPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
