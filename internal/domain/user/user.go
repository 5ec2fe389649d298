package user

import (
	"time"

	"github.com/google/uuid"
)

// MaxFailedPinAttempts is the number of consecutive wrong PINs that locks
// the user out of transfer initiation.
const MaxFailedPinAttempts = 5

// PinLockoutDuration is how long the lock holds once triggered.
const PinLockoutDuration = time.Hour

// User carries the PIN-guard state gating money movement. The plaintext PIN
// never appears here; only its bcrypt hash is stored.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	TransferPinHash    string     `json:"-"`
	PinFailedAttempts  int        `json:"-"`
	PinLockedUntil     *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasPin reports whether a transfer PIN has been set
func (u *User) HasPin() bool {
	return u.TransferPinHash != ""
}

// LockedRemaining returns how long the PIN lock still holds, zero when unlocked
func (u *User) LockedRemaining(now time.Time) time.Duration {
	if u.PinLockedUntil == nil || !u.PinLockedUntil.After(now) {
		return 0
	}
	return u.PinLockedUntil.Sub(now)
}

// RecordPinFailure increments the failure counter and triggers the lockout
// once the threshold is reached. Returns true when this failure locked the user.
func (u *User) RecordPinFailure(now time.Time) bool {
	u.PinFailedAttempts++
	u.UpdatedAt = now
	if u.PinFailedAttempts >= MaxFailedPinAttempts {
		until := now.Add(PinLockoutDuration)
		u.PinLockedUntil = &until
		return true
	}
	return false
}

// ClearPinFailures resets the counter and lock after a successful verification
func (u *User) ClearPinFailures(now time.Time) {
	u.PinFailedAttempts = 0
	u.PinLockedUntil = nil
	u.UpdatedAt = now
}
