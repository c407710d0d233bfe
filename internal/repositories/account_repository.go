// Package repositories holds the account store and its interchangeable backends.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eduguide/backend/internal/models"
)

const DefaultSearchLimit = 10

var (
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrAccountNotFound = errors.New("account not found")
)

// StorageError wraps a backend fault. Handlers never expose the cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// LockoutState is the counter state after a failed login was recorded.
type LockoutState struct {
	LoginAttempts int
	LockUntil     *time.Time
}

// Locked reports whether the state holds an active lock at now.
func (s LockoutState) Locked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// AccountRepository is the single storage contract for accounts.
// Lookups return (nil, nil) when nothing matches.
type AccountRepository interface {
	Create(ctx context.Context, acc *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	FindByEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	FindByIDs(ctx context.Context, ids []string) ([]*models.Account, error)
	// Save persists acc. LoginAttempts, LockUntil, LinkedUsers and LastLogin of an
	// existing account are left as stored; only the atomic methods below change them.
	Save(ctx context.Context, acc *models.Account) error
	Delete(ctx context.Context, id string) error
	SearchByName(ctx context.Context, q SearchQuery) ([]*models.Account, error)

	// RecordFailedLogin increments the failure counter in one atomic step.
	// An expired lock restarts the count at 1. Reaching threshold sets LockUntil = now+lockFor.
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (LockoutState, error)
	// ResetLoginAttempts clears the counter and lock and stamps LastLogin.
	ResetLoginAttempts(ctx context.Context, id string, now time.Time) error
	// ClearLockout clears the counter and lock without touching LastLogin.
	ClearLockout(ctx context.Context, id string, now time.Time) error

	// AddLink adds a and b to each other's linked set. Repeating it is a no-op.
	AddLink(ctx context.Context, a, b string) error
	// RemoveLinksTo removes id from every linked set.
	RemoveLinksTo(ctx context.Context, id string) error
}

// SearchQuery is a case-insensitive partial match on name and surname.
type SearchQuery struct {
	Name      string
	Surname   string
	Role      models.Role
	ExcludeID string
	Limit     int
}

func (q SearchQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	return q.Limit
}

// nextLockout applies the failed-login rule to a counter snapshot.
// Backends that cannot express it natively call this under their own lock.
func nextLockout(attempts int, lockUntil *time.Time, threshold int, lockFor time.Duration, now time.Time) LockoutState {
	if lockUntil != nil && !lockUntil.After(now) {
		attempts = 0
		lockUntil = nil
	}
	attempts++
	if attempts >= threshold && lockUntil == nil {
		until := now.Add(lockFor)
		lockUntil = &until
	}
	return LockoutState{LoginAttempts: attempts, LockUntil: lockUntil}
}
