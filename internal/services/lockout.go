package services

import (
	"time"

	"github.com/eduguide/backend/internal/config"
	"github.com/eduguide/backend/internal/models"
)

// LockoutPolicy is the consecutive-failure threshold and how long a lock lasts.
type LockoutPolicy struct {
	Threshold int
	LockFor   time.Duration
}

func NewLockoutPolicy(p *config.AuthPolicy) LockoutPolicy {
	return LockoutPolicy{Threshold: p.MaxLoginAttempts, LockFor: p.LockDuration}
}

// IsLocked reports whether acc has a lock that has not yet expired at now.
func IsLocked(acc *models.Account, now time.Time) bool {
	return acc.LockUntil != nil && acc.LockUntil.After(now)
}

// LockRemaining is the time left on an active lock, rounded up to a whole second.
func LockRemaining(acc *models.Account, now time.Time) time.Duration {
	if !IsLocked(acc, now) {
		return 0
	}
	d := acc.LockUntil.Sub(now)
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}
