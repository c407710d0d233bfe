package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eduguide/backend/internal/models"
)

// MemoryAccountRepository keeps accounts in process memory. Values are cloned
// on the way in and out so callers never share state with the store.
type MemoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryAccountRepository) Create(_ context.Context, acc *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(acc.Email)
	if _, exists := r.byEmail[email]; exists {
		return ErrDuplicateEmail
	}

	stored := acc.Clone()
	stored.Email = email
	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	return nil
}

func (r *MemoryAccountRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byID[id].Clone(), nil
}

func (r *MemoryAccountRepository) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	return r.findOne(func(a *models.Account) bool {
		return tokenHash != "" && a.PasswordResetToken == tokenHash &&
			a.PasswordResetExpires != nil && a.PasswordResetExpires.After(now)
	}), nil
}

func (r *MemoryAccountRepository) FindByEmailVerificationToken(_ context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	return r.findOne(func(a *models.Account) bool {
		return tokenHash != "" && a.EmailVerificationToken == tokenHash &&
			a.EmailVerificationExpires != nil && a.EmailVerificationExpires.After(now)
	}), nil
}

func (r *MemoryAccountRepository) findOne(match func(*models.Account) bool) *models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if match(a) {
			return a.Clone()
		}
	}
	return nil
}

func (r *MemoryAccountRepository) FindByIDs(_ context.Context, ids []string) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.byID[id]; ok {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (r *MemoryAccountRepository) Save(_ context.Context, acc *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(acc.Email)
	if ownerID, taken := r.byEmail[email]; taken && ownerID != acc.ID {
		return ErrDuplicateEmail
	}
	prev, exists := r.byID[acc.ID]
	if exists && prev.Email != email {
		delete(r.byEmail, prev.Email)
	}

	stored := acc.Clone()
	stored.Email = email
	if exists {
		keepCounters(stored, prev)
	}
	stored.UpdatedAt = time.Now().UTC()
	acc.UpdatedAt = stored.UpdatedAt
	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	return nil
}

// keepCounters carries over the fields only the atomic methods may change.
func keepCounters(dst, stored *models.Account) {
	dst.LoginAttempts = stored.LoginAttempts
	dst.LockUntil = nil
	if stored.LockUntil != nil {
		t := *stored.LockUntil
		dst.LockUntil = &t
	}
	dst.LastLogin = nil
	if stored.LastLogin != nil {
		t := *stored.LastLogin
		dst.LastLogin = &t
	}
	dst.LinkedUsers = append([]string{}, stored.LinkedUsers...)
}

func (r *MemoryAccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(r.byEmail, a.Email)
	delete(r.byID, id)
	return nil
}

func (r *MemoryAccountRepository) SearchByName(_ context.Context, q SearchQuery) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(q.Name)
	surname := strings.ToLower(q.Surname)

	var out []*models.Account
	for _, a := range r.byID {
		if a.ID == q.ExcludeID {
			continue
		}
		if q.Role != "" && a.Role != q.Role {
			continue
		}
		if !strings.Contains(strings.ToLower(a.Name), name) || !strings.Contains(strings.ToLower(a.Surname), surname) {
			continue
		}
		out = append(out, a.Clone())
	}

	// map iteration order is random; keep results stable
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > q.limit() {
		out = out[:q.limit()]
	}
	return out, nil
}

func (r *MemoryAccountRepository) RecordFailedLogin(_ context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (LockoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return LockoutState{}, ErrAccountNotFound
	}

	state := nextLockout(a.LoginAttempts, a.LockUntil, threshold, lockFor, now)
	a.LoginAttempts = state.LoginAttempts
	a.LockUntil = state.LockUntil
	a.UpdatedAt = now
	return state, nil
}

func (r *MemoryAccountRepository) ResetLoginAttempts(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.LoginAttempts = 0
	a.LockUntil = nil
	last := now
	a.LastLogin = &last
	a.UpdatedAt = now
	return nil
}

func (r *MemoryAccountRepository) ClearLockout(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.LoginAttempts = 0
	a.LockUntil = nil
	a.UpdatedAt = now
	return nil
}

func (r *MemoryAccountRepository) AddLink(_ context.Context, a, b string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	first, ok := r.byID[a]
	if !ok {
		return ErrAccountNotFound
	}
	second, ok := r.byID[b]
	if !ok {
		return ErrAccountNotFound
	}

	if !first.HasLink(b) {
		first.LinkedUsers = append(first.LinkedUsers, b)
	}
	if !second.HasLink(a) {
		second.LinkedUsers = append(second.LinkedUsers, a)
	}
	return nil
}

func (r *MemoryAccountRepository) RemoveLinksTo(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if !a.HasLink(id) {
			continue
		}
		kept := a.LinkedUsers[:0]
		for _, l := range a.LinkedUsers {
			if l != id {
				kept = append(kept, l)
			}
		}
		a.LinkedUsers = kept
	}
	return nil
}
