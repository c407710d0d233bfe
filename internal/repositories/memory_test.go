package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eduguide/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(id, name, surname, email string, role models.Role) *models.Account {
	return models.NewAccount(id, name, surname, email, "", role, time.Now().UTC())
}

func TestMemory_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	acc := newAccount("u1", "Ann", "Lee", "  Ann@X.com ", models.RoleStudent)
	require.NoError(t, repo.Create(ctx, acc))

	got, err := repo.FindByEmail(ctx, "ANN@x.COM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "ann@x.com", got.Email)

	byID, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, got.Email, byID.Email)

	t.Run("absent returns nil", func(t *testing.T) {
		missing, err := repo.FindByEmail(ctx, "nobody@x.com")
		assert.NoError(t, err)
		assert.Nil(t, missing)

		missing, err = repo.FindByID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("duplicate email is case-insensitive", func(t *testing.T) {
		err := repo.Create(ctx, newAccount("u2", "Ann", "Other", "ann@x.COM", models.RoleParent))
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("u1", "Ann", "Lee", "a@x.com", models.RoleStudent)))

	got, _ := repo.FindByID(ctx, "u1")
	got.Name = "Changed"
	got.Profile.Interests = append(got.Profile.Interests, "math")

	again, _ := repo.FindByID(ctx, "u1")
	assert.Equal(t, "Ann", again.Name)
	assert.Empty(t, again.Profile.Interests)
}

func TestMemory_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	acc := newAccount("u1", "Ann", "Lee", "a@x.com", models.RoleStudent)
	require.NoError(t, repo.Create(ctx, acc))

	acc.Profile.Grade = "11"
	require.NoError(t, repo.Save(ctx, acc))

	got, _ := repo.FindByID(ctx, "u1")
	assert.Equal(t, "11", got.Profile.Grade)

	t.Run("save cannot steal another email", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newAccount("u2", "Bob", "Lee", "b@x.com", models.RoleParent)))
		other, _ := repo.FindByID(ctx, "u2")
		other.Email = "a@x.com"
		assert.ErrorIs(t, repo.Save(ctx, other), ErrDuplicateEmail)
	})

	require.NoError(t, repo.Delete(ctx, "u1"))
	got, _ = repo.FindByID(ctx, "u1")
	assert.Nil(t, got)
	assert.ErrorIs(t, repo.Delete(ctx, "u1"), ErrAccountNotFound)

	// email is free again
	assert.NoError(t, repo.Create(ctx, newAccount("u3", "Ann", "Lee", "a@x.com", models.RoleStudent)))
}

func TestMemory_TokenLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	now := time.Now().UTC()

	acc := newAccount("u1", "Ann", "Lee", "a@x.com", models.RoleStudent)
	exp := now.Add(time.Hour)
	acc.PasswordResetToken = "hash-reset"
	acc.PasswordResetExpires = &exp
	acc.EmailVerificationToken = "hash-verify"
	acc.EmailVerificationExpires = &exp
	require.NoError(t, repo.Create(ctx, acc))

	got, err := repo.FindByResetToken(ctx, "hash-reset", now)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, _ = repo.FindByResetToken(ctx, "hash-reset", now.Add(2*time.Hour))
	assert.Nil(t, got, "expired token must not match")

	got, _ = repo.FindByResetToken(ctx, "", now)
	assert.Nil(t, got)

	got, _ = repo.FindByEmailVerificationToken(ctx, "hash-verify", now)
	assert.NotNil(t, got)
	got, _ = repo.FindByEmailVerificationToken(ctx, "hash-reset", now)
	assert.Nil(t, got)
}

func TestMemory_SearchByName(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	require.NoError(t, repo.Create(ctx, newAccount("s1", "Ann", "Lee", "s1@x.com", models.RoleStudent)))
	require.NoError(t, repo.Create(ctx, newAccount("s2", "Anna", "Leeson", "s2@x.com", models.RoleStudent)))
	require.NoError(t, repo.Create(ctx, newAccount("p1", "Ann", "Lee", "p1@x.com", models.RoleParent)))
	require.NoError(t, repo.Create(ctx, newAccount("x1", "Bob", "Lee", "x1@x.com", models.RoleStudent)))

	got, err := repo.SearchByName(ctx, SearchQuery{Name: "ann", Surname: "LEE", ExcludeID: "p1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, _ = repo.SearchByName(ctx, SearchQuery{Name: "ann", Surname: "lee", Role: models.RoleParent})
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)

	got, _ = repo.SearchByName(ctx, SearchQuery{Name: "ann", Surname: "lee", Limit: 1})
	assert.Len(t, got, 1)
}

func TestMemory_RecordFailedLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("u1", "Ann", "Lee", "a@x.com", models.RoleStudent)))

	now := time.Now().UTC()
	var state LockoutState
	var err error
	for i := 1; i <= 4; i++ {
		state, err = repo.RecordFailedLogin(ctx, "u1", 5, 2*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, i, state.LoginAttempts)
		assert.False(t, state.Locked(now))
	}

	state, err = repo.RecordFailedLogin(ctx, "u1", 5, 2*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 5, state.LoginAttempts)
	require.NotNil(t, state.LockUntil)
	assert.Equal(t, now.Add(2*time.Hour), *state.LockUntil)

	t.Run("failure after expiry restarts at one", func(t *testing.T) {
		later := now.Add(3 * time.Hour)
		state, err := repo.RecordFailedLogin(ctx, "u1", 5, 2*time.Hour, later)
		require.NoError(t, err)
		assert.Equal(t, 1, state.LoginAttempts)
		assert.Nil(t, state.LockUntil)
	})

	t.Run("reset clears and stamps last login", func(t *testing.T) {
		require.NoError(t, repo.ResetLoginAttempts(ctx, "u1", now))
		got, _ := repo.FindByID(ctx, "u1")
		assert.Equal(t, 0, got.LoginAttempts)
		assert.Nil(t, got.LockUntil)
		require.NotNil(t, got.LastLogin)
		assert.Equal(t, now, *got.LastLogin)
	})

	_, err = repo.RecordFailedLogin(ctx, "missing", 5, time.Hour, now)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemory_RecordFailedLoginConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("u1", "Ann", "Lee", "a@x.com", models.RoleStudent)))

	now := time.Now().UTC()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.RecordFailedLogin(ctx, "u1", 100, time.Hour, now)
		}()
	}
	wg.Wait()

	got, _ := repo.FindByID(ctx, "u1")
	assert.Equal(t, 50, got.LoginAttempts)
}

func TestMemory_Links(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("s1", "Ann", "Lee", "s@x.com", models.RoleStudent)))
	require.NoError(t, repo.Create(ctx, newAccount("p1", "Pat", "Lee", "p@x.com", models.RoleParent)))

	require.NoError(t, repo.AddLink(ctx, "s1", "p1"))
	require.NoError(t, repo.AddLink(ctx, "s1", "p1"))

	s, _ := repo.FindByID(ctx, "s1")
	p, _ := repo.FindByID(ctx, "p1")
	assert.Equal(t, []string{"p1"}, s.LinkedUsers)
	assert.Equal(t, []string{"s1"}, p.LinkedUsers)

	linked, err := repo.FindByIDs(ctx, s.LinkedUsers)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "p1", linked[0].ID)

	assert.ErrorIs(t, repo.AddLink(ctx, "s1", "ghost"), ErrAccountNotFound)

	require.NoError(t, repo.RemoveLinksTo(ctx, "s1"))
	p, _ = repo.FindByID(ctx, "p1")
	assert.Empty(t, p.LinkedUsers)
}

func TestMemory_SaveKeepsAtomicFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newAccount("s1", "Ann", "Lee", "s@x.com", models.RoleStudent)))
	require.NoError(t, repo.Create(ctx, newAccount("p1", "Pat", "Lee", "p@x.com", models.RoleParent)))

	snapshot, _ := repo.FindByID(ctx, "s1")

	for i := 0; i < 5; i++ {
		_, err := repo.RecordFailedLogin(ctx, "s1", 5, 2*time.Hour, now)
		require.NoError(t, err)
	}
	require.NoError(t, repo.AddLink(ctx, "s1", "p1"))

	snapshot.Profile.Grade = "11"
	require.NoError(t, repo.Save(ctx, snapshot))

	got, _ := repo.FindByID(ctx, "s1")
	assert.Equal(t, "11", got.Profile.Grade)
	assert.Equal(t, 5, got.LoginAttempts)
	require.NotNil(t, got.LockUntil)
	assert.True(t, got.LockUntil.After(now))
	assert.Equal(t, []string{"p1"}, got.LinkedUsers)

	partner, _ := repo.FindByID(ctx, "p1")
	assert.Equal(t, []string{"s1"}, partner.LinkedUsers)

	t.Run("clear lockout keeps last login", func(t *testing.T) {
		require.NoError(t, repo.ResetLoginAttempts(ctx, "p1", now))
		_, err := repo.RecordFailedLogin(ctx, "p1", 5, 2*time.Hour, now)
		require.NoError(t, err)

		require.NoError(t, repo.ClearLockout(ctx, "p1", now))
		p, _ := repo.FindByID(ctx, "p1")
		assert.Zero(t, p.LoginAttempts)
		assert.Nil(t, p.LockUntil)
		require.NotNil(t, p.LastLogin)

		assert.ErrorIs(t, repo.ClearLockout(ctx, "ghost", now), ErrAccountNotFound)
	})
}

func TestNextLockout(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		attempts  int
		lockUntil *time.Time
		threshold int
		wantCount int
		wantLock  bool
	}{
		{"first failure", 0, nil, 5, 1, false},
		{"reaches threshold", 4, nil, 5, 5, true},
		{"expired lock restarts", 5, &past, 5, 1, false},
		{"expired lock with threshold one", 5, &past, 1, 1, true},
		{"active lock keeps lock", 5, &future, 5, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := nextLockout(tt.attempts, tt.lockUntil, tt.threshold, time.Hour, now)
			assert.Equal(t, tt.wantCount, s.LoginAttempts)
			assert.Equal(t, tt.wantLock, s.Locked(now))
		})
	}
}
