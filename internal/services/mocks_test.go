package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eduguide/backend/internal/config"
	"github.com/eduguide/backend/internal/models"
	"github.com/eduguide/backend/internal/notifications"
	"github.com/eduguide/backend/internal/repositories"
	"github.com/eduguide/backend/internal/security"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email notifications.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

// failingRepository returns err from every method it overrides.
type failingRepository struct {
	repositories.AccountRepository
	err error
}

func (r *failingRepository) FindByEmail(context.Context, string) (*models.Account, error) {
	return nil, r.err
}

func (r *failingRepository) FindByID(context.Context, string) (*models.Account, error) {
	return nil, r.err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	deps   Dependencies
	repo   *repositories.MemoryAccountRepository
	clock  *fakeClock
	mailer *MockMailer
	sms    *MockSMSSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := security.NewPasswordHasher(security.HashConfig{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	env := &testEnv{
		repo:   repositories.NewMemoryAccountRepository(),
		clock:  clock,
		mailer: &MockMailer{},
		sms:    &MockSMSSender{},
	}
	env.deps = Dependencies{
		Accounts:    env.repo,
		Hasher:      hasher,
		Tokens:      security.NewTokenIssuer("test-secret", time.Hour).WithClock(clock.Now),
		Mailer:      env.mailer,
		SMS:         env.sms,
		Policy:      config.DefaultAuthPolicy(),
		FrontendURL: "http://localhost:3000/",
		Now:         clock.Now,
	}
	return env
}

// register creates an account through the service and returns its id.
func (e *testEnv) register(t *testing.T, name, surname, email, password string, role models.Role) string {
	t.Helper()
	resp, err := NewAuthService(e.deps).Register(context.Background(), RegisterRequest{
		Name:     name,
		Surname:  surname,
		Email:    email,
		Password: password,
		Role:     string(role),
	})
	require.NoError(t, err)
	return resp.User.ID
}
