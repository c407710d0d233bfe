package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/models"
	"github.com/eduguide/backend/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPasswordReset_RequestIsEnumerationSafe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewPasswordResetService(env.deps)

	known, err := svc.RequestReset(ctx, "A@x.com")
	require.NoError(t, err)
	unknown, err := svc.RequestReset(ctx, "nobody@x.com")
	require.NoError(t, err)

	assert.Equal(t, known, unknown)
	env.mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestPasswordReset_Flow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	id := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewPasswordResetService(env.deps)
	auth := NewAuthService(env.deps)

	_, err := svc.RequestReset(ctx, "a@x.com")
	require.NoError(t, err)

	email := sentEmail(t, env.mailer, 0)
	assert.Equal(t, notifications.TemplatePasswordReset, email.Template)
	assert.Equal(t, "1 час", email.Data.ExpiresIn)
	assert.True(t, strings.HasPrefix(email.Data.Link, "http://localhost:3000/reset-password?token="), email.Data.Link)
	token := tokenFromLink(t, email.Data.Link)
	assert.Len(t, token, 64)

	stored, _ := env.repo.FindByID(ctx, id)
	assert.NotEqual(t, token, stored.PasswordResetToken)
	require.NotNil(t, stored.PasswordResetExpires)
	assert.True(t, stored.PasswordResetExpires.Equal(env.clock.Now().Add(time.Hour)))

	// lock the account first; a reset must clear the lock
	for i := 0; i < 5; i++ {
		_, _ = auth.Login(ctx, LoginRequest{Email: "a@x.com", Password: "wrong"})
	}

	_, err = svc.CompleteReset(ctx, token, "newsecret")
	require.NoError(t, err)

	stored, _ = env.repo.FindByID(ctx, id)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
	assert.Nil(t, stored.LockUntil)
	assert.Zero(t, stored.LoginAttempts)

	_, err = auth.Login(ctx, LoginRequest{Email: "a@x.com", Password: "newsecret"})
	assert.NoError(t, err)
	_, err = auth.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret1"})
	assertKind(t, err, apperrors.KindAuthentication)

	t.Run("token cannot be reused", func(t *testing.T) {
		_, err := svc.CompleteReset(ctx, token, "another1")
		appErr := assertKind(t, err, apperrors.KindValidation)
		assert.Equal(t, "Invalid or expired reset token", appErr.Message)
	})
}

func TestPasswordReset_ExpiryTextFollowsPolicy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.deps.Policy.ResetTokenTTL = 30 * time.Minute
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	id := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)

	_, err := NewPasswordResetService(env.deps).RequestReset(ctx, "a@x.com")
	require.NoError(t, err)

	assert.Equal(t, "30 минут", sentEmail(t, env.mailer, 0).Data.ExpiresIn)
	stored, _ := env.repo.FindByID(ctx, id)
	assert.True(t, stored.PasswordResetExpires.Equal(env.clock.Now().Add(30*time.Minute)))
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewPasswordResetService(env.deps)

	_, err := svc.RequestReset(ctx, "a@x.com")
	require.NoError(t, err)
	token := tokenFromLink(t, sentEmail(t, env.mailer, 0).Data.Link)

	env.clock.Advance(time.Hour + time.Second)
	_, err = svc.CompleteReset(ctx, token, "newsecret")
	assertKind(t, err, apperrors.KindValidation)
}

func TestPasswordReset_MailFailureIsHidden(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)

	resp, err := NewPasswordResetService(env.deps).RequestReset(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, msgResetRequested, resp.Message)
}

func TestPasswordReset_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewPasswordResetService(env.deps).CompleteReset(context.Background(), "deadbeef", "newsecret")
	assertKind(t, err, apperrors.KindValidation)
}
