package services

import (
	"context"
	"net/url"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/audit"
	"github.com/eduguide/backend/internal/metrics"
	"github.com/eduguide/backend/internal/notifications"
	"github.com/eduguide/backend/internal/security"
	"go.uber.org/zap"
)

const msgResetRequested = "If an account with that email exists, a password reset link has been sent"

// PasswordResetService runs the forgot-password flow with single-use tokens.
type PasswordResetService struct {
	Dependencies
}

func NewPasswordResetService(deps Dependencies) *PasswordResetService {
	return &PasswordResetService{Dependencies: deps.withDefaults()}
}

// RequestReset answers the same way whether or not the email is registered.
// Only the hash of the token is persisted; the raw token goes out by email.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (*MessageResponse, error) {
	generic := &MessageResponse{Message: msgResetRequested}

	acc, err := s.Accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageFailure("find account by email", err)
	}
	if acc == nil {
		s.Logger.Info("[AUTH] password reset requested for unknown email")
		return generic, nil
	}

	token, err := security.GenerateToken(s.Policy.ResetTokenBytes)
	if err != nil {
		return nil, apperrors.Internal("generate reset token", err)
	}
	expires := s.Now().Add(s.Policy.ResetTokenTTL)
	acc.PasswordResetToken = security.HashToken(token)
	acc.PasswordResetExpires = &expires
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}

	s.sendEmail(ctx, notifications.Email{
		To:       acc.Email,
		Template: notifications.TemplatePasswordReset,
		Data: notifications.EmailData{
			Name:      acc.Name,
			Link:      s.frontendLink("/reset-password", url.QueryEscape(token)),
			ExpiresIn: notifications.FormatExpiry(s.Policy.ResetTokenTTL),
		},
	})

	metrics.ObservePasswordReset("requested")
	s.Audit.Success(audit.EventPasswordResetRequested, acc.ID, nil)
	s.Logger.Info("[AUTH] password reset token issued", zap.String("account_id", acc.ID))
	return generic, nil
}

// CompleteReset consumes an unexpired token. The token, its expiry and any
// lockout state are cleared together with the password change.
func (s *PasswordResetService) CompleteReset(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	now := s.Now()
	acc, err := s.Accounts.FindByResetToken(ctx, security.HashToken(token), now)
	if err != nil {
		return nil, storageFailure("find account by reset token", err)
	}
	if acc == nil {
		s.Audit.Failure(audit.EventPasswordResetCompleted, "", map[string]string{"reason": "invalid_token"})
		return nil, apperrors.Validation("Invalid or expired reset token")
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	acc.Password = hash
	acc.PasswordResetToken = ""
	acc.PasswordResetExpires = nil
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	if err := s.Accounts.ClearLockout(ctx, acc.ID, now); err != nil {
		return nil, storageFailure("clear lockout", err)
	}

	metrics.ObservePasswordReset("completed")
	s.Audit.Success(audit.EventPasswordResetCompleted, acc.ID, nil)
	return &MessageResponse{Message: "Password has been reset successfully"}, nil
}
