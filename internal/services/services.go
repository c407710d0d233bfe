// Package services implements the account operations behind the HTTP API:
// registration and login, password reset, linking and the profile store.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/eduguide/backend/internal/audit"
	"github.com/eduguide/backend/internal/cache"
	"github.com/eduguide/backend/internal/config"
	"github.com/eduguide/backend/internal/notifications"
	"github.com/eduguide/backend/internal/repositories"
	"github.com/eduguide/backend/internal/security"
	"go.uber.org/zap"
)

// Dependencies is everything the services need. Zero values get defaults in
// withDefaults, except Accounts, Hasher and Tokens which are required.
type Dependencies struct {
	Accounts    repositories.AccountRepository
	Hasher      *security.PasswordHasher
	Tokens      *security.TokenIssuer
	TOTP        *security.TOTP
	Revocations *cache.RevocationList
	Mailer      notifications.Mailer
	SMS         notifications.SMSSender
	Policy      *config.AuthPolicy
	FrontendURL string
	Audit       *audit.Logger
	Logger      *zap.Logger
	Now         func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(d.Logger)
	}
	if d.Policy == nil {
		d.Policy = config.DefaultAuthPolicy()
	}
	if d.TOTP == nil {
		d.TOTP = security.NewTOTP(d.Policy.TOTPIssuer, d.Policy.TOTPSkew)
	}
	if d.SMS == nil {
		d.SMS = notifications.NewLogSMSSender(d.Logger)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// sendEmail delivers email and only logs a failure.
func (d Dependencies) sendEmail(ctx context.Context, email notifications.Email) {
	if d.Mailer == nil {
		return
	}
	if err := d.Mailer.Send(ctx, email); err != nil {
		d.Logger.Error("email delivery failed",
			zap.String("template", string(email.Template)),
			zap.Error(err))
	}
}

func (d Dependencies) frontendLink(path, token string) string {
	return strings.TrimRight(d.FrontendURL, "/") + path + "?token=" + token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MessageResponse is the body of operations that only report an outcome.
type MessageResponse struct {
	Message string `json:"message" example:"Operation completed"`
}
