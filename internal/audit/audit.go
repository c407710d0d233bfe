// Package audit writes the security event trail.
package audit

import (
	"time"

	"go.uber.org/zap"
)

const (
	EventRegistered             = "ACCOUNT_REGISTERED"
	EventLoginSuccess           = "LOGIN_SUCCESS"
	EventLoginFailed            = "LOGIN_FAILED"
	EventAccountLocked          = "ACCOUNT_LOCKED"
	EventLogout                 = "LOGOUT"
	EventPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	EventPasswordResetCompleted = "PASSWORD_RESET_COMPLETED"
	EventEmailVerified          = "EMAIL_VERIFIED"
	EventPhoneVerified          = "PHONE_VERIFIED"
	EventTwoFactorEnabled       = "TWO_FACTOR_ENABLED"
	EventTwoFactorDisabled      = "TWO_FACTOR_DISABLED"
	EventAccountsLinked         = "ACCOUNTS_LINKED"
	EventAccountDeleted         = "ACCOUNT_DELETED"
)

type Event struct {
	Timestamp time.Time
	EventType string
	AccountID string
	Status    string
	Details   map[string]string
}

// Logger emits one structured line per security event on the "audit" logger.
type Logger struct {
	log *zap.Logger
}

func NewLogger(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{log: base.Named("audit")}
}

func (a *Logger) Success(eventType, accountID string, details map[string]string) {
	a.write(Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *Logger) Failure(eventType, accountID string, details map[string]string) {
	a.write(Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   details,
	})
}

func (a *Logger) write(event Event) {
	a.log.Info("audit event",
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("account_id", event.AccountID),
		zap.String("status", event.Status),
		zap.Any("details", event.Details),
	)
}
