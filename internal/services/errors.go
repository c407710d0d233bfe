package services

import (
	"errors"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/repositories"
	"github.com/eduguide/backend/internal/security"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidPassword    = "Invalid password"
	msgInvalidTwoFactor   = "Invalid 2FA code"
	msgUserNotFound       = "User not found"
	msgAccountLocked      = "Account is temporarily locked due to too many failed login attempts"
	msgDuplicateEmail     = "User with this email already exists"
)

// storageFailure wraps a repository error. Duplicate emails and missing
// accounts map to their client-facing kinds; anything else is internal.
func storageFailure(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return apperrors.ValidationFields(msgDuplicateEmail, map[string]string{"email": msgDuplicateEmail})
	case errors.Is(err, repositories.ErrAccountNotFound):
		return apperrors.NotFound(msgUserNotFound)
	}
	return apperrors.Internal(op, err)
}

func tokenFailure(err error) error {
	if errors.Is(err, security.ErrTokenExpired) {
		return apperrors.Token("Token expired", err)
	}
	return apperrors.Token("Invalid token", err)
}
