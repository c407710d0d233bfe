package services

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/audit"
	"github.com/eduguide/backend/internal/metrics"
	"github.com/eduguide/backend/internal/models"
	"github.com/eduguide/backend/internal/notifications"
	"github.com/eduguide/backend/internal/repositories"
	"github.com/eduguide/backend/internal/security"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService owns registration, login, logout and the verification and
// two-factor flows.
type AuthService struct {
	Dependencies
	lockout LockoutPolicy
}

func NewAuthService(deps Dependencies) *AuthService {
	deps = deps.withDefaults()
	return &AuthService{Dependencies: deps, lockout: NewLockoutPolicy(deps.Policy)}
}

// Register creates an account and returns it with an access token.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	s.Logger.Info("[AUTH] registration attempt", zap.String("email", email))

	existing, err := s.Accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, storageFailure("find account by email", err)
	}
	if existing != nil {
		s.Logger.Info("[AUTH] registration rejected, email taken", zap.String("email", email))
		return nil, storageFailure("create account", repositories.ErrDuplicateEmail)
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleStudent
	}

	now := s.Now()
	acc := models.NewAccount(uuid.NewString(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Surname),
		email, strings.TrimSpace(req.Phone), role, now)
	acc.Password = hash

	var verificationToken string
	if s.Policy.RequireEmailVerification {
		if verificationToken, err = s.issueEmailVerification(acc, now); err != nil {
			return nil, err
		}
	} else {
		acc.IsEmailVerified = true
	}

	if err := s.Accounts.Create(ctx, acc); err != nil {
		return nil, storageFailure("create account", err)
	}

	if verificationToken != "" {
		s.sendVerificationEmail(ctx, acc, verificationToken)
	}

	token, err := s.Tokens.IssueAccess(acc.ID, acc.Email, string(acc.Role))
	if err != nil {
		return nil, apperrors.Internal("issue token", err)
	}

	metrics.ObserveRegistration(string(acc.Role))
	s.Audit.Success(audit.EventRegistered, acc.ID, map[string]string{"role": string(acc.Role)})
	s.Logger.Info("[AUTH] account created", zap.String("account_id", acc.ID))

	return &AuthResponse{Message: "User registered successfully.", Token: token, User: acc.Public()}, nil
}

// Login checks the lock before the password, counts failures atomically in the
// store and answers with a two-factor challenge when 2FA is on and no code was sent.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := normalizeEmail(req.Email)

	acc, err := s.Accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, storageFailure("find account by email", err)
	}
	if acc == nil {
		metrics.ObserveLogin(metrics.LoginUnknownUser)
		s.Audit.Failure(audit.EventLoginFailed, "", map[string]string{"reason": "unknown_email"})
		return nil, apperrors.Authentication(msgInvalidCredentials)
	}

	now := s.Now()
	if IsLocked(acc, now) {
		metrics.ObserveLogin(metrics.LoginLocked)
		s.Logger.Warn("[AUTH] login rejected, account locked", zap.String("account_id", acc.ID))
		return nil, apperrors.Locked(msgAccountLocked, LockRemaining(acc, now))
	}

	if !s.Hasher.Verify(req.Password, acc.Password) {
		return nil, s.recordFailure(ctx, acc, now, msgInvalidCredentials)
	}

	if acc.IsTwoFactorEnabled {
		if req.TwoFactorCode == "" {
			tempToken, err := s.Tokens.IssueTwoFactorPending(acc.ID)
			if err != nil {
				return nil, apperrors.Internal("issue 2fa token", err)
			}
			metrics.ObserveLogin(metrics.LoginTwoFactor)
			return &LoginResponse{Message: "2FA required", RequiresTwoFactor: true, TempToken: tempToken}, nil
		}
		if !s.TOTP.Validate(req.TwoFactorCode, acc.TwoFactorSecret, now) {
			return nil, s.recordFailure(ctx, acc, now, msgInvalidTwoFactor)
		}
	}

	return s.completeLogin(ctx, acc, now)
}

// CompleteTwoFactorLogin exchanges a 2fa-pending token and a TOTP code for an
// access token. The pending token is revoked once used.
func (s *AuthService) CompleteTwoFactorLogin(ctx context.Context, req TwoFactorLoginRequest) (*LoginResponse, error) {
	claims, err := s.Tokens.Verify(req.TempToken)
	if err != nil {
		return nil, tokenFailure(err)
	}
	if claims.Type != security.TokenTypeTwoFactor {
		return nil, tokenFailure(security.ErrTokenInvalid)
	}
	if revoked, err := s.Revocations.IsRevoked(ctx, claims.ID); err != nil {
		return nil, apperrors.Internal("check revocation", err)
	} else if revoked {
		return nil, tokenFailure(security.ErrTokenInvalid)
	}

	acc, err := s.Accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, storageFailure("find account", err)
	}
	if acc == nil || !acc.IsTwoFactorEnabled {
		return nil, apperrors.Authentication(msgInvalidCredentials)
	}

	now := s.Now()
	if IsLocked(acc, now) {
		metrics.ObserveLogin(metrics.LoginLocked)
		return nil, apperrors.Locked(msgAccountLocked, LockRemaining(acc, now))
	}
	if !s.TOTP.Validate(req.Code, acc.TwoFactorSecret, now) {
		return nil, s.recordFailure(ctx, acc, now, msgInvalidTwoFactor)
	}

	if claims.ExpiresAt != nil {
		if err := s.Revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.Logger.Warn("[AUTH] could not revoke 2fa token", zap.Error(err))
		}
	}
	return s.completeLogin(ctx, acc, now)
}

func (s *AuthService) completeLogin(ctx context.Context, acc *models.Account, now time.Time) (*LoginResponse, error) {
	if err := s.Accounts.ResetLoginAttempts(ctx, acc.ID, now); err != nil {
		return nil, storageFailure("reset login attempts", err)
	}
	acc.LoginAttempts = 0
	acc.LockUntil = nil
	acc.LastLogin = &now

	token, err := s.Tokens.IssueAccess(acc.ID, acc.Email, string(acc.Role))
	if err != nil {
		return nil, apperrors.Internal("issue token", err)
	}

	metrics.ObserveLogin(metrics.LoginSuccess)
	s.Audit.Success(audit.EventLoginSuccess, acc.ID, nil)

	user := acc.Public()
	return &LoginResponse{Message: "Login successful", Token: token, User: &user}, nil
}

// recordFailure counts a failed attempt and returns the error for the client.
// The attempt that engages the lock still answers with msg.
func (s *AuthService) recordFailure(ctx context.Context, acc *models.Account, now time.Time, msg string) error {
	state, err := s.Accounts.RecordFailedLogin(ctx, acc.ID, s.lockout.Threshold, s.lockout.LockFor, now)
	if err != nil {
		return storageFailure("record failed login", err)
	}

	metrics.ObserveLogin(metrics.LoginFailed)
	s.Audit.Failure(audit.EventLoginFailed, acc.ID, map[string]string{
		"attempts": strconv.Itoa(state.LoginAttempts),
	})

	if state.Locked(now) && state.LoginAttempts >= s.lockout.Threshold {
		metrics.ObserveLockout()
		s.Audit.Failure(audit.EventAccountLocked, acc.ID, map[string]string{
			"until": state.LockUntil.UTC().Format(time.RFC3339),
		})
		s.Logger.Warn("[AUTH] account locked", zap.String("account_id", acc.ID), zap.Time("until", *state.LockUntil))
	}
	return apperrors.Authentication(msg)
}

// Logout revokes the presented access token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) error {
	if claims.ExpiresAt != nil {
		if err := s.Revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return apperrors.Internal("revoke token", err)
		}
	}
	s.Audit.Success(audit.EventLogout, claims.UserID, nil)
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	now := s.Now()
	acc, err := s.Accounts.FindByEmailVerificationToken(ctx, security.HashToken(token), now)
	if err != nil {
		return nil, storageFailure("find account by verification token", err)
	}
	if acc == nil {
		return nil, apperrors.Validation("Invalid or expired verification token")
	}

	acc.IsEmailVerified = true
	acc.EmailVerificationToken = ""
	acc.EmailVerificationExpires = nil
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}

	s.sendEmail(ctx, notifications.Email{
		To:       acc.Email,
		Template: notifications.TemplateWelcome,
		Data:     notifications.EmailData{Name: acc.Name, Link: strings.TrimRight(s.FrontendURL, "/") + "/dashboard"},
	})
	s.Audit.Success(audit.EventEmailVerified, acc.ID, nil)
	return &MessageResponse{Message: "Email verified successfully"}, nil
}

func (s *AuthService) ResendVerification(ctx context.Context, userID string) (*MessageResponse, error) {
	acc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.IsEmailVerified {
		return nil, apperrors.Validation("Email is already verified")
	}

	token, err := s.issueEmailVerification(acc, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	s.sendVerificationEmail(ctx, acc, token)
	return &MessageResponse{Message: "Verification email sent"}, nil
}

func (s *AuthService) issueEmailVerification(acc *models.Account, now time.Time) (string, error) {
	token, err := security.GenerateToken(32)
	if err != nil {
		return "", apperrors.Internal("generate verification token", err)
	}
	expires := now.Add(s.Policy.EmailVerificationTTL)
	acc.EmailVerificationToken = security.HashToken(token)
	acc.EmailVerificationExpires = &expires
	return token, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, acc *models.Account, token string) {
	s.sendEmail(ctx, notifications.Email{
		To:       acc.Email,
		Template: notifications.TemplateEmailVerification,
		Data: notifications.EmailData{
			Name:      acc.Name,
			Link:      s.frontendLink("/verify-email", token),
			ExpiresIn: notifications.FormatExpiry(s.Policy.EmailVerificationTTL),
		},
	})
}

// SendPhoneCode texts a short numeric code to the account's phone. Only the
// hash of the code is stored.
func (s *AuthService) SendPhoneCode(ctx context.Context, userID string) (*MessageResponse, error) {
	acc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.Phone == "" {
		return nil, apperrors.Validation("Phone number is not set")
	}
	if acc.IsPhoneVerified {
		return nil, apperrors.Validation("Phone number is already verified")
	}

	code, err := security.GenerateNumericCode(s.Policy.PhoneCodeLength)
	if err != nil {
		return nil, apperrors.Internal("generate phone code", err)
	}
	expires := s.Now().Add(s.Policy.PhoneCodeTTL)
	acc.PhoneVerificationCode = security.HashToken(code)
	acc.PhoneVerificationExpires = &expires
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}

	if err := s.SMS.SendSMS(ctx, acc.Phone, notifications.VerificationSMS(code, s.Policy.PhoneCodeTTL)); err != nil {
		return nil, apperrors.Internal("send sms", err)
	}
	return &MessageResponse{Message: "Verification code sent"}, nil
}

func (s *AuthService) VerifyPhone(ctx context.Context, userID, code string) (*MessageResponse, error) {
	acc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	valid := acc.PhoneVerificationCode != "" &&
		acc.PhoneVerificationExpires != nil && acc.PhoneVerificationExpires.After(now) &&
		subtle.ConstantTimeCompare([]byte(acc.PhoneVerificationCode), []byte(security.HashToken(code))) == 1
	if !valid {
		return nil, apperrors.Validation("Invalid or expired verification code")
	}

	acc.IsPhoneVerified = true
	acc.PhoneVerificationCode = ""
	acc.PhoneVerificationExpires = nil
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	s.Audit.Success(audit.EventPhoneVerified, acc.ID, nil)
	return &MessageResponse{Message: "Phone number verified successfully"}, nil
}

// SetupTwoFactor stores a fresh TOTP secret. 2FA stays off until EnableTwoFactor
// confirms a code generated from it.
func (s *AuthService) SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetupResponse, error) {
	acc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.IsTwoFactorEnabled {
		return nil, apperrors.Validation("Two-factor authentication is already enabled")
	}

	secret, url, err := s.TOTP.Generate(acc.Email)
	if err != nil {
		return nil, apperrors.Internal("generate totp secret", err)
	}
	qr, err := security.QRCodePNG(url)
	if err != nil {
		return nil, apperrors.Internal("render qr code", err)
	}

	acc.TwoFactorSecret = secret
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	return &TwoFactorSetupResponse{Secret: secret, OtpauthURL: url, QRCode: qr}, nil
}

func (s *AuthService) EnableTwoFactor(ctx context.Context, userID, code string) (*MessageResponse, error) {
	acc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.IsTwoFactorEnabled {
		return nil, apperrors.Validation("Two-factor authentication is already enabled")
	}
	if acc.TwoFactorSecret == "" {
		return nil, apperrors.Validation("Two-factor setup has not been started")
	}
	if !s.TOTP.Validate(code, acc.TwoFactorSecret, s.Now()) {
		return nil, apperrors.Validation(msgInvalidTwoFactor)
	}

	acc.IsTwoFactorEnabled = true
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	s.Audit.Success(audit.EventTwoFactorEnabled, acc.ID, nil)
	return &MessageResponse{Message: "Two-factor authentication enabled"}, nil
}

func (s *AuthService) DisableTwoFactor(ctx context.Context, userID string, req DisableTwoFactorRequest) (*MessageResponse, error) {
	acc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !acc.IsTwoFactorEnabled {
		return nil, apperrors.Validation("Two-factor authentication is not enabled")
	}
	if !s.Hasher.Verify(req.Password, acc.Password) {
		s.Audit.Failure(audit.EventTwoFactorDisabled, acc.ID, map[string]string{"reason": "invalid_password"})
		return nil, apperrors.Authentication(msgInvalidPassword)
	}
	if !s.TOTP.Validate(req.Code, acc.TwoFactorSecret, s.Now()) {
		s.Audit.Failure(audit.EventTwoFactorDisabled, acc.ID, map[string]string{"reason": "invalid_code"})
		return nil, apperrors.Authentication(msgInvalidTwoFactor)
	}

	acc.IsTwoFactorEnabled = false
	acc.TwoFactorSecret = ""
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	s.Audit.Success(audit.EventTwoFactorDisabled, acc.ID, nil)
	return &MessageResponse{Message: "Two-factor authentication disabled"}, nil
}

func (s *AuthService) load(ctx context.Context, id string) (*models.Account, error) {
	return loadAccount(ctx, s.Dependencies, id)
}

func loadAccount(ctx context.Context, d Dependencies, id string) (*models.Account, error) {
	acc, err := d.Accounts.FindByID(ctx, id)
	if err != nil {
		return nil, storageFailure("find account", err)
	}
	if acc == nil {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	return acc, nil
}
