package handlers

import (
	"net/http"

	"github.com/eduguide/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth      *services.AuthService
	reset     *services.PasswordResetService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, reset *services.PasswordResetService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		reset:     reset,
		validator: services.NewValidationHelper(),
		logger:    logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a student or parent account and return it with an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "Registration request"
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} services.ErrorResponse "Validation failed or email taken"
// @Failure 500 {object} services.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("[AUTH] registration attempt", zap.String("remote_addr", r.RemoteAddr))

	var req services.RegisterRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, resp)
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate with email and password. Accounts with 2FA get a temporary token unless twoFactorCode is sent.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Login request"
// @Success 200 {object} services.LoginResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse "Invalid credentials"
// @Failure 423 {object} services.ErrorResponse "Account locked"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("[AUTH] login attempt", zap.String("remote_addr", r.RemoteAddr))

	var req services.LoginRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// LoginTwoFactor completes a login that was answered with requiresTwoFactor
// @Summary Complete two-factor login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.TwoFactorLoginRequest true "Temporary token and TOTP code"
// @Success 200 {object} services.LoginResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 423 {object} services.ErrorResponse
// @Router /auth/login/2fa [post]
func (h *AuthHandler) LoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req services.TwoFactorLoginRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.CompleteTwoFactorLogin(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// Logout revokes the bearer token
// @Summary Logout
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MessageResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, services.MessageResponse{Message: "Logged out successfully"})
}

// ForgotPassword starts a password reset
// @Summary Request a password reset email
// @Description Always answers with the same message whether or not the email is registered
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.ForgotPasswordRequest true "Account email"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req services.ForgotPasswordRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.reset.RequestReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// ResetPassword completes a password reset
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse "Invalid or expired reset token"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req services.ResetPasswordRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.reset.CompleteReset(r.Context(), req.Token, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// VerifyEmail consumes an email verification token
// @Summary Verify email address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.VerifyEmailRequest true "Verification token"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req services.VerifyEmailRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// ResendVerification sends a new verification email
// @Summary Resend verification email
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	resp, err := h.auth.ResendVerification(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// SendPhoneCode texts a verification code
// @Summary Send phone verification code
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/send-phone-code [post]
func (h *AuthHandler) SendPhoneCode(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	resp, err := h.auth.SendPhoneCode(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// VerifyPhone checks a phone verification code
// @Summary Verify phone number
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.VerifyPhoneRequest true "Code from the SMS"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/verify-phone [post]
func (h *AuthHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.VerifyPhoneRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.VerifyPhone(r.Context(), claims.UserID, req.Code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// SetupTwoFactor creates a TOTP secret
// @Summary Start two-factor setup
// @Description Returns the secret, the otpauth URL and a base64 PNG QR code
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.TwoFactorSetupResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/setup-2fa [post]
func (h *AuthHandler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	resp, err := h.auth.SetupTwoFactor(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// VerifyTwoFactor enables 2FA after a valid code
// @Summary Enable two-factor authentication
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.TwoFactorCodeRequest true "TOTP code"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/verify-2fa [post]
func (h *AuthHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.TwoFactorCodeRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.EnableTwoFactor(r.Context(), claims.UserID, req.Code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// DisableTwoFactor turns 2FA off
// @Summary Disable two-factor authentication
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.DisableTwoFactorRequest true "Password and TOTP code"
// @Success 200 {object} services.MessageResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/disable-2fa [post]
func (h *AuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.DisableTwoFactorRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.auth.DisableTwoFactor(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}
