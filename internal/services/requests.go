package services

import (
	"encoding/json"

	"github.com/eduguide/backend/internal/models"
)

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=50" example:"Ann"`
	Surname         string `json:"surname" validate:"required,min=2,max=50" example:"Lee"`
	Email           string `json:"email" validate:"required,email" example:"a@x.com"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,phone" example:"+79001234567"`
	Password        string `json:"password" validate:"required,min=6" example:"secret1"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=Password" example:"secret1"`
	Role            string `json:"role" validate:"omitempty,oneof=student parent" example:"student"`
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email         string `json:"email" validate:"required,email" example:"a@x.com"`
	Password      string `json:"password" validate:"required" example:"secret1"`
	TwoFactorCode string `json:"twoFactorCode,omitempty" validate:"omitempty,len=6,numeric" example:"123456"`
}

type TwoFactorLoginRequest struct {
	TempToken string `json:"tempToken" validate:"required"`
	Code      string `json:"code" validate:"required,len=6,numeric" example:"123456"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"a@x.com"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type VerifyPhoneRequest struct {
	Code string `json:"code" validate:"required,numeric" example:"123456"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric" example:"123456"`
}

type DisableTwoFactorRequest struct {
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric" example:"123456"`
}

type LinkRequest struct {
	StudentEmail string `json:"studentEmail" validate:"required,email" example:"a@x.com"`
	ParentEmail  string `json:"parentEmail" validate:"required,email" example:"p@x.com"`
}

// ProfileUpdate carries the profile fields a client may change. Nil slices
// and pointers are left untouched.
type ProfileUpdate struct {
	Grade     *string  `json:"grade,omitempty" validate:"omitempty,oneof=9 10 11 12" example:"10"`
	Interests []string `json:"interests,omitempty"`
	Subjects  []string `json:"subjects,omitempty"`
}

type UpdateProfileRequest struct {
	Name    *string        `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Surname *string        `json:"surname,omitempty" validate:"omitempty,min=2,max=50"`
	Phone   *string        `json:"phone,omitempty" validate:"omitempty,phone"`
	Profile *ProfileUpdate `json:"profile,omitempty"`
}

type TestResultRequest struct {
	TestID   string          `json:"testId" validate:"required" example:"career-1"`
	TestName string          `json:"testName" validate:"required" example:"Career interests"`
	Score    *float64        `json:"score" validate:"required" example:"87.5"`
	Answers  json.RawMessage `json:"answers" validate:"required,jsonobject" swaggertype:"object"`
}

type RecommendationRequest struct {
	Type        models.RecommendationType `json:"type" validate:"required,oneof=college school profession" example:"college"`
	Title       string                    `json:"title" validate:"required" example:"Technical college"`
	Description string                    `json:"description" validate:"required" example:"Engineering programme"`
	Match       *float64                  `json:"match" validate:"required" example:"92"`
	Details     json.RawMessage           `json:"details,omitempty" validate:"omitempty,jsonobject" swaggertype:"object"`
}

type RecommendationUpdateRequest struct {
	Saved *bool `json:"saved" validate:"required" example:"true"`
}

type NotificationPreferencesUpdate struct {
	Email *bool `json:"email,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
	Push  *bool `json:"push,omitempty"`
}

type PrivacyPreferencesUpdate struct {
	ShareData   *bool `json:"shareData,omitempty"`
	ShowProfile *bool `json:"showProfile,omitempty"`
}

type PreferencesRequest struct {
	Notifications *NotificationPreferencesUpdate `json:"notifications,omitempty"`
	Privacy       *PrivacyPreferencesUpdate      `json:"privacy,omitempty"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Message string               `json:"message" example:"Login successful"`
	Token   string               `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User    models.PublicAccount `json:"user"`
}

// LoginResponse is either a completed login or a two-factor challenge.
type LoginResponse struct {
	Message           string                `json:"message" example:"Login successful"`
	Token             string                `json:"token,omitempty"`
	User              *models.PublicAccount `json:"user,omitempty"`
	RequiresTwoFactor bool                  `json:"requiresTwoFactor,omitempty"`
	TempToken         string                `json:"tempToken,omitempty"`
}

type TwoFactorSetupResponse struct {
	Secret     string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	OtpauthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
}

type LinkResponse struct {
	Message string               `json:"message" example:"Users linked successfully"`
	Student models.LinkedAccount `json:"student"`
	Parent  models.LinkedAccount `json:"parent"`
}
