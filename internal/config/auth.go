package config

import (
	"os"
	"strconv"
	"time"
)

// AuthPolicy holds the account security knobs.
type AuthPolicy struct {
	MaxLoginAttempts         int
	LockDuration             time.Duration
	ResetTokenTTL            time.Duration
	ResetTokenBytes          int
	EmailVerificationTTL     time.Duration
	PhoneCodeTTL             time.Duration
	PhoneCodeLength          int
	RequireEmailVerification bool
	TOTPIssuer               string
	TOTPSkew                 uint
}

func LoadAuthPolicy() *AuthPolicy {
	return &AuthPolicy{
		MaxLoginAttempts:         getEnvAsInt("AUTH_MAX_LOGIN_ATTEMPTS", 5),
		LockDuration:             getEnvAsDuration("AUTH_LOCK_DURATION", 2*time.Hour),
		ResetTokenTTL:            getEnvAsDuration("AUTH_RESET_TOKEN_TTL", 1*time.Hour),
		ResetTokenBytes:          getEnvAsInt("AUTH_RESET_TOKEN_BYTES", 32),
		EmailVerificationTTL:     getEnvAsDuration("AUTH_EMAIL_VERIFICATION_TTL", 24*time.Hour),
		PhoneCodeTTL:             getEnvAsDuration("AUTH_PHONE_CODE_TTL", 10*time.Minute),
		PhoneCodeLength:          getEnvAsInt("AUTH_PHONE_CODE_LENGTH", 6),
		RequireEmailVerification: getEnvAsBool("AUTH_REQUIRE_EMAIL_VERIFICATION", false),
		TOTPIssuer:               getEnv("AUTH_TOTP_ISSUER", "EduGuide"),
		TOTPSkew:                 uint(getEnvAsInt("AUTH_TOTP_SKEW", 1)),
	}
}

// DefaultAuthPolicy returns the policy with every value at its default.
func DefaultAuthPolicy() *AuthPolicy {
	return &AuthPolicy{
		MaxLoginAttempts:     5,
		LockDuration:         2 * time.Hour,
		ResetTokenTTL:        1 * time.Hour,
		ResetTokenBytes:      32,
		EmailVerificationTTL: 24 * time.Hour,
		PhoneCodeTTL:         10 * time.Minute,
		PhoneCodeLength:      6,
		TOTPIssuer:           "EduGuide",
		TOTPSkew:             1,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
