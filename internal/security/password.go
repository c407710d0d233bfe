package security

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	DefaultBcryptCost = 12
)

var ErrUnsupportedAlgorithm = errors.New("unsupported password hashing algorithm")

// HashConfig selects the hashing algorithm and its work factors.
type HashConfig struct {
	Algorithm        string
	BcryptCost       int
	Argon2Time       uint32
	Argon2Memory     uint32
	Argon2Threads    uint8
	Argon2KeyLength  uint32
	Argon2SaltLength int
}

// PasswordHasher hashes new passwords with the configured algorithm and verifies
// hashes produced by either supported algorithm.
type PasswordHasher struct {
	cfg HashConfig
}

func NewPasswordHasher(cfg HashConfig) (*PasswordHasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}
	if cfg.Algorithm != AlgorithmBcrypt && cfg.Algorithm != AlgorithmArgon2id {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.Argon2Time == 0 {
		cfg.Argon2Time = 1
	}
	if cfg.Argon2Memory == 0 {
		cfg.Argon2Memory = 64 * 1024
	}
	if cfg.Argon2Threads == 0 {
		cfg.Argon2Threads = 4
	}
	if cfg.Argon2KeyLength == 0 {
		cfg.Argon2KeyLength = 32
	}
	if cfg.Argon2SaltLength == 0 {
		cfg.Argon2SaltLength = 16
	}
	return &PasswordHasher{cfg: cfg}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.cfg.Algorithm == AlgorithmArgon2id {
		return h.hashArgon2(password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *PasswordHasher) Verify(password, hashed string) bool {
	if strings.HasPrefix(hashed, "$argon2id$") {
		return verifyArgon2(password, hashed)
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// hashArgon2 encodes parameters alongside salt and key so a config change does
// not invalidate existing hashes.
func (h *PasswordHasher) hashArgon2(password string) (string, error) {
	salt := make([]byte, h.cfg.Argon2SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt,
		h.cfg.Argon2Time,
		h.cfg.Argon2Memory,
		h.cfg.Argon2Threads,
		h.cfg.Argon2KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.cfg.Argon2Memory, h.cfg.Argon2Time, h.cfg.Argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func verifyArgon2(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1
}
