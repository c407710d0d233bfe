package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_Bcrypt(t *testing.T) {
	h, err := NewPasswordHasher(HashConfig{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	hashed, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hashed)
	assert.True(t, strings.HasPrefix(hashed, "$2"))
	assert.True(t, h.Verify("secret1", hashed))
	assert.False(t, h.Verify("wrong", hashed))

	t.Run("salted", func(t *testing.T) {
		again, err := h.Hash("secret1")
		require.NoError(t, err)
		assert.NotEqual(t, hashed, again)
	})
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	h, err := NewPasswordHasher(HashConfig{})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmBcrypt, h.cfg.Algorithm)
	assert.Equal(t, DefaultBcryptCost, h.cfg.BcryptCost)
}

func TestPasswordHasher_Argon2id(t *testing.T) {
	h, err := NewPasswordHasher(HashConfig{
		Algorithm:        AlgorithmArgon2id,
		Argon2Time:       1,
		Argon2Memory:     8 * 1024,
		Argon2Threads:    1,
		Argon2KeyLength:  32,
		Argon2SaltLength: 16,
	})
	require.NoError(t, err)

	hashed, err := h.Hash("testpassword")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "$argon2id$v=19$m=8192,t=1,p=1$"))

	assert.True(t, h.Verify("testpassword", hashed))
	assert.False(t, h.Verify("wrongpassword", hashed))

	t.Run("bcrypt hashes still verify after switching", func(t *testing.T) {
		b, err := bcrypt.GenerateFromPassword([]byte("legacy"), bcrypt.MinCost)
		require.NoError(t, err)
		assert.True(t, h.Verify("legacy", string(b)))
	})

	t.Run("malformed hash", func(t *testing.T) {
		assert.False(t, h.Verify("testpassword", "$argon2id$garbage"))
	})
}

func TestNewPasswordHasher_UnknownAlgorithm(t *testing.T) {
	_, err := NewPasswordHasher(HashConfig{Algorithm: "md5"})
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("super-secret", time.Hour)

	tok, err := issuer.IssueAccess("user-123", "a@x.com", "student")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenIssuer_TwoFactorPending(t *testing.T) {
	issuer := NewTokenIssuer("secret", 0)
	assert.Equal(t, DefaultAccessTTL, issuer.AccessTTL())

	tok, err := issuer.IssueTwoFactorPending("u1")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeTwoFactor, claims.Type)
	assert.WithinDuration(t, time.Now().Add(TwoFactorPendingTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	tok, err := issuer.Issue(Claims{UserID: "u1", Type: TokenTypeAccess}, -1*time.Second)
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_ExpiresWithClock(t *testing.T) {
	now := time.Now()
	issuer := NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return now })

	tok, err := issuer.IssueAccess("u1", "a@x.com", "parent")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("right-secret", time.Hour).IssueAccess("u2", "", "")
	require.NoError(t, err)

	_, err = NewTokenIssuer("wrong-secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	_, err := NewTokenIssuer("k", time.Hour).Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: "u3",
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	b, err := GenerateToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestTOTP_GenerateAndValidate(t *testing.T) {
	tp := NewTOTP("EduGuide", 1)

	secret, url, err := tp.Generate("a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(url, "otpauth://totp/"))

	now := time.Now()
	code, err := totp.GenerateCode(secret, now)
	require.NoError(t, err)

	assert.True(t, tp.Validate(code, secret, now))
	assert.False(t, tp.Validate(code, secret, now.Add(-24*time.Hour)))
	assert.False(t, tp.Validate("", secret, now))
	assert.False(t, tp.Validate(code, "", now))
}

func TestQRCodePNG(t *testing.T) {
	img, err := QRCodePNG("otpauth://totp/EduGuide:a@x.com?secret=ABC")
	require.NoError(t, err)
	assert.NotEmpty(t, img)
}
