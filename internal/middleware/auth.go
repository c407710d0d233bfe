package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/eduguide/backend/internal/cache"
	"github.com/eduguide/backend/internal/repositories"
	"github.com/eduguide/backend/internal/security"
	"github.com/eduguide/backend/internal/services"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticator validates bearer tokens and puts their claims on the request context.
type Authenticator struct {
	tokens      *security.TokenIssuer
	revocations *cache.RevocationList
	accounts    repositories.AccountRepository
	logger      *zap.Logger
}

// NewAuthenticator builds the bearer-token check. revocations and accounts may
// be nil; without accounts the token is trusted without a store lookup.
func NewAuthenticator(tokens *security.TokenIssuer, revocations *cache.RevocationList, accounts repositories.AccountRepository, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, revocations: revocations, accounts: accounts, logger: logger}
}

func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			services.SendErrorResponse(w, "Access token required", http.StatusUnauthorized, nil)
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				a.logger.Info("[AUTH] token expired", zap.String("remote_addr", r.RemoteAddr))
				services.SendErrorResponse(w, "Token expired", http.StatusUnauthorized, nil)
				return
			}
			a.logger.Warn("[AUTH] invalid token", zap.String("remote_addr", r.RemoteAddr))
			services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		if claims.Type != security.TokenTypeAccess {
			a.logger.Warn("[AUTH] non-access token presented", zap.String("type", string(claims.Type)))
			services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		revoked, err := a.revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			a.logger.Error("[AUTH] revocation check failed", zap.Error(err))
			services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
			return
		}
		if revoked {
			services.SendErrorResponse(w, "Token has been revoked", http.StatusUnauthorized, nil)
			return
		}

		if a.accounts != nil {
			acc, err := a.accounts.FindByID(r.Context(), claims.UserID)
			if err != nil {
				a.logger.Error("[AUTH] account lookup failed", zap.Error(err))
				services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
				return
			}
			if acc == nil {
				services.SendErrorResponse(w, "User not found", http.StatusUnauthorized, nil)
				return
			}
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.Claims)
	return claims, ok
}

// WithClaims returns ctx carrying claims, as RequireAuth would leave it.
func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
