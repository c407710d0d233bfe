// Package handlers exposes the services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/middleware"
	"github.com/eduguide/backend/internal/security"
	"github.com/eduguide/backend/internal/services"
	"go.uber.org/zap"
)

const maxBodyBytes = 1_048_576

// decodeJSON reads exactly one JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.Validation("Request body must only contain a single JSON object")
	}
	return v.Validate(dst)
}

// writeError maps err to its status. Internal causes are logged and never sent.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := apperrors.As(err)

	switch appErr.Kind {
	case apperrors.KindInternal:
		logger.Error("request failed", zap.String("op", appErr.Message), zap.Error(appErr.Err))
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	case apperrors.KindToken:
		logger.Info("[AUTH] token rejected", zap.String("reason", appErr.Message))
	case apperrors.KindLocked:
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
		}
	}

	services.SendErrorResponse(w, appErr.Message, appErr.Status(), appErr.Fields)
}

// currentClaims returns the claims RequireAuth attached to the request.
func currentClaims(w http.ResponseWriter, r *http.Request) (*security.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		services.SendErrorResponse(w, "Access token required", http.StatusUnauthorized, nil)
		return nil, false
	}
	return claims, true
}
