package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Status(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Authentication("nope"), http.StatusUnauthorized},
		{Token("Token expired", nil), http.StatusUnauthorized},
		{Locked("locked", time.Hour), http.StatusLocked},
		{NotFound("missing"), http.StatusNotFound},
		{Authorization("forbidden"), http.StatusForbidden},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.err.Kind.String(), func(t *testing.T) {
			assert.Equal(t, c.want, c.err.Status())
		})
	}
}

func TestAs(t *testing.T) {
	t.Run("wrapped typed error", func(t *testing.T) {
		wrapped := fmt.Errorf("context: %w", NotFound("User not found"))
		e := As(wrapped)
		assert.Equal(t, KindNotFound, e.Kind)
		assert.Equal(t, "User not found", e.Message)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		cause := errors.New("connection refused")
		e := As(cause)
		assert.Equal(t, KindInternal, e.Kind)
		assert.ErrorIs(t, e, cause)
	})
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(Locked("x", time.Minute), KindLocked))
	assert.False(t, IsKind(Validation("x"), KindLocked))
	assert.False(t, IsKind(errors.New("x"), KindValidation))
}
