package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WritesStructuredEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := NewLogger(zap.New(core))

	a.Success(EventLoginSuccess, "u1", map[string]string{"ip": "10.0.0.1"})
	a.Failure(EventLoginFailed, "u2", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, EventLoginSuccess, first["event_type"])
	assert.Equal(t, "u1", first["account_id"])
	assert.Equal(t, "SUCCESS", first["status"])

	second := entries[1].ContextMap()
	assert.Equal(t, "FAILED", second["status"])
	assert.Equal(t, "u2", second["account_id"])
}

func TestNewLogger_NilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		NewLogger(nil).Success(EventLogout, "u1", nil)
	})
}
