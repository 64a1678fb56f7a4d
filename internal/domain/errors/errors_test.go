package errors

import (
	"net/http"
	"testing"

	"authcore/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestBaseError_WrapMessageKeepsIdentity(t *testing.T) {
	err := ErrRefreshFailed.WrapMessage("token revoked")

	assert.True(t, errors.Is(err, ErrRefreshFailed))
	assert.Contains(t, err.Error(), "token revoked")

	var appErr AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPCode())
	assert.Equal(t, "REFRESH_FAILED", appErr.ErrorCode())
	assert.NotContains(t, appErr.Message(), "revoked")
}

func TestDatabaseExecuteError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabaseExecuteError(cause, "failed to update refresh token")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "failed to update refresh token: connection reset", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.HTTPCode())
	assert.Equal(t, "database execution failed", err.Message())
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("auth.accessToken.signingKey", "required")

	assert.Equal(t, "configuration error: auth.accessToken.signingKey: required", err.Error())
}
