package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeStatusCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrInteractionFailed, http.StatusConflict},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.StatusCode())
		})
	}
}

func TestInteractionFailed(t *testing.T) {
	err := InteractionFailed("already liked")

	assert.Equal(t, ErrInteractionFailed, err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "INTERACTION_FAILED: already liked", err.Error())
}

func TestConstructorsUseCodeStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("novel").Status)
	assert.Equal(t, "novel not found", NotFound("novel").Message)
	assert.Equal(t, http.StatusServiceUnavailable, ServiceUnavailable("image storage").Status)
	assert.Equal(t, "rate limit exceeded", RateLimited("").Message)
	assert.Equal(t, http.StatusUnprocessableEntity, ValidationError("file", "too big").Status)
}

func TestAPIErrorJSONOmitsStatus(t *testing.T) {
	err := ValidationError("title", "title is required").WithDetails("empty string")

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "VALIDATION_ERROR", decoded["code"])
	assert.Equal(t, "title", decoded["field"])
	assert.Equal(t, "empty string", decoded["details"])
	assert.NotContains(t, decoded, "Status")
	assert.Equal(t, "VALIDATION_ERROR: title is required (field: title)", err.Error())
}
