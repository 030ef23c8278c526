// ABOUTME: Tests for the shared JSON envelope helpers
// ABOUTME: Verifies status, content type, and envelope shape

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "u-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u-1", body["id"])
}

func TestWriteError_UsesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusUnauthorized, "unauthorized", "invalid or missing token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "unauthorized", envelope.Error)
	assert.Equal(t, "invalid or missing token", envelope.Message)
}
