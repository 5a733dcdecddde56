package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, http.StatusNotFound, "department_not_found", "department not found", "req-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var env struct {
		Success   bool   `json:"success"`
		RequestID string `json:"requestId"`
		Error     Error  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, "department_not_found", env.Error.Code)
}

func TestCreatedEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "u-1"}, "req-3")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"id":"u-1"},"requestId":"req-3"}`, rec.Body.String())
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "text/csv", "Ops_ShiftRota_2024-06.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "\"Process\"\n")
		return err
	}, "req-2")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Ops_ShiftRota_2024-06.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"Process\"\n", rec.Body.String())
}

func TestAttachmentRenderFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "application/pdf", "x.pdf", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("boom")
	}, "req-3")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "export_failed")
}
