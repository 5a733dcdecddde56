package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftrota/internal/domain/rota"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)

	month, year, err := ParsePeriod("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.June, month)
	assert.Equal(t, 2024, year)

	month, year, err = ParsePeriod("1", "2025", now)
	require.NoError(t, err)
	assert.Equal(t, time.January, month)
	assert.Equal(t, 2025, year)

	for _, tc := range [][2]string{{"13", "2024"}, {"0", "2024"}, {"x", "2024"}, {"6", "0"}, {"6", "10000"}, {"6", "20x"}} {
		_, _, err := ParsePeriod(tc[0], tc[1], now)
		assert.True(t, errors.Is(err, rota.ErrInvalidPeriod), "%v", tc)
	}
}

func TestQueryList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rota?shift=Night&shift=&shift=APAC", nil)
	assert.Equal(t, []string{"Night", "APAC"}, QueryList(req, "shift"))
	assert.Nil(t, QueryList(req, "process"))
}

type userPayload struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=viewer editor admin"`
}

func TestValidatorStruct(t *testing.T) {
	v := NewValidator()
	v.Struct(userPayload{Email: "nope", Role: "owner"})

	require.True(t, v.HasIssues())
	assert.Equal(t, []ValidationIssue{
		{Field: "email", Reason: "must be a valid email address"},
		{Field: "role", Reason: "must be one of: viewer editor admin"},
		{Field: "username", Reason: "is required"},
	}, v.Issues())

	rec := httptest.NewRecorder()
	assert.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestDecodeJSON(t *testing.T) {
	var dst map[string]string
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.False(t, DecodeJSON(rec, req, &dst, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`))
	require.True(t, DecodeJSON(rec, req, &dst, "req-1"))
	assert.Equal(t, "b", dst["a"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 4)
	assert.False(t, DecodeJSON(rec, req, &dst, "req-1"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, false, env["success"])
}
