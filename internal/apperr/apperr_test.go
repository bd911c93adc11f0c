package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestKindStatusAndCode(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{KindUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{KindTokenExpired, http.StatusUnauthorized, "token_expired"},
		{KindPermissionDenied, http.StatusForbidden, "permission_denied"},
		{KindValidation, http.StatusBadRequest, "validation"},
		{KindUserExists, http.StatusConflict, "user_exists"},
		{KindConflict, http.StatusConflict, "conflict"},
		{KindNotFound, http.StatusNotFound, "not_found"},
		{KindTooManyRequests, http.StatusTooManyRequests, "too_many_requests"},
		{KindInternal, http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, tc.kind.Status(), tc.code)
		require.Equal(t, tc.code, tc.kind.Code())
	}
}

func TestKindOf(t *testing.T) {
	err := NotFound("gone")
	require.Equal(t, KindNotFound, KindOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	require.Equal(t, KindNotFound, KindOf(wrapped))

	require.Equal(t, KindInternal, KindOf(errors.New("plain")))
	require.Equal(t, KindInternal, KindOf(Internal(errors.New("db down"))))
}

func TestInternalCauseNeverSerialized(t *testing.T) {
	err := Internal(errors.New("password=hunter2 leaked into logs"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(err, c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "hunter2")
}

func TestErrorEnvelopeShape(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(TooManyRequests("slow down"), c)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "too_many_requests", env.Error.Code)
	require.Equal(t, "slow down", env.Error.Message)
}

func TestSuccessEnvelopeShape(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, OK(c, http.StatusOK, echo.Map{"answer": 42}))

	var env struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.EqualValues(t, 42, env.Data["answer"])
}

func TestUnknownEchoErrorsMap(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(echo.NewHTTPError(http.StatusNotFound), c)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not_found")
}
