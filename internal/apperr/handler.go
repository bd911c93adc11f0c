package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftwerk/portfolio-backend/internal/logging"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

// OK writes the success envelope.
func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

// HTTPErrorHandler serializes every handler error into the
// {success:false, error:{code,message}} envelope. Errors outside the
// taxonomy (including echo's own HTTPErrors) become Internal unless
// they carry a client status.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	kind := KindInternal
	message := "internal error"

	var appErr *Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		kind = appErr.Kind
		message = appErr.Message
	case errors.As(err, &httpErr):
		if httpErr.Code == http.StatusNotFound {
			kind = KindNotFound
			message = "not found"
		} else if httpErr.Code == http.StatusMethodNotAllowed {
			kind = KindValidation
			message = "method not allowed"
		}
	}

	if kind == KindInternal {
		logging.FromContext(c.Request().Context()).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	resp := envelope{Success: false, Error: &errorBody{Code: kind.Code(), Message: message}}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(kind.Status())
		return
	}
	_ = c.JSON(kind.Status(), resp)
}
