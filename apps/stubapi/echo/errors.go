package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/services/remote"
)

const msgMissingRecord = "No existing attendance record found"

var (
	errOffline       = echo.NewHTTPError(http.StatusServiceUnavailable, "service unavailable")
	errMissingRecord = echo.NewHTTPError(http.StatusNotFound, msgMissingRecord)
	errAlreadyExists = echo.NewHTTPError(http.StatusConflict, "Attendance already submitted for this class and day")
	errInvalidKey    = echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
)

// newAppHTTPErrorHandler answers every error with the API envelope.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if len(origErr.Fields) > 0 {
				message = origErr.Fields[0].Field + ": " + origErr.Fields[0].Error
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)
			logger.Error(message, errors.Wrap(err, message))
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, remote.Response{Success: false, Message: message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
