package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/dashboard"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/response"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionExpired     = echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errNoReader           = echo.NewHTTPError(http.StatusNotFound, "no magazine is open")
	errMalformedMultipart = echo.NewHTTPError(http.StatusBadRequest, "malformed multipart form")
)

// domainErrors maps the domain sentinels to their HTTP status.
var domainErrors = map[error]int{
	user.ErrAuthenticationFailed:     http.StatusUnauthorized,
	session.ErrInvalidCredential:     http.StatusUnauthorized,
	session.ErrNoUser:                http.StatusUnauthorized,
	session.ErrNotFound:              http.StatusUnauthorized,
	core.ErrForbidden:                http.StatusForbidden,
	core.ErrPermissionDenied:         http.StatusForbidden,
	user.ErrPendingApproval:          http.StatusForbidden,
	core.ErrDocNotFound:              http.StatusNotFound,
	user.ErrNotFound:                 http.StatusNotFound,
	class.ErrNotFound:                http.StatusNotFound,
	magazine.ErrNotFound:             http.StatusNotFound,
	announcement.ErrNotFound:         http.StatusNotFound,
	magazine.ErrExerciseNotFound:     http.StatusNotFound,
	magazine.ErrPageNotFound:         http.StatusNotFound,
	magazine.ErrUploadTooLarge:       http.StatusRequestEntityTooLarge,
	user.ErrPictureTooLarge:          http.StatusRequestEntityTooLarge,
	user.ErrNotPending:               http.StatusConflict,
	dashboard.ErrAnnouncementPending: http.StatusConflict,
	reader.ErrNotPaged:               http.StatusConflict,
	reader.ErrNotAuthoring:           http.StatusConflict,
	reader.ErrClosed:                 http.StatusConflict,
	reader.ErrStaleRender:            http.StatusConflict,
	core.ErrPageOutOfRange:           http.StatusBadRequest,
	session.ErrInvalidView:           http.StatusBadRequest,
	response.ErrLinkExercise:         http.StatusBadRequest,
	response.ErrInvalidAnswer:        http.StatusBadRequest,
	announcement.ErrNoClass:          http.StatusBadRequest,
	attendance.ErrNotStudent:         http.StatusBadRequest,
}

// domainStatus compares rather than indexes: some causes (validator.ValidationErrors) are not hashable.
func domainStatus(cause error) (int, bool) {
	for sentinel, status := range domainErrors {
		if cause == sentinel {
			return status, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if status, ok := domainStatus(cause); ok {
			cause = echo.NewHTTPError(status, cause.Error())
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			usr, _ := getContextUser(ctx)
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
