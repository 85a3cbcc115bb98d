package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	filestore "github.com/karemsaeed20020/Education-Platform-sub002/storage/files"
)

var (
	errRateLimited   = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
	errInvalidUpload = core.NewValidationError(errors.New("a file is required"), core.FieldError{Field: "file", Error: "a file is required"})
	errObjNotInCtx   = errors.New("object not found in echo.Context")
)

// errorCodes maps domain errors that are not validation or lookup failures to their HTTP status.
var errorCodes = []struct {
	err  error
	code int
}{
	{user.ErrInvalidCredentials, http.StatusBadRequest},
	{user.ErrAccountDeactivated, http.StatusForbidden},
	{student.ErrInvalidParent, http.StatusBadRequest},
	{homework.ErrClosed, http.StatusConflict},
	{homework.ErrAlreadyGraded, http.StatusConflict},
	{homework.ErrQuestionsLocked, http.StatusConflict},
	{schedule.ErrFull, http.StatusConflict},
	{schedule.ErrAlreadyRegistered, http.StatusConflict},
	{schedule.ErrUnavailable, http.StatusConflict},
	{exam.ErrAlreadySubmitted, http.StatusConflict},
	{exam.ErrUnavailable, http.StatusConflict},
	{exam.ErrQuestionsLocked, http.StatusConflict},
	{filestore.ErrInvalidKey, http.StatusBadRequest},
}

// domainCode returns the status of a known domain error, 0 otherwise.
func domainCode(cause error) int {
	for _, ec := range errorCodes {
		if cause == ec.err {
			return ec.code
		}
	}
	return 0
}

// gateError is returned by the gate middleware; it carries where the client must go.
type gateError struct {
	code     int
	decision session.Decision
}

func (e *gateError) Error() string {
	if e.code == http.StatusUnauthorized {
		return core.ErrUnauthenticated.Error()
	}
	return core.ErrForbidden.Error()
}

func redirectTo(path string) echo.Map {
	return echo.Map{"redirect": path}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders every error in the response envelope.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message string
			data    interface{}
		)

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
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
			if code == http.StatusUnauthorized {
				data = redirectTo(session.LoginPath)
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = "validation failed"
			data = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if len(origErr.Fields) > 0 {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				data = fldErrs
			}
		case *gateError:
			code = origErr.code
			message = origErr.Error()
			data = redirectTo(origErr.decision.Redirect)
		default:
			switch {
			case cause == core.ErrUnauthenticated:
				code = http.StatusUnauthorized
				message = cause.Error()
				data = redirectTo(session.LoginPath)
			case cause == core.ErrForbidden:
				code = http.StatusForbidden
				message = cause.Error()
				if st := contextState(ctx); st.Status == session.StatusPresent {
					data = redirectTo(st.Session.Role.HomePath())
				}
			case core.IsNotFound(cause):
				code = http.StatusNotFound
				message = cause.Error()
			case domainCode(cause) != 0:
				code = domainCode(cause)
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(code)

				args := []interface{}{errors.Wrap(err, message)}
				if st := contextState(ctx); st.Status == session.StatusPresent {
					args = append(args, st.Session)
				}
				logger.Error(message, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
				if ctx.Echo().Debug {
					message = err.Error()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, envelope{Status: statusError, Data: data, Message: message})
			}
			if err != nil {
				logger.Error("sending error response", err)
			}
		}
	}
}
