package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	headerTotalCount = "X-Total-Count"
)

// envelope wraps every JSON response of the API.
type envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, envelope{Status: statusSuccess, Data: data})
}

func respondMessage(ctx echo.Context, code int, message string) error {
	return ctx.JSON(code, envelope{Status: statusSuccess, Message: message})
}

// respondPage sends one page of a listing; the total number of matches goes in a header.
func respondPage(ctx echo.Context, data interface{}, total int) error {
	ctx.Response().Header().Set(headerTotalCount, strconv.Itoa(total))
	return respond(ctx, http.StatusOK, data)
}
