package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/shell"
)

var errInvalidWidth = errors.New("width must be a non-negative number of pixels")

type shellApi struct {
	breakpoint int
}

func registerShellAPI(g *echo.Group, api *shellApi) {
	sg := g.Group("/shell", authOnly)
	sg.GET("", api.mount)
	sg.POST("/transition", api.transition)
}

type (
	// ShellView is what a freshly mounted dashboard shell renders.
	ShellView struct {
		Role   session.Role     `json:"role"`
		Layout shell.LayoutView `json:"layout"`
		shell.Navigation
	}

	TransitionRequest struct {
		Width int          `json:"width"`
		State *shell.State `json:"state"`
		Event shell.Event  `json:"event"`
		Route string       `json:"route"`
	}
)

func widthError() error {
	return core.NewValidationError(errInvalidWidth, core.FieldError{Field: "width", Error: errInvalidWidth.Error()})
}

func (api *shellApi) mount(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}

	width := api.breakpoint
	if w := ctx.QueryParam("width"); w != "" {
		if width, err = strconv.Atoi(w); err != nil || width < 0 {
			return widthError()
		}
	}

	return respond(ctx, http.StatusOK, ShellView{
		Role:       s.Role,
		Layout:     shell.ViewOf(shell.Initial(width, api.breakpoint)),
		Navigation: shell.NavigationFor(s.Role),
	})
}

// transition runs one event through the layout state machine, for clients that do not embed it.
func (api *shellApi) transition(ctx echo.Context) error {
	var data TransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	if data.Width < 0 {
		return widthError()
	}

	state := shell.Initial(data.Width, api.breakpoint)
	if data.State != nil {
		state = *data.State
	}
	return respond(ctx, http.StatusOK, shell.ViewOf(shell.Next(state, data.Event, data.Width, api.breakpoint)))
}
