package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

// GateResponse tells a client what to do with one of its routes.
type GateResponse struct {
	session.Decision
	Role *session.Role `json:"role,omitempty"`
}

func registerGateAPI(g *echo.Group) {
	g.GET("/gate", gateRoute)
}

// gateRoute decides for a frontend route given by `?route=`. Public routes always render.
func gateRoute(ctx echo.Context) error {
	state := contextState(ctx)

	var resp GateResponse
	if family, protected := session.RouteFamily(ctx.QueryParam("route")); protected {
		resp.Decision = session.Decide(state, family)
	} else {
		resp.Decision = session.Decision{Action: session.ActionRender}
	}
	if state.Status == session.StatusPresent {
		role := state.Session.Role
		resp.Role = &role
	}
	return respond(ctx, http.StatusOK, resp)
}
