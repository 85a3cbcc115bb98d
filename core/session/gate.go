package session

import (
	"context"
	"strings"
	"time"
)

// LoginPath is where absent sessions are sent.
const LoginPath = "/login"

// Status is the hydration status of a browser session.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusAbsent
	StatusPresent
)

// State is what the gate knows about the session when it decides.
type State struct {
	Status  Status
	Session Session
}

func Unknown() State { return State{Status: StatusUnknown} }

func Absent() State { return State{Status: StatusAbsent} }

func Present(s Session) State { return State{Status: StatusPresent, Session: s} }

type Action uint8

const (
	ActionLoading Action = iota
	ActionRender
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionLoading:
		return "loading"
	case ActionRender:
		return "render"
	case ActionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Decision is the gate's verdict for one route.
type Decision struct {
	Action   Action `json:"action"`
	Redirect string `json:"redirect,omitempty"`
}

// Decide maps a session state and the family a route requires to a decision.
// It never renders while the state is unknown, and never renders a route whose
// family does not allow the session role.
func Decide(state State, family Family) Decision {
	switch state.Status {
	case StatusUnknown:
		return Decision{Action: ActionLoading}
	case StatusAbsent:
		return Decision{Action: ActionRedirect, Redirect: LoginPath}
	case StatusPresent:
		role := state.Session.Role
		if family.Allows(role) {
			return Decision{Action: ActionRender}
		}
		return Decision{Action: ActionRedirect, Redirect: role.HomePath()}
	default:
		return Decision{Action: ActionRedirect, Redirect: LoginPath}
	}
}

// RouteFamily returns the family a frontend route requires, false for public routes.
func RouteFamily(route string) (Family, bool) {
	route = "/" + strings.Trim(strings.SplitN(route, "?", 2)[0], "/")
	switch {
	case hasSegmentPrefix(route, "/admin"):
		return FamilyAdmin, true
	case hasSegmentPrefix(route, "/student"):
		return FamilyStudent, true
	case hasSegmentPrefix(route, "/parent"):
		return FamilyParent, true
	case hasSegmentPrefix(route, "/dashboard"), hasSegmentPrefix(route, "/profile"):
		return FamilyAny, true
	default:
		return FamilyAny, false
	}
}

func hasSegmentPrefix(route, prefix string) bool {
	return route == prefix || strings.HasPrefix(route, prefix+"/")
}

// RoleSource reports the current role of a user, and whether the user may still log in.
type RoleSource interface {
	CurrentRole(ctx context.Context, userID string) (role Role, active bool, err error)
}

// Hydrator resolves a session id into a State within a bounded wait.
type Hydrator struct {
	sessions Reader
	users    RoleSource
	timeout  time.Duration
	NowFunc  func() time.Time // mockable
}

func NewHydrator(sessions Reader, users RoleSource, timeout time.Duration) *Hydrator {
	return &Hydrator{sessions: sessions, users: users, timeout: timeout, NowFunc: time.Now}
}

// Await resolves the session or gives up after the hydration timeout.
// Errors, expiry, deactivated users and role changes all yield Absent.
func (h *Hydrator) Await(ctx context.Context, id string) State {
	if id == "" {
		return Absent()
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ch := make(chan State, 1)
	go func() { ch <- h.resolve(ctx, id) }()

	select {
	case st := <-ch:
		return st
	case <-ctx.Done():
		return Absent()
	}
}

func (h *Hydrator) resolve(ctx context.Context, id string) State {
	s, err := h.sessions.GetSession(ctx, id)
	if err != nil {
		return Absent()
	}
	if s.Expired(h.NowFunc()) {
		return Absent()
	}
	if h.users != nil {
		role, active, err := h.users.CurrentRole(ctx, s.UserID)
		if err != nil || !active || role != s.Role {
			return Absent()
		}
	}
	return Present(s)
}
