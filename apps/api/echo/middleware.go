package echoapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

// gate lets a request through only when the hydrated session may render routes of family.
func gate(family session.Family) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			d := session.Decide(contextState(ctx), family)
			switch {
			case d.Action == session.ActionRender:
				return next(ctx)
			case d.Redirect == session.LoginPath:
				return &gateError{code: http.StatusUnauthorized, decision: d}
			default:
				return &gateError{code: http.StatusForbidden, decision: d}
			}
		}
	}
}

var (
	adminOnly   = gate(session.FamilyAdmin)
	studentOnly = gate(session.FamilyStudent)
	parentOnly  = gate(session.FamilyParent)
	authOnly    = gate(session.FamilyAny)
)

// authRateWindow is the period of the auth endpoints rate limit.
const authRateWindow = time.Minute

type rateWindow struct {
	start time.Time
	count int
}

// rateLimiter allows up to limit requests per client IP in fixed windows.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*rateWindow
	nowFunc func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window, clients: make(map[string]*rateWindow), nowFunc: time.Now}
}

func (rl *rateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.nowFunc()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[ip]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.sweep(now)
		rl.clients[ip] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// sweep drops the windows that ended; called with mu held.
func (rl *rateLimiter) sweep(now time.Time) {
	for ip, w := range rl.clients {
		if now.Sub(w.start) >= rl.window {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !rl.Allow(remoteIP(ctx.Request())) {
				return errRateLimited
			}
			return next(ctx)
		}
	}
}

// remoteIP is the peer address of the connection. Forwarding headers are client input and ignored.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
