package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

const contextStateKey = "session"

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// Claims represents the authorization claims transmitted via the session cookie.
// The token ID is the session ID; everything else is informative, the session row is authoritative.
type Claims struct {
	jwt.StandardClaims
	Role session.Role `json:"role"`
}

type tokenSigner struct {
	conf *core.Config
	key  []byte
}

func newTokenSigner(conf *core.Config) tokenSigner {
	return tokenSigner{conf: conf, key: []byte(conf.SecretKey)}
}

func (ts tokenSigner) claims(s session.Session) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        s.ID,
			Issuer:    ts.conf.AppName,
			Subject:   s.UserID,
			IssuedAt:  s.CreatedAt.Unix(),
			ExpiresAt: s.ExpiresAt.Unix(),
		},
		Role: s.Role,
	}
}

// Sign generates a signed JWT token string representing the session.
func (ts tokenSigner) Sign(s session.Session) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, ts.claims(s))
	ss, err := token.SignedString(ts.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse returns the session ID carried by a valid token.
func (ts tokenSigner) Parse(raw string) (string, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errUnexpectedSigningMethod
		}
		return ts.key, nil
	})
	if err != nil {
		return "", err
	}
	return claims.Id, nil
}

func (ts tokenSigner) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     ts.conf.Server.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   ts.conf.Server.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (ts tokenSigner) setCookie(ctx echo.Context, s session.Session) error {
	token, err := ts.Sign(s)
	if err != nil {
		return err
	}
	ctx.SetCookie(ts.cookie(token, s.ExpiresAt))
	return nil
}

func (ts tokenSigner) clearCookie(ctx echo.Context) {
	c := ts.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	ctx.SetCookie(c)
}

// sessionMiddleware hydrates the session of every request before any handler runs.
// A cookie that no longer hydrates is cleared.
func sessionMiddleware(ts tokenSigner, hydrator *session.Hydrator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(ts.conf.Server.CookieName)
			if err != nil || cookie.Value == "" {
				ctx.Set(contextStateKey, session.Absent())
				return next(ctx)
			}

			state := session.Absent()
			if id, err := ts.Parse(cookie.Value); err == nil {
				state = hydrator.Await(ctx.Request().Context(), id)
			}
			if state.Status != session.StatusPresent {
				ts.clearCookie(ctx)
			}
			ctx.Set(contextStateKey, state)
			return next(ctx)
		}
	}
}

// contextState returns the hydrated session state; requests that skipped hydration are absent.
func contextState(ctx echo.Context) session.State {
	if st, ok := ctx.Get(contextStateKey).(session.State); ok {
		return st
	}
	return session.Absent()
}

func contextSession(ctx echo.Context) (session.Session, error) {
	st := contextState(ctx)
	if st.Status != session.StatusPresent {
		return session.Session{}, core.ErrUnauthenticated
	}
	return st.Session, nil
}
