package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

const (
	msgLoggedOut    = "Logged out."
	msgOTPSent      = "If the email address supplied is associated with an active account, a verification code will arrive in your inbox shortly."
	msgResetSent    = "If the email address supplied is associated with an active account on this system, an email will arrive in your inbox shortly with instructions to reset your password."
	msgPasswordDone = "Password has been reset with the new password."
)

// authApi owns the session store: it is the only part of the API that opens or closes sessions.
type authApi struct {
	svc      *user.Service
	sessions *session.Store
	tokens   tokenSigner
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, api *authApi, limiter *rateLimiter) {
	ag := g.Group("/auth")
	limit := limiter.Middleware()

	ag.POST("/login", api.login, limit)
	ag.POST("/logout", api.logout)
	ag.POST("/otp/request", api.requestOTP, limit)
	ag.POST("/otp/verify", api.verifyOTP, limit)
	ag.POST("/password-reset", api.resetPassword, limit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, limit)
	ag.GET("/me", api.me, authOnly)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	OTPVerifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,numeric"`
	}

	// AuthResponse is returned by every flow that opens a session; the token itself travels in the cookie.
	AuthResponse struct {
		User    user.User       `json:"user"`
		Session session.Session `json:"session"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

func (vr *OTPVerifyRequest) Validate(validate *validator.Validate) error {
	vr.Email = core.CleanString(vr.Email, true /* lower */)
	vr.Code = core.CleanString(vr.Code)
	return validate.Struct(vr)
}

func (api *authApi) open(ctx echo.Context, usr user.User) error {
	s, err := api.sessions.Open(ctx.Request().Context(), usr.Identity())
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	if err = api.tokens.setCookie(ctx, s); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, AuthResponse{User: usr, Session: s})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.open(ctx, usr)
}

func (api *authApi) logout(ctx echo.Context) error {
	if s, err := contextSession(ctx); err == nil {
		if err = api.sessions.Close(ctx.Request().Context(), s.ID); err != nil {
			return err
		}
	}
	api.tokens.clearCookie(ctx)
	return respondMessage(ctx, http.StatusOK, msgLoggedOut)
}

func (api *authApi) requestOTP(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestOTP(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting verification code"))
	}
	return respondMessage(ctx, http.StatusOK, msgOTPSent)
}

func (api *authApi) verifyOTP(ctx echo.Context) error {
	var data OTPVerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPVerifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.VerifyOTP(ctx.Request().Context(), data.Email, data.Code)
	if err != nil {
		return errors.Wrap(err, "verifying code")
	}
	return api.open(ctx, usr)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return respondMessage(ctx, http.StatusOK, msgResetSent)
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.ResetPassword(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "resetting password")
	}
	// every browser of the user has to log in again
	if err = api.sessions.CloseAll(ctx.Request().Context(), usr.ID); err != nil {
		return err
	}
	api.tokens.clearCookie(ctx)
	return respondMessage(ctx, http.StatusOK, msgPasswordDone)
}

func (api *authApi) me(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), s.UserID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return respond(ctx, http.StatusOK, AuthResponse{User: usr, Session: s})
}

// userApi lets admins manage accounts of any role; students have their own endpoints.
type userApi struct {
	svc      *user.Service
	sessions *session.Store
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, api *userApi) {
	ug := g.Group("/users", adminOnly)
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.GET("/roles", api.queryRoles)

	// detail endpoints
	dg := ug.Group("/:id", userObject(api.svc))
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *userApi) query(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	for _, r := range ctx.QueryParams()["role"] {
		role, err := session.ParseRole(core.CleanString(r, true /* lower */))
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
		}
		filter.Roles = append(filter.Roles, role)
	}
	var ordering Ordering
	ordering.Bind(ctx)

	users, err := api.svc.Filter(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return respondPage(ctx, users, len(users))
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, session.AllRoles)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return respond(ctx, http.StatusCreated, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving user")
	}
	return respond(ctx, http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving user")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	if !usr.IsActive {
		if err = api.sessions.CloseAll(ctx.Request().Context(), usr.ID); err != nil {
			return err
		}
	}
	return respond(ctx, http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving user")
	}

	// Say No to Suicide! an admin cannot delete themselves
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	if usr.ID == s.UserID {
		return core.ErrForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func userObject(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set("object", usr)
			return next(ctx)
		}
	}
}
