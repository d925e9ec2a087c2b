package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/user"
)

var nowFunc = time.Now // mockable

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token    string `json:"token"`
		Redirect string `json:"redirect"`
	}

	SuccessResponse struct {
		Success  string `json:"success"`
		Redirect string `json:"redirect,omitempty"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type authApi struct {
	conf     *core.Config
	logger   core.Logger
	sessions access.SessionProvider
	guard    *guard
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerAuthAPI(e *echo.Echo, g *guard, deps ServerDeps) {
	api := authApi{
		conf:     deps.Conf,
		logger:   deps.Logger,
		sessions: deps.Sessions,
		guard:    g,
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	// TODO: rate limit `/login` & `/signup`
	e.GET(access.LoginPath, api.loginPage)
	e.POST(access.LoginPath, api.login)
	e.POST("/signup", api.signup)
	e.POST("/logout", api.logout)
	e.GET(access.Dashboard.Prefix, api.dashboard, g.Require(access.Dashboard))
}

// Handlers

func (api *authApi) loginPage(ctx echo.Context) error {
	// already signed in
	if sess, _ := api.guard.resolve(ctx); sess != nil {
		if home, err := access.RoleHome(sess.Role); err == nil {
			return ctx.Redirect(http.StatusFound, home)
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"page": "login"})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	home, err := access.RoleHome(usr.Role)
	if err != nil {
		return errors.Wrapf(err, "role home of %q", usr.Role)
	}

	sess := usr.Session(nowFunc().Add(api.conf.Session.TTL))
	token, err := api.sessions.Issue(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "issuing session")
	}
	api.setSessionCookie(ctx, token, sess.ExpiresAt)

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Redirect: home})
}

func (api *authApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Role = access.RoleStudent // sign-up creates students only
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) logout(ctx echo.Context) error {
	if token := api.guard.requestToken(ctx); token != "" {
		if err := api.sessions.Revoke(ctx.Request().Context(), token); err != nil {
			api.logger.Error("revoking session", err)
		}
	}
	clearSessionCookie(ctx, api.conf)
	return ctx.Redirect(http.StatusFound, "/")
}

func (api *authApi) dashboard(ctx echo.Context) error {
	home, err := access.RoleHome(contextSession(ctx).Role)
	if err != nil {
		return errors.Wrap(err, "getting role home")
	}
	return ctx.Redirect(http.StatusFound, home)
}

// Session cookie

func sessionCookie(conf *core.Config, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     conf.Session.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !conf.Debug,
		SameSite: http.SameSiteLaxMode,
	}
}

func (api *authApi) setSessionCookie(ctx echo.Context, token string, expires time.Time) {
	ctx.SetCookie(sessionCookie(api.conf, token, expires))
}

func clearSessionCookie(ctx echo.Context, conf *core.Config) {
	cookie := sessionCookie(conf, "", time.Unix(0, 0))
	cookie.MaxAge = -1
	ctx.SetCookie(cookie)
}

// contextSession returns the session of a guarded request.
func contextSession(ctx echo.Context) access.Session {
	if sess := getContextSession(ctx); sess != nil {
		return *sess
	}
	return access.Session{}
}
