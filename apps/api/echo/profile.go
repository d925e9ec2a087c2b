package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/user"
)

type profileApi struct {
	conf     *core.Config
	logger   core.Logger
	sessions access.SessionProvider
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerProfileAPI(e *echo.Echo, g *guard, deps ServerDeps) {
	api := profileApi{
		conf:     deps.Conf,
		logger:   deps.Logger,
		sessions: deps.Sessions,
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	pg := e.Group(access.ProfileArea.Prefix, g.Require(access.ProfileArea))
	pg.GET("", api.retrieve)
	pg.PUT("", api.update)
	pg.PUT("/password", api.changePassword)
	pg.DELETE("", api.destroy)
}

// contextUser returns the User owning the session of the request.
func (api *profileApi) contextUser(ctx echo.Context) (user.User, error) {
	usr, err := api.svc.GetByID(ctx.Request().Context(), contextSession(ctx).UserID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	return usr, nil
}

// staleSession sends the owner of a session whose user is gone back to login.
func (api *profileApi) staleSession(ctx echo.Context, err error) error {
	if errors.Cause(err) != user.ErrNotFound {
		return err
	}
	api.logger.Debug("session of a deleted user", contextSession(ctx))
	clearSessionCookie(ctx, api.conf)
	return ctx.Redirect(http.StatusFound, access.LoginPath)
}

// Handlers

func (api *profileApi) retrieve(ctx echo.Context) error {
	usr, err := api.contextUser(ctx)
	if err != nil {
		return api.staleSession(ctx, err)
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *profileApi) update(ctx echo.Context) error {
	usr, err := api.contextUser(ctx)
	if err != nil {
		return api.staleSession(ctx, err)
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *profileApi) changePassword(ctx echo.Context) error {
	usr, err := api.contextUser(ctx)
	if err != nil {
		return api.staleSession(ctx, err)
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(api.validate, usr); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your password has been changed."})
}

func (api *profileApi) destroy(ctx echo.Context) error {
	sess := contextSession(ctx)
	if _, err := api.svc.Delete(ctx.Request().Context(), sess.UserID); err != nil {
		return errors.Wrap(err, "deleting account")
	}

	if err := api.sessions.Revoke(ctx.Request().Context(), getContextToken(ctx)); err != nil {
		api.logger.Error("revoking session", err, sess)
	}
	clearSessionCookie(ctx, api.conf)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your account has been deleted.", Redirect: "/"})
}
