package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
)

const (
	ctxSessionKey = "session"
	ctxTokenKey   = "sessionToken"
)

// guard resolves the session of each request and applies the access.Decide outcome.
type guard struct {
	conf     *core.Config
	logger   core.Logger
	sessions access.SessionProvider
}

func newGuard(conf *core.Config, logger core.Logger, sessions access.SessionProvider) *guard {
	return &guard{conf: conf, logger: logger, sessions: sessions}
}

// requestToken returns the session token of the request: the session cookie first,
// then an "Authorization: Bearer" header.
func (g *guard) requestToken(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(g.conf.Session.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}

// resolve returns the session of the request, or nil when it has none or it cannot be resolved.
func (g *guard) resolve(ctx echo.Context) (*access.Session, string) {
	token := g.requestToken(ctx)
	if token == "" {
		return nil, ""
	}
	sess, err := g.sessions.Resolve(ctx.Request().Context(), token)
	if err != nil {
		g.logger.Debug("resolving session: "+err.Error(), map[string]interface{}{"path": ctx.Request().URL.Path})
		return nil, token
	}
	return sess, token
}

// Require protects the routes of rg: the handler runs only when the request's session
// satisfies the group policy. Anything else is a redirect, never an error page.
func (g *guard) Require(rg access.RouteGroup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, token := g.resolve(ctx)

			decision, err := access.Decide(sess, rg.Policy)
			if err != nil {
				g.logger.Error("access decision failed", err, sess, map[string]interface{}{
					"group": rg.Name,
					"path":  ctx.Request().URL.Path,
				})
				return ctx.Redirect(http.StatusFound, access.LoginPath)
			}
			if decision.IsRedirect() {
				return ctx.Redirect(http.StatusFound, decision.Location)
			}

			ctx.Set(ctxSessionKey, sess)
			ctx.Set(ctxTokenKey, token)
			return next(ctx)
		}
	}
}

// getContextSession returns the session set by the guard, nil outside of protected routes.
func getContextSession(ctx echo.Context) *access.Session {
	sess, _ := ctx.Get(ctxSessionKey).(*access.Session)
	return sess
}

func getContextToken(ctx echo.Context) string {
	token, _ := ctx.Get(ctxTokenKey).(string)
	return token
}
