package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/dashboard"
	"github.com/goosen-x/lms/core/user"
)

type dashboardApi struct {
	svc       *dashboard.Service
	userSvc   user.ServiceInterface
	courseSvc course.ServiceInterface
}

func registerDashboardAPI(e *echo.Echo, g *guard, deps ServerDeps) {
	api := dashboardApi{
		svc:       deps.DashboardSvc,
		userSvc:   deps.UserSvc,
		courseSvc: deps.CourseSvc,
	}

	ag := e.Group(access.AdminArea.Prefix, g.Require(access.AdminArea))
	ag.GET("", api.admin)
	ag.GET("/users", api.users)
	ag.GET("/courses", api.courses)

	tg := e.Group(access.TeacherArea.Prefix, g.Require(access.TeacherArea))
	tg.GET("", api.teacher)

	sg := e.Group(access.StudentArea.Prefix, g.Require(access.StudentArea))
	sg.GET("", api.student)
}

// Handlers

func (api *dashboardApi) admin(ctx echo.Context) error {
	dash, err := api.svc.Admin(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building admin dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) users(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to user.QueryFilter")
	}
	filter.Clean()

	var ord Ordering
	ord.Bind(ctx)

	users, err := api.userSvc.Query(ctx.Request().Context(), &filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *dashboardApi) courses(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to course.QueryFilter")
	}
	filter.Clean()

	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.courseSvc.Query(ctx.Request().Context(), &filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *dashboardApi) teacher(ctx echo.Context) error {
	dash, err := api.svc.Teacher(ctx.Request().Context(), contextSession(ctx))
	if err != nil {
		return errors.Wrap(err, "building teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) student(ctx echo.Context) error {
	dash, err := api.svc.Student(ctx.Request().Context(), contextSession(ctx))
	if err != nil {
		return errors.Wrap(err, "building student dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
