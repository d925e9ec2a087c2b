package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
)

type courseApi struct {
	svc course.ServiceInterface
}

func registerCourseAPI(e *echo.Echo, g *guard, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc}

	cg := e.Group(access.CoursesArea.Prefix, g.Require(access.CoursesArea))
	cg.GET("", api.catalog)
	cg.GET("/:courseId", api.retrieve)
	cg.POST("/:courseId/enroll", api.enroll)
	cg.GET("/:courseId/lessons/:lessonId", api.lesson)
	cg.POST("/:courseId/lessons/:lessonId/complete", api.completeLesson)
}

// Handlers

func (api *courseApi) catalog(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to course.QueryFilter")
	}
	filter.Clean()

	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.Catalog(ctx.Request().Context(), &filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying catalog")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.Detail(ctx.Request().Context(), contextSession(ctx), ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) lesson(ctx echo.Context) error {
	page, err := api.svc.LessonPage(ctx.Request().Context(), contextSession(ctx), ctx.Param("courseId"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "getting lesson page")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	enr, created, err := api.svc.Enroll(ctx.Request().Context(), contextSession(ctx), ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	if created {
		return ctx.JSON(http.StatusCreated, enr)
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) completeLesson(ctx echo.Context) error {
	enr, err := api.svc.CompleteLesson(ctx.Request().Context(), contextSession(ctx), ctx.Param("courseId"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, enr)
}
