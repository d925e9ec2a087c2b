// Package dashboard assembles the home page of each role area.
package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
)

const latestUsersCount = 5

type (
	Repository interface {
		CountUsersByRole(ctx context.Context) (map[access.Role]int, error)
		CountCoursesByStatus(ctx context.Context) (map[course.Status]int, error)
		CountEnrollments(ctx context.Context) (int, error)
	}

	Admin struct {
		Users           int                   `json:"users"`
		UsersByRole     map[access.Role]int   `json:"users_by_role"`
		Courses         int                   `json:"courses"`
		CoursesByStatus map[course.Status]int `json:"courses_by_status"`
		Enrollments     int                   `json:"enrollments"`
		LatestUsers     []user.User           `json:"latest_users"`
	}

	Teacher struct {
		Courses         []course.TaughtCourse `json:"courses"`
		Students        int                   `json:"students"`
		AverageProgress float64               `json:"average_progress"`
	}

	Student struct {
		Courses         []course.EnrolledCourse `json:"courses"`
		Completed       int                     `json:"completed"`
		AverageProgress float64                 `json:"average_progress"`
	}

	Service struct {
		repo    Repository
		userSvc user.ServiceInterface
		crsSvc  course.ServiceInterface
	}
)

func NewService(repo Repository, userSvc user.ServiceInterface, crsSvc course.ServiceInterface) *Service {
	return &Service{repo: repo, userSvc: userSvc, crsSvc: crsSvc}
}

func (svc *Service) Admin(ctx context.Context) (Admin, error) {
	var (
		dash Admin
		err  error
	)
	if dash.UsersByRole, err = svc.repo.CountUsersByRole(ctx); err != nil {
		return Admin{}, errors.Wrap(err, "counting users")
	}
	if dash.CoursesByStatus, err = svc.repo.CountCoursesByStatus(ctx); err != nil {
		return Admin{}, errors.Wrap(err, "counting courses")
	}
	if dash.Enrollments, err = svc.repo.CountEnrollments(ctx); err != nil {
		return Admin{}, errors.Wrap(err, "counting enrollments")
	}
	for _, r := range access.Roles {
		dash.Users += dash.UsersByRole[r]
	}
	for _, s := range course.Statuses {
		dash.Courses += dash.CoursesByStatus[s]
	}

	users, err := svc.userSvc.Query(ctx, nil, []core.DBOrdering{{Field: "created_at", Ascending: false}})
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying latest users")
	}
	if len(users) > latestUsersCount {
		users = users[:latestUsersCount]
	}
	dash.LatestUsers = users
	return dash, nil
}

func (svc *Service) Teacher(ctx context.Context, sess access.Session) (Teacher, error) {
	courses, err := svc.crsSvc.TeacherCourses(ctx, sess.UserID)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "listing taught courses")
	}

	dash := Teacher{Courses: courses}
	var weighted float64
	for _, c := range courses {
		dash.Students += c.Enrollments
		weighted += c.AverageProgress * float64(c.Enrollments)
	}
	if dash.Students > 0 {
		dash.AverageProgress = weighted / float64(dash.Students)
	}
	return dash, nil
}

func (svc *Service) Student(ctx context.Context, sess access.Session) (Student, error) {
	courses, err := svc.crsSvc.StudentCourses(ctx, sess.UserID)
	if err != nil {
		return Student{}, errors.Wrap(err, "listing enrolled courses")
	}

	dash := Student{Courses: courses}
	var total int
	for _, c := range courses {
		total += c.Progress
		if c.Progress >= 100 {
			dash.Completed++
		}
	}
	if len(courses) > 0 {
		dash.AverageProgress = float64(total) / float64(len(courses))
	}
	return dash, nil
}
