package dashboard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/dashboard"
	"github.com/goosen-x/lms/core/user"
	"github.com/goosen-x/lms/storage/database/inmem"
	"github.com/goosen-x/lms/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	usrSvc := user.NewService(usrRepo, nil, nil)
	crsSvc := course.NewService(crsRepo)
	svc := dashboard.NewService(inmemdb.NewDashboardRepository(db), usrSvc, crsSvc)

	start := time.Now().Add(-time.Hour)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@lms.ru", "", access.RoleAdmin, true, start)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@lms.ru", "", access.RoleTeacher, true, start.Add(time.Minute))
	students := make([]user.User, 0, 6)
	for i := 0; i < 6; i++ {
		email := fmt.Sprintf("student%d@lms.ru", i)
		students = append(students, testutil.CreateUser(t, usrRepo, "Student", email, "", access.RoleStudent, true, start.Add(time.Duration(i+2)*time.Minute)))
	}

	web, lessons := testutil.CreateCourse(t, crsRepo, teacher.ID, "Web", "web", course.StatusPublished, "html", "css")
	testutil.CreateCourse(t, crsRepo, teacher.ID, "Draft", "draft", course.StatusDraft)
	testutil.CreateCourse(t, crsRepo, teacher.ID, "Old", "old", course.StatusArchived)

	s0, s1 := testutil.Session(students[0]), testutil.Session(students[1])
	for _, s := range []access.Session{s0, s1} {
		_, _, err := crsSvc.Enroll(ctx, s, web.ID)
		require.NoError(t, err)
	}
	_, err := crsSvc.CompleteLesson(ctx, s0, web.ID, lessons[0].ID)
	require.NoError(t, err)
	_, err = crsSvc.CompleteLesson(ctx, s0, web.ID, lessons[1].ID)
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		dash, err := svc.Admin(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, dash.Users)
		assert.Equal(t, map[access.Role]int{access.RoleAdmin: 1, access.RoleTeacher: 1, access.RoleStudent: 6}, dash.UsersByRole)
		assert.Equal(t, 3, dash.Courses)
		assert.Equal(t, 1, dash.CoursesByStatus[course.StatusPublished])
		assert.Equal(t, 1, dash.CoursesByStatus[course.StatusArchived])
		assert.Equal(t, 2, dash.Enrollments)

		require.Len(t, dash.LatestUsers, 5)
		assert.Equal(t, students[5].ID, dash.LatestUsers[0].ID)
		assert.Equal(t, students[1].ID, dash.LatestUsers[4].ID)
		for _, u := range dash.LatestUsers {
			assert.NotEqual(t, admin.ID, u.ID)
		}
	})

	t.Run("teacher", func(t *testing.T) {
		dash, err := svc.Teacher(ctx, testutil.Session(teacher))
		require.NoError(t, err)
		assert.Len(t, dash.Courses, 3)
		assert.Equal(t, 2, dash.Students)
		assert.Equal(t, 50.0, dash.AverageProgress)
	})

	t.Run("teacher without courses", func(t *testing.T) {
		dash, err := svc.Teacher(ctx, testutil.Session(admin))
		require.NoError(t, err)
		assert.Empty(t, dash.Courses)
		assert.Zero(t, dash.AverageProgress)
	})

	t.Run("student", func(t *testing.T) {
		dash, err := svc.Student(ctx, s0)
		require.NoError(t, err)
		require.Len(t, dash.Courses, 1)
		assert.Equal(t, 100, dash.Courses[0].Progress)
		assert.Equal(t, 1, dash.Completed)
		assert.Equal(t, 100.0, dash.AverageProgress)

		dash, err = svc.Student(ctx, testutil.Session(students[2]))
		require.NoError(t, err)
		assert.Empty(t, dash.Courses)
		assert.Zero(t, dash.Completed)
	})
}
