package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role access.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse stores a course taught by teacherID with one lesson per slug.
func CreateCourse(
	t *testing.T,
	repo course.Repository,
	teacherID, title, slug string,
	status course.Status,
	lessonSlugs ...string,
) (course.Course, []course.Lesson) {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Slug:        slug,
		Description: title + " description",
		Category:    "Programming",
		Status:      status,
		TeacherID:   teacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}

	lessons := make([]course.Lesson, 0, len(lessonSlugs))
	for i, ls := range lessonSlugs {
		l, err := repo.CreateLesson(context.Background(), course.Lesson{
			CourseID:  crs.ID,
			Title:     ls,
			Slug:      ls,
			Position:  i + 1,
			Content:   "# " + ls,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateCourse() failed: %v", err)
		}
		lessons = append(lessons, l)
	}
	crs.LessonCount = len(lessons)
	return crs, lessons
}

func Session(usr user.User) access.Session {
	return usr.Session(time.Now().Add(time.Hour))
}
