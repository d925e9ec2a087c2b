package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
	"github.com/goosen-x/lms/storage/database/inmem"
	"github.com/goosen-x/lms/tests"
)

type fixture struct {
	svc     *course.Service
	repo    course.Repository
	admin   access.Session
	teacher access.Session
	other   access.Session
	student access.Session

	published course.Course
	draft     course.Course
	lessons   []course.Lesson
}

func setup(t *testing.T) fixture {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewCourseRepository(db)

	session := func(name string, role access.Role) (user.User, access.Session) {
		usr := testutil.CreateUser(t, usrRepo, name, name+"@lms.ru", "", role, true)
		return usr, testutil.Session(usr)
	}
	_, admin := session("admin", access.RoleAdmin)
	teacherUsr, teacher := session("teacher", access.RoleTeacher)
	_, other := session("other", access.RoleTeacher)
	_, student := session("student", access.RoleStudent)

	published, lessons := testutil.CreateCourse(t, repo, teacherUsr.ID, "Web basics", "web-development-basics", course.StatusPublished,
		"introduction-to-html", "css-basics", "javascript-for-beginners")
	draft, _ := testutil.CreateCourse(t, repo, teacherUsr.ID, "Go in depth", "go-in-depth", course.StatusDraft, "goroutines")

	return fixture{
		svc:       course.NewService(repo),
		repo:      repo,
		admin:     admin,
		teacher:   teacher,
		other:     other,
		student:   student,
		published: published,
		draft:     draft,
		lessons:   lessons,
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 2, 50},
		{1, 8, 13},
		{5, 3, 100},
	}
	for _, tt := range tests {
		if got := course.Progress(tt.completed, tt.total); got != tt.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	crs, err := f.svc.Create(ctx, course.Course{Title: " SQL ", Slug: "SQL-Basics", TeacherID: f.teacher.UserID},
		course.Lesson{Title: "Select", Slug: "select"}, course.Lesson{Title: "Join", Slug: "join"})
	require.NoError(t, err)
	assert.Equal(t, "SQL", crs.Title)
	assert.Equal(t, "sql-basics", crs.Slug)
	assert.Equal(t, course.StatusDraft, crs.Status)
	assert.Equal(t, 2, crs.LessonCount)

	lessons, err := f.repo.ListLessons(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "select", lessons[0].Slug)
	assert.Equal(t, 2, lessons[1].Position)

	got, err := f.svc.GetBySlug(ctx, "sql-basics")
	require.NoError(t, err)
	assert.Equal(t, crs.ID, got.ID)

	_, err = f.svc.Create(ctx, course.Course{Title: "Dup", Slug: "sql-basics", TeacherID: f.teacher.UserID})
	assert.Equal(t, course.ErrSlugExists, errors.Cause(err))

	_, err = f.svc.Create(ctx, course.Course{Title: "Bad", Slug: "bad", Status: "HIDDEN", TeacherID: f.teacher.UserID})
	assert.Error(t, err)
}

func TestService_Create_Atomic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, course.Course{Title: "Docker", Slug: "docker", TeacherID: f.teacher.UserID},
		course.Lesson{Title: "Images", Slug: "images"},
		course.Lesson{Title: "Volumes", Slug: "volumes"},
		course.Lesson{Title: "Images again", Slug: "images"})
	assert.Equal(t, course.ErrLessonExists, errors.Cause(err))

	_, err = f.svc.GetBySlug(ctx, "docker")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	all, err := f.svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	crs, err := f.svc.Create(ctx, course.Course{Title: "Docker", Slug: "docker", TeacherID: f.teacher.UserID},
		course.Lesson{Title: "Images", Slug: "images"}, course.Lesson{Title: "Volumes", Slug: "volumes"})
	require.NoError(t, err)
	lessons, err := f.repo.ListLessons(ctx, crs.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 2)
}

func TestService_Catalog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	courses, err := f.svc.Catalog(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, f.published.ID, courses[0].ID)
	assert.Equal(t, 3, courses[0].LessonCount)

	// the status filter cannot be overridden
	courses, err = f.svc.Catalog(ctx, &course.QueryFilter{Statuses: []course.Status{course.StatusDraft}}, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, course.StatusPublished, courses[0].Status)

	courses, err = f.svc.Catalog(ctx, &course.QueryFilter{Search: "nothing-like-it"}, nil)
	require.NoError(t, err)
	assert.Empty(t, courses)

	all, err := f.svc.Query(ctx, nil, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Go in depth", all[0].Title)

	drafts, err := f.svc.Query(ctx, &course.QueryFilter{Statuses: []course.Status{course.StatusDraft}}, nil)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, f.draft.ID, drafts[0].ID)
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := course.QueryFilter{Search: " html ", Statuses: []course.Status{"published", "HIDDEN"}}
	qf.Clean()
	assert.Equal(t, "html", qf.Search)
	assert.Equal(t, []course.Status{course.StatusPublished}, qf.Statuses)
}

func TestService_Detail_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		viewer   access.Session
		courseID string
		wantErr  error
	}{
		{name: "student, published", viewer: f.student, courseID: f.published.ID},
		{name: "student, draft", viewer: f.student, courseID: f.draft.ID, wantErr: course.ErrNotFound},
		{name: "other teacher, draft", viewer: f.other, courseID: f.draft.ID, wantErr: course.ErrNotFound},
		{name: "course teacher, draft", viewer: f.teacher, courseID: f.draft.ID},
		{name: "admin, draft", viewer: f.admin, courseID: f.draft.ID},
		{name: "unknown course", viewer: f.admin, courseID: "missing", wantErr: course.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := f.svc.Detail(ctx, tt.viewer, tt.courseID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.courseID, detail.ID)
			for _, l := range detail.Lessons {
				assert.Empty(t, l.Content)
			}
		})
	}
}

func TestService_LessonPage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		lessonID string
		wantPrev string
		wantNext string
	}{
		{name: "first", lessonID: f.lessons[0].ID, wantNext: "css-basics"},
		{name: "middle", lessonID: f.lessons[1].ID, wantPrev: "introduction-to-html", wantNext: "javascript-for-beginners"},
		{name: "last, by slug", lessonID: "javascript-for-beginners", wantPrev: "css-basics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.LessonPage(ctx, f.student, f.published.ID, tt.lessonID)
			require.NoError(t, err)
			assert.NotEmpty(t, page.Lesson.Content)
			assert.Len(t, page.Lessons, 3)
			assert.False(t, page.Completed)
			if tt.wantPrev == "" {
				assert.Nil(t, page.Prev)
			} else {
				require.NotNil(t, page.Prev)
				assert.Equal(t, tt.wantPrev, page.Prev.Slug)
			}
			if tt.wantNext == "" {
				assert.Nil(t, page.Next)
			} else {
				require.NotNil(t, page.Next)
				assert.Equal(t, tt.wantNext, page.Next.Slug)
			}
		})
	}

	_, err := f.svc.LessonPage(ctx, f.student, f.published.ID, "missing")
	assert.Equal(t, course.ErrLessonNotFound, err)
	_, err = f.svc.LessonPage(ctx, f.student, f.draft.ID, "goroutines")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_Enroll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, viewer := range []access.Session{f.admin, f.teacher} {
		_, _, err := f.svc.Enroll(ctx, viewer, f.published.ID)
		assert.Equal(t, course.ErrStudentsOnly, err)
	}
	_, _, err := f.svc.Enroll(ctx, f.student, f.draft.ID)
	assert.Equal(t, course.ErrNotFound, err)

	enr, created, err := f.svc.Enroll(ctx, f.student, f.published.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, enr.Progress)

	again, created, err := f.svc.Enroll(ctx, f.student, f.published.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enr.EnrolledAt, again.EnrolledAt)

	detail, err := f.svc.Detail(ctx, f.student, f.published.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Enrollment)
}

func TestService_CompleteLesson(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, f.student, f.published.ID, f.lessons[0].ID)
	assert.Equal(t, course.ErrNotEnrolled, err)

	_, _, err = f.svc.Enroll(ctx, f.student, f.published.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(ctx, f.student, f.published.ID, "missing")
	assert.Equal(t, course.ErrLessonNotFound, err)

	steps := []struct {
		lessonID string
		want     int
	}{
		{f.lessons[0].ID, 33},
		{f.lessons[0].ID, 33}, // completing twice changes nothing
		{"css-basics", 67},
		{f.lessons[2].ID, 100},
	}
	for _, s := range steps {
		enr, err := f.svc.CompleteLesson(ctx, f.student, f.published.ID, s.lessonID)
		require.NoError(t, err)
		assert.Equal(t, s.want, enr.Progress)
	}

	page, err := f.svc.LessonPage(ctx, f.student, f.published.ID, f.lessons[1].ID)
	require.NoError(t, err)
	assert.True(t, page.Completed)

	courses, err := f.svc.StudentCourses(ctx, f.student.UserID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 100, courses[0].Progress)

	taught, err := f.svc.TeacherCourses(ctx, f.teacher.UserID)
	require.NoError(t, err)
	require.Len(t, taught, 2)
	for _, tc := range taught {
		if tc.ID == f.published.ID {
			assert.Equal(t, 1, tc.Enrollments)
			assert.Equal(t, 100.0, tc.AverageProgress)
		} else {
			assert.Zero(t, tc.Enrollments)
		}
	}
}

func TestService_CompleteLesson_Unpublished(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	archived, lessons := testutil.CreateCourse(t, f.repo, f.teacher.UserID, "Flash", "flash", course.StatusArchived, "actionscript")
	_, err := f.repo.CreateEnrollment(ctx, course.Enrollment{CourseID: archived.ID, StudentID: f.student.UserID})
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(ctx, f.student, archived.ID, lessons[0].ID)
	assert.Equal(t, course.ErrNotFound, err)
	done, err := f.repo.CompletedLessonIDs(ctx, archived.ID, f.student.UserID)
	require.NoError(t, err)
	assert.Empty(t, done)

	_, err = f.svc.CompleteLesson(ctx, f.student, "missing", lessons[0].ID)
	assert.Equal(t, course.ErrNotFound, err)
}
