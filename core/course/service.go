package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrSlugExists     = errors.New("a course with this slug already exists")
	ErrLessonExists   = errors.New("a lesson with this slug or position already exists in the course")
	ErrNotEnrolled    = errors.New("not enrolled in this course")
	ErrStudentsOnly   = errors.New("only students can enroll in courses")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// InTx runs fn against a repository bound to a single transaction, rolled back if fn fails.
		InTx(ctx context.Context, fn func(repo Repository) error) error

		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		// ListLessons returns the lessons of a course ordered by position.
		ListLessons(ctx context.Context, courseID string) ([]Lesson, error)

		GetEnrollment(ctx context.Context, courseID, studentID string) (Enrollment, error)
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		SetProgress(ctx context.Context, courseID, studentID string, progress int) error
		StudentEnrollments(ctx context.Context, studentID string) ([]EnrolledCourse, error)
		TeacherCourses(ctx context.Context, teacherID string) ([]TaughtCourse, error)

		// CreateCompletion is a no-op when the lesson is already completed.
		CreateCompletion(ctx context.Context, c Completion) error
		CompletedLessonIDs(ctx context.Context, courseID, studentID string) ([]string, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, c Course, lessons ...Lesson) (Course, error)
		Catalog(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Detail(ctx context.Context, viewer access.Session, courseID string) (CourseDetail, error)
		LessonPage(ctx context.Context, viewer access.Session, courseID, lessonID string) (LessonPage, error)
		Enroll(ctx context.Context, viewer access.Session, courseID string) (enr Enrollment, created bool, err error)
		CompleteLesson(ctx context.Context, viewer access.Session, courseID, lessonID string) (Enrollment, error)
		StudentCourses(ctx context.Context, studentID string) ([]EnrolledCourse, error)
		TeacherCourses(ctx context.Context, teacherID string) ([]TaughtCourse, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a course along with its lessons, positioned in the given order.
// Nothing is stored if any of them fails.
func (svc *Service) Create(ctx context.Context, c Course, lessons ...Lesson) (Course, error) {
	now := NowFunc().UTC()
	c.Title = core.CleanString(c.Title)
	c.Slug = core.CleanString(c.Slug, true /* lower */)
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if !c.Status.IsValid() {
		return Course{}, errors.Errorf("invalid course status %q", c.Status)
	}
	c.CreatedAt, c.UpdatedAt = now, now

	var crs Course
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		var err error
		if crs, err = repo.CreateCourse(ctx, c); err != nil {
			return errors.Wrap(err, "creating course")
		}
		for i, l := range lessons {
			l.CourseID = crs.ID
			l.Position = i + 1
			l.CreatedAt = now
			if _, err = repo.CreateLesson(ctx, l); err != nil {
				return errors.Wrapf(err, "creating lesson %q", l.Slug)
			}
		}
		return nil
	})
	if err != nil {
		return Course{}, err
	}
	crs.LessonCount = len(lessons)
	return crs, nil
}

// Catalog lists the published courses.
func (svc *Service) Catalog(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Statuses = []Status{StatusPublished}
	return svc.repo.QueryCourses(ctx, filter, core.FilterOrderings(ordering, Orderable))
}

// Query lists courses regardless of their status.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, core.FilterOrderings(ordering, Orderable))
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	slug = core.CleanString(slug, true /* lower */)
	if slug == "" {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourse(ctx, GetFilter{Slug: slug})
}

// getVisible returns the course if viewer may see it.
// Unpublished courses are only visible to admins and to their teacher.
func (svc *Service) getVisible(ctx context.Context, viewer access.Session, courseID string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, GetFilter{ID: courseID})
	if err != nil {
		return Course{}, err
	}
	if crs.Status != StatusPublished && viewer.Role != access.RoleAdmin && crs.TeacherID != viewer.UserID {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (svc *Service) Detail(ctx context.Context, viewer access.Session, courseID string) (CourseDetail, error) {
	crs, err := svc.getVisible(ctx, viewer, courseID)
	if err != nil {
		return CourseDetail{}, err
	}
	lessons, err := svc.outline(ctx, crs.ID)
	if err != nil {
		return CourseDetail{}, err
	}

	detail := CourseDetail{Course: crs, Lessons: lessons}
	if viewer.Role == access.RoleStudent {
		enr, err := svc.repo.GetEnrollment(ctx, crs.ID, viewer.UserID)
		switch errors.Cause(err) {
		case nil:
			detail.Enrollment = &enr
		case ErrNotEnrolled:
		default:
			return CourseDetail{}, errors.Wrap(err, "getting enrollment")
		}
	}
	return detail, nil
}

func (svc *Service) LessonPage(ctx context.Context, viewer access.Session, courseID, lessonID string) (LessonPage, error) {
	crs, err := svc.getVisible(ctx, viewer, courseID)
	if err != nil {
		return LessonPage{}, err
	}
	lessons, err := svc.repo.ListLessons(ctx, crs.ID)
	if err != nil {
		return LessonPage{}, errors.Wrap(err, "listing lessons")
	}

	idx := -1
	page := LessonPage{Course: crs, Lessons: make([]Lesson, len(lessons))}
	for i, l := range lessons {
		page.Lessons[i] = l.Outline()
		if l.ID == lessonID || l.Slug == lessonID {
			idx = i
		}
	}
	if idx < 0 {
		return LessonPage{}, ErrLessonNotFound
	}
	page.Lesson = lessons[idx]
	if idx > 0 {
		page.Prev = &page.Lessons[idx-1]
	}
	if idx < len(lessons)-1 {
		page.Next = &page.Lessons[idx+1]
	}

	if viewer.Role == access.RoleStudent {
		done, err := svc.repo.CompletedLessonIDs(ctx, crs.ID, viewer.UserID)
		if err != nil {
			return LessonPage{}, errors.Wrap(err, "listing completed lessons")
		}
		for _, id := range done {
			if id == page.Lesson.ID {
				page.Completed = true
				break
			}
		}
	}
	return page, nil
}

// Enroll enrolls the viewer in a published course.
// Enrolling twice returns the existing enrollment with created == false.
func (svc *Service) Enroll(ctx context.Context, viewer access.Session, courseID string) (Enrollment, bool, error) {
	if viewer.Role != access.RoleStudent {
		return Enrollment{}, false, ErrStudentsOnly
	}
	crs, err := svc.repo.GetCourse(ctx, GetFilter{ID: courseID})
	if err != nil {
		return Enrollment{}, false, err
	}
	if crs.Status != StatusPublished {
		return Enrollment{}, false, ErrNotFound
	}

	enr, err := svc.repo.GetEnrollment(ctx, crs.ID, viewer.UserID)
	if err == nil {
		return enr, false, nil
	}
	if errors.Cause(err) != ErrNotEnrolled {
		return Enrollment{}, false, errors.Wrap(err, "getting enrollment")
	}

	enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
		CourseID:   crs.ID,
		StudentID:  viewer.UserID,
		EnrolledAt: NowFunc().UTC(),
	})
	if err != nil {
		return Enrollment{}, false, errors.Wrap(err, "creating enrollment")
	}
	return enr, true, nil
}

// CompleteLesson marks a lesson of a published course completed by the viewer and recomputes their progress.
func (svc *Service) CompleteLesson(ctx context.Context, viewer access.Session, courseID, lessonID string) (Enrollment, error) {
	crs, err := svc.repo.GetCourse(ctx, GetFilter{ID: courseID})
	if err != nil {
		return Enrollment{}, err
	}
	if crs.Status != StatusPublished {
		return Enrollment{}, ErrNotFound
	}

	enr, err := svc.repo.GetEnrollment(ctx, courseID, viewer.UserID)
	if err != nil {
		if errors.Cause(err) == ErrNotEnrolled {
			return Enrollment{}, err
		}
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	lessons, err := svc.repo.ListLessons(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "listing lessons")
	}

	var lesson *Lesson
	for i := range lessons {
		if lessons[i].ID == lessonID || lessons[i].Slug == lessonID {
			lesson = &lessons[i]
			break
		}
	}
	if lesson == nil {
		return Enrollment{}, ErrLessonNotFound
	}

	err = svc.repo.CreateCompletion(ctx, Completion{
		LessonID:    lesson.ID,
		StudentID:   viewer.UserID,
		CompletedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "completing lesson")
	}

	done, err := svc.repo.CompletedLessonIDs(ctx, courseID, viewer.UserID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "listing completed lessons")
	}
	enr.Progress = Progress(len(done), len(lessons))
	if err = svc.repo.SetProgress(ctx, courseID, viewer.UserID, enr.Progress); err != nil {
		return Enrollment{}, errors.Wrap(err, "updating progress")
	}
	return enr, nil
}

func (svc *Service) StudentCourses(ctx context.Context, studentID string) ([]EnrolledCourse, error) {
	return svc.repo.StudentEnrollments(ctx, studentID)
}

func (svc *Service) TeacherCourses(ctx context.Context, teacherID string) ([]TaughtCourse, error) {
	return svc.repo.TeacherCourses(ctx, teacherID)
}

func (svc *Service) outline(ctx context.Context, courseID string) ([]Lesson, error) {
	lessons, err := svc.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	for i := range lessons {
		lessons[i] = lessons[i].Outline()
	}
	return lessons, nil
}
