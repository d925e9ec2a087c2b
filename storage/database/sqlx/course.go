package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/course"
)

const (
	courseColumns = "c.id, c.title, c.slug, c.description, c.category, c.status, c.teacher_id, c.created_at, c.updated_at"
	lessonCount   = "(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS lesson_count"
	lessonColumns = "id, course_id, title, slug, description, position, content, video_id, created_at"
)

type (
	courseRow struct {
		ID          string    `db:"id"`
		Title       string    `db:"title"`
		Slug        string    `db:"slug"`
		Description string    `db:"description"`
		Category    string    `db:"category"`
		Status      string    `db:"status"`
		TeacherID   string    `db:"teacher_id"`
		LessonCount int       `db:"lesson_count"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	lessonRow struct {
		ID          string      `db:"id"`
		CourseID    string      `db:"course_id"`
		Title       string      `db:"title"`
		Slug        string      `db:"slug"`
		Description string      `db:"description"`
		Position    int         `db:"position"`
		Content     string      `db:"content"`
		VideoID     null.String `db:"video_id"`
		CreatedAt   time.Time   `db:"created_at"`
	}

	enrollmentRow struct {
		CourseID   string    `db:"course_id"`
		StudentID  string    `db:"student_id"`
		Progress   int       `db:"progress"`
		EnrolledAt time.Time `db:"enrolled_at"`
	}

	enrolledCourseRow struct {
		courseRow
		Progress   int       `db:"progress"`
		EnrolledAt time.Time `db:"enrolled_at"`
	}

	taughtCourseRow struct {
		courseRow
		Enrollments     int          `db:"enrollments"`
		AverageProgress null.Float64 `db:"average_progress"`
	}
)

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		Category:    r.Category,
		Status:      course.Status(r.Status),
		TeacherID:   r.TeacherID,
		LessonCount: r.LessonCount,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r lessonRow) lesson() course.Lesson {
	return course.Lesson{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		Position:    r.Position,
		Content:     r.Content,
		VideoID:     r.VideoID.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (r enrollmentRow) enrollment() course.Enrollment {
	return course.Enrollment{
		CourseID:   r.CourseID,
		StudentID:  r.StudentID,
		Progress:   r.Progress,
		EnrolledAt: r.EnrolledAt.UTC(),
	}
}

type courseRepository struct {
	db sqlx.ExtContext
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db sqlx.ExtContext) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) InTx(ctx context.Context, fn func(repo course.Repository) error) error {
	return inTx(ctx, repo.db, func(tx sqlx.ExtContext) error {
		return fn(NewCourseRepository(tx))
	})
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO courses (id, title, slug, description, category, status, teacher_id, created_at, updated_at)
		VALUES (:id, :title, :slug, :description, :category, :status, :teacher_id, :created_at, :updated_at)`,
		courseRow{
			ID:          c.ID,
			Title:       c.Title,
			Slug:        c.Slug,
			Description: c.Description,
			Category:    c.Category,
			Status:      string(c.Status),
			TeacherID:   c.TeacherID,
			CreatedAt:   c.CreatedAt.UTC(),
			UpdatedAt:   c.UpdatedAt.UTC(),
		})
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	c.LessonCount = 0
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(c.title ILIKE ? OR c.description ILIKE ?)", val, val)
		}
		if filter.Category != "" {
			w.add("c.category ILIKE ?", filter.Category)
		}
		if filter.TeacherID != "" {
			if _, err := uuid.Parse(filter.TeacherID); err != nil {
				return []course.Course{}, nil
			}
			w.add("c.teacher_id = ?", filter.TeacherID)
		}
		if filter.Statuses != nil {
			if len(filter.Statuses) == 0 {
				return []course.Course{}, nil
			}
			statuses := make([]string, 0, len(filter.Statuses))
			for _, s := range filter.Statuses {
				statuses = append(statuses, string(s))
			}
			w.add("c.status IN (?)", statuses)
		}
	}

	qualified := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		qualified = append(qualified, core.DBOrdering{Field: "c." + ord.Field, Ascending: ord.Ascending})
	}
	query, args, err := build(repo.db,
		"SELECT "+courseColumns+", "+lessonCount+" FROM courses c"+w.String()+orderBy(qualified, "c.created_at DESC, c.slug ASC"),
		w.args)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []courseRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
		cond, arg = "c.id = $1", filter.ID
	case filter.Slug != "":
		cond, arg = "c.slug = $1", filter.Slug
	default:
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+courseColumns+", "+lessonCount+" FROM courses c WHERE "+cond, arg)
	if err != nil {
		if isNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return row.course(), nil
}

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	l.ID = uuid.New().String()
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO lessons (`+lessonColumns+`)
		VALUES (:id, :course_id, :title, :slug, :description, :position, :content, :video_id, :created_at)`,
		lessonRow{
			ID:          l.ID,
			CourseID:    l.CourseID,
			Title:       l.Title,
			Slug:        l.Slug,
			Description: l.Description,
			Position:    l.Position,
			Content:     l.Content,
			VideoID:     null.NewString(l.VideoID, l.VideoID != ""),
			CreatedAt:   l.CreatedAt.UTC(),
		})
	if err != nil {
		if isUniqueViolation(err) {
			return course.Lesson{}, course.ErrLessonExists
		}
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo *courseRepository) ListLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return []course.Lesson{}, nil
	}
	var rows []lessonRow
	err := sqlx.SelectContext(ctx, repo.db, &rows,
		"SELECT "+lessonColumns+" FROM lessons WHERE course_id = $1 ORDER BY position", courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.lesson())
	}
	return lessons, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, courseID, studentID string) (course.Enrollment, error) {
	if len(validUUIDs(courseID, studentID)) != 2 {
		return course.Enrollment{}, course.ErrNotEnrolled
	}
	var row enrollmentRow
	err := sqlx.GetContext(ctx, repo.db, &row, `
		SELECT course_id, student_id, progress, enrolled_at FROM enrollments
		WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		if isNoRows(err) {
			return course.Enrollment{}, course.ErrNotEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return row.enrollment(), nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	var row enrollmentRow
	// the no-op update makes RETURNING yield the existing row on conflict
	err := sqlx.GetContext(ctx, repo.db, &row, `
		INSERT INTO enrollments (course_id, student_id, progress, enrolled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (course_id, student_id) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING course_id, student_id, progress, enrolled_at`,
		e.CourseID, e.StudentID, e.Progress, e.EnrolledAt.UTC())
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.enrollment(), nil
}

func (repo *courseRepository) SetProgress(ctx context.Context, courseID, studentID string, progress int) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE enrollments SET progress = $3 WHERE course_id = $1 AND student_id = $2",
		courseID, studentID, progress)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo *courseRepository) StudentEnrollments(ctx context.Context, studentID string) ([]course.EnrolledCourse, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []course.EnrolledCourse{}, nil
	}
	var rows []enrolledCourseRow
	err := sqlx.SelectContext(ctx, repo.db, &rows, `
		SELECT `+courseColumns+`, `+lessonCount+`, e.progress, e.enrolled_at
		FROM enrollments e JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC, c.title`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	courses := make([]course.EnrolledCourse, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, course.EnrolledCourse{
			Course:     r.course(),
			Progress:   r.Progress,
			EnrolledAt: r.EnrolledAt.UTC(),
		})
	}
	return courses, nil
}

func (repo *courseRepository) TeacherCourses(ctx context.Context, teacherID string) ([]course.TaughtCourse, error) {
	if _, err := uuid.Parse(teacherID); err != nil {
		return []course.TaughtCourse{}, nil
	}
	var rows []taughtCourseRow
	err := sqlx.SelectContext(ctx, repo.db, &rows, `
		SELECT `+courseColumns+`, `+lessonCount+`,
			COUNT(e.student_id) AS enrollments,
			AVG(e.progress)::float8 AS average_progress
		FROM courses c LEFT JOIN enrollments e ON e.course_id = c.id
		WHERE c.teacher_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "listing taught courses")
	}
	courses := make([]course.TaughtCourse, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, course.TaughtCourse{
			Course:          r.course(),
			Enrollments:     r.Enrollments,
			AverageProgress: r.AverageProgress.Float64,
		})
	}
	return courses, nil
}

func (repo *courseRepository) CreateCompletion(ctx context.Context, c course.Completion) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO lesson_completions (lesson_id, student_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lesson_id, student_id) DO NOTHING`,
		c.LessonID, c.StudentID, c.CompletedAt.UTC())
	return errors.Wrap(err, "inserting lesson completion")
}

func (repo *courseRepository) CompletedLessonIDs(ctx context.Context, courseID, studentID string) ([]string, error) {
	if len(validUUIDs(courseID, studentID)) != 2 {
		return []string{}, nil
	}
	var ids []string
	err := sqlx.SelectContext(ctx, repo.db, &ids, `
		SELECT lc.lesson_id FROM lesson_completions lc JOIN lessons l ON l.id = lc.lesson_id
		WHERE l.course_id = $1 AND lc.student_id = $2
		ORDER BY l.position`, courseID, studentID)
	return ids, errors.Wrap(err, "listing completed lessons")
}
