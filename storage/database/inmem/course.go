package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// InTx journals the courses & lessons fn creates, and deletes them if fn fails.
func (repo *courseRepository) InTx(_ context.Context, fn func(repo course.Repository) error) error {
	tx := &courseTx{courseRepository: repo}
	if err := fn(tx); err != nil {
		repo.db.mu.Lock()
		defer repo.db.mu.Unlock()
		for _, id := range tx.lessonIDs {
			delete(repo.db.lessons, id)
		}
		for _, id := range tx.courseIDs {
			repo.db.deleteCourse(id)
		}
		return err
	}
	return nil
}

type courseTx struct {
	*courseRepository
	courseIDs []string
	lessonIDs []string
}

func (tx *courseTx) InTx(_ context.Context, fn func(repo course.Repository) error) error {
	return fn(tx)
}

func (tx *courseTx) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	crs, err := tx.courseRepository.CreateCourse(ctx, c)
	if err == nil {
		tx.courseIDs = append(tx.courseIDs, crs.ID)
	}
	return crs, err
}

func (tx *courseTx) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	lesson, err := tx.courseRepository.CreateLesson(ctx, l)
	if err == nil {
		tx.lessonIDs = append(tx.lessonIDs, lesson.ID)
	}
	return lesson, err
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, crs := range repo.db.courses {
		if crs.Slug == c.Slug {
			return course.Course{}, course.ErrSlugExists
		}
	}
	c.ID = uuid.New().String()
	c.LessonCount = 0
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if matchCourse(crs, filter) {
			courses = append(courses, repo.db.withLessonCount(*crs))
		}
	}
	sortCourses(courses, ordering)
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if crs, ok := repo.db.courses[filter.ID]; ok {
			return repo.db.withLessonCount(*crs), nil
		}
		return course.Course{}, course.ErrNotFound
	}
	if filter.Slug != "" {
		for _, crs := range repo.db.courses {
			if crs.Slug == filter.Slug {
				return repo.db.withLessonCount(*crs), nil
			}
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CreateLesson(_ context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[l.CourseID]; !ok {
		return course.Lesson{}, course.ErrNotFound
	}
	for _, other := range repo.db.lessons {
		if other.CourseID == l.CourseID && (other.Slug == l.Slug || other.Position == l.Position) {
			return course.Lesson{}, course.ErrLessonExists
		}
	}
	l.ID = uuid.New().String()
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) ListLessons(_ context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.courseLessons(courseID), nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, courseID, studentID string) (course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if enr, ok := repo.db.enrollments[enrollmentKey{courseID, studentID}]; ok {
		return *enr, nil
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[e.CourseID]; !ok {
		return course.Enrollment{}, course.ErrNotFound
	}
	key := enrollmentKey{e.CourseID, e.StudentID}
	if enr, ok := repo.db.enrollments[key]; ok {
		return *enr, nil
	}
	repo.db.enrollments[key] = &e
	return e, nil
}

func (repo *courseRepository) SetProgress(_ context.Context, courseID, studentID string, progress int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	enr, ok := repo.db.enrollments[enrollmentKey{courseID, studentID}]
	if !ok {
		return course.ErrNotEnrolled
	}
	enr.Progress = progress
	return nil
}

func (repo *courseRepository) StudentEnrollments(_ context.Context, studentID string) ([]course.EnrolledCourse, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.EnrolledCourse, 0)
	for key, enr := range repo.db.enrollments {
		if key.studentID != studentID {
			continue
		}
		if crs, ok := repo.db.courses[key.courseID]; ok {
			courses = append(courses, course.EnrolledCourse{
				Course:     repo.db.withLessonCount(*crs),
				Progress:   enr.Progress,
				EnrolledAt: enr.EnrolledAt,
			})
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].EnrolledAt.Equal(courses[j].EnrolledAt) {
			return courses[i].EnrolledAt.After(courses[j].EnrolledAt)
		}
		return courses[i].Title < courses[j].Title
	})
	return courses, nil
}

func (repo *courseRepository) TeacherCourses(_ context.Context, teacherID string) ([]course.TaughtCourse, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.TaughtCourse, 0)
	for _, crs := range repo.db.courses {
		if crs.TeacherID != teacherID {
			continue
		}
		tc := course.TaughtCourse{Course: repo.db.withLessonCount(*crs)}
		var total int
		for key, enr := range repo.db.enrollments {
			if key.courseID == crs.ID {
				tc.Enrollments++
				total += enr.Progress
			}
		}
		if tc.Enrollments > 0 {
			tc.AverageProgress = float64(total) / float64(tc.Enrollments)
		}
		courses = append(courses, tc)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) CreateCompletion(_ context.Context, c course.Completion) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[c.LessonID]; !ok {
		return course.ErrLessonNotFound
	}
	key := completionKey{c.LessonID, c.StudentID}
	if _, ok := repo.db.completions[key]; !ok {
		repo.db.completions[key] = &c
	}
	return nil
}

func (repo *courseRepository) CompletedLessonIDs(_ context.Context, courseID, studentID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []string
	for _, l := range repo.db.courseLessons(courseID) {
		if _, ok := repo.db.completions[completionKey{l.ID, studentID}]; ok {
			ids = append(ids, l.ID)
		}
	}
	return ids, nil
}

// the helpers below expect the caller to hold db.mu

func (db *DB) courseLessons(courseID string) []course.Lesson {
	var lessons []course.Lesson
	for _, l := range db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, *l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Position < lessons[j].Position })
	return lessons
}

func (db *DB) withLessonCount(c course.Course) course.Course {
	c.LessonCount = 0
	for _, l := range db.lessons {
		if l.CourseID == c.ID {
			c.LessonCount++
		}
	}
	return c
}

func (db *DB) deleteCourse(id string) {
	delete(db.courses, id)
	for key := range db.enrollments {
		if key.courseID == id {
			delete(db.enrollments, key)
		}
	}
	for lid, l := range db.lessons {
		if l.CourseID != id {
			continue
		}
		delete(db.lessons, lid)
		for key := range db.completions {
			if key.lessonID == lid {
				delete(db.completions, key)
			}
		}
	}
}

func matchCourse(crs *course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), search) && !strings.Contains(strings.ToLower(crs.Description), search) {
			return false
		}
	}
	if filter.Category != "" && !strings.EqualFold(crs.Category, filter.Category) {
		return false
	}
	if filter.TeacherID != "" && crs.TeacherID != filter.TeacherID {
		return false
	}
	if filter.Statuses != nil {
		var ok bool
		for _, s := range filter.Statuses {
			if crs.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "title":
				cmp = strings.Compare(a.Title, b.Title)
			case "category":
				cmp = strings.Compare(a.Category, b.Category)
			case "created_at":
				cmp = compareTime(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Slug < b.Slug
	})
}
