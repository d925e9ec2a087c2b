package course

import (
	"strings"
	"time"

	"github.com/goosen-x/lms/core"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

var Statuses = []Status{StatusDraft, StatusPublished, StatusArchived}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      Status    `json:"status"`
	TeacherID   string    `json:"teacher_id"`
	LessonCount int       `json:"lesson_count"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Lesson holds its summary as raw markdown; rendering it is left to the frontend.
type Lesson struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	Content     string    `json:"content,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Outline returns the lesson without its content, as listed in navigation.
func (l Lesson) Outline() Lesson {
	l.Content = ""
	return l
}

type Enrollment struct {
	CourseID   string    `json:"course_id"`
	StudentID  string    `json:"student_id"`
	Progress   int       `json:"progress"` // 0..100
	EnrolledAt time.Time `json:"enrolled_at"`
}

type Completion struct {
	LessonID    string    `json:"lesson_id"`
	StudentID   string    `json:"student_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type (
	CourseDetail struct {
		Course
		Lessons    []Lesson    `json:"lessons"`
		Enrollment *Enrollment `json:"enrollment,omitempty"`
	}

	LessonPage struct {
		Course    Course   `json:"course"`
		Lesson    Lesson   `json:"lesson"`
		Lessons   []Lesson `json:"lessons"`
		Prev      *Lesson  `json:"prev"`
		Next      *Lesson  `json:"next"`
		Completed bool     `json:"completed"`
	}

	EnrolledCourse struct {
		Course
		Progress   int       `json:"progress"`
		EnrolledAt time.Time `json:"enrolled_at"`
	}

	TaughtCourse struct {
		Course
		Enrollments     int     `json:"enrollments"`
		AverageProgress float64 `json:"average_progress"`
	}
)

type QueryFilter struct {
	Search    string   `query:"search"`
	Category  string   `query:"category"`
	Statuses  []Status `query:"status"`
	TeacherID string   `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	statuses := make([]Status, 0, len(qf.Statuses))
	for _, s := range qf.Statuses {
		if st := Status(strings.ToUpper(core.CleanString(string(s)))); st.IsValid() {
			statuses = append(statuses, st)
		}
	}
	if len(qf.Statuses) > 0 {
		qf.Statuses = statuses
	}
}

// GetFilter selects a single Course, by ID or by Slug.
type GetFilter struct {
	ID   string
	Slug string
}

// Orderable maps the orderable fields to their column.
var Orderable = map[string]string{
	"title":      "title",
	"category":   "category",
	"created_at": "created_at",
}

// Progress returns the percentage of completed lessons, rounded to the nearest integer.
func Progress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return (200*completed + total) / (2 * total)
}
