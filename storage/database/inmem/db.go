package inmemdb

import (
	"sync"

	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
)

type (
	enrollmentKey struct{ courseID, studentID string }
	completionKey struct{ lessonID, studentID string }

	// DB holds every table behind a single lock so that cascading deletes stay consistent.
	DB struct {
		mu          sync.RWMutex
		users       map[string]*user.User
		courses     map[string]*course.Course
		lessons     map[string]*course.Lesson
		enrollments map[enrollmentKey]*course.Enrollment
		completions map[completionKey]*course.Completion
	}
)

func Open() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		lessons:     make(map[string]*course.Lesson),
		enrollments: make(map[enrollmentKey]*course.Enrollment),
		completions: make(map[completionKey]*course.Completion),
	}
}

// Close is a no-op: the data lives as long as the DB value.
func (db *DB) Close() error { return nil }
