package inmemdb

import (
	"context"

	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/dashboard"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) *dashboardRepository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) CountUsersByRole(context.Context) (map[access.Role]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[access.Role]int, len(access.Roles))
	for _, usr := range repo.db.users {
		counts[usr.Role]++
	}
	return counts, nil
}

func (repo *dashboardRepository) CountCoursesByStatus(context.Context) (map[course.Status]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[course.Status]int, len(course.Statuses))
	for _, crs := range repo.db.courses {
		counts[crs.Status]++
	}
	return counts, nil
}

func (repo *dashboardRepository) CountEnrollments(context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.enrollments), nil
}
