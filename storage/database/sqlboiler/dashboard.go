// Package boiledrepos runs the aggregate queries through sqlboiler's raw query binding.
package boiledrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/dashboard"
)

type groupCount struct {
	Key   string `boil:"key"`
	Count int    `boil:"count"`
}

type dashboardRepository struct {
	exec core.DBExecutor
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{exec: exec}
}

func (repo dashboardRepository) countBy(ctx context.Context, query string) ([]groupCount, error) {
	var counts []groupCount
	if err := queries.Raw(query).Bind(ctx, repo.exec, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (repo dashboardRepository) CountUsersByRole(ctx context.Context) (map[access.Role]int, error) {
	counts, err := repo.countBy(ctx, `SELECT role AS key, COUNT(*) AS count FROM users GROUP BY role`)
	if err != nil {
		return nil, errors.Wrap(err, "counting users by role")
	}
	res := make(map[access.Role]int, len(counts))
	for _, c := range counts {
		res[access.Role(c.Key)] = c.Count
	}
	return res, nil
}

func (repo dashboardRepository) CountCoursesByStatus(ctx context.Context) (map[course.Status]int, error) {
	counts, err := repo.countBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM courses GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "counting courses by status")
	}
	res := make(map[course.Status]int, len(counts))
	for _, c := range counts {
		res[course.Status(c.Key)] = c.Count
	}
	return res, nil
}

func (repo dashboardRepository) CountEnrollments(ctx context.Context) (int, error) {
	var total struct {
		Count int `boil:"count"`
	}
	if err := queries.Raw(`SELECT COUNT(*) AS count FROM enrollments`).Bind(ctx, repo.exec, &total); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return total.Count, nil
}
