package inmemdb

import (
	"context"
	"strings"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
)

var gradeOrdering = map[string]comparator[grade.DailyGrade]{
	"date":       func(a, b grade.DailyGrade) int { return compareTime(a.Date, b.Date) },
	"subject":    func(a, b grade.DailyGrade) int { return compare(a.Subject, b.Subject) },
	"score":      func(a, b grade.DailyGrade) int { return compare(a.Score, b.Score) },
	"created_at": func(a, b grade.DailyGrade) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateGrade(_ context.Context, g grade.DailyGrade) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.grades[g.ID] = g
	return nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, id string) (grade.DailyGrade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.grades[id]; ok {
		return g, nil
	}
	return grade.DailyGrade{}, grade.ErrNotFound
}

func (repo *gradeRepository) FilterGrades(_ context.Context, filter grade.QueryFilter, ordering ...core.DBOrdering) ([]grade.DailyGrade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]grade.DailyGrade, 0)
	for _, g := range repo.db.grades {
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.Subject != "" && !strings.EqualFold(g.Subject, filter.Subject) {
			continue
		}
		if filter.From != nil && g.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && g.Date.After(*filter.To) {
			continue
		}
		grades = append(grades, g)
	}
	sortBy(grades, gradeOrdering, func(g grade.DailyGrade) string { return g.ID }, ordering)
	return grades, nil
}

func (repo *gradeRepository) UpdateGrade(_ context.Context, g grade.DailyGrade) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.grades[g.ID]
	if !ok {
		return grade.ErrNotFound
	}
	g.StudentID, g.CreatedAt = orig.StudentID, orig.CreatedAt
	repo.db.grades[g.ID] = g
	return nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.grades, id)
	return nil
}
