package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
)

var examOrdering = map[string]comparator[exam.Exam]{
	"title":      func(a, b exam.Exam) int { return compare(a.Title, b.Title) },
	"level":      func(a, b exam.Exam) int { return compare(a.Level, b.Level) },
	"created_at": func(a, b exam.Exam) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateExam(_ context.Context, e exam.Exam) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.Questions = slices.Clone(e.Questions)
	repo.db.exams[e.ID] = e
	return nil
}

func (repo *examRepository) GetExam(_ context.Context, id string) (exam.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	e, ok := repo.db.exams[id]
	if !ok {
		return exam.Exam{}, exam.ErrNotFound
	}
	e.Questions = slices.Clone(e.Questions)
	return e, nil
}

func (repo *examRepository) FilterExams(_ context.Context, filter exam.QueryFilter, ordering ...core.DBOrdering) ([]exam.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exams := make([]exam.Exam, 0)
	for _, e := range repo.db.exams {
		if filter.Search != "" && !contains(e.Title, filter.Search) {
			continue
		}
		if filter.Level != "" && e.Level != filter.Level {
			continue
		}
		if filter.IsActive != nil && e.IsActive != *filter.IsActive {
			continue
		}
		e.Questions = slices.Clone(e.Questions)
		exams = append(exams, e)
	}
	sortBy(exams, examOrdering, func(e exam.Exam) string { return e.ID }, ordering)
	return exams, nil
}

func (repo *examRepository) UpdateExam(_ context.Context, e exam.Exam) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.exams[e.ID]
	if !ok {
		return exam.ErrNotFound
	}
	e.CreatedAt, e.CreatedBy = orig.CreatedAt, orig.CreatedBy
	e.Questions = slices.Clone(e.Questions)
	repo.db.exams[e.ID] = e
	return nil
}

func (repo *examRepository) DeleteExam(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.exams[id]; !ok {
		return exam.ErrNotFound
	}
	delete(repo.db.exams, id)
	for rid, r := range repo.db.results {
		if r.ExamID == id {
			delete(repo.db.results, rid)
		}
	}
	return nil
}

func (repo *examRepository) CreateResult(_ context.Context, r exam.Result) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, res := range repo.db.results {
		if res.ExamID == r.ExamID && res.StudentID == r.StudentID {
			return exam.ErrAlreadySubmitted
		}
	}
	r.Answers = slices.Clone(r.Answers)
	r.Items = slices.Clone(r.Items)
	repo.db.results[r.ID] = r
	return nil
}

func (repo *examRepository) FilterResults(_ context.Context, filter exam.ResultFilter) ([]exam.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	results := make([]exam.Result, 0)
	for _, r := range repo.db.results {
		if filter.ExamID != "" && r.ExamID != filter.ExamID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].SubmittedAt.Equal(results[j].SubmittedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].SubmittedAt.Before(results[j].SubmittedAt)
	})
	return results, nil
}
