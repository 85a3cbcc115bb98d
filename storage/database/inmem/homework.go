package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
)

var homeworkOrdering = map[string]comparator[homework.Homework]{
	"title":      func(a, b homework.Homework) int { return compare(a.Title, b.Title) },
	"due_date":   func(a, b homework.Homework) int { return compareTime(a.DueDate, b.DueDate) },
	"level":      func(a, b homework.Homework) int { return compare(a.Level, b.Level) },
	"created_at": func(a, b homework.Homework) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type homeworkRepository struct {
	db *DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *DB) homework.Repository {
	return &homeworkRepository{db: db}
}

// detach copies the slices so stored rows never share memory with callers.
func detach(hw homework.Homework) homework.Homework {
	hw.Questions = slices.Clone(hw.Questions)
	hw.Attachments = slices.Clone(hw.Attachments)
	return hw
}

func (repo *homeworkRepository) CreateHomework(_ context.Context, hw homework.Homework) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.homework[hw.ID] = detach(hw)
	return nil
}

func (repo *homeworkRepository) GetHomework(_ context.Context, id string) (homework.Homework, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if hw, ok := repo.db.homework[id]; ok {
		return detach(hw), nil
	}
	return homework.Homework{}, homework.ErrNotFound
}

func (repo *homeworkRepository) FilterHomework(_ context.Context, filter homework.QueryFilter, ordering ...core.DBOrdering) ([]homework.Homework, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	hws := make([]homework.Homework, 0)
	for _, hw := range repo.db.homework {
		if filter.Search != "" && !contains(hw.Title, filter.Search) {
			continue
		}
		if filter.Level != "" && hw.Level != filter.Level {
			continue
		}
		if filter.IsActive != nil && hw.IsActive != *filter.IsActive {
			continue
		}
		hws = append(hws, detach(hw))
	}
	sortBy(hws, homeworkOrdering, func(hw homework.Homework) string { return hw.ID }, ordering)
	return hws, nil
}

func (repo *homeworkRepository) UpdateHomework(_ context.Context, hw homework.Homework) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.homework[hw.ID]
	if !ok {
		return homework.ErrNotFound
	}
	hw.CreatedAt, hw.CreatedBy = orig.CreatedAt, orig.CreatedBy
	repo.db.homework[hw.ID] = detach(hw)
	return nil
}

func (repo *homeworkRepository) DeleteHomework(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.homework[id]; !ok {
		return homework.ErrNotFound
	}
	delete(repo.db.homework, id)
	for sid, sub := range repo.db.submissions {
		if sub.HomeworkID == id {
			delete(repo.db.submissions, sid)
		}
	}
	return nil
}

func (repo *homeworkRepository) SaveSubmission(_ context.Context, sub homework.Submission) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, s := range repo.db.submissions {
		if s.HomeworkID == sub.HomeworkID && s.StudentID == sub.StudentID {
			sub.ID = id
			break
		}
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.Answers = slices.Clone(sub.Answers)
	sub.Items = slices.Clone(sub.Items)
	repo.db.submissions[sub.ID] = sub
	return nil
}

func (repo *homeworkRepository) GetSubmission(_ context.Context, id string) (homework.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return sub, nil
	}
	return homework.Submission{}, homework.ErrSubmissionNotFound
}

func (repo *homeworkRepository) GetStudentSubmission(_ context.Context, homeworkID, studentID string) (homework.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.HomeworkID == homeworkID && sub.StudentID == studentID {
			return sub, nil
		}
	}
	return homework.Submission{}, homework.ErrSubmissionNotFound
}

func (repo *homeworkRepository) FilterSubmissions(_ context.Context, filter homework.SubmissionFilter) ([]homework.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]homework.Submission, 0)
	for _, sub := range repo.db.submissions {
		if filter.HomeworkID != "" && sub.HomeworkID != filter.HomeworkID {
			continue
		}
		if filter.StudentID != "" && sub.StudentID != filter.StudentID {
			continue
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
	return subs, nil
}
