package inmemdb

import (
	"context"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

// withCount fills the registration count. Callers hold the lock.
func (repo *scheduleRepository) withCount(s schedule.Schedule) schedule.Schedule {
	s.Registered = 0
	for k := range repo.db.registrations {
		if k.scheduleID == s.ID {
			s.Registered++
		}
	}
	return s
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, s schedule.Schedule) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.schedules[s.ID] = s
	return nil
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, id string) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return repo.withCount(s), nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) FilterSchedules(_ context.Context, filter schedule.QueryFilter) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ss := make([]schedule.Schedule, 0)
	for _, s := range repo.db.schedules {
		if filter.Search != "" && !contains(s.Title, filter.Search) {
			continue
		}
		if filter.Level != "" && s.Level != filter.Level {
			continue
		}
		if filter.Day != "" && s.Day != filter.Day {
			continue
		}
		if filter.IsActive != nil && s.IsActive != *filter.IsActive {
			continue
		}
		if filter.StudentID != "" {
			if _, ok := repo.db.registrations[regKey{scheduleID: s.ID, studentID: filter.StudentID}]; !ok {
				continue
			}
		}
		ss = append(ss, repo.withCount(s))
	}
	return ss, nil
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, s schedule.Schedule) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.schedules[s.ID]
	if !ok {
		return schedule.ErrNotFound
	}
	s.CreatedAt = orig.CreatedAt
	repo.db.schedules[s.ID] = s
	return nil
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schedules[id]; !ok {
		return schedule.ErrNotFound
	}
	delete(repo.db.schedules, id)
	for k := range repo.db.registrations {
		if k.scheduleID == id {
			delete(repo.db.registrations, k)
		}
	}
	return nil
}

func (repo *scheduleRepository) Register(_ context.Context, reg schedule.Registration) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.schedules[reg.ScheduleID]
	if !ok {
		return schedule.ErrNotFound
	}
	key := regKey{scheduleID: reg.ScheduleID, studentID: reg.StudentID}
	if _, ok = repo.db.registrations[key]; ok {
		return schedule.ErrAlreadyRegistered
	}
	if s = repo.withCount(s); s.Full() {
		return schedule.ErrFull
	}
	repo.db.registrations[key] = reg
	return nil
}

func (repo *scheduleRepository) Unregister(_ context.Context, scheduleID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := regKey{scheduleID: scheduleID, studentID: studentID}
	if _, ok := repo.db.registrations[key]; !ok {
		return schedule.ErrNotRegistered
	}
	delete(repo.db.registrations, key)
	return nil
}
