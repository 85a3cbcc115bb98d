// Package schedule manages weekly schedules and student registrations.
package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("schedule not found")
	ErrNotRegistered     = core.NewNotFoundError("not registered to this schedule")
	ErrFull              = errors.New("schedule is full")
	ErrAlreadyRegistered = errors.New("already registered to this schedule")
	ErrUnavailable       = errors.New("schedule is not available")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule) error
		GetSchedule(ctx context.Context, id string) (Schedule, error)
		// FilterSchedules applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Schedule.Title.
		FilterSchedules(ctx context.Context, filter QueryFilter) ([]Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule) error
		DeleteSchedule(ctx context.Context, id string) error

		// Register atomically checks the capacity and adds the registration.
		// It returns ErrFull or ErrAlreadyRegistered.
		Register(ctx context.Context, reg Registration) error
		// Unregister returns ErrNotRegistered when there is nothing to remove.
		Unregister(ctx context.Context, scheduleID, studentID string) error
	}

	Service struct {
		repo Repository

		NowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, NowFunc: time.Now}
}

func (svc *Service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	now := svc.NowFunc().UTC()
	s := Schedule{
		ID:          uuid.New().String(),
		Title:       ns.Title,
		Description: ns.Description,
		Level:       ns.Level,
		Day:         ns.Day,
		StartsAt:    ns.StartsAt,
		EndsAt:      ns.EndsAt,
		Capacity:    ns.Capacity,
		IsActive:    ns.IsActive == nil || *ns.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.repo.CreateSchedule(ctx, s); err != nil {
		return Schedule{}, errors.Wrap(err, "creating schedule")
	}
	return s, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

// Filter lists schedules in week order.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Schedule, error) {
	filter.Clean()
	ss, err := svc.repo.FilterSchedules(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortByWeek(ss)
	return ss, nil
}

func (svc *Service) Update(ctx context.Context, s Schedule, us UpdateSchedule) (Schedule, error) {
	us.apply(&s)
	s.UpdatedAt = svc.NowFunc().UTC()
	if err := svc.repo.UpdateSchedule(ctx, s); err != nil {
		return Schedule{}, errors.Wrap(err, "updating schedule")
	}
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetSchedule(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSchedule(ctx, id)
}

// Available lists the active schedules of a level the student may still register to,
// plus the ones it is already registered to.
func (svc *Service) Available(ctx context.Context, studentID, level string) ([]StudentSchedule, error) {
	all, err := svc.Filter(ctx, QueryFilter{IsActive: core.BoolPtr(true)})
	if err != nil {
		return nil, err
	}
	mine, err := svc.registeredIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]StudentSchedule, 0, len(all))
	for _, s := range all {
		registered := mine[s.ID]
		if !s.OpenTo(level) || (s.Full() && !registered) {
			continue
		}
		out = append(out, StudentSchedule{Schedule: s, IsRegistered: registered})
	}
	return out, nil
}

// Mine lists the schedules a student is registered to.
func (svc *Service) Mine(ctx context.Context, studentID string) ([]StudentSchedule, error) {
	ss, err := svc.Filter(ctx, QueryFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	out := make([]StudentSchedule, len(ss))
	for i, s := range ss {
		out[i] = StudentSchedule{Schedule: s, IsRegistered: true}
	}
	return out, nil
}

func (svc *Service) registeredIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	ss, err := svc.repo.FilterSchedules(ctx, QueryFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(ss))
	for _, s := range ss {
		ids[s.ID] = true
	}
	return ids, nil
}

// Register adds the student to a schedule open to its level.
func (svc *Service) Register(ctx context.Context, scheduleID, studentID, level string) (StudentSchedule, error) {
	s, err := svc.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return StudentSchedule{}, err
	}
	if !s.OpenTo(level) {
		return StudentSchedule{}, ErrUnavailable
	}
	reg := Registration{ScheduleID: scheduleID, StudentID: studentID, CreatedAt: svc.NowFunc().UTC()}
	if err = svc.repo.Register(ctx, reg); err != nil {
		return StudentSchedule{}, err
	}
	if s, err = svc.repo.GetSchedule(ctx, scheduleID); err != nil {
		return StudentSchedule{}, err
	}
	return StudentSchedule{Schedule: s, IsRegistered: true}, nil
}

func (svc *Service) Unregister(ctx context.Context, scheduleID, studentID string) error {
	if _, err := svc.repo.GetSchedule(ctx, scheduleID); err != nil {
		return err
	}
	return svc.repo.Unregister(ctx, scheduleID, studentID)
}

func dayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return len(Days)
}

func sortByWeek(ss []Schedule) {
	sort.SliceStable(ss, func(i, j int) bool {
		di, dj := dayIndex(ss[i].Day), dayIndex(ss[j].Day)
		if di != dj {
			return di < dj
		}
		return ss[i].StartsAt < ss[j].StartsAt
	})
}
