package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

// Days a schedule may fall on, in school-week order.
var Days = []string{"saturday", "sunday", "monday", "tuesday", "wednesday", "thursday", "friday"}

// Schedule is a recurring weekly session students register for.
// Capacity 0 means unlimited. Registered is maintained by the repository.
type Schedule struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Level       string    `json:"level"` // empty: every level
	Day         string    `json:"day"`
	StartsAt    string    `json:"starts_at"` // HH:MM
	EndsAt      string    `json:"ends_at"`   // HH:MM
	Capacity    int       `json:"capacity"`
	Registered  int       `json:"registered"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (s Schedule) Full() bool {
	return s.Capacity > 0 && s.Registered >= s.Capacity
}

// OpenTo reports whether a student of the given level may see the schedule.
func (s Schedule) OpenTo(level string) bool {
	return s.IsActive && (s.Level == "" || s.Level == level)
}

// StudentSchedule is a schedule as seen by one student.
type StudentSchedule struct {
	Schedule
	IsRegistered bool `json:"is_registered"`
}

type Registration struct {
	ScheduleID string    `json:"schedule_id"`
	StudentID  string    `json:"student_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

var errEndsBeforeStart = errors.New("end time must be after start time")

func checkTimes(startsAt, endsAt string) error {
	start, err := time.Parse("15:04", startsAt)
	if err != nil {
		return err
	}
	end, err := time.Parse("15:04", endsAt)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return core.NewValidationError(errEndsBeforeStart, core.FieldError{Field: "ends_at", Error: errEndsBeforeStart.Error()})
	}
	return nil
}

type NewSchedule struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Day         string `json:"day" validate:"required,oneof=saturday sunday monday tuesday wednesday thursday friday"`
	StartsAt    string `json:"starts_at" validate:"required,datetime=15:04"`
	EndsAt      string `json:"ends_at" validate:"required,datetime=15:04"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
	IsActive    *bool  `json:"is_active"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Level = core.CleanString(ns.Level)
	ns.Day = core.CleanString(ns.Day, true /* lower */)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return checkTimes(ns.StartsAt, ns.EndsAt)
}

// UpdateSchedule is a partial update: nil fields are left untouched.
type UpdateSchedule struct {
	Title       *string `json:"title" validate:"omitempty,notblank"`
	Description *string `json:"description"`
	Level       *string `json:"level"`
	Day         *string `json:"day" validate:"omitempty,oneof=saturday sunday monday tuesday wednesday thursday friday"`
	StartsAt    *string `json:"starts_at" validate:"omitempty,datetime=15:04"`
	EndsAt      *string `json:"ends_at" validate:"omitempty,datetime=15:04"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

var errCapacityBelowRegistered = errors.New("capacity is lower than the number of registered students")

func (us *UpdateSchedule) Validate(orig Schedule, validate *validator.Validate) error {
	if us.Title != nil {
		*us.Title = core.CleanString(*us.Title)
	}
	if us.Level != nil {
		*us.Level = core.CleanString(*us.Level)
	}
	if us.Day != nil {
		*us.Day = core.CleanString(*us.Day, true /* lower */)
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	merged := orig
	us.apply(&merged)
	if merged.Capacity > 0 && merged.Capacity < orig.Registered {
		return core.NewValidationError(errCapacityBelowRegistered, core.FieldError{Field: "capacity", Error: errCapacityBelowRegistered.Error()})
	}
	return checkTimes(merged.StartsAt, merged.EndsAt)
}

func (us UpdateSchedule) apply(s *Schedule) {
	if us.Title != nil {
		s.Title = *us.Title
	}
	if us.Description != nil {
		s.Description = *us.Description
	}
	if us.Level != nil {
		s.Level = *us.Level
	}
	if us.Day != nil {
		s.Day = *us.Day
	}
	if us.StartsAt != nil {
		s.StartsAt = *us.StartsAt
	}
	if us.EndsAt != nil {
		s.EndsAt = *us.EndsAt
	}
	if us.Capacity != nil {
		s.Capacity = *us.Capacity
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	Level    string `query:"level"`
	Day      string `query:"day"`
	IsActive *bool  `query:"is_active"`
	// StudentID restricts the result to schedules the student is registered to.
	StudentID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
	qf.Day = core.CleanString(qf.Day, true /* lower */)
}
