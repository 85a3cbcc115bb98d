package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
)

var scheduleColumns = []string{
	"s.id", "s.title", "s.description", "s.level", "s.day", "s.starts_at", "s.ends_at", "s.capacity", "s.is_active",
	"s.created_at", "s.updated_at",
	"(SELECT COUNT(*) FROM schedule_registrations r WHERE r.schedule_id = s.id) AS registered",
}

type scheduleRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Level       string    `db:"level"`
	Day         string    `db:"day"`
	StartsAt    string    `db:"starts_at"`
	EndsAt      string    `db:"ends_at"`
	Capacity    int       `db:"capacity"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Registered  int       `db:"registered"`
}

func (r scheduleRow) schedule() schedule.Schedule {
	return schedule.Schedule{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		Day:         r.Day,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		Capacity:    r.Capacity,
		Registered:  r.Registered,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) error {
	b := psql.Insert("schedules").
		Columns("id", "title", "description", "level", "day", "starts_at", "ends_at", "capacity", "is_active", "created_at", "updated_at").
		Values(s.ID, s.Title, s.Description, s.Level, s.Day, s.StartsAt, s.EndsAt, s.Capacity, s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "inserting schedule")
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var row scheduleRow
	if err := get(ctx, repo.db, &row, psql.Select(scheduleColumns...).From("schedules s").Where(sq.Eq{"s.id": id})); err != nil {
		return schedule.Schedule{}, trapNoRowsErr(err, schedule.ErrNotFound, "getting schedule")
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) FilterSchedules(ctx context.Context, filter schedule.QueryFilter) ([]schedule.Schedule, error) {
	b := psql.Select(scheduleColumns...).From("schedules s")
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "s.title"))
	}
	if filter.Level != "" {
		b = b.Where(sq.Eq{"s.level": filter.Level})
	}
	if filter.Day != "" {
		b = b.Where(sq.Eq{"s.day": filter.Day})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"s.is_active": *filter.IsActive})
	}
	if filter.StudentID != "" {
		b = b.Join("schedule_registrations sr ON sr.schedule_id = s.id").Where(sq.Eq{"sr.student_id": filter.StudentID})
	}

	var rows []scheduleRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering schedules")
	}
	ss := make([]schedule.Schedule, 0, len(rows))
	for _, r := range rows {
		ss = append(ss, r.schedule())
	}
	return ss, nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, s schedule.Schedule) error {
	b := psql.Update("schedules").SetMap(map[string]interface{}{
		"title":       s.Title,
		"description": s.Description,
		"level":       s.Level,
		"day":         s.Day,
		"starts_at":   s.StartsAt,
		"ends_at":     s.EndsAt,
		"capacity":    s.Capacity,
		"is_active":   s.IsActive,
		"updated_at":  s.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": s.ID})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("schedules").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// Register locks the schedule row so concurrent registrations cannot exceed the capacity.
func (repo *scheduleRepository) Register(ctx context.Context, reg schedule.Registration) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var capacity int
		lock := psql.Select("capacity").From("schedules").Where(sq.Eq{"id": reg.ScheduleID}).Suffix("FOR UPDATE")
		if err := get(ctx, tx, &capacity, lock); err != nil {
			return trapNoRowsErr(err, schedule.ErrNotFound, "locking schedule")
		}

		var registered, mine int
		count := psql.Select("COUNT(*)").
			Column(sq.Expr("COUNT(*) FILTER (WHERE student_id = ?)", reg.StudentID)).
			From("schedule_registrations").
			Where(sq.Eq{"schedule_id": reg.ScheduleID})
		query, args, err := count.ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if err = tx.QueryRowxContext(ctx, query, args...).Scan(&registered, &mine); err != nil {
			return errors.Wrap(err, "counting registrations")
		}
		if mine > 0 {
			return schedule.ErrAlreadyRegistered
		}
		if capacity > 0 && registered >= capacity {
			return schedule.ErrFull
		}

		ins := psql.Insert("schedule_registrations").
			Columns("schedule_id", "student_id", "created_at").
			Values(reg.ScheduleID, reg.StudentID, reg.CreatedAt.UTC())
		if _, err = exec(ctx, tx, ins); err != nil {
			if _, ok := uniqueConstraint(err); ok {
				return schedule.ErrAlreadyRegistered
			}
			return errors.Wrap(err, "inserting registration")
		}
		return nil
	})
}

func (repo *scheduleRepository) Unregister(ctx context.Context, scheduleID, studentID string) error {
	b := psql.Delete("schedule_registrations").Where(sq.Eq{"schedule_id": scheduleID, "student_id": studentID})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return errors.Wrap(err, "deleting registration")
	}
	if n == 0 {
		return schedule.ErrNotRegistered
	}
	return nil
}
