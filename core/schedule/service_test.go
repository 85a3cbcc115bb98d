package schedule_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	inmemdb "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/inmem"
)

func newService() *schedule.Service {
	return schedule.NewService(inmemdb.NewScheduleRepository(inmemdb.Open()))
}

func create(t *testing.T, svc *schedule.Service, title, level, day, startsAt string, capacity int) schedule.Schedule {
	t.Helper()
	s, err := svc.Create(context.Background(), schedule.NewSchedule{
		Title:    title,
		Level:    level,
		Day:      day,
		StartsAt: startsAt,
		EndsAt:   "23:00",
		Capacity: capacity,
	})
	require.NoError(t, err)
	return s
}

func TestService_Filter_weekOrder(t *testing.T) {
	svc := newService()
	create(t, svc, "Friday", "", "friday", "08:00", 0)
	create(t, svc, "Monday late", "", "monday", "14:00", 0)
	create(t, svc, "Saturday", "", "saturday", "09:00", 0)
	create(t, svc, "Monday early", "", "monday", "08:30", 0)

	ss, err := svc.Filter(context.Background(), schedule.QueryFilter{})
	require.NoError(t, err)
	titles := make([]string, len(ss))
	for i, s := range ss {
		titles[i] = s.Title
	}
	assert.Equal(t, []string{"Saturday", "Monday early", "Monday late", "Friday"}, titles)
}

func TestService_Register(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	s := create(t, svc, "Quran", "grade-1", "sunday", "10:00", 1)
	open := create(t, svc, "Open", "", "sunday", "12:00", 0)

	tests := []struct {
		name       string
		scheduleID string
		studentID  string
		level      string
		wantErr    error
	}{
		{name: "unknown schedule", scheduleID: "lol", studentID: "s1", level: "grade-1", wantErr: schedule.ErrNotFound},
		{name: "other level", scheduleID: s.ID, studentID: "s1", level: "grade-2", wantErr: schedule.ErrUnavailable},
		{name: "ok", scheduleID: s.ID, studentID: "s1", level: "grade-1"},
		{name: "twice", scheduleID: s.ID, studentID: "s1", level: "grade-1", wantErr: schedule.ErrAlreadyRegistered},
		{name: "full", scheduleID: s.ID, studentID: "s2", level: "grade-1", wantErr: schedule.ErrFull},
		{name: "every level, unlimited", scheduleID: open.ID, studentID: "s2", level: "grade-7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss, err := svc.Register(ctx, tt.scheduleID, tt.studentID, tt.level)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, ss.IsRegistered)
			assert.Equal(t, 1, ss.Registered)
		})
	}

	// a full schedule stays visible to the students registered to it
	avail, err := svc.Available(ctx, "s1", "grade-1")
	require.NoError(t, err)
	require.Len(t, avail, 2)
	assert.True(t, avail[0].IsRegistered)
	assert.False(t, avail[1].IsRegistered)

	avail, err = svc.Available(ctx, "s3", "grade-1")
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, open.ID, avail[0].ID)

	require.NoError(t, svc.Unregister(ctx, s.ID, "s1"))
	assert.True(t, core.IsNotFound(svc.Unregister(ctx, s.ID, "s1")))
	mine, err := svc.Mine(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestService_Register_concurrent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	const capacity = 5
	s := create(t, svc, "Tajweed", "", "monday", "10:00", capacity)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(ctx, s.ID, fmt.Sprintf("student-%d", i), "grade-1")
			mu.Lock()
			defer mu.Unlock()
			switch errors.Cause(err) {
			case nil:
				ok++
			case schedule.ErrFull:
				full++
			default:
				t.Errorf("Register() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, ok)
	assert.Equal(t, 20-capacity, full)
	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.Registered)
	assert.True(t, got.Full())
}
