package jobsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

type purgerFunc func(ctx context.Context) (int, error)

func (f purgerFunc) Purge(ctx context.Context) (int, error) { return f(ctx) }

func (f purgerFunc) PurgeExpiredOTPs(ctx context.Context) (int, error) { return f(ctx) }

type recorder map[string]int

func (r recorder) Purged(table string, n int) {
	r[table] += n
}

func TestPurge(t *testing.T) {
	rec := recorder{}
	s := NewScheduler(
		purgerFunc(func(context.Context) (int, error) { return 2, nil }),
		purgerFunc(func(context.Context) (int, error) { return 5, nil }),
		rec, core.NopLogger{},
	)
	require.NoError(t, s.Purge(context.Background()))
	assert.Equal(t, recorder{"sessions": 2, "otps": 5}, rec)
}

func TestPurgeStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	otpCalled := false
	s := NewScheduler(
		purgerFunc(func(context.Context) (int, error) { return 0, boom }),
		purgerFunc(func(context.Context) (int, error) { otpCalled = true; return 0, nil }),
		recorder{}, core.NopLogger{},
	)
	assert.ErrorIs(t, s.Purge(context.Background()), boom)
	assert.False(t, otpCalled)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(purgerFunc(nil), purgerFunc(nil), recorder{}, core.NopLogger{})
	assert.Error(t, s.Start("every now and then"))

	require.NoError(t, s.Start("@every 1h"))
	s.Stop(context.Background())
}
