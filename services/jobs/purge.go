// Package jobsvc runs the periodic housekeeping of the API.
package jobsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

type (
	// SessionPurger is implemented by *session.Store.
	SessionPurger interface {
		Purge(ctx context.Context) (int, error)
	}

	// OTPPurger is implemented by *user.Service.
	OTPPurger interface {
		PurgeExpiredOTPs(ctx context.Context) (int, error)
	}

	// PurgeRecorder is implemented by *metricsvc.Metrics.
	PurgeRecorder interface {
		Purged(table string, n int)
	}
)

const purgeTimeout = time.Minute

type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPurger
	otps     OTPPurger
	metrics  PurgeRecorder
	logger   core.Logger
}

func NewScheduler(sessions SessionPurger, otps OTPPurger, metrics PurgeRecorder, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		sessions: sessions,
		otps:     otps,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start schedules the purge with a cron spec (e.g. "@every 1h") and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runPurge); err != nil {
		return errors.Wrapf(err, "scheduling purge %q", spec)
	}
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("jobs started: purge %q", spec))
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()
	if err := s.Purge(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("purge: %v", err), err)
	}
}

// Purge removes sessions that can no longer hydrate and expired OTP codes.
func (s *Scheduler) Purge(ctx context.Context) error {
	n, err := s.sessions.Purge(ctx)
	if err != nil {
		return err
	}
	s.metrics.Purged("sessions", n)

	m, err := s.otps.PurgeExpiredOTPs(ctx)
	if err != nil {
		return err
	}
	s.metrics.Purged("otps", m)

	if n+m > 0 {
		s.logger.Info(fmt.Sprintf("purged %d sessions, %d codes", n, m))
	}
	return nil
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v %v", msg, err, keysAndValues), err)
}
