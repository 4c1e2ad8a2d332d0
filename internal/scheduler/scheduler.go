package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-edge/internal/weather"
)

// HealthChecker takes and stores one health snapshot.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (weather.HealthReport, error)
}

// Scheduler periodically snapshots backend data health.
type Scheduler struct {
	scheduler *gocron.Scheduler
	checker   HealthChecker
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. An interval of zero disables it.
func New(interval time.Duration, checker HealthChecker) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		checker:   checker,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first check runs immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		logrus.Info("scheduler: health checks disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logrus.WithField("every", s.interval.String()).Info("scheduler: health checks scheduled")
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.checker.CheckHealth(ctx)
	if err != nil {
		logrus.WithError(err).Warn("scheduler: health check failed")
		return
	}
	logrus.WithField("report", report.ID).Info("scheduler: health check completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
