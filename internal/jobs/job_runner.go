package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/notification"
	"toolrent-backend/internal/security"
	"toolrent-backend/internal/service"
)

// Job names accepted by Run.
const (
	JobMarkOverdueLoans     = "mark-overdue-loans"
	JobSendOverdueReminders = "send-overdue-reminders"
	JobAll                  = "all"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	notifier notification.Notifier
	metrics  *metrics.Metrics
	config   *config.Config
	now      service.Clock
}

// Services holds the engine components jobs call into
type Services struct {
	Customers service.CustomerAccount
	Reports   service.ReportAggregator
}

func NewJobRunner(services *Services, notifier notification.Notifier, m *metrics.Metrics, cfg *config.Config, now service.Clock) *JobRunner {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &JobRunner{
		services: services,
		notifier: notifier,
		metrics:  m,
		config:   cfg,
		now:      now,
	}
}

// Build wires a JobRunner for engine with the notifier selected in cfg.
func Build(engine *service.Engine, cfg *config.Config, m *metrics.Metrics) (*JobRunner, error) {
	notifier, err := notification.New(cfg.Notification)
	if err != nil {
		return nil, err
	}
	services := &Services{Customers: engine.Customers, Reports: engine.Reports}
	return NewJobRunner(services, notifier, m, cfg, nil), nil
}

// Config exposes the configuration jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery runs one job as the system actor, turning a panic into an
// error so a misbehaving job never takes the scheduler down.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx := logger.WithAttrs(context.Background(), "job", jobName)
	ctx = security.WithPrincipal(ctx, security.Principal{Subject: "cron", Username: security.SystemActor})
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		jr.metrics.ObserveJob(jobName, err)
		if err != nil {
			logger.ErrorContext(ctx, "Job failed", "error", err, "duration", time.Since(start))
			return
		}
		logger.InfoContext(ctx, "Job completed", "duration", time.Since(start))
	}()

	logger.InfoContext(ctx, "Starting job")
	return jobFunc(ctx)
}

func (jr *JobRunner) registry() map[string]func() error {
	return map[string]func() error{
		JobMarkOverdueLoans:     jr.runMarkOverdueLoans,
		JobSendOverdueReminders: jr.runSendOverdueReminders,
	}
}

// Names lists the jobs Run accepts, excluding JobAll.
func (jr *JobRunner) Names() []string {
	names := make([]string, 0, 2)
	for name := range jr.registry() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job by name, or every job in order for JobAll.
func (jr *JobRunner) Run(name string) error {
	if name == JobAll {
		if err := jr.runMarkOverdueLoans(); err != nil {
			return err
		}
		return jr.runSendOverdueReminders()
	}
	job, ok := jr.registry()[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return job()
}
