package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"erp-onboarding/internal/jobs"
	"erp-onboarding/internal/models"
	"erp-onboarding/internal/repositories"
	"erp-onboarding/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const trialReminderJob = "trial-expiration-reminders"

// ReminderDays are the days before trial expiry on which the admin is
// reminded.
var ReminderDays = []int{7, 3, 1}

// JobScheduler runs periodic sweeps that feed the job queue.
type JobScheduler struct {
	scheduler gocron.Scheduler
	tenants   repositories.TenantRepository
	queue     services.JobEnqueuer
	clock     clockwork.Clock
	log       *zap.Logger

	mu      sync.RWMutex
	jobJobs map[string]gocron.Job
}

// NewJobScheduler builds a scheduler on clock and registers the trial
// reminder sweep every interval.
func NewJobScheduler(tenants repositories.TenantRepository, queue services.JobEnqueuer, clock clockwork.Clock,
	interval time.Duration, log *zap.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		tenants:   tenants,
		queue:     queue,
		clock:     clock,
		log:       log.Named("scheduler"),
		jobJobs:   make(map[string]gocron.Job),
	}

	job, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.runTrialReminders, context.Background()),
		gocron.WithName(trialReminderJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", trialReminderJob, err)
	}
	js.jobJobs[trialReminderJob] = job

	return js, nil
}

func (js *JobScheduler) Start() {
	js.log.Info("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.log.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) runTrialReminders(ctx context.Context) {
	count, err := js.SweepTrialReminders(ctx)
	if err != nil {
		js.log.Error("trial reminder sweep failed", zap.Int("enqueued", count), zap.Error(err))
		return
	}
	js.log.Info("trial reminder sweep finished", zap.Int("enqueued", count))
}

// SweepTrialReminders enqueues one reminder for every trial expiring within
// (d-1, d] days of now, for each d in ReminderDays.
func (js *JobScheduler) SweepTrialReminders(ctx context.Context) (int, error) {
	now := js.clock.Now().UTC()
	enqueued := 0

	for _, days := range ReminderDays {
		from := now.Add(time.Duration(days-1) * 24 * time.Hour)
		to := now.Add(time.Duration(days) * 24 * time.Hour)

		tenants, err := js.tenants.ListTrialsExpiringBetween(ctx, from, to)
		if err != nil {
			return enqueued, fmt.Errorf("list trials expiring in %d days: %w", days, err)
		}

		for _, t := range tenants {
			_, err := js.queue.Enqueue(ctx, models.JobTrialReminder, models.TrialReminderPayload{
				TenantID:      t.ID.String(),
				DaysRemaining: days,
			}, jobs.EnqueueOptions{})
			if err != nil {
				js.log.Warn("failed to enqueue trial reminder", zap.String("tenant_id", t.ID.String()), zap.Error(err))
				continue
			}
			enqueued++
		}
	}
	return enqueued, nil
}

// GetJobStatus returns the names and next runs of the scheduled jobs.
func (js *JobScheduler) GetJobStatus() map[string]any {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make(map[string]any)
	status["total_jobs"] = len(js.jobJobs)
	names := make([]string, 0, len(js.jobJobs))
	for name, job := range js.jobJobs {
		names = append(names, name)
		if next, err := job.NextRun(); err == nil {
			status[name+"_next_run"] = next
		}
	}
	status["jobs"] = names
	return status
}
