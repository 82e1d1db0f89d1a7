package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/config"
	"github.com/omenezes/aula-planner-api/pkg/jobs"
)

type sweepUserRepository interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

type sweepBackupService interface {
	PushAuto(ctx context.Context, user *models.User) (string, error)
}

type sweepMetrics interface {
	ObserveSweepRun()
	ObserveSweepFailure()
	ObserveBackupUploaded()
}

// BackupScheduler periodically uploads a backup for every registered user.
// One sweep enqueues a job per user onto a worker queue so a slow or failing
// upload for one user never blocks the rest.
type BackupScheduler struct {
	users   sweepUserRepository
	backups sweepBackupService
	metrics sweepMetrics
	cfg     config.BackupConfig
	logger  *zap.Logger

	queue *jobs.Queue

	// running guards against overlapping sweeps when a sweep outlives the
	// tick interval.
	running sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// NewBackupScheduler constructs the scheduler. metrics may be nil.
func NewBackupScheduler(users sweepUserRepository, backups sweepBackupService, metrics sweepMetrics, cfg config.BackupConfig, logger *zap.Logger) *BackupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BackupScheduler{
		users:   users,
		backups: backups,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.queue = jobs.NewQueue("backup-sweep", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the ticker loop. The first sweep happens after one full
// interval, not at startup.
func (s *BackupScheduler) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.loop(ctx)
	s.logger.Info("backup scheduler started", zap.Duration("interval", s.cfg.SweepInterval))
}

// Stop halts the ticker and drains the workers.
func (s *BackupScheduler) Stop() {
	close(s.stop)
	<-s.done
	s.queue.Stop()
	s.logger.Info("backup scheduler stopped")
}

func (s *BackupScheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep enqueues one backup job per registered user. If a previous sweep is
// still running the call returns immediately without doing anything.
func (s *BackupScheduler) Sweep(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("previous backup sweep still running, skipping")
		return
	}
	defer s.running.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveSweepRun()
	}

	users, err := s.users.ListAll(ctx)
	if err != nil {
		s.logger.Error("backup sweep failed to list users", zap.Error(err))
		return
	}

	for _, user := range users {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "backup-user",
			Payload: user,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue backup job", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	s.logger.Info("backup sweep enqueued", zap.Int("users", len(users)))
}

func (s *BackupScheduler) handleJob(ctx context.Context, job jobs.Job) error {
	user, ok := job.Payload.(models.User)
	if !ok {
		s.logger.Error("backup job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	name, err := s.backups.PushAuto(ctx, &user)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveSweepFailure()
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveBackupUploaded()
	}
	s.logger.Info("automatic backup uploaded", zap.String("user_id", user.ID), zap.String("file", name))
	return nil
}
