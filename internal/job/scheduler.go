// Package job polls the store for due jobs and applies them through the
// engine, with bounded retries and exponential backoff.
package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/internal/store"
	"github.com/procflow/procflow/pkg/types"
)

const (
	defaultPollInterval = time.Second
	baseBackoff         = 5 * time.Second
	maxBackoff          = 10 * time.Minute
)

// Scheduler drives due jobs into the engine.
type Scheduler struct {
	engine   *engine.Engine
	store    store.Store
	clock    clockwork.Clock
	log      *zap.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// NewScheduler creates a scheduler polling at the given interval (zero
// means one second).
func NewScheduler(e *engine.Engine, s store.Store, clock clockwork.Clock, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{engine: e, store: s, clock: clock, log: log, interval: interval}
}

// Start launches the polling loop. It is a no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	go s.loop(ctx, done)
}

// Stop halts the polling loop and waits for the current pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// loop owns its done channel directly; Stop nils the struct fields while
// the goroutine may still be draining its last pass.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := s.RunDueJobs(); err != nil {
				s.log.Error("job pass failed", zap.Error(err))
			}
		}
	}
}

// RunDueJobs executes every job due now. Obsolete jobs (target instance
// gone or ended) are discarded silently; failing jobs are retried with
// exponential backoff until their retry budget runs out.
func (s *Scheduler) RunDueJobs() error {
	due, err := s.store.JobsDue(s.clock.Now())
	if err != nil {
		return err
	}
	for _, job := range due {
		s.runJob(job)
	}
	return nil
}

func (s *Scheduler) runJob(job *types.Job) {
	err := s.engine.ExecuteJob(job)
	if err == nil {
		if dropErr := s.store.DeleteJob(job.ID); dropErr != nil {
			s.log.Error("cannot delete finished job", zap.String("job_id", job.ID), zap.Error(dropErr))
		}
		return
	}
	if errors.Is(err, engine.ErrJobObsolete) {
		_ = s.store.DeleteJob(job.ID)
		return
	}

	job.Retries++
	if job.Retries > job.MaxRetries {
		s.log.Error("job abandoned",
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Int("retries", job.Retries-1),
			zap.Error(err))
		_ = s.store.DeleteJob(job.ID)
		return
	}

	job.DueTime = s.clock.Now().Add(backoff(job.Retries))
	if saveErr := s.store.SaveJob(job); saveErr != nil {
		s.log.Error("cannot reschedule job", zap.String("job_id", job.ID), zap.Error(saveErr))
		return
	}
	s.log.Warn("job failed, rescheduled",
		zap.String("job_id", job.ID),
		zap.String("kind", job.Kind),
		zap.Int("retries", job.Retries),
		zap.Time("due", job.DueTime),
		zap.Error(err))
}

// backoff doubles per attempt, capped at maxBackoff.
func backoff(attempt int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
