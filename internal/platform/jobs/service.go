package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const JobTokenCleanup = "token_cleanup"

type Func func(context.Context) (any, error)

type schedule struct {
	Type     string
	Interval time.Duration
	Run      Func
}

// Service runs background jobs one at a time on a single worker. Scheduled
// jobs are enqueued on every tick of their interval.
type Service struct {
	queue     chan job
	mu        sync.Mutex
	schedules []schedule
	started   bool
}

type job struct {
	Type string
	Run  Func
}

func New() *Service {
	return &Service{queue: make(chan job, 128)}
}

// Schedule registers run to be enqueued every interval once the service is
// started. A non-positive interval disables the job.
func (s *Service) Schedule(jobType string, interval time.Duration, run Func) {
	if interval <= 0 {
		slog.Info("job disabled", "jobType", jobType)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, schedule{Type: jobType, Interval: interval, Run: run})
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.worker(ctx)
	for _, sch := range s.schedules {
		go s.tick(ctx, sch)
	}
}

func (s *Service) Enqueue(jobType string, run Func) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run Func) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job run",
		"jobType", j.Type,
		"status", status,
		"durationMs", time.Since(started).Milliseconds(),
		"details", details,
	)
	return details, err
}

func (s *Service) tick(ctx context.Context, sch schedule) {
	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sch.Type, sch.Run)
		}
	}
}
