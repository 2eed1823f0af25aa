package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobScheduler runs a list of jobs on a fixed schedule.
type JobScheduler struct {
	Name   string
	Ticker *time.Ticker
	Jobs   []Job
	mu     sync.RWMutex
}

func NewJobScheduler(name string, interval time.Duration) *JobScheduler {
	return &JobScheduler{
		Name:   name,
		Ticker: time.NewTicker(interval),
		Jobs:   make([]Job, 0),
	}
}

func (s *JobScheduler) AddJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs = append(s.Jobs, job)
}

func (s *JobScheduler) Run(ctx context.Context) {
	log.Printf("[Scheduler %s] Running.\n", s.Name)
	defer s.Ticker.Stop()

	for {
		select {
		case <-s.Ticker.C:
			s.runJobs(ctx)

		case <-ctx.Done():
			// The manager signaled a global shutdown
			log.Printf("[Scheduler %s] Shutting down.\n", s.Name)
			return
		}
	}
}

func (s *JobScheduler) runJobs(ctx context.Context) {
	s.mu.RLock()
	jobsToRun := make([]Job, len(s.Jobs))
	copy(jobsToRun, s.Jobs)
	s.mu.RUnlock()

	for _, job := range jobsToRun {
		if err := job(ctx); err != nil {
			log.Printf("[Scheduler %s] Job failed: %v\n", s.Name, err)
		}
	}
}
