// Package jobs runs periodic maintenance in the background.
package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

const sessionSweepJob = "session-sweep"

// IdleReleaser frees sessions that have not been used for a while
type IdleReleaser interface {
	ReleaseIdle(maxIdle time.Duration) int
}

// Scheduler wraps the background job scheduler
type Scheduler struct {
	s *gocron.Scheduler
}

// StartJobs schedules the background jobs and starts the scheduler
func StartJobs(sessions IdleReleaser, cfg types.SessionConfig) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startSessionSweepJob(s, sessions, cfg)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return &Scheduler{s: s}
}

// Stop stops the scheduler. Running jobs are allowed to finish.
func (sc *Scheduler) Stop() {
	sc.s.Stop()
}

// JobCount returns the number of scheduled jobs
func (sc *Scheduler) JobCount() int {
	return len(sc.s.Jobs())
}

func startSessionSweepJob(s *gocron.Scheduler, sessions IdleReleaser, cfg types.SessionConfig) {
	if cfg.IdleTimeoutMinutes <= 0 || cfg.SweepIntervalMinutes <= 0 {
		log.Println("Session idle timeout is 0, idle session eviction is disabled.")
		return
	}

	maxIdle := time.Duration(cfg.IdleTimeoutMinutes) * time.Minute
	log.Printf("Scheduling job: '%s' to run every %d minutes.", sessionSweepJob, cfg.SweepIntervalMinutes)

	_, err := s.Every(cfg.SweepIntervalMinutes).Minutes().Tag(sessionSweepJob).Do(func() {
		sweepSessions(sessions, maxIdle)
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", sessionSweepJob, err)
	}
}

func sweepSessions(sessions IdleReleaser, maxIdle time.Duration) int {
	n := sessions.ReleaseIdle(maxIdle)
	if n > 0 {
		log.Printf("Job '%s' released %d idle session(s)", sessionSweepJob, n)
	}
	return n
}
