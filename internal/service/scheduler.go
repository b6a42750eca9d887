package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

const (
	cleanupInterval = 6 * time.Hour
	runRetention    = 30 * 24 * time.Hour
)

// DigestRunner runs a digest and prunes its history
type DigestRunner interface {
	Run(ctx context.Context) *domain.DigestResult
	CleanupRuns(ctx context.Context, before time.Time) (int64, error)
}

// DailyScheduler runs the digest once a day at a fixed local time
type DailyScheduler struct {
	runner   DigestRunner
	hour     int
	minute   int
	location *time.Location

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDailyScheduler creates a scheduler firing at hour:minute in loc
func NewDailyScheduler(runner DigestRunner, hour, minute int, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{
		runner:   runner,
		hour:     hour,
		minute:   minute,
		location: loc,
	}
}

// NextRun returns the first occurrence of the configured local time strictly after now
func (s *DailyScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.location)
	for !next.After(now) {
		local = local.AddDate(0, 0, 1)
		next = time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.location)
	}
	return next
}

// Start starts the scheduler
func (s *DailyScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.digestLoop()
	go s.cleanupLoop()

	fmt.Printf("[Scheduler] Started, daily at %02d:%02d %s (next run %s)\n",
		s.hour, s.minute, s.location, s.NextRun(time.Now()).Format(time.RFC3339))
}

// Stop stops the scheduler and waits for a running digest to finish
func (s *DailyScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

// digestLoop sleeps until the next run, runs the digest and re-arms
func (s *DailyScheduler) digestLoop() {
	defer s.wg.Done()

	for {
		next := s.NextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// The run itself is not cancelled by Stop
		result := s.runner.Run(context.WithoutCancel(s.ctx))
		if !result.Succeeded() && result.Status != domain.DigestStatusSkipped {
			fmt.Printf("[Scheduler] Digest %s failed (%s), messages kept for the next run\n", result.RunID, result.Kind)
		}
	}
}

// cleanupLoop is the cleanup loop (runs every 6 hours)
func (s *DailyScheduler) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup prunes old run history
func (s *DailyScheduler) cleanup() {
	count, err := s.runner.CleanupRuns(context.Background(), time.Now().Add(-runRetention))
	if err != nil {
		fmt.Printf("[Scheduler] Cleanup error: %v\n", err)
		return
	}

	if count > 0 {
		fmt.Printf("[Scheduler] Cleaned up %d old digest runs\n", count)
	}
}
