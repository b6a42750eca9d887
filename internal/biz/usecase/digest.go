package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

// DefaultDeliveryTimeout bounds a single delivery attempt
const DefaultDeliveryTimeout = 30 * time.Second

// DigestConfig contains digest job configuration
type DigestConfig struct {
	Report          ReportOptions
	Subject         string
	DeliveryTimeout time.Duration
	SkipEmpty       bool
}

// DigestUsecase builds the report from the store, delivers it, persists it and clears
// what was delivered
type DigestUsecase struct {
	store     *domain.MessageStore
	sink      repo.DeliverySink
	snapshots repo.SnapshotRepo
	runs      repo.RunRepo
	config    DigestConfig

	mu sync.Mutex
}

// NewDigestUsecase creates a new digest usecase. snapshots and runs may be nil.
func NewDigestUsecase(
	store *domain.MessageStore,
	sink repo.DeliverySink,
	snapshots repo.SnapshotRepo,
	runs repo.RunRepo,
	config DigestConfig,
) *DigestUsecase {
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = DefaultDeliveryTimeout
	}
	config.Report = config.Report.withDefaults()
	if config.Subject == "" {
		config.Subject = config.Report.Labels.Title
	}
	return &DigestUsecase{
		store:     store,
		sink:      sink,
		snapshots: snapshots,
		runs:      runs,
		config:    config,
	}
}

// ReportOptions returns the options used to render reports
func (uc *DigestUsecase) ReportOptions() ReportOptions {
	return uc.config.Report
}

// Preview renders the current store content without delivering or clearing anything
func (uc *DigestUsecase) Preview(window func(*domain.Snapshot) *domain.Snapshot) string {
	snap := uc.store.Snapshot()
	if window != nil {
		snap = window(snap)
	}
	return BuildReport(snap, uc.config.Report)
}

// BufferSummary returns per-channel counts of the messages waiting for the next digest
func (uc *DigestUsecase) BufferSummary() []domain.ChannelSummary {
	return uc.store.Snapshot().Summary()
}

// Run executes one digest. It never returns a bare error: failures are categorized in
// the result. Concurrent calls are serialized.
func (uc *DigestUsecase) Run(ctx context.Context) *domain.DigestResult {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	result := &domain.DigestResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	if uc.sink != nil {
		result.Sink = uc.sink.Name()
	}

	uc.run(ctx, result)

	result.FinishedAt = time.Now()
	uc.logResult(result)
	uc.record(ctx, result)
	return result
}

func (uc *DigestUsecase) run(ctx context.Context, result *domain.DigestResult) {
	snap := uc.store.Snapshot()
	result.MessageCount = snap.Total()
	result.Report = BuildReport(snap, uc.config.Report)

	if uc.config.SkipEmpty && snap.Empty() {
		result.Status = domain.DigestStatusSkipped
		return
	}

	if uc.sink == nil {
		result.Fail(domain.KindConfigurationIncomplete, &domain.IncompleteConfigError{Sink: "none", Missing: []string{"DELIVERY_SINK"}})
		return
	}
	if err := uc.sink.Validate(); err != nil {
		kind := domain.KindConfigurationIncomplete
		var cfgErr *domain.IncompleteConfigError
		if !errors.As(err, &cfgErr) {
			err = &domain.IncompleteConfigError{Sink: uc.sink.Name(), Missing: []string{err.Error()}}
		}
		result.Fail(kind, err)
		return
	}

	if err := uc.deliver(ctx, result.Report); err != nil {
		result.Fail(domain.ClassifyDeliveryError(err), err)
		return
	}

	result.Status = domain.DigestStatusSuccess

	if uc.snapshots != nil {
		path, err := uc.snapshots.Persist(ctx, snap)
		if err != nil {
			result.Warn(domain.KindPersistence, err)
		} else {
			result.SnapshotPath = path
		}
	}

	uc.store.Release(snap)
}

// deliver sends the report within the delivery timeout. A panicking sink is logged with its
// stack and reported as an error.
func (uc *DigestUsecase) deliver(ctx context.Context, report string) (err error) {
	deliverCtx, cancel := context.WithTimeout(ctx, uc.config.DeliveryTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Digest] Sink %s panicked: %v\n%s", uc.sink.Name(), r, debug.Stack())
			err = fmt.Errorf("sink %s panicked: %v", uc.sink.Name(), r)
		}
	}()

	err = uc.sink.Deliver(deliverCtx, uc.config.Subject, report)
	if err == nil && deliverCtx.Err() == context.DeadlineExceeded {
		err = deliverCtx.Err()
	}
	return err
}

func (uc *DigestUsecase) logResult(result *domain.DigestResult) {
	switch result.Status {
	case domain.DigestStatusSuccess:
		fmt.Printf("[Digest] Run %s delivered via %s (%d messages)\n", result.RunID, result.Sink, result.MessageCount)
	case domain.DigestStatusSkipped:
		fmt.Printf("[Digest] Run %s skipped: nothing collected\n", result.RunID)
	default:
		if result.Kind == domain.KindDeliveryUnexpected {
			fmt.Printf("[Digest] Run %s failed (%s): %+v\n", result.RunID, result.Kind, result.Err)
		} else {
			fmt.Printf("[Digest] Run %s failed (%s): %v\n", result.RunID, result.Kind, result.Err)
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("[Digest] Run %s warning: %s\n", result.RunID, w)
	}
}

func (uc *DigestUsecase) record(ctx context.Context, result *domain.DigestResult) {
	if uc.runs == nil {
		return
	}
	if err := uc.runs.Record(ctx, result); err != nil {
		fmt.Printf("[Digest] Failed to record run %s: %v\n", result.RunID, err)
	}
}

// RecentRuns returns the latest recorded runs
func (uc *DigestUsecase) RecentRuns(ctx context.Context, limit int) ([]*domain.DigestResult, error) {
	if uc.runs == nil {
		return nil, nil
	}
	return uc.runs.Recent(ctx, limit)
}

// CleanupRuns removes run history older than before
func (uc *DigestUsecase) CleanupRuns(ctx context.Context, before time.Time) (int64, error) {
	if uc.runs == nil {
		return 0, nil
	}
	return uc.runs.CleanupOld(ctx, before)
}
