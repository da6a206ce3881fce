// Package ingest implements the concurrent persistence orchestrator: a fixed
// worker pool draining a bounded channel of processed records, each persisted
// in its own transaction through the upsert service, with typed-error
// classification, exponential backoff with jitter, rate-limit cooldown, and a
// recovery path for canonical-slug collisions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ludocat/gamesync/internal/config"
	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/game"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/metrics"
	"github.com/ludocat/gamesync/internal/repository"
)

// Config holds the orchestration knobs.
type Config struct {
	Workers           int
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	BackoffJitter     time.Duration
	RateLimitCooldown time.Duration
	MetricsDir        string // empty disables the per-run metrics file
}

// ConfigFromApp derives orchestration settings from the application config.
func ConfigFromApp(c *config.Config) Config {
	return Config{
		Workers:           c.WorkerCount,
		MaxAttempts:       c.MaxAttempts,
		BackoffBase:       c.BackoffBase,
		BackoffMax:        c.BackoffMax,
		BackoffJitter:     c.BackoffJitter,
		RateLimitCooldown: c.RateLimitCooldown,
		MetricsDir:        c.MetricsDir,
	}
}

// Orchestrator drives one batch of records through the upsert service.
type Orchestrator struct {
	upserter game.Service
	games    repository.Game
	runs     repository.Run
	cfg      Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(upserter game.Service, games repository.Game, runs repository.Run, cfg Config) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Orchestrator{
		upserter: upserter,
		games:    games,
		runs:     runs,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// item is one unit of work in the queue.
type item struct {
	seq        int
	record     *domain.ProcessedRecord
	attempt    int
	mergeTried bool
}

// Run processes the batch and always returns a summary, even at total
// failure. A failed item never blocks its siblings.
func (o *Orchestrator) Run(ctx context.Context, source string, records []*domain.ProcessedRecord) (*domain.RunSummary, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	run := &domain.Run{
		ID:        runID,
		Source:    source,
		StartedAt: o.now(),
		Total:     len(records),
	}
	if err := o.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToCreateRun, err)
	}
	metrics.IngestRunsTotal.WithLabelValues(source).Inc()

	log.Info("run started", "source", source, "total", len(records), "workers", o.cfg.Workers)

	col := newCollector()

	// Capacity covers every live item, so requeues never block a worker.
	queue := make(chan *item, len(records)+1)
	var pending sync.WaitGroup
	for i, r := range records {
		pending.Add(1)
		queue <- &item{seq: i, record: r, attempt: 1}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workers sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			o.worker(workerCtx, run, queue, col, &pending)
		}()
	}

	pending.Wait()
	cancel()
	workers.Wait()

	created, updated, failed := col.counts()
	run.Created = created
	run.Updated = updated
	run.Failed = failed
	run.Metrics = col.metrics()
	finished := o.now()
	run.FinishedAt = &finished

	if err := o.runs.FinishRun(ctx, run); err != nil {
		log.Error(ErrMsgFailedToFinishRun, "run_id", runID, "error", err)
	}
	if o.cfg.MetricsDir != "" {
		if err := writeMetricsFile(o.cfg.MetricsDir, run); err != nil {
			log.Error(ErrMsgFailedToWriteReport, "run_id", runID, "error", err)
		}
	}

	log.Info("run finished",
		"run_id", runID,
		"created", created,
		"updated", updated,
		"failed", failed,
		"success_rate", run.Metrics.SuccessRate)

	return &domain.RunSummary{
		RunID:    runID,
		Created:  created,
		Updated:  updated,
		Failed:   failed,
		Failures: col.failureList(),
		Metrics:  run.Metrics,
	}, nil
}

func (o *Orchestrator) worker(ctx context.Context, run *domain.Run, queue chan *item, col *collector, pending *sync.WaitGroup) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-queue:
			o.waitCooldown(ctx)
			o.process(ctx, run, it, queue, col, pending)
		}
	}
}

// process runs one attempt of one item. Exactly one of recordSuccess,
// recordFailure, or a requeue happens; pending.Done fires only on terminal
// outcomes.
func (o *Orchestrator) process(ctx context.Context, run *domain.Run, it *item, queue chan *item, col *collector, pending *sync.WaitGroup) {
	log := logger.FromContext(ctx)
	start := o.now()

	result, err := o.upserter.Upsert(ctx, it.record, game.Options{AllowCreate: true})

	if err != nil {
		if dup, ok := recoverableCollision(err); ok && !it.mergeTried {
			it.mergeTried = true
			result, err = o.recoverCollision(ctx, it, dup)
			if err == nil {
				col.recordMergeRecovery()
				metrics.IngestMergeRecoveries.WithLabelValues(run.Source).Inc()
			}
		}
	}

	latency := o.now().Sub(start).Milliseconds()

	if err == nil {
		col.recordSuccess(result.Operation, it.attempt, latency)
		metrics.IngestItemsTotal.WithLabelValues(run.Source, string(result.Operation)).Inc()
		metrics.IngestItemDuration.WithLabelValues(run.Source).Observe(float64(latency) / 1000)
		o.addRunItem(ctx, run.ID, it, string(result.Operation), "", latency)
		pending.Done()
		return
	}

	if errors.Is(err, domain.ErrRateLimited) {
		col.recordRateLimitHit()
		metrics.IngestRateLimitHits.WithLabelValues(run.Source).Inc()
		o.triggerCooldown()
	}

	if classify(err) == classTransient && it.attempt < o.cfg.MaxAttempts {
		delay := o.backoff(it.attempt)
		it.attempt++
		metrics.IngestRetriesTotal.WithLabelValues(run.Source).Inc()
		log.Warn("item retry scheduled",
			"ref", it.record.Ref(), "attempt", it.attempt, "delay", delay, "error", err)

		go func() {
			if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
				// Run cancelled mid-backoff; the item fails terminally.
				reason := failureReason(err, it.record.Source)
				col.recordFailure(it.record, reason, err.Error(), it.attempt, latency)
				metrics.IngestItemsTotal.WithLabelValues(run.Source, string(domain.OutcomeFailed)).Inc()
				o.addRunItem(ctx, run.ID, it, string(domain.OutcomeFailed), reason, latency)
				pending.Done()
				return
			}
			queue <- it
		}()
		return
	}

	reason := failureReason(err, it.record.Source)
	col.recordFailure(it.record, reason, err.Error(), it.attempt, latency)
	metrics.IngestItemsTotal.WithLabelValues(run.Source, string(domain.OutcomeFailed)).Inc()
	o.addRunItem(ctx, run.ID, it, string(domain.OutcomeFailed), reason, latency)
	log.Error("item failed", "ref", it.record.Ref(), "reason", reason, "attempts", it.attempt, "error", err)
	pending.Done()
}

// recoverCollision handles the canonical-slug unique collision: another writer
// created the entity first. The colliding value from the constraint detail
// locates the existing row, and the item retries once as an update against it.
func (o *Orchestrator) recoverCollision(ctx context.Context, it *item, dup *domain.DuplicateKeyError) (*game.Result, error) {
	log := logger.FromContext(ctx)

	existing, err := o.games.GetBySlug(ctx, dup.Value)
	if err != nil {
		return nil, fmt.Errorf("collision recovery lookup for %q: %w", dup.Value, err)
	}

	log.Info("recovering slug collision as update",
		"ref", it.record.Ref(), "slug", dup.Value, "game_id", existing.ID)

	return o.upserter.Upsert(ctx, it.record, game.Options{ExistingID: &existing.ID})
}

func (o *Orchestrator) addRunItem(ctx context.Context, runID string, it *item, outcome, reason string, latency int64) {
	runItem := &domain.RunItem{
		RunID:     runID,
		Seq:       it.seq,
		Ref:       it.record.Ref(),
		Outcome:   domain.RunItemOutcome(outcome),
		Reason:    reason,
		Attempts:  it.attempt,
		LatencyMS: latency,
	}
	if err := o.runs.AddItem(ctx, runItem); err != nil {
		logger.FromContext(ctx).Error(ErrMsgFailedToRecordItem, "seq", it.seq, "error", err)
	}
}

// backoff computes base * 2^(attempt-1), capped, plus bounded random jitter.
func (o *Orchestrator) backoff(attempt int) time.Duration {
	d := o.cfg.BackoffBase
	for i := 1; i < attempt && d < o.cfg.BackoffMax; i++ {
		d *= 2
	}
	if d > o.cfg.BackoffMax {
		d = o.cfg.BackoffMax
	}
	if o.cfg.BackoffJitter > 0 {
		d += time.Duration(rand.Int63n(int64(o.cfg.BackoffJitter) + 1))
	}
	return d
}

func (o *Orchestrator) triggerCooldown() {
	if o.cfg.RateLimitCooldown <= 0 {
		return
	}
	until := o.now().Add(o.cfg.RateLimitCooldown)
	o.mu.Lock()
	if until.After(o.cooldownUntil) {
		o.cooldownUntil = until
	}
	o.mu.Unlock()
}

// waitCooldown blocks while a rate-limit cooldown is active.
func (o *Orchestrator) waitCooldown(ctx context.Context) {
	o.mu.Lock()
	remaining := o.cooldownUntil.Sub(o.now())
	o.mu.Unlock()
	if remaining > 0 {
		_ = o.sleep(ctx, remaining)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
