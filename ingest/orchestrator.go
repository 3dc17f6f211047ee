package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/config"
	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

// Orchestrator owns the ingestion loop. It scans the schedule table on a
// fixed poll interval, dispatches due sources onto a bounded worker pool,
// records every run, and re-arms each source's next slot from its cadence.
//
// The single-flight invariant: a source never has two runs in flight. The
// database claim in ScheduleStore.Claim is the arbiter; the in-memory
// cancel map only exists so a running source can be aborted.
type Orchestrator struct {
	registry  *source.Registry
	schedules *ScheduleStore
	runs      *storage.RunStore
	cfg       config.IngestConfig
	log       *zap.SugaredLogger

	sem chan struct{}
	wg  sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewOrchestrator wires an orchestrator. Workers below 1 are clamped to 1.
func NewOrchestrator(registry *source.Registry, schedules *ScheduleStore, runs *storage.RunStore, cfg config.IngestConfig, log *zap.SugaredLogger) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		registry:  registry,
		schedules: schedules,
		runs:      runs,
		cfg:       cfg,
		log:       log.Named("ingest"),
		sem:       make(chan struct{}, workers),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// SyncSchedules ensures every registered source has a schedule row. New
// sources get a first slot computed from now; existing sources keep
// theirs unless their cadence changed in the catalog.
func (o *Orchestrator) SyncSchedules(now time.Time) error {
	for _, conn := range o.registry.All() {
		cfg := conn.Config()
		next := NextRun(cfg.UpdateFrequency, now, o.log)
		if err := o.schedules.Sync(cfg.SourceID, cfg.UpdateFrequency, next); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the poll loop until ctx is cancelled, then waits for
// in-flight runs to drain. Schedules stuck in RUNNING from an unclean
// shutdown are recovered first.
func (o *Orchestrator) Start(ctx context.Context) error {
	recovered, err := o.schedules.Recover()
	if err != nil {
		return err
	}
	if recovered > 0 {
		o.log.Warnw("recovered schedules stuck in RUNNING", "count", recovered)
	}
	if err := o.SyncSchedules(time.Now().UTC()); err != nil {
		return err
	}

	interval := o.cfg.PollInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	o.log.Infow("ingestion loop started",
		"poll_interval", interval,
		"workers", cap(o.sem))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.dispatchDue(ctx)
	for {
		select {
		case <-ctx.Done():
			o.wg.Wait()
			o.log.Infow("ingestion loop stopped")
			return nil
		case <-ticker.C:
			o.dispatchDue(ctx)
		}
	}
}

// dispatchDue claims every due schedule and hands it to the worker pool.
func (o *Orchestrator) dispatchDue(ctx context.Context) {
	due, err := o.schedules.Due(time.Now().UTC())
	if err != nil {
		o.log.Errorw("due scan failed", "error", err)
		return
	}
	for _, sched := range due {
		conn, ok := o.registry.Connector(sched.SourceID)
		if !ok {
			o.log.Warnw("scheduled source has no connector, skipping", "source_id", sched.SourceID)
			continue
		}
		o.launch(ctx, conn)
	}
}

// launch claims the source and runs it on the pool.
func (o *Orchestrator) launch(ctx context.Context, conn source.Connector) {
	sourceID := conn.Config().SourceID
	claimed, err := o.schedules.Claim(sourceID)
	if err != nil {
		o.log.Errorw("schedule claim failed", "source_id", sourceID, "error", err)
		return
	}
	if !claimed {
		o.log.Debugw("source already running, skipping", "source_id", sourceID)
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[sourceID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			cancel()
			o.mu.Lock()
			delete(o.cancels, sourceID)
			o.mu.Unlock()
		}()

		select {
		case o.sem <- struct{}{}:
			defer func() { <-o.sem }()
		case <-runCtx.Done():
			// Cancelled while queued: the slot was never consumed.
			if err := o.schedules.Release(sourceID); err != nil {
				o.log.Errorw("schedule release failed", "source_id", sourceID, "error", err)
			}
			return
		}

		o.execute(runCtx, conn)
	}()
}

// execute runs one connector with the in-slot retry policy and records
// the outcome.
func (o *Orchestrator) execute(ctx context.Context, conn source.Connector) {
	cfg := conn.Config()
	var result types.IngestionResult
	for attempt := 0; ; attempt++ {
		result = conn.Ingest(ctx)
		if err := o.runs.Record(result); err != nil {
			o.log.Errorw("run record failed", "source_id", cfg.SourceID, "error", err)
		}
		if result.Status != types.RunFailed || attempt >= o.cfg.RetryAttempts {
			break
		}
		o.log.Warnw("run failed, retrying",
			"source_id", cfg.SourceID,
			"attempt", attempt+1,
			"backoff", o.cfg.RetryBackoff())
		select {
		case <-time.After(o.cfg.RetryBackoff()):
		case <-ctx.Done():
			o.finish(ctx, cfg, result, false)
			return
		}
	}
	o.finish(ctx, cfg, result, false)
}

// finish re-arms the schedule after a run. A FAILED run still advances to
// the next cadence slot; retry exhaustion is not a reason to hammer the
// source off-cadence. A cancelled run is different: the schedule reverts
// to SCHEDULED with its slot untouched, so an operator abort or a
// shutdown never reads as a source outage.
func (o *Orchestrator) finish(ctx context.Context, cfg source.Config, result types.IngestionResult, preserveSlot bool) {
	if ctx.Err() != nil {
		if err := o.schedules.Release(cfg.SourceID); err != nil {
			o.log.Errorw("schedule release failed", "source_id", cfg.SourceID, "error", err)
		}
		return
	}

	status := StatusCompleted
	if result.Status == types.RunFailed {
		status = StatusFailed
	}

	now := time.Now().UTC()
	next := NextRun(cfg.UpdateFrequency, now, o.log)
	if preserveSlot {
		if sched, err := o.schedules.Get(cfg.SourceID); err == nil {
			next = sched.NextRunAt
		}
	}
	if err := o.schedules.Complete(cfg.SourceID, status, now, next); err != nil {
		o.log.Errorw("schedule completion failed", "source_id", cfg.SourceID, "error", err)
	}
}

// TriggerOne runs a single source immediately, outside its cadence. The
// scheduled next slot is preserved. The run is registered under the
// source id, so Cancel can abort it like any scheduled run; a cancelled
// trigger reverts the schedule to SCHEDULED. Returns ErrRunInProgress
// when the source already has a run in flight.
func (o *Orchestrator) TriggerOne(ctx context.Context, sourceID string) (types.IngestionResult, error) {
	conn, ok := o.registry.Connector(sourceID)
	if !ok {
		return types.IngestionResult{}, errors.Wrapf(errors.ErrSourceNotRegistered, "source %s", sourceID)
	}
	claimed, err := o.schedules.Claim(sourceID)
	if err != nil {
		return types.IngestionResult{}, err
	}
	if !claimed {
		return types.IngestionResult{}, errors.Wrapf(errors.ErrRunInProgress, "source %s", sourceID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[sourceID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.cancels, sourceID)
		o.mu.Unlock()
	}()

	result := conn.Ingest(runCtx)
	if err := o.runs.Record(result); err != nil {
		o.log.Errorw("run record failed", "source_id", sourceID, "error", err)
	}
	o.finish(runCtx, conn.Config(), result, true)
	return result, nil
}

// RunAll runs every registered source once, bounded by the worker pool.
// Used for backfills and first-time catalog loads. Sources already in
// flight are skipped. Results come back keyed by source id.
func (o *Orchestrator) RunAll(ctx context.Context) map[string]types.IngestionResult {
	conns := o.registry.All()
	results := make(map[string]types.IngestionResult, len(conns))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, conn := range conns {
		sourceID := conn.Config().SourceID
		claimed, err := o.schedules.Claim(sourceID)
		if err != nil {
			o.log.Errorw("schedule claim failed", "source_id", sourceID, "error", err)
			continue
		}
		if !claimed {
			o.log.Debugw("source already running, skipping backfill", "source_id", sourceID)
			continue
		}

		wg.Add(1)
		go func(conn source.Connector, sourceID string) {
			defer wg.Done()
			o.sem <- struct{}{}
			defer func() { <-o.sem }()

			result := conn.Ingest(ctx)
			if err := o.runs.Record(result); err != nil {
				o.log.Errorw("run record failed", "source_id", sourceID, "error", err)
			}
			o.finish(ctx, conn.Config(), result, true)

			mu.Lock()
			results[sourceID] = result
			mu.Unlock()
		}(conn, sourceID)
	}
	wg.Wait()
	return results
}

// Cancel aborts an in-flight run for a source. Reports whether a run was
// actually cancelled.
func (o *Orchestrator) Cancel(sourceID string) bool {
	o.mu.Lock()
	cancel, ok := o.cancels[sourceID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
