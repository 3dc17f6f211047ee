package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
)

// Connector pulls data for one configured source. It satisfies
// source.Connector and is safe for use by one ingestion worker at a time.
type Connector struct {
	cfg       source.Config
	fetcher   Fetcher
	snapshots *storage.SnapshotStore
	points    *storage.DataPointStore
	log       *zap.SugaredLogger
}

// New builds a connector around a fetcher and the two stores it writes to.
func New(cfg source.Config, fetcher Fetcher, snapshots *storage.SnapshotStore, points *storage.DataPointStore, log *zap.SugaredLogger) *Connector {
	return &Connector{
		cfg:       cfg,
		fetcher:   fetcher,
		snapshots: snapshots,
		points:    points,
		log:       log.Named(cfg.SourceID),
	}
}

// Config returns the source definition this connector serves.
func (c *Connector) Config() source.Config {
	return c.cfg
}

// Ingest runs one fetch-store-normalize-store cycle. It never returns an
// error and never panics out: every failure mode, from a refused
// connection to a single malformed row, lands in the result's Errors
// slice, and the status classifies the run as a whole.
//
//	SUCCESS  every processed record loaded, no errors
//	PARTIAL  records loaded, but something went wrong along the way
//	FAILED   nothing loaded
func (c *Connector) Ingest(ctx context.Context) (result types.IngestionResult) {
	started := time.Now().UTC()
	result = types.IngestionResult{
		RunID:     "RUN_" + uuid.NewString(),
		SourceID:  c.cfg.SourceID,
		StartedAt: started,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("panic during ingestion: %v", r))
			result.RecordsLoaded = 0
		}
		result.CompletedAt = time.Now().UTC()
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
		result.Status = classify(result)
	}()

	payload, err := c.fetcher.Fetch(ctx, c.cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	// Persist the raw payload before any parsing so a normalization bug
	// never costs us the evidence.
	hash, created, err := c.snapshots.Put(c.cfg.SourceID, payload, started)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else if created {
		c.log.Debugw("stored raw snapshot", "hash", hash, "bytes", len(payload))
	}

	points, rowErrs := normalize(c.cfg, payload)
	result.RecordsProcessed = len(points) + len(rowErrs)
	result.Errors = append(result.Errors, rowErrs...)
	if len(points) == 0 {
		return result
	}

	loaded, err := c.points.Upsert(points)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.RecordsLoaded = loaded

	c.log.Infow("ingestion cycle complete",
		"run_id", result.RunID,
		"processed", result.RecordsProcessed,
		"loaded", result.RecordsLoaded,
		"row_errors", len(rowErrs))
	return result
}

// classify derives the run status from what was actually loaded. A run
// that wrote rows despite errors is PARTIAL, not FAILED. The errors need
// not be row-level: a run whose raw-snapshot write failed is PARTIAL even
// when every row loaded, because the payload evidence is missing.
func classify(result types.IngestionResult) types.RunStatus {
	switch {
	case result.RecordsLoaded == 0:
		return types.RunFailed
	case len(result.Errors) > 0 || result.RecordsLoaded < result.RecordsProcessed:
		return types.RunPartial
	default:
		return types.RunSuccess
	}
}
