package commands

import (
	"database/sql"
	"os"
	"time"

	"github.com/sanadlabs/sanad/config"
	"github.com/sanadlabs/sanad/connector"
	"github.com/sanadlabs/sanad/db"
	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/ingest"
	"github.com/sanadlabs/sanad/logger"
	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
	"github.com/sanadlabs/sanad/types"
	"github.com/sanadlabs/sanad/validate"
)

// app is the wired object graph every command works against. Commands
// build it in RunE and close it on the way out; nothing here is global.
type app struct {
	cfg      *config.Config
	database *sql.DB

	registry  *source.Registry
	snapshots *storage.SnapshotStore
	points    *storage.DataPointStore
	runs      *storage.RunStore
	schedules *ingest.ScheduleStore

	orchestrator *ingest.Orchestrator
}

// buildApp loads configuration, opens and migrates the database, and
// loads the source catalog into a registry of live connectors.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	a := &app{
		cfg:       cfg,
		database:  database,
		registry:  source.NewRegistry(),
		snapshots: storage.NewSnapshotStore(database),
		points:    storage.NewDataPointStore(database),
		runs:      storage.NewRunStore(database),
		schedules: ingest.NewScheduleStore(database),
	}

	factory := connector.NewFactory(connector.FactoryDeps{
		Snapshots:         a.snapshots,
		Points:            a.points,
		FetchTimeout:      cfg.Ingest.FetchTimeout(),
		RequestsPerMinute: cfg.Ingest.RequestsPerMinute,
		AuthToken:         os.Getenv("SANAD_AUTH_TOKEN"),
		Log:               logger.Logger,
	})
	report, err := source.LoadCatalog(cfg.Catalog.Path, factory, a.registry, logger.Logger)
	if err != nil {
		database.Close()
		return nil, errors.Wrap(err, "load source catalog")
	}
	if report.Failed > 0 {
		logger.Warnw("catalog loaded with failures",
			"registered", report.Registered, "failed", report.Failed)
	}

	a.orchestrator = ingest.NewOrchestrator(a.registry, a.schedules, a.runs, cfg.Ingest, logger.Logger)
	return a, nil
}

// Close releases the database handle.
func (a *app) Close() {
	if a.database != nil {
		a.database.Close()
	}
}

// parseDate parses a YYYY-MM-DD argument.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// validationOrchestrator wires the five agents over the app's stores.
func (a *app) validationOrchestrator() (*validate.Orchestrator, error) {
	coach, err := validate.NewAccuracyCoachAgent(storage.NewCorrectionStore(a.database), logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "load correction history")
	}
	return validate.NewOrchestrator(
		validate.NewDataValidationAgent(a.points, validate.NewRanges(nil), a.cfg.Validate.VarianceThresholdPct, logger.Logger),
		validate.NewSourceVerificationAgent(a.registry, a.cfg.Validate.StaleVerificationDays, logger.Logger),
		validate.NewConsistencyAgent(a.cfg.Validate.SpreadThresholdPct, logger.Logger),
		validate.NewAnomalyDetectionAgent(logger.Logger),
		coach,
		a.points,
		storage.NewValidationStore(a.database),
		logger.Logger,
	), nil
}
