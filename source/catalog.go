package source

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/errors"
)

// Factory builds a runtime connector for a validated source configuration.
type Factory func(cfg Config) (Connector, error)

// catalogFile is the on-disk shape of the source catalog: a TOML document
// with one [[source]] table per entry.
type catalogFile struct {
	Sources []Config `toml:"source"`
}

// LoadReport summarizes a catalog load.
type LoadReport struct {
	Registered int      `json:"registered"`
	Failed     int      `json:"failed"`
	Failures   []string `json:"failures,omitempty"` // source ids (or positions) that were skipped
}

// LoadCatalog reads a TOML source catalog, validates each entry, builds a
// connector for it via the factory, and registers it into the registry.
//
// The load is resilient: a malformed entry is logged and skipped, never
// fatal to the whole load. Only an unreadable or unparseable catalog file
// returns an error.
func LoadCatalog(path string, factory Factory, registry *Registry, log *zap.SugaredLogger) (LoadReport, error) {
	var report LoadReport

	data, err := os.ReadFile(path)
	if err != nil {
		return report, errors.Wrapf(err, "read catalog %s", path)
	}

	var catalog catalogFile
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return report, errors.Wrapf(err, "parse catalog %s", path)
	}

	for i, cfg := range catalog.Sources {
		label := cfg.SourceID
		if label == "" {
			label = positionLabel(i)
		}

		if err := cfg.Validate(); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, label)
			log.Warnw("Skipping malformed catalog entry",
				"entry", label,
				"position", i,
				"error", err)
			continue
		}

		conn, err := factory(cfg)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, label)
			log.Warnw("Skipping catalog entry: connector construction failed",
				"source_id", cfg.SourceID,
				"error", err)
			continue
		}

		registry.Register(conn)
		report.Registered++
	}

	log.Infow("Catalog loaded",
		"path", path,
		"registered", report.Registered,
		"failed", report.Failed)

	return report, nil
}

func positionLabel(i int) string {
	return "entry#" + strconv.Itoa(i)
}
