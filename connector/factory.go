package connector

import (
	"time"

	"go.uber.org/zap"

	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
)

// FactoryDeps carries everything a connector needs beyond its source
// config. One FactoryDeps serves the whole catalog.
type FactoryDeps struct {
	Snapshots         *storage.SnapshotStore
	Points            *storage.DataPointStore
	FetchTimeout      time.Duration
	RequestsPerMinute float64
	AuthToken         string
	Log               *zap.SugaredLogger
}

// NewFactory returns a source.Factory that builds the right connector
// flavor for each access method. API and web sources fetch over HTTP;
// manual sources read transcribed bulletins from their drop path.
func NewFactory(deps FactoryDeps) source.Factory {
	return func(cfg source.Config) (source.Connector, error) {
		var fetcher Fetcher
		switch cfg.AccessMethod {
		case source.AccessManual:
			fetcher = FileFetcher{}
		default:
			fetcher = NewHTTPFetcher(deps.FetchTimeout, deps.RequestsPerMinute, deps.AuthToken)
		}
		return New(cfg, fetcher, deps.Snapshots, deps.Points, deps.Log), nil
	}
}
