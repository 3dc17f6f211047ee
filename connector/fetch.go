// Package connector implements the runtime units that pull data from
// external sources. Each connector wraps exactly one source.Config, and
// each Ingest invocation is an independent unit of work: fetch the raw
// payload, persist it verbatim, normalize it into data points, persist
// those, and classify the run. All failure modes are captured into the
// returned IngestionResult; nothing escapes Ingest.
package connector

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/source"
)

// maxPayloadBytes caps a single fetched payload. Remote catalogs are small
// bulletins; anything larger indicates a misconfigured endpoint.
const maxPayloadBytes = 32 << 20

// Fetcher obtains one raw payload for a source. Fetch latency is
// source-dependent (seconds to tens of seconds) and must honor ctx.
type Fetcher interface {
	Fetch(ctx context.Context, cfg source.Config) ([]byte, error)
}

// HTTPFetcher fetches payloads over HTTP with per-connector rate limiting.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	token   string
}

// NewHTTPFetcher creates an HTTP fetcher. requestsPerMinute bounds the
// polite request rate against the remote source; token, when non-empty,
// is sent as a bearer credential for sources that require auth.
func NewHTTPFetcher(timeout time.Duration, requestsPerMinute float64, token string) *HTTPFetcher {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
		token:   token,
	}
}

// Fetch performs a rate-limited GET against the source endpoint.
func (f *HTTPFetcher) Fetch(ctx context.Context, cfg source.Config) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", cfg.SourceID)
	}
	req.Header.Set("Accept", "application/json")
	if cfg.RequiresAuth && f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", cfg.SourceID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("fetch %s: unexpected status %d", cfg.SourceID, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read payload for %s", cfg.SourceID)
	}
	return payload, nil
}

// FileFetcher reads payloads from a local drop path. Used for manual
// sources whose bulletins are transcribed into files, and in tests.
type FileFetcher struct{}

// Fetch reads the file at the source's endpoint path.
func (FileFetcher) Fetch(ctx context.Context, cfg source.Config) ([]byte, error) {
	if cfg.Endpoint == "" {
		return nil, errors.Newf("source %s has no drop path configured", cfg.SourceID)
	}
	payload, err := os.ReadFile(cfg.Endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "read drop file for %s", cfg.SourceID)
	}
	return payload, nil
}
