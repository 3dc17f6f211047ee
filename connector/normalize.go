package connector

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/types"
)

// feedRow is one observation in a source feed payload.
type feedRow struct {
	Indicator string            `json:"indicator"`
	Date      string            `json:"date"`
	Value     *float64          `json:"value"`
	Regime    string            `json:"regime,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// feed is the normalized payload shape every connector consumes. Sources
// that publish other formats are adapted upstream before ingestion.
type feed struct {
	Series []feedRow `json:"series"`
}

// normalize parses a raw payload into data points. Row-level problems do
// not abort the batch: each bad row contributes one error string and the
// remaining rows still flow through. A payload-level parse failure
// returns a single error and no points.
func normalize(cfg source.Config, payload []byte) ([]types.DataPoint, []string) {
	var f feed
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, []string{errors.Wrapf(err, "parse payload for %s", cfg.SourceID).Error()}
	}
	if len(f.Series) == 0 {
		return nil, []string{"payload contains no series rows"}
	}

	allowed := make(map[string]bool, len(cfg.Indicators))
	for _, ind := range cfg.Indicators {
		allowed[ind] = true
	}

	points := make([]types.DataPoint, 0, len(f.Series))
	var rowErrs []string
	for i, row := range f.Series {
		point, err := normalizeRow(cfg, allowed, row)
		if err != nil {
			rowErrs = append(rowErrs, errors.Wrapf(err, "row %d", i).Error())
			continue
		}
		points = append(points, point)
	}
	return points, rowErrs
}

func normalizeRow(cfg source.Config, allowed map[string]bool, row feedRow) (types.DataPoint, error) {
	indicator := strings.TrimSpace(row.Indicator)
	if indicator == "" {
		return types.DataPoint{}, errors.New("missing indicator")
	}
	if !allowed[indicator] {
		return types.DataPoint{}, errors.Newf("indicator %q not published by %s", indicator, cfg.SourceID)
	}
	if row.Value == nil {
		return types.DataPoint{}, errors.Newf("missing value for %s", indicator)
	}
	if math.IsNaN(*row.Value) || math.IsInf(*row.Value, 0) {
		return types.DataPoint{}, errors.Newf("non-finite value for %s", indicator)
	}

	date, err := time.Parse(types.DateLayout, row.Date)
	if err != nil {
		return types.DataPoint{}, errors.Wrapf(err, "bad date %q", row.Date)
	}

	regime := row.Regime
	if regime == "" {
		regime = cfg.Regime
	}

	return types.DataPoint{
		Indicator: indicator,
		Value:     *row.Value,
		Date:      date,
		SourceID:  cfg.SourceID,
		Regime:    regime,
		Metadata:  row.Metadata,
	}, nil
}
