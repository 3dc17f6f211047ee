package validate

// Range is the plausible [min, max] band for an indicator's values.
type Range struct {
	Min float64
	Max float64
}

// defaultRanges are the plausibility bands for the indicators the catalog
// ships with. Values are in the indicator's natural unit: YER per USD for
// exchange rates, index points for CPI, YER per liter for fuel.
var defaultRanges = map[string]Range{
	"fx_rate_usd":       {Min: 100, Max: 2500},
	"fx_rate_sar":       {Min: 20, Max: 1500},
	"cpi":               {Min: 50, Max: 1000},
	"inflation_rate":    {Min: -20, Max: 200},
	"fuel_price_petrol": {Min: 100, Max: 10000},
	"fuel_price_diesel": {Min: 100, Max: 10000},
	"wheat_price_kg":    {Min: 50, Max: 5000},
	"gdp_usd_bn":        {Min: 1, Max: 100},
}

// Ranges holds the active plausibility bands, seeded from defaults and
// overridable per deployment.
type Ranges struct {
	bands map[string]Range
}

// NewRanges returns the default band set with overrides applied on top.
func NewRanges(overrides map[string]Range) *Ranges {
	bands := make(map[string]Range, len(defaultRanges)+len(overrides))
	for k, v := range defaultRanges {
		bands[k] = v
	}
	for k, v := range overrides {
		bands[k] = v
	}
	return &Ranges{bands: bands}
}

// Lookup returns the band for an indicator. Indicators without a
// configured band are not range-checked.
func (r *Ranges) Lookup(indicator string) (Range, bool) {
	band, ok := r.bands[indicator]
	return band, ok
}
