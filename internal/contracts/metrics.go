package contracts

import "time"

// SeriesStatus tells whether series metrics could be computed
type SeriesStatus string

const (
	SeriesOK               SeriesStatus = "ok"
	SeriesInsufficientData SeriesStatus = "insufficient_data"
)

// Frequency is the sampling frequency of a series
type Frequency string

const (
	FrequencyMinute    Frequency = "minute"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom" // periods per year supplied by caller
)

// TradingDaysPerYear anchors every annualization factor
const TradingDaysPerYear = 252

// PeriodsPerYear returns the annualization factor for f (0 for custom)
func (f Frequency) PeriodsPerYear() float64 {
	switch f {
	case FrequencyMinute:
		return TradingDaysPerYear * 24 * 60
	case FrequencyHourly:
		return TradingDaysPerYear * 24
	case FrequencyDaily:
		return TradingDaysPerYear
	case FrequencyWeekly:
		return 52
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencyYearly:
		return 1
	default:
		return 0
	}
}

// DrawdownEpisode is one peak-to-recovery decline
type DrawdownEpisode struct {
	Peak      time.Time  `json:"peak"`
	Trough    time.Time  `json:"trough"`
	Recovery  *time.Time `json:"recovery,omitempty"` // nil while still under water
	Depth     float64    `json:"depth"`              // <= 0
	Periods   int        `json:"periods"`            // peak to recovery (or series end)
	Recovered bool       `json:"recovered"`
}

// TimeSeriesMetrics is the output of the time series analyzer
type TimeSeriesMetrics struct {
	Status         SeriesStatus `json:"status"`
	Points         int          `json:"points"`
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	Frequency      Frequency    `json:"frequency"`
	PeriodsPerYear float64      `json:"periods_per_year"`
	RiskFreeRate   float64      `json:"risk_free_rate"` // annual

	Returns   []float64 `json:"returns"`   // len = Points-1
	Drawdowns []float64 `json:"drawdowns"` // len = Points, all <= 0

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	// AnnualizedStatus is unbounded when compounding to a year overflows float64; the value is then 0
	AnnualizedStatus RatioStatus `json:"annualized_status"`
	MeanReturn       float64 `json:"mean_return"` // per period
	StdDev           float64 `json:"std_dev"`     // per period, sample
	Volatility       float64 `json:"volatility"`  // annualized
	DownsideDev      float64 `json:"downside_deviation"`
	MaxDrawdown      float64 `json:"max_drawdown"` // <= 0

	Sharpe  Ratio `json:"sharpe"`
	Sortino Ratio `json:"sortino"`
	Calmar  Ratio `json:"calmar"`

	// Degenerate is set when the return stdev is 0: "zero risk", not "no data"
	Degenerate bool `json:"degenerate"`

	Episodes               []DrawdownEpisode `json:"drawdown_episodes,omitempty"`
	LongestDrawdownPeriods int               `json:"longest_drawdown_periods"`
}

// Sufficient reports whether the metrics were computed from enough history
func (m *TimeSeriesMetrics) Sufficient() bool {
	return m != nil && m.Status == SeriesOK
}

// Annualized returns the annualized return as a Ratio so unbounded compounding keeps its status.
// Metrics stored before the status existed read as ok.
func (m *TimeSeriesMetrics) Annualized() Ratio {
	switch m.AnnualizedStatus {
	case "", RatioOK:
		return NewRatio(m.AnnualizedReturn)
	case RatioUnbounded:
		return UnboundedRatio()
	default:
		return Ratio{Value: 0, Status: m.AnnualizedStatus}
	}
}

// PerformanceMetrics bundles trade statistics and equity-curve metrics.
// Always derived, never mutated in place.
type PerformanceMetrics struct {
	Trades   TradeStats        `json:"trades"`
	BySymbol []SymbolStats     `json:"by_symbol"`
	Series   TimeSeriesMetrics `json:"series"`
}

// WinRate is a shortcut used by renderers
func (p *PerformanceMetrics) WinRate() float64 {
	return p.Trades.WinRate
}

// IsHealthy checks if the strategy has healthy risk metrics
func (p *PerformanceMetrics) IsHealthy() bool {
	return p.Series.Sufficient() &&
		p.Series.Sharpe.Status == RatioOK && p.Series.Sharpe.Value > 1.0 &&
		p.Series.MaxDrawdown > -0.30 &&
		p.Trades.WinRate > 0.50
}
