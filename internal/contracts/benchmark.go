package contracts

import "time"

// Metric names tracked by the benchmark comparison
const (
	MetricTotalReturn      = "total_return"
	MetricAnnualizedReturn = "annualized_return"
	MetricVolatility       = "volatility"
	MetricSharpe           = "sharpe"
	MetricSortino          = "sortino"
	MetricCalmar           = "calmar"
	MetricMaxDrawdown      = "max_drawdown"
)

// ComparisonStatus tells whether an outperformance value is meaningful
type ComparisonStatus string

const (
	ComparisonOK            ComparisonStatus = "ok"
	ComparisonNotComparable ComparisonStatus = "not_comparable" // a side is unbounded or undefined
)

// Outperformance is portfolio minus benchmark for one metric.
// Positive always means the portfolio did better, even for lower-is-better metrics.
type Outperformance struct {
	Metric         string           `json:"metric"`
	Portfolio      float64          `json:"portfolio"`
	Benchmark      float64          `json:"benchmark"`
	Outperformance float64          `json:"outperformance"`
	Status         ComparisonStatus `json:"status"`
}

// RelativeStats are statistics of the portfolio measured against the benchmark
type RelativeStats struct {
	Beta              *float64 `json:"beta"`
	Correlation       *float64 `json:"correlation"`
	TrackingError     float64  `json:"tracking_error"` // annualized
	InformationRatio  Ratio    `json:"information_ratio"`
	ActiveReturn      float64  `json:"active_return"` // total return difference
	UpCapture         *float64 `json:"up_capture"`
	DownCapture       *float64 `json:"down_capture"`
	OutperformPeriods int      `json:"outperform_periods"`
	TotalPeriods      int      `json:"total_periods"`
}

// ComparisonResult is the comparison of the portfolio with one benchmark
type ComparisonResult struct {
	Benchmark           string             `json:"benchmark"`
	Symbol              string             `json:"symbol"`
	InsufficientOverlap bool               `json:"insufficient_overlap"`
	Reason              string             `json:"reason,omitempty"`
	OverlapPoints       int                `json:"overlap_points"`
	Start               time.Time          `json:"start"`
	End                 time.Time          `json:"end"`
	Portfolio           *TimeSeriesMetrics `json:"portfolio,omitempty"`
	BenchmarkMetrics    *TimeSeriesMetrics `json:"benchmark_metrics,omitempty"`
	Metrics             []Outperformance   `json:"metrics"`
	Relative            *RelativeStats     `json:"relative,omitempty"`
}

// Metric returns the outperformance entry for name
func (c *ComparisonResult) Metric(name string) (Outperformance, bool) {
	for _, m := range c.Metrics {
		if m.Metric == name {
			return m, true
		}
	}
	return Outperformance{}, false
}

// IsOutperforming checks if the portfolio beat the benchmark on total return
func (c *ComparisonResult) IsOutperforming() bool {
	m, ok := c.Metric(MetricTotalReturn)
	return ok && m.Status == ComparisonOK && m.Outperformance > 0
}
