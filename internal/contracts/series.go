package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// EquityPoint is one observation of the portfolio (or benchmark) value.
// Return is an optional precomputed period return kept for display;
// calculations always derive returns from Value.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Return    *float64  `json:"return,omitempty"`
}

// TimeSeries is a time-ascending sequence of EquityPoints without duplicate timestamps.
// ⭐ SSOT: NewTimeSeries가 정렬/중복 불변식을 보장 (drawdown, volatility, correlation 전제)
type TimeSeries struct {
	points []EquityPoint
}

// NewTimeSeries validates points and returns a series that owns a copy of them
func NewTimeSeries(points []EquityPoint) (TimeSeries, error) {
	owned := make([]EquityPoint, len(points))
	copy(owned, points)

	for i, p := range owned {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value <= 0 {
			return TimeSeries{}, fmt.Errorf("%w: point %d has non-positive value %v", ErrInvalidSeries, i, p.Value)
		}
		if i > 0 && !p.Timestamp.After(owned[i-1].Timestamp) {
			return TimeSeries{}, fmt.Errorf("%w: point %d at %s is not after %s",
				ErrInvalidSeries, i, p.Timestamp.Format(time.RFC3339), owned[i-1].Timestamp.Format(time.RFC3339))
		}
	}

	return TimeSeries{points: owned}, nil
}

// SortedTimeSeries sorts points by timestamp before validating. Duplicates are still rejected.
func SortedTimeSeries(points []EquityPoint) (TimeSeries, error) {
	sorted := make([]EquityPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return NewTimeSeries(sorted)
}

// Len returns the number of points
func (s TimeSeries) Len() int {
	return len(s.points)
}

// Points returns a copy of the points
func (s TimeSeries) Points() []EquityPoint {
	out := make([]EquityPoint, len(s.points))
	copy(out, s.points)
	return out
}

// At returns the i-th point
func (s TimeSeries) At(i int) EquityPoint {
	return s.points[i]
}

// Values returns the value column
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Timestamps returns the timestamp column
func (s TimeSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Timestamp
	}
	return out
}

// First returns the first point; ok is false for an empty series
func (s TimeSeries) First() (EquityPoint, bool) {
	if len(s.points) == 0 {
		return EquityPoint{}, false
	}
	return s.points[0], true
}

// Last returns the last point; ok is false for an empty series
func (s TimeSeries) Last() (EquityPoint, bool) {
	if len(s.points) == 0 {
		return EquityPoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Between returns the sub-series with from <= t <= to. Zero bounds are open.
func (s TimeSeries) Between(from, to time.Time) TimeSeries {
	out := make([]EquityPoint, 0, len(s.points))
	for _, p := range s.points {
		if !from.IsZero() && p.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && p.Timestamp.After(to) {
			continue
		}
		out = append(out, p)
	}
	return TimeSeries{points: out}
}

// MarshalJSON encodes the series as its point list
func (s TimeSeries) MarshalJSON() ([]byte, error) {
	if s.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.points)
}

// UnmarshalJSON decodes and validates a point list
func (s *TimeSeries) UnmarshalJSON(data []byte) error {
	var points []EquityPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	ts, err := NewTimeSeries(points)
	if err != nil {
		return err
	}
	*s = ts
	return nil
}

// Intersect truncates every series to the timestamps present in all of them.
// Timestamps are matched by instant, so zones do not matter.
func Intersect(series ...TimeSeries) []TimeSeries {
	if len(series) == 0 {
		return nil
	}

	counts := make(map[int64]int)
	for _, s := range series {
		for _, p := range s.points {
			counts[p.Timestamp.UnixNano()]++
		}
	}

	out := make([]TimeSeries, len(series))
	for i, s := range series {
		kept := make([]EquityPoint, 0, len(s.points))
		for _, p := range s.points {
			if counts[p.Timestamp.UnixNano()] == len(series) {
				kept = append(kept, p)
			}
		}
		out[i] = TimeSeries{points: kept}
	}
	return out
}

// BenchmarkSeries is a named external reference series
type BenchmarkSeries struct {
	Name   string     `json:"name"`
	Symbol string     `json:"symbol"`
	Series TimeSeries `json:"series"`
}

// Label returns Name, falling back to Symbol
func (b BenchmarkSeries) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Symbol
}

// TimeRange is the analysis window of a request
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Valid reports whether From is not after To
func (r TimeRange) Valid() bool {
	return r.From.IsZero() || r.To.IsZero() || !r.From.After(r.To)
}

// Key returns a stable string form used in cache keys
func (r TimeRange) Key() string {
	return fmt.Sprintf("%s~%s", r.From.UTC().Format("2006-01-02T15:04:05"), r.To.UTC().Format("2006-01-02T15:04:05"))
}
