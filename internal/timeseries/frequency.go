package timeseries

import (
	"sort"
	"time"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// DetectFrequency infers the sampling frequency from the median spacing of timestamps.
// Fewer than two timestamps fall back to daily.
func DetectFrequency(timestamps []time.Time) contracts.Frequency {
	if len(timestamps) < 2 {
		return contracts.FrequencyDaily
	}

	deltas := make([]time.Duration, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		deltas = append(deltas, timestamps[i].Sub(timestamps[i-1]))
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })

	median := deltas[len(deltas)/2]
	if len(deltas)%2 == 0 {
		median = (deltas[len(deltas)/2-1] + deltas[len(deltas)/2]) / 2
	}

	const day = 24 * time.Hour
	switch {
	case median < 90*time.Second:
		return contracts.FrequencyMinute
	case median < 90*time.Minute:
		return contracts.FrequencyHourly
	case median < 4*day: // 주말 포함 일간
		return contracts.FrequencyDaily
	case median < 10*day:
		return contracts.FrequencyWeekly
	case median < 45*day:
		return contracts.FrequencyMonthly
	case median < 120*day:
		return contracts.FrequencyQuarterly
	default:
		return contracts.FrequencyYearly
	}
}

// FrequencyOf maps an explicit annualization factor back to a named frequency
func FrequencyOf(periodsPerYear float64) contracts.Frequency {
	for _, f := range []contracts.Frequency{
		contracts.FrequencyMinute,
		contracts.FrequencyHourly,
		contracts.FrequencyDaily,
		contracts.FrequencyWeekly,
		contracts.FrequencyMonthly,
		contracts.FrequencyQuarterly,
		contracts.FrequencyYearly,
	} {
		if f.PeriodsPerYear() == periodsPerYear {
			return f
		}
	}
	return contracts.FrequencyCustom
}

// ResolvePeriodsPerYear returns periodsPerYear when positive, otherwise the detected factor
func ResolvePeriodsPerYear(series contracts.TimeSeries, periodsPerYear float64) (float64, contracts.Frequency) {
	if periodsPerYear > 0 {
		return periodsPerYear, FrequencyOf(periodsPerYear)
	}
	f := DetectFrequency(series.Timestamps())
	return f.PeriodsPerYear(), f
}
