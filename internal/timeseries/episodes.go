package timeseries

import "github.com/wonny/aegis/v13/perf/internal/contracts"

// Episodes splits the drawdown curve into peak-to-recovery episodes.
// An episode still open at the end of the series has Recovered=false and
// Periods counted to the last point.
func Episodes(series contracts.TimeSeries, drawdowns []float64) []contracts.DrawdownEpisode {
	var (
		out     []contracts.DrawdownEpisode
		current *contracts.DrawdownEpisode
		peakIdx int
	)

	for i, dd := range drawdowns {
		p := series.At(i)

		if dd == 0 {
			if current != nil {
				ts := p.Timestamp
				current.Recovery = &ts
				current.Recovered = true
				current.Periods = i - peakIdx
				out = append(out, *current)
				current = nil
			}
			peakIdx = i
			continue
		}

		if current == nil {
			current = &contracts.DrawdownEpisode{
				Peak:   series.At(peakIdx).Timestamp,
				Trough: p.Timestamp,
				Depth:  dd,
			}
		}
		if dd < current.Depth {
			current.Depth = dd
			current.Trough = p.Timestamp
		}
	}

	if current != nil {
		current.Periods = len(drawdowns) - 1 - peakIdx
		out = append(out, *current)
	}
	return out
}
