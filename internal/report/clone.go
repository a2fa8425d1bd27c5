package report

import "github.com/wonny/aegis/v13/perf/internal/contracts"

// clone* copy every slice and pointer so a report never aliases caller memory

func clonePerformance(p contracts.PerformanceMetrics) contracts.PerformanceMetrics {
	p.BySymbol = cloneSlice(p.BySymbol)
	p.Series = cloneSeriesMetrics(p.Series)
	return p
}

func cloneSeriesMetrics(m contracts.TimeSeriesMetrics) contracts.TimeSeriesMetrics {
	m.Returns = cloneSlice(m.Returns)
	m.Drawdowns = cloneSlice(m.Drawdowns)
	if m.Episodes != nil {
		episodes := make([]contracts.DrawdownEpisode, len(m.Episodes))
		for i, ep := range m.Episodes {
			if ep.Recovery != nil {
				ts := *ep.Recovery
				ep.Recovery = &ts
			}
			episodes[i] = ep
		}
		m.Episodes = episodes
	}
	return m
}

func cloneRisk(r contracts.RiskProfile) contracts.RiskProfile {
	r.VaR = cloneSlice(r.VaR)
	r.Beta = clonePtr(r.Beta)
	if r.Betas != nil {
		betas := make([]contracts.ReferenceBeta, len(r.Betas))
		for i, b := range r.Betas {
			b.Beta = clonePtr(b.Beta)
			betas[i] = b
		}
		r.Betas = betas
	}

	c := r.Correlation
	c.Labels = cloneSlice(c.Labels)
	c.Degenerate = cloneSlice(c.Degenerate)
	if c.Values != nil {
		values := make([][]float64, len(c.Values))
		for i, row := range c.Values {
			values[i] = cloneSlice(row)
		}
		c.Values = values
	}
	r.Correlation = c
	return r
}

func cloneComparisons(in []contracts.ComparisonResult) []contracts.ComparisonResult {
	if in == nil {
		return nil
	}
	out := make([]contracts.ComparisonResult, len(in))
	for i, c := range in {
		c.Metrics = cloneSlice(c.Metrics)
		if c.Portfolio != nil {
			m := cloneSeriesMetrics(*c.Portfolio)
			c.Portfolio = &m
		}
		if c.BenchmarkMetrics != nil {
			m := cloneSeriesMetrics(*c.BenchmarkMetrics)
			c.BenchmarkMetrics = &m
		}
		if c.Relative != nil {
			rel := *c.Relative
			rel.Beta = clonePtr(rel.Beta)
			rel.Correlation = clonePtr(rel.Correlation)
			rel.UpCapture = clonePtr(rel.UpCapture)
			rel.DownCapture = clonePtr(rel.DownCapture)
			c.Relative = &rel
		}
		out[i] = c
	}
	return out
}

func cloneAttribution(a contracts.AttributionResult) contracts.AttributionResult {
	a.Records = cloneSlice(a.Records)
	return a
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
