// Package publish ships finished performance reports to downstream consumers:
// a Kafka topic for export jobs and a websocket hub for live dashboards.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// EventReportGenerated is the event type of every published report
const EventReportGenerated = "report.generated"

// ReportEvent is the envelope written to every sink
type ReportEvent struct {
	Type        string                       `json:"type"`
	PortfolioID string                       `json:"portfolio_id"`
	ReportID    string                       `json:"report_id"`
	PublishedAt time.Time                    `json:"published_at"`
	Report      *contracts.PerformanceReport `json:"report"`
}

func newEvent(report *contracts.PerformanceReport, now time.Time) ReportEvent {
	return ReportEvent{
		Type:        EventReportGenerated,
		PortfolioID: report.PortfolioID,
		ReportID:    report.ID,
		PublishedAt: now.UTC(),
		Report:      report,
	}
}

// Nop discards reports (Kafka disabled, no dashboards)
type Nop struct{}

// Publish implements contracts.ReportPublisher
func (Nop) Publish(context.Context, *contracts.PerformanceReport) error { return nil }

// Multi fans a report out to every publisher.
// Every sink is attempted; failures are joined.
type Multi []contracts.ReportPublisher

// Publish implements contracts.ReportPublisher
func (m Multi) Publish(ctx context.Context, report *contracts.PerformanceReport) error {
	if report == nil {
		return errors.New("publish: nil report")
	}

	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
