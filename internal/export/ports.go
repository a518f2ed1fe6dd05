package export

import (
	"context"

	"homesplit/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportExporter publishes a monthly report to an external destination
	// and returns a reference to where it landed (e.g. a sheet range).
	ReportExporter interface {
		Export(ctx context.Context, r *report.MonthlyReport) (ref string, err error)
	}
)
