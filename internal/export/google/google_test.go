package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"homesplit/internal/core"
	"homesplit/internal/report"
)

func TestReportRow(t *testing.T) {
	r := &report.MonthlyReport{
		Period: core.Period{Year: 2026, Month: time.August},
		Stats: report.Stats{
			ExpenseTotal:    core.FromUnits(300_000),
			PaymentTotal:    core.FromUnits(50_000),
			RentTotal:       core.FromUnits(4_850_000),
			SettlementCount: 3,
		},
		RentSummary: &report.RentSummary{
			Total:     core.FromUnits(4_850_000),
			Collected: core.FromUnits(1_712_500),
			Remaining: core.FromUnits(1_925_000),
		},
		Meta: report.Meta{Source: report.SourceLive, Version: report.Version},
	}

	row := reportRow(r)
	assert.Equal(t, []any{
		"2026-08",
		300_000.0,
		50_000.0,
		4_850_000.0,
		1_712_500.0,
		1_925_000.0,
		3,
		"live",
		"",
	}, row)
}

func TestReportRowWithoutRent(t *testing.T) {
	r := &report.MonthlyReport{
		Period: core.Period{Year: 2026, Month: time.February},
		Meta:   report.Meta{Source: report.SourceSnapshot, SnapshotBy: "system"},
	}

	row := reportRow(r)
	assert.Equal(t, 0.0, row[3])
	assert.Equal(t, 0.0, row[4])
	assert.Equal(t, 0.0, row[5])
	assert.Equal(t, "snapshot", row[7])
	assert.Equal(t, "system", row[8])
}
