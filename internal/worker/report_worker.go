// Package worker reacts to ledger change events: it refreshes cached monthly
// reports, pushes summaries to the configured export target, and freezes the
// previous month on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"homesplit/internal/amqp"
	"homesplit/internal/core"
	"homesplit/internal/export"
	applog "homesplit/internal/log"
	"homesplit/internal/report"
	"homesplit/internal/services"
)

// ReportWorker keeps live reports fresh as the ledger changes.
type ReportWorker struct {
	reports    *services.ReportService
	exporter   export.ReportExporter // nil when export is not configured
	snapshotBy string
	log        *applog.Logger
	now        func() time.Time
}

func NewReportWorker(reports *services.ReportService, exporter export.ReportExporter, snapshotBy string) *ReportWorker {
	return &ReportWorker{
		reports:    reports,
		exporter:   exporter,
		snapshotBy: snapshotBy,
		log:        applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentWorker}),
		now:        time.Now,
	}
}

// HandleLedgerChange processes a single ledger change event. The cached report
// for the touched period is dropped, recomputed, and re-exported. Returning an
// error requeues the message.
func (w *ReportWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.log.InfoContext(ctx, "Processing ledger change",
		applog.FieldRecordKind, msg.Kind,
		applog.FieldRecordID, msg.RecordID,
		applog.FieldPeriod, msg.Period)

	period, err := core.ParsePeriod(msg.Period)
	if err != nil {
		// A malformed period will never parse on retry. Drop the cache
		// wholesale so stale data cannot survive the bad event.
		w.log.WarnContext(ctx, "Ledger change has invalid period, invalidating all cached reports",
			applog.FieldPeriod, msg.Period,
			applog.FieldError, err)
		w.reports.InvalidateAll()
		return nil
	}

	w.reports.Invalidate(period)

	r, err := w.reports.Live(ctx, period)
	if err != nil {
		return fmt.Errorf("recompute report for %s: %w", period.String(), err)
	}

	return w.exportReport(ctx, r)
}

// CloseMonth snapshots the month before the current one. Meant to run just
// after midnight on the first of the month, when the closing period can no
// longer gain entries through normal use.
func (w *ReportWorker) CloseMonth(ctx context.Context) error {
	period := core.PeriodOf(w.now()).Prev()

	w.log.InfoContext(ctx, "Closing month",
		applog.FieldPeriod, period.String(),
		applog.FieldSnapshotBy, w.snapshotBy)

	frozen, err := w.reports.SaveSnapshot(ctx, period, w.snapshotBy)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", period.String(), err)
	}

	return w.exportReport(ctx, frozen)
}

// StartupRefresh warms the cache for the current period so the first read
// after a restart does not pay the computation cost.
func (w *ReportWorker) StartupRefresh(ctx context.Context) error {
	period := core.PeriodOf(w.now())
	if _, err := w.reports.Live(ctx, period); err != nil {
		return fmt.Errorf("warm report for %s: %w", period.String(), err)
	}
	w.log.InfoContext(ctx, "Report cache warmed", applog.FieldPeriod, period.String())
	return nil
}

// ScheduleMonthClose registers CloseMonth on the given cron schedule and
// returns the started scheduler. The caller stops it on shutdown.
func (w *ReportWorker) ScheduleMonthClose(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := w.CloseMonth(ctx); err != nil {
			w.log.ErrorContext(ctx, "Month close failed", applog.FieldError, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("register month close job: %w", err)
	}
	c.Start()
	w.log.InfoContext(ctx, "Month close scheduled", "schedule", schedule)
	return c, nil
}

func (w *ReportWorker) exportReport(ctx context.Context, r *report.MonthlyReport) error {
	if w.exporter == nil {
		return nil
	}

	ref, err := w.exporter.Export(ctx, r)
	if err != nil {
		return fmt.Errorf("export report for %s: %w", r.Period.String(), err)
	}

	w.log.InfoContext(ctx, "Report exported",
		applog.FieldPeriod, r.Period.String(),
		applog.FieldSheetsRef, ref)
	return nil
}
