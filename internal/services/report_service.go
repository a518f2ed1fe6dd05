package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"homesplit/internal/cache"
	"homesplit/internal/core"
	applog "homesplit/internal/log"
	"homesplit/internal/report"
	"homesplit/internal/storage"
)

// ReportStore is the storage surface the report service reads from.
type ReportStore interface {
	Roster(ctx context.Context) (core.Roster, error)
	ListExpensesByPeriod(ctx context.Context, period core.Period) ([]core.Expense, error)
	ListPaymentsByPeriod(ctx context.Context, period core.Period) ([]core.Payment, error)
	GetRentByPeriod(ctx context.Context, period core.Period) (*core.RentRecord, error)
	SaveSnapshot(ctx context.Context, period core.Period, data []byte, at time.Time, by string) error
	GetSnapshot(ctx context.Context, period core.Period) ([]byte, error)
	ListSnapshots(ctx context.Context) ([]storage.SnapshotInfo, error)
}

// ReportService computes monthly reports and manages their snapshots. Live
// reports are cached per period; the worker invalidates entries as ledger
// change events arrive.
type ReportService struct {
	store ReportStore
	cache *cache.LRUCache[*report.MonthlyReport]
	log   *applog.Logger
	now   func() time.Time
}

// NewReportService creates a report service with a period-keyed LRU cache.
func NewReportService(store ReportStore, cacheSize int) *ReportService {
	return &ReportService{
		store: store,
		cache: cache.NewLRUCache[*report.MonthlyReport](cacheSize, time.Hour),
		log:   applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentReport}),
		now:   time.Now,
	}
}

// Live computes the period's report from current inputs, serving from cache
// when the period has not changed since the last computation.
func (s *ReportService) Live(ctx context.Context, period core.Period) (*report.MonthlyReport, error) {
	if cached, ok := s.cache.Get(period.String()); ok {
		s.log.DebugContext(ctx, "Report served from cache", applog.FieldPeriod, period.String())
		return cached, nil
	}

	in := report.Input{Period: period}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roster, err := s.store.Roster(gctx)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		in.Roster = roster
		return nil
	})
	g.Go(func() error {
		expenses, err := s.store.ListExpensesByPeriod(gctx, period)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		in.Expenses = expenses
		return nil
	})
	g.Go(func() error {
		payments, err := s.store.ListPaymentsByPeriod(gctx, period)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		in.Payments = payments
		return nil
	})
	g.Go(func() error {
		rentRec, err := s.store.GetRentByPeriod(gctx, period)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load rent: %w", err)
		}
		in.Rent = rentRec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load report inputs for %s: %w", period, err)
	}

	r := report.Build(in)
	s.cache.Set(period.String(), r)

	s.log.InfoContext(ctx, "Report computed",
		applog.FieldPeriod, period.String(),
		"expense_count", r.Stats.ExpenseCount,
		"payment_count", r.Stats.PaymentCount,
		"settlement_count", r.Stats.SettlementCount)
	return r, nil
}

// Invalidate drops the period's cached report.
func (s *ReportService) Invalidate(period core.Period) {
	s.cache.Delete(period.String())
}

// InvalidateAll drops every cached report.
func (s *ReportService) InvalidateAll() {
	s.cache.Clear()
}

// Cache exposes the report cache for expiry management.
func (s *ReportService) Cache() *cache.LRUCache[*report.MonthlyReport] {
	return s.cache
}

// SaveSnapshot freezes the period's live report and persists it. Saving again
// overwrites the previous snapshot for the period.
func (s *ReportService) SaveSnapshot(ctx context.Context, period core.Period, by string) (*report.MonthlyReport, error) {
	live, err := s.Live(ctx, period)
	if err != nil {
		return nil, err
	}

	frozen := report.Freeze(live, s.now(), by)
	data, err := report.EncodeSnapshot(frozen)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveSnapshot(ctx, period, data, frozen.Meta.SnapshotAt, by); err != nil {
		return nil, err
	}
	return frozen, nil
}

// Snapshot loads the period's frozen report verbatim. It never recomputes.
func (s *ReportService) Snapshot(ctx context.Context, period core.Period) (*report.MonthlyReport, error) {
	data, err := s.store.GetSnapshot(ctx, period)
	if err != nil {
		return nil, err
	}
	return report.DecodeSnapshot(data)
}

// ListSnapshots returns metadata for every stored snapshot.
func (s *ReportService) ListSnapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	return s.store.ListSnapshots(ctx)
}
