package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homesplit/internal/amqp"
	"homesplit/internal/core"
	applog "homesplit/internal/log"
	"homesplit/internal/rent"
	"homesplit/internal/storage"
)

// LedgerStore is the storage surface the ledger service writes through.
type LedgerStore interface {
	Roster(ctx context.Context) (core.Roster, error)
	CreateExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string, at time.Time) error
	CreatePayment(ctx context.Context, p core.Payment) error
	DeletePayment(ctx context.Context, id string) error
	UpsertRent(ctx context.Context, rec core.RentRecord) error
	GetRentByPeriod(ctx context.Context, period core.Period) (*core.RentRecord, error)
	GetLatestRentBefore(ctx context.Context, period core.Period) (*core.RentRecord, error)
}

// ChangePublisher notifies downstream consumers that a ledger record changed.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, kind, recordID, period string) error
}

// LedgerService is the write boundary of the ledger. The computation engine
// silently skips malformed records; this layer is where bad input is rejected
// instead, so nothing malformed reaches storage in the first place.
type LedgerService struct {
	store     LedgerStore
	publisher ChangePublisher
	log       *applog.Logger
	now       func() time.Time
}

func NewLedgerService(store LedgerStore, publisher ChangePublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		log:       applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentLedger}),
		now:       time.Now,
	}
}

// AddExpense validates and persists a new expense.
func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	roster, err := s.store.Roster(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load roster: %w", err)
	}
	if err := validateExpense(e, roster); err != nil {
		return core.Expense{}, err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	s.publish(ctx, amqp.KindExpense, e.ID, core.PeriodOf(e.Date))
	return e, nil
}

// UpdateExpense validates and persists changes to an existing expense.
func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	roster, err := s.store.Roster(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load roster: %w", err)
	}
	if err := validateExpense(e, roster); err != nil {
		return core.Expense{}, err
	}

	e.UpdatedAt = s.now()
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	s.publish(ctx, amqp.KindExpense, e.ID, core.PeriodOf(e.Date))
	return e, nil
}

// RemoveExpense soft-deletes an expense. The date locates the period whose
// report must be recomputed.
func (s *LedgerService) RemoveExpense(ctx context.Context, id string, date time.Time) error {
	if err := s.store.DeleteExpense(ctx, id, s.now()); err != nil {
		return err
	}
	s.publish(ctx, amqp.KindExpense, id, core.PeriodOf(date))
	return nil
}

// RecordPayment validates and persists a settlement payment.
func (s *LedgerService) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	roster, err := s.store.Roster(ctx)
	if err != nil {
		return core.Payment{}, fmt.Errorf("load roster: %w", err)
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if !roster.Contains(p.FromID) {
		return core.Payment{}, fmt.Errorf("payer %s: %w", p.FromID, core.ErrUnknownMember)
	}
	if !roster.Contains(p.ToID) {
		return core.Payment{}, fmt.Errorf("payee %s: %w", p.ToID, core.ErrUnknownMember)
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = s.now()

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return core.Payment{}, err
	}
	s.publish(ctx, amqp.KindPayment, p.ID, core.PeriodOf(p.Date))
	return p, nil
}

// RemovePayment deletes a payment.
func (s *LedgerService) RemovePayment(ctx context.Context, id string, date time.Time) error {
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.KindPayment, id, core.PeriodOf(date))
	return nil
}

// SaveRent normalizes and persists the period's rent record. Custom shares
// that do not sum to the computed total are rejected here, before storage.
func (s *LedgerService) SaveRent(ctx context.Context, period core.Period, payload core.RentRecord) (core.RentRecord, error) {
	roster, err := s.store.Roster(ctx)
	if err != nil {
		return core.RentRecord{}, fmt.Errorf("load roster: %w", err)
	}
	if !roster.Contains(payload.PayerID) {
		return core.RentRecord{}, fmt.Errorf("rent payer %s: %w", payload.PayerID, core.ErrUnknownMember)
	}

	existing, err := s.store.GetRentByPeriod(ctx, period)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return core.RentRecord{}, fmt.Errorf("load existing rent: %w", err)
	}

	payload.Period = period
	rec := rent.Normalize(payload, existing, roster.IDs())
	if err := rent.ValidateRecord(rec); err != nil {
		return core.RentRecord{}, err
	}

	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := s.store.UpsertRent(ctx, rec); err != nil {
		return core.RentRecord{}, err
	}
	s.publish(ctx, amqp.KindRent, "", period)
	return rec, nil
}

// FinalizeRent marks the period's rent record as finalized.
func (s *LedgerService) FinalizeRent(ctx context.Context, period core.Period, by string) (core.RentRecord, error) {
	existing, err := s.store.GetRentByPeriod(ctx, period)
	if err != nil {
		return core.RentRecord{}, fmt.Errorf("load rent for %s: %w", period, err)
	}

	rec := rent.Finalize(*existing, by, s.now())
	if err := s.store.UpsertRent(ctx, rec); err != nil {
		return core.RentRecord{}, err
	}
	s.publish(ctx, amqp.KindRent, "", period)
	return rec, nil
}

// NextRentDraft prepares a draft for the period using the previous record:
// the last meter reading becomes the new old reading, prices and headcount
// carry over.
func (s *LedgerService) NextRentDraft(ctx context.Context, period core.Period) (core.RentRecord, error) {
	prev, err := s.store.GetLatestRentBefore(ctx, period)
	if errors.Is(err, storage.ErrNotFound) {
		return core.RentRecord{Period: period, Status: core.RentDraft, SplitMode: core.SplitEqual, Water: core.WaterMeta{Mode: core.WaterModePerPerson}}, nil
	}
	if err != nil {
		return core.RentRecord{}, fmt.Errorf("load previous rent: %w", err)
	}

	draft := core.RentRecord{
		Period:    period,
		PayerID:   prev.PayerID,
		Items:     prev.Items,
		Headcount: prev.Headcount,
		Water:     prev.Water,
		Electric: core.ElectricMeta{
			OldKwh:    prev.Electric.NewKwh,
			NewKwh:    prev.Electric.NewKwh,
			UnitPrice: prev.Electric.UnitPrice,
		},
		SplitMode: prev.SplitMode,
		Status:    core.RentDraft,
	}
	return draft, nil
}

func validateExpense(e core.Expense, roster core.Roster) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !roster.Contains(e.PayerID) {
		return fmt.Errorf("payer %s: %w", e.PayerID, core.ErrUnknownMember)
	}
	for memberID := range e.Debts {
		if !roster.Contains(memberID) {
			return fmt.Errorf("debtor %s: %w", memberID, core.ErrUnknownMember)
		}
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, kind, recordID string, period core.Period) {
	fields := applog.NewFields().
		WithOperation(applog.OpPublish).
		WithRecord(kind, recordID).
		WithPeriod(period.String())

	if s.publisher == nil {
		s.log.WarnContext(ctx, "Change publisher not available, skipping notification", fields.ToSlice()...)
		return
	}

	// The write already succeeded; a lost notification only delays the next
	// report recompute, so log and move on.
	if err := s.publisher.PublishLedgerChanged(ctx, kind, recordID, period.String()); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish ledger change", fields.WithError(err).ToSlice()...)
	}
}
