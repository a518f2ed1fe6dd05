package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homesplit/internal/core"
	"homesplit/internal/storage"
)

// fakeStore is an in-memory LedgerStore and ReportStore.
type fakeStore struct {
	mu        sync.Mutex
	roster    core.Roster
	expenses  map[string]core.Expense
	payments  map[string]core.Payment
	rents     map[string]core.RentRecord
	snapshots map[string][]byte
	snapInfo  map[string]storage.SnapshotInfo

	listCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roster: core.Roster{
			{ID: "hung", Name: "Hưng"},
			{ID: "thao", Name: "Thảo"},
			{ID: "thinh", Name: "Thịnh"},
			{ID: "thuy", Name: "Thùy"},
		},
		expenses:  map[string]core.Expense{},
		payments:  map[string]core.Payment{},
		rents:     map[string]core.RentRecord{},
		snapshots: map[string][]byte{},
		snapInfo:  map[string]storage.SnapshotInfo{},
	}
}

func (f *fakeStore) Roster(ctx context.Context) (core.Roster, error) {
	return f.roster, nil
}

func (f *fakeStore) CreateExpense(ctx context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) UpdateExpense(ctx context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[e.ID]; !ok {
		return storage.ErrNotFound
	}
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, p core.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePayment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.payments, id)
	return nil
}

func (f *fakeStore) UpsertRent(ctx context.Context, rec core.RentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rents[rec.Period.String()] = rec
	return nil
}

func (f *fakeStore) GetRentByPeriod(ctx context.Context, period core.Period) (*core.RentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rents[period.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) GetLatestRentBefore(ctx context.Context, period core.Period) (*core.RentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *core.RentRecord
	for key, rec := range f.rents {
		if key >= period.String() {
			continue
		}
		if best == nil || rec.Period.String() > best.Period.String() {
			r := rec
			best = &r
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) ListExpensesByPeriod(ctx context.Context, period core.Period) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []core.Expense
	for _, e := range f.expenses {
		if core.PeriodOf(e.Date) == period {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPaymentsByPeriod(ctx context.Context, period core.Period) ([]core.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Payment
	for _, p := range f.payments {
		if core.PeriodOf(p.Date) == period {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, period core.Period, data []byte, at time.Time, by string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[period.String()] = data
	f.snapInfo[period.String()] = storage.SnapshotInfo{Period: period, SnapshotAt: at, SnapshotBy: by}
	return nil
}

func (f *fakeStore) GetSnapshot(ctx context.Context, period core.Period) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.snapshots[period.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (f *fakeStore) ListSnapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.SnapshotInfo
	for _, info := range f.snapInfo {
		out = append(out, info)
	}
	return out, nil
}

// fakePublisher records published change notifications.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakePublisher) PublishLedgerChanged(ctx context.Context, kind, recordID, period string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, fmt.Sprintf("%s:%s", kind, period))
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}
