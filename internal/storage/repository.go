package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"homesplit/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const dateLayout = "2006-01-02"

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Roster returns the household members in their fixed position order. That
// order is what makes settlement tie-breaks and equal-split remainders
// deterministic.
func (r *Repository) Roster(ctx context.Context) (core.Roster, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name FROM members ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var roster core.Roster
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		roster = append(roster, m)
	}
	return roster, rows.Err()
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, date, payer_id, amount_cents, note, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.Format(dateLayout), e.PayerID, e.Amount.Cents,
		e.Note, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if err := insertDebts(ctx, tx, e.ID, e.Debts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"payer_id", e.PayerID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.Format(dateLayout))
	return nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET date = ?, payer_id = ?, amount_cents = ?, note = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		e.Date.Format(dateLayout), e.PayerID, e.Amount.Cents, e.Note, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update expense %s: %w", e.ID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM expense_debts WHERE expense_id = ?", e.ID); err != nil {
		return fmt.Errorf("clear expense debts: %w", err)
	}
	if err := insertDebts(ctx, tx, e.ID, e.Debts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense update: %w", err)
	}
	return nil
}

// DeleteExpense soft-deletes so the record stays auditable.
func (r *Repository) DeleteExpense(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", at, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

func insertDebts(ctx context.Context, tx *sql.Tx, expenseID string, debts map[string]core.Money) error {
	for memberID, amount := range debts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expense_debts (expense_id, member_id, amount_cents)
			VALUES (?, ?, ?)`,
			expenseID, memberID, amount.Cents); err != nil {
			return fmt.Errorf("insert expense debt for %s: %w", memberID, err)
		}
	}
	return nil
}

// ListExpensesByPeriod returns the month's live expenses, newest first.
func (r *Repository) ListExpensesByPeriod(ctx context.Context, period core.Period) ([]core.Expense, error) {
	start, end := period.Range()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, payer_id, amount_cents, note, created_by, created_at, updated_at
		FROM expenses
		WHERE date >= ? AND date < ? AND deleted_at IS NULL
		ORDER BY date DESC, created_at DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	index := map[string]int{}
	for rows.Next() {
		var e core.Expense
		var date string
		if err := rows.Scan(&e.ID, &date, &e.PayerID, &moneyScanner{&e.Amount},
			&e.Note, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", date, err)
		}
		e.Debts = map[string]core.Money{}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	debtRows, err := r.db.QueryContext(ctx, `
		SELECT d.expense_id, d.member_id, d.amount_cents
		FROM expense_debts d
		JOIN expenses e ON e.id = d.expense_id
		WHERE e.date >= ? AND e.date < ? AND e.deleted_at IS NULL`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expense debts: %w", err)
	}
	defer debtRows.Close()

	for debtRows.Next() {
		var expenseID, memberID string
		var cents int64
		if err := debtRows.Scan(&expenseID, &memberID, &cents); err != nil {
			return nil, fmt.Errorf("scan expense debt: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			expenses[i].Debts[memberID] = core.FromCents(cents)
		}
	}
	return expenses, debtRows.Err()
}

func (r *Repository) CreatePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, date, from_id, to_id, amount_cents, note, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Date.Format(dateLayout), p.FromID, p.ToID, p.Amount.Cents,
		p.Note, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved",
		"id", p.ID,
		"from_id", p.FromID,
		"to_id", p.ToID,
		"amount_cents", p.Amount.Cents)
	return nil
}

func (r *Repository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete payment %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListPaymentsByPeriod returns the month's payments in application order.
func (r *Repository) ListPaymentsByPeriod(ctx context.Context, period core.Period) ([]core.Payment, error) {
	start, end := period.Range()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, from_id, to_id, amount_cents, note, created_by, created_at
		FROM payments
		WHERE date >= ? AND date < ?
		ORDER BY date ASC, created_at ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var p core.Payment
		var date string
		if err := rows.Scan(&p.ID, &date, &p.FromID, &p.ToID, &moneyScanner{&p.Amount},
			&p.Note, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse payment date %q: %w", date, err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpsertRent writes the period's rent record, replacing its shares.
func (r *Repository) UpsertRent(ctx context.Context, rec core.RentRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var finalizedAt sql.NullTime
	if !rec.FinalizedAt.IsZero() {
		finalizedAt = sql.NullTime{Time: rec.FinalizedAt, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rents (
			period, payer_id, rent_cents, wifi_cents, other_cents, headcount,
			water_mode, water_unit_price_cents,
			electric_old_kwh, electric_new_kwh, electric_unit_price_cents,
			water_cost_cents, kwh_used, electric_cost_cents,
			total_cents, split_mode, note, status,
			finalized_at, finalized_by, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (period) DO UPDATE SET
			payer_id = excluded.payer_id,
			rent_cents = excluded.rent_cents,
			wifi_cents = excluded.wifi_cents,
			other_cents = excluded.other_cents,
			headcount = excluded.headcount,
			water_mode = excluded.water_mode,
			water_unit_price_cents = excluded.water_unit_price_cents,
			electric_old_kwh = excluded.electric_old_kwh,
			electric_new_kwh = excluded.electric_new_kwh,
			electric_unit_price_cents = excluded.electric_unit_price_cents,
			water_cost_cents = excluded.water_cost_cents,
			kwh_used = excluded.kwh_used,
			electric_cost_cents = excluded.electric_cost_cents,
			total_cents = excluded.total_cents,
			split_mode = excluded.split_mode,
			note = excluded.note,
			status = excluded.status,
			finalized_at = excluded.finalized_at,
			finalized_by = excluded.finalized_by,
			updated_at = excluded.updated_at`,
		rec.Period.String(), rec.PayerID,
		rec.Items.Rent.Cents, rec.Items.Wifi.Cents, rec.Items.Other.Cents, rec.Headcount,
		rec.Water.Mode, rec.Water.UnitPrice.Cents,
		rec.Electric.OldKwh, rec.Electric.NewKwh, rec.Electric.UnitPrice.Cents,
		rec.Computed.WaterCost.Cents, rec.Computed.KwhUsed, rec.Computed.ElectricCost.Cents,
		rec.Total.Cents, string(rec.SplitMode), rec.Note, string(rec.Status),
		finalizedAt, rec.FinalizedBy, rec.CreatedBy, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert rent: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM rent_shares WHERE period = ?", rec.Period.String()); err != nil {
		return fmt.Errorf("clear rent shares: %w", err)
	}
	for memberID, share := range rec.Shares {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rent_shares (period, member_id, share_cents, paid_cents)
			VALUES (?, ?, ?, ?)`,
			rec.Period.String(), memberID, share.Cents, rec.Paid[memberID].Cents); err != nil {
			return fmt.Errorf("insert rent share for %s: %w", memberID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rent: %w", err)
	}

	slog.InfoContext(ctx, "Rent saved",
		"period", rec.Period.String(),
		"payer_id", rec.PayerID,
		"total_cents", rec.Total.Cents,
		"status", string(rec.Status))
	return nil
}

// GetRentByPeriod returns the period's rent record or ErrNotFound.
func (r *Repository) GetRentByPeriod(ctx context.Context, period core.Period) (*core.RentRecord, error) {
	return r.getRent(ctx, "WHERE period = ?", period.String())
}

// GetLatestRentBefore returns the most recent rent record strictly before
// period. Used to prefill the next month's meter readings.
func (r *Repository) GetLatestRentBefore(ctx context.Context, period core.Period) (*core.RentRecord, error) {
	return r.getRent(ctx, "WHERE period < ? ORDER BY period DESC LIMIT 1", period.String())
}

func (r *Repository) getRent(ctx context.Context, clause string, args ...any) (*core.RentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT period, payer_id, rent_cents, wifi_cents, other_cents, headcount,
			water_mode, water_unit_price_cents,
			electric_old_kwh, electric_new_kwh, electric_unit_price_cents,
			water_cost_cents, kwh_used, electric_cost_cents,
			total_cents, split_mode, note, status,
			finalized_at, finalized_by, created_by, created_at, updated_at
		FROM rents `+clause, args...)

	var rec core.RentRecord
	var periodStr string
	var finalizedAt sql.NullTime
	err := row.Scan(&periodStr, &rec.PayerID,
		&moneyScanner{&rec.Items.Rent}, &moneyScanner{&rec.Items.Wifi}, &moneyScanner{&rec.Items.Other},
		&rec.Headcount,
		&rec.Water.Mode, &moneyScanner{&rec.Water.UnitPrice},
		&rec.Electric.OldKwh, &rec.Electric.NewKwh, &moneyScanner{&rec.Electric.UnitPrice},
		&moneyScanner{&rec.Computed.WaterCost}, &rec.Computed.KwhUsed, &moneyScanner{&rec.Computed.ElectricCost},
		&moneyScanner{&rec.Total}, (*splitModeScanner)(&rec.SplitMode), &rec.Note, (*statusScanner)(&rec.Status),
		&finalizedAt, &rec.FinalizedBy, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rent: %w", err)
	}

	rec.Period, err = core.ParsePeriod(periodStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored rent period %q: %w", periodStr, err)
	}
	if finalizedAt.Valid {
		rec.FinalizedAt = finalizedAt.Time
	}

	rec.Shares = map[string]core.Money{}
	rec.Paid = map[string]core.Money{}
	rows, err := r.db.QueryContext(ctx,
		"SELECT member_id, share_cents, paid_cents FROM rent_shares WHERE period = ?",
		periodStr)
	if err != nil {
		return nil, fmt.Errorf("list rent shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		var shareCents, paidCents int64
		if err := rows.Scan(&memberID, &shareCents, &paidCents); err != nil {
			return nil, fmt.Errorf("scan rent share: %w", err)
		}
		rec.Shares[memberID] = core.FromCents(shareCents)
		rec.Paid[memberID] = core.FromCents(paidCents)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRentPeriods returns every period that has a rent record, newest first.
func (r *Repository) ListRentPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT period FROM rents ORDER BY period DESC")
	if err != nil {
		return nil, fmt.Errorf("list rent periods: %w", err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan rent period: %w", err)
		}
		p, err := core.ParsePeriod(s)
		if err != nil {
			return nil, fmt.Errorf("parse stored rent period %q: %w", s, err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// SnapshotInfo is a snapshot listing row.
type SnapshotInfo struct {
	Period     core.Period
	SnapshotAt time.Time
	SnapshotBy string
}

// SaveSnapshot stores the period's frozen report. Saving again overwrites;
// the report bytes are opaque to this layer.
func (r *Repository) SaveSnapshot(ctx context.Context, period core.Period, data []byte, at time.Time, by string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO period_snapshots (period, report, snapshot_at, snapshot_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (period) DO UPDATE SET
			report = excluded.report,
			snapshot_at = excluded.snapshot_at,
			snapshot_by = excluded.snapshot_by,
			updated_at = excluded.updated_at`,
		period.String(), string(data), at, by, at, at)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Report snapshot saved",
		"period", period.String(),
		"snapshot_by", by)
	return nil
}

// GetSnapshot returns the period's frozen report bytes or ErrNotFound.
func (r *Repository) GetSnapshot(ctx context.Context, period core.Period) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		"SELECT report FROM period_snapshots WHERE period = ?", period.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return []byte(data), nil
}

// ListSnapshots returns snapshot metadata, newest period first.
func (r *Repository) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT period, snapshot_at, snapshot_by
		FROM period_snapshots
		ORDER BY period DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var periodStr string
		if err := rows.Scan(&periodStr, &info.SnapshotAt, &info.SnapshotBy); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.Period, err = core.ParsePeriod(periodStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored snapshot period %q: %w", periodStr, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
