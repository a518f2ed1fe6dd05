package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrMissingMember     = errors.New("missing member id")
	ErrUnknownMember     = errors.New("member not in roster")
	ErrSelfTransfer      = errors.New("payer and payee must differ")
	ErrPayerSelfDebt     = errors.New("payer cannot owe themself")
	ErrDebtsExceedAmount = errors.New("debts exceed expense amount")
)

// Member is one household roster entry. The roster itself is always supplied
// by the caller; no package holds it as global state.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roster is the ordered list of members eligible to share costs. Order is
// significant: it is the deterministic tie-break for settlement matching and
// for remainder distribution in equal splits.
type Roster []Member

// IDs returns the member ids in roster order.
func (r Roster) IDs() []string {
	ids := make([]string, len(r))
	for i, m := range r {
		ids[i] = m.ID
	}
	return ids
}

// Contains reports whether the id belongs to the roster.
func (r Roster) Contains(id string) bool {
	for _, m := range r {
		if m.ID == id {
			return true
		}
	}
	return false
}

// NameOf resolves a display name, falling back to the raw id.
func (r Roster) NameOf(id string) string {
	for _, m := range r {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}

// Expense is one shared cost. The payer fronted Amount; Debts lists what each
// other member owes the payer for it. The payer's own share is implicit:
// Amount minus the sum of Debts.
type Expense struct {
	ID        string           `json:"id"`
	Date      time.Time        `json:"date"`
	PayerID   string           `json:"payerId"`
	Amount    Money            `json:"amount"`
	Debts     map[string]Money `json:"debts"`
	Note      string           `json:"note,omitempty"`
	CreatedBy string           `json:"createdBy,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Validate checks the record's internal invariants. Roster membership is
// checked at the write boundary, not here; the engine itself skips unknown
// ids as a data-quality no-op.
func (e Expense) Validate() error {
	if e.PayerID == "" {
		return ErrMissingMember
	}
	if !e.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if _, ok := e.Debts[e.PayerID]; ok {
		return ErrPayerSelfDebt
	}
	if e.Amount.Less(SumMoney(e.Debts)) {
		return fmt.Errorf("%w: debts %s, amount %s", ErrDebtsExceedAmount, SumMoney(e.Debts), e.Amount)
	}
	return nil
}

// PayerShare is the payer's implicit own portion of the expense.
func (e Expense) PayerShare() Money {
	return e.Amount.Sub(SumMoney(e.Debts))
}

// Payment records money actually handed over outside the ledger: FromID paid
// ToID, so that much debt no longer shows as outstanding.
type Payment struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Amount    Money     `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Payment) Validate() error {
	if p.FromID == "" || p.ToID == "" {
		return ErrMissingMember
	}
	if p.FromID == p.ToID {
		return ErrSelfTransfer
	}
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// SettlementLine is one recommended transfer of a settlement plan.
type SettlementLine struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Amount Money  `json:"amount"`
}
