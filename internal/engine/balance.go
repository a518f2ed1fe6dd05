package engine

import "homesplit/internal/core"

// Balances maps member id → signed net amount. Positive means the member is
// owed money, negative means they owe. The sum over all members is always
// exactly zero: every debit in the reduction has a matching credit.
type Balances map[string]core.Money

// Clone returns a copy.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for id, amt := range b {
		out[id] = amt
	}
	return out
}

// Sum adds all balances; zero for any map produced by this package.
func (b Balances) Sum() core.Money {
	var total core.Money
	for _, amt := range b {
		total = total.Add(amt)
	}
	return total
}

// NetBalances reduces a gross matrix to one signed balance per member. Each
// positive cell matrix[debtor][creditor] subtracts from the debtor and adds
// to the creditor.
func NetBalances(memberIDs []string, m Matrix) Balances {
	b := make(Balances, len(memberIDs))
	for _, id := range memberIDs {
		b[id] = core.Zero
	}

	for _, debtor := range memberIDs {
		for _, creditor := range memberIDs {
			amt := m[debtor][creditor]
			if !amt.IsPositive() {
				continue
			}
			b[debtor] = b[debtor].Sub(amt)
			b[creditor] = b[creditor].Add(amt)
		}
	}

	return b
}

// ApplyPaymentsToBalances folds already-settled payments into a fresh balance
// map: the payer's balance rises by the amount, the payee's falls. An
// over-payment legitimately flips the payer into a net creditor; this
// component never clamps (collecting a sane amount is the caller's concern).
// Payments with a missing id or non-positive amount are skipped.
func ApplyPaymentsToBalances(b Balances, payments []core.Payment) Balances {
	next := b.Clone()

	for _, p := range payments {
		if p.FromID == "" || p.ToID == "" || !p.Amount.IsPositive() {
			continue
		}
		next[p.FromID] = next[p.FromID].Add(p.Amount)
		next[p.ToID] = next[p.ToID].Sub(p.Amount)
	}

	return next
}

// ApplyPaymentsToMatrix is the legacy matrix-form applicator: each payment
// reduces the debtor→creditor cell directly, clamped at zero. Unlike the
// balance form it cannot represent over-payment; it exists for views that
// render remaining gross debt per pair.
func ApplyPaymentsToMatrix(m Matrix, payments []core.Payment) Matrix {
	next := m.Clone()

	for _, p := range payments {
		if !p.Amount.IsPositive() {
			continue
		}
		row, ok := next[p.FromID]
		if !ok {
			continue
		}
		cur, ok := row[p.ToID]
		if !ok {
			continue
		}
		remaining := cur.Sub(p.Amount)
		if remaining.IsNegative() {
			remaining = core.Zero
		}
		row[p.ToID] = remaining
	}

	return next
}
