// Package engine is the pure settlement pipeline: expense records fold into a
// debtor→creditor matrix, the matrix reduces to one signed balance per member,
// recorded payments adjust the balances, and a greedy matcher turns the result
// into a minimal list of transfers.
//
// Every function is a deterministic function of its inputs. Inputs are never
// mutated and outputs are freshly allocated on each call, so concurrent
// callers only need to hand each call its own snapshot.
package engine

import "homesplit/internal/core"

// Matrix maps debtor id → creditor id → outstanding amount. Entries are
// non-negative and the diagonal stays zero.
type Matrix map[string]map[string]core.Money

// NewZeroMatrix allocates an all-zero square matrix over the member ids.
func NewZeroMatrix(memberIDs []string) Matrix {
	m := make(Matrix, len(memberIDs))
	for _, row := range memberIDs {
		m[row] = make(map[string]core.Money, len(memberIDs))
		for _, col := range memberIDs {
			m[row][col] = core.Zero
		}
	}
	return m
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for row, cols := range m {
		out[row] = make(map[string]core.Money, len(cols))
		for col, amt := range cols {
			out[row][col] = amt
		}
	}
	return out
}

// BuildGrossMatrix folds expenses into a fresh debt matrix over the roster.
//
// For each expense, each (debtor, amount) entry in its debts map adds to
// matrix[debtor][payer]. Non-positive amounts, self-debts and ids outside the
// roster are skipped as data-quality no-ops; the payer's own share is implicit
// and never recorded. Entries accumulate across expenses between the same
// pair.
func BuildGrossMatrix(memberIDs []string, expenses []core.Expense) Matrix {
	m := NewZeroMatrix(memberIDs)

	for _, ex := range expenses {
		creditor := ex.PayerID
		for debtor, amount := range ex.Debts {
			if !amount.IsPositive() {
				continue
			}
			if debtor == creditor {
				continue
			}
			row, ok := m[debtor]
			if !ok {
				continue
			}
			if _, ok := row[creditor]; !ok {
				continue
			}
			row[creditor] = row[creditor].Add(amount)
		}
	}

	return m
}

// BuildSettleMatrix projects a settlement plan back onto matrix form, the
// shape the dashboard's who-pays-whom table renders.
func BuildSettleMatrix(memberIDs []string, plan []core.SettlementLine) Matrix {
	m := NewZeroMatrix(memberIDs)

	for _, line := range plan {
		if line.FromID == "" || line.ToID == "" || !line.Amount.IsPositive() {
			continue
		}
		row, ok := m[line.FromID]
		if !ok {
			continue
		}
		if _, ok := row[line.ToID]; !ok {
			continue
		}
		row[line.ToID] = row[line.ToID].Add(line.Amount)
	}

	return m
}
