package engine

import (
	"sort"

	"homesplit/internal/core"
)

// ToleranceCents is the single tolerance for "this balance is settled".
// Because money is integer cents and rounding happens only at the parse
// boundary, balances carry no float drift and the tolerance is exact zero:
// any non-zero cent is a real debt. The constant is threaded through the
// matcher rather than inlined so the decision is recorded in one place.
const ToleranceCents int64 = 0

type party struct {
	id     string
	amount core.Money // positive magnitude
}

// Settle turns signed balances into a minimal ordered list of transfers.
//
// Greedy largest-first matching: members split into creditors and debtors by
// positive magnitude, both sides sorted descending. The current largest
// debtor pays the current largest creditor min(owed, due); whichever side
// reaches zero advances. Ties in magnitude break by roster order (memberIDs),
// which makes the plan fully deterministic. The result is a minimum-
// cardinality heuristic: optimal for the common few-large-imbalances case,
// not provably optimal in general.
//
// Applying every emitted line (debit FromID, credit ToID) drives all balances
// to zero, provided the input balances sum to zero.
func Settle(memberIDs []string, balances Balances) []core.SettlementLine {
	var creditors, debtors []party

	// Build both sides in roster order so the stable sort's tie-break is
	// the roster itself.
	for _, id := range memberIDs {
		bal := balances[id]
		switch {
		case bal.Cents > ToleranceCents:
			creditors = append(creditors, party{id: id, amount: bal})
		case bal.Cents < -ToleranceCents:
			debtors = append(debtors, party{id: id, amount: bal.Abs()})
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[j].amount.Less(creditors[i].amount)
	})
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[j].amount.Less(debtors[i].amount)
	})

	var plan []core.SettlementLine
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d := &debtors[i]
		c := &creditors[j]

		pay := d.amount.Min(c.amount)
		if pay.Cents > ToleranceCents {
			plan = append(plan, core.SettlementLine{
				FromID: d.id,
				ToID:   c.id,
				Amount: pay,
			})
		}

		d.amount = d.amount.Sub(pay)
		c.amount = c.amount.Sub(pay)

		if d.amount.Cents <= ToleranceCents {
			i++
		}
		if c.amount.Cents <= ToleranceCents {
			j++
		}
	}

	return plan
}
