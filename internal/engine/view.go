package engine

import "homesplit/internal/core"

// MonthlyView is the composed pipeline output the dashboard renders: the
// gross matrix, payment-adjusted balances, the settlement plan and the plan
// projected back to matrix form.
type MonthlyView struct {
	Gross          Matrix                `json:"grossMatrix"`
	Balances       Balances              `json:"balances"`
	SettlementPlan []core.SettlementLine `json:"settlementPlan"`
	SettleMatrix   Matrix                `json:"settleMatrix"`
}

// BuildMonthlyView runs the whole pipeline over one month's records.
func BuildMonthlyView(roster core.Roster, expenses []core.Expense, payments []core.Payment) MonthlyView {
	ids := roster.IDs()
	gross := BuildGrossMatrix(ids, expenses)
	balances := ApplyPaymentsToBalances(NetBalances(ids, gross), payments)
	plan := Settle(ids, balances)

	return MonthlyView{
		Gross:          gross,
		Balances:       balances,
		SettlementPlan: plan,
		SettleMatrix:   BuildSettleMatrix(ids, plan),
	}
}
