// Package report aggregates one month of ledger activity into a report
// structure: stats, net balances, the settlement plan, a rent summary and one
// summary row per member.
//
// A report is plain data. The same structure serves both the live path
// (recomputed from current inputs) and the snapshot path (a frozen copy
// persisted once and re-read verbatim); the two differ only in Meta.
package report

import (
	"time"

	"homesplit/internal/core"
	"homesplit/internal/engine"
)

// Source values for Meta.Source.
const (
	SourceLive     = "live"
	SourceSnapshot = "snapshot"
)

// Version stamps persisted snapshots so their shape can evolve.
const Version = 1

// Stats counts and totals the month's activity.
type Stats struct {
	ExpenseCount    int        `json:"expenseCount"`
	PaymentCount    int        `json:"paymentCount"`
	ExpenseTotal    core.Money `json:"expenseTotal"`
	PaymentTotal    core.Money `json:"paymentTotal"`
	RentTotal       core.Money `json:"rentTotal"`
	SettlementCount int        `json:"settlementCount"`
}

// RentSummary condenses the month's rent record. Collected and Remaining sum
// over non-payer members only; the payer fronts the bill and owes nothing.
type RentSummary struct {
	PayerID   string                `json:"payerId"`
	Total     core.Money            `json:"total"`
	Collected core.Money            `json:"collected"`
	Remaining core.Money            `json:"remaining"`
	Shares    map[string]core.Money `json:"shares"`
	Paid      map[string]core.Money `json:"paid"`
	Note      string                `json:"note"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// MemberSummary is one roster member's row: settlement balance next to rent
// standing.
type MemberSummary struct {
	MemberID      string     `json:"memberId"`
	Name          string     `json:"name"`
	NetBalance    core.Money `json:"netBalance"`
	RentShare     core.Money `json:"rentShare"`
	RentPaid      core.Money `json:"rentPaid"`
	RentRemaining core.Money `json:"rentRemaining"`
}

// Meta records where a report came from.
type Meta struct {
	Source     string    `json:"source"`
	SnapshotAt time.Time `json:"snapshotAt"`
	SnapshotBy string    `json:"snapshotBy"`
	Version    int       `json:"reportVersion"`
}

// MonthlyReport is the aggregated month view.
type MonthlyReport struct {
	Period          core.Period           `json:"period"`
	Stats           Stats                 `json:"stats"`
	Balances        engine.Balances       `json:"balances"`
	SettlementPlan  []core.SettlementLine `json:"settlementPlan"`
	RentSummary     *RentSummary          `json:"rentSummary"`
	MemberSummaries []MemberSummary       `json:"memberSummaries"`
	Meta            Meta                  `json:"meta"`
}

// Input is everything Build needs, already loaded and deserialized.
type Input struct {
	Period   core.Period
	Roster   core.Roster
	Expenses []core.Expense
	Payments []core.Payment
	Rent     *core.RentRecord
}

// Build computes a live monthly report. It runs the settlement pipeline over
// the expenses and payments, summarizes the rent record when one exists, and
// joins both into per-member rows. Given equal inputs the output is identical
// field for field, which is what lets a snapshot be a frozen copy of this
// same structure rather than a separately computed view.
func Build(in Input) *MonthlyReport {
	memberIDs := in.Roster.IDs()

	gross := engine.BuildGrossMatrix(memberIDs, in.Expenses)
	balances := engine.ApplyPaymentsToBalances(engine.NetBalances(memberIDs, gross), in.Payments)
	plan := engine.Settle(memberIDs, balances)
	if plan == nil {
		plan = []core.SettlementLine{}
	}

	rentSummary := buildRentSummary(in.Rent)
	report := &MonthlyReport{
		Period: in.Period,
		Stats: Stats{
			ExpenseCount:    len(in.Expenses),
			PaymentCount:    len(in.Payments),
			ExpenseTotal:    sumExpenses(in.Expenses),
			PaymentTotal:    sumPayments(in.Payments),
			SettlementCount: len(plan),
		},
		Balances:        balances,
		SettlementPlan:  plan,
		RentSummary:     rentSummary,
		MemberSummaries: buildMemberSummaries(in.Roster, balances, rentSummary),
		Meta:            Meta{Source: SourceLive, Version: Version},
	}
	if rentSummary != nil {
		report.Stats.RentTotal = rentSummary.Total
	}
	return report
}

func sumExpenses(expenses []core.Expense) core.Money {
	total := core.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func sumPayments(payments []core.Payment) core.Money {
	total := core.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

func buildRentSummary(rent *core.RentRecord) *RentSummary {
	if rent == nil {
		return nil
	}

	collected := core.Zero
	for id, paid := range rent.Paid {
		if id == rent.PayerID {
			continue
		}
		collected = collected.Add(paid)
	}

	remaining := core.Zero
	for id, share := range rent.Shares {
		if id == rent.PayerID {
			continue
		}
		if owed := share.Sub(rent.Paid[id]); owed.IsPositive() {
			remaining = remaining.Add(owed)
		}
	}

	shares := make(map[string]core.Money, len(rent.Shares))
	for id, v := range rent.Shares {
		shares[id] = v
	}
	paid := make(map[string]core.Money, len(rent.Paid))
	for id, v := range rent.Paid {
		paid[id] = v
	}

	return &RentSummary{
		PayerID:   rent.PayerID,
		Total:     rent.Total,
		Collected: collected,
		Remaining: remaining,
		Shares:    shares,
		Paid:      paid,
		Note:      rent.Note,
		UpdatedAt: rent.UpdatedAt,
	}
}

func buildMemberSummaries(roster core.Roster, balances engine.Balances, rent *RentSummary) []MemberSummary {
	rows := make([]MemberSummary, 0, len(roster))
	for _, member := range roster {
		row := MemberSummary{
			MemberID:   member.ID,
			Name:       member.Name,
			NetBalance: balances[member.ID],
		}
		if rent != nil {
			row.RentShare = rent.Shares[member.ID]
			row.RentPaid = rent.Paid[member.ID]
			if member.ID != rent.PayerID {
				if owed := row.RentShare.Sub(row.RentPaid); owed.IsPositive() {
					row.RentRemaining = owed
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}
