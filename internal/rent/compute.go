// Package rent allocates a monthly rent bill: it derives utility costs from
// metered inputs, totals the bill, and splits it into per-member shares with
// paid-versus-owed tracking.
//
// Like the settlement engine, everything here is pure: callers pass records in
// and get fresh records back. Persistence and edit policy live with the caller.
package rent

import (
	"strings"
	"time"

	"homesplit/internal/core"
)

func clampNonNeg(m core.Money) core.Money {
	if m.IsNegative() {
		return core.Zero
	}
	return m
}

func clampNonNegInt(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// ComputeCosts derives water and electric costs and the bill total.
//
// Water bills per head: unit price times headcount. Electric bills per kWh:
// unit price times max(newKwh-oldKwh, 0). When a unit price is absent the
// previously stored cost is carried forward; old records predate metered
// billing and only kept a flat cost.
func ComputeCosts(items core.RentItems, headcount int64, water core.WaterMeta, electric core.ElectricMeta, legacy core.RentComputed) (core.RentComputed, core.Money) {
	headcount = clampNonNegInt(headcount)

	var computed core.RentComputed
	if water.UnitPrice.IsPositive() {
		computed.WaterCost = water.UnitPrice.MulInt(headcount)
	} else {
		computed.WaterCost = clampNonNeg(legacy.WaterCost)
	}

	if electric.UnitPrice.IsPositive() {
		oldKwh := clampNonNegInt(electric.OldKwh)
		newKwh := clampNonNegInt(electric.NewKwh)
		if newKwh > oldKwh {
			computed.KwhUsed = newKwh - oldKwh
		}
		computed.ElectricCost = electric.UnitPrice.MulInt(computed.KwhUsed)
	} else {
		computed.ElectricCost = clampNonNeg(legacy.ElectricCost)
	}

	total := items.Sum().Add(computed.WaterCost).Add(computed.ElectricCost)
	return computed, total
}

// EqualShares splits total across memberIDs in whole currency units so that
// the shares sum to total exactly. The base share is floor(units/n); the
// remaining units go one at a time to members in roster order. Any sub-unit
// cents land on the first member.
func EqualShares(total core.Money, memberIDs []string) map[string]core.Money {
	shares := make(map[string]core.Money, len(memberIDs))
	n := int64(len(memberIDs))
	if n == 0 {
		return shares
	}

	units := total.Units()
	base := units / n
	remainder := units - base*n
	subCents := total.Cents - units*100

	for i, id := range memberIDs {
		share := base
		if remainder > 0 {
			share++
			remainder--
		}
		m := core.FromUnits(share)
		if i == 0 {
			m = m.Add(core.FromCents(subCents))
		}
		shares[id] = m
	}
	return shares
}

// ClampPaid returns a paid map with one entry per share holder. Each amount is
// clamped to [0, share]; over-payment goes through the payment flow, not here.
// The payer's entry is forced to zero since the payer cannot pay themself.
func ClampPaid(paid, shares map[string]core.Money, payerID string) map[string]core.Money {
	out := make(map[string]core.Money, len(shares))
	for id, share := range shares {
		if id == payerID {
			out[id] = core.Zero
			continue
		}
		out[id] = clampNonNeg(paid[id]).Min(clampNonNeg(share))
	}
	return out
}

// Normalize sanitizes an incoming rent payload against the stored record (nil
// when none exists) and recomputes its derived fields. Amounts and readings
// are clamped non-negative, costs and total are recomputed with the stored
// record's costs as legacy fallback, equal splits are rebuilt over memberIDs,
// paid entries are clamped, and creation and finalization metadata is carried
// over from the stored record when the payload leaves it blank.
func Normalize(payload core.RentRecord, existing *core.RentRecord, memberIDs []string) core.RentRecord {
	rec := payload

	rec.Items = core.RentItems{
		Rent:  clampNonNeg(payload.Items.Rent),
		Wifi:  clampNonNeg(payload.Items.Wifi),
		Other: clampNonNeg(payload.Items.Other),
	}
	rec.Headcount = clampNonNegInt(payload.Headcount)
	rec.Water = core.WaterMeta{
		Mode:      payload.Water.Mode,
		UnitPrice: clampNonNeg(payload.Water.UnitPrice),
	}
	if rec.Water.Mode == "" {
		rec.Water.Mode = core.WaterModePerPerson
	}
	rec.Electric = core.ElectricMeta{
		OldKwh:    clampNonNegInt(payload.Electric.OldKwh),
		NewKwh:    clampNonNegInt(payload.Electric.NewKwh),
		UnitPrice: clampNonNeg(payload.Electric.UnitPrice),
	}
	rec.Note = strings.TrimSpace(payload.Note)

	if payload.SplitMode != core.SplitCustom {
		rec.SplitMode = core.SplitEqual
	}

	var legacy core.RentComputed
	if existing != nil {
		legacy = existing.Computed
	}
	rec.Computed, rec.Total = ComputeCosts(rec.Items, rec.Headcount, rec.Water, rec.Electric, legacy)

	if rec.SplitMode == core.SplitEqual {
		rec.Shares = EqualShares(rec.Total, memberIDs)
	} else {
		shares := make(map[string]core.Money, len(payload.Shares))
		for id, amount := range payload.Shares {
			shares[id] = clampNonNeg(amount)
		}
		rec.Shares = shares
	}
	rec.Paid = ClampPaid(payload.Paid, rec.Shares, rec.PayerID)

	if existing != nil {
		if existing.CreatedBy != "" {
			rec.CreatedBy = existing.CreatedBy
		}
		if !existing.CreatedAt.IsZero() {
			rec.CreatedAt = existing.CreatedAt
		}
		if payload.Status == "" {
			rec.Status = existing.Status
		}
		if payload.FinalizedAt.IsZero() {
			rec.FinalizedAt = existing.FinalizedAt
		}
		if payload.FinalizedBy == "" {
			rec.FinalizedBy = existing.FinalizedBy
		}
	}
	if rec.Status != core.RentFinalized {
		rec.Status = core.RentDraft
	}
	return rec
}

// Finalize freezes the record's intent for downstream consumers. No computed
// value changes; callers decide whether a finalized record may still be edited.
func Finalize(rec core.RentRecord, by string, at time.Time) core.RentRecord {
	rec.Status = core.RentFinalized
	rec.FinalizedAt = at
	rec.FinalizedBy = by
	rec.UpdatedAt = at
	return rec
}
