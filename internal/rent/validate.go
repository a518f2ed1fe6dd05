package rent

import (
	"errors"
	"fmt"

	"homesplit/internal/core"
)

// ErrSharesMismatch reports custom shares that do not sum to the bill total.
var ErrSharesMismatch = errors.New("rent shares do not sum to total")

// ValidateShares checks that shares exhaust total exactly. The allocation is
// rejected, never auto-corrected; the caller must block persistence on error.
func ValidateShares(total core.Money, shares map[string]core.Money) error {
	sum := core.SumMoney(shares)
	if sum != total {
		return fmt.Errorf("%w: shares sum to %s, total is %s", ErrSharesMismatch, sum, total)
	}
	return nil
}

// ValidateRecord checks the invariants a rent record must hold before it is
// persisted: shares sum to total, paid entries stay within shares, and the
// payer's own paid entry is zero.
func ValidateRecord(rec core.RentRecord) error {
	if rec.PayerID == "" {
		return fmt.Errorf("rent record for %s: %w", rec.Period, core.ErrMissingMember)
	}
	if err := ValidateShares(rec.Total, rec.Shares); err != nil {
		return err
	}
	for id, paid := range rec.Paid {
		if paid.IsNegative() {
			return fmt.Errorf("paid amount for %s is negative: %s", id, paid)
		}
		if id == rec.PayerID {
			if !paid.IsZero() {
				return fmt.Errorf("payer %s has a non-zero paid entry: %s", id, paid)
			}
			continue
		}
		if share := rec.Shares[id]; share.Less(paid) {
			return fmt.Errorf("paid amount for %s exceeds share: %s > %s", id, paid, share)
		}
	}
	return nil
}
