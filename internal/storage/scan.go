package storage

import (
	"fmt"

	"homesplit/internal/core"
)

// moneyScanner reads an integer cents column into a core.Money.
type moneyScanner struct {
	m *core.Money
}

func (s *moneyScanner) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s.m = core.FromCents(v)
		return nil
	case nil:
		*s.m = core.Zero
		return nil
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
}

type splitModeScanner core.SplitMode

func (s *splitModeScanner) Scan(src any) error {
	v, ok := src.(string)
	if !ok {
		return fmt.Errorf("scan split mode: unsupported type %T", src)
	}
	*s = splitModeScanner(v)
	return nil
}

type statusScanner core.RentStatus

func (s *statusScanner) Scan(src any) error {
	v, ok := src.(string)
	if !ok {
		return fmt.Errorf("scan rent status: unsupported type %T", src)
	}
	*s = statusScanner(v)
	return nil
}
