package core

import "time"

// SplitMode selects how a rent total is divided among members.
type SplitMode string

const (
	SplitEqual  SplitMode = "equal"
	SplitCustom SplitMode = "custom"
)

// RentStatus tracks the record's lifecycle. Finalizing freezes intent
// for downstream consumers; it does not change any computed value.
type RentStatus string

const (
	RentDraft     RentStatus = "draft"
	RentFinalized RentStatus = "finalized"
)

// WaterModePerPerson bills water as unit price times headcount. It is the
// only supported mode; the field exists because stored records carry it.
const WaterModePerPerson = "perPerson"

// RentItems are the flat-rate components of a rent bill, in whole currency
// units.
type RentItems struct {
	Rent  Money `json:"rent"`
	Wifi  Money `json:"wifi"`
	Other Money `json:"other"`
}

// Sum is the flat-rate portion of the bill.
func (it RentItems) Sum() Money {
	return it.Rent.Add(it.Wifi).Add(it.Other)
}

// WaterMeta describes water billing: a per-person unit price.
type WaterMeta struct {
	Mode      string `json:"mode"`
	UnitPrice Money  `json:"unitPrice"`
}

// ElectricMeta describes electric billing: meter readings and a per-kWh price.
type ElectricMeta struct {
	OldKwh    int64 `json:"oldKwh"`
	NewKwh    int64 `json:"newKwh"`
	UnitPrice Money `json:"unitPrice"`
}

// RentComputed holds the derived utility costs stored alongside the record.
type RentComputed struct {
	WaterCost    Money `json:"waterCost"`
	KwhUsed      int64 `json:"kwhUsed"`
	ElectricCost Money `json:"electricCost"`
}

// RentRecord is the monthly rent bill: flat items plus metered utilities,
// split into per-member shares with paid-versus-owed tracking.
//
// Invariants maintained by the rent package: sum(Shares) equals Total exactly;
// every Paid entry is clamped to [0, share]; the payer's own Paid entry is
// always zero (the payer cannot owe or pay themself).
type RentRecord struct {
	Period      Period           `json:"period"`
	PayerID     string           `json:"payerId"`
	Items       RentItems        `json:"items"`
	Headcount   int64            `json:"headcount"`
	Water       WaterMeta        `json:"water"`
	Electric    ElectricMeta     `json:"electric"`
	Computed    RentComputed     `json:"computed"`
	Total       Money            `json:"total"`
	SplitMode   SplitMode        `json:"splitMode"`
	Shares      map[string]Money `json:"shares"`
	Paid        map[string]Money `json:"paid"`
	Note        string           `json:"note,omitempty"`
	Status      RentStatus       `json:"status"`
	FinalizedAt time.Time        `json:"finalizedAt"`
	FinalizedBy string           `json:"finalizedBy,omitempty"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (r RentRecord) IsFinalized() bool {
	return r.Status == RentFinalized
}
