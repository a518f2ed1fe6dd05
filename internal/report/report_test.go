package report

import (
	"bytes"
	"testing"
	"time"

	"homesplit/internal/core"
)

var roster = core.Roster{
	{ID: "hung", Name: "Hưng"},
	{ID: "thao", Name: "Thảo"},
	{ID: "thinh", Name: "Thịnh"},
	{ID: "thuy", Name: "Thùy"},
}

func units(u int64) core.Money { return core.FromUnits(u) }

func sampleInput() Input {
	return Input{
		Period: core.Period{Year: 2026, Month: 8},
		Roster: roster,
		Expenses: []core.Expense{{
			PayerID: "hung",
			Amount:  units(300000),
			Debts: map[string]core.Money{
				"thao": units(100000), "thinh": units(100000), "thuy": units(100000),
			},
		}},
		Payments: []core.Payment{
			{FromID: "thao", ToID: "hung", Amount: units(50000)},
		},
		Rent: &core.RentRecord{
			Period:  core.Period{Year: 2026, Month: 8},
			PayerID: "hung",
			Total:   units(4850000),
			Shares: map[string]core.Money{
				"hung": units(1212500), "thao": units(1212500),
				"thinh": units(1212500), "thuy": units(1212500),
			},
			Paid: map[string]core.Money{
				"hung": core.Zero, "thao": units(1212500),
				"thinh": units(500000), "thuy": core.Zero,
			},
			Note:      "august",
			UpdatedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuild(t *testing.T) {
	r := Build(sampleInput())

	wantStats := Stats{
		ExpenseCount:    1,
		PaymentCount:    1,
		ExpenseTotal:    units(300000),
		PaymentTotal:    units(50000),
		RentTotal:       units(4850000),
		SettlementCount: 3,
	}
	if r.Stats != wantStats {
		t.Errorf("stats = %+v, want %+v", r.Stats, wantStats)
	}

	if r.Balances["hung"] != units(250000) || r.Balances["thao"] != units(-50000) {
		t.Errorf("balances = %v", r.Balances)
	}

	if r.Meta.Source != SourceLive || r.Meta.Version != Version {
		t.Errorf("meta = %+v", r.Meta)
	}

	// Rent summary excludes the payer from collected and remaining.
	rs := r.RentSummary
	if rs == nil {
		t.Fatal("missing rent summary")
	}
	if rs.Collected != units(1712500) {
		t.Errorf("collected = %s, want 1712500.00", rs.Collected)
	}
	if rs.Remaining != units(1925000) {
		t.Errorf("remaining = %s, want 1925000.00", rs.Remaining)
	}

	if len(r.MemberSummaries) != 4 {
		t.Fatalf("member rows = %d, want 4", len(r.MemberSummaries))
	}
	byID := map[string]MemberSummary{}
	for _, row := range r.MemberSummaries {
		byID[row.MemberID] = row
	}
	if row := byID["hung"]; row.RentRemaining != core.Zero {
		t.Errorf("payer rent remaining = %s, want 0", row.RentRemaining)
	}
	if row := byID["thinh"]; row.RentRemaining != units(712500) {
		t.Errorf("thinh rent remaining = %s, want 712500.00", row.RentRemaining)
	}
	if row := byID["thao"]; row.NetBalance != units(-50000) || row.RentRemaining != core.Zero {
		t.Errorf("thao row = %+v", row)
	}

	// Rows follow roster order.
	if r.MemberSummaries[0].MemberID != "hung" || r.MemberSummaries[3].MemberID != "thuy" {
		t.Errorf("member rows not in roster order")
	}
}

func TestBuildEmptyMonth(t *testing.T) {
	r := Build(Input{Period: core.Period{Year: 2026, Month: 1}, Roster: roster})

	if r.Stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", r.Stats)
	}
	if r.SettlementPlan == nil || len(r.SettlementPlan) != 0 {
		t.Errorf("plan must be empty, not nil")
	}
	if r.RentSummary != nil {
		t.Errorf("no rent record must mean no rent summary")
	}
	for _, row := range r.MemberSummaries {
		if row.NetBalance != core.Zero {
			t.Errorf("%s balance = %s, want 0", row.MemberID, row.NetBalance)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := EncodeSnapshot(Build(sampleInput()))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := EncodeSnapshot(Build(sampleInput()))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d produced different bytes", i)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	live := Build(sampleInput())
	at := time.Date(2026, 9, 1, 0, 5, 0, 0, time.UTC)

	frozen := Freeze(live, at, "hung")
	if live.Meta.Source != SourceLive {
		t.Fatalf("freeze must not mutate the live report")
	}
	if frozen.Meta.Source != SourceSnapshot || frozen.Meta.SnapshotBy != "hung" {
		t.Fatalf("snapshot meta = %+v", frozen.Meta)
	}
	if frozen.Stats != live.Stats {
		t.Fatalf("freezing changed numeric content")
	}

	data, err := EncodeSnapshot(frozen)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}

	// A re-encoded snapshot is byte-identical to what was stored.
	again, err := EncodeSnapshot(restored)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("snapshot round trip not byte-identical:\n%s\n%s", data, again)
	}

	if restored.Balances["hung"] != units(250000) {
		t.Errorf("restored balance = %s", restored.Balances["hung"])
	}
	if !restored.Meta.SnapshotAt.Equal(at) {
		t.Errorf("restored snapshotAt = %s", restored.Meta.SnapshotAt)
	}
}
