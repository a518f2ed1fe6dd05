package rent

import (
	"errors"
	"testing"
	"time"

	"homesplit/internal/core"
)

var rosterIDs = []string{"hung", "thao", "thinh", "thuy"}

func units(u int64) core.Money { return core.FromUnits(u) }

func TestComputeCosts(t *testing.T) {
	items := core.RentItems{Rent: units(4000000), Wifi: units(150000)}

	tests := []struct {
		name      string
		headcount int64
		water     core.WaterMeta
		electric  core.ElectricMeta
		legacy    core.RentComputed
		want      core.RentComputed
		wantTotal core.Money
	}{
		{
			name:      "metered billing",
			headcount: 4,
			water:     core.WaterMeta{Mode: core.WaterModePerPerson, UnitPrice: units(100000)},
			electric:  core.ElectricMeta{OldKwh: 1200, NewKwh: 1275, UnitPrice: units(4000)},
			want:      core.RentComputed{WaterCost: units(400000), KwhUsed: 75, ElectricCost: units(300000)},
			wantTotal: units(4850000),
		},
		{
			name:      "meter rollback clamps usage at zero",
			headcount: 4,
			water:     core.WaterMeta{UnitPrice: units(100000)},
			electric:  core.ElectricMeta{OldKwh: 1275, NewKwh: 1200, UnitPrice: units(4000)},
			want:      core.RentComputed{WaterCost: units(400000), KwhUsed: 0, ElectricCost: core.Zero},
			wantTotal: units(4550000),
		},
		{
			name:      "missing unit prices fall back to stored costs",
			headcount: 4,
			legacy:    core.RentComputed{WaterCost: units(350000), ElectricCost: units(280000)},
			want:      core.RentComputed{WaterCost: units(350000), KwhUsed: 0, ElectricCost: units(280000)},
			wantTotal: units(4780000),
		},
		{
			name:      "zero headcount zeroes water",
			headcount: 0,
			water:     core.WaterMeta{UnitPrice: units(100000)},
			want:      core.RentComputed{WaterCost: core.Zero},
			wantTotal: units(4150000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			computed, total := ComputeCosts(items, tt.headcount, tt.water, tt.electric, tt.legacy)
			if computed != tt.want {
				t.Errorf("computed = %+v, want %+v", computed, tt.want)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %s, want %s", total, tt.wantTotal)
			}
		})
	}
}

func TestEqualShares(t *testing.T) {
	tests := []struct {
		name  string
		total core.Money
		ids   []string
		want  map[string]core.Money
	}{
		{
			name:  "even division",
			total: units(4850000),
			ids:   rosterIDs,
			want: map[string]core.Money{
				"hung": units(1212500), "thao": units(1212500),
				"thinh": units(1212500), "thuy": units(1212500),
			},
		},
		{
			name:  "remainder units go to earlier members",
			total: units(10),
			ids:   []string{"a", "b", "c"},
			want:  map[string]core.Money{"a": units(4), "b": units(3), "c": units(3)},
		},
		{
			name:  "sub-unit cents land on the first member",
			total: core.FromCents(1001),
			ids:   []string{"a", "b"},
			want:  map[string]core.Money{"a": core.FromCents(501), "b": core.FromCents(500)},
		},
		{
			name:  "empty roster yields empty map",
			total: units(100),
			ids:   nil,
			want:  map[string]core.Money{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EqualShares(tt.total, tt.ids)
			if len(got) != len(tt.want) {
				t.Fatalf("share count = %d, want %d", len(got), len(tt.want))
			}
			sum := core.Zero
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("share[%s] = %s, want %s", id, got[id], want)
				}
				sum = sum.Add(got[id])
			}
			if len(tt.ids) > 0 && sum != tt.total {
				t.Errorf("shares sum to %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestClampPaid(t *testing.T) {
	shares := map[string]core.Money{
		"hung": units(1212500), "thao": units(1212500),
		"thinh": units(1212500), "thuy": units(1212500),
	}
	paid := ClampPaid(map[string]core.Money{
		"hung":  units(500000),  // payer, must be zeroed
		"thao":  units(2000000), // over share, clamped down
		"thinh": units(-100),    // negative, clamped up
		"thuy":  units(1000000),
	}, shares, "hung")

	want := map[string]core.Money{
		"hung": core.Zero, "thao": units(1212500),
		"thinh": core.Zero, "thuy": units(1000000),
	}
	for id, w := range want {
		if paid[id] != w {
			t.Errorf("paid[%s] = %s, want %s", id, paid[id], w)
		}
	}
}

func TestValidateShares(t *testing.T) {
	total := units(4850000)
	good := map[string]core.Money{
		"hung": units(1326000), "thao": units(1787000),
		"thinh": units(1637000), "thuy": units(100000),
	}
	if err := ValidateShares(total, good); err != nil {
		t.Fatalf("exact shares rejected: %v", err)
	}

	bad := map[string]core.Money{"hung": units(4850001)}
	err := ValidateShares(total, bad)
	if !errors.Is(err, ErrSharesMismatch) {
		t.Fatalf("want ErrSharesMismatch, got %v", err)
	}
	if got := err.Error(); got == ErrSharesMismatch.Error() {
		t.Errorf("error must name the expected and actual sums, got %q", got)
	}
}

func TestValidateRecord(t *testing.T) {
	base := func() core.RentRecord {
		return core.RentRecord{
			PayerID: "hung",
			Total:   units(100),
			Shares:  map[string]core.Money{"hung": units(25), "thao": units(75)},
			Paid:    map[string]core.Money{"hung": core.Zero, "thao": units(50)},
		}
	}

	if err := ValidateRecord(base()); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*core.RentRecord)
	}{
		{"missing payer", func(r *core.RentRecord) { r.PayerID = "" }},
		{"shares drift from total", func(r *core.RentRecord) { r.Shares["thao"] = units(76) }},
		{"paid exceeds share", func(r *core.RentRecord) {
			r.Paid["thao"] = units(80)
		}},
		{"payer paid non-zero", func(r *core.RentRecord) {
			r.Paid["hung"] = units(1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base()
			tt.mutate(&rec)
			if err := ValidateRecord(rec); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	existing := core.RentRecord{
		Period:    core.Period{Year: 2026, Month: 7},
		PayerID:   "hung",
		Status:    core.RentFinalized,
		CreatedBy: "thao",
		CreatedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Computed:  core.RentComputed{WaterCost: units(350000), ElectricCost: units(280000)},
	}

	payload := core.RentRecord{
		Period:    existing.Period,
		PayerID:   "hung",
		Items:     core.RentItems{Rent: units(4000000), Wifi: units(150000), Other: units(-500)},
		Headcount: 4,
		Water:     core.WaterMeta{UnitPrice: units(100000)},
		Electric:  core.ElectricMeta{OldKwh: 1200, NewKwh: 1275, UnitPrice: units(4000)},
		SplitMode: "weird",
		Note:      "  august bill  ",
		Paid:      map[string]core.Money{"hung": units(99), "thao": units(9999999)},
	}

	rec := Normalize(payload, &existing, rosterIDs)

	if rec.Items.Other != core.Zero {
		t.Errorf("negative item must clamp to zero")
	}
	if rec.Total != units(4850000) {
		t.Errorf("total = %s, want 4850000.00", rec.Total)
	}
	if rec.SplitMode != core.SplitEqual {
		t.Errorf("unknown split mode must normalize to equal")
	}
	if rec.Shares["thuy"] != units(1212500) {
		t.Errorf("equal share = %s, want 1212500.00", rec.Shares["thuy"])
	}
	if rec.Paid["hung"] != core.Zero {
		t.Errorf("payer paid entry must be zero")
	}
	if rec.Paid["thao"] != units(1212500) {
		t.Errorf("paid must clamp to share, got %s", rec.Paid["thao"])
	}
	if rec.Water.Mode != core.WaterModePerPerson {
		t.Errorf("water mode must default to %s", core.WaterModePerPerson)
	}
	if rec.Note != "august bill" {
		t.Errorf("note = %q", rec.Note)
	}
	if rec.CreatedBy != "thao" || !rec.CreatedAt.Equal(existing.CreatedAt) {
		t.Errorf("creation metadata must carry over from the stored record")
	}
	if rec.Status != core.RentFinalized {
		t.Errorf("blank payload status must inherit the stored status")
	}
	if err := ValidateRecord(rec); err != nil {
		t.Fatalf("normalized record fails validation: %v", err)
	}
}

func TestNormalizeLegacyFallback(t *testing.T) {
	existing := core.RentRecord{
		Computed: core.RentComputed{WaterCost: units(350000), ElectricCost: units(280000)},
	}
	payload := core.RentRecord{
		PayerID:   "hung",
		Items:     core.RentItems{Rent: units(4000000)},
		Headcount: 4,
	}

	rec := Normalize(payload, &existing, rosterIDs)

	if rec.Computed.WaterCost != units(350000) || rec.Computed.ElectricCost != units(280000) {
		t.Errorf("costs must fall back to stored values, got %+v", rec.Computed)
	}
	if rec.Total != units(4630000) {
		t.Errorf("total = %s, want 4630000.00", rec.Total)
	}
}

func TestFinalize(t *testing.T) {
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	rec := Finalize(core.RentRecord{Status: core.RentDraft, Total: units(100)}, "hung", at)

	if !rec.IsFinalized() {
		t.Fatalf("record not finalized")
	}
	if rec.FinalizedBy != "hung" || !rec.FinalizedAt.Equal(at) {
		t.Errorf("finalize metadata not recorded")
	}
	if rec.Total != units(100) {
		t.Errorf("finalize must not change computed values")
	}
}
