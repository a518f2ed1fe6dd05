package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// Freeze returns a copy of the report stamped as a snapshot. The numeric
// content is untouched; only Meta changes.
func Freeze(r *MonthlyReport, at time.Time, by string) *MonthlyReport {
	frozen := *r
	frozen.Meta = Meta{
		Source:     SourceSnapshot,
		SnapshotAt: at.UTC(),
		SnapshotBy: by,
		Version:    Version,
	}
	return &frozen
}

// EncodeSnapshot marshals a frozen report for persistence. The stored bytes
// are the report itself; reading a snapshot never recomputes anything.
func EncodeSnapshot(r *MonthlyReport) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report snapshot for %s: %w", r.Period, err)
	}
	return data, nil
}

// DecodeSnapshot restores a persisted report verbatim.
func DecodeSnapshot(data []byte) (*MonthlyReport, error) {
	var r MonthlyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report snapshot: %w", err)
	}
	r.Meta.Source = SourceSnapshot
	return &r, nil
}
