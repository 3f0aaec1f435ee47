package models

import "testing"

func TestRawRecordLookup_FoldedHeaders(t *testing.T) {
	row := RawRecord{"Sales Order": "SO-A", "sales_order": "SO-B", "MTM": "M1"}

	for i := 0; i < 50; i++ {
		if got := row.String("salesOrder"); got != "SO-A" {
			t.Fatalf("run %d: expected the smallest matching header to win, got %q", i, got)
		}
	}
	if got := row.String("mtm"); got != "M1" {
		t.Fatalf("expected folded MTM header, got %q", got)
	}

	exact := RawRecord{"salesOrder": "SO-X", "Sales Order": "SO-A"}
	if got := exact.String("salesOrder"); got != "SO-X" {
		t.Fatalf("expected an exact header to win over a folded one, got %q", got)
	}
	if _, ok := exact.Lookup("serialNumber", "sn"); ok {
		t.Fatalf("expected no match for an absent header")
	}
}
