package sheets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode_ShortRowsBecomeEmpty(t *testing.T) {
	headers := []string{"Deployment ID", "Status", "Assigned To"}
	got := Decode(headers, []string{"DEP-1"})
	want := map[string]string{"Deployment ID": "DEP-1", "Status": "", "Assigned To": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_SkipsBlankHeaders(t *testing.T) {
	got := Decode([]string{"A", "", "C"}, []string{"1", "2", "3"})
	if _, ok := got[""]; ok {
		t.Fatalf("blank header should not produce a field")
	}
	if got["C"] != "3" {
		t.Fatalf("expected C=3, got %q", got["C"])
	}
}

func TestRecords_IsRestartable(t *testing.T) {
	headers := []string{"ID", "Status"}
	rows := [][]string{{"1", "Pending"}, {"2", "Completed"}}
	seq := Records(headers, rows)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if count() != 2 || count() != 2 {
		t.Fatalf("expected sequence to yield 2 records on every pass")
	}

	for i, rec := range seq {
		if i == 1 && rec["Status"] != "Completed" {
			t.Fatalf("unexpected record at 1: %v", rec)
		}
	}
}

func TestRecords_StopsEarly(t *testing.T) {
	rows := [][]string{{"1"}, {"2"}, {"3"}}
	seen := 0
	for range Records([]string{"ID"}, rows) {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("expected early stop, saw %d", seen)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	headers := []string{"Deployment ID", "Status", "Assigned To", "Location"}
	rows := [][]string{
		{"DEP-1", "Pending", "Alice", "HQ"},
		{"DEP-2", "", "Bob", ""},
		{"", "", "", ""},
	}
	for _, row := range rows {
		rec := Decode(headers, row)
		if diff := cmp.Diff(row, Encode(headers, rec, rec)); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEncode_FallbackFillsOmittedFields(t *testing.T) {
	headers := []string{"Deployment ID", "Status", "Assigned To"}
	current := map[string]string{"Deployment ID": "DEP-1", "Status": "Pending", "Assigned To": "Alice"}
	patch := map[string]string{"Status": "Completed", "Unknown": "ignored"}

	got := Encode(headers, patch, current)
	want := []string{"DEP-1", "Completed", "Alice"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("encode mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_ExplicitEmptyValueWins(t *testing.T) {
	headers := []string{"Status", "Notes"}
	got := Encode(headers, map[string]string{"Notes": ""}, map[string]string{"Status": "Pending", "Notes": "old"})
	if got[1] != "" {
		t.Fatalf("expected explicit empty value to clear Notes, got %q", got[1])
	}
	if got[0] != "Pending" {
		t.Fatalf("expected Status preserved, got %q", got[0])
	}
}

func TestEncode_NoFallback(t *testing.T) {
	got := Encode([]string{"A", "B"}, map[string]string{"A": "x"}, nil)
	if diff := cmp.Diff([]string{"x", ""}, got); diff != "" {
		t.Fatalf("encode mismatch (-want +got):\n%s", diff)
	}
}
