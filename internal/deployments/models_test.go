package deployments

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromFields_AliasPrecedence(t *testing.T) {
	tests := []struct {
		in   map[string]string
		want string
	}{
		{map[string]string{"id": "A"}, "A"},
		{map[string]string{"Deployment ID": "B"}, "B"},
		{map[string]string{"id": "A", "Deployment ID": "B"}, "B"},
		{map[string]string{"id": "A", "Deployment ID": ""}, "A"},
		{map[string]string{"Status": "Pending"}, ""},
	}
	for _, tc := range tests {
		r := FromFields(tc.in)
		if r.ID != tc.want {
			t.Fatalf("FromFields(%v).ID = %q, want %q", tc.in, r.ID, tc.want)
		}
		if _, ok := r.Values["id"]; ok {
			t.Fatalf("alias leaked into values: %v", r.Values)
		}
	}
}

func TestRecord_JSONBoundary(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"id":"DEP-1","Status":"Pending","Units":3,"Urgent":true,"Notes":null}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Record{ID: "DEP-1", Values: map[string]string{"Status": "Pending", "Units": "3", "Urgent": "true", "Notes": ""}}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal out: %v", err)
	}
	if out["Deployment ID"] != "DEP-1" || out["id"] != "DEP-1" {
		t.Fatalf("expected both aliases, got %v", out)
	}

	if err := json.Unmarshal([]byte(`{"Status":{"nested":true}}`), &r); err == nil {
		t.Fatalf("expected error for nested object")
	}
}

func TestIsTerminalStatus(t *testing.T) {
	if !IsTerminalStatus(StatusDeployed) || !IsTerminalStatus(StatusCompleted) || IsTerminalStatus(StatusOnHold) {
		t.Fatalf("unexpected terminal status classification")
	}
}
