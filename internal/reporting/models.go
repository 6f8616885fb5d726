package reporting

import "time"

// TimeRange filters on the Deployment Date column. Zero bounds are open.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Contains reports whether t is in [From, To).
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// SummaryRequest narrows the dashboard. The zero value summarizes every record.
type SummaryRequest struct {
	Range      TimeRange `json:"range"`
	AssignedTo string    `json:"assigned_to,omitempty"`
}

// Summary aggregates deployment records for the dashboard.
//
// Completed counts Completed and Deployed. Open counts everything that is
// neither completed nor Cancelled. CompletionRate is Completed over the
// non-cancelled total, 0 when there are none.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Open      int `json:"open"`
	Pending   int `json:"pending"`

	CompletionRate float64 `json:"completion_rate"`

	ByStatus     map[string]int `json:"by_status"`
	ByPriority   map[string]int `json:"by_priority"`
	ByLocation   map[string]int `json:"by_location"`
	ByAssignee   map[string]int `json:"by_assignee"`
	Unassigned   int            `json:"unassigned"`
	UndatedCount int            `json:"undated"`
}
