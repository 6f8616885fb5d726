package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"deployment-tracker/internal/deployments"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Source is the read side of the deployment store.
type Source interface {
	ListAll(ctx context.Context) ([]deployments.Record, error)
}

// unknownKey groups records with an empty value in a grouped column.
const unknownKey = "Unspecified"

// Accepted Deployment Date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

type Service struct {
	src Source
}

func NewService(src Source) *Service { return &Service{src: src} }

// Summary reads every record once and aggregates it. Rows without an
// identifier are skipped.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if !req.Range.From.IsZero() && !req.Range.To.IsZero() && !req.Range.To.After(req.Range.From) {
		return Summary{}, ErrInvalidRequest
	}
	if s.src == nil {
		return Summary{}, errors.New("reporting: source not configured")
	}

	rows, err := s.src.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByLocation: map[string]int{},
		ByAssignee: map[string]int{},
	}
	assignee := strings.TrimSpace(req.AssignedTo)
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		if assignee != "" && !strings.EqualFold(strings.TrimSpace(r.Get(deployments.FieldAssignedTo)), assignee) {
			continue
		}
		if !req.Range.IsZero() {
			d, ok := ParseDate(r.Get(deployments.FieldDeploymentDate))
			if !ok {
				out.UndatedCount++
				continue
			}
			if !req.Range.Contains(d) {
				continue
			}
		}

		status := strings.TrimSpace(r.Get(deployments.FieldStatus))
		out.Total++
		switch {
		case deployments.IsTerminalStatus(status):
			out.Completed++
		case status == deployments.StatusCancelled:
			out.Cancelled++
		default:
			out.Open++
			if status == deployments.StatusPending || status == "" {
				out.Pending++
			}
		}

		out.ByStatus[keyOf(status)]++
		out.ByPriority[keyOf(r.Get(deployments.FieldPriority))]++
		out.ByLocation[keyOf(r.Get(deployments.FieldLocation))]++
		who := strings.TrimSpace(r.Get(deployments.FieldAssignedTo))
		if who == "" {
			out.Unassigned++
		} else {
			out.ByAssignee[who]++
		}
	}
	if active := out.Total - out.Cancelled; active > 0 {
		out.CompletionRate = float64(out.Completed) / float64(active)
	}
	return out, nil
}

// ParseDate parses a Deployment Date cell in any accepted layout.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func keyOf(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return unknownKey
	}
	return v
}
