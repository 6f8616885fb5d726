package deployments

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Identifier aliases as they appear in the sheet header and in API payloads.
// Inside this package a record carries a single canonical ID; the aliases exist
// only at the boundary (FromFields, Record.Fields, JSON).
const (
	FieldID           = "id"
	FieldDeploymentID = "Deployment ID"
)

// Well-known columns. The store treats every column as opaque; these names are
// used by reporting and the API.
const (
	FieldStatus         = "Status"
	FieldAssignedTo     = "Assigned To"
	FieldLocation       = "Location"
	FieldPriority       = "Priority"
	FieldDeploymentDate = "Deployment Date"
)

// Status vocabulary used by clients. Transitions are not enforced here; any
// string may be written to the Status column.
const (
	StatusPending       = "Pending"
	StatusAssigned      = "Assigned"
	StatusInProgress    = "In Progress"
	StatusReadyToDeploy = "Ready to Deploy"
	StatusCancelled     = "Cancelled"
	StatusOnHold        = "On Hold"
	StatusCompleted     = "Completed"
	StatusDeployed      = "Deployed"
)

// IsTerminalStatus reports whether status marks a finished deployment.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusDeployed
}

// Record is one deployment row: a canonical identifier plus an open-ended
// field bag. Values never contains the identifier aliases.
type Record struct {
	ID     string
	Values map[string]string
}

// FromFields builds a Record from a flat field map. "Deployment ID" wins over
// "id" when both are non-empty.
func FromFields(fields map[string]string) Record {
	r := Record{Values: make(map[string]string, len(fields))}
	for k, v := range fields {
		if isAlias(k) {
			continue
		}
		r.Values[k] = v
	}
	switch {
	case fields[FieldDeploymentID] != "":
		r.ID = fields[FieldDeploymentID]
	case fields[FieldID] != "":
		r.ID = fields[FieldID]
	}
	return r
}

// Fields returns a flat copy of the record with both identifier aliases set.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.Values)+2)
	for k, v := range r.Values {
		out[k] = v
	}
	if r.ID != "" {
		out[FieldID] = r.ID
		out[FieldDeploymentID] = r.ID
	}
	return out
}

// Get returns a field value; the aliases resolve to ID.
func (r Record) Get(field string) string {
	if isAlias(field) {
		return r.ID
	}
	return r.Values[field]
}

// FieldNames returns the non-identifier field names in sorted order.
func (r Record) FieldNames() []string {
	out := make([]string, 0, len(r.Values))
	for k := range r.Values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// UnmarshalJSON accepts a flat object. Non-string scalars (numbers, booleans)
// are stored in their JSON text form; null becomes the empty string.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = s
	}
	*r = FromFields(fields)
	return nil
}

func scalarString(v json.RawMessage) (string, error) {
	var anyV any
	if err := json.Unmarshal(v, &anyV); err != nil {
		return "", err
	}
	switch t := anyV.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(v))
	}
}

func isAlias(field string) bool {
	return field == FieldID || field == FieldDeploymentID
}

// UpdateResult describes a completed row write.
type UpdateResult struct {
	DeploymentID  string   `json:"deploymentId"`
	FieldsUpdated []string `json:"fieldsUpdated"`
	// Row is the 1-based sheet row that was written.
	Row int `json:"-"`
}
