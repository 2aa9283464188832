package service

import (
	"encoding/json"
	"strings"

	"github.com/ckfr/ops-allocation/internal/model"
)

// ParseCrewNames reads a crew roster entry.  JSON is tried first: an array
// of names, an array of {"name": ...} objects, or a string holding either.
// Anything that is not JSON is read as one name per non-blank line.  Blank
// names are dropped; order is preserved.
func ParseCrewNames(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if names, ok := parseCrewJSON([]byte(raw), 0); ok {
		return names
	}
	return splitLines(raw)
}

func parseCrewJSON(data []byte, depth int) ([]string, bool) {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return clean(names), true
	}
	var objs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &objs); err == nil {
		out := make([]string, 0, len(objs))
		for _, o := range objs {
			out = append(out, o.Name)
		}
		return clean(out), true
	}
	var s string
	if depth == 0 && json.Unmarshal(data, &s) == nil {
		if inner, ok := parseCrewJSON([]byte(strings.TrimSpace(s)), depth+1); ok {
			return inner, true
		}
		return splitLines(s), true
	}
	return nil, false
}

func splitLines(s string) []string {
	return clean(strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n"))
}

func clean(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// CrewAssignments turns per-role name lists into roster rows numbered from
// 0 within each role.  Roles are emitted in model.CrewRoles order; unknown
// roles are returned in the second result.
func CrewAssignments(byRole map[string][]string) ([]model.CrewAssignment, []string) {
	var (
		out     []model.CrewAssignment
		unknown []string
	)
	for role := range byRole {
		if !model.ValidCrewRole(role) {
			unknown = append(unknown, role)
		}
	}
	for _, role := range model.CrewRoles {
		for i, name := range byRole[role] {
			out = append(out, model.CrewAssignment{Role: role, CrewName: name, Order: i})
		}
	}
	return out, unknown
}
