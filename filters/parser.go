// Package filters parses advanced dashboard filters of the form
// "field:operator:value". It does not know which fields or operators are
// meaningful; the query package decides that.
package filters

import (
	"strings"

	"civictrack-be/apperr"
)

type Criteria struct {
	Field    string
	Operator string
	Value    string
}

// Parse splits each entry on its first two colons, so the value may itself
// contain colons. Blank entries are skipped.
func Parse(raw []string) ([]Criteria, error) {
	criteria := make([]Criteria, 0, len(raw))
	for _, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, apperr.BadRequest("Invalid filter format. Expected format is field:operator:value, but got: %s", entry)
		}
		criteria = append(criteria, Criteria{Field: parts[0], Operator: parts[1], Value: parts[2]})
	}
	return criteria, nil
}
