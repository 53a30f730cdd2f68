// Package query turns dashboard list requests into a storage-agnostic issue
// predicate plus a corrected page request.
package query

import (
	"strings"

	"civictrack-be/apperr"
	"civictrack-be/filters"
	"civictrack-be/models"
)

const (
	sentinelAll = "All"
	sentinelMe  = "me"

	prioritySortKey  = "priority"
	priorityRankPath = "priority.sortOrder"
)

// referenceSortPaths sorts embedded lookups and users by their display name
// rather than by the embedded document.
var referenceSortPaths = map[string]string{
	"category": "category.name",
	"status":   "status.name",
	"reporter": "reporter.name",
	"assignee": "assignee.name",
}

type Params struct {
	Search     string
	Category   string
	Status     string
	ReportedBy string
	AssignedTo string
	Filters    []string
	Page       PageRequest
}

type Query struct {
	Filter Predicate
	Page   PageRequest
}

// Build validates the request for actor and composes every active filter
// with AND. Sorting by "priority" is rewritten to the priority's rank so the
// store orders Highest..Lowest instead of alphabetically. The other
// references sort by name.
func Build(p Params, actor *models.User) (*Query, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("Authentication is required.")
	}

	assignedToMe := strings.EqualFold(p.AssignedTo, sentinelMe)
	if assignedToMe && !actor.HasRole(models.RoleStaff) && !actor.IsAdmin() {
		return nil, apperr.Unauthorized("You do not have permission to use the 'assignedTo' filter.")
	}

	var preds []Predicate

	if search := strings.TrimSpace(p.Search); search != "" {
		preds = append(preds, anyOf{
			comparison{f: filterFields["title"], op: OpContains, value: search},
			comparison{f: filterFields["description"], op: OpContains, value: search},
		})
	}
	if isActive(p.Category) {
		preds = append(preds, comparison{f: filterFields["category"], op: OpEquals, value: p.Category})
	}
	if isActive(p.Status) {
		preds = append(preds, comparison{f: filterFields["status"], op: OpEquals, value: p.Status})
	}
	if strings.EqualFold(p.ReportedBy, sentinelMe) {
		preds = append(preds, reporterIs(actor.ID))
	}
	if assignedToMe {
		preds = append(preds, assigneeIs(actor.ID))
	}

	advanced, err := advancedPredicates(p.Filters)
	if err != nil {
		return nil, err
	}
	preds = append(preds, advanced...)

	page := RemapSort(p.Page, prioritySortKey, priorityRankPath)
	for from, to := range referenceSortPaths {
		page = RemapSort(page, from, to)
	}

	return &Query{
		Filter: All(preds...),
		Page:   page,
	}, nil
}

func isActive(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, sentinelAll)
}

func advancedPredicates(raw []string) ([]Predicate, error) {
	criteria, err := filters.Parse(raw)
	if err != nil {
		return nil, err
	}

	preds := make([]Predicate, 0, len(criteria))
	for _, c := range criteria {
		name := strings.ToLower(strings.TrimSpace(c.Field))
		f, ok := filterFields[name]
		if !ok {
			return nil, apperr.BadRequest("Unsupported filter field: %s", c.Field)
		}

		// Priority is a lookup reference, so it is always matched by name.
		if name == prioritySortKey {
			preds = append(preds, comparison{f: f, op: OpEquals, value: c.Value})
			continue
		}

		op, ok := parseOperator(c.Operator)
		if !ok {
			return nil, apperr.BadRequest("Unsupported filter operator: %s", c.Operator)
		}
		preds = append(preds, comparison{f: f, op: op, value: c.Value})
	}
	return preds, nil
}
