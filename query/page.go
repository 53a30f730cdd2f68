package query

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"civictrack-be/apperr"
	"civictrack-be/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// maxPage keeps Skip within int64 at the largest page size.
	maxPage = math.MaxInt64 / MaxPageSize
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

type SortOrder struct {
	Field     string
	Direction Direction
}

// PageRequest is a zero-based page with an ordered list of sort keys.
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

func (p PageRequest) Skip() int64 { return int64(p.Page) * int64(p.Size) }

// ParsePageRequest reads "page", "size" and repeated "sort=field,dir"
// parameters. Missing values fall back to page 0, size 10, newest first.
func ParsePageRequest(page, size string, sorts []string) (PageRequest, error) {
	req := PageRequest{Page: 0, Size: DefaultPageSize}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 0 || int64(n) > maxPage {
			return req, apperr.BadRequest("Invalid page number: %s", page)
		}
		req.Page = n
	}
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 {
			return req, apperr.BadRequest("Invalid page size: %s", size)
		}
		req.Size = min(n, MaxPageSize)
	}

	for _, raw := range sorts {
		req.Sort = append(req.Sort, parseSort(raw)...)
	}
	if len(req.Sort) == 0 {
		req.Sort = []SortOrder{{Field: "createdAt", Direction: Desc}}
	}
	return req, nil
}

// parseSort accepts "field", "field,asc", "field,desc" and the
// comma-separated "a,b,desc" form where the direction applies to every field.
func parseSort(raw string) []SortOrder {
	parts := strings.Split(raw, ",")
	dir := Asc
	if last := strings.ToLower(strings.TrimSpace(parts[len(parts)-1])); last == "asc" || last == "desc" {
		if last == "desc" {
			dir = Desc
		}
		parts = parts[:len(parts)-1]
	}
	var orders []SortOrder
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			orders = append(orders, SortOrder{Field: p, Direction: dir})
		}
	}
	return orders
}

// RemapSort rewrites sort keys named from (case-insensitive) to to, keeping
// direction. Other keys are left untouched.
func RemapSort(req PageRequest, from, to string) PageRequest {
	out := req
	out.Sort = make([]SortOrder, len(req.Sort))
	for i, o := range req.Sort {
		if strings.EqualFold(o.Field, from) {
			o.Field = to
		}
		out.Sort[i] = o
	}
	return out
}

// sortValues resolves sort paths for the in-memory store. Absent values
// (nil) sort first in ascending order, as MongoDB does for missing fields.
// A path missing here is absent on every issue, so it ties everywhere, as
// an unknown field does in MongoDB.
var sortValues = map[string]func(*models.Issue) any{
	"_id":         func(i *models.Issue) any { return i.ID },
	"id":          func(i *models.Issue) any { return i.ID },
	"title":       func(i *models.Issue) any { return i.Title },
	"description": func(i *models.Issue) any { return i.Description },
	"createdAt":   func(i *models.Issue) any { return i.CreatedAt },
	"updatedAt":   func(i *models.Issue) any { return i.UpdatedAt },
	"startDate":   func(i *models.Issue) any { return timeOrNil(i.StartDate) },
	"dueDate":     func(i *models.Issue) any { return timeOrNil(i.DueDate) },
	"priority.sortOrder": func(i *models.Issue) any {
		if i.Priority == nil {
			return nil
		}
		return i.Priority.SortOrder
	},
	"priority.name": func(i *models.Issue) any {
		if i.Priority == nil {
			return nil
		}
		return i.Priority.Name
	},
	"category.name": func(i *models.Issue) any {
		if i.Category == nil {
			return nil
		}
		return i.Category.Name
	},
	"status.name": func(i *models.Issue) any {
		if i.Status == nil {
			return nil
		}
		return i.Status.Name
	},
	"reporter.name": func(i *models.Issue) any { return i.Reporter.Name },
	"assignee.name": func(i *models.Issue) any {
		if i.Assignee == nil {
			return nil
		}
		return i.Assignee.Name
	},
	"latitude":  func(i *models.Issue) any { return floatOrNil(i.Latitude) },
	"longitude": func(i *models.Issue) any { return floatOrNil(i.Longitude) },
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// Compare orders two issues by the given sort keys. Unknown keys compare
// equal. Ties fall back to id so paging is stable.
func Compare(a, b *models.Issue, orders []SortOrder) int {
	for _, o := range orders {
		get, ok := sortValues[o.Field]
		if !ok {
			continue
		}
		c := compareValues(get(a), get(b))
		if o.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case int:
		return cmp.Compare(av, b.(int))
	case int64:
		return cmp.Compare(av, b.(int64))
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return cmp.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}

// Page is one slice of a paginated result.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, len(p.Content))
	for i, v := range p.Content {
		content[i] = fn(v)
	}
	return Page[U]{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
