package query

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civictrack-be/models"
)

// Predicate is a composable condition over issues. BSON renders it for the
// Mongo store; Match evaluates it against an in-memory issue.
type Predicate interface {
	BSON() bson.M
	Match(issue *models.Issue) bool
}

// Operator is an advanced-filter comparison.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEqual       Operator = "notequal"
	OpContains       Operator = "contains"
	OpDoesNotContain Operator = "doesnotcontain"
	OpStartsWith     Operator = "startswith"
	OpEndsWith       Operator = "endswith"
	OpIsEmpty        Operator = "isempty"
	OpIsNotEmpty     Operator = "isnotempty"
)

func parseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToLower(s))
	switch op {
	case OpEquals, OpNotEqual, OpContains, OpDoesNotContain,
		OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty:
		return op, true
	}
	return "", false
}

// field maps a filterable name to its document path and a typed accessor.
// A nil accessor result means the value is absent.
type field struct {
	path  string
	value func(*models.Issue) *string
}

var filterFields = map[string]field{
	"title": {"title", func(i *models.Issue) *string { return &i.Title }},
	"description": {"description", func(i *models.Issue) *string {
		return &i.Description
	}},
	"category": {"category.name", func(i *models.Issue) *string {
		if i.Category == nil {
			return nil
		}
		return &i.Category.Name
	}},
	"status": {"status.name", func(i *models.Issue) *string {
		if i.Status == nil {
			return nil
		}
		return &i.Status.Name
	}},
	"priority": {"priority.name", func(i *models.Issue) *string {
		if i.Priority == nil {
			return nil
		}
		return &i.Priority.Name
	}},
	"reporter": {"reporter.name", func(i *models.Issue) *string { return &i.Reporter.Name }},
	"assignee": {"assignee.name", func(i *models.Issue) *string {
		if i.Assignee == nil {
			return nil
		}
		return &i.Assignee.Name
	}},
}

type comparison struct {
	f     field
	op    Operator
	value string
}

func (c comparison) BSON() bson.M {
	quoted := regexp.QuoteMeta(c.value)
	switch c.op {
	case OpEquals:
		return bson.M{c.f.path: c.value}
	case OpNotEqual:
		return bson.M{c.f.path: bson.M{"$ne": c.value}}
	case OpContains:
		return bson.M{c.f.path: bson.M{"$regex": quoted, "$options": "i"}}
	case OpDoesNotContain:
		return bson.M{c.f.path: bson.M{"$not": primitive.Regex{Pattern: quoted, Options: "i"}}}
	case OpStartsWith:
		return bson.M{c.f.path: bson.M{"$regex": "^" + quoted, "$options": "i"}}
	case OpEndsWith:
		return bson.M{c.f.path: bson.M{"$regex": quoted + "$", "$options": "i"}}
	case OpIsEmpty:
		// null also matches a missing field.
		return bson.M{"$or": []bson.M{{c.f.path: nil}, {c.f.path: ""}}}
	case OpIsNotEmpty:
		return bson.M{c.f.path: bson.M{"$nin": []any{nil, ""}}}
	}
	return bson.M{}
}

func (c comparison) Match(issue *models.Issue) bool {
	v := c.f.value(issue)
	switch c.op {
	case OpIsEmpty:
		return v == nil || *v == ""
	case OpIsNotEmpty:
		return v != nil && *v != ""
	case OpNotEqual:
		return v == nil || *v != c.value
	case OpDoesNotContain:
		return v == nil || !strings.Contains(strings.ToLower(*v), strings.ToLower(c.value))
	}
	if v == nil {
		return false
	}
	got, want := strings.ToLower(*v), strings.ToLower(c.value)
	switch c.op {
	case OpEquals:
		return *v == c.value
	case OpContains:
		return strings.Contains(got, want)
	case OpStartsWith:
		return strings.HasPrefix(got, want)
	case OpEndsWith:
		return strings.HasSuffix(got, want)
	}
	return false
}

// userIs matches issues whose reporter or assignee is the given user.
type userIs struct {
	path string
	id   int64
	get  func(*models.Issue) *models.UserRef
}

func (u userIs) BSON() bson.M { return bson.M{u.path: u.id} }

func (u userIs) Match(issue *models.Issue) bool {
	ref := u.get(issue)
	return ref != nil && ref.ID == u.id
}

func reporterIs(id int64) Predicate {
	return userIs{path: "reporter._id", id: id, get: func(i *models.Issue) *models.UserRef { return &i.Reporter }}
}

func assigneeIs(id int64) Predicate {
	return userIs{path: "assignee._id", id: id, get: func(i *models.Issue) *models.UserRef { return i.Assignee }}
}

type anyOf []Predicate

func (a anyOf) BSON() bson.M {
	clauses := make([]bson.M, 0, len(a))
	for _, p := range a {
		clauses = append(clauses, p.BSON())
	}
	return bson.M{"$or": clauses}
}

func (a anyOf) Match(issue *models.Issue) bool {
	for _, p := range a {
		if p.Match(issue) {
			return true
		}
	}
	return false
}

type allOf []Predicate

func (a allOf) BSON() bson.M {
	switch len(a) {
	case 0:
		return bson.M{}
	case 1:
		return a[0].BSON()
	}
	clauses := make([]bson.M, 0, len(a))
	for _, p := range a {
		clauses = append(clauses, p.BSON())
	}
	return bson.M{"$and": clauses}
}

func (a allOf) Match(issue *models.Issue) bool {
	for _, p := range a {
		if !p.Match(issue) {
			return false
		}
	}
	return true
}

// All combines predicates with AND. An empty list matches every issue.
func All(preds ...Predicate) Predicate { return allOf(preds) }
