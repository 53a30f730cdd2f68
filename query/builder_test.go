package query

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civictrack-be/apperr"
	"civictrack-be/models"
)

var (
	citizen = &models.User{ID: 1, FullName: "Cora Citizen", Roles: []models.Role{models.RoleCitizen}}
	staff   = &models.User{ID: 2, FullName: "Sam Staff", Roles: []models.Role{models.RoleStaff}}
	admin   = &models.User{ID: 3, FullName: "Ada Admin", Roles: []models.Role{models.RoleAdmin}}
)

func issue(id int64, title, category, status string) *models.Issue {
	return &models.Issue{
		ID:          id,
		Title:       title,
		Description: "description of " + title,
		Category:    &models.Category{ID: 1, Name: category},
		Status:      &models.Status{ID: 1, Name: status},
		Reporter:    models.UserRef{ID: citizen.ID, Name: citizen.FullName},
	}
}

func defaultPage(t *testing.T) PageRequest {
	t.Helper()
	p, err := ParsePageRequest("", "", nil)
	require.NoError(t, err)
	return p
}

func TestBuild_AssignedToMeRequiresStaffOrAdmin(t *testing.T) {
	// The malformed advanced filter must not be reached.
	params := Params{AssignedTo: "me", Filters: []string{"broken"}}

	_, err := Build(params, citizen)
	require.Error(t, err)
	assert.True(t, apperr.IsUnauthorized(err))

	for _, actor := range []*models.User{staff, admin} {
		q, err := Build(Params{AssignedTo: "ME"}, actor)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"assignee._id": actor.ID}, q.Filter.BSON())
	}
}

func TestBuild_AllSentinelProducesNoPredicate(t *testing.T) {
	for _, v := range []string{"All", "all", "ALL", "", "  "} {
		q, err := Build(Params{Category: v, Status: v}, citizen)
		require.NoError(t, err)
		assert.Equal(t, bson.M{}, q.Filter.BSON(), "value %q", v)
		assert.True(t, q.Filter.Match(issue(1, "x", "Roads", "OPEN")))
	}
}

func TestBuild_CategoryAndStatusExactMatch(t *testing.T) {
	q, err := Build(Params{Category: "Roads", Status: "OPEN"}, citizen)
	require.NoError(t, err)

	assert.Equal(t, bson.M{"$and": []bson.M{
		{"category.name": "Roads"},
		{"status.name": "OPEN"},
	}}, q.Filter.BSON())

	assert.True(t, q.Filter.Match(issue(1, "a", "Roads", "OPEN")))
	assert.False(t, q.Filter.Match(issue(2, "b", "roads", "OPEN")), "exact match is case-sensitive")
	assert.False(t, q.Filter.Match(issue(3, "c", "Roads", "RESOLVED")))
}

func TestBuild_SearchMatchesTitleOrDescription(t *testing.T) {
	q, err := Build(Params{Search: "Pothole"}, citizen)
	require.NoError(t, err)

	byTitle := issue(1, "Huge pothole on Main St", "Roads", "OPEN")
	byDescription := issue(2, "Road damage", "Roads", "OPEN")
	byDescription.Description = "A POTHOLE opened overnight"
	neither := issue(3, "Broken lamp", "Lighting", "OPEN")

	assert.True(t, q.Filter.Match(byTitle))
	assert.True(t, q.Filter.Match(byDescription))
	assert.False(t, q.Filter.Match(neither))

	or := q.Filter.BSON()["$or"].([]bson.M)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{"$regex": "Pothole", "$options": "i"}, or[0]["title"])
}

func TestBuild_SearchIsRegexQuoted(t *testing.T) {
	q, err := Build(Params{Search: "a.b(c"}, citizen)
	require.NoError(t, err)
	or := q.Filter.BSON()["$or"].([]bson.M)
	assert.Equal(t, bson.M{"$regex": `a\.b\(c`, "$options": "i"}, or[0]["title"])
}

func TestBuild_ReportedByMe(t *testing.T) {
	q, err := Build(Params{ReportedBy: "me"}, staff)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"reporter._id": staff.ID}, q.Filter.BSON())

	mine := issue(1, "a", "Roads", "OPEN")
	mine.Reporter = staff.Ref()
	assert.True(t, q.Filter.Match(mine))
	assert.False(t, q.Filter.Match(issue(2, "b", "Roads", "OPEN")))
}

func TestBuild_AdvancedOperators(t *testing.T) {
	subject := issue(1, "Broken streetlight", "Lighting", "OPEN")
	ci := func(pattern string) bson.M { return bson.M{"$regex": pattern, "$options": "i"} }

	tests := []struct {
		filter string
		match  bool
		bson   bson.M
	}{
		{"title:equals:Broken streetlight", true, bson.M{"title": "Broken streetlight"}},
		{"title:equals:broken streetlight", false, bson.M{"title": "broken streetlight"}},
		{"title:notequal:Something else", true, bson.M{"title": bson.M{"$ne": "Something else"}}},
		{"title:contains:STREET", true, bson.M{"title": ci("STREET")}},
		{"title:doesnotcontain:street", false, bson.M{"title": bson.M{"$not": primitive.Regex{Pattern: "street", Options: "i"}}}},
		{"title:doesnotcontain:a.b(", true, bson.M{"title": bson.M{"$not": primitive.Regex{Pattern: `a\.b\(`, Options: "i"}}}},
		{"title:startswith:broken", true, bson.M{"title": ci("^broken")}},
		{"title:startswith:a.b(", false, bson.M{"title": ci(`^a\.b\(`)}},
		{"title:endswith:LIGHT", true, bson.M{"title": ci("LIGHT$")}},
		{"title:endswith:broken", false, bson.M{"title": ci("broken$")}},
		{"title:endswith:x*y", false, bson.M{"title": ci(`x\*y$`)}},
		{"category:equals:Lighting", true, bson.M{"category.name": "Lighting"}},
		{"status:notequal:OPEN", false, bson.M{"status.name": bson.M{"$ne": "OPEN"}}},
		{"reporter:contains:cora", true, bson.M{"reporter.name": ci("cora")}},
		{"description:contains:of broken", true, bson.M{"description": ci("of broken")}},
		{"assignee:isempty:", true, bson.M{"$or": []bson.M{{"assignee.name": nil}, {"assignee.name": ""}}}},
		{"assignee:isnotempty:", false, bson.M{"assignee.name": bson.M{"$nin": []any{nil, ""}}}},
		{"title:IsNotEmpty:", true, bson.M{"title": bson.M{"$nin": []any{nil, ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			q, err := Build(Params{Filters: []string{tt.filter}}, citizen)
			require.NoError(t, err)
			assert.Equal(t, tt.match, q.Filter.Match(subject))
			assert.Equal(t, tt.bson, q.Filter.BSON())
		})
	}
}

func TestBuild_EmptinessTreatsNullAndEmptyStringAlike(t *testing.T) {
	unassigned := issue(1, "a", "Roads", "OPEN")
	blankName := issue(2, "b", "Roads", "OPEN")
	blankName.Assignee = &models.UserRef{ID: 9, Name: ""}
	assigned := issue(3, "c", "Roads", "OPEN")
	assigned.Assignee = &models.UserRef{ID: 9, Name: "Sam"}

	empty, err := Build(Params{Filters: []string{"assignee:isempty:"}}, citizen)
	require.NoError(t, err)
	notEmpty, err := Build(Params{Filters: []string{"assignee:isnotempty:"}}, citizen)
	require.NoError(t, err)

	assert.True(t, empty.Filter.Match(unassigned))
	assert.True(t, empty.Filter.Match(blankName))
	assert.False(t, empty.Filter.Match(assigned))

	assert.False(t, notEmpty.Filter.Match(unassigned))
	assert.False(t, notEmpty.Filter.Match(blankName))
	assert.True(t, notEmpty.Filter.Match(assigned))

	assert.Equal(t, bson.M{"$or": []bson.M{{"assignee.name": nil}, {"assignee.name": ""}}}, empty.Filter.BSON())
	assert.Equal(t, bson.M{"assignee.name": bson.M{"$nin": []any{nil, ""}}}, notEmpty.Filter.BSON())
}

func TestBuild_PriorityFilterIgnoresOperator(t *testing.T) {
	q, err := Build(Params{Filters: []string{"priority:contains:High"}}, citizen)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"priority.name": "High"}, q.Filter.BSON())

	highest := issue(1, "a", "Roads", "OPEN")
	highest.Priority = &models.Priority{Name: "Highest", SortOrder: 5}
	assert.False(t, q.Filter.Match(highest), "equality, not substring")

	// Even an operator that does not exist is accepted for priority.
	_, err = Build(Params{Filters: []string{"priority:whatever:High"}}, citizen)
	assert.NoError(t, err)
}

func TestBuild_RejectsUnknownOperatorAndField(t *testing.T) {
	_, err := Build(Params{Filters: []string{"title:like:x"}}, citizen)
	require.Error(t, err)
	assert.True(t, apperr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "like")

	_, err = Build(Params{Filters: []string{"password:equals:x"}}, citizen)
	require.Error(t, err)
	assert.True(t, apperr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "password")

	_, err = Build(Params{Filters: []string{"title"}}, citizen)
	assert.True(t, apperr.IsBadRequest(err))
}

func TestBuild_CombinesEverythingWithAnd(t *testing.T) {
	q, err := Build(Params{
		Search:     "lamp",
		Category:   "Lighting",
		Status:     "OPEN",
		ReportedBy: "me",
		AssignedTo: "me",
		Filters:    []string{"priority:equals:High", "title:startswith:broken"},
	}, staff)
	require.NoError(t, err)

	and := q.Filter.BSON()["$and"].([]bson.M)
	assert.Len(t, and, 7)

	match := issue(1, "Broken lamp", "Lighting", "OPEN")
	match.Reporter = staff.Ref()
	match.Assignee = &models.UserRef{ID: staff.ID, Name: staff.FullName}
	match.Priority = &models.Priority{Name: "High", SortOrder: 4}
	assert.True(t, q.Filter.Match(match))

	match.Priority.Name = "Low"
	assert.False(t, q.Filter.Match(match))
}

func TestBuild_NilActor(t *testing.T) {
	_, err := Build(Params{}, nil)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestBuild_PrioritySortUsesRank(t *testing.T) {
	names := map[int]string{5: "Highest", 4: "High", 3: "Medium", 2: "Low", 1: "Lowest"}
	var issues []*models.Issue
	// Insert in alphabetical order to make sure the rank, not the name, wins.
	for i, rank := range []int{4, 5, 2, 1, 3} {
		is := issue(int64(i+1), names[rank], "Roads", "OPEN")
		is.Priority = &models.Priority{ID: int64(rank), Name: names[rank], SortOrder: rank}
		issues = append(issues, is)
	}

	order := func(dir string) []string {
		page, err := ParsePageRequest("0", "10", []string{"priority," + dir})
		require.NoError(t, err)
		q, err := Build(Params{Page: page}, citizen)
		require.NoError(t, err)
		assert.Equal(t, []SortOrder{{Field: "priority.sortOrder", Direction: page.Sort[0].Direction}}, q.Page.Sort)

		sorted := slices.Clone(issues)
		slices.SortFunc(sorted, func(a, b *models.Issue) int { return Compare(a, b, q.Page.Sort) })
		out := make([]string, len(sorted))
		for i, is := range sorted {
			out[i] = is.Priority.Name
		}
		return out
	}

	assert.Equal(t, []string{"Lowest", "Low", "Medium", "High", "Highest"}, order("asc"))
	assert.Equal(t, []string{"Highest", "High", "Medium", "Low", "Lowest"}, order("desc"))
}

func TestBuild_OtherSortKeysPassThrough(t *testing.T) {
	page, err := ParsePageRequest("", "", []string{"title,desc", "dueDate"})
	require.NoError(t, err)
	q, err := Build(Params{Page: page}, citizen)
	require.NoError(t, err)
	assert.Equal(t, []SortOrder{{"title", Desc}, {"dueDate", Asc}}, q.Page.Sort)
}

func TestBuild_DefaultPage(t *testing.T) {
	q, err := Build(Params{Page: defaultPage(t)}, citizen)
	require.NoError(t, err)
	assert.Equal(t, 10, q.Page.Size)
	assert.Equal(t, []SortOrder{{"createdAt", Desc}}, q.Page.Sort)
}

func TestBuild_ReferenceSortKeysUseNames(t *testing.T) {
	page, err := ParsePageRequest("", "", []string{"Status,asc", "assignee,desc", "category", "reporter"})
	require.NoError(t, err)
	q, err := Build(Params{Page: page}, citizen)
	require.NoError(t, err)
	assert.Equal(t, []SortOrder{
		{"status.name", Asc},
		{"assignee.name", Desc},
		{"category.name", Asc},
		{"reporter.name", Asc},
	}, q.Page.Sort)

	for _, o := range q.Page.Sort {
		assert.Contains(t, sortValues, o.Field)
	}

	open := issue(1, "a", "Roads", "OPEN")
	open.Assignee = &models.UserRef{ID: 7, Name: "Ada"}
	resolved := issue(2, "b", "Roads", "RESOLVED")
	unassigned := issue(3, "c", "Roads", "OPEN")
	sam := issue(4, "d", "Roads", "OPEN")
	sam.Assignee = &models.UserRef{ID: 8, Name: "Sam"}

	sorted := []*models.Issue{resolved, unassigned, open, sam}
	slices.SortFunc(sorted, func(a, b *models.Issue) int { return Compare(a, b, q.Page.Sort) })

	ids := make([]int64, len(sorted))
	for i, is := range sorted {
		ids[i] = is.ID
	}
	// OPEN before RESOLVED; within OPEN the assignee name descends and a
	// missing assignee comes last.
	assert.Equal(t, []int64{4, 1, 3, 2}, ids)
}

func TestCompare_Coordinates(t *testing.T) {
	north, south := 52.5, 48.1
	a := issue(1, "a", "Roads", "OPEN")
	a.Latitude = &north
	b := issue(2, "b", "Roads", "OPEN")
	b.Latitude = &south

	assert.Equal(t, 1, Compare(a, b, []SortOrder{{"latitude", Asc}}))
	assert.Equal(t, -1, Compare(a, b, []SortOrder{{"latitude", Desc}}))
	assert.Equal(t, -1, Compare(a, b, []SortOrder{{"longitude", Asc}}), "both missing falls back to id")
}
