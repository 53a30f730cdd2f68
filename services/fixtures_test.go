package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"civictrack-be/filestore"
	"civictrack-be/filestore/mocks"
	"civictrack-be/models"
	"civictrack-be/store"
)

var (
	citizen  = &models.User{ID: 101, FullName: "Cora Citizen", UserName: "cora", Roles: []models.Role{models.RoleCitizen}}
	neighbor = &models.User{ID: 102, FullName: "Nate Neighbor", UserName: "nate", Roles: []models.Role{models.RoleCitizen}}
	staff    = &models.User{ID: 201, FullName: "Sam Staff", UserName: "sam", Roles: []models.Role{models.RoleStaff}}
	other    = &models.User{ID: 202, FullName: "Olga Other", UserName: "olga", Roles: []models.Role{models.RoleStaff}}
	admin    = &models.User{ID: 301, FullName: "Ada Admin", UserName: "ada", Roles: []models.Role{models.RoleAdmin}}
)

var (
	roads    = models.Category{ID: 1, Name: "Roads"}
	lighting = models.Category{ID: 2, Name: "Lighting"}

	open       = models.Status{ID: 1, Name: "OPEN"}
	inProgress = models.Status{ID: 2, Name: "IN_PROGRESS"}
	resolved   = models.Status{ID: 3, Name: "RESOLVED"}

	priorities = []models.Priority{
		{ID: 1, Name: "Highest", SortOrder: 5},
		{ID: 2, Name: "High", SortOrder: 4},
		{ID: 3, Name: "Medium", SortOrder: 3},
		{ID: 4, Name: "Low", SortOrder: 2},
		{ID: 5, Name: "Lowest", SortOrder: 1},
	}
)

type fixture struct {
	ctx      context.Context
	mem      *store.Memory
	files    *mocks.MockFileStore
	logs     *logtest.Hook
	issues   *IssueService
	comments *CommentService
	clock    time.Time
}

// newFixture returns services over a seeded in-memory store. Lookups are
// optional so that tests can exercise missing-configuration paths.
func newFixture(t *testing.T, seedLookups bool) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	for _, u := range []*models.User{citizen, neighbor, staff, other, admin} {
		require.NoError(t, mem.Users().Create(ctx, u))
	}
	if seedLookups {
		for _, c := range []models.Category{roads, lighting} {
			require.NoError(t, mem.Categories().Create(ctx, &c))
		}
		for _, s := range []models.Status{open, inProgress, resolved} {
			require.NoError(t, mem.Statuses().Create(ctx, &s))
		}
		for _, p := range priorities {
			require.NoError(t, mem.Priorities().Create(ctx, &p))
		}
	}

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	files := &mocks.MockFileStore{}

	f := &fixture{
		ctx:      ctx,
		mem:      mem,
		files:    files,
		logs:     hook,
		issues:   NewIssueService(mem, files, logger),
		comments: NewCommentService(mem, files, logger),
		clock:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	tick := func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.issues.now = tick
	f.issues.files.now = tick
	f.comments.now = tick
	f.comments.files.now = tick
	return f
}

func upload(name string) filestore.FileUpload {
	return filestore.FileUpload{
		FileName:    name,
		ContentType: "image/png",
		Size:        int64(len(name)),
		Content:     strings.NewReader(name),
	}
}

// expectUploads makes the mock accept uploads of the named files.
func (f *fixture) expectUploads(names ...string) {
	for _, name := range names {
		name := name
		f.files.On("Upload", mock.Anything, mock.MatchedBy(func(u filestore.FileUpload) bool {
			return u.FileName == name
		})).Return(filestore.StoredFile{
			URL:      "http://files.test/" + name,
			PublicID: "key-" + name,
		}, nil).Once()
	}
}

// putIssue stores an issue reported by reporter directly.
func (f *fixture) putIssue(t *testing.T, id int64, reporter *models.User) *models.Issue {
	t.Helper()
	cat, st := roads, open
	issue := &models.Issue{
		ID:          id,
		Title:       fmt.Sprintf("Issue number %d needs attention", id),
		Description: "A reasonably long description of the problem.",
		Category:    &cat,
		Status:      &st,
		Reporter:    reporter.Ref(),
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	require.NoError(t, f.mem.Issues().Create(f.ctx, issue))
	return issue
}

func (f *fixture) putComment(t *testing.T, id, issueID int64, author *models.User, parent *int64) {
	t.Helper()
	f.clock = f.clock.Add(time.Minute)
	require.NoError(t, f.mem.Comments().Create(f.ctx, &models.Comment{
		ID:        id,
		Text:      fmt.Sprintf("comment %d", id),
		IssueID:   issueID,
		Author:    author.Ref(),
		ParentID:  parent,
		CreatedAt: f.clock,
	}))
}

func (f *fixture) putIssueAttachment(t *testing.T, id, issueID int64) {
	t.Helper()
	require.NoError(t, f.mem.Attachments().CreateMany(f.ctx, []models.Attachment{{
		ID: id, PublicID: fmt.Sprintf("pub-%d", id), FileName: "f.png", IssueID: &issueID,
	}}))
}

func (f *fixture) putCommentAttachment(t *testing.T, id, commentID int64) {
	t.Helper()
	require.NoError(t, f.mem.Attachments().CreateMany(f.ctx, []models.Attachment{{
		ID: id, PublicID: fmt.Sprintf("pub-%d", id), FileName: "f.png", CommentID: &commentID,
	}}))
}

func ptr[T any](v T) *T { return &v }
