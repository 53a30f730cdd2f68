package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"civictrack-be/models"
	"civictrack-be/query"
)

// Memory is an in-process Backend used by tests and by STORE_DRIVER=memory.
// Transactions are serialized and roll back by restoring a snapshot.
type Memory struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	issues      map[int64]models.Issue
	comments    map[int64]models.Comment
	attachments map[int64]models.Attachment
	users       map[int64]models.User
	categories  map[int64]models.Category
	statuses    map[int64]models.Status
	priorities  map[int64]models.Priority
}

func newMemoryData() memoryData {
	return memoryData{
		issues:      map[int64]models.Issue{},
		comments:    map[int64]models.Comment{},
		attachments: map[int64]models.Attachment{},
		users:       map[int64]models.User{},
		categories:  map[int64]models.Category{},
		statuses:    map[int64]models.Status{},
		priorities:  map[int64]models.Priority{},
	}
}

func (d memoryData) clone() memoryData {
	return memoryData{
		issues:      maps.Clone(d.issues),
		comments:    maps.Clone(d.comments),
		attachments: maps.Clone(d.attachments),
		users:       maps.Clone(d.users),
		categories:  maps.Clone(d.categories),
		statuses:    maps.Clone(d.statuses),
		priorities:  maps.Clone(d.priorities),
	}
}

func NewMemory() *Memory {
	return &Memory{data: newMemoryData()}
}

func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, stores StoreProvider) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.data.clone()
	m.mu.RUnlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) Issues() IssueStore           { return memoryIssueStore{m} }
func (m *Memory) Comments() CommentStore       { return memoryCommentStore{m} }
func (m *Memory) Attachments() AttachmentStore { return memoryAttachmentStore{m} }
func (m *Memory) Users() UserStore             { return memoryUserStore{m} }

func (m *Memory) Categories() CategoryStore {
	return memoryLookupStore[models.Category]{
		m:    m,
		pick: func(d *memoryData) map[int64]models.Category { return d.categories },
		cmp:  func(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) },
	}
}

func (m *Memory) Statuses() StatusStore {
	return memoryLookupStore[models.Status]{
		m:    m,
		pick: func(d *memoryData) map[int64]models.Status { return d.statuses },
		cmp:  func(a, b models.Status) int { return cmp.Compare(a.ID, b.ID) },
	}
}

func (m *Memory) Priorities() PriorityStore {
	return memoryLookupStore[models.Priority]{
		m:    m,
		pick: func(d *memoryData) map[int64]models.Priority { return d.priorities },
		cmp:  func(a, b models.Priority) int { return cmp.Compare(b.SortOrder, a.SortOrder) },
	}
}

// Stored values are copied in and out so callers never share pointers
// with the store.

func copyIssue(i models.Issue) models.Issue {
	if i.Category != nil {
		c := *i.Category
		i.Category = &c
	}
	if i.Status != nil {
		s := *i.Status
		i.Status = &s
	}
	if i.Priority != nil {
		p := *i.Priority
		i.Priority = &p
	}
	if i.Assignee != nil {
		a := *i.Assignee
		i.Assignee = &a
	}
	i.Latitude = copyPtr(i.Latitude)
	i.Longitude = copyPtr(i.Longitude)
	i.StartDate = copyPtr(i.StartDate)
	i.DueDate = copyPtr(i.DueDate)
	return i
}

func copyComment(c models.Comment) models.Comment {
	c.ParentID = copyPtr(c.ParentID)
	return c
}

func copyAttachment(a models.Attachment) models.Attachment {
	a.IssueID = copyPtr(a.IssueID)
	a.CommentID = copyPtr(a.CommentID)
	return a
}

func copyUser(u models.User) models.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type memoryIssueStore struct{ m *Memory }

func (s memoryIssueStore) GetByID(_ context.Context, id int64) (*models.Issue, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	issue, ok := s.m.data.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyIssue(issue)
	return &out, nil
}

func (s memoryIssueStore) Create(_ context.Context, issue *models.Issue) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.data.issues[issue.ID]; exists {
		return ErrDuplicate
	}
	s.m.data.issues[issue.ID] = copyIssue(*issue)
	return nil
}

func (s memoryIssueStore) Update(_ context.Context, issue *models.Issue) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.data.issues[issue.ID]; !exists {
		return ErrNotFound
	}
	s.m.data.issues[issue.ID] = copyIssue(*issue)
	return nil
}

func (s memoryIssueStore) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.data.issues[id]; !exists {
		return ErrNotFound
	}
	delete(s.m.data.issues, id)
	return nil
}

func (s memoryIssueStore) FindPage(_ context.Context, q *query.Query) ([]models.Issue, int64, error) {
	s.m.mu.RLock()
	var matched []*models.Issue
	for _, issue := range s.m.data.issues {
		issue := copyIssue(issue)
		if q.Filter.Match(&issue) {
			matched = append(matched, &issue)
		}
	}
	s.m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *models.Issue) int {
		return query.Compare(a, b, q.Page.Sort)
	})

	total := int64(len(matched))
	start := min(max(q.Page.Skip(), 0), total)
	end := min(start+int64(q.Page.Size), total)

	out := make([]models.Issue, 0, end-start)
	for _, issue := range matched[start:end] {
		out = append(out, *issue)
	}
	return out, total, nil
}

type memoryCommentStore struct{ m *Memory }

func (s memoryCommentStore) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	comment, ok := s.m.data.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyComment(comment)
	return &out, nil
}

func (s memoryCommentStore) ListByIssue(_ context.Context, issueID int64) ([]models.Comment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.Comment{}
	for _, c := range s.m.data.comments {
		if c.IssueID == issueID {
			out = append(out, copyComment(c))
		}
	}
	slices.SortFunc(out, func(a, b models.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s memoryCommentStore) Create(_ context.Context, comment *models.Comment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.data.comments[comment.ID]; exists {
		return ErrDuplicate
	}
	s.m.data.comments[comment.ID] = copyComment(*comment)
	return nil
}

func (s memoryCommentStore) Update(_ context.Context, comment *models.Comment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.data.comments[comment.ID]; !exists {
		return ErrNotFound
	}
	s.m.data.comments[comment.ID] = copyComment(*comment)
	return nil
}

func (s memoryCommentStore) DeleteMany(_ context.Context, ids []int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		delete(s.m.data.comments, id)
	}
	return nil
}

type memoryAttachmentStore struct{ m *Memory }

func (s memoryAttachmentStore) GetByID(_ context.Context, id int64) (*models.Attachment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	a, ok := s.m.data.attachments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyAttachment(a)
	return &out, nil
}

func (s memoryAttachmentStore) list(keep func(models.Attachment) bool) []models.Attachment {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.Attachment{}
	for _, a := range s.m.data.attachments {
		if keep(a) {
			out = append(out, copyAttachment(a))
		}
	}
	slices.SortFunc(out, func(a, b models.Attachment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s memoryAttachmentStore) ListByIssue(_ context.Context, issueID int64) ([]models.Attachment, error) {
	return s.list(func(a models.Attachment) bool {
		return a.IssueID != nil && *a.IssueID == issueID
	}), nil
}

func (s memoryAttachmentStore) ListByComments(_ context.Context, commentIDs []int64) ([]models.Attachment, error) {
	return s.list(func(a models.Attachment) bool {
		return a.CommentID != nil && slices.Contains(commentIDs, *a.CommentID)
	}), nil
}

func (s memoryAttachmentStore) CreateMany(_ context.Context, attachments []models.Attachment) error {
	for i := range attachments {
		if err := attachments[i].Validate(); err != nil {
			return err
		}
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, a := range attachments {
		if _, exists := s.m.data.attachments[a.ID]; exists {
			return ErrDuplicate
		}
		s.m.data.attachments[a.ID] = copyAttachment(a)
	}
	return nil
}

func (s memoryAttachmentStore) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.data.attachments[id]; !exists {
		return ErrNotFound
	}
	delete(s.m.data.attachments, id)
	return nil
}

func (s memoryAttachmentStore) DeleteMany(_ context.Context, ids []int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		delete(s.m.data.attachments, id)
	}
	return nil
}

type memoryUserStore struct{ m *Memory }

func (s memoryUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyUser(u)
	return &out, nil
}

func (s memoryUserStore) GetByUserName(_ context.Context, userName string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.data.users {
		if u.UserName == userName {
			out := copyUser(u)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryUserStore) Create(_ context.Context, user *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.data.users {
		if u.ID == user.ID || u.UserName == user.UserName {
			return ErrDuplicate
		}
	}
	s.m.data.users[user.ID] = copyUser(*user)
	return nil
}

func (s memoryUserStore) List(_ context.Context, role models.Role) ([]models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.User{}
	for _, u := range s.m.data.users {
		if role == "" || u.HasRole(role) {
			out = append(out, copyUser(u))
		}
	}
	slices.SortFunc(out, func(a, b models.User) int {
		if c := cmp.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type lookupItem interface {
	LookupID() int64
	LookupName() string
}

type memoryLookupStore[T lookupItem] struct {
	m    *Memory
	pick func(*memoryData) map[int64]T
	cmp  func(a, b T) int
}

func (s memoryLookupStore[T]) GetByID(_ context.Context, id int64) (*T, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	item, ok := s.pick(&s.m.data)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s memoryLookupStore[T]) GetByName(_ context.Context, name string) (*T, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, item := range s.pick(&s.m.data) {
		if item.LookupName() == name {
			return &item, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryLookupStore[T]) List(_ context.Context) ([]T, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []T
	for _, item := range s.pick(&s.m.data) {
		out = append(out, item)
	}
	if out == nil {
		out = []T{}
	}
	slices.SortFunc(out, s.cmp)
	return out, nil
}

func (s memoryLookupStore[T]) Create(_ context.Context, item *T) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	items := s.pick(&s.m.data)
	for _, existing := range items {
		if existing.LookupID() == (*item).LookupID() || existing.LookupName() == (*item).LookupName() {
			return ErrDuplicate
		}
	}
	items[(*item).LookupID()] = *item
	return nil
}

func (s memoryLookupStore[T]) Count(_ context.Context) (int64, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return int64(len(s.pick(&s.m.data))), nil
}
