package store

import (
	"context"
	"errors"

	"civictrack-be/models"
	"civictrack-be/query"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique key (e.g. userName) is already taken
var ErrDuplicate = errors.New("duplicate key")

// IssueStore defines the contract for issue data access
type IssueStore interface {
	GetByID(ctx context.Context, id int64) (*models.Issue, error)
	Create(ctx context.Context, issue *models.Issue) error
	Update(ctx context.Context, issue *models.Issue) error
	Delete(ctx context.Context, id int64) error
	// FindPage returns the requested page and the total number of matches.
	FindPage(ctx context.Context, q *query.Query) ([]models.Issue, int64, error)
}

// CommentStore defines the contract for comment data access
type CommentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByIssue(ctx context.Context, issueID int64) ([]models.Comment, error) // oldest first
	Create(ctx context.Context, comment *models.Comment) error
	Update(ctx context.Context, comment *models.Comment) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// AttachmentStore defines the contract for attachment data access
type AttachmentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
	ListByIssue(ctx context.Context, issueID int64) ([]models.Attachment, error)
	ListByComments(ctx context.Context, commentIDs []int64) ([]models.Attachment, error)
	CreateMany(ctx context.Context, attachments []models.Attachment) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// List returns all users, or only those holding role when it is non-empty.
	List(ctx context.Context, role models.Role) ([]models.User, error)
}

// LookupStore is the read-mostly contract shared by the lookup tables.
type LookupStore[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)
	GetByName(ctx context.Context, name string) (*T, error)
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item *T) error
	Count(ctx context.Context) (int64, error)
}

type (
	CategoryStore = LookupStore[models.Category]
	StatusStore   = LookupStore[models.Status]
	PriorityStore = LookupStore[models.Priority]
)

// StoreProvider exposes the stores available to an operation, either bound
// to a transaction or not.
type StoreProvider interface {
	Issues() IssueStore
	Comments() CommentStore
	Attachments() AttachmentStore
	Users() UserStore
	Categories() CategoryStore
	Statuses() StatusStore
	Priorities() PriorityStore
}

// TxRunner runs fn within a transaction. Stores obtained from the provider
// must be called with the ctx handed to fn.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, stores StoreProvider) error) error
}

// Backend is a complete storage implementation.
type Backend interface {
	StoreProvider
	TxRunner
}
