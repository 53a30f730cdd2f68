package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"civictrack-be/apperr"
	"civictrack-be/filestore"
	"civictrack-be/models"
	"civictrack-be/policy"
	"civictrack-be/query"
	"civictrack-be/store"
	"civictrack-be/utils"
)

// IssueService owns the issue lifecycle: create, list, read, update, delete
// and issue-level attachments.
type IssueService struct {
	stores store.Backend
	files  fileOps
	now    func() time.Time
}

func NewIssueService(stores store.Backend, files filestore.FileStore, log logrus.FieldLogger) *IssueService {
	return &IssueService{
		stores: stores,
		files:  fileOps{files: files, log: log, now: time.Now},
		now:    time.Now,
	}
}

// notFound maps store.ErrNotFound to the API error for resource/id and
// wraps anything else.
func notFound(err error, resource string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(resource, "id", id)
	}
	return fmt.Errorf("load %s %d: %w", resource, id, err)
}

func (s *IssueService) getIssue(ctx context.Context, id int64) (*models.Issue, error) {
	issue, err := s.stores.Issues().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Issue", id)
	}
	return issue, nil
}

func (s *IssueService) Create(ctx context.Context, actor *models.User, in CreateIssueInput, files []filestore.FileUpload) (*IssueDetails, error) {
	files = nonEmpty(files)
	if len(files) == 0 {
		return nil, apperr.BadRequest("Cannot create an issue without at least one attachment.")
	}

	category, err := s.stores.Categories().GetByName(ctx, in.Category)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.BadRequest("Invalid category provided: %s", in.Category)
	} else if err != nil {
		return nil, err
	}

	status, err := s.stores.Statuses().GetByName(ctx, models.DefaultStatusName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.BadRequest("Default status '%s' is not configured in the database.", models.DefaultStatusName)
	} else if err != nil {
		return nil, err
	}

	priority, err := s.stores.Priorities().GetByName(ctx, models.DefaultPriorityName)
	if errors.Is(err, store.ErrNotFound) {
		priority = nil
	} else if err != nil {
		return nil, err
	}

	now := s.now()
	issue := &models.Issue{
		ID:          utils.NewID(),
		Title:       in.Title,
		Description: in.Description,
		Category:    category,
		Status:      status,
		Priority:    priority,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Reporter:    actor.Ref(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	attachments, err := s.files.upload(ctx, files, &issue.ID, nil, "Failed to upload file")
	if err != nil {
		return nil, err
	}

	err = s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		if err := tx.Issues().Create(ctx, issue); err != nil {
			return fmt.Errorf("create issue: %w", err)
		}
		return tx.Attachments().CreateMany(ctx, attachments)
	})
	if err != nil {
		s.files.remove(ctx, attachments, "issue")
		return nil, err
	}

	return issueDetails(issue, attachments, nil), nil
}

func (s *IssueService) List(ctx context.Context, actor *models.User, params query.Params) (query.Page[IssueSummary], error) {
	q, err := query.Build(params, actor)
	if err != nil {
		return query.Page[IssueSummary]{}, err
	}

	issues, total, err := s.stores.Issues().FindPage(ctx, q)
	if err != nil {
		return query.Page[IssueSummary]{}, fmt.Errorf("list issues: %w", err)
	}

	page := query.NewPage(issues, q.Page, total)
	return query.MapPage(page, issueSummary), nil
}

func (s *IssueService) GetByID(ctx context.Context, id int64) (*IssueDetails, error) {
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, issue)
}

// details loads the attachments and the full comment thread of issue.
func (s *IssueService) details(ctx context.Context, issue *models.Issue) (*IssueDetails, error) {
	attachments, err := s.stores.Attachments().ListByIssue(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("list issue attachments: %w", err)
	}

	comments, err := s.stores.Comments().ListByIssue(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	ids := make([]int64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	commentAttachments, err := s.stores.Attachments().ListByComments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list comment attachments: %w", err)
	}
	byComment := make(map[int64][]models.Attachment)
	for _, a := range commentAttachments {
		byComment[*a.CommentID] = append(byComment[*a.CommentID], a)
	}

	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView(c, byComment[c.ID]))
	}
	return issueDetails(issue, attachments, views), nil
}

func (s *IssueService) Update(ctx context.Context, actor *models.User, id int64, in UpdateIssueInput) (*IssueDetails, error) {
	var updated *models.Issue
	err := s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		issue, err := tx.Issues().GetByID(ctx, id)
		if err != nil {
			return notFound(err, "Issue", id)
		}
		if err := policy.Require(policy.CanModifyIssue(actor, issue), "You do not have permission to update this issue."); err != nil {
			return err
		}

		if err := applyUpdate(ctx, tx, issue, in); err != nil {
			return err
		}
		issue.UpdatedAt = s.now()

		if err := tx.Issues().Update(ctx, issue); err != nil {
			return fmt.Errorf("update issue: %w", err)
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.details(ctx, updated)
}

func applyUpdate(ctx context.Context, tx store.StoreProvider, issue *models.Issue, in UpdateIssueInput) error {
	if in.Title != nil {
		issue.Title = *in.Title
	}
	if in.Description != nil {
		issue.Description = *in.Description
	}
	if in.CategoryID != nil {
		category, err := lookupByID(ctx, tx.Categories(), *in.CategoryID, "Category")
		if err != nil {
			return err
		}
		issue.Category = category
	}
	if in.StatusID != nil {
		status, err := lookupByID(ctx, tx.Statuses(), *in.StatusID, "Status")
		if err != nil {
			return err
		}
		issue.Status = status
	}
	if in.PriorityID != nil {
		priority, err := lookupByID(ctx, tx.Priorities(), *in.PriorityID, "Priority")
		if err != nil {
			return err
		}
		issue.Priority = priority
	}
	if in.AssigneeID != nil {
		if *in.AssigneeID == 0 {
			issue.Assignee = nil
		} else {
			assignee, err := tx.Users().GetByID(ctx, *in.AssigneeID)
			if errors.Is(err, store.ErrNotFound) {
				return apperr.BadRequest("Invalid Assignee ID: %d", *in.AssigneeID)
			} else if err != nil {
				return err
			}
			ref := assignee.Ref()
			issue.Assignee = &ref
		}
	}
	if in.StartDate != nil {
		issue.StartDate = in.StartDate
	}
	if in.DueDate != nil {
		// issue.StartDate already holds the incoming start date when one was sent.
		if issue.StartDate != nil && in.DueDate.Before(*issue.StartDate) {
			return apperr.BadRequest("Due date cannot be before the start date.")
		}
		issue.DueDate = in.DueDate
	}
	if in.Latitude != nil {
		issue.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		issue.Longitude = in.Longitude
	}
	return nil
}

func lookupByID[T any](ctx context.Context, lookups store.LookupStore[T], id int64, name string) (*T, error) {
	item, err := lookups.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.BadRequest("Invalid %s ID: %d", name, id)
	}
	return item, err
}

// Delete removes the issue, its comment thread and every attachment. Remote
// files are removed first, best-effort; records are removed in one
// transaction regardless of remote failures.
func (s *IssueService) Delete(ctx context.Context, actor *models.User, id int64) error {
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Require(policy.CanDeleteIssue(actor, issue), "You do not have permission to delete this issue."); err != nil {
		return err
	}

	issueAttachments, err := s.stores.Attachments().ListByIssue(ctx, id)
	if err != nil {
		return fmt.Errorf("list issue attachments: %w", err)
	}
	comments, err := s.stores.Comments().ListByIssue(ctx, id)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	commentIDs := newThread(comments).all()
	commentAttachments, err := s.stores.Attachments().ListByComments(ctx, commentIDs)
	if err != nil {
		return fmt.Errorf("list comment attachments: %w", err)
	}

	s.files.remove(ctx, issueAttachments, "issue")
	s.files.remove(ctx, commentAttachments, "comment")

	attachmentIDs := make([]int64, 0, len(issueAttachments)+len(commentAttachments))
	for _, a := range issueAttachments {
		attachmentIDs = append(attachmentIDs, a.ID)
	}
	for _, a := range commentAttachments {
		attachmentIDs = append(attachmentIDs, a.ID)
	}

	return s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		if err := tx.Attachments().DeleteMany(ctx, attachmentIDs); err != nil {
			return err
		}
		if err := tx.Comments().DeleteMany(ctx, commentIDs); err != nil {
			return err
		}
		if err := tx.Issues().Delete(ctx, id); err != nil {
			return notFound(err, "Issue", id)
		}
		return nil
	})
}

func (s *IssueService) AddAttachments(ctx context.Context, actor *models.User, id int64, files []filestore.FileUpload) ([]AttachmentResponse, error) {
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(policy.CanAddIssueAttachment(actor, issue), "You do not have permission to add attachments to this issue."); err != nil {
		return nil, err
	}

	files = nonEmpty(files)
	if len(files) == 0 {
		return nil, apperr.BadRequest("At least one file is required.")
	}

	attachments, err := s.files.upload(ctx, files, &issue.ID, nil, "Failed to upload file")
	if err != nil {
		return nil, err
	}

	err = s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		return tx.Attachments().CreateMany(ctx, attachments)
	})
	if err != nil {
		s.files.remove(ctx, attachments, "issue")
		return nil, err
	}

	out := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, AttachmentResponse{AttachmentView: attachmentView(a), IssueID: issue.ID})
	}
	return out, nil
}

// DeleteAttachment removes an issue or comment attachment reached through
// issueID. The attachment must belong to that issue, directly or through
// its comment.
func (s *IssueService) DeleteAttachment(ctx context.Context, actor *models.User, issueID, attachmentID int64) error {
	attachment, err := s.stores.Attachments().GetByID(ctx, attachmentID)
	if err != nil {
		return notFound(err, "Attachment", attachmentID)
	}

	var owner policy.AttachmentOwner
	switch {
	case attachment.IssueID != nil:
		if *attachment.IssueID != issueID {
			return apperr.BadRequest("Attachment does not belong to the specified issue.")
		}
		issue, err := s.getIssue(ctx, issueID)
		if err != nil {
			return err
		}
		owner.Issue = issue
	case attachment.CommentID != nil:
		comment, err := s.stores.Comments().GetByID(ctx, *attachment.CommentID)
		if err != nil {
			return notFound(err, "Comment", *attachment.CommentID)
		}
		if comment.IssueID != issueID {
			return apperr.BadRequest("Attachment's parent comment does not belong to the specified issue.")
		}
		owner.Comment = comment
	default:
		return fmt.Errorf("attachment %d: %w", attachmentID, models.ErrAttachmentOwner)
	}

	if err := policy.Require(policy.CanDeleteAttachment(actor, owner), "You do not have permission to delete this attachment."); err != nil {
		return err
	}

	label := "issue"
	if owner.Comment != nil {
		label = "comment"
	}
	s.files.remove(ctx, []models.Attachment{*attachment}, label)

	return s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		if err := tx.Attachments().Delete(ctx, attachmentID); err != nil {
			return notFound(err, "Attachment", attachmentID)
		}
		return nil
	})
}
