package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"civictrack-be/apperr"
	"civictrack-be/filestore"
	"civictrack-be/models"
	"civictrack-be/policy"
	"civictrack-be/store"
	"civictrack-be/utils"
)

const commentUploadFailed = "Failed to upload file for comment"

// CommentService manages threaded comments on issues.
type CommentService struct {
	stores store.Backend
	files  fileOps
	now    func() time.Time
}

func NewCommentService(stores store.Backend, files filestore.FileStore, log logrus.FieldLogger) *CommentService {
	return &CommentService{
		stores: stores,
		files:  fileOps{files: files, log: log, now: time.Now},
		now:    time.Now,
	}
}

// commentOnIssue loads commentID and checks that it belongs to issueID.
func (s *CommentService) commentOnIssue(ctx context.Context, issueID, commentID int64) (*models.Comment, error) {
	comment, err := s.stores.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "Comment", commentID)
	}
	if comment.IssueID != issueID {
		return nil, apperr.BadRequest("Comment does not belong to the specified issue.")
	}
	return comment, nil
}

func (s *CommentService) Add(ctx context.Context, actor *models.User, issueID int64, in CreateCommentInput, files []filestore.FileUpload) (*CommentView, error) {
	if _, err := s.stores.Issues().GetByID(ctx, issueID); err != nil {
		return nil, notFound(err, "Issue", issueID)
	}

	if in.ParentID != nil {
		parent, err := s.stores.Comments().GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, notFound(err, "Parent Comment", *in.ParentID)
		}
		if parent.IssueID != issueID {
			return nil, apperr.BadRequest("Parent comment does not belong to the specified issue.")
		}
	}

	comment := &models.Comment{
		ID:        utils.NewID(),
		Text:      in.Text,
		IssueID:   issueID,
		Author:    actor.Ref(),
		ParentID:  in.ParentID,
		CreatedAt: s.now(),
	}

	attachments, err := s.files.upload(ctx, nonEmpty(files), nil, &comment.ID, commentUploadFailed)
	if err != nil {
		return nil, err
	}

	err = s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return tx.Attachments().CreateMany(ctx, attachments)
	})
	if err != nil {
		s.files.remove(ctx, attachments, "comment")
		return nil, err
	}

	view := commentView(*comment, attachments)
	return &view, nil
}

func (s *CommentService) Update(ctx context.Context, actor *models.User, issueID, commentID int64, in UpdateCommentInput) (*CommentView, error) {
	comment, err := s.stores.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "Comment", commentID)
	}
	if _, err := s.stores.Issues().GetByID(ctx, issueID); err != nil {
		return nil, notFound(err, "Issue", issueID)
	}
	if comment.IssueID != issueID {
		return nil, apperr.BadRequest("Comment does not belong to the specified issue.")
	}
	if err := policy.Require(policy.CanModifyComment(actor, comment), "You are not authorized to edit this comment."); err != nil {
		return nil, err
	}

	comment.Text = in.Text
	err = s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		if err := tx.Comments().Update(ctx, comment); err != nil {
			return notFound(err, "Comment", commentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attachments, err := s.stores.Attachments().ListByComments(ctx, []int64{comment.ID})
	if err != nil {
		return nil, fmt.Errorf("list comment attachments: %w", err)
	}
	view := commentView(*comment, attachments)
	return &view, nil
}

// Delete removes the comment with all its replies and their attachments.
func (s *CommentService) Delete(ctx context.Context, actor *models.User, issueID, commentID int64) error {
	comment, err := s.stores.Comments().GetByID(ctx, commentID)
	if err != nil {
		return notFound(err, "Comment", commentID)
	}
	if _, err := s.stores.Issues().GetByID(ctx, issueID); err != nil {
		return notFound(err, "Issue", issueID)
	}
	if comment.IssueID != issueID {
		return apperr.BadRequest("Comment does not belong to the specified issue.")
	}
	if err := policy.Require(policy.CanDeleteComment(actor, comment), "You are not authorized to delete this comment."); err != nil {
		return err
	}

	comments, err := s.stores.Comments().ListByIssue(ctx, issueID)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	ids := newThread(comments).subtree(commentID)
	if len(ids) == 0 {
		ids = []int64{commentID}
	}

	attachments, err := s.stores.Attachments().ListByComments(ctx, ids)
	if err != nil {
		return fmt.Errorf("list comment attachments: %w", err)
	}
	s.files.remove(ctx, attachments, "comment")

	attachmentIDs := make([]int64, 0, len(attachments))
	for _, a := range attachments {
		attachmentIDs = append(attachmentIDs, a.ID)
	}

	return s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		if err := tx.Attachments().DeleteMany(ctx, attachmentIDs); err != nil {
			return err
		}
		return tx.Comments().DeleteMany(ctx, ids)
	})
}

func (s *CommentService) AddAttachments(ctx context.Context, actor *models.User, issueID, commentID int64, files []filestore.FileUpload) ([]AttachmentResponse, error) {
	comment, err := s.commentOnIssue(ctx, issueID, commentID)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(policy.CanAddCommentAttachment(actor, comment), "You do not have permission to add attachments to this comment."); err != nil {
		return nil, err
	}

	files = nonEmpty(files)
	if len(files) == 0 {
		return nil, apperr.BadRequest("At least one file is required.")
	}

	attachments, err := s.files.upload(ctx, files, nil, &comment.ID, commentUploadFailed)
	if err != nil {
		return nil, err
	}

	err = s.stores.WithTx(ctx, func(ctx context.Context, tx store.StoreProvider) error {
		return tx.Attachments().CreateMany(ctx, attachments)
	})
	if err != nil {
		s.files.remove(ctx, attachments, "comment")
		return nil, err
	}

	out := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, AttachmentResponse{
			AttachmentView: attachmentView(a),
			IssueID:        issueID,
			CommentID:      a.CommentID,
		})
	}
	return out, nil
}
