// Package policy decides whether an actor may mutate an issue, a comment or
// an attachment. Every check fails closed: a nil actor or missing owner facts
// yields false.
package policy

import (
	"civictrack-be/apperr"
	"civictrack-be/models"
)

// CanModifyIssue allows admins, the reporter, and staff currently assigned
// to the issue. Staff without the assignment are rejected.
func CanModifyIssue(actor *models.User, issue *models.Issue) bool {
	if actor == nil || issue == nil {
		return false
	}
	if actor.IsAdmin() || issue.IsReporter(actor) {
		return true
	}
	return actor.HasRole(models.RoleStaff) && issue.IsAssignee(actor)
}

// CanDeleteIssue allows admins and the reporter. Assignees cannot delete.
func CanDeleteIssue(actor *models.User, issue *models.Issue) bool {
	if actor == nil || issue == nil {
		return false
	}
	return actor.IsAdmin() || issue.IsReporter(actor)
}

func CanAddIssueAttachment(actor *models.User, issue *models.Issue) bool {
	return CanModifyIssue(actor, issue)
}

// CanModifyComment is author only; admins cannot rewrite other people's text.
func CanModifyComment(actor *models.User, comment *models.Comment) bool {
	return comment.IsAuthor(actor)
}

func CanDeleteComment(actor *models.User, comment *models.Comment) bool {
	if actor == nil || comment == nil {
		return false
	}
	return comment.IsAuthor(actor) || actor.IsAdmin()
}

// CanAddCommentAttachment is author only, stricter than CanDeleteComment.
// TODO: confirm with product whether admins should be allowed here too.
func CanAddCommentAttachment(actor *models.User, comment *models.Comment) bool {
	return comment.IsAuthor(actor)
}

// AttachmentOwner is the resolved parent of an attachment. Exactly one of
// Issue and Comment is set.
type AttachmentOwner struct {
	Issue   *models.Issue
	Comment *models.Comment
}

// CanDeleteAttachment applies the issue update rule to issue attachments and
// author-or-admin to comment attachments.
func CanDeleteAttachment(actor *models.User, owner AttachmentOwner) bool {
	switch {
	case owner.Issue != nil && owner.Comment == nil:
		return CanModifyIssue(actor, owner.Issue)
	case owner.Comment != nil && owner.Issue == nil:
		return CanDeleteComment(actor, owner.Comment)
	default:
		return false
	}
}

// Require turns a failed check into an Unauthorized error.
func Require(allowed bool, message string) error {
	if !allowed {
		return apperr.Unauthorized(message)
	}
	return nil
}
