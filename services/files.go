package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"civictrack-be/apperr"
	"civictrack-be/filestore"
	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/utils"
)

// fileOps wraps the remote file store with the upload and best-effort
// cleanup rules shared by issues and comments.
type fileOps struct {
	files filestore.FileStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// nonEmpty drops parts with no content, which browsers send when a file
// input is left blank.
func nonEmpty(files []filestore.FileUpload) []filestore.FileUpload {
	out := make([]filestore.FileUpload, 0, len(files))
	for _, f := range files {
		if f.Size > 0 && f.Content != nil {
			out = append(out, f)
		}
	}
	return out
}

// upload stores every file and returns attachment records owned by
// issueID or commentID. On failure the files already uploaded are removed
// and a BadRequest naming the failing file is returned.
func (o fileOps) upload(ctx context.Context, files []filestore.FileUpload, issueID, commentID *int64, failMsg string) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		stored, err := o.files.Upload(ctx, f)
		if err != nil {
			o.remove(ctx, attachments, ownerLabel(issueID))
			return nil, apperr.BadRequestWrap(err, "%s: %s", failMsg, f.FileName)
		}
		attachments = append(attachments, models.Attachment{
			ID:        utils.NewID(),
			URL:       stored.URL,
			PublicID:  stored.PublicID,
			FileName:  f.FileName,
			FileType:  f.ContentType,
			IssueID:   issueID,
			CommentID: commentID,
			CreatedAt: o.now(),
		})
	}
	return attachments, nil
}

// remove deletes remote files best-effort. Failures are logged and counted,
// never returned.
func (o fileOps) remove(ctx context.Context, attachments []models.Attachment, owner string) {
	for _, a := range attachments {
		if err := o.files.Delete(ctx, a.PublicID); err != nil {
			metrics.FileCleanupFailures.WithLabelValues(owner).Inc()
			o.log.WithFields(logrus.Fields{
				"public_id": a.PublicID,
				"owner":     owner,
				"error":     err.Error(),
			}).Warn("failed to delete remote file")
		}
	}
}

func ownerLabel(issueID *int64) string {
	if issueID != nil {
		return "issue"
	}
	return "comment"
}
