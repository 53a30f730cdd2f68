package models

import (
	"errors"
	"time"
)

var ErrAttachmentOwner = errors.New("attachment must belong to exactly one of issue or comment")

// Attachment is a file stored remotely under PublicID. Exactly one of
// IssueID and CommentID is set.
type Attachment struct {
	ID        int64     `bson:"_id" json:"id"`
	URL       string    `bson:"url" json:"url"`
	PublicID  string    `bson:"publicId" json:"-"`
	FileName  string    `bson:"fileName" json:"fileName"`
	FileType  string    `bson:"fileType" json:"fileType"`
	IssueID   *int64    `bson:"issueId,omitempty" json:"issueId,omitempty"`
	CommentID *int64    `bson:"commentId,omitempty" json:"commentId,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (a *Attachment) Validate() error {
	if (a.IssueID == nil) == (a.CommentID == nil) {
		return ErrAttachmentOwner
	}
	return nil
}
