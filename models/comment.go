package models

import "time"

// Comment is a threaded remark on an issue. ParentID is nil for top-level
// comments; replies always share their parent's IssueID.
type Comment struct {
	ID        int64     `bson:"_id" json:"id"`
	Text      string    `bson:"text" json:"text"`
	IssueID   int64     `bson:"issueId" json:"issueId"`
	Author    UserRef   `bson:"author" json:"author"`
	ParentID  *int64    `bson:"parentId,omitempty" json:"parentId,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (c *Comment) IsAuthor(u *User) bool {
	return c != nil && u != nil && c.Author.ID == u.ID
}
