package models

import (
	"time"
)

// Issue represents an infrastructure problem reported by a citizen.
// Lookup values and users are embedded as snapshots so that filters and
// sorts can address them directly (e.g. "priority.sortOrder").
type Issue struct {
	ID          int64      `bson:"_id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description" json:"description"`
	Category    *Category  `bson:"category" json:"category"`
	Status      *Status    `bson:"status" json:"status"`
	Priority    *Priority  `bson:"priority,omitempty" json:"priority,omitempty"`
	Latitude    *float64   `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   *float64   `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Reporter    UserRef    `bson:"reporter" json:"reporter"`
	Assignee    *UserRef   `bson:"assignee,omitempty" json:"assignee,omitempty"`
	StartDate   *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	DueDate     *time.Time `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (i *Issue) IsReporter(u *User) bool {
	return i != nil && u != nil && i.Reporter.ID == u.ID
}

func (i *Issue) IsAssignee(u *User) bool {
	return i != nil && u != nil && i.Assignee != nil && i.Assignee.ID == u.ID
}
